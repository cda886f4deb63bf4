package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/amutnick/Runecast/pkg/adapters/memory"
	"github.com/amutnick/Runecast/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	tests.RunHistoryStoreContract(t, memory.NewStore())
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	rec := tests.NewContractRecord("iso", time.Now(), time.Hour)
	store := memory.NewStore(rec)

	loaded, err := store.Get(ctx, "iso")
	require.NoError(t, err)
	loaded.Runes[0].RuneName = "Mutated"
	loaded.Interpretation.Questions[0] = "Mutated"

	again, err := store.Get(ctx, "iso")
	require.NoError(t, err)
	assert.Equal(t, "Fehu", again.Runes[0].RuneName)
	assert.Equal(t, "What are you holding on to?", again.Interpretation.Questions[0])
}
