package session_test

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/amutnick/Runecast/pkg/catalog"
	"github.com/amutnick/Runecast/pkg/domain"
	"github.com/amutnick/Runecast/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhysicalPool_Deterministic(t *testing.T) {
	ctx := context.Background()
	m := session.New(catalog.Default(), echoInterpreter(nil))

	pools := make([][]string, 2)
	for i := range pools {
		m.Reset(ctx)
		require.NoError(t, m.ChooseMode(ctx, domain.ModePhysical))
		require.NoError(t, m.ChooseSpreadByName(ctx, "Three Norns"))
		pools[i] = runeNames(m.Snapshot().Pool)
	}
	assert.Equal(t, pools[0], pools[1])
	assert.IsIncreasing(t, pools[0])
	assert.Len(t, pools[0], 24)
}

func TestVirtualPool_Reshuffled(t *testing.T) {
	ctx := context.Background()
	m := session.New(catalog.Default(), echoInterpreter(nil))

	pools := make([][]string, 2)
	for i := range pools {
		m.Reset(ctx)
		require.NoError(t, m.ChooseMode(ctx, domain.ModeVirtual))
		require.NoError(t, m.ChooseSpreadByName(ctx, "Three Norns"))
		pools[i] = runeNames(m.Snapshot().Pool)
	}
	// 24! permutations: a repeat is practically impossible.
	assert.NotEqual(t, pools[0], pools[1])
	assert.ElementsMatch(t, pools[0], pools[1])
}

func TestVirtualPool_StableWhileCollecting(t *testing.T) {
	ctx := context.Background()
	m := session.New(catalog.Default(), echoInterpreter(nil))
	require.NoError(t, m.ChooseMode(ctx, domain.ModeVirtual))
	require.NoError(t, m.ChooseSpreadByName(ctx, "Nine Worlds"))

	before := runeNames(m.Snapshot().Pool)
	require.NoError(t, m.PickRune(ctx, before[0]))
	require.NoError(t, m.PickRune(ctx, before[5]))
	assert.Equal(t, before, runeNames(m.Snapshot().Pool), "pool is not recomputed per pick")
}

func TestCastOrientation_Distribution(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 99))
	fehu, err := catalog.Default().Rune("Fehu")
	require.NoError(t, err)
	isa, err := catalog.Default().Rune("Isa")
	require.NoError(t, err)

	const n = 20000
	reversed := 0
	for i := 0; i < n; i++ {
		if session.CastOrientation(fehu, rng) == domain.Reversed {
			reversed++
		}
		assert.Equal(t, domain.Upright, session.CastOrientation(isa, rng))
	}
	// Five standard deviations of a fair coin over n flips is ~0.018.
	assert.InDelta(t, 0.5, float64(reversed)/n, 0.02)
}

func TestVirtualPool_Uniformity(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	runes := catalog.Default().Runes()[:4]

	const n = 24000
	first := map[string]int{}
	for i := 0; i < n; i++ {
		first[session.VirtualPool(runes, rng)[0].Name]++
	}
	for _, r := range runes {
		assert.InDelta(t, n/4, first[r.Name], n/4*0.1, "rune %s leads too often or too rarely", r.Name)
	}
}
