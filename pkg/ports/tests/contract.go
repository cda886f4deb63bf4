package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/amutnick/Runecast/pkg/domain"
	"github.com/amutnick/Runecast/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewContractRecord builds a record created `age` before now.
func NewContractRecord(id string, now time.Time, age time.Duration) domain.ReadingRecord {
	return domain.ReadingRecord{
		ID:        id,
		CreatedAt: now.Add(-age).UTC(),
		Spread:    domain.Spread{Name: "Three Norns", Description: "Past, present, future.", RuneCount: 2},
		Runes: []domain.SelectedRune{
			{RuneName: "Fehu", Orientation: domain.Reversed},
			{RuneName: "Gebo", Orientation: domain.Upright},
		},
		Interpretation: domain.Interpretation{
			IndividualRunes: []domain.RuneInterpretation{
				{RuneName: "Gebo", Orientation: domain.Upright, Summary: "A gift."},
				{RuneName: "Fehu", Orientation: domain.Reversed, Summary: "A loss."},
			},
			Summary:   "Balance what you give and what you keep.",
			Questions: []string{"What are you holding on to?"},
		},
	}
}

// RunHistoryStoreContract runs a suite of tests to verify that a HistoryStore implementation
// adheres to the defined interface contract. The store must start empty.
func RunHistoryStoreContract(t *testing.T, store ports.HistoryStore) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)
	day := 24 * time.Hour

	t.Run("Empty List", func(t *testing.T) {
		records, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("Append and Get", func(t *testing.T) {
		rec := NewContractRecord("contract-get", now, time.Hour)
		require.NoError(t, store.Append(ctx, rec))

		loaded, err := store.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, loaded.ID)
		assert.True(t, rec.CreatedAt.Equal(loaded.CreatedAt), "created_at must round-trip")
		assert.Equal(t, rec.Spread, loaded.Spread)
		assert.Equal(t, rec.Runes, loaded.Runes, "selection order is meaningful")
		assert.Equal(t, rec.Interpretation, loaded.Interpretation)

		require.NoError(t, store.Delete(ctx, rec.ID))
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "contract-missing")
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		rec := NewContractRecord("contract-delete", now, time.Hour)
		require.NoError(t, store.Append(ctx, rec))

		require.NoError(t, store.Delete(ctx, rec.ID))
		_, err := store.Get(ctx, rec.ID)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)

		err = store.Delete(ctx, rec.ID)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})

	t.Run("List Newest First", func(t *testing.T) {
		older := NewContractRecord("contract-older", now, 3*day)
		newer := NewContractRecord("contract-newer", now, day)
		require.NoError(t, store.Append(ctx, older))
		require.NoError(t, store.Append(ctx, newer))
		defer func() {
			_ = store.Delete(ctx, older.ID)
			_ = store.Delete(ctx, newer.ID)
		}()

		records, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "contract-newer", records[0].ID)
		assert.Equal(t, "contract-older", records[1].ID)
	})

	t.Run("Prune Boundary", func(t *testing.T) {
		for _, age := range []int{10, 40, 90, 91, 400} {
			rec := NewContractRecord(fmt.Sprintf("contract-age-%d", age), now, time.Duration(age)*day)
			require.NoError(t, store.Append(ctx, rec))
		}

		removed, err := store.Prune(ctx, now.Add(-90*day))
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		records, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "contract-age-10", records[0].ID)
		assert.Equal(t, "contract-age-40", records[1].ID)
		assert.Equal(t, "contract-age-90", records[2].ID, "a record exactly at the cutoff is kept")

		removed, err = store.Prune(ctx, now.Add(-90*day))
		require.NoError(t, err)
		assert.Zero(t, removed, "prune is idempotent")

		for _, r := range records {
			_ = store.Delete(ctx, r.ID)
		}
	})
}
