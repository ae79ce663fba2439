package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/cohort/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunResultStoreContract runs a suite of tests to verify that a ResultStore implementation
// adheres to the defined interface contract.
func RunResultStoreContract(t *testing.T, store ResultStore) {
	ctx := context.Background()
	runID := "contract-test-run-" + time.Now().Format("20060102150405")

	newRecord := func(id string) *domain.RunRecord {
		seed := uint64(42)
		return &domain.RunRecord{
			ID:        id,
			Model:     "contract",
			CreatedAt: time.Now().UTC().Truncate(time.Second),
			Seed:      &seed,
			Settings:  domain.Settings{Cycles: 2, CountMethod: domain.CountHalf, DiscountRate: 0.03},
			Result: domain.Result{
				Probabilities: domain.Table{Columns: []string{"a", "b"}, Rows: [][]float64{{0.8, 0.2}, {0.64, 0.36}}},
				Variables:     domain.Table{Columns: []string{"cost"}, Rows: [][]float64{{10}, {9.5}}},
			},
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		record := newRecord(runID)

		err := store.Save(ctx, record)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, record.ID, loaded.ID)
		assert.Equal(t, record.Model, loaded.Model)
		assert.True(t, record.CreatedAt.Equal(loaded.CreatedAt))
		require.NotNil(t, loaded.Seed)
		assert.Equal(t, *record.Seed, *loaded.Seed)
		assert.Equal(t, record.Settings, loaded.Settings)
		assert.Equal(t, record.Result, loaded.Result)
	})

	t.Run("Stored copy is isolated", func(t *testing.T) {
		record := newRecord(runID + "-iso")
		require.NoError(t, store.Save(ctx, record))
		defer func() { _ = store.Delete(ctx, record.ID) }()

		record.Result.Probabilities.Rows[0][0] = 99
		loaded, err := store.Load(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.8, loaded.Result.Probabilities.Rows[0][0])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, newRecord(runID))
		require.NoError(t, err)

		err = store.Delete(ctx, runID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")

		assert.NoError(t, store.Delete(ctx, runID), "Deleting twice should not fail")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		_ = store.Save(ctx, newRecord(id1))
		_ = store.Save(ctx, newRecord(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		runs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, id1)
		assert.Contains(t, runs, id2)
	})
}
