package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/installments-tracker/internal/common"
)

func newSQLiteStore(t *testing.T) *SQLiteProfileStore {
	t.Helper()
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "profiles.db")
	drv, err := OpenSQLite(ctx, dsn, nil)
	require.NoError(t, err)
	store := NewSQLiteProfileStore(drv, nil)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(ctx))
	return store
}

func TestSQLiteProfileStore(t *testing.T) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		store := newSQLiteStore(t)
		p := sampleProfile()

		created, err := store.Create(ctx, &p)
		require.NoError(t, err)
		assert.False(t, created.CreatedAt.IsZero())

		got, err := store.Get(ctx, p.Key)
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		assert.Equal(t, p.Keywords, got.Keywords)
		assert.Equal(t, p.DatePattern, got.DatePattern)
	})

	t.Run("duplicate key", func(t *testing.T) {
		store := newSQLiteStore(t)
		p := sampleProfile()
		_, err := store.Create(ctx, &p)
		require.NoError(t, err)

		again := sampleProfile()
		_, err = store.Create(ctx, &again)
		assert.ErrorIs(t, err, ErrProfileExists)
	})

	t.Run("list ordered by key", func(t *testing.T) {
		store := newSQLiteStore(t)
		a, b := sampleProfile(), sampleProfile()
		b.Key = "comune_roma"
		_, err := store.Create(ctx, &a)
		require.NoError(t, err)
		_, err = store.Create(ctx, &b)
		require.NoError(t, err)

		list, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "comune_roma", list[0].Key)
		assert.Equal(t, "regione_lazio", list[1].Key)
	})

	t.Run("update", func(t *testing.T) {
		store := newSQLiteStore(t)
		p := sampleProfile()
		_, err := store.Create(ctx, &p)
		require.NoError(t, err)

		p.Keywords = nil
		p.AmountPattern = `(\d+,\d{2})`
		out, err := store.Update(ctx, &p)
		require.NoError(t, err)
		assert.Empty(t, out.Keywords)
		assert.Equal(t, `(\d+,\d{2})`, out.AmountPattern)

		missing := sampleProfile()
		missing.Key = "missing"
		_, err = store.Update(ctx, &missing)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		store := newSQLiteStore(t)
		p := sampleProfile()
		_, err := store.Create(ctx, &p)
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, p.Key))
		_, err = store.Get(ctx, p.Key)
		assert.ErrorIs(t, err, common.ErrNotFound)
		assert.ErrorIs(t, store.Delete(ctx, p.Key), common.ErrNotFound)
	})
}
