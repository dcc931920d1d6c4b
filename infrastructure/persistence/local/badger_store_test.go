package local

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"tablegrid/application/services"
	"tablegrid/domain/core/entities"
	domain "tablegrid/domain/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStore(t *testing.T, pageSize int) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore(Options{PageSize: pageSize})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBadgerStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Should put and scan rows", func(t *testing.T) {
		store := newStore(t, 0)
		require.NoError(t, store.Put(ctx, entities.Row{"id": "1", "name": "A", "value": json.Number("1")}))

		rows, err := store.Scan(ctx)

		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, entities.Row{"id": "1", "name": "A", "value": json.Number("1")}, rows[0])
	})

	t.Run("Should page through the table", func(t *testing.T) {
		store := newStore(t, 2)
		for i := 0; i < 5; i++ {
			require.NoError(t, store.Put(ctx, entities.Row{"id": fmt.Sprintf("r%d", i)}))
		}

		page, cursor, err := store.ScanPage(ctx, "", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"r0", "r1"}, page.IDs())
		assert.Equal(t, "r1", cursor)

		page, cursor, err = store.ScanPage(ctx, cursor, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"r2", "r3"}, page.IDs())

		page, cursor, err = store.ScanPage(ctx, cursor, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"r4"}, page.IDs())
		assert.Empty(t, cursor)

		all, err := store.Scan(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 5)
	})

	t.Run("Should not emit a cursor when the last page is exactly full", func(t *testing.T) {
		store := newStore(t, 2)
		require.NoError(t, store.Put(ctx, entities.Row{"id": "a"}))
		require.NoError(t, store.Put(ctx, entities.Row{"id": "b"}))

		_, cursor, err := store.ScanPage(ctx, "", 2)

		require.NoError(t, err)
		assert.Empty(t, cursor)
	})

	t.Run("Should set and remove columns on update", func(t *testing.T) {
		store := newStore(t, 0)
		require.NoError(t, store.Put(ctx, entities.Row{"id": "1", "name": "A", "old": "x"}))

		require.NoError(t, store.Update(ctx, "1", entities.Row{"name": "B", "new": "y"}, []string{"old"}))

		rows, err := store.Scan(ctx)
		require.NoError(t, err)
		assert.Equal(t, entities.Row{"id": "1", "name": "B", "new": "y"}, rows[0])
	})

	t.Run("Should create a missing row on update", func(t *testing.T) {
		store := newStore(t, 0)

		require.NoError(t, store.Update(ctx, "9", entities.Row{"name": "Z"}, nil))

		rows, err := store.Scan(ctx)
		require.NoError(t, err)
		assert.Equal(t, entities.Snapshot{{"id": "9", "name": "Z"}}, rows)
	})

	t.Run("Should delete idempotently", func(t *testing.T) {
		store := newStore(t, 0)
		require.NoError(t, store.Put(ctx, entities.Row{"id": "1"}))

		require.NoError(t, store.Delete(ctx, "1"))
		require.NoError(t, store.Delete(ctx, "1"))

		rows, err := store.Scan(ctx)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

// The grid round trip: load, edit a value, add a row, reconcile, apply, re-read.
func TestBadgerStore_EditRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, 0)
	require.NoError(t, store.Put(ctx, entities.Row{"id": "1", "name": "A", "value": json.Number("1")}))

	original, err := store.Scan(ctx)
	require.NoError(t, err)

	working := original.Clone()
	working[0]["value"] = json.Number("2")
	working = append(working, entities.Row{"name": "B", "value": json.Number("3")})
	working = domain.BackfillIDs(original, working, nil)

	cs, err := domain.Reconcile(original, working)
	require.NoError(t, err)
	assert.Equal(t, domain.ChangeSummary{Added: 1, Modified: 1}, cs.Summary())

	result := services.NewChangeApplier(store, nil, zap.NewNop(), false).Apply(ctx, cs)
	require.True(t, result.OK())
	assert.Len(t, result.Added, 1)
	assert.Equal(t, []string{"1"}, result.Modified)
	assert.Empty(t, result.Deleted)

	after, err := store.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, after, 2)

	edited, ok := after.Find("1")
	require.True(t, ok)
	assert.Equal(t, "2", entities.Canonical(edited["value"]))

	added, ok := after.Find(result.Added[0])
	require.True(t, ok)
	assert.Equal(t, "B", added["name"])

	again, err := domain.Reconcile(after, after.Clone())
	require.NoError(t, err)
	assert.True(t, again.Empty())
}
