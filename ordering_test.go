package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertLinkAppends(t *testing.T) {
	db := newTestDB(t)

	first, err := db.InsertLink("Wiki", "https://wiki.internal", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, first.SortOrder, "first link into an empty table lands at 1")

	seedLinks(t, db, "Mail", "CI")

	fourth, err := db.InsertLink("Chat", "https://chat.internal", nil)
	require.NoError(t, err)
	assert.Equal(t, 4, fourth.SortOrder)

	requireDense(t, db)
}

func TestDeleteLinkRenumbers(t *testing.T) {
	db := newTestDB(t)
	links := seedLinks(t, db, "a", "b", "c", "d")

	shifted, deletedSort, err := db.DeleteLink(links[1].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), shifted)
	assert.Equal(t, 2, deletedSort)

	orders := sortOrders(t, db)
	assert.Equal(t, map[int64]int{
		links[0].ID: 1,
		links[2].ID: 2,
		links[3].ID: 3,
	}, orders)
	requireDense(t, db)
}

func TestDeleteLinkNotFound(t *testing.T) {
	db := newTestDB(t)
	seedLinks(t, db, "a")

	_, _, err := db.DeleteLink(999)
	assert.ErrorIs(t, err, ErrNotFound)
	requireDense(t, db)
}

func TestOrderStaysDenseUnderChurn(t *testing.T) {
	db := newTestDB(t)

	links := seedLinks(t, db, "a", "b", "c", "d", "e")
	requireDense(t, db)

	// delete from the middle, the head and the tail, appending in between
	for _, idx := range []int{2, 0, 3} {
		_, _, err := db.DeleteLink(links[idx].ID)
		require.NoError(t, err)
		requireDense(t, db)

		_, err = db.InsertLink("new", "https://example.com", nil)
		require.NoError(t, err)
		requireDense(t, db)
	}
}

func TestReorderDuplicateID(t *testing.T) {
	db := newTestDB(t)
	links := seedLinks(t, db, "a", "b")

	_, _, err := db.Reorder([]ReorderItem{
		{ID: links[0].ID, SortOrder: 1},
		{ID: links[0].ID, SortOrder: 2},
	})
	assert.ErrorIs(t, err, ErrDuplicateID)

	// rejected before any write
	assert.Equal(t, map[int64]int{links[0].ID: 1, links[1].ID: 2}, sortOrders(t, db))
}

func TestReorderUnknownID(t *testing.T) {
	db := newTestDB(t)
	links := seedLinks(t, db, "a", "b")

	_, _, err := db.Reorder([]ReorderItem{
		{ID: links[0].ID, SortOrder: 2},
		{ID: 424242, SortOrder: 1},
	})
	require.ErrorIs(t, err, ErrUnknownID)
	assert.Contains(t, err.Error(), "424242", "error names the offending id")

	assert.Equal(t, map[int64]int{links[0].ID: 1, links[1].ID: 2}, sortOrders(t, db))
}

func TestReorderEmptyPayload(t *testing.T) {
	db := newTestDB(t)

	updated, reason, err := db.Reorder(nil)
	require.NoError(t, err)
	assert.Zero(t, updated)
	assert.Equal(t, "empty payload", reason)
}

func TestReorderNoOp(t *testing.T) {
	db := newTestDB(t)
	links := seedLinks(t, db, "a", "b", "c")

	current := []ReorderItem{
		{ID: links[0].ID, SortOrder: 1},
		{ID: links[1].ID, SortOrder: 2},
		{ID: links[2].ID, SortOrder: 3},
	}

	updated, reason, err := db.Reorder(current)
	require.NoError(t, err)
	assert.Zero(t, updated)
	assert.Equal(t, "no changes", reason)
}

func TestReorderPartialWritesOnlyChangedRows(t *testing.T) {
	db := newTestDB(t)
	links := seedLinks(t, db, "a", "b", "c", "d", "e")

	// swap the last two, keep the rest in place
	updated, reason, err := db.Reorder([]ReorderItem{
		{ID: links[0].ID, SortOrder: 1},
		{ID: links[1].ID, SortOrder: 2},
		{ID: links[2].ID, SortOrder: 3},
		{ID: links[3].ID, SortOrder: 5},
		{ID: links[4].ID, SortOrder: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)
	assert.Empty(t, reason)

	orders := sortOrders(t, db)
	assert.Equal(t, 5, orders[links[3].ID])
	assert.Equal(t, 4, orders[links[4].ID])
	requireDense(t, db)
}

func TestReorderFullPermutation(t *testing.T) {
	db := newTestDB(t)
	links := seedLinks(t, db, "a", "b", "c")

	updated, _, err := db.Reorder([]ReorderItem{
		{ID: links[0].ID, SortOrder: 3},
		{ID: links[1].ID, SortOrder: 1},
		{ID: links[2].ID, SortOrder: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)
	requireDense(t, db)

	assert.Equal(t, map[int64]int{
		links[0].ID: 3,
		links[1].ID: 1,
		links[2].ID: 2,
	}, sortOrders(t, db))
}

func TestReorderIdempotent(t *testing.T) {
	db := newTestDB(t)
	links := seedLinks(t, db, "a", "b")

	payload := []ReorderItem{
		{ID: links[0].ID, SortOrder: 2},
		{ID: links[1].ID, SortOrder: 1},
	}

	updated, _, err := db.Reorder(payload)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	updated, reason, err := db.Reorder(payload)
	require.NoError(t, err)
	assert.Zero(t, updated)
	assert.Equal(t, "no changes", reason)
}

func TestReorderSubsetLeavesOthersAlone(t *testing.T) {
	db := newTestDB(t)
	links := seedLinks(t, db, "a", "b", "c", "d")

	// the caller is trusted with subset submissions
	updated, _, err := db.Reorder([]ReorderItem{
		{ID: links[0].ID, SortOrder: 4},
		{ID: links[3].ID, SortOrder: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	orders := sortOrders(t, db)
	assert.Equal(t, 2, orders[links[1].ID])
	assert.Equal(t, 3, orders[links[2].ID])
}
