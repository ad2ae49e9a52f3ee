package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *LinkDB {
	t.Helper()

	db, err := newDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, execSchema(db))

	return &LinkDB{db}
}

func newTestApp(t *testing.T) *App {
	t.Helper()

	cfg := Config{
		UploadDir: t.TempDir(),
		CacheTTL:  time.Minute,
		PageTitle: "Launchpad",
		Auth: CfgAuth{
			HeaderName: "x-windows-user",
			AdminUsers: []string{"jdoe"},
		},
	}

	return &App{
		cfg:       cfg,
		Data:      Page{Title: cfg.PageTitle},
		DB:        newTestDB(t),
		Cache:     newMemoryCache(cfg.CacheTTL),
		Gate:      newAdminGate(cfg.Auth),
		Templates: newTemplates(),
	}
}

// seedLinks inserts one link per title and returns them in insert order.
func seedLinks(t *testing.T, db *LinkDB, titles ...string) []Link {
	t.Helper()

	links := make([]Link, 0, len(titles))
	for _, title := range titles {
		link, err := db.InsertLink(title, "https://example.com/"+title, nil)
		require.NoError(t, err)
		links = append(links, link)
	}

	return links
}

// sortOrders returns app_sort_order keyed by app_id.
func sortOrders(t *testing.T, db *LinkDB) map[int64]int {
	t.Helper()

	links, err := db.GetLinks("default")
	require.NoError(t, err)

	out := make(map[int64]int, len(links))
	for _, l := range links {
		out[l.ID] = l.SortOrder
	}

	return out
}

// requireDense asserts the core invariant: positions are exactly 1..N.
func requireDense(t *testing.T, db *LinkDB) {
	t.Helper()

	links, err := db.GetLinks("default")
	require.NoError(t, err)

	for i, l := range links {
		require.Equal(t, i+1, l.SortOrder,
			"sort orders must be a dense 1..N permutation, got link %d at %d", l.ID, l.SortOrder)
	}
}
