package main

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// The ordering engine keeps app_sort_order dense: at rest the positions of
// the N existing links are exactly 1..N. Create appends at max+1, delete
// closes the gap in the same transaction, and reorder applies a
// caller-supplied permutation. A partial reorder trusts the caller to keep
// the permutation globally consistent; the drag-and-drop client always
// submits the full set renumbered 1..N.

var (
	ErrDuplicateID = errors.New("duplicate id in payload")
	ErrUnknownID   = errors.New("unknown id")
)

// ReorderItem is one desired final position.
type ReorderItem struct {
	ID        int64 `json:"id"`
	SortOrder int   `json:"sortOrder"`
}

// InsertLink appends a new link after the current last position. The
// position is computed inside the insert so the append is atomic.
func (l *LinkDB) InsertLink(title, url string, iconID *int64) (Link, error) {
	res, err := l.db.Exec(`
		INSERT INTO applications (app_title, app_url, ico_id, app_sort_order)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(app_sort_order), 0) + 1 FROM applications));`,
		title, url, iconID)
	if err != nil {
		return Link{}, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Link{}, err
	}

	return l.GetLink(id)
}

// DeleteLink removes the link and shifts every later link down by one, in
// one transaction so no gap survives a crash. It reports how many rows
// shifted and the position the deleted link held.
func (l *LinkDB) DeleteLink(id int64) (shifted int64, deletedSort int, err error) {
	tx, err := l.db.Beginx()
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	if err := tx.Get(&deletedSort,
		`SELECT app_sort_order FROM applications WHERE app_id = ?;`, id); err != nil {
		if err == sql.ErrNoRows {
			return 0, 0, ErrNotFound
		}
		return 0, 0, err
	}

	if _, err := tx.Exec(`DELETE FROM applications WHERE app_id = ?;`, id); err != nil {
		return 0, 0, err
	}

	res, err := tx.Exec(
		`UPDATE applications SET app_sort_order = app_sort_order - 1 WHERE app_sort_order > ?;`,
		deletedSort)
	if err != nil {
		return 0, 0, err
	}

	shifted, err = res.RowsAffected()
	if err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}

	return shifted, deletedSort, nil
}

// Reorder validates the desired positions and applies only the rows whose
// position actually changes, as point updates in one transaction. The
// returned reason is non-empty when nothing was written.
func (l *LinkDB) Reorder(items []ReorderItem) (updated int64, reason string, err error) {
	seen := make(map[int64]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it.ID]; ok {
			return 0, "", fmt.Errorf("%w: %d", ErrDuplicateID, it.ID)
		}
		seen[it.ID] = struct{}{}
	}

	if len(items) == 0 {
		return 0, "empty payload", nil
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}

	query, args, err := sqlx.In(
		`SELECT app_id, app_sort_order FROM applications WHERE app_id IN (?);`, ids)
	if err != nil {
		return 0, "", err
	}

	var current []struct {
		ID        int64 `db:"app_id"`
		SortOrder int   `db:"app_sort_order"`
	}
	if err := l.db.Select(&current, l.db.Rebind(query), args...); err != nil {
		return 0, "", err
	}

	if len(current) != len(items) {
		known := make(map[int64]struct{}, len(current))
		for _, c := range current {
			known[c.ID] = struct{}{}
		}
		unknown := []string{}
		for _, id := range ids {
			if _, ok := known[id]; !ok {
				unknown = append(unknown, fmt.Sprintf("%d", id))
			}
		}
		return 0, "", fmt.Errorf("%w: %s", ErrUnknownID, strings.Join(unknown, ", "))
	}

	currMap := make(map[int64]int, len(current))
	for _, c := range current {
		currMap[c.ID] = c.SortOrder
	}

	toUpdate := items[:0:0]
	for _, it := range items {
		if currMap[it.ID] != it.SortOrder {
			toUpdate = append(toUpdate, it)
		}
	}

	if len(toUpdate) == 0 {
		return 0, "no changes", nil
	}

	tx, err := l.db.Beginx()
	if err != nil {
		return 0, "", err
	}
	defer tx.Rollback()

	for _, it := range toUpdate {
		if _, err := tx.Exec(
			`UPDATE applications SET app_sort_order = ? WHERE app_id = ?;`,
			it.SortOrder, it.ID); err != nil {
			return 0, "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, "", err
	}

	return int64(len(toUpdate)), "", nil
}
