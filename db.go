package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type LinkDB struct {
	db *sqlx.DB
}

func newDB(path string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, err
	}

	// The ico_id foreign key carries ON DELETE SET NULL; a single
	// connection keeps the pragma in force and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, err
	}

	return db, nil
}

const selectLinks = `
	SELECT a.app_id, a.app_title, a.app_url, a.app_sort_order,
	       a.ico_id, i.ico_file_name
	FROM applications a
	LEFT JOIN icons i ON i.ico_id = a.ico_id
`

// GetLinks returns every link ordered by the requested sort method.
func (l *LinkDB) GetLinks(sort string) ([]Link, error) {
	var orderBy string
	switch sort {
	case "asc":
		orderBy = "a.app_title COLLATE NOCASE ASC"
	case "desc":
		orderBy = "a.app_title COLLATE NOCASE DESC"
	default:
		orderBy = "a.app_sort_order ASC"
	}

	links := []Link{}
	if err := l.db.Select(&links, selectLinks+" ORDER BY "+orderBy+";"); err != nil {
		return nil, err
	}

	return links, nil
}

func (l *LinkDB) GetLink(id int64) (Link, error) {
	var link Link
	err := l.db.Get(&link, selectLinks+" WHERE a.app_id = ?;", id)
	if err == sql.ErrNoRows {
		return Link{}, ErrNotFound
	}
	if err != nil {
		return Link{}, err
	}

	return link, nil
}

// UpdateLink rewrites title, url and icon reference in place. The sort
// position is never touched here.
func (l *LinkDB) UpdateLink(id int64, title, url string, iconID *int64) error {
	res, err := l.db.Exec(
		`UPDATE applications SET app_title=?, app_url=?, ico_id=? WHERE app_id=?;`,
		title, url, iconID, id)
	if err != nil {
		return err
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return ErrNotFound
	}

	return nil
}

// GetIcons lists icons newest first with a live reference count.
func (l *LinkDB) GetIcons() ([]Icon, error) {
	icons := []Icon{}
	err := l.db.Select(&icons, `
		SELECT i.ico_id, i.ico_name, i.ico_file_name,
		       (SELECT COUNT(*) FROM applications a WHERE a.ico_id = i.ico_id) AS in_use_count
		FROM icons i
		ORDER BY i.ico_id DESC;`)
	if err != nil {
		return nil, err
	}

	return icons, nil
}

func (l *LinkDB) GetIcon(id int64) (Icon, error) {
	var icon Icon
	err := l.db.Get(&icon, `
		SELECT i.ico_id, i.ico_name, i.ico_file_name,
		       (SELECT COUNT(*) FROM applications a WHERE a.ico_id = i.ico_id) AS in_use_count
		FROM icons i
		WHERE i.ico_id = ?;`, id)
	if err == sql.ErrNoRows {
		return Icon{}, ErrNotFound
	}
	if err != nil {
		return Icon{}, err
	}

	return icon, nil
}

func (l *LinkDB) InsertIcon(name, fileName string) (Icon, error) {
	res, err := l.db.Exec(
		`INSERT INTO icons (ico_name, ico_file_name) VALUES (?, ?);`,
		name, fileName)
	if err != nil {
		return Icon{}, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Icon{}, err
	}

	return Icon{ID: id, Name: name, FileName: fileName}, nil
}

func (l *LinkDB) RenameIcon(id int64, name string) error {
	res, err := l.db.Exec(`UPDATE icons SET ico_name=? WHERE ico_id=?;`, name, id)
	if err != nil {
		return err
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return ErrNotFound
	}

	return nil
}

func (l *LinkDB) DeleteIcon(id int64) error {
	res, err := l.db.Exec(`DELETE FROM icons WHERE ico_id=?;`, id)
	if err != nil {
		return err
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return ErrNotFound
	}

	return nil
}

func initDB(dbFilePath string) {
	file, err := os.Create(dbFilePath)
	if err != nil {
		log.Fatal(err)
	}
	file.Close()

	db, err := newDB(dbFilePath)
	if err != nil {
		log.Fatal(err)
	}

	if err := execSchema(db); err != nil {
		log.Fatal(err)
	}

	if err := db.Close(); err != nil {
		log.Fatal(err)
	}
}

func execSchema(db *sqlx.DB) error {
	schemaFile, err := setupFS.Open("schema.sql")
	if err != nil {
		return err
	}

	schema, err := ioutil.ReadAll(schemaFile)
	if err != nil {
		return err
	}

	if err := schemaFile.Close(); err != nil {
		return err
	}

	if _, err := db.Exec(string(schema)); err != nil {
		return fmt.Errorf("error executing schema: %v", err)
	}

	return nil
}
