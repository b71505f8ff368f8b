package repository

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteDB opens the SQLite draft store and creates its tables
func NewSQLiteDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Single writer avoids "database is locked" under concurrent sessions
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	-- Unsaved gallery orders, one per gallery
	CREATE TABLE IF NOT EXISTS order_drafts (
		gallery_id INTEGER PRIMARY KEY,
		photo_ids TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_order_drafts_updated_at ON order_drafts(updated_at);
	`

	_, err := db.Exec(schema)
	return err
}
