package repository

import (
	"database/sql"

	_ "github.com/lib/pq"
)

// NewPostgresDB connects to the PostgreSQL draft store and creates its tables
func NewPostgresDB(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := createPostgresTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createPostgresTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS order_drafts (
		gallery_id BIGINT PRIMARY KEY,
		photo_ids JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_order_drafts_updated_at ON order_drafts(updated_at);
	`

	_, err := db.Exec(schema)
	return err
}
