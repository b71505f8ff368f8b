package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/gshare/gallery-editor/internal/models"
)

// DBTX is the query surface shared by *sql.DB and observability.TraceDB
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// DraftRepo defines the interface for unsaved order persistence
type DraftRepo interface {
	// Get returns nil, nil when no draft exists
	Get(ctx context.Context, galleryID int64) (*models.OrderDraft, error)
	Save(ctx context.Context, draft *models.OrderDraft) error
	Delete(ctx context.Context, galleryID int64) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
