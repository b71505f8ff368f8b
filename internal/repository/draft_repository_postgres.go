package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gshare/gallery-editor/internal/models"
)

// DraftRepositoryPostgres handles draft persistence for PostgreSQL
type DraftRepositoryPostgres struct {
	db DBTX
}

// NewDraftRepositoryPostgres creates a new DraftRepositoryPostgres
func NewDraftRepositoryPostgres(db DBTX) *DraftRepositoryPostgres {
	return &DraftRepositoryPostgres{db: db}
}

// Get retrieves the draft for a gallery
func (r *DraftRepositoryPostgres) Get(ctx context.Context, galleryID int64) (*models.OrderDraft, error) {
	query := `SELECT gallery_id, photo_ids, updated_at FROM order_drafts WHERE gallery_id = $1`

	var (
		draft models.OrderDraft
		raw   []byte
	)
	err := r.db.QueryRowContext(ctx, query, galleryID).Scan(&draft.GalleryID, &raw, &draft.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(raw, &draft.PhotoIDs); err != nil {
		return nil, fmt.Errorf("decode draft for gallery %d: %w", galleryID, err)
	}
	return &draft, nil
}

// Save inserts or replaces the draft for its gallery
func (r *DraftRepositoryPostgres) Save(ctx context.Context, draft *models.OrderDraft) error {
	raw, err := encodeIDs(draft.PhotoIDs)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO order_drafts (gallery_id, photo_ids, updated_at)
		VALUES ($1, $2::jsonb, $3)
		ON CONFLICT (gallery_id) DO UPDATE SET
			photo_ids = EXCLUDED.photo_ids,
			updated_at = EXCLUDED.updated_at
	`
	_, err = r.db.ExecContext(ctx, query, draft.GalleryID, raw, draftTime(draft))
	return err
}

// Delete removes the draft for a gallery
func (r *DraftRepositoryPostgres) Delete(ctx context.Context, galleryID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM order_drafts WHERE gallery_id = $1`, galleryID)
	return err
}

// DeleteOlderThan removes drafts last written before cutoff
func (r *DraftRepositoryPostgres) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM order_drafts WHERE updated_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
