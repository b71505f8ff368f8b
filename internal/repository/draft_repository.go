package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gshare/gallery-editor/internal/models"
)

// DraftRepository handles draft persistence for SQLite
type DraftRepository struct {
	db DBTX
}

// NewDraftRepository creates a new DraftRepository
func NewDraftRepository(db DBTX) *DraftRepository {
	return &DraftRepository{db: db}
}

// Get retrieves the draft for a gallery
func (r *DraftRepository) Get(ctx context.Context, galleryID int64) (*models.OrderDraft, error) {
	query := `SELECT gallery_id, photo_ids, updated_at FROM order_drafts WHERE gallery_id = ?`

	var (
		draft models.OrderDraft
		raw   string
	)
	err := r.db.QueryRowContext(ctx, query, galleryID).Scan(&draft.GalleryID, &raw, &draft.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(raw), &draft.PhotoIDs); err != nil {
		return nil, fmt.Errorf("decode draft for gallery %d: %w", galleryID, err)
	}
	return &draft, nil
}

// Save inserts or replaces the draft for its gallery
func (r *DraftRepository) Save(ctx context.Context, draft *models.OrderDraft) error {
	raw, err := encodeIDs(draft.PhotoIDs)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO order_drafts (gallery_id, photo_ids, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(gallery_id) DO UPDATE SET
			photo_ids = excluded.photo_ids,
			updated_at = excluded.updated_at
	`
	_, err = r.db.ExecContext(ctx, query, draft.GalleryID, raw, draftTime(draft))
	return err
}

// Delete removes the draft for a gallery
func (r *DraftRepository) Delete(ctx context.Context, galleryID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM order_drafts WHERE gallery_id = ?`, galleryID)
	return err
}

// DeleteOlderThan removes drafts last written before cutoff
func (r *DraftRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM order_drafts WHERE updated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func encodeIDs(ids []models.PhotoID) (string, error) {
	if ids == nil {
		ids = []models.PhotoID{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("encode draft: %w", err)
	}
	return string(raw), nil
}

func draftTime(draft *models.OrderDraft) time.Time {
	if draft.UpdatedAt.IsZero() {
		return time.Now().UTC()
	}
	return draft.UpdatedAt.UTC()
}
