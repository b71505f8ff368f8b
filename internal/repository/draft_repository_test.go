package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gshare/gallery-editor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *DraftRepository {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "drafts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewDraftRepository(db)
}

func TestDraftRepository_SaveAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("missing draft returns nil", func(t *testing.T) {
		draft, err := repo.Get(ctx, 99)
		require.NoError(t, err)
		assert.Nil(t, draft)
	})

	t.Run("round trips the order", func(t *testing.T) {
		saved := models.NewOrderDraft(5, []models.PhotoID{3, 1, 2})
		require.NoError(t, repo.Save(ctx, saved))

		got, err := repo.Get(ctx, 5)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(5), got.GalleryID)
		assert.Equal(t, []models.PhotoID{3, 1, 2}, got.PhotoIDs)
		assert.WithinDuration(t, saved.UpdatedAt, got.UpdatedAt, time.Second)
	})

	t.Run("save replaces the previous draft", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, models.NewOrderDraft(5, []models.PhotoID{2, 3, 1})))

		got, err := repo.Get(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, []models.PhotoID{2, 3, 1}, got.PhotoIDs)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, 5))
		require.NoError(t, repo.Delete(ctx, 5))

		got, err := repo.Get(ctx, 5)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestDraftRepository_DeleteOlderThan(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	old := &models.OrderDraft{GalleryID: 1, PhotoIDs: []models.PhotoID{1}, UpdatedAt: now.Add(-48 * time.Hour)}
	fresh := &models.OrderDraft{GalleryID: 2, PhotoIDs: []models.PhotoID{2}, UpdatedAt: now}
	require.NoError(t, repo.Save(ctx, old))
	require.NoError(t, repo.Save(ctx, fresh))

	n, err := repo.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.Get(ctx, 2)
	require.NoError(t, err)
	assert.NotNil(t, got)
}
