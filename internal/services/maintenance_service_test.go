package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gshare/gallery-editor/internal/models"
)

func TestMaintenanceService_RunNow(t *testing.T) {
	f := newEditorFixture(t, 1, 2)
	clock := time.Now()
	f.svc.now = func() time.Time { return clock }

	_, err := f.svc.Open(t.Context(), testGallery)
	require.NoError(t, err)

	old := models.NewOrderDraft(30, []models.PhotoID{1})
	old.UpdatedAt = clock.Add(-72 * time.Hour)
	require.NoError(t, f.drafts.Save(t.Context(), old))
	f.drafts.mu.Lock()
	f.drafts.drafts[30].UpdatedAt = old.UpdatedAt
	f.drafts.mu.Unlock()

	clock = clock.Add(2 * time.Hour)
	m := NewMaintenanceService(f.svc, MaintenanceConfig{
		SessionIdle:    time.Hour,
		DraftRetention: 24 * time.Hour,
	})
	m.RunNow(t.Context())

	status := m.GetStatus()
	assert.False(t, status.Running)
	assert.Equal(t, 1, status.SessionsSwept)
	assert.Equal(t, int64(1), status.DraftsPruned)
	assert.Empty(t, status.Errors)
	assert.Equal(t, 0, f.svc.Count())
}

func TestMaintenanceService_StartStop(t *testing.T) {
	f := newEditorFixture(t, 1, 2)
	m := NewMaintenanceService(f.svc, MaintenanceConfig{
		Interval:    10 * time.Millisecond,
		SessionIdle: time.Hour,
	})

	m.Start()
	m.Start()
	require.Eventually(t, func() bool {
		return !m.GetStatus().LastRun.IsZero()
	}, time.Second, 5*time.Millisecond)

	m.Stop()
	m.Stop()
}
