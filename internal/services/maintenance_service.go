package services

import (
	"context"
	"sync"
	"time"

	"github.com/gshare/gallery-editor/internal/observability"
)

// MaintenanceStatus represents the current status of maintenance tasks
type MaintenanceStatus struct {
	Running          bool      `json:"running"`
	LastRun          time.Time `json:"lastRun,omitempty"`
	LastRunDuration  string    `json:"lastRunDuration,omitempty"`
	SessionsSwept    int       `json:"sessionsSwept"`
	DraftsPruned     int64     `json:"draftsPruned"`
	Errors           []string  `json:"errors,omitempty"`
	NextScheduledRun time.Time `json:"nextScheduledRun,omitempty"`
}

// MaintenanceConfig sets what counts as abandoned
type MaintenanceConfig struct {
	Interval       time.Duration
	SessionIdle    time.Duration
	DraftRetention time.Duration
}

// MaintenanceService sweeps idle sessions and prunes old drafts
type MaintenanceService struct {
	editor *EditorService
	cfg    MaintenanceConfig
	logger *observability.Logger

	mu       sync.RWMutex
	running  bool
	stopChan chan struct{}
	stopped  chan struct{}
	status   MaintenanceStatus
	ticker   *time.Ticker
}

// NewMaintenanceService creates a new MaintenanceService
func NewMaintenanceService(editor *EditorService, cfg MaintenanceConfig) *MaintenanceService {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &MaintenanceService{
		editor: editor,
		cfg:    cfg,
		logger: observability.GetLogger().WithField("component", "maintenance"),
		status: MaintenanceStatus{Errors: []string{}},
	}
}

// Start begins the background maintenance loop
func (s *MaintenanceService) Start() {
	s.mu.Lock()
	if s.ticker != nil {
		s.mu.Unlock()
		return // Already started
	}
	s.stopChan = make(chan struct{})
	s.stopped = make(chan struct{})
	s.ticker = time.NewTicker(s.cfg.Interval)
	s.status.NextScheduledRun = time.Now().Add(s.cfg.Interval)
	ticker, stopChan, stopped := s.ticker, s.stopChan, s.stopped
	s.mu.Unlock()

	s.logger.Infof("Maintenance service started (runs every %s)", s.cfg.Interval)

	go func() {
		defer close(stopped)
		for {
			select {
			case <-ticker.C:
				s.mu.Lock()
				s.status.NextScheduledRun = time.Now().Add(s.cfg.Interval)
				s.mu.Unlock()
				s.RunNow(context.Background())
			case <-stopChan:
				ticker.Stop()
				s.logger.Info("Maintenance service stopped")
				return
			}
		}
	}()
}

// Stop stops the maintenance loop and waits for a running pass to finish
func (s *MaintenanceService) Stop() {
	s.mu.Lock()
	if s.ticker == nil {
		s.mu.Unlock()
		return // Already stopped
	}
	s.ticker = nil
	close(s.stopChan)
	stopped := s.stopped
	s.mu.Unlock()

	<-stopped
}

// GetStatus returns the current maintenance status
func (s *MaintenanceService) GetStatus() MaintenanceStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// RunNow performs one maintenance pass. Overlapping calls are skipped.
func (s *MaintenanceService) RunNow(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Debug("Maintenance already running, skipping")
		return
	}
	s.running = true
	s.status.Running = true
	s.mu.Unlock()

	startTime := time.Now()
	var errs []string

	swept := s.editor.Sweep(ctx, s.cfg.SessionIdle)

	var pruned int64
	if s.cfg.DraftRetention > 0 {
		n, err := s.editor.PruneDrafts(ctx, s.cfg.DraftRetention)
		if err != nil {
			errs = append(errs, err.Error())
			s.logger.WithError(err).Warn("Failed to prune order drafts")
		}
		pruned = n
	}

	duration := time.Since(startTime)

	s.mu.Lock()
	s.running = false
	s.status.Running = false
	s.status.LastRun = startTime
	s.status.LastRunDuration = duration.Round(time.Millisecond).String()
	s.status.SessionsSwept = swept
	s.status.DraftsPruned = pruned
	s.status.Errors = append([]string{}, errs...)
	s.mu.Unlock()

	if swept > 0 || pruned > 0 {
		s.logger.WithFields(map[string]interface{}{
			"sessions_swept": swept,
			"drafts_pruned":  pruned,
			"duration_ms":    duration.Milliseconds(),
		}).Info("Maintenance completed")
	}
}
