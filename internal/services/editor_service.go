package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gshare/gallery-editor/internal/models"
	"github.com/gshare/gallery-editor/internal/observability"
	"github.com/gshare/gallery-editor/internal/reorder"
	"github.com/gshare/gallery-editor/internal/repository"
)

// GalleryBackend is the part of the gallery API the editor needs
type GalleryBackend interface {
	FetchGalleryPhotos(ctx context.Context, galleryID int64) ([]models.Photo, error)
	PersistOrder(ctx context.Context, galleryID int64, ids []models.PhotoID) error
}

// Notifier receives session updates for fan-out
type Notifier interface {
	SessionState(s models.SessionResponse)
	CommitResult(sessionID string, err error)
	SessionClosed(sessionID string)
}

type nopNotifier struct{}

func (nopNotifier) SessionState(models.SessionResponse) {}
func (nopNotifier) CommitResult(string, error)          {}
func (nopNotifier) SessionClosed(string)                {}

// EditorConfig holds session tuning
type EditorConfig struct {
	CommitTimeout time.Duration
	// DraftTimeout bounds one draft store write
	DraftTimeout time.Duration
}

// Input sources recorded on move metrics
const (
	sourceDrag     = "drag"
	sourcePointer  = "pointer"
	sourceKeyboard = "keyboard"
	sourceDirect   = "direct"
)

// EditorSession is one open gallery-editing view
type EditorSession struct {
	ID            string
	GalleryID     int64
	CreatedAt     time.Time
	RestoredDraft bool

	session    *reorder.Session
	controller *reorder.Controller
	keyboard   *reorder.KeyboardAdapter
	pointers   map[string]*reorder.PointerAdapter

	mu           sync.Mutex
	photos       map[models.PhotoID]models.Photo
	lastActivity time.Time

	// draftOwned is set once this session has a stored draft to clean up.
	// Only the draft loop touches it after Open.
	draftOwned bool

	// changed coalesces state notifications for the draft writer
	changed   chan struct{}
	stop      chan struct{}
	drained   chan struct{}
	closeOnce sync.Once
}

func (es *EditorSession) touch(now time.Time) {
	es.mu.Lock()
	es.lastActivity = now
	es.mu.Unlock()
}

// LastActivity returns when the session last handled a request
func (es *EditorSession) LastActivity() time.Time {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.lastActivity
}

func (es *EditorSession) setPhotos(photos []models.Photo) {
	byID := make(map[models.PhotoID]models.Photo, len(photos))
	for _, p := range photos {
		byID[p.ID] = p
	}
	es.mu.Lock()
	es.photos = byID
	es.mu.Unlock()
}

// Photos returns the session's photos in current order
func (es *EditorSession) Photos() []models.Photo {
	ids := es.session.Sequence()
	es.mu.Lock()
	defer es.mu.Unlock()
	out := make([]models.Photo, 0, len(ids))
	for _, id := range ids {
		if p, ok := es.photos[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (es *EditorSession) signal(reorder.State) {
	select {
	case es.changed <- struct{}{}:
	default:
	}
}

// Snapshot converts the session to its API representation
func (es *EditorSession) Snapshot() models.SessionResponse {
	st := es.session.State()
	return models.SessionResponse{
		ID:            es.ID,
		GalleryID:     es.GalleryID,
		Sequence:      st.Sequence,
		Dirty:         st.Dirty,
		Committing:    st.Committing,
		Drag:          dragResponse(es.controller.State()),
		RestoredDraft: es.RestoredDraft,
		CreatedAt:     es.CreatedAt,
		LastActivity:  es.LastActivity(),
	}
}

func dragResponse(d reorder.DragState) models.DragStateResponse {
	resp := models.DragStateResponse{Phase: d.Phase.String(), Side: string(d.Side)}
	if d.Phase != reorder.Idle {
		active := d.Active
		resp.ActiveID = &active
	}
	if d.Phase == reorder.DraggingOverTarget {
		target := d.Target
		resp.TargetID = &target
	}
	return resp
}

// EditorService owns every open editing session
type EditorService struct {
	backend  GalleryBackend
	drafts   repository.DraftRepo
	notifier Notifier
	metrics  *observability.EditorMetrics
	cfg      EditorConfig
	logger   *observability.Logger
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*EditorSession
}

// NewEditorService creates a new EditorService. notifier and metrics may be nil.
func NewEditorService(
	backend GalleryBackend,
	drafts repository.DraftRepo,
	notifier Notifier,
	metrics *observability.EditorMetrics,
	cfg EditorConfig,
) *EditorService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if cfg.DraftTimeout <= 0 {
		cfg.DraftTimeout = 5 * time.Second
	}
	return &EditorService{
		backend:  backend,
		drafts:   drafts,
		notifier: notifier,
		metrics:  metrics,
		cfg:      cfg,
		logger:   observability.GetLogger().WithField("component", "editor_service"),
		now:      time.Now,
		sessions: make(map[string]*EditorSession),
	}
}

// Open loads a gallery and starts a new editing session for it. A stored
// draft that still matches the gallery's photos is reapplied.
func (s *EditorService) Open(ctx context.Context, galleryID int64) (*EditorSession, error) {
	ctx, span := observability.StartServiceSpan(ctx, "editor", "Open")
	defer span.End()
	span.SetAttributes(observability.GalleryID(galleryID))

	photos, err := s.backend.FetchGalleryPhotos(ctx, galleryID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	draft, err := s.drafts.Get(ctx, galleryID)
	if err != nil {
		// Opening without the draft beats not opening at all
		s.logger.WithContext(ctx).WithError(err).WithField("gallery_id", galleryID).Warn("Failed to load order draft")
		draft = nil
	}

	now := s.now()
	es := &EditorSession{
		ID:           uuid.New().String(),
		GalleryID:    galleryID,
		CreatedAt:    now,
		lastActivity: now,
		pointers:     make(map[string]*reorder.PointerAdapter, 2),
		changed:      make(chan struct{}, 1),
		stop:         make(chan struct{}),
		drained:      make(chan struct{}),
	}
	es.session = reorder.NewSession(galleryID, s.backend,
		reorder.WithCommitTimeout(s.cfg.CommitTimeout),
		reorder.WithListener(es.signal),
	)
	es.controller = reorder.NewController(es.session)
	es.keyboard = reorder.NewKeyboardAdapter(es.controller, es.session)
	es.pointers[models.PointerMouse] = reorder.NewPointerAdapter(es.controller, reorder.MouseActivation)
	es.pointers[models.PointerTouch] = reorder.NewPointerAdapter(es.controller, reorder.TouchActivation)
	es.setPhotos(photos)

	if _, err := es.session.Initialize(photos, false); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	if draft != nil {
		es.draftOwned = true
		es.RestoredDraft = es.session.Restore(draft.PhotoIDs)
		if es.RestoredDraft {
			if s.metrics != nil {
				s.metrics.RecordDraftRestored(ctx, galleryID)
			}
		} else {
			s.logger.WithContext(ctx).WithField("gallery_id", galleryID).Info("Discarding stale order draft")
		}
	}

	s.mu.Lock()
	s.sessions[es.ID] = es
	s.mu.Unlock()

	go s.draftLoop(es)

	if s.metrics != nil {
		s.metrics.SessionOpened(ctx)
	}
	span.SetAttributes(observability.SessionID(es.ID))
	observability.SetSuccess(span)

	s.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"session_id":     es.ID,
		"gallery_id":     galleryID,
		"photos":         len(photos),
		"restored_draft": es.RestoredDraft,
	}).Info("Editing session opened")

	return es, nil
}

// Get returns an open session
func (s *EditorService) Get(id string) (*EditorSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	es, ok := s.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return es, nil
}

// Count returns the number of open sessions
func (s *EditorService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Drag applies one normalized drag event. Hover targets ItemID; a drop
// lands on OverID.
func (s *EditorService) Drag(ctx context.Context, id string, req models.DragEventRequest) (*models.MoveResponse, error) {
	es, err := s.active(id)
	if err != nil {
		return nil, err
	}

	var moved bool
	switch req.Type {
	case models.DragEventStart:
		err = es.controller.DragStart(req.ItemID)
	case models.DragEventHover:
		_, err = es.controller.Hover(req.ItemID)
	case models.DragEventEnd:
		moved, err = es.controller.DragEnd(req.OverID)
	case models.DragEventCancel:
		err = es.controller.DragCancel()
		if err == nil && s.metrics != nil {
			s.metrics.RecordDragCancel(ctx, es.GalleryID)
		}
	default:
		err = fmt.Errorf("%w: unknown drag event %q", models.ErrInvalidTransition, req.Type)
	}
	if err != nil {
		return nil, err
	}
	return s.afterInput(ctx, es, moved, sourceDrag), nil
}

// Pointer feeds raw pointer input through the mouse or touch adapter
func (s *EditorService) Pointer(ctx context.Context, id string, req models.PointerEventRequest) (*models.MoveResponse, error) {
	es, err := s.active(id)
	if err != nil {
		return nil, err
	}

	kind := req.PointerType
	if kind == "" {
		kind = models.PointerMouse
	}
	adapter, ok := es.pointers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: pointer type %q", models.ErrInvalidTransition, kind)
	}

	at := reorder.Point{X: req.X, Y: req.Y}
	t := s.now()
	if req.TimestampMs > 0 {
		t = time.UnixMilli(req.TimestampMs)
	}

	var moved bool
	switch req.Phase {
	case models.PointerDown:
		err = adapter.Down(req.ItemID, at, t)
	case models.PointerMove:
		_, err = adapter.Move(at, t, req.OverID)
	case models.PointerUp:
		moved, err = adapter.Up(at, t, req.OverID)
	case models.PointerCancel:
		wasActive := adapter.Active()
		err = adapter.Cancel()
		if err == nil && wasActive && s.metrics != nil {
			s.metrics.RecordDragCancel(ctx, es.GalleryID)
		}
	default:
		err = fmt.Errorf("%w: unknown pointer phase %q", models.ErrInvalidTransition, req.Phase)
	}
	if err != nil {
		return nil, err
	}
	return s.afterInput(ctx, es, moved, sourcePointer), nil
}

// Key applies one key press to the focused item
func (s *EditorService) Key(ctx context.Context, id string, req models.KeyPressRequest) (*models.MoveResponse, error) {
	es, err := s.active(id)
	if err != nil {
		return nil, err
	}

	moved, err := es.keyboard.Press(req.Key, req.ItemID, req.Columns)
	if err != nil {
		return nil, err
	}
	return s.afterInput(ctx, es, moved, sourceKeyboard), nil
}

// Move reorders without a gesture: fromId takes the slot held by toId
func (s *EditorService) Move(ctx context.Context, id string, req models.MoveRequest) (*models.MoveResponse, error) {
	es, err := s.active(id)
	if err != nil {
		return nil, err
	}

	for _, pid := range []models.PhotoID{req.FromID, req.ToID} {
		if es.session.IndexOf(pid) < 0 {
			return nil, fmt.Errorf("%w: %d", models.ErrPhotoNotFound, pid)
		}
	}
	moved := es.session.ApplyMove(req.FromID, req.ToID)
	return s.afterInput(ctx, es, moved, sourceDirect), nil
}

// Commit persists the session's current order to the gallery backend
func (s *EditorService) Commit(ctx context.Context, id string) (*models.SessionResponse, error) {
	es, err := s.active(id)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartServiceSpan(ctx, "editor", "Commit")
	defer span.End()
	span.SetAttributes(observability.SessionID(es.ID), observability.GalleryID(es.GalleryID))

	start := time.Now()
	err = es.session.Commit(ctx)
	duration := time.Since(start)

	// A caller that gave up waiting never reached the backend
	var commitErr *reorder.CommitError
	if err != nil && !errors.As(err, &commitErr) {
		observability.RecordError(span, err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordCommit(ctx, es.GalleryID, duration, err == nil)
	}
	s.notifier.CommitResult(es.ID, err)

	logger := s.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"session_id":  es.ID,
		"gallery_id":  es.GalleryID,
		"duration_ms": duration.Milliseconds(),
	})
	if err != nil {
		observability.RecordError(span, err)
		logger.WithError(err).Warn("Order commit failed")
		return nil, err
	}
	observability.SetSuccess(span)
	logger.Info("Order committed")

	snap := es.Snapshot()
	s.notifier.SessionState(snap)
	return &snap, nil
}

// Refresh reloads the gallery's photos from the backend. Unsaved changes
// block the reload unless force is set.
func (s *EditorService) Refresh(ctx context.Context, id string, force bool) (*models.RefreshResponse, error) {
	es, err := s.active(id)
	if err != nil {
		return nil, err
	}
	if es.session.Dirty() && !force {
		return nil, models.ErrUnsavedChanges
	}

	photos, err := s.backend.FetchGalleryPhotos(ctx, es.GalleryID)
	if err != nil {
		return nil, err
	}

	if es.controller.State().Phase != reorder.Idle {
		if err := es.controller.DragCancel(); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithField("session_id", es.ID).Debug("Drag already ended before refresh")
		}
	}
	discarded, err := es.session.Initialize(photos, force)
	if err != nil {
		return nil, err
	}
	es.setPhotos(photos)

	if discarded {
		s.logger.WithContext(ctx).WithField("session_id", es.ID).Info("Unsaved order discarded on refresh")
	}

	snap := es.Snapshot()
	s.notifier.SessionState(snap)
	return &models.RefreshResponse{Discarded: discarded, Session: snap}, nil
}

// Close ends a session. A dirty session is only closed with force, and its
// draft is kept so the order can be restored on the next open.
func (s *EditorService) Close(ctx context.Context, id string, force bool) error {
	es, err := s.Get(id)
	if err != nil {
		return err
	}
	if es.session.Dirty() && !force {
		return models.ErrUnsavedChanges
	}

	s.mu.Lock()
	if _, ok := s.sessions[id]; !ok {
		s.mu.Unlock()
		return models.ErrSessionNotFound
	}
	delete(s.sessions, id)
	s.mu.Unlock()

	s.shutdown(ctx, es)
	s.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"session_id": es.ID,
		"gallery_id": es.GalleryID,
		"forced":     force,
	}).Info("Editing session closed")
	return nil
}

// Sweep closes sessions idle for longer than maxIdle. Unsaved orders stay
// in the draft store.
func (s *EditorService) Sweep(ctx context.Context, maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	var idle []*EditorSession
	for id, es := range s.sessions {
		if es.LastActivity().Before(cutoff) && !es.session.Committing() {
			idle = append(idle, es)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, es := range idle {
		s.shutdown(ctx, es)
		s.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"session_id": es.ID,
			"gallery_id": es.GalleryID,
			"dirty":      es.session.Dirty(),
		}).Info("Idle editing session swept")
	}
	return len(idle)
}

// PruneDrafts removes drafts not touched within retention
func (s *EditorService) PruneDrafts(ctx context.Context, retention time.Duration) (int64, error) {
	return s.drafts.DeleteOlderThan(ctx, s.now().Add(-retention))
}

// CloseAll shuts every session down, keeping unsaved drafts
func (s *EditorService) CloseAll(ctx context.Context) {
	s.mu.Lock()
	all := make([]*EditorSession, 0, len(s.sessions))
	for id, es := range s.sessions {
		all = append(all, es)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, es := range all {
		s.shutdown(ctx, es)
	}
}

func (s *EditorService) active(id string) (*EditorSession, error) {
	es, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	es.touch(s.now())
	return es, nil
}

func (s *EditorService) afterInput(ctx context.Context, es *EditorSession, moved bool, source string) *models.MoveResponse {
	if moved && s.metrics != nil {
		s.metrics.RecordMove(ctx, es.GalleryID, source)
	}
	snap := es.Snapshot()
	s.notifier.SessionState(snap)
	return &models.MoveResponse{Moved: moved, Session: snap}
}

func (s *EditorService) shutdown(ctx context.Context, es *EditorSession) {
	es.closeOnce.Do(func() {
		close(es.stop)
		<-es.drained
		if s.metrics != nil {
			s.metrics.SessionClosed(ctx)
		}
		s.notifier.SessionClosed(es.ID)
	})
}

// draftLoop mirrors the session's unsaved order into the draft store until
// the session stops, then writes the final state once more.
func (s *EditorService) draftLoop(es *EditorSession) {
	defer close(es.drained)
	for {
		select {
		case <-es.changed:
			s.syncDraft(es)
		case <-es.stop:
			s.syncDraft(es)
			return
		}
	}
}

func (s *EditorService) syncDraft(es *EditorSession) {
	st := es.session.State()
	// the draft outlives an in-flight commit until it settles
	if !st.Dirty && st.Committing {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DraftTimeout)
	defer cancel()

	var err error
	switch {
	case st.Dirty:
		err = s.drafts.Save(ctx, models.NewOrderDraft(es.GalleryID, st.Sequence))
		if err == nil {
			es.draftOwned = true
		}
	case es.draftOwned:
		err = s.drafts.Delete(ctx, es.GalleryID)
		if err == nil {
			es.draftOwned = false
		}
	default:
		return
	}
	if err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"session_id": es.ID,
			"gallery_id": es.GalleryID,
		}).Warn("Failed to sync order draft")
	}
}
