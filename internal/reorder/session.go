// Package reorder holds the in-memory photo order of one gallery-editing
// view, the drag state machine that mutates it, and the commit path that
// persists it.
package reorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gshare/gallery-editor/internal/models"
)

// Persister stores a gallery's photo order. Implementations must be
// idempotent for identical orders.
type Persister interface {
	PersistOrder(ctx context.Context, galleryID int64, ids []models.PhotoID) error
}

// State is a point-in-time copy of a session
type State struct {
	GalleryID  int64            `json:"galleryId"`
	Sequence   []models.PhotoID `json:"sequence"`
	Dirty      bool             `json:"dirty"`
	Committing bool             `json:"committing"`
	Version    uint64           `json:"version"`
}

// Listener observes every state change. It is called without the session
// lock held and must not block.
type Listener func(State)

// CommitError wraps a failed persist. The session keeps its order and stays dirty.
type CommitError struct {
	GalleryID int64
	Err       error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("persist order for gallery %d: %v", e.GalleryID, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

const defaultCommitTimeout = 30 * time.Second

// Option configures a Session
type Option func(*Session)

// WithCommitTimeout bounds a single persist call
func WithCommitTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.commitTimeout = d
		}
	}
}

// WithListener registers a state observer
func WithListener(l Listener) Option {
	return func(s *Session) {
		s.listener = l
	}
}

// Session owns the ordered photo sequence of one gallery
type Session struct {
	galleryID     int64
	persister     Persister
	commitTimeout time.Duration
	listener      Listener

	// commitSlot admits one persist at a time
	commitSlot chan struct{}

	mu       sync.Mutex
	sequence []models.PhotoID
	dirty    bool
	inFlight bool
	// version increments on every mutation of sequence
	version uint64
}

// NewSession creates an empty session for galleryID
func NewSession(galleryID int64, persister Persister, opts ...Option) *Session {
	s := &Session{
		galleryID:     galleryID,
		persister:     persister,
		commitTimeout: defaultCommitTimeout,
		commitSlot:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GalleryID returns the gallery this session edits
func (s *Session) GalleryID() int64 {
	return s.galleryID
}

// Initialize replaces the sequence with the photos' order and clears dirty.
// If unsaved changes exist it refuses with ErrUnsavedChanges unless force is
// set, in which case discarded reports that they were dropped.
func (s *Session) Initialize(photos []models.Photo, force bool) (discarded bool, err error) {
	ids := models.PhotoIDs(photos)
	seen := make(map[models.PhotoID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return false, fmt.Errorf("%w: %d", models.ErrDuplicatePhoto, id)
		}
		seen[id] = struct{}{}
	}

	s.mu.Lock()
	if s.dirty && !force {
		s.mu.Unlock()
		return false, models.ErrUnsavedChanges
	}
	discarded = s.dirty
	s.sequence = ids
	s.dirty = false
	s.version++
	st := s.stateLocked()
	s.mu.Unlock()

	s.notify(st)
	return discarded, nil
}

// Restore reapplies a previously saved unsaved order. It only succeeds when
// ids is a permutation of the current sequence, and marks the session dirty.
func (s *Session) Restore(ids []models.PhotoID) bool {
	s.mu.Lock()
	if !samePhotos(s.sequence, ids) || equalOrder(s.sequence, ids) {
		s.mu.Unlock()
		return false
	}
	s.sequence = append([]models.PhotoID(nil), ids...)
	s.dirty = true
	s.version++
	st := s.stateLocked()
	s.mu.Unlock()

	s.notify(st)
	return true
}

// ApplyMove moves from into the slot currently held by to, shifting the
// items between them. Equal or unknown IDs are ignored. It reports whether
// the order changed.
func (s *Session) ApplyMove(from, to models.PhotoID) bool {
	if from == to {
		return false
	}

	s.mu.Lock()
	fromIdx := s.indexLocked(from)
	toIdx := s.indexLocked(to)
	if fromIdx < 0 || toIdx < 0 {
		s.mu.Unlock()
		return false
	}
	s.sequence = arrayMove(s.sequence, fromIdx, toIdx)
	s.dirty = true
	s.version++
	st := s.stateLocked()
	s.mu.Unlock()

	s.notify(st)
	return true
}

// Commit persists the order as it is now. Commits are serialized: a second
// caller waits for the first to settle, giving up only if ctx ends while
// waiting. Once started the persist runs to completion regardless of ctx.
// Dirty is cleared only if nothing moved since this call's snapshot.
func (s *Session) Commit(ctx context.Context) error {
	s.mu.Lock()
	snapshot := append([]models.PhotoID(nil), s.sequence...)
	version := s.version
	s.mu.Unlock()

	select {
	case s.commitSlot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.commitSlot }()

	s.mu.Lock()
	s.inFlight = true
	st := s.stateLocked()
	s.mu.Unlock()
	s.notify(st)

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.commitTimeout)
	err := s.persister.PersistOrder(persistCtx, s.galleryID, snapshot)
	cancel()

	s.mu.Lock()
	s.inFlight = false
	if err == nil && s.version == version {
		s.dirty = false
	}
	st = s.stateLocked()
	s.mu.Unlock()
	s.notify(st)

	if err != nil {
		return &CommitError{GalleryID: s.galleryID, Err: err}
	}
	return nil
}

// Sequence returns a copy of the current order
func (s *Session) Sequence() []models.PhotoID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.PhotoID(nil), s.sequence...)
}

// Dirty reports unsaved changes
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Committing reports whether a persist is in flight
func (s *Session) Committing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// State returns a snapshot of the session
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// IndexOf returns the position of id, or -1
func (s *Session) IndexOf(id models.PhotoID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked(id)
}

// IDAt returns the photo at position i
func (s *Session) IDAt(i int) (models.PhotoID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.sequence) {
		return 0, false
	}
	return s.sequence[i], true
}

// Len returns the number of photos
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sequence)
}

func (s *Session) indexLocked(id models.PhotoID) int {
	for i, v := range s.sequence {
		if v == id {
			return i
		}
	}
	return -1
}

func (s *Session) stateLocked() State {
	return State{
		GalleryID:  s.galleryID,
		Sequence:   append([]models.PhotoID(nil), s.sequence...),
		Dirty:      s.dirty,
		Committing: s.inFlight,
		Version:    s.version,
	}
}

func (s *Session) notify(st State) {
	if s.listener != nil {
		s.listener(st)
	}
}

// arrayMove removes the element at from and reinserts it at to
func arrayMove(seq []models.PhotoID, from, to int) []models.PhotoID {
	out := make([]models.PhotoID, 0, len(seq))
	out = append(out, seq[:from]...)
	out = append(out, seq[from+1:]...)

	moved := seq[from]
	out = append(out, 0)
	copy(out[to+1:], out[to:])
	out[to] = moved
	return out
}

func samePhotos(a, b []models.PhotoID) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[models.PhotoID]int, len(a))
	for _, id := range a {
		counts[id]++
	}
	for _, id := range b {
		counts[id]--
		if counts[id] < 0 {
			return false
		}
	}
	return true
}

func equalOrder(a, b []models.PhotoID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
