package reorder

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gshare/gallery-editor/internal/models"
)

// Point is a pointer position in CSS pixels
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// ActivationConstraint decides when a press becomes a drag. With a Delay the
// press activates once Delay has passed, unless the pointer strayed more than
// Tolerance first. Otherwise it activates after moving Distance.
type ActivationConstraint struct {
	Distance  float64       `json:"distance" yaml:"distance"`
	Delay     time.Duration `json:"delay" yaml:"delay"`
	Tolerance float64       `json:"tolerance" yaml:"tolerance"`
}

var (
	MouseActivation = ActivationConstraint{Distance: 5}
	TouchActivation = ActivationConstraint{Delay: 50 * time.Millisecond, Tolerance: 10}
)

// PointerAdapter converts raw mouse or touch input into controller events.
// Timestamps are supplied by the caller.
type PointerAdapter struct {
	ctrl       *Controller
	constraint ActivationConstraint

	mu      sync.Mutex
	pending bool
	active  bool
	item    models.PhotoID
	origin  Point
	downAt  time.Time
}

// NewPointerAdapter creates an adapter with the given activation constraint
func NewPointerAdapter(ctrl *Controller, constraint ActivationConstraint) *PointerAdapter {
	return &PointerAdapter{ctrl: ctrl, constraint: constraint}
}

// Down records a press on item
func (a *PointerAdapter) Down(item models.PhotoID, at Point, t time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.syncLocked()

	if a.pending || a.active {
		return fmt.Errorf("%w: pointer already down", models.ErrInvalidTransition)
	}
	a.pending = true
	a.item = item
	a.origin = at
	a.downAt = t

	if a.constraint.Distance <= 0 && a.constraint.Delay <= 0 {
		return a.activateLocked()
	}
	return nil
}

// Move reports pointer movement, optionally over another item. It returns
// the indicator side once a drag is active.
func (a *PointerAdapter) Move(at Point, t time.Time, over *models.PhotoID) (Side, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.syncLocked()

	if a.pending {
		activated, err := a.checkLocked(at, t)
		if err != nil || !activated {
			return SideNone, err
		}
	}
	if !a.active || over == nil {
		return SideNone, nil
	}
	return a.ctrl.Hover(*over)
}

// Up releases the pointer. A press that never activated is a click and
// leaves the order alone.
func (a *PointerAdapter) Up(at Point, t time.Time, over *models.PhotoID) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.syncLocked()

	if a.pending {
		activated, err := a.checkLocked(at, t)
		if err != nil {
			return false, err
		}
		if !activated {
			a.pending = false
			return false, nil
		}
	}
	if !a.active {
		return false, nil
	}
	a.active = false
	return a.ctrl.DragEnd(over)
}

// Cancel aborts any press or drag
func (a *PointerAdapter) Cancel() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.syncLocked()

	a.pending = false
	if !a.active {
		return nil
	}
	a.active = false
	return a.ctrl.DragCancel()
}

// Active reports whether the press has turned into a drag
func (a *PointerAdapter) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.syncLocked()
	return a.active
}

// syncLocked drops a drag that the controller no longer carries, as when
// a refresh or another input source cancelled it.
func (a *PointerAdapter) syncLocked() {
	if !a.active {
		return
	}
	if st := a.ctrl.State(); st.Phase == Idle || st.Active != a.item {
		a.active = false
	}
}

func (a *PointerAdapter) checkLocked(at Point, t time.Time) (bool, error) {
	moved := a.origin.distance(at)
	c := a.constraint

	if c.Delay > 0 {
		if t.Sub(a.downAt) >= c.Delay {
			return true, a.activateLocked()
		}
		if moved > c.Tolerance {
			// treated as a scroll
			a.pending = false
		}
		return false, nil
	}

	if moved >= c.Distance {
		return true, a.activateLocked()
	}
	return false, nil
}

func (a *PointerAdapter) activateLocked() error {
	a.pending = false
	if err := a.ctrl.DragStart(a.item); err != nil {
		return err
	}
	a.active = true
	return nil
}

// Keys understood by KeyboardAdapter
const (
	KeySpace      = "Space"
	KeyEnter      = "Enter"
	KeyEscape     = "Escape"
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
	KeyArrowUp    = "ArrowUp"
	KeyArrowDown  = "ArrowDown"
)

// KeyboardAdapter maps key presses onto the controller. Each arrow press is
// a full hover and drop followed by lifting the same item again.
type KeyboardAdapter struct {
	ctrl *Controller
	seq  Sequence
}

// NewKeyboardAdapter creates a KeyboardAdapter
func NewKeyboardAdapter(ctrl *Controller, seq Sequence) *KeyboardAdapter {
	return &KeyboardAdapter{ctrl: ctrl, seq: seq}
}

// Press handles key while focused has keyboard focus. columns is the
// current grid width and sizes vertical steps.
func (k *KeyboardAdapter) Press(key string, focused models.PhotoID, columns int) (bool, error) {
	if columns < 1 {
		columns = 1
	}

	switch key {
	case KeySpace, " ", KeyEnter:
		if k.ctrl.State().Phase == Idle {
			return false, k.ctrl.DragStart(focused)
		}
		return k.ctrl.DragEnd(nil)
	case KeyEscape, "Esc":
		return false, k.ctrl.DragCancel()
	case KeyArrowLeft:
		return k.step(-1)
	case KeyArrowRight:
		return k.step(1)
	case KeyArrowUp:
		return k.step(-columns)
	case KeyArrowDown:
		return k.step(columns)
	default:
		return false, fmt.Errorf("%w: %q", models.ErrUnsupportedKey, key)
	}
}

func (k *KeyboardAdapter) step(delta int) (bool, error) {
	st := k.ctrl.State()
	if st.Phase == Idle {
		return false, fmt.Errorf("%w: arrow key with nothing lifted", models.ErrInvalidTransition)
	}

	idx := k.seq.IndexOf(st.Active)
	target := idx + delta
	if target < 0 {
		target = 0
	}
	if last := k.seq.Len() - 1; target > last {
		target = last
	}
	if target == idx {
		return false, nil
	}

	targetID, ok := k.seq.IDAt(target)
	if !ok {
		return false, nil
	}
	if _, err := k.ctrl.Hover(targetID); err != nil {
		return false, err
	}
	moved, err := k.ctrl.DragEnd(&targetID)
	if err != nil {
		return moved, err
	}
	return moved, k.ctrl.DragStart(st.Active)
}
