package reorder

import (
	"fmt"
	"sync"

	"github.com/gshare/gallery-editor/internal/models"
)

// Sequence is the ordered view the controller drags over. *Session implements it.
type Sequence interface {
	IndexOf(id models.PhotoID) int
	IDAt(i int) (models.PhotoID, bool)
	Len() int
	ApplyMove(from, to models.PhotoID) bool
}

// Phase of a drag gesture
type Phase int

const (
	Idle Phase = iota
	Dragging
	DraggingOverTarget
)

func (p Phase) String() string {
	switch p {
	case Dragging:
		return "dragging"
	case DraggingOverTarget:
		return "over_target"
	default:
		return "idle"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Side marks where the drop indicator is drawn relative to the target
type Side string

const (
	SideNone   Side = ""
	SideBefore Side = "before"
	SideAfter  Side = "after"
)

// DragState is the controller's current state. Active and Target are zero
// when not applicable to Phase.
type DragState struct {
	Phase  Phase          `json:"phase"`
	Active models.PhotoID `json:"activeId,omitempty"`
	Target models.PhotoID `json:"targetId,omitempty"`
	Side   Side           `json:"side,omitempty"`
}

// Controller turns normalized drag events into moves on a Sequence
type Controller struct {
	seq Sequence

	mu    sync.Mutex
	state DragState
}

// NewController creates an idle controller over seq
func NewController(seq Sequence) *Controller {
	return &Controller{seq: seq}
}

// State returns the current drag state
func (c *Controller) State() DragState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// DragStart lifts item
func (c *Controller) DragStart(item models.PhotoID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != Idle {
		return fmt.Errorf("%w: drag start while %s", models.ErrInvalidTransition, c.state.Phase)
	}
	if c.seq.IndexOf(item) < 0 {
		return fmt.Errorf("%w: %d", models.ErrPhotoNotFound, item)
	}

	c.state = DragState{Phase: Dragging, Active: item}
	return nil
}

// Hover moves the pointer over target and returns the indicator side.
// Hovering the active item itself clears the target.
func (c *Controller) Hover(target models.PhotoID) (Side, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase == Idle {
		return SideNone, fmt.Errorf("%w: hover while idle", models.ErrInvalidTransition)
	}
	targetIdx := c.seq.IndexOf(target)
	if targetIdx < 0 {
		return SideNone, fmt.Errorf("%w: %d", models.ErrPhotoNotFound, target)
	}

	if target == c.state.Active {
		c.state = DragState{Phase: Dragging, Active: c.state.Active}
		return SideNone, nil
	}

	side := SideBefore
	if targetIdx > c.seq.IndexOf(c.state.Active) {
		side = SideAfter
	}
	c.state = DragState{
		Phase:  DraggingOverTarget,
		Active: c.state.Active,
		Target: target,
		Side:   side,
	}
	return side, nil
}

// DragEnd drops the active item. When over names a different item the
// sequence is moved exactly once. It reports whether the order changed.
func (c *Controller) DragEnd(over *models.PhotoID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase == Idle {
		return false, fmt.Errorf("%w: drag end while idle", models.ErrInvalidTransition)
	}

	active := c.state.Active
	c.state = DragState{}

	if over == nil || *over == active {
		return false, nil
	}
	return c.seq.ApplyMove(active, *over), nil
}

// DragCancel abandons the gesture without touching the order
func (c *Controller) DragCancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase == Idle {
		return fmt.Errorf("%w: cancel while idle", models.ErrInvalidTransition)
	}
	c.state = DragState{}
	return nil
}
