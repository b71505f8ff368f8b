package models

import "time"

// Drag event types accepted from the browser adapters
const (
	DragEventStart  = "start"
	DragEventHover  = "hover"
	DragEventEnd    = "end"
	DragEventCancel = "cancel"
)

// DragEventRequest is one normalized drag event. Start lifts ItemID, hover
// targets ItemID and end drops on OverID.
type DragEventRequest struct {
	Type   string   `json:"type" validate:"required,oneof=start hover end cancel"`
	ItemID PhotoID  `json:"itemId" validate:"required_if=Type start,required_if=Type hover"`
	OverID *PhotoID `json:"overId,omitempty"`
}

// Raw pointer phases
const (
	PointerDown   = "down"
	PointerMove   = "move"
	PointerUp     = "up"
	PointerCancel = "cancel"
)

// Pointer kinds with distinct activation rules
const (
	PointerMouse = "mouse"
	PointerTouch = "touch"
)

// PointerEventRequest is raw pointer input for clients that leave drag
// activation to the server
type PointerEventRequest struct {
	Phase       string   `json:"phase" validate:"required,oneof=down move up cancel"`
	PointerType string   `json:"pointerType" validate:"omitempty,oneof=mouse touch"`
	ItemID      PhotoID  `json:"itemId" validate:"required_if=Phase down"`
	OverID      *PhotoID `json:"overId,omitempty"`
	X           float64  `json:"x"`
	Y           float64  `json:"y"`
	TimestampMs int64    `json:"timestampMs" validate:"min=0"`
}

// KeyPressRequest is one discrete key press on the sortable grid
type KeyPressRequest struct {
	Key     string  `json:"key" validate:"required"`
	ItemID  PhotoID `json:"itemId"`
	Columns int     `json:"columns" validate:"omitempty,min=1,max=12"`
}

// MoveRequest applies a single reorder without a drag gesture
type MoveRequest struct {
	FromID PhotoID `json:"fromId" validate:"required"`
	ToID   PhotoID `json:"toId" validate:"required"`
}

// Rendering surfaces
const (
	SurfaceAdmin  = "admin"
	SurfaceClient = "client"
)

// LayoutQuery selects a grid and viewport for a layout request. An explicit
// breakpoint wins over the viewport width.
type LayoutQuery struct {
	Grid         string `json:"grid"`
	Breakpoint   string `json:"breakpoint" validate:"omitempty,breakpoint"`
	Viewport     int    `json:"viewport" validate:"min=0"`
	Surface      string `json:"surface" validate:"omitempty,oneof=admin client"`
	Placeholders bool   `json:"placeholders"`
}

// DragStateResponse describes the in-progress gesture, if any
type DragStateResponse struct {
	Phase    string   `json:"phase"`
	ActiveID *PhotoID `json:"activeId,omitempty"`
	TargetID *PhotoID `json:"targetId,omitempty"`
	Side     string   `json:"side,omitempty"`
}

// SessionResponse is the state of one gallery-editing view
type SessionResponse struct {
	ID            string            `json:"id"`
	GalleryID     int64             `json:"galleryId"`
	Sequence      []PhotoID         `json:"sequence"`
	Dirty         bool              `json:"dirty"`
	Committing    bool              `json:"committing"`
	Drag          DragStateResponse `json:"drag"`
	RestoredDraft bool              `json:"restoredDraft"`
	CreatedAt     time.Time         `json:"createdAt"`
	LastActivity  time.Time         `json:"lastActivity"`
}

// MoveResponse reports whether a request changed the order
type MoveResponse struct {
	Moved   bool            `json:"moved"`
	Session SessionResponse `json:"session"`
}

// RefreshResponse is returned after reloading photos from the backend
type RefreshResponse struct {
	Discarded bool            `json:"discarded"`
	Session   SessionResponse `json:"session"`
}

// HealthResponse is returned by health check
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Sessions  int       `json:"sessions"`
}

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}
