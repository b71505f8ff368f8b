package models

// Editor errors
type EditorError struct {
	Message string
}

func (e EditorError) Error() string {
	return e.Message
}

var (
	ErrSessionNotFound   = EditorError{"editing session not found"}
	ErrGalleryNotFound   = EditorError{"gallery not found"}
	ErrUnsavedChanges    = EditorError{"unsaved order changes would be discarded"}
	ErrInvalidTransition = EditorError{"drag event not valid in current state"}
	ErrUnknownGrid       = EditorError{"unknown grid layout"}
	ErrUnknownBreakpoint = EditorError{"unknown breakpoint"}
	ErrUnsupportedKey    = EditorError{"unsupported key"}
)
