package models

import (
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// PhotoID identifies a photo within its gallery
type PhotoID int64

// Photo is a gallery image as served by the gallery backend.
// Only Position is ever changed by the editor, and only through a committed reorder.
type Photo struct {
	ID                PhotoID    `json:"ID"`
	CreatedAt         time.Time  `json:"CreatedAt"`
	UpdatedAt         time.Time  `json:"UpdatedAt"`
	GalleryID         int64      `json:"gallery_id"`
	FeaturedGalleryID *int64     `json:"featured_gallery_id,omitempty"`
	Size              int64      `json:"size"`
	Height            int        `json:"height"`
	Width             int        `json:"width"`
	Position          int        `json:"position"`
	Filename          string     `json:"filename"`
	BlurDataURL       string     `json:"blurDataURL,omitempty"`
	DeletedAt         *time.Time `json:"DeletedAt,omitempty"`
}

// Validate checks the invariants a photo must satisfy before it can be laid out
func (p *Photo) Validate() error {
	if p.ID == 0 {
		return ErrPhotoIDRequired
	}
	if p.Height <= 0 || p.Width <= 0 {
		return ErrInvalidDimensions
	}
	return nil
}

// DisplayName returns the filename without any path components
func (p *Photo) DisplayName() string {
	name := filepath.Base(p.Filename)
	if name == "." || name == "/" {
		return ""
	}
	return strings.TrimSpace(name)
}

// SortByPosition orders photos by their persisted rank, keeping the backend order for ties
func SortByPosition(photos []Photo) {
	sort.SliceStable(photos, func(i, j int) bool {
		return photos[i].Position < photos[j].Position
	})
}

// PhotoIDs returns the identifiers of photos in the given order
func PhotoIDs(photos []Photo) []PhotoID {
	ids := make([]PhotoID, len(photos))
	for i := range photos {
		ids[i] = photos[i].ID
	}
	return ids
}

// Errors
type PhotoError struct {
	Message string
}

func (e PhotoError) Error() string {
	return e.Message
}

var (
	ErrPhotoIDRequired   = PhotoError{"photo ID is required"}
	ErrInvalidDimensions = PhotoError{"photo height and width must be positive"}
	ErrPhotoNotFound     = PhotoError{"photo not found"}
	ErrDuplicatePhoto    = PhotoError{"photo appears more than once in gallery"}
)
