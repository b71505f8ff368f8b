package models

import "time"

// OrderDraft is an order the user arranged but has not saved yet
type OrderDraft struct {
	GalleryID int64     `json:"galleryId"`
	PhotoIDs  []PhotoID `json:"photoIds"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewOrderDraft copies ids so later session mutations do not leak into the draft
func NewOrderDraft(galleryID int64, ids []PhotoID) *OrderDraft {
	cp := make([]PhotoID, len(ids))
	copy(cp, ids)
	return &OrderDraft{
		GalleryID: galleryID,
		PhotoIDs:  cp,
		UpdatedAt: time.Now().UTC(),
	}
}
