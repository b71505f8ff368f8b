package models

import (
	"strconv"
	"time"
)

// Gallery is the subset of the backend gallery document the editor reads
type Gallery struct {
	ID          int64      `json:"ID"`
	Title       string     `json:"title"`
	Path        string     `json:"path"`
	Public      bool       `json:"public"`
	Protected   bool       `json:"protected"`
	Live        *time.Time `json:"live,omitempty"`
	Expiration  *time.Time `json:"expiration,omitempty"`
	ImagesCount *int       `json:"images_count,omitempty"`
	Images      []Photo    `json:"images"`
}

// APIResponse is the envelope every backend endpoint responds with
type APIResponse[T any] struct {
	Status string `json:"status"`
	Data   T      `json:"data"`
}

// ImageWidth selects a rendition: a preset keyword or a pixel width
type ImageWidth string

const (
	// WidthOriginal is the untouched upload
	WidthOriginal ImageWidth = "original"
	// WidthWeb is the backend's web-sized preset
	WidthWeb ImageWidth = "web"
)

// WidthPx returns an on-the-fly resize width
func WidthPx(px int) ImageWidth {
	return ImageWidth(strconv.Itoa(px))
}

// IsPreset reports whether w names a server-defined preset
func (w ImageWidth) IsPreset() bool {
	return w == WidthOriginal || w == WidthWeb
}

// Pixels returns the numeric width, or 0 for presets and malformed values
func (w ImageWidth) Pixels() int {
	if w.IsPreset() {
		return 0
	}
	n, err := strconv.Atoi(string(w))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
