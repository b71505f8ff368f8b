package layout

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gshare/gallery-editor/internal/models"
)

// URLResolver turns a photo and a rendition into a fetchable URL
type URLResolver interface {
	ResolvePixelURL(id models.PhotoID, width models.ImageWidth, quality int) string
}

// RenderConfig carries the image request defaults for one surface
type RenderConfig struct {
	Quality         int   `json:"quality" yaml:"quality" validate:"min=1,max=100"`
	MinWidth        int   `json:"minWidth" yaml:"minWidth" validate:"min=1"`
	CandidateWidths []int `json:"candidateWidths" yaml:"candidateWidths"`
}

// Widths the resize endpoint is asked for, so caches stay warm
var defaultCandidateWidths = []int{
	16, 32, 48, 64, 96, 128, 256, 384,
	640, 750, 828, 1080, 1200, 1920, 2048, 3840,
}

// DefaultRenderConfig matches the client gallery defaults
func DefaultRenderConfig() RenderConfig {
	widths := make([]int, len(defaultCandidateWidths))
	copy(widths, defaultCandidateWidths)
	return RenderConfig{
		Quality:         75,
		MinWidth:        256,
		CandidateWidths: widths,
	}
}

// requestWidth snaps w to the candidate list and applies the minimum
func (c RenderConfig) requestWidth(w int) int {
	widths := c.CandidateWidths
	if len(widths) == 0 {
		widths = defaultCandidateWidths
	}
	chosen := widths[len(widths)-1]
	for _, cw := range widths {
		if cw >= w {
			chosen = cw
			break
		}
	}
	if chosen < c.MinWidth {
		chosen = c.MinWidth
	}
	return chosen
}

// Descriptor is everything a grid needs to render one photo
type Descriptor struct {
	PhotoID     models.PhotoID `json:"photoId"`
	Index       int            `json:"index"`
	Filename    string         `json:"filename"`
	Height      int            `json:"height"`
	Width       int            `json:"width"`
	Src         string         `json:"src"`
	SrcSet      string         `json:"srcSet"`
	Placeholder string         `json:"placeholder"`
}

// Layout is a full grid render for one breakpoint
type Layout struct {
	Grid       string       `json:"grid"`
	Breakpoint Breakpoint   `json:"breakpoint"`
	Columns    int          `json:"columns"`
	Bounds     Bounds       `json:"bounds"`
	Quality    int          `json:"quality"`
	Items      []Descriptor `json:"items"`
}

// Renderer builds descriptors for one grid
type Renderer struct {
	planner *Planner
	cfg     RenderConfig
	urls    URLResolver
}

// NewRenderer creates a Renderer
func NewRenderer(planner *Planner, cfg RenderConfig, urls URLResolver) *Renderer {
	if cfg.MinWidth <= 0 {
		cfg.MinWidth = DefaultRenderConfig().MinWidth
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = DefaultRenderConfig().Quality
	}
	if len(cfg.CandidateWidths) > 0 {
		widths := make([]int, len(cfg.CandidateWidths))
		copy(widths, cfg.CandidateWidths)
		sort.Ints(widths)
		cfg.CandidateWidths = widths
	}
	return &Renderer{planner: planner, cfg: cfg, urls: urls}
}

// Describe renders a single photo at index in the current order
func (r *Renderer) Describe(photo *models.Photo, index int, bp Breakpoint) Descriptor {
	size := r.planner.SizeFor(photo, bp)

	placeholder := photo.BlurDataURL
	if placeholder == "" {
		placeholder = ShimmerDataURL(photo.Width, photo.Height)
	}

	return Descriptor{
		PhotoID:     photo.ID,
		Index:       index,
		Filename:    photo.DisplayName(),
		Height:      size.Height,
		Width:       size.Width,
		Src:         r.urls.ResolvePixelURL(photo.ID, models.WidthPx(r.cfg.requestWidth(size.Width)), r.cfg.Quality),
		SrcSet:      r.srcSet(photo.ID, size.Width),
		Placeholder: placeholder,
	}
}

// srcSet lists the 1x and 2x renditions, collapsing them when they coincide
func (r *Renderer) srcSet(id models.PhotoID, width int) string {
	var parts []string
	seen := make(map[int]bool, 2)
	for _, density := range []int{1, 2} {
		w := r.cfg.requestWidth(width * density)
		if seen[w] {
			continue
		}
		seen[w] = true
		parts = append(parts, fmt.Sprintf("%s %dx", r.urls.ResolvePixelURL(id, models.WidthPx(w), r.cfg.Quality), density))
	}
	return strings.Join(parts, ", ")
}

// Layout renders photos in the given order
func (r *Renderer) Layout(photos []models.Photo, bp Breakpoint) Layout {
	items := make([]Descriptor, len(photos))
	for i := range photos {
		items[i] = r.Describe(&photos[i], i, bp)
	}
	return Layout{
		Grid:       r.planner.Name(),
		Breakpoint: bp,
		Columns:    r.planner.ColumnsFor(bp),
		Bounds:     r.planner.MaxBoundsFor(bp),
		Quality:    r.cfg.Quality,
		Items:      items,
	}
}
