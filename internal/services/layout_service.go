package services

import (
	"context"

	"github.com/gshare/gallery-editor/internal/layout"
	"github.com/gshare/gallery-editor/internal/models"
	"github.com/gshare/gallery-editor/internal/observability"
)

// DefaultBreakpoint is used when a request names neither breakpoint nor viewport
const DefaultBreakpoint = layout.LG

// PhotoSource loads a gallery's photos in stored order
type PhotoSource interface {
	FetchGalleryPhotos(ctx context.Context, galleryID int64) ([]models.Photo, error)
}

// PlaceholderFiller sets blur placeholders on photos that lack one
type PlaceholderFiller interface {
	Fill(ctx context.Context, photos []models.Photo)
}

// LayoutConfig holds the grids and per-surface render settings
type LayoutConfig struct {
	Grids  layout.Grids
	Admin  layout.RenderConfig
	Client layout.RenderConfig
}

// LayoutService renders grids for sessions and stored galleries
type LayoutService struct {
	cfg          LayoutConfig
	urls         layout.URLResolver
	photos       PhotoSource
	editor       *EditorService
	placeholders PlaceholderFiller
	logger       *observability.Logger
}

// NewLayoutService creates a new LayoutService. placeholders may be nil.
func NewLayoutService(
	cfg LayoutConfig,
	urls layout.URLResolver,
	photos PhotoSource,
	editor *EditorService,
	placeholders PlaceholderFiller,
) *LayoutService {
	if cfg.Grids == nil {
		cfg.Grids = layout.DefaultGrids()
	}
	return &LayoutService{
		cfg:          cfg,
		urls:         urls,
		photos:       photos,
		editor:       editor,
		placeholders: placeholders,
		logger:       observability.GetLogger().WithField("component", "layout_service"),
	}
}

// Grids lists the available grid names
func (s *LayoutService) Grids() []string {
	return s.cfg.Grids.Names()
}

// ForSession renders a session's current, possibly unsaved, order. The
// sortable grid is the default.
func (s *LayoutService) ForSession(ctx context.Context, sessionID string, q models.LayoutQuery) (*layout.Layout, error) {
	es, err := s.editor.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return s.Plan(ctx, es.Photos(), q, layout.GridSortable)
}

// ForGallery renders a gallery in its stored order. Client requests default
// to the masonry grid, admin requests to the admin grid.
func (s *LayoutService) ForGallery(ctx context.Context, galleryID int64, q models.LayoutQuery) (*layout.Layout, error) {
	ctx, span := observability.StartServiceSpan(ctx, "layout", "ForGallery")
	defer span.End()
	span.SetAttributes(observability.GalleryID(galleryID))

	photos, err := s.photos.FetchGalleryPhotos(ctx, galleryID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	defaultGrid := layout.GridAdmin
	if q.Surface == models.SurfaceClient {
		defaultGrid = layout.GridMasonry
	}
	return s.Plan(ctx, photos, q, defaultGrid)
}

// Plan renders photos in the given order
func (s *LayoutService) Plan(ctx context.Context, photos []models.Photo, q models.LayoutQuery, defaultGrid string) (*layout.Layout, error) {
	gridName := q.Grid
	if gridName == "" {
		gridName = defaultGrid
	}
	planner, err := s.cfg.Grids.Get(gridName)
	if err != nil {
		return nil, err
	}

	bp, err := ResolveBreakpoint(q)
	if err != nil {
		return nil, err
	}

	renderCfg := s.cfg.Admin
	if q.Surface == models.SurfaceClient {
		renderCfg = s.cfg.Client
	}

	valid := make([]models.Photo, 0, len(photos))
	for _, p := range photos {
		if err := p.Validate(); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithField("photo_id", int64(p.ID)).Warn("Skipping photo in layout")
			continue
		}
		valid = append(valid, p)
	}

	if q.Placeholders && s.placeholders != nil {
		s.placeholders.Fill(ctx, valid)
	}

	out := layout.NewRenderer(planner, renderCfg, s.urls).Layout(valid, bp)
	return &out, nil
}

// ResolveBreakpoint picks the breakpoint for a query: explicit name first,
// then the viewport width, then DefaultBreakpoint.
func ResolveBreakpoint(q models.LayoutQuery) (layout.Breakpoint, error) {
	if q.Breakpoint != "" {
		return layout.ParseBreakpoint(q.Breakpoint)
	}
	if q.Viewport > 0 {
		return layout.BreakpointForWidth(q.Viewport), nil
	}
	return DefaultBreakpoint, nil
}
