package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gshare/gallery-editor/internal/layout"
	"github.com/gshare/gallery-editor/internal/models"
)

type fakeURLs struct{}

func (fakeURLs) ResolvePixelURL(id models.PhotoID, width models.ImageWidth, quality int) string {
	return fmt.Sprintf("img/%d/%s/%d", id, width, quality)
}

type stubFiller struct{ calls int }

func (f *stubFiller) Fill(_ context.Context, photos []models.Photo) {
	f.calls++
	for i := range photos {
		if photos[i].BlurDataURL == "" {
			photos[i].BlurDataURL = "data:blur"
		}
	}
}

func newLayoutFixture(t *testing.T, ids ...models.PhotoID) (*LayoutService, *editorFixture, *stubFiller) {
	t.Helper()
	f := newEditorFixture(t, ids...)
	admin := layout.DefaultRenderConfig()
	admin.Quality = 40
	filler := &stubFiller{}
	svc := NewLayoutService(LayoutConfig{
		Grids:  layout.DefaultGrids(),
		Admin:  admin,
		Client: layout.DefaultRenderConfig(),
	}, fakeURLs{}, f.backend, f.svc, filler)
	return svc, f, filler
}

func TestLayoutService_ForSession(t *testing.T) {
	svc, f, _ := newLayoutFixture(t, 1, 2, 3)
	es, err := f.svc.Open(t.Context(), testGallery)
	require.NoError(t, err)
	_, err = f.svc.Move(t.Context(), es.ID, models.MoveRequest{FromID: 3, ToID: 1})
	require.NoError(t, err)

	out, err := svc.ForSession(t.Context(), es.ID, models.LayoutQuery{})
	require.NoError(t, err)
	assert.Equal(t, layout.GridSortable, out.Grid)
	assert.Equal(t, layout.LG, out.Breakpoint)
	assert.Equal(t, 4, out.Columns)
	assert.Equal(t, 40, out.Quality)
	require.Len(t, out.Items, 3)
	assert.Equal(t, models.PhotoID(3), out.Items[0].PhotoID)
	assert.Equal(t, 600, out.Items[0].Width)
	assert.Equal(t, 450, out.Items[0].Height)

	out, err = svc.ForSession(t.Context(), es.ID, models.LayoutQuery{Viewport: 500})
	require.NoError(t, err)
	assert.Equal(t, layout.XS, out.Breakpoint)
	assert.Equal(t, 2, out.Columns)

	_, err = svc.ForSession(t.Context(), "missing", models.LayoutQuery{})
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestLayoutService_ForGallery(t *testing.T) {
	svc, f, filler := newLayoutFixture(t, 1, 2)
	f.backend.photos[testGallery] = append(f.backend.photos[testGallery], models.Photo{ID: 9, Height: 0, Width: 100})

	out, err := svc.ForGallery(t.Context(), testGallery, models.LayoutQuery{Surface: models.SurfaceClient, Breakpoint: "md", Placeholders: true})
	require.NoError(t, err)
	assert.Equal(t, layout.GridMasonry, out.Grid)
	assert.Equal(t, 75, out.Quality)
	require.Len(t, out.Items, 2, "photo with invalid dimensions is skipped")
	assert.Equal(t, "data:blur", out.Items[0].Placeholder)
	assert.Equal(t, 1, filler.calls)

	out, err = svc.ForGallery(t.Context(), testGallery, models.LayoutQuery{})
	require.NoError(t, err)
	assert.Equal(t, layout.GridAdmin, out.Grid)
	assert.Contains(t, out.Items[0].Placeholder, "data:image/svg+xml;base64,")
	assert.Equal(t, 1, filler.calls)
}

func TestLayoutService_Errors(t *testing.T) {
	svc, _, _ := newLayoutFixture(t, 1)

	_, err := svc.ForGallery(t.Context(), testGallery, models.LayoutQuery{Grid: "carousel"})
	assert.ErrorIs(t, err, models.ErrUnknownGrid)

	_, err = svc.ForGallery(t.Context(), testGallery, models.LayoutQuery{Breakpoint: "huge"})
	assert.ErrorIs(t, err, models.ErrUnknownBreakpoint)

	_, err = svc.ForGallery(t.Context(), 404, models.LayoutQuery{})
	assert.ErrorIs(t, err, models.ErrGalleryNotFound)

	assert.Equal(t, []string{"admin", "masonry", "sortable"}, svc.Grids())
}

func TestResolveBreakpoint(t *testing.T) {
	bp, err := ResolveBreakpoint(models.LayoutQuery{Breakpoint: "sm", Viewport: 2000})
	require.NoError(t, err)
	assert.Equal(t, layout.SM, bp)

	bp, err = ResolveBreakpoint(models.LayoutQuery{Viewport: 1600})
	require.NoError(t, err)
	assert.Equal(t, layout.XL, bp)

	bp, err = ResolveBreakpoint(models.LayoutQuery{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBreakpoint, bp)
}
