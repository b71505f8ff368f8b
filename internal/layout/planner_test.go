package layout

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gshare/gallery-editor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakpointForWidth(t *testing.T) {
	cases := []struct {
		width int
		want  Breakpoint
	}{
		{0, XS},
		{599, XS},
		{600, SM},
		{899, SM},
		{900, MD},
		{1199, MD},
		{1200, LG},
		{1535, LG},
		{1536, XL},
		{3840, XL},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, BreakpointForWidth(tc.width), "width %d", tc.width)
	}
}

func TestParseBreakpoint(t *testing.T) {
	bp, err := ParseBreakpoint(" MD ")
	require.NoError(t, err)
	assert.Equal(t, MD, bp)

	_, err = ParseBreakpoint("huge")
	assert.ErrorIs(t, err, models.ErrUnknownBreakpoint)

	var decoded Breakpoint
	require.NoError(t, decoded.UnmarshalText([]byte("lg")))
	assert.Equal(t, LG, decoded)

	text, err := SM.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "sm", string(text))
}

func TestMasonryPlanner(t *testing.T) {
	p, err := NewPlanner(GridMasonry, MasonryTable())
	require.NoError(t, err)

	assert.Equal(t, 2, p.ColumnsFor(XS))
	assert.Equal(t, 3, p.ColumnsFor(SM))
	assert.Equal(t, 4, p.ColumnsFor(MD))
	assert.Equal(t, 4, p.ColumnsFor(LG))
	assert.Equal(t, 5, p.ColumnsFor(XL))

	assert.Equal(t, Bounds{MaxHeight: 100000, MaxWidth: 300}, p.MaxBoundsFor(XS))
	assert.Equal(t, Bounds{MaxHeight: 100000, MaxWidth: 450}, p.MaxBoundsFor(SM))
	assert.Equal(t, Bounds{MaxHeight: 100000, MaxWidth: 600}, p.MaxBoundsFor(MD))
	assert.Equal(t, Bounds{MaxHeight: 100000, MaxWidth: 900}, p.MaxBoundsFor(LG))
	assert.Equal(t, Bounds{MaxHeight: 100000, MaxWidth: 900}, p.MaxBoundsFor(XL))
}

func TestSortablePlanner_BoundsFollowColumns(t *testing.T) {
	p, err := NewPlanner(GridSortable, SortableTable())
	require.NoError(t, err)

	assert.Equal(t, 300, p.MaxBoundsFor(XS).MaxWidth)
	assert.Equal(t, 450, p.MaxBoundsFor(SM).MaxWidth)
	// lg has four columns, so it is sized like md
	assert.Equal(t, 600, p.MaxBoundsFor(LG).MaxWidth)
	assert.Equal(t, 900, p.MaxBoundsFor(XL).MaxWidth)

	photo := &models.Photo{ID: 1, Height: 3000, Width: 2000}
	assert.Equal(t, Size{Height: 1350, Width: 900}, p.SizeFor(photo, XL))
}

func TestNewPlanner_Validation(t *testing.T) {
	_, err := NewPlanner("bad", Table{Columns: map[string]int{"giant": 3}})
	assert.ErrorIs(t, err, models.ErrUnknownBreakpoint)

	_, err = NewPlanner("bad", Table{Columns: map[string]int{"xs": 0}})
	assert.Error(t, err)

	_, err = NewPlanner("bad", Table{WidthByColumns: map[int]int{2: -1}})
	assert.Error(t, err)

	p, err := NewPlanner("empty", Table{})
	require.NoError(t, err)
	assert.Equal(t, 5, p.ColumnsFor(XS))
	assert.Equal(t, Bounds{MaxHeight: DefaultMaxHeight, MaxWidth: 900}, p.MaxBoundsFor(XS))
}

func TestGrids(t *testing.T) {
	grids := DefaultGrids()
	assert.Equal(t, []string{GridAdmin, GridMasonry, GridSortable}, grids.Names())

	_, err := grids.Get("carousel")
	assert.ErrorIs(t, err, models.ErrUnknownGrid)

	custom, err := grids.WithOverrides(map[string]Table{
		"rows": {Columns: map[string]int{"xs": 1}, DefaultColumns: 3},
	})
	require.NoError(t, err)

	rows, err := custom.Get("rows")
	require.NoError(t, err)
	assert.Equal(t, 1, rows.ColumnsFor(XS))
	assert.Equal(t, 3, rows.ColumnsFor(MD))

	// the original registry is untouched
	_, err = grids.Get("rows")
	assert.Error(t, err)
}

type fakeResolver struct{}

func (fakeResolver) ResolvePixelURL(id models.PhotoID, width models.ImageWidth, quality int) string {
	return fmt.Sprintf("https://img.test/%d/%s/%d", id, width, quality)
}

func TestRenderer_Layout(t *testing.T) {
	planner, err := NewPlanner(GridMasonry, MasonryTable())
	require.NoError(t, err)

	r := NewRenderer(planner, DefaultRenderConfig(), fakeResolver{})

	photos := []models.Photo{
		{ID: 4, Height: 3000, Width: 2000, Filename: "four.jpg", BlurDataURL: "data:image/jpeg;base64,AAAA"},
		{ID: 1, Height: 1000, Width: 1000, Filename: "one.jpg"},
	}

	layout := r.Layout(photos, XS)

	assert.Equal(t, GridMasonry, layout.Grid)
	assert.Equal(t, XS, layout.Breakpoint)
	assert.Equal(t, 2, layout.Columns)
	assert.Equal(t, 75, layout.Quality)
	require.Len(t, layout.Items, 2)

	first := layout.Items[0]
	assert.Equal(t, models.PhotoID(4), first.PhotoID)
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, 450, first.Height)
	assert.Equal(t, 300, first.Width)
	assert.Equal(t, "https://img.test/4/384/75", first.Src)
	assert.Equal(t, "https://img.test/4/384/75 1x, https://img.test/4/640/75 2x", first.SrcSet)
	assert.Equal(t, "data:image/jpeg;base64,AAAA", first.Placeholder)

	second := layout.Items[1]
	assert.Equal(t, 1, second.Index)
	assert.True(t, strings.HasPrefix(second.Placeholder, "data:image/svg+xml;base64,"))
}

func TestRenderer_MinWidthAndQuality(t *testing.T) {
	planner, err := NewPlanner("tiny", Table{DefaultMaxWidth: 40})
	require.NoError(t, err)

	r := NewRenderer(planner, RenderConfig{Quality: 40, MinWidth: 256, CandidateWidths: []int{64, 32, 128}}, fakeResolver{})

	d := r.Describe(&models.Photo{ID: 9, Height: 10, Width: 10}, 3, MD)

	assert.Equal(t, 40, d.Width)
	// below the minimum width the loader always asks for MinWidth, so 1x and 2x collapse
	assert.Equal(t, "https://img.test/9/256/40", d.Src)
	assert.Equal(t, "https://img.test/9/256/40 1x", d.SrcSet)
}

func TestShimmerDataURL(t *testing.T) {
	url := ShimmerDataURL(20, 10)
	assert.True(t, strings.HasPrefix(url, "data:image/svg+xml;base64,"))
	assert.Contains(t, Shimmer(20, 10), `width="20" height="10"`)
	assert.Contains(t, Shimmer(20, 10), `offset="50%"`)
}
