package layout

import (
	"fmt"
	"sort"

	"github.com/gshare/gallery-editor/internal/models"
)

// Unbounded height used by every masonry grid
const DefaultMaxHeight = 100000

// Bounds is the box a photo is scaled into
type Bounds struct {
	MaxHeight int `json:"maxHeight"`
	MaxWidth  int `json:"maxWidth"`
}

// Table is the serializable form of a planner, keyed by breakpoint name
type Table struct {
	Columns         map[string]int `json:"columns" yaml:"columns"`
	DefaultColumns  int            `json:"defaultColumns" yaml:"defaultColumns" validate:"omitempty,min=1"`
	MaxWidths       map[string]int `json:"maxWidths" yaml:"maxWidths"`
	WidthByColumns  map[int]int    `json:"widthByColumns" yaml:"widthByColumns"`
	DefaultMaxWidth int            `json:"defaultMaxWidth" yaml:"defaultMaxWidth" validate:"omitempty,min=1"`
	MaxHeight       int            `json:"maxHeight" yaml:"maxHeight" validate:"omitempty,min=1"`
}

// Planner maps breakpoints to column counts and scaling bounds for one grid
type Planner struct {
	name            string
	columns         map[Breakpoint]int
	defaultColumns  int
	maxWidths       map[Breakpoint]int
	widthByColumns  map[int]int
	defaultMaxWidth int
	maxHeight       int
}

// NewPlanner builds a planner from a table. Breakpoints absent from the
// table fall back to the defaults.
func NewPlanner(name string, t Table) (*Planner, error) {
	p := &Planner{
		name:            name,
		columns:         make(map[Breakpoint]int, len(t.Columns)),
		defaultColumns:  t.DefaultColumns,
		maxWidths:       make(map[Breakpoint]int, len(t.MaxWidths)),
		widthByColumns:  make(map[int]int, len(t.WidthByColumns)),
		defaultMaxWidth: t.DefaultMaxWidth,
		maxHeight:       t.MaxHeight,
	}
	if p.defaultColumns <= 0 {
		p.defaultColumns = 5
	}
	if p.defaultMaxWidth <= 0 {
		p.defaultMaxWidth = 900
	}
	if p.maxHeight <= 0 {
		p.maxHeight = DefaultMaxHeight
	}

	for key, cols := range t.Columns {
		bp, err := ParseBreakpoint(key)
		if err != nil {
			return nil, fmt.Errorf("grid %s columns: %w: %q", name, err, key)
		}
		if cols <= 0 {
			return nil, fmt.Errorf("grid %s: columns for %s must be positive", name, key)
		}
		p.columns[bp] = cols
	}
	for key, w := range t.MaxWidths {
		bp, err := ParseBreakpoint(key)
		if err != nil {
			return nil, fmt.Errorf("grid %s max widths: %w: %q", name, err, key)
		}
		if w <= 0 {
			return nil, fmt.Errorf("grid %s: max width for %s must be positive", name, key)
		}
		p.maxWidths[bp] = w
	}
	for cols, w := range t.WidthByColumns {
		if cols <= 0 || w <= 0 {
			return nil, fmt.Errorf("grid %s: invalid width-by-columns entry %d=%d", name, cols, w)
		}
		p.widthByColumns[cols] = w
	}
	return p, nil
}

// Name identifies the grid
func (p *Planner) Name() string {
	return p.name
}

// ColumnsFor returns the column count for a breakpoint
func (p *Planner) ColumnsFor(bp Breakpoint) int {
	if cols, ok := p.columns[bp]; ok {
		return cols
	}
	return p.defaultColumns
}

// MaxBoundsFor returns the scaling box for a breakpoint. Grids keyed by
// column count resolve the width through ColumnsFor first.
func (p *Planner) MaxBoundsFor(bp Breakpoint) Bounds {
	width := p.defaultMaxWidth
	if len(p.widthByColumns) > 0 {
		if w, ok := p.widthByColumns[p.ColumnsFor(bp)]; ok {
			width = w
		}
	} else if w, ok := p.maxWidths[bp]; ok {
		width = w
	}
	return Bounds{MaxHeight: p.maxHeight, MaxWidth: width}
}

// SizeFor scales a photo for this grid at bp
func (p *Planner) SizeFor(photo *models.Photo, bp Breakpoint) Size {
	b := p.MaxBoundsFor(bp)
	return ResolveSize(float64(photo.Height), float64(photo.Width), float64(b.MaxHeight), float64(b.MaxWidth))
}

// MasonryTable is used by the client gallery and the admin image grid
func MasonryTable() Table {
	return Table{
		Columns:         map[string]int{"xs": 2, "sm": 3, "md": 4, "lg": 4},
		DefaultColumns:  5,
		MaxWidths:       map[string]int{"xs": 300, "sm": 450, "md": 600},
		DefaultMaxWidth: 900,
		MaxHeight:       DefaultMaxHeight,
	}
}

// SortableTable is used by the drag-and-drop grid, which sizes items by column count
func SortableTable() Table {
	return Table{
		Columns:         map[string]int{"xs": 2, "sm": 3, "md": 4, "lg": 4},
		DefaultColumns:  5,
		WidthByColumns:  map[int]int{2: 300, 3: 450, 4: 600},
		DefaultMaxWidth: 900,
		MaxHeight:       DefaultMaxHeight,
	}
}

// Grid names
const (
	GridMasonry  = "masonry"
	GridAdmin    = "admin"
	GridSortable = "sortable"
)

// Grids is a registry of planners by name
type Grids map[string]*Planner

// DefaultGrids returns the built-in grids
func DefaultGrids() Grids {
	masonry, _ := NewPlanner(GridMasonry, MasonryTable())
	admin, _ := NewPlanner(GridAdmin, MasonryTable())
	sortable, _ := NewPlanner(GridSortable, SortableTable())
	return Grids{
		GridMasonry:  masonry,
		GridAdmin:    admin,
		GridSortable: sortable,
	}
}

// WithOverrides returns a copy of g with the given tables replacing or adding grids
func (g Grids) WithOverrides(tables map[string]Table) (Grids, error) {
	out := make(Grids, len(g)+len(tables))
	for name, p := range g {
		out[name] = p
	}
	for name, t := range tables {
		p, err := NewPlanner(name, t)
		if err != nil {
			return nil, err
		}
		out[name] = p
	}
	return out, nil
}

// Get looks up a grid by name
func (g Grids) Get(name string) (*Planner, error) {
	if p, ok := g[name]; ok {
		return p, nil
	}
	return nil, models.ErrUnknownGrid
}

// Names lists the registered grids in sorted order
func (g Grids) Names() []string {
	names := make([]string, 0, len(g))
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
