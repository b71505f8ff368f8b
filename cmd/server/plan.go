package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gshare/gallery-editor/internal/config"
	"github.com/gshare/gallery-editor/internal/layout"
	"github.com/gshare/gallery-editor/internal/models"
	"github.com/gshare/gallery-editor/internal/services"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the display size of a photo in a grid",
	Long: `Resolve the display size of a single photo for a grid and breakpoint,
using the grids from the active configuration. Useful for checking grid
table overrides without starting the server.`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().Int("height", 0, "Photo height in pixels")
	planCmd.Flags().Int("width", 0, "Photo width in pixels")
	planCmd.Flags().String("grid", layout.GridMasonry, "Grid name")
	planCmd.Flags().String("breakpoint", "", "Breakpoint name (xs, sm, md, lg, xl)")
	planCmd.Flags().Int("viewport", 0, "Viewport width in CSS pixels, used when no breakpoint is given")
	planCmd.Flags().String("kind", "grid", "What to size: grid, header or logo")
	planCmd.Flags().Int("max-width", 1500, "Maximum width for header and logo sizing")
	_ = planCmd.MarkFlagRequired("height")
	_ = planCmd.MarkFlagRequired("width")
}

type planOutput struct {
	Grid       string            `json:"grid"`
	Breakpoint layout.Breakpoint `json:"breakpoint"`
	Columns    int               `json:"columns"`
	Bounds     layout.Bounds     `json:"bounds"`
	Size       layout.Size       `json:"size"`
}

func runPlan(cmd *cobra.Command, args []string) error {
	height, _ := cmd.Flags().GetInt("height")
	width, _ := cmd.Flags().GetInt("width")
	gridName, _ := cmd.Flags().GetString("grid")
	bpName, _ := cmd.Flags().GetString("breakpoint")
	viewport, _ := cmd.Flags().GetInt("viewport")
	kind, _ := cmd.Flags().GetString("kind")
	maxWidth, _ := cmd.Flags().GetInt("max-width")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	grids, err := cfg.BuildGrids()
	if err != nil {
		return err
	}
	planner, err := grids.Get(gridName)
	if err != nil {
		return fmt.Errorf("%w: %s (available: %v)", err, gridName, grids.Names())
	}

	bp, err := services.ResolveBreakpoint(models.LayoutQuery{Breakpoint: bpName, Viewport: viewport})
	if err != nil {
		return err
	}

	photo := models.Photo{ID: 1, Height: height, Width: width}
	if err := photo.Validate(); err != nil {
		return err
	}

	out := planOutput{
		Grid:       planner.Name(),
		Breakpoint: bp,
		Columns:    planner.ColumnsFor(bp),
		Bounds:     planner.MaxBoundsFor(bp),
		Size:       planner.SizeFor(&photo, bp),
	}

	switch kind {
	case "grid":
	case "header":
		out.Size = layout.HeaderSize(float64(height), float64(width), float64(maxWidth))
	case "logo":
		if viewport <= 0 {
			return fmt.Errorf("--viewport is required for logo sizing")
		}
		out.Size = layout.LogoSize(float64(height), float64(width), float64(viewport), float64(maxWidth))
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
