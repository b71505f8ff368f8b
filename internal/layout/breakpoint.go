package layout

import (
	"strings"

	"github.com/gshare/gallery-editor/internal/models"
)

// Breakpoint is a viewport width class
type Breakpoint int

const (
	XS Breakpoint = iota
	SM
	MD
	LG
	XL
)

// Lower bounds of each class in CSS pixels
const (
	smMin = 600
	mdMin = 900
	lgMin = 1200
	xlMin = 1536
)

var breakpointNames = map[Breakpoint]string{
	XS: "xs",
	SM: "sm",
	MD: "md",
	LG: "lg",
	XL: "xl",
}

func (b Breakpoint) String() string {
	if name, ok := breakpointNames[b]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the breakpoint by name
func (b Breakpoint) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText decodes a breakpoint name
func (b *Breakpoint) UnmarshalText(text []byte) error {
	parsed, err := ParseBreakpoint(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// ParseBreakpoint converts a name like "md" to a Breakpoint
func ParseBreakpoint(s string) (Breakpoint, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xs":
		return XS, nil
	case "sm":
		return SM, nil
	case "md":
		return MD, nil
	case "lg":
		return LG, nil
	case "xl", "xxl":
		return XL, nil
	}
	return XS, models.ErrUnknownBreakpoint
}

// BreakpointForWidth classifies a viewport width. Exactly one class matches
// any non-negative width.
func BreakpointForWidth(px int) Breakpoint {
	switch {
	case px >= xlMin:
		return XL
	case px >= lgMin:
		return LG
	case px >= mdMin:
		return MD
	case px >= smMin:
		return SM
	default:
		return XS
	}
}
