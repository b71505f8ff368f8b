// Package layout computes display geometry for gallery grids: scaled photo
// sizes, per-breakpoint column counts and the image sources to request.
package layout

import "math"

// Size is a rendered photo size in CSS pixels
type Size struct {
	Height int `json:"height"`
	Width  int `json:"width"`
}

// ResolveSize scales (height, width) to fit inside (maxHeight, maxWidth)
// preserving aspect ratio. The limiting dimension lands exactly on its bound,
// the other is floored. All inputs must be positive and finite; anything else
// is a caller error and the result is unspecified.
func ResolveSize(height, width, maxHeight, maxWidth float64) Size {
	heightRatio := height / maxHeight
	widthRatio := width / maxWidth

	limiting := heightRatio
	if widthRatio > heightRatio {
		limiting = widthRatio
	}

	return Size{
		Height: int(math.Floor(height / limiting)),
		Width:  int(math.Floor(width / limiting)),
	}
}

// HeaderSize sizes a hero image to span maxWidth
func HeaderSize(height, width, maxWidth float64) Size {
	ratio := width / maxWidth
	return Size{
		Height: int(math.Floor(height / ratio)),
		Width:  int(maxWidth),
	}
}

// LogoSize sizes a logo to the smaller of the viewport and maxWidth
func LogoSize(height, width, windowWidth, maxWidth float64) Size {
	target := maxWidth
	if windowWidth < maxWidth {
		target = windowWidth
	}
	ratio := width / target
	return Size{
		Height: int(math.Floor(height / ratio)),
		Width:  int(target),
	}
}
