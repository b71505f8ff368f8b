package layout

import (
	"encoding/base64"
	"fmt"
)

// Shimmer returns an animated SVG used while the real image loads
func Shimmer(w, h int) string {
	return fmt.Sprintf(`
<svg width="%[1]d" height="%[2]d" version="1.1" xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink">
  <defs>
    <linearGradient id="g">
      <stop stop-color="#333" offset="20%%" />
      <stop stop-color="#222" offset="50%%" />
      <stop stop-color="#333" offset="70%%" />
    </linearGradient>
  </defs>
  <rect width="%[1]d" height="%[2]d" fill="#333" />
  <rect id="r" width="%[1]d" height="%[2]d" fill="url(#g)" />
  <animate xlink:href="#r" attributeName="x" from="-%[1]d" to="%[1]d" dur="1s" repeatCount="indefinite"  />
</svg>`, w, h)
}

// ShimmerDataURL is Shimmer encoded for use as an img placeholder
func ShimmerDataURL(w, h int) string {
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(Shimmer(w, h)))
}
