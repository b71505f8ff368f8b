package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/jdeng/goheif"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/gshare/gallery-editor/internal/models"
	"github.com/gshare/gallery-editor/internal/observability"
)

// ImageFetcher downloads a sized rendition of a photo
type ImageFetcher interface {
	FetchImage(ctx context.Context, id models.PhotoID, width models.ImageWidth, quality int) ([]byte, string, error)
}

// PlaceholderConfig sets the rendition blur placeholders are built from
type PlaceholderConfig struct {
	// Width and Quality of the fetched source rendition
	Width   int
	Quality int
	// Size is the longest side of the encoded placeholder
	Size        int
	CacheSize   int
	Concurrency int
}

// DefaultPlaceholderConfig uses the backend's 64px / quality 30 preset
func DefaultPlaceholderConfig() PlaceholderConfig {
	return PlaceholderConfig{
		Width:       64,
		Quality:     30,
		Size:        16,
		CacheSize:   2048,
		Concurrency: 4,
	}
}

// PlaceholderService builds tiny blurred previews shown while photos load
type PlaceholderService struct {
	fetcher ImageFetcher
	cfg     PlaceholderConfig
	logger  *observability.Logger

	mu    sync.Mutex
	cache map[models.PhotoID]string
	// order is insertion order for eviction
	order []models.PhotoID
}

// NewPlaceholderService creates a new PlaceholderService
func NewPlaceholderService(fetcher ImageFetcher, cfg PlaceholderConfig) *PlaceholderService {
	def := DefaultPlaceholderConfig()
	if cfg.Width <= 0 {
		cfg.Width = def.Width
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = def.Quality
	}
	if cfg.Size <= 0 {
		cfg.Size = def.Size
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	return &PlaceholderService{
		fetcher: fetcher,
		cfg:     cfg,
		logger:  observability.GetLogger().WithField("component", "placeholders"),
		cache:   make(map[models.PhotoID]string),
	}
}

// Placeholder returns the blur data URL for a photo
func (s *PlaceholderService) Placeholder(ctx context.Context, id models.PhotoID) (string, error) {
	if url, ok := s.cached(id); ok {
		return url, nil
	}

	data, contentType, err := s.fetcher.FetchImage(ctx, id, models.WidthPx(s.cfg.Width), s.cfg.Quality)
	if err != nil {
		return "", fmt.Errorf("fetch placeholder source for photo %d: %w", id, err)
	}

	url, err := BlurDataURL(data, contentType, s.cfg.Size, s.cfg.Quality)
	if err != nil {
		return "", fmt.Errorf("photo %d: %w", id, err)
	}

	s.store(id, url)
	return url, nil
}

// Fill sets BlurDataURL on photos that lack one. Failures are logged and
// leave the field empty.
func (s *PlaceholderService) Fill(ctx context.Context, photos []models.Photo) {
	ctx, span := observability.StartServiceSpan(ctx, "placeholders", "Fill")
	defer span.End()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i := range photos {
		if photos[i].BlurDataURL != "" {
			continue
		}
		photo := &photos[i]
		g.Go(func() error {
			url, err := s.Placeholder(gctx, photo.ID)
			if err != nil {
				s.logger.WithContext(ctx).WithError(err).Debug("Placeholder unavailable")
				return nil
			}
			photo.BlurDataURL = url
			return nil
		})
	}
	_ = g.Wait()
}

func (s *PlaceholderService) cached(id models.PhotoID) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	url, ok := s.cache[id]
	return url, ok
}

func (s *PlaceholderService) store(id models.PhotoID, url string) {
	if s.cfg.CacheSize <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cache[id]; ok {
		return
	}
	if len(s.order) >= s.cfg.CacheSize {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.cache, oldest)
	}
	s.cache[id] = url
	s.order = append(s.order, id)
}

// BlurDataURL decodes an image, applies its EXIF orientation, shrinks it so
// the longest side is size pixels and returns it as a JPEG data URL.
func BlurDataURL(data []byte, contentType string, size, quality int) (string, error) {
	img, err := decodeImage(data, contentType)
	if err != nil {
		return "", err
	}
	img = applyOrientation(img, readOrientation(data))
	img = imaging.Fit(img, size, size, imaging.Box)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return "", fmt.Errorf("encode placeholder: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func decodeImage(data []byte, contentType string) (image.Image, error) {
	if isHEIC(contentType, data) {
		return decodeHEIC(data)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// isHEIC trusts the content type, then falls back to the ISO-BMFF ftyp box
// since backends do not always label HEIC correctly
func isHEIC(contentType string, data []byte) bool {
	ct := strings.ToLower(contentType)
	if strings.HasPrefix(ct, "image/heic") || strings.HasPrefix(ct, "image/heif") {
		return true
	}
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "hevc", "heim", "heis", "mif1", "msf1":
		return true
	}
	return false
}

// decodeHEIC decodes HEIC/HEIF image data
func decodeHEIC(data []byte) (image.Image, error) {
	img, err := goheif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode HEIC image: %w", err)
	}
	return img, nil
}

// readOrientation returns the EXIF orientation, or 1 when absent
func readOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	val, err := tag.Int(0)
	if err != nil || val < 1 || val > 8 {
		return 1
	}
	return val
}

// applyOrientation corrects image orientation based on EXIF data
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		// Flip horizontal
		return imaging.FlipH(img)
	case 3:
		// Rotate 180
		return imaging.Rotate180(img)
	case 4:
		// Flip vertical
		return imaging.FlipV(img)
	case 5:
		// Transpose (flip horizontal + rotate 270)
		return imaging.Rotate270(imaging.FlipH(img))
	case 6:
		// Rotate 90 CW
		return imaging.Rotate270(img)
	case 7:
		// Transverse (flip horizontal + rotate 90)
		return imaging.Rotate90(imaging.FlipH(img))
	case 8:
		// Rotate 90 CCW
		return imaging.Rotate90(img)
	default:
		return img
	}
}
