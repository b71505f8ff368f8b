package backend

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"github.com/gshare/gallery-editor/internal/models"
	"github.com/gshare/gallery-editor/internal/observability"
)

// FetchGallery loads a gallery with its images sorted by stored position
func (c *Client) FetchGallery(ctx context.Context, galleryID int64) (*models.Gallery, error) {
	ctx, span := observability.StartServiceSpan(ctx, "backend", "FetchGallery")
	defer span.End()
	span.SetAttributes(observability.GalleryID(galleryID))

	resp, err := doJSON[models.APIResponse[models.Gallery]](ctx, c, http.MethodGet, nil,
		[]int{http.StatusOK}, "galleries", "id", strconv.FormatInt(galleryID, 10))
	if err != nil {
		observability.RecordError(span, err)
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %d", models.ErrGalleryNotFound, galleryID)
		}
		return nil, fmt.Errorf("fetch gallery %d: %w", galleryID, err)
	}

	gallery := resp.Data
	models.SortByPosition(gallery.Images)

	span.SetAttributes(attribute.Int("gallery.images", len(gallery.Images)))
	observability.SetSuccess(span)
	return &gallery, nil
}

// FetchGalleryPhotos returns a gallery's photos in stored order
func (c *Client) FetchGalleryPhotos(ctx context.Context, galleryID int64) ([]models.Photo, error) {
	gallery, err := c.FetchGallery(ctx, galleryID)
	if err != nil {
		return nil, err
	}
	return gallery.Images, nil
}

// PersistOrder stores ids as the gallery's new order. The API assigns
// position = index, so repeating a call is harmless.
func (c *Client) PersistOrder(ctx context.Context, galleryID int64, ids []models.PhotoID) error {
	ctx, span := observability.StartServiceSpan(ctx, "backend", "PersistOrder")
	defer span.End()
	span.SetAttributes(
		observability.GalleryID(galleryID),
		attribute.Int("gallery.images", len(ids)),
	)

	if ids == nil {
		ids = []models.PhotoID{}
	}

	err := doRaw(ctx, c, http.MethodPut, ids,
		[]int{http.StatusOK, http.StatusNoContent}, "galleries", "id", strconv.FormatInt(galleryID, 10), "images")
	if err != nil {
		observability.RecordError(span, err)
		return fmt.Errorf("persist order for gallery %d: %w", galleryID, err)
	}

	observability.SetSuccess(span)
	return nil
}
