package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gshare/gallery-editor/internal/models"
	"github.com/gshare/gallery-editor/internal/observability"
)

// maxImageBytes caps downloads used for placeholder generation
const maxImageBytes = 32 << 20

// FetchImage downloads a sized rendition and returns its bytes and content type
func (c *Client) FetchImage(ctx context.Context, id models.PhotoID, width models.ImageWidth, quality int) ([]byte, string, error) {
	ctx, span := observability.StartServiceSpan(ctx, "backend", "FetchImage")
	defer span.End()
	span.SetAttributes(observability.PhotoID(int64(id)))

	resp, err := c.do(ctx, http.MethodGet, nil, []int{http.StatusOK},
		"images", strconv.FormatInt(int64(id), 10), string(width), strconv.Itoa(clampQuality(quality)))
	if err != nil {
		observability.RecordError(span, err)
		return nil, "", fmt.Errorf("fetch image %d: %w", id, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		observability.RecordError(span, err)
		return nil, "", fmt.Errorf("read image %d: %w", id, err)
	}
	if len(data) > maxImageBytes {
		err := fmt.Errorf("image %d exceeds %d bytes", id, maxImageBytes)
		observability.RecordError(span, err)
		return nil, "", err
	}

	observability.SetSuccess(span)
	return data, resp.Header.Get("Content-Type"), nil
}
