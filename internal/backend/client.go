// Package backend is the REST bridge to the gallery API that owns galleries,
// photos and their stored positions.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/gshare/gallery-editor/internal/models"
)

const defaultTimeout = 30 * time.Second

// Config holds connection settings for the gallery API
type Config struct {
	// BaseURL is where admin API calls go
	BaseURL string
	// PublicURL prefixes image URLs handed to browsers. Defaults to BaseURL.
	PublicURL string
	Token     string
	Timeout   time.Duration
}

// Client talks to the gallery API
type Client struct {
	apiURL    *url.URL
	publicURL *url.URL
	http      *http.Client
}

// StatusError is returned when the API answers with an unexpected status
type StatusError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s failed with status %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// NewClient creates a Client. A non-empty token is sent as a bearer token.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme and host required", cfg.BaseURL)
	}

	public := base
	if cfg.PublicURL != "" {
		public, err = url.Parse(cfg.PublicURL)
		if err != nil {
			return nil, fmt.Errorf("invalid public URL: %w", err)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := &http.Client{Timeout: timeout}
	if cfg.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}))
		httpClient.Timeout = timeout
	}

	return &Client{
		apiURL:    base.JoinPath("api", "v1"),
		publicURL: public.JoinPath("api", "v1"),
		http:      httpClient,
	}, nil
}

func (c *Client) resolveURL(segments ...string) string {
	return c.apiURL.JoinPath(segments...).String()
}

// ResolvePixelURL returns the browser-facing URL of a sized rendition.
// Quality is clamped to 1..100.
func (c *Client) ResolvePixelURL(id models.PhotoID, width models.ImageWidth, quality int) string {
	return c.publicURL.JoinPath(
		"images",
		strconv.FormatInt(int64(id), 10),
		string(width),
		strconv.Itoa(clampQuality(quality)),
	).String()
}

func clampQuality(q int) int {
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}
