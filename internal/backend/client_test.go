package backend

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gshare/gallery-editor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const galleryJSON = `{
  "status": "success",
  "data": {
    "ID": 12,
    "title": "Wedding",
    "path": "wedding",
    "images": [
      {"ID": 30, "gallery_id": 12, "height": 3000, "width": 2000, "position": 2, "filename": "c.jpg"},
      {"ID": 10, "gallery_id": 12, "height": 1000, "width": 1500, "position": 0, "filename": "a.jpg"},
      {"ID": 20, "gallery_id": 12, "height": 800, "width": 800, "position": 1, "filename": "b.jpg", "blurDataURL": "data:image/jpeg;base64,AA=="}
    ]
  }
}`

func setupMockServer(t *testing.T) (*httptest.Server, *[]models.PhotoID) {
	t.Helper()

	var persisted []models.PhotoID
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/galleries/id/12", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(galleryJSON))
	})

	mux.HandleFunc("GET /api/v1/galleries/id/404", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":"error","message":"not found"}`, http.StatusNotFound)
	})

	mux.HandleFunc("PUT /api/v1/galleries/id/12/images", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			http.Error(w, "bad content type", http.StatusBadRequest)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&persisted); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","data":null}`))
	})

	mux.HandleFunc("PUT /api/v1/galleries/id/13/images", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database is locked", http.StatusInternalServerError)
	})

	mux.HandleFunc("GET /api/v1/images/10/64/30", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte{0xFF, 0xD8, 0xFF, 0xD9})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &persisted
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: url, PublicURL: "https://cdn.example.com/", Token: "secret"})
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)

	_, err = NewClient(Config{BaseURL: "not a url"})
	assert.Error(t, err)

	_, err = NewClient(Config{BaseURL: "http://backend:8080", PublicURL: "://bad"})
	assert.Error(t, err)
}

func TestFetchGalleryPhotos(t *testing.T) {
	server, _ := setupMockServer(t)
	c := newTestClient(t, server.URL)

	t.Run("sorts by stored position", func(t *testing.T) {
		photos, err := c.FetchGalleryPhotos(t.Context(), 12)
		require.NoError(t, err)

		assert.Equal(t, []models.PhotoID{10, 20, 30}, models.PhotoIDs(photos))
		assert.Equal(t, "data:image/jpeg;base64,AA==", photos[1].BlurDataURL)
		assert.Equal(t, int64(12), photos[0].GalleryID)
	})

	t.Run("maps 404 to gallery not found", func(t *testing.T) {
		_, err := c.FetchGalleryPhotos(t.Context(), 404)
		assert.ErrorIs(t, err, models.ErrGalleryNotFound)
	})

	t.Run("missing token is rejected", func(t *testing.T) {
		anon, err := NewClient(Config{BaseURL: server.URL})
		require.NoError(t, err)

		_, err = anon.FetchGallery(t.Context(), 12)
		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	})
}

func TestPersistOrder(t *testing.T) {
	server, persisted := setupMockServer(t)
	c := newTestClient(t, server.URL)

	t.Run("sends the ids as a JSON array", func(t *testing.T) {
		err := c.PersistOrder(t.Context(), 12, []models.PhotoID{30, 10, 20})
		require.NoError(t, err)
		assert.Equal(t, []models.PhotoID{30, 10, 20}, *persisted)
	})

	t.Run("surfaces server errors", func(t *testing.T) {
		err := c.PersistOrder(t.Context(), 13, []models.PhotoID{1})

		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
		assert.Equal(t, "database is locked", se.Body)
		assert.False(t, IsNotFound(err))
	})
}

func TestResolvePixelURL(t *testing.T) {
	c := newTestClient(t, "http://backend:8080")

	assert.Equal(t, "https://cdn.example.com/api/v1/images/7/640/75", c.ResolvePixelURL(7, models.WidthPx(640), 75))
	assert.Equal(t, "https://cdn.example.com/api/v1/images/7/original/100", c.ResolvePixelURL(7, models.WidthOriginal, 250))
	assert.Equal(t, "https://cdn.example.com/api/v1/images/7/web/1", c.ResolvePixelURL(7, models.WidthWeb, 0))

	plain, err := NewClient(Config{BaseURL: "http://backend:8080/"})
	require.NoError(t, err)
	assert.Equal(t, "http://backend:8080/api/v1/images/3/256/40", plain.ResolvePixelURL(3, models.WidthPx(256), 40))
}

func TestFetchImage(t *testing.T) {
	server, _ := setupMockServer(t)
	c := newTestClient(t, server.URL)

	data, contentType, err := c.FetchImage(t.Context(), 10, models.WidthPx(64), 30)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", contentType)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF, 0xD9}, data)

	_, _, err = c.FetchImage(t.Context(), 11, models.WidthPx(64), 30)
	assert.True(t, IsNotFound(err))
}
