package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gshare/gallery-editor/internal/backend"
	"github.com/gshare/gallery-editor/internal/layout"
	"github.com/gshare/gallery-editor/internal/models"
	"github.com/gshare/gallery-editor/internal/reorder"
	"github.com/gshare/gallery-editor/internal/repository"
	"github.com/gshare/gallery-editor/internal/services"
)

const testGallery int64 = 7

type stubBackend struct {
	mu        sync.Mutex
	photos    []models.Photo
	persisted []models.PhotoID
	failWith  error
}

func (b *stubBackend) FetchGalleryPhotos(_ context.Context, galleryID int64) ([]models.Photo, error) {
	if galleryID != testGallery {
		return nil, models.ErrGalleryNotFound
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Photo(nil), b.photos...), nil
}

func (b *stubBackend) PersistOrder(_ context.Context, _ int64, ids []models.PhotoID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failWith != nil {
		return b.failWith
	}
	b.persisted = append([]models.PhotoID(nil), ids...)
	return nil
}

type stubURLs struct{}

func (stubURLs) ResolvePixelURL(id models.PhotoID, width models.ImageWidth, quality int) string {
	return fmt.Sprintf("/img/%d/%s/%d", id, width, quality)
}

type testServer struct {
	router  http.Handler
	editor  *services.EditorService
	backend *stubBackend
	hub     *services.WebSocketHub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := repository.NewSQLiteDB(filepath.Join(t.TempDir(), "drafts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	b := &stubBackend{}
	for i := 1; i <= 3; i++ {
		b.photos = append(b.photos, models.Photo{
			ID: models.PhotoID(i), GalleryID: testGallery, Height: 600, Width: 800, Position: i - 1, Filename: "p.jpg",
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	hub := services.NewWebSocketHub()
	go hub.Run(ctx)

	editor := services.NewEditorService(b, repository.NewDraftRepository(db), hub, nil, services.EditorConfig{CommitTimeout: time.Second})
	t.Cleanup(func() {
		editor.CloseAll(context.Background())
		cancel()
	})

	layouts := services.NewLayoutService(services.LayoutConfig{
		Grids:  layout.DefaultGrids(),
		Admin:  layout.DefaultRenderConfig(),
		Client: layout.DefaultRenderConfig(),
	}, stubURLs{}, b, editor, nil)

	eh := NewEditorHandler(editor)
	lh := NewLayoutHandler(layouts)
	wh := NewWebSocketHandler(hub, editor, []string{"*"})
	hh := NewHealthHandler(editor, services.NewMaintenanceService(editor, services.MaintenanceConfig{}))

	r := chi.NewRouter()
	r.Get("/health", hh.HealthCheck)
	r.Route("/api", func(r chi.Router) {
		r.Get("/maintenance", hh.MaintenanceStatus)
		r.Get("/grids", lh.ListGrids)
		r.Post("/galleries/{galleryID}/sessions", eh.OpenSession)
		r.Get("/galleries/{galleryID}/layout", lh.GalleryLayout)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", eh.GetSession)
			r.Delete("/", eh.CloseSession)
			r.Post("/drag", eh.Drag)
			r.Post("/pointer", eh.Pointer)
			r.Post("/keys", eh.Key)
			r.Post("/moves", eh.Move)
			r.Post("/commit", eh.Commit)
			r.Post("/refresh", eh.Refresh)
			r.Get("/layout", lh.SessionLayout)
			r.Get("/ws", wh.HandleSessionConnection)
		})
	})

	return &testServer{router: r, editor: editor, backend: b, hub: hub}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) open(t *testing.T) models.SessionResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, fmt.Sprintf("/api/galleries/%d/sessions", testGallery), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var snap models.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "/api/sessions/"+snap.ID, rec.Header().Get("Location"))
	return snap
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	s.open(t)

	rec := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[models.HealthResponse](t, rec)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 1, resp.Sessions)

	rec = s.do(t, http.MethodGet, "/api/maintenance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[services.MaintenanceStatus](t, rec).Running)

	rec = httptest.NewRecorder()
	NewHealthHandler(nil, nil).MaintenanceStatus(rec, httptest.NewRequest(http.MethodGet, "/api/maintenance", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOpenSession(t *testing.T) {
	s := newTestServer(t)

	snap := s.open(t)
	assert.Equal(t, testGallery, snap.GalleryID)
	assert.Equal(t, []models.PhotoID{1, 2, 3}, snap.Sequence)

	rec := s.do(t, http.MethodPost, "/api/galleries/999/sessions", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/galleries/abc/sessions", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/sessions/nope/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDragFlow(t *testing.T) {
	s := newTestServer(t)
	snap := s.open(t)
	base := "/api/sessions/" + snap.ID

	rec := s.do(t, http.MethodPost, base+"/drag", models.DragEventRequest{Type: models.DragEventStart, ItemID: 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	over := models.PhotoID(3)
	rec = s.do(t, http.MethodPost, base+"/drag", models.DragEventRequest{Type: models.DragEventEnd, OverID: &over})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[models.MoveResponse](t, rec)
	assert.True(t, resp.Moved)
	assert.Equal(t, []models.PhotoID{2, 3, 1}, resp.Session.Sequence)
	assert.True(t, resp.Session.Dirty)

	t.Run("hover while idle conflicts", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, base+"/drag", models.DragEventRequest{Type: models.DragEventHover, ItemID: 2})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("validation errors name the field", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, base+"/drag", models.DragEventRequest{Type: "fling"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decode[models.ErrorResponse](t, rec)
		assert.Equal(t, "Validation failed", resp.Error)
		assert.Contains(t, resp.Fields, "type")
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, base+"/drag", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestKeyAndMove(t *testing.T) {
	s := newTestServer(t)
	snap := s.open(t)
	base := "/api/sessions/" + snap.ID

	rec := s.do(t, http.MethodPost, base+"/moves", models.MoveRequest{FromID: 3, ToID: 1})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []models.PhotoID{3, 1, 2}, decode[models.MoveResponse](t, rec).Session.Sequence)

	rec = s.do(t, http.MethodPost, base+"/moves", models.MoveRequest{FromID: 3, ToID: 42})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/keys", models.KeyPressRequest{Key: "Tab"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/keys", models.KeyPressRequest{Key: reorder.KeySpace, ItemID: 1})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dragging", decode[models.MoveResponse](t, rec).Session.Drag.Phase)
}

func TestPointerValidation(t *testing.T) {
	s := newTestServer(t)
	snap := s.open(t)

	rec := s.do(t, http.MethodPost, "/api/sessions/"+snap.ID+"/pointer", models.PointerEventRequest{Phase: models.PointerDown})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[models.ErrorResponse](t, rec).Fields, "itemId")

	rec = s.do(t, http.MethodPost, "/api/sessions/"+snap.ID+"/pointer", models.PointerEventRequest{
		Phase: models.PointerDown, PointerType: models.PointerMouse, ItemID: 2,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCommit(t *testing.T) {
	s := newTestServer(t)
	snap := s.open(t)
	base := "/api/sessions/" + snap.ID

	s.do(t, http.MethodPost, base+"/moves", models.MoveRequest{FromID: 2, ToID: 1})

	rec := s.do(t, http.MethodPost, base+"/commit", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decode[models.SessionResponse](t, rec).Dirty)
	assert.Equal(t, []models.PhotoID{2, 1, 3}, s.backend.persisted)

	s.backend.mu.Lock()
	s.backend.failWith = &backend.StatusError{StatusCode: http.StatusServiceUnavailable}
	s.backend.mu.Unlock()

	s.do(t, http.MethodPost, base+"/moves", models.MoveRequest{FromID: 3, ToID: 2})
	rec = s.do(t, http.MethodPost, base+"/commit", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRefreshAndClose(t *testing.T) {
	s := newTestServer(t)
	snap := s.open(t)
	base := "/api/sessions/" + snap.ID

	s.do(t, http.MethodPost, base+"/moves", models.MoveRequest{FromID: 2, ToID: 1})

	rec := s.do(t, http.MethodPost, base+"/refresh", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/refresh?force=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[models.RefreshResponse](t, rec)
	assert.True(t, resp.Discarded)
	assert.Equal(t, []models.PhotoID{1, 2, 3}, resp.Session.Sequence)

	rec = s.do(t, http.MethodDelete, base+"/", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, base+"/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLayouts(t *testing.T) {
	s := newTestServer(t)
	snap := s.open(t)

	rec := s.do(t, http.MethodGet, "/api/grids", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode[map[string][]string](t, rec)["grids"], layout.GridSortable)

	rec = s.do(t, http.MethodGet, "/api/sessions/"+snap.ID+"/layout?breakpoint=xs", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[layout.Layout](t, rec)
	assert.Equal(t, layout.XS, out.Breakpoint)
	assert.Len(t, out.Items, 3)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/galleries/%d/layout?surface=client", testGallery), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/sessions/"+snap.ID+"/layout?viewport=wide", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[models.ErrorResponse](t, rec).Fields, "viewport")

	rec = s.do(t, http.MethodGet, "/api/sessions/"+snap.ID+"/layout?grid=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/sessions/"+snap.ID+"/layout?breakpoint=huge", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("wrap: %w", models.ErrUnsavedChanges), http.StatusConflict},
		{models.ErrUnknownGrid, http.StatusBadRequest},
		{&reorder.CommitError{GalleryID: 1, Err: errors.New("x")}, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{&reorder.CommitError{GalleryID: 1, Err: fmt.Errorf("persist order: %w", context.DeadlineExceeded)}, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestSessionWebSocket(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	t.Cleanup(srv.Close)

	snap := s.open(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + snap.ID + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg struct {
		Type    string                 `json:"type"`
		Topic   string                 `json:"topic"`
		Payload models.SessionResponse `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, services.WSTypeSessionState, msg.Type)
	assert.Equal(t, services.SessionTopic(snap.ID), msg.Topic)
	assert.Equal(t, []models.PhotoID{1, 2, 3}, msg.Payload.Sequence)

	require.NoError(t, conn.WriteJSON(services.WSMessage{Type: services.WSTypePing}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, services.WSTypePong, msg.Type)

	require.Eventually(t, func() bool {
		return s.hub.GetTopicSubscriberCount(services.SessionTopic(snap.ID)) == 1
	}, time.Second, 10*time.Millisecond)

	s.do(t, http.MethodPost, "/api/sessions/"+snap.ID+"/moves", models.MoveRequest{FromID: 3, ToID: 1})
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, services.WSTypeSessionState, msg.Type)
	assert.Equal(t, []models.PhotoID{3, 1, 2}, msg.Payload.Sequence)

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/sessions/missing/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://admin.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://admin.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))
}
