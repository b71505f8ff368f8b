package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gshare/gallery-editor/internal/observability"
	"github.com/gshare/gallery-editor/internal/services"
)

// WebSocketHandler streams session updates to browsers
type WebSocketHandler struct {
	hub      *services.WebSocketHub
	editor   *services.EditorService
	upgrader websocket.Upgrader
	logger   *observability.Logger
}

// NewWebSocketHandler creates a new WebSocketHandler. Origins listed in
// allowedOrigins may connect; "*" allows any.
func NewWebSocketHandler(hub *services.WebSocketHub, editor *services.EditorService, allowedOrigins []string) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:    hub,
		editor: editor,
		logger: observability.GetLogger().WithField("component", "websocket"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// HandleSessionConnection upgrades to WebSocket and subscribes the
// connection to one session's updates
func (h *WebSocketHandler) HandleSessionConnection(w http.ResponseWriter, r *http.Request) {
	es, err := h.editor.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := h.hub.NewClient(uuid.New().String(), conn)
	h.hub.Register(client)
	h.hub.Subscribe(client, services.SessionTopic(es.ID))

	// Initial state goes out before the write pump starts
	if err := client.WriteJSON(services.WSMessage{
		Type:    services.WSTypeSessionState,
		Topic:   services.SessionTopic(es.ID),
		Payload: es.Snapshot(),
	}); err != nil {
		client.Close()
		return
	}

	go client.WritePump()

	// Run the read pump (blocks until connection closes)
	client.ReadPump(h.handleMessage)
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(client *services.WSClient, messageType int, data []byte) {
	if messageType != websocket.TextMessage {
		return
	}

	var msg services.WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.reply(client, services.WSMessage{Type: services.WSTypeError, Payload: "invalid message"})
		return
	}

	switch msg.Type {
	case services.WSTypeSubscribe:
		topic, ok := h.sessionTopic(msg.Payload)
		if !ok {
			h.reply(client, services.WSMessage{Type: services.WSTypeError, Payload: "unknown session"})
			return
		}
		h.hub.Subscribe(client, topic)

	case services.WSTypeUnsubscribe:
		if topic, ok := topicOf(msg.Payload); ok {
			h.hub.Unsubscribe(client, topic)
		}

	case services.WSTypePing:
		h.reply(client, services.WSMessage{Type: services.WSTypePong})

	default:
		h.logger.WithField("type", msg.Type).Debug("Unknown WebSocket message type")
	}
}

func (h *WebSocketHandler) reply(client *services.WSClient, msg services.WSMessage) {
	if err := client.WriteJSON(msg); err != nil {
		h.logger.WithError(err).WithField("client_id", client.ID).Debug("WebSocket reply failed")
	}
}

// sessionTopic accepts only topics of sessions that are still open
func (h *WebSocketHandler) sessionTopic(payload interface{}) (string, bool) {
	topic, ok := topicOf(payload)
	if !ok {
		return "", false
	}
	id, found := strings.CutPrefix(topic, services.TopicSession+":")
	if !found {
		return "", false
	}
	if _, err := h.editor.Get(id); err != nil {
		return "", false
	}
	return topic, true
}

func topicOf(payload interface{}) (string, bool) {
	if topic, ok := payload.(string); ok {
		return topic, true
	}
	if m, ok := payload.(map[string]interface{}); ok {
		if topic, ok := m["topic"].(string); ok {
			return topic, true
		}
	}
	return "", false
}
