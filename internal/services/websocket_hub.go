package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gshare/gallery-editor/internal/models"
	"github.com/gshare/gallery-editor/internal/observability"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Topic   string      `json:"topic,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// WSClient represents a connected WebSocket client
type WSClient struct {
	ID         string
	Topics     map[string]bool
	Conn       *websocket.Conn
	Send       chan []byte
	hub        *WebSocketHub
	mu         sync.Mutex
	closedOnce sync.Once
}

// WebSocketHub fans session updates out to subscribed connections
type WebSocketHub struct {
	clients    map[*WSClient]bool
	topics     map[string]map[*WSClient]bool // topic -> clients
	register   chan *WSClient
	unregister chan *WSClient
	broadcast  chan *broadcastMsg
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	logger     *observability.Logger
}

type broadcastMsg struct {
	topic   string
	message []byte
}

// NewWebSocketHub creates a new WebSocket hub
func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*WSClient]bool),
		topics:     make(map[string]map[*WSClient]bool),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		broadcast:  make(chan *broadcastMsg, 256),
		done:       make(chan struct{}),
		logger:     observability.GetLogger().WithField("component", "websocket_hub"),
	}
}

// Run starts the hub's main loop. It returns when ctx is done, closing
// every remaining client.
func (h *WebSocketHub) Run(ctx context.Context) {
	defer h.stop()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.WithField("client_id", client.ID).Debug("WebSocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
			h.logger.WithField("client_id", client.ID).Debug("WebSocket client disconnected")

		case msg := <-h.broadcast:
			h.mu.RLock()
			var slow []*WSClient
			for client := range h.topics[msg.topic] {
				select {
				case client.Send <- msg.message:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()

			// Client buffer full, drop the connection
			if len(slow) > 0 {
				h.mu.Lock()
				for _, client := range slow {
					h.removeLocked(client)
				}
				h.mu.Unlock()
			}
		}
	}
}

func (h *WebSocketHub) stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		for client := range h.clients {
			h.removeLocked(client)
		}
		h.mu.Unlock()
	})
}

func (h *WebSocketHub) removeLocked(client *WSClient) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for topic := range client.Topics {
		if topicClients, ok := h.topics[topic]; ok {
			delete(topicClients, client)
			if len(topicClients) == 0 {
				delete(h.topics, topic)
			}
		}
	}
	close(client.Send)
}

// Register adds a client to the hub
func (h *WebSocketHub) Register(client *WSClient) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister removes a client from the hub
func (h *WebSocketHub) Unregister(client *WSClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Subscribe adds a client to a topic
func (h *WebSocketHub) Subscribe(client *WSClient, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.Topics[topic] = true
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*WSClient]bool)
	}
	h.topics[topic][client] = true
	h.logger.WithFields(map[string]interface{}{
		"client_id": client.ID,
		"topic":     topic,
	}).Debug("Client subscribed")
}

// Unsubscribe removes a client from a topic
func (h *WebSocketHub) Unsubscribe(client *WSClient, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(client.Topics, topic)
	if topicClients, ok := h.topics[topic]; ok {
		delete(topicClients, client)
		if len(topicClients) == 0 {
			delete(h.topics, topic)
		}
	}
}

// BroadcastToTopic queues a message for every subscriber of topic. It never
// blocks: when the queue is full the message is dropped.
func (h *WebSocketHub) BroadcastToTopic(topic string, msg WSMessage) {
	msg.Topic = topic
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.WithError(err).Error("Error marshaling WebSocket message")
		return
	}

	select {
	case h.broadcast <- &broadcastMsg{topic: topic, message: data}:
	default:
		h.logger.WithFields(map[string]interface{}{
			"topic": topic,
			"type":  msg.Type,
		}).Warn("WebSocket broadcast queue full, dropping message")
	}
}

// GetClientCount returns the number of connected clients
func (h *WebSocketHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetTopicSubscriberCount returns the number of subscribers for a topic
func (h *WebSocketHub) GetTopicSubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// NewClient creates a new WebSocket client connected to this hub
func (h *WebSocketHub) NewClient(id string, conn *websocket.Conn) *WSClient {
	return &WSClient{
		ID:     id,
		Topics: make(map[string]bool),
		Conn:   conn,
		Send:   make(chan []byte, 256),
		hub:    h,
	}
}

// Notifier adapters used by EditorService

// SessionState publishes a session snapshot to its topic
func (h *WebSocketHub) SessionState(s models.SessionResponse) {
	h.BroadcastToTopic(SessionTopic(s.ID), WSMessage{Type: WSTypeSessionState, Payload: s})
}

// CommitResult publishes the outcome of a commit
func (h *WebSocketHub) CommitResult(sessionID string, err error) {
	payload := CommitResultPayload{SessionID: sessionID, Success: err == nil}
	if err != nil {
		payload.Error = err.Error()
	}
	h.BroadcastToTopic(SessionTopic(sessionID), WSMessage{Type: WSTypeCommitResult, Payload: payload})
}

// SessionClosed tells subscribers the view is gone
func (h *WebSocketHub) SessionClosed(sessionID string) {
	h.BroadcastToTopic(SessionTopic(sessionID), WSMessage{
		Type:    WSTypeSessionClosed,
		Payload: SessionClosedPayload{SessionID: sessionID},
	})
}

// WSClient methods

// Close closes the client connection
func (c *WSClient) Close() {
	c.closedOnce.Do(func() {
		c.hub.Unregister(c)
		if c.Conn != nil {
			c.Conn.Close()
		}
	})
}

// WriteJSON sends msg directly on this connection, bypassing topics
func (c *WSClient) WriteJSON(msg WSMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.Conn.WriteJSON(msg)
}

// WritePump pumps messages from the hub to the websocket connection
func (c *WSClient) WritePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.mu.Lock()
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				c.mu.Unlock()
				return
			}
			err := c.Conn.WriteMessage(websocket.TextMessage, message)
			c.mu.Unlock()

			if err != nil {
				return
			}

		case <-ticker.C:
			c.mu.Lock()
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			err := c.Conn.WriteMessage(websocket.PingMessage, nil)
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// ReadPump pumps messages from the websocket connection to the hub
func (c *WSClient) ReadPump(onMessage func(client *WSClient, messageType int, data []byte)) {
	defer c.Close()

	c.Conn.SetReadLimit(64 * 1024)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).WithField("client_id", c.ID).Warn("WebSocket read error")
			}
			break
		}

		if onMessage != nil {
			onMessage(c, messageType, message)
		}
	}
}

// Common message types
const (
	WSTypeSessionState  = "session_state"
	WSTypeCommitResult  = "commit_result"
	WSTypeSessionClosed = "session_closed"
	WSTypeError         = "error"
	WSTypeSubscribe     = "subscribe"
	WSTypeUnsubscribe   = "unsubscribe"
	WSTypePing          = "ping"
	WSTypePong          = "pong"
)

// TopicSession is prefixed to a session ID: session:{id}
const TopicSession = "session"

// SessionTopic returns the topic carrying updates for one editing session
func SessionTopic(sessionID string) string {
	return TopicSession + ":" + sessionID
}

// CommitResultPayload is sent after every commit attempt
type CommitResultPayload struct {
	SessionID string `json:"sessionId"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// SessionClosedPayload is sent when a session is closed or swept
type SessionClosedPayload struct {
	SessionID string `json:"sessionId"`
}
