package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *WebSocketHub {
	t.Helper()
	hub := NewWebSocketHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

func receive(t *testing.T, client *WSClient) WSMessage {
	t.Helper()
	select {
	case data, ok := <-client.Send:
		require.True(t, ok, "send channel closed")
		var msg WSMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return WSMessage{}
	}
}

func TestWebSocketHub_TopicFanOut(t *testing.T) {
	hub := startHub(t)

	subscribed := hub.NewClient("a", nil)
	other := hub.NewClient("b", nil)
	hub.Register(subscribed)
	hub.Register(other)
	hub.Subscribe(subscribed, SessionTopic("s1"))
	hub.Subscribe(other, SessionTopic("s2"))

	hub.SessionClosed("s1")

	msg := receive(t, subscribed)
	assert.Equal(t, WSTypeSessionClosed, msg.Type)
	assert.Equal(t, "session:s1", msg.Topic)

	select {
	case <-other.Send:
		t.Fatal("unsubscribed client received a message")
	case <-time.After(50 * time.Millisecond):
	}

	assert.Equal(t, 2, hub.GetClientCount())
	assert.Equal(t, 1, hub.GetTopicSubscriberCount(SessionTopic("s1")))
}

func TestWebSocketHub_CommitResult(t *testing.T) {
	hub := startHub(t)
	client := hub.NewClient("a", nil)
	hub.Register(client)
	hub.Subscribe(client, SessionTopic("s1"))

	hub.CommitResult("s1", assert.AnError)

	msg := receive(t, client)
	assert.Equal(t, WSTypeCommitResult, msg.Type)
	payload, ok := msg.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, payload["success"])
	assert.Equal(t, assert.AnError.Error(), payload["error"])
}

func TestWebSocketHub_UnregisterClosesSend(t *testing.T) {
	hub := startHub(t)
	client := hub.NewClient("a", nil)
	hub.Register(client)
	hub.Subscribe(client, SessionTopic("s1"))

	hub.Unregister(client)

	select {
	case _, ok := <-client.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
	assert.Equal(t, 0, hub.GetTopicSubscriberCount(SessionTopic("s1")))
}

func TestWebSocketHub_SlowClientDropped(t *testing.T) {
	hub := startHub(t)
	client := hub.NewClient("slow", nil)
	client.Send = make(chan []byte, 1)
	hub.Register(client)
	hub.Subscribe(client, SessionTopic("s1"))

	hub.SessionClosed("s1")
	hub.SessionClosed("s1")

	require.Eventually(t, func() bool {
		return hub.GetClientCount() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestWebSocketHub_StopClosesClients(t *testing.T) {
	hub := NewWebSocketHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := hub.NewClient("a", nil)
	hub.Register(client)
	cancel()
	<-done

	_, ok := <-client.Send
	assert.False(t, ok)

	// calls after shutdown must not block
	late := hub.NewClient("late", nil)
	hub.Register(late)
	hub.Unregister(late)
	hub.SessionClosed("s1")
}
