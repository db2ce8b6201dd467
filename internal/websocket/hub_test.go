package websocket

import (
	"testing"
	"time"

	"lexchat-be/internal/dto"

	"github.com/stretchr/testify/require"
)

type noopLogger struct{}

func (noopLogger) Debug(module, message string, details map[string]interface{}) {}
func (noopLogger) Info(module, message string, details map[string]interface{})  {}
func (noopLogger) Warn(module, message string, details map[string]interface{})  {}
func (noopLogger) Error(module, message string, details map[string]interface{}) {}
func (noopLogger) Sync() error                                                  { return nil }

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(nil, noopLogger{})
	go h.Run()
	return h
}

func registered(h *Hub, key string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[key]
	return ok
}

func TestSendDeliversToRegisteredClient(t *testing.T) {
	h := newTestHub(t)

	client := &Client{Hub: h, Key: "visitor-1", Send: make(chan []byte, 4)}
	h.register <- client
	require.Eventually(t, func() bool { return registered(h, "visitor-1") },
		time.Second, 5*time.Millisecond)

	h.Send("visitor-1", dto.RevealFrame{Text: "hello", Done: true})

	select {
	case data := <-client.Send:
		require.Contains(t, string(data), `"reveal"`)
		require.Contains(t, string(data), "hello")
	case <-time.After(time.Second):
		t.Fatal("frame was not delivered")
	}
}

func TestSendToStalledClientDropsWithoutPanic(t *testing.T) {
	h := newTestHub(t)

	// One-slot buffer, pre-filled: the client never reads, as a stalled
	// connection would during a paced reveal.
	client := &Client{Hub: h, Key: "visitor-2", Send: make(chan []byte, 1)}
	client.Send <- []byte("stuck")
	h.register <- client
	require.Eventually(t, func() bool { return registered(h, "visitor-2") },
		time.Second, 5*time.Millisecond)

	// Each full-buffer send enqueues an unregister; only Run may close the
	// channel, and only once. A second close would panic the hub goroutine
	// and take the process down with it.
	h.Send("visitor-2", dto.RevealFrame{Text: "a"})
	h.Send("visitor-2", dto.RevealFrame{Text: "ab"})

	require.Eventually(t, func() bool { return !registered(h, "visitor-2") },
		time.Second, 5*time.Millisecond)

	// Channel ends up closed exactly once: drain the buffered frame, then
	// the closed channel reports !ok.
	<-client.Send
	_, ok := <-client.Send
	require.False(t, ok)

	// The hub still serves other clients afterwards.
	other := &Client{Hub: h, Key: "visitor-3", Send: make(chan []byte, 4)}
	h.register <- other
	require.Eventually(t, func() bool { return registered(h, "visitor-3") },
		time.Second, 5*time.Millisecond)
	h.Send("visitor-3", dto.RevealFrame{Text: "still alive"})
	require.Eventually(t, func() bool { return len(other.Send) == 1 },
		time.Second, 5*time.Millisecond)
}
