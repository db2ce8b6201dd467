package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"lexchat-be/internal/dto"
	"lexchat-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const revealChannel = "reveal_frames"

// Hub fans reveal frames out to connected clients. Clients are keyed by the
// same client key the orchestrator uses, so signed-out visitors get frames
// too. Redis pub/sub carries frames across instances.
type Hub struct {
	// Registered clients map: client key -> list of connections (multi-tab)
	clients map[string][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb *redis.Client

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.Key] = append(h.clients[client.Key], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"client_key": client.Key})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.Key]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.Key] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.Key]) == 0 {
					delete(h.clients, client.Key)
					h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"client_key": client.Key})
				}
			}
			h.mu.Unlock()
		}
	}
}

// Send implements the orchestrator's RevealDelivery. Frames go to every
// local connection under the key, then over Redis for other instances.
func (h *Hub) Send(clientKey string, frame dto.RevealFrame) {
	data, _ := json.Marshal(map[string]interface{}{
		"type": "reveal",
		"data": frame,
	})

	// With Redis attached, delivery happens through the subscription so the
	// publishing instance does not double-send to its own clients.
	if h.rdb != nil {
		payload, _ := json.Marshal(redisEnvelope{
			TargetKey: clientKey,
			Message:   data,
		})
		h.rdb.Publish(context.Background(), revealChannel, payload)
		return
	}

	h.sendLocal(clientKey, data)
}

func (h *Hub) sendLocal(clientKey string, data []byte) {
	// The read lock is held for the whole walk so Run cannot close a Send
	// channel mid-send. Run's unregister case is the sole owner of
	// close(client.Send).
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[clientKey] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{"client_key": clientKey})
			// Enqueued from a goroutine: Run needs the write lock to
			// process the unregister, which the held read lock blocks.
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

type redisEnvelope struct {
	TargetKey string          `json:"target_key"`
	Message   json.RawMessage `json:"message"`
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, revealChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload redisEnvelope
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}
		h.sendLocal(payload.TargetKey, payload.Message)
	}
}
