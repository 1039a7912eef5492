package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub fans job updates out to connected dispatch boards. All membership changes
// happen on the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	byActor    map[string][]*Client
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	origins    map[string]struct{}
	mu         sync.RWMutex
	now        func() time.Time
	logger     *zap.Logger
}

func NewHub(allowedOrigins []string, logger *zap.Logger) *Hub {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		byActor:    make(map[string][]*Client),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		origins:    origins,
		now:        time.Now,
		logger:     logger,
	}
}

// AllowOrigin accepts same-origin requests (no Origin header) and the configured origins.
func (h *Hub) AllowOrigin(origin string) bool {
	if origin == "" {
		return true
	}
	_, ok := h.origins[origin]
	return ok
}

// Run serves membership and broadcasts until ctx ends, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.byActor[client.ActorID] = append(h.byActor[client.ActorID], client)
			h.mu.Unlock()
			h.logger.Debug("board client registered", zap.String("actorID", client.ActorID))
		case client := <-h.unregister:
			h.mu.Lock()
			if h.clients[client] {
				h.drop(client)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					h.logger.Warn("board client too slow, dropping", zap.String("actorID", client.ActorID))
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop must be called with mu held.
func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)

	list := h.byActor[client.ActorID]
	for i, c := range list {
		if c == client {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(h.byActor, client.ActorID)
	} else {
		h.byActor[client.ActorID] = list
	}
}

// Register returns false when the hub has already stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues a frame for every client. A full queue drops the frame.
func (h *Hub) Broadcast(messageType string, payload interface{}) error {
	message, err := h.encode(messageType, payload)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- message:
	case <-h.done:
	default:
		h.logger.Warn("board broadcast queue full, frame dropped", zap.String("type", messageType))
	}
	return nil
}

// SendToActor delivers a frame to every connection of one actor.
func (h *Hub) SendToActor(actorID, messageType string, payload interface{}) error {
	message, err := h.encode(messageType, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.byActor[actorID] {
		select {
		case client.send <- message:
		default:
			h.logger.Warn("board client queue full, frame dropped", zap.String("actorID", actorID))
		}
	}
	return nil
}

// ConnectedActors is the number of distinct actors with at least one open connection.
func (h *Hub) ConnectedActors() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byActor)
}

func (h *Hub) encode(messageType string, payload interface{}) ([]byte, error) {
	return json.Marshal(Envelope{
		Type:      messageType,
		Payload:   payload,
		Timestamp: h.now().UTC(),
	})
}
