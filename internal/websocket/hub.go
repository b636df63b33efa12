package websocket

import (
	"log/slog"
	"sync"

	"github.com/cifan-festival/submission-service/internal/types"
)

// Hub tracks one live connection per user and delivers submission events
// to it. A user opening a second connection replaces the first.
type Hub struct {
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	broadcast chan *userMessage
}

type userMessage struct {
	userID string
	event  *types.Event
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *userMessage, 64),
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if existing, ok := h.clients[client.userID]; ok {
				close(existing.send)
				slog.Info("Replaced existing WebSocket connection", slog.String("user_id", client.userID))
			}
			h.clients[client.userID] = client
			h.mu.Unlock()
			slog.Info("WebSocket client connected", slog.String("user_id", client.userID))

		case client := <-h.unregister:
			h.mu.Lock()
			// A replaced connection still unregisters itself on teardown;
			// only remove the mapping when it is still this client, and
			// never close send twice (register already closed the old one).
			if existing, ok := h.clients[client.userID]; ok && existing == client {
				delete(h.clients, client.userID)
				close(client.send)
				slog.Info("WebSocket client disconnected", slog.String("user_id", client.userID))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.deliver(message.userID, message.event)
		}
	}
}

// RegisterClient registers a new client.
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient unregisters a client.
func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// BroadcastToUser sends an event to a specific user. Progress events are
// advisory, so a full queue drops rather than blocks the pipeline.
func (h *Hub) BroadcastToUser(userID string, event *types.Event) {
	select {
	case h.broadcast <- &userMessage{userID: userID, event: event}:
	default:
		slog.Warn("Broadcast channel is full, dropping event",
			slog.String("user_id", userID),
			slog.String("type", string(event.Type)))
	}
}

func (h *Hub) deliver(userID string, event *types.Event) {
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()

	if !ok {
		return
	}

	if err := client.SendEvent(event); err != nil {
		slog.Error("Failed to send event to client",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		go func() {
			h.unregister <- client
		}()
	}
}

// IsUserConnected checks if a user is currently connected.
func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, exists := h.clients[userID]
	return exists
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
