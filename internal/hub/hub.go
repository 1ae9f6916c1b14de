// Package hub streams change events to Server-Sent Events clients.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"metacatalog/internal/domain"
)

// DefaultBuffer is the size of the broadcast queue
const DefaultBuffer = 256

// message is one encoded event and the entity type it concerns
type message struct {
	entityType string
	payload    []byte
}

// Client represents a connected SSE client
type Client struct {
	id string
	// entityTypes limits the stream; empty means every type
	entityTypes map[string]bool
	events      chan []byte
}

func (c *Client) wants(entityType string) bool {
	return len(c.entityTypes) == 0 || c.entityTypes[entityType]
}

// Hub manages SSE client connections
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan domain.ChangeEvent
	logger     *zap.Logger
	keepAlive  time.Duration
}

// New creates a new Hub. buffer <= 0 selects DefaultBuffer.
func New(logger *zap.Logger, buffer int) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan domain.ChangeEvent, buffer),
		logger:     logger.Named("hub"),
		keepAlive:  30 * time.Second,
	}
}

// Events returns the channel the hub consumes; subscribe it to the event bus
func (h *Hub) Events() chan<- domain.ChangeEvent {
	return h.broadcast
}

// Run starts the hub's event loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("SSE client connected", zap.String("client", client.id), zap.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.events)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("SSE client disconnected", zap.String("client", client.id), zap.Int("total", total))

		case event := <-h.broadcast:
			msg, err := encode(event)
			if err != nil {
				h.logger.Error("failed to encode change event", zap.Error(err))
				continue
			}
			h.deliver(msg)

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.events)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) deliver(msg message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if !client.wants(msg.entityType) {
			continue
		}
		select {
		case client.events <- msg.payload:
		default:
			// Client is slow, skip this message
			h.logger.Warn("SSE client is slow, skipping event", zap.String("client", client.id))
		}
	}
}

func encode(event domain.ChangeEvent) (message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return message{}, err
	}
	return message{
		entityType: event.EntityType,
		payload:    []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.EventType, data)),
	}, nil
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles SSE connections. The optional entityType query parameter
// is a comma separated list of entity types to stream.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	// Streams outlive the server write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	client := &Client{
		id:     uuid.NewString(),
		events: make(chan []byte, 64),
	}
	if types := r.URL.Query().Get("entityType"); types != "" {
		client.entityTypes = make(map[string]bool)
		for _, t := range strings.Split(types, ",") {
			client.entityTypes[strings.TrimSpace(t)] = true
		}
	}

	select {
	case h.register <- client:
	case <-r.Context().Done():
		return
	}
	defer func() {
		select {
		case h.unregister <- client:
		case <-time.After(time.Second):
			// hub stopped
		}
	}()

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.events:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
