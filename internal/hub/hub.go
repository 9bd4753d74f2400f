// Package hub streams service events to HTTP clients as server-sent events.
package hub

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"

	"lionrepo/internal/logging"
	"lionrepo/internal/service"
)

// KeepAlive is the interval between comment lines sent to idle clients.
const KeepAlive = 30 * time.Second

// Client represents a connected SSE client
type Client struct {
	id         string
	repository string
	events     chan []byte
}

type message struct {
	repository string
	data       []byte
}

// Hub manages SSE client connections
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan service.Event
	stopped    chan struct{}
	logger     *slog.Logger
	keepAlive  time.Duration
}

// New creates a new Hub
func New(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan service.Event, 256),
		stopped:    make(chan struct{}),
		logger:     logging.OrDiscard(logger),
		keepAlive:  KeepAlive,
	}
}

// Run is the hub's event loop. It returns when ctx is done, after
// disconnecting every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.stopped)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("SSE client connected", "client", client.id, "repository", client.repository, "total", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.events)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("SSE client disconnected", "client", client.id, "total", total)

		case event := <-h.broadcast:
			msg, err := encode(event)
			if err != nil {
				h.logger.Error("failed to marshal event", "type", event.Type, "error", err)
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
			return nil
		}
	}
}

func encode(event service.Event) (message, error) {
	data, err := gojson.Marshal(event)
	if err != nil {
		return message{}, err
	}
	return message{
		repository: event.Repository,
		data:       []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, data)),
	}, nil
}

func (h *Hub) deliver(msg message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.repository != "" && client.repository != msg.repository {
			continue
		}
		select {
		case client.events <- msg.data:
		default:
			// Client is slow, skip this message
			h.logger.Warn("SSE client is slow, skipping message", "client", client.id)
		}
	}
}

// Broadcast sends an event to all connected clients
func (h *Hub) Broadcast(event service.Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping event", "type", event.Type)
	}
}

// Forward subscribes to bus and broadcasts what it publishes until ctx is
// done.
func (h *Hub) Forward(ctx context.Context, bus *service.EventBus) error {
	events := make(chan service.Event, 256)
	bus.Subscribe(events)
	defer bus.Unsubscribe(events)
	for {
		select {
		case event := <-events:
			h.Broadcast(event)
		case <-ctx.Done():
			return nil
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles SSE connections. The optional repository query
// parameter restricts the stream to one repository.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	client := &Client{
		id:         uuid.NewString(),
		repository: r.URL.Query().Get("repository"),
		events:     make(chan []byte, 64),
	}

	select {
	case h.register <- client:
	case <-h.stopped:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	case <-r.Context().Done():
		return
	}
	defer func() {
		select {
		case h.unregister <- client:
		case <-h.stopped:
		}
	}()

	fmt.Fprintf(w, ": connected %s\n\n", client.id)
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
