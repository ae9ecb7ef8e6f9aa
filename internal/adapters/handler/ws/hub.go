package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/predix/api/internal/core/domain"
)

type outbound struct {
	payload []byte
	// exclude names a client id to skip, so the originator of a
	// mutation is not echoed its own update. Empty means broadcast to
	// everyone.
	exclude string
}

// Hub relays accepted state changes to every connected client. It owns
// the client set and runs in its own goroutine; the vote service talks
// to it only through a buffered channel, so publishing never blocks a
// request. The hub is constructed in main and closed on shutdown; there
// is no module-level connection state.
type Hub struct {
	logger *slog.Logger

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound

	done      chan struct{}
	closeOnce sync.Once
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound, 256),
		done:       make(chan struct{}),
	}
}

// Run loops until Close, moving clients in and out of the set and
// fanning published events out to everyone still connected.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Info("client connected", "client_id", client.ID)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Info("client disconnected", "client_id", client.ID)
			}

		case out := <-h.broadcast:
			for client := range h.clients {
				if out.exclude != "" && client.ID == out.exclude {
					continue
				}
				select {
				case client.send <- out.payload:
				default:
					// Client can't keep up; cut it loose and let it
					// re-bootstrap from the snapshot endpoint.
					delete(h.clients, client)
					close(client.send)
					h.logger.Warn("dropping slow client", "client_id", client.ID)
				}
			}

		case <-h.done:
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			return
		}
	}
}

// Close stops the hub and disconnects all clients. Safe to call more
// than once.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

func (h *Hub) Publish(event domain.Event) {
	h.PublishExcept(event, "")
}

// PublishExcept is fire-and-forget: if the hub is saturated or already
// closed the event is dropped, never surfaced to the caller. A missed
// broadcast is recoverable via the snapshot fetch.
func (h *Hub) PublishExcept(event domain.Event, clientID string) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode event", "type", event.Type, "error", err)
		return
	}

	select {
	case h.broadcast <- outbound{payload: payload, exclude: clientID}:
	case <-h.done:
	default:
		h.logger.Warn("broadcast queue full, dropping event", "type", event.Type)
	}
}
