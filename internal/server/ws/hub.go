package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mamadbah2/wellca/internal/notify"
	"github.com/mamadbah2/wellca/internal/telemetry"
)

// Client is one connected websocket.
type Client struct {
	Conn *websocket.Conn
	Send chan []byte
}

// Envelope is the frame pushed to clients after every bubble change.
type Envelope struct {
	Type     string           `json:"type"`
	Messages []notify.Message `json:"messages"`
}

// Hub fans the visible message list out to every connected client.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	count      atomic.Int64
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until ctx is done. A newly
// registered client first receives the latest frame.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	var latest []byte
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			h.count.Add(1)
			telemetry.WSClients.Inc()
			h.logger.Debug("client registered")
			if latest != nil {
				client.Send <- latest
			}
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Debug("client unregistered")
			}
		case message := <-h.broadcast:
			latest = message
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					h.drop(client)
				}
			}
		}
	}
}

// Publish queues the visible bubbles for broadcast. It is meant to be
// registered as a presenter observer and never blocks it. Every frame is a
// full list, so when the queue is full the oldest frame makes room.
func (h *Hub) Publish(active []notify.Message) {
	telemetry.VisibleMessages.Set(float64(len(active)))

	if active == nil {
		active = []notify.Message{}
	}
	payload, err := json.Marshal(Envelope{Type: "messages", Messages: active})
	if err != nil {
		h.logger.Error("failed to encode messages", zap.Error(err))
		return
	}

	for {
		select {
		case h.broadcast <- payload:
			return
		default:
		}
		select {
		case <-h.broadcast:
			h.logger.Debug("stale message frame replaced, hub is busy")
		default:
		}
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	h.count.Add(-1)
	telemetry.WSClients.Dec()
}
