package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"velaris/internal/domain"
	"velaris/pkg/metrics"
)

const (
	TypeMarkets    = "markets"
	TypeWhaleAlert = "whale_alert"
)

// Message is the envelope every websocket frame carries.
type Message struct {
	Type   string             `json:"type"`
	Coins  []domain.Coin      `json:"coins,omitempty"`
	Alert  *domain.WhaleAlert `json:"alert,omitempty"`
	SentAt time.Time          `json:"sent_at"`
}

// Hub fans messages out to every connected client. All client bookkeeping
// happens on the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	upgrader   websocket.Upgrader
	last       atomic.Pointer[[]byte]
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan []byte, 64),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Run serves register, unregister and broadcast requests until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			metrics.WSClients.Set(float64(len(h.clients)))
			log.Debug().Str("client_id", c.id).Int("clients", len(h.clients)).Msg("websocket client registered")
			if snapshot := h.peekLast(); snapshot != nil {
				c.trySend(snapshot)
			}

		case c := <-h.unregister:
			if h.clients[c] {
				h.drop(c)
				log.Debug().Str("client_id", c.id).Int("clients", len(h.clients)).Msg("websocket client unregistered")
			}

		case data := <-h.broadcast:
			for c := range h.clients {
				if !c.trySend(data) {
					log.Warn().Str("client_id", c.id).Msg("websocket client too slow, dropping")
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
	metrics.WSClients.Set(float64(len(h.clients)))
}

// BroadcastMarkets sends the latest market listing. New clients receive the
// most recent listing on connect.
func (h *Hub) BroadcastMarkets(coins []domain.Coin) {
	data, err := json.Marshal(Message{Type: TypeMarkets, Coins: coins, SentAt: time.Now().UTC()})
	if err != nil {
		log.Error().Err(err).Msg("marshal markets message")
		return
	}
	h.remember(data)
	h.publish(data)
}

func (h *Hub) BroadcastWhaleAlert(alert domain.WhaleAlert) {
	data, err := json.Marshal(Message{Type: TypeWhaleAlert, Alert: &alert, SentAt: time.Now().UTC()})
	if err != nil {
		log.Error().Err(err).Msg("marshal whale alert message")
		return
	}
	h.publish(data)
}

// publish never blocks the caller; when the hub is saturated the message is
// discarded.
func (h *Hub) publish(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		log.Warn().Msg("websocket broadcast queue full, message dropped")
	}
}

func (h *Hub) remember(data []byte) {
	h.last.Store(&data)
}

func (h *Hub) peekLast() []byte {
	if data := h.last.Load(); data != nil {
		return *data
	}
	return nil
}

// ServeHTTP upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := newClient(h, conn)
	h.register <- c
	go c.writePump()
	go c.readPump()
}
