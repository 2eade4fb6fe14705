// Package gateway is the HTTP and WebSocket surface: REST endpoints for
// analysis, backtests, auto-trade checks and live rates, plus a hub that
// fans rate updates out to WebSocket clients.
package gateway

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"fxdesk/internal/metrics"
	"fxdesk/internal/model"

	"github.com/gorilla/websocket"
)

// Hub manages WebSocket clients and rate fan-out. Every refresh cycle is
// wrapped in a sequenced envelope, kept in a replay ring, and pushed to all
// connected clients.
type Hub struct {
	metrics *metrics.Metrics

	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]model.Rate // pair -> last broadcast rate
	seq     int64
	replay  *ReplayBuffer
}

// rateEnvelope is the WS wire format for a rate batch.
type rateEnvelope struct {
	Type  string       `json:"type"`
	Seq   int64        `json:"seq"`
	TS    string       `json:"ts"`
	Rates []model.Rate `json:"rates"`
}

// NewHub creates a hub. m may be nil.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		metrics: m,
		clients: make(map[*Client]bool),
		latest:  make(map[string]model.Rate),
		replay:  NewReplayBuffer(500),
	}
}

// BroadcastRates pushes a refresh cycle to every connected client. Slow
// clients are skipped rather than blocking the feed.
func (h *Hub) BroadcastRates(rates []model.Rate) {
	if len(rates) == 0 {
		return
	}

	h.mu.Lock()
	h.seq++
	envelope, err := json.Marshal(rateEnvelope{
		Type:  "rates",
		Seq:   h.seq,
		TS:    time.Now().UTC().Format(time.RFC3339Nano),
		Rates: rates,
	})
	if err != nil {
		h.mu.Unlock()
		slog.Error("rate envelope marshal failed", "err", err)
		return
	}
	for _, r := range rates {
		h.latest[r.Pair] = r
	}
	h.replay.Push(h.seq, envelope)

	for client := range h.clients {
		select {
		case client.send <- envelope:
		default:
			// Client buffer full; it will backfill via seq replay.
		}
	}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.WSBroadcasts.Inc()
	}
}

// Snapshot returns the last broadcast rate per pair, sorted by pair.
func (h *Hub) Snapshot() []model.Rate {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rates := make([]model.Rate, 0, len(h.latest))
	for _, r := range h.latest {
		rates = append(rates, r)
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i].Pair < rates[j].Pair })
	return rates
}

// Missed returns buffered envelopes after fromSeq for client gap backfill.
func (h *Hub) Missed(fromSeq int64) [][]byte {
	return h.replay.Since(fromSeq)
}

// CurrentSeq returns the latest broadcast sequence number.
func (h *Hub) CurrentSeq() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seq
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register attaches an upgraded connection and starts its pumps. lastSeq is
// the client's last seen sequence number (0 for a fresh connection).
func (h *Hub) Register(conn *websocket.Conn, lastSeq int64) {
	client := &Client{
		conn: conn,
		send: make(chan []byte, 64),
		hub:  h,
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(count))
	}
	slog.Info("ws client connected", "total", count)

	go client.sendBacklog(lastSeq)
	go client.writePump()
	go client.readPump()
}

// removeClient detaches a client and closes its send channel. The close
// happens under the hub lock so that backlog senders, which check
// membership under a read lock, can never hit a closed channel.
func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	count := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(count))
	}
	slog.Info("ws client disconnected", "total", count)
}
