package websocket

import (
	"encoding/json"
	"errors"
	"sync"

	"smsgateway/internal/metrics"
)

// MaxStreamsPerUser caps concurrent balance streams for one user.
const MaxStreamsPerUser = 5

var ErrTooManyStreams = errors.New("too many balance streams open")

// BalanceUpdate is pushed to every stream of a user after a topup or send.
type BalanceUpdate struct {
	Balance      string `json:"balance"`
	BalanceMinor int64  `json:"balance_minor"`
	Currency     string `json:"currency"`
}

// Hub fans balance updates out to the streams each user has open.
type Hub struct {
	mu      sync.RWMutex
	streams map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{streams: make(map[string]map[*Client]struct{})}
}

func (h *Hub) Register(userID string, client *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.streams[userID]
	if len(set) >= MaxStreamsPerUser {
		return ErrTooManyStreams
	}
	if set == nil {
		set = make(map[*Client]struct{})
		h.streams[userID] = set
	}
	set[client] = struct{}{}
	metrics.BalanceStreams.Inc()
	return nil
}

// Unregister is safe to call more than once for the same client.
func (h *Hub) Unregister(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.streams[userID]
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	metrics.BalanceStreams.Dec()
	if len(set) == 0 {
		delete(h.streams, userID)
	}
}

func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams[userID])
}

// BroadcastBalance never blocks: a stream with a full buffer misses the update
// and picks up the next one.
func (h *Hub) BroadcastBalance(userID string, update BalanceUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.streams[userID] {
		select {
		case client.send <- payload:
		default:
			metrics.BalanceUpdatesDropped.Inc()
		}
	}
}
