package ws

import (
	"context"
	"encoding/json"
	"sync"

	"ton_miner/internal/logger"
)

// Hub tracks live connections per account. An account may have several tabs open.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[int64]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	logger.Debug("ws client registered", "user_id", c.UserID, "connections", len(set))
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := set[c]; ok {
		delete(set, c)
		close(c.Send)
	}
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
}

// Connections returns how many sockets userID has open.
func (h *Hub) Connections(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// SendTo queues msg on every connection of userID and returns how many took it.
// Slow clients whose buffer is full are skipped rather than blocking the caller.
func (h *Hub) SendTo(userID int64, msg []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for c := range h.clients[userID] {
		select {
		case c.Send <- msg:
			sent++
		default:
			logger.Warn("ws send buffer full, dropping message", "user_id", userID)
		}
	}
	return sent
}

// Notify pushes a notification frame to the account's open sockets.
func (h *Hub) Notify(_ context.Context, accountID int64, message string) {
	b, err := json.Marshal(Envelope{Type: MsgNotification, Message: message})
	if err != nil {
		return
	}
	h.SendTo(accountID, b)
}
