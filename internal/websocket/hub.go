package websocket

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Hub is the in-memory presence registry: it maps a user ID to the set of
// live client sessions registered under that user's room. Process-lifetime
// only; clients re-join after a reconnect. Safe for concurrent
// join/leave/lookup from arbitrarily many sessions.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]bool
	log     *zap.SugaredLogger
}

func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]map[*Client]bool),
		log:     log,
	}
}

// Join registers a live session under the client's user room. A user may
// hold any number of concurrent sessions.
func (h *Hub) Join(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.UserID]; !ok {
		h.clients[client.UserID] = make(map[*Client]bool)
	}
	h.clients[client.UserID][client] = true
	h.log.Infow("session joined", "user", client.UserID, "session", client.SessionID, "sessions", len(h.clients[client.UserID]))
}

// Leave removes one session; no-op if the session is not registered.
func (h *Hub) Leave(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userClients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := userClients[client]; !ok {
		return
	}
	delete(userClients, client)
	if len(userClients) == 0 {
		delete(h.clients, client.UserID)
	}
	h.log.Infow("session left", "user", client.UserID, "session", client.SessionID, "sessions", len(userClients))
}

// IsLive reports whether the user has at least one registered session.
func (h *Hub) IsLive(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// SessionsFor returns the session IDs currently registered under a user.
func (h *Hub) SessionsFor(userID uuid.UUID) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sessions := make([]string, 0, len(h.clients[userID]))
	for client := range h.clients[userID] {
		sessions = append(sessions, client.SessionID)
	}
	return sessions
}

// EmitToUser queues a payload on every live session of the user and returns
// the number of sessions it was queued for. A session whose outbound buffer
// is full is skipped; one stale session never blocks delivery to the others.
func (h *Hub) EmitToUser(userID uuid.UUID, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for client := range h.clients[userID] {
		select {
		case client.Send <- payload:
			delivered++
		default:
			h.log.Warnw("send buffer full, dropping frame", "user", userID, "session", client.SessionID)
		}
	}
	return delivered
}
