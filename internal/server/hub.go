package server

import (
	"encoding/json"
	"log/slog"
	"sync"

	"starfront-server/internal/combat"
	"starfront-server/internal/mining"
	"starfront-server/internal/world"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const sendBuffer = 256

type frame struct {
	kind int
	data []byte
}

// snapshotFrame is the binary envelope of a session snapshot.
type snapshotFrame struct {
	Type   string           `msgpack:"type"`
	Combat *combat.Snapshot `msgpack:"combat,omitempty"`
	Mining *mining.Snapshot `msgpack:"mining,omitempty"`
}

// Hub tracks one socket per player and fans world events out to them. It
// implements world.Notifier; every send is non-blocking and a full client
// buffer drops the frame.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		logger:  logger.With("component", "hub"),
	}
}

// register makes c the player's socket and returns the one it replaced.
func (h *Hub) register(c *client) *client {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.clients[c.playerID]
	h.clients[c.playerID] = c
	return prev
}

// unregister reports whether c was still the player's current socket.
func (h *Hub) unregister(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.playerID] != c {
		return false
	}
	delete(h.clients, c.playerID)
	return true
}

func (h *Hub) client(playerID string) *client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[playerID]
}

// Online returns the number of connected sockets.
func (h *Hub) Online() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every socket.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) deliver(playerID string, f frame) {
	c := h.client(playerID)
	if c == nil {
		return
	}
	if !c.offer(f) {
		h.logger.Debug("Dropped frame for slow client", "player_id", playerID, "kind", f.kind)
	}
}

func (h *Hub) PlayerEvent(playerID string, ev world.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Failed to encode event", "event", ev.Type, "error", err)
		return
	}
	h.deliver(playerID, frame{kind: websocket.TextMessage, data: data})
}

func (h *Hub) Broadcast(ev world.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Failed to encode event", "event", ev.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.clients {
		if !c.offer(frame{kind: websocket.TextMessage, data: data}) {
			h.logger.Debug("Dropped broadcast for slow client", "player_id", id, "event", ev.Type)
		}
	}
}

func (h *Hub) CombatSnapshot(snap combat.Snapshot) {
	data, err := msgpack.Marshal(&snapshotFrame{Type: "combat", Combat: &snap})
	if err != nil {
		h.logger.Error("Failed to encode combat snapshot", "session_id", snap.SessionID, "error", err)
		return
	}
	for _, id := range snap.Participants {
		h.deliver(id, frame{kind: websocket.BinaryMessage, data: data})
	}
}

func (h *Hub) MiningSnapshot(snap mining.Snapshot) {
	data, err := msgpack.Marshal(&snapshotFrame{Type: "mining", Mining: &snap})
	if err != nil {
		h.logger.Error("Failed to encode mining snapshot", "session_id", snap.SessionID, "error", err)
		return
	}
	h.deliver(snap.PlayerID, frame{kind: websocket.BinaryMessage, data: data})
}

var _ world.Notifier = (*Hub)(nil)
