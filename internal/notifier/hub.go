package notifier

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Hub is a websocket implementation of Notifier. Clients subscribe to a
// single room and receive every event published for it.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*websocket.Conn]bool
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[uuid.UUID]map[*websocket.Conn]bool),
	}
}

var _ Notifier = (*Hub)(nil)

// AddConnection subscribes a websocket connection to a room's events.
func (h *Hub) AddConnection(roomID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*websocket.Conn]bool)
	}
	h.rooms[roomID][conn] = true
	log.Debug().Str("room_id", roomID.String()).Int("subscribers", len(h.rooms[roomID])).Msg("ws client connected")
}

// RemoveConnection unsubscribes and closes a websocket connection.
func (h *Hub) RemoveConnection(roomID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.rooms[roomID]; ok {
		delete(conns, conn)
		conn.Close()
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
		log.Debug().Str("room_id", roomID.String()).Msg("ws client disconnected")
	}
}

// Publish fans an event out to every subscriber of its room. Dead
// connections are dropped on write failure.
func (h *Hub) Publish(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.rooms[event.RoomID]
	if !ok {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("ws: failed to marshal event")
		return
	}

	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Warn().Err(err).Msg("ws: write failed, dropping client")
			conn.Close()
			delete(conns, conn)
		}
	}
}
