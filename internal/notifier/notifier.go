// Package notifier broadcasts committed state changes to subscribers.
// The ledger core publishes domain events through the Notifier interface
// and knows nothing about connection lifecycle; transports implement the
// interface and own their clients.
package notifier

import "github.com/google/uuid"

// EventKind identifies what committed change an event describes.
type EventKind string

const (
	KindTransactionCommitted EventKind = "transaction_committed"
	KindPlayerUpdated        EventKind = "player_updated"
	KindRoomUpdated          EventKind = "room_updated"
	KindRequestCreated       EventKind = "request_created"
	KindRequestResolved      EventKind = "request_resolved"
	KindGameEventRecorded    EventKind = "game_event_recorded"
)

// Event is a committed state change, scoped to a room.
type Event struct {
	Kind   EventKind `json:"kind"`
	RoomID uuid.UUID `json:"room_id"`
	Data   any       `json:"data"`
}

// Notifier publishes committed changes. Publish is called after the
// change has been durably committed; implementations must not block the
// caller on slow subscribers.
type Notifier interface {
	Publish(event Event)
}

// Noop discards all events. Used in tests and when no transport is wired.
type Noop struct{}

// Publish implements Notifier.
func (Noop) Publish(Event) {}
