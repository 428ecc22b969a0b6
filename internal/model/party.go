package model

import "github.com/google/uuid"

// Party identifies one side of a money movement: either the bank (an
// infinite reservoir, not a tracked account) or a specific player. The
// persisted shape is a nullable player reference; Party keeps the nil
// handling out of the ledger logic.
type Party struct {
	playerID *uuid.UUID
}

// Bank returns the bank party.
func Bank() Party {
	return Party{}
}

// PlayerParty returns the party for a specific player seat.
func PlayerParty(id uuid.UUID) Party {
	return Party{playerID: &id}
}

// PartyFromRef converts a nullable player reference into a Party.
func PartyFromRef(id *uuid.UUID) Party {
	if id == nil {
		return Bank()
	}
	return PlayerParty(*id)
}

// IsBank reports whether the party is the bank.
func (p Party) IsBank() bool {
	return p.playerID == nil
}

// PlayerID returns the player behind the party, if any.
func (p Party) PlayerID() (uuid.UUID, bool) {
	if p.playerID == nil {
		return uuid.Nil, false
	}
	return *p.playerID, true
}

// Ref returns the nullable reference form used for persistence.
func (p Party) Ref() *uuid.UUID {
	if p.playerID == nil {
		return nil
	}
	id := *p.playerID
	return &id
}
