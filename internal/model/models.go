// Package model defines the data models for the board game banker.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Room represents one game session, identified by a short shareable code.
type Room struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	RoomCode             string     `db:"room_code" json:"room_code"`
	RoomName             string     `db:"room_name" json:"room_name"`
	BankDisplayName      string     `db:"bank_display_name" json:"bank_display_name"`
	InitialPlayerBalance int64      `db:"initial_player_balance" json:"initial_player_balance"`
	SalaryAmount         int64      `db:"salary_amount" json:"salary_amount"`
	DiceSides            int        `db:"dice_sides" json:"dice_sides"`
	Status               RoomStatus `db:"status" json:"status"`
	SharedPotBalance     int64      `db:"shared_pot_balance" json:"shared_pot_balance"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
}

// RoomStatus is the room lifecycle state. Transitions are one-way:
// lobby -> in_progress -> finished.
type RoomStatus string

const (
	RoomStatusLobby      RoomStatus = "lobby"
	RoomStatusInProgress RoomStatus = "in_progress"
	RoomStatusFinished   RoomStatus = "finished"
)

// Player is a seat in a room, bound to exactly one caller identity.
// A balance may only go negative through bank-granted loans, never
// through player-initiated transfers.
type Player struct {
	ID             uuid.UUID    `db:"id" json:"id"`
	RoomID         uuid.UUID    `db:"room_id" json:"room_id"`
	UserID         uuid.UUID    `db:"user_id" json:"user_id"`
	Nickname       string       `db:"nickname" json:"nickname"`
	Color          string       `db:"color" json:"color"`
	CurrentBalance int64        `db:"current_balance" json:"current_balance"`
	IsBankOperator bool         `db:"is_bank_operator" json:"is_bank_operator"`
	Status         PlayerStatus `db:"status" json:"status"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
}

// PlayerStatus marks whether a seat is still in the game. Unlike the room
// lifecycle this is reversible: the operator may revive a defeated player.
type PlayerStatus string

const (
	PlayerStatusActive   PlayerStatus = "active"
	PlayerStatusDefeated PlayerStatus = "defeated"
)

// TransactionType categorizes a ledger entry by the direction money moves.
type TransactionType string

const (
	TxTypeBankToPlayer   TransactionType = "bank_to_player"
	TxTypePlayerToBank   TransactionType = "player_to_bank"
	TxTypePlayerToPlayer TransactionType = "player_to_player"
	TxTypePotIn          TransactionType = "pot_in"
	TxTypePotOut         TransactionType = "pot_out"
	TxTypeReversal       TransactionType = "reversal"
)

// Transaction is an immutable, append-only ledger entry. The bank side of a
// movement is represented by a nil player reference, never a sentinel player.
type Transaction struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	RoomID       uuid.UUID       `db:"room_id" json:"room_id"`
	Type         TransactionType `db:"type" json:"type"`
	Amount       int64           `db:"amount" json:"amount"`
	FromPlayerID *uuid.UUID      `db:"from_player_id" json:"from_player_id,omitempty"`
	ToPlayerID   *uuid.UUID      `db:"to_player_id" json:"to_player_id,omitempty"`
	Description  string          `db:"description" json:"description"`
	Reverses     *uuid.UUID      `db:"reverses_transaction_id" json:"reverses_transaction_id,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// LoanStatus is the loan lifecycle state.
type LoanStatus string

const (
	LoanStatusActive LoanStatus = "active"
	LoanStatusPaid   LoanStatus = "paid"
)

// Loan tracks bank-operator-extended credit to a player. Amount is the
// outstanding balance: it only decreases via repayments, floored at zero.
type Loan struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	RoomID      uuid.UUID  `db:"room_id" json:"room_id"`
	PlayerID    uuid.UUID  `db:"player_id" json:"player_id"`
	Amount      int64      `db:"amount" json:"amount"`
	Description string     `db:"description" json:"description"`
	Status      LoanStatus `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// RequestStatus is the payment request state. pending is the only
// non-terminal state; accepted and rejected admit no further transitions.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusRejected RequestStatus = "rejected"
)

// PaymentRequest is a proposed, not-yet-executed transfer. A nil ToPlayerID
// means the request is open: any player who redeems its capability (e.g.
// via QR) may accept it and becomes the bound payer.
type PaymentRequest struct {
	ID           uuid.UUID     `db:"id" json:"id"`
	RoomID       uuid.UUID     `db:"room_id" json:"room_id"`
	FromPlayerID uuid.UUID     `db:"from_player_id" json:"from_player_id"`
	ToPlayerID   *uuid.UUID    `db:"to_player_id" json:"to_player_id,omitempty"`
	Amount       int64         `db:"amount" json:"amount"`
	Description  string        `db:"description" json:"description"`
	Status       RequestStatus `db:"status" json:"status"`
	ResolvedBy   *uuid.UUID    `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt   *time.Time    `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}

// GameEventType tags the payload shape of a GameEvent.
type GameEventType string

const (
	EventTypeDiceRoll GameEventType = "dice_roll"
)

// GameEvent is an auxiliary append-only record sharing the activity feed's
// ordering model but not part of the monetary ledger. The payload is stored
// as JSON and is authoritative for historical display; room configuration
// may have changed since the event was recorded.
type GameEvent struct {
	ID        uuid.UUID     `db:"id" json:"id"`
	RoomID    uuid.UUID     `db:"room_id" json:"room_id"`
	PlayerID  uuid.UUID     `db:"player_id" json:"player_id"`
	EventType GameEventType `db:"event_type" json:"event_type"`
	Payload   []byte        `db:"payload" json:"payload"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// DiceRollPayload is the fixed payload shape for dice_roll events. Sides is
// captured at roll time so history renders correctly even if the room's
// dice configuration changes.
type DiceRollPayload struct {
	Roll  int `json:"roll"`
	Sides int `json:"sides"`
}
