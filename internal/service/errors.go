// Package service provides business logic implementations.
package service

import "errors"

// Error taxonomy surfaced to callers. Failures never partially apply: a
// rejected operation leaves state exactly as it was before the attempt.
var (
	// Lookup misses.
	ErrRoomNotFound        = errors.New("room not found")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrLoanNotFound        = errors.New("loan not found")
	ErrRequestNotFound     = errors.New("payment request not found")
	ErrTransactionNotFound = errors.New("transaction not found")

	// Authorization.
	ErrNotAuthorized = errors.New("caller is not permitted to perform this action")

	// Invalid state.
	ErrRoomNotJoinable  = errors.New("room is not accepting new players")
	ErrInvalidStatus    = errors.New("operation not valid in current state")
	ErrAlreadyProcessed = errors.New("payment request already processed")
	ErrAlreadyReversed  = errors.New("transaction already reversed")

	// Overdraft protection.
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientPotFunds = errors.New("insufficient funds in shared pot")

	// Validation.
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrSelfTransfer           = errors.New("cannot transfer to self")
	ErrColorTaken             = errors.New("color already taken in this room")
	ErrNotEnoughPlayers       = errors.New("at least two players required to start")
	ErrLoanOverpayment        = errors.New("repayment exceeds outstanding loan amount")
	ErrInvalidDiceSides       = errors.New("dice must have at least two sides")
	ErrMissingField           = errors.New("required field missing")
)
