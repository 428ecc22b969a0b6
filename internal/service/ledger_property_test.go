// Property-based tests for ledger movement semantics.
package service

import (
	"testing"

	"pgregory.net/rapid"

	"banko/internal/model"
)

// tableState is a simulated room: two player balances plus the shared pot.
// The bank is an infinite reservoir and is not part of the state.
type tableState struct {
	A   int64
	B   int64
	Pot int64
}

func (s tableState) circulating() int64 {
	return s.A + s.B + s.Pot
}

// simulateMovement mirrors the validation and balance effects of a single
// ledger movement where A is the source-side player and B the target-side
// player. It returns the resulting state and whether the movement applied.
func simulateMovement(s tableState, txType model.TransactionType, amount int64) (tableState, bool) {
	if amount <= 0 {
		return s, false
	}
	switch txType {
	case model.TxTypeBankToPlayer:
		s.B += amount
		return s, true
	case model.TxTypePlayerToBank:
		if s.A < amount {
			return s, false
		}
		s.A -= amount
		return s, true
	case model.TxTypePlayerToPlayer:
		if s.A < amount {
			return s, false
		}
		s.A -= amount
		s.B += amount
		return s, true
	case model.TxTypePotIn:
		if s.A < amount {
			return s, false
		}
		s.A -= amount
		s.Pot += amount
		return s, true
	case model.TxTypePotOut:
		if s.Pot < amount {
			return s, false
		}
		s.Pot -= amount
		s.B += amount
		return s, true
	}
	return s, false
}

// simulateInverse mirrors the balance effects of reversing a committed
// movement: the inverse type runs with source and target roles swapped,
// under the same insufficient-funds checks.
func simulateInverse(s tableState, txType model.TransactionType, amount int64) (tableState, bool) {
	var inverse model.TransactionType
	switch txType {
	case model.TxTypeBankToPlayer:
		inverse = model.TxTypePlayerToBank
	case model.TxTypePlayerToBank:
		inverse = model.TxTypeBankToPlayer
	case model.TxTypePlayerToPlayer:
		inverse = model.TxTypePlayerToPlayer
	case model.TxTypePotIn:
		inverse = model.TxTypePotOut
	case model.TxTypePotOut:
		inverse = model.TxTypePotIn
	default:
		return s, false
	}

	swapped := tableState{A: s.B, B: s.A, Pot: s.Pot}
	result, ok := simulateMovement(swapped, inverse, amount)
	return tableState{A: result.B, B: result.A, Pot: result.Pot}, ok
}

var movementTypes = []model.TransactionType{
	model.TxTypeBankToPlayer,
	model.TxTypePlayerToBank,
	model.TxTypePlayerToPlayer,
	model.TxTypePotIn,
	model.TxTypePotOut,
}

// TestMovementConservationProperty checks that internal movements conserve
// the circulating total, and bank-boundary movements change it by exactly
// the movement amount.
func TestMovementConservationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		state := tableState{
			A:   rapid.Int64Range(0, 1000000).Draw(t, "balanceA"),
			B:   rapid.Int64Range(0, 1000000).Draw(t, "balanceB"),
			Pot: rapid.Int64Range(0, 1000000).Draw(t, "pot"),
		}
		amount := rapid.Int64Range(1, 1000000).Draw(t, "amount")
		txType := rapid.SampledFrom(movementTypes).Draw(t, "txType")

		before := state.circulating()
		after, applied := simulateMovement(state, txType, amount)

		if !applied {
			if after != state {
				t.Fatalf("rejected movement changed state: %+v -> %+v", state, after)
			}
			return
		}

		switch txType {
		case model.TxTypeBankToPlayer:
			if after.circulating() != before+amount {
				t.Fatalf("mint should add %d to circulation: before=%d after=%d", amount, before, after.circulating())
			}
		case model.TxTypePlayerToBank:
			if after.circulating() != before-amount {
				t.Fatalf("burn should remove %d from circulation: before=%d after=%d", amount, before, after.circulating())
			}
		default:
			if after.circulating() != before {
				t.Fatalf("internal movement must conserve circulation: before=%d after=%d", before, after.circulating())
			}
		}

		if after.A < 0 || after.B < 0 || after.Pot < 0 {
			t.Fatalf("movement drove a balance negative: %+v", after)
		}
	})
}

// TestMovementReversalRoundTripProperty checks that reversing a committed
// movement restores the exact prior state whenever the reversal's own
// funds checks pass; with untouched balances in between they always do.
func TestMovementReversalRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		state := tableState{
			A:   rapid.Int64Range(0, 1000000).Draw(t, "balanceA"),
			B:   rapid.Int64Range(0, 1000000).Draw(t, "balanceB"),
			Pot: rapid.Int64Range(0, 1000000).Draw(t, "pot"),
		}
		amount := rapid.Int64Range(1, 1000000).Draw(t, "amount")
		txType := rapid.SampledFrom(movementTypes).Draw(t, "txType")

		moved, applied := simulateMovement(state, txType, amount)
		if !applied {
			return
		}

		restored, ok := simulateInverse(moved, txType, amount)
		if !ok {
			t.Fatalf("inverse of a just-committed movement must apply: type=%s amount=%d state=%+v", txType, amount, moved)
		}
		if restored != state {
			t.Fatalf("reversal did not restore state: start=%+v end=%+v (type=%s amount=%d)", state, restored, txType, amount)
		}
	})
}

// TestMovementInsufficientFundsProperty checks that a movement whose
// source cannot cover the amount is rejected without touching any balance.
func TestMovementInsufficientFundsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		balance := rapid.Int64Range(0, 1000).Draw(t, "balance")
		amount := rapid.Int64Range(balance+1, balance+100000).Draw(t, "amount")
		state := tableState{A: balance, B: rapid.Int64Range(0, 1000).Draw(t, "balanceB"), Pot: balance}

		for _, txType := range []model.TransactionType{
			model.TxTypePlayerToBank,
			model.TxTypePlayerToPlayer,
			model.TxTypePotIn,
			model.TxTypePotOut,
		} {
			after, applied := simulateMovement(state, txType, amount)
			if applied {
				t.Fatalf("movement %s applied with insufficient funds: balance=%d amount=%d", txType, balance, amount)
			}
			if after != state {
				t.Fatalf("rejected movement %s changed state: %+v -> %+v", txType, state, after)
			}
		}
	})
}
