package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"banko/internal/model"
	"banko/internal/notifier"
	"banko/internal/pkg/lock"
	"banko/internal/repository"
)

// LedgerService is the authoritative state-transition function for money
// movement. Every operation is a single atomic unit: source debit,
// destination credit, pot adjustment and the ledger append all commit
// together or not at all.
type LedgerService struct {
	pool       *pgxpool.Pool
	roomRepo   *repository.RoomRepository
	playerRepo *repository.PlayerRepository
	txRepo     *repository.TransactionRepository
	locks      *lock.RoomLock
	notifier   notifier.Notifier
}

// NewLedgerService creates a new LedgerService instance.
func NewLedgerService(
	pool *pgxpool.Pool,
	roomRepo *repository.RoomRepository,
	playerRepo *repository.PlayerRepository,
	txRepo *repository.TransactionRepository,
	locks *lock.RoomLock,
	n notifier.Notifier,
) *LedgerService {
	return &LedgerService{
		pool:       pool,
		roomRepo:   roomRepo,
		playerRepo: playerRepo,
		txRepo:     txRepo,
		locks:      locks,
		notifier:   n,
	}
}

// CreateTransactionParams carries transaction input. The bank side of a
// movement is the absent player reference.
type CreateTransactionParams struct {
	RoomID       uuid.UUID
	Type         model.TransactionType
	Amount       int64
	Description  string
	FromPlayerID *uuid.UUID
	ToPlayerID   *uuid.UUID
}

// CreateTransaction validates, authorizes and commits a money movement.
// Reversals are not accepted here; use Reverse, which derives the
// compensating entry from the original.
func (s *LedgerService) CreateTransaction(ctx context.Context, userID uuid.UUID, p CreateTransactionParams) (*model.Transaction, error) {
	if p.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	room, caller, err := s.resolveCaller(ctx, p.RoomID, userID)
	if err != nil {
		return nil, err
	}
	if room.Status != model.RoomStatusInProgress {
		return nil, ErrInvalidStatus
	}

	from := model.PartyFromRef(p.FromPlayerID)
	to := model.PartyFromRef(p.ToPlayerID)

	if err := s.checkShape(p.Type, from, to); err != nil {
		return nil, err
	}
	if err := s.authorize(caller, p.Type, from); err != nil {
		return nil, err
	}
	if err := s.checkMembership(ctx, room.ID, from, to); err != nil {
		return nil, err
	}

	t := &model.Transaction{
		ID:           uuid.New(),
		RoomID:       room.ID,
		Type:         p.Type,
		Amount:       p.Amount,
		FromPlayerID: from.Ref(),
		ToPlayerID:   to.Ref(),
		Description:  p.Description,
	}

	committed, err := s.commit(ctx, room.ID, t)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, room.ID, committed)
	return committed, nil
}

// Reverse issues an equal-and-opposite compensating transaction for a
// prior entry. A transaction may be reversed at most once, and a reversal
// itself cannot be reversed.
func (s *LedgerService) Reverse(ctx context.Context, userID uuid.UUID, roomID, transactionID uuid.UUID, description string) (*model.Transaction, error) {
	room, caller, err := s.resolveCaller(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if room.Status != model.RoomStatusInProgress {
		return nil, ErrInvalidStatus
	}
	if !caller.IsBankOperator {
		return nil, ErrNotAuthorized
	}

	orig, err := s.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	if orig.RoomID != room.ID {
		return nil, ErrTransactionNotFound
	}
	if orig.Type == model.TxTypeReversal {
		return nil, ErrInvalidStatus
	}

	reversed, err := s.txRepo.IsReversed(ctx, orig.ID)
	if err != nil {
		return nil, err
	}
	if reversed {
		return nil, ErrAlreadyReversed
	}

	if description == "" {
		description = fmt.Sprintf("Reversal: %s", orig.Description)
	}

	revFrom, revTo := inverseParties(orig)
	t := &model.Transaction{
		ID:           uuid.New(),
		RoomID:       room.ID,
		Type:         model.TxTypeReversal,
		Amount:       orig.Amount,
		FromPlayerID: revFrom.Ref(),
		ToPlayerID:   revTo.Ref(),
		Description:  description,
		Reverses:     &orig.ID,
	}

	committed, err := s.commitReversal(ctx, room.ID, orig, t)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, room.ID, committed)
	return committed, nil
}

// PaySalary credits a player with the room's configured salary amount.
// Operator-only; passing "Go" is a bank mint like any other.
func (s *LedgerService) PaySalary(ctx context.Context, userID uuid.UUID, roomID, toPlayerID uuid.UUID) (*model.Transaction, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	if room.SalaryAmount <= 0 {
		return nil, ErrInvalidAmount
	}

	return s.CreateTransaction(ctx, userID, CreateTransactionParams{
		RoomID:      roomID,
		Type:        model.TxTypeBankToPlayer,
		Amount:      room.SalaryAmount,
		Description: "Salary",
		ToPlayerID:  &toPlayerID,
	})
}

// checkShape verifies the party layout required by each transaction type.
func (s *LedgerService) checkShape(txType model.TransactionType, from, to model.Party) error {
	switch txType {
	case model.TxTypeBankToPlayer:
		if to.IsBank() || !from.IsBank() {
			return ErrMissingField
		}
	case model.TxTypePlayerToBank, model.TxTypePotIn:
		if from.IsBank() || !to.IsBank() {
			return ErrMissingField
		}
	case model.TxTypePotOut:
		if to.IsBank() || !from.IsBank() {
			return ErrMissingField
		}
	case model.TxTypePlayerToPlayer:
		if from.IsBank() || to.IsBank() {
			return ErrMissingField
		}
		fromID, _ := from.PlayerID()
		toID, _ := to.PlayerID()
		if fromID == toID {
			return ErrSelfTransfer
		}
	default:
		return ErrInvalidTransactionType
	}
	return nil
}

// authorize enforces operator privileges server-side. Minting and pot
// withdrawal are operator-only; for player-sourced movements the operator
// may act on any player's behalf, everyone else only on their own seat.
func (s *LedgerService) authorize(caller *model.Player, txType model.TransactionType, from model.Party) error {
	if caller.IsBankOperator {
		return nil
	}
	switch txType {
	case model.TxTypeBankToPlayer, model.TxTypePotOut:
		return ErrNotAuthorized
	default:
		fromID, ok := from.PlayerID()
		if !ok || fromID != caller.ID {
			return ErrNotAuthorized
		}
	}
	return nil
}

// checkMembership verifies that every player party holds a seat in the room.
func (s *LedgerService) checkMembership(ctx context.Context, roomID uuid.UUID, parties ...model.Party) error {
	for _, party := range parties {
		id, ok := party.PlayerID()
		if !ok {
			continue
		}
		player, err := s.playerRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrPlayerNotFound) {
				return ErrPlayerNotFound
			}
			return err
		}
		if player.RoomID != roomID {
			return ErrPlayerNotFound
		}
	}
	return nil
}

// commit applies the movement and appends the ledger entry atomically,
// serialized per room.
func (s *LedgerService) commit(ctx context.Context, roomID uuid.UUID, t *model.Transaction) (*model.Transaction, error) {
	var committed *model.Transaction
	err := s.locks.WithLock(roomID, func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := s.applyMovement(ctx, tx, t); err != nil {
			return err
		}

		committed, err = s.txRepo.Insert(ctx, tx, t)
		if err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

// applyMovement performs the balance and pot adjustments for a ledger
// entry inside the caller's database transaction.
func (s *LedgerService) applyMovement(ctx context.Context, tx pgx.Tx, t *model.Transaction) error {
	switch t.Type {
	case model.TxTypeBankToPlayer:
		return s.credit(ctx, tx, *t.ToPlayerID, t.Amount)
	case model.TxTypePlayerToBank:
		return s.debit(ctx, tx, *t.FromPlayerID, t.Amount)
	case model.TxTypePlayerToPlayer:
		if err := s.debit(ctx, tx, *t.FromPlayerID, t.Amount); err != nil {
			return err
		}
		return s.credit(ctx, tx, *t.ToPlayerID, t.Amount)
	case model.TxTypePotIn:
		if err := s.debit(ctx, tx, *t.FromPlayerID, t.Amount); err != nil {
			return err
		}
		return s.creditPot(ctx, tx, t.RoomID, t.Amount)
	case model.TxTypePotOut:
		if err := s.debitPot(ctx, tx, t.RoomID, t.Amount); err != nil {
			return err
		}
		return s.credit(ctx, tx, *t.ToPlayerID, t.Amount)
	default:
		return ErrInvalidTransactionType
	}
}

// commitReversal applies the inverse movement of the original entry and
// appends the reversal atomically. The unique constraint on the reversal
// link is the concurrent backstop for the IsReversed pre-check.
func (s *LedgerService) commitReversal(ctx context.Context, roomID uuid.UUID, orig, t *model.Transaction) (*model.Transaction, error) {
	var committed *model.Transaction
	err := s.locks.WithLock(roomID, func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := s.applyInverse(ctx, tx, orig); err != nil {
			return err
		}

		committed, err = s.txRepo.Insert(ctx, tx, t)
		if err != nil {
			if errors.Is(err, repository.ErrAlreadyReversed) {
				return ErrAlreadyReversed
			}
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

// applyInverse undoes the original entry's movement. Debits remain
// conditional: if the recipient has since spent the funds, the reversal
// fails with ErrInsufficientFunds rather than driving a balance negative.
func (s *LedgerService) applyInverse(ctx context.Context, tx pgx.Tx, orig *model.Transaction) error {
	switch orig.Type {
	case model.TxTypeBankToPlayer:
		return s.debit(ctx, tx, *orig.ToPlayerID, orig.Amount)
	case model.TxTypePlayerToBank:
		return s.credit(ctx, tx, *orig.FromPlayerID, orig.Amount)
	case model.TxTypePlayerToPlayer:
		if err := s.debit(ctx, tx, *orig.ToPlayerID, orig.Amount); err != nil {
			return err
		}
		return s.credit(ctx, tx, *orig.FromPlayerID, orig.Amount)
	case model.TxTypePotIn:
		if err := s.debitPot(ctx, tx, orig.RoomID, orig.Amount); err != nil {
			return err
		}
		return s.credit(ctx, tx, *orig.FromPlayerID, orig.Amount)
	case model.TxTypePotOut:
		if err := s.debit(ctx, tx, *orig.ToPlayerID, orig.Amount); err != nil {
			return err
		}
		return s.creditPot(ctx, tx, orig.RoomID, orig.Amount)
	default:
		return ErrInvalidTransactionType
	}
}

// inverseParties derives the reversal entry's recorded direction from the
// original. Pot-side movements keep the bank-absent shape their own type
// uses, mirrored.
func inverseParties(orig *model.Transaction) (from, to model.Party) {
	return model.PartyFromRef(orig.ToPlayerID), model.PartyFromRef(orig.FromPlayerID)
}

func (s *LedgerService) debit(ctx context.Context, tx pgx.Tx, playerID uuid.UUID, amount int64) error {
	err := s.playerRepo.Debit(ctx, tx, playerID, amount)
	switch {
	case errors.Is(err, repository.ErrInsufficientBalance):
		return ErrInsufficientFunds
	case errors.Is(err, repository.ErrPlayerNotFound):
		return ErrPlayerNotFound
	default:
		return err
	}
}

func (s *LedgerService) credit(ctx context.Context, tx pgx.Tx, playerID uuid.UUID, amount int64) error {
	err := s.playerRepo.Credit(ctx, tx, playerID, amount)
	if errors.Is(err, repository.ErrPlayerNotFound) {
		return ErrPlayerNotFound
	}
	return err
}

func (s *LedgerService) creditPot(ctx context.Context, tx pgx.Tx, roomID uuid.UUID, amount int64) error {
	err := s.roomRepo.CreditPot(ctx, tx, roomID, amount)
	if errors.Is(err, repository.ErrRoomNotFound) {
		return ErrRoomNotFound
	}
	return err
}

func (s *LedgerService) debitPot(ctx context.Context, tx pgx.Tx, roomID uuid.UUID, amount int64) error {
	err := s.roomRepo.DebitPot(ctx, tx, roomID, amount)
	switch {
	case errors.Is(err, repository.ErrInsufficientPot):
		return ErrInsufficientPotFunds
	case errors.Is(err, repository.ErrRoomNotFound):
		return ErrRoomNotFound
	default:
		return err
	}
}

// resolveCaller loads the room and the caller's seat in it.
func (s *LedgerService) resolveCaller(ctx context.Context, roomID, userID uuid.UUID) (*model.Room, *model.Player, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, nil, ErrRoomNotFound
		}
		return nil, nil, err
	}

	caller, err := s.playerRepo.GetByRoomAndUser(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return nil, nil, ErrNotAuthorized
		}
		return nil, nil, err
	}
	return room, caller, nil
}

// publish emits the committed entry plus fresh reads of every row the
// movement touched. Display reads are eventually consistent; these events
// only prompt clients to re-render, never to authorize.
func (s *LedgerService) publish(ctx context.Context, roomID uuid.UUID, t *model.Transaction) {
	s.notifier.Publish(notifier.Event{Kind: notifier.KindTransactionCommitted, RoomID: roomID, Data: t})

	for _, ref := range []*uuid.UUID{t.FromPlayerID, t.ToPlayerID} {
		if ref == nil {
			continue
		}
		player, err := s.playerRepo.GetByID(ctx, *ref)
		if err != nil {
			log.Warn().Err(err).Str("player_id", ref.String()).Msg("Failed to load player for notification")
			continue
		}
		s.notifier.Publish(notifier.Event{Kind: notifier.KindPlayerUpdated, RoomID: roomID, Data: player})
	}

	if t.Type == model.TxTypePotIn || t.Type == model.TxTypePotOut || t.Reverses != nil {
		room, err := s.roomRepo.GetByID(ctx, roomID)
		if err != nil {
			log.Warn().Err(err).Str("room_id", roomID.String()).Msg("Failed to load room for notification")
			return
		}
		s.notifier.Publish(notifier.Event{Kind: notifier.KindRoomUpdated, RoomID: roomID, Data: room})
	}
}
