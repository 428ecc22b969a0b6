package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"banko/internal/model"
	"banko/internal/notifier"
	"banko/internal/pkg/lock"
	"banko/internal/repository"
)

// LoanService manages bank-operator-extended credit. A loan never exists
// without its funding transaction, and vice versa.
type LoanService struct {
	pool       *pgxpool.Pool
	roomRepo   *repository.RoomRepository
	playerRepo *repository.PlayerRepository
	txRepo     *repository.TransactionRepository
	loanRepo   *repository.LoanRepository
	locks      *lock.RoomLock
	notifier   notifier.Notifier
}

// NewLoanService creates a new LoanService instance.
func NewLoanService(
	pool *pgxpool.Pool,
	roomRepo *repository.RoomRepository,
	playerRepo *repository.PlayerRepository,
	txRepo *repository.TransactionRepository,
	loanRepo *repository.LoanRepository,
	locks *lock.RoomLock,
	n notifier.Notifier,
) *LoanService {
	return &LoanService{
		pool:       pool,
		roomRepo:   roomRepo,
		playerRepo: playerRepo,
		txRepo:     txRepo,
		loanRepo:   loanRepo,
		locks:      locks,
		notifier:   n,
	}
}

// CreateLoan issues credit to a player: an active loan record paired
// atomically with a bank_to_player funding transaction. Operator-only.
// Loans are the one sanctioned way a balance later goes negative relative
// to what the player earned.
func (s *LoanService) CreateLoan(ctx context.Context, userID uuid.UUID, roomID, playerID uuid.UUID, amount int64, description string) (*model.Loan, *model.Transaction, error) {
	if amount <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	room, caller, err := s.resolveCaller(ctx, roomID, userID)
	if err != nil {
		return nil, nil, err
	}
	if room.Status != model.RoomStatusInProgress {
		return nil, nil, ErrInvalidStatus
	}
	if !caller.IsBankOperator {
		return nil, nil, ErrNotAuthorized
	}

	borrower, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return nil, nil, ErrPlayerNotFound
		}
		return nil, nil, err
	}
	if borrower.RoomID != room.ID {
		return nil, nil, ErrPlayerNotFound
	}

	var (
		loan    *model.Loan
		funding *model.Transaction
	)
	err = s.locks.WithLock(room.ID, func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		loan, err = s.loanRepo.Create(ctx, tx, &model.Loan{
			ID:          uuid.New(),
			RoomID:      room.ID,
			PlayerID:    playerID,
			Amount:      amount,
			Description: description,
			Status:      model.LoanStatusActive,
		})
		if err != nil {
			return err
		}

		if err := s.playerRepo.Credit(ctx, tx, playerID, amount); err != nil {
			return err
		}

		funding, err = s.txRepo.Insert(ctx, tx, &model.Transaction{
			ID:          uuid.New(),
			RoomID:      room.ID,
			Type:        model.TxTypeBankToPlayer,
			Amount:      amount,
			ToPlayerID:  &playerID,
			Description: fmt.Sprintf("Loan: %s", description),
		})
		if err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, nil, err
	}

	s.publishLoan(ctx, room.ID, loan, funding)
	return loan, funding, nil
}

// RepayLoan pays down an active loan: a player_to_bank transaction subject
// to the normal overdraft check, then the outstanding amount decremented,
// flipping to paid at exactly zero. Repayment above the outstanding amount
// is rejected upfront rather than silently clamped or allowed.
func (s *LoanService) RepayLoan(ctx context.Context, userID uuid.UUID, roomID, loanID uuid.UUID, amount int64) (*model.Loan, *model.Transaction, error) {
	if amount <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	room, caller, err := s.resolveCaller(ctx, roomID, userID)
	if err != nil {
		return nil, nil, err
	}
	if room.Status != model.RoomStatusInProgress {
		return nil, nil, ErrInvalidStatus
	}

	var (
		loan      *model.Loan
		repayment *model.Transaction
	)
	err = s.locks.WithLock(room.ID, func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		current, err := s.loanRepo.GetByIDForUpdate(ctx, tx, loanID)
		if err != nil {
			if errors.Is(err, repository.ErrLoanNotFound) {
				return ErrLoanNotFound
			}
			return err
		}
		if current.RoomID != room.ID {
			return ErrLoanNotFound
		}
		if current.Status != model.LoanStatusActive {
			return ErrInvalidStatus
		}
		if !caller.IsBankOperator && caller.ID != current.PlayerID {
			return ErrNotAuthorized
		}
		if amount > current.Amount {
			return ErrLoanOverpayment
		}

		if err := s.playerRepo.Debit(ctx, tx, current.PlayerID, amount); err != nil {
			if errors.Is(err, repository.ErrInsufficientBalance) {
				return ErrInsufficientFunds
			}
			return err
		}

		repayment, err = s.txRepo.Insert(ctx, tx, &model.Transaction{
			ID:           uuid.New(),
			RoomID:       room.ID,
			Type:         model.TxTypePlayerToBank,
			Amount:       amount,
			FromPlayerID: &current.PlayerID,
			Description:  fmt.Sprintf("Loan repayment: %s", current.Description),
		})
		if err != nil {
			return err
		}

		outstanding := current.Amount - amount
		status := model.LoanStatusActive
		if outstanding == 0 {
			status = model.LoanStatusPaid
		}
		loan, err = s.loanRepo.SetOutstanding(ctx, tx, loanID, outstanding, status)
		if err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, nil, err
	}

	s.publishLoan(ctx, room.ID, loan, repayment)
	return loan, repayment, nil
}

// ActiveLoans retrieves the room's unpaid loans. Paid loans drop out of
// the active view permanently.
func (s *LoanService) ActiveLoans(ctx context.Context, roomID uuid.UUID) ([]*model.Loan, error) {
	return s.loanRepo.ListActiveByRoom(ctx, roomID)
}

func (s *LoanService) resolveCaller(ctx context.Context, roomID, userID uuid.UUID) (*model.Room, *model.Player, error) {
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

func (s *LoanService) publishLoan(ctx context.Context, roomID uuid.UUID, loan *model.Loan, t *model.Transaction) {
	s.notifier.Publish(notifier.Event{Kind: notifier.KindTransactionCommitted, RoomID: roomID, Data: t})

	player, err := s.playerRepo.GetByID(ctx, loan.PlayerID)
	if err == nil {
		s.notifier.Publish(notifier.Event{Kind: notifier.KindPlayerUpdated, RoomID: roomID, Data: player})
	}
}
