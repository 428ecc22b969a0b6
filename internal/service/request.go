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

// RequestService runs the payment request workflow: a small state machine
// layered on the ledger. pending -> accepted and pending -> rejected are
// the only transitions, both terminal.
type RequestService struct {
	pool        *pgxpool.Pool
	roomRepo    *repository.RoomRepository
	playerRepo  *repository.PlayerRepository
	txRepo      *repository.TransactionRepository
	requestRepo *repository.RequestRepository
	locks       *lock.RoomLock
	notifier    notifier.Notifier
}

// NewRequestService creates a new RequestService instance.
func NewRequestService(
	pool *pgxpool.Pool,
	roomRepo *repository.RoomRepository,
	playerRepo *repository.PlayerRepository,
	txRepo *repository.TransactionRepository,
	requestRepo *repository.RequestRepository,
	locks *lock.RoomLock,
	n notifier.Notifier,
) *RequestService {
	return &RequestService{
		pool:        pool,
		roomRepo:    roomRepo,
		playerRepo:  playerRepo,
		txRepo:      txRepo,
		requestRepo: requestRepo,
		locks:       locks,
		notifier:    n,
	}
}

// CreatePaymentRequest solicits money from another player, or from anyone
// when toPlayerID is nil (an open request redeemable via its capability,
// e.g. a QR code).
func (s *RequestService) CreatePaymentRequest(ctx context.Context, userID uuid.UUID, roomID uuid.UUID, toPlayerID *uuid.UUID, amount int64, description string) (*model.PaymentRequest, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	room, requester, err := s.resolveCaller(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if room.Status != model.RoomStatusInProgress {
		return nil, ErrInvalidStatus
	}

	if toPlayerID != nil {
		if *toPlayerID == requester.ID {
			return nil, ErrSelfTransfer
		}
		target, err := s.playerRepo.GetByID(ctx, *toPlayerID)
		if err != nil {
			if errors.Is(err, repository.ErrPlayerNotFound) {
				return nil, ErrPlayerNotFound
			}
			return nil, err
		}
		if target.RoomID != room.ID {
			return nil, ErrPlayerNotFound
		}
	}

	req, err := s.requestRepo.Create(ctx, &model.PaymentRequest{
		ID:           uuid.New(),
		RoomID:       room.ID,
		FromPlayerID: requester.ID,
		ToPlayerID:   toPlayerID,
		Amount:       amount,
		Description:  description,
		Status:       model.RequestStatusPending,
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(notifier.Event{Kind: notifier.KindRequestCreated, RoomID: room.ID, Data: req})
	return req, nil
}

// RespondToPaymentRequest resolves a pending request exactly once. The
// status flip is conditional on the request still being pending, and for
// an accept the transfer runs in the same database transaction: if the
// responder cannot cover the amount, the flip rolls back with the funds
// untouched and the request stays pending. Of two concurrent responders to
// an open request, the first to commit becomes the bound payer and the
// other observes ErrAlreadyProcessed.
func (s *RequestService) RespondToPaymentRequest(ctx context.Context, userID uuid.UUID, roomID, requestID uuid.UUID, accept bool) (*model.PaymentRequest, *model.Transaction, error) {
	room, responder, err := s.resolveCaller(ctx, roomID, userID)
	if err != nil {
		return nil, nil, err
	}
	if room.Status != model.RoomStatusInProgress {
		return nil, nil, ErrInvalidStatus
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrRequestNotFound) {
			return nil, nil, ErrRequestNotFound
		}
		return nil, nil, err
	}
	if req.RoomID != room.ID {
		return nil, nil, ErrRequestNotFound
	}
	if req.FromPlayerID == responder.ID {
		return nil, nil, ErrSelfTransfer
	}
	if req.ToPlayerID != nil && *req.ToPlayerID != responder.ID {
		return nil, nil, ErrNotAuthorized
	}

	status := model.RequestStatusRejected
	if accept {
		status = model.RequestStatusAccepted
	}

	var (
		resolved *model.PaymentRequest
		transfer *model.Transaction
	)
	err = s.locks.WithLock(room.ID, func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		resolved, _, err = s.requestRepo.Resolve(ctx, tx, requestID, status, responder.ID)
		if err != nil {
			return err
		}
		if resolved == nil {
			return ErrAlreadyProcessed
		}

		if accept {
			if err := s.playerRepo.Debit(ctx, tx, responder.ID, req.Amount); err != nil {
				if errors.Is(err, repository.ErrInsufficientBalance) {
					return ErrInsufficientFunds
				}
				return err
			}
			if err := s.playerRepo.Credit(ctx, tx, req.FromPlayerID, req.Amount); err != nil {
				return err
			}

			description := req.Description
			if description == "" {
				description = "Payment request"
			}
			transfer, err = s.txRepo.Insert(ctx, tx, &model.Transaction{
				ID:           uuid.New(),
				RoomID:       room.ID,
				Type:         model.TxTypePlayerToPlayer,
				Amount:       req.Amount,
				FromPlayerID: &responder.ID,
				ToPlayerID:   &req.FromPlayerID,
				Description:  description,
			})
			if err != nil {
				return err
			}
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, nil, err
	}

	s.publishResolution(ctx, room.ID, resolved, transfer)
	return resolved, transfer, nil
}

// PendingRequests retrieves a room's unresolved requests.
func (s *RequestService) PendingRequests(ctx context.Context, roomID uuid.UUID) ([]*model.PaymentRequest, error) {
	return s.requestRepo.ListPendingByRoom(ctx, roomID)
}

// GetRequest retrieves a single request, e.g. for rendering an open
// request's capability page before the scanner decides.
func (s *RequestService) GetRequest(ctx context.Context, roomID, requestID uuid.UUID) (*model.PaymentRequest, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrRequestNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if req.RoomID != roomID {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

func (s *RequestService) resolveCaller(ctx context.Context, roomID, userID uuid.UUID) (*model.Room, *model.Player, error) {
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

func (s *RequestService) publishResolution(ctx context.Context, roomID uuid.UUID, req *model.PaymentRequest, transfer *model.Transaction) {
	s.notifier.Publish(notifier.Event{Kind: notifier.KindRequestResolved, RoomID: roomID, Data: req})

	if transfer == nil {
		return
	}
	s.notifier.Publish(notifier.Event{Kind: notifier.KindTransactionCommitted, RoomID: roomID, Data: transfer})
	for _, ref := range []*uuid.UUID{transfer.FromPlayerID, transfer.ToPlayerID} {
		if ref == nil {
			continue
		}
		if player, err := s.playerRepo.GetByID(ctx, *ref); err == nil {
			s.notifier.Publish(notifier.Event{Kind: notifier.KindPlayerUpdated, RoomID: roomID, Data: player})
		}
	}
}
