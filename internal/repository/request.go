package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"banko/internal/model"
)

// ErrRequestNotFound is returned when a payment request lookup misses.
var ErrRequestNotFound = errors.New("payment request not found")

// RequestRepository handles payment request persistence.
type RequestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository creates a new RequestRepository instance.
func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

const requestColumns = `id, room_id, from_player_id, to_player_id, amount, description,
		status, resolved_by, resolved_at, created_at`

func scanRequest(row pgx.Row) (*model.PaymentRequest, error) {
	var pr model.PaymentRequest
	err := row.Scan(
		&pr.ID,
		&pr.RoomID,
		&pr.FromPlayerID,
		&pr.ToPlayerID,
		&pr.Amount,
		&pr.Description,
		&pr.Status,
		&pr.ResolvedBy,
		&pr.ResolvedAt,
		&pr.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pr, nil
}

// Create inserts a pending payment request.
func (r *RequestRepository) Create(ctx context.Context, req *model.PaymentRequest) (*model.PaymentRequest, error) {
	const query = `
		INSERT INTO payment_requests (id, room_id, from_player_id, to_player_id, amount,
			description, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING ` + requestColumns

	created, err := scanRequest(r.pool.QueryRow(ctx, query,
		req.ID, req.RoomID, req.FromPlayerID, req.ToPlayerID, req.Amount,
		req.Description, req.Status,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create payment request: %w", err)
	}
	return created, nil
}

// GetByID retrieves a payment request by ID.
func (r *RequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PaymentRequest, error) {
	const query = `SELECT ` + requestColumns + ` FROM payment_requests WHERE id = $1`

	req, err := scanRequest(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get payment request: %w", err)
	}
	return req, nil
}

// Resolve flips a pending request to its terminal state inside the caller's
// transaction, binding the responder as the payer. The update is
// conditional on the request still being pending: of two concurrent
// responders the first to commit wins and the other sees nil, false.
func (r *RequestRepository) Resolve(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.RequestStatus, responderID uuid.UUID) (*model.PaymentRequest, bool, error) {
	const query = `
		UPDATE payment_requests
		SET status = $2, to_player_id = COALESCE(to_player_id, $3), resolved_by = $3, resolved_at = NOW()
		WHERE id = $1 AND status = $4
		RETURNING ` + requestColumns

	req, err := scanRequest(tx.QueryRow(ctx, query, id, status, responderID, model.RequestStatusPending))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to resolve payment request: %w", err)
	}
	return req, true, nil
}

// ListPendingByRoom retrieves a room's unresolved requests, newest first.
func (r *RequestRepository) ListPendingByRoom(ctx context.Context, roomID uuid.UUID) ([]*model.PaymentRequest, error) {
	const query = `
		SELECT ` + requestColumns + `
		FROM payment_requests
		WHERE room_id = $1 AND status = $2
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, roomID, model.RequestStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment requests: %w", err)
	}
	defer rows.Close()

	var requests []*model.PaymentRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment requests: %w", err)
	}

	return requests, nil
}
