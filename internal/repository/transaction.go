package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"banko/internal/model"
)

// Transaction-related errors.
var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAlreadyReversed     = errors.New("transaction already reversed")
)

// TransactionRepository handles the append-only ledger. Rows are never
// updated or deleted once written.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

const txColumns = `id, room_id, type, amount, from_player_id, to_player_id,
		description, reverses_transaction_id, created_at`

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var t model.Transaction
	err := row.Scan(
		&t.ID,
		&t.RoomID,
		&t.Type,
		&t.Amount,
		&t.FromPlayerID,
		&t.ToPlayerID,
		&t.Description,
		&t.Reverses,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Insert appends a ledger entry inside the caller's transaction. The unique
// constraint on reverses_transaction_id is the backstop that keeps a prior
// entry from being reversed twice by concurrent callers.
func (r *TransactionRepository) Insert(ctx context.Context, tx pgx.Tx, t *model.Transaction) (*model.Transaction, error) {
	const query = `
		INSERT INTO transactions (id, room_id, type, amount, from_player_id, to_player_id,
			description, reverses_transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING ` + txColumns

	created, err := scanTransaction(tx.QueryRow(ctx, query,
		t.ID, t.RoomID, t.Type, t.Amount, t.FromPlayerID, t.ToPlayerID,
		t.Description, t.Reverses,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrAlreadyReversed
		}
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return created, nil
}

// GetByID retrieves a single ledger entry.
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	const query = `SELECT ` + txColumns + ` FROM transactions WHERE id = $1`

	t, err := scanTransaction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// ListByRoom retrieves the most recent ledger entries for a room, newest
// first. The feed never needs unbounded history.
func (r *TransactionRepository) ListByRoom(ctx context.Context, roomID uuid.UUID, limit int) ([]*model.Transaction, error) {
	const query = `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE room_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// IsReversed reports whether a reversal entry already references the given
// transaction.
func (r *TransactionRepository) IsReversed(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM transactions WHERE reverses_transaction_id = $1)`

	var reversed bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&reversed); err != nil {
		return false, fmt.Errorf("failed to check reversal: %w", err)
	}
	return reversed, nil
}

// SumByRoomAndType returns the total amount across all entries of one type
// in a room. Used to verify the pot identity and conservation checks.
func (r *TransactionRepository) SumByRoomAndType(ctx context.Context, roomID uuid.UUID, txType model.TransactionType) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE room_id = $1 AND type = $2
	`

	var total int64
	if err := r.pool.QueryRow(ctx, query, roomID, txType).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return total, nil
}
