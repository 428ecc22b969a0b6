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

// ErrLoanNotFound is returned when a loan lookup misses.
var ErrLoanNotFound = errors.New("loan not found")

// LoanRepository handles loan persistence.
type LoanRepository struct {
	pool *pgxpool.Pool
}

// NewLoanRepository creates a new LoanRepository instance.
func NewLoanRepository(pool *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{pool: pool}
}

const loanColumns = `id, room_id, player_id, amount, description, status, created_at, updated_at`

func scanLoan(row pgx.Row) (*model.Loan, error) {
	var l model.Loan
	err := row.Scan(
		&l.ID,
		&l.RoomID,
		&l.PlayerID,
		&l.Amount,
		&l.Description,
		&l.Status,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts a loan record inside the caller's transaction, paired with
// the funding ledger entry so neither exists without the other.
func (r *LoanRepository) Create(ctx context.Context, tx pgx.Tx, loan *model.Loan) (*model.Loan, error) {
	const query = `
		INSERT INTO loans (id, room_id, player_id, amount, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING ` + loanColumns

	created, err := scanLoan(tx.QueryRow(ctx, query,
		loan.ID, loan.RoomID, loan.PlayerID, loan.Amount, loan.Description, loan.Status,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create loan: %w", err)
	}
	return created, nil
}

// GetByID retrieves a loan by ID.
func (r *LoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Loan, error) {
	const query = `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`

	loan, err := scanLoan(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return loan, nil
}

// GetByIDForUpdate retrieves a loan with a row lock inside the caller's
// transaction. Repayments read outstanding, debit the player, then write
// the decremented amount; the row lock keeps concurrent repayments from
// both reading the same outstanding value.
func (r *LoanRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Loan, error) {
	const query = `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`

	loan, err := scanLoan(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return loan, nil
}

// SetOutstanding writes the new outstanding amount and status inside the
// caller's transaction.
func (r *LoanRepository) SetOutstanding(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64, status model.LoanStatus) (*model.Loan, error) {
	const query = `
		UPDATE loans SET amount = $2, status = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + loanColumns

	loan, err := scanLoan(tx.QueryRow(ctx, query, id, amount, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("failed to update loan: %w", err)
	}
	return loan, nil
}

// ListActiveByRoom retrieves the room's unpaid loans, oldest first.
func (r *LoanRepository) ListActiveByRoom(ctx context.Context, roomID uuid.UUID) ([]*model.Loan, error) {
	const query = `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE room_id = $1 AND status = $2
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, roomID, model.LoanStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()

	var loans []*model.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, loan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating loans: %w", err)
	}

	return loans, nil
}
