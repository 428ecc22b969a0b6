// Package repository provides data access layer implementations.
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

// Common errors for repository operations.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomCodeTaken   = errors.New("room code already in use")
	ErrInsufficientPot = errors.New("shared pot below requested amount")
)

const uniqueViolation = "23505"

// RoomRepository handles room persistence.
type RoomRepository struct {
	pool *pgxpool.Pool
}

// NewRoomRepository creates a new RoomRepository instance.
func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

const roomColumns = `id, room_code, room_name, bank_display_name, initial_player_balance,
		salary_amount, dice_sides, status, shared_pot_balance, created_at`

func scanRoom(row pgx.Row) (*model.Room, error) {
	var room model.Room
	err := row.Scan(
		&room.ID,
		&room.RoomCode,
		&room.RoomName,
		&room.BankDisplayName,
		&room.InitialPlayerBalance,
		&room.SalaryAmount,
		&room.DiceSides,
		&room.Status,
		&room.SharedPotBalance,
		&room.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// Create inserts a new room inside the caller's transaction. Returns
// ErrRoomCodeTaken when the join code collides with a live room so the
// caller can regenerate and retry.
func (r *RoomRepository) Create(ctx context.Context, tx pgx.Tx, room *model.Room) (*model.Room, error) {
	const query = `
		INSERT INTO rooms (id, room_code, room_name, bank_display_name, initial_player_balance,
			salary_amount, dice_sides, status, shared_pot_balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, NOW())
		RETURNING ` + roomColumns

	created, err := scanRoom(tx.QueryRow(ctx, query,
		room.ID, room.RoomCode, room.RoomName, room.BankDisplayName,
		room.InitialPlayerBalance, room.SalaryAmount, room.DiceSides, room.Status,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrRoomCodeTaken
		}
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return created, nil
}

// GetByCode retrieves a room by its join code.
func (r *RoomRepository) GetByCode(ctx context.Context, code string) (*model.Room, error) {
	const query = `SELECT ` + roomColumns + ` FROM rooms WHERE room_code = $1`

	room, err := scanRoom(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

// GetByID retrieves a room by its ID.
func (r *RoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	const query = `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`

	room, err := scanRoom(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

// UpdateStatus transitions a room's lifecycle state. The transition is
// conditional on the current status so concurrent calls cannot skip or
// reverse lifecycle steps; returns false without error when the room was
// not in the expected state.
func (r *RoomRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.RoomStatus) (bool, error) {
	const query = `UPDATE rooms SET status = $3 WHERE id = $1 AND status = $2`

	tag, err := r.pool.Exec(ctx, query, id, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to update room status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CreditPot adds to the room's shared pot inside the caller's transaction.
func (r *RoomRepository) CreditPot(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) error {
	const query = `UPDATE rooms SET shared_pot_balance = shared_pot_balance + $2 WHERE id = $1`

	tag, err := tx.Exec(ctx, query, id, amount)
	if err != nil {
		return fmt.Errorf("failed to credit pot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// DebitPot removes from the room's shared pot inside the caller's
// transaction. The debit is conditional on the pot covering the amount, so
// two concurrent withdrawals cannot both pass a stale check.
func (r *RoomRepository) DebitPot(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) error {
	const query = `
		UPDATE rooms SET shared_pot_balance = shared_pot_balance - $2
		WHERE id = $1 AND shared_pot_balance >= $2
	`

	tag, err := tx.Exec(ctx, query, id, amount)
	if err != nil {
		return fmt.Errorf("failed to debit pot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrInsufficientPot
	}
	return nil
}
