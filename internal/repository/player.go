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

// Player-related errors.
var (
	ErrPlayerNotFound      = errors.New("player not found")
	ErrColorTaken          = errors.New("color already taken in this room")
	ErrSeatTaken           = errors.New("identity already seated in this room")
	ErrInsufficientBalance = errors.New("balance below requested amount")
)

// PlayerRepository handles player seat persistence.
type PlayerRepository struct {
	pool *pgxpool.Pool
}

// NewPlayerRepository creates a new PlayerRepository instance.
func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{pool: pool}
}

const playerColumns = `id, room_id, user_id, nickname, color, current_balance,
		is_bank_operator, status, created_at`

func scanPlayer(row pgx.Row) (*model.Player, error) {
	var p model.Player
	err := row.Scan(
		&p.ID,
		&p.RoomID,
		&p.UserID,
		&p.Nickname,
		&p.Color,
		&p.CurrentBalance,
		&p.IsBankOperator,
		&p.Status,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new player seat. It may run inside a transaction (room
// creation seats the operator atomically with the room) or standalone for
// joins; pass nil tx for the latter. Unique constraints surface as
// ErrSeatTaken and ErrColorTaken.
func (r *PlayerRepository) Create(ctx context.Context, tx pgx.Tx, player *model.Player) (*model.Player, error) {
	const query = `
		INSERT INTO players (id, room_id, user_id, nickname, color, current_balance,
			is_bank_operator, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING ` + playerColumns

	var row pgx.Row
	if tx != nil {
		row = tx.QueryRow(ctx, query,
			player.ID, player.RoomID, player.UserID, player.Nickname, player.Color,
			player.CurrentBalance, player.IsBankOperator, player.Status)
	} else {
		row = r.pool.QueryRow(ctx, query,
			player.ID, player.RoomID, player.UserID, player.Nickname, player.Color,
			player.CurrentBalance, player.IsBankOperator, player.Status)
	}

	created, err := scanPlayer(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			switch pgErr.ConstraintName {
			case "players_room_id_color_key":
				return nil, ErrColorTaken
			case "players_room_id_user_id_key":
				return nil, ErrSeatTaken
			}
		}
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return created, nil
}

// GetByID retrieves a player by ID.
func (r *PlayerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Player, error) {
	const query = `SELECT ` + playerColumns + ` FROM players WHERE id = $1`

	player, err := scanPlayer(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return player, nil
}

// GetByRoomAndUser retrieves the seat a caller identity holds in a room.
// A caller identity holds at most one seat per room.
func (r *PlayerRepository) GetByRoomAndUser(ctx context.Context, roomID, userID uuid.UUID) (*model.Player, error) {
	const query = `SELECT ` + playerColumns + ` FROM players WHERE room_id = $1 AND user_id = $2`

	player, err := scanPlayer(r.pool.QueryRow(ctx, query, roomID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return player, nil
}

// ListByRoom retrieves all players in a room ordered by nickname.
func (r *PlayerRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*model.Player, error) {
	const query = `SELECT ` + playerColumns + ` FROM players WHERE room_id = $1 ORDER BY nickname`

	rows, err := r.pool.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []*model.Player
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, player)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}

	return players, nil
}

// CountByRoom returns the number of seats in a room.
func (r *PlayerRepository) CountByRoom(ctx context.Context, roomID uuid.UUID) (int, error) {
	const query = `SELECT COUNT(*) FROM players WHERE room_id = $1`

	var count int
	if err := r.pool.QueryRow(ctx, query, roomID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return count, nil
}

// Debit subtracts amount from a player's balance inside the caller's
// transaction. The check and the debit are a single conditional update, so
// two concurrent spends cannot both pass against a stale balance; returns
// ErrInsufficientBalance when the balance does not cover the amount.
func (r *PlayerRepository) Debit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) error {
	const query = `
		UPDATE players SET current_balance = current_balance - $2
		WHERE id = $1 AND current_balance >= $2
	`

	tag, err := tx.Exec(ctx, query, id, amount)
	if err != nil {
		return fmt.Errorf("failed to debit player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrInsufficientBalance
	}
	return nil
}

// Credit adds amount to a player's balance inside the caller's transaction.
// Bank-sourced credits are unconditional: the bank is an infinite reservoir.
func (r *PlayerRepository) Credit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) error {
	const query = `UPDATE players SET current_balance = current_balance + $2 WHERE id = $1`

	tag, err := tx.Exec(ctx, query, id, amount)
	if err != nil {
		return fmt.Errorf("failed to credit player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// UpdateStatus sets a player's active/defeated status.
func (r *PlayerRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.PlayerStatus) (*model.Player, error) {
	const query = `UPDATE players SET status = $2 WHERE id = $1 RETURNING ` + playerColumns

	player, err := scanPlayer(r.pool.QueryRow(ctx, query, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to update player status: %w", err)
	}
	return player, nil
}

// TotalBalance sums all player balances in a room. Together with the shared
// pot this is the conserved quantity the ledger maintains.
func (r *PlayerRepository) TotalBalance(ctx context.Context, roomID uuid.UUID) (int64, error) {
	const query = `SELECT COALESCE(SUM(current_balance), 0) FROM players WHERE room_id = $1`

	var total int64
	if err := r.pool.QueryRow(ctx, query, roomID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum balances: %w", err)
	}
	return total, nil
}
