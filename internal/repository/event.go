package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"banko/internal/model"
)

// EventRepository handles the append-only game event log (dice rolls and
// other non-monetary records sharing the activity feed).
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new EventRepository instance.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

const eventColumns = `id, room_id, player_id, event_type, payload, created_at`

func scanEvent(row pgx.Row) (*model.GameEvent, error) {
	var e model.GameEvent
	err := row.Scan(
		&e.ID,
		&e.RoomID,
		&e.PlayerID,
		&e.EventType,
		&e.Payload,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Insert appends a game event.
func (r *EventRepository) Insert(ctx context.Context, e *model.GameEvent) (*model.GameEvent, error) {
	const query = `
		INSERT INTO game_events (id, room_id, player_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING ` + eventColumns

	created, err := scanEvent(r.pool.QueryRow(ctx, query,
		e.ID, e.RoomID, e.PlayerID, e.EventType, e.Payload,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert game event: %w", err)
	}
	return created, nil
}

// ListByRoom retrieves the most recent game events for a room, newest first.
func (r *EventRepository) ListByRoom(ctx context.Context, roomID uuid.UUID, limit int) ([]*model.GameEvent, error) {
	const query = `
		SELECT ` + eventColumns + `
		FROM game_events
		WHERE room_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list game events: %w", err)
	}
	defer rows.Close()

	var events []*model.GameEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game events: %w", err)
	}

	return events, nil
}
