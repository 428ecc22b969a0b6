package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// migrations are applied in order on startup. Statements are idempotent so
// re-running on an existing database is safe.
var migrations = []struct {
	name string
	sql  string
}{
	{
		name: "rooms table",
		sql: `
		CREATE TABLE IF NOT EXISTS rooms (
			id UUID PRIMARY KEY,
			room_code CHAR(6) NOT NULL UNIQUE,
			room_name VARCHAR(255) NOT NULL,
			bank_display_name VARCHAR(255) NOT NULL,
			initial_player_balance BIGINT NOT NULL,
			salary_amount BIGINT NOT NULL DEFAULT 0,
			dice_sides INT NOT NULL DEFAULT 12,
			status VARCHAR(20) NOT NULL DEFAULT 'lobby',
			shared_pot_balance BIGINT NOT NULL DEFAULT 0 CHECK (shared_pot_balance >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_rooms_code ON rooms(room_code);
	`,
	},
	{
		name: "players table",
		sql: `
		CREATE TABLE IF NOT EXISTS players (
			id UUID PRIMARY KEY,
			room_id UUID NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
			user_id UUID NOT NULL,
			nickname VARCHAR(255) NOT NULL,
			color VARCHAR(50) NOT NULL,
			current_balance BIGINT NOT NULL,
			is_bank_operator BOOLEAN NOT NULL DEFAULT FALSE,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (room_id, user_id),
			UNIQUE (room_id, color)
		);
		CREATE INDEX IF NOT EXISTS idx_players_room ON players(room_id);
	`,
	},
	{
		name: "transactions table",
		sql: `
		CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY,
			room_id UUID NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
			type VARCHAR(30) NOT NULL,
			amount BIGINT NOT NULL CHECK (amount > 0),
			from_player_id UUID REFERENCES players(id),
			to_player_id UUID REFERENCES players(id),
			description TEXT NOT NULL DEFAULT '',
			reverses_transaction_id UUID UNIQUE REFERENCES transactions(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_room_time ON transactions(room_id, created_at DESC);
	`,
	},
	{
		name: "loans table",
		sql: `
		CREATE TABLE IF NOT EXISTS loans (
			id UUID PRIMARY KEY,
			room_id UUID NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
			player_id UUID NOT NULL REFERENCES players(id),
			amount BIGINT NOT NULL CHECK (amount >= 0),
			description TEXT NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_loans_room_status ON loans(room_id, status);
	`,
	},
	{
		name: "payment_requests table",
		sql: `
		CREATE TABLE IF NOT EXISTS payment_requests (
			id UUID PRIMARY KEY,
			room_id UUID NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
			from_player_id UUID NOT NULL REFERENCES players(id),
			to_player_id UUID REFERENCES players(id),
			amount BIGINT NOT NULL CHECK (amount > 0),
			description TEXT NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			resolved_by UUID REFERENCES players(id),
			resolved_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_requests_room_status ON payment_requests(room_id, status);
	`,
	},
	{
		name: "game_events table",
		sql: `
		CREATE TABLE IF NOT EXISTS game_events (
			id UUID PRIMARY KEY,
			room_id UUID NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
			player_id UUID NOT NULL REFERENCES players(id),
			event_type VARCHAR(50) NOT NULL,
			payload JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_game_events_room_time ON game_events(room_id, created_at DESC);
	`,
	},
}

// Migrate applies the database schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return err
		}
		log.Info().Int("migration", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
