package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id           UUID PRIMARY KEY,
		email        TEXT UNIQUE,
		password     TEXT NOT NULL DEFAULT '',
		username     TEXT NOT NULL DEFAULT '',
		is_ephemeral BOOLEAN NOT NULL DEFAULT FALSE,
		is_admin     BOOLEAN NOT NULL DEFAULT FALSE,
		elo          INTEGER NOT NULL DEFAULT 1200,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS room_snapshots (
		code       TEXT PRIMARY KEY,
		state      JSONB NOT NULL,
		status     TEXT NOT NULL DEFAULT 'active',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		id          UUID PRIMARY KEY,
		room_code   TEXT NOT NULL,
		winner_id   TEXT,
		is_tie      BOOLEAN NOT NULL,
		reason      TEXT NOT NULL,
		turn_count  INTEGER NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS match_players (
		match_id UUID NOT NULL REFERENCES matches (id) ON DELETE CASCADE,
		user_id  TEXT NOT NULL,
		name     TEXT NOT NULL,
		score    INTEGER NOT NULL,
		did_win  BOOLEAN NOT NULL,
		PRIMARY KEY (match_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS ratings (
		user_id    UUID NOT NULL REFERENCES users (id),
		match_id   UUID NOT NULL REFERENCES matches (id) ON DELETE CASCADE,
		old_rating INTEGER NOT NULL,
		new_rating INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS room_actions (
		room_code      TEXT NOT NULL,
		action_index   INTEGER NOT NULL,
		actor_user_id  TEXT NOT NULL,
		action_type    TEXT NOT NULL,
		action_payload JSONB,
		created_at     TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (room_code, action_index, created_at)
	)`,
}

// Migrate creates any missing tables.
func Migrate(ctx context.Context) error {
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
