package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Room status values in room_snapshots.
const (
	RoomActive    = "active"
	RoomClosed    = "closed"
	RoomAbandoned = "abandoned"
)

// RoomSnapshots is the durable copy of live rooms. It satisfies the engine's Persister.
type RoomSnapshots struct{}

// SaveRoom upserts the latest snapshot for code and marks the room active.
func (RoomSnapshots) SaveRoom(ctx context.Context, code string, snapshot []byte) error {
	q := `
		INSERT INTO room_snapshots (code, state, status, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (code)
		DO UPDATE SET state = EXCLUDED.state, status = EXCLUDED.status, updated_at = NOW()
	`
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, q, code, snapshot, RoomActive)
		return e
	})
	if err != nil {
		return fmt.Errorf("save room snapshot %s: %w", code, err)
	}
	return nil
}

// DeleteRoom keeps the last snapshot but marks the room closed.
func (RoomSnapshots) DeleteRoom(ctx context.Context, code string) error {
	return setRoomStatus(ctx, code, RoomClosed, RoomActive)
}

// MarkRoomAbandoned flags an active room that has seen no activity for too long.
func MarkRoomAbandoned(ctx context.Context, code string) error {
	return setRoomStatus(ctx, code, RoomAbandoned, RoomActive)
}

func setRoomStatus(ctx context.Context, code, status, from string) error {
	q := `UPDATE room_snapshots SET status = $1, updated_at = NOW() WHERE code = $2 AND status = $3`
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, q, status, code, from)
		return e
	})
	if err != nil {
		return fmt.Errorf("set room %s %s: %w", code, status, err)
	}
	return nil
}
