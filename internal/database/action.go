package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/heartboard/server/internal/models"
	"github.com/jackc/pgx/v5"
)

// InsertRoomActions writes a batch of history records in one transaction.
func InsertRoomActions(ctx context.Context, recs []models.RoomAction) error {
	if len(recs) == 0 {
		return nil
	}
	q := `
		INSERT INTO room_actions (room_code, action_index, actor_user_id, action_type, action_payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING
	`
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rec := range recs {
			payload, err := json.Marshal(rec.Payload)
			if err != nil {
				return fmt.Errorf("marshal payload of %s #%d: %w", rec.RoomCode, rec.ActionIndex, err)
			}
			batch.Queue(q,
				rec.RoomCode, rec.ActionIndex, rec.ActorUserID, rec.ActionType,
				payload, time.UnixMilli(rec.Timestamp),
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("insert room actions: %w", err)
	}
	return nil
}

// HistorySink is the historian's view of the database.
type HistorySink struct{}

// InsertRoomActions forwards to the package function.
func (HistorySink) InsertRoomActions(ctx context.Context, recs []models.RoomAction) error {
	return InsertRoomActions(ctx, recs)
}

// MarkRoomAbandoned forwards to the package function.
func (HistorySink) MarkRoomAbandoned(ctx context.Context, code string) error {
	return MarkRoomAbandoned(ctx, code)
}
