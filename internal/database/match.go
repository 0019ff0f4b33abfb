package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/heartboard/server/internal/models"
	"github.com/heartboard/server/internal/rating"
	"github.com/jackc/pgx/v5"
)

// MatchRecorder stores finished matches and applies rating changes. It satisfies the
// engine's ResultRecorder.
type MatchRecorder struct{}

// RecordResult writes the match and its players, then updates Elo when both seats belong
// to registered users.
func (MatchRecorder) RecordResult(ctx context.Context, r models.MatchResult) error {
	matchID := uuid.New()
	var winner any
	if r.WinnerID != "" {
		winner = r.WinnerID
	}

	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO matches (id, room_code, winner_id, is_tie, reason, turn_count, finished_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, matchID, r.RoomCode, winner, r.IsTie, r.Reason, r.TurnCount, r.FinishedAt)
		if err != nil {
			return err
		}
		for _, p := range r.Players {
			_, err := tx.Exec(ctx, `
				INSERT INTO match_players (match_id, user_id, name, score, did_win)
				VALUES ($1, $2, $3, $4, $5)
			`, matchID, p.UserID, p.Name, p.Score, p.UserID == r.WinnerID)
			if err != nil {
				return err
			}
		}
		if len(r.Players) != 2 {
			return nil
		}
		return updateRatingsTx(ctx, tx, matchID, r)
	})
	if err != nil {
		return fmt.Errorf("record match in room %s: %w", r.RoomCode, err)
	}
	return nil
}

type ratedUser struct {
	id  uuid.UUID
	elo int
}

// lockRatedUser loads a registered user's rating for update. ok is false for guests and
// seats that are not user ids.
func lockRatedUser(ctx context.Context, tx pgx.Tx, userID string) (u ratedUser, ok bool, err error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return u, false, nil
	}
	var ephemeral bool
	err = tx.QueryRow(ctx, `SELECT elo, is_ephemeral FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&u.elo, &ephemeral)
	if errors.Is(err, pgx.ErrNoRows) {
		return u, false, nil
	}
	if err != nil {
		return u, false, err
	}
	u.id = id
	return u, !ephemeral, nil
}

func updateRatingsTx(ctx context.Context, tx pgx.Tx, matchID uuid.UUID, r models.MatchResult) error {
	a, okA, err := lockRatedUser(ctx, tx, r.Players[0].UserID)
	if err != nil {
		return err
	}
	b, okB, err := lockRatedUser(ctx, tx, r.Players[1].UserID)
	if err != nil {
		return err
	}
	if !okA || !okB {
		return nil
	}

	outcome := rating.Draw
	switch {
	case r.IsTie:
	case r.WinnerID == r.Players[0].UserID:
		outcome = rating.Win
	case r.WinnerID == r.Players[1].UserID:
		outcome = rating.Loss
	default:
		return nil
	}
	newA, newB := rating.Update1v1(a.elo, b.elo, outcome)

	for _, ch := range []struct {
		u   ratedUser
		next int
	}{{a, newA}, {b, newB}} {
		if _, err := tx.Exec(ctx, `UPDATE users SET elo = $1 WHERE id = $2`, ch.next, ch.u.id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO ratings (user_id, match_id, old_rating, new_rating)
			VALUES ($1, $2, $3, $4)
		`, ch.u.id, matchID, ch.u.elo, ch.next)
		if err != nil {
			return err
		}
	}
	return nil
}
