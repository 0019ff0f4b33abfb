// internal/room/actions.go
package room

import (
	"context"

	"github.com/heartboard/server/internal/game"
	"github.com/heartboard/server/internal/models"
)

// Engine action names, also used as history action types.
const (
	ActionJoin      = "join-room"
	ActionLeave     = "leave-room"
	ActionReady     = "player-ready"
	ActionDrawHeart = "draw-heart"
	ActionDrawMagic = "draw-magic-card"
	ActionPlace     = "place-heart"
	ActionUseMagic  = "use-magic-card"
	ActionEndTurn   = "end-turn"
	ActionShuffle   = "shuffle-tiles"
	ActionMigrate   = "migrate-player"
	ActionDrop      = "disconnect"
)

// Identity is the acting user as resolved by the auth layer.
type Identity struct {
	UserID string
	Name   string
	Email  string
}

// JoinRoom adds the user to the room, creating the room on first join. A user already in
// the room just gets the room back. A new user id carrying the email of a seated player
// takes over that seat.
func (e *Engine) JoinRoom(code string, id Identity) ([]Event, error) {
	return e.do(action{
		name:   ActionJoin,
		code:   code,
		userID: id.UserID,
		create: true,
		run: func(_ *Entry, room *game.Room) ([]Event, error) {
			if p := room.FindPlayer(id.UserID); p != nil {
				if id.Name != "" {
					p.Name = id.Name
				}
				if id.Email != "" {
					p.Email = id.Email
				}
				return []Event{senderEvent(room.Code, EventRoomJoined, map[string]any{
					"userId":   p.UserID,
					"rejoined": true,
					"room":     view(room),
				})}, nil
			}

			if old := playerByEmail(room, id.Email); old != nil {
				oldID := old.UserID
				if err := e.migrate(room, oldID, id); err != nil {
					return nil, err
				}
				return []Event{
					senderEvent(room.Code, EventRoomJoined, map[string]any{
						"userId": id.UserID,
						"room":   view(room),
					}),
					roomEvent(room.Code, EventPlayerJoined, map[string]any{
						"player":       *room.FindPlayer(id.UserID),
						"migratedFrom": oldID,
						"room":         view(room),
					}),
				}, nil
			}

			if room.GameState.GameStarted {
				return nil, game.NewActionError(game.MsgGameAlreadyStarted)
			}
			if room.IsFull() {
				return nil, game.NewActionError(game.MsgRoomFull)
			}
			p := &game.Player{
				UserID:   id.UserID,
				Name:     id.Name,
				Email:    id.Email,
				JoinedAt: e.now(),
			}
			room.Players = append(room.Players, p)
			e.logger.WithField("room", room.Code).Infof("user %s joined (%d/%d)", id.UserID, len(room.Players), room.MaxPlayers)

			return []Event{
				senderEvent(room.Code, EventRoomJoined, map[string]any{
					"userId": p.UserID,
					"room":   view(room),
				}),
				roomEvent(room.Code, EventPlayerJoined, map[string]any{
					"player": *p,
					"room":   view(room),
				}),
			}, nil
		},
	})
}

func playerByEmail(room *game.Room, email string) *game.Player {
	if email == "" {
		return nil
	}
	for _, p := range room.Players {
		if p.Email == email {
			return p
		}
	}
	return nil
}

// migrate moves oldID's seat to id and drops any turn lock oldID still holds.
func (e *Engine) migrate(room *game.Room, oldID string, id Identity) error {
	if !game.MigratePlayerData(room, oldID, id.UserID, id.Name, id.Email) {
		return game.NewActionError(game.MsgPlayerNotInRoom)
	}
	if n := e.Locks.ReleaseActor(oldID); n > 0 {
		e.logger.WithField("room", room.Code).Infof("released %d turn locks held by migrated user %s", n, oldID)
	}
	e.logger.WithField("room", room.Code).Infof("migrated player %s to %s", oldID, id.UserID)
	return nil
}

// MigratePlayer moves everything oldID owns in the room to id.
func (e *Engine) MigratePlayer(code, oldID string, id Identity) ([]Event, error) {
	return e.do(action{
		name:    ActionMigrate,
		code:    code,
		userID:  id.UserID,
		payload: map[string]any{"oldUserId": oldID},
		run: func(_ *Entry, room *game.Room) ([]Event, error) {
			if err := e.migrate(room, oldID, id); err != nil {
				return nil, err
			}
			return []Event{roomEvent(room.Code, EventPlayerJoined, map[string]any{
				"player":       *room.FindPlayer(id.UserID),
				"migratedFrom": oldID,
				"room":         view(room),
			})}, nil
		},
	})
}

// LeaveRoom removes the user. Leaving a running game returns the room to the lobby.
func (e *Engine) LeaveRoom(code, userID string) ([]Event, error) {
	return e.do(action{
		name:   ActionLeave,
		code:   code,
		userID: userID,
		run: func(_ *Entry, room *game.Room) ([]Event, error) {
			return e.leave(room, userID)
		},
	})
}

// Disconnect is the leave path for a dropped connection. It frees the user's turn locks
// first and does not need the room's turn lock, so it cannot be refused as busy.
func (e *Engine) Disconnect(code, userID string) ([]Event, error) {
	e.Locks.ReleaseActor(userID)
	return e.do(action{
		name:     ActionDrop,
		code:     code,
		userID:   userID,
		skipLock: true,
		run: func(_ *Entry, room *game.Room) ([]Event, error) {
			return e.leave(room, userID)
		},
	})
}

func (e *Engine) leave(room *game.Room, userID string) ([]Event, error) {
	if res := game.ValidatePlayerInRoom(room, userID); !res.Valid {
		return nil, res.Err()
	}
	interrupted := game.RemovePlayer(room, userID)
	log := e.logger.WithField("room", room.Code)
	if interrupted {
		log.Infof("user %s left a running game, room back to lobby", userID)
	} else {
		log.Infof("user %s left", userID)
	}
	return []Event{roomEvent(room.Code, EventPlayerLeft, map[string]any{
		"userId":      userID,
		"interrupted": interrupted,
		"room":        view(room),
	})}, nil
}

// PlayerReady marks the user ready. When the room is full and everyone is ready the game
// starts.
func (e *Engine) PlayerReady(code, userID string) ([]Event, error) {
	return e.do(action{
		name:   ActionReady,
		code:   code,
		userID: userID,
		run: func(_ *Entry, room *game.Room) ([]Event, error) {
			if res := game.ValidatePlayerInRoom(room, userID); !res.Valid {
				return nil, res.Err()
			}
			if room.GameState.GameStarted {
				return nil, game.NewActionError(game.MsgGameAlreadyStarted)
			}
			room.FindPlayer(userID).IsReady = true
			events := []Event{roomEvent(room.Code, EventPlayerReady, map[string]any{
				"userId":  userID,
				"isReady": true,
				"room":    view(room),
			})}
			if !game.AllReady(room) {
				return events, nil
			}

			game.StartGame(room, e.rng)
			gs := room.GameState
			e.logger.WithField("room", room.Code).Infof("game started, %s goes first", gs.CurrentPlayer.UserID)
			return append(events, roomEvent(room.Code, EventGameStart, map[string]any{
				"currentPlayer": *gs.CurrentPlayer,
				"turnCount":     gs.TurnCount,
				"tiles":         game.CloneTiles(gs.Tiles),
				"room":          view(room),
			})), nil
		},
	})
}

// DrawHeart draws one heart card for the current player.
func (e *Engine) DrawHeart(code, userID string) ([]Event, error) {
	return e.do(action{
		name:   ActionDrawHeart,
		code:   code,
		userID: userID,
		run: func(_ *Entry, room *game.Room) ([]Event, error) {
			gs := room.GameState
			res := game.Chain(
				func() game.ValidationResult { return game.ValidatePlayerInRoom(room, userID) },
				func() game.ValidationResult { return game.ValidateTurn(room, userID) },
				func() game.ValidationResult { return game.ValidateDeckState(gs.Deck) },
				func() game.ValidationResult { return game.ValidateCardDrawLimit(room, userID, game.DeckTypeHearts) },
			)
			if !res.Valid {
				return nil, res.Err()
			}
			card, err := game.DrawHeart(gs, userID, e.rng)
			if err != nil {
				return nil, err
			}
			events := []Event{roomEvent(room.Code, EventHeartDrawn, map[string]any{
				"userId": userID,
				"card":   card,
				"deck":   *gs.Deck,
				"room":   view(room),
			})}
			return append(events, e.gameEnd(room, game.TriggerDraw)...), nil
		},
	})
}

// DrawMagicCard draws one magic card for the current player.
func (e *Engine) DrawMagicCard(code, userID string) ([]Event, error) {
	return e.do(action{
		name:   ActionDrawMagic,
		code:   code,
		userID: userID,
		run: func(_ *Entry, room *game.Room) ([]Event, error) {
			gs := room.GameState
			res := game.Chain(
				func() game.ValidationResult { return game.ValidatePlayerInRoom(room, userID) },
				func() game.ValidationResult { return game.ValidateTurn(room, userID) },
				func() game.ValidationResult { return game.ValidateDeckState(gs.MagicDeck) },
				func() game.ValidationResult { return game.ValidateCardDrawLimit(room, userID, game.DeckTypeMagic) },
			)
			if !res.Valid {
				return nil, res.Err()
			}
			card, err := game.DrawMagic(gs, userID, e.rng)
			if err != nil {
				return nil, err
			}
			events := []Event{roomEvent(room.Code, EventMagicDrawn, map[string]any{
				"userId": userID,
				"card":   card,
				"deck":   *gs.MagicDeck,
				"room":   view(room),
			})}
			return append(events, e.gameEnd(room, game.TriggerDraw)...), nil
		},
	})
}

// PlaceHeart plays heartID from the current player's hand onto tileID.
func (e *Engine) PlaceHeart(code, userID string, tileID int, heartID string) ([]Event, error) {
	return e.do(action{
		name:    ActionPlace,
		code:    code,
		userID:  userID,
		payload: map[string]any{"tileId": tileID, "heartId": heartID},
		run: func(_ *Entry, room *game.Room) ([]Event, error) {
			gs := room.GameState
			res := game.Chain(
				func() game.ValidationResult { return game.ValidatePlayerInRoom(room, userID) },
				func() game.ValidationResult { return game.ValidateTurn(room, userID) },
				func() game.ValidationResult { return game.ValidateHeartPlacement(room, userID, heartID, tileID) },
			)
			if !res.Valid {
				return nil, res.Err()
			}
			card := gs.PlayerHands[userID][gs.FindCardInHand(userID, heartID)]
			result, err := game.ExecuteEffect(gs, card, tileID, userID)
			if err != nil {
				return nil, err
			}
			gs.RemoveCardFromHand(userID, heartID)
			game.ApplyScoreChanges(room, result.ScoreChanges)

			events := []Event{roomEvent(room.Code, EventHeartPlaced, map[string]any{
				"userId":       userID,
				"tile":         result.Tile,
				"card":         result.Card,
				"scoreChanges": result.ScoreChanges,
				"scores":       game.Scores(room),
				"room":         view(room),
			})}
			return append(events, e.gameEnd(room, game.TriggerPlacement)...), nil
		},
	})
}

// UseMagicCard plays cardID from the current player's hand. tileID is required for Wind and
// Recycle and ignored for Shield.
func (e *Engine) UseMagicCard(code, userID, cardID string, tileID *int) ([]Event, error) {
	payload := map[string]any{"cardId": cardID}
	if tileID != nil {
		payload["targetTileId"] = *tileID
	}
	return e.do(action{
		name:    ActionUseMagic,
		code:    code,
		userID:  userID,
		payload: payload,
		run: func(_ *Entry, room *game.Room) ([]Event, error) {
			gs := room.GameState
			res := game.Chain(
				func() game.ValidationResult { return game.ValidatePlayerInRoom(room, userID) },
				func() game.ValidationResult { return game.ValidateTurn(room, userID) },
				func() game.ValidationResult { return game.ValidateMagicCardUsage(room, userID, cardID, tileID) },
			)
			if !res.Valid {
				return nil, res.Err()
			}
			card := gs.PlayerHands[userID][gs.FindCardInHand(userID, cardID)]
			target := -1
			if tileID != nil {
				target = *tileID
			}
			result, err := game.ExecuteEffect(gs, card, target, userID)
			if err != nil {
				return nil, err
			}
			gs.RemoveCardFromHand(userID, cardID)
			game.RecordMagicCardUsage(gs, userID)
			game.ApplyScoreChanges(room, result.ScoreChanges)

			log := e.logger.WithField("room", room.Code)
			if result.Reinforced {
				log.Infof("user %s reinforced their shield", userID)
			} else {
				log.Debugf("user %s used %s", userID, card.Kind)
			}

			events := []Event{roomEvent(room.Code, EventMagicUsed, map[string]any{
				"userId": userID,
				"result": result,
				"scores": game.Scores(room),
				"room":   view(room),
			})}
			if result.Tile != nil {
				events = append(events, roomEvent(room.Code, EventTilesUpdated, map[string]any{
					"tiles": game.CloneTiles(gs.Tiles),
				}))
			}
			return append(events, e.gameEnd(room, game.TriggerMagic)...), nil
		},
	})
}

// EndTurn hands the turn to the next player once the draw requirement is met.
func (e *Engine) EndTurn(code, userID string) ([]Event, error) {
	return e.do(action{
		name:   ActionEndTurn,
		code:   code,
		userID: userID,
		run: func(_ *Entry, room *game.Room) ([]Event, error) {
			res := game.Chain(
				func() game.ValidationResult { return game.ValidatePlayerInRoom(room, userID) },
				func() game.ValidationResult { return game.ValidateTurn(room, userID) },
				func() game.ValidationResult { return game.ValidateEndTurn(room, userID) },
			)
			if !res.Valid {
				return nil, res.Err()
			}
			change := game.EndTurn(room)
			log := e.logger.WithField("room", room.Code)
			for _, owner := range change.Shields.Invalid {
				log.Warnf("dropped malformed shield entry for %s", owner)
			}
			for _, owner := range change.Shields.Expired {
				log.Debugf("shield of %s expired", owner)
			}

			events := []Event{roomEvent(room.Code, EventTurnChanged, map[string]any{
				"previousPlayer": *change.Previous,
				"currentPlayer":  *change.CurrentPlayer,
				"turnCount":      change.TurnCount,
				"expiredShields": change.Shields.Expired,
				"room":           view(room),
			})}
			return append(events, e.gameEnd(room, game.TriggerEndTurn)...), nil
		},
	})
}

// ShuffleTiles regenerates the board mid-game. Debug builds only.
func (e *Engine) ShuffleTiles(code, userID string) ([]Event, error) {
	if !e.opts.AllowDebugActions {
		return nil, game.NewActionError(game.MsgDebugDisabled)
	}
	return e.do(action{
		name:   ActionShuffle,
		code:   code,
		userID: userID,
		run: func(_ *Entry, room *game.Room) ([]Event, error) {
			if res := game.ValidatePlayerInRoom(room, userID); !res.Valid {
				return nil, res.Err()
			}
			if !room.GameState.GameStarted {
				return nil, game.NewActionError(game.MsgGameNotStarted)
			}
			room.GameState.Tiles = game.GenerateTiles(e.rng)
			e.logger.WithField("room", room.Code).Warnf("tiles shuffled by %s", userID)
			return []Event{roomEvent(room.Code, EventTilesUpdated, map[string]any{
				"tiles": game.CloneTiles(room.GameState.Tiles),
				"room":  view(room),
			})}, nil
		},
	})
}

// gameEnd finishes the match if trigger ended it and returns the game-over event.
func (e *Engine) gameEnd(room *game.Room, trigger string) []Event {
	over, reason := game.CheckGameEnd(room, trigger)
	if !over {
		return nil
	}
	result := game.FinishGame(room, reason)
	e.logger.WithField("room", room.Code).Infof("game over after %d turns: %s", result.TurnCount, reason)
	e.recordResult(room, result)
	return []Event{roomEvent(room.Code, EventGameOver, map[string]any{
		"result": *result,
		"room":   view(room),
	})}
}

// recordResult hands the finished match to the ResultRecorder. Caller holds the room mutex.
func (e *Engine) recordResult(room *game.Room, result *game.GameResult) {
	if e.Results == nil {
		return
	}
	mr := models.MatchResult{
		RoomCode:   room.Code,
		IsTie:      result.IsTie,
		Reason:     result.Reason,
		TurnCount:  result.TurnCount,
		FinishedAt: e.now(),
	}
	if result.Winner != nil {
		mr.WinnerID = result.Winner.UserID
	}
	for _, p := range room.Players {
		mr.Players = append(mr.Players, models.MatchPlayer{
			UserID: p.UserID,
			Name:   p.Name,
			Email:  p.Email,
			Score:  p.Score,
		})
	}
	e.background("record match result", func(ctx context.Context) error {
		return e.Results.RecordResult(ctx, mr)
	})
}
