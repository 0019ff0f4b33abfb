package game

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newTestRoom builds a room with the given player ids, all ready, not started.
func newTestRoom(t *testing.T, ids ...string) *Room {
	t.Helper()
	room := NewRoom("ABC123")
	room.MaxPlayers = len(ids)
	for i, id := range ids {
		room.Players = append(room.Players, &Player{
			UserID:   id,
			Name:     "player-" + id,
			Email:    id + "@example.com",
			IsReady:  true,
			JoinedAt: time.Unix(int64(i), 0),
		})
	}
	return room
}

// startedRoom returns a started two-player room with a deterministic deal.
func startedRoom(t *testing.T) *Room {
	t.Helper()
	room := newTestRoom(t, "alice", "bob")
	StartGame(room, rand.New(rand.NewSource(42)))
	require.True(t, room.GameState.GameStarted)
	return room
}

// paint forces every tile to white and empty so tests control the board.
func paint(room *Room, color TileColor) {
	for _, tile := range room.GameState.Tiles {
		tile.Color = color
		tile.Emoji = TileEmoji(color)
		tile.PlacedHeart = nil
	}
}

func giveCard(room *Room, userID string, c Card) Card {
	room.GameState.PlayerHands[userID] = append(room.GameState.PlayerHands[userID], c)
	return c
}

func putHeart(room *Room, tileID int, owner string, color TileColor, value int) {
	tile := room.GameState.FindTile(tileID)
	tile.PlacedHeart = &PlacedHeart{
		Color:             color,
		Value:             value,
		Emoji:             heartEmojis[color],
		PlacedBy:          owner,
		OriginalTileColor: tile.Color,
	}
	tile.Color = color
	tile.Emoji = heartEmojis[color]
}
