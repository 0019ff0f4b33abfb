package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairLeavesHealthyRoomAlone(t *testing.T) {
	room := startedRoom(t)
	assert.Empty(t, Repair(room))
	assert.True(t, room.GameState.GameStarted)
	assert.Nil(t, Repair(nil))
}

func TestRepairBrokenInvariant(t *testing.T) {
	room := startedRoom(t)
	room.GameState.CurrentPlayer = &PlayerRef{UserID: "ghost"}

	fixes := Repair(room)
	require.Len(t, fixes, 1)
	assert.False(t, room.GameState.GameStarted)
	assert.Nil(t, room.GameState.CurrentPlayer)
	assert.True(t, ValidateRoomState(room).Valid)
}

func TestRepairDecksAndMaps(t *testing.T) {
	room := NewRoom("ABC123")
	room.MaxPlayers = 9
	room.GameState.Deck = nil
	room.GameState.MagicDeck.Cards = -3
	room.GameState.Shields = nil

	fixes := Repair(room)
	assert.Len(t, fixes, 3)
	assert.Equal(t, MaxPlayers, room.MaxPlayers)
	assert.Equal(t, DefaultDeckSize, room.GameState.Deck.Cards)
	assert.Equal(t, 0, room.GameState.MagicDeck.Cards)
	assert.NotNil(t, room.GameState.Shields)

	room.GameState = nil
	Repair(room)
	assert.NotNil(t, room.GameState)
}
