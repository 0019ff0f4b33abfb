package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShieldExpiresAfterTwoSweeps(t *testing.T) {
	gs := NewGameState()
	gs.TurnCount = 1

	_, reinforced, err := ActivateShield(gs, "alice", gs.TurnCount)
	require.NoError(t, err)
	assert.False(t, reinforced)
	require.Equal(t, ShieldDuration, gs.Shields["alice"].RemainingTurns)

	CheckAndExpireShields(gs, 1)
	require.Contains(t, gs.Shields, "alice")
	assert.Equal(t, 2, gs.Shields["alice"].RemainingTurns)
	assert.True(t, IsPlayerProtected(gs, "alice", 2))

	sweep := CheckAndExpireShields(gs, 2)
	assert.NotContains(t, gs.Shields, "alice")
	assert.Equal(t, []string{"alice"}, sweep.Expired)
	assert.False(t, IsPlayerProtected(gs, "alice", 3))
}

func TestShieldReinforceDoesNotStack(t *testing.T) {
	gs := NewGameState()
	gs.TurnCount = 1
	_, _, err := ActivateShield(gs, "alice", 1)
	require.NoError(t, err)
	CheckAndExpireShields(gs, 1)
	require.Equal(t, 2, gs.Shields["alice"].RemainingTurns)

	s, reinforced, err := ActivateShield(gs, "alice", 3)
	require.NoError(t, err)
	assert.True(t, reinforced)
	assert.Equal(t, ShieldDuration, s.RemainingTurns)
	assert.Len(t, gs.Shields, 1)
}

func TestShieldRejectedWhileOpponentShielded(t *testing.T) {
	gs := NewGameState()
	_, _, err := ActivateShield(gs, "alice", 1)
	require.NoError(t, err)

	_, _, err = ActivateShield(gs, "bob", 2)
	require.Error(t, err)
	assert.Equal(t, MsgOpponentShieldActive, err.Error())
	assert.NotContains(t, gs.Shields, "bob")
}

func TestSweepDeletesMalformedEntries(t *testing.T) {
	gs := NewGameState()
	gs.Shields["nil"] = nil
	gs.Shields["zero"] = &Shield{Active: true, RemainingTurns: 0}
	gs.Shields["negative"] = &Shield{Active: true, RemainingTurns: -4}
	gs.Shields["inactive"] = &Shield{Active: false, RemainingTurns: 3}

	sweep := CheckAndExpireShields(gs, 5)

	assert.Empty(t, gs.Shields)
	assert.ElementsMatch(t, []string{"nil", "zero", "negative", "inactive"}, sweep.Invalid)
}

func TestSweepToleratesMissingMap(t *testing.T) {
	assert.NotPanics(t, func() {
		CheckAndExpireShields(&GameState{}, 1)
		CheckAndExpireShields(nil, 1)
	})
}

func TestTileProtection(t *testing.T) {
	room := startedRoom(t)
	paint(room, ColorWhite)
	gs := room.GameState
	putHeart(room, 2, "alice", ColorRed, 1)

	assert.False(t, IsTileProtected(gs, 2, gs.TurnCount))
	_, _, err := ActivateShield(gs, "alice", gs.TurnCount)
	require.NoError(t, err)

	assert.True(t, IsTileProtected(gs, 2, gs.TurnCount))
	assert.False(t, IsTileProtected(gs, 3, gs.TurnCount))
	assert.True(t, BoardHasProtectedHeart(gs, gs.TurnCount))

	gs.Shields = map[string]*Shield{}
	assert.False(t, BoardHasProtectedHeart(gs, gs.TurnCount))
}
