package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestValidateRoomState(t *testing.T) {
	assert.Equal(t, MsgRoomNotFound, ValidateRoomState(nil).Error)

	room := newTestRoom(t, "alice", "bob")
	assert.True(t, ValidateRoomState(room).Valid)

	room.GameState.GameStarted = true
	assert.Equal(t, MsgInvalidRoomState, ValidateRoomState(room).Error, "started without current player")

	room.GameState.CurrentPlayer = &PlayerRef{UserID: "carol"}
	assert.Equal(t, MsgInvalidRoomState, ValidateRoomState(room).Error, "current player not a member")

	room.GameState.GameStarted = false
	room.GameState.CurrentPlayer = room.Players[0].Ref()
	assert.False(t, ValidateRoomState(room).Valid, "current player set in lobby")

	room.GameState = nil
	assert.False(t, ValidateRoomState(room).Valid)
}

func TestValidateTurn(t *testing.T) {
	room := newTestRoom(t, "alice", "bob")
	assert.Equal(t, MsgGameNotStarted, ValidateTurn(room, "alice").Error)

	room = startedRoom(t)
	assert.True(t, ValidateTurn(room, "alice").Valid)
	assert.Equal(t, MsgNotYourTurn, ValidateTurn(room, "bob").Error)
	assert.Equal(t, MsgPlayerNotInRoom, ValidatePlayerInRoom(room, "carol").Error)
}

func TestValidateDeckState(t *testing.T) {
	assert.False(t, ValidateDeckState(nil).Valid)
	assert.False(t, ValidateDeckState(&Deck{Cards: -1, Type: DeckTypeHearts}).Valid)
	assert.False(t, ValidateDeckState(&Deck{Cards: 3}).Valid)
	assert.True(t, ValidateDeckState(&Deck{Cards: 0, Type: DeckTypeMagic}).Valid)
}

func TestValidateCardDrawLimit(t *testing.T) {
	room := startedRoom(t)
	assert.True(t, ValidateCardDrawLimit(room, "alice", DeckTypeHearts).Valid)
	assert.True(t, ValidateCardDrawLimit(room, "stranger", DeckTypeMagic).Valid, "missing counters read as fresh")
	assert.NotContains(t, room.GameState.PlayerActions, "stranger")

	room.GameState.Actions("alice").DrawnHeart = true
	assert.Equal(t, MsgAlreadyDrawnHeart, ValidateCardDrawLimit(room, "alice", DeckTypeHearts).Error)
	assert.True(t, ValidateCardDrawLimit(room, "alice", DeckTypeMagic).Valid)

	room.GameState.Actions("alice").DrawnMagic = true
	assert.Equal(t, MsgAlreadyDrawnMagic, ValidateCardDrawLimit(room, "alice", DeckTypeMagic).Error)
	assert.Equal(t, MsgInvalidDeckState, ValidateCardDrawLimit(room, "alice", "tarot").Error)
}

func TestValidateHeartPlacement(t *testing.T) {
	room := startedRoom(t)
	paint(room, ColorWhite)
	heart := giveCard(room, "alice", NewHeartCard(ColorGreen, 1))
	magic := giveCard(room, "alice", NewMagicCard(MagicWind))

	assert.True(t, ValidateHeartPlacement(room, "alice", heart.ID, 0).Valid)
	assert.Equal(t, MsgHeartNotInHand, ValidateHeartPlacement(room, "alice", "nope", 0).Error)
	assert.Equal(t, MsgHeartNotInHand, ValidateHeartPlacement(room, "bob", heart.ID, 0).Error)
	assert.Equal(t, MsgTileNotFound, ValidateHeartPlacement(room, "alice", heart.ID, 99).Error)
	assert.Equal(t, MsgOnlyHeartsOnTiles, ValidateHeartPlacement(room, "alice", magic.ID, 0).Error)

	putHeart(room, 0, "bob", ColorRed, 1)
	assert.Equal(t, MsgTileOccupied, ValidateHeartPlacement(room, "alice", heart.ID, 0).Error)

	RecordHeartPlacement(room.GameState, "alice")
	RecordHeartPlacement(room.GameState, "alice")
	assert.Equal(t, MsgHeartLimitReached, ValidateHeartPlacement(room, "alice", heart.ID, 1).Error)
}

func TestValidateMagicCardUsage(t *testing.T) {
	room := startedRoom(t)
	paint(room, ColorWhite)
	wind := giveCard(room, "alice", NewMagicCard(MagicWind))
	shield := giveCard(room, "alice", NewMagicCard(MagicShield))
	heart := giveCard(room, "alice", NewHeartCard(ColorRed, 2))

	assert.Equal(t, MsgCardNotInHand, ValidateMagicCardUsage(room, "alice", "nope", nil).Error)
	assert.Equal(t, MsgOnlyMagicCards, ValidateMagicCardUsage(room, "alice", heart.ID, intPtr(0)).Error)
	assert.True(t, ValidateMagicCardUsage(room, "alice", shield.ID, nil).Valid)
	assert.Equal(t, MsgTargetTileRequired, ValidateMagicCardUsage(room, "alice", wind.ID, nil).Error)
	assert.Equal(t, MsgTileNotFound, ValidateMagicCardUsage(room, "alice", wind.ID, intPtr(42)).Error)
	assert.Equal(t, MsgInvalidWindTarget, ValidateMagicCardUsage(room, "alice", wind.ID, intPtr(0)).Error)

	putHeart(room, 0, "bob", ColorRed, 1)
	assert.True(t, ValidateMagicCardUsage(room, "alice", wind.ID, intPtr(0)).Valid)

	RecordMagicCardUsage(room.GameState, "alice")
	assert.Equal(t, MsgMagicLimitReached, ValidateMagicCardUsage(room, "alice", shield.ID, nil).Error)
}

func TestValidateEndTurnRequiresDraws(t *testing.T) {
	room := startedRoom(t)
	gs := room.GameState

	assert.Equal(t, MsgMustDrawHeart, ValidateEndTurn(room, "alice").Error)
	gs.Actions("alice").DrawnHeart = true
	assert.Equal(t, MsgMustDrawMagic, ValidateEndTurn(room, "alice").Error)
	gs.Actions("alice").DrawnMagic = true
	assert.True(t, ValidateEndTurn(room, "alice").Valid)

	gs.ResetActions("alice")
	gs.Deck.Cards = 0
	gs.MagicDeck.Cards = 0
	assert.True(t, ValidateEndTurn(room, "alice").Valid, "empty decks waive the draw")
}

func TestChainStopsAtFirstFailure(t *testing.T) {
	calls := 0
	step := func(res ValidationResult) Validator {
		return func() ValidationResult {
			calls++
			return res
		}
	}

	res := Chain(step(Valid), step(invalid(MsgNotYourTurn)), step(invalid(MsgRoomFull)))
	assert.Equal(t, MsgNotYourTurn, res.Error)
	assert.Equal(t, 2, calls)

	err := res.Err()
	require.Error(t, err)
	assert.True(t, IsActionError(err))
	assert.NoError(t, Valid.Err())
}
