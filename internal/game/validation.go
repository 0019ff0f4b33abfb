// internal/game/validation.go
package game

import "math"

// ValidationResult is the outcome of a single gate of the validation pipeline.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// Valid is the passing result.
var Valid = ValidationResult{Valid: true}

func invalid(msg string) ValidationResult {
	return ValidationResult{Valid: false, Error: msg}
}

// Err converts a failing result into an ActionError, or nil when valid.
func (v ValidationResult) Err() error {
	if v.Valid {
		return nil
	}
	return NewActionError(v.Error)
}

// Validator is a deferred gate, so a pipeline can be assembled before running it.
type Validator func() ValidationResult

// Chain runs validators in order and returns the first failure.
func Chain(validators ...Validator) ValidationResult {
	for _, v := range validators {
		if res := v(); !res.Valid {
			return res
		}
	}
	return Valid
}

// None of the validators below mutate their inputs.

// ValidateRoomState checks the room is structurally sound and that gameStarted and
// currentPlayer agree.
func ValidateRoomState(room *Room) ValidationResult {
	if room == nil {
		return invalid(MsgRoomNotFound)
	}
	if room.Players == nil || room.GameState == nil {
		return invalid(MsgInvalidRoomState)
	}
	gs := room.GameState
	if gs.GameStarted != (gs.CurrentPlayer != nil) {
		return invalid(MsgInvalidRoomState)
	}
	if gs.CurrentPlayer != nil && room.FindPlayer(gs.CurrentPlayer.UserID) == nil {
		return invalid(MsgInvalidRoomState)
	}
	return Valid
}

// ValidatePlayerInRoom checks userID is a member of room.
func ValidatePlayerInRoom(room *Room, userID string) ValidationResult {
	if room == nil || room.FindPlayer(userID) == nil {
		return invalid(MsgPlayerNotInRoom)
	}
	return Valid
}

// ValidateTurn checks the game is running and userID is the current player.
func ValidateTurn(room *Room, userID string) ValidationResult {
	if room == nil || room.GameState == nil || !room.GameState.GameStarted {
		return invalid(MsgGameNotStarted)
	}
	cp := room.GameState.CurrentPlayer
	if cp == nil || cp.UserID != userID {
		return invalid(MsgNotYourTurn)
	}
	return Valid
}

// ValidateDeckState checks a deck object is present and consistent.
func ValidateDeckState(deck *Deck) ValidationResult {
	if deck == nil {
		return invalid(MsgInvalidDeckState)
	}
	if deck.Cards < 0 || float64(deck.Cards) > math.MaxInt32 {
		return invalid(MsgInvalidDeckState)
	}
	if deck.Type == "" {
		return invalid(MsgInvalidDeckState)
	}
	return Valid
}

// ValidateCardDrawLimit rejects a second draw of deckType in the same turn. Missing
// counters read as a fresh turn.
func ValidateCardDrawLimit(room *Room, userID, deckType string) ValidationResult {
	if room == nil || room.GameState == nil {
		return invalid(MsgInvalidRoomState)
	}
	actions := room.GameState.peekActions(userID)
	switch deckType {
	case DeckTypeHearts:
		if actions.DrawnHeart {
			return invalid(MsgAlreadyDrawnHeart)
		}
	case DeckTypeMagic:
		if actions.DrawnMagic {
			return invalid(MsgAlreadyDrawnMagic)
		}
	default:
		return invalid(MsgInvalidDeckState)
	}
	return Valid
}

// ValidateHeartPlacement checks heartID is a heart in userID's hand and tileID can take it.
func ValidateHeartPlacement(room *Room, userID, heartID string, tileID int) ValidationResult {
	if room == nil || room.GameState == nil {
		return invalid(MsgInvalidRoomState)
	}
	gs := room.GameState
	idx := gs.FindCardInHand(userID, heartID)
	if idx < 0 {
		return invalid(MsgHeartNotInHand)
	}
	tile := gs.FindTile(tileID)
	if tile == nil {
		return invalid(MsgTileNotFound)
	}
	if tile.PlacedHeart != nil {
		return invalid(MsgTileOccupied)
	}
	card := gs.PlayerHands[userID][idx]
	if !card.IsHeart() {
		return invalid(MsgOnlyHeartsOnTiles)
	}
	if !CanTargetTile(card, tile, userID) {
		return invalid(MsgHeartCannotTarget)
	}
	if !CanPlaceMoreHearts(gs, userID) {
		return invalid(MsgHeartLimitReached)
	}
	return Valid
}

// ValidateMagicCardUsage checks cardID is a magic card in userID's hand, the per-turn limit,
// and for tile-targeting kinds that tileID is a legal target.
func ValidateMagicCardUsage(room *Room, userID, cardID string, tileID *int) ValidationResult {
	if room == nil || room.GameState == nil {
		return invalid(MsgInvalidRoomState)
	}
	gs := room.GameState
	idx := gs.FindCardInHand(userID, cardID)
	if idx < 0 {
		return invalid(MsgCardNotInHand)
	}
	card := gs.PlayerHands[userID][idx]
	if !card.IsMagic() {
		return invalid(MsgOnlyMagicCards)
	}
	if card.Effect() == "" {
		return invalid(MsgUnknownCard)
	}
	if !CanUseMoreMagicCards(gs, userID) {
		return invalid(MsgMagicLimitReached)
	}
	if !card.TargetsTile() {
		return Valid
	}
	if tileID == nil {
		return invalid(MsgTargetTileRequired)
	}
	tile := gs.FindTile(*tileID)
	if tile == nil {
		return invalid(MsgTileNotFound)
	}
	if !CanTargetTile(card, tile, userID) {
		return invalid("Invalid target for " + magicCatalog[card.Kind].name + " card")
	}
	return Valid
}

// ValidateEndTurn enforces the draw requirement: both draws must be made before ending a
// turn unless the matching deck is empty.
func ValidateEndTurn(room *Room, userID string) ValidationResult {
	if room == nil || room.GameState == nil {
		return invalid(MsgInvalidRoomState)
	}
	gs := room.GameState
	actions := gs.peekActions(userID)
	if !actions.DrawnHeart && gs.Deck != nil && gs.Deck.Cards > 0 {
		return invalid(MsgMustDrawHeart)
	}
	if !actions.DrawnMagic && gs.MagicDeck != nil && gs.MagicDeck.Cards > 0 {
		return invalid(MsgMustDrawMagic)
	}
	return Valid
}
