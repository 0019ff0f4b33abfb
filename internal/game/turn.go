// internal/game/turn.go
package game

// RecordHeartPlacement counts one heart placed this turn.
func RecordHeartPlacement(gs *GameState, userID string) {
	gs.Actions(userID).HeartsPlaced++
}

// CanPlaceMoreHearts reports whether userID is still under the per-turn heart limit.
func CanPlaceMoreHearts(gs *GameState, userID string) bool {
	return gs.peekActions(userID).HeartsPlaced < MaxHeartsPerTurn
}

// RecordMagicCardUsage counts one magic card used this turn.
func RecordMagicCardUsage(gs *GameState, userID string) {
	gs.Actions(userID).MagicCardsUsed++
}

// CanUseMoreMagicCards reports whether userID is still under the per-turn magic limit.
func CanUseMoreMagicCards(gs *GameState, userID string) bool {
	return gs.peekActions(userID).MagicCardsUsed < MaxMagicPerTurn
}

// AllReady reports whether the room is full and every player is ready.
func AllReady(room *Room) bool {
	if !room.IsFull() {
		return false
	}
	for _, p := range room.Players {
		if !p.IsReady {
			return false
		}
	}
	return true
}

// StartGame deals a fresh board: tiles, 3 hearts and 2 magic cards per player, turn 1 with
// the first-joined player. The deal does not consume the preset deck counts.
func StartGame(room *Room, r Rand) {
	gs := room.GameState
	if gs == nil {
		gs = NewGameState()
		room.GameState = gs
	}
	gs.Tiles = GenerateTiles(r)
	gs.PlayerHands = make(map[string][]Card, len(room.Players))
	gs.PlayerActions = make(map[string]*PerTurnActions, len(room.Players))
	gs.Shields = make(map[string]*Shield)
	gs.Deck = &Deck{Emoji: "💌", Cards: DefaultDeckSize, Type: DeckTypeHearts}
	gs.MagicDeck = &Deck{Emoji: "🔮", Cards: DefaultDeckSize, Type: DeckTypeMagic}
	gs.GameOver = nil

	for _, p := range room.Players {
		hand := make([]Card, 0, StartingHearts+StartingMagic)
		for i := 0; i < StartingHearts; i++ {
			hand = append(hand, RandomHeartCard(r))
		}
		for i := 0; i < StartingMagic; i++ {
			hand = append(hand, RandomMagicCard(r))
		}
		gs.PlayerHands[p.UserID] = hand
		gs.PlayerActions[p.UserID] = &PerTurnActions{}
		p.Score = 0
	}

	gs.TurnCount = 1
	gs.CurrentPlayer = room.Players[0].Ref()
	gs.GameStarted = true
}

// DrawHeart moves a new heart card from the deck into userID's hand.
func DrawHeart(gs *GameState, userID string, r Rand) (Card, error) {
	if gs.Deck.Cards <= 0 {
		return Card{}, NewActionError(MsgHeartDeckEmpty)
	}
	card := RandomHeartCard(r)
	gs.PlayerHands[userID] = append(gs.PlayerHands[userID], card)
	gs.Deck.Cards--
	gs.Actions(userID).DrawnHeart = true
	return card, nil
}

// DrawMagic moves a new magic card from the magic deck into userID's hand.
func DrawMagic(gs *GameState, userID string, r Rand) (Card, error) {
	if gs.MagicDeck.Cards <= 0 {
		return Card{}, NewActionError(MsgMagicDeckEmpty)
	}
	card := RandomMagicCard(r)
	gs.PlayerHands[userID] = append(gs.PlayerHands[userID], card)
	gs.MagicDeck.Cards--
	gs.Actions(userID).DrawnMagic = true
	return card, nil
}

// TurnChange is what EndTurn did, for broadcasting and logging.
type TurnChange struct {
	Previous      *PlayerRef  `json:"previousPlayer"`
	CurrentPlayer *PlayerRef  `json:"currentPlayer"`
	TurnCount     int         `json:"turnCount"`
	Shields       ShieldSweep `json:"shields"`
}

// EndTurn closes the current player's turn: reset their counters, sweep shields, hand the
// turn to the next seat and bump the turn counter. Callers validate first.
func EndTurn(room *Room) TurnChange {
	gs := room.GameState
	prev := gs.CurrentPlayer
	gs.ResetActions(prev.UserID)

	sweep := CheckAndExpireShields(gs, gs.TurnCount)

	idx := room.PlayerIndex(prev.UserID)
	next := room.Players[(idx+1)%len(room.Players)]
	gs.CurrentPlayer = next.Ref()
	gs.TurnCount++
	gs.ResetActions(next.UserID)

	return TurnChange{
		Previous:      prev,
		CurrentPlayer: gs.CurrentPlayer,
		TurnCount:     gs.TurnCount,
		Shields:       sweep,
	}
}

// Game end triggers.
const (
	TriggerPlacement = "placement"
	TriggerDraw      = "draw"
	TriggerMagic     = "magic"
	TriggerEndTurn   = "end-turn"
)

// Game end reasons.
const (
	ReasonBoardFull  = "all tiles are occupied"
	ReasonDecksEmpty = "both decks are empty"
)

// CheckGameEnd reports whether the match is over after trigger, and why.
func CheckGameEnd(room *Room, trigger string) (bool, string) {
	gs := room.GameState
	if gs == nil || !gs.GameStarted {
		return false, ""
	}
	if len(gs.Tiles) > 0 && gs.OccupiedTiles() == len(gs.Tiles) {
		return true, ReasonBoardFull
	}
	if trigger == TriggerEndTurn && gs.Deck.Cards <= 0 && gs.MagicDeck.Cards <= 0 {
		return true, ReasonDecksEmpty
	}
	return false, ""
}

// FinishGame records the result and returns the room to the lobby state. The highest
// score wins; equal top scores are a tie.
func FinishGame(room *Room, reason string) *GameResult {
	gs := room.GameState
	res := &GameResult{
		Reason:      reason,
		FinalScores: Scores(room),
		TurnCount:   gs.TurnCount,
	}

	var best *Player
	tie := false
	for _, p := range room.Players {
		switch {
		case best == nil || p.Score > best.Score:
			best = p
			tie = false
		case p.Score == best.Score:
			tie = true
		}
	}
	if best != nil && !tie {
		res.Winner = best.Ref()
	}
	res.IsTie = tie

	gs.GameOver = res
	gs.GameStarted = false
	gs.CurrentPlayer = nil
	for _, p := range room.Players {
		p.IsReady = false
	}
	return res
}

// RemovePlayer drops userID and everything it owns from the room. If a game was running it
// is abandoned and the room goes back to the lobby, so currentPlayer always names a member.
// It reports whether a running game was interrupted.
func RemovePlayer(room *Room, userID string) bool {
	idx := room.PlayerIndex(userID)
	if idx < 0 {
		return false
	}
	room.Players = append(room.Players[:idx:idx], room.Players[idx+1:]...)

	gs := room.GameState
	if gs == nil {
		return false
	}
	delete(gs.PlayerHands, userID)
	delete(gs.Shields, userID)
	delete(gs.PlayerActions, userID)

	if !gs.GameStarted {
		return false
	}
	gs.GameStarted = false
	gs.CurrentPlayer = nil
	for _, p := range room.Players {
		p.IsReady = false
	}
	return true
}

// MigratePlayerData moves everything keyed by oldID to newID: the player record, hand,
// shield, per-turn counters, current player reference and placed hearts.
func MigratePlayerData(room *Room, oldID, newID, name, email string) bool {
	p := room.FindPlayer(oldID)
	if p == nil || oldID == newID || room.FindPlayer(newID) != nil {
		return false
	}
	p.UserID = newID
	if name != "" {
		p.Name = name
	}
	if email != "" {
		p.Email = email
	}

	gs := room.GameState
	if gs == nil {
		return true
	}
	if hand, ok := gs.PlayerHands[oldID]; ok {
		gs.PlayerHands[newID] = hand
		delete(gs.PlayerHands, oldID)
	}
	if a, ok := gs.PlayerActions[oldID]; ok {
		gs.PlayerActions[newID] = a
		delete(gs.PlayerActions, oldID)
	}
	if s, ok := gs.Shields[oldID]; ok {
		if s != nil {
			s.ProtectedPlayerID = newID
		}
		gs.Shields[newID] = s
		delete(gs.Shields, oldID)
	}
	for _, s := range gs.Shields {
		if s != nil && s.ActivatedBy == oldID {
			s.ActivatedBy = newID
		}
	}
	if gs.CurrentPlayer != nil && gs.CurrentPlayer.UserID == oldID {
		gs.CurrentPlayer = p.Ref()
	}
	for _, t := range gs.Tiles {
		if t != nil && t.PlacedHeart != nil && t.PlacedHeart.PlacedBy == oldID {
			t.PlacedHeart.PlacedBy = newID
		}
	}
	return true
}
