package game

// Repair fixes structural damage a room can pick up from a bad snapshot or a bug elsewhere,
// and returns a description of each fix for logging. A healthy room comes back untouched.
func Repair(room *Room) []string {
	if room == nil {
		return nil
	}
	var fixes []string
	if room.Players == nil {
		room.Players = []*Player{}
		fixes = append(fixes, "players list was nil")
	}
	if room.MaxPlayers <= 0 || room.MaxPlayers > MaxPlayers {
		room.MaxPlayers = MaxPlayers
		fixes = append(fixes, "max players out of range")
	}
	if room.GameState == nil {
		room.GameState = NewGameState()
		return append(fixes, "game state was nil")
	}

	gs := room.GameState
	if gs.PlayerHands == nil {
		gs.PlayerHands = make(map[string][]Card)
	}
	if gs.PlayerActions == nil {
		gs.PlayerActions = make(map[string]*PerTurnActions)
	}
	if gs.Shields == nil {
		gs.Shields = make(map[string]*Shield)
	}
	fixes = append(fixes, repairDeck(&gs.Deck, DeckTypeHearts, "💌")...)
	fixes = append(fixes, repairDeck(&gs.MagicDeck, DeckTypeMagic, "🔮")...)

	broken := gs.GameStarted != (gs.CurrentPlayer != nil) ||
		gs.CurrentPlayer != nil && room.FindPlayer(gs.CurrentPlayer.UserID) == nil
	if broken {
		gs.GameStarted = false
		gs.CurrentPlayer = nil
		for _, p := range room.Players {
			p.IsReady = false
		}
		fixes = append(fixes, "current player did not match game state, room returned to lobby")
	}
	return fixes
}

func repairDeck(deck **Deck, typ, emoji string) []string {
	if *deck == nil {
		*deck = &Deck{Emoji: emoji, Cards: DefaultDeckSize, Type: typ}
		return []string{typ + " deck was missing"}
	}
	var fixes []string
	d := *deck
	if d.Cards < 0 {
		d.Cards = 0
		fixes = append(fixes, typ+" deck count was negative")
	}
	if d.Type != typ {
		d.Type = typ
		fixes = append(fixes, typ+" deck type was wrong")
	}
	return fixes
}
