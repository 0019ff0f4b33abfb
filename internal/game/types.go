// internal/game/types.go
package game

import "time"

// TileColor is the color of a board tile or of a heart card.
type TileColor string

const (
	ColorWhite  TileColor = "white"
	ColorRed    TileColor = "red"
	ColorYellow TileColor = "yellow"
	ColorGreen  TileColor = "green"
)

// tileEmojis maps each tile color to the glyph clients render for an empty tile.
var tileEmojis = map[TileColor]string{
	ColorWhite:  "⬜",
	ColorRed:    "🟥",
	ColorYellow: "🟨",
	ColorGreen:  "🟩",
}

// TileEmoji returns the glyph for an empty tile of the given color.
func TileEmoji(c TileColor) string {
	return tileEmojis[c]
}

const (
	// MaxPlayers is the fixed room capacity.
	MaxPlayers = 2
	// TileCount is the number of board tiles generated at game start.
	TileCount = 8
	// DefaultDeckSize is the number of cards preset in each draw pile of a new room.
	DefaultDeckSize = 16

	// MaxHeartsPerTurn caps heart placements per player per turn.
	MaxHeartsPerTurn = 2
	// MaxMagicPerTurn caps magic card usage per player per turn.
	MaxMagicPerTurn = 1

	// StartingHearts and StartingMagic are dealt to each player at game start.
	StartingHearts = 3
	StartingMagic  = 2
)

// Deck types used by ValidateDeckState and the draw gates.
const (
	DeckTypeHearts = "hearts"
	DeckTypeMagic  = "magic"
)

// Room is one active match, keyed by its normalized code.
type Room struct {
	Code       string     `json:"code"`
	Players    []*Player  `json:"players"`
	MaxPlayers int        `json:"maxPlayers"`
	GameState  *GameState `json:"gameState"`
}

// Player is a room member. UserID is the ownership key for hands, actions and shields.
type Player struct {
	UserID   string    `json:"userId"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	IsReady  bool      `json:"isReady"`
	Score    int       `json:"score"`
	JoinedAt time.Time `json:"joinedAt"`
}

// PlayerRef references a player by id so the reference survives serialization.
type PlayerRef struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

// GameState is exclusively owned by its Room.
type GameState struct {
	Tiles         []*Tile                    `json:"tiles"`
	GameStarted   bool                       `json:"gameStarted"`
	CurrentPlayer *PlayerRef                 `json:"currentPlayer"`
	Deck          *Deck                      `json:"deck"`
	MagicDeck     *Deck                      `json:"magicDeck"`
	PlayerHands   map[string][]Card          `json:"playerHands"`
	Shields       map[string]*Shield         `json:"shields"`
	TurnCount     int                        `json:"turnCount"`
	PlayerActions map[string]*PerTurnActions `json:"playerActions"`

	// GameOver is set once the match has been decided and stays until the next start.
	GameOver *GameResult `json:"gameOver,omitempty"`
}

// Deck tracks how many cards are left to draw; the cards themselves are generated on draw.
type Deck struct {
	Emoji string `json:"emoji"`
	Cards int    `json:"cards"`
	Type  string `json:"type"`
}

// Tile is one of the board cells.
type Tile struct {
	ID          int          `json:"id"`
	Color       TileColor    `json:"color"`
	Emoji       string       `json:"emoji"`
	PlacedHeart *PlacedHeart `json:"placedHeart"`
}

// PlacedHeart is the heart occupying a tile. OriginalTileColor is what the tile reverts to.
type PlacedHeart struct {
	Color             TileColor `json:"color"`
	Value             int       `json:"value"`
	Emoji             string    `json:"emoji"`
	PlacedBy          string    `json:"placedBy"`
	OriginalTileColor TileColor `json:"originalTileColor"`
}

// PerTurnActions counts what a player already did during the current turn.
type PerTurnActions struct {
	DrawnHeart     bool `json:"drawnHeart"`
	DrawnMagic     bool `json:"drawnMagic"`
	HeartsPlaced   int  `json:"heartsPlaced"`
	MagicCardsUsed int  `json:"magicCardsUsed"`
}

// Shield protects ProtectedPlayerID from opponent Wind and Recycle effects.
type Shield struct {
	Active            bool   `json:"active"`
	RemainingTurns    int    `json:"remainingTurns"`
	ActivatedTurn     int    `json:"activatedTurn"`
	ActivatedBy       string `json:"activatedBy"`
	ProtectedPlayerID string `json:"protectedPlayerId"`
}

// GameResult describes a finished match.
type GameResult struct {
	Winner      *PlayerRef     `json:"winner,omitempty"`
	IsTie       bool           `json:"isTie"`
	Reason      string         `json:"reason"`
	FinalScores map[string]int `json:"finalScores"`
	TurnCount   int            `json:"turnCount"`
}

// NewRoom builds an empty room in the lobby state.
func NewRoom(code string) *Room {
	return &Room{
		Code:       code,
		Players:    []*Player{},
		MaxPlayers: MaxPlayers,
		GameState:  NewGameState(),
	}
}

// NewGameState returns a lobby game state with both decks preset.
func NewGameState() *GameState {
	return &GameState{
		Tiles:         []*Tile{},
		GameStarted:   false,
		CurrentPlayer: nil,
		Deck:          &Deck{Emoji: "💌", Cards: DefaultDeckSize, Type: DeckTypeHearts},
		MagicDeck:     &Deck{Emoji: "🔮", Cards: DefaultDeckSize, Type: DeckTypeMagic},
		PlayerHands:   make(map[string][]Card),
		Shields:       make(map[string]*Shield),
		TurnCount:     0,
		PlayerActions: make(map[string]*PerTurnActions),
	}
}

// FindPlayer returns the player with the given id, or nil.
func (r *Room) FindPlayer(userID string) *Player {
	for _, p := range r.Players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// PlayerIndex returns the seat index of userID or -1.
func (r *Room) PlayerIndex(userID string) int {
	for i, p := range r.Players {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

// IsFull reports whether the room reached its capacity.
func (r *Room) IsFull() bool {
	limit := r.MaxPlayers
	if limit <= 0 {
		limit = MaxPlayers
	}
	return len(r.Players) >= limit
}

// Ref returns a by-id reference to the player.
func (p *Player) Ref() *PlayerRef {
	return &PlayerRef{UserID: p.UserID, Name: p.Name}
}

// FindTile returns the tile with the given id, or nil.
func (gs *GameState) FindTile(tileID int) *Tile {
	for _, t := range gs.Tiles {
		if t != nil && t.ID == tileID {
			return t
		}
	}
	return nil
}

// FindCardInHand returns the index of cardID in userID's hand, or -1.
func (gs *GameState) FindCardInHand(userID, cardID string) int {
	for i, c := range gs.PlayerHands[userID] {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}

// RemoveCardFromHand drops cardID from userID's hand and reports whether it was there.
func (gs *GameState) RemoveCardFromHand(userID, cardID string) bool {
	idx := gs.FindCardInHand(userID, cardID)
	if idx < 0 {
		return false
	}
	hand := gs.PlayerHands[userID]
	gs.PlayerHands[userID] = append(hand[:idx:idx], hand[idx+1:]...)
	return true
}

// Actions returns userID's per-turn counters, creating them on first use.
func (gs *GameState) Actions(userID string) *PerTurnActions {
	if gs.PlayerActions == nil {
		gs.PlayerActions = make(map[string]*PerTurnActions)
	}
	a, ok := gs.PlayerActions[userID]
	if !ok || a == nil {
		a = &PerTurnActions{}
		gs.PlayerActions[userID] = a
	}
	return a
}

// peekActions reads userID's counters without creating an entry.
func (gs *GameState) peekActions(userID string) PerTurnActions {
	if a, ok := gs.PlayerActions[userID]; ok && a != nil {
		return *a
	}
	return PerTurnActions{}
}

// ResetActions zeroes userID's per-turn counters.
func (gs *GameState) ResetActions(userID string) {
	gs.Actions(userID)
	gs.PlayerActions[userID] = &PerTurnActions{}
}

// OccupiedTiles counts tiles that hold a heart.
func (gs *GameState) OccupiedTiles() int {
	n := 0
	for _, t := range gs.Tiles {
		if t != nil && t.PlacedHeart != nil {
			n++
		}
	}
	return n
}
