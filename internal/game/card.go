// internal/game/card.go
package game

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// CardType is the outer tag of the card union.
type CardType string

const (
	CardTypeHeart CardType = "heart"
	CardTypeMagic CardType = "magic"
)

// MagicKind selects the magic effect.
type MagicKind string

const (
	MagicWind    MagicKind = "wind"
	MagicRecycle MagicKind = "recycle"
	MagicShield  MagicKind = "shield"
)

// EffectKind is the key of the effect dispatch table: heart plus every magic kind.
type EffectKind string

const (
	EffectHeart   EffectKind = "heart"
	EffectWind    EffectKind = EffectKind(MagicWind)
	EffectRecycle EffectKind = EffectKind(MagicRecycle)
	EffectShield  EffectKind = EffectKind(MagicShield)
)

// Card is either a heart (Color, Value) or a magic card (Kind, Name, Description).
// Cards are never mutated once drawn, only moved out of the hand.
type Card struct {
	ID          string    `json:"id"`
	Type        CardType  `json:"type"`
	Color       TileColor `json:"color,omitempty"`
	Value       int       `json:"value,omitempty"`
	Kind        MagicKind `json:"kind,omitempty"`
	Emoji       string    `json:"emoji"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
}

// IsHeart reports whether the card is a heart card.
func (c Card) IsHeart() bool { return c.Type == CardTypeHeart }

// IsMagic reports whether the card is a magic card.
func (c Card) IsMagic() bool { return c.Type == CardTypeMagic }

// Effect returns the dispatch key derived from the card's tags, or "" for unknown cards.
func (c Card) Effect() EffectKind {
	switch c.Type {
	case CardTypeHeart:
		return EffectHeart
	case CardTypeMagic:
		switch c.Kind {
		case MagicWind, MagicRecycle, MagicShield:
			return EffectKind(c.Kind)
		}
	}
	return ""
}

// TargetsTile reports whether the card is played onto a tile (everything except Shield).
func (c Card) TargetsTile() bool {
	return c.Effect() != EffectShield
}

var heartEmojis = map[TileColor]string{
	ColorRed:    "❤️",
	ColorYellow: "💛",
	ColorGreen:  "💚",
}

// HeartColors are the colors a heart card can have. White hearts do not exist.
var HeartColors = []TileColor{ColorRed, ColorYellow, ColorGreen}

// TileColors are the colors a generated tile can have.
var TileColors = []TileColor{ColorWhite, ColorRed, ColorYellow, ColorGreen}

type magicInfo struct {
	emoji       string
	name        string
	description string
}

var magicCatalog = map[MagicKind]magicInfo{
	MagicWind: {
		emoji:       "💨",
		name:        "Wind",
		description: "Remove an opponent's heart from a tile",
	},
	MagicRecycle: {
		emoji:       "♻️",
		name:        "Recycle",
		description: "Turn an empty colored tile white",
	},
	MagicShield: {
		emoji:       "🛡️",
		name:        "Shield",
		description: "Protect your hearts and tiles for 3 turns",
	},
}

// MagicKinds lists every magic kind in draw order.
var MagicKinds = []MagicKind{MagicWind, MagicRecycle, MagicShield}

// NewHeartCard builds a heart card with a fresh id.
func NewHeartCard(color TileColor, value int) Card {
	return Card{
		ID:    uuid.NewString(),
		Type:  CardTypeHeart,
		Color: color,
		Value: value,
		Emoji: heartEmojis[color],
	}
}

// NewMagicCard builds a magic card with a fresh id.
func NewMagicCard(kind MagicKind) Card {
	info := magicCatalog[kind]
	return Card{
		ID:          uuid.NewString(),
		Type:        CardTypeMagic,
		Kind:        kind,
		Emoji:       info.emoji,
		Name:        info.name,
		Description: info.description,
	}
}

// Rand is the randomness used for dealing and tile generation. *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// NewRand returns a time-seeded source.
func NewRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// RandomHeartCard draws a heart with a random color and a value in [1,3].
func RandomHeartCard(r Rand) Card {
	color := HeartColors[r.Intn(len(HeartColors))]
	return NewHeartCard(color, r.Intn(3)+1)
}

// RandomMagicCard draws a magic card of a random kind.
func RandomMagicCard(r Rand) Card {
	return NewMagicCard(MagicKinds[r.Intn(len(MagicKinds))])
}

// GenerateTiles builds TileCount tiles with random colors and no hearts.
func GenerateTiles(r Rand) []*Tile {
	tiles := make([]*Tile, TileCount)
	for i := range tiles {
		color := TileColors[r.Intn(len(TileColors))]
		tiles[i] = &Tile{
			ID:    i,
			Color: color,
			Emoji: TileEmoji(color),
		}
	}
	return tiles
}
