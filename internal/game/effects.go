// internal/game/effects.go
package game

// ActionResult describes what a card effect changed. Tiles and shields are copies, so a
// result can leave the room lock and be broadcast safely.
type ActionResult struct {
	Effect       EffectKind    `json:"effect"`
	Card         Card          `json:"card"`
	Tile         *Tile         `json:"tile,omitempty"`
	RemovedHeart *PlacedHeart  `json:"removedHeart,omitempty"`
	ScoreChanges []ScoreChange `json:"scoreChanges,omitempty"`
	Shield       *Shield       `json:"shield,omitempty"`
	Reinforced   bool          `json:"reinforced,omitempty"`
}

// cardEffect is one row of the dispatch table. New card kinds only add a row here.
type cardEffect struct {
	canTarget func(tile *Tile, actorID string) bool
	execute   func(gs *GameState, card Card, tile *Tile, actorID string) (*ActionResult, error)
}

var effects = map[EffectKind]cardEffect{
	EffectHeart:   {canTarget: heartCanTarget, execute: placeHeart},
	EffectWind:    {canTarget: windCanTarget, execute: executeWind},
	EffectRecycle: {canTarget: recycleCanTarget, execute: executeRecycle},
	EffectShield:  {canTarget: shieldCanTarget, execute: executeShield},
}

// CanTargetTile asks the card's effect whether tile is a legal target for actorID.
func CanTargetTile(card Card, tile *Tile, actorID string) bool {
	eff, ok := effects[card.Effect()]
	if !ok || tile == nil && card.TargetsTile() {
		return false
	}
	return eff.canTarget(tile, actorID)
}

// ExecuteEffect runs card against tileID (ignored by Shield). Every failure is returned
// before anything is mutated. The hand is left alone; callers remove the card on success.
func ExecuteEffect(gs *GameState, card Card, tileID int, actorID string) (*ActionResult, error) {
	eff, ok := effects[card.Effect()]
	if !ok {
		return nil, NewActionError(MsgUnknownCard)
	}
	var tile *Tile
	if card.TargetsTile() {
		tile = gs.FindTile(tileID)
	}
	return eff.execute(gs, card, tile, actorID)
}

func heartCanTarget(tile *Tile, _ string) bool {
	return tile.PlacedHeart == nil
}

func placeHeart(gs *GameState, card Card, tile *Tile, actorID string) (*ActionResult, error) {
	if !card.IsHeart() {
		return nil, NewActionError(MsgOnlyHeartsOnTiles)
	}
	if tile == nil {
		return nil, NewActionError(MsgTileNotFound)
	}
	if tile.PlacedHeart != nil {
		return nil, NewActionError(MsgTileOccupied)
	}

	original := tile.Color
	tile.PlacedHeart = &PlacedHeart{
		Color:             card.Color,
		Value:             card.Value,
		Emoji:             card.Emoji,
		PlacedBy:          actorID,
		OriginalTileColor: original,
	}
	tile.Color = card.Color
	tile.Emoji = card.Emoji
	RecordHeartPlacement(gs, actorID)

	return &ActionResult{
		Effect: EffectHeart,
		Card:   card,
		Tile:   cloneTile(tile),
		ScoreChanges: []ScoreChange{{
			UserID: actorID,
			Delta:  CalculateScore(card.Color, original, card.Value),
		}},
	}, nil
}

func windCanTarget(tile *Tile, actorID string) bool {
	return tile.PlacedHeart != nil && tile.PlacedHeart.PlacedBy != actorID
}

func executeWind(gs *GameState, card Card, tile *Tile, actorID string) (*ActionResult, error) {
	if tile == nil || !windCanTarget(tile, actorID) {
		return nil, NewActionError(MsgInvalidWindTarget)
	}
	owner := tile.PlacedHeart.PlacedBy
	if IsPlayerProtected(gs, owner, gs.TurnCount) {
		return nil, NewActionError(MsgOpponentShielded)
	}

	removed := *tile.PlacedHeart
	tile.PlacedHeart = nil
	tile.Color = removed.OriginalTileColor
	tile.Emoji = TileEmoji(removed.OriginalTileColor)

	return &ActionResult{
		Effect:       EffectWind,
		Card:         card,
		Tile:         cloneTile(tile),
		RemovedHeart: &removed,
		ScoreChanges: []ScoreChange{{UserID: owner, Delta: -removed.Value}},
	}, nil
}

func recycleCanTarget(tile *Tile, _ string) bool {
	return tile.PlacedHeart == nil && tile.Color != ColorWhite
}

func executeRecycle(gs *GameState, card Card, tile *Tile, actorID string) (*ActionResult, error) {
	if tile == nil || !recycleCanTarget(tile, actorID) {
		return nil, NewActionError(MsgInvalidRecycleTarget)
	}
	if BoardHasProtectedHeart(gs, gs.TurnCount) {
		return nil, NewActionError(MsgTileShielded)
	}

	tile.Color = ColorWhite
	tile.Emoji = TileEmoji(ColorWhite)

	return &ActionResult{
		Effect: EffectRecycle,
		Card:   card,
		Tile:   cloneTile(tile),
	}, nil
}

// Shield targets the acting player, never a tile.
func shieldCanTarget(_ *Tile, _ string) bool {
	return false
}

func executeShield(gs *GameState, card Card, _ *Tile, actorID string) (*ActionResult, error) {
	s, reinforced, err := ActivateShield(gs, actorID, gs.TurnCount)
	if err != nil {
		return nil, err
	}
	cp := *s
	return &ActionResult{
		Effect:     EffectShield,
		Card:       card,
		Shield:     &cp,
		Reinforced: reinforced,
	}, nil
}

func cloneTile(t *Tile) *Tile {
	if t == nil {
		return nil
	}
	cp := *t
	if t.PlacedHeart != nil {
		ph := *t.PlacedHeart
		cp.PlacedHeart = &ph
	}
	return &cp
}

// CloneTiles deep-copies a board.
func CloneTiles(tiles []*Tile) []*Tile {
	out := make([]*Tile, len(tiles))
	for i, t := range tiles {
		out[i] = cloneTile(t)
	}
	return out
}
