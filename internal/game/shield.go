// internal/game/shield.go
package game

// ShieldDuration is the counter a fresh or reinforced shield starts with.
const ShieldDuration = 3

// ShieldSweep reports what CheckAndExpireShields removed.
type ShieldSweep struct {
	Expired []string `json:"expired,omitempty"`
	Invalid []string `json:"invalid,omitempty"`
}

func shieldActive(s *Shield) bool {
	return s != nil && s.Active && s.RemainingTurns > 0
}

// ActivateShield creates or reinforces actorID's shield. It fails while any other player
// holds an active shield. Reinforcing resets the counter and never adds a second entry.
func ActivateShield(gs *GameState, actorID string, turnCount int) (*Shield, bool, error) {
	for owner, s := range gs.Shields {
		if owner != actorID && shieldActive(s) {
			return nil, false, NewActionError(MsgOpponentShieldActive)
		}
	}
	if gs.Shields == nil {
		gs.Shields = make(map[string]*Shield)
	}

	if existing := gs.Shields[actorID]; shieldActive(existing) {
		existing.RemainingTurns = ShieldDuration
		existing.ActivatedTurn = turnCount
		return existing, true, nil
	}

	s := &Shield{
		Active:            true,
		RemainingTurns:    ShieldDuration,
		ActivatedTurn:     turnCount,
		ActivatedBy:       actorID,
		ProtectedPlayerID: actorID,
	}
	gs.Shields[actorID] = s
	return s, false, nil
}

// CheckAndExpireShields runs once per completed turn. Each active shield loses one turn;
// a shield activated with 3 survives the first sweep with 2 and is removed on the second.
// Entries that are nil, inactive or carry a non-positive counter are deleted outright.
func CheckAndExpireShields(gs *GameState, turnCount int) ShieldSweep {
	var sweep ShieldSweep
	if gs == nil || len(gs.Shields) == 0 {
		return sweep
	}
	for owner, s := range gs.Shields {
		if !shieldActive(s) || s.ActivatedTurn > turnCount {
			delete(gs.Shields, owner)
			sweep.Invalid = append(sweep.Invalid, owner)
			continue
		}
		s.RemainingTurns--
		if s.RemainingTurns <= 1 {
			delete(gs.Shields, owner)
			sweep.Expired = append(sweep.Expired, owner)
		}
	}
	return sweep
}

// IsPlayerProtected reports whether userID currently holds a live shield.
func IsPlayerProtected(gs *GameState, userID string, currentTurnCount int) bool {
	if gs == nil {
		return false
	}
	s, ok := gs.Shields[userID]
	if !ok || !shieldActive(s) {
		return false
	}
	return s.ActivatedTurn <= currentTurnCount
}

// IsTileProtected reports whether the heart on tileID belongs to a protected player.
func IsTileProtected(gs *GameState, tileID int, currentTurnCount int) bool {
	if gs == nil {
		return false
	}
	t := gs.FindTile(tileID)
	if t == nil || t.PlacedHeart == nil {
		return false
	}
	return IsPlayerProtected(gs, t.PlacedHeart.PlacedBy, currentTurnCount)
}

// BoardHasProtectedHeart reports whether any shielded player has a heart anywhere on the
// board. Recycle protection is board-wide, not per tile.
func BoardHasProtectedHeart(gs *GameState, currentTurnCount int) bool {
	if gs == nil {
		return false
	}
	for _, t := range gs.Tiles {
		if t == nil || t.PlacedHeart == nil {
			continue
		}
		if IsPlayerProtected(gs, t.PlacedHeart.PlacedBy, currentTurnCount) {
			return true
		}
	}
	return false
}
