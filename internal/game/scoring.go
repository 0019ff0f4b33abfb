package game

// CalculateScore scores a heart against the tile color it was placed on (before placement).
// White tiles score the face value, matching colors score double, anything else scores 0.
func CalculateScore(heartColor, tileColor TileColor, value int) int {
	switch {
	case tileColor == ColorWhite:
		return value
	case tileColor == heartColor:
		return value * 2
	default:
		return 0
	}
}

// ScoreChange is a signed adjustment to one player's running total.
type ScoreChange struct {
	UserID string `json:"userId"`
	Delta  int    `json:"delta"`
}

// ApplyScoreChanges adds each delta to its player. Totals never drop below zero.
// Changes for players no longer in the room are ignored.
func ApplyScoreChanges(room *Room, changes []ScoreChange) {
	for _, ch := range changes {
		p := room.FindPlayer(ch.UserID)
		if p == nil {
			continue
		}
		p.Score += ch.Delta
		if p.Score < 0 {
			p.Score = 0
		}
	}
}

// Scores returns every player's current total keyed by user id.
func Scores(room *Room) map[string]int {
	out := make(map[string]int, len(room.Players))
	for _, p := range room.Players {
		out[p.UserID] = p.Score
	}
	return out
}
