// Package rating computes Elo updates for finished two-player matches.
package rating

import "math"

const (
	// DefaultRating is assigned to new accounts.
	DefaultRating = 1200
	// KFactor bounds how far a single match can move a rating.
	KFactor = 32
)

// Outcome is the first player's result, on the Elo scale.
type Outcome float64

const (
	Loss Outcome = 0
	Draw Outcome = 0.5
	Win  Outcome = 1
)

// Expected is the probability that a player rated a beats one rated b.
func Expected(a, b int) float64 {
	return 1 / (1 + math.Pow(10, float64(b-a)/400))
}

// Update1v1 returns both new ratings after a match where a scored outcome against b.
// The changes are symmetric, so the pool total is preserved.
func Update1v1(a, b int, outcome Outcome) (int, int) {
	delta := int(math.Round(KFactor * (float64(outcome) - Expected(a, b))))
	return a + delta, b - delta
}
