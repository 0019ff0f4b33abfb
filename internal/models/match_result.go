package models

import "time"

// MatchPlayer is one seat of a finished match.
type MatchPlayer struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Score  int    `json:"score"`
}

// MatchResult is written once per finished match.
type MatchResult struct {
	RoomCode   string        `json:"room_code"`
	WinnerID   string        `json:"winner_id,omitempty"`
	IsTie      bool          `json:"is_tie"`
	Reason     string        `json:"reason"`
	TurnCount  int           `json:"turn_count"`
	Players    []MatchPlayer `json:"players"`
	FinishedAt time.Time     `json:"finished_at"`
}
