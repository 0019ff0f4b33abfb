package models

// RoomAction is one accepted engine action, queued for the historian.
type RoomAction struct {
	RoomCode    string         `json:"room_code"`
	ActionIndex int            `json:"action_index"`
	ActorUserID string         `json:"actor_user_id"`
	ActionType  string         `json:"action_type"`
	Payload     map[string]any `json:"action_payload,omitempty"`
	Timestamp   int64          `json:"timestamp"`
}
