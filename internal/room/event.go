// internal/room/event.go
package room

import "encoding/json"

// Audience says who receives an event.
type Audience string

const (
	ToRoom   Audience = "room"
	ToSender Audience = "sender"
)

// Outbound event names.
const (
	EventRoomJoined   = "room-joined"
	EventPlayerJoined = "player-joined"
	EventPlayerLeft   = "player-left"
	EventPlayerReady  = "player-ready"
	EventGameStart    = "game-start"
	EventTurnChanged  = "turn-changed"
	EventHeartDrawn   = "heart-drawn"
	EventHeartPlaced  = "heart-placed"
	EventMagicDrawn   = "magic-card-drawn"
	EventMagicUsed    = "magic-card-used"
	EventTilesUpdated = "tiles-updated"
	EventRoomError    = "room-error"
	EventGameOver     = "game-over"
)

// Event is produced by the engine and delivered by the transport. Data is built under the
// room lock from copies, so it is safe to marshal after the lock is released.
type Event struct {
	Name  string
	Scope Audience
	Room  string
	Data  map[string]any
}

// MarshalJSON flattens Data next to type and roomCode.
func (ev Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(ev.Data)+2)
	for k, v := range ev.Data {
		out[k] = v
	}
	out["type"] = ev.Name
	if ev.Room != "" {
		out["roomCode"] = ev.Room
	}
	return json.Marshal(out)
}

func roomEvent(code, name string, data map[string]any) Event {
	return Event{Name: name, Scope: ToRoom, Room: code, Data: data}
}

func senderEvent(code, name string, data map[string]any) Event {
	return Event{Name: name, Scope: ToSender, Room: code, Data: data}
}

// ErrorEvent is the room-error reply the transport sends for a rejected action.
func ErrorEvent(code, message string) Event {
	return senderEvent(code, EventRoomError, map[string]any{"message": message})
}

// For returns ev as userID should see it. Other players' hands are dropped from the room
// view, and a drawn card is only shown to the player who drew it.
func (ev Event) For(userID string) Event {
	if len(ev.Data) == 0 {
		return ev
	}
	out := ev
	out.Data = make(map[string]any, len(ev.Data))
	for k, v := range ev.Data {
		out.Data[k] = v
	}
	if ev.Name == EventHeartDrawn || ev.Name == EventMagicDrawn {
		if drawer, _ := ev.Data["userId"].(string); drawer != userID {
			delete(out.Data, "card")
		}
	}
	if raw, ok := ev.Data["room"].(json.RawMessage); ok {
		out.Data["room"] = redactHands(raw, userID)
	}
	return out
}

// redactHands keeps only userID's entry in gameState.playerHands. A view that cannot be
// parsed is dropped rather than sent whole.
func redactHands(raw json.RawMessage, userID string) json.RawMessage {
	var room map[string]json.RawMessage
	if err := json.Unmarshal(raw, &room); err != nil {
		return nil
	}
	gsRaw, ok := room["gameState"]
	if !ok || string(gsRaw) == "null" {
		return raw
	}
	var gs map[string]json.RawMessage
	if err := json.Unmarshal(gsRaw, &gs); err != nil {
		delete(room, "gameState")
		return marshalRaw(room)
	}
	var hands map[string]json.RawMessage
	if err := json.Unmarshal(gs["playerHands"], &hands); err != nil {
		hands = nil
	}
	own := make(map[string]json.RawMessage, 1)
	if h, ok := hands[userID]; ok {
		own[userID] = h
	}
	gs["playerHands"] = marshalRaw(own)
	room["gameState"] = marshalRaw(gs)
	return marshalRaw(room)
}

func marshalRaw(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
