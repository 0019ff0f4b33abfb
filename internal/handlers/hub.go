// internal/handlers/hub.go
package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/heartboard/server/internal/room"
	"github.com/sirupsen/logrus"
)

// Connection is one open room socket.
type Connection struct {
	ID      room.Identity
	OutChan chan []byte
	cancel  context.CancelFunc

	mu   sync.Mutex
	room string
}

func newConnection(id room.Identity, cancel context.CancelFunc) *Connection {
	return &Connection{ID: id, OutChan: make(chan []byte, 32), cancel: cancel}
}

// Room is the code of the room this connection joined, or "".
func (c *Connection) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *Connection) setRoom(code string) {
	c.mu.Lock()
	c.room = code
	c.mu.Unlock()
}

// send queues data without blocking. A full buffer drops the connection.
func (c *Connection) send(data []byte) bool {
	select {
	case c.OutChan <- data:
		return true
	default:
		c.cancel()
		return false
	}
}

// Hub tracks which connections belong to which room.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Connection]struct{}
	logger *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{rooms: make(map[string]map[*Connection]struct{}), logger: logger}
}

// Join moves c into code, leaving any previous room.
func (h *Hub) Join(code string, c *Connection) {
	if prev := c.Room(); prev != "" && prev != code {
		h.Leave(prev, c)
	}
	h.mu.Lock()
	set, ok := h.rooms[code]
	if !ok {
		set = make(map[*Connection]struct{})
		h.rooms[code] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
	c.setRoom(code)
}

// Leave removes c from code.
func (h *Hub) Leave(code string, c *Connection) {
	h.mu.Lock()
	if set, ok := h.rooms[code]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, code)
		}
	}
	h.mu.Unlock()
	if c.Room() == code {
		c.setRoom("")
	}
}

// Connected reports whether userID has any other connection in code.
func (h *Hub) Connected(code, userID string, except *Connection) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[code] {
		if c != except && c.ID.UserID == userID {
			return true
		}
	}
	return false
}

// Members returns the connections in code.
func (h *Hub) Members(code string) []*Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Connection, 0, len(h.rooms[code]))
	for c := range h.rooms[code] {
		out = append(out, c)
	}
	return out
}

// Deliver sends each event to its audience. Sender-scoped events go to sender only, and
// are dropped when sender is nil. Each recipient gets the event as its user should see it.
func (h *Hub) Deliver(events []room.Event, sender *Connection) {
	for _, ev := range events {
		switch ev.Scope {
		case room.ToSender:
			if sender != nil {
				if data, ok := h.encode(ev, sender.ID.UserID); ok {
					h.push(sender, data, ev)
				}
			}
		default:
			byUser := make(map[string][]byte)
			for _, c := range h.Members(ev.Room) {
				data, ok := byUser[c.ID.UserID]
				if !ok {
					if data, ok = h.encode(ev, c.ID.UserID); !ok {
						continue
					}
					byUser[c.ID.UserID] = data
				}
				h.push(c, data, ev)
			}
		}
	}
}

func (h *Hub) encode(ev room.Event, userID string) ([]byte, bool) {
	data, err := json.Marshal(ev.For(userID))
	if err != nil {
		h.logger.WithError(err).WithField("event", ev.Name).Error("failed to marshal event")
		return nil, false
	}
	return data, true
}

func (h *Hub) push(c *Connection, data []byte, ev room.Event) {
	if !c.send(data) {
		h.logger.WithFields(logrus.Fields{
			"room":  ev.Room,
			"user":  c.ID.UserID,
			"event": ev.Name,
		}).Warn("outbound buffer full, dropping connection")
	}
}
