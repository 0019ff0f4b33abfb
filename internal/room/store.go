// internal/room/store.go
package room

import (
	"errors"
	"sort"
	"sync"

	"github.com/heartboard/server/internal/game"
)

var (
	// ErrRoomNotFound is returned when a code has no live room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrMissingUser is returned for actions that carry no user id.
	ErrMissingUser = errors.New("missing user id")
)

// Entry is a live room plus the mutex guarding it. Hold Mu for every read or write of State.
type Entry struct {
	Mu    sync.Mutex
	State *game.Room

	// seq numbers accepted actions for the history log; guarded by Mu.
	seq int
}

// nextSeq returns the next action index. Caller holds Mu.
func (e *Entry) nextSeq() int {
	e.seq++
	return e.seq
}

// Store keeps every live room in memory, keyed by normalized room code.
type Store struct {
	mu    sync.Mutex
	rooms map[string]*Entry
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		rooms: make(map[string]*Entry),
	}
}

// Get returns the room for code.
func (s *Store) Get(code string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rooms[code]
	return e, ok
}

// GetOrCreate returns the room for code, creating an empty one if needed. created reports
// whether the room is new.
func (s *Store) GetOrCreate(code string) (e *Entry, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.rooms[code]; ok {
		return e, false
	}
	e = &Entry{State: game.NewRoom(code)}
	s.rooms[code] = e
	return e, true
}

// Upsert stores room under its code. An existing entry keeps its mutex and only has its
// state swapped, so goroutines already holding the entry stay coherent.
func (s *Store) Upsert(room *game.Room) *Entry {
	s.mu.Lock()
	e, ok := s.rooms[room.Code]
	if !ok {
		e = &Entry{State: room}
		s.rooms[room.Code] = e
		s.mu.Unlock()
		return e
	}
	s.mu.Unlock()

	e.Mu.Lock()
	e.State = room
	e.Mu.Unlock()
	return e
}

// Delete drops the room for code.
func (s *Store) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
}

// deleteIf drops code only while it still maps to e, so a room recreated under the same
// code after e emptied is left alone.
func (s *Store) deleteIf(code string, e *Entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.rooms[code]; ok && cur == e {
		delete(s.rooms, code)
		return true
	}
	return false
}

// Codes lists the live room codes in sorted order.
func (s *Store) Codes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	codes := make([]string, 0, len(s.rooms))
	for code := range s.rooms {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Len returns the number of live rooms.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// Clear drops every room. Used on shutdown and between tests.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = make(map[string]*Entry)
}
