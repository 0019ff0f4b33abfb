// internal/room/engine.go
package room

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/heartboard/server/internal/game"
	"github.com/heartboard/server/internal/models"
	"github.com/sirupsen/logrus"
)

// Persister stores room snapshots. SaveRoom receives the JSON encoding of a game.Room.
type Persister interface {
	SaveRoom(ctx context.Context, code string, snapshot []byte) error
	DeleteRoom(ctx context.Context, code string) error
}

// RoomLoader returns every stored snapshot keyed by room code.
type RoomLoader interface {
	LoadRooms(ctx context.Context) (map[string][]byte, error)
}

// ActionRecorder receives every accepted action for the history log.
type ActionRecorder interface {
	RecordAction(ctx context.Context, action models.RoomAction) error
}

// ResultRecorder receives finished matches.
type ResultRecorder interface {
	RecordResult(ctx context.Context, result models.MatchResult) error
}

// Persisters fans a snapshot out to several stores. Every store is tried; the first error
// is returned.
type Persisters []Persister

func (ps Persisters) SaveRoom(ctx context.Context, code string, snapshot []byte) error {
	var first error
	for _, p := range ps {
		if err := p.SaveRoom(ctx, code, snapshot); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (ps Persisters) DeleteRoom(ctx context.Context, code string) error {
	var first error
	for _, p := range ps {
		if err := p.DeleteRoom(ctx, code); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Options tune the engine.
type Options struct {
	LockScope         LockScope
	AllowDebugActions bool
	// PersistTimeout bounds each background persistence or recording call.
	PersistTimeout time.Duration
}

// DefaultOptions returns room-scoped locks, debug actions off and a 5s persist timeout.
func DefaultOptions() Options {
	return Options{
		LockScope:      ScopeRoom,
		PersistTimeout: 5 * time.Second,
	}
}

// Engine is the authoritative game server: it owns the room store and the turn locks and
// runs every player action through lock, validation, mutation and persistence.
//
// Persister, Actions and Results are optional collaborators set after construction.
type Engine struct {
	Rooms *Store
	Locks *TurnLocks

	Persister Persister
	Actions   ActionRecorder
	Results   ResultRecorder

	logger *logrus.Logger
	opts   Options
	rng    *lockedRand
	now    func() time.Time
	wg     sync.WaitGroup

	persistMu sync.Mutex
	pending   map[string]*pendingSnapshot
	flushing  map[string]bool
}

type pendingSnapshot struct {
	data    []byte
	deleted bool
}

// lockedRand serializes a *rand.Rand shared by every room.
type lockedRand struct {
	mu sync.Mutex
	r  game.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// NewEngine builds an engine with an empty store.
func NewEngine(logger *logrus.Logger, opts Options) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = DefaultOptions().PersistTimeout
	}
	return &Engine{
		Rooms:    NewStore(),
		Locks:    NewTurnLocks(opts.LockScope, logger),
		logger:   logger,
		opts:     opts,
		rng:      &lockedRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))},
		now:      time.Now,
		pending:  make(map[string]*pendingSnapshot),
		flushing: make(map[string]bool),
	}
}

// SetRand replaces the randomness used for dealing and draws.
func (e *Engine) SetRand(r game.Rand) {
	e.rng = &lockedRand{r: r}
}

// Wait blocks until every background persistence and recording call has returned.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Clear drops every room and lock.
func (e *Engine) Clear() {
	e.Rooms.Clear()
	e.Locks.Clear()
}

// action describes one engine call. run executes with the turn lock and the room mutex held
// and returns the events to deliver.
type action struct {
	name    string
	code    string
	userID  string
	payload map[string]any

	create   bool
	skipLock bool

	run func(ent *Entry, room *game.Room) ([]Event, error)
}

func (e *Engine) do(a action) (events []Event, err error) {
	code, err := game.NormalizeRoomCode(a.code)
	if err != nil {
		return nil, err
	}
	if a.userID == "" {
		return nil, ErrMissingUser
	}
	log := e.logger.WithFields(logrus.Fields{"room": code, "user": a.userID, "action": a.name})

	if !a.skipLock {
		if !e.Locks.Acquire(code, a.userID) {
			return nil, game.NewActionError(game.MsgActionInProgress)
		}
		defer e.Locks.Release(code, a.userID)
	}

	ent, err := e.lockEntry(code, a.create)
	if err != nil {
		return nil, err
	}
	defer ent.Mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("recovered panic: %v", r)
			events, err = nil, game.NewActionError(game.MsgInvalidRoomState)
		}
	}()

	room := ent.State
	for _, fix := range game.Repair(room) {
		log.Warnf("repaired room: %s", fix)
	}
	if res := game.ValidateRoomState(room); !res.Valid {
		return nil, res.Err()
	}

	events, err = a.run(ent, room)
	if err != nil {
		log.Debugf("rejected: %v", err)
		e.dropIfEmpty(code, ent)
		return nil, err
	}

	e.record(ent, code, a)
	if !e.dropIfEmpty(code, ent) {
		e.persist(code, snapshot(room))
	}
	return events, nil
}

// lockEntry returns the live entry for code with ent.Mu held. An entry that was deleted
// while the caller waited on its mutex is let go and the lookup starts over.
func (e *Engine) lockEntry(code string, create bool) (*Entry, error) {
	for {
		var ent *Entry
		if create {
			ent, _ = e.Rooms.GetOrCreate(code)
		} else {
			var ok bool
			if ent, ok = e.Rooms.Get(code); !ok {
				return nil, game.NewActionError(game.MsgRoomNotFound)
			}
		}

		ent.Mu.Lock()
		if cur, ok := e.Rooms.Get(code); ok && cur == ent {
			return ent, nil
		}
		ent.Mu.Unlock()
	}
}

// dropIfEmpty deletes a room with no players left. Caller holds ent.Mu.
func (e *Engine) dropIfEmpty(code string, ent *Entry) bool {
	if len(ent.State.Players) > 0 {
		return false
	}
	if e.Rooms.deleteIf(code, ent) {
		e.logger.WithField("room", code).Info("room empty, deleted")
		e.persistDelete(code)
	}
	return true
}

func snapshot(room *game.Room) []byte {
	data, err := json.Marshal(room)
	if err != nil {
		logrus.Errorf("marshal room %s: %v", room.Code, err)
		return nil
	}
	return data
}

// view is the room as embedded in events.
func view(room *game.Room) json.RawMessage {
	return json.RawMessage(snapshot(room))
}

// persist queues the latest snapshot for code. At most one writer per room runs at a time
// and it always writes the newest snapshot, so saves cannot land out of order.
func (e *Engine) persist(code string, data []byte) {
	if e.Persister == nil || data == nil {
		return
	}
	e.enqueue(code, &pendingSnapshot{data: data})
}

func (e *Engine) persistDelete(code string) {
	if e.Persister == nil {
		return
	}
	e.enqueue(code, &pendingSnapshot{deleted: true})
}

func (e *Engine) enqueue(code string, next *pendingSnapshot) {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()
	e.pending[code] = next
	if e.flushing[code] {
		return
	}
	e.flushing[code] = true
	e.wg.Add(1)
	go e.flush(code)
}

func (e *Engine) flush(code string) {
	defer e.wg.Done()
	for {
		e.persistMu.Lock()
		p, ok := e.pending[code]
		if !ok {
			delete(e.flushing, code)
			e.persistMu.Unlock()
			return
		}
		delete(e.pending, code)
		e.persistMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), e.opts.PersistTimeout)
		var err error
		if p.deleted {
			err = e.Persister.DeleteRoom(ctx, code)
		} else {
			err = e.Persister.SaveRoom(ctx, code, p.data)
		}
		cancel()
		if err != nil {
			e.logger.WithField("room", code).Warnf("persist room: %v", err)
		}
	}
}

// record publishes the accepted action for the history log. Caller holds ent.Mu.
func (e *Engine) record(ent *Entry, code string, a action) {
	if e.Actions == nil {
		return
	}
	rec := models.RoomAction{
		RoomCode:    code,
		ActionIndex: ent.nextSeq(),
		ActorUserID: a.userID,
		ActionType:  a.name,
		Payload:     a.payload,
		Timestamp:   e.now().UnixMilli(),
	}
	e.background("record action", func(ctx context.Context) error {
		return e.Actions.RecordAction(ctx, rec)
	})
}

func (e *Engine) background(what string, fn func(ctx context.Context) error) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.opts.PersistTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			e.logger.Warnf("%s: %v", what, err)
		}
	}()
}

// Snapshot returns the JSON encoding of the room for code.
func (e *Engine) Snapshot(code string) ([]byte, error) {
	code, err := game.NormalizeRoomCode(code)
	if err != nil {
		return nil, err
	}
	ent, ok := e.Rooms.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}
	ent.Mu.Lock()
	defer ent.Mu.Unlock()
	data, err := json.Marshal(ent.State)
	if err != nil {
		return nil, fmt.Errorf("marshal room %s: %w", code, err)
	}
	return data, nil
}

// Restore loads stored snapshots into the store. Rooms that fail to decode or have no
// players are skipped. It returns the number of rooms restored.
func (e *Engine) Restore(ctx context.Context, loader RoomLoader) (int, error) {
	snaps, err := loader.LoadRooms(ctx)
	if err != nil {
		return 0, fmt.Errorf("load room snapshots: %w", err)
	}
	n := 0
	for key, data := range snaps {
		log := e.logger.WithField("room", key)
		var room game.Room
		if err := json.Unmarshal(data, &room); err != nil {
			log.Warnf("skipping undecodable snapshot: %v", err)
			continue
		}
		code, err := game.NormalizeRoomCode(room.Code)
		if err != nil {
			log.Warnf("skipping snapshot with bad code %q", room.Code)
			continue
		}
		room.Code = code
		for _, fix := range game.Repair(&room) {
			log.Warnf("repaired restored room: %s", fix)
		}
		if len(room.Players) == 0 {
			continue
		}
		e.Rooms.Upsert(&room)
		n++
	}
	e.logger.Infof("restored %d rooms", n)
	return n, nil
}
