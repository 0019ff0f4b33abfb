// internal/room/turn_lock.go
package room

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// LockScope selects what a turn lock key covers.
type LockScope int

const (
	// ScopeRoom allows one in-flight action per room regardless of actor.
	ScopeRoom LockScope = iota
	// ScopeActor allows one in-flight action per (room, actor) pair.
	ScopeActor
)

func (s LockScope) String() string {
	if s == ScopeActor {
		return "actor"
	}
	return "room"
}

// ParseLockScope accepts "room" or "actor".
func ParseLockScope(s string) (LockScope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "room":
		return ScopeRoom, nil
	case "actor":
		return ScopeActor, nil
	default:
		return ScopeRoom, fmt.Errorf("unknown turn lock scope %q", s)
	}
}

type lockEntry struct {
	roomCode string
	holder   string
	acquired time.Time
}

// TurnLocks is a non-blocking try-lock table. Acquire never waits: a held key fails at once
// and the caller reports "Action in progress" to the player.
type TurnLocks struct {
	mu     sync.Mutex
	scope  LockScope
	locks  map[string]lockEntry
	logger *logrus.Logger
	now    func() time.Time
}

// NewTurnLocks returns an empty lock table with the given key scope.
func NewTurnLocks(scope LockScope, logger *logrus.Logger) *TurnLocks {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TurnLocks{
		scope:  scope,
		locks:  make(map[string]lockEntry),
		logger: logger,
		now:    time.Now,
	}
}

// Scope returns the key scope the table was built with.
func (l *TurnLocks) Scope() LockScope {
	return l.scope
}

func (l *TurnLocks) key(roomCode, actorID string) string {
	if l.scope == ScopeActor {
		return roomCode + "|" + actorID
	}
	return roomCode
}

// Acquire takes the lock for (roomCode, actorID) and reports whether it succeeded.
func (l *TurnLocks) Acquire(roomCode, actorID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := l.key(roomCode, actorID)
	if _, held := l.locks[k]; held {
		return false
	}
	l.locks[k] = lockEntry{roomCode: roomCode, holder: actorID, acquired: l.now()}
	return true
}

// Release frees the lock for (roomCode, actorID). Releasing a lock held by someone else, or
// one that is not held, does nothing.
func (l *TurnLocks) Release(roomCode, actorID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := l.key(roomCode, actorID)
	if e, ok := l.locks[k]; ok && e.holder == actorID {
		delete(l.locks, k)
	}
}

// ReleaseActor frees every lock actorID holds in any room and returns how many it freed.
func (l *TurnLocks) ReleaseActor(actorID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, e := range l.locks {
		if e.holder == actorID {
			delete(l.locks, k)
			n++
		}
	}
	return n
}

// Held reports whether actorID currently holds the lock for roomCode.
func (l *TurnLocks) Held(roomCode, actorID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.locks[l.key(roomCode, actorID)]
	return ok && e.holder == actorID
}

// SweepStale force-releases locks held longer than maxAge and returns how many it dropped.
func (l *TurnLocks) SweepStale(maxAge time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-maxAge)
	n := 0
	for k, e := range l.locks {
		if e.acquired.Before(cutoff) {
			delete(l.locks, k)
			n++
			l.logger.WithFields(logrus.Fields{
				"room": e.roomCode,
				"user": e.holder,
				"age":  l.now().Sub(e.acquired).String(),
			}).Warn("force-released stale turn lock")
		}
	}
	return n
}

// Run sweeps stale locks every interval until ctx is done.
func (l *TurnLocks) Run(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.SweepStale(maxAge)
		}
	}
}

// Len returns the number of held locks.
func (l *TurnLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// Clear drops every lock.
func (l *TurnLocks) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locks = make(map[string]lockEntry)
}
