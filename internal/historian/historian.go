// Package historian drains the room action queue into Postgres and flags rooms that went
// quiet as abandoned.
package historian

import (
	"context"
	"sync"
	"time"

	"github.com/heartboard/server/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Queue yields queued actions. ok is false when nothing arrived within timeout.
type Queue interface {
	Pop(ctx context.Context, timeout time.Duration) (action models.RoomAction, ok bool, err error)
}

// Sink persists what the historian collects.
type Sink interface {
	InsertRoomActions(ctx context.Context, recs []models.RoomAction) error
	MarkRoomAbandoned(ctx context.Context, code string) error
}

// Config tunes batching and the inactivity sweep.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	PopTimeout    time.Duration
	Inactivity    time.Duration
	SweepInterval time.Duration
}

// DefaultConfig mirrors the HISTORIAN_* environment defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     20,
		FlushInterval: 500 * time.Millisecond,
		PopTimeout:    3 * time.Second,
		Inactivity:    10 * time.Minute,
		SweepInterval: time.Minute,
	}
}

// Service is the historian loop.
type Service struct {
	queue  Queue
	sink   Sink
	cfg    Config
	logger *logrus.Logger

	mu           sync.Mutex
	batch        []models.RoomAction
	lastActivity map[string]time.Time

	now func() time.Time
}

// New builds a Service. Zero config fields fall back to DefaultConfig.
func New(queue Queue, sink Sink, cfg Config, logger *logrus.Logger) *Service {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = def.PopTimeout
	}
	if cfg.Inactivity <= 0 {
		cfg.Inactivity = def.Inactivity
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	return &Service{
		queue:        queue,
		sink:         sink,
		cfg:          cfg,
		logger:       logger,
		batch:        make([]models.RoomAction, 0, cfg.BatchSize),
		lastActivity: make(map[string]time.Time),
		now:          time.Now,
	}
}

// Run pops, flushes and sweeps until ctx is cancelled. Whatever is still batched is
// flushed on the way out.
func (s *Service) Run(ctx context.Context) error {
	s.logger.WithFields(logrus.Fields{
		"batchSize":  s.cfg.BatchSize,
		"flush":      s.cfg.FlushInterval,
		"inactivity": s.cfg.Inactivity,
	}).Info("historian started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { s.readLoop(gctx); return nil })
	g.Go(func() error { s.tick(gctx, s.cfg.FlushInterval, s.Flush); return nil })
	g.Go(func() error { s.tick(gctx, s.cfg.SweepInterval, s.SweepInactive); return nil })
	err := g.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Flush(flushCtx)
	s.logger.Info("historian stopped")
	return err
}

func (s *Service) tick(ctx context.Context, every time.Duration, f func(context.Context)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f(ctx)
		}
	}
}

func (s *Service) readLoop(ctx context.Context) {
	for ctx.Err() == nil {
		rec, ok, err := s.queue.Pop(ctx, s.cfg.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.WithError(err).Error("historian pop failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if !ok {
			continue
		}
		if s.add(rec) {
			s.Flush(ctx)
		}
	}
}

// add appends rec and reports whether the batch is full.
func (s *Service) add(rec models.RoomAction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity[rec.RoomCode] = s.now()
	s.batch = append(s.batch, rec)
	return len(s.batch) >= s.cfg.BatchSize
}

// Flush writes the pending batch. A failed batch is logged and dropped.
func (s *Service) Flush(ctx context.Context) {
	s.mu.Lock()
	if len(s.batch) == 0 {
		s.mu.Unlock()
		return
	}
	recs := s.batch
	s.batch = make([]models.RoomAction, 0, s.cfg.BatchSize)
	s.mu.Unlock()

	if err := s.sink.InsertRoomActions(ctx, recs); err != nil {
		s.logger.WithError(err).WithField("count", len(recs)).Error("historian flush failed")
		return
	}
	s.logger.WithField("count", len(recs)).Debug("flushed room actions")
}

// SweepInactive marks rooms with no queued action for longer than Inactivity as abandoned
// and stops tracking them.
func (s *Service) SweepInactive(ctx context.Context) {
	now := s.now()
	var stale []string
	s.mu.Lock()
	for code, last := range s.lastActivity {
		if now.Sub(last) > s.cfg.Inactivity {
			stale = append(stale, code)
			delete(s.lastActivity, code)
		}
	}
	s.mu.Unlock()

	for _, code := range stale {
		if err := s.sink.MarkRoomAbandoned(ctx, code); err != nil {
			s.logger.WithError(err).WithField("room", code).Error("failed to mark room abandoned")
			continue
		}
		s.logger.WithField("room", code).Info("room marked abandoned after inactivity")
	}
}

// Tracked returns how many rooms are being watched for inactivity.
func (s *Service) Tracked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lastActivity)
}
