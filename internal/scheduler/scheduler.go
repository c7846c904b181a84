// Package scheduler drives the sync engine on three triggers: a fixed
// interval, a network reconnect, and explicit caller requests. Constrained
// execution windows run High-priority work only under a hard deadline.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrAlreadyRunning is returned by Start when the scheduler is active.
var ErrAlreadyRunning = errors.New("scheduler already running")

// Engine is the scheduler's view of the sync engine.
type Engine interface {
	ForceSync(ctx context.Context) error
	SyncHighPriority(ctx context.Context) error
	SetOnline(online bool)
}

// Config tunes trigger timing.
type Config struct {
	// Interval between periodic syncs while running
	Interval time.Duration
	// ConstrainedWindow is the wall-clock budget for RunConstrained
	ConstrainedWindow time.Duration
}

// DefaultConfig syncs every 5 minutes with 25-second background windows.
func DefaultConfig() Config {
	return Config{
		Interval:          5 * time.Minute,
		ConstrainedWindow: 25 * time.Second,
	}
}

// Scheduler multiplexes sync triggers into serialized engine runs.
type Scheduler struct {
	engine Engine
	logger *slog.Logger
	cfg    Config

	// requests carries manual and reconnect triggers; capacity 1 so a
	// trigger during a running sync coalesces into one follow-up run
	requests chan struct{}

	mu      sync.Mutex
	running bool
	online  bool
	stopCh  chan struct{}
	done    chan struct{}
}

// New wires a scheduler over the engine.
func New(engine Engine, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.ConstrainedWindow <= 0 {
		cfg.ConstrainedWindow = 25 * time.Second
	}
	return &Scheduler{
		engine:   engine,
		logger:   logger,
		cfg:      cfg,
		online:   true,
		requests: make(chan struct{}, 1),
	}
}

// Start launches the trigger loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	stopCh, done := s.stopCh, s.done
	s.mu.Unlock()

	go s.loop(ctx, stopCh, done)

	s.logger.Info("scheduler started", "interval", s.cfg.Interval)
	return nil
}

// Stop halts the trigger loop and waits for it to exit. A sync already
// handed to the engine finishes on its own.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.done
	s.mu.Unlock()

	<-done
	s.logger.Info("scheduler stopped")
}

// RequestSync triggers a sync as soon as possible. Requests arriving while
// a sync runs coalesce into a single follow-up.
func (s *Scheduler) RequestSync() {
	select {
	case s.requests <- struct{}{}:
	default:
	}
}

// SetOnline records connectivity. An offline-to-online transition triggers
// an immediate sync to flush work queued while disconnected.
func (s *Scheduler) SetOnline(online bool) {
	s.mu.Lock()
	reconnected := online && !s.online
	s.online = online
	s.mu.Unlock()

	s.engine.SetOnline(online)

	if reconnected {
		s.logger.Info("network reconnected, triggering sync")
		s.RequestSync()
	}
}

// RunConstrained processes High-priority operations only, within a hard
// wall-clock window. Used for platform background execution budgets.
func (s *Scheduler) RunConstrained(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ConstrainedWindow)
	defer cancel()

	s.logger.Info("constrained sync window opened", "budget", s.cfg.ConstrainedWindow)

	err := s.engine.SyncHighPriority(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("constrained window expired before drain completed")
		return nil
	}
	return err
}

func (s *Scheduler) loop(ctx context.Context, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			s.run(ctx, "interval")
		case <-s.requests:
			s.run(ctx, "request")
		}
	}
}

func (s *Scheduler) run(ctx context.Context, trigger string) {
	s.mu.Lock()
	online := s.online
	s.mu.Unlock()
	if !online {
		return
	}

	if err := s.engine.ForceSync(ctx); err != nil {
		s.logger.Warn("scheduled sync failed", "trigger", trigger, "error", err)
	}
}
