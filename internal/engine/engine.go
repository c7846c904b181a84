// Package engine orchestrates the sync queue: it drains ready operations
// through the network gateway, routes conflicts to the resolver, reschedules
// transient failures through the retry policy, and publishes progress events.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkravets/offsync/internal/conflict"
	"github.com/mkravets/offsync/internal/events"
	"github.com/mkravets/offsync/internal/gateway"
	"github.com/mkravets/offsync/internal/models"
	"github.com/mkravets/offsync/internal/retry"
	"github.com/mkravets/offsync/internal/storage"
)

// ErrAlreadyRunning is returned by Start when the engine is active.
var ErrAlreadyRunning = errors.New("sync engine already running")

// serviceName keys the circuit breaker for the sync API.
const serviceName = "sync-api"

// Config tunes the engine.
type Config struct {
	// DrainInterval is how often the queue is polled while running
	DrainInterval time.Duration
	// OperationTimeout bounds one remote call; a timeout is transient
	OperationTimeout time.Duration
	// BatchSize caps operations fetched per drain cycle
	BatchSize int
	// MaxConcurrentOperations bounds the worker pool
	MaxConcurrentOperations int
}

// DefaultConfig polls every 30s, 4 workers, 50-operation batches, 15s per call.
func DefaultConfig() Config {
	return Config{
		DrainInterval:           30 * time.Second,
		OperationTimeout:        15 * time.Second,
		BatchSize:               50,
		MaxConcurrentOperations: 4,
	}
}

// Engine is the sync orchestrator. One active session per process.
type Engine struct {
	store    storage.Adapter
	gw       gateway.Gateway
	resolver *conflict.Resolver
	policy   *retry.Policy
	breakers *retry.BreakerSet
	bus      *events.Bus
	logger   *slog.Logger
	cfg      Config

	mu       sync.Mutex
	session  *models.SyncSession
	online   bool
	running  bool
	stopCh   chan struct{}
	loopDone chan struct{}
	// inflight tracks entity keys being processed so no entity id is ever
	// handled by two workers at once
	inflight map[string]struct{}
	// drainMu serializes drain cycles
	drainMu sync.Mutex
	wg      sync.WaitGroup
}

// New wires the engine. All collaborators are injected; the engine holds no
// global state.
func New(store storage.Adapter, gw gateway.Gateway, resolver *conflict.Resolver, policy *retry.Policy, breakers *retry.BreakerSet, bus *events.Bus, cfg Config, logger *slog.Logger) *Engine {
	if cfg.DrainInterval <= 0 {
		cfg.DrainInterval = 30 * time.Second
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 15 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxConcurrentOperations <= 0 {
		cfg.MaxConcurrentOperations = 4
	}

	return &Engine{
		store:    store,
		gw:       gw,
		resolver: resolver,
		policy:   policy,
		breakers: breakers,
		bus:      bus,
		logger:   logger,
		cfg:      cfg,
		online:   true,
		inflight: make(map[string]struct{}),
	}
}

// Start begins periodic draining.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.loopDone = make(chan struct{})
	stopCh, loopDone := e.stopCh, e.loopDone
	e.mu.Unlock()

	go e.drainLoop(ctx, stopCh, loopDone)

	e.logger.Info("sync engine started",
		"drain_interval", e.cfg.DrainInterval,
		"batch_size", e.cfg.BatchSize,
		"max_concurrent", e.cfg.MaxConcurrentOperations)

	return nil
}

// Stop halts new draining and blocks until in-flight operations finish.
// There is no hard cancellation of a call already sent to the remote: a
// cancelled-but-applied remote write would desynchronize local state.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	close(e.stopCh)
	loopDone := e.loopDone
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		<-loopDone
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("sync engine stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop interrupted with operations in flight: %w", ctx.Err())
	}
}

// SetOnline flips connectivity. Drain cycles abort while offline.
func (e *Engine) SetOnline(online bool) {
	e.mu.Lock()
	changed := e.online != online
	e.online = online
	e.mu.Unlock()

	if changed {
		e.logger.Info("connectivity changed", "online", online)
	}
}

// ForceSync runs one drain cycle immediately.
func (e *Engine) ForceSync(ctx context.Context) error {
	return e.drain(ctx, false)
}

// SyncHighPriority runs one drain cycle limited to High-priority
// operations, for constrained background execution windows.
func (e *Engine) SyncHighPriority(ctx context.Context) error {
	return e.drain(ctx, true)
}

// Status returns the current session snapshot, falling back to the last
// persisted one when the engine has not drained yet.
func (e *Engine) Status(ctx context.Context) (*models.SyncSession, error) {
	e.mu.Lock()
	session := e.session
	e.mu.Unlock()

	if session != nil {
		copied := *session
		return &copied, nil
	}

	latest, err := e.store.LatestSession(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return &models.SyncSession{Status: models.SessionIdle}, nil
		}
		return nil, err
	}
	return latest, nil
}

// PendingCount returns the number of queued operations.
func (e *Engine) PendingCount(ctx context.Context) (int, error) {
	return e.store.PendingCount(ctx)
}

// ConflictsCount returns the number of conflicts awaiting a decision.
func (e *Engine) ConflictsCount(ctx context.Context) (int, error) {
	escalated, err := e.store.ListConflicts(ctx, models.ConflictStatusEscalated)
	if err != nil {
		return 0, err
	}
	pending, err := e.store.ListConflicts(ctx, models.ConflictStatusPending)
	if err != nil {
		return 0, err
	}
	return len(escalated) + len(pending), nil
}

// RetryFailed resets entities parked in error status: their current local
// state is re-enqueued at normal priority and they go back to pending.
func (e *Engine) RetryFailed(ctx context.Context) (int, error) {
	records, err := e.store.ListMetadataByStatus(ctx, models.SyncStatusError)
	if err != nil {
		return 0, fmt.Errorf("failed to list errored entities: %w", err)
	}

	now := time.Now().UTC()
	count := 0

	for _, meta := range records {
		kind := models.OperationUpdate
		var payload []byte
		if meta.IsDeleted {
			kind = models.OperationDelete
		} else {
			ent, err := e.store.GetEntity(ctx, meta.EntityType, meta.EntityID)
			if err != nil {
				e.logger.Warn("skipping errored entity without payload",
					"entity_type", meta.EntityType, "entity_id", meta.EntityID, "error", err)
				continue
			}
			payload = ent.Payload
		}

		op := &models.SyncOperation{
			ID:          uuid.New().String(),
			EntityType:  meta.EntityType,
			EntityID:    meta.EntityID,
			Operation:   kind,
			Priority:    models.PriorityNormal,
			Payload:     payload,
			BaseVersion: meta.Version,
			MaxRetries:  e.policy.MaxRetries(),
			NextRetryAt: now,
			CreatedAt:   now,
		}
		if err := e.store.AppendOperation(ctx, op); err != nil {
			return count, fmt.Errorf("failed to re-enqueue %s/%s: %w", meta.EntityType, meta.EntityID, err)
		}

		expected := meta.Version
		meta.SyncStatus = models.SyncStatusPending
		meta.LastModified = now
		if err := e.store.SetMetadata(ctx, meta, expected); err != nil {
			return count, fmt.Errorf("failed to reset %s/%s: %w", meta.EntityType, meta.EntityID, err)
		}
		count++
	}

	return count, nil
}

func (e *Engine) drainLoop(ctx context.Context, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.cfg.DrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			if err := e.drain(ctx, false); err != nil {
				e.logger.Warn("drain cycle failed", "error", err)
			}
		}
	}
}

func entityKey(entityType, entityID string) string {
	return entityType + "/" + entityID
}
