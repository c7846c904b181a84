package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkravets/offsync/internal/events"
	"github.com/mkravets/offsync/internal/models"
)

// drain runs one cycle: fetch ready operations, dispatch them through a
// bounded worker pool, then account the results into the session. Cycles are
// serialized so the periodic loop and ForceSync never overlap.
func (e *Engine) drain(ctx context.Context, highOnly bool) error {
	e.drainMu.Lock()
	defer e.drainMu.Unlock()

	e.mu.Lock()
	online := e.online
	e.mu.Unlock()
	if !online {
		return nil
	}

	e.resumePendingConflicts(ctx)

	now := time.Now().UTC()
	ops, err := e.store.ReadyOperations(ctx, now, e.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch ready operations: %w", err)
	}
	if highOnly {
		ops = filterHighPriority(ops)
	}

	// One worker per entity at a time. Later operations for a busy entity
	// stay queued for the next cycle so per-entity ordering holds.
	batch := make([]*models.SyncOperation, 0, len(ops))
	e.mu.Lock()
	for _, op := range ops {
		key := entityKey(op.EntityType, op.EntityID)
		if _, busy := e.inflight[key]; busy {
			continue
		}
		e.inflight[key] = struct{}{}
		batch = append(batch, op)
	}
	e.mu.Unlock()

	if len(batch) == 0 {
		e.maybeCompleteSession(ctx)
		return nil
	}

	session := e.ensureSession(ctx, len(batch))

	results := make(chan opResult, len(batch))
	sem := make(chan struct{}, e.cfg.MaxConcurrentOperations)

	for _, op := range batch {
		e.wg.Add(1)
		sem <- struct{}{}
		go func(op *models.SyncOperation) {
			defer e.wg.Done()
			defer func() { <-sem }()
			defer e.release(op)

			results <- e.process(ctx, op)
		}(op)
	}

	var completed, failed, retried int
	for range batch {
		res := <-results
		switch res.outcome {
		case outcomeDone, outcomeConflict:
			completed++
		case outcomeFailed:
			failed++
		case outcomeRetry:
			retried++
		}
	}

	e.account(ctx, session, completed, failed, retried)
	e.maybeCompleteSession(ctx)
	return nil
}

// resumePendingConflicts re-runs resolution for conflict records still in
// pending status. The conflicted operation is dequeued once its record is
// durable, so a record left pending means the process stopped before the
// resolver finished; without this pass the entity would stay pending with no
// queue entry to drive it.
func (e *Engine) resumePendingConflicts(ctx context.Context) {
	records, err := e.store.ListConflicts(ctx, models.ConflictStatusPending)
	if err != nil {
		e.logger.Warn("failed to list pending conflicts", "error", err)
		return
	}

	for _, record := range records {
		if _, err := e.resolver.Resolve(ctx, record); err != nil {
			e.logger.Warn("failed to resume pending conflict",
				"conflict_id", record.ID,
				"entity_type", record.EntityType,
				"entity_id", record.EntityID,
				"error", err)
			continue
		}
		e.logger.Info("resumed interrupted conflict resolution",
			"conflict_id", record.ID,
			"entity_type", record.EntityType,
			"entity_id", record.EntityID)
	}
}

func filterHighPriority(ops []*models.SyncOperation) []*models.SyncOperation {
	out := ops[:0]
	for _, op := range ops {
		if op.Priority == models.PriorityHigh {
			out = append(out, op)
		}
	}
	return out
}

func (e *Engine) release(op *models.SyncOperation) {
	e.mu.Lock()
	delete(e.inflight, entityKey(op.EntityType, op.EntityID))
	e.mu.Unlock()
}

// ensureSession opens a new session when none is active and grows the
// operation total as later cycles pick up more work.
func (e *Engine) ensureSession(ctx context.Context, newOps int) *models.SyncSession {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil || e.session.Terminal() {
		now := time.Now().UTC()
		e.session = &models.SyncSession{
			SessionID:    uuid.New().String(),
			StartedAt:    now,
			LastActivity: now,
			Status:       models.SessionSyncing,
		}
		e.bus.Publish(events.Event{
			Type:      events.SyncStarted,
			SessionID: e.session.SessionID,
			Time:      e.session.StartedAt,
		})
		e.logger.Info("sync session started", "session_id", e.session.SessionID)
	}

	e.session.TotalOperations += newOps
	return e.session
}

// account folds a batch into the session. Rescheduled operations come back
// through a later batch, so they are removed from the running total here to
// avoid double counting.
func (e *Engine) account(ctx context.Context, session *models.SyncSession, completed, failed, retried int) {
	e.mu.Lock()
	session.CompletedOperations += completed
	session.FailedOperations += failed
	session.TotalOperations -= retried
	session.LastActivity = time.Now().UTC()
	snapshot := *session
	e.mu.Unlock()

	e.bus.Publish(events.Event{
		Type:      events.SyncProgress,
		SessionID: snapshot.SessionID,
		Total:     snapshot.TotalOperations,
		Completed: snapshot.CompletedOperations,
		Failed:    snapshot.FailedOperations,
		Time:      time.Now().UTC(),
	})

	if err := e.store.SaveSession(ctx, &snapshot); err != nil {
		e.logger.Warn("failed to persist session snapshot", "session_id", snapshot.SessionID, "error", err)
	}
}

// maybeCompleteSession closes the active session once the queue is empty and
// nothing is in flight.
func (e *Engine) maybeCompleteSession(ctx context.Context) {
	e.mu.Lock()
	session := e.session
	busy := len(e.inflight) > 0
	e.mu.Unlock()

	if session == nil || session.Terminal() || busy {
		return
	}

	pending, err := e.store.PendingCount(ctx)
	if err != nil || pending > 0 {
		return
	}

	now := time.Now().UTC()

	e.mu.Lock()
	session.CompletedAt = &now
	session.LastActivity = now
	if session.FailedOperations > 0 {
		session.Status = models.SessionFailed
	} else {
		session.Status = models.SessionCompleted
	}
	snapshot := *session
	e.mu.Unlock()

	if err := e.store.SaveSession(ctx, &snapshot); err != nil {
		e.logger.Warn("failed to persist session snapshot", "session_id", snapshot.SessionID, "error", err)
	}

	e.bus.Publish(events.Event{
		Type:      events.SyncCompleted,
		SessionID: snapshot.SessionID,
		Total:     snapshot.TotalOperations,
		Completed: snapshot.CompletedOperations,
		Failed:    snapshot.FailedOperations,
		Time:      now,
	})

	e.logger.Info("sync session completed",
		"session_id", snapshot.SessionID,
		"status", string(snapshot.Status),
		"completed", snapshot.CompletedOperations,
		"failed", snapshot.FailedOperations)
}
