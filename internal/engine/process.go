package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkravets/offsync/internal/events"
	"github.com/mkravets/offsync/internal/gateway"
	"github.com/mkravets/offsync/internal/models"
	"github.com/mkravets/offsync/internal/storage"
	"github.com/mkravets/offsync/pkg/api"
)

type outcome int

const (
	outcomeDone outcome = iota
	outcomeFailed
	outcomeRetry
	outcomeConflict
)

type opResult struct {
	err     error
	outcome outcome
}

// process pushes one operation to the remote and routes the result. The
// operation leaves the queue only on success, conflict handoff, or
// exhaustion; offline and circuit-open conditions reschedule it unchanged.
func (e *Engine) process(ctx context.Context, op *models.SyncOperation) opResult {
	breaker := e.breakers.Get(serviceName)
	if !breaker.Allow() {
		if err := e.reschedule(ctx, op, e.cfg.DrainInterval, false); err != nil {
			return opResult{outcome: outcomeFailed, err: err}
		}
		return opResult{outcome: outcomeRetry}
	}

	opCtx, cancel := context.WithTimeout(ctx, e.cfg.OperationTimeout)
	defer cancel()

	err := e.dispatch(opCtx, op)
	if err == nil {
		breaker.RecordSuccess()
		return opResult{outcome: outcomeDone}
	}

	switch gateway.KindOf(err) {
	case gateway.KindConflict:
		breaker.RecordSuccess()
		return e.handleConflict(ctx, op, err)

	case gateway.KindOffline:
		// not a service fault, leave the breaker alone and flip offline so
		// the rest of the batch short-circuits next cycle
		e.SetOnline(false)
		if rerr := e.reschedule(ctx, op, e.cfg.DrainInterval, false); rerr != nil {
			return opResult{outcome: outcomeFailed, err: rerr}
		}
		return opResult{outcome: outcomeRetry, err: err}

	case gateway.KindPermanent:
		breaker.RecordSuccess()
		return e.fail(ctx, op, err)

	default: // transient, including per-operation timeouts
		breaker.RecordFailure()
		return e.retryOrFail(ctx, op, err)
	}
}

// dispatch executes the remote call for the operation kind.
func (e *Engine) dispatch(ctx context.Context, op *models.SyncOperation) error {
	switch op.Operation {
	case models.OperationCreate:
		remote, err := e.gw.CreateEntity(ctx, op.EntityType, op.EntityID, op.Payload)
		if err != nil {
			return err
		}
		return e.confirmCreate(ctx, op, remote)

	case models.OperationUpdate:
		_, err := e.gw.UpdateEntity(ctx, op.EntityType, op.EntityID, op.Payload, op.BaseVersion)
		if err != nil {
			return err
		}
		return e.confirmWrite(ctx, op)

	case models.OperationDelete:
		err := e.gw.DeleteEntity(ctx, op.EntityType, op.EntityID)
		if err != nil && !gateway.IsNotFound(err) {
			return err
		}
		return e.confirmDelete(ctx, op)

	default:
		return fmt.Errorf("unknown operation kind %q", op.Operation)
	}
}

// confirmCreate acknowledges a successful create, reconciling a
// server-assigned id when it differs from the client-generated one.
func (e *Engine) confirmCreate(ctx context.Context, op *models.SyncOperation, remote *api.RemoteEntity) error {
	if remote != nil && remote.ID != "" && remote.ID != op.EntityID {
		if err := e.adoptServerID(ctx, op, remote.ID); err != nil {
			return fmt.Errorf("failed to adopt server id for %s/%s: %w", op.EntityType, op.EntityID, err)
		}
		op.EntityID = remote.ID
	}
	return e.confirmWrite(ctx, op)
}

// confirmWrite dequeues the operation and marks the entity synced once no
// further operations for it remain.
func (e *Engine) confirmWrite(ctx context.Context, op *models.SyncOperation) error {
	if err := e.store.RemoveOperation(ctx, op.ID); err != nil {
		return fmt.Errorf("failed to dequeue operation %s: %w", op.ID, err)
	}

	remaining, err := e.store.OperationsForEntity(ctx, op.EntityType, op.EntityID)
	if err != nil {
		return err
	}
	if len(remaining) > 0 {
		return nil
	}

	meta, err := e.store.GetMetadata(ctx, op.EntityType, op.EntityID)
	if err != nil {
		if errors.Is(err, storage.ErrMetadataNotFound) {
			return nil
		}
		return err
	}
	if meta.SyncStatus == models.SyncStatusSynced {
		return nil
	}

	expected := meta.Version
	meta.SyncStatus = models.SyncStatusSynced
	meta.LastError = ""
	if err := e.store.SetMetadata(ctx, meta, expected); err != nil {
		// a newer local write landed while this one was in flight; the new
		// pending state wins
		if errors.Is(err, storage.ErrVersionMismatch) {
			return nil
		}
		return err
	}

	e.logger.Debug("entity synced", "entity_type", op.EntityType, "entity_id", op.EntityID)
	return nil
}

// confirmDelete removes the local tombstone after the remote confirmed the
// delete (or reported the record already gone).
func (e *Engine) confirmDelete(ctx context.Context, op *models.SyncOperation) error {
	if err := e.store.RemoveOperation(ctx, op.ID); err != nil {
		return fmt.Errorf("failed to dequeue operation %s: %w", op.ID, err)
	}
	if err := e.store.RemoveEntity(ctx, op.EntityType, op.EntityID); err != nil && !errors.Is(err, storage.ErrEntityNotFound) {
		return err
	}
	e.logger.Debug("entity delete confirmed", "entity_type", op.EntityType, "entity_id", op.EntityID)
	return nil
}

// adoptServerID re-keys the entity, its metadata, and any still-queued
// operations under the id the server assigned.
func (e *Engine) adoptServerID(ctx context.Context, op *models.SyncOperation, serverID string) error {
	ent, err := e.store.GetEntity(ctx, op.EntityType, op.EntityID)
	if err != nil {
		return err
	}
	meta, err := e.store.GetMetadata(ctx, op.EntityType, op.EntityID)
	if err != nil {
		return err
	}

	ent.ID = serverID
	meta.EntityID = serverID

	if err := e.store.SaveEntity(ctx, ent); err != nil {
		return err
	}
	// pass 0: the record under the server id must not exist yet
	if err := e.store.SetMetadata(ctx, meta, 0); err != nil {
		return err
	}

	queued, err := e.store.OperationsForEntity(ctx, op.EntityType, op.EntityID)
	if err != nil {
		return err
	}
	for _, pending := range queued {
		if pending.ID == op.ID {
			continue
		}
		pending.EntityID = serverID
		if err := e.store.UpdateOperation(ctx, pending); err != nil {
			return err
		}
	}

	if err := e.store.RemoveEntity(ctx, op.EntityType, op.EntityID); err != nil && !errors.Is(err, storage.ErrEntityNotFound) {
		return err
	}

	e.logger.Info("adopted server-assigned id",
		"entity_type", op.EntityType, "client_id", op.EntityID, "server_id", serverID)
	return nil
}

// handleConflict records the divergence and hands it to the resolver. The
// original operation is dequeued once the conflict record is durable: the
// resolver re-enqueues the merged state, and an escalated conflict parks the
// entity until a manual decision.
func (e *Engine) handleConflict(ctx context.Context, op *models.SyncOperation, cause error) opResult {
	detail, ok := gateway.AsConflict(cause)
	if !ok {
		return e.fail(ctx, op, cause)
	}

	record := &models.ConflictRecord{
		ID:            uuid.New().String(),
		EntityType:    op.EntityType,
		EntityID:      op.EntityID,
		LocalData:     op.Payload,
		RemoteData:    detail.RemoteData,
		LocalVersion:  op.BaseVersion,
		RemoteVersion: detail.RemoteVersion,
		Status:        models.ConflictStatusPending,
		DetectedAt:    time.Now().UTC(),
	}
	if err := e.store.SaveConflict(ctx, record); err != nil {
		return opResult{outcome: outcomeFailed, err: fmt.Errorf("failed to record conflict: %w", err)}
	}
	if err := e.store.RemoveOperation(ctx, op.ID); err != nil {
		return opResult{outcome: outcomeFailed, err: fmt.Errorf("failed to dequeue conflicted operation: %w", err)}
	}

	e.bus.Publish(events.Event{
		Type:       events.ConflictDetected,
		EntityType: op.EntityType,
		EntityID:   op.EntityID,
		ConflictID: record.ID,
		Time:       record.DetectedAt,
	})

	e.logger.Warn("version conflict detected",
		"entity_type", op.EntityType,
		"entity_id", op.EntityID,
		"local_version", record.LocalVersion,
		"remote_version", record.RemoteVersion)

	if _, err := e.resolver.Resolve(ctx, record); err != nil {
		return opResult{outcome: outcomeFailed, err: fmt.Errorf("conflict resolution failed: %w", err)}
	}
	return opResult{outcome: outcomeConflict}
}

// retryOrFail applies the backoff policy to a transient failure.
func (e *Engine) retryOrFail(ctx context.Context, op *models.SyncOperation, cause error) opResult {
	// MaxRetries caps total dispatches: the first send plus MaxRetries-1
	// retries. attempt counts the dispatch that just failed.
	attempt := op.RetryCount + 1
	if attempt >= op.MaxRetries || !e.policy.ShouldRetry(attempt, cause) {
		return e.fail(ctx, op, cause)
	}

	op.RetryCount = attempt
	op.LastError = cause.Error()
	delay := e.policy.Delay(attempt)
	op.NextRetryAt = time.Now().UTC().Add(delay)

	if err := e.store.UpdateOperation(ctx, op); err != nil {
		return opResult{outcome: outcomeFailed, err: fmt.Errorf("failed to reschedule operation %s: %w", op.ID, err)}
	}

	e.logger.Debug("operation rescheduled",
		"operation_id", op.ID,
		"entity_type", op.EntityType,
		"entity_id", op.EntityID,
		"attempt", attempt,
		"delay", delay,
		"error", cause)

	return opResult{outcome: outcomeRetry, err: cause}
}

// reschedule pushes the operation forward without consuming retry budget.
func (e *Engine) reschedule(ctx context.Context, op *models.SyncOperation, delay time.Duration, countRetry bool) error {
	if countRetry {
		op.RetryCount++
	}
	op.NextRetryAt = time.Now().UTC().Add(delay)
	if err := e.store.UpdateOperation(ctx, op); err != nil {
		return fmt.Errorf("failed to reschedule operation %s: %w", op.ID, err)
	}
	return nil
}

// fail removes an exhausted or permanently rejected operation and parks the
// entity in error status with the cause attached.
func (e *Engine) fail(ctx context.Context, op *models.SyncOperation, cause error) opResult {
	if err := e.store.RemoveOperation(ctx, op.ID); err != nil {
		return opResult{outcome: outcomeFailed, err: fmt.Errorf("failed to dequeue operation %s: %w", op.ID, err)}
	}

	meta, err := e.store.GetMetadata(ctx, op.EntityType, op.EntityID)
	if err == nil {
		expected := meta.Version
		meta.SyncStatus = models.SyncStatusError
		meta.LastError = cause.Error()
		if serr := e.store.SetMetadata(ctx, meta, expected); serr != nil && !errors.Is(serr, storage.ErrVersionMismatch) {
			e.logger.Warn("failed to mark entity errored",
				"entity_type", op.EntityType, "entity_id", op.EntityID, "error", serr)
		}
	}

	e.logger.Error("operation abandoned",
		"operation_id", op.ID,
		"entity_type", op.EntityType,
		"entity_id", op.EntityID,
		"operation", string(op.Operation),
		"retries", op.RetryCount,
		"error", cause)

	return opResult{outcome: outcomeFailed, err: cause}
}
