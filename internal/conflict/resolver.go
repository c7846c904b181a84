// Package conflict resolves version divergences between local and remote
// copies of an entity. Strategy selection is entity-type driven; conflicts
// too complex to merge safely are escalated for a caller decision.
package conflict

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mkravets/offsync/internal/models"
	"github.com/mkravets/offsync/internal/storage"
)

// Config maps entity types to strategies. Unlisted types use Default.
type Config struct {
	Strategies map[string]models.ResolutionStrategy
	Default    models.ResolutionStrategy
	// MaxRetries is the retry budget given to re-enqueued resolved updates
	MaxRetries int
}

// DefaultConfig resolves every type with last-write-wins.
func DefaultConfig() Config {
	return Config{
		Strategies: map[string]models.ResolutionStrategy{},
		Default:    models.StrategyLastWriteWins,
		MaxRetries: 5,
	}
}

// Resolver applies resolution strategies and writes outcomes back through
// the storage adapter.
type Resolver struct {
	store  storage.Adapter
	logger *slog.Logger
	cfg    Config
}

// NewResolver creates a resolver over the given adapter.
func NewResolver(store storage.Adapter, cfg Config, logger *slog.Logger) *Resolver {
	if cfg.Default == "" {
		cfg.Default = models.StrategyLastWriteWins
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	return &Resolver{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// Outcome reports what happened to one conflict record.
type Outcome struct {
	Record    *models.ConflictRecord
	Escalated bool
}

// StrategyFor returns the configured strategy for an entity type.
func (r *Resolver) StrategyFor(entityType string) models.ResolutionStrategy {
	if s, ok := r.cfg.Strategies[entityType]; ok {
		return s
	}
	return r.cfg.Default
}

// Resolve consumes a pending conflict record exactly once. An auto-resolved
// conflict writes the merged entity back with version max(local,remote)+1,
// marks it pending, and re-enqueues a High-priority update. A complex
// conflict is escalated instead and the entity parks in conflict status.
func (r *Resolver) Resolve(ctx context.Context, record *models.ConflictRecord) (*Outcome, error) {
	if record.Status != models.ConflictStatusPending {
		return nil, fmt.Errorf("conflict %s already consumed (status %s)", record.ID, record.Status)
	}

	strategy := r.StrategyFor(record.EntityType)

	local, localOK := payloadView(record.LocalData)
	remote, remoteOK := payloadView(record.RemoteData)

	// merge strategies need both sides as key-value views; escalation is
	// also forced when the divergence looks identity-critical
	if strategy != models.StrategyEscalate && localOK && remoteOK && isComplex(local, remote) {
		r.logger.Warn("conflict too complex for auto-resolution, escalating",
			"conflict_id", record.ID,
			"entity_type", record.EntityType,
			"entity_id", record.EntityID)
		strategy = models.StrategyEscalate
	}

	var resolved []byte
	switch strategy {
	case models.StrategyEscalate:
		return r.escalate(ctx, record)
	case models.StrategySmartMerge:
		if !localOK || !remoteOK {
			resolved = lastWriteWins(record)
			strategy = models.StrategyLastWriteWins
		} else {
			resolved = mustJSON(smartMerge(local, remote))
		}
	case models.StrategyDomainMerge:
		if !localOK || !remoteOK {
			resolved = lastWriteWins(record)
			strategy = models.StrategyLastWriteWins
		} else {
			resolved = mustJSON(domainMerge(local, remote))
		}
	default:
		resolved = lastWriteWins(record)
		strategy = models.StrategyLastWriteWins
	}

	if err := r.apply(ctx, record, strategy, resolved); err != nil {
		return nil, err
	}

	r.logger.Info("conflict auto-resolved",
		"conflict_id", record.ID,
		"entity_type", record.EntityType,
		"entity_id", record.EntityID,
		"strategy", strategy,
		"merged_version", record.MergedVersion())

	return &Outcome{Record: record}, nil
}

// ResolveManually supplies the caller decision for an escalated conflict.
func (r *Resolver) ResolveManually(ctx context.Context, conflictID string, choice models.ManualChoice, custom []byte) error {
	record, err := r.store.GetConflict(ctx, conflictID)
	if err != nil {
		return fmt.Errorf("failed to load conflict: %w", err)
	}
	if record.Status == models.ConflictStatusResolved {
		return fmt.Errorf("conflict %s already resolved", conflictID)
	}

	var resolved []byte
	switch choice {
	case models.ChoiceLocal:
		resolved = record.LocalData
	case models.ChoiceRemote:
		resolved = record.RemoteData
	case models.ChoiceCustom:
		if len(custom) == 0 {
			return fmt.Errorf("custom resolution requires data")
		}
		resolved = custom
	default:
		return fmt.Errorf("unknown manual choice %q", choice)
	}

	if err := r.apply(ctx, record, record.Strategy, resolved); err != nil {
		return err
	}

	r.logger.Info("conflict resolved manually",
		"conflict_id", conflictID,
		"choice", choice,
		"merged_version", record.MergedVersion())

	return nil
}

// escalate parks the conflict and the entity until a manual decision.
func (r *Resolver) escalate(ctx context.Context, record *models.ConflictRecord) (*Outcome, error) {
	record.Status = models.ConflictStatusEscalated
	record.Strategy = models.StrategyEscalate
	if err := r.store.SaveConflict(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save escalated conflict: %w", err)
	}

	meta, err := r.store.GetMetadata(ctx, record.EntityType, record.EntityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}
	expected := meta.Version
	meta.SyncStatus = models.SyncStatusConflict
	meta.LastModified = time.Now().UTC()
	if err := r.store.SetMetadata(ctx, meta, expected); err != nil {
		return nil, fmt.Errorf("failed to mark entity conflicted: %w", err)
	}

	return &Outcome{Record: record, Escalated: true}, nil
}

// apply writes resolved data back: entity payload, reconciled version,
// pending status, a High-priority update, and the terminal conflict record.
func (r *Resolver) apply(ctx context.Context, record *models.ConflictRecord, strategy models.ResolutionStrategy, resolved []byte) error {
	meta, err := r.store.GetMetadata(ctx, record.EntityType, record.EntityID)
	if err != nil {
		return fmt.Errorf("failed to load metadata: %w", err)
	}

	now := time.Now().UTC()
	expected := meta.Version

	meta.Version = record.MergedVersion()
	meta.Checksum = models.Checksum(resolved)
	meta.SyncStatus = models.SyncStatusPending
	meta.LastModified = now

	op := &models.SyncOperation{
		ID:          uuid.New().String(),
		EntityType:  record.EntityType,
		EntityID:    record.EntityID,
		Operation:   models.OperationUpdate,
		Priority:    models.PriorityHigh,
		Payload:     resolved,
		BaseVersion: meta.Version,
		MaxRetries:  r.cfg.MaxRetries,
		NextRetryAt: now,
		CreatedAt:   now,
	}

	mutation := storage.Mutation{
		Entity: &models.Entity{
			ID:         record.EntityID,
			EntityType: record.EntityType,
			Payload:    resolved,
		},
		Metadata:  meta,
		Operation: op,
	}

	// ApplyMutation checks version-1 against the stored record; the merged
	// version may jump by more than one, so replay via the parts when the
	// fast path loses the race shape
	if meta.Version == expected+1 {
		if err := r.store.ApplyMutation(ctx, mutation); err != nil {
			return fmt.Errorf("failed to apply resolution: %w", err)
		}
	} else {
		if err := r.store.SaveEntity(ctx, mutation.Entity); err != nil {
			return fmt.Errorf("failed to save resolved entity: %w", err)
		}
		if err := r.store.SetMetadata(ctx, meta, expected); err != nil {
			return fmt.Errorf("failed to save resolved metadata: %w", err)
		}
		if err := r.store.AppendOperation(ctx, op); err != nil {
			return fmt.Errorf("failed to enqueue resolved update: %w", err)
		}
	}

	record.Status = models.ConflictStatusResolved
	record.Strategy = strategy
	record.ResolvedData = resolved
	record.ResolvedAt = &now
	if err := r.store.SaveConflict(ctx, record); err != nil {
		return fmt.Errorf("failed to save resolved conflict: %w", err)
	}

	return nil
}
