// Package entity is the caller-facing store for local-first documents.
// Every mutation atomically persists the payload, bumps the metadata
// version, and appends a sync operation, so the queue and metadata can
// never disagree about pending work.
package entity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mkravets/offsync/internal/models"
	"github.com/mkravets/offsync/internal/storage"
)

// Store is the entity CRUD surface consumed by UI and business layers.
type Store interface {
	// Create persists a new entity and queues its remote creation.
	// Returns the generated entity id
	Create(ctx context.Context, entityType string, payload []byte, opts ...WriteOption) (string, error)

	// Read returns the local payload. Reads never block on sync state
	Read(ctx context.Context, entityType, id string) (*models.Entity, error)

	// Update replaces the payload and queues a remote update.
	// Returns storage.ErrMetadataNotFound when the entity was never created:
	// write-before-create is an error, not an upsert
	Update(ctx context.Context, entityType, id string, payload []byte, opts ...WriteOption) error

	// Delete soft-marks the entity locally and queues the remote delete.
	// The local record is removed only once the remote confirms
	Delete(ctx context.Context, entityType, id string, opts ...WriteOption) error

	// List returns local payloads of one type
	List(ctx context.Context, entityType string, listOpts storage.ListOptions) ([]*models.Entity, error)

	// Metadata exposes sync bookkeeping so callers can surface conflict
	// and error states
	Metadata(ctx context.Context, entityType, id string) (*models.EntityMetadata, error)
}

// Config tunes queue defaults for mutations.
type Config struct {
	DefaultPriority models.Priority
	MaxRetries      int
}

// DefaultConfig queues at normal priority with 5 retries.
func DefaultConfig() Config {
	return Config{
		DefaultPriority: models.PriorityNormal,
		MaxRetries:      5,
	}
}

type service struct {
	store  storage.Adapter
	logger *slog.Logger
	cfg    Config
	now    func() time.Time
}

// NewService creates the entity store over a storage adapter.
func NewService(store storage.Adapter, cfg Config, logger *slog.Logger) Store {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	return &service{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// WriteOption adjusts one mutation.
type WriteOption func(*writeOptions)

type writeOptions struct {
	id       string
	priority models.Priority
}

// WithPriority queues the resulting sync operation at the given priority.
func WithPriority(p models.Priority) WriteOption {
	return func(o *writeOptions) { o.priority = p }
}

// WithID uses a caller-supplied id instead of a generated one.
func WithID(id string) WriteOption {
	return func(o *writeOptions) { o.id = id }
}

func (s *service) applyOptions(opts []WriteOption) writeOptions {
	o := writeOptions{priority: s.cfg.DefaultPriority}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (s *service) Create(ctx context.Context, entityType string, payload []byte, opts ...WriteOption) (string, error) {
	o := s.applyOptions(opts)

	id := o.id
	if id == "" {
		id = uuid.New().String()
	}

	now := s.now().UTC()

	meta := &models.EntityMetadata{
		EntityID:     id,
		EntityType:   entityType,
		Version:      1,
		LastModified: now,
		Checksum:     models.Checksum(payload),
		SyncStatus:   models.SyncStatusPending,
	}

	mutation := storage.Mutation{
		Entity:    &models.Entity{ID: id, EntityType: entityType, Payload: payload},
		Metadata:  meta,
		Operation: s.newOperation(entityType, id, models.OperationCreate, payload, 1, o.priority, now),
	}

	if err := s.store.ApplyMutation(ctx, mutation); err != nil {
		return "", fmt.Errorf("create %s/%s: %w", entityType, id, err)
	}

	s.logger.Debug("entity created", "entity_type", entityType, "entity_id", id)

	return id, nil
}

func (s *service) Read(ctx context.Context, entityType, id string) (*models.Entity, error) {
	return s.store.GetEntity(ctx, entityType, id)
}

func (s *service) Update(ctx context.Context, entityType, id string, payload []byte, opts ...WriteOption) error {
	o := s.applyOptions(opts)

	meta, err := s.store.GetMetadata(ctx, entityType, id)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", entityType, id, err)
	}

	checksum := models.Checksum(payload)
	if checksum == meta.Checksum && !meta.IsDeleted {
		// no-op write: nothing changed, nothing to sync
		s.logger.Debug("update skipped, checksum unchanged",
			"entity_type", entityType, "entity_id", id)
		return nil
	}

	now := s.now().UTC()

	meta.Version++
	meta.Checksum = checksum
	meta.IsDeleted = false
	meta.SyncStatus = models.SyncStatusPending
	meta.LastModified = now

	mutation := storage.Mutation{
		Entity:    &models.Entity{ID: id, EntityType: entityType, Payload: payload},
		Metadata:  meta,
		Operation: s.newOperation(entityType, id, models.OperationUpdate, payload, meta.Version, o.priority, now),
	}

	if err := s.store.ApplyMutation(ctx, mutation); err != nil {
		return fmt.Errorf("update %s/%s: %w", entityType, id, err)
	}

	s.logger.Debug("entity updated",
		"entity_type", entityType, "entity_id", id, "version", meta.Version)

	return nil
}

func (s *service) Delete(ctx context.Context, entityType, id string, opts ...WriteOption) error {
	o := s.applyOptions(opts)

	meta, err := s.store.GetMetadata(ctx, entityType, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", entityType, id, err)
	}
	if meta.IsDeleted {
		return nil
	}

	ent, err := s.store.GetEntity(ctx, entityType, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", entityType, id, err)
	}

	now := s.now().UTC()

	meta.Version++
	meta.IsDeleted = true
	meta.SyncStatus = models.SyncStatusPending
	meta.LastModified = now

	mutation := storage.Mutation{
		Entity:    ent,
		Metadata:  meta,
		Operation: s.newOperation(entityType, id, models.OperationDelete, nil, meta.Version, o.priority, now),
	}

	if err := s.store.ApplyMutation(ctx, mutation); err != nil {
		return fmt.Errorf("delete %s/%s: %w", entityType, id, err)
	}

	s.logger.Debug("entity soft-deleted", "entity_type", entityType, "entity_id", id)

	return nil
}

func (s *service) List(ctx context.Context, entityType string, listOpts storage.ListOptions) ([]*models.Entity, error) {
	return s.store.ListEntities(ctx, entityType, listOpts)
}

func (s *service) Metadata(ctx context.Context, entityType, id string) (*models.EntityMetadata, error) {
	return s.store.GetMetadata(ctx, entityType, id)
}

func (s *service) newOperation(entityType, id string, kind models.OperationKind, payload []byte, baseVersion uint64, priority models.Priority, now time.Time) *models.SyncOperation {
	return &models.SyncOperation{
		ID:          uuid.New().String(),
		EntityType:  entityType,
		EntityID:    id,
		Operation:   kind,
		Priority:    priority,
		Payload:     payload,
		BaseVersion: baseVersion,
		MaxRetries:  s.cfg.MaxRetries,
		NextRetryAt: now,
		CreatedAt:   now,
	}
}
