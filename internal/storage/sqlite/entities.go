package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mkravets/offsync/internal/models"
	"github.com/mkravets/offsync/internal/storage"
)

func saveEntity(ctx context.Context, q querier, entity *models.Entity) error {
	query := `
		INSERT INTO entities (entity_type, entity_id, payload)
		VALUES (?, ?, ?)
		ON CONFLICT (entity_type, entity_id) DO UPDATE SET payload = excluded.payload`

	if _, err := q.ExecContext(ctx, query, entity.EntityType, entity.ID, entity.Payload); err != nil {
		return fmt.Errorf("failed to save entity: %w", err)
	}
	return nil
}

// SaveEntity stores or replaces a payload.
func (s *Storage) SaveEntity(ctx context.Context, entity *models.Entity) error {
	return saveEntity(ctx, s.db, entity)
}

// GetEntity retrieves a payload by (type, id).
func (s *Storage) GetEntity(ctx context.Context, entityType, id string) (*models.Entity, error) {
	query := `SELECT payload FROM entities WHERE entity_type = ? AND entity_id = ?`

	entity := &models.Entity{EntityType: entityType, ID: id}

	err := s.db.QueryRowContext(ctx, query, entityType, id).Scan(&entity.Payload)
	if err != nil {
		if isNoRows(err) {
			return nil, storage.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}

	return entity, nil
}

// ListEntities returns payloads of one type filtered and paged by opts.
// Where filters match against the JSON payload via the generic key-value
// view, applied in-process after the status join.
func (s *Storage) ListEntities(ctx context.Context, entityType string, opts storage.ListOptions) ([]*models.Entity, error) {
	query := `
		SELECT e.entity_id, e.payload
		FROM entities e
		LEFT JOIN entity_metadata m
			ON m.entity_type = e.entity_type AND m.entity_id = e.entity_id
		WHERE e.entity_type = ?`
	if !opts.IncludeDeleted {
		query += ` AND COALESCE(m.is_deleted, 0) = 0`
	}
	query += ` ORDER BY e.entity_id`

	rows, err := s.db.QueryContext(ctx, query, entityType)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer rows.Close()

	var entities []*models.Entity

	for rows.Next() {
		entity := &models.Entity{EntityType: entityType}
		if err := rows.Scan(&entity.ID, &entity.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		if len(opts.Where) > 0 && !matchesWhere(entity.Payload, opts.Where) {
			continue
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	sortEntities(entities, opts)

	if opts.Offset > 0 {
		if opts.Offset >= len(entities) {
			return nil, nil
		}
		entities = entities[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(entities) {
		entities = entities[:opts.Limit]
	}

	return entities, nil
}

// RemoveEntity hard-deletes a payload and its metadata.
func (s *Storage) RemoveEntity(ctx context.Context, entityType, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM entities WHERE entity_type = ? AND entity_id = ?`, entityType, id); err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM entity_metadata WHERE entity_type = ? AND entity_id = ?`, entityType, id); err != nil {
		return fmt.Errorf("failed to delete metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	return nil
}

func matchesWhere(payload []byte, where map[string]string) bool {
	var view map[string]any
	if err := json.Unmarshal(payload, &view); err != nil {
		return false
	}
	for field, want := range where {
		got, ok := view[field]
		if !ok {
			return false
		}
		if fmt.Sprint(got) != want {
			return false
		}
	}
	return true
}

func sortEntities(entities []*models.Entity, opts storage.ListOptions) {
	if opts.OrderBy == "" {
		return
	}

	fieldOf := func(e *models.Entity) string {
		var view map[string]any
		if err := json.Unmarshal(e.Payload, &view); err != nil {
			return ""
		}
		return fmt.Sprint(view[opts.OrderBy])
	}

	sort.SliceStable(entities, func(i, j int) bool {
		a, b := fieldOf(entities[i]), fieldOf(entities[j])
		if opts.Order == storage.OrderDesc {
			return a > b
		}
		return a < b
	})
}
