package boltdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/offsync/internal/models"
	"github.com/mkravets/offsync/internal/storage"
)

func setupTestStorage(t *testing.T) (*Storage, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(context.Background(), dbPath)
	require.NoError(t, err)

	return s, func() {
		require.NoError(t, s.Close())
	}
}

func testEntity(entityType, id string, payload string) *models.Entity {
	return &models.Entity{
		ID:         id,
		EntityType: entityType,
		Payload:    []byte(payload),
	}
}

func testMetadata(entityType, id string, version uint64) *models.EntityMetadata {
	return &models.EntityMetadata{
		EntityID:     id,
		EntityType:   entityType,
		Version:      version,
		LastModified: time.Now().UTC(),
		Checksum:     "sum",
		SyncStatus:   models.SyncStatusPending,
	}
}

func TestEntityStorage_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	entity := testEntity("workout", "w1", `{"reps": 10}`)
	require.NoError(t, s.SaveEntity(ctx, entity))

	got, err := s.GetEntity(ctx, "workout", "w1")
	require.NoError(t, err)
	assert.Equal(t, entity.ID, got.ID)
	assert.Equal(t, entity.Payload, got.Payload)

	_, err = s.GetEntity(ctx, "workout", "missing")
	assert.ErrorIs(t, err, storage.ErrEntityNotFound)
}

func TestEntityStorage_ListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	require.NoError(t, s.SaveEntity(ctx, testEntity("post", "a", `{"author": "kim", "likes": 3}`)))
	require.NoError(t, s.SaveEntity(ctx, testEntity("post", "b", `{"author": "kim", "likes": 7}`)))
	require.NoError(t, s.SaveEntity(ctx, testEntity("post", "c", `{"author": "lee", "likes": 1}`)))
	require.NoError(t, s.SaveEntity(ctx, testEntity("photo", "d", `{"author": "kim"}`)))

	tests := []struct {
		name    string
		opts    storage.ListOptions
		wantIDs []string
	}{
		{
			name:    "all posts",
			opts:    storage.ListOptions{},
			wantIDs: []string{"a", "b", "c"},
		},
		{
			name:    "filter by payload field",
			opts:    storage.ListOptions{Where: map[string]string{"author": "kim"}},
			wantIDs: []string{"a", "b"},
		},
		{
			name:    "paging",
			opts:    storage.ListOptions{Limit: 1, Offset: 1},
			wantIDs: []string{"b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListEntities(ctx, "post", tt.opts)
			require.NoError(t, err)

			ids := make([]string, 0, len(got))
			for _, e := range got {
				ids = append(ids, e.ID)
			}
			assert.ElementsMatch(t, tt.wantIDs, ids)
		})
	}
}

func TestEntityStorage_ListExcludesSoftDeleted(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	require.NoError(t, s.SaveEntity(ctx, testEntity("note", "n1", `{}`)))
	require.NoError(t, s.SaveEntity(ctx, testEntity("note", "n2", `{}`)))

	meta := testMetadata("note", "n2", 2)
	meta.IsDeleted = true
	require.NoError(t, s.SetMetadata(ctx, meta, 0))

	visible, err := s.ListEntities(ctx, "note", storage.ListOptions{})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "n1", visible[0].ID)

	all, err := s.ListEntities(ctx, "note", storage.ListOptions{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMetadataStorage_CompareAndSet(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	meta := testMetadata("workout", "w1", 1)

	// creating a record requires expected version 0
	require.NoError(t, s.SetMetadata(ctx, meta, 0))
	assert.ErrorIs(t, s.SetMetadata(ctx, testMetadata("workout", "w1", 1), 0), storage.ErrVersionMismatch)

	// bump requires the stored version
	meta.Version = 2
	require.NoError(t, s.SetMetadata(ctx, meta, 1))

	stale := testMetadata("workout", "w1", 3)
	assert.ErrorIs(t, s.SetMetadata(ctx, stale, 1), storage.ErrVersionMismatch)

	got, err := s.GetMetadata(ctx, "workout", "w1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.Version)

	_, err = s.GetMetadata(ctx, "workout", "missing")
	assert.ErrorIs(t, err, storage.ErrMetadataNotFound)
}

func TestMetadataStorage_ListByStatus(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	pending := testMetadata("a", "1", 1)
	require.NoError(t, s.SetMetadata(ctx, pending, 0))

	errored := testMetadata("a", "2", 1)
	errored.SyncStatus = models.SyncStatusError
	require.NoError(t, s.SetMetadata(ctx, errored, 0))

	got, err := s.ListMetadataByStatus(ctx, models.SyncStatusError)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].EntityID)
}

func testOperation(entityType, id string, priority models.Priority, createdAt time.Time) *models.SyncOperation {
	return &models.SyncOperation{
		ID:          uuid.New().String(),
		EntityType:  entityType,
		EntityID:    id,
		Operation:   models.OperationUpdate,
		Priority:    priority,
		Payload:     []byte(`{}`),
		BaseVersion: 1,
		MaxRetries:  5,
		NextRetryAt: createdAt,
		CreatedAt:   createdAt,
	}
}

func TestQueueStorage_ReadyOrdering(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	base := time.Now().UTC()

	low := testOperation("post", "p1", models.PriorityLow, base.Add(-3*time.Minute))
	normalOld := testOperation("post", "p2", models.PriorityNormal, base.Add(-2*time.Minute))
	normalNew := testOperation("post", "p3", models.PriorityNormal, base.Add(-1*time.Minute))
	high := testOperation("post", "p4", models.PriorityHigh, base)
	future := testOperation("post", "p5", models.PriorityHigh, base)
	future.NextRetryAt = base.Add(time.Hour)

	for _, op := range []*models.SyncOperation{low, normalOld, normalNew, high, future} {
		require.NoError(t, s.AppendOperation(ctx, op))
	}

	ready, err := s.ReadyOperations(ctx, base.Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, ready, 4, "backed-off operation must not be ready")

	// priority first, then age
	assert.Equal(t, high.ID, ready[0].ID)
	assert.Equal(t, normalOld.ID, ready[1].ID)
	assert.Equal(t, normalNew.ID, ready[2].ID)
	assert.Equal(t, low.ID, ready[3].ID)

	limited, err := s.ReadyOperations(ctx, base.Add(time.Second), 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestQueueStorage_UpdateAndRemove(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	op := testOperation("post", "p1", models.PriorityNormal, time.Now().UTC())
	require.NoError(t, s.AppendOperation(ctx, op))

	op.RetryCount = 2
	op.LastError = "connection reset"
	require.NoError(t, s.UpdateOperation(ctx, op))

	forEntity, err := s.OperationsForEntity(ctx, "post", "p1")
	require.NoError(t, err)
	require.Len(t, forEntity, 1)
	assert.Equal(t, 2, forEntity[0].RetryCount)
	assert.Equal(t, "connection reset", forEntity[0].LastError)

	count, err := s.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, s.RemoveOperation(ctx, op.ID))

	count, err = s.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	missing := testOperation("post", "gone", models.PriorityNormal, time.Now().UTC())
	assert.ErrorIs(t, s.UpdateOperation(ctx, missing), storage.ErrOperationNotFound)
}

func TestApplyMutation_Atomic(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	op := testOperation("workout", "w1", models.PriorityNormal, time.Now().UTC())
	mutation := storage.Mutation{
		Entity:    testEntity("workout", "w1", `{"reps": 10}`),
		Metadata:  testMetadata("workout", "w1", 1),
		Operation: op,
	}
	require.NoError(t, s.ApplyMutation(ctx, mutation))

	// all three writes landed
	_, err := s.GetEntity(ctx, "workout", "w1")
	require.NoError(t, err)
	meta, err := s.GetMetadata(ctx, "workout", "w1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), meta.Version)
	count, err := s.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestApplyMutation_VersionMismatchRollsBack(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	first := storage.Mutation{
		Entity:   testEntity("workout", "w1", `{"reps": 10}`),
		Metadata: testMetadata("workout", "w1", 1),
	}
	require.NoError(t, s.ApplyMutation(ctx, first))

	// a stale writer claims version 3 over stored version 1
	stale := storage.Mutation{
		Entity:    testEntity("workout", "w1", `{"reps": 99}`),
		Metadata:  testMetadata("workout", "w1", 3),
		Operation: testOperation("workout", "w1", models.PriorityNormal, time.Now().UTC()),
	}
	err := s.ApplyMutation(ctx, stale)
	assert.ErrorIs(t, err, storage.ErrVersionMismatch)

	// nothing from the failed mutation is visible
	got, err := s.GetEntity(ctx, "workout", "w1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"reps": 10}`, string(got.Payload))

	count, err := s.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestConflictStorage_SaveListRemove(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	record := &models.ConflictRecord{
		ID:            uuid.New().String(),
		EntityType:    "workout",
		EntityID:      "w1",
		LocalData:     []byte(`{"a":1}`),
		RemoteData:    []byte(`{"a":2}`),
		LocalVersion:  2,
		RemoteVersion: 2,
		Status:        models.ConflictStatusPending,
		DetectedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.SaveConflict(ctx, record))

	got, err := s.GetConflict(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.EntityID, got.EntityID)

	pending, err := s.ListConflicts(ctx, models.ConflictStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	all, err := s.ListConflicts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	resolved, err := s.ListConflicts(ctx, models.ConflictStatusResolved)
	require.NoError(t, err)
	assert.Empty(t, resolved)

	require.NoError(t, s.RemoveConflict(ctx, record.ID))
	_, err = s.GetConflict(ctx, record.ID)
	assert.ErrorIs(t, err, storage.ErrConflictNotFound)
}

func TestMediaIndexStorage_Totals(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	now := time.Now().UTC()
	for i, size := range []int64{100, 250} {
		entry := &models.MediaCacheEntry{
			ID:            uuid.New().String(),
			MediaURL:      "https://cdn.example.com/" + string(rune('a'+i)) + ".jpg",
			LocalPath:     "/tmp/" + string(rune('a'+i)),
			FileSizeBytes: size,
			AccessCount:   1,
			LastAccessed:  now,
			DownloadedAt:  now,
		}
		require.NoError(t, s.SaveMediaEntry(ctx, entry))
	}

	total, err := s.TotalMediaBytes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(350), total)

	entries, err := s.ListMediaEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.NoError(t, s.RemoveMediaEntry(ctx, entries[0].MediaURL))
	total, err = s.TotalMediaBytes(ctx)
	require.NoError(t, err)
	assert.Less(t, total, int64(350))

	_, err = s.GetMediaEntry(ctx, "https://cdn.example.com/missing.jpg")
	assert.ErrorIs(t, err, storage.ErrMediaNotFound)
}

func TestSessionStorage_Latest(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.LatestSession(ctx)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)

	old := &models.SyncSession{
		SessionID:    uuid.New().String(),
		StartedAt:    time.Now().UTC().Add(-time.Hour),
		LastActivity: time.Now().UTC().Add(-time.Hour),
		Status:       models.SessionCompleted,
	}
	recent := &models.SyncSession{
		SessionID:       uuid.New().String(),
		StartedAt:       time.Now().UTC(),
		LastActivity:    time.Now().UTC(),
		Status:          models.SessionSyncing,
		TotalOperations: 4,
	}
	require.NoError(t, s.SaveSession(ctx, old))
	require.NoError(t, s.SaveSession(ctx, recent))

	latest, err := s.LatestSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, recent.SessionID, latest.SessionID)
	assert.Equal(t, 4, latest.TotalOperations)
}
