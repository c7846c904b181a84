package entity

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/offsync/internal/models"
	"github.com/mkravets/offsync/internal/storage"
	"github.com/mkravets/offsync/internal/storage/boltdb"
)

func setupService(t *testing.T) (Store, storage.Adapter) {
	t.Helper()

	adapter, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewService(adapter, DefaultConfig(), logger), adapter
}

func TestService_CreateQueuesOperation(t *testing.T) {
	ctx := context.Background()
	svc, adapter := setupService(t)

	id, err := svc.Create(ctx, "workout", []byte(`{"reps": 10}`))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := svc.Read(ctx, "workout", id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"reps": 10}`, string(got.Payload))

	meta, err := svc.Metadata(ctx, "workout", id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), meta.Version)
	assert.Equal(t, models.SyncStatusPending, meta.SyncStatus)

	ops, err := adapter.OperationsForEntity(ctx, "workout", id)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, models.OperationCreate, ops[0].Operation)
	assert.Equal(t, uint64(1), ops[0].BaseVersion)
}

func TestService_CreateWithCallerID(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	id, err := svc.Create(ctx, "workout", []byte(`{}`), WithID("w-42"))
	require.NoError(t, err)
	assert.Equal(t, "w-42", id)
}

func TestService_UpdateBumpsVersionByOne(t *testing.T) {
	ctx := context.Background()
	svc, adapter := setupService(t)

	id, err := svc.Create(ctx, "workout", []byte(`{"reps": 10}`))
	require.NoError(t, err)

	require.NoError(t, svc.Update(ctx, "workout", id, []byte(`{"reps": 12}`)))
	require.NoError(t, svc.Update(ctx, "workout", id, []byte(`{"reps": 15}`)))

	meta, err := svc.Metadata(ctx, "workout", id)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), meta.Version)

	ops, err := adapter.OperationsForEntity(ctx, "workout", id)
	require.NoError(t, err)
	assert.Len(t, ops, 3)
}

func TestService_UpdateUnchangedPayloadIsNoOp(t *testing.T) {
	ctx := context.Background()
	svc, adapter := setupService(t)

	payload := []byte(`{"reps": 10}`)
	id, err := svc.Create(ctx, "workout", payload)
	require.NoError(t, err)

	require.NoError(t, svc.Update(ctx, "workout", id, payload))

	meta, err := svc.Metadata(ctx, "workout", id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), meta.Version, "identical payload must not bump the version")

	ops, err := adapter.OperationsForEntity(ctx, "workout", id)
	require.NoError(t, err)
	assert.Len(t, ops, 1)
}

func TestService_UpdateUnknownEntityFails(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	err := svc.Update(ctx, "workout", "nope", []byte(`{}`))
	assert.ErrorIs(t, err, storage.ErrMetadataNotFound)
}

func TestService_DeleteIsSoftUntilConfirmed(t *testing.T) {
	ctx := context.Background()
	svc, adapter := setupService(t)

	id, err := svc.Create(ctx, "workout", []byte(`{"reps": 10}`))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "workout", id))

	// payload still present locally, hidden from listings
	_, err = svc.Read(ctx, "workout", id)
	require.NoError(t, err)

	visible, err := svc.List(ctx, "workout", storage.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, visible)

	meta, err := svc.Metadata(ctx, "workout", id)
	require.NoError(t, err)
	assert.True(t, meta.IsDeleted)
	assert.Equal(t, uint64(2), meta.Version)

	ops, err := adapter.OperationsForEntity(ctx, "workout", id)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, models.OperationDelete, ops[1].Operation)
	assert.Nil(t, ops[1].Payload)

	// repeated delete is idempotent
	require.NoError(t, svc.Delete(ctx, "workout", id))
	meta, err = svc.Metadata(ctx, "workout", id)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), meta.Version)
}

func TestService_WritePriority(t *testing.T) {
	ctx := context.Background()
	svc, adapter := setupService(t)

	id, err := svc.Create(ctx, "photo", []byte(`{}`), WithPriority(models.PriorityHigh))
	require.NoError(t, err)

	ops, err := adapter.OperationsForEntity(ctx, "photo", id)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, models.PriorityHigh, ops[0].Priority)
}

func TestService_QueueEntrySurvivesReopen(t *testing.T) {
	ctx := context.Background()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	adapter, err := boltdb.New(ctx, dbPath)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	svc := NewService(adapter, DefaultConfig(), logger)

	id, err := svc.Create(ctx, "workout", []byte(`{"reps": 10}`))
	require.NoError(t, err)
	require.NoError(t, adapter.Close())

	// simulated process restart
	reopened, err := boltdb.New(ctx, dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	ops, err := reopened.ReadyOperations(ctx, time.Now().UTC().Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, id, ops[0].EntityID)
}
