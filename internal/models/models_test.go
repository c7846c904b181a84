package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOperationReady(t *testing.T) {
	now := time.Now().UTC()
	op := &SyncOperation{NextRetryAt: now}

	assert.True(t, op.Ready(now))
	assert.True(t, op.Ready(now.Add(time.Second)))
	assert.False(t, op.Ready(now.Add(-time.Second)))
}

func TestOperationClone(t *testing.T) {
	op := &SyncOperation{ID: "op-1", Payload: []byte(`{"a": 1}`)}
	c := op.Clone()

	c.Payload[0] = 'X'
	assert.Equal(t, byte('{'), op.Payload[0], "clone payloads must not share backing arrays")
}

func TestPriorityString(t *testing.T) {
	assert.Equal(t, "high", PriorityHigh.String())
	assert.Equal(t, "normal", PriorityNormal.String())
	assert.Equal(t, "low", PriorityLow.String())
	assert.Equal(t, "unknown", Priority(9).String())
}

func TestMergedVersion(t *testing.T) {
	tests := []struct {
		name   string
		local  uint64
		remote uint64
		want   uint64
	}{
		{"local ahead", 5, 3, 6},
		{"remote ahead", 2, 7, 8},
		{"equal", 4, 4, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &ConflictRecord{LocalVersion: tt.local, RemoteVersion: tt.remote}
			assert.Equal(t, tt.want, c.MergedVersion())
		})
	}
}

func TestProgressPercentage(t *testing.T) {
	s := &SyncSession{TotalOperations: 10, CompletedOperations: 6, FailedOperations: 2}
	assert.InDelta(t, 80.0, s.ProgressPercentage(), 0.001)

	empty := &SyncSession{}
	assert.Zero(t, empty.ProgressPercentage())
}

func TestSessionTerminal(t *testing.T) {
	assert.True(t, (&SyncSession{Status: SessionCompleted}).Terminal())
	assert.True(t, (&SyncSession{Status: SessionFailed}).Terminal())
	assert.False(t, (&SyncSession{Status: SessionSyncing}).Terminal())
	assert.False(t, (&SyncSession{Status: SessionIdle}).Terminal())
}

func TestMediaEntryExpired(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.False(t, (&MediaCacheEntry{}).Expired(now), "no expiry means never expired")
	assert.True(t, (&MediaCacheEntry{ExpiresAt: &past}).Expired(now))
	assert.False(t, (&MediaCacheEntry{ExpiresAt: &future}).Expired(now))
}

func TestChecksumDeterministic(t *testing.T) {
	a := Checksum([]byte("payload"))
	b := Checksum([]byte("payload"))
	c := Checksum([]byte("other"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64, "hex-encoded sha-256")
}
