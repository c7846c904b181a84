package models

import "time"

// SyncStatus tracks where an entity sits in the local/remote reconciliation cycle.
type SyncStatus string

const (
	SyncStatusPending  SyncStatus = "pending"  // local change awaiting transmission
	SyncStatusSynced   SyncStatus = "synced"   // local and remote agree
	SyncStatusConflict SyncStatus = "conflict" // escalated conflict awaiting a decision
	SyncStatusError    SyncStatus = "error"    // terminal failure, surfaced to the caller
)

// Entity is the typed envelope for a caller-defined document. The core never
// inspects Payload beyond generic merge fallbacks; callers own its schema.
type Entity struct {
	ID         string `json:"id"`
	EntityType string `json:"entity_type"`
	Payload    []byte `json:"payload"`
}

// EntityMetadata is the sync bookkeeping record owned by the entity store.
// Version increases by exactly 1 on every locally-applied mutation and is
// reconciled to max(local, remote)+1 after conflict resolution.
type EntityMetadata struct {
	LastModified time.Time  `json:"last_modified"`
	EntityID     string     `json:"entity_id"`
	EntityType   string     `json:"entity_type"`
	Checksum     string     `json:"checksum"`
	SyncStatus   SyncStatus `json:"sync_status"`
	LastError    string     `json:"last_error,omitempty"`
	Version      uint64     `json:"version"`
	IsDeleted    bool       `json:"is_deleted"`
}

// Clone returns a copy safe to mutate independently.
func (m *EntityMetadata) Clone() *EntityMetadata {
	c := *m
	return &c
}
