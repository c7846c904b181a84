package models

import "time"

// OperationKind identifies the remote mutation a queued operation carries.
type OperationKind string

const (
	OperationCreate OperationKind = "create"
	OperationUpdate OperationKind = "update"
	OperationDelete OperationKind = "delete"
)

// Priority orders queue draining. Lower value drains first.
type Priority int

const (
	PriorityHigh   Priority = 0
	PriorityNormal Priority = 1
	PriorityLow    Priority = 2
)

// String returns the human-readable priority name.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// SyncOperation is one durable unit of not-yet-confirmed remote work.
// Invariant: RetryCount <= MaxRetries; once the budget is spent the operation
// leaves the active queue and the owning entity is marked error, never dropped.
type SyncOperation struct {
	CreatedAt   time.Time     `json:"created_at"`
	NextRetryAt time.Time     `json:"next_retry_at"`
	ID          string        `json:"id"`
	EntityType  string        `json:"entity_type"`
	EntityID    string        `json:"entity_id"`
	Operation   OperationKind `json:"operation"`
	LastError   string        `json:"last_error"`
	Payload     []byte        `json:"payload"`
	// BaseVersion is the local version produced by the mutation being
	// synced. The remote accepts the write when its copy is exactly one
	// version behind.
	BaseVersion uint64   `json:"base_version"`
	Priority    Priority `json:"priority"`
	RetryCount  int      `json:"retry_count"`
	MaxRetries  int      `json:"max_retries"`
}

// Ready reports whether the operation may be dispatched at the given time.
func (op *SyncOperation) Ready(now time.Time) bool {
	return !op.NextRetryAt.After(now)
}

// Clone returns a deep copy of the operation.
func (op *SyncOperation) Clone() *SyncOperation {
	c := *op
	c.Payload = make([]byte, len(op.Payload))
	copy(c.Payload, op.Payload)
	return &c
}
