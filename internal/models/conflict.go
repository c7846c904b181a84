package models

import "time"

// ConflictStatus is the lifecycle of a detected divergence.
type ConflictStatus string

const (
	ConflictStatusPending   ConflictStatus = "pending"
	ConflictStatusResolved  ConflictStatus = "resolved"
	ConflictStatusEscalated ConflictStatus = "escalated"
)

// ResolutionStrategy names the rule applied to a conflict.
type ResolutionStrategy string

const (
	StrategyLastWriteWins ResolutionStrategy = "last_write_wins"
	StrategySmartMerge    ResolutionStrategy = "smart_merge"
	StrategyDomainMerge   ResolutionStrategy = "domain_merge"
	StrategyEscalate      ResolutionStrategy = "escalate"
)

// ManualChoice is a caller decision for an escalated conflict.
type ManualChoice string

const (
	ChoiceLocal  ManualChoice = "local"
	ChoiceRemote ManualChoice = "remote"
	ChoiceCustom ManualChoice = "custom"
)

// ConflictRecord captures a version mismatch reported by the remote on update.
// It is consumed exactly once; terminal states are resolved or escalated.
type ConflictRecord struct {
	DetectedAt    time.Time          `json:"detected_at"`
	ResolvedAt    *time.Time         `json:"resolved_at,omitempty"`
	ID            string             `json:"id"`
	EntityType    string             `json:"entity_type"`
	EntityID      string             `json:"entity_id"`
	Strategy      ResolutionStrategy `json:"strategy"`
	Status        ConflictStatus     `json:"status"`
	LocalData     []byte             `json:"local_data"`
	RemoteData    []byte             `json:"remote_data"`
	ResolvedData  []byte             `json:"resolved_data,omitempty"`
	LocalVersion  uint64             `json:"local_version"`
	RemoteVersion uint64             `json:"remote_version"`
}

// MergedVersion is the version assigned to the entity after resolution.
func (c *ConflictRecord) MergedVersion() uint64 {
	v := c.LocalVersion
	if c.RemoteVersion > v {
		v = c.RemoteVersion
	}
	return v + 1
}
