package models

import "time"

// SessionStatus is the state of one sync session.
type SessionStatus string

const (
	SessionIdle      SessionStatus = "idle"
	SessionSyncing   SessionStatus = "syncing"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// SyncSession aggregates progress for one engine run. A new session
// supersedes the previous one's terminal snapshot.
type SyncSession struct {
	StartedAt           time.Time     `json:"started_at"`
	LastActivity        time.Time     `json:"last_activity"`
	CompletedAt         *time.Time    `json:"completed_at,omitempty"`
	SessionID           string        `json:"session_id"`
	Status              SessionStatus `json:"status"`
	TotalOperations     int           `json:"total_operations"`
	CompletedOperations int           `json:"completed_operations"`
	FailedOperations    int           `json:"failed_operations"`
}

// ProgressPercentage is derived from completed+failed over total, 0-100.
func (s *SyncSession) ProgressPercentage() float64 {
	if s.TotalOperations == 0 {
		return 0
	}
	done := s.CompletedOperations + s.FailedOperations
	return float64(done) / float64(s.TotalOperations) * 100
}

// Terminal reports whether the session has finished.
func (s *SyncSession) Terminal() bool {
	return s.Status == SessionCompleted || s.Status == SessionFailed
}
