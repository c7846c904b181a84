// Package api defines the wire types exchanged with the remote sync service.
package api

import "time"

// RemoteEntity is the server's representation of one synchronized document.
type RemoteEntity struct {
	UpdatedAt  time.Time `json:"updated_at"`
	ID         string    `json:"id"`
	EntityType string    `json:"entity_type"`
	Payload    []byte    `json:"payload"`
	Version    uint64    `json:"version"`
}

// CreateEntityRequest creates a document on the server. ClientID lets the
// server reconcile a server-assigned id back to the local record.
type CreateEntityRequest struct {
	EntityType string `json:"entity_type"`
	ClientID   string `json:"client_id"`
	Payload    []byte `json:"payload"`
}

// UpdateEntityRequest carries the optimistic-concurrency version check.
// ExpectedVersion is the client's post-mutation version; the server accepts
// the write only when its current version is exactly ExpectedVersion-1 and
// rejects with a conflict response when it has already reached
// ExpectedVersion or beyond.
type UpdateEntityRequest struct {
	Payload         []byte `json:"payload"`
	ExpectedVersion uint64 `json:"expected_version"`
}

// ConflictResponse is returned with HTTP 409 when a version check fails.
type ConflictResponse struct {
	RemoteUpdatedAt time.Time `json:"remote_updated_at"`
	RemotePayload   []byte    `json:"remote_payload"`
	RemoteVersion   uint64    `json:"remote_version"`
}

// FetchFilters narrows a FetchEntities call.
type FetchFilters struct {
	UpdatedSince *time.Time        `json:"updated_since,omitempty"`
	Fields       map[string]string `json:"fields,omitempty"`
}

// Paging pages a FetchEntities call.
type Paging struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// FetchEntitiesResponse is a page of remote documents.
type FetchEntitiesResponse struct {
	Entities []RemoteEntity `json:"entities"`
	Total    int            `json:"total"`
}

// UploadMediaResponse reports where an uploaded blob landed.
type UploadMediaResponse struct {
	URL string `json:"url"`
}

// ErrorResponse is the server's error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
