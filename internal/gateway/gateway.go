// Package gateway abstracts the remote sync service. The HTTP client is the
// production implementation; the engine and media cache depend only on the
// interface so tests can substitute a mock.
package gateway

import (
	"context"

	"github.com/mkravets/offsync/pkg/api"
)

//go:generate moq -out gateway_mock.go . Gateway

// Gateway is the remote read/write surface. Errors returned by every method
// carry a Kind classification consumed by the retry manager.
type Gateway interface {
	// CreateEntity creates a document remotely. The response may carry a
	// server-assigned id differing from the client one
	CreateEntity(ctx context.Context, entityType, clientID string, payload []byte) (*api.RemoteEntity, error)

	// UpdateEntity writes a document if the server version is still one
	// behind expectedVersion, the client's post-mutation version. A failed
	// check returns a *ConflictError
	UpdateEntity(ctx context.Context, entityType, id string, payload []byte, expectedVersion uint64) (*api.RemoteEntity, error)

	// DeleteEntity removes a document remotely
	DeleteEntity(ctx context.Context, entityType, id string) error

	// FetchEntity reads one document
	FetchEntity(ctx context.Context, entityType, id string) (*api.RemoteEntity, error)

	// FetchEntities reads a filtered page of documents
	FetchEntities(ctx context.Context, entityType string, filters api.FetchFilters, paging api.Paging) (*api.FetchEntitiesResponse, error)

	// UploadMedia stores a blob remotely and returns its URL
	UploadMedia(ctx context.Context, data []byte, path string) (string, error)

	// DownloadMedia fetches a blob by URL
	DownloadMedia(ctx context.Context, url string) ([]byte, error)
}
