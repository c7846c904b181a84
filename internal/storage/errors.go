package storage

import "errors"

// Common storage errors shared by all adapter implementations.
var (
	// ErrEntityNotFound indicates no payload exists for (type, id)
	ErrEntityNotFound = errors.New("entity not found")

	// ErrMetadataNotFound indicates no metadata record exists for (type, id)
	ErrMetadataNotFound = errors.New("entity metadata not found")

	// ErrOperationNotFound indicates the queue holds no operation with that id
	ErrOperationNotFound = errors.New("sync operation not found")

	// ErrConflictNotFound indicates no conflict record with that id
	ErrConflictNotFound = errors.New("conflict record not found")

	// ErrMediaNotFound indicates no cache index entry for that URL
	ErrMediaNotFound = errors.New("media cache entry not found")

	// ErrSessionNotFound indicates no sync session has been recorded yet
	ErrSessionNotFound = errors.New("sync session not found")

	// ErrVersionMismatch indicates a compare-and-set lost the race
	ErrVersionMismatch = errors.New("metadata version mismatch")

	// ErrStorageClosed indicates the adapter has been closed
	ErrStorageClosed = errors.New("storage is closed")
)
