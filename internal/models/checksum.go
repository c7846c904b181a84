package models

import (
	"crypto/sha256"
	"encoding/hex"
)

// Checksum returns the hex SHA-256 of a payload. Used for cheap no-op
// detection and media integrity checks, not for security.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
