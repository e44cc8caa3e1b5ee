// Package sha256 provides payload digest helpers used when archiving raw
// upstream responses.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher produces hex SHA-256 digests.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the hex digest of data.
func (h *Hasher) Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ShortHash returns the first 12 hex characters of the digest, enough to
// distinguish payload revisions within a run's archive.
func (h *Hasher) ShortHash(data []byte) string {
	return h.Hash(data)[:12]
}
