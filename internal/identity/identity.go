// Package identity derives the canonical opportunity id from a source URL.
//
// The id is the hex-encoded SHA-256 digest of the exact URL string. It is
// deterministic across runs and processes, independent of mutable fields,
// and computable without a database round-trip. The source_url uniqueness
// constraint remains the true dedup key; the id is an opaque handle.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
)

// FromURL returns the canonical id for the given source URL.
func FromURL(sourceURL string) string {
	sum := sha256.Sum256([]byte(sourceURL))
	return hex.EncodeToString(sum[:])
}
