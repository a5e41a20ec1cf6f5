// Package checksum provides content hashing for cache invalidation.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// shortLen is the number of hex characters kept by Short. Enough to detect
// content changes; this is not a security property.
const shortLen = 16

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Short returns a truncated digest of data, used as the note content hash.
func Short(data []byte) string {
	return Sum(data)[:shortLen]
}
