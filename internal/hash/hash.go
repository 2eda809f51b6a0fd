// Package hash computes content fingerprints for dedup and change detection.
//
// All hashing normalizes line endings first so that text differing only in
// CRLF vs LF produces the same digest.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Normalize converts CRLF line endings to LF.
func Normalize(content string) string {
	return strings.ReplaceAll(content, "\r\n", "\n")
}

// Content returns the SHA-256 hex digest of the normalized content.
// The digest is 64 lowercase hex characters.
func Content(content string) string {
	sum := sha256.Sum256([]byte(Normalize(content)))
	return hex.EncodeToString(sum[:])
}
