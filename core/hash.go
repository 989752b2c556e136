package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// TextHash computes the hex SHA-256 digest of the trimmed text.
// It is the content-addressed key for cached embedding vectors, so the
// trimming here must match what the chunker stores in Chunk.Text.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}
