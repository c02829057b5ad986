// Package id is the canonical source for identifier generation.
package id

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// New generates a UUID v4 string, used for FHIR resource ids.
func New() string {
	return uuid.NewString()
}

// Short generates a 16-character random hex ID for user-facing identifiers
// where brevity matters (e.g. MCP session ids).
func Short() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
