package security

import (
	"crypto/rand"
	"encoding/hex"
)

// sessionIDBytes gives 256 bits of entropy, so a purged ID is never reissued in practice.
const sessionIDBytes = 32

// NewSessionID returns a fresh random opaque session identifier (64 hex chars).
func NewSessionID() (string, error) {
	return randomHex(sessionIDBytes)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
