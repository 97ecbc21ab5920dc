package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GenerateAPIKey creates a merchant API key and its SHA-256 hash.
// Only the hash is ever stored; the raw key is shown to the merchant
// exactly once at issuance.
func GenerateAPIKey() (string, string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	key := fmt.Sprintf("pm_live_%s", hex.EncodeToString(bytes))
	return key, HashKey(key), nil
}

// HashKey returns the hex SHA-256 of a raw API key, the form keys are
// stored and looked up in.
func HashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}
