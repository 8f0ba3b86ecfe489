package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// fingerprint identifies an API key in logs without revealing it.
func fingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "key:" + hex.EncodeToString(sum[:6])
}
