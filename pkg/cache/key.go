package cache

import (
	"strings"
	"unicode/utf8"

	"github.com/Combine-Capital/pgcache/pkg/errors"
)

// MaxKeyBytes is the longest key the cache table accepts.
const MaxKeyBytes = 255

// Key joins a prefix and parts with colons, skipping empty parts.
//
//	cache.Key("session", userID)          // "session:123"
//	cache.Key("pgcache", "tenant", "", k) // "pgcache:tenant:k"
func Key(prefix string, parts ...string) string {
	filtered := make([]string, 0, len(parts)+1)

	if prefix != "" {
		filtered = append(filtered, prefix)
	}

	for _, part := range parts {
		if part != "" {
			filtered = append(filtered, part)
		}
	}

	return strings.Join(filtered, ":")
}

// ValidateKey reports whether key can be stored: non-empty, valid UTF-8
// without NUL, and at most MaxKeyBytes long.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return errors.NewInvalidInput("key", "must not be empty")
	case len(key) > MaxKeyBytes:
		return errors.NewInvalidInput("key", "exceeds 255 bytes")
	case !utf8.ValidString(key):
		return errors.NewInvalidInput("key", "must be valid UTF-8")
	case strings.ContainsRune(key, 0):
		return errors.NewInvalidInput("key", "must not contain NUL")
	}
	return nil
}
