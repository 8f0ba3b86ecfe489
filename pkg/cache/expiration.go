package cache

import (
	"fmt"
	"time"

	"github.com/Combine-Capital/pgcache/pkg/errors"
)

type expirationKind uint8

const (
	kindNone expirationKind = iota
	kindAbsolute
	kindRelative
	kindSliding
)

// Expiration says when a written entry stops being live. The zero value
// never expires.
type Expiration struct {
	kind expirationKind
	at   time.Time
	d    time.Duration
}

// NoExpiration keeps the entry until it is overwritten or removed.
func NoExpiration() Expiration {
	return Expiration{}
}

// ExpireAt expires the entry at t.
func ExpireAt(t time.Time) Expiration {
	return Expiration{kind: kindAbsolute, at: t}
}

// ExpireAfter expires the entry d after it is written.
func ExpireAfter(d time.Duration) Expiration {
	return Expiration{kind: kindRelative, d: d}
}

// Sliding expires the entry d after it is written. Each Refresh then moves
// the expiration to now plus the cache's sliding window, not d.
func Sliding(d time.Duration) Expiration {
	return Expiration{kind: kindSliding, d: d}
}

// IsZero reports whether e never expires.
func (e Expiration) IsZero() bool {
	return e.kind == kindNone
}

// Resolve computes the absolute expiration stored with an entry written at
// now. A nil result means the entry never expires. Times at or before now
// are stored as given, so such an entry is never live.
func (e Expiration) Resolve(now time.Time) (*time.Time, error) {
	switch e.kind {
	case kindNone:
		return nil, nil
	case kindAbsolute:
		at := e.at.UTC()
		return &at, nil
	case kindRelative, kindSliding:
		at := now.Add(e.d).UTC()
		return &at, nil
	default:
		return nil, errors.NewInvalidInput("expiration", "unknown expiration kind")
	}
}

func (e Expiration) String() string {
	switch e.kind {
	case kindAbsolute:
		return "at " + e.at.UTC().Format(time.RFC3339Nano)
	case kindRelative:
		return "after " + e.d.String()
	case kindSliding:
		return "sliding " + e.d.String()
	default:
		return "never"
	}
}

// Format returns the ttl, sliding and at strings ParseExpiration accepts
// for e. At most one is non-empty.
func (e Expiration) Format() (ttl, sliding, at string) {
	switch e.kind {
	case kindAbsolute:
		return "", "", e.at.Format(time.RFC3339Nano)
	case kindRelative:
		return e.d.String(), "", ""
	case kindSliding:
		return "", e.d.String(), ""
	default:
		return "", "", ""
	}
}

// ParseExpiration builds an Expiration from the textual forms accepted by
// the HTTP API and the CLI: ttl and sliding are Go durations, at is RFC 3339.
// At most one may be set; none means NoExpiration.
func ParseExpiration(ttl, sliding, at string) (Expiration, error) {
	set := 0
	for _, v := range []string{ttl, sliding, at} {
		if v != "" {
			set++
		}
	}
	if set > 1 {
		return Expiration{}, errors.NewInvalidInput("expiration", "ttl, sliding and at are mutually exclusive")
	}

	switch {
	case ttl != "":
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return Expiration{}, errors.NewInvalidInputWithCause("ttl", fmt.Sprintf("invalid duration %q", ttl), err)
		}
		return ExpireAfter(d), nil
	case sliding != "":
		d, err := time.ParseDuration(sliding)
		if err != nil {
			return Expiration{}, errors.NewInvalidInputWithCause("sliding", fmt.Sprintf("invalid duration %q", sliding), err)
		}
		return Sliding(d), nil
	case at != "":
		t, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return Expiration{}, errors.NewInvalidInputWithCause("at", fmt.Sprintf("invalid timestamp %q", at), err)
		}
		return ExpireAt(t), nil
	}
	return NoExpiration(), nil
}
