package cache

import (
	"testing"
	"time"

	"github.com/Combine-Capital/pgcache/pkg/errors"
)

func TestExpirationResolve(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	tests := []struct {
		name    string
		exp     Expiration
		want    *time.Time
		wantErr bool
	}{
		{name: "none", exp: NoExpiration()},
		{name: "zero value", exp: Expiration{}},
		{name: "absolute", exp: ExpireAt(now.Add(time.Hour)), want: ptr(now.Add(time.Hour))},
		{name: "absolute now", exp: ExpireAt(now), want: ptr(now)},
		{name: "absolute past", exp: ExpireAt(now.Add(-time.Minute)), want: ptr(now.Add(-time.Minute))},
		{name: "relative", exp: ExpireAfter(90 * time.Second), want: ptr(now.Add(90 * time.Second))},
		{name: "relative zero", exp: ExpireAfter(0), want: ptr(now)},
		{name: "sliding", exp: Sliding(20 * time.Minute), want: ptr(now.Add(20 * time.Minute))},
		{name: "sliding negative", exp: Sliding(-time.Second), want: ptr(now.Add(-time.Second))},
		{name: "unknown kind", exp: Expiration{kind: 99}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.exp.Resolve(now)
			if tt.wantErr {
				if !errors.IsInvalidInput(err) {
					t.Fatalf("Resolve() error = %v, want InvalidInput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("Resolve() = %v, want nil", got)
			case tt.want != nil && (got == nil || !got.Equal(*tt.want)):
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			case got != nil && got.Location() != time.UTC:
				t.Errorf("Resolve() location = %v, want UTC", got.Location())
			}
		})
	}
}

func TestExpirationIsZero(t *testing.T) {
	if !NoExpiration().IsZero() {
		t.Error("NoExpiration().IsZero() = false")
	}
	if ExpireAfter(time.Second).IsZero() {
		t.Error("ExpireAfter().IsZero() = true")
	}
}

func TestParseExpiration(t *testing.T) {
	at := "2030-01-02T03:04:05.123Z"
	atTime, _ := time.Parse(time.RFC3339Nano, at)

	tests := []struct {
		name         string
		ttl, sliding string
		at           string
		want         Expiration
		wantErr      bool
	}{
		{name: "nothing", want: NoExpiration()},
		{name: "ttl", ttl: "90s", want: ExpireAfter(90 * time.Second)},
		{name: "sliding", sliding: "20m", want: Sliding(20 * time.Minute)},
		{name: "at", at: at, want: ExpireAt(atTime)},
		{name: "bad ttl", ttl: "soon", wantErr: true},
		{name: "bad sliding", sliding: "5", wantErr: true},
		{name: "bad at", at: "tomorrow", wantErr: true},
		{name: "ttl and sliding", ttl: "1m", sliding: "1m", wantErr: true},
		{name: "ttl and at", ttl: "1m", at: at, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseExpiration(tt.ttl, tt.sliding, tt.at)
			if tt.wantErr {
				if !errors.IsInvalidInput(err) {
					t.Fatalf("ParseExpiration() error = %v, want InvalidInput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseExpiration() error = %v", err)
			}
			if got.kind != tt.want.kind || got.d != tt.want.d || !got.at.Equal(tt.want.at) {
				t.Errorf("ParseExpiration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpirationString(t *testing.T) {
	tests := []struct {
		exp  Expiration
		want string
	}{
		{NoExpiration(), "never"},
		{ExpireAfter(time.Minute), "after 1m0s"},
		{Sliding(time.Hour), "sliding 1h0m0s"},
		{ExpireAt(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)), "at 2030-01-01T00:00:00Z"},
	}
	for _, tt := range tests {
		if got := tt.exp.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func ptr(t time.Time) *time.Time { return &t }

func TestExpirationFormatParses(t *testing.T) {
	at := time.Date(2030, 1, 2, 3, 4, 5, 600, time.UTC)
	for _, exp := range []Expiration{NoExpiration(), ExpireAfter(90 * time.Second), Sliding(20 * time.Minute), ExpireAt(at)} {
		ttl, sliding, abs := exp.Format()
		got, err := ParseExpiration(ttl, sliding, abs)
		if err != nil {
			t.Fatalf("ParseExpiration(Format(%v)) error = %v", exp, err)
		}
		if got.kind != exp.kind || got.d != exp.d || !got.at.Equal(exp.at) {
			t.Errorf("ParseExpiration(Format(%v)) = %v", exp, got)
		}
	}
}
