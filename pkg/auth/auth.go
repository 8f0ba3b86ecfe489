// Package auth authenticates requests to the cache HTTP API. A request
// carries "Authorization: Bearer <credential>" where the credential is one of
// the configured API keys or an RS256-signed JWT.
//
// Example usage:
//
//	authn, err := auth.New(cfg.Auth)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv := server.New(c, server.WithAuth(authn.Middleware))
package auth

import (
	"context"
	"crypto/rsa"
	"net/http"
	"os"
	"strings"

	"github.com/Combine-Capital/pgcache/pkg/config"
	"github.com/Combine-Capital/pgcache/pkg/errors"
)

// Method names how a principal authenticated.
type Method string

const (
	// MethodAPIKey is a static key from the configuration.
	MethodAPIKey Method = "api_key"

	// MethodJWT is a signed token.
	MethodJWT Method = "jwt"
)

// Principal is the authenticated caller.
type Principal struct {
	// Subject identifies the caller: the JWT "sub" claim, or a fingerprint
	// of the API key so the key itself never reaches logs.
	Subject string

	Method Method

	// Claims holds the registered claims of a JWT. Nil for API keys.
	Claims map[string]interface{}
}

type contextKey int

const principalKey contextKey = iota

// FromContext returns the principal stored by Middleware.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// Authenticator validates bearer credentials against API keys and, when a
// public key is configured, JWTs.
type Authenticator struct {
	keys map[string]string // key -> fingerprint
	jwt  *JWTConfig
}

// New builds an Authenticator from cfg, reading the JWT public key file if
// one is configured.
func New(cfg config.AuthConfig) (*Authenticator, error) {
	a := &Authenticator{keys: make(map[string]string, len(cfg.APIKeys))}
	for _, key := range cfg.APIKeys {
		if key == "" {
			return nil, errors.NewInvalidInput("api_keys", "empty API key")
		}
		a.keys[key] = fingerprint(key)
	}

	if cfg.JWTPublicKeyFile != "" {
		pemBytes, err := os.ReadFile(cfg.JWTPublicKeyFile)
		if err != nil {
			return nil, errors.NewInvalidInputWithCause("jwt_public_key_file", "cannot be read", err)
		}
		pub, err := LoadPublicKeyFromPEM(pemBytes)
		if err != nil {
			return nil, errors.NewInvalidInputWithCause("jwt_public_key_file", "is not an RSA public key", err)
		}
		a.jwt = &JWTConfig{PublicKey: pub, Issuer: cfg.JWTIssuer, Audience: cfg.JWTAudience}
	}
	return a, nil
}

// NewWithKeys returns an Authenticator that accepts only the given API keys.
func NewWithKeys(keys ...string) *Authenticator {
	a := &Authenticator{keys: make(map[string]string, len(keys))}
	for _, key := range keys {
		a.keys[key] = fingerprint(key)
	}
	return a
}

// WithJWT also accepts tokens signed by pub.
func (a *Authenticator) WithJWT(pub *rsa.PublicKey, issuer, audience string) *Authenticator {
	a.jwt = &JWTConfig{PublicKey: pub, Issuer: issuer, Audience: audience}
	return a
}

// Authenticate resolves a bearer credential to a principal.
func (a *Authenticator) Authenticate(credential string) (*Principal, error) {
	if fp, ok := a.keys[credential]; ok {
		return &Principal{Subject: fp, Method: MethodAPIKey}, nil
	}
	if a.jwt != nil && strings.Count(credential, ".") == 2 {
		return parseAndValidateJWT(credential, *a.jwt)
	}
	return nil, errors.NewUnauthorized("invalid credentials")
}

// Middleware rejects requests without a valid bearer credential with 401
// and stores the principal in the request context otherwise.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential, err := bearer(r.Header.Get("Authorization"))
		if err != nil {
			unauthorized(w, err)
			return
		}

		p, err := a.Authenticate(credential)
		if err != nil {
			unauthorized(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

func bearer(header string) (string, error) {
	if header == "" {
		return "", errors.NewUnauthorized("missing Authorization header")
	}
	scheme, credential, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || credential == "" {
		return "", errors.NewUnauthorized("expected 'Bearer <credential>'")
	}
	return credential, nil
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="pgcache"`)
	errors.WriteHTTPError(w, err)
}
