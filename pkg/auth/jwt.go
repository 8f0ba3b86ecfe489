package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"slices"

	"github.com/Combine-Capital/pgcache/pkg/errors"
	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig contains configuration for JWT validation.
type JWTConfig struct {
	// PublicKey is the RSA public key used to verify JWT signatures.
	PublicKey *rsa.PublicKey

	// Issuer is the expected value of the "iss" (issuer) claim.
	// If empty, issuer validation is skipped.
	Issuer string

	// Audience is the expected value of the "aud" (audience) claim.
	// If empty, audience validation is skipped.
	Audience string
}

// parseAndValidateJWT checks the signature, expiry, issuer and audience of
// tokenString.
func parseAndValidateJWT(tokenString string, cfg JWTConfig) (*Principal, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return cfg.PublicKey, nil
	}, opts...)
	if err != nil {
		return nil, errors.NewUnauthorizedWithCause("invalid JWT", err)
	}
	if !token.Valid {
		return nil, errors.NewUnauthorized("JWT is not valid")
	}
	if claims.Subject == "" {
		return nil, errors.NewUnauthorized("JWT has no subject")
	}

	return &Principal{
		Subject: claims.Subject,
		Method:  MethodJWT,
		Claims:  claimsMap(claims),
	}, nil
}

func claimsMap(claims *jwt.RegisteredClaims) map[string]interface{} {
	m := map[string]interface{}{"sub": claims.Subject}
	if claims.Issuer != "" {
		m["iss"] = claims.Issuer
	}
	if len(claims.Audience) > 0 {
		m["aud"] = slices.Clone([]string(claims.Audience))
	}
	if claims.ExpiresAt != nil {
		m["exp"] = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		m["iat"] = claims.IssuedAt.Time
	}
	if claims.ID != "" {
		m["jti"] = claims.ID
	}
	return m
}

// LoadPublicKeyFromPEM loads an RSA public key from PEM-encoded bytes in
// PKIX or PKCS#1 form.
func LoadPublicKeyFromPEM(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err == nil {
		if rsaKey, ok := pub.(*rsa.PublicKey); ok {
			return rsaKey, nil
		}
		return nil, fmt.Errorf("not an RSA public key")
	}

	rsaKey, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return rsaKey, nil
}
