package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenHeader is the JOSE header of a MapKit token. Field order matches the
// wire format MapKit JS expects: {"alg","kid","typ"}.
type TokenHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	Typ string `json:"typ"`
}

// TokenClaims is the MapKit token payload. Origin is omitted entirely for
// local deployments.
type TokenClaims struct {
	Issuer    string `json:"iss"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
	Origin    string `json:"origin,omitempty"`
}

// GetExpirationTime implements jwt.Claims.
func (c TokenClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.ExpiresAt, 0)), nil
}

// GetIssuedAt implements jwt.Claims.
func (c TokenClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.IssuedAt, 0)), nil
}

// GetNotBefore implements jwt.Claims.
func (c TokenClaims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }

// GetIssuer implements jwt.Claims.
func (c TokenClaims) GetIssuer() (string, error) { return c.Issuer, nil }

// GetSubject implements jwt.Claims.
func (c TokenClaims) GetSubject() (string, error) { return "", nil }

// GetAudience implements jwt.Claims.
func (c TokenClaims) GetAudience() (jwt.ClaimStrings, error) { return nil, nil }

// TTL returns the lifetime encoded in the claims.
func (c TokenClaims) TTL() time.Duration {
	return time.Duration(c.ExpiresAt-c.IssuedAt) * time.Second
}

// IssuedToken is a freshly signed MapKit token. It is never persisted or cached.
type IssuedToken struct {
	Raw    string
	Header TokenHeader
	Claims TokenClaims
}

// ExpiresAt returns the expiry as a time.
func (t *IssuedToken) ExpiresAt() time.Time {
	return time.Unix(t.Claims.ExpiresAt, 0).UTC()
}

// IssuedAt returns the issue instant as a time.
func (t *IssuedToken) IssuedAt() time.Time {
	return time.Unix(t.Claims.IssuedAt, 0).UTC()
}
