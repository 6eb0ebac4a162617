// Package mapkit_verifier checks MapKit JS tokens against the public half of
// the signing key. It is useful for debugging an integration without calling Apple.
package mapkit_verifier

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrKidMismatch    = errors.New("kid does not match the expected key id")
	ErrOriginMismatch = errors.New("origin claim does not match")
	ErrUnsupportedKey = errors.New("key is not a P-256 EC key")
	ErrNoKeyMaterial  = errors.New("no key material found")
)

// Token is the decoded content of a MapKit token.
type Token struct {
	Algorithm string
	KeyID     string
	Type      string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	// Origin is empty for tokens issued without an origin lock.
	Origin string
}

// Expired reports whether the token is past its expiry at now.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Verifier checks ES256 signatures and the optional kid, iss and origin expectations.
type Verifier struct {
	key    *ecdsa.PublicKey
	keyID  string
	teamID string
	origin string
	leeway time.Duration
	now    func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithKeyID requires the kid header to equal keyID.
func WithKeyID(keyID string) Option { return func(v *Verifier) { v.keyID = keyID } }

// WithTeamID requires the iss claim to equal teamID.
func WithTeamID(teamID string) Option { return func(v *Verifier) { v.teamID = teamID } }

// WithOrigin requires the origin claim to equal origin.
func WithOrigin(origin string) Option { return func(v *Verifier) { v.origin = origin } }

// WithLeeway tolerates clock skew on exp and iat.
func WithLeeway(d time.Duration) Option { return func(v *Verifier) { v.leeway = d } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(v *Verifier) { v.now = now } }

// NewVerifier creates a Verifier for key.
func NewVerifier(key *ecdsa.PublicKey, opts ...Option) *Verifier {
	v := &Verifier{key: key, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks the signature and claims of raw and returns its content.
func (v *Verifier) Verify(raw string) (*Token, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	}
	if v.teamID != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.teamID))
	}

	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return v.key, nil
	}, parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	tok := fromJWT(parsed)
	if v.keyID != "" && tok.KeyID != v.keyID {
		return tok, ErrKidMismatch
	}
	if v.origin != "" && tok.Origin != v.origin {
		return tok, ErrOriginMismatch
	}
	return tok, nil
}

// Decode returns the content of raw without checking its signature.
func Decode(raw string) (*Token, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return fromJWT(parsed), nil
}

func fromJWT(t *jwt.Token) *Token {
	tok := &Token{}
	tok.Algorithm, _ = t.Header["alg"].(string)
	tok.KeyID, _ = t.Header["kid"].(string)
	tok.Type, _ = t.Header["typ"].(string)

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return tok
	}
	tok.Issuer, _ = claims.GetIssuer()
	if iat, _ := claims.GetIssuedAt(); iat != nil {
		tok.IssuedAt = iat.UTC()
	}
	if exp, _ := claims.GetExpirationTime(); exp != nil {
		tok.ExpiresAt = exp.UTC()
	}
	tok.Origin, _ = claims["origin"].(string)
	return tok
}

// LoadPublicKey reads a P-256 public key from a .p8 private key, a PEM public
// key or a JWK document.
func LoadPublicKey(data []byte) (*ecdsa.PublicKey, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrNoKeyMaterial
	}

	var pub *ecdsa.PublicKey
	switch {
	case trimmed[0] == '{':
		var jwk jose.JSONWebKey
		if err := json.Unmarshal(trimmed, &jwk); err != nil {
			return nil, fmt.Errorf("parse JWK: %w", err)
		}
		switch k := jwk.Key.(type) {
		case *ecdsa.PublicKey:
			pub = k
		case *ecdsa.PrivateKey:
			pub = &k.PublicKey
		default:
			return nil, ErrUnsupportedKey
		}
	case bytes.Contains(trimmed, []byte("PRIVATE KEY")):
		priv, err := jwt.ParseECPrivateKeyFromPEM(trimmed)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		pub = &priv.PublicKey
	default:
		k, err := jwt.ParseECPublicKeyFromPEM(trimmed)
		if err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}
		pub = k
	}

	if pub.Curve != elliptic.P256() {
		return nil, ErrUnsupportedKey
	}
	return pub, nil
}

// PublicJWK returns key as a JWK with kid set, the form Apple lists keys in.
func PublicJWK(key *ecdsa.PublicKey, keyID string) ([]byte, error) {
	return json.Marshal(jose.JSONWebKey{
		Key:       key,
		KeyID:     keyID,
		Algorithm: string(jose.ES256),
		Use:       "sig",
	})
}
