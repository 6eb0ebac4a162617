// Package service provides domain services for the application.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/omega-networks/mapkit-auth/internal/domain/models"
	"github.com/omega-networks/mapkit-auth/pkg/constants"
	"github.com/omega-networks/mapkit-auth/pkg/errors"
	"github.com/omega-networks/mapkit-auth/pkg/logger"
)

// TokenIssuer mints ES256 tokens for MapKit JS.
// TokenIssuer 为 MapKit JS 签发 ES256 令牌。
type TokenIssuer interface {
	// IssueToken signs a token valid for ttl. No state is kept between calls.
	IssueToken(ctx context.Context, keyID, teamID, privateKey string, ttl time.Duration) (*models.IssuedToken, error)

	// ValidateCredentials proves the credentials can sign by minting a short-lived token.
	ValidateCredentials(ctx context.Context, keyID, teamID, privateKey string) error

	// TrialIssue behaves like ValidateCredentials but hands back the trial token.
	TrialIssue(ctx context.Context, keyID, teamID, privateKey string) (*models.IssuedToken, error)
}

// Clock returns the current time. It is read exactly once per issued token.
type Clock func() time.Time

// es256Issuer implements TokenIssuer with golang-jwt.
type es256Issuer struct {
	origin OriginPolicy
	now    Clock
	log    logger.Logger
}

// NewTokenIssuer creates a TokenIssuer. A nil clock falls back to time.Now.
func NewTokenIssuer(origin OriginPolicy, now Clock, log logger.Logger) TokenIssuer {
	if now == nil {
		now = time.Now
	}
	return &es256Issuer{
		origin: origin,
		now:    now,
		log:    log.WithComponent("token_issuer"),
	}
}

// CheckCredentialInputs runs the format checks shared by every issuance, in order,
// without touching any cryptography.
func CheckCredentialInputs(keyID, teamID, privateKey string) error {
	switch {
	case keyID == "":
		return errors.ErrMissingCredentialField(constants.FieldKeyID)
	case teamID == "":
		return errors.ErrMissingCredentialField(constants.FieldIssuerID)
	case privateKey == "":
		return errors.ErrMissingCredentialField(constants.FieldPrivateKey)
	}

	if !validIdentifierLength(keyID) {
		return errors.ErrInvalidKeyIDFormat()
	}
	if !validIdentifierLength(teamID) {
		return errors.ErrInvalidIssuerIDFormat()
	}
	if !strings.Contains(privateKey, constants.PrivateKeyMarker) {
		return errors.ErrInvalidPrivateKeyFormat()
	}
	return nil
}

func validIdentifierLength(id string) bool {
	return len(id) >= constants.IdentifierMinLength && len(id) <= constants.IdentifierMaxLength
}

// IssueToken implements TokenIssuer.
func (s *es256Issuer) IssueToken(ctx context.Context, keyID, teamID, privateKey string, ttl time.Duration) (*models.IssuedToken, error) {
	if err := CheckCredentialInputs(keyID, teamID, privateKey); err != nil {
		return nil, err
	}
	if ttl < time.Second || ttl%time.Second != 0 {
		return nil, errors.ErrInvalidRequest("token lifetime must be a positive whole number of seconds")
	}

	now := s.now().Unix()
	claims := models.TokenClaims{
		Issuer:    teamID,
		IssuedAt:  now,
		ExpiresAt: now + int64(ttl/time.Second),
	}
	if origin, ok := s.origin.Origin(); ok {
		claims.Origin = origin
	}

	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(NormalizePrivateKey(privateKey)))
	if err != nil {
		s.log.Warn(ctx, "Private key could not be parsed", logger.String("key_id", keyID), logger.Error(err))
		return nil, errors.ErrSignature(err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = keyID

	raw, err := token.SignedString(key)
	if err != nil {
		s.log.Warn(ctx, "Failed to sign MapKit token", logger.String("key_id", keyID), logger.Error(err))
		return nil, errors.ErrSignature(err)
	}

	s.log.Debug(ctx, "Issued MapKit token",
		logger.String("key_id", keyID),
		logger.String("team_id", teamID),
		logger.Duration("ttl", ttl),
		logger.Bool("origin_locked", claims.Origin != ""),
	)

	return &models.IssuedToken{
		Raw: raw,
		Header: models.TokenHeader{
			Alg: constants.TokenAlgorithm,
			Kid: keyID,
			Typ: constants.TokenType,
		},
		Claims: claims,
	}, nil
}

// ValidateCredentials implements TokenIssuer.
func (s *es256Issuer) ValidateCredentials(ctx context.Context, keyID, teamID, privateKey string) error {
	_, err := s.TrialIssue(ctx, keyID, teamID, privateKey)
	return err
}

// TrialIssue implements TokenIssuer.
func (s *es256Issuer) TrialIssue(ctx context.Context, keyID, teamID, privateKey string) (*models.IssuedToken, error) {
	token, err := s.IssueToken(ctx, keyID, teamID, privateKey, constants.TrialTokenTTL)
	if err != nil {
		return nil, err
	}
	if n := len(strings.Split(token.Raw, ".")); n != constants.TokenSegments {
		return nil, errors.ErrMalformedToken(n)
	}
	s.log.Info(ctx, "MapKit credentials validated", logger.String("key_id", keyID), logger.String("team_id", teamID))
	return token, nil
}

// NormalizePrivateKey repairs the usual copy/paste damage to a .p8 key: escaped
// newlines, CRLF line endings and missing PKCS#8 armor. Keys already carrying any
// PEM armor are left alone apart from line endings.
func NormalizePrivateKey(raw string) string {
	key := strings.ReplaceAll(raw, `\n`, "\n")
	key = strings.ReplaceAll(key, "\r\n", "\n")

	if strings.Contains(key, constants.PEMBeginPrivateKey) || strings.Contains(key, "-----BEGIN ") {
		return key
	}

	body := strings.Join(strings.Fields(key), "")
	var b strings.Builder
	b.WriteString(constants.PEMBeginPrivateKey)
	b.WriteByte('\n')
	for len(body) > constants.PEMLineWidth {
		b.WriteString(body[:constants.PEMLineWidth])
		b.WriteByte('\n')
		body = body[constants.PEMLineWidth:]
	}
	if body != "" {
		b.WriteString(body)
		b.WriteByte('\n')
	}
	b.WriteString(constants.PEMEndPrivateKey)
	return b.String()
}
