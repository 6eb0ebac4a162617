package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/omega-networks/mapkit-auth/pkg/constants"
)

// IntegrityService issues and checks request integrity tokens (nonces) that bind
// a state-changing request to an action and a time window.
// IntegrityService 签发并校验请求完整性令牌（nonce）。
type IntegrityService interface {
	// Create returns the token for action in the current window.
	Create(action string) string
	// Verify accepts tokens from the current and the previous half-lifetime window.
	Verify(action, token string) bool
}

type hmacIntegrity struct {
	secret   []byte
	lifetime time.Duration
	now      Clock
}

// NewIntegrityService creates an HMAC-SHA256 IntegrityService. A zero lifetime
// uses the 24 hour default.
func NewIntegrityService(secret string, lifetime time.Duration, now Clock) IntegrityService {
	if lifetime <= 0 {
		lifetime = constants.IntegrityDefaultLifetime
	}
	if now == nil {
		now = time.Now
	}
	return &hmacIntegrity{secret: []byte(secret), lifetime: lifetime, now: now}
}

// tick numbers the half-lifetime window containing now, rounding up.
func (s *hmacIntegrity) tick() int64 {
	half := int64(s.lifetime/time.Second) / 2
	if half < 1 {
		half = 1
	}
	now := s.now().Unix()
	return (now + half - 1) / half
}

func (s *hmacIntegrity) sign(action string, tick int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(action))
	mac.Write([]byte{'|'})
	mac.Write([]byte(strconv.FormatInt(tick, 10)))
	return hex.EncodeToString(mac.Sum(nil))[:constants.IntegrityTokenLength]
}

func (s *hmacIntegrity) Create(action string) string {
	return s.sign(action, s.tick())
}

func (s *hmacIntegrity) Verify(action, token string) bool {
	if len(token) != constants.IntegrityTokenLength {
		return false
	}
	tick := s.tick()
	for _, t := range []int64{tick, tick - 1} {
		if subtle.ConstantTimeCompare([]byte(s.sign(action, t)), []byte(token)) == 1 {
			return true
		}
	}
	return false
}
