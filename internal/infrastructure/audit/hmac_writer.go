package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"

	"github.com/omega-networks/mapkit-auth/internal/domain/models"
)

// SignAuditEvent calculates the HMAC-SHA256 signature for an audit event.
func SignAuditEvent(event *models.AuditEvent, secretKey string) (string, error) {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return SignPayload(eventBytes, secretKey), nil
}

// SignPayload returns the base64 HMAC-SHA256 of payload.
func SignPayload(payload []byte, secretKey string) string {
	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write(payload)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// VerifyPayload checks a signature produced by SignPayload.
func VerifyPayload(payload []byte, signature, secretKey string) bool {
	expected, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write(payload)
	return hmac.Equal(h.Sum(nil), expected)
}
