package dto

import (
	"time"

	"github.com/omega-networks/mapkit-auth/internal/domain/models"
)

// TestCredentialsRequest 凭证测试请求 DTO
type TestCredentialsRequest struct {
	KeyID      string `json:"key_id" form:"key_id"`
	TeamID     string `json:"team_id" form:"team_id"`
	PrivateKey string `json:"private_key" form:"private_key"`
	Nonce      string `json:"nonce" form:"nonce"`
}

// SaveSettingsRequest 设置保存请求 DTO
type SaveSettingsRequest struct {
	KeyID      string `json:"key_id"`
	TeamID     string `json:"team_id"`
	PrivateKey string `json:"private_key"`
	Nonce      string `json:"nonce"`
}

// TokenResponse 令牌响应 DTO
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	ExpiresIn int64     `json:"expires_in"`
}

// NewTokenResponse builds the wire form of a freshly issued token.
func NewTokenResponse(tok *models.IssuedToken) *TokenResponse {
	return &TokenResponse{
		Token:     tok.Raw,
		ExpiresAt: tok.ExpiresAt(),
		ExpiresIn: tok.Claims.ExpiresAt - tok.Claims.IssuedAt,
	}
}

// SettingsResponse 设置响应 DTO；私钥从不返回
type SettingsResponse struct {
	Settings        models.CredentialView `json:"settings"`
	ValidationError *ErrorDTO             `json:"validation_error,omitempty"`
}

// NonceResponse 完整性令牌响应 DTO
type NonceResponse struct {
	Nonce  string `json:"nonce"`
	Action string `json:"action"`
}
