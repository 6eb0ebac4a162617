package models

import "strings"

// CredentialStatus records the outcome of the last credential validation.
type CredentialStatus string

const (
	// CredentialStatusUnset means the credentials were never validated, failed
	// validation, or changed since they were last validated.
	CredentialStatusUnset CredentialStatus = ""

	// CredentialStatusAuthorized means the last trial signature succeeded.
	CredentialStatusAuthorized CredentialStatus = "authorized"
)

// SigningCredential is the persisted Apple Developer configuration record.
// Status is historical: it never stands in for a fresh signature.
type SigningCredential struct {
	PrivateKey string           `json:"maps_private_key" gorm:"column:maps_private_key;type:text"`
	KeyID      string           `json:"maps_key_id" gorm:"column:maps_key_id;size:64"`
	TeamID     string           `json:"maps_team_id" gorm:"column:maps_team_id;size:64"`
	Status     CredentialStatus `json:"mapkit_status" gorm:"column:mapkit_status;size:32"`
}

// Complete reports whether all three signing inputs are present.
func (c *SigningCredential) Complete() bool {
	return c != nil && c.PrivateKey != "" && c.KeyID != "" && c.TeamID != ""
}

// Authorized reports whether the last validation succeeded.
func (c *SigningCredential) Authorized() bool {
	return c != nil && c.Status == CredentialStatusAuthorized
}

// SameMaterial reports whether other carries identical signing inputs.
func (c *SigningCredential) SameMaterial(other *SigningCredential) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.PrivateKey == other.PrivateKey && c.KeyID == other.KeyID && c.TeamID == other.TeamID
}

// Sanitized returns a copy with surrounding whitespace trimmed from the
// identifiers. The private key keeps its line breaks.
func (c *SigningCredential) Sanitized() *SigningCredential {
	return &SigningCredential{
		PrivateKey: strings.TrimSpace(c.PrivateKey),
		KeyID:      strings.TrimSpace(c.KeyID),
		TeamID:     strings.TrimSpace(c.TeamID),
		Status:     c.Status,
	}
}

// CredentialView is a SigningCredential safe to log or return over the wire.
type CredentialView struct {
	KeyID         string           `json:"key_id"`
	TeamID        string           `json:"team_id"`
	HasPrivateKey bool             `json:"has_private_key"`
	Status        CredentialStatus `json:"status"`
}

// Redacted drops the private key, keeping only whether one is stored.
func (c *SigningCredential) Redacted() CredentialView {
	if c == nil {
		return CredentialView{}
	}
	return CredentialView{
		KeyID:         c.KeyID,
		TeamID:        c.TeamID,
		HasPrivateKey: c.PrivateKey != "",
		Status:        c.Status,
	}
}
