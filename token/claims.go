package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Type tags a token as an access or refresh credential. The tag is embedded
// in the signed claims so neither kind can stand in for the other.
type Type string

const (
	// TypeAccess marks short-lived tokens that authorize resource access.
	TypeAccess Type = "access"
	// TypeRefresh marks longer-lived single-use tokens exchanged for new pairs.
	TypeRefresh Type = "refresh"
)

// Claims is the decoded payload of a minted token. Instances are immutable
// once decoded; only the token id (jti) is ever persisted, and only in the
// revocation registry.
type Claims struct {
	SubjectID string `json:"uid"`
	TenantID  string `json:"tid,omitempty"`
	Role      string `json:"role,omitempty"`
	SessionID string `json:"sid"`
	TokenType Type   `json:"typ"`
	jwt.RegisteredClaims
}

// TokenID returns the unique token identifier (jti).
func (c *Claims) TokenID() string {
	return c.ID
}

// RemainingLifetime reports how long the token stays valid past now. Zero or
// negative means expired. Revocation entries use this as their TTL so the
// registry never outlives the tokens it tracks.
func (c *Claims) RemainingLifetime(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Time.Sub(now)
}
