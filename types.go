package authkit

import "time"

// TokenPair is the access+refresh pair issued by Login and Refresh. Both
// tokens are bound to the same session; the refresh token is single-use.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
}

// Principal is the authenticated identity attached to a validated request.
// It is only ever produced by a fully successful validation; the engine
// never substitutes a placeholder or guest principal on failure.
type Principal struct {
	SubjectID string
	TenantID  string
	Role      string
	SessionID string
}

// SessionInfo is the introspection view of a live session.
type SessionInfo struct {
	SessionID        string
	SubjectID        string
	TenantID         string
	Role             string
	OriginAddress    string
	AgentFingerprint string
	CreatedAt        time.Time
	LastAccessedAt   time.Time
}
