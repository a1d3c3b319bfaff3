package flows

import (
	"context"
	"time"

	"github.com/mvassor/authkit/session"
	"github.com/mvassor/authkit/token"
)

// SessionStore is the slice of the session store the flows depend on.
type SessionStore interface {
	Create(ctx context.Context, sess *session.Session, lifetime time.Duration) error
	Get(ctx context.Context, sessionID string) (*session.Session, error)
	Touch(ctx context.Context, sessionID string, at time.Time) error
	Invalidate(ctx context.Context, sessionID string) error
	InvalidateAllForSubject(ctx context.Context, subjectID string) (int, error)
}

// RevocationRegistry is the slice of the revocation registry the flows
// depend on.
type RevocationRegistry interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	ConsumeOnce(ctx context.Context, tokenID, reason string, ttl time.Duration) (bool, error)
	Record(ctx context.Context, tokenID, reason string, ttl time.Duration) error
}

// SessionLimiter admits one new session per call, evicting as needed.
type SessionLimiter interface {
	Admit(ctx context.Context, subjectID string) ([]string, error)
}

// TokenCodec mints and decodes signed tokens.
type TokenCodec interface {
	MintAccess(subjectID, tenantID, role, sessionID string) (string, error)
	MintRefresh(subjectID, sessionID string) (string, error)
	Decode(tokenStr string) (*token.Claims, error)
}

// Deps carries every collaborator the flows need. The engine builds one Deps
// value at startup and treats it as immutable afterwards.
type Deps struct {
	Codec           TokenCodec
	Validator       *token.Validator
	Sessions        SessionStore
	Limiter         SessionLimiter
	Revocations     RevocationRegistry
	SessionLifetime time.Duration
	Now             func() time.Time
	Warn            func(format string, args ...any)
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) warn(format string, args ...any) {
	if d.Warn != nil {
		d.Warn(format, args...)
	}
}
