package flows

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mvassor/authkit/session"
)

// LoginInput carries the caller-verified identity a new session is created
// for. Credential verification happens upstream; by the time a LoginInput
// exists the subject is authenticated.
type LoginInput struct {
	SubjectID        string
	TenantID         string
	Role             string
	OriginAddress    string
	AgentFingerprint string
}

// LoginResult carries either the issued token pair or failure metadata.
type LoginResult struct {
	Failure         FailureKind
	Err             error
	SessionID       string
	EvictedSessions []string
	AccessToken     string
	RefreshToken    string
}

// RunLogin admits the subject under the session cap, creates the session
// record, and mints the initial access+refresh pair bound to it.
func RunLogin(ctx context.Context, in LoginInput, deps Deps) LoginResult {
	if in.SubjectID == "" {
		return LoginResult{Failure: FailureInternal, Err: errors.New("empty subject id")}
	}

	evicted, err := deps.Limiter.Admit(ctx, in.SubjectID)
	if err != nil {
		return LoginResult{Failure: FailureStore, Err: err, EvictedSessions: evicted}
	}

	now := deps.now().Unix()
	sess := &session.Session{
		SessionID:        uuid.NewString(),
		SubjectID:        in.SubjectID,
		TenantID:         in.TenantID,
		Role:             in.Role,
		OriginAddress:    in.OriginAddress,
		AgentFingerprint: in.AgentFingerprint,
		CreatedAt:        now,
		LastAccessedAt:   now,
	}

	if err := deps.Sessions.Create(ctx, sess, deps.SessionLifetime); err != nil {
		return LoginResult{Failure: FailureStore, Err: err, EvictedSessions: evicted}
	}

	access, err := deps.Codec.MintAccess(sess.SubjectID, sess.TenantID, sess.Role, sess.SessionID)
	if err == nil {
		var refresh string
		refresh, err = deps.Codec.MintRefresh(sess.SubjectID, sess.SessionID)
		if err == nil {
			return LoginResult{
				SessionID:       sess.SessionID,
				EvictedSessions: evicted,
				AccessToken:     access,
				RefreshToken:    refresh,
			}
		}
	}

	// A half-issued login must not leave a session nothing can use.
	if cleanupErr := deps.Sessions.Invalidate(ctx, sess.SessionID); cleanupErr != nil {
		deps.warn("authkit: session cleanup after mint failure failed: %v", cleanupErr)
	}
	return LoginResult{
		Failure:         FailureInternal,
		Err:             err,
		SessionID:       sess.SessionID,
		EvictedSessions: evicted,
	}
}
