package flows

import (
	"context"
	"errors"

	"github.com/mvassor/authkit/session"
	"github.com/mvassor/authkit/token"
)

// ValidateResult carries the authenticated claims and live session on
// success, or a classified failure.
type ValidateResult struct {
	Failure FailureKind
	Err     error
	Claims  *token.Claims
	Session *session.Session
}

// RunValidate is the per-request hot path: decode, stateless claim checks,
// revocation lookup, session liveness, then a best-effort touch. Every check
// is deny-by-default; a store that cannot answer fails the request.
func RunValidate(ctx context.Context, accessToken, expectedSubject string, deps Deps) ValidateResult {
	claims, err := deps.Codec.Decode(accessToken)
	if err != nil {
		return ValidateResult{Failure: classifyDecodeError(err), Err: err}
	}

	if err := deps.Validator.Validate(claims, token.TypeAccess, expectedSubject); err != nil {
		return ValidateResult{Failure: classifyValidateError(err), Err: err, Claims: claims}
	}

	revoked, err := deps.Revocations.IsRevoked(ctx, claims.TokenID())
	if err != nil {
		return ValidateResult{Failure: FailureStore, Err: err, Claims: claims}
	}
	if revoked {
		return ValidateResult{Failure: FailureRevoked, Claims: claims}
	}

	sess, err := deps.Sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ValidateResult{Failure: FailureSessionExpired, Err: err, Claims: claims}
		}
		return ValidateResult{Failure: FailureStore, Err: err, Claims: claims}
	}
	if sess.SubjectID != claims.SubjectID {
		return ValidateResult{Failure: FailureSessionExpired, Claims: claims}
	}

	if err := deps.Sessions.Touch(ctx, claims.SessionID, deps.now()); err != nil {
		// Liveness tracking only affects eviction order, never security.
		deps.warn("authkit: session touch after validate failed: %v", err)
	}

	return ValidateResult{Claims: claims, Session: sess}
}
