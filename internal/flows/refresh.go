package flows

import (
	"context"
	"errors"

	"github.com/mvassor/authkit/revocation"
	"github.com/mvassor/authkit/session"
	"github.com/mvassor/authkit/token"
)

// RefreshResult carries either the rotated token pair or failure metadata.
type RefreshResult struct {
	Failure      FailureKind
	Err          error
	SubjectID    string
	SessionID    string
	TokenID      string
	AccessToken  string
	RefreshToken string
}

// RunRefresh executes the single-use refresh exchange.
//
// The revocation registry's conditional insert is the linearization point:
// of two concurrent presentations of the identical token, exactly one passes
// ConsumeOnce, the other is treated as reuse. Once the insert has committed
// the operation is definitive; a failure after that point must never be
// retried with the same token. A reuse signal invalidates the whole owning
// session, idempotently.
func RunRefresh(ctx context.Context, refreshToken string, deps Deps) RefreshResult {
	claims, err := deps.Codec.Decode(refreshToken)
	if err != nil {
		return RefreshResult{Failure: classifyDecodeError(err), Err: err}
	}

	res := RefreshResult{
		SubjectID: claims.SubjectID,
		SessionID: claims.SessionID,
		TokenID:   claims.TokenID(),
	}

	if err := deps.Validator.Validate(claims, token.TypeRefresh, ""); err != nil {
		res.Failure, res.Err = classifyValidateError(err), err
		return res
	}

	// Cheap pre-check: an id already in the registry is a reuse signal and
	// never recovers, so reject before touching the session.
	revoked, err := deps.Revocations.IsRevoked(ctx, claims.TokenID())
	if err != nil {
		res.Failure, res.Err = FailureStore, err
		return res
	}
	if revoked {
		return deps.handleReuse(ctx, res)
	}

	sess, err := deps.Sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			res.Failure, res.Err = FailureSessionExpired, err
		} else {
			res.Failure, res.Err = FailureStore, err
		}
		return res
	}
	if sess.SubjectID != claims.SubjectID {
		res.Failure, res.Err = FailureSessionExpired, errors.New("refresh token subject does not own session")
		return res
	}

	// Single-use enforcement. This insert and the pre-check above are
	// together linearizable per token id: ConsumeOnce is authoritative and
	// bypasses any local cache.
	won, err := deps.Revocations.ConsumeOnce(ctx, claims.TokenID(), revocation.ReasonRotated, claims.RemainingLifetime(deps.now()))
	if err != nil {
		res.Failure, res.Err = FailureStore, err
		return res
	}
	if !won {
		return deps.handleReuse(ctx, res)
	}

	access, err := deps.Codec.MintAccess(sess.SubjectID, sess.TenantID, sess.Role, sess.SessionID)
	if err != nil {
		res.Failure, res.Err = FailureInternal, err
		return res
	}
	refresh, err := deps.Codec.MintRefresh(sess.SubjectID, sess.SessionID)
	if err != nil {
		res.Failure, res.Err = FailureInternal, err
		return res
	}

	if err := deps.Sessions.Touch(ctx, sess.SessionID, deps.now()); err != nil {
		deps.warn("authkit: session touch after refresh failed: %v", err)
	}

	res.AccessToken = access
	res.RefreshToken = refresh
	return res
}

// handleReuse applies the mandated reuse side effect: the owning session is
// invalidated so every outstanding token of its family dies with it. The
// invalidation is idempotent against repeated reuse signals.
func (d Deps) handleReuse(ctx context.Context, res RefreshResult) RefreshResult {
	if err := d.Sessions.Invalidate(ctx, res.SessionID); err != nil {
		d.warn("authkit: session invalidation on reuse failed: %v", err)
	}
	res.Failure = FailureReuse
	res.Err = errors.New("refresh token reuse detected")
	return res
}
