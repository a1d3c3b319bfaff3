package authkit

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/mvassor/authkit/internal/flows"
	"github.com/mvassor/authkit/revocation"
	"github.com/mvassor/authkit/session"
	"github.com/mvassor/authkit/token"
)

// Engine is the authentication facade: login, refresh, access validation,
// and logout over a shared distributed store. All methods are safe for
// concurrent use after Build. Every store round-trip runs under the bounded
// timeout for its path, and a timeout is a fail-secure deny.
type Engine struct {
	config      Config
	codec       *token.Codec
	validator   *token.Validator
	sessions    *session.Store
	limiter     *session.Limiter
	revocations *revocation.Registry
	audit       *auditDispatcher
	metrics     *Metrics
	deps        flows.Deps
	closed      atomic.Bool
}

// Login creates a session for an already-verified subject and mints its
// first token pair. Credential verification is the caller's responsibility
// and happens before Login. Origin address and agent fingerprint are read
// from ctx when attached via WithOriginAddress / WithAgentFingerprint.
//
// Login never rejects for being over the session cap: the least-recently
// active session is evicted instead.
func (e *Engine) Login(ctx context.Context, subjectID, tenantID, role string) (TokenPair, error) {
	if e.closed.Load() {
		return TokenPair{}, ErrEngineClosed
	}
	ctx, cancel := withTimeout(ctx, e.config.Timeouts.Login)
	defer cancel()

	res := flows.RunLogin(ctx, flows.LoginInput{
		SubjectID:        subjectID,
		TenantID:         tenantID,
		Role:             role,
		OriginAddress:    originAddressFromContext(ctx),
		AgentFingerprint: agentFingerprintFromContext(ctx),
	}, e.deps)

	if n := len(res.EvictedSessions); n > 0 {
		e.metrics.Add(MetricSessionEvicted, uint64(n))
		e.metrics.Add(MetricSessionInvalidated, uint64(n))
		for _, evicted := range res.EvictedSessions {
			e.emitAudit(ctx, AuditEvent{
				EventType: auditEventSessionEvicted,
				SubjectID: subjectID,
				TenantID:  tenantID,
				SessionID: evicted,
				Success:   true,
			})
		}
	}

	if res.Failure != flows.FailureNone {
		e.metrics.Inc(MetricLoginFailure)
		e.auditFailure(ctx, auditEventLoginFailure, res.Failure, res.Err, AuditEvent{
			SubjectID: subjectID,
			TenantID:  tenantID,
			SessionID: res.SessionID,
		})
		return TokenPair{}, e.failureError(res.Failure)
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.metrics.Inc(MetricSessionCreated)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventLoginSuccess,
		SubjectID: subjectID,
		TenantID:  tenantID,
		SessionID: res.SessionID,
		Origin:    originAddressFromContext(ctx),
		Success:   true,
	})

	return TokenPair{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		SessionID:    res.SessionID,
	}, nil
}

// Refresh exchanges a single-use refresh token for a new pair bound to the
// same session. A second presentation of the same token fails with
// ErrReuseDetected and invalidates the whole session. Once the exchange has
// consumed the token, any failure is definitive: never retry a Refresh with
// the same token string.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if e.closed.Load() {
		return TokenPair{}, ErrEngineClosed
	}
	ctx, cancel := withTimeout(ctx, e.config.Timeouts.Refresh)
	defer cancel()

	res := flows.RunRefresh(ctx, refreshToken, e.deps)

	if res.Failure != flows.FailureNone {
		e.metrics.Inc(MetricRefreshFailure)
		eventType := auditEventRefreshFailure
		if res.Failure == flows.FailureReuse {
			eventType = auditEventRefreshReuse
			e.metrics.Inc(MetricReuseDetected)
			e.metrics.Inc(MetricSessionInvalidated)
		}
		e.auditFailure(ctx, eventType, res.Failure, res.Err, AuditEvent{
			SubjectID: res.SubjectID,
			SessionID: res.SessionID,
			TokenID:   res.TokenID,
		})
		return TokenPair{}, e.failureError(res.Failure)
	}

	e.metrics.Inc(MetricRefreshSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventRefreshSuccess,
		SubjectID: res.SubjectID,
		SessionID: res.SessionID,
		TokenID:   res.TokenID,
		Success:   true,
	})

	return TokenPair{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		SessionID:    res.SessionID,
	}, nil
}

// ValidateAccess authenticates one request. On success it returns the
// Principal carried by the token; on any failure it returns an error
// wrapping ErrAuthenticationRequired and never a placeholder principal.
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (*Principal, error) {
	return e.ValidateAccessFor(ctx, accessToken, "")
}

// ValidateAccessFor is ValidateAccess with an additional expected-subject
// check, for callers that already know who the request claims to be.
func (e *Engine) ValidateAccessFor(ctx context.Context, accessToken, expectedSubject string) (*Principal, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	ctx, cancel := withTimeout(ctx, e.config.Timeouts.Validate)
	defer cancel()

	start := time.Now()
	res := flows.RunValidate(ctx, accessToken, expectedSubject, e.deps)
	e.metrics.Observe(MetricValidateLatency, time.Since(start))

	if res.Failure != flows.FailureNone {
		e.metrics.Inc(MetricValidateFailure)
		event := AuditEvent{}
		if res.Claims != nil {
			event.SubjectID = res.Claims.SubjectID
			event.TenantID = res.Claims.TenantID
			event.SessionID = res.Claims.SessionID
			event.TokenID = res.Claims.TokenID()
		}
		e.auditFailure(ctx, auditEventValidateDenied, res.Failure, res.Err, event)
		return nil, e.failureError(res.Failure)
	}

	e.metrics.Inc(MetricValidateSuccess)
	return &Principal{
		SubjectID: res.Claims.SubjectID,
		TenantID:  res.Claims.TenantID,
		Role:      res.Claims.Role,
		SessionID: res.Claims.SessionID,
	}, nil
}

// Logout terminates one session. Idempotent: a second Logout for the same
// session id is a no-op, not an error.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	ctx, cancel := withTimeout(ctx, e.config.Timeouts.Logout)
	defer cancel()

	if err := flows.RunLogout(ctx, sessionID, e.deps); err != nil {
		e.metrics.Inc(MetricStoreUnavailable)
		return ErrStoreUnavailable
	}

	e.metrics.Inc(MetricLogout)
	e.metrics.Inc(MetricSessionInvalidated)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventLogoutSession,
		SessionID: sessionID,
		Success:   true,
	})
	return nil
}

// LogoutAll terminates every live session of a subject and returns how many
// were removed.
func (e *Engine) LogoutAll(ctx context.Context, subjectID string) (int, error) {
	if e.closed.Load() {
		return 0, ErrEngineClosed
	}
	ctx, cancel := withTimeout(ctx, e.config.Timeouts.Logout)
	defer cancel()

	removed, err := flows.RunLogoutAll(ctx, subjectID, e.deps)
	if err != nil {
		e.metrics.Inc(MetricStoreUnavailable)
		return removed, ErrStoreUnavailable
	}

	e.metrics.Inc(MetricLogoutAll)
	e.metrics.Add(MetricSessionInvalidated, uint64(removed))
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventLogoutAll,
		SubjectID: subjectID,
		Success:   true,
		Metadata:  map[string]string{"removed": strconv.Itoa(removed)},
	})
	return removed, nil
}

// RevokeToken marks a still-valid token unusable before its natural expiry.
// The revocation entry lives exactly as long as the token would have, so
// revoking an already expired token is a no-op.
func (e *Engine) RevokeToken(ctx context.Context, tokenStr, reason string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	ctx, cancel := withTimeout(ctx, e.config.Timeouts.Logout)
	defer cancel()

	claims, err := e.codec.Decode(tokenStr)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrUnsupportedAlgorithm):
			return ErrUnsupportedAlgorithm
		case errors.Is(err, token.ErrMalformed):
			return ErrTokenMalformed
		default:
			return ErrSignatureInvalid
		}
	}

	remaining := claims.RemainingLifetime(time.Now())
	if remaining <= 0 {
		return nil
	}
	if reason == "" {
		reason = revocation.ReasonExplicit
	}

	if err := e.revocations.Record(ctx, claims.TokenID(), reason, remaining); err != nil {
		e.metrics.Inc(MetricStoreUnavailable)
		return ErrStoreUnavailable
	}

	e.metrics.Inc(MetricTokenRevoked)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventTokenRevoked,
		SubjectID: claims.SubjectID,
		SessionID: claims.SessionID,
		TokenID:   claims.TokenID(),
		Success:   true,
		Metadata:  map[string]string{"reason": reason},
	})
	return nil
}

// ListSessions returns the subject's live sessions for introspection.
func (e *Engine) ListSessions(ctx context.Context, subjectID string) ([]SessionInfo, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	ctx, cancel := withTimeout(ctx, e.config.Timeouts.Logout)
	defer cancel()

	sessions, err := e.sessions.ListBySubject(ctx, subjectID)
	if err != nil {
		e.metrics.Inc(MetricStoreUnavailable)
		return nil, ErrStoreUnavailable
	}

	infos := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, SessionInfo{
			SessionID:        s.SessionID,
			SubjectID:        s.SubjectID,
			TenantID:         s.TenantID,
			Role:             s.Role,
			OriginAddress:    s.OriginAddress,
			AgentFingerprint: s.AgentFingerprint,
			CreatedAt:        time.Unix(s.CreatedAt, 0),
			LastAccessedAt:   time.Unix(s.LastAccessedAt, 0),
		})
	}
	return infos, nil
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// AuditDropped returns how many audit events were shed under backpressure.
func (e *Engine) AuditDropped() uint64 {
	return e.audit.droppedCount()
}

// Ping checks store availability and reports the round-trip latency.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	ctx, cancel := withTimeout(ctx, e.config.Timeouts.Validate)
	defer cancel()
	return e.sessions.Ping(ctx)
}

// Close stops the audit dispatcher after draining buffered events. The
// engine rejects all calls afterwards.
func (e *Engine) Close() {
	if e.closed.CompareAndSwap(false, true) {
		e.audit.close()
	}
}

func (e *Engine) failureError(kind flows.FailureKind) error {
	switch kind {
	case flows.FailureMalformed:
		return ErrTokenMalformed
	case flows.FailureSignature:
		return ErrSignatureInvalid
	case flows.FailureAlgorithm:
		return ErrUnsupportedAlgorithm
	case flows.FailureExpired:
		return ErrTokenExpired
	case flows.FailureWrongType:
		return ErrWrongTokenType
	case flows.FailureSubjectMismatch:
		return ErrSubjectMismatch
	case flows.FailureRevoked:
		return ErrTokenRevoked
	case flows.FailureSessionExpired:
		return ErrSessionExpired
	case flows.FailureReuse:
		return ErrReuseDetected
	case flows.FailureStore:
		e.metrics.Inc(MetricStoreUnavailable)
		return ErrStoreUnavailable
	default:
		return ErrAuthenticationRequired
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, d)
}
