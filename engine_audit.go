package authkit

import (
	"context"
	"time"

	"github.com/mvassor/authkit/internal/flows"
)

const (
	auditEventLoginSuccess   = "login.success"
	auditEventLoginFailure   = "login.failure"
	auditEventSessionEvicted = "session.evicted"
	auditEventRefreshSuccess = "refresh.success"
	auditEventRefreshFailure = "refresh.failure"
	auditEventRefreshReuse   = "refresh.reuse_detected"
	auditEventValidateDenied = "validate.denied"
	auditEventLogoutSession  = "logout.session"
	auditEventLogoutAll      = "logout.all"
	auditEventTokenRevoked   = "token.revoked"
)

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e.audit == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Origin == "" {
		event.Origin = originAddressFromContext(ctx)
	}
	e.audit.emit(ctx, event)
}

func (e *Engine) auditFailure(ctx context.Context, eventType string, kind flows.FailureKind, cause error, event AuditEvent) {
	event.EventType = eventType
	event.Success = false
	if cause != nil {
		event.Error = cause.Error()
	}
	if event.Metadata == nil {
		event.Metadata = make(map[string]string, 1)
	}
	event.Metadata["kind"] = kind.String()
	e.emitAudit(ctx, event)
}
