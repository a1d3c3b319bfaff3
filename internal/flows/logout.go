package flows

import "context"

// RunLogout terminates one session. Idempotent: logging out a session that
// is already gone is a no-op, not an error.
func RunLogout(ctx context.Context, sessionID string, deps Deps) error {
	return deps.Sessions.Invalidate(ctx, sessionID)
}

// RunLogoutAll terminates every live session of a subject and returns how
// many were removed.
func RunLogoutAll(ctx context.Context, subjectID string, deps Deps) (int, error) {
	return deps.Sessions.InvalidateAllForSubject(ctx, subjectID)
}
