package session

import (
	"context"
	"sort"
)

// DefaultMaxSessionsPerSubject caps concurrent sessions when no explicit
// limit is configured.
const DefaultMaxSessionsPerSubject = 5

// Limiter enforces the per-subject concurrent session cap. A fresh login is
// never rejected: when the subject is at the cap, the least-recently-active
// session is evicted to make room, ties broken by creation order.
type Limiter struct {
	store *Store
	max   int
}

// NewLimiter creates a Limiter over the given store. max <= 0 selects
// DefaultMaxSessionsPerSubject.
func NewLimiter(store *Store, max int) *Limiter {
	if max <= 0 {
		max = DefaultMaxSessionsPerSubject
	}
	return &Limiter{store: store, max: max}
}

// Max returns the configured cap.
func (l *Limiter) Max() int {
	return l.max
}

// Admit makes room for one new session for the subject, invalidating
// least-recently-active sessions as needed. It returns the ids it evicted so
// callers can audit them. Admit always admits; the only errors are store
// failures.
func (l *Limiter) Admit(ctx context.Context, subjectID string) ([]string, error) {
	sessions, err := l.store.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if len(sessions) < l.max {
		return nil, nil
	}

	sort.Slice(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if a.LastAccessedAt != b.LastAccessedAt {
			return a.LastAccessedAt < b.LastAccessedAt
		}
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return a.SessionID < b.SessionID
	})

	toEvict := len(sessions) - l.max + 1
	evicted := make([]string, 0, toEvict)
	for _, sess := range sessions[:toEvict] {
		if err := l.store.Invalidate(ctx, sess.SessionID); err != nil {
			return evicted, err
		}
		evicted = append(evicted, sess.SessionID)
	}

	return evicted, nil
}
