package session

import "time"

// Session correlates a login to its issued token family. Records are owned
// by the Store; after creation only LastAccessedAt may change, and a session
// disappears entirely when invalidated rather than lingering inactive.
type Session struct {
	SessionID        string
	SubjectID        string
	TenantID         string
	Role             string
	OriginAddress    string
	AgentFingerprint string

	CreatedAt      int64
	LastAccessedAt int64
}

// Age reports time elapsed since the session was created.
func (s *Session) Age(now time.Time) time.Duration {
	return now.Sub(time.Unix(s.CreatedAt, 0))
}

// IdleTime reports time elapsed since the session was last touched.
func (s *Session) IdleTime(now time.Time) time.Duration {
	return now.Sub(time.Unix(s.LastAccessedAt, 0))
}
