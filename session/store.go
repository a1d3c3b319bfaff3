package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound reports that no live session exists for the given id.
var ErrNotFound = errors.New("session not found")

// ErrStoreUnavailable reports that Redis could not serve the operation.
var ErrStoreUnavailable = errors.New("session store unavailable")

// ErrCorrupt reports a session record missing required fields.
var ErrCorrupt = errors.New("session record corrupt")

const (
	fieldSubjectID    = "subject_id"
	fieldTenantID     = "tenant_id"
	fieldRole         = "role"
	fieldOrigin       = "origin_address"
	fieldAgent        = "agent_fingerprint"
	fieldCreatedAt    = "created_at"
	fieldLastAccessed = "last_accessed_at"
)

// touchScript updates the last-access stamp only when the session still
// exists, so a touch can never resurrect an invalidated session as a stray
// key without TTL. Last-writer-wins across replicas is acceptable here.
const touchScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "last_accessed_at", ARGV[1])
return 1
`

var touchLua = redis.NewScript(touchScript)

// invalidateScript removes the session record and its subject-index entry in
// one atomic step. Safe to run repeatedly: a second run finds nothing.
const invalidateScript = `
local subject = redis.call("HGET", KEYS[1], "subject_id")
local existed = redis.call("DEL", KEYS[1])
if existed == 1 and subject then
  redis.call("SREM", ARGV[1] .. subject, ARGV[2])
end
return existed
`

var invalidateLua = redis.NewScript(invalidateScript)

// Store is the Redis-backed session registry. Each session is one hash under
// "{prefix}:{sessionID}" carrying an absolute TTL, plus an entry in a
// per-subject index set used for concurrency capping and introspection.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a Store using prefix as the Redis key namespace
// ("session" when empty).
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "session"
	}
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *Store) subjectPrefix() string {
	return s.prefix + ":by_subject:"
}

func (s *Store) subjectKey(subjectID string) string {
	return s.subjectPrefix() + subjectID
}

// Create persists a new session with the given absolute lifetime. The record
// and the subject index are written in one transaction; the index set gets
// the same TTL refresh so it cannot outlive every session it names.
func (s *Store) Create(ctx context.Context, sess *Session, lifetime time.Duration) error {
	if sess.SessionID == "" || sess.SubjectID == "" {
		return ErrCorrupt
	}
	if lifetime <= 0 {
		return errors.New("session lifetime must be positive")
	}

	key := s.key(sess.SessionID)
	subjectKey := s.subjectKey(sess.SubjectID)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldSubjectID, sess.SubjectID,
			fieldTenantID, sess.TenantID,
			fieldRole, sess.Role,
			fieldOrigin, sess.OriginAddress,
			fieldAgent, sess.AgentFingerprint,
			fieldCreatedAt, strconv.FormatInt(sess.CreatedAt, 10),
			fieldLastAccessed, strconv.FormatInt(sess.LastAccessedAt, 10),
		)
		pipe.Expire(ctx, key, lifetime)
		pipe.SAdd(ctx, subjectKey, sess.SessionID)
		pipe.Expire(ctx, subjectKey, lifetime)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Get returns the live session for the id, or ErrNotFound once the session
// has been invalidated or expired. Get never mutates the record.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return decodeFields(sessionID, fields)
}

// Touch records liveness by bumping the last-access stamp. It is idempotent
// and last-writer-wins under concurrent replicas; touching a session that no
// longer exists is a no-op, never an error.
func (s *Store) Touch(ctx context.Context, sessionID string, at time.Time) error {
	err := touchLua.Run(ctx, s.redis,
		[]string{s.key(sessionID)},
		strconv.FormatInt(at.Unix(), 10),
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Invalidate terminates a session. Terminal and idempotent: a subsequent Get
// returns ErrNotFound, and calling Invalidate again is a no-op.
func (s *Store) Invalidate(ctx context.Context, sessionID string) error {
	err := invalidateLua.Run(ctx, s.redis,
		[]string{s.key(sessionID)},
		s.subjectPrefix(), sessionID,
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// ListBySubject returns the subject's live sessions. Index entries whose
// session hash has already expired are pruned on the way through.
func (s *Store) ListBySubject(ctx context.Context, subjectID string) ([]*Session, error) {
	ids, err := s.redis.SMembers(ctx, s.subjectKey(subjectID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*Session{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(ids) == 0 {
		return []*Session{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	sessions := make([]*Session, 0, len(ids))
	var stale []interface{}
	for i, cmd := range cmds {
		fields, cmdErr := cmd.Result()
		if cmdErr != nil && !errors.Is(cmdErr, redis.Nil) {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, cmdErr)
		}
		if len(fields) == 0 {
			stale = append(stale, ids[i])
			continue
		}
		sess, decErr := decodeFields(ids[i], fields)
		if decErr != nil {
			return nil, decErr
		}
		sessions = append(sessions, sess)
	}

	if len(stale) > 0 {
		_ = s.redis.SRem(ctx, s.subjectKey(subjectID), stale...).Err()
	}

	return sessions, nil
}

// InvalidateAllForSubject terminates every live session owned by a subject
// and returns how many were removed.
func (s *Store) InvalidateAllForSubject(ctx context.Context, subjectID string) (int, error) {
	sessions, err := s.ListBySubject(ctx, subjectID)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, sess := range sessions {
		if err := s.Invalidate(ctx, sess.SessionID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Ping reports a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}

func decodeFields(sessionID string, fields map[string]string) (*Session, error) {
	subjectID := fields[fieldSubjectID]
	if subjectID == "" {
		return nil, ErrCorrupt
	}

	createdAt, err := strconv.ParseInt(fields[fieldCreatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad created_at", ErrCorrupt)
	}
	lastAccessed, err := strconv.ParseInt(fields[fieldLastAccessed], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad last_accessed_at", ErrCorrupt)
	}

	return &Session{
		SessionID:        sessionID,
		SubjectID:        subjectID,
		TenantID:         fields[fieldTenantID],
		Role:             fields[fieldRole],
		OriginAddress:    fields[fieldOrigin],
		AgentFingerprint: fields[fieldAgent],
		CreatedAt:        createdAt,
		LastAccessedAt:   lastAccessed,
	}, nil
}
