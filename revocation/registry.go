package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable reports that Redis could not confirm an answer. Callers
// must treat the token as revoked while this error stands (fail-secure).
var ErrStoreUnavailable = errors.New("revocation store unavailable")

// Revocation reasons persisted as the entry value. Reasons are for operators
// and audit trails only; they never change enforcement.
const (
	ReasonRotated  = "rotated"
	ReasonReuse    = "reuse"
	ReasonLogout   = "logout"
	ReasonExplicit = "revoked"
)

// maxCacheStaleness bounds how long a hot-path read may trust a locally
// cached answer. The cache is read-through and never authoritative.
const maxCacheStaleness = time.Second

// minEntryTTL keeps a revocation entry alive even when the token is at the
// edge of natural expiry, so concurrent presentations still collide on it.
const minEntryTTL = time.Second

// Registry is the distributed set of dead token ids. Each entry carries its
// own TTL equal to the token's remaining lifetime, so storage is bounded by
// the number of live tokens and Redis expiry does the sweeping.
type Registry struct {
	redis  redis.UniversalClient
	prefix string
	cache  *expirable.LRU[string, bool]
}

// NewRegistry creates a Registry on the given Redis client. cacheSize <= 0
// disables the local read cache; cacheTTL is clamped to one second so cached
// answers can never be staler than that.
func NewRegistry(client redis.UniversalClient, prefix string, cacheSize int, cacheTTL time.Duration) *Registry {
	if prefix == "" {
		prefix = "revoked"
	}
	if cacheTTL <= 0 || cacheTTL > maxCacheStaleness {
		cacheTTL = maxCacheStaleness
	}

	var cache *expirable.LRU[string, bool]
	if cacheSize > 0 {
		cache = expirable.NewLRU[string, bool](cacheSize, nil, cacheTTL)
	}

	return &Registry{
		redis:  client,
		prefix: prefix,
		cache:  cache,
	}
}

func (r *Registry) key(tokenID string) string {
	return r.prefix + ":" + tokenID
}

// Record marks a token id revoked for the token's remaining lifetime. Entries
// are write-once; re-recording an already revoked id keeps the earlier entry.
func (r *Registry) Record(ctx context.Context, tokenID, reason string, ttl time.Duration) error {
	if ttl < minEntryTTL {
		ttl = minEntryTTL
	}

	if err := r.redis.SetNX(ctx, r.key(tokenID), reason, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if r.cache != nil {
		r.cache.Add(tokenID, true)
	}
	return nil
}

// IsRevoked reports whether a token id has been revoked. On any store error
// it returns true together with ErrStoreUnavailable: a registry that cannot
// answer must deny, never allow. The read is retried once before giving up.
func (r *Registry) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if r.cache != nil {
		if revoked, ok := r.cache.Get(tokenID); ok {
			return revoked, nil
		}
	}

	exists, err := r.redis.Exists(ctx, r.key(tokenID)).Result()
	if err != nil && ctx.Err() == nil {
		exists, err = r.redis.Exists(ctx, r.key(tokenID)).Result()
	}
	if err != nil {
		return true, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	revoked := exists > 0
	if r.cache != nil {
		r.cache.Add(tokenID, revoked)
	}
	return revoked, nil
}

// ConsumeOnce atomically inserts a token id if absent. It returns true when
// this call created the entry (the caller won the single use) and false when
// the id was already present (a reuse signal). Concurrent presentations of
// the same id are linearized by Redis SETNX: exactly one wins. ConsumeOnce
// always goes to Redis; the local cache is never consulted for this decision.
func (r *Registry) ConsumeOnce(ctx context.Context, tokenID, reason string, ttl time.Duration) (bool, error) {
	if ttl < minEntryTTL {
		ttl = minEntryTTL
	}

	won, err := r.redis.SetNX(ctx, r.key(tokenID), reason, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Either way the id is revoked from this instant on.
	if r.cache != nil {
		r.cache.Add(tokenID, true)
	}
	return won, nil
}

// Reason returns the recorded revocation reason, or empty when the id is not
// revoked. Intended for introspection and audit tooling, not the hot path.
func (r *Registry) Reason(ctx context.Context, tokenID string) (string, error) {
	reason, err := r.redis.Get(ctx, r.key(tokenID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return reason, nil
}
