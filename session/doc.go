// Package session persists login sessions in Redis and enforces the
// per-subject concurrency cap. One hash per session carries the record under
// an absolute TTL; a per-subject index set backs listing and eviction. The
// only mutation after creation is the last-access stamp, written
// last-writer-wins, and invalidation is terminal and idempotent.
package session
