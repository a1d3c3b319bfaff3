// Package revocation tracks dead token ids in Redis with per-entry TTLs.
// The registry is the sole source of truth; the optional in-process cache is
// read-through with staleness bounded at one second and is bypassed entirely
// by ConsumeOnce, the primitive that makes refresh tokens single-use.
package revocation
