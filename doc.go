// Package authkit provides a token-based authentication and session
// lifecycle engine: JWT access tokens, single-use rotating refresh tokens,
// and Redis-backed session and revocation state.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build]. Multiple engine instances may share one Redis deployment;
// the store is the single source of truth, so any instance can serve any
// request.
//
// # Architecture boundaries
//
// authkit is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (TokenPair, Principal, SessionInfo, MetricsSnapshot). Flow
// orchestration lives under internal/flows; the token, session, and
// revocation packages hold the storage and codec layers and can be used
// standalone.
//
// # Failure posture
//
// Every authentication failure returned by the engine wraps
// [ErrAuthenticationRequired], so boundary code can deny generically while
// tests and audit consumers still distinguish causes with errors.Is. Store
// unavailability is always a deny, never a silent allow.
package authkit
