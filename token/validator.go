package token

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrExpired reports a token past its expiry instant.
	ErrExpired = errors.New("token expired")
	// ErrWrongType reports a token presented for the other kind's operation.
	ErrWrongType = errors.New("wrong token type")
	// ErrSubjectMismatch reports a token whose subject differs from the expected one.
	ErrSubjectMismatch = errors.New("token subject mismatch")
	// ErrClockSkew reports an issued-at instant too far in the future.
	ErrClockSkew = errors.New("token clock skew exceeded")
)

// Validator performs the stateless claim checks that follow a successful
// decode: expiry, token-type tag, optional subject match, and an issued-at
// sanity bound. It holds no per-token state and is safe for concurrent use.
type Validator struct {
	// Leeway tolerates small clock drift between issuer and validator.
	Leeway time.Duration
	// MaxFutureIAT rejects tokens claiming to be issued further in the
	// future than replicas can plausibly drift.
	MaxFutureIAT time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

func (v *Validator) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// Validate checks claims against the expected token type and, when
// expectedSubject is non-empty, the expected subject. The type check runs
// first: a refresh token must never pass an access check and vice versa,
// regardless of its other claims.
func (v *Validator) Validate(claims *Claims, expectType Type, expectedSubject string) error {
	if claims.TokenType != expectType {
		return fmt.Errorf("%w: got %q, want %q", ErrWrongType, claims.TokenType, expectType)
	}

	now := v.now()
	if claims.ExpiresAt == nil {
		return ErrExpired
	}
	if now.After(claims.ExpiresAt.Time.Add(v.Leeway)) {
		return ErrExpired
	}

	if v.MaxFutureIAT > 0 && claims.IssuedAt != nil {
		if claims.IssuedAt.Time.After(now.Add(v.MaxFutureIAT)) {
			return ErrClockSkew
		}
	}

	if expectedSubject != "" && claims.SubjectID != expectedSubject {
		return ErrSubjectMismatch
	}

	return nil
}
