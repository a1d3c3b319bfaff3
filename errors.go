package authkit

import (
	"errors"
	"fmt"
)

// ErrAuthenticationRequired is the single generic failure signal safe to
// expose at a service boundary. Every specific failure below wraps it, so
// handlers can collapse any engine error to the generic signal with one
// errors.Is check while logs and metrics keep the precise kind. Echoing the
// specific kind to an unauthenticated caller builds them an oracle; don't.
var ErrAuthenticationRequired = errors.New("authentication required")

var (
	// ErrTokenMalformed reports a credential that is not a structurally valid token.
	ErrTokenMalformed = fmt.Errorf("%w: malformed token", ErrAuthenticationRequired)
	// ErrSignatureInvalid reports a token whose signature does not verify.
	ErrSignatureInvalid = fmt.Errorf("%w: token signature invalid", ErrAuthenticationRequired)
	// ErrUnsupportedAlgorithm reports a token asserting a signing algorithm the codec is not pinned to.
	ErrUnsupportedAlgorithm = fmt.Errorf("%w: unsupported signing algorithm", ErrAuthenticationRequired)
	// ErrTokenExpired reports a token past its expiry.
	ErrTokenExpired = fmt.Errorf("%w: token expired", ErrAuthenticationRequired)
	// ErrWrongTokenType reports an access token used as a refresh token or vice versa.
	ErrWrongTokenType = fmt.Errorf("%w: wrong token type", ErrAuthenticationRequired)
	// ErrSubjectMismatch reports a token presented for a different subject than expected.
	ErrSubjectMismatch = fmt.Errorf("%w: subject mismatch", ErrAuthenticationRequired)
	// ErrTokenRevoked reports a token explicitly revoked before natural expiry.
	ErrTokenRevoked = fmt.Errorf("%w: token revoked", ErrAuthenticationRequired)
	// ErrSessionExpired reports a token whose owning session no longer exists.
	ErrSessionExpired = fmt.Errorf("%w: session expired", ErrAuthenticationRequired)
	// ErrReuseDetected reports a second presentation of a single-use refresh
	// token. By the time this error is returned the owning session has been
	// invalidated.
	ErrReuseDetected = fmt.Errorf("%w: refresh token reuse detected", ErrAuthenticationRequired)
	// ErrStoreUnavailable reports that the distributed store could not
	// confirm an answer; the engine fails secure and denies. This is the only
	// kind worth retrying, and only on read paths.
	ErrStoreUnavailable = fmt.Errorf("%w: auth store unavailable", ErrAuthenticationRequired)
)

// ErrEngineClosed reports use of an engine after Close.
var ErrEngineClosed = errors.New("engine closed")
