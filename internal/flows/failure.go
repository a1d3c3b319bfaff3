package flows

import (
	"errors"

	"github.com/mvassor/authkit/token"
)

// FailureKind classifies flow failures for root-level mapping to the public
// error taxonomy. Flows never construct user-facing errors themselves.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureMalformed
	FailureSignature
	FailureAlgorithm
	FailureExpired
	FailureWrongType
	FailureSubjectMismatch
	FailureRevoked
	FailureSessionExpired
	FailureReuse
	FailureStore
	FailureInternal
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureMalformed:
		return "malformed"
	case FailureSignature:
		return "signature_invalid"
	case FailureAlgorithm:
		return "unsupported_algorithm"
	case FailureExpired:
		return "expired"
	case FailureWrongType:
		return "wrong_type"
	case FailureSubjectMismatch:
		return "subject_mismatch"
	case FailureRevoked:
		return "revoked"
	case FailureSessionExpired:
		return "session_expired"
	case FailureReuse:
		return "reuse_detected"
	case FailureStore:
		return "store_unavailable"
	case FailureInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// classifyDecodeError maps codec decode errors onto failure kinds.
func classifyDecodeError(err error) FailureKind {
	switch {
	case errors.Is(err, token.ErrUnsupportedAlgorithm):
		return FailureAlgorithm
	case errors.Is(err, token.ErrMalformed):
		return FailureMalformed
	default:
		return FailureSignature
	}
}

// classifyValidateError maps claim validation errors onto failure kinds.
func classifyValidateError(err error) FailureKind {
	switch {
	case errors.Is(err, token.ErrWrongType):
		return FailureWrongType
	case errors.Is(err, token.ErrExpired), errors.Is(err, token.ErrClockSkew):
		return FailureExpired
	case errors.Is(err, token.ErrSubjectMismatch):
		return FailureSubjectMismatch
	default:
		return FailureMalformed
	}
}
