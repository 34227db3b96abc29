package auth

import (
	"errors"

	"github.com/Anvoria/authgate/internal/domain/token"
)

// Reason is the closed set of rejection kinds reported by the verifier.
// Reasons are for logs and metrics; clients only ever see "unauthenticated".
type Reason string

const (
	ReasonMalformedCredential       Reason = "malformed_credential"
	ReasonInvalidSignature          Reason = "invalid_signature"
	ReasonCredentialExpired         Reason = "credential_expired"
	ReasonWrongTokenType            Reason = "wrong_token_type"
	ReasonMalformedDelegationClaims Reason = "malformed_delegation_claims"
	ReasonSessionTimeoutExceeded    Reason = "session_timeout_exceeded"
)

// Reasons lists every rejection kind
var Reasons = []Reason{
	ReasonMalformedCredential,
	ReasonInvalidSignature,
	ReasonCredentialExpired,
	ReasonWrongTokenType,
	ReasonMalformedDelegationClaims,
	ReasonSessionTimeoutExceeded,
}

// RejectionError is the only error type Verify returns
type RejectionError struct {
	Reason Reason
}

// Error returns the reason code only; it never includes credential material
func (e *RejectionError) Error() string {
	return string(e.Reason)
}

// Is matches any RejectionError with the same reason
func (e *RejectionError) Is(target error) bool {
	t, ok := target.(*RejectionError)
	return ok && t.Reason == e.Reason
}

var (
	ErrMalformedCredential       = &RejectionError{Reason: ReasonMalformedCredential}
	ErrInvalidSignature          = &RejectionError{Reason: ReasonInvalidSignature}
	ErrCredentialExpired         = &RejectionError{Reason: ReasonCredentialExpired}
	ErrWrongTokenType            = &RejectionError{Reason: ReasonWrongTokenType}
	ErrMalformedDelegationClaims = &RejectionError{Reason: ReasonMalformedDelegationClaims}
	ErrSessionTimeoutExceeded    = &RejectionError{Reason: ReasonSessionTimeoutExceeded}
)

// ReasonOf extracts the rejection reason from an error returned by Verify
func ReasonOf(err error) (Reason, bool) {
	var re *RejectionError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}

// reasonFor maps codec and classifier errors onto the rejection taxonomy.
// Anything unrecognized resolves to invalid_signature.
func reasonFor(err error) Reason {
	switch {
	case errors.Is(err, token.ErrMalformed), errors.Is(err, token.ErrMissingSubject):
		return ReasonMalformedCredential
	case errors.Is(err, token.ErrExpired):
		return ReasonCredentialExpired
	case errors.Is(err, token.ErrWrongType):
		return ReasonWrongTokenType
	case errors.Is(err, token.ErrDelegationClaims):
		return ReasonMalformedDelegationClaims
	default:
		return ReasonInvalidSignature
	}
}

func rejection(r Reason) *RejectionError {
	switch r {
	case ReasonMalformedCredential:
		return ErrMalformedCredential
	case ReasonCredentialExpired:
		return ErrCredentialExpired
	case ReasonWrongTokenType:
		return ErrWrongTokenType
	case ReasonMalformedDelegationClaims:
		return ErrMalformedDelegationClaims
	case ReasonSessionTimeoutExceeded:
		return ErrSessionTimeoutExceeded
	default:
		return ErrInvalidSignature
	}
}
