package token

import "errors"

var (
	// ErrMalformed is returned when the credential is not shaped like a compact JWS
	ErrMalformed = errors.New("malformed_credential")

	// ErrSignature is returned when the credential does not verify against the supplied key.
	// Undecodable segments, bad JSON and signature mismatches all collapse into this error.
	ErrSignature = errors.New("invalid_signature")

	// ErrExpired is returned when the credential's own exp claim has passed or is missing
	ErrExpired = errors.New("credential_expired")

	// ErrWrongType is returned when the credential is not of the expected kind
	ErrWrongType = errors.New("wrong_token_type")

	// ErrDelegationClaims is returned when masquerade or acting_as claims are inconsistent
	ErrDelegationClaims = errors.New("malformed_delegation_claims")

	// ErrMissingSubject is returned when a non-delegated credential has no subject
	ErrMissingSubject = errors.New("missing_subject")
)
