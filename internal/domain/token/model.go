package token

import (
	"time"
)

// Type is the kind of credential a claim set represents
type Type string

const (
	TypeAccess     Type = "access"
	TypeRefresh    Type = "refresh"
	TypeMasquerade Type = "masquerade"
	TypeActingAs   Type = "acting_as"
)

// Types lists every credential kind the verifier understands
var Types = []Type{TypeAccess, TypeRefresh, TypeMasquerade, TypeActingAs}

// ParseType maps a claim or configuration value onto a known Type
func ParseType(s string) (Type, bool) {
	for _, t := range Types {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// String returns the claim value of the type
func (t Type) String() string { return string(t) }

// Delegated reports whether the type carries delegation claims
func (t Type) Delegated() bool {
	return t == TypeMasquerade || t == TypeActingAs
}

// Claim names carried in credential payloads
const (
	ClaimSubject       = "sub"
	ClaimIssuedAt      = "iat"
	ClaimExpiration    = "exp"
	ClaimNotBefore     = "nbf"
	ClaimTokenType     = "token_type"
	ClaimRole          = "role"
	ClaimActorID       = "actor_id"
	ClaimTargetID      = "target_id"
	ClaimHomeRole      = "home_role"
	ClaimEffectiveRole = "effective_role"
	ClaimSessionID     = "session_id"
)

// Claims is the decoded payload of a credential whose signature has been checked.
// Optional timestamps are pointers so that absence stays distinguishable from zero.
type Claims struct {
	SubjectID     string
	IssuedAt      *time.Time
	ExpiresAt     *time.Time
	TokenType     string
	Role          string
	ActorID       string
	TargetID      string
	HomeRole      string
	EffectiveRole string
	SessionID     string

	// KeyID is the ID of the store key that verified the signature
	KeyID string
}

// Type returns the parsed token type and whether it is a known kind
func (c *Claims) Type() (Type, bool) {
	return ParseType(c.TokenType)
}
