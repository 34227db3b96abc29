package auth

import (
	"time"

	"github.com/Anvoria/authgate/internal/domain/token"
)

// VerifiedIdentity is the result of a successful verification.
// Downstream authorization decisions are made from it, never from raw claims.
type VerifiedIdentity struct {
	SubjectID string     `json:"subject_id"`
	Role      string     `json:"role,omitempty"`
	TokenType token.Type `json:"token_type"`
	SessionID string     `json:"session_id,omitempty"`

	// Masquerade only. SubjectID equals TargetID.
	ActorID  string `json:"actor_id,omitempty"`
	TargetID string `json:"target_id,omitempty"`

	// Acting-as only
	HomeRole      string `json:"home_role,omitempty"`
	EffectiveRole string `json:"effective_role,omitempty"`

	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	KeyID     string    `json:"-"`
}

func newIdentity(c *token.Claims, t token.Type) *VerifiedIdentity {
	id := &VerifiedIdentity{
		SubjectID: c.SubjectID,
		Role:      c.Role,
		TokenType: t,
		SessionID: c.SessionID,
		KeyID:     c.KeyID,
	}
	if c.IssuedAt != nil {
		id.IssuedAt = *c.IssuedAt
	}
	if c.ExpiresAt != nil {
		id.ExpiresAt = *c.ExpiresAt
	}

	switch t {
	case token.TypeMasquerade:
		id.ActorID = c.ActorID
		id.TargetID = c.TargetID
	case token.TypeActingAs:
		id.HomeRole = c.HomeRole
		id.EffectiveRole = c.EffectiveRole
	}
	return id
}

// Delegated reports whether someone other than the subject, or another role
// than the subject's own, is behind this identity. An acting_as credential
// that re-asserts the home role is not delegated.
func (i *VerifiedIdentity) Delegated() bool {
	switch i.TokenType {
	case token.TypeMasquerade:
		return true
	case token.TypeActingAs:
		return i.HomeRole != i.EffectiveRole
	default:
		return false
	}
}

// EffectiveRoleName returns the role authorization should be evaluated against
func (i *VerifiedIdentity) EffectiveRoleName() string {
	if i.TokenType == token.TypeActingAs {
		return i.EffectiveRole
	}
	return i.Role
}
