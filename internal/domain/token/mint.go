package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Anvoria/authgate/internal/domain/keys"
)

// DefaultMintTTL is the lifetime of minted credentials when none is requested
const DefaultMintTTL = 15 * time.Minute

// MintRequest describes a development credential.
// Empty string fields are left out of the payload.
type MintRequest struct {
	Subject       string
	Type          Type
	Role          string
	ActorID       string
	TargetID      string
	HomeRole      string
	EffectiveRole string
	SessionID     string

	// IssuedAt defaults to now
	IssuedAt time.Time
	// TTL is added to IssuedAt to produce exp; defaults to DefaultMintTTL
	TTL time.Duration

	OmitIssuedAt  bool
	OmitExpiresAt bool
}

// Mint signs a credential with key. It exists for local tooling and tests;
// production credentials are issued by the identity provider.
func Mint(key *keys.SigningKey, req MintRequest, now time.Time) (string, error) {
	if key == nil || !key.CanSign() {
		return "", errors.New("signing key with private material is required")
	}

	iat := req.IssuedAt
	if iat.IsZero() {
		iat = now
	}
	ttl := req.TTL
	if ttl == 0 {
		ttl = DefaultMintTTL
	}

	claims := jwt.MapClaims{}
	if !req.OmitIssuedAt {
		claims[ClaimIssuedAt] = iat.Unix()
	}
	if !req.OmitExpiresAt {
		claims[ClaimExpiration] = iat.Add(ttl).Unix()
	}
	for name, value := range map[string]string{
		ClaimSubject:       req.Subject,
		ClaimTokenType:     string(req.Type),
		ClaimRole:          req.Role,
		ClaimActorID:       req.ActorID,
		ClaimTargetID:      req.TargetID,
		ClaimHomeRole:      req.HomeRole,
		ClaimEffectiveRole: req.EffectiveRole,
		ClaimSessionID:     req.SessionID,
	} {
		if value != "" {
			claims[name] = value
		}
	}

	var method jwt.SigningMethod = jwt.SigningMethodHS256
	if key.Algorithm() == keys.RS256 {
		method = jwt.SigningMethodRS256
	}

	tk := jwt.NewWithClaims(method, claims)
	tk.Header["kid"] = key.ID()
	return tk.SignedString(key.SigningMaterial())
}
