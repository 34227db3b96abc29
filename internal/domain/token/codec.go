package token

import (
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/Anvoria/authgate/internal/domain/keys"
)

// Decode parses credential, checks its signature against key and enforces the
// credential's own exp and nbf claims. It does not look at token_type or the
// absolute session lifetime.
func Decode(credential string, key *keys.SigningKey, now time.Time, leeway time.Duration) (claims *Claims, err error) {
	if !wellFormed(credential) {
		return nil, ErrMalformed
	}
	if key == nil {
		return nil, ErrSignature
	}

	defer func() {
		if r := recover(); r != nil {
			claims, err = nil, ErrSignature
		}
	}()

	tok, err := jwt.Parse(
		[]byte(credential),
		jwt.WithKey(key.Algorithm().JWA(), key.VerificationKey()),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, ErrSignature
	}

	if nbf, ok := tok.NotBefore(); ok && now.Add(leeway).Before(nbf) {
		return nil, ErrSignature
	}

	exp, ok := tok.Expiration()
	if !ok || now.After(exp.Add(leeway)) {
		return nil, ErrExpired
	}

	claims = &Claims{
		TokenType:     stringClaim(tok, ClaimTokenType),
		Role:          stringClaim(tok, ClaimRole),
		ActorID:       stringClaim(tok, ClaimActorID),
		TargetID:      stringClaim(tok, ClaimTargetID),
		HomeRole:      stringClaim(tok, ClaimHomeRole),
		EffectiveRole: stringClaim(tok, ClaimEffectiveRole),
		SessionID:     stringClaim(tok, ClaimSessionID),
		ExpiresAt:     &exp,
		KeyID:         key.ID(),
	}
	if sub, ok := tok.Subject(); ok {
		claims.SubjectID = sub
	}
	if iat, ok := tok.IssuedAt(); ok {
		claims.IssuedAt = &iat
	}

	return claims, nil
}

// wellFormed checks the compact JWS shape without touching any key material
func wellFormed(credential string) bool {
	parts := strings.Split(credential, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
		for i := 0; i < len(p); i++ {
			c := p[i]
			if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-' || c == '_') {
				return false
			}
		}
	}
	return true
}

// stringClaim returns a private string claim, or "" when absent or not a string
func stringClaim(tok jwt.Token, name string) string {
	var v any
	if tok.Get(name, &v) != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
