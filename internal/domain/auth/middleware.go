package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Anvoria/authgate/internal/domain/token"
	"github.com/Anvoria/authgate/internal/utils"
)

const (
	// IdentityKey is the key used to store the verified identity in Fiber context
	IdentityKey = "identity"

	// AdminRole is the role allowed on key administration routes
	AdminRole = "admin"
)

// RequireToken verifies the bearer credential against the expected token type.
// Every failure yields the same 401 body; the reason only reaches logs and metrics.
func RequireToken(v *Verifier, expected token.Type) fiber.Handler {
	return func(c *fiber.Ctx) error {
		credential, ok := bearer(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return utils.Unauthenticated(c)
		}

		identity, err := v.Verify(credential, expected)
		if err != nil {
			return utils.Unauthenticated(c)
		}

		c.Locals(IdentityKey, identity)

		return c.Next()
	}
}

// RequireAdmin allows only non-delegated identities holding the admin role.
// It must run after RequireToken.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := GetIdentity(c)
		if identity == nil {
			return utils.Unauthenticated(c)
		}
		if identity.Delegated() || identity.EffectiveRoleName() != AdminRole {
			return utils.ErrorResponse(c, "forbidden", fiber.StatusForbidden)
		}
		return c.Next()
	}
}

// GetIdentity extracts the verified identity from Fiber context
func GetIdentity(c *fiber.Ctx) *VerifiedIdentity {
	identity, ok := c.Locals(IdentityKey).(*VerifiedIdentity)
	if !ok {
		return nil
	}
	return identity
}

func bearer(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	credential := strings.TrimSpace(parts[1])
	return credential, credential != ""
}
