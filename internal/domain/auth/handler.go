package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Anvoria/authgate/internal/domain/keys"
	"github.com/Anvoria/authgate/internal/utils"
)

// Handler serves the session and key administration routes
type Handler struct {
	keyService KeyService
}

// NewHandler creates a Handler over s
func NewHandler(s KeyService) *Handler {
	return &Handler{keyService: s}
}

// RotateRequest names the key that becomes current
type RotateRequest struct {
	KID string `json:"kid"`
}

// Session returns the identity the credential was verified as
func (h *Handler) Session(c *fiber.Ctx) error {
	identity := GetIdentity(c)
	if identity == nil {
		return utils.Unauthenticated(c)
	}

	return utils.SuccessResponse(c, fiber.Map{
		"identity":       identity,
		"delegated":      identity.Delegated(),
		"effective_role": identity.EffectiveRoleName(),
	}, "Session verified")
}

// KeysStatus reports the current and previous key ids
func (h *Handler) KeysStatus(c *fiber.Ctx) error {
	return utils.SuccessResponse(c, h.keyService.Status(), "Key status")
}

// Rotate promotes a key from the keys directory to current
func (h *Handler) Rotate(c *fiber.Ctx) error {
	var req RotateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, "invalid_body", fiber.StatusBadRequest)
	}
	if req.KID == "" {
		return utils.ErrorResponse(c, "kid_required", fiber.StatusBadRequest)
	}

	status, err := h.keyService.Rotate(req.KID)
	if err != nil {
		return keyErrorResponse(c, err)
	}

	return utils.SuccessResponse(c, status, "Key rotated")
}

// RetirePrevious stops accepting credentials signed by the previous key
func (h *Handler) RetirePrevious(c *fiber.Ctx) error {
	status, err := h.keyService.RetirePrevious()
	if err != nil {
		return keyErrorResponse(c, err)
	}

	return utils.SuccessResponse(c, status, "Previous key retired")
}

// JWKS publishes the public halves of asymmetric verification keys
func JWKS(ks *keys.KeyStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(ks.JWKS())
	}
}

func keyErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, keys.ErrUnknownKey):
		return utils.ErrorResponse(c, "unknown_key", fiber.StatusNotFound)
	case errors.Is(err, keys.ErrNoPreviousKey):
		return utils.ErrorResponse(c, "no_previous_key", fiber.StatusConflict)
	case errors.Is(err, keys.ErrDuplicateKey):
		return utils.ErrorResponse(c, "key_already_loaded", fiber.StatusConflict)
	case errors.Is(err, keys.ErrAlgorithmMismatch):
		return utils.ErrorResponse(c, "algorithm_mismatch", fiber.StatusConflict)
	default:
		return utils.ErrorResponse(c, "key_operation_failed", fiber.StatusInternalServerError)
	}
}
