package audit

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/Anvoria/authgate/internal/utils"
)

// Handler serves the delegation audit listing
type Handler struct {
	auditService Service
}

// NewHandler creates a Handler over s
func NewHandler(s Service) *Handler {
	return &Handler{auditService: s}
}

// List returns recent delegation audit records.
// Query parameters: subject_id, actor_id, token_type, limit.
func (h *Handler) List(c *fiber.Ctx) error {
	filter := Filter{
		SubjectID: c.Query("subject_id"),
		ActorID:   c.Query("actor_id"),
		TokenType: c.Query("token_type"),
		Limit:     c.QueryInt("limit", DefaultLimit),
	}

	records, err := h.auditService.List(filter)
	if errors.Is(err, ErrInvalidFilter) {
		return utils.ErrorResponse(c, "invalid_filter", fiber.StatusBadRequest)
	}
	if err != nil {
		slog.Error("Failed to list delegation audits", "error", err)
		return utils.ErrorResponse(c, "internal_error", fiber.StatusInternalServerError)
	}

	return utils.SuccessResponse(c, fiber.Map{
		"records": records,
		"count":   len(records),
	}, "Delegation audits retrieved")
}
