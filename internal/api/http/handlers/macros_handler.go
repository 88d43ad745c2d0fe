package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-sla/internal/api/dto"
	"github.com/spec-kit/helpdesk-sla/internal/automation"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

// MacrosHandler runs macros on behalf of agents.
type MacrosHandler struct {
	macros *automation.MacroService
}

// NewMacrosHandler constructs handler.
func NewMacrosHandler(macros *automation.MacroService) *MacrosHandler {
	return &MacrosHandler{macros: macros}
}

// Apply POST /macros/:id/apply. Per-ticket failures are reported in the
// body; the request itself succeeds unless the macro cannot run at all.
func (h *MacrosHandler) Apply(c *fiber.Ctx) error {
	var req dto.ApplyMacroRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	outcomes, err := h.macros.Apply(c.UserContext(), c.Params("id"), req.TicketIDs)
	if err != nil {
		return err
	}
	applied := 0
	for _, outcome := range outcomes {
		if outcome.Applied {
			applied++
		}
	}
	return c.JSON(fiber.Map{
		"data": outcomes,
		"meta": fiber.Map{"requested": len(outcomes), "applied": applied},
	})
}
