package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-sla/internal/api/dto"
	"github.com/spec-kit/helpdesk-sla/internal/sla"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

// BreachScanner runs one breach scan.
type BreachScanner interface {
	Scan(ctx context.Context, now time.Time) (sla.ScanReport, error)
}

// SlaHandler exposes SLA state and on-demand scans.
type SlaHandler struct {
	tracker *sla.Tracker
	scanner BreachScanner
	now     func() time.Time
}

// NewSlaHandler constructs handler.
func NewSlaHandler(tracker *sla.Tracker, scanner BreachScanner) *SlaHandler {
	return &SlaHandler{tracker: tracker, scanner: scanner, now: time.Now}
}

// GetTicketSla GET /tickets/:id/sla.
func (h *SlaHandler) GetTicketSla(c *fiber.Ctx) error {
	view, err := h.tracker.View(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": view})
}

// Scan POST /sla/scan. The body is optional.
func (h *SlaHandler) Scan(c *fiber.Ctx) error {
	var req dto.ScanRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	now := h.now()
	if req.Now != nil {
		now = *req.Now
	}
	report, err := h.scanner.Scan(c.UserContext(), now)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report, "scanned_at": now})
}
