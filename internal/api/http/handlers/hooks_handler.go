package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-sla/internal/api/dto"
	"github.com/spec-kit/helpdesk-sla/internal/service"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

// HooksHandler receives ticket lifecycle notifications from the helpdesk.
type HooksHandler struct {
	hooks *service.HookService
}

// NewHooksHandler constructs handler.
func NewHooksHandler(hooks *service.HookService) *HooksHandler {
	return &HooksHandler{hooks: hooks}
}

// TicketCreated POST /hooks/tickets/:id/created.
func (h *HooksHandler) TicketCreated(c *fiber.Ctx) error {
	var req dto.TicketCreatedRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.hooks.TicketCreated(c.UserContext(), service.TicketCreatedInput{
		ID:         c.Params("id"),
		Number:     req.Number,
		Subject:    req.Subject,
		CustomerID: req.CustomerID,
		TeamID:     req.TeamID,
		CategoryID: req.CategoryID,
		TypeID:     req.TypeID,
		AssigneeID: req.AssigneeID,
		State:      req.State,
		Priority:   req.Priority,
		Tags:       req.Tags,
		CreatedAt:  req.CreatedAt,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// StateChanged POST /hooks/tickets/:id/state-changed.
func (h *HooksHandler) StateChanged(c *fiber.Ctx) error {
	var req dto.StateChangedRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.hooks.StateChanged(c.UserContext(), c.Params("id"), service.StateChangedInput{
		State:     req.State,
		ActorID:   req.ActorID,
		ActorType: req.ActorType,
		At:        req.At,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// MessageAdded POST /hooks/tickets/:id/messages.
func (h *HooksHandler) MessageAdded(c *fiber.Ctx) error {
	var req dto.MessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	msg, err := h.hooks.MessageAdded(c.UserContext(), c.Params("id"), service.MessageInput{
		MessageType: req.MessageType,
		AuthorType:  req.AuthorType,
		AuthorID:    req.AuthorID,
		Body:        req.Body,
		At:          req.At,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketMessageResponse(msg)})
}
