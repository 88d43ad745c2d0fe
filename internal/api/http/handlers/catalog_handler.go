package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/service"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

// CatalogHandler manages calendars, policies, triggers, macros and teams.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// save decodes the body into a new T, takes the id from the path when
// present and stores it. POST answers 201, PUT 200.
func save[T any](c *fiber.Ctx, id func(*T) *string, store func(context.Context, *T) error) error {
	var item T
	if err := c.BodyParser(&item); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if pathID := c.Params("id"); pathID != "" {
		*id(&item) = pathID
	}
	if err := store(c.UserContext(), &item); err != nil {
		return err
	}
	status := http.StatusOK
	if c.Method() == fiber.MethodPost {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"data": item})
}

func list[T any](c *fiber.Ctx, load func(context.Context) ([]T, error)) error {
	items, err := load(c.UserContext())
	if err != nil {
		return err
	}
	if items == nil {
		items = []T{}
	}
	return c.JSON(fiber.Map{"data": items})
}

func remove(c *fiber.Ctx, del func(context.Context, string) error) error {
	if err := del(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListCalendars GET /calendars.
func (h *CatalogHandler) ListCalendars(c *fiber.Ctx) error {
	return list(c, h.catalog.ListCalendars)
}

// SaveCalendar POST /calendars, PUT /calendars/:id.
func (h *CatalogHandler) SaveCalendar(c *fiber.Ctx) error {
	return save(c, func(v *domain.BusinessCalendar) *string { return &v.ID }, h.catalog.SaveCalendar)
}

// DeleteCalendar DELETE /calendars/:id.
func (h *CatalogHandler) DeleteCalendar(c *fiber.Ctx) error {
	return remove(c, h.catalog.DeleteCalendar)
}

// ListPolicies GET /policies.
func (h *CatalogHandler) ListPolicies(c *fiber.Ctx) error {
	return list(c, h.catalog.ListPolicies)
}

// SavePolicy POST /policies, PUT /policies/:id.
func (h *CatalogHandler) SavePolicy(c *fiber.Ctx) error {
	return save(c, func(v *domain.SlaPolicy) *string { return &v.ID }, h.catalog.SavePolicy)
}

// DeletePolicy DELETE /policies/:id.
func (h *CatalogHandler) DeletePolicy(c *fiber.Ctx) error {
	return remove(c, h.catalog.DeletePolicy)
}

// ListTriggers GET /triggers.
func (h *CatalogHandler) ListTriggers(c *fiber.Ctx) error {
	return list(c, h.catalog.ListTriggers)
}

// SaveTrigger POST /triggers, PUT /triggers/:id.
func (h *CatalogHandler) SaveTrigger(c *fiber.Ctx) error {
	return save(c, func(v *domain.Trigger) *string { return &v.ID }, h.catalog.SaveTrigger)
}

// DeleteTrigger DELETE /triggers/:id.
func (h *CatalogHandler) DeleteTrigger(c *fiber.Ctx) error {
	return remove(c, h.catalog.DeleteTrigger)
}

// ListMacros GET /macros.
func (h *CatalogHandler) ListMacros(c *fiber.Ctx) error {
	return list(c, h.catalog.ListMacros)
}

// SaveMacro POST /macros, PUT /macros/:id.
func (h *CatalogHandler) SaveMacro(c *fiber.Ctx) error {
	return save(c, func(v *domain.Macro) *string { return &v.ID }, h.catalog.SaveMacro)
}

// DeleteMacro DELETE /macros/:id.
func (h *CatalogHandler) DeleteMacro(c *fiber.Ctx) error {
	return remove(c, h.catalog.DeleteMacro)
}

// ListTeams GET /teams.
func (h *CatalogHandler) ListTeams(c *fiber.Ctx) error {
	return list(c, h.catalog.ListTeams)
}

// SaveTeam POST /teams, PUT /teams/:id.
func (h *CatalogHandler) SaveTeam(c *fiber.Ctx) error {
	return save(c, func(v *domain.Team) *string { return &v.ID }, h.catalog.SaveTeam)
}
