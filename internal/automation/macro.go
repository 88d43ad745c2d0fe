package automation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/action"
	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

// MacroDependencies wires the macro service.
type MacroDependencies struct {
	Macros  repository.MacroRepository
	Tickets repository.TicketRepository
	Applier *action.Applier
	Logger  *zap.Logger
}

// MacroService applies operator macros to selected tickets.
type MacroService struct {
	deps *MacroDependencies
}

// MacroOutcome is the per-ticket result of a macro run.
type MacroOutcome struct {
	TicketID string   `json:"ticket_id"`
	Applied  bool     `json:"applied"`
	Warnings []string `json:"warnings,omitempty"`
	Code     string   `json:"code,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// NewMacroService constructs a MacroService.
func NewMacroService(deps *MacroDependencies) *MacroService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &MacroService{deps: deps}
}

// Apply runs the macro on every ticket. A rejected or failing ticket does not
// stop the others.
func (s *MacroService) Apply(ctx context.Context, macroID string, ticketIDs []string) ([]MacroOutcome, error) {
	if len(ticketIDs) == 0 {
		return nil, apperrors.NewValidationError("ticket_ids required", nil)
	}
	macro, err := s.deps.Macros.GetByID(ctx, macroID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("macro", map[string]any{"macro_id": macroID})
		}
		return nil, apperrors.MapError(err)
	}

	origin := action.Origin{Kind: action.OriginMacro, Name: macro.Name}
	seen := make(map[string]struct{}, len(ticketIDs))
	outcomes := make([]MacroOutcome, 0, len(ticketIDs))
	for _, ticketID := range ticketIDs {
		if _, dup := seen[ticketID]; dup {
			continue
		}
		seen[ticketID] = struct{}{}

		outcome := MacroOutcome{TicketID: ticketID}
		if err := s.applyOne(ctx, macro, ticketID, origin, &outcome); err != nil {
			domainErr := apperrors.ToDomainError(err)
			outcome.Code = domainErr.Code
			outcome.Error = domainErr.Error()
			s.deps.Logger.Warn("macro not applied",
				zap.String("macro_id", macroID),
				zap.String("ticket_id", ticketID),
				zap.Error(err))
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (s *MacroService) applyOne(ctx context.Context, macro *domain.Macro, ticketID string, origin action.Origin, outcome *MacroOutcome) error {
	if !macro.Active {
		return apperrors.NewForbidden("macro inactive")
	}
	ticket, err := s.deps.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return err
	}
	if !macro.AllowsTeam(ticket.TeamID) {
		return apperrors.NewForbidden("macro not available for ticket team")
	}
	result, err := s.deps.Applier.Apply(ctx, ticket, macro.Actions, origin)
	if err != nil {
		return err
	}
	outcome.Applied = true
	for _, sideErr := range result.SideEffectErrors {
		outcome.Warnings = append(outcome.Warnings, fmt.Sprint(sideErr))
	}
	return nil
}
