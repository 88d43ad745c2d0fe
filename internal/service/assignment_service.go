package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/action"
	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/events"
	"github.com/spec-kit/helpdesk-sla/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

// AssignmentService handles automatic ticket assignment.
type AssignmentService struct {
	tickets repository.TicketRepository
	teams   repository.TeamRepository
	applier *action.Applier
	logger  *zap.Logger
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	TicketRepo repository.TicketRepository
	TeamRepo   repository.TeamRepository
	Applier    *action.Applier
	Logger     *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		tickets: deps.TicketRepo,
		teams:   deps.TeamRepo,
		applier: deps.Applier,
		logger:  logger,
	}
}

// RegisterHandlers assigns new tickets as they are created.
func (s *AssignmentService) RegisterHandlers(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketCreated, func(ctx context.Context, event events.Event) error {
		_, err := s.AutoAssignTicket(ctx, event.TicketID)
		return err
	})
}

// NextAssignee picks the team member after the last one assigned. Teams
// without members fall back to the default assignee, then the leader.
func (s *AssignmentService) NextAssignee(ctx context.Context, team *domain.Team) (*string, error) {
	if len(team.MemberIDs) == 0 {
		return team.Fallback(), nil
	}
	index, err := s.teams.AdvanceRoundRobin(ctx, team.ID)
	if err != nil {
		return nil, fmt.Errorf("advance round robin: %w", err)
	}
	member := team.MemberIDs[index%int64(len(team.MemberIDs))]
	return &member, nil
}

// AutoAssignTicket assigns an unassigned ticket whose team uses round robin.
// Tickets that are already assigned or belong to manual teams are returned
// unchanged.
func (s *AssignmentService) AutoAssignTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.AssigneeID != nil || ticket.TeamID == nil {
		return ticket, nil
	}
	team, err := s.teams.GetByID(ctx, *ticket.TeamID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.logger.Warn("ticket team not found; skipping assignment",
				zap.String("ticket_id", ticket.ID), zap.String("team_id", *ticket.TeamID))
			return ticket, nil
		}
		return nil, apperrors.MapError(err)
	}
	if !team.IsActive || team.AutoAssignMode != domain.AutoAssignRoundRobin {
		return ticket, nil
	}

	assignee, err := s.NextAssignee(ctx, team)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if assignee == nil {
		s.logger.Warn("no eligible assignee for team", zap.String("team_id", team.ID))
		return ticket, nil
	}

	result, err := s.applier.Apply(ctx, ticket, domain.ActionBundle{SetAssigneeID: assignee}, action.Origin{
		Kind: action.OriginAssignment,
		Name: team.Name,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("ticket auto-assigned",
		zap.String("ticket_id", ticket.ID),
		zap.String("team_id", team.ID),
		zap.String("assignee_id", *assignee))
	return result.Ticket, nil
}
