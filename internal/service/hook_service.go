package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/events"
	"github.com/spec-kit/helpdesk-sla/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

// HookService records ticket writes reported by the helpdesk and publishes
// the matching domain events.
type HookService struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// HookDependencies bundles repositories for hook intake.
type HookDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.TicketMessageRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Now         func() time.Time
}

// NewHookService creates the service.
func NewHookService(deps HookDependencies) *HookService {
	s := &HookService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// TicketCreatedInput describes a ticket opened in the helpdesk.
type TicketCreatedInput struct {
	ID         string
	Number     string
	Subject    string
	CustomerID *string
	TeamID     *string
	CategoryID *string
	TypeID     *string
	AssigneeID *string
	State      string
	Priority   string
	Tags       []string
	CreatedAt  *time.Time
}

// StateChangedInput describes a state transition made in the helpdesk.
type StateChangedInput struct {
	State   string
	ActorID *string
	// ActorType defaults to STAFF.
	ActorType domain.MessageAuthorType
	At        *time.Time
}

// MessageInput describes a message posted on a ticket.
type MessageInput struct {
	MessageType domain.TicketMessageType
	AuthorType  domain.MessageAuthorType
	AuthorID    *string
	Body        string
	At          *time.Time
}

// TicketCreated stores the ticket and starts its SLA, assignment and create
// triggers.
func (s *HookService) TicketCreated(ctx context.Context, input TicketCreatedInput) (*domain.Ticket, error) {
	state := domain.TicketStateNew
	if input.State != "" {
		parsed, ok := domain.ParseState(input.State)
		if !ok {
			return nil, apperrors.NewValidationError("invalid state", map[string]any{"state": input.State})
		}
		state = parsed
	}
	priority := domain.TicketPriorityNormal
	if input.Priority != "" {
		parsed, ok := domain.ParsePriority(input.Priority)
		if !ok {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
		}
		priority = parsed
	}
	if strings.TrimSpace(input.Subject) == "" {
		return nil, apperrors.NewValidationError("subject required", nil)
	}
	if input.ID != "" {
		if _, err := s.tickets.GetByID(ctx, input.ID); err == nil {
			return nil, apperrors.NewConflict("ticket already registered", map[string]any{"ticket_id": input.ID})
		} else if !apperrors.IsNotFound(err) {
			return nil, apperrors.MapError(err)
		}
	}

	ticket := &domain.Ticket{
		ID:         input.ID,
		Number:     input.Number,
		Subject:    strings.TrimSpace(input.Subject),
		CustomerID: input.CustomerID,
		TeamID:     input.TeamID,
		CategoryID: input.CategoryID,
		TypeID:     input.TypeID,
		AssigneeID: input.AssigneeID,
		State:      state,
		Priority:   priority,
		Tags:       domain.MergeTags(nil, input.Tags, nil),
	}
	if input.CreatedAt != nil {
		ticket.CreatedAt = *input.CreatedAt
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	actor := events.Actor{Type: domain.AuthorTypeUser, ID: ticket.CustomerID}
	s.publish(ctx, events.New(events.EventTicketCreated, ticket.ID, actor, s.now(),
		events.TicketCreatedPayload{TeamID: ticket.TeamID, Priority: ticket.Priority}))
	return s.reload(ctx, ticket.ID)
}

// StateChanged mirrors a state change and publishes it when the state moved.
func (s *HookService) StateChanged(ctx context.Context, ticketID string, input StateChangedInput) (*domain.Ticket, error) {
	state, ok := domain.ParseState(input.State)
	if !ok {
		return nil, apperrors.NewValidationError("invalid state", map[string]any{"state": input.State})
	}
	actorType := input.ActorType
	if actorType == "" {
		actorType = domain.AuthorTypeStaff
	}
	before, after, err := s.tickets.ApplyMutation(ctx, ticketID, domain.TicketMutation{State: &state},
		repository.ChangeAuthor{Type: actorType, ID: input.ActorID, Source: "hook"})
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if before.State == after.State {
		return after, nil
	}

	at := s.now()
	if input.At != nil {
		at = *input.At
	}
	s.publish(ctx, events.New(events.EventTicketStateChanged, ticketID, events.Actor{Type: actorType, ID: input.ActorID}, at,
		events.TicketStateChangedPayload{OldState: before.State, NewState: after.State}))
	return s.reload(ctx, ticketID)
}

// MessageAdded records a thread message and publishes it.
func (s *HookService) MessageAdded(ctx context.Context, ticketID string, input MessageInput) (*domain.TicketMessage, error) {
	details := map[string]any{}
	if input.MessageType != domain.MessageTypePublicReply && input.MessageType != domain.MessageTypeInternalNote {
		details["message_type"] = "must be PUBLIC_REPLY or INTERNAL_NOTE"
	}
	switch input.AuthorType {
	case domain.AuthorTypeUser, domain.AuthorTypeStaff, domain.AuthorTypeSystem:
	default:
		details["author_type"] = "must be USER, STAFF or SYSTEM"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid message", details)
	}

	msg := &domain.TicketMessage{
		TicketID:    ticketID,
		AuthorType:  input.AuthorType,
		AuthorID:    input.AuthorID,
		MessageType: input.MessageType,
		Body:        input.Body,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	at := msg.CreatedAt
	if input.At != nil {
		at = *input.At
	}
	s.publish(ctx, events.New(events.EventTicketMessageAdded, ticketID, events.Actor{Type: msg.AuthorType, ID: msg.AuthorID}, at,
		events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			MessageType: msg.MessageType,
			AuthorType:  msg.AuthorType,
			AuthorID:    msg.AuthorID,
		}))
	return msg, nil
}

// publish never fails the hook: subscriber errors are logged.
func (s *HookService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Error("event subscribers failed",
			zap.String("ticket_id", event.TicketID),
			zap.String("event", string(event.Type)),
			zap.Error(err))
	}
}

func (s *HookService) reload(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}
