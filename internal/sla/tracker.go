package sla

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/calendar"
	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/events"
	"github.com/spec-kit/helpdesk-sla/internal/observability"
	"github.com/spec-kit/helpdesk-sla/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

// TrackerDependencies wires the tracker.
type TrackerDependencies struct {
	Tickets     repository.TicketRepository
	Policies    repository.SlaPolicyRepository
	Calendars   repository.CalendarRepository
	Statuses    repository.SlaStatusRepository
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Now         func() time.Time
	AtRiskRatio float64
}

// Tracker creates SLA statuses and records milestone completion.
type Tracker struct {
	deps *TrackerDependencies
}

// NewTracker constructs a Tracker.
func NewTracker(deps *TrackerDependencies) *Tracker {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.AtRiskRatio == 0 {
		deps.AtRiskRatio = DefaultAtRiskRatio
	}
	return &Tracker{deps: deps}
}

// CreateForTicket matches a policy and stores the ticket's SLA status with
// deadlines fixed at this moment. It returns nil when no policy applies or the
// ticket already has a status.
func (t *Tracker) CreateForTicket(ctx context.Context, ticket *domain.Ticket) (*domain.SlaStatus, error) {
	policies, err := t.deps.Policies.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	policy := Match(ticket, policies)
	if policy == nil {
		t.deps.Logger.Debug("no sla policy matched", zap.String("ticket_id", ticket.ID))
		return nil, nil
	}

	cal := t.calendarFor(ctx, policy)
	now := t.deps.Now()
	status := &domain.SlaStatus{
		TicketID:   ticket.ID,
		PolicyID:   policy.ID,
		PolicyName: policy.Name,
		StartedAt:  now,
	}
	for _, kind := range domain.MilestoneKinds() {
		deadline, err := cal.AddWorkingDuration(now, policy.Target(kind))
		if err != nil {
			return nil, fmt.Errorf("compute %s deadline: %w", kind, err)
		}
		status.Milestone(kind).Deadline = deadline
	}

	created, err := t.deps.Statuses.Create(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("store sla status: %w", err)
	}
	if !created {
		return nil, nil
	}
	t.deps.Metrics.SlaStatusCreated(policy.ID)
	t.deps.Logger.Info("sla status created",
		zap.String("ticket_id", ticket.ID),
		zap.String("policy_id", policy.ID),
		zap.Time("first_response_deadline", status.FirstResponse.Deadline),
		zap.Time("resolution_deadline", status.Resolution.Deadline),
	)
	return status, nil
}

// calendarFor falls back to 24/7 when the policy has no usable calendar.
func (t *Tracker) calendarFor(ctx context.Context, policy *domain.SlaPolicy) *calendar.Calendar {
	if policy.CalendarID == nil || *policy.CalendarID == "" {
		return calendar.AlwaysOpen()
	}
	logger := t.deps.Logger.With(zap.String("policy_id", policy.ID), zap.String("calendar_id", *policy.CalendarID))
	cfg, err := t.deps.Calendars.GetByID(ctx, *policy.CalendarID)
	if err != nil {
		logger.Warn("policy calendar unavailable; using 24/7", zap.Error(err))
		return calendar.AlwaysOpen()
	}
	cal, err := calendar.New(*cfg)
	if err != nil {
		logger.Warn("policy calendar invalid; using 24/7", zap.Error(err))
		return calendar.AlwaysOpen()
	}
	return cal
}

// RecordFirstResponse completes the first-response milestone if unset.
func (t *Tracker) RecordFirstResponse(ctx context.Context, ticketID string, at time.Time) (bool, error) {
	return t.complete(ctx, ticketID, domain.MilestoneFirstResponse, at)
}

// RecordResolution completes the resolution milestone if unset.
func (t *Tracker) RecordResolution(ctx context.Context, ticketID string, at time.Time) (bool, error) {
	return t.complete(ctx, ticketID, domain.MilestoneResolution, at)
}

func (t *Tracker) complete(ctx context.Context, ticketID string, kind domain.MilestoneKind, at time.Time) (bool, error) {
	done, err := t.deps.Statuses.CompleteMilestone(ctx, ticketID, kind, at)
	if err != nil {
		return false, fmt.Errorf("complete %s: %w", kind, err)
	}
	if done {
		t.deps.Metrics.MilestoneCompleted(string(kind))
		t.deps.Logger.Info("sla milestone completed",
			zap.String("ticket_id", ticketID),
			zap.String("milestone", string(kind)),
			zap.Time("at", at))
	}
	return done, nil
}

// View returns the ticket's SLA read model.
func (t *Tracker) View(ctx context.Context, ticketID string) (*View, error) {
	status, err := t.deps.Statuses.GetByTicket(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("sla status", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	view := NewView(status, t.deps.Now(), t.deps.AtRiskRatio)
	return &view, nil
}

// RegisterHandlers subscribes the tracker to ticket lifecycle events.
func (t *Tracker) RegisterHandlers(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketCreated, t.onCreated)
	dispatcher.Subscribe(events.EventTicketMessageAdded, t.onMessage)
	dispatcher.Subscribe(events.EventTicketStateChanged, t.onStateChanged)
}

func (t *Tracker) onCreated(ctx context.Context, event events.Event) error {
	ticket, err := t.deps.Tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		return fmt.Errorf("load ticket %s: %w", event.TicketID, err)
	}
	_, err = t.CreateForTicket(ctx, ticket)
	return err
}

func (t *Tracker) onMessage(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketMessageAddedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	if payload.MessageType != domain.MessageTypePublicReply {
		return nil
	}
	ticket, err := t.deps.Tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		return fmt.Errorf("load ticket %s: %w", event.TicketID, err)
	}
	msg := &domain.TicketMessage{
		ID:          payload.MessageID,
		TicketID:    event.TicketID,
		AuthorType:  payload.AuthorType,
		AuthorID:    payload.AuthorID,
		MessageType: payload.MessageType,
	}
	if !msg.CountsAsFirstResponse(ticket) {
		return nil
	}
	_, err = t.RecordFirstResponse(ctx, event.TicketID, event.Timestamp)
	return err
}

func (t *Tracker) onStateChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStateChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	if !payload.NewState.CompletesResolution() {
		return nil
	}
	_, err := t.RecordResolution(ctx, event.TicketID, event.Timestamp)
	return err
}
