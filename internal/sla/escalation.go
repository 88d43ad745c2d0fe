package sla

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/action"
	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/events"
)

// EscalatedTag is added to tickets escalated after a breach.
const EscalatedTag = "escalated"

// Breach describes one milestone that was just flagged.
type Breach struct {
	Kind       domain.MilestoneKind
	StatusID   string
	PolicyID   string
	PolicyName string
	Deadline   time.Time
	DetectedAt time.Time
}

// TriggerFirer runs the automation rules registered for an event.
type TriggerFirer interface {
	Fire(ctx context.Context, ticket *domain.Ticket, event domain.TriggerEvent) error
}

// Escalator reacts to breaches through the shared action applier.
type Escalator struct {
	applier    *action.Applier
	triggers   TriggerFirer
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewEscalator constructs an Escalator. triggers and dispatcher may be nil.
func NewEscalator(applier *action.Applier, triggers TriggerFirer, dispatcher events.Dispatcher, logger *zap.Logger) *Escalator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Escalator{applier: applier, triggers: triggers, dispatcher: dispatcher, logger: logger}
}

// BreachBundle builds the action bundle applied on breach: an internal note,
// a priority bump and tag when the policy escalates, and notifications to the
// policy's users.
func BreachBundle(ticket *domain.Ticket, policy *domain.SlaPolicy, breach Breach) domain.ActionBundle {
	bundle := domain.ActionBundle{
		Reply: &domain.Reply{
			Body:       fmt.Sprintf("SLA Breach: %s deadline exceeded. Policy: %s", breach.Kind.Label(), breach.PolicyName),
			IsInternal: true,
		},
	}
	if policy == nil {
		return bundle
	}
	if policy.EscalateOnBreach {
		raised := ticket.Priority.Raise()
		if raised != ticket.Priority {
			bundle.SetPriority = &raised
		}
		if !ticket.HasTag(EscalatedTag) {
			bundle.AddTags = []string{EscalatedTag}
		}
	}
	bundle.NotifyUserIDs = append([]string(nil), policy.NotifyUserIDs...)
	return bundle
}

// HandleBreach applies the breach bundle, announces the breach and fires
// sla_breach triggers against the updated ticket.
func (e *Escalator) HandleBreach(ctx context.Context, ticket *domain.Ticket, policy *domain.SlaPolicy, breach Breach) error {
	bundle := BreachBundle(ticket, policy, breach)
	origin := action.Origin{
		Kind:    action.OriginSlaBreach,
		Name:    breach.PolicyName,
		Summary: fmt.Sprintf("SLA %s Breached: %s", breach.Kind.Label(), ticket.Label()),
		Note:    fmt.Sprintf("Deadline %s passed without completion.", breach.Deadline.UTC().Format(time.RFC3339)),
	}
	result, err := e.applier.Apply(ctx, ticket, bundle, origin)
	if err != nil {
		return fmt.Errorf("apply breach bundle: %w", err)
	}

	if e.dispatcher != nil {
		event := events.New(events.EventSlaBreached, ticket.ID, events.SystemActor(origin.String()), breach.DetectedAt,
			events.SlaBreachedPayload{
				StatusID:   breach.StatusID,
				PolicyID:   breach.PolicyID,
				PolicyName: breach.PolicyName,
				Milestone:  breach.Kind,
				Deadline:   breach.Deadline,
			})
		if err := e.dispatcher.Publish(ctx, event); err != nil {
			e.logger.Warn("sla breach subscriber failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	if e.triggers != nil {
		if err := e.triggers.Fire(ctx, result.Ticket, domain.TriggerEventSlaBreach); err != nil {
			e.logger.Warn("sla breach triggers failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	return nil
}
