// Package automation evaluates event triggers and applies operator macros.
package automation

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/action"
	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/events"
	"github.com/spec-kit/helpdesk-sla/internal/observability"
	"github.com/spec-kit/helpdesk-sla/internal/predicate"
	"github.com/spec-kit/helpdesk-sla/internal/repository"
)

// EngineDependencies wires the trigger engine.
type EngineDependencies struct {
	Triggers repository.TriggerRepository
	Tickets  repository.TicketRepository
	Applier  *action.Applier
	Logger   *zap.Logger
	Metrics  *observability.Metrics
}

// Engine runs the active triggers of an event against a ticket.
type Engine struct {
	deps *EngineDependencies
}

// NewEngine constructs an Engine.
func NewEngine(deps *EngineDependencies) *Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Engine{deps: deps}
}

// Evaluate reports whether trigger matches ticket. Inactive triggers never
// match and an empty condition always does. A condition that fails to
// evaluate is logged and treated as a non-match.
func (e *Engine) Evaluate(trigger *domain.Trigger, ticket *domain.Ticket) bool {
	event := string(trigger.Event)
	if !trigger.Active {
		e.deps.Metrics.TriggerEvaluated(event, "inactive")
		return false
	}
	if trigger.Condition.IsEmpty() {
		e.deps.Metrics.TriggerEvaluated(event, "matched")
		return true
	}
	matched, err := predicate.Eval(trigger.Condition, domain.TicketSchema, ticket)
	if err != nil {
		e.deps.Metrics.TriggerEvaluated(event, "error")
		e.deps.Logger.Warn("trigger condition failed to evaluate; skipping",
			zap.String("trigger_id", trigger.ID),
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
		return false
	}
	if matched {
		e.deps.Metrics.TriggerEvaluated(event, "matched")
	} else {
		e.deps.Metrics.TriggerEvaluated(event, "unmatched")
	}
	return matched
}

// Fire evaluates the event's active triggers in sequence order. Each trigger
// sees the ticket as left by the ones before it. A failing trigger does not
// stop the rest; their errors are joined.
func (e *Engine) Fire(ctx context.Context, ticket *domain.Ticket, event domain.TriggerEvent) error {
	ctx, span := observability.Tracer().Start(ctx, "automation.Fire")
	defer span.End()
	span.SetAttributes(
		attribute.String("ticket.id", ticket.ID),
		attribute.String("trigger.event", string(event)),
	)

	triggers, err := e.deps.Triggers.ListActiveByEvent(ctx, event)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("list %s triggers: %w", event, err)
	}

	current := ticket
	var errs []error
	for i := range triggers {
		trigger := &triggers[i]
		if !e.Evaluate(trigger, current) {
			continue
		}
		result, err := e.deps.Applier.Apply(ctx, current, trigger.Actions, action.Origin{
			Kind: action.OriginTrigger,
			Name: trigger.Name,
		})
		if err != nil {
			e.deps.Logger.Error("trigger actions failed",
				zap.String("trigger_id", trigger.ID),
				zap.String("ticket_id", ticket.ID),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("trigger %s: %w", trigger.ID, err))
			continue
		}
		e.deps.Logger.Info("trigger applied",
			zap.String("trigger_id", trigger.ID),
			zap.String("ticket_id", ticket.ID),
			zap.String("event", string(event)))
		current = result.Ticket
	}
	return errors.Join(errs...)
}

// RegisterHandlers maps ticket events onto trigger events. State changes made
// by automation do not fire state_change triggers, so rules cannot chain
// into loops.
func (e *Engine) RegisterHandlers(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketCreated, e.onCreated)
	dispatcher.Subscribe(events.EventTicketStateChanged, e.onStateChanged)
	dispatcher.Subscribe(events.EventTicketMessageAdded, e.onMessage)
}

func (e *Engine) onCreated(ctx context.Context, event events.Event) error {
	return e.fireFor(ctx, event.TicketID, domain.TriggerEventCreate)
}

func (e *Engine) onStateChanged(ctx context.Context, event events.Event) error {
	if event.Actor.IsSystem() {
		return nil
	}
	return e.fireFor(ctx, event.TicketID, domain.TriggerEventStateChange)
}

func (e *Engine) onMessage(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketMessageAddedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	if payload.MessageType != domain.MessageTypePublicReply {
		return nil
	}
	ticket, err := e.deps.Tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		return fmt.Errorf("load ticket %s: %w", event.TicketID, err)
	}
	msg := domain.TicketMessage{AuthorType: payload.AuthorType, AuthorID: payload.AuthorID}
	if !msg.IsFromCustomer(ticket) {
		return nil
	}
	return e.Fire(ctx, ticket, domain.TriggerEventCustomerReply)
}

func (e *Engine) fireFor(ctx context.Context, ticketID string, event domain.TriggerEvent) error {
	ticket, err := e.deps.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return fmt.Errorf("load ticket %s: %w", ticketID, err)
	}
	return e.Fire(ctx, ticket, event)
}
