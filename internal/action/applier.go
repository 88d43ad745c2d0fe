// Package action applies action bundles to tickets. Macros, triggers, SLA
// escalation and auto-assignment all funnel through the same Applier.
package action

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/events"
	"github.com/spec-kit/helpdesk-sla/internal/observability"
	"github.com/spec-kit/helpdesk-sla/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

// OriginKind names what caused a bundle to be applied.
type OriginKind string

const (
	OriginMacro      OriginKind = "macro"
	OriginTrigger    OriginKind = "trigger"
	OriginSlaBreach  OriginKind = "sla_breach"
	OriginAssignment OriginKind = "assignment"
)

// Origin describes the caller of Apply. Summary and Note override the
// activity text scheduled for notified users.
type Origin struct {
	Kind    OriginKind
	Name    string
	Summary string
	Note    string
}

func (o Origin) String() string {
	if o.Name == "" {
		return string(o.Kind)
	}
	return string(o.Kind) + ":" + o.Name
}

// Result reports what Apply did.
type Result struct {
	Ticket      *domain.Ticket
	Mutated     bool
	MessageID   string
	ActivityIDs []string
	// SideEffectErrors holds reply and notification failures. They never
	// undo the committed mutation.
	SideEffectErrors []error
}

// Dependencies wires the applier.
type Dependencies struct {
	Tickets    repository.TicketRepository
	Messages   repository.TicketMessageRepository
	Activities repository.ActivityRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Now        func() time.Time
}

// Applier executes action bundles.
type Applier struct {
	deps *Dependencies
}

// NewApplier constructs an Applier.
func NewApplier(deps *Dependencies) *Applier {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Applier{deps: deps}
}

// Validate checks a bundle before it is stored or applied.
func Validate(bundle domain.ActionBundle) error {
	details := map[string]any{}
	if bundle.SetState != nil && !bundle.SetState.Valid() {
		details["set_state"] = "unknown state"
	}
	if bundle.SetPriority != nil && !bundle.SetPriority.Valid() {
		details["set_priority"] = "unknown priority"
	}
	if bundle.SetAssigneeID != nil && strings.TrimSpace(*bundle.SetAssigneeID) == "" {
		details["set_assignee_id"] = "must not be blank"
	}
	if bundle.Reply != nil && strings.TrimSpace(bundle.Reply.Body) == "" {
		details["reply"] = "body required"
	}
	if len(details) > 0 {
		return apperrors.NewConfigurationError("invalid action bundle", details)
	}
	return nil
}

// Apply commits the bundle's field changes atomically, then posts the reply,
// then schedules one activity per notified user, in that order. Only a failed
// mutation is returned as an error.
func (a *Applier) Apply(ctx context.Context, ticket *domain.Ticket, bundle domain.ActionBundle, origin Origin) (*Result, error) {
	ctx, span := observability.Tracer().Start(ctx, "action.Apply")
	defer span.End()
	span.SetAttributes(
		attribute.String("ticket.id", ticket.ID),
		attribute.String("action.origin", origin.String()),
	)

	if err := Validate(bundle); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logger := a.deps.Logger.With(zap.String("ticket_id", ticket.ID), zap.String("origin", origin.String()))
	result := &Result{Ticket: ticket}
	var before *domain.Ticket

	mutation := bundle.Mutation()
	if !mutation.IsEmpty() {
		author := repository.ChangeAuthor{Type: domain.AuthorTypeSystem, Source: origin.String()}
		prev, next, err := a.deps.Tickets.ApplyMutation(ctx, ticket.ID, mutation, author)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "mutation failed")
			return nil, fmt.Errorf("apply mutation: %w", err)
		}
		before, result.Ticket, result.Mutated = prev, next, true
	}
	a.deps.Metrics.ActionApplied(string(origin.Kind))

	var published []events.Event
	actor := events.SystemActor(origin.String())
	now := a.deps.Now()

	if before != nil && before.State != result.Ticket.State {
		published = append(published, events.New(events.EventTicketStateChanged, ticket.ID, actor, now,
			events.TicketStateChangedPayload{OldState: before.State, NewState: result.Ticket.State}))
	}

	if bundle.Reply != nil {
		msg := &domain.TicketMessage{
			TicketID:    ticket.ID,
			AuthorType:  domain.AuthorTypeSystem,
			MessageType: domain.MessageTypePublicReply,
			Body:        bundle.Reply.Body,
		}
		if bundle.Reply.IsInternal {
			msg.MessageType = domain.MessageTypeInternalNote
		}
		if err := a.deps.Messages.Create(ctx, msg); err != nil {
			a.sideEffectFailed(logger, result, origin, "reply", err)
		} else {
			result.MessageID = msg.ID
			published = append(published, events.New(events.EventTicketMessageAdded, ticket.ID, actor, now,
				events.TicketMessageAddedPayload{
					MessageID:   msg.ID,
					MessageType: msg.MessageType,
					AuthorType:  msg.AuthorType,
				}))
		}
	}

	summary := origin.Summary
	if summary == "" {
		summary = fmt.Sprintf("%s: %s", origin.String(), result.Ticket.Label())
	}
	for _, userID := range uniqueUsers(bundle.NotifyUserIDs) {
		activity := &domain.Activity{
			TicketID: ticket.ID,
			UserID:   userID,
			Summary:  summary,
			Note:     origin.Note,
			DueAt:    now,
		}
		if err := a.deps.Activities.Create(ctx, activity); err != nil {
			a.sideEffectFailed(logger.With(zap.String("user_id", userID)), result, origin, "notify", err)
			continue
		}
		result.ActivityIDs = append(result.ActivityIDs, activity.ID)
		published = append(published, events.New(events.EventActivityScheduled, ticket.ID, actor, now,
			events.ActivityScheduledPayload{ActivityID: activity.ID, UserID: userID, Summary: summary}))
	}

	for _, event := range published {
		if a.deps.Dispatcher == nil {
			break
		}
		if err := a.deps.Dispatcher.Publish(ctx, event); err != nil {
			logger.Warn("event subscriber failed", zap.String("event", string(event.Type)), zap.Error(err))
		}
	}

	if len(result.SideEffectErrors) > 0 {
		span.SetStatus(codes.Error, "side effects failed")
	}
	return result, nil
}

func (a *Applier) sideEffectFailed(logger *zap.Logger, result *Result, origin Origin, step string, err error) {
	logger.Error("action side effect failed; ticket stays mutated", zap.String("step", step), zap.Error(err))
	a.deps.Metrics.SideEffectFailed(string(origin.Kind), step)
	result.SideEffectErrors = append(result.SideEffectErrors, fmt.Errorf("%s: %w", step, err))
}

func uniqueUsers(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
