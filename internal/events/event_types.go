package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketStateChanged EventType = "ticket_state_changed"
	EventTicketMessageAdded EventType = "ticket_message_added"
	EventActivityScheduled  EventType = "activity_scheduled"
	EventSlaBreached        EventType = "sla_breached"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type domain.MessageAuthorType `json:"type"`
	ID   *string                  `json:"id,omitempty"`
	// Source names the automation that acted, for system actors.
	Source string `json:"source,omitempty"`
}

// IsSystem reports whether the event was caused by automation.
func (a Actor) IsSystem() bool {
	return a.Type == domain.AuthorTypeSystem
}

// SystemActor returns the actor used for automated changes.
func SystemActor(source string) Actor {
	return Actor{Type: domain.AuthorTypeSystem, Source: source}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// New builds an event with a fresh identifier.
func New(eventType EventType, ticketID string, actor Actor, at time.Time, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: at.UTC(),
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TeamID   *string               `json:"team_id,omitempty"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketStateChangedPayload payload.
type TicketStateChangedPayload struct {
	OldState domain.TicketState `json:"old_state"`
	NewState domain.TicketState `json:"new_state"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID   string                   `json:"message_id"`
	MessageType domain.TicketMessageType `json:"message_type"`
	AuthorType  domain.MessageAuthorType `json:"author_type"`
	AuthorID    *string                  `json:"author_id,omitempty"`
}

// ActivityScheduledPayload payload.
type ActivityScheduledPayload struct {
	ActivityID string `json:"activity_id"`
	UserID     string `json:"user_id"`
	Summary    string `json:"summary"`
}

// SlaBreachedPayload payload.
type SlaBreachedPayload struct {
	StatusID   string               `json:"status_id"`
	PolicyID   string               `json:"policy_id"`
	PolicyName string               `json:"policy_name"`
	Milestone  domain.MilestoneKind `json:"milestone"`
	Deadline   time.Time            `json:"deadline"`
}
