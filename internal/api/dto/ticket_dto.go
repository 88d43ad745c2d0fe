package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// TicketCreatedRequest is posted by the helpdesk when a ticket is opened.
type TicketCreatedRequest struct {
	Number     string     `json:"number"`
	Subject    string     `json:"subject"`
	CustomerID *string    `json:"customer_id"`
	TeamID     *string    `json:"team_id"`
	CategoryID *string    `json:"category_id"`
	TypeID     *string    `json:"type_id"`
	AssigneeID *string    `json:"assignee_id"`
	State      string     `json:"state"`
	Priority   string     `json:"priority"`
	Tags       []string   `json:"tags"`
	CreatedAt  *time.Time `json:"created_at"`
}

// StateChangedRequest is posted when a ticket changes state.
type StateChangedRequest struct {
	State     string                   `json:"state"`
	ActorID   *string                  `json:"actor_id"`
	ActorType domain.MessageAuthorType `json:"actor_type"`
	At        *time.Time               `json:"at"`
}

// MessageRequest is posted for every reply or note on a ticket.
type MessageRequest struct {
	MessageType domain.TicketMessageType `json:"message_type"`
	AuthorType  domain.MessageAuthorType `json:"author_type"`
	AuthorID    *string                  `json:"author_id"`
	Body        string                   `json:"body"`
	At          *time.Time               `json:"at"`
}

// TicketResponse is the ticket as this service currently sees it.
type TicketResponse struct {
	ID         string                `json:"id"`
	Number     string                `json:"number,omitempty"`
	Subject    string                `json:"subject"`
	CustomerID *string               `json:"customer_id"`
	TeamID     *string               `json:"team_id"`
	AssigneeID *string               `json:"assignee_id"`
	State      domain.TicketState    `json:"state"`
	Priority   domain.TicketPriority `json:"priority"`
	Tags       []string              `json:"tags"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// TicketMessageResponse represents a stored message.
type TicketMessageResponse struct {
	ID          string                   `json:"id"`
	TicketID    string                   `json:"ticket_id"`
	MessageType domain.TicketMessageType `json:"message_type"`
	AuthorType  domain.MessageAuthorType `json:"author_type"`
	AuthorID    *string                  `json:"author_id"`
	CreatedAt   time.Time                `json:"created_at"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return TicketResponse{
		ID:         t.ID,
		Number:     t.Number,
		Subject:    t.Subject,
		CustomerID: t.CustomerID,
		TeamID:     t.TeamID,
		AssigneeID: t.AssigneeID,
		State:      t.State,
		Priority:   t.Priority,
		Tags:       tags,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

// NewTicketMessageResponse maps a domain message.
func NewTicketMessageResponse(m *domain.TicketMessage) TicketMessageResponse {
	return TicketMessageResponse{
		ID:          m.ID,
		TicketID:    m.TicketID,
		MessageType: m.MessageType,
		AuthorType:  m.AuthorType,
		AuthorID:    m.AuthorID,
		CreatedAt:   m.CreatedAt,
	}
}
