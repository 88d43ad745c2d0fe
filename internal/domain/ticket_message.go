package domain

import "time"

// MessageAuthorType indicates who authored a message.
type MessageAuthorType string

const (
	AuthorTypeUser   MessageAuthorType = "USER"
	AuthorTypeStaff  MessageAuthorType = "STAFF"
	AuthorTypeSystem MessageAuthorType = "SYSTEM"
)

// TicketMessageType differentiates between replies and notes.
type TicketMessageType string

const (
	MessageTypePublicReply  TicketMessageType = "PUBLIC_REPLY"
	MessageTypeInternalNote TicketMessageType = "INTERNAL_NOTE"
)

// TicketMessage captures communications in a ticket thread.
type TicketMessage struct {
	ID          string
	TicketID    string
	AuthorType  MessageAuthorType
	AuthorID    *string
	MessageType TicketMessageType
	Body        string
	CreatedAt   time.Time
}

// IsFromCustomer reports whether the message was written by the ticket's customer.
func (m *TicketMessage) IsFromCustomer(ticket *Ticket) bool {
	if m.AuthorType != AuthorTypeUser {
		return false
	}
	if ticket.CustomerID == nil || m.AuthorID == nil {
		return true
	}
	return *ticket.CustomerID == *m.AuthorID
}

// CountsAsFirstResponse reports whether the message satisfies the first-response milestone.
func (m *TicketMessage) CountsAsFirstResponse(ticket *Ticket) bool {
	return m.MessageType == MessageTypePublicReply && !m.IsFromCustomer(ticket)
}
