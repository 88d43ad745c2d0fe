package domain

import "time"

// Activity is a follow-up task scheduled for a specific user on a ticket.
type Activity struct {
	ID        string
	TicketID  string
	UserID    string
	Summary   string
	Note      string
	DueAt     time.Time
	CreatedAt time.Time
}
