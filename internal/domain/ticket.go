package domain

import (
	"sort"
	"strings"
	"time"
)

// TicketState enumerates lifecycle states for tickets.
type TicketState string

const (
	TicketStateNew             TicketState = "NEW"
	TicketStateOpen            TicketState = "OPEN"
	TicketStatePendingCustomer TicketState = "PENDING_CUSTOMER"
	TicketStatePendingInternal TicketState = "PENDING_INTERNAL"
	TicketStateResolved        TicketState = "RESOLVED"
	TicketStateClosed          TicketState = "CLOSED"
	TicketStateCancelled       TicketState = "CANCELLED"
)

var ticketStates = []TicketState{
	TicketStateNew,
	TicketStateOpen,
	TicketStatePendingCustomer,
	TicketStatePendingInternal,
	TicketStateResolved,
	TicketStateClosed,
	TicketStateCancelled,
}

// Valid reports whether s is a known state.
func (s TicketState) Valid() bool {
	for _, known := range ticketStates {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether SLA milestones stop being tracked in this state.
func (s TicketState) IsTerminal() bool {
	return s == TicketStateResolved || s == TicketStateClosed || s == TicketStateCancelled
}

// CompletesResolution reports whether entering s satisfies the resolution milestone.
func (s TicketState) CompletesResolution() bool {
	return s == TicketStateResolved || s == TicketStateClosed
}

// TerminalStates lists the states excluded from breach detection.
func TerminalStates() []TicketState {
	return []TicketState{TicketStateResolved, TicketStateClosed, TicketStateCancelled}
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityNormal TicketPriority = "NORMAL"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

var priorityOrder = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityNormal,
	TicketPriorityHigh,
	TicketPriorityUrgent,
}

// Rank returns the ordinal of p (Low=0 .. Urgent=3), or -1 when unknown.
func (p TicketPriority) Rank() int {
	for i, known := range priorityOrder {
		if p == known {
			return i
		}
	}
	return -1
}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	return p.Rank() >= 0
}

// Raise returns the next priority level, capped at Urgent.
func (p TicketPriority) Raise() TicketPriority {
	rank := p.Rank()
	if rank < 0 {
		return TicketPriorityHigh
	}
	if rank >= len(priorityOrder)-1 {
		return TicketPriorityUrgent
	}
	return priorityOrder[rank+1]
}

// ParsePriority normalizes a priority label.
func ParsePriority(raw string) (TicketPriority, bool) {
	p := TicketPriority(strings.ToUpper(strings.TrimSpace(raw)))
	return p, p.Valid()
}

// ParseState normalizes a state label.
func ParseState(raw string) (TicketState, bool) {
	s := TicketState(strings.ToUpper(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// Ticket is the read model of a support ticket owned by the helpdesk.
type Ticket struct {
	ID         string
	Number     string
	Subject    string
	CustomerID *string
	TeamID     *string
	TeamName   string
	CategoryID *string
	TypeID     *string
	AssigneeID *string
	State      TicketState
	Priority   TicketPriority
	Tags       []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Label returns a human readable reference for messages and notifications.
func (t *Ticket) Label() string {
	if t.Number != "" {
		return t.Number
	}
	return t.ID
}

// HasTag reports tag membership.
func (t *Ticket) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

// TicketMutation is one batch of field writes committed atomically.
type TicketMutation struct {
	State      *TicketState
	Priority   *TicketPriority
	AssigneeID *string
	AddTags    []string
	RemoveTags []string
}

// IsEmpty reports whether the mutation writes nothing.
func (m TicketMutation) IsEmpty() bool {
	return m.State == nil && m.Priority == nil && m.AssigneeID == nil &&
		len(m.AddTags) == 0 && len(m.RemoveTags) == 0
}

// ApplyTo writes the mutation onto t in memory.
func (m TicketMutation) ApplyTo(t *Ticket) {
	if m.State != nil {
		t.State = *m.State
	}
	if m.Priority != nil {
		t.Priority = *m.Priority
	}
	if m.AssigneeID != nil {
		assignee := *m.AssigneeID
		t.AssigneeID = &assignee
	}
	if len(m.AddTags) > 0 || len(m.RemoveTags) > 0 {
		t.Tags = MergeTags(t.Tags, m.AddTags, m.RemoveTags)
	}
}

// MergeTags adds then removes tags and returns a sorted, de-duplicated set.
// A tag listed in both add and remove ends up absent.
func MergeTags(existing, add, remove []string) []string {
	set := make(map[string]struct{}, len(existing)+len(add))
	for _, tag := range existing {
		set[tag] = struct{}{}
	}
	for _, tag := range add {
		if tag = strings.TrimSpace(tag); tag != "" {
			set[tag] = struct{}{}
		}
	}
	for _, tag := range remove {
		delete(set, strings.TrimSpace(tag))
	}
	result := make([]string, 0, len(set))
	for tag := range set {
		result = append(result, tag)
	}
	sort.Strings(result)
	return result
}
