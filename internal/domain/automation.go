package domain

import (
	"time"

	"github.com/spec-kit/helpdesk-sla/internal/predicate"
)

// TriggerEvent names the ticket event a trigger listens to.
type TriggerEvent string

const (
	TriggerEventCreate        TriggerEvent = "create"
	TriggerEventStateChange   TriggerEvent = "state_change"
	TriggerEventSlaBreach     TriggerEvent = "sla_breach"
	TriggerEventCustomerReply TriggerEvent = "customer_reply"
)

// Valid reports whether e is a known trigger event.
func (e TriggerEvent) Valid() bool {
	switch e {
	case TriggerEventCreate, TriggerEventStateChange, TriggerEventSlaBreach, TriggerEventCustomerReply:
		return true
	}
	return false
}

// Reply is a message posted by an action bundle.
type Reply struct {
	Body       string `json:"body" yaml:"body"`
	IsInternal bool   `json:"is_internal" yaml:"is_internal"`
}

// ActionBundle is the set of effects shared by macros, triggers and SLA escalation.
type ActionBundle struct {
	SetState      *TicketState    `json:"set_state,omitempty" yaml:"set_state,omitempty"`
	SetPriority   *TicketPriority `json:"set_priority,omitempty" yaml:"set_priority,omitempty"`
	SetAssigneeID *string         `json:"set_assignee_id,omitempty" yaml:"set_assignee_id,omitempty"`
	AddTags       []string        `json:"add_tags,omitempty" yaml:"add_tags,omitempty"`
	RemoveTags    []string        `json:"remove_tags,omitempty" yaml:"remove_tags,omitempty"`
	Reply         *Reply          `json:"reply,omitempty" yaml:"reply,omitempty"`
	NotifyUserIDs []string        `json:"notify_user_ids,omitempty" yaml:"notify_user_ids,omitempty"`
}

// Mutation returns the field writes of the bundle.
func (b ActionBundle) Mutation() TicketMutation {
	return TicketMutation{
		State:      b.SetState,
		Priority:   b.SetPriority,
		AssigneeID: b.SetAssigneeID,
		AddTags:    b.AddTags,
		RemoveTags: b.RemoveTags,
	}
}

// IsEmpty reports whether applying the bundle has no effect.
func (b ActionBundle) IsEmpty() bool {
	return b.Mutation().IsEmpty() && b.Reply == nil && len(b.NotifyUserIDs) == 0
}

// Trigger is an event-driven automation rule.
type Trigger struct {
	ID        string         `json:"id" yaml:"id"`
	Name      string         `json:"name" yaml:"name"`
	Event     TriggerEvent   `json:"event" yaml:"event"`
	Sequence  int            `json:"sequence" yaml:"sequence"`
	Active    bool           `json:"active" yaml:"active"`
	Condition predicate.Expr `json:"condition" yaml:"condition"`
	Actions   ActionBundle   `json:"actions" yaml:"actions"`
	CreatedAt time.Time      `json:"created_at" yaml:"-"`
	UpdatedAt time.Time      `json:"updated_at" yaml:"-"`
}

// Macro is an operator-invoked action bundle.
type Macro struct {
	ID        string       `json:"id" yaml:"id"`
	Name      string       `json:"name" yaml:"name"`
	Active    bool         `json:"active" yaml:"active"`
	TeamIDs   []string     `json:"team_ids,omitempty" yaml:"team_ids,omitempty"`
	Actions   ActionBundle `json:"actions" yaml:"actions"`
	CreatedAt time.Time    `json:"created_at" yaml:"-"`
	UpdatedAt time.Time    `json:"updated_at" yaml:"-"`
}

// AllowsTeam reports whether the macro may run on tickets of teamID.
func (m *Macro) AllowsTeam(teamID *string) bool {
	if len(m.TeamIDs) == 0 {
		return true
	}
	if teamID == nil {
		return false
	}
	for _, id := range m.TeamIDs {
		if id == *teamID {
			return true
		}
	}
	return false
}
