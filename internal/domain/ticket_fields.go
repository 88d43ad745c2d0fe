package domain

import (
	"strings"

	"github.com/spec-kit/helpdesk-sla/internal/predicate"
)

// TicketSchema lists the ticket fields that trigger conditions may reference.
var TicketSchema = predicate.Schema{
	"team":        {Kind: predicate.KindText},
	"team_id":     {Kind: predicate.KindText},
	"subject":     {Kind: predicate.KindText},
	"category_id": {Kind: predicate.KindText},
	"type_id":     {Kind: predicate.KindText},
	"assignee_id": {Kind: predicate.KindText},
	"customer_id": {Kind: predicate.KindText},
	"state": {
		Kind:      predicate.KindEnum,
		Normalize: strings.ToUpper,
		Valid:     func(v string) bool { return TicketState(v).Valid() },
	},
	"priority": {
		Kind:      predicate.KindEnum,
		Normalize: strings.ToUpper,
		Rank: func(v string) (int, bool) {
			rank := TicketPriority(v).Rank()
			return rank, rank >= 0
		},
		Valid: func(v string) bool { return TicketPriority(v).Valid() },
	},
	"tags":       {Kind: predicate.KindSet},
	"created_at": {Kind: predicate.KindTime},
}

// Lookup exposes ticket fields to condition evaluation.
func (t *Ticket) Lookup(field string) (any, bool) {
	switch field {
	case "team":
		return t.TeamName, true
	case "team_id":
		return t.TeamID, true
	case "subject":
		return t.Subject, true
	case "category_id":
		return t.CategoryID, true
	case "type_id":
		return t.TypeID, true
	case "assignee_id":
		return t.AssigneeID, true
	case "customer_id":
		return t.CustomerID, true
	case "state":
		return string(t.State), true
	case "priority":
		return string(t.Priority), true
	case "tags":
		return t.Tags, true
	case "created_at":
		return t.CreatedAt, true
	default:
		return nil, false
	}
}
