// Package sla tracks per-ticket service level commitments: it matches
// policies, computes deadlines on business calendars, records milestone
// completion and detects breaches.
package sla

import (
	"sort"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// Match returns the lowest-sequence active policy whose every set criterion
// holds for ticket, or nil.
func Match(ticket *domain.Ticket, policies []domain.SlaPolicy) *domain.SlaPolicy {
	ordered := make([]domain.SlaPolicy, len(policies))
	copy(ordered, policies)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Sequence < ordered[j].Sequence })

	for i := range ordered {
		if ordered[i].Active && Applies(&ordered[i], ticket) {
			return &ordered[i]
		}
	}
	return nil
}

// Applies reports whether policy criteria hold for ticket. Unset criteria
// are wildcards.
func Applies(policy *domain.SlaPolicy, ticket *domain.Ticket) bool {
	if policy.TeamID != nil && !equalRef(policy.TeamID, ticket.TeamID) {
		return false
	}
	if policy.MinPriority != nil {
		minimum := policy.MinPriority.Rank()
		actual := ticket.Priority.Rank()
		if minimum < 0 || actual < minimum {
			return false
		}
	}
	if policy.CategoryID != nil && !equalRef(policy.CategoryID, ticket.CategoryID) {
		return false
	}
	if policy.TypeID != nil && !equalRef(policy.TypeID, ticket.TypeID) {
		return false
	}
	return true
}

func equalRef(want, got *string) bool {
	return got != nil && *want == *got
}
