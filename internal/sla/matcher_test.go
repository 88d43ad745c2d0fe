package sla

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func TestMatch_LowestSequenceWins(t *testing.T) {
	ticket := &domain.Ticket{TeamID: ptr("support"), Priority: domain.TicketPriorityUrgent}
	policies := []domain.SlaPolicy{
		{ID: "catch-all", Sequence: 100, Active: true},
		{ID: "urgent", Sequence: 5, Active: true, MinPriority: ptr(domain.TicketPriorityHigh)},
		{ID: "support", Sequence: 10, Active: true, TeamID: ptr("support")},
	}

	got := Match(ticket, policies)
	require.NotNil(t, got)
	assert.Equal(t, "urgent", got.ID)
}

func TestMatch_Criteria(t *testing.T) {
	ticket := &domain.Ticket{
		TeamID:     ptr("support"),
		CategoryID: ptr("billing"),
		TypeID:     ptr("incident"),
		Priority:   domain.TicketPriorityNormal,
	}
	tests := []struct {
		name   string
		policy domain.SlaPolicy
		want   bool
	}{
		{"wildcard", domain.SlaPolicy{}, true},
		{"team match", domain.SlaPolicy{TeamID: ptr("support")}, true},
		{"team mismatch", domain.SlaPolicy{TeamID: ptr("sales")}, false},
		{"priority equal", domain.SlaPolicy{MinPriority: ptr(domain.TicketPriorityNormal)}, true},
		{"priority above ticket", domain.SlaPolicy{MinPriority: ptr(domain.TicketPriorityHigh)}, false},
		{"category", domain.SlaPolicy{CategoryID: ptr("billing")}, true},
		{"category mismatch", domain.SlaPolicy{CategoryID: ptr("hardware")}, false},
		{"type mismatch", domain.SlaPolicy{TypeID: ptr("question")}, false},
		{"all criteria", domain.SlaPolicy{TeamID: ptr("support"), CategoryID: ptr("billing"), TypeID: ptr("incident"), MinPriority: ptr(domain.TicketPriorityLow)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Applies(&tt.policy, ticket))
		})
	}
}

func TestMatch_UnsetTicketFieldFailsSetCriterion(t *testing.T) {
	ticket := &domain.Ticket{Priority: domain.TicketPriorityHigh}
	assert.False(t, Applies(&domain.SlaPolicy{TeamID: ptr("support")}, ticket))
}

func TestMatch_NoneAndInactive(t *testing.T) {
	ticket := &domain.Ticket{Priority: domain.TicketPriorityLow}
	policies := []domain.SlaPolicy{
		{ID: "off", Sequence: 1, Active: false},
		{ID: "high", Sequence: 2, Active: true, MinPriority: ptr(domain.TicketPriorityHigh)},
	}
	assert.Nil(t, Match(ticket, policies))
	assert.Nil(t, Match(ticket, nil))
}
