package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-sla/internal/predicate"
)

func TestTicketSchema_EnumValues(t *testing.T) {
	tests := []struct {
		name  string
		expr  predicate.Expr
		valid bool
	}{
		{"known state", predicate.Expr{Field: "state", Op: predicate.OpEq, Value: "pending_customer"}, true},
		{"misspelled state", predicate.Expr{Field: "state", Op: predicate.OpEq, Value: "resolvd"}, false},
		{"misspelled state in list", predicate.Expr{Field: "state", Op: predicate.OpIn, Value: []any{"OPEN", "CLOSD"}}, false},
		{"known priority", predicate.Expr{Field: "priority", Op: predicate.OpGte, Value: "high"}, true},
		{"unknown priority", predicate.Expr{Field: "priority", Op: predicate.OpNe, Value: "SEVERE"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := predicate.Validate(tt.expr, TicketSchema)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, predicate.ErrInvalidValue)
		})
	}
}

func TestTicketSchema_StateMatches(t *testing.T) {
	ticket := &Ticket{State: TicketStateResolved, Priority: TicketPriorityNormal}
	ok, err := predicate.Eval(predicate.Expr{Field: "state", Op: predicate.OpEq, Value: "resolved"}, TicketSchema, ticket)
	require.NoError(t, err)
	assert.True(t, ok)
}
