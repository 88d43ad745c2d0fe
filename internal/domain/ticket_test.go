package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeTags(t *testing.T) {
	got := MergeTags([]string{"b", "a"}, []string{"c", "a", " "}, []string{"b"})
	assert.Equal(t, []string{"a", "c"}, got)
}

func TestMergeTags_RemoveWins(t *testing.T) {
	got := MergeTags(nil, []string{"vip"}, []string{"vip"})
	assert.Empty(t, got)
}

func TestPriorityRaise(t *testing.T) {
	assert.Equal(t, TicketPriorityNormal, TicketPriorityLow.Raise())
	assert.Equal(t, TicketPriorityUrgent, TicketPriorityHigh.Raise())
	assert.Equal(t, TicketPriorityUrgent, TicketPriorityUrgent.Raise())
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, TicketStateCancelled.IsTerminal())
	assert.False(t, TicketStateCancelled.CompletesResolution())
	assert.True(t, TicketStateClosed.CompletesResolution())
	assert.False(t, TicketStatePendingCustomer.IsTerminal())
}

func TestTicketMutationApplyTo(t *testing.T) {
	state := TicketStateOpen
	assignee := "agent-1"
	ticket := &Ticket{State: TicketStateNew, Priority: TicketPriorityLow, Tags: []string{"x"}}
	TicketMutation{State: &state, AssigneeID: &assignee, AddTags: []string{"y"}, RemoveTags: []string{"x"}}.ApplyTo(ticket)

	assert.Equal(t, TicketStateOpen, ticket.State)
	assert.Equal(t, TicketPriorityLow, ticket.Priority)
	assert.Equal(t, "agent-1", *ticket.AssigneeID)
	assert.Equal(t, []string{"y"}, ticket.Tags)
}

func TestMacroAllowsTeam(t *testing.T) {
	team := "t1"
	other := "t2"
	open := &Macro{}
	restricted := &Macro{TeamIDs: []string{"t1"}}

	assert.True(t, open.AllowsTeam(nil))
	assert.True(t, restricted.AllowsTeam(&team))
	assert.False(t, restricted.AllowsTeam(&other))
	assert.False(t, restricted.AllowsTeam(nil))
}

func TestMessageCountsAsFirstResponse(t *testing.T) {
	customer := "c1"
	agent := "a1"
	ticket := &Ticket{CustomerID: &customer}

	staffReply := &TicketMessage{AuthorType: AuthorTypeStaff, AuthorID: &agent, MessageType: MessageTypePublicReply}
	staffNote := &TicketMessage{AuthorType: AuthorTypeStaff, AuthorID: &agent, MessageType: MessageTypeInternalNote}
	customerReply := &TicketMessage{AuthorType: AuthorTypeUser, AuthorID: &customer, MessageType: MessageTypePublicReply}

	assert.True(t, staffReply.CountsAsFirstResponse(ticket))
	assert.False(t, staffNote.CountsAsFirstResponse(ticket))
	assert.False(t, customerReply.CountsAsFirstResponse(ticket))
}
