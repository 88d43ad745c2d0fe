package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

func seedTicket(t *testing.T, repos *repository.Set, state domain.TicketState) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{State: state, Priority: domain.TicketPriorityNormal, Tags: []string{"a"}}
	require.NoError(t, repos.Tickets.Create(context.Background(), ticket))
	return ticket
}

func seedStatus(t *testing.T, repos *repository.Set, ticketID string, deadline time.Time) *domain.SlaStatus {
	t.Helper()
	status := &domain.SlaStatus{
		TicketID:      ticketID,
		PolicyID:      "p1",
		FirstResponse: domain.Milestone{Deadline: deadline},
		Resolution:    domain.Milestone{Deadline: deadline.Add(24 * time.Hour)},
	}
	created, err := repos.SlaStatuses.Create(context.Background(), status)
	require.NoError(t, err)
	require.True(t, created)
	return status
}

func TestApplyMutation_WritesHistory(t *testing.T) {
	ctx := context.Background()
	repos := New().Set()
	ticket := seedTicket(t, repos, domain.TicketStateNew)

	state := domain.TicketStateOpen
	before, after, err := repos.Tickets.ApplyMutation(ctx, ticket.ID,
		domain.TicketMutation{State: &state, AddTags: []string{"b"}},
		repository.ChangeAuthor{Type: domain.AuthorTypeSystem, Source: "trigger:welcome"})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateNew, before.State)
	assert.Equal(t, domain.TicketStateOpen, after.State)
	assert.Equal(t, []string{"a", "b"}, after.Tags)

	history, err := repos.History.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.ChangeTypeBatch, history[0].ChangeType)
	assert.Equal(t, "trigger:welcome", history[0].Source)
}

func TestApplyMutation_NoOpSkipsHistory(t *testing.T) {
	ctx := context.Background()
	repos := New().Set()
	ticket := seedTicket(t, repos, domain.TicketStateNew)

	_, _, err := repos.Tickets.ApplyMutation(ctx, ticket.ID, domain.TicketMutation{AddTags: []string{"a"}}, repository.ChangeAuthor{})
	require.NoError(t, err)

	history, err := repos.History.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestApplyMutation_UnknownTicket(t *testing.T) {
	_, _, err := New().Set().Tickets.ApplyMutation(context.Background(), "missing", domain.TicketMutation{}, repository.ChangeAuthor{})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSlaStatus_CreateOnce(t *testing.T) {
	repos := New().Set()
	ticket := seedTicket(t, repos, domain.TicketStateNew)
	seedStatus(t, repos, ticket.ID, time.Now())

	created, err := repos.SlaStatuses.Create(context.Background(), &domain.SlaStatus{TicketID: ticket.ID, PolicyID: "p2"})
	require.NoError(t, err)
	assert.False(t, created)

	status, err := repos.SlaStatuses.GetByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "p1", status.PolicyID)
}

func TestSlaStatus_CompleteMilestoneFirstWins(t *testing.T) {
	ctx := context.Background()
	repos := New().Set()
	ticket := seedTicket(t, repos, domain.TicketStateNew)
	seedStatus(t, repos, ticket.ID, time.Now().Add(time.Hour))

	first := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	ok, err := repos.SlaStatuses.CompleteMilestone(ctx, ticket.ID, domain.MilestoneFirstResponse, first)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repos.SlaStatuses.CompleteMilestone(ctx, ticket.ID, domain.MilestoneFirstResponse, first.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	status, err := repos.SlaStatuses.GetByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.True(t, first.Equal(*status.FirstResponse.CompletedAt))
}

func TestSlaStatus_CompleteResolutionFirstWins(t *testing.T) {
	ctx := context.Background()
	repos := New().Set()
	ticket := seedTicket(t, repos, domain.TicketStateOpen)
	seedStatus(t, repos, ticket.ID, time.Now().Add(time.Hour))

	first := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ok, err := repos.SlaStatuses.CompleteMilestone(ctx, ticket.ID, domain.MilestoneResolution, first)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repos.SlaStatuses.CompleteMilestone(ctx, ticket.ID, domain.MilestoneResolution, first.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	status, err := repos.SlaStatuses.GetByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, status.Resolution.CompletedAt)
	assert.True(t, first.Equal(*status.Resolution.CompletedAt))
	assert.Nil(t, status.FirstResponse.CompletedAt)
}

func TestTicket_ExternalIDAndUnconfiguredTeam(t *testing.T) {
	ctx := context.Background()
	repos := New().Set()
	team := "not-configured-here"
	ticket := &domain.Ticket{ID: "t-1", TeamID: &team, State: domain.TicketStateNew, Priority: domain.TicketPriorityNormal}
	require.NoError(t, repos.Tickets.Create(ctx, ticket))

	stored, err := repos.Tickets.GetByID(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "t-1", stored.ID)
	assert.Empty(t, stored.TeamName)
}

func TestSlaStatus_BreachCandidatesPaging(t *testing.T) {
	ctx := context.Background()
	repos := New().Set()
	base := time.Now().Add(-10 * time.Hour)
	for i := 0; i < 5; i++ {
		ticket := seedTicket(t, repos, domain.TicketStateOpen)
		seedStatus(t, repos, ticket.ID, base.Add(time.Duration(i)*time.Minute))
	}
	closed := seedTicket(t, repos, domain.TicketStateClosed)
	seedStatus(t, repos, closed.ID, base)
	future := seedTicket(t, repos, domain.TicketStateOpen)
	seedStatus(t, repos, future.ID, time.Now().Add(time.Hour))

	var (
		seen   []domain.BreachCandidate
		cursor repository.BreachCursor
	)
	for {
		page, err := repos.SlaStatuses.ListBreachCandidates(ctx, domain.MilestoneFirstResponse, time.Now(), cursor, 2)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		seen = append(seen, page...)
		last := page[len(page)-1]
		cursor = repository.BreachCursor{Deadline: last.Deadline, StatusID: last.StatusID}
	}
	require.Len(t, seen, 5)
	for i := 1; i < len(seen); i++ {
		assert.False(t, seen[i].Deadline.Before(seen[i-1].Deadline))
	}
}

func TestSlaStatus_MarkBreachedExactlyOnce(t *testing.T) {
	ctx := context.Background()
	repos := New().Set()
	ticket := seedTicket(t, repos, domain.TicketStateOpen)
	status := seedStatus(t, repos, ticket.ID, time.Now().Add(-time.Hour))

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repos.SlaStatuses.MarkBreached(ctx, status.ID, domain.MilestoneFirstResponse, time.Now())
			if err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

func TestSlaStatus_MarkBreachedRespectsTerminalState(t *testing.T) {
	ctx := context.Background()
	repos := New().Set()
	ticket := seedTicket(t, repos, domain.TicketStateCancelled)
	status := seedStatus(t, repos, ticket.ID, time.Now().Add(-time.Hour))

	ok, err := repos.SlaStatuses.MarkBreached(ctx, status.ID, domain.MilestoneFirstResponse, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTeam_AdvanceRoundRobin(t *testing.T) {
	ctx := context.Background()
	repos := New().Set()
	team := &domain.Team{Name: "Support", MemberIDs: []string{"a", "b"}}
	require.NoError(t, repos.Teams.Upsert(ctx, team))

	for want := int64(0); want < 3; want++ {
		got, err := repos.Teams.AdvanceRoundRobin(ctx, team.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	require.NoError(t, repos.Teams.Upsert(ctx, team))
	got, err := repos.Teams.AdvanceRoundRobin(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got, "upsert keeps the cursor")
}
