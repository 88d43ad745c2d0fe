package repository_test

import (
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/persistence"
	"github.com/spec-kit/helpdesk-sla/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

func setupTestSet(t *testing.T, ctx context.Context) *repository.Set {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN is required for integration tests")
	}

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	require.NoError(t, execOnce(ctx, dsn, "CREATE SCHEMA "+schema))

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema + ",public"
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Close()
		_ = execOnce(context.Background(), dsn, "DROP SCHEMA "+schema+" CASCADE")
	})

	require.NoError(t, persistence.RunMigrations(ctx, pool, "../../migrations", zap.NewNop()))
	return repository.NewPostgresSet(pool)
}

func execOnce(ctx context.Context, dsn, sql string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, sql)
	return err
}

func seedPolicy(t *testing.T, ctx context.Context, set *repository.Set) {
	t.Helper()
	require.NoError(t, set.Policies.Upsert(ctx, &domain.SlaPolicy{
		ID: "standard", Name: "Standard", Active: true, FirstResponseHours: 4, ResolutionHours: 24,
	}))
}

func seedTracked(t *testing.T, ctx context.Context, set *repository.Set, state domain.TicketState, deadline time.Time) (*domain.Ticket, *domain.SlaStatus) {
	t.Helper()
	ticket := &domain.Ticket{Subject: "Disk full", State: state, Priority: domain.TicketPriorityNormal}
	require.NoError(t, set.Tickets.Create(ctx, ticket))
	status := &domain.SlaStatus{
		TicketID:      ticket.ID,
		PolicyID:      "standard",
		PolicyName:    "Standard",
		StartedAt:     deadline.Add(-4 * time.Hour),
		FirstResponse: domain.Milestone{Deadline: deadline},
		Resolution:    domain.Milestone{Deadline: deadline.Add(24 * time.Hour)},
	}
	created, err := set.SlaStatuses.Create(ctx, status)
	require.NoError(t, err)
	require.True(t, created)
	return ticket, status
}

func TestPostgresSlaStatus_CreateAndComplete(t *testing.T) {
	ctx := context.Background()
	set := setupTestSet(t, ctx)
	seedPolicy(t, ctx, set)
	deadline := time.Now().UTC().Truncate(time.Second)
	ticket, status := seedTracked(t, ctx, set, domain.TicketStateOpen, deadline)

	again, err := set.SlaStatuses.Create(ctx, &domain.SlaStatus{TicketID: ticket.ID, PolicyID: "standard", StartedAt: deadline})
	require.NoError(t, err)
	assert.False(t, again)

	first := deadline.Add(-time.Hour)
	done, err := set.SlaStatuses.CompleteMilestone(ctx, ticket.ID, domain.MilestoneFirstResponse, first)
	require.NoError(t, err)
	assert.True(t, done)
	done, err = set.SlaStatuses.CompleteMilestone(ctx, ticket.ID, domain.MilestoneFirstResponse, deadline)
	require.NoError(t, err)
	assert.False(t, done)

	stored, err := set.SlaStatuses.GetByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, status.ID, stored.ID)
	require.NotNil(t, stored.FirstResponse.CompletedAt)
	assert.True(t, first.Equal(*stored.FirstResponse.CompletedAt))

	won, err := set.SlaStatuses.MarkBreached(ctx, status.ID, domain.MilestoneFirstResponse, deadline.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, won)
}

func TestPostgresTicket_ExternalIDAndUnknownTeam(t *testing.T) {
	ctx := context.Background()
	set := setupTestSet(t, ctx)
	seedPolicy(t, ctx, set)

	team := "not-configured-here"
	ticket := &domain.Ticket{ID: "t-1", Subject: "Printer", TeamID: &team, State: domain.TicketStateNew, Priority: domain.TicketPriorityNormal}
	require.NoError(t, set.Tickets.Create(ctx, ticket))
	assert.Equal(t, "t-1", ticket.ID)

	stored, err := set.Tickets.GetByID(ctx, "t-1")
	require.NoError(t, err)
	require.NotNil(t, stored.TeamID)
	assert.Equal(t, team, *stored.TeamID)
	assert.Empty(t, stored.TeamName)

	_, err = set.Tickets.GetByID(ctx, "t-2")
	assert.True(t, apperrors.IsNotFound(err))

	created, err := set.SlaStatuses.Create(ctx, &domain.SlaStatus{
		TicketID:      "t-1",
		PolicyID:      "standard",
		StartedAt:     ticket.CreatedAt,
		FirstResponse: domain.Milestone{Deadline: ticket.CreatedAt.Add(4 * time.Hour)},
		Resolution:    domain.Milestone{Deadline: ticket.CreatedAt.Add(24 * time.Hour)},
	})
	require.NoError(t, err)
	assert.True(t, created)

	status, err := set.SlaStatuses.GetByTicket(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "t-1", status.TicketID)
}

func TestPostgresSlaStatus_ResolutionKeepsFirstTimestamp(t *testing.T) {
	ctx := context.Background()
	set := setupTestSet(t, ctx)
	seedPolicy(t, ctx, set)
	deadline := time.Now().UTC().Truncate(time.Second)
	ticket, _ := seedTracked(t, ctx, set, domain.TicketStateOpen, deadline)

	first := deadline.Add(-2 * time.Hour)
	done, err := set.SlaStatuses.CompleteMilestone(ctx, ticket.ID, domain.MilestoneResolution, first)
	require.NoError(t, err)
	assert.True(t, done)
	done, err = set.SlaStatuses.CompleteMilestone(ctx, ticket.ID, domain.MilestoneResolution, deadline)
	require.NoError(t, err)
	assert.False(t, done)

	stored, err := set.SlaStatuses.GetByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Resolution.CompletedAt)
	assert.True(t, first.Equal(*stored.Resolution.CompletedAt))
	assert.Nil(t, stored.FirstResponse.CompletedAt)
}

func TestPostgresSlaStatus_MarkBreachedConcurrency(t *testing.T) {
	ctx := context.Background()
	set := setupTestSet(t, ctx)
	seedPolicy(t, ctx, set)
	now := time.Now().UTC()
	_, status := seedTracked(t, ctx, set, domain.TicketStateOpen, now.Add(-time.Minute))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := set.SlaStatuses.MarkBreached(ctx, status.ID, domain.MilestoneFirstResponse, now)
			assert.NoError(t, err)
			if won {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestPostgresSlaStatus_BreachCandidates(t *testing.T) {
	ctx := context.Background()
	set := setupTestSet(t, ctx)
	seedPolicy(t, ctx, set)
	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		seedTracked(t, ctx, set, domain.TicketStateOpen, now.Add(-time.Duration(i+1)*time.Minute))
	}
	seedTracked(t, ctx, set, domain.TicketStateClosed, now.Add(-time.Hour))
	seedTracked(t, ctx, set, domain.TicketStateOpen, now.Add(time.Hour))

	var seen []string
	var cursor repository.BreachCursor
	for {
		page, err := set.SlaStatuses.ListBreachCandidates(ctx, domain.MilestoneFirstResponse, now, cursor, 2)
		require.NoError(t, err)
		for _, candidate := range page {
			seen = append(seen, candidate.StatusID)
		}
		if len(page) < 2 {
			break
		}
		last := page[len(page)-1]
		cursor = repository.BreachCursor{Deadline: last.Deadline, StatusID: last.StatusID}
	}
	assert.Len(t, seen, 5)
}
