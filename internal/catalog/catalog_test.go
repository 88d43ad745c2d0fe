package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/repository"
	"github.com/spec-kit/helpdesk-sla/internal/repository/memory"
	"github.com/spec-kit/helpdesk-sla/internal/service"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

func newCatalogService() (*service.CatalogService, *repository.Set) {
	repos := memory.New().Set()
	return service.NewCatalogService(service.CatalogDependencies{
		CalendarRepo: repos.Calendars,
		PolicyRepo:   repos.Policies,
		TriggerRepo:  repos.Triggers,
		MacroRepo:    repos.Macros,
		TeamRepo:     repos.Teams,
	}), repos
}

func TestApply_ExampleCatalog(t *testing.T) {
	ctx := context.Background()
	svc, repos := newCatalogService()

	summary, err := LoadAndApply(ctx, "../../config/catalog.example.yaml", svc, nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{Calendars: 1, Teams: 1, Policies: 2, Triggers: 1, Macros: 1}, summary)

	cal, err := repos.Calendars.GetByID(ctx, "office")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", cal.Timezone)
	assert.Len(t, cal.Windows, 10)
	require.Len(t, cal.Holidays, 1)
	assert.Equal(t, domain.Date{Year: 2025, Month: time.December, Day: 24}, cal.Holidays[0].DateFrom)

	team, err := repos.Teams.GetByID(ctx, "support")
	require.NoError(t, err)
	assert.Equal(t, domain.AutoAssignRoundRobin, team.AutoAssignMode)
	assert.Equal(t, []string{"agent-1", "agent-2", "agent-3"}, team.MemberIDs)

	policies, err := repos.Policies.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, policies, 2)
	assert.Equal(t, "urgent", policies[0].ID)
	require.NotNil(t, policies[1].CalendarID)
	assert.Equal(t, "office", *policies[1].CalendarID)

	triggers, err := repos.Triggers.ListActiveByEvent(ctx, domain.TriggerEventCreate)
	require.NoError(t, err)
	require.Len(t, triggers, 1)
	assert.Equal(t, "VIP", triggers[0].Condition.Value)
	require.NotNil(t, triggers[0].Actions.SetPriority)
	assert.Equal(t, domain.TicketPriorityHigh, *triggers[0].Actions.SetPriority)

	macro, err := repos.Macros.GetByID(ctx, "close-duplicate")
	require.NoError(t, err)
	require.NotNil(t, macro.Actions.Reply)
	assert.False(t, macro.Actions.Reply.IsInternal)
}

func TestApply_RejectedEntriesDoNotStopTheFile(t *testing.T) {
	ctx := context.Background()
	svc, repos := newCatalogService()

	file, err := Parse([]byte(`
calendars:
  - id: broken
    name: Broken
    timezone: Mars/Olympus
    windows:
      - {weekday: monday, hour_from: 9, hour_to: 17}
policies:
  - id: orphan
    name: Orphan
    first_response_hours: 1
    resolution_hours: 2
    calendar_id: broken
  - id: fine
    name: Fine
    active: true
    first_response_hours: 1
    resolution_hours: 2
`))
	require.NoError(t, err)

	summary, err := Apply(ctx, svc, file, nil)
	require.Error(t, err)
	assert.Equal(t, 2, summary.Rejected)
	assert.Equal(t, 1, summary.Policies)
	assert.True(t, apperrors.IsConfigurationError(err))

	_, err = repos.Policies.GetByID(ctx, "fine")
	assert.NoError(t, err)
	_, err = repos.Policies.GetByID(ctx, "orphan")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("policys:\n  - name: typo\n"))
	assert.Error(t, err)
}

func TestParse_EmptyDocument(t *testing.T) {
	file, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, file.Calendars)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("teams: []\n"), 0o600))

	svc, repos := newCatalogService()
	reloaded := make(chan Summary, 4)
	watcher := NewWatcher(path, svc, nil)
	watcher.settle = 10 * time.Millisecond
	watcher.OnReload = func(summary Summary, err error) {
		if err != nil {
			return
		}
		select {
		case reloaded <- summary:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	// The watcher registers asynchronously; keep rewriting until it notices.
	content := []byte("teams:\n  - id: billing\n    name: Billing\n")
	var summary Summary
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, content, 0o600)
		select {
		case summary = <-reloaded:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, summary.Teams)

	team, err := repos.Teams.GetByID(context.Background(), "billing")
	require.NoError(t, err)
	assert.Equal(t, "Billing", team.Name)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
