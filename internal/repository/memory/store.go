// Package memory provides mutex-guarded in-process repositories used by tests
// and by deployments without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

// Store holds all records behind a single lock.
type Store struct {
	mu  sync.Mutex
	now func() time.Time

	tickets    map[string]*domain.Ticket
	messages   []domain.TicketMessage
	history    []domain.TicketHistory
	activities []domain.Activity
	teams      map[string]*domain.Team

	statuses       map[string]*domain.SlaStatus
	statusByTicket map[string]string

	calendars map[string]domain.BusinessCalendar
	policies  map[string]domain.SlaPolicy
	triggers  map[string]domain.Trigger
	macros    map[string]domain.Macro
}

// New returns an empty store.
func New() *Store {
	return &Store{
		now:            time.Now,
		tickets:        map[string]*domain.Ticket{},
		teams:          map[string]*domain.Team{},
		statuses:       map[string]*domain.SlaStatus{},
		statusByTicket: map[string]string{},
		calendars:      map[string]domain.BusinessCalendar{},
		policies:       map[string]domain.SlaPolicy{},
		triggers:       map[string]domain.Trigger{},
		macros:         map[string]domain.Macro{},
	}
}

// Set exposes the store through the repository interfaces.
func (s *Store) Set() *repository.Set {
	return &repository.Set{
		Tickets:     ticketRepo{s},
		Messages:    messageRepo{s},
		History:     historyRepo{s},
		Activities:  activityRepo{s},
		Teams:       teamRepo{s},
		SlaStatuses: slaRepo{s},
		Policies:    policyRepo{s},
		Calendars:   calendarRepo{s},
		Triggers:    triggerRepo{s},
		Macros:      macroRepo{s},
	}
}

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	now := r.s.now()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = now
	}
	ticket.UpdatedAt = now
	if ticket.TeamID != nil {
		if team, ok := r.s.teams[*ticket.TeamID]; ok {
			ticket.TeamName = team.Name
		}
	}
	r.s.tickets[ticket.ID] = cloneTicket(ticket)
	return nil
}

func (r ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return cloneTicket(ticket), nil
}

func (r ticketRepo) ApplyMutation(_ context.Context, ticketID string, mutation domain.TicketMutation, author repository.ChangeAuthor) (*domain.Ticket, *domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.tickets[ticketID]
	if !ok {
		return nil, nil, apperrors.ErrNotFound
	}
	before := cloneTicket(current)
	after := cloneTicket(current)
	mutation.ApplyTo(after)
	after.UpdatedAt = r.s.now()

	if entry := repository.BuildHistory(before, after, author); entry != nil {
		entry.ID = uuid.NewString()
		entry.CreatedAt = after.UpdatedAt
		r.s.history = append(r.s.history, *entry)
	}
	r.s.tickets[ticketID] = cloneTicket(after)
	return before, after, nil
}

type messageRepo struct{ s *Store }

func (r messageRepo) Create(_ context.Context, msg *domain.TicketMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[msg.TicketID]; !ok {
		return apperrors.ErrNotFound
	}
	msg.ID = uuid.NewString()
	msg.CreatedAt = r.s.now()
	r.s.messages = append(r.s.messages, *msg)
	return nil
}

func (r messageRepo) GetByID(_ context.Context, id string) (*domain.TicketMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, msg := range r.s.messages {
		if msg.ID == id {
			out := msg
			return &out, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r messageRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.TicketMessage
	for _, msg := range r.s.messages {
		if msg.TicketID == ticketID {
			result = append(result, msg)
		}
	}
	return result, nil
}

type historyRepo struct{ s *Store }

func (r historyRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.TicketHistory
	for _, entry := range r.s.history {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type activityRepo struct{ s *Store }

func (r activityRepo) Create(_ context.Context, activity *domain.Activity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	activity.ID = uuid.NewString()
	activity.CreatedAt = r.s.now()
	r.s.activities = append(r.s.activities, *activity)
	return nil
}

func (r activityRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Activity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.Activity
	for _, activity := range r.s.activities {
		if activity.TicketID == ticketID {
			result = append(result, activity)
		}
	}
	return result, nil
}

type teamRepo struct{ s *Store }

func (r teamRepo) Upsert(_ context.Context, team *domain.Team) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if team.ID == "" {
		team.ID = uuid.NewString()
	}
	if team.AutoAssignMode == "" {
		team.AutoAssignMode = domain.AutoAssignManual
	}
	now := r.s.now()
	if existing, ok := r.s.teams[team.ID]; ok {
		team.CreatedAt = existing.CreatedAt
		team.LastAssignedIndex = existing.LastAssignedIndex
	} else {
		team.CreatedAt = now
	}
	team.UpdatedAt = now
	stored := *team
	stored.MemberIDs = append([]string(nil), team.MemberIDs...)
	r.s.teams[team.ID] = &stored
	return nil
}

func (r teamRepo) GetByID(_ context.Context, id string) (*domain.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	team, ok := r.s.teams[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := *team
	out.MemberIDs = append([]string(nil), team.MemberIDs...)
	return &out, nil
}

func (r teamRepo) List(_ context.Context) ([]domain.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make([]domain.Team, 0, len(r.s.teams))
	for _, team := range r.s.teams {
		result = append(result, *team)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r teamRepo) AdvanceRoundRobin(_ context.Context, teamID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	team, ok := r.s.teams[teamID]
	if !ok {
		return 0, apperrors.ErrNotFound
	}
	previous := team.LastAssignedIndex
	team.LastAssignedIndex++
	return previous, nil
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	out := *t
	out.Tags = append([]string(nil), t.Tags...)
	if t.AssigneeID != nil {
		assignee := *t.AssigneeID
		out.AssigneeID = &assignee
	}
	return &out
}
