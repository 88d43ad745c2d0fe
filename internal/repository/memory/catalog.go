package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

type calendarRepo struct{ s *Store }

func (r calendarRepo) Upsert(_ context.Context, cal *domain.BusinessCalendar) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if cal.ID == "" {
		cal.ID = uuid.NewString()
	}
	now := r.s.now()
	cal.CreatedAt = now
	if existing, ok := r.s.calendars[cal.ID]; ok {
		cal.CreatedAt = existing.CreatedAt
	}
	cal.UpdatedAt = now
	r.s.calendars[cal.ID] = *cal
	return nil
}

func (r calendarRepo) GetByID(_ context.Context, id string) (*domain.BusinessCalendar, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cal, ok := r.s.calendars[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &cal, nil
}

func (r calendarRepo) List(_ context.Context) ([]domain.BusinessCalendar, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make([]domain.BusinessCalendar, 0, len(r.s.calendars))
	for _, cal := range r.s.calendars {
		result = append(result, cal)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r calendarRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.calendars[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.s.calendars, id)
	return nil
}

type policyRepo struct{ s *Store }

func (r policyRepo) Upsert(_ context.Context, policy *domain.SlaPolicy) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if policy.ID == "" {
		policy.ID = uuid.NewString()
	}
	now := r.s.now()
	policy.CreatedAt = now
	if existing, ok := r.s.policies[policy.ID]; ok {
		policy.CreatedAt = existing.CreatedAt
	}
	policy.UpdatedAt = now
	r.s.policies[policy.ID] = *policy
	return nil
}

func (r policyRepo) GetByID(_ context.Context, id string) (*domain.SlaPolicy, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	policy, ok := r.s.policies[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &policy, nil
}

func (r policyRepo) List(ctx context.Context) ([]domain.SlaPolicy, error) {
	return r.list(false), nil
}

func (r policyRepo) ListActive(ctx context.Context) ([]domain.SlaPolicy, error) {
	return r.list(true), nil
}

func (r policyRepo) list(activeOnly bool) []domain.SlaPolicy {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make([]domain.SlaPolicy, 0, len(r.s.policies))
	for _, policy := range r.s.policies {
		if activeOnly && !policy.Active {
			continue
		}
		result = append(result, policy)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Sequence != result[j].Sequence {
			return result[i].Sequence < result[j].Sequence
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (r policyRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.policies[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.s.policies, id)
	return nil
}

type triggerRepo struct{ s *Store }

func (r triggerRepo) Upsert(_ context.Context, trigger *domain.Trigger) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if trigger.ID == "" {
		trigger.ID = uuid.NewString()
	}
	now := r.s.now()
	trigger.CreatedAt = now
	if existing, ok := r.s.triggers[trigger.ID]; ok {
		trigger.CreatedAt = existing.CreatedAt
	}
	trigger.UpdatedAt = now
	r.s.triggers[trigger.ID] = *trigger
	return nil
}

func (r triggerRepo) GetByID(_ context.Context, id string) (*domain.Trigger, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	trigger, ok := r.s.triggers[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &trigger, nil
}

func (r triggerRepo) List(_ context.Context) ([]domain.Trigger, error) {
	return r.list(func(domain.Trigger) bool { return true }), nil
}

func (r triggerRepo) ListActiveByEvent(_ context.Context, event domain.TriggerEvent) ([]domain.Trigger, error) {
	return r.list(func(t domain.Trigger) bool { return t.Active && t.Event == event }), nil
}

func (r triggerRepo) list(keep func(domain.Trigger) bool) []domain.Trigger {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.Trigger
	for _, trigger := range r.s.triggers {
		if keep(trigger) {
			result = append(result, trigger)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Event != result[j].Event {
			return result[i].Event < result[j].Event
		}
		if result[i].Sequence != result[j].Sequence {
			return result[i].Sequence < result[j].Sequence
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (r triggerRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.triggers[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.s.triggers, id)
	return nil
}

type macroRepo struct{ s *Store }

func (r macroRepo) Upsert(_ context.Context, macro *domain.Macro) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if macro.ID == "" {
		macro.ID = uuid.NewString()
	}
	now := r.s.now()
	macro.CreatedAt = now
	if existing, ok := r.s.macros[macro.ID]; ok {
		macro.CreatedAt = existing.CreatedAt
	}
	macro.UpdatedAt = now
	r.s.macros[macro.ID] = *macro
	return nil
}

func (r macroRepo) GetByID(_ context.Context, id string) (*domain.Macro, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	macro, ok := r.s.macros[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &macro, nil
}

func (r macroRepo) List(_ context.Context) ([]domain.Macro, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make([]domain.Macro, 0, len(r.s.macros))
	for _, macro := range r.s.macros {
		result = append(result, macro)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r macroRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.macros[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.s.macros, id)
	return nil
}
