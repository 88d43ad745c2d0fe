package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

type slaRepo struct{ s *Store }

func (r slaRepo) Create(_ context.Context, status *domain.SlaStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.statusByTicket[status.TicketID]; exists {
		return false, nil
	}
	status.ID = uuid.NewString()
	status.CreatedAt = r.s.now()
	status.UpdatedAt = status.CreatedAt
	stored := cloneStatus(status)
	r.s.statuses[status.ID] = stored
	r.s.statusByTicket[status.TicketID] = status.ID
	return true, nil
}

func (r slaRepo) GetByTicket(_ context.Context, ticketID string) (*domain.SlaStatus, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.statusByTicket[ticketID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return cloneStatus(r.s.statuses[id]), nil
}

func (r slaRepo) CompleteMilestone(_ context.Context, ticketID string, kind domain.MilestoneKind, at time.Time) (bool, error) {
	if err := checkKind(kind); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.statusByTicket[ticketID]
	if !ok {
		return false, nil
	}
	status := r.s.statuses[id]
	milestone := status.Milestone(kind)
	if milestone.CompletedAt != nil {
		return false, nil
	}
	completed := at
	milestone.CompletedAt = &completed
	status.UpdatedAt = r.s.now()
	return true, nil
}

func (r slaRepo) ListBreachCandidates(_ context.Context, kind domain.MilestoneKind, now time.Time, after repository.BreachCursor, limit int) ([]domain.BreachCandidate, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []domain.BreachCandidate
	for _, status := range r.s.statuses {
		if !r.s.eligible(status, kind, now) {
			continue
		}
		deadline := status.Milestone(kind).Deadline
		if !after.IsZero() && !afterCursor(deadline, status.ID, after) {
			continue
		}
		result = append(result, domain.BreachCandidate{
			StatusID: status.ID,
			TicketID: status.TicketID,
			PolicyID: status.PolicyID,
			Deadline: deadline,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Deadline.Equal(result[j].Deadline) {
			return result[i].Deadline.Before(result[j].Deadline)
		}
		return result[i].StatusID < result[j].StatusID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r slaRepo) MarkBreached(_ context.Context, statusID string, kind domain.MilestoneKind, now time.Time) (bool, error) {
	if err := checkKind(kind); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	status, ok := r.s.statuses[statusID]
	if !ok || !r.s.eligible(status, kind, now) {
		return false, nil
	}
	status.Milestone(kind).Breached = true
	status.UpdatedAt = r.s.now()
	return true, nil
}

// eligible must be called with the lock held.
func (s *Store) eligible(status *domain.SlaStatus, kind domain.MilestoneKind, now time.Time) bool {
	milestone := status.Milestone(kind)
	if milestone.Breached || milestone.CompletedAt != nil || !milestone.Deadline.Before(now) {
		return false
	}
	ticket, ok := s.tickets[status.TicketID]
	return ok && !ticket.State.IsTerminal()
}

func afterCursor(deadline time.Time, id string, cursor repository.BreachCursor) bool {
	if deadline.Equal(cursor.Deadline) {
		return id > cursor.StatusID
	}
	return deadline.After(cursor.Deadline)
}

func checkKind(kind domain.MilestoneKind) error {
	if kind != domain.MilestoneFirstResponse && kind != domain.MilestoneResolution {
		return fmt.Errorf("unknown milestone %q", kind)
	}
	return nil
}

func cloneStatus(status *domain.SlaStatus) *domain.SlaStatus {
	out := *status
	out.FirstResponse = cloneMilestone(status.FirstResponse)
	out.Resolution = cloneMilestone(status.Resolution)
	return &out
}

func cloneMilestone(m domain.Milestone) domain.Milestone {
	if m.CompletedAt != nil {
		at := *m.CompletedAt
		m.CompletedAt = &at
	}
	return m
}
