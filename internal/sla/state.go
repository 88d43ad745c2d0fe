package sla

import (
	"time"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// DefaultAtRiskRatio is the remaining/allotted fraction below which an
// outstanding milestone is at risk.
const DefaultAtRiskRatio = 0.25

// ComputeState derives the SLA health. Precedence: completed, breached,
// at_risk, on_track.
func ComputeState(status *domain.SlaStatus, now time.Time, atRiskRatio float64) domain.SlaState {
	if status.FirstResponse.Done() && status.Resolution.Done() {
		return domain.SlaStateCompleted
	}
	if status.FirstResponse.Breached || status.Resolution.Breached {
		return domain.SlaStateBreached
	}
	for _, kind := range domain.MilestoneKinds() {
		m := *status.Milestone(kind)
		if m.Done() {
			continue
		}
		// A zero-length allotment has no ratio to measure; it is not at
		// risk until the scanner marks it breached.
		total := m.Deadline.Sub(status.StartedAt)
		if total <= 0 {
			continue
		}
		if float64(m.Deadline.Sub(now))/float64(total) < atRiskRatio {
			return domain.SlaStateAtRisk
		}
	}
	return domain.SlaStateOnTrack
}

// RemainingHours is zero for completed milestones and deadline minus now
// otherwise, negative when overdue.
func RemainingHours(m domain.Milestone, now time.Time) float64 {
	if m.Done() {
		return 0
	}
	return m.Deadline.Sub(now).Hours()
}

// MilestoneView is the read model of one milestone.
type MilestoneView struct {
	Kind           domain.MilestoneKind `json:"kind"`
	Deadline       time.Time            `json:"deadline"`
	CompletedAt    *time.Time           `json:"completed_at,omitempty"`
	Breached       bool                 `json:"breached"`
	RemainingHours float64              `json:"remaining_hours"`
}

// View is the read model of a ticket's SLA.
type View struct {
	TicketID      string          `json:"ticket_id"`
	PolicyID      string          `json:"policy_id"`
	PolicyName    string          `json:"policy_name"`
	State         domain.SlaState `json:"state"`
	StartedAt     time.Time       `json:"started_at"`
	FirstResponse MilestoneView   `json:"first_response"`
	Resolution    MilestoneView   `json:"resolution"`
}

// NewView builds the read model at now.
func NewView(status *domain.SlaStatus, now time.Time, atRiskRatio float64) View {
	milestone := func(kind domain.MilestoneKind) MilestoneView {
		m := *status.Milestone(kind)
		return MilestoneView{
			Kind:           kind,
			Deadline:       m.Deadline,
			CompletedAt:    m.CompletedAt,
			Breached:       m.Breached,
			RemainingHours: RemainingHours(m, now),
		}
	}
	return View{
		TicketID:      status.TicketID,
		PolicyID:      status.PolicyID,
		PolicyName:    status.PolicyName,
		State:         ComputeState(status, now, atRiskRatio),
		StartedAt:     status.StartedAt,
		FirstResponse: milestone(domain.MilestoneFirstResponse),
		Resolution:    milestone(domain.MilestoneResolution),
	}
}
