package domain

import "time"

// MilestoneKind names a tracked SLA commitment.
type MilestoneKind string

const (
	MilestoneFirstResponse MilestoneKind = "first_response"
	MilestoneResolution    MilestoneKind = "resolution"
)

// MilestoneKinds lists every tracked milestone in scan order.
func MilestoneKinds() []MilestoneKind {
	return []MilestoneKind{MilestoneFirstResponse, MilestoneResolution}
}

// Label returns the human readable milestone name used in notes and activities.
func (k MilestoneKind) Label() string {
	switch k {
	case MilestoneFirstResponse:
		return "First Response"
	case MilestoneResolution:
		return "Resolution"
	default:
		return string(k)
	}
}

// SlaState is the derived health of a ticket's SLA.
type SlaState string

const (
	SlaStateOnTrack   SlaState = "on_track"
	SlaStateAtRisk    SlaState = "at_risk"
	SlaStateBreached  SlaState = "breached"
	SlaStateCompleted SlaState = "completed"
)

// SlaPolicy describes which tickets it applies to and the targets it imposes.
// Unset criteria match any ticket.
type SlaPolicy struct {
	ID                 string          `json:"id" yaml:"id"`
	Name               string          `json:"name" yaml:"name"`
	Sequence           int             `json:"sequence" yaml:"sequence"`
	Active             bool            `json:"active" yaml:"active"`
	TeamID             *string         `json:"team_id,omitempty" yaml:"team_id,omitempty"`
	MinPriority        *TicketPriority `json:"min_priority,omitempty" yaml:"min_priority,omitempty"`
	CategoryID         *string         `json:"category_id,omitempty" yaml:"category_id,omitempty"`
	TypeID             *string         `json:"type_id,omitempty" yaml:"type_id,omitempty"`
	FirstResponseHours float64         `json:"first_response_hours" yaml:"first_response_hours"`
	ResolutionHours    float64         `json:"resolution_hours" yaml:"resolution_hours"`
	CalendarID         *string         `json:"calendar_id,omitempty" yaml:"calendar_id,omitempty"`
	EscalateOnBreach   bool            `json:"escalate_on_breach" yaml:"escalate_on_breach"`
	NotifyUserIDs      []string        `json:"notify_user_ids,omitempty" yaml:"notify_user_ids,omitempty"`
	CreatedAt          time.Time       `json:"created_at" yaml:"-"`
	UpdatedAt          time.Time       `json:"updated_at" yaml:"-"`
}

// Target returns the working duration allowed for the milestone.
func (p *SlaPolicy) Target(kind MilestoneKind) time.Duration {
	hours := p.ResolutionHours
	if kind == MilestoneFirstResponse {
		hours = p.FirstResponseHours
	}
	return time.Duration(hours * float64(time.Hour))
}

// Milestone tracks a single deadline.
type Milestone struct {
	Deadline    time.Time
	CompletedAt *time.Time
	Breached    bool
}

// Done reports whether the milestone has been satisfied.
func (m Milestone) Done() bool {
	return m.CompletedAt != nil
}

// SlaStatus is the per-ticket SLA record created once at ticket creation.
type SlaStatus struct {
	ID            string
	TicketID      string
	PolicyID      string
	PolicyName    string
	StartedAt     time.Time
	FirstResponse Milestone
	Resolution    Milestone
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Milestone returns the milestone for kind.
func (s *SlaStatus) Milestone(kind MilestoneKind) *Milestone {
	if kind == MilestoneFirstResponse {
		return &s.FirstResponse
	}
	return &s.Resolution
}

// BreachCandidate is one row selected by a breach scan.
type BreachCandidate struct {
	StatusID string
	TicketID string
	PolicyID string
	Deadline time.Time
}
