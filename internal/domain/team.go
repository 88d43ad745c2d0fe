package domain

import "time"

// AutoAssignMode selects how new tickets of a team get an assignee.
type AutoAssignMode string

const (
	AutoAssignManual     AutoAssignMode = "manual"
	AutoAssignRoundRobin AutoAssignMode = "round_robin"
)

// Team groups agents handling tickets.
type Team struct {
	ID                string         `json:"id" yaml:"id"`
	Name              string         `json:"name" yaml:"name"`
	LeaderID          *string        `json:"leader_id,omitempty" yaml:"leader_id,omitempty"`
	DefaultAssigneeID *string        `json:"default_assignee_id,omitempty" yaml:"default_assignee_id,omitempty"`
	MemberIDs         []string       `json:"member_ids,omitempty" yaml:"member_ids,omitempty"`
	AutoAssignMode    AutoAssignMode `json:"auto_assign_mode" yaml:"auto_assign_mode"`
	LastAssignedIndex int64          `json:"last_assigned_index" yaml:"-"`
	IsActive          bool           `json:"is_active" yaml:"is_active"`
	CreatedAt         time.Time      `json:"created_at" yaml:"-"`
	UpdatedAt         time.Time      `json:"updated_at" yaml:"-"`
}

// Fallback returns the assignee used when the team has no members.
func (t *Team) Fallback() *string {
	if t.DefaultAssigneeID != nil {
		return t.DefaultAssigneeID
	}
	return t.LeaderID
}
