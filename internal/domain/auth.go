package domain

// SubjectType differentiates staff and service tokens.
type SubjectType string

const (
	SubjectTypeStaff   SubjectType = "STAFF"
	SubjectTypeService SubjectType = "SERVICE"
)

// StaffRole enumerates internal operator roles.
type StaffRole string

const (
	StaffRoleAgent    StaffRole = "AGENT"
	StaffRoleTeamLead StaffRole = "TEAM_LEAD"
	StaffRoleAdmin    StaffRole = "ADMIN"
)

// Valid reports whether r is a known role.
func (r StaffRole) Valid() bool {
	switch r {
	case StaffRoleAgent, StaffRoleTeamLead, StaffRoleAdmin:
		return true
	default:
		return false
	}
}
