package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Set bundles every repository the service depends on.
type Set struct {
	Tickets     TicketRepository
	Messages    TicketMessageRepository
	History     TicketHistoryRepository
	Activities  ActivityRepository
	Teams       TeamRepository
	SlaStatuses SlaStatusRepository
	Policies    SlaPolicyRepository
	Calendars   CalendarRepository
	Triggers    TriggerRepository
	Macros      MacroRepository
}

// NewPostgresSet builds pgx-backed repositories sharing one pool.
func NewPostgresSet(pool *pgxpool.Pool) *Set {
	return &Set{
		Tickets:     NewTicketRepository(pool),
		Messages:    NewTicketMessageRepository(pool),
		History:     NewTicketHistoryRepository(pool),
		Activities:  NewActivityRepository(pool),
		Teams:       NewTeamRepository(pool),
		SlaStatuses: NewSlaStatusRepository(pool),
		Policies:    NewSlaPolicyRepository(pool),
		Calendars:   NewCalendarRepository(pool),
		Triggers:    NewTriggerRepository(pool),
		Macros:      NewMacroRepository(pool),
	}
}
