package dto

import "time"

// ApplyMacroRequest selects the tickets a macro runs on.
type ApplyMacroRequest struct {
	TicketIDs []string `json:"ticket_ids"`
}

// ScanRequest optionally pins the scan clock, for replaying a past instant.
type ScanRequest struct {
	Now *time.Time `json:"now"`
}
