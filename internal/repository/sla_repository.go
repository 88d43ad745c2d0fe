package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// BreachCursor is the keyset position of a breach scan page.
type BreachCursor struct {
	Deadline time.Time
	StatusID string
}

// IsZero reports whether the cursor points at the start of the scan.
func (c BreachCursor) IsZero() bool {
	return c.StatusID == ""
}

// SlaStatusRepository persists per-ticket SLA records.
type SlaStatusRepository interface {
	// Create inserts the status unless the ticket already has one. It reports
	// whether a row was written.
	Create(ctx context.Context, status *domain.SlaStatus) (bool, error)
	GetByTicket(ctx context.Context, ticketID string) (*domain.SlaStatus, error)
	// CompleteMilestone sets completed_at only if it is unset.
	CompleteMilestone(ctx context.Context, ticketID string, kind domain.MilestoneKind, at time.Time) (bool, error)
	// ListBreachCandidates returns overdue, uncompleted, unflagged milestones of
	// non-terminal tickets ordered by (deadline, id) after the cursor.
	ListBreachCandidates(ctx context.Context, kind domain.MilestoneKind, now time.Time, after BreachCursor, limit int) ([]domain.BreachCandidate, error)
	// MarkBreached flips the breached flag if the milestone is still eligible.
	// Exactly one concurrent caller observes true.
	MarkBreached(ctx context.Context, statusID string, kind domain.MilestoneKind, now time.Time) (bool, error)
}

type slaStatusRepository struct {
	pool *pgxpool.Pool
}

// NewSlaStatusRepository builds repository.
func NewSlaStatusRepository(pool *pgxpool.Pool) SlaStatusRepository {
	return &slaStatusRepository{pool: pool}
}

// milestoneColumn maps a milestone kind to its column prefix.
func milestoneColumn(kind domain.MilestoneKind) (string, error) {
	switch kind {
	case domain.MilestoneFirstResponse:
		return "first_response", nil
	case domain.MilestoneResolution:
		return "resolution", nil
	default:
		return "", fmt.Errorf("unknown milestone %q", kind)
	}
}

func terminalStates() []string {
	states := domain.TerminalStates()
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}

func (r *slaStatusRepository) Create(ctx context.Context, status *domain.SlaStatus) (bool, error) {
	const query = `
        INSERT INTO sla_statuses (ticket_id, policy_id, policy_name, started_at,
            first_response_deadline, resolution_deadline)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (ticket_id) DO NOTHING
        RETURNING id::text, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		status.TicketID,
		status.PolicyID,
		status.PolicyName,
		status.StartedAt,
		status.FirstResponse.Deadline,
		status.Resolution.Deadline,
	).Scan(&status.ID, &status.CreatedAt, &status.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *slaStatusRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.SlaStatus, error) {
	const query = `
        SELECT id::text, ticket_id, policy_id, policy_name, started_at,
               first_response_deadline, first_response_done_at, first_response_breached,
               resolution_deadline, resolution_done_at, resolution_breached,
               created_at, updated_at
        FROM sla_statuses WHERE ticket_id=$1`
	var status domain.SlaStatus
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&status.ID,
		&status.TicketID,
		&status.PolicyID,
		&status.PolicyName,
		&status.StartedAt,
		&status.FirstResponse.Deadline,
		&status.FirstResponse.CompletedAt,
		&status.FirstResponse.Breached,
		&status.Resolution.Deadline,
		&status.Resolution.CompletedAt,
		&status.Resolution.Breached,
		&status.CreatedAt,
		&status.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *slaStatusRepository) CompleteMilestone(ctx context.Context, ticketID string, kind domain.MilestoneKind, at time.Time) (bool, error) {
	col, err := milestoneColumn(kind)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`
        UPDATE sla_statuses SET %[1]s_done_at=$2, updated_at=NOW()
        WHERE ticket_id=$1 AND %[1]s_done_at IS NULL`, col)
	cmd, err := r.pool.Exec(ctx, query, ticketID, at)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *slaStatusRepository) ListBreachCandidates(ctx context.Context, kind domain.MilestoneKind, now time.Time, after BreachCursor, limit int) ([]domain.BreachCandidate, error) {
	col, err := milestoneColumn(kind)
	if err != nil {
		return nil, err
	}
	args := []any{now, terminalStates()}
	keyset := ""
	if !after.IsZero() {
		args = append(args, after.Deadline, after.StatusID)
		keyset = fmt.Sprintf("AND (s.%s_deadline, s.id) > ($3, $4::uuid)", col)
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
        SELECT s.id::text, s.ticket_id, s.policy_id, s.%[1]s_deadline
        FROM sla_statuses s
        JOIN tickets t ON t.id = s.ticket_id
        WHERE s.%[1]s_done_at IS NULL
          AND s.%[1]s_breached = FALSE
          AND s.%[1]s_deadline < $1
          AND t.state <> ALL($2)
          %[2]s
        ORDER BY s.%[1]s_deadline ASC, s.id ASC
        LIMIT $%[3]d`, col, keyset, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.BreachCandidate
	for rows.Next() {
		var c domain.BreachCandidate
		if err := rows.Scan(&c.StatusID, &c.TicketID, &c.PolicyID, &c.Deadline); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *slaStatusRepository) MarkBreached(ctx context.Context, statusID string, kind domain.MilestoneKind, now time.Time) (bool, error) {
	col, err := milestoneColumn(kind)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`
        UPDATE sla_statuses s SET %[1]s_breached=TRUE, updated_at=NOW()
        FROM tickets t
        WHERE s.id=$1
          AND t.id = s.ticket_id
          AND s.%[1]s_breached = FALSE
          AND s.%[1]s_done_at IS NULL
          AND s.%[1]s_deadline < $2
          AND t.state <> ALL($3)`, col)
	cmd, err := r.pool.Exec(ctx, query, statusID, now, terminalStates())
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}
