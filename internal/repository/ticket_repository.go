package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// ChangeAuthor identifies who committed a ticket mutation.
type ChangeAuthor struct {
	Type   domain.MessageAuthorType
	ID     *string
	Source string
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// ApplyMutation commits the mutation and its history row in one
	// transaction and returns the ticket before and after the change.
	ApplyMutation(ctx context.Context, ticketID string, mutation domain.TicketMutation, author ChangeAuthor) (*domain.Ticket, *domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `t.id, t.ticket_no, t.subject, t.customer_id, t.team_id, COALESCE(tm.name, ''),
       t.category_id, t.type_id, t.assignee_id, t.state, t.priority, t.tags, t.created_at, t.updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.Tags == nil {
		ticket.Tags = []string{}
	}
	var createdAt *time.Time
	if !ticket.CreatedAt.IsZero() {
		createdAt = &ticket.CreatedAt
	}
	const query = `
        INSERT INTO tickets (id, ticket_no, subject, customer_id, team_id, category_id, type_id, assignee_id, state, priority, tags, created_at)
        VALUES (COALESCE(NULLIF($1, ''), gen_random_uuid()::text), $2,$3,$4,$5,$6,$7,$8,$9,$10,$11, COALESCE($12, NOW()))
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.Number,
		ticket.Subject,
		ticket.CustomerID,
		ticket.TeamID,
		ticket.CategoryID,
		ticket.TypeID,
		ticket.AssigneeID,
		ticket.State,
		ticket.Priority,
		ticket.Tags,
		createdAt,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets t LEFT JOIN teams tm ON tm.id = t.team_id
        WHERE t.id = $1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) ApplyMutation(ctx context.Context, ticketID string, mutation domain.TicketMutation, author ChangeAuthor) (*domain.Ticket, *domain.Ticket, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `SELECT ` + ticketColumns + `
        FROM tickets t LEFT JOIN teams tm ON tm.id = t.team_id
        WHERE t.id = $1
        FOR UPDATE OF t`
	before, err := scanTicket(tx.QueryRow(ctx, query, ticketID))
	if err != nil {
		return nil, nil, err
	}

	after := *before
	after.Tags = append([]string(nil), before.Tags...)
	mutation.ApplyTo(&after)

	const update = `
        UPDATE tickets SET state=$1, priority=$2, assignee_id=$3, tags=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	if err := tx.QueryRow(ctx, update,
		after.State,
		after.Priority,
		after.AssigneeID,
		after.Tags,
		ticketID,
	).Scan(&after.UpdatedAt); err != nil {
		return nil, nil, fmt.Errorf("update ticket: %w", err)
	}

	history := BuildHistory(before, &after, author)
	if history != nil {
		const insert = `
            INSERT INTO ticket_history (ticket_id, changed_by_type, changed_by_id, change_type, source, old_value, new_value)
            VALUES ($1,$2,$3,$4,$5,$6,$7)`
		if _, err := tx.Exec(ctx, insert,
			history.TicketID,
			history.ChangedByType,
			history.ChangedByID,
			history.ChangeType,
			history.Source,
			history.OldValue,
			history.NewValue,
		); err != nil {
			return nil, nil, fmt.Errorf("insert ticket history: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return before, &after, nil
}

// BuildHistory diffs two ticket snapshots into a history entry, or nil when
// nothing changed.
func BuildHistory(before, after *domain.Ticket, author ChangeAuthor) *domain.TicketHistory {
	oldValue := map[string]any{}
	newValue := map[string]any{}
	var changed []domain.TicketChangeType

	if before.State != after.State {
		oldValue["state"], newValue["state"] = before.State, after.State
		changed = append(changed, domain.ChangeTypeStatus)
	}
	if before.Priority != after.Priority {
		oldValue["priority"], newValue["priority"] = before.Priority, after.Priority
		changed = append(changed, domain.ChangeTypePriority)
	}
	if deref(before.AssigneeID) != deref(after.AssigneeID) {
		oldValue["assignee_id"], newValue["assignee_id"] = before.AssigneeID, after.AssigneeID
		changed = append(changed, domain.ChangeTypeAssignee)
	}
	if !sameTags(before.Tags, after.Tags) {
		oldValue["tags"], newValue["tags"] = before.Tags, after.Tags
		changed = append(changed, domain.ChangeTypeTags)
	}
	if len(changed) == 0 {
		return nil
	}

	changeType := domain.ChangeTypeBatch
	if len(changed) == 1 {
		changeType = changed[0]
	}
	return &domain.TicketHistory{
		TicketID:      before.ID,
		ChangedByType: author.Type,
		ChangedByID:   author.ID,
		ChangeType:    changeType,
		Source:        author.Source,
		OldValue:      oldValue,
		NewValue:      newValue,
	}
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.Subject,
		&ticket.CustomerID,
		&ticket.TeamID,
		&ticket.TeamName,
		&ticket.CategoryID,
		&ticket.TypeID,
		&ticket.AssigneeID,
		&ticket.State,
		&ticket.Priority,
		&ticket.Tags,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func sameTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, tag := range a {
		seen[tag]++
	}
	for _, tag := range b {
		if seen[tag] == 0 {
			return false
		}
		seen[tag]--
	}
	return true
}
