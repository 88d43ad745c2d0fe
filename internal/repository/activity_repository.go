package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// ActivityRepository stores follow-up activities scheduled for users.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.Activity) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Activity, error)
}

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository builds repository.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	const query = `
        INSERT INTO activities (ticket_id, user_id, summary, note, due_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id::text, created_at`
	return r.pool.QueryRow(ctx, query,
		activity.TicketID,
		activity.UserID,
		activity.Summary,
		activity.Note,
		activity.DueAt,
	).Scan(&activity.ID, &activity.CreatedAt)
}

func (r *activityRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Activity, error) {
	const query = `
        SELECT id::text, ticket_id, user_id, summary, note, due_at, created_at
        FROM activities WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Activity
	for rows.Next() {
		var activity domain.Activity
		if err := rows.Scan(
			&activity.ID,
			&activity.TicketID,
			&activity.UserID,
			&activity.Summary,
			&activity.Note,
			&activity.DueAt,
			&activity.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, activity)
	}
	return result, rows.Err()
}
