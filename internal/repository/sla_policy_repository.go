package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// SlaPolicyRepository stores SLA policies.
type SlaPolicyRepository interface {
	Upsert(ctx context.Context, policy *domain.SlaPolicy) error
	GetByID(ctx context.Context, id string) (*domain.SlaPolicy, error)
	List(ctx context.Context) ([]domain.SlaPolicy, error)
	// ListActive returns active policies ordered by ascending sequence.
	ListActive(ctx context.Context) ([]domain.SlaPolicy, error)
	Delete(ctx context.Context, id string) error
}

type slaPolicyRepository struct {
	pool *pgxpool.Pool
}

// NewSlaPolicyRepository builds repository.
func NewSlaPolicyRepository(pool *pgxpool.Pool) SlaPolicyRepository {
	return &slaPolicyRepository{pool: pool}
}

const policyColumns = `id, name, sequence, active, team_id, min_priority, category_id, type_id,
       first_response_hours, resolution_hours, calendar_id, escalate_on_breach, notify_user_ids,
       created_at, updated_at`

func (r *slaPolicyRepository) Upsert(ctx context.Context, policy *domain.SlaPolicy) error {
	if policy.NotifyUserIDs == nil {
		policy.NotifyUserIDs = []string{}
	}
	var minPriority *string
	if policy.MinPriority != nil {
		p := string(*policy.MinPriority)
		minPriority = &p
	}
	const query = `
        INSERT INTO sla_policies (id, name, sequence, active, team_id, min_priority, category_id, type_id,
            first_response_hours, resolution_hours, calendar_id, escalate_on_breach, notify_user_ids)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        ON CONFLICT (id) DO UPDATE SET
            name=EXCLUDED.name, sequence=EXCLUDED.sequence, active=EXCLUDED.active,
            team_id=EXCLUDED.team_id, min_priority=EXCLUDED.min_priority,
            category_id=EXCLUDED.category_id, type_id=EXCLUDED.type_id,
            first_response_hours=EXCLUDED.first_response_hours, resolution_hours=EXCLUDED.resolution_hours,
            calendar_id=EXCLUDED.calendar_id, escalate_on_breach=EXCLUDED.escalate_on_breach,
            notify_user_ids=EXCLUDED.notify_user_ids, updated_at=NOW()
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		policy.ID,
		policy.Name,
		policy.Sequence,
		policy.Active,
		policy.TeamID,
		minPriority,
		policy.CategoryID,
		policy.TypeID,
		policy.FirstResponseHours,
		policy.ResolutionHours,
		policy.CalendarID,
		policy.EscalateOnBreach,
		policy.NotifyUserIDs,
	).Scan(&policy.CreatedAt, &policy.UpdatedAt)
}

func (r *slaPolicyRepository) GetByID(ctx context.Context, id string) (*domain.SlaPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM sla_policies WHERE id=$1`
	return scanPolicy(r.pool.QueryRow(ctx, query, id))
}

func (r *slaPolicyRepository) List(ctx context.Context) ([]domain.SlaPolicy, error) {
	return r.list(ctx, `SELECT `+policyColumns+` FROM sla_policies ORDER BY sequence ASC, id ASC`)
}

func (r *slaPolicyRepository) ListActive(ctx context.Context) ([]domain.SlaPolicy, error) {
	return r.list(ctx, `SELECT `+policyColumns+` FROM sla_policies WHERE active ORDER BY sequence ASC, id ASC`)
}

func (r *slaPolicyRepository) Delete(ctx context.Context, id string) error {
	return execDelete(ctx, r.pool, `DELETE FROM sla_policies WHERE id=$1`, id)
}

func (r *slaPolicyRepository) list(ctx context.Context, query string) ([]domain.SlaPolicy, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SlaPolicy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *policy)
	}
	return result, rows.Err()
}

func scanPolicy(row pgx.Row) (*domain.SlaPolicy, error) {
	var (
		policy      domain.SlaPolicy
		minPriority *string
	)
	if err := row.Scan(
		&policy.ID,
		&policy.Name,
		&policy.Sequence,
		&policy.Active,
		&policy.TeamID,
		&minPriority,
		&policy.CategoryID,
		&policy.TypeID,
		&policy.FirstResponseHours,
		&policy.ResolutionHours,
		&policy.CalendarID,
		&policy.EscalateOnBreach,
		&policy.NotifyUserIDs,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if minPriority != nil {
		p := domain.TicketPriority(*minPriority)
		policy.MinPriority = &p
	}
	return &policy, nil
}
