package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// TriggerRepository stores automation triggers.
type TriggerRepository interface {
	Upsert(ctx context.Context, trigger *domain.Trigger) error
	GetByID(ctx context.Context, id string) (*domain.Trigger, error)
	List(ctx context.Context) ([]domain.Trigger, error)
	// ListActiveByEvent returns active triggers for event ordered by sequence.
	ListActiveByEvent(ctx context.Context, event domain.TriggerEvent) ([]domain.Trigger, error)
	Delete(ctx context.Context, id string) error
}

type triggerRepository struct {
	pool *pgxpool.Pool
}

// NewTriggerRepository builds repository.
func NewTriggerRepository(pool *pgxpool.Pool) TriggerRepository {
	return &triggerRepository{pool: pool}
}

const triggerColumns = `id, name, event, sequence, active, condition, actions, created_at, updated_at`

func (r *triggerRepository) Upsert(ctx context.Context, trigger *domain.Trigger) error {
	const query = `
        INSERT INTO triggers (id, name, event, sequence, active, condition, actions)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (id) DO UPDATE SET
            name=EXCLUDED.name, event=EXCLUDED.event, sequence=EXCLUDED.sequence,
            active=EXCLUDED.active, condition=EXCLUDED.condition, actions=EXCLUDED.actions,
            updated_at=NOW()
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		trigger.ID,
		trigger.Name,
		trigger.Event,
		trigger.Sequence,
		trigger.Active,
		trigger.Condition,
		trigger.Actions,
	).Scan(&trigger.CreatedAt, &trigger.UpdatedAt)
}

func (r *triggerRepository) GetByID(ctx context.Context, id string) (*domain.Trigger, error) {
	query := `SELECT ` + triggerColumns + ` FROM triggers WHERE id=$1`
	return scanTrigger(r.pool.QueryRow(ctx, query, id))
}

func (r *triggerRepository) List(ctx context.Context) ([]domain.Trigger, error) {
	return r.list(ctx, `SELECT `+triggerColumns+` FROM triggers ORDER BY event, sequence, id`)
}

func (r *triggerRepository) ListActiveByEvent(ctx context.Context, event domain.TriggerEvent) ([]domain.Trigger, error) {
	return r.list(ctx, `SELECT `+triggerColumns+` FROM triggers WHERE active AND event=$1 ORDER BY sequence, id`, event)
}

func (r *triggerRepository) Delete(ctx context.Context, id string) error {
	return execDelete(ctx, r.pool, `DELETE FROM triggers WHERE id=$1`, id)
}

func (r *triggerRepository) list(ctx context.Context, query string, args ...any) ([]domain.Trigger, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Trigger
	for rows.Next() {
		trigger, err := scanTrigger(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *trigger)
	}
	return result, rows.Err()
}

func scanTrigger(row pgx.Row) (*domain.Trigger, error) {
	var trigger domain.Trigger
	if err := row.Scan(
		&trigger.ID,
		&trigger.Name,
		&trigger.Event,
		&trigger.Sequence,
		&trigger.Active,
		&trigger.Condition,
		&trigger.Actions,
		&trigger.CreatedAt,
		&trigger.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &trigger, nil
}
