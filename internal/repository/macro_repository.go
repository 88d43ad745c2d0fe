package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// MacroRepository stores operator macros.
type MacroRepository interface {
	Upsert(ctx context.Context, macro *domain.Macro) error
	GetByID(ctx context.Context, id string) (*domain.Macro, error)
	List(ctx context.Context) ([]domain.Macro, error)
	Delete(ctx context.Context, id string) error
}

type macroRepository struct {
	pool *pgxpool.Pool
}

// NewMacroRepository builds repository.
func NewMacroRepository(pool *pgxpool.Pool) MacroRepository {
	return &macroRepository{pool: pool}
}

const macroColumns = `id, name, active, team_ids, actions, created_at, updated_at`

func (r *macroRepository) Upsert(ctx context.Context, macro *domain.Macro) error {
	if macro.TeamIDs == nil {
		macro.TeamIDs = []string{}
	}
	const query = `
        INSERT INTO macros (id, name, active, team_ids, actions)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (id) DO UPDATE SET
            name=EXCLUDED.name, active=EXCLUDED.active, team_ids=EXCLUDED.team_ids,
            actions=EXCLUDED.actions, updated_at=NOW()
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		macro.ID,
		macro.Name,
		macro.Active,
		macro.TeamIDs,
		macro.Actions,
	).Scan(&macro.CreatedAt, &macro.UpdatedAt)
}

func (r *macroRepository) GetByID(ctx context.Context, id string) (*domain.Macro, error) {
	query := `SELECT ` + macroColumns + ` FROM macros WHERE id=$1`
	return scanMacro(r.pool.QueryRow(ctx, query, id))
}

func (r *macroRepository) List(ctx context.Context) ([]domain.Macro, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+macroColumns+` FROM macros ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Macro
	for rows.Next() {
		macro, err := scanMacro(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *macro)
	}
	return result, rows.Err()
}

func (r *macroRepository) Delete(ctx context.Context, id string) error {
	return execDelete(ctx, r.pool, `DELETE FROM macros WHERE id=$1`, id)
}

func scanMacro(row pgx.Row) (*domain.Macro, error) {
	var macro domain.Macro
	if err := row.Scan(
		&macro.ID,
		&macro.Name,
		&macro.Active,
		&macro.TeamIDs,
		&macro.Actions,
		&macro.CreatedAt,
		&macro.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &macro, nil
}
