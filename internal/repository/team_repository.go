package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// TeamRepository manages persistence for teams.
type TeamRepository interface {
	Upsert(ctx context.Context, team *domain.Team) error
	GetByID(ctx context.Context, id string) (*domain.Team, error)
	List(ctx context.Context) ([]domain.Team, error)
	// AdvanceRoundRobin atomically increments the team's assignment cursor and
	// returns the value it held before the increment.
	AdvanceRoundRobin(ctx context.Context, teamID string) (int64, error)
}

type teamRepository struct {
	pool *pgxpool.Pool
}

// NewTeamRepository constructs repository.
func NewTeamRepository(pool *pgxpool.Pool) TeamRepository {
	return &teamRepository{pool: pool}
}

const teamColumns = `id, name, leader_id, default_assignee_id, member_ids, auto_assign_mode, last_assigned_index, is_active, created_at, updated_at`

func (r *teamRepository) Upsert(ctx context.Context, team *domain.Team) error {
	if team.MemberIDs == nil {
		team.MemberIDs = []string{}
	}
	if team.AutoAssignMode == "" {
		team.AutoAssignMode = domain.AutoAssignManual
	}
	const query = `
        INSERT INTO teams (id, name, leader_id, default_assignee_id, member_ids, auto_assign_mode, is_active)
        VALUES (COALESCE(NULLIF($1, ''), gen_random_uuid()::text), $2, $3, $4, $5, $6, $7)
        ON CONFLICT (id) DO UPDATE SET
            name=EXCLUDED.name, leader_id=EXCLUDED.leader_id, default_assignee_id=EXCLUDED.default_assignee_id,
            member_ids=EXCLUDED.member_ids, auto_assign_mode=EXCLUDED.auto_assign_mode,
            is_active=EXCLUDED.is_active, updated_at=NOW()
        RETURNING id, last_assigned_index, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		team.ID,
		team.Name,
		team.LeaderID,
		team.DefaultAssigneeID,
		team.MemberIDs,
		team.AutoAssignMode,
		team.IsActive,
	).Scan(&team.ID, &team.LastAssignedIndex, &team.CreatedAt, &team.UpdatedAt)
}

func (r *teamRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id=$1`
	return scanTeam(r.pool.QueryRow(ctx, query, id))
}

func (r *teamRepository) List(ctx context.Context) ([]domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *team)
	}
	return result, rows.Err()
}

func (r *teamRepository) AdvanceRoundRobin(ctx context.Context, teamID string) (int64, error) {
	const query = `
        UPDATE teams SET last_assigned_index = last_assigned_index + 1, updated_at=NOW()
        WHERE id=$1
        RETURNING last_assigned_index - 1`
	var previous int64
	if err := r.pool.QueryRow(ctx, query, teamID).Scan(&previous); err != nil {
		return 0, err
	}
	return previous, nil
}

func scanTeam(row pgx.Row) (*domain.Team, error) {
	var team domain.Team
	if err := row.Scan(
		&team.ID,
		&team.Name,
		&team.LeaderID,
		&team.DefaultAssigneeID,
		&team.MemberIDs,
		&team.AutoAssignMode,
		&team.LastAssignedIndex,
		&team.IsActive,
		&team.CreatedAt,
		&team.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &team, nil
}
