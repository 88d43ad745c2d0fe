package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// CalendarRepository stores business calendar configuration.
type CalendarRepository interface {
	Upsert(ctx context.Context, cal *domain.BusinessCalendar) error
	GetByID(ctx context.Context, id string) (*domain.BusinessCalendar, error)
	List(ctx context.Context) ([]domain.BusinessCalendar, error)
	Delete(ctx context.Context, id string) error
}

type calendarRepository struct {
	pool *pgxpool.Pool
}

// NewCalendarRepository builds repository.
func NewCalendarRepository(pool *pgxpool.Pool) CalendarRepository {
	return &calendarRepository{pool: pool}
}

const calendarColumns = `id, name, timezone, windows, holidays, created_at, updated_at`

func (r *calendarRepository) Upsert(ctx context.Context, cal *domain.BusinessCalendar) error {
	if cal.Windows == nil {
		cal.Windows = []domain.WorkingWindow{}
	}
	if cal.Holidays == nil {
		cal.Holidays = []domain.HolidayRange{}
	}
	const query = `
        INSERT INTO business_calendars (id, name, timezone, windows, holidays)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (id) DO UPDATE SET
            name=EXCLUDED.name, timezone=EXCLUDED.timezone, windows=EXCLUDED.windows,
            holidays=EXCLUDED.holidays, updated_at=NOW()
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		cal.ID,
		cal.Name,
		cal.Timezone,
		cal.Windows,
		cal.Holidays,
	).Scan(&cal.CreatedAt, &cal.UpdatedAt)
}

func (r *calendarRepository) GetByID(ctx context.Context, id string) (*domain.BusinessCalendar, error) {
	query := `SELECT ` + calendarColumns + ` FROM business_calendars WHERE id=$1`
	return scanCalendar(r.pool.QueryRow(ctx, query, id))
}

func (r *calendarRepository) List(ctx context.Context) ([]domain.BusinessCalendar, error) {
	query := `SELECT ` + calendarColumns + ` FROM business_calendars ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.BusinessCalendar
	for rows.Next() {
		cal, err := scanCalendar(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *cal)
	}
	return result, rows.Err()
}

func (r *calendarRepository) Delete(ctx context.Context, id string) error {
	return execDelete(ctx, r.pool, `DELETE FROM business_calendars WHERE id=$1`, id)
}

func scanCalendar(row pgx.Row) (*domain.BusinessCalendar, error) {
	var cal domain.BusinessCalendar
	if err := row.Scan(
		&cal.ID,
		&cal.Name,
		&cal.Timezone,
		&cal.Windows,
		&cal.Holidays,
		&cal.CreatedAt,
		&cal.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &cal, nil
}

func execDelete(ctx context.Context, pool *pgxpool.Pool, query, id string) error {
	cmd, err := pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
