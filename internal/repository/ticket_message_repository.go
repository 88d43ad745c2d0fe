package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// TicketMessageRepository manages ticket thread messages.
type TicketMessageRepository interface {
	Create(ctx context.Context, msg *domain.TicketMessage) error
	GetByID(ctx context.Context, id string) (*domain.TicketMessage, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error)
}

type ticketMessageRepository struct {
	pool *pgxpool.Pool
}

// NewTicketMessageRepository builds repository.
func NewTicketMessageRepository(pool *pgxpool.Pool) TicketMessageRepository {
	return &ticketMessageRepository{pool: pool}
}

const messageColumns = `id::text, ticket_id, author_type, author_id, message_type, body, created_at`

func (r *ticketMessageRepository) Create(ctx context.Context, msg *domain.TicketMessage) error {
	const query = `
        INSERT INTO ticket_messages (ticket_id, author_type, author_id, message_type, body)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id::text, created_at`
	return r.pool.QueryRow(ctx, query,
		msg.TicketID,
		msg.AuthorType,
		msg.AuthorID,
		msg.MessageType,
		msg.Body,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *ticketMessageRepository) GetByID(ctx context.Context, id string) (*domain.TicketMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM ticket_messages WHERE id=$1`
	var msg domain.TicketMessage
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&msg.ID,
		&msg.TicketID,
		&msg.AuthorType,
		&msg.AuthorID,
		&msg.MessageType,
		&msg.Body,
		&msg.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *ticketMessageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM ticket_messages WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketMessage
	for rows.Next() {
		var msg domain.TicketMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.AuthorType,
			&msg.AuthorID,
			&msg.MessageType,
			&msg.Body,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
