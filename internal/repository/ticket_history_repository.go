package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ouvidoria-service/internal/domain"
)

// TicketHistoryRepository stores audit entries.
type TicketHistoryRepository interface {
	Create(ctx context.Context, event *domain.HistoryEvent) error
	ListByTicket(ctx context.Context, ticketID string, publicOnly bool) ([]domain.HistoryEvent, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertHistory(ctx context.Context, q queryRower, event *domain.HistoryEvent) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, action_type, field_name, old_value, new_value, description, actor_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return q.QueryRow(ctx, query,
		event.TicketID,
		event.ActionType,
		event.FieldName,
		event.OldValue,
		event.NewValue,
		event.Description,
		event.ActorID,
	).Scan(&event.ID, &event.CreatedAt)
}

func (r *ticketHistoryRepository) Create(ctx context.Context, event *domain.HistoryEvent) error {
	return insertHistory(ctx, r.pool, event)
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string, publicOnly bool) ([]domain.HistoryEvent, error) {
	query := `
        SELECT id, ticket_id, action_type, field_name, old_value, new_value, description, actor_id, created_at
        FROM ticket_history WHERE ticket_id=$1`
	args := []any{ticketID}
	if publicOnly {
		query += ` AND action_type IN ($2, $3)`
		args = append(args, domain.HistoryActionCreated, domain.HistoryActionStatusChange)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.HistoryEvent{}
	for rows.Next() {
		var event domain.HistoryEvent
		if err := rows.Scan(
			&event.ID,
			&event.TicketID,
			&event.ActionType,
			&event.FieldName,
			&event.OldValue,
			&event.NewValue,
			&event.Description,
			&event.ActorID,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
