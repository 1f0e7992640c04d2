package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ouvidoria-service/internal/domain"
)

// TicketNoteRepository manages internal staff notes.
type TicketNoteRepository interface {
	Create(ctx context.Context, note *domain.Note, event *domain.HistoryEvent) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Note, error)
}

type ticketNoteRepository struct {
	pool *pgxpool.Pool
}

// NewTicketNoteRepository builds repository.
func NewTicketNoteRepository(pool *pgxpool.Pool) TicketNoteRepository {
	return &ticketNoteRepository{pool: pool}
}

// Create stores the note and its note_added history entry together.
func (r *ticketNoteRepository) Create(ctx context.Context, note *domain.Note, event *domain.HistoryEvent) error {
	const query = `
        INSERT INTO ticket_notes (ticket_id, author_id, body)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, query,
			note.TicketID,
			note.AuthorID,
			note.Body,
		).Scan(&note.ID, &note.CreatedAt); err != nil {
			return err
		}
		if event == nil {
			return nil
		}
		event.TicketID = note.TicketID
		return insertHistory(ctx, tx, event)
	})
}

func (r *ticketNoteRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Note, error) {
	const query = `
        SELECT n.id, n.ticket_id, n.author_id, p.full_name, n.body, n.created_at
        FROM ticket_notes n
        LEFT JOIN staff_profiles p ON p.id = n.author_id
        WHERE n.ticket_id=$1 ORDER BY n.created_at ASC, n.id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Note{}
	for rows.Next() {
		var note domain.Note
		if err := rows.Scan(
			&note.ID,
			&note.TicketID,
			&note.AuthorID,
			&note.AuthorName,
			&note.Body,
			&note.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, note)
	}
	return result, rows.Err()
}
