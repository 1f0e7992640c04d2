package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ouvidoria-service/internal/domain"
)

// TicketFilter captures queue listing parameters. A zero Limit lists everything.
type TicketFilter struct {
	Statuses []domain.TicketStatus
	Limit    int
	Offset   int
}

// TicketMutation edits a locked ticket in place and returns the history entries
// describing the change. Returning no entries leaves the row untouched.
type TicketMutation func(ticket *domain.Ticket) ([]domain.HistoryEvent, error)

// ReopenCondition is the predicate a contest must satisfy at write time.
type ReopenCondition struct {
	From       domain.TicketStatus
	To         domain.TicketStatus
	MaxReopens int
	Types      []domain.TicketType
}

// EntersReopened reports whether a status write is a transition into Reaberto.
// Every such transition counts toward the reopen cap, whoever makes it.
func EntersReopened(from, to domain.TicketStatus) bool {
	return to == domain.TicketStatusReopened && from != domain.TicketStatusReopened
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket, created *domain.HistoryEvent) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByProtocol(ctx context.Context, protocol string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	UpdateStaffFields(ctx context.Context, id string, mutate TicketMutation) (*domain.Ticket, error)
	ContestReopen(ctx context.Context, id string, cond ReopenCondition, event *domain.HistoryEvent) (*domain.Ticket, error)
}

const ticketColumns = `id, protocol_number, ticket_type, is_anonymous, full_name, whatsapp_contact, email,
               campus, description, status, resolution_summary, responsible_agent, reopen_count,
               due_date, created_at, updated_at`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket, created *domain.HistoryEvent) error {
	const query = `
        INSERT INTO tickets (protocol_number, ticket_type, is_anonymous, full_name, whatsapp_contact, email,
                             campus, description, status, due_date, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)
        RETURNING id, updated_at`
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, query,
			ticket.ProtocolNumber,
			ticket.Type,
			ticket.IsAnonymous,
			ticket.FullName,
			ticket.WhatsappContact,
			ticket.Email,
			ticket.Campus,
			ticket.Description,
			ticket.Status,
			ticket.DueDate,
			ticket.CreatedAt,
		).Scan(&ticket.ID, &ticket.UpdatedAt); err != nil {
			return mapWriteError(err)
		}
		if created == nil {
			return nil
		}
		created.TicketID = ticket.ID
		return insertHistory(ctx, tx, created)
	})
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return scanTicket(r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id))
}

func (r *ticketRepository) GetByProtocol(ctx context.Context, protocol string) (*domain.Ticket, error) {
	return scanTicket(r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE protocol_number=$1`, protocol))
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets`
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		query += fmt.Sprintf(" WHERE status IN (%s)", strings.Join(placeholders, ","))
	}
	query += " ORDER BY created_at ASC, id ASC"
	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) UpdateStaffFields(ctx context.Context, id string, mutate TicketMutation) (*domain.Ticket, error) {
	const update = `
        UPDATE tickets SET status=$1, resolution_summary=$2, responsible_agent=$3, reopen_count=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	var updated *domain.Ticket
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		ticket, err := scanTicket(tx.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		previous := ticket.Status
		entries, err := mutate(ticket)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			if EntersReopened(previous, ticket.Status) {
				ticket.ReopenCount++
			}
			if err := tx.QueryRow(ctx, update,
				ticket.Status,
				ticket.ResolutionSummary,
				ticket.ResponsibleAgent,
				ticket.ReopenCount,
				ticket.ID,
			).Scan(&ticket.UpdatedAt); err != nil {
				return err
			}
			for i := range entries {
				entries[i].TicketID = ticket.ID
				if err := insertHistory(ctx, tx, &entries[i]); err != nil {
					return err
				}
			}
		}
		updated = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *ticketRepository) ContestReopen(ctx context.Context, id string, cond ReopenCondition, event *domain.HistoryEvent) (*domain.Ticket, error) {
	const query = `
        UPDATE tickets SET status=$2, reopen_count=reopen_count+1, updated_at=NOW()
        WHERE id=$1 AND status=$3 AND reopen_count < $4 AND ticket_type = ANY($5)
        RETURNING ` + ticketColumns
	types := make([]string, len(cond.Types))
	for i, t := range cond.Types {
		types[i] = string(t)
	}

	var reopened *domain.Ticket
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		ticket, err := scanTicket(tx.QueryRow(ctx, query, id, cond.To, cond.From, cond.MaxReopens, types))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrConditionFailed
			}
			return err
		}
		if event != nil {
			event.TicketID = ticket.ID
			if err := insertHistory(ctx, tx, event); err != nil {
				return err
			}
		}
		reopened = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reopened, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.ProtocolNumber,
		&ticket.Type,
		&ticket.IsAnonymous,
		&ticket.FullName,
		&ticket.WhatsappContact,
		&ticket.Email,
		&ticket.Campus,
		&ticket.Description,
		&ticket.Status,
		&ticket.ResolutionSummary,
		&ticket.ResponsibleAgent,
		&ticket.ReopenCount,
		&ticket.DueDate,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if ticket.IsAnonymous {
		ticket.StripIdentity()
	}
	return &ticket, nil
}
