package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ouvidoria-service/internal/domain"
)

// PendingEmailFilter narrows the outbox listing.
type PendingEmailFilter struct {
	UnsentOnly bool
	Limit      int
}

// PendingEmailRepository persists the outgoing email outbox.
type PendingEmailRepository interface {
	Create(ctx context.Context, email *domain.PendingEmail) error
	GetByID(ctx context.Context, id string) (*domain.PendingEmail, error)
	List(ctx context.Context, filter PendingEmailFilter) ([]domain.PendingEmail, error)
	ListDeliverable(ctx context.Context, maxAttempts, limit int) ([]domain.PendingEmail, error)
	RecordAttempt(ctx context.Context, id string, deliveryErr error) error
	MarkSent(ctx context.Context, id string) (*domain.PendingEmail, error)
}

const pendingEmailColumns = `id, recipient, name, subject, html_body, protocol, status, attempts, last_error,
               sent, requested_at, sent_at`

type pendingEmailRepository struct {
	pool *pgxpool.Pool
}

// NewPendingEmailRepository builds repository.
func NewPendingEmailRepository(pool *pgxpool.Pool) PendingEmailRepository {
	return &pendingEmailRepository{pool: pool}
}

func (r *pendingEmailRepository) Create(ctx context.Context, email *domain.PendingEmail) error {
	const query = `
        INSERT INTO pending_emails (recipient, name, subject, html_body, protocol, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, requested_at`
	return r.pool.QueryRow(ctx, query,
		email.Recipient,
		email.Name,
		email.Subject,
		email.HTMLBody,
		email.Protocol,
		email.Status,
	).Scan(&email.ID, &email.RequestedAt)
}

func (r *pendingEmailRepository) GetByID(ctx context.Context, id string) (*domain.PendingEmail, error) {
	return scanPendingEmail(r.pool.QueryRow(ctx, `SELECT `+pendingEmailColumns+` FROM pending_emails WHERE id=$1`, id))
}

func (r *pendingEmailRepository) List(ctx context.Context, filter PendingEmailFilter) ([]domain.PendingEmail, error) {
	query := `SELECT ` + pendingEmailColumns + ` FROM pending_emails`
	if filter.UnsentOnly {
		query += ` WHERE NOT sent`
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` ORDER BY requested_at DESC LIMIT %d`, limit)
	return r.query(ctx, query)
}

// ListDeliverable returns unsent emails that still have attempts left, oldest first.
func (r *pendingEmailRepository) ListDeliverable(ctx context.Context, maxAttempts, limit int) ([]domain.PendingEmail, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + pendingEmailColumns + ` FROM pending_emails
        WHERE NOT sent AND attempts < $1
        ORDER BY requested_at ASC LIMIT $2`
	return r.query(ctx, query, maxAttempts, limit)
}

// RecordAttempt bumps the attempt counter. A nil deliveryErr marks the email sent.
func (r *pendingEmailRepository) RecordAttempt(ctx context.Context, id string, deliveryErr error) error {
	var (
		query string
		args  []any
	)
	if deliveryErr == nil {
		query = `UPDATE pending_emails SET attempts=attempts+1, sent=TRUE, sent_at=NOW(), last_error=NULL WHERE id=$1`
		args = []any{id}
	} else {
		query = `UPDATE pending_emails SET attempts=attempts+1, last_error=$2 WHERE id=$1`
		args = []any{id, deliveryErr.Error()}
	}
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pendingEmailRepository) MarkSent(ctx context.Context, id string) (*domain.PendingEmail, error) {
	query := `UPDATE pending_emails SET sent=TRUE, sent_at=COALESCE(sent_at, NOW())
        WHERE id=$1
        RETURNING ` + pendingEmailColumns
	return scanPendingEmail(r.pool.QueryRow(ctx, query, id))
}

func (r *pendingEmailRepository) query(ctx context.Context, query string, args ...any) ([]domain.PendingEmail, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.PendingEmail{}
	for rows.Next() {
		email, err := scanPendingEmail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *email)
	}
	return result, rows.Err()
}

func scanPendingEmail(row pgx.Row) (*domain.PendingEmail, error) {
	var email domain.PendingEmail
	if err := row.Scan(
		&email.ID,
		&email.Recipient,
		&email.Name,
		&email.Subject,
		&email.HTMLBody,
		&email.Protocol,
		&email.Status,
		&email.Attempts,
		&email.LastError,
		&email.Sent,
		&email.RequestedAt,
		&email.SentAt,
	); err != nil {
		return nil, err
	}
	return &email, nil
}
