package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ouvidoria-service/internal/domain"
)

// StaffRepository handles roster profiles and the credentials bound to them.
type StaffRepository interface {
	CreateWithCredential(ctx context.Context, profile *domain.StaffProfile) error
	Update(ctx context.Context, profile *domain.StaffProfile) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	GetByID(ctx context.Context, id string) (*domain.StaffProfile, error)
	GetByUserID(ctx context.Context, userID string) (*domain.StaffProfile, error)
	GetByEmail(ctx context.Context, email string) (*domain.StaffProfile, error)
	List(ctx context.Context, filter StaffFilter) ([]domain.StaffProfile, error)
	DeleteWithCredential(ctx context.Context, id string) error
}

// StaffFilter defines query params for roster listing.
type StaffFilter struct {
	Roles  []domain.StaffRole
	Limit  int
	Offset int
}

const staffSelect = `
        SELECT p.id, p.user_id, p.full_name, c.email, c.password_hash, p.role, p.created_at, p.updated_at
        FROM staff_profiles p
        JOIN staff_credentials c ON c.id = p.user_id`

type staffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(pool *pgxpool.Pool) StaffRepository {
	return &staffRepository{pool: pool}
}

// CreateWithCredential inserts the login credential and the roster profile in
// one transaction so neither exists without the other.
func (r *staffRepository) CreateWithCredential(ctx context.Context, profile *domain.StaffProfile) error {
	const credential = `
        INSERT INTO staff_credentials (email, password_hash)
        VALUES ($1,$2)
        RETURNING id`
	const query = `
        INSERT INTO staff_profiles (user_id, full_name, role)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, credential, profile.Email, profile.PasswordHash).Scan(&profile.UserID); err != nil {
			return mapWriteError(err)
		}
		return tx.QueryRow(ctx, query,
			profile.UserID,
			profile.FullName,
			profile.Role,
		).Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt)
	})
}

func (r *staffRepository) Update(ctx context.Context, profile *domain.StaffProfile) error {
	const query = `
        UPDATE staff_profiles SET full_name=$1, role=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query, profile.FullName, profile.Role, profile.ID).Scan(&profile.UpdatedAt)
}

func (r *staffRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE staff_credentials SET password_hash=$1, updated_at=NOW() WHERE id=$2`, passwordHash, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *staffRepository) GetByID(ctx context.Context, id string) (*domain.StaffProfile, error) {
	return scanStaff(r.pool.QueryRow(ctx, staffSelect+` WHERE p.id=$1`, id))
}

func (r *staffRepository) GetByUserID(ctx context.Context, userID string) (*domain.StaffProfile, error) {
	return scanStaff(r.pool.QueryRow(ctx, staffSelect+` WHERE p.user_id=$1`, userID))
}

func (r *staffRepository) GetByEmail(ctx context.Context, email string) (*domain.StaffProfile, error) {
	return scanStaff(r.pool.QueryRow(ctx, staffSelect+` WHERE LOWER(c.email)=LOWER($1)`, email))
}

func (r *staffRepository) List(ctx context.Context, filter StaffFilter) ([]domain.StaffProfile, error) {
	query := staffSelect
	args := []any{}
	if len(filter.Roles) > 0 {
		roles := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			roles[i] = string(role)
		}
		args = append(args, roles)
		query += fmt.Sprintf(" WHERE p.role = ANY($%d)", len(args))
	}
	query += " ORDER BY p.created_at DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.StaffProfile{}
	for rows.Next() {
		profile, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *profile)
	}
	return result, rows.Err()
}

// DeleteWithCredential removes the credential, which cascades to the profile.
// Tickets and notes keep their rows with the staff reference cleared.
func (r *staffRepository) DeleteWithCredential(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var userID string
		if err := tx.QueryRow(ctx, `SELECT user_id FROM staff_profiles WHERE id=$1 FOR UPDATE`, id).Scan(&userID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM staff_profiles WHERE id=$1`, id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM staff_credentials WHERE id=$1`, userID)
		return err
	})
}

func scanStaff(row pgx.Row) (*domain.StaffProfile, error) {
	var profile domain.StaffProfile
	if err := row.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FullName,
		&profile.Email,
		&profile.PasswordHash,
		&profile.Role,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &profile, nil
}
