package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ouvidoria-service/internal/domain"
)

// ContentRepository stores the editable copy of the public portal.
type ContentRepository interface {
	List(ctx context.Context) ([]domain.ContentSetting, error)
	Upsert(ctx context.Context, setting *domain.ContentSetting) error
}

type contentRepository struct {
	pool *pgxpool.Pool
}

// NewContentRepository builds repository.
func NewContentRepository(pool *pgxpool.Pool) ContentRepository {
	return &contentRepository{pool: pool}
}

func (r *contentRepository) List(ctx context.Context) ([]domain.ContentSetting, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, key, value, description, updated_at FROM content_settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.ContentSetting{}
	for rows.Next() {
		setting, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *setting)
	}
	return result, rows.Err()
}

// Upsert writes the value for setting.Key. A nil description keeps the stored one.
func (r *contentRepository) Upsert(ctx context.Context, setting *domain.ContentSetting) error {
	const query = `
        INSERT INTO content_settings (key, value, description)
        VALUES ($1,$2,$3)
        ON CONFLICT (key) DO UPDATE
            SET value=EXCLUDED.value,
                description=COALESCE(EXCLUDED.description, content_settings.description),
                updated_at=NOW()
        RETURNING id, key, value, description, updated_at`
	stored, err := scanContent(r.pool.QueryRow(ctx, query, setting.Key, setting.Value, setting.Description))
	if err != nil {
		return err
	}
	*setting = *stored
	return nil
}

func scanContent(row pgx.Row) (*domain.ContentSetting, error) {
	var setting domain.ContentSetting
	if err := row.Scan(&setting.ID, &setting.Key, &setting.Value, &setting.Description, &setting.UpdatedAt); err != nil {
		return nil, err
	}
	return &setting, nil
}
