package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ouvidoria-service/internal/access"
	"github.com/spec-kit/ouvidoria-service/internal/cache"
	"github.com/spec-kit/ouvidoria-service/internal/domain"
	"github.com/spec-kit/ouvidoria-service/internal/repository"
	apperrors "github.com/spec-kit/ouvidoria-service/pkg/util/errorutil"
)

const maxContentKeyLength = 100

// ContentService serves the public portal copy with a read-through cache.
type ContentService struct {
	contents repository.ContentRepository
	cache    *cache.ContentCache
	logger   *zap.Logger
}

// NewContentService creates the service.
func NewContentService(contents repository.ContentRepository, contentCache *cache.ContentCache, logger *zap.Logger) *ContentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentService{contents: contents, cache: contentCache, logger: logger}
}

// List returns every content setting. Cache failures fall back to storage.
func (s *ContentService) List(ctx context.Context) ([]domain.ContentSetting, error) {
	cached, ok, err := s.cache.Get(ctx)
	if err != nil {
		s.logger.Warn("content cache read failed", zap.Error(err))
	}
	if ok {
		return cached, nil
	}

	settings, err := s.contents.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, settings); err != nil {
		s.logger.Warn("content cache write failed", zap.Error(err))
	}
	return settings, nil
}

// Update stores a setting and drops the cached copy.
func (s *ContentService) Update(ctx context.Context, actor *domain.StaffProfile, key, value string, description *string) (*domain.ContentSetting, error) {
	if !access.Can(access.FromStaff(actor), access.CapManageContent) {
		return nil, apperrors.NewForbidden("admin role required")
	}
	key = strings.TrimSpace(key)
	if key == "" || len(key) > maxContentKeyLength {
		return nil, apperrors.NewValidationError("invalid content key", map[string]any{"key": key})
	}

	setting := &domain.ContentSetting{Key: key, Value: value, Description: description}
	if err := s.contents.Upsert(ctx, setting); err != nil {
		return nil, err
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("content cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
	return setting, nil
}
