package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ouvidoria-service/internal/config"
	"github.com/spec-kit/ouvidoria-service/internal/domain"
	"github.com/spec-kit/ouvidoria-service/internal/observability"
	"github.com/spec-kit/ouvidoria-service/internal/repository"
	apperrors "github.com/spec-kit/ouvidoria-service/pkg/util/errorutil"
)

const (
	defaultMaxAttempts = 3
	deliverBatchSize   = 50
	asyncSendTimeout   = 30 * time.Second
)

// EmailOutboxService owns the pending email table: it stores rendered
// emails, tries to deliver them and lets admins settle them by hand.
type EmailOutboxService struct {
	emails      repository.PendingEmailRepository
	mailer      Mailer
	from        string
	maxAttempts int
	metrics     *observability.Metrics
	logger      *zap.Logger

	inflight sync.Map
	wg       sync.WaitGroup
}

// NewEmailOutboxService creates the service. A nil mailer keeps every email
// pending for manual delivery.
func NewEmailOutboxService(emails repository.PendingEmailRepository, mailer Mailer, cfg config.NotificationConfig, metrics *observability.Metrics, logger *zap.Logger) *EmailOutboxService {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailOutboxService{
		emails:      emails,
		mailer:      mailer,
		from:        cfg.EmailFrom,
		maxAttempts: maxAttempts,
		metrics:     metrics,
		logger:      logger,
	}
}

// Enqueue stores the email and hands it to a background delivery attempt.
// It returns once the email is stored; the caller never waits on the mailer.
func (s *EmailOutboxService) Enqueue(ctx context.Context, email *domain.PendingEmail) error {
	if err := s.emails.Create(ctx, email); err != nil {
		return fmt.Errorf("store pending email: %w", err)
	}
	if s.mailer == nil {
		return nil
	}

	queued := *email
	s.inflight.Store(queued.ID, struct{}{})
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inflight.Delete(queued.ID)

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), asyncSendTimeout)
		defer cancel()
		if err := s.attempt(sendCtx, &queued); err != nil {
			s.logger.Warn("email delivery failed, left for retry",
				zap.String("email_id", queued.ID),
				zap.String("protocol_number", queued.Protocol),
				zap.Error(err))
		}
	}()
	return nil
}

// Wait blocks until every background delivery started by Enqueue finished.
func (s *EmailOutboxService) Wait() {
	s.wg.Wait()
}

// List returns outbox entries, newest first.
func (s *EmailOutboxService) List(ctx context.Context, unsentOnly bool, limit int) ([]domain.PendingEmail, error) {
	return s.emails.List(ctx, repository.PendingEmailFilter{UnsentOnly: unsentOnly, Limit: limit})
}

// MarkSent settles an email an admin delivered outside the system.
func (s *EmailOutboxService) MarkSent(ctx context.Context, id string) (*domain.PendingEmail, error) {
	if !validID(id) {
		return nil, apperrors.NewNotFound("pending email", map[string]any{"email_id": id})
	}
	email, err := s.emails.MarkSent(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("pending email", map[string]any{"email_id": id})
		}
		return nil, err
	}
	return email, nil
}

// DeliverPending retries unsent emails that still have attempts left.
func (s *EmailOutboxService) DeliverPending(ctx context.Context) (delivered, failed int, err error) {
	if s.mailer == nil {
		return 0, 0, nil
	}
	pending, err := s.emails.ListDeliverable(ctx, s.maxAttempts, deliverBatchSize)
	if err != nil {
		return 0, 0, err
	}
	for i := range pending {
		if ctx.Err() != nil {
			return delivered, failed, ctx.Err()
		}
		if _, busy := s.inflight.Load(pending[i].ID); busy {
			continue
		}
		if attemptErr := s.attempt(ctx, &pending[i]); attemptErr != nil {
			failed++
			s.logger.Warn("pending email delivery failed",
				zap.String("email_id", pending[i].ID),
				zap.String("protocol_number", pending[i].Protocol),
				zap.Int("attempts", pending[i].Attempts+1),
				zap.Error(attemptErr))
			continue
		}
		delivered++
	}
	return delivered, failed, nil
}

// MaxAttempts is the delivery attempt cap per email.
func (s *EmailOutboxService) MaxAttempts() int {
	return s.maxAttempts
}

func (s *EmailOutboxService) attempt(ctx context.Context, email *domain.PendingEmail) error {
	sendErr := s.mailer.Send(ctx, OutgoingEmail{
		From:     s.from,
		To:       email.Recipient,
		Name:     email.Name,
		Subject:  email.Subject,
		HTML:     email.HTMLBody,
		Protocol: email.Protocol,
		Status:   string(email.Status),
	})
	if err := s.emails.RecordAttempt(ctx, email.ID, sendErr); err != nil {
		s.logger.Error("record email attempt", zap.String("email_id", email.ID), zap.Error(err))
	}
	if sendErr != nil {
		return sendErr
	}
	s.metrics.RecordEmailDelivered()
	return nil
}
