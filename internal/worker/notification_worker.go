package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ouvidoria-service/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// PendingDeliverer retries undelivered outbox emails.
type PendingDeliverer interface {
	DeliverPending(ctx context.Context) (delivered, failed int, err error)
}

// EmailWorker periodically retries pending emails.
type EmailWorker struct {
	outbox   PendingDeliverer
	interval time.Duration
	logger   *zap.Logger
}

// NewEmailWorker creates the worker. A non-positive interval means one minute.
func NewEmailWorker(outbox PendingDeliverer, interval time.Duration, logger *zap.Logger) *EmailWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailWorker{outbox: outbox, interval: interval, logger: logger}
}

// Start runs until ctx is cancelled, sweeping the outbox once per interval.
func (w *EmailWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.logger.Info("email worker started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("email worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep.
func (w *EmailWorker) RunOnce(ctx context.Context) {
	delivered, failed, err := w.outbox.DeliverPending(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("email outbox sweep failed", zap.Error(err))
		}
		return
	}
	if delivered > 0 || failed > 0 {
		w.logger.Info("email outbox sweep", zap.Int("delivered", delivered), zap.Int("failed", failed))
	}
}
