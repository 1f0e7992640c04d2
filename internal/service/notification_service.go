package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ouvidoria-service/internal/config"
	"github.com/spec-kit/ouvidoria-service/internal/domain"
	"github.com/spec-kit/ouvidoria-service/internal/events"
	"github.com/spec-kit/ouvidoria-service/internal/observability"
)

// NotificationService turns ticket events into submitter emails. Handlers
// log failures and never return them, so a notification can never undo the
// change that triggered it.
type NotificationService struct {
	dispatcher events.Dispatcher
	outbox     *EmailOutboxService
	logger     *zap.Logger
	metrics    *observability.Metrics
	cfg        config.NotificationConfig
	now        func() time.Time
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, outbox *EmailOutboxService, logger *zap.Logger, metrics *observability.Metrics, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		outbox:     outbox,
		logger:     logger,
		metrics:    metrics,
		cfg:        cfg,
		now:        time.Now,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.logEvent)
	n.dispatcher.Subscribe(events.EventTicketNoteAdded, n.logEvent)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		n.logger.Warn("unexpected payload", zap.String("event_type", string(event.Type)))
		return nil
	}
	if payload.Recipient.Email == nil {
		return nil
	}
	n.send(ctx, event, payload.Recipient, confirmationSubject, emailContent{
		Greeting:  greeting(payload.Recipient.Name),
		Intro:     "Recebemos sua manifestação. Guarde o código abaixo para acompanhar o andamento.",
		Protocol:  payload.ProtocolNumber,
		Status:    string(payload.Status),
		StatusCSS: statusCSSClass(string(payload.Status)),
		PortalURL: n.cfg.PortalURL,
	}, payload.ProtocolNumber, payload.Status)
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		n.logger.Warn("unexpected payload", zap.String("event_type", string(event.Type)))
		return nil
	}
	if payload.OldStatus == payload.NewStatus || payload.Recipient.Email == nil {
		return nil
	}
	content := emailContent{
		Greeting:  greeting(payload.Recipient.Name),
		Intro:     "Informamos que houve uma atualização em sua manifestação:",
		Protocol:  payload.ProtocolNumber,
		Status:    string(payload.NewStatus),
		StatusCSS: statusCSSClass(string(payload.NewStatus)),
		PortalURL: n.cfg.PortalURL,
	}
	if payload.ResolutionSummary != nil {
		content.Summary = *payload.ResolutionSummary
	}
	n.send(ctx, event, payload.Recipient, updateSubject(payload.ProtocolNumber), content, payload.ProtocolNumber, payload.NewStatus)
	return nil
}

func (n *NotificationService) logEvent(_ context.Context, event events.Event) error {
	n.logger.Debug("ticket event",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID))
	return nil
}

func (n *NotificationService) send(ctx context.Context, event events.Event, to events.Recipient, subject string, content emailContent, protocol string, status domain.TicketStatus) {
	if n.outbox == nil {
		return
	}
	fields := []zap.Field{
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.String("protocol_number", protocol),
	}

	body, err := renderTicketEmail(content)
	if err != nil {
		n.metrics.RecordNotificationFailure(string(event.Type))
		n.logger.Warn("render notification email", append(fields, zap.Error(err))...)
		return
	}

	email := &domain.PendingEmail{
		Recipient:   *to.Email,
		Name:        to.Name,
		Subject:     subject,
		HTMLBody:    body,
		Protocol:    protocol,
		Status:      status,
		RequestedAt: n.now(),
	}
	if err := n.outbox.Enqueue(ctx, email); err != nil {
		n.metrics.RecordNotificationFailure(string(event.Type))
		n.logger.Warn("notification not queued", append(fields, zap.Error(err))...)
		return
	}
	n.logger.Info("notification queued", append(fields, zap.String("email_id", email.ID))...)
}
