package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/events"
	"github.com/spec-kit/ticket-triage/internal/observability"
)

// NotificationService reacts to pipeline events: it keeps the metrics
// recorder current and logs operator-facing notifications.
type NotificationService struct {
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketReceived, n.handleTicketReceived)
	n.dispatcher.Subscribe(events.EventTicketClassified, n.handleTicketClassified)
	n.dispatcher.Subscribe(events.EventRoutingAttempted, n.handleRoutingAttempted)
	n.dispatcher.Subscribe(events.EventTicketRouted, n.handleTicketRouted)
	n.dispatcher.Subscribe(events.EventTicketFailed, n.handleTicketFailed)
}

func (n *NotificationService) handleTicketReceived(_ context.Context, event events.Event) error {
	n.logger.Info("TicketReceived", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	if n.metrics != nil {
		n.metrics.RecordTicketStatus(domain.TicketStatusReceived)
	}
	return nil
}

func (n *NotificationService) handleTicketClassified(_ context.Context, event events.Event) error {
	n.logger.Info("TicketClassified", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	if payload, ok := event.Payload.(events.TicketClassifiedPayload); ok && n.metrics != nil {
		n.metrics.RecordTicketStatus(domain.TicketStatusClassified)
		n.metrics.RecordConfidence(payload.Confidence)
	}
	return nil
}

func (n *NotificationService) handleRoutingAttempted(_ context.Context, event events.Event) error {
	n.logger.Debug("RoutingAttempted", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	if payload, ok := event.Payload.(events.RoutingAttemptedPayload); ok && n.metrics != nil {
		n.metrics.RecordRoutingAttempt(payload.Target)
	}
	return nil
}

func (n *NotificationService) handleTicketRouted(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketRouted", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	if n.metrics != nil {
		n.metrics.RecordTicketStatus(domain.TicketStatusRouted)
	}
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketFailed(ctx context.Context, event events.Event) error {
	n.logger.Warn("TicketFailed", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	if n.metrics != nil {
		n.metrics.RecordTicketStatus(domain.TicketStatusFailed)
	}
	if payload, ok := event.Payload.(events.TicketFailedPayload); ok && n.metrics != nil {
		n.metrics.RecordError(payload.Code)
	}
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

// sendWebhookNotificationStub stands in for an outbound operator
// notification channel. TODO: wire to the ops Slack webhook once the
// channel is provisioned.
func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	n.logger.Debug("webhook notification (stub)",
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
