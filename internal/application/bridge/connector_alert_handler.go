package bridge

import (
	"context"

	"github.com/accountsync/backend/internal/domain/bridge"
	"github.com/accountsync/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ConnectorAlertHandler reacts to connector lifecycle events.
// It logs every transition and forwards alert-worthy ones to the
// configured notifier so operators learn about stuck desktop agents.
type ConnectorAlertHandler struct {
	logger   *zap.Logger
	notifier ConnectorAlertNotifier
}

// ConnectorAlertNotifier is the interface for delivering connector alerts.
// Implementations can support different channels (email, webhook, in-app).
type ConnectorAlertNotifier interface {
	// NotifyConnectorAlert sends a notification about a connector state change
	NotifyConnectorAlert(ctx context.Context, alert ConnectorAlert) error
}

// ConnectorAlert represents an operator-facing connector notification
type ConnectorAlert struct {
	TenantID      string `json:"tenant_id"`
	ConnectorID   string `json:"connector_id"`
	ConnectorName string `json:"connector_name"`
	EventType     string `json:"event_type"`
	PendingCount  int64  `json:"pending_count,omitempty"`
	SilentSeconds int64  `json:"silent_seconds,omitempty"`
}

// NewConnectorAlertHandler creates a handler for connector lifecycle events
func NewConnectorAlertHandler(logger *zap.Logger) *ConnectorAlertHandler {
	return &ConnectorAlertHandler{
		logger: logger,
	}
}

// WithNotifier sets the notifier for sending alerts
func (h *ConnectorAlertHandler) WithNotifier(notifier ConnectorAlertNotifier) *ConnectorAlertHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *ConnectorAlertHandler) EventTypes() []string {
	return []string{
		bridge.EventTypeConnectorDisconnected,
		bridge.EventTypeConnectorReconnected,
		bridge.EventTypeConnectorSilent,
	}
}

// Handle processes a connector lifecycle event
func (h *ConnectorAlertHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	alert := ConnectorAlert{
		TenantID:    event.TenantID().String(),
		ConnectorID: event.AggregateID().String(),
		EventType:   event.EventType(),
	}

	switch e := event.(type) {
	case *bridge.ConnectorDisconnectedEvent:
		alert.ConnectorName = e.ConnectorName
		h.logger.Warn("connector disconnected",
			zap.String("tenant_id", alert.TenantID),
			zap.String("connector", e.ConnectorName),
			zap.String("machine", e.MachineName),
		)
	case *bridge.ConnectorReconnectedEvent:
		// Recovery is informational, no alert needed
		h.logger.Info("connector reconnected",
			zap.String("tenant_id", alert.TenantID),
			zap.String("connector", e.ConnectorName),
		)
		return nil
	case *bridge.ConnectorSilentEvent:
		alert.ConnectorName = e.ConnectorName
		alert.PendingCount = e.PendingCount
		alert.SilentSeconds = e.SilentSeconds
		h.logger.Warn("connector silent with pending work",
			zap.String("tenant_id", alert.TenantID),
			zap.String("connector", e.ConnectorName),
			zap.Int64("pending_count", e.PendingCount),
			zap.Int64("silent_seconds", e.SilentSeconds),
		)
	default:
		h.logger.Error("unexpected event type",
			zap.String("actual", event.EventType()),
		)
		return nil
	}

	if h.notifier == nil {
		return nil
	}
	if err := h.notifier.NotifyConnectorAlert(ctx, alert); err != nil {
		h.logger.Error("failed to send connector alert",
			zap.String("connector_id", alert.ConnectorID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Ensure ConnectorAlertHandler implements shared.EventHandler
var _ shared.EventHandler = (*ConnectorAlertHandler)(nil)
