package bridge

import (
	"github.com/accountsync/backend/internal/domain/shared"
)

// Event types published by the bridge domain
const (
	EventTypeConnectorDisconnected = "bridge.connector.disconnected"
	EventTypeConnectorReconnected  = "bridge.connector.reconnected"
	EventTypeConnectorSilent       = "bridge.connector.silent"
)

// ConnectorDisconnectedEvent fires when a connector misses its heartbeat window
type ConnectorDisconnectedEvent struct {
	shared.BaseDomainEvent
	ConnectorName string `json:"connector_name"`
	MachineName   string `json:"machine_name"`
}

// NewConnectorDisconnectedEvent creates a disconnection event
func NewConnectorDisconnectedEvent(c *Connector) *ConnectorDisconnectedEvent {
	return &ConnectorDisconnectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConnectorDisconnected, "Connector", c.ID, c.TenantID),
		ConnectorName:   c.Name,
		MachineName:     c.MachineName,
	}
}

// ConnectorReconnectedEvent fires when a heartbeat recovers a disconnected connector
type ConnectorReconnectedEvent struct {
	shared.BaseDomainEvent
	ConnectorName string `json:"connector_name"`
}

// NewConnectorReconnectedEvent creates a reconnection event
func NewConnectorReconnectedEvent(c *Connector) *ConnectorReconnectedEvent {
	return &ConnectorReconnectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConnectorReconnected, "Connector", c.ID, c.TenantID),
		ConnectorName:   c.Name,
	}
}

// ConnectorSilentEvent fires when an active connector has pending work but
// has not been heard from recently enough to alert operators.
type ConnectorSilentEvent struct {
	shared.BaseDomainEvent
	ConnectorName string `json:"connector_name"`
	PendingCount  int64  `json:"pending_count"`
	SilentSeconds int64  `json:"silent_seconds"`
}

// NewConnectorSilentEvent creates a silence alert event
func NewConnectorSilentEvent(c *Connector, pendingCount, silentSeconds int64) *ConnectorSilentEvent {
	return &ConnectorSilentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConnectorSilent, "Connector", c.ID, c.TenantID),
		ConnectorName:   c.Name,
		PendingCount:    pendingCount,
		SilentSeconds:   silentSeconds,
	}
}
