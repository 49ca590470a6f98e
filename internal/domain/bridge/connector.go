package bridge

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/accountsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ConnectorStatus represents the lifecycle state of a desktop connector
type ConnectorStatus string

const (
	ConnectorStatusInactive     ConnectorStatus = "inactive"
	ConnectorStatusActive       ConnectorStatus = "active"
	ConnectorStatusDisconnected ConnectorStatus = "disconnected"
)

// Connector is the cloud-side registration of a desktop agent that
// polls for queued operations and relays them to the accounting engine.
type Connector struct {
	shared.TenantAggregateRoot
	Name                 string
	MachineName          string
	EngineHost           string
	EnginePort           int
	APIKey               string
	Status               ConnectorStatus
	ConnectorVersion     string
	EngineVersion        string
	LastHeartbeat        *time.Time
	LastSyncAt           *time.Time
	TotalOperations      int64
	SuccessfulOperations int64
	FailedOperations     int64
}

// NewConnector registers a connector with a freshly generated API key.
// The connector starts inactive until its first heartbeat arrives.
func NewConnector(tenantID uuid.UUID, name, machineName, engineHost string, enginePort int) (*Connector, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Connector name is required")
	}
	if engineHost == "" {
		engineHost = "localhost"
	}
	if enginePort <= 0 {
		enginePort = 9000
	}

	key, err := GenerateAPIKey()
	if err != nil {
		return nil, err
	}

	return &Connector{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		MachineName:         machineName,
		EngineHost:          engineHost,
		EnginePort:          enginePort,
		APIKey:              key,
		Status:              ConnectorStatusInactive,
	}, nil
}

// GenerateAPIKey returns a URL-safe key derived from 32 random bytes.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Activate marks the connector active without waiting for a heartbeat.
// Auto-provisioned loopback connectors must serve pushes immediately,
// before any agent has reported in.
func (c *Connector) Activate() {
	c.Status = ConnectorStatusActive
	c.UpdatedAt = time.Now()
}

// RecordHeartbeat marks the connector active and updates its liveness
// timestamp. A heartbeat always recovers a disconnected connector.
func (c *Connector) RecordHeartbeat(connectorVersion, engineVersion string, at time.Time) {
	previous := c.Status
	c.Status = ConnectorStatusActive
	c.LastHeartbeat = &at
	if connectorVersion != "" {
		c.ConnectorVersion = connectorVersion
	}
	if engineVersion != "" {
		c.EngineVersion = engineVersion
	}
	c.UpdatedAt = at

	if previous == ConnectorStatusDisconnected {
		c.AddDomainEvent(NewConnectorReconnectedEvent(c))
	}
}

// MarkDisconnected demotes an active connector whose heartbeats have stopped.
func (c *Connector) MarkDisconnected() {
	if c.Status != ConnectorStatusActive {
		return
	}
	c.Status = ConnectorStatusDisconnected
	c.UpdatedAt = time.Now()
	c.AddDomainEvent(NewConnectorDisconnectedEvent(c))
}

// RegenerateAPIKey replaces the connector's key, invalidating the old one.
func (c *Connector) RegenerateAPIKey() error {
	key, err := GenerateAPIKey()
	if err != nil {
		return err
	}
	c.APIKey = key
	c.UpdatedAt = time.Now()
	return nil
}

// IsLoopback reports whether the engine is reachable from the cloud host
// directly, enabling the immediate-push path.
func (c *Connector) IsLoopback() bool {
	switch c.EngineHost {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// EngineURL returns the base HTTP endpoint of the accounting engine.
func (c *Connector) EngineURL() string {
	return fmt.Sprintf("http://%s:%d", c.EngineHost, c.EnginePort)
}

// RecordEnqueued bumps the total counter when an operation is queued.
func (c *Connector) RecordEnqueued() {
	c.TotalOperations++
}

// RecordSuccess counts a completed operation and refreshes the sync timestamp.
func (c *Connector) RecordSuccess(at time.Time) {
	c.SuccessfulOperations++
	c.LastSyncAt = &at
}

// RecordFailure counts a permanently failed operation.
func (c *Connector) RecordFailure() {
	c.FailedOperations++
}
