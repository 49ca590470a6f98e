package bridge

import (
	"time"

	"github.com/accountsync/backend/internal/domain/bridge"
	"github.com/google/uuid"
)

// HeartbeatRequest is the agent's liveness report. The API key rides in
// the body so desktop agents stay header-agnostic.
type HeartbeatRequest struct {
	APIKey           string   `json:"api_key"`
	ConnectorVersion string   `json:"connector_version"`
	EngineVersion    string   `json:"engine_version"`
	EngineConnected  bool     `json:"engine_connected"`
	Companies        []string `json:"companies,omitempty"`
}

// HeartbeatResponse acknowledges a heartbeat
type HeartbeatResponse struct {
	ConnectorID  uuid.UUID `json:"connector_id"`
	Status       string    `json:"status"`
	PendingCount int64     `json:"pending_count"`
}

// PendingOperationsRequest asks for the next batch of queued work
type PendingOperationsRequest struct {
	APIKey string `json:"api_key"`
	Limit  int    `json:"limit,omitempty"`
}

// OperationDTO is a queued operation as handed to the agent
type OperationDTO struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	Priority   int       `json:"priority"`
	RequestXML string    `json:"request_xml"`
	CreatedAt  time.Time `json:"created_at"`
}

// OperationResultRequest is the agent's report for one executed operation
type OperationResultRequest struct {
	APIKey      string `json:"api_key"`
	OperationID string `json:"operation_id"`
	Success     bool   `json:"success"`
	ResponseXML string `json:"response_xml,omitempty"`
	Error       string `json:"error,omitempty"`
	EngineGUID  string `json:"engine_guid,omitempty"`
	DurationMS  int64  `json:"duration_ms,omitempty"`
}

// PushSummary distinguishes vouchers synced directly from vouchers queued
type PushSummary struct {
	SyncedCount int `json:"synced_count"`
	QueuedCount int `json:"queued_count"`
	FailedCount int `json:"failed_count"`
}

// ConnectorDTO is the cloud-side view of a connector
type ConnectorDTO struct {
	ID                   uuid.UUID  `json:"id"`
	Name                 string     `json:"name"`
	MachineName          string     `json:"machine_name"`
	EngineHost           string     `json:"engine_host"`
	EnginePort           int        `json:"engine_port"`
	Status               string     `json:"status"`
	ConnectorVersion     string     `json:"connector_version"`
	EngineVersion        string     `json:"engine_version"`
	LastHeartbeat        *time.Time `json:"last_heartbeat,omitempty"`
	LastSyncAt           *time.Time `json:"last_sync_at,omitempty"`
	TotalOperations      int64      `json:"total_operations"`
	SuccessfulOperations int64      `json:"successful_operations"`
	FailedOperations     int64      `json:"failed_operations"`
	CreatedAt            time.Time  `json:"created_at"`
}

// NewConnectorDTO maps a domain connector to its API representation
func NewConnectorDTO(c *bridge.Connector) ConnectorDTO {
	return ConnectorDTO{
		ID:                   c.ID,
		Name:                 c.Name,
		MachineName:          c.MachineName,
		EngineHost:           c.EngineHost,
		EnginePort:           c.EnginePort,
		Status:               string(c.Status),
		ConnectorVersion:     c.ConnectorVersion,
		EngineVersion:        c.EngineVersion,
		LastHeartbeat:        c.LastHeartbeat,
		LastSyncAt:           c.LastSyncAt,
		TotalOperations:      c.TotalOperations,
		SuccessfulOperations: c.SuccessfulOperations,
		FailedOperations:     c.FailedOperations,
		CreatedAt:            c.CreatedAt,
	}
}

// NewOperationDTO maps a domain operation to its agent-facing representation
func NewOperationDTO(op *bridge.Operation) OperationDTO {
	return OperationDTO{
		ID:         op.ID,
		Type:       string(op.Type),
		Priority:   op.Priority,
		RequestXML: op.RequestXML,
		CreatedAt:  op.CreatedAt,
	}
}
