package bridge

import (
	"time"

	"github.com/accountsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// OperationType identifies what the agent should ask the engine to do
type OperationType string

const (
	OperationTypeCreateVoucher OperationType = "create_voucher"
	OperationTypeUpdateVoucher OperationType = "update_voucher"
	OperationTypeDeleteVoucher OperationType = "delete_voucher"
	OperationTypeSyncLedgers   OperationType = "sync_ledgers"
	OperationTypeSyncMasters   OperationType = "sync_masters"
	OperationTypeExportReport  OperationType = "export_report"
)

// OperationStatus represents the queue lifecycle of an operation
type OperationStatus string

const (
	OperationStatusPending    OperationStatus = "pending"
	OperationStatusInProgress OperationStatus = "in_progress"
	OperationStatusCompleted  OperationStatus = "completed"
	OperationStatusFailed     OperationStatus = "failed"
	OperationStatusCancelled  OperationStatus = "cancelled"
)

// Operation priorities. Higher values are claimed first.
const (
	PriorityLow    = 1
	PriorityNormal = 2
	PriorityUrgent = 3
)

// DefaultMaxRetries is how many times a stalled operation is requeued
// before it is marked failed.
const DefaultMaxRetries = 3

// Operation is a unit of work queued for a connector. The request payload
// carries the pre-encoded engine XML plus its structured source data so
// the agent never has to understand voucher semantics.
type Operation struct {
	shared.BaseEntity
	ConnectorID  uuid.UUID
	TenantID     uuid.UUID
	Type         OperationType
	Status       OperationStatus
	Priority     int
	RequestXML   string
	RequestData  string
	ResponseXML  string
	ResponseData string
	ErrorMessage string
	VoucherID    *uuid.UUID
	RetryCount   int
	MaxRetries   int
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// NewOperation queues a new operation for a connector.
func NewOperation(connectorID, tenantID uuid.UUID, opType OperationType, priority int, requestXML, requestData string) *Operation {
	if priority < PriorityLow || priority > PriorityUrgent {
		priority = PriorityNormal
	}
	return &Operation{
		BaseEntity:  shared.NewBaseEntity(),
		ConnectorID: connectorID,
		TenantID:    tenantID,
		Type:        opType,
		Status:      OperationStatusPending,
		Priority:    priority,
		RequestXML:  requestXML,
		RequestData: requestData,
		MaxRetries:  DefaultMaxRetries,
	}
}

// Start marks the operation as claimed by the agent.
func (o *Operation) Start(at time.Time) error {
	if o.Status != OperationStatusPending {
		return shared.ErrInvalidState
	}
	o.Status = OperationStatusInProgress
	o.StartedAt = &at
	o.UpdatedAt = at
	return nil
}

// Complete records a successful engine response. Completing an operation
// that is already terminal is a no-op so that duplicate result reports
// never double-count.
func (o *Operation) Complete(responseXML, responseData string, at time.Time) bool {
	if o.IsTerminal() {
		return false
	}
	o.Status = OperationStatusCompleted
	o.ResponseXML = responseXML
	o.ResponseData = responseData
	o.CompletedAt = &at
	o.UpdatedAt = at
	return true
}

// Fail records a rejected engine response.
func (o *Operation) Fail(responseXML, errorMessage string, at time.Time) bool {
	if o.IsTerminal() {
		return false
	}
	o.Status = OperationStatusFailed
	o.ResponseXML = responseXML
	o.ErrorMessage = errorMessage
	o.CompletedAt = &at
	o.UpdatedAt = at
	return true
}

// Cancel withdraws an operation that has not been claimed yet.
func (o *Operation) Cancel() error {
	if o.Status != OperationStatusPending {
		return shared.ErrInvalidState
	}
	o.Status = OperationStatusCancelled
	now := time.Now()
	o.CompletedAt = &now
	o.UpdatedAt = now
	return nil
}

// IsTerminal reports whether the operation reached a final state.
func (o *Operation) IsTerminal() bool {
	switch o.Status {
	case OperationStatusCompleted, OperationStatusFailed, OperationStatusCancelled:
		return true
	}
	return false
}

// CanRetry reports whether a stalled operation still has retry budget.
func (o *Operation) CanRetry() bool {
	return o.RetryCount < o.MaxRetries
}

// ResetForRetry requeues a stalled in-progress operation, consuming one retry.
func (o *Operation) ResetForRetry() {
	o.RetryCount++
	o.Status = OperationStatusPending
	o.StartedAt = nil
	o.UpdatedAt = time.Now()
}

// Exhaust marks a stalled operation failed once its retries run out.
func (o *Operation) Exhaust(at time.Time) {
	o.Status = OperationStatusFailed
	o.ErrorMessage = "operation timed out after exhausting retries"
	o.CompletedAt = &at
	o.UpdatedAt = at
}
