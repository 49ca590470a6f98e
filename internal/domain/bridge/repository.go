package bridge

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ConnectorRepository persists connector registrations
type ConnectorRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Connector, error)
	FindByAPIKey(ctx context.Context, apiKey string) (*Connector, error)
	FindActiveForTenant(ctx context.Context, tenantID uuid.UUID) (*Connector, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]Connector, error)
	// FindSilentSince returns connectors in the given statuses whose last
	// heartbeat is older than cutoff (or that never sent one).
	FindSilentSince(ctx context.Context, cutoff time.Time, statuses ...ConnectorStatus) ([]Connector, error)
	Save(ctx context.Context, connector *Connector) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// OperationRepository persists queued operations
type OperationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Operation, error)
	// ClaimPending atomically moves up to limit pending operations of the
	// connector to in_progress, ordered by priority descending then
	// creation time ascending, and returns the claimed set. An operation
	// cancelled or claimed concurrently is never returned twice.
	ClaimPending(ctx context.Context, connectorID uuid.UUID, limit int) ([]Operation, error)
	Save(ctx context.Context, op *Operation) error
	// FindStale returns in_progress operations started before cutoff.
	FindStale(ctx context.Context, cutoff time.Time) ([]Operation, error)
	FindAllForConnector(ctx context.Context, connectorID uuid.UUID, status OperationStatus, limit int) ([]Operation, error)
	CountByStatus(ctx context.Context, connectorID uuid.UUID, status OperationStatus) (int64, error)
	// ExistsActiveForVoucher reports whether a pending or in_progress
	// operation already references the voucher.
	ExistsActiveForVoucher(ctx context.Context, voucherID uuid.UUID) (bool, error)
	// FindTerminalBefore returns completed, failed and cancelled
	// operations whose terminal timestamp is older than cutoff.
	FindTerminalBefore(ctx context.Context, cutoff time.Time, limit int) ([]Operation, error)
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) error
}

// MasterRepository persists mirrored engine master records
type MasterRepository interface {
	// Upsert inserts or refreshes a master keyed by (tenant, type, name).
	Upsert(ctx context.Context, master *TallyMaster) error
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, masterType MasterType) ([]TallyMaster, error)
}
