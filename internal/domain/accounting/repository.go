package accounting

import (
	"context"

	"github.com/google/uuid"
)

// VoucherRepository persists vouchers with their ledger entries
type VoucherRepository interface {
	// FindByID loads a voucher with its entries ordered by position.
	FindByID(ctx context.Context, id uuid.UUID) (*Voucher, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, status SyncStatus, limit int) ([]Voucher, error)
	Save(ctx context.Context, voucher *Voucher) error
	// UpdateSyncState persists only the sync-tracking fields.
	UpdateSyncState(ctx context.Context, voucher *Voucher) error
}

// LedgerRepository persists cloud-side ledger accounts
type LedgerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Ledger, error)
	FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*Ledger, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]Ledger, error)
	Save(ctx context.Context, ledger *Ledger) error
	// UpsertFromEngine refreshes a ledger mirrored from the engine,
	// keyed by (tenant, name).
	UpsertFromEngine(ctx context.Context, ledger *Ledger) error
}
