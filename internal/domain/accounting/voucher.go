package accounting

import (
	"time"

	"github.com/accountsync/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VoucherType is the accounting classification of a voucher
type VoucherType string

const (
	VoucherTypePayment    VoucherType = "payment"
	VoucherTypeReceipt    VoucherType = "receipt"
	VoucherTypeSales      VoucherType = "sales"
	VoucherTypePurchase   VoucherType = "purchase"
	VoucherTypeContra     VoucherType = "contra"
	VoucherTypeJournal    VoucherType = "journal"
	VoucherTypeDebitNote  VoucherType = "debit_note"
	VoucherTypeCreditNote VoucherType = "credit_note"
	VoucherTypeStockEntry VoucherType = "stock_journal"
)

// SyncStatus tracks whether a voucher reached the accounting engine
type SyncStatus string

const (
	SyncStatusQueued SyncStatus = "queued"
	SyncStatusSynced SyncStatus = "synced"
	SyncStatusFailed SyncStatus = "failed"
)

// VoucherEntry is one ledger line of a voucher. Amounts are stored as
// positive magnitudes; the debit/credit side carries the sign.
type VoucherEntry struct {
	shared.BaseEntity
	VoucherID  uuid.UUID
	LedgerName string
	Amount     decimal.Decimal
	IsDebit    bool
	Position   int
}

// Voucher is an accounting document recorded in the cloud and mirrored
// into the desktop engine.
type Voucher struct {
	shared.TenantAggregateRoot
	VoucherNumber string
	Type          VoucherType
	Date          time.Time
	PartyName     string
	Reference     string
	Narration     string
	Amount        decimal.Decimal
	SyncStatus    SyncStatus
	EngineGUID    string
	SyncError     string
	SyncedAt      *time.Time
	Entries       []VoucherEntry
}

// NewVoucher creates a voucher with its ledger entries.
func NewVoucher(tenantID uuid.UUID, number string, voucherType VoucherType, date time.Time, partyName, narration string, entries []VoucherEntry) (*Voucher, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Voucher number is required")
	}
	if len(entries) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Voucher requires at least one ledger entry")
	}

	v := &Voucher{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		VoucherNumber:       number,
		Type:                voucherType,
		Date:                date,
		PartyName:           partyName,
		Narration:           narration,
		SyncStatus:          SyncStatusQueued,
	}

	total := decimal.Zero
	for i := range entries {
		entries[i].BaseEntity = shared.NewBaseEntity()
		entries[i].VoucherID = v.ID
		entries[i].Position = i
		entries[i].Amount = entries[i].Amount.Abs()
		if entries[i].IsDebit {
			total = total.Add(entries[i].Amount)
		}
	}
	v.Entries = entries
	v.Amount = total

	return v, nil
}

// MarkQueued resets the voucher to the queued state for a fresh sync attempt.
func (v *Voucher) MarkQueued() {
	v.SyncStatus = SyncStatusQueued
	v.SyncError = ""
	v.UpdatedAt = time.Now()
}

// MarkSynced records a successful import into the engine.
func (v *Voucher) MarkSynced(engineGUID string, at time.Time) {
	v.SyncStatus = SyncStatusSynced
	v.EngineGUID = engineGUID
	v.SyncError = ""
	v.SyncedAt = &at
	v.UpdatedAt = at
}

// MarkSyncFailed records a rejected import.
func (v *Voucher) MarkSyncFailed(reason string) {
	v.SyncStatus = SyncStatusFailed
	v.SyncError = reason
	v.UpdatedAt = time.Now()
}
