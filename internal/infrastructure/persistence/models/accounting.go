package models

import (
	"time"

	"github.com/accountsync/backend/internal/domain/accounting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VoucherModel maps the accounting.Voucher aggregate to the vouchers table
type VoucherModel struct {
	TenantAggregateModel
	VoucherNumber string          `gorm:"type:varchar(100);not null;index"`
	Type          string          `gorm:"type:varchar(30);not null"`
	Date          time.Time       `gorm:"not null;index"`
	PartyName     string          `gorm:"type:varchar(255)"`
	Reference     string          `gorm:"type:varchar(255)"`
	Narration     string          `gorm:"type:text"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	SyncStatus    string          `gorm:"type:varchar(20);not null;default:'queued';index"`
	EngineGUID    string          `gorm:"type:varchar(100)"`
	SyncError     string          `gorm:"type:text"`
	SyncedAt      *time.Time
	Entries       []VoucherEntryModel `gorm:"foreignKey:VoucherID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for VoucherModel
func (VoucherModel) TableName() string {
	return "vouchers"
}

// ToDomain converts VoucherModel to domain Voucher
func (m *VoucherModel) ToDomain() *accounting.Voucher {
	v := &accounting.Voucher{
		VoucherNumber: m.VoucherNumber,
		Type:          accounting.VoucherType(m.Type),
		Date:          m.Date,
		PartyName:     m.PartyName,
		Reference:     m.Reference,
		Narration:     m.Narration,
		Amount:        m.Amount,
		SyncStatus:    accounting.SyncStatus(m.SyncStatus),
		EngineGUID:    m.EngineGUID,
		SyncError:     m.SyncError,
		SyncedAt:      m.SyncedAt,
	}
	m.PopulateTenantAggregateRoot(&v.TenantAggregateRoot)
	v.Entries = make([]accounting.VoucherEntry, 0, len(m.Entries))
	for i := range m.Entries {
		v.Entries = append(v.Entries, *m.Entries[i].ToDomain())
	}
	return v
}

// FromDomain populates VoucherModel from domain Voucher
func (m *VoucherModel) FromDomain(v *accounting.Voucher) {
	m.FromDomainTenantAggregateRoot(v.TenantAggregateRoot)
	m.VoucherNumber = v.VoucherNumber
	m.Type = string(v.Type)
	m.Date = v.Date
	m.PartyName = v.PartyName
	m.Reference = v.Reference
	m.Narration = v.Narration
	m.Amount = v.Amount
	m.SyncStatus = string(v.SyncStatus)
	m.EngineGUID = v.EngineGUID
	m.SyncError = v.SyncError
	m.SyncedAt = v.SyncedAt
	m.Entries = make([]VoucherEntryModel, 0, len(v.Entries))
	for i := range v.Entries {
		var em VoucherEntryModel
		em.FromDomain(&v.Entries[i])
		m.Entries = append(m.Entries, em)
	}
}

// VoucherEntryModel maps accounting.VoucherEntry to the voucher_entries table
type VoucherEntryModel struct {
	BaseModel
	VoucherID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	LedgerName string          `gorm:"type:varchar(255);not null"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	IsDebit    bool            `gorm:"not null"`
	Position   int             `gorm:"not null;default:0"`
}

// TableName specifies the table name for VoucherEntryModel
func (VoucherEntryModel) TableName() string {
	return "voucher_entries"
}

// ToDomain converts VoucherEntryModel to domain VoucherEntry
func (m *VoucherEntryModel) ToDomain() *accounting.VoucherEntry {
	return &accounting.VoucherEntry{
		BaseEntity: m.BaseModel.ToDomain(),
		VoucherID:  m.VoucherID,
		LedgerName: m.LedgerName,
		Amount:     m.Amount,
		IsDebit:    m.IsDebit,
		Position:   m.Position,
	}
}

// FromDomain populates VoucherEntryModel from domain VoucherEntry
func (m *VoucherEntryModel) FromDomain(e *accounting.VoucherEntry) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.VoucherID = e.VoucherID
	m.LedgerName = e.LedgerName
	m.Amount = e.Amount
	m.IsDebit = e.IsDebit
	m.Position = e.Position
}

// LedgerModel maps the accounting.Ledger aggregate to the ledgers table
type LedgerModel struct {
	TenantAggregateModel
	Name           string          `gorm:"type:varchar(255);not null;uniqueIndex:idx_ledgers_tenant_name,priority:2"`
	Group          string          `gorm:"column:ledger_group;type:varchar(50);not null;default:'other'"`
	ParentName     string          `gorm:"type:varchar(255)"`
	EngineGUID     string          `gorm:"type:varchar(100);index"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ClosingBalance decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
}

// TableName specifies the table name for LedgerModel
func (LedgerModel) TableName() string {
	return "ledgers"
}

// ToDomain converts LedgerModel to domain Ledger
func (m *LedgerModel) ToDomain() *accounting.Ledger {
	l := &accounting.Ledger{
		Name:           m.Name,
		Group:          accounting.LedgerGroup(m.Group),
		ParentName:     m.ParentName,
		EngineGUID:     m.EngineGUID,
		OpeningBalance: m.OpeningBalance,
		ClosingBalance: m.ClosingBalance,
	}
	m.PopulateTenantAggregateRoot(&l.TenantAggregateRoot)
	return l
}

// FromDomain populates LedgerModel from domain Ledger
func (m *LedgerModel) FromDomain(l *accounting.Ledger) {
	m.FromDomainTenantAggregateRoot(l.TenantAggregateRoot)
	m.Name = l.Name
	m.Group = string(l.Group)
	m.ParentName = l.ParentName
	m.EngineGUID = l.EngineGUID
	m.OpeningBalance = l.OpeningBalance
	m.ClosingBalance = l.ClosingBalance
}
