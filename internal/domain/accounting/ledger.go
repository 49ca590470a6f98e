package accounting

import (
	"github.com/accountsync/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerGroup is the engine-side account group a ledger belongs to
type LedgerGroup string

const (
	LedgerGroupBankAccounts     LedgerGroup = "bank_accounts"
	LedgerGroupCashInHand       LedgerGroup = "cash_in_hand"
	LedgerGroupSundryDebtors    LedgerGroup = "sundry_debtors"
	LedgerGroupSundryCreditors  LedgerGroup = "sundry_creditors"
	LedgerGroupSalesAccounts    LedgerGroup = "sales_accounts"
	LedgerGroupPurchaseAccounts LedgerGroup = "purchase_accounts"
	LedgerGroupDirectExpenses   LedgerGroup = "direct_expenses"
	LedgerGroupIndirectExpenses LedgerGroup = "indirect_expenses"
	LedgerGroupDutiesAndTaxes   LedgerGroup = "duties_and_taxes"
	LedgerGroupOther            LedgerGroup = "other"
)

// Ledger is a cloud-side account mirrored from or pushed to the engine.
type Ledger struct {
	shared.TenantAggregateRoot
	Name           string
	Group          LedgerGroup
	ParentName     string
	EngineGUID     string
	OpeningBalance decimal.Decimal
	ClosingBalance decimal.Decimal
}

// NewLedger creates a ledger record.
func NewLedger(tenantID uuid.UUID, name string, group LedgerGroup, parentName string) (*Ledger, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Ledger name is required")
	}
	if group == "" {
		group = LedgerGroupOther
	}
	return &Ledger{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Group:               group,
		ParentName:          parentName,
	}, nil
}
