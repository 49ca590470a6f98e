package bridge

import (
	"github.com/accountsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MasterType identifies the kind of engine master record
type MasterType string

const (
	MasterTypeLedger      MasterType = "ledger"
	MasterTypeGroup       MasterType = "group"
	MasterTypeCostCenter  MasterType = "cost_center"
	MasterTypeVoucherType MasterType = "voucher_type"
	MasterTypeStockItem   MasterType = "stock_item"
)

// TallyMaster is a cloud-side mirror of a master record pulled from the
// accounting engine. Rows are upserted on (tenant, master_type, name).
type TallyMaster struct {
	shared.TenantAggregateRoot
	MasterType MasterType
	Name       string
	Parent     string
	EngineGUID string
	Data       string
}

// NewTallyMaster creates a mirrored master record.
func NewTallyMaster(tenantID uuid.UUID, masterType MasterType, name, parent, engineGUID string) (*TallyMaster, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Master name is required")
	}
	return &TallyMaster{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		MasterType:          masterType,
		Name:                name,
		Parent:              parent,
		EngineGUID:          engineGUID,
	}, nil
}
