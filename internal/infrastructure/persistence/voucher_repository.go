package persistence

import (
	"context"
	"errors"

	"github.com/accountsync/backend/internal/domain/accounting"
	"github.com/accountsync/backend/internal/domain/shared"
	"github.com/accountsync/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormVoucherRepository implements accounting.VoucherRepository using GORM
type GormVoucherRepository struct {
	db *gorm.DB
}

// NewGormVoucherRepository creates a new GormVoucherRepository
func NewGormVoucherRepository(db *gorm.DB) *GormVoucherRepository {
	return &GormVoucherRepository{db: db}
}

var _ accounting.VoucherRepository = (*GormVoucherRepository)(nil)

// FindByID loads a voucher with its entries ordered by position
func (r *GormVoucherRepository) FindByID(ctx context.Context, id uuid.UUID) (*accounting.Voucher, error) {
	var model models.VoucherModel
	if err := r.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists a tenant's vouchers, optionally by sync status
func (r *GormVoucherRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, status accounting.SyncStatus, limit int) ([]accounting.Voucher, error) {
	if limit <= 0 {
		limit = 50
	}
	query := r.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("tenant_id = ?", tenantID).
		Order("date DESC, created_at DESC").
		Limit(limit)
	if status != "" {
		query = query.Where("sync_status = ?", string(status))
	}

	var voucherModels []models.VoucherModel
	if err := query.Find(&voucherModels).Error; err != nil {
		return nil, err
	}

	vouchers := make([]accounting.Voucher, len(voucherModels))
	for i, model := range voucherModels {
		vouchers[i] = *model.ToDomain()
	}
	return vouchers, nil
}

// Save creates or updates a voucher together with its entries
func (r *GormVoucherRepository) Save(ctx context.Context, voucher *accounting.Voucher) error {
	var model models.VoucherModel
	model.FromDomain(voucher)

	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(&model).Error
}

// UpdateSyncState persists only the sync-tracking fields of a voucher
func (r *GormVoucherRepository) UpdateSyncState(ctx context.Context, voucher *accounting.Voucher) error {
	result := r.db.WithContext(ctx).Model(&models.VoucherModel{}).
		Where("id = ?", voucher.ID).
		Updates(map[string]interface{}{
			"sync_status": string(voucher.SyncStatus),
			"engine_guid": voucher.EngineGUID,
			"sync_error":  voucher.SyncError,
			"synced_at":   voucher.SyncedAt,
			"updated_at":  voucher.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GormLedgerRepository implements accounting.LedgerRepository using GORM
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

var _ accounting.LedgerRepository = (*GormLedgerRepository)(nil)

// FindByID finds a ledger by its ID
func (r *GormLedgerRepository) FindByID(ctx context.Context, id uuid.UUID) (*accounting.Ledger, error) {
	var model models.LedgerModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByName finds a ledger by name within a tenant
func (r *GormLedgerRepository) FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*accounting.Ledger, error) {
	var model models.LedgerModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND name = ?", tenantID, name).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists all ledgers of a tenant
func (r *GormLedgerRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]accounting.Ledger, error) {
	var ledgerModels []models.LedgerModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("name ASC").
		Find(&ledgerModels).Error; err != nil {
		return nil, err
	}

	ledgers := make([]accounting.Ledger, len(ledgerModels))
	for i, model := range ledgerModels {
		ledgers[i] = *model.ToDomain()
	}
	return ledgers, nil
}

// Save creates or updates a ledger
func (r *GormLedgerRepository) Save(ctx context.Context, ledger *accounting.Ledger) error {
	var model models.LedgerModel
	model.FromDomain(ledger)
	return r.db.WithContext(ctx).Save(&model).Error
}

// UpsertFromEngine refreshes a ledger mirrored from the engine, keyed by (tenant, name)
func (r *GormLedgerRepository) UpsertFromEngine(ctx context.Context, ledger *accounting.Ledger) error {
	var model models.LedgerModel
	model.FromDomain(ledger)

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "tenant_id"},
			{Name: "name"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"ledger_group", "parent_name", "engine_guid",
			"opening_balance", "closing_balance", "updated_at",
		}),
	}).Create(&model).Error
}
