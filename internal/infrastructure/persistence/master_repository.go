package persistence

import (
	"context"

	"github.com/accountsync/backend/internal/domain/bridge"
	"github.com/accountsync/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMasterRepository implements bridge.MasterRepository using GORM
type GormMasterRepository struct {
	db *gorm.DB
}

// NewGormMasterRepository creates a new GormMasterRepository
func NewGormMasterRepository(db *gorm.DB) *GormMasterRepository {
	return &GormMasterRepository{db: db}
}

var _ bridge.MasterRepository = (*GormMasterRepository)(nil)

// Upsert inserts or refreshes a master record keyed by (tenant, type, name)
func (r *GormMasterRepository) Upsert(ctx context.Context, master *bridge.TallyMaster) error {
	var model models.TallyMasterModel
	model.FromDomain(master)

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "tenant_id"},
			{Name: "master_type"},
			{Name: "name"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"parent", "engine_guid", "data", "updated_at"}),
	}).Create(&model).Error
}

// FindAllForTenant lists a tenant's mirrored masters, optionally by type
func (r *GormMasterRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, masterType bridge.MasterType) ([]bridge.TallyMaster, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("name ASC")
	if masterType != "" {
		query = query.Where("master_type = ?", string(masterType))
	}

	var masterModels []models.TallyMasterModel
	if err := query.Find(&masterModels).Error; err != nil {
		return nil, err
	}

	masters := make([]bridge.TallyMaster, len(masterModels))
	for i, model := range masterModels {
		masters[i] = *model.ToDomain()
	}
	return masters, nil
}
