package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/accountsync/backend/internal/domain/bridge"
	"github.com/accountsync/backend/internal/domain/shared"
	"github.com/accountsync/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormConnectorRepository implements bridge.ConnectorRepository using GORM
type GormConnectorRepository struct {
	db *gorm.DB
}

// NewGormConnectorRepository creates a new GormConnectorRepository
func NewGormConnectorRepository(db *gorm.DB) *GormConnectorRepository {
	return &GormConnectorRepository{db: db}
}

var _ bridge.ConnectorRepository = (*GormConnectorRepository)(nil)

// FindByID finds a connector by its ID
func (r *GormConnectorRepository) FindByID(ctx context.Context, id uuid.UUID) (*bridge.Connector, error) {
	var model models.ConnectorModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByAPIKey finds a connector by its API key
func (r *GormConnectorRepository) FindByAPIKey(ctx context.Context, apiKey string) (*bridge.Connector, error) {
	if apiKey == "" {
		return nil, bridge.ErrInvalidAPIKey
	}
	var model models.ConnectorModel
	if err := r.db.WithContext(ctx).
		Where("api_key = ?", apiKey).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bridge.ErrInvalidAPIKey
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveForTenant returns the most recently heard-from active connector of a tenant
func (r *GormConnectorRepository) FindActiveForTenant(ctx context.Context, tenantID uuid.UUID) (*bridge.Connector, error) {
	var model models.ConnectorModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, string(bridge.ConnectorStatusActive)).
		Order("last_heartbeat DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant finds all connectors registered for a tenant
func (r *GormConnectorRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]bridge.Connector, error) {
	var connectorModels []models.ConnectorModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&connectorModels).Error; err != nil {
		return nil, err
	}

	connectors := make([]bridge.Connector, len(connectorModels))
	for i, model := range connectorModels {
		connectors[i] = *model.ToDomain()
	}
	return connectors, nil
}

// FindSilentSince finds connectors in the given statuses whose last heartbeat
// is older than cutoff or missing entirely
func (r *GormConnectorRepository) FindSilentSince(ctx context.Context, cutoff time.Time, statuses ...bridge.ConnectorStatus) ([]bridge.Connector, error) {
	statusValues := make([]string, len(statuses))
	for i, s := range statuses {
		statusValues[i] = string(s)
	}

	var connectorModels []models.ConnectorModel
	if err := r.db.WithContext(ctx).
		Where("status IN ?", statusValues).
		Where("last_heartbeat IS NULL OR last_heartbeat < ?", cutoff).
		Find(&connectorModels).Error; err != nil {
		return nil, err
	}

	connectors := make([]bridge.Connector, len(connectorModels))
	for i, model := range connectorModels {
		connectors[i] = *model.ToDomain()
	}
	return connectors, nil
}

// Save creates or updates a connector
func (r *GormConnectorRepository) Save(ctx context.Context, connector *bridge.Connector) error {
	var model models.ConnectorModel
	model.FromDomain(connector)
	return r.db.WithContext(ctx).Save(&model).Error
}

// Delete removes a connector. Connectors with non-terminal operations are kept.
func (r *GormConnectorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active int64
		if err := tx.Model(&models.OperationModel{}).
			Where("connector_id = ? AND status IN ?", id,
				[]string{string(bridge.OperationStatusPending), string(bridge.OperationStatusInProgress)}).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return shared.ErrInvalidState
		}
		result := tx.Delete(&models.ConnectorModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}
