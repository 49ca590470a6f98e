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

// GormOperationRepository implements bridge.OperationRepository using GORM
type GormOperationRepository struct {
	db *gorm.DB
}

// NewGormOperationRepository creates a new GormOperationRepository
func NewGormOperationRepository(db *gorm.DB) *GormOperationRepository {
	return &GormOperationRepository{db: db}
}

var _ bridge.OperationRepository = (*GormOperationRepository)(nil)

// FindByID finds an operation by its ID
func (r *GormOperationRepository) FindByID(ctx context.Context, id uuid.UUID) (*bridge.Operation, error) {
	var model models.OperationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ClaimPending atomically claims up to limit pending operations for a
// connector, most urgent first, oldest first within a priority. Each
// candidate is claimed with a conditional update so an operation cancelled
// or grabbed by a concurrent poll is never handed out twice.
func (r *GormOperationRepository) ClaimPending(ctx context.Context, connectorID uuid.UUID, limit int) ([]bridge.Operation, error) {
	if limit <= 0 {
		limit = 10
	}

	var claimed []bridge.Operation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidateIDs []uuid.UUID
		if err := tx.Model(&models.OperationModel{}).
			Where("connector_id = ? AND status = ?", connectorID, string(bridge.OperationStatusPending)).
			Order("priority DESC, created_at ASC").
			Limit(limit).
			Pluck("id", &candidateIDs).Error; err != nil {
			return err
		}

		now := time.Now()
		claimedIDs := make([]uuid.UUID, 0, len(candidateIDs))
		for _, id := range candidateIDs {
			result := tx.Model(&models.OperationModel{}).
				Where("id = ? AND status = ?", id, string(bridge.OperationStatusPending)).
				Updates(map[string]interface{}{
					"status":     string(bridge.OperationStatusInProgress),
					"started_at": now,
					"updated_at": now,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 1 {
				claimedIDs = append(claimedIDs, id)
			}
		}

		if len(claimedIDs) == 0 {
			return nil
		}

		var claimedModels []models.OperationModel
		if err := tx.Where("id IN ?", claimedIDs).
			Order("priority DESC, created_at ASC").
			Find(&claimedModels).Error; err != nil {
			return err
		}
		claimed = make([]bridge.Operation, len(claimedModels))
		for i, model := range claimedModels {
			claimed[i] = *model.ToDomain()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// Save creates or updates an operation
func (r *GormOperationRepository) Save(ctx context.Context, op *bridge.Operation) error {
	var model models.OperationModel
	model.FromDomain(op)
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindStale finds in-progress operations claimed before cutoff
func (r *GormOperationRepository) FindStale(ctx context.Context, cutoff time.Time) ([]bridge.Operation, error) {
	var operationModels []models.OperationModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND started_at < ?", string(bridge.OperationStatusInProgress), cutoff).
		Find(&operationModels).Error; err != nil {
		return nil, err
	}

	operations := make([]bridge.Operation, len(operationModels))
	for i, model := range operationModels {
		operations[i] = *model.ToDomain()
	}
	return operations, nil
}

// FindAllForConnector lists operations of a connector, optionally filtered by status
func (r *GormOperationRepository) FindAllForConnector(ctx context.Context, connectorID uuid.UUID, status bridge.OperationStatus, limit int) ([]bridge.Operation, error) {
	if limit <= 0 {
		limit = 50
	}
	query := r.db.WithContext(ctx).
		Where("connector_id = ?", connectorID).
		Order("created_at DESC").
		Limit(limit)
	if status != "" {
		query = query.Where("status = ?", string(status))
	}

	var operationModels []models.OperationModel
	if err := query.Find(&operationModels).Error; err != nil {
		return nil, err
	}

	operations := make([]bridge.Operation, len(operationModels))
	for i, model := range operationModels {
		operations[i] = *model.ToDomain()
	}
	return operations, nil
}

// CountByStatus counts a connector's operations in the given status
func (r *GormOperationRepository) CountByStatus(ctx context.Context, connectorID uuid.UUID, status bridge.OperationStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OperationModel{}).
		Where("connector_id = ? AND status = ?", connectorID, string(status)).
		Count(&count).Error
	return count, err
}

// CountPendingByConnector returns the number of pending operations per
// connector across all tenants. Used for periodic queue depth gauges.
func (r *GormOperationRepository) CountPendingByConnector(ctx context.Context) (map[uuid.UUID]int64, error) {
	type row struct {
		ConnectorID uuid.UUID
		Count       int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).Model(&models.OperationModel{}).
		Select("connector_id, COUNT(*) as count").
		Where("status = ?", string(bridge.OperationStatusPending)).
		Group("connector_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	for _, r := range rows {
		counts[r.ConnectorID] = r.Count
	}
	return counts, nil
}

// ExistsActiveForVoucher reports whether the voucher already has a pending
// or in-progress operation
func (r *GormOperationRepository) ExistsActiveForVoucher(ctx context.Context, voucherID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OperationModel{}).
		Where("voucher_id = ? AND status IN ?", voucherID,
			[]string{string(bridge.OperationStatusPending), string(bridge.OperationStatusInProgress)}).
		Count(&count).Error
	return count > 0, err
}

// FindTerminalBefore finds completed, failed and cancelled operations whose
// terminal timestamp is older than cutoff
func (r *GormOperationRepository) FindTerminalBefore(ctx context.Context, cutoff time.Time, limit int) ([]bridge.Operation, error) {
	if limit <= 0 {
		limit = 500
	}
	var operationModels []models.OperationModel
	if err := r.db.WithContext(ctx).
		Where("status IN ? AND completed_at < ?",
			[]string{
				string(bridge.OperationStatusCompleted),
				string(bridge.OperationStatusFailed),
				string(bridge.OperationStatusCancelled),
			}, cutoff).
		Order("completed_at ASC").
		Limit(limit).
		Find(&operationModels).Error; err != nil {
		return nil, err
	}

	operations := make([]bridge.Operation, len(operationModels))
	for i, model := range operationModels {
		operations[i] = *model.ToDomain()
	}
	return operations, nil
}

// DeleteByIDs removes operations by ID
func (r *GormOperationRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Delete(&models.OperationModel{}, "id IN ?", ids).Error
}
