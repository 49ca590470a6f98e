package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/accountsync/backend/internal/domain/bridge"
	"github.com/accountsync/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ArtifactStore persists archived operation batches outside the database
type ArtifactStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// MaintenanceService archives and purges terminal operations past the
// retention period so the queue table stays small.
type MaintenanceService struct {
	operationRepo bridge.OperationRepository
	store         ArtifactStore
	cfg           config.BridgeConfig
	logger        *zap.Logger
}

// NewMaintenanceService creates a new MaintenanceService
func NewMaintenanceService(
	operationRepo bridge.OperationRepository,
	store ArtifactStore,
	cfg config.BridgeConfig,
	logger *zap.Logger,
) *MaintenanceService {
	return &MaintenanceService{
		operationRepo: operationRepo,
		store:         store,
		cfg:           cfg,
		logger:        logger,
	}
}

// PurgeStats summarizes one retention run
type PurgeStats struct {
	Archived    int       `json:"archived"`
	Deleted     int       `json:"deleted"`
	ArchiveURL  string    `json:"archive_url,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

const purgeBatchSize = 500

// archivedOperation is the JSON shape written to the artifact store
type archivedOperation struct {
	ID           uuid.UUID  `json:"id"`
	ConnectorID  uuid.UUID  `json:"connector_id"`
	TenantID     uuid.UUID  `json:"tenant_id"`
	Type         string     `json:"type"`
	Status       string     `json:"status"`
	Priority     int        `json:"priority"`
	RequestXML   string     `json:"request_xml,omitempty"`
	ResponseXML  string     `json:"response_xml,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	VoucherID    *uuid.UUID `json:"voucher_id,omitempty"`
	RetryCount   int        `json:"retry_count"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// PurgeExpired archives one batch of terminal operations older than the
// retention period, then deletes them. Archival failure aborts the run;
// rows are never deleted without a stored copy.
func (s *MaintenanceService) PurgeExpired(ctx context.Context) (*PurgeStats, error) {
	stats := &PurgeStats{ProcessedAt: time.Now()}

	cutoff := time.Now().Add(-s.cfg.RetentionPeriod)
	expired, err := s.operationRepo.FindTerminalBefore(ctx, cutoff, purgeBatchSize)
	if err != nil {
		s.logger.Error("Failed to find expired operations", zap.Error(err))
		return nil, err
	}
	if len(expired) == 0 {
		return stats, nil
	}

	archive := make([]archivedOperation, 0, len(expired))
	ids := make([]uuid.UUID, 0, len(expired))
	for i := range expired {
		op := &expired[i]
		archive = append(archive, archivedOperation{
			ID:           op.ID,
			ConnectorID:  op.ConnectorID,
			TenantID:     op.TenantID,
			Type:         string(op.Type),
			Status:       string(op.Status),
			Priority:     op.Priority,
			RequestXML:   op.RequestXML,
			ResponseXML:  op.ResponseXML,
			ErrorMessage: op.ErrorMessage,
			VoucherID:    op.VoucherID,
			RetryCount:   op.RetryCount,
			CreatedAt:    op.CreatedAt,
			CompletedAt:  op.CompletedAt,
		})
		ids = append(ids, op.ID)
	}

	payload, err := json.Marshal(archive)
	if err != nil {
		return nil, fmt.Errorf("failed to encode archive batch: %w", err)
	}

	key := fmt.Sprintf("operations/%s/%s.json",
		stats.ProcessedAt.Format("2006/01/02"), uuid.New().String())
	url, err := s.store.Upload(ctx, key, payload, "application/json")
	if err != nil {
		s.logger.Error("Failed to archive expired operations", zap.Error(err))
		return nil, err
	}
	stats.Archived = len(archive)
	stats.ArchiveURL = url

	if err := s.operationRepo.DeleteByIDs(ctx, ids); err != nil {
		s.logger.Error("Archived but failed to delete expired operations",
			zap.String("archive_url", url),
			zap.Error(err))
		return nil, err
	}
	stats.Deleted = len(ids)

	s.logger.Info("Purged expired operations",
		zap.Int("archived", stats.Archived),
		zap.Int("deleted", stats.Deleted),
		zap.String("archive_url", url))
	return stats, nil
}
