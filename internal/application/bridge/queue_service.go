package bridge

import (
	"context"
	"time"

	"github.com/accountsync/backend/internal/domain/accounting"
	"github.com/accountsync/backend/internal/domain/bridge"
	"github.com/accountsync/backend/internal/domain/shared"
	"github.com/accountsync/backend/internal/infrastructure/config"
	"github.com/accountsync/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QueueService owns the operation queue: enqueueing, claiming, result
// recording and the stale-operation sweep.
type QueueService struct {
	operationRepo bridge.OperationRepository
	connectorRepo bridge.ConnectorRepository
	voucherRepo   accounting.VoucherRepository
	cfg           config.BridgeConfig
	logger        *zap.Logger
	bridgeMetrics *telemetry.BridgeMetrics
}

// NewQueueService creates a new QueueService
func NewQueueService(
	operationRepo bridge.OperationRepository,
	connectorRepo bridge.ConnectorRepository,
	voucherRepo accounting.VoucherRepository,
	cfg config.BridgeConfig,
	logger *zap.Logger,
) *QueueService {
	return &QueueService{
		operationRepo: operationRepo,
		connectorRepo: connectorRepo,
		voucherRepo:   voucherRepo,
		cfg:           cfg,
		logger:        logger,
	}
}

// SetBridgeMetrics sets the metrics recorder (optional)
func (s *QueueService) SetBridgeMetrics(bm *telemetry.BridgeMetrics) {
	s.bridgeMetrics = bm
}

// Enqueue inserts a pending operation for a connector and returns at once;
// delivery happens through agent polling.
func (s *QueueService) Enqueue(ctx context.Context, connector *bridge.Connector, opType bridge.OperationType, requestXML, requestData string, priority int, voucherID *uuid.UUID) (*bridge.Operation, error) {
	op := bridge.NewOperation(connector.ID, connector.TenantID, opType, priority, requestXML, requestData)
	op.VoucherID = voucherID
	if err := s.operationRepo.Save(ctx, op); err != nil {
		return nil, err
	}

	connector.RecordEnqueued()
	if err := s.connectorRepo.Save(ctx, connector); err != nil {
		s.logger.Warn("Failed to update connector totals after enqueue",
			zap.String("connector_id", connector.ID.String()),
			zap.Error(err))
	}

	if s.bridgeMetrics != nil {
		s.bridgeMetrics.RecordOperationEnqueued(ctx, connector.TenantID, connector.ID, string(opType))
	}

	s.logger.Info("Enqueued operation",
		zap.String("operation_id", op.ID.String()),
		zap.String("connector_id", connector.ID.String()),
		zap.String("type", string(opType)),
		zap.Int("priority", priority))
	return op, nil
}

// Claim hands the agent its next batch of work, most urgent first. Claimed
// operations move to in_progress atomically so concurrent polls never see
// the same operation twice.
func (s *QueueService) Claim(ctx context.Context, connectorID uuid.UUID, limit int) ([]bridge.Operation, error) {
	claimed, err := s.operationRepo.ClaimPending(ctx, connectorID, limit)
	if err != nil {
		return nil, err
	}
	if len(claimed) > 0 {
		s.logger.Info("Claimed operations",
			zap.String("connector_id", connectorID.String()),
			zap.Int("count", len(claimed)))
	}
	return claimed, nil
}

// CompleteResult is what Complete reports back to the caller
type CompleteResult struct {
	AlreadyTerminal bool
	Status          bridge.OperationStatus
}

// Complete records an operation result reported by the agent. Reporting a
// result for an operation that is already terminal is a no-op; the agent
// may retry its report after a network hiccup without double counting.
func (s *QueueService) Complete(ctx context.Context, connector *bridge.Connector, operationID uuid.UUID, success bool, responseXML, responseData, errorMessage, engineGUID string) (*CompleteResult, error) {
	op, err := s.operationRepo.FindByID(ctx, operationID)
	if err != nil {
		return nil, err
	}
	if op.ConnectorID != connector.ID {
		return nil, shared.ErrForbidden
	}

	now := time.Now()
	var applied bool
	if success {
		applied = op.Complete(responseXML, responseData, now)
	} else {
		applied = op.Fail(responseXML, errorMessage, now)
	}
	if !applied {
		s.logger.Debug("Ignored duplicate operation result",
			zap.String("operation_id", op.ID.String()),
			zap.String("status", string(op.Status)))
		return &CompleteResult{AlreadyTerminal: true, Status: op.Status}, nil
	}

	if err := s.operationRepo.Save(ctx, op); err != nil {
		return nil, err
	}

	if success {
		connector.RecordSuccess(now)
	} else {
		connector.RecordFailure()
	}
	if err := s.connectorRepo.Save(ctx, connector); err != nil {
		s.logger.Warn("Failed to update connector counters",
			zap.String("connector_id", connector.ID.String()),
			zap.Error(err))
	}

	if op.VoucherID != nil {
		s.updateVoucherState(ctx, op, success, errorMessage, engineGUID, now)
	}

	if s.bridgeMetrics != nil {
		s.bridgeMetrics.RecordOperationCompleted(ctx, op.TenantID, op.ConnectorID,
			string(op.Status), now.Sub(op.CreatedAt))
	}

	s.logger.Info("Recorded operation result",
		zap.String("operation_id", op.ID.String()),
		zap.Bool("success", success))
	return &CompleteResult{Status: op.Status}, nil
}

// Cancel withdraws a pending operation before any agent claims it
func (s *QueueService) Cancel(ctx context.Context, tenantID, operationID uuid.UUID) error {
	op, err := s.operationRepo.FindByID(ctx, operationID)
	if err != nil {
		return err
	}
	if op.TenantID != tenantID {
		return shared.ErrNotFound
	}
	if err := op.Cancel(); err != nil {
		return err
	}
	if err := s.operationRepo.Save(ctx, op); err != nil {
		return err
	}

	s.logger.Info("Cancelled operation", zap.String("operation_id", op.ID.String()))
	return nil
}

// ListForConnector returns a connector's recent operations for inspection
func (s *QueueService) ListForConnector(ctx context.Context, connectorID uuid.UUID, status bridge.OperationStatus, limit int) ([]bridge.Operation, error) {
	return s.operationRepo.FindAllForConnector(ctx, connectorID, status, limit)
}

// StaleSweepStats summarizes one stale-operation sweep
type StaleSweepStats struct {
	TotalStale  int       `json:"total_stale"`
	Requeued    int       `json:"requeued"`
	Exhausted   int       `json:"exhausted"`
	ProcessedAt time.Time `json:"processed_at"`
}

// SweepStale requeues in-progress operations whose agent never reported
// back, consuming one retry each; operations out of retries are failed.
func (s *QueueService) SweepStale(ctx context.Context) (*StaleSweepStats, error) {
	stats := &StaleSweepStats{ProcessedAt: time.Now()}

	cutoff := time.Now().Add(-s.cfg.StaleOperationTimeout)
	stale, err := s.operationRepo.FindStale(ctx, cutoff)
	if err != nil {
		s.logger.Error("Failed to find stale operations", zap.Error(err))
		return nil, err
	}

	stats.TotalStale = len(stale)
	if stats.TotalStale == 0 {
		return stats, nil
	}

	s.logger.Info("Found stale operations", zap.Int("count", stats.TotalStale))

	now := time.Now()
	for i := range stale {
		op := &stale[i]
		if op.CanRetry() {
			op.ResetForRetry()
			stats.Requeued++
		} else {
			op.Exhaust(now)
			stats.Exhausted++
		}
		if err := s.operationRepo.Save(ctx, op); err != nil {
			s.logger.Error("Failed to save swept operation",
				zap.String("operation_id", op.ID.String()),
				zap.Error(err))
			continue
		}
		if op.Status == bridge.OperationStatusFailed && op.VoucherID != nil {
			s.updateVoucherState(ctx, op, false, op.ErrorMessage, "", now)
		}
	}

	s.logger.Info("Completed stale operation sweep",
		zap.Int("total", stats.TotalStale),
		zap.Int("requeued", stats.Requeued),
		zap.Int("exhausted", stats.Exhausted))
	return stats, nil
}

func (s *QueueService) updateVoucherState(ctx context.Context, op *bridge.Operation, success bool, errorMessage, engineGUID string, at time.Time) {
	voucher, err := s.voucherRepo.FindByID(ctx, *op.VoucherID)
	if err != nil {
		s.logger.Warn("Could not load voucher for completed operation",
			zap.String("operation_id", op.ID.String()),
			zap.String("voucher_id", op.VoucherID.String()),
			zap.Error(err))
		return
	}

	if success {
		voucher.MarkSynced(engineGUID, at)
	} else {
		voucher.MarkSyncFailed(errorMessage)
	}
	if err := s.voucherRepo.UpdateSyncState(ctx, voucher); err != nil {
		s.logger.Warn("Failed to update voucher sync state",
			zap.String("voucher_id", voucher.ID.String()),
			zap.Error(err))
	}
}
