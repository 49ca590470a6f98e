package bridge

import (
	"context"
	"time"

	"github.com/accountsync/backend/internal/domain/accounting"
	"github.com/accountsync/backend/internal/domain/bridge"
	"github.com/accountsync/backend/internal/domain/shared"
	"github.com/accountsync/backend/internal/infrastructure/config"
	"github.com/accountsync/backend/internal/infrastructure/tally"
	"github.com/accountsync/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EngineClient performs a direct voucher import against an engine endpoint.
// Transport failures return an error; a reachable engine yields a
// classified outcome.
type EngineClient interface {
	ImportVoucher(ctx context.Context, engineURL, envelope string) (tally.Outcome, error)
}

// PushService implements the hybrid push path: every voucher is durably
// queued first, then, when the engine shares the host, an optimistic
// direct call tries to complete it on the spot. A failed direct attempt
// changes nothing; the queued operation is picked up by the agent later.
type PushService struct {
	connectorService *ConnectorService
	queueService     *QueueService
	voucherRepo      accounting.VoucherRepository
	engineClient     EngineClient
	cfg              config.BridgeConfig
	logger           *zap.Logger
	bridgeMetrics    *telemetry.BridgeMetrics
}

// NewPushService creates a new PushService
func NewPushService(
	connectorService *ConnectorService,
	queueService *QueueService,
	voucherRepo accounting.VoucherRepository,
	engineClient EngineClient,
	cfg config.BridgeConfig,
	logger *zap.Logger,
) *PushService {
	return &PushService{
		connectorService: connectorService,
		queueService:     queueService,
		voucherRepo:      voucherRepo,
		engineClient:     engineClient,
		cfg:              cfg,
		logger:           logger,
	}
}

// SetBridgeMetrics sets the metrics recorder (optional)
func (s *PushService) SetBridgeMetrics(bm *telemetry.BridgeMetrics) {
	s.bridgeMetrics = bm
}

// PushVouchers queues the given vouchers for the tenant's connector and,
// for loopback connectors, attempts to sync each one directly.
func (s *PushService) PushVouchers(ctx context.Context, tenantID uuid.UUID, voucherIDs []uuid.UUID) (*PushSummary, error) {
	connector, err := s.connectorService.ResolveActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	summary := &PushSummary{}
	for _, voucherID := range voucherIDs {
		if err := s.pushOne(ctx, connector, tenantID, voucherID, summary); err != nil {
			s.logger.Warn("Failed to push voucher",
				zap.String("voucher_id", voucherID.String()),
				zap.Error(err))
			summary.FailedCount++
		}
	}
	return summary, nil
}

func (s *PushService) pushOne(ctx context.Context, connector *bridge.Connector, tenantID, voucherID uuid.UUID, summary *PushSummary) error {
	voucher, err := s.voucherRepo.FindByID(ctx, voucherID)
	if err != nil {
		return err
	}
	if voucher.TenantID != tenantID {
		return shared.ErrNotFound
	}

	alreadyQueued, err := s.queueService.operationRepo.ExistsActiveForVoucher(ctx, voucherID)
	if err != nil {
		return err
	}
	if alreadyQueued {
		summary.QueuedCount++
		return nil
	}

	envelope := tally.EncodeVoucherImport(voucher)
	id := voucherID
	op, err := s.queueService.Enqueue(ctx, connector, bridge.OperationTypeCreateVoucher,
		envelope, "", bridge.PriorityUrgent, &id)
	if err != nil {
		return err
	}

	voucher.MarkQueued()
	if err := s.voucherRepo.UpdateSyncState(ctx, voucher); err != nil {
		s.logger.Warn("Failed to mark voucher queued",
			zap.String("voucher_id", voucher.ID.String()),
			zap.Error(err))
	}
	summary.QueuedCount++

	if !connector.IsLoopback() {
		return nil
	}

	// optimistic direct attempt; on any failure the queued operation stands
	directCtx, cancel := context.WithTimeout(ctx, s.cfg.DirectPushTimeout)
	defer cancel()

	outcome, err := s.engineClient.ImportVoucher(directCtx, connector.EngineURL(), envelope)
	if err != nil {
		s.recordDirectSync(ctx, tenantID, telemetry.DirectSyncResultFallback)
		s.logger.Debug("Direct push unavailable, voucher stays queued",
			zap.String("voucher_id", voucher.ID.String()),
			zap.Error(err))
		return nil
	}
	if !outcome.Success {
		s.recordDirectSync(ctx, tenantID, telemetry.DirectSyncResultFailed)
		s.logger.Debug("Direct push rejected, voucher stays queued",
			zap.String("voucher_id", voucher.ID.String()),
			zap.String("reason", outcome.ErrorMessage()))
		return nil
	}

	result, err := s.queueService.Complete(ctx, connector, op.ID, true,
		outcome.Raw, "", "", outcome.GUID)
	if err != nil {
		s.logger.Warn("Direct push succeeded but completion failed",
			zap.String("operation_id", op.ID.String()),
			zap.Error(err))
		return nil
	}
	if !result.AlreadyTerminal {
		summary.QueuedCount--
		summary.SyncedCount++
		s.recordDirectSync(ctx, tenantID, telemetry.DirectSyncResultDirect)
		s.logger.Info("Voucher synced directly",
			zap.String("voucher_id", voucher.ID.String()),
			zap.String("engine_guid", outcome.GUID))
	}
	return nil
}

func (s *PushService) recordDirectSync(ctx context.Context, tenantID uuid.UUID, result telemetry.DirectSyncResult) {
	if s.bridgeMetrics != nil {
		s.bridgeMetrics.RecordDirectSync(ctx, tenantID, result)
	}
}

// directEngineClient is the production EngineClient backed by tally.Client
type directEngineClient struct {
	timeout time.Duration
	logger  *zap.Logger
}

// NewDirectEngineClient creates an EngineClient that opens a short-lived
// connection per attempt.
func NewDirectEngineClient(timeout time.Duration, logger *zap.Logger) EngineClient {
	return &directEngineClient{timeout: timeout, logger: logger}
}

func (c *directEngineClient) ImportVoucher(ctx context.Context, engineURL, envelope string) (tally.Outcome, error) {
	client := tally.NewClient(engineURL, c.timeout, c.logger)
	return client.ImportVoucher(ctx, envelope)
}
