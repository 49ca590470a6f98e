package bridge

import (
	"context"
	"errors"
	"time"

	"github.com/accountsync/backend/internal/domain/bridge"
	"github.com/accountsync/backend/internal/domain/shared"
	"github.com/accountsync/backend/internal/infrastructure/config"
	"github.com/accountsync/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConnectorService manages connector registration, authentication and liveness
type ConnectorService struct {
	connectorRepo bridge.ConnectorRepository
	operationRepo bridge.OperationRepository
	eventBus      shared.EventPublisher
	cfg           config.BridgeConfig
	logger        *zap.Logger
	bridgeMetrics *telemetry.BridgeMetrics
}

// NewConnectorService creates a new ConnectorService
func NewConnectorService(
	connectorRepo bridge.ConnectorRepository,
	operationRepo bridge.OperationRepository,
	eventBus shared.EventPublisher,
	cfg config.BridgeConfig,
	logger *zap.Logger,
) *ConnectorService {
	return &ConnectorService{
		connectorRepo: connectorRepo,
		operationRepo: operationRepo,
		eventBus:      eventBus,
		cfg:           cfg,
		logger:        logger,
	}
}

// SetBridgeMetrics sets the metrics recorder (optional)
func (s *ConnectorService) SetBridgeMetrics(bm *telemetry.BridgeMetrics) {
	s.bridgeMetrics = bm
}

// Register creates a connector for a tenant and returns it with its API key.
// The key is shown once; afterwards only its presence is exposed.
func (s *ConnectorService) Register(ctx context.Context, tenantID uuid.UUID, name, machineName, engineHost string, enginePort int) (*bridge.Connector, error) {
	connector, err := bridge.NewConnector(tenantID, name, machineName, engineHost, enginePort)
	if err != nil {
		return nil, err
	}
	if err := s.connectorRepo.Save(ctx, connector); err != nil {
		return nil, err
	}

	s.logger.Info("Registered connector",
		zap.String("connector_id", connector.ID.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.String("name", name))
	return connector, nil
}

// Authenticate resolves a connector from its API key
func (s *ConnectorService) Authenticate(ctx context.Context, apiKey string) (*bridge.Connector, error) {
	connector, err := s.connectorRepo.FindByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, bridge.ErrInvalidAPIKey) {
			s.logger.Warn("Rejected unknown API key")
		}
		return nil, err
	}
	return connector, nil
}

// Heartbeat records a liveness report. A heartbeat always moves the
// connector to active, recovering disconnected connectors without any
// extra handshake.
func (s *ConnectorService) Heartbeat(ctx context.Context, req HeartbeatRequest) (*HeartbeatResponse, error) {
	connector, err := s.Authenticate(ctx, req.APIKey)
	if err != nil {
		return nil, err
	}

	connector.RecordHeartbeat(req.ConnectorVersion, req.EngineVersion, time.Now())
	if err := s.connectorRepo.Save(ctx, connector); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, connector)

	if s.bridgeMetrics != nil {
		s.bridgeMetrics.RecordHeartbeat(ctx, connector.TenantID, connector.ID)
	}

	pending, err := s.operationRepo.CountByStatus(ctx, connector.ID, bridge.OperationStatusPending)
	if err != nil {
		s.logger.Warn("Failed to count pending operations",
			zap.String("connector_id", connector.ID.String()),
			zap.Error(err))
		pending = 0
	}

	s.logger.Debug("Heartbeat received",
		zap.String("connector_id", connector.ID.String()),
		zap.Bool("engine_connected", req.EngineConnected),
		zap.Int64("pending", pending))

	return &HeartbeatResponse{
		ConnectorID:  connector.ID,
		Status:       string(connector.Status),
		PendingCount: pending,
	}, nil
}

// RegenerateKey replaces a connector's API key, invalidating the old one
func (s *ConnectorService) RegenerateKey(ctx context.Context, tenantID, connectorID uuid.UUID) (*bridge.Connector, error) {
	connector, err := s.findForTenant(ctx, tenantID, connectorID)
	if err != nil {
		return nil, err
	}
	if err := connector.RegenerateAPIKey(); err != nil {
		return nil, err
	}
	if err := s.connectorRepo.Save(ctx, connector); err != nil {
		return nil, err
	}

	s.logger.Info("Regenerated connector API key",
		zap.String("connector_id", connector.ID.String()))
	return connector, nil
}

// List returns all connectors of a tenant
func (s *ConnectorService) List(ctx context.Context, tenantID uuid.UUID) ([]bridge.Connector, error) {
	return s.connectorRepo.FindAllForTenant(ctx, tenantID)
}

// Get returns one connector of a tenant
func (s *ConnectorService) Get(ctx context.Context, tenantID, connectorID uuid.UUID) (*bridge.Connector, error) {
	return s.findForTenant(ctx, tenantID, connectorID)
}

// Delete removes a tenant's connector if it has no queued work
func (s *ConnectorService) Delete(ctx context.Context, tenantID, connectorID uuid.UUID) error {
	if _, err := s.findForTenant(ctx, tenantID, connectorID); err != nil {
		return err
	}
	return s.connectorRepo.Delete(ctx, connectorID)
}

// ResolveActive returns the tenant's active connector. When auto-provision
// is enabled and the tenant has none at all, a localhost connector is
// created on the fly for single-box deployments.
func (s *ConnectorService) ResolveActive(ctx context.Context, tenantID uuid.UUID) (*bridge.Connector, error) {
	connector, err := s.connectorRepo.FindActiveForTenant(ctx, tenantID)
	if err == nil {
		return connector, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	existing, err := s.connectorRepo.FindAllForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		// registered but not active; queueing still works, direct push won't
		return &existing[0], nil
	}

	if !s.cfg.AutoProvision {
		return nil, bridge.ErrNoActiveConnector
	}

	connector, err = bridge.NewConnector(tenantID, "Local Engine",
		"auto-provisioned", s.cfg.DefaultEngineHost, s.cfg.DefaultEnginePort)
	if err != nil {
		return nil, err
	}
	// active from birth: the loopback engine must be usable before any
	// agent heartbeat arrives
	connector.Activate()
	if err := s.connectorRepo.Save(ctx, connector); err != nil {
		return nil, err
	}
	s.logger.Info("Auto-provisioned local connector",
		zap.String("tenant_id", tenantID.String()),
		zap.String("connector_id", connector.ID.String()))
	return connector, nil
}

func (s *ConnectorService) findForTenant(ctx context.Context, tenantID, connectorID uuid.UUID) (*bridge.Connector, error) {
	connector, err := s.connectorRepo.FindByID(ctx, connectorID)
	if err != nil {
		return nil, err
	}
	if connector.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return connector, nil
}

func (s *ConnectorService) publishEvents(ctx context.Context, connector *bridge.Connector) {
	events := connector.GetDomainEvents()
	if len(events) == 0 || s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish connector events",
			zap.String("connector_id", connector.ID.String()),
			zap.Error(err))
	}
	connector.ClearDomainEvents()
}
