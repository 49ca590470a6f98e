package bridge

import (
	"context"
	"time"

	"github.com/accountsync/backend/internal/domain/bridge"
	"github.com/accountsync/backend/internal/domain/shared"
	"github.com/accountsync/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// HealthService runs the heartbeat-watchdog sweeps over registered connectors
type HealthService struct {
	connectorRepo bridge.ConnectorRepository
	operationRepo bridge.OperationRepository
	eventBus      shared.EventPublisher
	cfg           config.BridgeConfig
	logger        *zap.Logger
}

// NewHealthService creates a new HealthService
func NewHealthService(
	connectorRepo bridge.ConnectorRepository,
	operationRepo bridge.OperationRepository,
	eventBus shared.EventPublisher,
	cfg config.BridgeConfig,
	logger *zap.Logger,
) *HealthService {
	return &HealthService{
		connectorRepo: connectorRepo,
		operationRepo: operationRepo,
		eventBus:      eventBus,
		cfg:           cfg,
		logger:        logger,
	}
}

// DisconnectSweepStats summarizes one disconnection sweep
type DisconnectSweepStats struct {
	Checked      int       `json:"checked"`
	Disconnected int       `json:"disconnected"`
	ProcessedAt  time.Time `json:"processed_at"`
}

// SweepDisconnected demotes active connectors whose heartbeats stopped
// longer ago than the heartbeat timeout.
func (s *HealthService) SweepDisconnected(ctx context.Context) (*DisconnectSweepStats, error) {
	stats := &DisconnectSweepStats{ProcessedAt: time.Now()}

	cutoff := time.Now().Add(-s.cfg.HeartbeatTimeout)
	silent, err := s.connectorRepo.FindSilentSince(ctx, cutoff, bridge.ConnectorStatusActive)
	if err != nil {
		s.logger.Error("Failed to find silent connectors", zap.Error(err))
		return nil, err
	}

	stats.Checked = len(silent)
	for i := range silent {
		connector := &silent[i]
		connector.MarkDisconnected()
		if err := s.connectorRepo.Save(ctx, connector); err != nil {
			s.logger.Error("Failed to demote silent connector",
				zap.String("connector_id", connector.ID.String()),
				zap.Error(err))
			continue
		}
		s.publishEvents(ctx, connector)
		stats.Disconnected++

		s.logger.Warn("Connector disconnected",
			zap.String("connector_id", connector.ID.String()),
			zap.String("name", connector.Name),
			zap.Timep("last_heartbeat", connector.LastHeartbeat))
	}
	return stats, nil
}

// AlertSweepStats summarizes one alert sweep
type AlertSweepStats struct {
	Alerted     int       `json:"alerted"`
	ProcessedAt time.Time `json:"processed_at"`
}

// SweepAlerts raises an event for every active connector that has pending
// work but has not been heard from within the alert window. This fires
// before the disconnection sweep so operators can intervene early.
func (s *HealthService) SweepAlerts(ctx context.Context) (*AlertSweepStats, error) {
	stats := &AlertSweepStats{ProcessedAt: time.Now()}

	cutoff := time.Now().Add(-s.cfg.AlertAfter)
	silent, err := s.connectorRepo.FindSilentSince(ctx, cutoff, bridge.ConnectorStatusActive)
	if err != nil {
		s.logger.Error("Failed to find connectors for alert sweep", zap.Error(err))
		return nil, err
	}

	for i := range silent {
		connector := &silent[i]
		pending, err := s.operationRepo.CountByStatus(ctx, connector.ID, bridge.OperationStatusPending)
		if err != nil {
			s.logger.Warn("Failed to count pending operations for alert",
				zap.String("connector_id", connector.ID.String()),
				zap.Error(err))
			continue
		}
		if pending == 0 {
			continue
		}

		silentFor := s.cfg.AlertAfter
		if connector.LastHeartbeat != nil {
			silentFor = time.Since(*connector.LastHeartbeat)
		}
		if s.eventBus != nil {
			event := bridge.NewConnectorSilentEvent(connector, pending, int64(silentFor.Seconds()))
			if err := s.eventBus.Publish(ctx, event); err != nil {
				s.logger.Warn("Failed to publish silence alert",
					zap.String("connector_id", connector.ID.String()),
					zap.Error(err))
				continue
			}
		}
		stats.Alerted++

		s.logger.Warn("Connector silent with pending work",
			zap.String("connector_id", connector.ID.String()),
			zap.String("name", connector.Name),
			zap.Int64("pending", pending),
			zap.Duration("silent_for", silentFor))
	}
	return stats, nil
}

func (s *HealthService) publishEvents(ctx context.Context, connector *bridge.Connector) {
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
