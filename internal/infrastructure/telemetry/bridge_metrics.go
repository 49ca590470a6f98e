// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BridgeMetrics provides sync-bridge metrics: queue throughput, agent
// heartbeats, direct-sync outcomes and queue depth.
type BridgeMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	operationEnqueuedTotal  *Counter
	operationCompletedTotal *Counter
	heartbeatTotal          *Counter
	directSyncTotal         *Counter

	// Histogram metrics
	operationDuration *Histogram

	// Gauge metrics (point-in-time values)
	pendingOperations *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	queueDepthProvider QueueDepthProvider
}

// QueueDepthProvider provides queue depth data for periodic metrics
// collection. This interface lets the telemetry layer query the operation
// queue without depending on the bridge domain directly.
type QueueDepthProvider interface {
	// CountPendingByConnector returns the number of pending operations per connector
	CountPendingByConnector(ctx context.Context) (map[uuid.UUID]int64, error)
}

// BridgeMetricsConfig holds configuration for bridge metrics.
type BridgeMetricsConfig struct {
	Meter              metric.Meter
	Logger             *zap.Logger
	CollectInterval    time.Duration // Default: 1 minute
	QueueDepthProvider QueueDepthProvider
}

// NewBridgeMetrics creates a new BridgeMetrics instance.
func NewBridgeMetrics(cfg BridgeMetricsConfig) (*BridgeMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BridgeMetrics{
		meter:              cfg.Meter,
		logger:             logger,
		stopChan:           make(chan struct{}),
		queueDepthProvider: cfg.QueueDepthProvider,
	}

	var err error

	bm.operationEnqueuedTotal, err = NewCounter(
		cfg.Meter,
		"bridge_operation_enqueued_total",
		"Total number of operations enqueued for agent delivery",
		"{operations}",
	)
	if err != nil {
		return nil, err
	}

	bm.operationCompletedTotal, err = NewCounter(
		cfg.Meter,
		"bridge_operation_completed_total",
		"Total number of operations that reached a terminal status",
		"{operations}",
	)
	if err != nil {
		return nil, err
	}

	bm.heartbeatTotal, err = NewCounter(
		cfg.Meter,
		"bridge_heartbeat_total",
		"Total number of agent heartbeats received",
		"{heartbeats}",
	)
	if err != nil {
		return nil, err
	}

	bm.directSyncTotal, err = NewCounter(
		cfg.Meter,
		"bridge_direct_sync_total",
		"Total number of direct-sync attempts by outcome",
		"{attempts}",
	)
	if err != nil {
		return nil, err
	}

	bm.operationDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "bridge_operation_duration_seconds",
		Description: "Time from enqueue to terminal status",
		Unit:        "s",
		Boundaries:  OperationDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	bm.pendingOperations, err = NewGauge(
		cfg.Meter,
		"bridge_pending_operations",
		"Current number of pending operations per connector",
		"{operations}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Queue Metrics
// =============================================================================

// SyncPath labels which delivery path handled a command.
type SyncPath string

const (
	SyncPathQueued SyncPath = "queued"
	SyncPathDirect SyncPath = "direct"
)

// DirectSyncResult labels the outcome of a direct-sync attempt.
type DirectSyncResult string

const (
	DirectSyncResultDirect   DirectSyncResult = "direct"
	DirectSyncResultFallback DirectSyncResult = "fallback"
	DirectSyncResultFailed   DirectSyncResult = "failed"
)

// RecordOperationEnqueued records an operation entering the queue.
func (bm *BridgeMetrics) RecordOperationEnqueued(ctx context.Context, tenantID, connectorID uuid.UUID, operationType string) {
	bm.operationEnqueuedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrConnectorID.String(connectorID.String()),
		AttrOperationType.String(operationType),
	)
}

// RecordOperationCompleted records an operation reaching a terminal status
// along with its queue-to-terminal duration.
func (bm *BridgeMetrics) RecordOperationCompleted(ctx context.Context, tenantID, connectorID uuid.UUID, status string, duration time.Duration) {
	bm.operationCompletedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrConnectorID.String(connectorID.String()),
		AttrOperationStatus.String(status),
	)
	bm.operationDuration.RecordDuration(ctx, duration,
		AttrOperationStatus.String(status),
	)
}

// RecordHeartbeat records an agent heartbeat.
func (bm *BridgeMetrics) RecordHeartbeat(ctx context.Context, tenantID, connectorID uuid.UUID) {
	bm.heartbeatTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrConnectorID.String(connectorID.String()),
	)
}

// RecordDirectSync records a direct-sync attempt and its outcome.
func (bm *BridgeMetrics) RecordDirectSync(ctx context.Context, tenantID uuid.UUID, result DirectSyncResult) {
	bm.directSyncTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrResult.String(string(result)),
	)
}

// RecordPendingOperations records the current queue depth for a connector.
func (bm *BridgeMetrics) RecordPendingOperations(ctx context.Context, connectorID uuid.UUID, count int64) {
	bm.pendingOperations.Record(ctx, count,
		AttrConnectorID.String(connectorID.String()),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of queue depth gauges.
// This is non-blocking - use Stop() to stop collection.
func (bm *BridgeMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 1 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, interval)
	})
}

func (bm *BridgeMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectQueueDepth(ctx)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic bridge metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic bridge metrics collection")
			return
		case <-ticker.C:
			bm.collectQueueDepth(ctx)
		}
	}
}

func (bm *BridgeMetrics) collectQueueDepth(ctx context.Context) {
	if bm.queueDepthProvider == nil {
		bm.logger.Debug("No queue depth provider configured, skipping queue depth collection")
		return
	}

	pendingByConnector, err := bm.queueDepthProvider.CountPendingByConnector(ctx)
	if err != nil {
		bm.logger.Error("Failed to collect queue depth", zap.Error(err))
		return
	}

	for connectorID, count := range pendingByConnector {
		bm.RecordPendingOperations(ctx, connectorID, count)
	}
}

// Stop stops the periodic collection.
func (bm *BridgeMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBridgeMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
