package telemetry_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/accountsync/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

func TestNewBridgeMetrics(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	bm, err := telemetry.NewBridgeMetrics(telemetry.BridgeMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
	})

	require.NoError(t, err)
	require.NotNil(t, bm)
}

func TestNewBridgeMetrics_NilMeter(t *testing.T) {
	bm, err := telemetry.NewBridgeMetrics(telemetry.BridgeMetricsConfig{
		Meter:  nil,
		Logger: zap.NewNop(),
	})

	require.Error(t, err)
	assert.Nil(t, bm)
	assert.Equal(t, "NewBridgeMetrics: meter cannot be nil", err.Error())
}

func TestBridgeMetrics_RecordOperationEnqueued(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	bm, err := telemetry.NewBridgeMetrics(telemetry.BridgeMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()
	tenantID := uuid.New()
	connectorID := uuid.New()

	// Should not panic
	bm.RecordOperationEnqueued(ctx, tenantID, connectorID, "create_voucher")
	bm.RecordOperationEnqueued(ctx, tenantID, connectorID, "sync_ledgers")
}

func TestBridgeMetrics_RecordOperationCompleted(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	bm, err := telemetry.NewBridgeMetrics(telemetry.BridgeMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()
	tenantID := uuid.New()
	connectorID := uuid.New()

	// Should not panic
	bm.RecordOperationCompleted(ctx, tenantID, connectorID, "completed", 12*time.Second)
	bm.RecordOperationCompleted(ctx, tenantID, connectorID, "failed", 45*time.Minute)
}

func TestBridgeMetrics_RecordHeartbeat(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	bm, err := telemetry.NewBridgeMetrics(telemetry.BridgeMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()

	// Should not panic
	bm.RecordHeartbeat(ctx, uuid.New(), uuid.New())
}

func TestBridgeMetrics_RecordDirectSync(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	bm, err := telemetry.NewBridgeMetrics(telemetry.BridgeMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()
	tenantID := uuid.New()

	// Should not panic
	bm.RecordDirectSync(ctx, tenantID, telemetry.DirectSyncResultDirect)
	bm.RecordDirectSync(ctx, tenantID, telemetry.DirectSyncResultFallback)
	bm.RecordDirectSync(ctx, tenantID, telemetry.DirectSyncResultFailed)
}

func TestBridgeMetrics_RecordPendingOperations(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	bm, err := telemetry.NewBridgeMetrics(telemetry.BridgeMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()
	connectorID := uuid.New()

	// Should not panic
	bm.RecordPendingOperations(ctx, connectorID, 42)
	bm.RecordPendingOperations(ctx, connectorID, 0)
}

// Mock implementation for testing periodic collection

type mockQueueDepthProvider struct {
	counts map[uuid.UUID]int64
	err    error
	calls  atomic.Int64
}

func (m *mockQueueDepthProvider) CountPendingByConnector(ctx context.Context) (map[uuid.UUID]int64, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.counts, nil
}

func TestBridgeMetrics_PeriodicCollection(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	provider := &mockQueueDepthProvider{
		counts: map[uuid.UUID]int64{
			uuid.New(): 7,
			uuid.New(): 0,
		},
	}

	bm, err := telemetry.NewBridgeMetrics(telemetry.BridgeMetricsConfig{
		Meter:              meter,
		Logger:             zap.NewNop(),
		QueueDepthProvider: provider,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bm.StartPeriodicCollection(ctx, 50*time.Millisecond)

	assert.Eventually(t, func() bool {
		return provider.calls.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)

	bm.Stop()
}

func TestBridgeMetrics_PeriodicCollection_NoProvider(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	bm, err := telemetry.NewBridgeMetrics(telemetry.BridgeMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
		// No queue depth provider
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Should not panic with no provider
	bm.StartPeriodicCollection(ctx, 50*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	bm.Stop()
}

func TestBridgeMetrics_StopIsIdempotent(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	bm, err := telemetry.NewBridgeMetrics(telemetry.BridgeMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	bm.Stop()
	bm.Stop()
}
