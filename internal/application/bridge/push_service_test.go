package bridge

import (
	"context"
	"testing"

	"github.com/accountsync/backend/internal/domain/accounting"
	"github.com/accountsync/backend/internal/domain/bridge"
	"github.com/accountsync/backend/internal/infrastructure/tally"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pushServiceFixture struct {
	connectorRepo *mockConnectorRepository
	operationRepo *mockOperationRepository
	voucherRepo   *mockVoucherRepository
	engineClient  *mockEngineClient
	service       *PushService
}

func newPushServiceFixture() *pushServiceFixture {
	f := &pushServiceFixture{
		connectorRepo: new(mockConnectorRepository),
		operationRepo: new(mockOperationRepository),
		voucherRepo:   new(mockVoucherRepository),
		engineClient:  new(mockEngineClient),
	}
	logger := zap.NewNop()
	cfg := newTestBridgeConfig()
	connectorService := NewConnectorService(f.connectorRepo, f.operationRepo, nil, cfg, logger)
	queueService := NewQueueService(f.operationRepo, f.connectorRepo, f.voucherRepo, cfg, logger)
	f.service = NewPushService(connectorService, queueService, f.voucherRepo, f.engineClient, cfg, logger)
	return f
}

// expectEnqueue captures the operation saved during push so later
// completion lookups resolve it by ID.
func (f *pushServiceFixture) expectEnqueue() func() *bridge.Operation {
	var enqueued *bridge.Operation
	f.operationRepo.On("Save", mock.Anything, mock.AnythingOfType("*bridge.Operation")).
		Run(func(args mock.Arguments) {
			op := args.Get(1).(*bridge.Operation)
			if enqueued == nil {
				enqueued = op
				f.operationRepo.On("FindByID", mock.Anything, op.ID).Return(op, nil)
			}
		}).Return(nil)
	return func() *bridge.Operation { return enqueued }
}

func TestPushService_DirectSyncSuccess(t *testing.T) {
	f := newPushServiceFixture()

	connector := createTestConnector(uuid.New(), "localhost")
	voucher := createTestVoucher(connector.TenantID)

	f.connectorRepo.On("FindActiveForTenant", mock.Anything, connector.TenantID).Return(connector, nil)
	f.connectorRepo.On("Save", mock.Anything, connector).Return(nil)
	f.voucherRepo.On("FindByID", mock.Anything, voucher.ID).Return(voucher, nil)
	f.voucherRepo.On("UpdateSyncState", mock.Anything, voucher).Return(nil)
	f.operationRepo.On("ExistsActiveForVoucher", mock.Anything, voucher.ID).Return(false, nil)
	enqueued := f.expectEnqueue()

	f.engineClient.On("ImportVoucher", mock.Anything, connector.EngineURL(), mock.AnythingOfType("string")).
		Return(tally.Outcome{Success: true, Created: 1, GUID: "a1b2-0001", Raw: "<RESPONSE/>"}, nil)

	summary, err := f.service.PushVouchers(context.Background(), connector.TenantID, []uuid.UUID{voucher.ID})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.SyncedCount)
	assert.Equal(t, 0, summary.QueuedCount)
	assert.Equal(t, 0, summary.FailedCount)

	op := enqueued()
	require.NotNil(t, op)
	assert.Equal(t, bridge.OperationStatusCompleted, op.Status)
	assert.Equal(t, bridge.PriorityUrgent, op.Priority)
	assert.Equal(t, accounting.SyncStatusSynced, voucher.SyncStatus)
	assert.Equal(t, "a1b2-0001", voucher.EngineGUID)
	assert.Equal(t, int64(1), connector.SuccessfulOperations)
}

func TestPushService_EngineUnavailableFallsBackToQueue(t *testing.T) {
	f := newPushServiceFixture()

	connector := createTestConnector(uuid.New(), "localhost")
	voucher := createTestVoucher(connector.TenantID)

	f.connectorRepo.On("FindActiveForTenant", mock.Anything, connector.TenantID).Return(connector, nil)
	f.connectorRepo.On("Save", mock.Anything, connector).Return(nil)
	f.voucherRepo.On("FindByID", mock.Anything, voucher.ID).Return(voucher, nil)
	f.voucherRepo.On("UpdateSyncState", mock.Anything, voucher).Return(nil)
	f.operationRepo.On("ExistsActiveForVoucher", mock.Anything, voucher.ID).Return(false, nil)
	enqueued := f.expectEnqueue()

	f.engineClient.On("ImportVoucher", mock.Anything, connector.EngineURL(), mock.AnythingOfType("string")).
		Return(tally.Outcome{}, bridge.ErrEngineUnavailable)

	summary, err := f.service.PushVouchers(context.Background(), connector.TenantID, []uuid.UUID{voucher.ID})

	require.NoError(t, err)
	assert.Equal(t, 0, summary.SyncedCount)
	assert.Equal(t, 1, summary.QueuedCount)
	assert.Equal(t, 0, summary.FailedCount)

	op := enqueued()
	require.NotNil(t, op)
	assert.Equal(t, bridge.OperationStatusPending, op.Status)
	assert.Equal(t, accounting.SyncStatusQueued, voucher.SyncStatus)
}

func TestPushService_EngineRejectionLeavesVoucherQueued(t *testing.T) {
	f := newPushServiceFixture()

	connector := createTestConnector(uuid.New(), "localhost")
	voucher := createTestVoucher(connector.TenantID)

	f.connectorRepo.On("FindActiveForTenant", mock.Anything, connector.TenantID).Return(connector, nil)
	f.connectorRepo.On("Save", mock.Anything, connector).Return(nil)
	f.voucherRepo.On("FindByID", mock.Anything, voucher.ID).Return(voucher, nil)
	f.voucherRepo.On("UpdateSyncState", mock.Anything, voucher).Return(nil)
	f.operationRepo.On("ExistsActiveForVoucher", mock.Anything, voucher.ID).Return(false, nil)
	enqueued := f.expectEnqueue()

	f.engineClient.On("ImportVoucher", mock.Anything, connector.EngineURL(), mock.AnythingOfType("string")).
		Return(tally.Outcome{Success: false, LineError: "Ledger does not exist"}, nil)

	summary, err := f.service.PushVouchers(context.Background(), connector.TenantID, []uuid.UUID{voucher.ID})

	require.NoError(t, err)
	assert.Equal(t, 0, summary.SyncedCount)
	assert.Equal(t, 1, summary.QueuedCount)

	// the queued operation gets another chance through the agent
	op := enqueued()
	require.NotNil(t, op)
	assert.Equal(t, bridge.OperationStatusPending, op.Status)
	assert.Equal(t, accounting.SyncStatusQueued, voucher.SyncStatus)
}

func TestPushService_RemoteConnectorSkipsDirectPath(t *testing.T) {
	f := newPushServiceFixture()

	connector := createTestConnector(uuid.New(), "192.168.1.50")
	voucher := createTestVoucher(connector.TenantID)

	f.connectorRepo.On("FindActiveForTenant", mock.Anything, connector.TenantID).Return(connector, nil)
	f.connectorRepo.On("Save", mock.Anything, connector).Return(nil)
	f.voucherRepo.On("FindByID", mock.Anything, voucher.ID).Return(voucher, nil)
	f.voucherRepo.On("UpdateSyncState", mock.Anything, voucher).Return(nil)
	f.operationRepo.On("ExistsActiveForVoucher", mock.Anything, voucher.ID).Return(false, nil)
	f.expectEnqueue()

	summary, err := f.service.PushVouchers(context.Background(), connector.TenantID, []uuid.UUID{voucher.ID})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.QueuedCount)
	assert.Equal(t, 0, summary.SyncedCount)
	f.engineClient.AssertNotCalled(t, "ImportVoucher", mock.Anything, mock.Anything, mock.Anything)
}

func TestPushService_SkipsAlreadyQueuedVoucher(t *testing.T) {
	f := newPushServiceFixture()

	connector := createTestConnector(uuid.New(), "localhost")
	voucher := createTestVoucher(connector.TenantID)

	f.connectorRepo.On("FindActiveForTenant", mock.Anything, connector.TenantID).Return(connector, nil)
	f.voucherRepo.On("FindByID", mock.Anything, voucher.ID).Return(voucher, nil)
	f.operationRepo.On("ExistsActiveForVoucher", mock.Anything, voucher.ID).Return(true, nil)

	summary, err := f.service.PushVouchers(context.Background(), connector.TenantID, []uuid.UUID{voucher.ID})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.QueuedCount)
	assert.Equal(t, 0, summary.SyncedCount)
	f.operationRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.engineClient.AssertNotCalled(t, "ImportVoucher", mock.Anything, mock.Anything, mock.Anything)
}

func TestPushService_ForeignVoucherCountsAsFailed(t *testing.T) {
	f := newPushServiceFixture()

	connector := createTestConnector(uuid.New(), "localhost")
	voucher := createTestVoucher(uuid.New())

	f.connectorRepo.On("FindActiveForTenant", mock.Anything, connector.TenantID).Return(connector, nil)
	f.voucherRepo.On("FindByID", mock.Anything, voucher.ID).Return(voucher, nil)

	summary, err := f.service.PushVouchers(context.Background(), connector.TenantID, []uuid.UUID{voucher.ID})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.FailedCount)
	assert.Equal(t, 0, summary.QueuedCount)
	f.operationRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
