package bridge

import (
	"context"
	"time"

	"github.com/accountsync/backend/internal/domain/accounting"
	"github.com/accountsync/backend/internal/domain/bridge"
	"github.com/accountsync/backend/internal/domain/shared"
	"github.com/accountsync/backend/internal/infrastructure/config"
	"github.com/accountsync/backend/internal/infrastructure/tally"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// Mock implementations shared by the service tests in this package

type mockConnectorRepository struct {
	mock.Mock
}

func (m *mockConnectorRepository) FindByID(ctx context.Context, id uuid.UUID) (*bridge.Connector, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bridge.Connector), args.Error(1)
}

func (m *mockConnectorRepository) FindByAPIKey(ctx context.Context, apiKey string) (*bridge.Connector, error) {
	args := m.Called(ctx, apiKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bridge.Connector), args.Error(1)
}

func (m *mockConnectorRepository) FindActiveForTenant(ctx context.Context, tenantID uuid.UUID) (*bridge.Connector, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bridge.Connector), args.Error(1)
}

func (m *mockConnectorRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]bridge.Connector, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]bridge.Connector), args.Error(1)
}

func (m *mockConnectorRepository) FindSilentSince(ctx context.Context, cutoff time.Time, statuses ...bridge.ConnectorStatus) ([]bridge.Connector, error) {
	args := m.Called(ctx, cutoff, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]bridge.Connector), args.Error(1)
}

func (m *mockConnectorRepository) Save(ctx context.Context, connector *bridge.Connector) error {
	args := m.Called(ctx, connector)
	return args.Error(0)
}

func (m *mockConnectorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockOperationRepository struct {
	mock.Mock
}

func (m *mockOperationRepository) FindByID(ctx context.Context, id uuid.UUID) (*bridge.Operation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bridge.Operation), args.Error(1)
}

func (m *mockOperationRepository) ClaimPending(ctx context.Context, connectorID uuid.UUID, limit int) ([]bridge.Operation, error) {
	args := m.Called(ctx, connectorID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]bridge.Operation), args.Error(1)
}

func (m *mockOperationRepository) Save(ctx context.Context, op *bridge.Operation) error {
	args := m.Called(ctx, op)
	return args.Error(0)
}

func (m *mockOperationRepository) FindStale(ctx context.Context, cutoff time.Time) ([]bridge.Operation, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]bridge.Operation), args.Error(1)
}

func (m *mockOperationRepository) FindAllForConnector(ctx context.Context, connectorID uuid.UUID, status bridge.OperationStatus, limit int) ([]bridge.Operation, error) {
	args := m.Called(ctx, connectorID, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]bridge.Operation), args.Error(1)
}

func (m *mockOperationRepository) CountByStatus(ctx context.Context, connectorID uuid.UUID, status bridge.OperationStatus) (int64, error) {
	args := m.Called(ctx, connectorID, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockOperationRepository) ExistsActiveForVoucher(ctx context.Context, voucherID uuid.UUID) (bool, error) {
	args := m.Called(ctx, voucherID)
	return args.Bool(0), args.Error(1)
}

func (m *mockOperationRepository) FindTerminalBefore(ctx context.Context, cutoff time.Time, limit int) ([]bridge.Operation, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]bridge.Operation), args.Error(1)
}

func (m *mockOperationRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

type mockMasterRepository struct {
	mock.Mock
}

func (m *mockMasterRepository) Upsert(ctx context.Context, master *bridge.TallyMaster) error {
	args := m.Called(ctx, master)
	return args.Error(0)
}

func (m *mockMasterRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, masterType bridge.MasterType) ([]bridge.TallyMaster, error) {
	args := m.Called(ctx, tenantID, masterType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]bridge.TallyMaster), args.Error(1)
}

type mockVoucherRepository struct {
	mock.Mock
}

func (m *mockVoucherRepository) FindByID(ctx context.Context, id uuid.UUID) (*accounting.Voucher, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.Voucher), args.Error(1)
}

func (m *mockVoucherRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, status accounting.SyncStatus, limit int) ([]accounting.Voucher, error) {
	args := m.Called(ctx, tenantID, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]accounting.Voucher), args.Error(1)
}

func (m *mockVoucherRepository) Save(ctx context.Context, voucher *accounting.Voucher) error {
	args := m.Called(ctx, voucher)
	return args.Error(0)
}

func (m *mockVoucherRepository) UpdateSyncState(ctx context.Context, voucher *accounting.Voucher) error {
	args := m.Called(ctx, voucher)
	return args.Error(0)
}

type mockLedgerRepository struct {
	mock.Mock
}

func (m *mockLedgerRepository) FindByID(ctx context.Context, id uuid.UUID) (*accounting.Ledger, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.Ledger), args.Error(1)
}

func (m *mockLedgerRepository) FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*accounting.Ledger, error) {
	args := m.Called(ctx, tenantID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.Ledger), args.Error(1)
}

func (m *mockLedgerRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]accounting.Ledger, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]accounting.Ledger), args.Error(1)
}

func (m *mockLedgerRepository) Save(ctx context.Context, ledger *accounting.Ledger) error {
	args := m.Called(ctx, ledger)
	return args.Error(0)
}

func (m *mockLedgerRepository) UpsertFromEngine(ctx context.Context, ledger *accounting.Ledger) error {
	args := m.Called(ctx, ledger)
	return args.Error(0)
}

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

type mockEngineClient struct {
	mock.Mock
}

func (m *mockEngineClient) ImportVoucher(ctx context.Context, engineURL, envelope string) (tally.Outcome, error) {
	args := m.Called(ctx, engineURL, envelope)
	return args.Get(0).(tally.Outcome), args.Error(1)
}

type mockEngineProber struct {
	mock.Mock
}

func (m *mockEngineProber) Ping(ctx context.Context, engineURL string) error {
	args := m.Called(ctx, engineURL)
	return args.Error(0)
}

func (m *mockEngineProber) ListCompanies(ctx context.Context, engineURL string) ([]string, error) {
	args := m.Called(ctx, engineURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockEngineProber) ListLedgers(ctx context.Context, engineURL, company string) ([]tally.CollectionEntry, error) {
	args := m.Called(ctx, engineURL, company)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tally.CollectionEntry), args.Error(1)
}

func (m *mockEngineProber) ListVoucherTypes(ctx context.Context, engineURL, company string) ([]tally.CollectionEntry, error) {
	args := m.Called(ctx, engineURL, company)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tally.CollectionEntry), args.Error(1)
}

type mockArtifactStore struct {
	mock.Mock
}

func (m *mockArtifactStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, key, data, contentType)
	return args.String(0), args.Error(1)
}

// Helper functions

func newTestBridgeConfig() config.BridgeConfig {
	return config.BridgeConfig{
		HeartbeatTimeout:      10 * time.Minute,
		AlertAfter:            5 * time.Minute,
		StaleOperationTimeout: 10 * time.Minute,
		SweepInterval:         time.Minute,
		DirectPushTimeout:     3 * time.Second,
		EngineProbeTimeout:    5 * time.Second,
		AutoProvision:         true,
		DefaultEngineHost:     "localhost",
		DefaultEnginePort:     9000,
		RetentionPeriod:       30 * 24 * time.Hour,
	}
}

func createTestConnector(tenantID uuid.UUID, engineHost string) *bridge.Connector {
	connector, _ := bridge.NewConnector(tenantID, "Office Desktop", "DESKTOP-01", engineHost, 9000)
	now := time.Now()
	connector.RecordHeartbeat("1.2.0", "Release 6.4", now)
	connector.ClearDomainEvents()
	return connector
}

func createTestVoucher(tenantID uuid.UUID) *accounting.Voucher {
	voucher, _ := accounting.NewVoucher(tenantID, "PMT-001", accounting.VoucherTypePayment,
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), "Acme Supplies", "Rent for April",
		[]accounting.VoucherEntry{
			{LedgerName: "Acme Supplies", Amount: decimal.NewFromInt(1500), IsDebit: true},
			{LedgerName: "HDFC Bank", Amount: decimal.NewFromInt(1500), IsDebit: false},
		})
	return voucher
}
