package bridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/accountsync/backend/internal/domain/accounting"
	"github.com/accountsync/backend/internal/domain/bridge"
	"github.com/accountsync/backend/internal/infrastructure/config"
	"github.com/accountsync/backend/internal/infrastructure/tally"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EngineProber is the read-only direct interface to a co-located engine
type EngineProber interface {
	Ping(ctx context.Context, engineURL string) error
	ListCompanies(ctx context.Context, engineURL string) ([]string, error)
	ListLedgers(ctx context.Context, engineURL, company string) ([]tally.CollectionEntry, error)
	ListVoucherTypes(ctx context.Context, engineURL, company string) ([]tally.CollectionEntry, error)
}

// EngineStatus reports direct-probe reachability
type EngineStatus struct {
	Connected bool   `json:"connected"`
	Message   string `json:"message"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
}

// LedgerSyncStats summarizes a direct ledger import
type LedgerSyncStats struct {
	SyncedCount int       `json:"synced_count"`
	Company     string    `json:"company"`
	ProcessedAt time.Time `json:"processed_at"`
}

// ProbeService serves setup and diagnostics against a co-located engine
// without touching the queue: reachability, company and master
// introspection, and on-demand ledger import.
type ProbeService struct {
	connectorService *ConnectorService
	masterRepo       bridge.MasterRepository
	ledgerRepo       accounting.LedgerRepository
	prober           EngineProber
	cfg              config.BridgeConfig
	logger           *zap.Logger
}

// NewProbeService creates a new ProbeService
func NewProbeService(
	connectorService *ConnectorService,
	masterRepo bridge.MasterRepository,
	ledgerRepo accounting.LedgerRepository,
	prober EngineProber,
	cfg config.BridgeConfig,
	logger *zap.Logger,
) *ProbeService {
	return &ProbeService{
		connectorService: connectorService,
		masterRepo:       masterRepo,
		ledgerRepo:       ledgerRepo,
		prober:           prober,
		cfg:              cfg,
		logger:           logger,
	}
}

// Status checks whether the tenant's engine answers a trivial export.
// Unreachable engines are a structured answer, never an error.
func (s *ProbeService) Status(ctx context.Context, tenantID uuid.UUID) (*EngineStatus, error) {
	connector, err := s.connectorService.ResolveActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	status := &EngineStatus{
		Host: connector.EngineHost,
		Port: connector.EnginePort,
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.cfg.EngineProbeTimeout)
	defer cancel()

	if err := s.prober.Ping(probeCtx, connector.EngineURL()); err != nil {
		status.Connected = false
		status.Message = "Engine is not reachable. Make sure it is running with its XML server enabled."
		return status, nil
	}

	status.Connected = true
	status.Message = "Engine is running and accessible"
	return status, nil
}

// Companies lists the companies loaded in the tenant's engine
func (s *ProbeService) Companies(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	connector, err := s.connectorService.ResolveActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.prober.ListCompanies(ctx, connector.EngineURL())
}

// Ledgers lists a company's ledgers straight from the engine
func (s *ProbeService) Ledgers(ctx context.Context, tenantID uuid.UUID, company string) ([]tally.CollectionEntry, error) {
	connector, err := s.connectorService.ResolveActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.prober.ListLedgers(ctx, connector.EngineURL(), company)
}

// VoucherTypes lists a company's voucher types straight from the engine
func (s *ProbeService) VoucherTypes(ctx context.Context, tenantID uuid.UUID, company string) ([]tally.CollectionEntry, error) {
	connector, err := s.connectorService.ResolveActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.prober.ListVoucherTypes(ctx, connector.EngineURL(), company)
}

// SyncLedgers pulls a company's ledgers from the engine and mirrors them
// into the master store and the cloud ledger table.
func (s *ProbeService) SyncLedgers(ctx context.Context, tenantID uuid.UUID, company string) (*LedgerSyncStats, error) {
	connector, err := s.connectorService.ResolveActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	entries, err := s.prober.ListLedgers(ctx, connector.EngineURL(), company)
	if err != nil {
		return nil, err
	}

	stats := &LedgerSyncStats{Company: company, ProcessedAt: time.Now()}
	for _, entry := range entries {
		if entry.Name == "" {
			continue
		}
		if err := s.upsertLedger(ctx, tenantID, entry); err != nil {
			s.logger.Warn("Failed to mirror ledger",
				zap.String("ledger", entry.Name),
				zap.Error(err))
			continue
		}
		stats.SyncedCount++
	}

	s.logger.Info("Synced ledgers from engine",
		zap.String("tenant_id", tenantID.String()),
		zap.String("company", company),
		zap.Int("count", stats.SyncedCount))
	return stats, nil
}

func (s *ProbeService) upsertLedger(ctx context.Context, tenantID uuid.UUID, entry tally.CollectionEntry) error {
	data, err := json.Marshal(map[string]interface{}{
		"parent":          entry.Parent,
		"opening_balance": entry.OpeningBalance,
		"closing_balance": entry.ClosingBalance,
	})
	if err != nil {
		return err
	}

	master, err := bridge.NewTallyMaster(tenantID, bridge.MasterTypeLedger, entry.Name, entry.Parent, entry.GUID)
	if err != nil {
		return err
	}
	master.Data = string(data)
	if err := s.masterRepo.Upsert(ctx, master); err != nil {
		return err
	}

	ledger, err := accounting.NewLedger(tenantID, entry.Name, ledgerGroupFromParent(entry.Parent), entry.Parent)
	if err != nil {
		return err
	}
	ledger.EngineGUID = entry.GUID
	ledger.OpeningBalance = entry.OpeningBalance
	ledger.ClosingBalance = entry.ClosingBalance
	return s.ledgerRepo.UpsertFromEngine(ctx, ledger)
}

// ledgerGroupFromParent maps the engine's account-group names onto the
// internal classification; unknown groups fall back to other.
func ledgerGroupFromParent(parent string) accounting.LedgerGroup {
	switch parent {
	case "Bank Accounts", "Bank OD A/c":
		return accounting.LedgerGroupBankAccounts
	case "Cash-in-Hand", "Cash-in-hand":
		return accounting.LedgerGroupCashInHand
	case "Sundry Debtors":
		return accounting.LedgerGroupSundryDebtors
	case "Sundry Creditors":
		return accounting.LedgerGroupSundryCreditors
	case "Sales Accounts":
		return accounting.LedgerGroupSalesAccounts
	case "Purchase Accounts":
		return accounting.LedgerGroupPurchaseAccounts
	case "Direct Expenses":
		return accounting.LedgerGroupDirectExpenses
	case "Indirect Expenses":
		return accounting.LedgerGroupIndirectExpenses
	case "Duties & Taxes":
		return accounting.LedgerGroupDutiesAndTaxes
	}
	return accounting.LedgerGroupOther
}

// tallyProber is the production EngineProber backed by tally.Client
type tallyProber struct {
	timeout time.Duration
	logger  *zap.Logger
}

// NewTallyProber creates an EngineProber with the given per-call timeout
func NewTallyProber(timeout time.Duration, logger *zap.Logger) EngineProber {
	return &tallyProber{timeout: timeout, logger: logger}
}

func (p *tallyProber) Ping(ctx context.Context, engineURL string) error {
	return tally.NewClient(engineURL, p.timeout, p.logger).Ping(ctx)
}

func (p *tallyProber) ListCompanies(ctx context.Context, engineURL string) ([]string, error) {
	return tally.NewClient(engineURL, p.timeout, p.logger).ListCompanies(ctx)
}

func (p *tallyProber) ListLedgers(ctx context.Context, engineURL, company string) ([]tally.CollectionEntry, error) {
	return tally.NewClient(engineURL, p.timeout, p.logger).ListLedgers(ctx, company)
}

func (p *tallyProber) ListVoucherTypes(ctx context.Context, engineURL, company string) ([]tally.CollectionEntry, error) {
	return tally.NewClient(engineURL, p.timeout, p.logger).ListVoucherTypes(ctx, company)
}
