package accounting

import (
	"context"
	"time"

	"github.com/accountsync/backend/internal/domain/accounting"
	"github.com/accountsync/backend/internal/domain/shared"
	"github.com/accountsync/backend/internal/infrastructure/tally"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateVoucherInput carries a new voucher with its ledger lines. Entries
// may be omitted for the simple two-ledger form: the party and counter
// ledger then split Amount, with the party side inferred from the voucher
// type.
type CreateVoucherInput struct {
	VoucherNumber string
	Type          accounting.VoucherType
	Date          time.Time
	PartyName     string
	CounterLedger string
	Amount        decimal.Decimal
	Reference     string
	Narration     string
	Entries       []VoucherEntryInput
}

// VoucherEntryInput is one ledger line of a new voucher
type VoucherEntryInput struct {
	LedgerName string
	Amount     decimal.Decimal
	IsDebit    bool
}

// VoucherService manages cloud-side vouchers before and after they reach
// the accounting engine.
type VoucherService struct {
	voucherRepo accounting.VoucherRepository
	ledgerRepo  accounting.LedgerRepository
	logger      *zap.Logger
}

// NewVoucherService creates a new VoucherService
func NewVoucherService(
	voucherRepo accounting.VoucherRepository,
	ledgerRepo accounting.LedgerRepository,
	logger *zap.Logger,
) *VoucherService {
	return &VoucherService{
		voucherRepo: voucherRepo,
		ledgerRepo:  ledgerRepo,
		logger:      logger,
	}
}

// Create records a voucher in the cloud ledger. Syncing it to the engine
// is a separate step through the bridge.
func (s *VoucherService) Create(ctx context.Context, tenantID uuid.UUID, input CreateVoucherInput) (*accounting.Voucher, error) {
	entries := make([]accounting.VoucherEntry, 0, len(input.Entries))
	for _, e := range input.Entries {
		entries = append(entries, accounting.VoucherEntry{
			LedgerName: e.LedgerName,
			Amount:     e.Amount,
			IsDebit:    e.IsDebit,
		})
	}
	if len(entries) == 0 {
		synthesized, err := s.splitSimpleForm(input)
		if err != nil {
			return nil, err
		}
		entries = synthesized
	}

	voucher, err := accounting.NewVoucher(tenantID, input.VoucherNumber, input.Type,
		input.Date, input.PartyName, input.Narration, entries)
	if err != nil {
		return nil, err
	}
	voucher.Reference = input.Reference

	if err := s.voucherRepo.Save(ctx, voucher); err != nil {
		return nil, err
	}

	s.logger.Info("Created voucher",
		zap.String("voucher_id", voucher.ID.String()),
		zap.String("number", voucher.VoucherNumber),
		zap.String("type", string(voucher.Type)))
	return voucher, nil
}

// splitSimpleForm expands the two-ledger form into explicit entries. The
// party ledger's side follows the voucher type: receivable types debit the
// party, payable types credit it.
func (s *VoucherService) splitSimpleForm(input CreateVoucherInput) ([]accounting.VoucherEntry, error) {
	if input.PartyName == "" || input.CounterLedger == "" {
		return nil, shared.NewDomainError("INVALID_INPUT",
			"Party and counter ledger are required when entries are omitted")
	}
	if !input.Amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_INPUT",
			"Amount must be positive when entries are omitted")
	}

	partyDebits, err := tally.PartySide(input.Type)
	if err != nil {
		return nil, err
	}
	return []accounting.VoucherEntry{
		{LedgerName: input.PartyName, Amount: input.Amount, IsDebit: partyDebits},
		{LedgerName: input.CounterLedger, Amount: input.Amount, IsDebit: !partyDebits},
	}, nil
}

// Get returns one voucher of a tenant with its entries
func (s *VoucherService) Get(ctx context.Context, tenantID, voucherID uuid.UUID) (*accounting.Voucher, error) {
	voucher, err := s.voucherRepo.FindByID(ctx, voucherID)
	if err != nil {
		return nil, err
	}
	if voucher.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return voucher, nil
}

// List returns a tenant's vouchers, optionally filtered by sync status
func (s *VoucherService) List(ctx context.Context, tenantID uuid.UUID, status accounting.SyncStatus, limit int) ([]accounting.Voucher, error) {
	return s.voucherRepo.FindAllForTenant(ctx, tenantID, status, limit)
}

// PreviewXML renders the engine import envelope for a voucher without
// queueing anything. Useful for debugging rejected imports.
func (s *VoucherService) PreviewXML(ctx context.Context, tenantID, voucherID uuid.UUID) (string, error) {
	voucher, err := s.Get(ctx, tenantID, voucherID)
	if err != nil {
		return "", err
	}
	return tally.EncodeVoucherImport(voucher), nil
}

// Ledgers lists the tenant's cloud-side ledger accounts
func (s *VoucherService) Ledgers(ctx context.Context, tenantID uuid.UUID) ([]accounting.Ledger, error) {
	return s.ledgerRepo.FindAllForTenant(ctx, tenantID)
}
