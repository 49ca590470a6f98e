package handler

import (
	"time"

	accountingapp "github.com/accountsync/backend/internal/application/accounting"
	bridgeapp "github.com/accountsync/backend/internal/application/bridge"
	"github.com/accountsync/backend/internal/domain/accounting"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VoucherHandler handles voucher endpoints including the bridge push
type VoucherHandler struct {
	BaseHandler
	voucherService *accountingapp.VoucherService
	pushService    *bridgeapp.PushService
}

// NewVoucherHandler creates a new VoucherHandler
func NewVoucherHandler(voucherService *accountingapp.VoucherService, pushService *bridgeapp.PushService) *VoucherHandler {
	return &VoucherHandler{
		voucherService: voucherService,
		pushService:    pushService,
	}
}

// VoucherEntryRequest is one ledger line of a voucher
// @Description Ledger line with a positive amount; is_debit selects the side
type VoucherEntryRequest struct {
	LedgerName string  `json:"ledger_name" binding:"required,min=1,max=200" example:"HDFC Bank"`
	Amount     float64 `json:"amount" binding:"required,gt=0" example:"1500.00"`
	IsDebit    bool    `json:"is_debit" example:"true"`
}

// CreateVoucherRequest represents a request to record a voucher. Entries
// may be omitted for the simple two-ledger form, in which case party_name,
// counter_ledger and amount are required and the party side is inferred
// from the voucher type.
// @Description Request body for creating an accounting voucher
type CreateVoucherRequest struct {
	VoucherNumber string                `json:"voucher_number" binding:"required,min=1,max=100" example:"PMT-0042"`
	Type          string                `json:"type" binding:"required,oneof=payment receipt sales purchase contra journal debit_note credit_note stock_journal" example:"payment"`
	Date          string                `json:"date" binding:"required" example:"2026-04-01"`
	PartyName     string                `json:"party_name" binding:"max=200" example:"Acme Supplies"`
	CounterLedger string                `json:"counter_ledger" binding:"max=200" example:"HDFC Bank"`
	Amount        float64               `json:"amount" binding:"omitempty,gt=0" example:"1500.00"`
	Reference     string                `json:"reference" binding:"max=200" example:"INV-2210"`
	Narration     string                `json:"narration" binding:"max=1000" example:"Rent for April"`
	Entries       []VoucherEntryRequest `json:"entries" binding:"omitempty,min=1,dive"`
}

// PushVouchersRequest selects vouchers to push through the bridge
// @Description Request body for pushing vouchers to the accounting engine
type PushVouchersRequest struct {
	VoucherIDs []string `json:"voucher_ids" binding:"required,min=1,dive,uuid"`
}

// Create godoc
// @ID           createVoucher
// @Summary      Record a voucher
// @Tags         vouchers
// @Accept       json
// @Produce      json
// @Param        request body CreateVoucherRequest true "Voucher creation request"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Security     BearerAuth
// @Router       /accounting/vouchers [post]
func (h *VoucherHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req CreateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		h.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}

	entries := make([]accountingapp.VoucherEntryInput, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, accountingapp.VoucherEntryInput{
			LedgerName: e.LedgerName,
			Amount:     decimal.NewFromFloat(e.Amount),
			IsDebit:    e.IsDebit,
		})
	}

	voucher, err := h.voucherService.Create(c.Request.Context(), tenantID, accountingapp.CreateVoucherInput{
		VoucherNumber: req.VoucherNumber,
		Type:          accounting.VoucherType(req.Type),
		Date:          date,
		PartyName:     req.PartyName,
		CounterLedger: req.CounterLedger,
		Amount:        decimal.NewFromFloat(req.Amount),
		Reference:     req.Reference,
		Narration:     req.Narration,
		Entries:       entries,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, voucher)
}

// List godoc
// @ID           listVouchers
// @Summary      List vouchers
// @Tags         vouchers
// @Produce      json
// @Param        status query string false "Filter by sync status" Enums(queued,synced,failed)
// @Param        limit query int false "Maximum rows" default(50)
// @Success      200 {object} dto.Response
// @Security     BearerAuth
// @Router       /accounting/vouchers [get]
func (h *VoucherHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var query struct {
		Status string `form:"status" binding:"omitempty,oneof=queued synced failed"`
		Limit  int    `form:"limit" binding:"omitempty,min=1,max=200"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if query.Limit == 0 {
		query.Limit = 50
	}

	vouchers, err := h.voucherService.List(c.Request.Context(), tenantID,
		accounting.SyncStatus(query.Status), query.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, vouchers)
}

// Get godoc
// @ID           getVoucher
// @Summary      Get a voucher with its entries
// @Tags         vouchers
// @Produce      json
// @Param        id path string true "Voucher ID"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /accounting/vouchers/{id} [get]
func (h *VoucherHandler) Get(c *gin.Context) {
	tenantID, voucherID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	voucher, err := h.voucherService.Get(c.Request.Context(), tenantID, voucherID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, voucher)
}

// PreviewXML godoc
// @ID           previewVoucherXML
// @Summary      Preview the engine import envelope for a voucher
// @Description  Renders the XML that would be sent to the engine, without queueing anything.
// @Tags         vouchers
// @Produce      json
// @Param        id path string true "Voucher ID"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /accounting/vouchers/{id}/preview-xml [get]
func (h *VoucherHandler) PreviewXML(c *gin.Context) {
	tenantID, voucherID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	envelope, err := h.voucherService.PreviewXML(c.Request.Context(), tenantID, voucherID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"xml": envelope})
}

// Push godoc
// @ID           pushVouchers
// @Summary      Push vouchers to the accounting engine
// @Description  Queues each voucher for the tenant's connector; same-host engines are tried directly.
// @Tags         vouchers
// @Accept       json
// @Produce      json
// @Param        request body PushVouchersRequest true "Voucher selection"
// @Success      200 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Security     BearerAuth
// @Router       /bridge/push [post]
func (h *VoucherHandler) Push(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req PushVouchersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	voucherIDs := make([]uuid.UUID, 0, len(req.VoucherIDs))
	for _, raw := range req.VoucherIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid voucher ID: "+raw)
			return
		}
		voucherIDs = append(voucherIDs, id)
	}

	summary, err := h.pushService.PushVouchers(c.Request.Context(), tenantID, voucherIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// Ledgers godoc
// @ID           listLedgers
// @Summary      List cloud-side ledger accounts
// @Tags         vouchers
// @Produce      json
// @Success      200 {object} dto.Response
// @Security     BearerAuth
// @Router       /accounting/ledgers [get]
func (h *VoucherHandler) Ledgers(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	ledgers, err := h.voucherService.Ledgers(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ledgers)
}

func (h *VoucherHandler) tenantAndID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid ID")
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, id, true
}
