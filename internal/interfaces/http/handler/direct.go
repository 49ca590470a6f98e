package handler

import (
	bridgeapp "github.com/accountsync/backend/internal/application/bridge"
	"github.com/gin-gonic/gin"
)

// DirectHandler serves setup and diagnostics endpoints that talk to a
// co-located engine without going through the operation queue.
type DirectHandler struct {
	BaseHandler
	probeService *bridgeapp.ProbeService
}

// NewDirectHandler creates a new DirectHandler
func NewDirectHandler(probeService *bridgeapp.ProbeService) *DirectHandler {
	return &DirectHandler{probeService: probeService}
}

// SyncLedgersRequest selects the engine company to mirror
// @Description Request body for the direct ledger import
type SyncLedgersRequest struct {
	Company string `json:"company" binding:"max=200" example:"Demo Company"`
}

// Status godoc
// @ID           engineStatus
// @Summary      Check engine reachability
// @Description  Probes the tenant's engine directly. Unreachable engines return connected=false, not an error.
// @Tags         engine
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Security     BearerAuth
// @Router       /bridge/engine/status [get]
func (h *DirectHandler) Status(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	status, err := h.probeService.Status(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}

// Companies godoc
// @ID           engineCompanies
// @Summary      List companies loaded in the engine
// @Tags         engine
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Security     BearerAuth
// @Router       /bridge/engine/companies [get]
func (h *DirectHandler) Companies(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	companies, err := h.probeService.Companies(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"companies": companies})
}

// Ledgers godoc
// @ID           engineLedgers
// @Summary      List ledgers straight from the engine
// @Tags         engine
// @Produce      json
// @Param        company query string false "Engine company name"
// @Success      200 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Security     BearerAuth
// @Router       /bridge/engine/ledgers [get]
func (h *DirectHandler) Ledgers(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	ledgers, err := h.probeService.Ledgers(c.Request.Context(), tenantID, c.Query("company"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"ledgers": ledgers, "count": len(ledgers)})
}

// VoucherTypes godoc
// @ID           engineVoucherTypes
// @Summary      List voucher types straight from the engine
// @Tags         engine
// @Produce      json
// @Param        company query string false "Engine company name"
// @Success      200 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Security     BearerAuth
// @Router       /bridge/engine/voucher-types [get]
func (h *DirectHandler) VoucherTypes(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	types, err := h.probeService.VoucherTypes(c.Request.Context(), tenantID, c.Query("company"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"voucher_types": types, "count": len(types)})
}

// SyncLedgers godoc
// @ID           engineSyncLedgers
// @Summary      Mirror engine ledgers into the cloud
// @Description  Pulls the company's ledgers from the engine and upserts them into the cloud tables.
// @Tags         engine
// @Accept       json
// @Produce      json
// @Param        request body SyncLedgersRequest true "Company selection"
// @Success      200 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Security     BearerAuth
// @Router       /bridge/engine/sync-ledgers [post]
func (h *DirectHandler) SyncLedgers(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req SyncLedgersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	stats, err := h.probeService.SyncLedgers(c.Request.Context(), tenantID, req.Company)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
