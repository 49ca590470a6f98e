package handler

import (
	"time"

	bridgeapp "github.com/accountsync/backend/internal/application/bridge"
	"github.com/accountsync/backend/internal/domain/bridge"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// defaultClaimLimit bounds how many operations one poll may claim
const defaultClaimLimit = 10

// GatewayHandler serves the desktop agent's polling endpoints. Agents
// authenticate with their API key in the request body, not with JWT.
type GatewayHandler struct {
	BaseHandler
	connectorService *bridgeapp.ConnectorService
	queueService     *bridgeapp.QueueService
}

// NewGatewayHandler creates a new GatewayHandler
func NewGatewayHandler(connectorService *bridgeapp.ConnectorService, queueService *bridgeapp.QueueService) *GatewayHandler {
	return &GatewayHandler{
		connectorService: connectorService,
		queueService:     queueService,
	}
}

// HeartbeatRequest represents an agent liveness report
// @Description Agent heartbeat with engine reachability details
type HeartbeatRequest struct {
	APIKey           string   `json:"api_key" binding:"required"`
	ConnectorVersion string   `json:"connector_version" binding:"max=50" example:"1.4.2"`
	EngineVersion    string   `json:"engine_version" binding:"max=100" example:"Release 6.4"`
	EngineConnected  bool     `json:"engine_connected" example:"true"`
	Companies        []string `json:"companies"`
}

// PendingOperationsRequest asks for the next batch of queued work
// @Description Agent poll for pending operations
type PendingOperationsRequest struct {
	APIKey string `json:"api_key" binding:"required"`
	Limit  int    `json:"limit" binding:"omitempty,min=1,max=50" example:"10"`
}

// OperationResultRequest reports the outcome of one executed operation
// @Description Agent result report for a claimed operation
type OperationResultRequest struct {
	APIKey      string `json:"api_key" binding:"required"`
	OperationID string `json:"operation_id" binding:"required,uuid"`
	Success     bool   `json:"success"`
	ResponseXML string `json:"response_xml"`
	Error       string `json:"error" binding:"max=2000"`
	EngineGUID  string `json:"engine_guid" binding:"max=100"`
	DurationMS  int64  `json:"duration_ms" binding:"omitempty,min=0"`
}

// Heartbeat godoc
// @ID           agentHeartbeat
// @Summary      Record an agent heartbeat
// @Description  Marks the connector active and returns the pending operation count.
// @Tags         agent
// @Accept       json
// @Produce      json
// @Param        request body HeartbeatRequest true "Heartbeat report"
// @Success      200 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Router       /agent/heartbeat [post]
func (h *GatewayHandler) Heartbeat(c *gin.Context) {
	var req HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.connectorService.Heartbeat(c.Request.Context(), bridgeapp.HeartbeatRequest{
		APIKey:           req.APIKey,
		ConnectorVersion: req.ConnectorVersion,
		EngineVersion:    req.EngineVersion,
		EngineConnected:  req.EngineConnected,
		Companies:        req.Companies,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// PendingOperations godoc
// @ID           agentPendingOperations
// @Summary      Claim pending operations
// @Description  Atomically claims the next batch of queued operations, most urgent first.
// @Tags         agent
// @Accept       json
// @Produce      json
// @Param        request body PendingOperationsRequest true "Claim request"
// @Success      200 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Router       /agent/operations/pending [post]
func (h *GatewayHandler) PendingOperations(c *gin.Context) {
	var req PendingOperationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	connector, err := h.connectorService.Authenticate(c.Request.Context(), req.APIKey)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	limit := req.Limit
	if limit == 0 {
		limit = defaultClaimLimit
	}

	claimed, err := h.queueService.Claim(c.Request.Context(), connector.ID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	dtos := make([]bridgeapp.OperationDTO, 0, len(claimed))
	for i := range claimed {
		dtos = append(dtos, bridgeapp.NewOperationDTO(&claimed[i]))
	}
	h.Success(c, gin.H{
		"operations": dtos,
		"count":      len(dtos),
		"server_ts":  time.Now().UTC(),
	})
}

// ReportResult godoc
// @ID           agentReportResult
// @Summary      Report an operation result
// @Description  Records the outcome of a claimed operation. Duplicate reports are no-ops.
// @Tags         agent
// @Accept       json
// @Produce      json
// @Param        request body OperationResultRequest true "Result report"
// @Success      200 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Router       /agent/operations/result [post]
func (h *GatewayHandler) ReportResult(c *gin.Context) {
	var req OperationResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	connector, err := h.connectorService.Authenticate(c.Request.Context(), req.APIKey)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	operationID, err := uuid.Parse(req.OperationID)
	if err != nil {
		h.BadRequest(c, "Invalid operation ID")
		return
	}

	result, err := h.queueService.Complete(c.Request.Context(), connector, operationID,
		req.Success, req.ResponseXML, "", req.Error, req.EngineGUID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{
		"status":           result.Status,
		"already_terminal": result.AlreadyTerminal,
	})
}

func operationStatusFromString(s string) bridge.OperationStatus {
	return bridge.OperationStatus(s)
}
