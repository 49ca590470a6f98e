package handler

import (
	bridgeapp "github.com/accountsync/backend/internal/application/bridge"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ConnectorHandler handles connector management endpoints
type ConnectorHandler struct {
	BaseHandler
	connectorService *bridgeapp.ConnectorService
	queueService     *bridgeapp.QueueService
}

// NewConnectorHandler creates a new ConnectorHandler
func NewConnectorHandler(connectorService *bridgeapp.ConnectorService, queueService *bridgeapp.QueueService) *ConnectorHandler {
	return &ConnectorHandler{
		connectorService: connectorService,
		queueService:     queueService,
	}
}

// RegisterConnectorRequest represents a request to register a desktop connector
// @Description Request body for registering a desktop connector
type RegisterConnectorRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200" example:"Office Desktop"`
	MachineName string `json:"machine_name" binding:"max=200" example:"DESKTOP-3F7A"`
	EngineHost  string `json:"engine_host" binding:"max=200" example:"localhost"`
	EnginePort  int    `json:"engine_port" binding:"omitempty,min=1,max=65535" example:"9000"`
}

// RegisteredConnectorResponse carries the one-time API key
// @Description Connector details including the API key, shown only at registration
type RegisteredConnectorResponse struct {
	Connector bridgeapp.ConnectorDTO `json:"connector"`
	APIKey    string                 `json:"api_key"`
}

// Register godoc
// @ID           registerConnector
// @Summary      Register a desktop connector
// @Description  Registers a connector and returns its API key. The key is shown once.
// @Tags         connectors
// @Accept       json
// @Produce      json
// @Param        request body RegisterConnectorRequest true "Connector registration request"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Security     BearerAuth
// @Router       /bridge/connectors [post]
func (h *ConnectorHandler) Register(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req RegisterConnectorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	connector, err := h.connectorService.Register(c.Request.Context(), tenantID,
		req.Name, req.MachineName, req.EngineHost, req.EnginePort)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, RegisteredConnectorResponse{
		Connector: bridgeapp.NewConnectorDTO(connector),
		APIKey:    connector.APIKey,
	})
}

// List godoc
// @ID           listConnectors
// @Summary      List connectors
// @Tags         connectors
// @Produce      json
// @Success      200 {object} dto.Response
// @Security     BearerAuth
// @Router       /bridge/connectors [get]
func (h *ConnectorHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	connectors, err := h.connectorService.List(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	dtos := make([]bridgeapp.ConnectorDTO, 0, len(connectors))
	for i := range connectors {
		dtos = append(dtos, bridgeapp.NewConnectorDTO(&connectors[i]))
	}
	h.Success(c, dtos)
}

// Get godoc
// @ID           getConnector
// @Summary      Get a connector
// @Tags         connectors
// @Produce      json
// @Param        id path string true "Connector ID"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /bridge/connectors/{id} [get]
func (h *ConnectorHandler) Get(c *gin.Context) {
	tenantID, connectorID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	connector, err := h.connectorService.Get(c.Request.Context(), tenantID, connectorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bridgeapp.NewConnectorDTO(connector))
}

// Delete godoc
// @ID           deleteConnector
// @Summary      Delete a connector
// @Description  Removes a connector. Fails while it still has queued work.
// @Tags         connectors
// @Param        id path string true "Connector ID"
// @Success      204
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Security     BearerAuth
// @Router       /bridge/connectors/{id} [delete]
func (h *ConnectorHandler) Delete(c *gin.Context) {
	tenantID, connectorID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	if err := h.connectorService.Delete(c.Request.Context(), tenantID, connectorID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RegenerateKey godoc
// @ID           regenerateConnectorKey
// @Summary      Regenerate a connector's API key
// @Description  Replaces the API key, invalidating the old one immediately.
// @Tags         connectors
// @Produce      json
// @Param        id path string true "Connector ID"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /bridge/connectors/{id}/regenerate-key [post]
func (h *ConnectorHandler) RegenerateKey(c *gin.Context) {
	tenantID, connectorID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	connector, err := h.connectorService.RegenerateKey(c.Request.Context(), tenantID, connectorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, RegisteredConnectorResponse{
		Connector: bridgeapp.NewConnectorDTO(connector),
		APIKey:    connector.APIKey,
	})
}

// ListOperations godoc
// @ID           listConnectorOperations
// @Summary      List a connector's queued operations
// @Tags         connectors
// @Produce      json
// @Param        id path string true "Connector ID"
// @Param        status query string false "Filter by status" Enums(pending,in_progress,completed,failed,cancelled)
// @Param        limit query int false "Maximum rows" default(50)
// @Success      200 {object} dto.Response
// @Security     BearerAuth
// @Router       /bridge/connectors/{id}/operations [get]
func (h *ConnectorHandler) ListOperations(c *gin.Context) {
	tenantID, connectorID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	// scope check before touching the queue
	if _, err := h.connectorService.Get(c.Request.Context(), tenantID, connectorID); err != nil {
		h.HandleError(c, err)
		return
	}

	var query struct {
		Status string `form:"status" binding:"omitempty,oneof=pending in_progress completed failed cancelled"`
		Limit  int    `form:"limit" binding:"omitempty,min=1,max=200"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if query.Limit == 0 {
		query.Limit = 50
	}

	ops, err := h.queueService.ListForConnector(c.Request.Context(), connectorID,
		operationStatusFromString(query.Status), query.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ops)
}

// CancelOperation godoc
// @ID           cancelOperation
// @Summary      Cancel a pending operation
// @Tags         connectors
// @Param        id path string true "Operation ID"
// @Success      204
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Security     BearerAuth
// @Router       /bridge/operations/{id}/cancel [post]
func (h *ConnectorHandler) CancelOperation(c *gin.Context) {
	tenantID, operationID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	if err := h.queueService.Cancel(c.Request.Context(), tenantID, operationID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *ConnectorHandler) tenantAndID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
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
