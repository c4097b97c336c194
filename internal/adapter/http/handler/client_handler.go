package handler

import (
	"strconv"

	"trade-settlement-engine/internal/adapter/http/dto"
	"trade-settlement-engine/internal/core/ports"
	"trade-settlement-engine/pkg/apperror"
	"trade-settlement-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ClientHandler handles client management endpoints.
type ClientHandler struct {
	clientSvc     ports.ClientService
	settlementSvc ports.SettlementService
}

// NewClientHandler creates a new ClientHandler.
func NewClientHandler(clientSvc ports.ClientService, settlementSvc ports.SettlementService) *ClientHandler {
	return &ClientHandler{clientSvc: clientSvc, settlementSvc: settlementSvc}
}

// Create handles POST /api/v1/clients.
func (h *ClientHandler) Create(c *gin.Context) {
	var req dto.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	client, err := h.clientSvc.Create(c.Request.Context(), ports.ClientCreateRequest{
		Name:    req.Name,
		Email:   req.Email,
		Address: req.Address,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToClientResponse(client))
}

// Update handles PATCH /api/v1/clients/:id.
func (h *ClientHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	client, err := h.clientSvc.Update(c.Request.Context(), id, ports.ClientUpdateRequest{
		Name:    req.Name,
		Email:   req.Email,
		Address: req.Address,
		Active:  req.Active,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToClientResponse(client))
}

// GetByID handles GET /api/v1/clients/:id.
func (h *ClientHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	client, err := h.clientSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToClientResponse(client))
}

// List handles GET /api/v1/clients.
func (h *ClientHandler) List(c *gin.Context) {
	clients, err := h.clientSvc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToClientResponses(clients))
}

// Search handles GET /api/v1/clients/search?field=name&text=acme.
func (h *ClientHandler) Search(c *gin.Context) {
	clients, err := h.clientSvc.Search(c.Request.Context(), c.Query("field"), c.Query("text"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToClientResponses(clients))
}

// SearchProfitRange handles GET /api/v1/clients/profit-range?min=-100&max=100.
func (h *ClientHandler) SearchProfitRange(c *gin.Context) {
	min, err := decimal.NewFromString(c.Query("min"))
	if err != nil {
		response.Error(c, apperror.Validation("min must be a decimal number"))
		return
	}
	max, err := decimal.NewFromString(c.Query("max"))
	if err != nil {
		response.Error(c, apperror.Validation("max must be a decimal number"))
		return
	}

	clients, err := h.clientSvc.SearchProfitRange(c.Request.Context(), min, max)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToClientResponses(clients))
}

// GetProfit handles GET /api/v1/clients/:id/profit.
func (h *ClientHandler) GetProfit(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	profit, err := h.clientSvc.GetProfit(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ProfitResponse{ClientID: id, Profit: profit.String()})
}

// ListOrders handles GET /api/v1/clients/:id/orders.
func (h *ClientHandler) ListOrders(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	orders, err := h.settlementSvc.ListOrdersForClient(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToClientOrdersResponse(orders))
}

// parseID extracts the :id path parameter. On failure it writes the error
// response and returns ok=false.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, apperror.Validation("id must be a positive integer"))
		return 0, false
	}
	return id, true
}
