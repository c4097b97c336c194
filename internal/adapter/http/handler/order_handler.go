package handler

import (
	"trade-settlement-engine/internal/adapter/http/dto"
	"trade-settlement-engine/internal/core/ports"
	"trade-settlement-engine/pkg/apperror"
	"trade-settlement-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

// OrderHandler handles order settlement endpoints.
type OrderHandler struct {
	settlementSvc ports.SettlementService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(settlementSvc ports.SettlementService) *OrderHandler {
	return &OrderHandler{settlementSvc: settlementSvc}
}

// Settle handles POST /api/v1/orders. The call blocks for the full pipeline,
// processing latency included, and returns the settled order or the rejection.
func (h *OrderHandler) Settle(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	order, err := h.settlementSvc.SettleOrder(c.Request.Context(), ports.OrderRequest{
		Title:      req.Title,
		SupplierID: req.SupplierID,
		ConsumerID: req.ConsumerID,
		Price:      req.Price,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToOrderResponse(order))
}

// List handles GET /api/v1/orders.
func (h *OrderHandler) List(c *gin.Context) {
	orders, err := h.settlementSvc.ListOrders(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToOrderResponses(orders))
}
