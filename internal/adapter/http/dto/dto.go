package dto

import (
	"time"

	"trade-settlement-engine/internal/core/domain"
	"trade-settlement-engine/internal/core/ports"

	"github.com/shopspring/decimal"
)

// CreateClientRequest is the request body for client registration.
type CreateClientRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=100"`
	Email   string `json:"email" binding:"required,email,max=255"`
	Address string `json:"address" binding:"max=255"`
}

// UpdateClientRequest is the request body for a partial client update.
type UpdateClientRequest struct {
	Name    *string `json:"name,omitempty" binding:"omitempty,min=1,max=100"`
	Email   *string `json:"email,omitempty" binding:"omitempty,email,max=255"`
	Address *string `json:"address,omitempty" binding:"omitempty,max=255"`
	Active  *bool   `json:"active,omitempty"`
}

// CreateOrderRequest is the request body for order settlement.
// Price is left to the settlement service so a non-positive value gets the
// domain rejection rather than a generic binding error.
type CreateOrderRequest struct {
	Title      string          `json:"title" binding:"required,min=1,max=200"`
	SupplierID int64           `json:"supplier_id" binding:"required,gt=0"`
	ConsumerID int64           `json:"consumer_id" binding:"required,gt=0"`
	Price      decimal.Decimal `json:"price"`
}

// ClientResponse is the response body for client reads.
type ClientResponse struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Address       string     `json:"address"`
	Profit        string     `json:"profit"`
	Active        bool       `json:"active"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ToClientResponse maps a domain client to its response form.
func ToClientResponse(c *domain.Client) ClientResponse {
	return ClientResponse{
		ID:            c.ID,
		Name:          c.Name,
		Email:         c.Email,
		Address:       c.Address,
		Profit:        c.Profit.String(),
		Active:        c.Active,
		DeactivatedAt: c.DeactivatedAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

// ToClientResponses maps a slice of domain clients.
func ToClientResponses(clients []domain.Client) []ClientResponse {
	out := make([]ClientResponse, len(clients))
	for i := range clients {
		out[i] = ToClientResponse(&clients[i])
	}
	return out
}

// OrderResponse is the response body for settled orders.
type OrderResponse struct {
	ID                  int64     `json:"id"`
	Title               string    `json:"title"`
	SupplierID          int64     `json:"supplier_id"`
	ConsumerID          int64     `json:"consumer_id"`
	Price               string    `json:"price"`
	ProcessingStartTime time.Time `json:"processing_start_time"`
	ProcessingEndTime   time.Time `json:"processing_end_time"`
	CreatedAt           time.Time `json:"created_at"`
}

// ToOrderResponse maps a domain order to its response form.
func ToOrderResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		ID:                  o.ID,
		Title:               o.Title,
		SupplierID:          o.SupplierID,
		ConsumerID:          o.ConsumerID,
		Price:               o.Price.String(),
		ProcessingStartTime: o.ProcessingStartTime,
		ProcessingEndTime:   o.ProcessingEndTime,
		CreatedAt:           o.CreatedAt,
	}
}

// ToOrderResponses maps a slice of domain orders.
func ToOrderResponses(orders []domain.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = ToOrderResponse(&orders[i])
	}
	return out
}

// ClientOrdersResponse splits a client's orders by trade side.
type ClientOrdersResponse struct {
	Sales     []OrderResponse `json:"sales"`
	Purchases []OrderResponse `json:"purchases"`
}

// ToClientOrdersResponse maps both sides of a client's order history.
func ToClientOrdersResponse(co *ports.ClientOrders) ClientOrdersResponse {
	return ClientOrdersResponse{
		Sales:     ToOrderResponses(co.Sales),
		Purchases: ToOrderResponses(co.Purchases),
	}
}

// ProfitResponse is the response body for a client's profit balance.
type ProfitResponse struct {
	ClientID int64  `json:"client_id"`
	Profit   string `json:"profit"`
}
