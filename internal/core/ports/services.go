package ports

import (
	"context"

	"trade-settlement-engine/internal/core/domain"

	"github.com/shopspring/decimal"
)

// SettlementService is the concurrent order-settlement engine plus the
// read-only order queries that ride on the same store.
type SettlementService interface {
	// SettleOrder runs the full settlement pipeline for one proposed order:
	// fetch party snapshots, validate, wait out processing latency, reconfirm
	// against refreshed state, and commit conditioned on the party versions.
	// Version conflicts are retried internally up to the configured budget.
	SettleOrder(ctx context.Context, req OrderRequest) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	ListOrdersForClient(ctx context.Context, clientID int64) (*ClientOrders, error)
}

// OrderRequest is a proposed order entering the settlement pipeline.
type OrderRequest struct {
	Title      string
	SupplierID int64
	ConsumerID int64
	Price      decimal.Decimal
}

// Key returns the proposal's business key.
func (r OrderRequest) Key() domain.BusinessKey {
	return domain.BusinessKey{Title: r.Title, SupplierID: r.SupplierID, ConsumerID: r.ConsumerID}
}

// ClientOrders splits a client's orders into the two sides they traded on.
type ClientOrders struct {
	Sales     []domain.Order `json:"sales"`     // client was the supplier
	Purchases []domain.Order `json:"purchases"` // client was the consumer
}

// ClientService defines the administrative client operations.
type ClientService interface {
	Create(ctx context.Context, req ClientCreateRequest) (*domain.Client, error)
	Update(ctx context.Context, id int64, req ClientUpdateRequest) (*domain.Client, error)
	GetByID(ctx context.Context, id int64) (*domain.Client, error)
	List(ctx context.Context) ([]domain.Client, error)
	Search(ctx context.Context, field, text string) ([]domain.Client, error)
	GetProfit(ctx context.Context, id int64) (decimal.Decimal, error)
	SearchProfitRange(ctx context.Context, min, max decimal.Decimal) ([]domain.Client, error)
}

// ClientCreateRequest holds validated input for client creation.
type ClientCreateRequest struct {
	Name    string
	Email   string
	Address string
}

// ClientUpdateRequest is a partial update; nil fields are left untouched.
// At least one field must be set.
type ClientUpdateRequest struct {
	Name    *string
	Email   *string
	Address *string
	Active  *bool
}

// IsEmpty reports whether no field is set.
func (r ClientUpdateRequest) IsEmpty() bool {
	return r.Name == nil && r.Email == nil && r.Address == nil && r.Active == nil
}
