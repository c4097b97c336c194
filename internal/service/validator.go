package service

import (
	"trade-settlement-engine/internal/core/domain"
	"trade-settlement-engine/pkg/apperror"

	"github.com/shopspring/decimal"
)

// OrderValidator holds the pure business checks of the settlement pipeline.
// It never touches storage; callers pass in the party snapshots they hold.
type OrderValidator struct {
	profitFloor decimal.Decimal
}

// NewOrderValidator creates a validator with the given consumer profit floor.
func NewOrderValidator(profitFloor decimal.Decimal) *OrderValidator {
	return &OrderValidator{profitFloor: profitFloor}
}

// CheckPrice rejects non-positive prices.
func (v *OrderValidator) CheckPrice(price decimal.Decimal) error {
	if price.Sign() <= 0 {
		return apperror.ErrInvalidPrice(price)
	}
	return nil
}

// ValidateParties runs the full pre-delay check set: self-trade, party
// activity, then the consumer profit floor.
func (v *OrderValidator) ValidateParties(supplier, consumer *domain.Client, price decimal.Decimal) error {
	if supplier.ID == consumer.ID {
		return apperror.ErrSelfTradeNotAllowed(supplier.ID)
	}
	return v.Reconfirm(supplier, consumer, price)
}

// Reconfirm re-checks the conditions that can change while an order is in
// flight: party activity and the consumer profit floor. The self-trade and
// duplicate checks are stable, so they are not repeated after the delay.
func (v *OrderValidator) Reconfirm(supplier, consumer *domain.Client, price decimal.Decimal) error {
	// Consumer first: when both parties are inactive the consumer is named.
	if !consumer.Active {
		return apperror.ErrClientNotActive("consumer", consumer.ID)
	}
	if !supplier.Active {
		return apperror.ErrClientNotActive("supplier", supplier.ID)
	}

	projected := consumer.Profit.Sub(price)
	if projected.LessThan(v.profitFloor) {
		return apperror.ErrProfitLimitExceeded(consumer.ID, projected, v.profitFloor)
	}
	return nil
}
