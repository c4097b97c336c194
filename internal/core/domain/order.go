package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a settled trade between two clients. Orders are created exactly
// once at successful settlement and are immutable afterward.
//
// The triple (Title, SupplierID, ConsumerID) is the business key: unique
// across all orders regardless of ID.
type Order struct {
	ID                  int64           `json:"id"`
	Title               string          `json:"title"`
	SupplierID          int64           `json:"supplier_id"`
	ConsumerID          int64           `json:"consumer_id"`
	Price               decimal.Decimal `json:"price"`
	ProcessingStartTime time.Time       `json:"processing_start_time"`
	ProcessingEndTime   time.Time       `json:"processing_end_time"`
	CreatedAt           time.Time       `json:"created_at"`
}

// BusinessKey identifies an order for duplicate suppression.
type BusinessKey struct {
	Title      string
	SupplierID int64
	ConsumerID int64
}

// Key returns the order's business key.
func (o *Order) Key() BusinessKey {
	return BusinessKey{Title: o.Title, SupplierID: o.SupplierID, ConsumerID: o.ConsumerID}
}
