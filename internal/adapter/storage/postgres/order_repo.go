package postgres

import (
	"context"
	"errors"
	"fmt"

	"trade-settlement-engine/internal/core/domain"
	"trade-settlement-engine/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

const orderColumns = "id, title, supplier_id, consumer_id, price, processing_start_time, processing_end_time, created_at"

// OrderRepo implements ports.OrderRepository. Orders are append-only; the
// (title, supplier_id, consumer_id) unique constraint is the last line of
// defense against duplicate settlement.
type OrderRepo struct {
	pool Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(pool Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

// Create inserts an order within tx and assigns its ID.
func (r *OrderRepo) Create(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	query := `INSERT INTO orders (title, supplier_id, consumer_id, price, processing_start_time, processing_end_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := tx.QueryRow(ctx, query,
		o.Title, o.SupplierID, o.ConsumerID, o.Price,
		o.ProcessingStartTime, o.ProcessingEndTime, o.CreatedAt,
	).Scan(&o.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrDuplicateKey
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID fetches an order by ID. Returns nil when no row matches.
func (r *OrderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	return o, nil
}

// List returns all orders ordered by ID.
func (r *OrderRepo) List(ctx context.Context) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

// ListBySupplier returns the orders a client sold.
func (r *OrderRepo) ListBySupplier(ctx context.Context, clientID int64) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE supplier_id = $1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("list orders by supplier: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

// ListByConsumer returns the orders a client bought.
func (r *OrderRepo) ListByConsumer(ctx context.Context, clientID int64) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE consumer_id = $1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("list orders by consumer: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

// ExistsByBusinessKey reports whether an order with the key is already settled.
func (r *OrderRepo) ExistsByBusinessKey(ctx context.Context, key domain.BusinessKey) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM orders WHERE title = $1 AND supplier_id = $2 AND consumer_id = $3)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, key.Title, key.SupplierID, key.ConsumerID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check order exists: %w", err)
	}
	return exists, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	o := &domain.Order{}
	err := row.Scan(
		&o.ID, &o.Title, &o.SupplierID, &o.ConsumerID, &o.Price,
		&o.ProcessingStartTime, &o.ProcessingEndTime, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func collectOrders(rows pgx.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}
