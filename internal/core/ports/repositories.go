package ports

import (
	"context"
	"errors"

	"trade-settlement-engine/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Conditional-write outcomes. These are sentinels, not AppErrors, so callers
// can tell "retry" (version conflict) from "reject" (duplicate key) without
// inspecting strings.
var (
	// ErrVersionConflict means the record's version token advanced between
	// read and write. Transient: the settlement service retries from scratch.
	ErrVersionConflict = errors.New("version conflict")

	// ErrDuplicateKey means a uniqueness constraint was violated. Deterministic:
	// retrying cannot change the outcome.
	ErrDuplicateKey = errors.New("duplicate key")
)

// ClientRepository defines persistence operations for clients.
// Writes are version-conditioned: Update and UpdateProfit succeed only if the
// stored version still equals the one carried by the caller, and bump it.
type ClientRepository interface {
	// Create inserts a client and assigns ID and Version.
	// Returns ErrDuplicateKey if the email is already taken.
	Create(ctx context.Context, client *domain.Client) error
	GetByID(ctx context.Context, id int64) (*domain.Client, error)
	GetByEmail(ctx context.Context, email string) (*domain.Client, error)
	List(ctx context.Context) ([]domain.Client, error)
	// Search matches clients whose field (name, email or address) contains
	// the pattern, case-insensitively. Field validation is the service's job.
	Search(ctx context.Context, field, pattern string) ([]domain.Client, error)
	SearchProfitRange(ctx context.Context, min, max decimal.Decimal) ([]domain.Client, error)
	// Update writes the administrative fields conditioned on client.Version.
	// Returns ErrVersionConflict if the stored version has advanced.
	Update(ctx context.Context, client *domain.Client) error
	// UpdateProfit sets the stored profit balance within a database
	// transaction, conditioned on expectedVersion.
	// Returns ErrVersionConflict if the stored version has advanced.
	UpdateProfit(ctx context.Context, tx pgx.Tx, clientID, expectedVersion int64, profit decimal.Decimal) error
}

// OrderRepository defines persistence operations for settled orders.
// Orders are append-only: there is no update or delete.
type OrderRepository interface {
	// Create inserts an order within a database transaction and assigns ID.
	// Returns ErrDuplicateKey if the business key is already taken.
	Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	ListBySupplier(ctx context.Context, clientID int64) ([]domain.Order, error)
	ListByConsumer(ctx context.Context, clientID int64) ([]domain.Order, error)
	ExistsByBusinessKey(ctx context.Context, key domain.BusinessKey) (bool, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SettledKeyCache is the fast-path duplicate check: business keys of committed
// orders are cached so repeat submissions are rejected without a store
// round-trip. Best-effort only; a miss or an error falls through to the store.
type SettledKeyCache interface {
	Contains(ctx context.Context, key domain.BusinessKey) (bool, error)
	Add(ctx context.Context, key domain.BusinessKey) error
}

// EventPublisher emits settlement events to downstream consumers.
type EventPublisher interface {
	PublishOrderSettled(ctx context.Context, order *domain.Order) error
}
