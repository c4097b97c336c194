package postgres

import (
	"context"
	"errors"
	"fmt"

	"trade-settlement-engine/internal/core/domain"
	"trade-settlement-engine/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const clientColumns = "id, name, email, address, profit, active, deactivated_at, version, created_at, updated_at"

// ClientRepo implements ports.ClientRepository.
type ClientRepo struct {
	pool Pool
}

// NewClientRepo creates a new ClientRepo.
func NewClientRepo(pool Pool) *ClientRepo {
	return &ClientRepo{pool: pool}
}

// Create inserts a new client. The row starts at version 1.
func (r *ClientRepo) Create(ctx context.Context, c *domain.Client) error {
	query := `INSERT INTO clients (name, email, address, profit, active, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6, $7)
		RETURNING id, version`

	err := r.pool.QueryRow(ctx, query,
		c.Name, c.Email, c.Address, c.Profit, c.Active, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID, &c.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrDuplicateKey
		}
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

// GetByID fetches a client by ID. Returns nil when no row matches.
func (r *ClientRepo) GetByID(ctx context.Context, id int64) (*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`

	c, err := scanClient(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get client by id: %w", err)
	}
	return c, nil
}

// GetByEmail fetches a client by email. Returns nil when no row matches.
func (r *ClientRepo) GetByEmail(ctx context.Context, email string) (*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE email = $1`

	c, err := scanClient(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get client by email: %w", err)
	}
	return c, nil
}

// List returns all clients ordered by ID.
func (r *ClientRepo) List(ctx context.Context) ([]domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()
	return collectClients(rows)
}

// Search matches clients whose field contains the pattern, case-insensitively.
// The column name is re-validated here; it cannot be a bind parameter.
func (r *ClientRepo) Search(ctx context.Context, field, pattern string) ([]domain.Client, error) {
	switch field {
	case "name", "email", "address":
	default:
		return nil, fmt.Errorf("search clients: unsupported field %q", field)
	}
	query := fmt.Sprintf(`SELECT %s FROM clients WHERE %s ILIKE '%%' || $1 || '%%' ORDER BY id`, clientColumns, field)

	rows, err := r.pool.Query(ctx, query, pattern)
	if err != nil {
		return nil, fmt.Errorf("search clients: %w", err)
	}
	defer rows.Close()
	return collectClients(rows)
}

// SearchProfitRange returns clients whose profit lies within [min, max].
func (r *ClientRepo) SearchProfitRange(ctx context.Context, min, max decimal.Decimal) ([]domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE profit BETWEEN $1 AND $2 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, min, max)
	if err != nil {
		return nil, fmt.Errorf("search clients by profit: %w", err)
	}
	defer rows.Close()
	return collectClients(rows)
}

// Update writes the administrative fields conditioned on c.Version.
// On success the version is bumped both in the row and on c.
func (r *ClientRepo) Update(ctx context.Context, c *domain.Client) error {
	query := `UPDATE clients
		SET name=$1, email=$2, address=$3, active=$4, deactivated_at=$5, updated_at=$6, version=version+1
		WHERE id=$7 AND version=$8`

	tag, err := r.pool.Exec(ctx, query,
		c.Name, c.Email, c.Address, c.Active, c.DeactivatedAt, c.UpdatedAt, c.ID, c.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrDuplicateKey
		}
		return fmt.Errorf("update client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrVersionConflict
	}
	c.Version++
	return nil
}

// UpdateProfit sets the profit balance within tx, conditioned on
// expectedVersion. Zero rows affected means the version race was lost.
func (r *ClientRepo) UpdateProfit(ctx context.Context, tx pgx.Tx, clientID, expectedVersion int64, profit decimal.Decimal) error {
	query := `UPDATE clients
		SET profit=$1, updated_at=NOW(), version=version+1
		WHERE id=$2 AND version=$3`

	tag, err := tx.Exec(ctx, query, profit, clientID, expectedVersion)
	if err != nil {
		return fmt.Errorf("update client profit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrVersionConflict
	}
	return nil
}

func scanClient(row pgx.Row) (*domain.Client, error) {
	c := &domain.Client{}
	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Address, &c.Profit,
		&c.Active, &c.DeactivatedAt, &c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func collectClients(rows pgx.Rows) ([]domain.Client, error) {
	var clients []domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return clients, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
