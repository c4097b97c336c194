package postgres

import (
	"context"
	"testing"
	"time"

	"trade-settlement-engine/internal/core/domain"
	"trade-settlement-engine/internal/core/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder() *domain.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Order{
		ID:                  1,
		Title:               "Coal delivery",
		SupplierID:          1,
		ConsumerID:          2,
		Price:               decimal.RequireFromString("150.50"),
		ProcessingStartTime: now.Add(-2 * time.Second),
		ProcessingEndTime:   now,
		CreatedAt:           now,
	}
}

func orderCols() []string {
	return []string{"id", "title", "supplier_id", "consumer_id", "price", "processing_start_time", "processing_end_time", "created_at"}
}

func orderRow(o *domain.Order) *pgxmock.Rows {
	return pgxmock.NewRows(orderCols()).AddRow(
		o.ID, o.Title, o.SupplierID, o.ConsumerID, o.Price,
		o.ProcessingStartTime, o.ProcessingEndTime, o.CreatedAt,
	)
}

func TestOrderRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	o := newTestOrder()
	o.ID = 0

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(o.Title, o.SupplierID, o.ConsumerID, o.Price,
			o.ProcessingStartTime, o.ProcessingEndTime, o.CreatedAt).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	err = repo.Create(ctx, tx, o)
	require.NoError(t, err)
	assert.Equal(t, int64(42), o.ID)
	require.NoError(t, tx.Commit(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_Create_DuplicateBusinessKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	o := newTestOrder()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(o.Title, o.SupplierID, o.ConsumerID, o.Price,
			o.ProcessingStartTime, o.ProcessingEndTime, o.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "orders_business_key"})
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	err = repo.Create(ctx, tx, o)
	assert.ErrorIs(t, err, ports.ErrDuplicateKey)
	require.NoError(t, tx.Rollback(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	o := newTestOrder()

	mock.ExpectQuery("SELECT .+ FROM orders WHERE id").
		WithArgs(o.ID).
		WillReturnRows(orderRow(o))

	result, err := repo.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, o.Title, result.Title)
	assert.True(t, result.Price.Equal(o.Price))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM orders WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(orderCols()))

	result, err := repo.GetByID(context.Background(), 404)
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_ListBySupplier(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	o := newTestOrder()

	mock.ExpectQuery("SELECT .+ FROM orders WHERE supplier_id").
		WithArgs(o.SupplierID).
		WillReturnRows(orderRow(o))

	result, err := repo.ListBySupplier(context.Background(), o.SupplierID)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, o.ID, result[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_ListByConsumer(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	o := newTestOrder()

	mock.ExpectQuery("SELECT .+ FROM orders WHERE consumer_id").
		WithArgs(o.ConsumerID).
		WillReturnRows(orderRow(o))

	result, err := repo.ListByConsumer(context.Background(), o.ConsumerID)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_ExistsByBusinessKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	key := domain.BusinessKey{Title: "Coal delivery", SupplierID: 1, ConsumerID: 2}

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(key.Title, key.SupplierID, key.ConsumerID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByBusinessKey(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_ExistsByBusinessKey_Miss(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	key := domain.BusinessKey{Title: "Never seen", SupplierID: 1, ConsumerID: 2}

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(key.Title, key.SupplierID, key.ConsumerID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.ExistsByBusinessKey(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
