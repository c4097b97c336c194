package integration

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"trade-settlement-engine/internal/core/domain"
	"trade-settlement-engine/internal/core/ports"
	"trade-settlement-engine/internal/service"
	"trade-settlement-engine/pkg/apperror"
	"trade-settlement-engine/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentSettlement_DuplicateBurst fires 20 concurrent submissions of
// the SAME order. The business-key uniqueness constraint must let exactly one
// through; every other submission gets the duplicate rejection, and the profit
// transfer happens exactly once.
func TestConcurrentSettlement_DuplicateBurst(t *testing.T) {
	app := newTestApp(t)

	supplierID := app.createClient(t, "Supplier Co", "supplier@example.com")
	consumerID := app.createClient(t, "Consumer Co", "consumer@example.com")

	concurrency := 20
	var wg sync.WaitGroup
	var settled atomic.Int64
	var duplicates atomic.Int64
	var other atomic.Int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, env, err := app.trySettleOrder("same order", supplierID, consumerID, "50")
			switch {
			case err != nil:
				t.Errorf("settle request failed: %v", err)
				other.Add(1)
			case status == http.StatusCreated:
				settled.Add(1)
			case status == http.StatusConflict && env.ErrorCode == "ORD_002":
				duplicates.Add(1)
			default:
				other.Add(1)
			}
		}()
	}
	wg.Wait()

	t.Logf("duplicate burst: %d settled, %d duplicates, %d other", settled.Load(), duplicates.Load(), other.Load())

	assert.Equal(t, int64(1), settled.Load(), "exactly one submission must win")
	assert.Equal(t, int64(concurrency-1), duplicates.Load())
	assert.Equal(t, int64(0), other.Load())

	// The transfer happened once, not twenty times
	assert.True(t, app.getProfit(t, supplierID).Equal(decimal.NewFromInt(50)))
	assert.True(t, app.getProfit(t, consumerID).Equal(decimal.NewFromInt(-50)))
}

// TestConcurrentSettlement_DistinctOrders settles 10 distinct orders between
// the same pair concurrently. Version conflicts force retries, but every order
// must land and the final balances must account for all of them exactly.
func TestConcurrentSettlement_DistinctOrders(t *testing.T) {
	app := newTestAppWith(t, testAppOpts{maxAttempts: 20})

	supplierID := app.createClient(t, "Supplier Co", "supplier@example.com")
	consumerID := app.createClient(t, "Consumer Co", "consumer@example.com")

	concurrency := 10
	var wg sync.WaitGroup
	var settled atomic.Int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			title := fmt.Sprintf("order-%d", idx)
			price := fmt.Sprintf("%d", idx+1)
			status, env, err := app.trySettleOrder(title, supplierID, consumerID, price)
			if err != nil {
				t.Errorf("order %s failed: %v", title, err)
				return
			}
			if status == http.StatusCreated {
				settled.Add(1)
			} else {
				t.Errorf("order %s failed: %d %s", title, status, env.ErrorCode)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, int64(concurrency), settled.Load())

	// Sum of 1..10 = 55, moved from consumer to supplier
	supplierProfit := app.getProfit(t, supplierID)
	consumerProfit := app.getProfit(t, consumerID)
	assert.True(t, supplierProfit.Equal(decimal.NewFromInt(55)), "supplier profit = %s", supplierProfit)
	assert.True(t, consumerProfit.Equal(decimal.NewFromInt(-55)), "consumer profit = %s", consumerProfit)
	assert.True(t, supplierProfit.Add(consumerProfit).IsZero(), "settlement must be zero-sum")
}

// TestConcurrentSettlement_ProfitFloor pre-loads the consumer near the floor,
// then fires concurrent orders whose combined price would blow far past it.
// Whatever interleaving the scheduler picks, the floor must hold.
func TestConcurrentSettlement_ProfitFloor(t *testing.T) {
	app := newTestAppWith(t, testAppOpts{maxAttempts: 20})

	supplierID := app.createClient(t, "Supplier Co", "supplier@example.com")
	consumerID := app.createClient(t, "Consumer Co", "consumer@example.com")

	// Consumer starts 30 above the -1000 floor
	status, _ := app.settleOrder(t, "seed", supplierID, consumerID, "970")
	require.Equal(t, http.StatusCreated, status)

	// 10 concurrent orders priced 10..100: combined 550, budget 30
	concurrency := 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	settledTotal := decimal.Zero
	var rejections []string

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			price := int64((idx + 1) * 10)
			title := fmt.Sprintf("floor-order-%d", idx)
			status, env, err := app.trySettleOrder(title, supplierID, consumerID, fmt.Sprintf("%d", price))
			if err != nil {
				t.Errorf("order %s failed: %v", title, err)
				return
			}

			mu.Lock()
			defer mu.Unlock()
			if status == http.StatusCreated {
				settledTotal = settledTotal.Add(decimal.NewFromInt(price))
			} else {
				rejections = append(rejections, env.ErrorCode)
			}
		}(i)
	}
	wg.Wait()

	t.Logf("profit floor: settled total %s, %d rejected %v", settledTotal, len(rejections), rejections)

	// Every rejection must be the floor rule or retry exhaustion
	for _, code := range rejections {
		assert.Contains(t, []string{"ORD_005", "CON_001"}, code)
	}

	// The floor held regardless of interleaving
	consumerProfit := app.getProfit(t, consumerID)
	assert.True(t, consumerProfit.GreaterThanOrEqual(decimal.NewFromInt(-1000)),
		"consumer profit %s breached the floor", consumerProfit)
	assert.True(t, settledTotal.LessThanOrEqual(decimal.NewFromInt(30)))

	// Balances stayed consistent with what actually settled
	assert.True(t, consumerProfit.Equal(decimal.NewFromInt(-970).Sub(settledTotal)))
	assert.True(t, app.getProfit(t, supplierID).Add(consumerProfit).IsZero())
}

// TestSettlement_DeactivationDuringProcessing deactivates the consumer while
// an order is inside its processing window. The reconfirmation pass must catch
// the state change and reject; orders settled beforehand stay settled.
func TestSettlement_DeactivationDuringProcessing(t *testing.T) {
	app := newTestAppWith(t, testAppOpts{delay: service.FixedDelay(150 * time.Millisecond)})

	supplierID := app.createClient(t, "Supplier Co", "supplier@example.com")
	consumerID := app.createClient(t, "Consumer Co", "consumer@example.com")

	// One order settles while the consumer is still active
	status, _ := app.settleOrder(t, "before", supplierID, consumerID, "25")
	require.Equal(t, http.StatusCreated, status)

	type result struct {
		status int
		code   string
	}
	done := make(chan result, 1)
	go func() {
		status, env, err := app.trySettleOrder("in flight", supplierID, consumerID, "40")
		if err != nil {
			t.Errorf("in-flight order failed: %v", err)
		}
		done <- result{status, env.ErrorCode}
	}()

	// Let the in-flight order pass validation and enter its delay window,
	// then pull the consumer out from under it.
	time.Sleep(50 * time.Millisecond)
	status, _ = app.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/clients/%d", consumerID), map[string]any{"active": false})
	require.Equal(t, http.StatusOK, status)

	res := <-done
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Equal(t, "ORD_004", res.code)

	// The earlier settlement is untouched
	assert.True(t, app.getProfit(t, supplierID).Equal(decimal.NewFromInt(25)))
	assert.True(t, app.getProfit(t, consumerID).Equal(decimal.NewFromInt(-25)))
}

// conflictingClientRepo makes every profit write lose its version race,
// simulating a permanently contended client.
type conflictingClientRepo struct {
	ports.ClientRepository
}

func (r *conflictingClientRepo) UpdateProfit(ctx context.Context, tx pgx.Tx, clientID, expectedVersion int64, profit decimal.Decimal) error {
	return ports.ErrVersionConflict
}

// TestSettlement_RetriesExhausted drives the retry budget to zero and checks
// that the settlement is abandoned cleanly: the conflict error surfaces and
// the rolled-back order leaves no trace in the store.
func TestSettlement_RetriesExhausted(t *testing.T) {
	store := newMemStore()
	clientRepo := newInMemoryClientRepo(store)
	orderRepo := newInMemoryOrderRepo(store)

	ctx := context.Background()
	supplier := &domain.Client{Name: "Supplier Co", Email: "supplier@example.com", Active: true}
	consumer := &domain.Client{Name: "Consumer Co", Email: "consumer@example.com", Active: true}
	require.NoError(t, clientRepo.Create(ctx, supplier))
	require.NoError(t, clientRepo.Create(ctx, consumer))

	maxAttempts := 3
	svc := service.NewSettlementService(
		&conflictingClientRepo{ClientRepository: clientRepo},
		orderRepo,
		newInMemorySettledKeys(),
		nil,
		newInMemoryTransactor(store),
		service.NewOrderValidator(decimal.NewFromInt(-1000)),
		service.NoDelay,
		maxAttempts,
		logger.New("error", false),
	)

	_, err := svc.SettleOrder(ctx, ports.OrderRequest{
		Title:      "contended",
		SupplierID: supplier.ID,
		ConsumerID: consumer.ID,
		Price:      decimal.NewFromInt(10),
	})

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "CON_001", appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.HTTPStatus)

	// Every pass rolled back: no order row survived the abandoned attempts
	orders, listErr := orderRepo.List(ctx)
	require.NoError(t, listErr)
	assert.Empty(t, orders)

	exists, existsErr := orderRepo.ExistsByBusinessKey(ctx, domain.BusinessKey{
		Title: "contended", SupplierID: supplier.ID, ConsumerID: consumer.ID,
	})
	require.NoError(t, existsErr)
	assert.False(t, exists)
}
