package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trade-settlement-engine/internal/core/domain"
	"trade-settlement-engine/internal/core/ports"
	"trade-settlement-engine/internal/metrics"
	"trade-settlement-engine/pkg/apperror"

	"github.com/rs/zerolog"
)

// SettlementServiceImpl implements ports.SettlementService.
//
// An order settles through a fixed pipeline: fetch both party snapshots,
// reject duplicates and invalid pairings, wait out the processing latency,
// re-fetch and reconfirm, then commit the order together with both profit
// updates in one database transaction conditioned on the snapshot versions.
// A version conflict anywhere in the commit aborts the pass and restarts the
// pipeline from the fetch, up to maxAttempts passes.
type SettlementServiceImpl struct {
	clientRepo  ports.ClientRepository
	orderRepo   ports.OrderRepository
	keyCache    ports.SettledKeyCache
	events      ports.EventPublisher
	transactor  ports.DBTransactor
	validator   *OrderValidator
	delay       DelayFunc
	maxAttempts int
	log         zerolog.Logger
}

// NewSettlementService creates a new SettlementServiceImpl.
// events may be nil when publishing is disabled.
func NewSettlementService(
	clientRepo ports.ClientRepository,
	orderRepo ports.OrderRepository,
	keyCache ports.SettledKeyCache,
	events ports.EventPublisher,
	transactor ports.DBTransactor,
	validator *OrderValidator,
	delay DelayFunc,
	maxAttempts int,
	log zerolog.Logger,
) *SettlementServiceImpl {
	return &SettlementServiceImpl{
		clientRepo:  clientRepo,
		orderRepo:   orderRepo,
		keyCache:    keyCache,
		events:      events,
		transactor:  transactor,
		validator:   validator,
		delay:       delay,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// SettleOrder runs the settlement pipeline, retrying version conflicts.
func (s *SettlementServiceImpl) SettleOrder(ctx context.Context, req ports.OrderRequest) (*domain.Order, error) {
	if err := s.validator.CheckPrice(req.Price); err != nil {
		metrics.Settlements.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, err
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		metrics.SettlementAttempts.Inc()

		order, err := s.settleOnce(ctx, req)
		if err == nil {
			metrics.Settlements.WithLabelValues(metrics.OutcomeSettled).Inc()
			s.afterCommit(ctx, order)
			return order, nil
		}

		// Only a lost version race is worth another pass. Business
		// rejections and internal failures are final.
		if errors.Is(err, ports.ErrVersionConflict) {
			metrics.SettlementConflicts.Inc()
			s.log.Debug().
				Int("attempt", attempt).
				Str("title", req.Title).
				Int64("supplier_id", req.SupplierID).
				Int64("consumer_id", req.ConsumerID).
				Msg("version conflict, restarting settlement pass")
			continue
		}

		metrics.Settlements.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, err
	}

	metrics.Settlements.WithLabelValues(metrics.OutcomeConflictExhausted).Inc()
	s.log.Warn().
		Int("attempts", s.maxAttempts).
		Str("title", req.Title).
		Int64("supplier_id", req.SupplierID).
		Int64("consumer_id", req.ConsumerID).
		Msg("settlement retries exhausted")
	return nil, apperror.ErrConcurrencyConflict(s.maxAttempts)
}

// settleOnce is a single pipeline pass. A ports.ErrVersionConflict return
// means the pass lost a race and may be retried; every other error is final.
func (s *SettlementServiceImpl) settleOnce(ctx context.Context, req ports.OrderRequest) (*domain.Order, error) {
	start := time.Now().UTC()

	supplier, err := s.getClient(ctx, req.SupplierID)
	if err != nil {
		return nil, err
	}
	consumer, err := s.getClient(ctx, req.ConsumerID)
	if err != nil {
		return nil, err
	}

	// Duplicate check: Redis fast path, then the store of record.
	key := req.Key()
	hit, err := s.keyCache.Contains(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Msg("redis duplicate check failed, falling through to store")
	} else if hit {
		return nil, apperror.ErrDuplicateOrder(req.Title, req.SupplierID, req.ConsumerID)
	}
	exists, err := s.orderRepo.ExistsByBusinessKey(ctx, key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("duplicate check: %w", err))
	}
	if exists {
		return nil, apperror.ErrDuplicateOrder(req.Title, req.SupplierID, req.ConsumerID)
	}

	if err := s.validator.ValidateParties(supplier, consumer, req.Price); err != nil {
		return nil, err
	}

	// Processing latency between validation and commit.
	if err := s.delay(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("processing delay: %w", err))
	}

	// The world may have moved while we waited: re-fetch and reconfirm.
	supplier, err = s.getClient(ctx, req.SupplierID)
	if err != nil {
		return nil, err
	}
	consumer, err = s.getClient(ctx, req.ConsumerID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Reconfirm(supplier, consumer, req.Price); err != nil {
		return nil, err
	}

	// Commit: order insert plus both profit updates, each conditioned on the
	// version from the re-fetched snapshot.
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	end := time.Now().UTC()
	order := &domain.Order{
		Title:               req.Title,
		SupplierID:          req.SupplierID,
		ConsumerID:          req.ConsumerID,
		Price:               req.Price,
		ProcessingStartTime: start,
		ProcessingEndTime:   end,
		CreatedAt:           end,
	}
	if err := s.orderRepo.Create(ctx, dbTx, order); err != nil {
		if errors.Is(err, ports.ErrDuplicateKey) {
			// A concurrent identical submission won the insert race.
			return nil, apperror.ErrDuplicateOrder(req.Title, req.SupplierID, req.ConsumerID)
		}
		return nil, apperror.InternalError(fmt.Errorf("create order: %w", err))
	}

	if err := s.clientRepo.UpdateProfit(ctx, dbTx, supplier.ID, supplier.Version, supplier.Profit.Add(req.Price)); err != nil {
		if errors.Is(err, ports.ErrVersionConflict) {
			return nil, err
		}
		return nil, apperror.InternalError(fmt.Errorf("update supplier profit: %w", err))
	}
	if err := s.clientRepo.UpdateProfit(ctx, dbTx, consumer.ID, consumer.Version, consumer.Profit.Sub(req.Price)); err != nil {
		if errors.Is(err, ports.ErrVersionConflict) {
			return nil, err
		}
		return nil, apperror.InternalError(fmt.Errorf("update consumer profit: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return order, nil
}

// afterCommit runs the best-effort post-commit steps. Failures here never
// affect the settled order.
func (s *SettlementServiceImpl) afterCommit(ctx context.Context, order *domain.Order) {
	if err := s.keyCache.Add(ctx, order.Key()); err != nil {
		s.log.Warn().Err(err).Int64("order_id", order.ID).Msg("failed to cache settled key in redis")
	}
	if s.events != nil {
		if err := s.events.PublishOrderSettled(ctx, order); err != nil {
			s.log.Warn().Err(err).Int64("order_id", order.ID).Msg("failed to publish order.settled event")
		}
	}

	s.log.Info().
		Int64("order_id", order.ID).
		Str("title", order.Title).
		Int64("supplier_id", order.SupplierID).
		Int64("consumer_id", order.ConsumerID).
		Str("price", order.Price.String()).
		Msg("order settled")
}

func (s *SettlementServiceImpl) getClient(ctx context.Context, id int64) (*domain.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get client %d: %w", id, err))
	}
	if client == nil {
		return nil, apperror.ErrClientNotFound(id)
	}
	return client, nil
}

// ListOrders returns all settled orders.
func (s *SettlementServiceImpl) ListOrders(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.orderRepo.List(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list orders: %w", err))
	}
	return orders, nil
}

// ListOrdersForClient returns a client's orders split by trade side.
func (s *SettlementServiceImpl) ListOrdersForClient(ctx context.Context, clientID int64) (*ports.ClientOrders, error) {
	if _, err := s.getClient(ctx, clientID); err != nil {
		return nil, err
	}

	sales, err := s.orderRepo.ListBySupplier(ctx, clientID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list sales: %w", err))
	}
	purchases, err := s.orderRepo.ListByConsumer(ctx, clientID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list purchases: %w", err))
	}
	return &ports.ClientOrders{Sales: sales, Purchases: purchases}, nil
}
