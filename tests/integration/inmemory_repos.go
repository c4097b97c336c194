package integration

import (
	"context"
	"sort"
	"strings"
	"sync"

	"trade-settlement-engine/internal/core/domain"
	"trade-settlement-engine/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// memStore is the shared backing state for the in-memory repos. Unlike a pile
// of independent fakes it models the two properties the settlement pipeline
// actually leans on: version-conditioned writes (compare-and-swap on
// Client.Version) and atomic transactions (commit sections are serialized via
// txMu and rolled back through an undo journal).
type memStore struct {
	mu   sync.RWMutex // guards the maps
	txMu sync.Mutex   // held from Begin until Commit/Rollback

	clients   map[int64]*domain.Client
	orders    map[int64]*domain.Order
	orderKeys map[domain.BusinessKey]int64

	nextClientID int64
	nextOrderID  int64
}

func newMemStore() *memStore {
	return &memStore{
		clients:   make(map[int64]*domain.Client),
		orders:    make(map[int64]*domain.Order),
		orderKeys: make(map[domain.BusinessKey]int64),
	}
}

func cloneClient(c *domain.Client) *domain.Client {
	cp := *c
	if c.DeactivatedAt != nil {
		t := *c.DeactivatedAt
		cp.DeactivatedAt = &t
	}
	return &cp
}

func cloneOrder(o *domain.Order) *domain.Order {
	cp := *o
	return &cp
}

// --- Transactor and transaction ---

type inMemoryTransactor struct {
	store *memStore
}

func newInMemoryTransactor(store *memStore) *inMemoryTransactor {
	return &inMemoryTransactor{store: store}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.store.txMu.Lock()
	return &memTx{store: t.store}, nil
}

// memTx serializes the commit section and journals every mutation so Rollback
// can restore the prior state. Rollback after Commit is a no-op, matching the
// service's deferred-rollback pattern.
type memTx struct {
	store  *memStore
	undo   []func()
	closed bool
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	t.undo = nil
	t.store.txMu.Unlock()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	t.store.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.store.mu.Unlock()
	t.undo = nil
	t.store.txMu.Unlock()
	return nil
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *memTx) Conn() *pgx.Conn                                               { return nil }

// --- In-Memory Client Repo ---

type inMemoryClientRepo struct {
	store *memStore
}

func newInMemoryClientRepo(store *memStore) *inMemoryClientRepo {
	return &inMemoryClientRepo{store: store}
}

func (r *inMemoryClientRepo) Create(ctx context.Context, client *domain.Client) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.clients {
		if existing.Email == client.Email {
			return ports.ErrDuplicateKey
		}
	}
	r.store.nextClientID++
	client.ID = r.store.nextClientID
	client.Version = 1
	r.store.clients[client.ID] = cloneClient(client)
	return nil
}

func (r *inMemoryClientRepo) GetByID(ctx context.Context, id int64) (*domain.Client, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	c, ok := r.store.clients[id]
	if !ok {
		return nil, nil
	}
	return cloneClient(c), nil
}

func (r *inMemoryClientRepo) GetByEmail(ctx context.Context, email string) (*domain.Client, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, c := range r.store.clients {
		if c.Email == email {
			return cloneClient(c), nil
		}
	}
	return nil, nil
}

func (r *inMemoryClientRepo) List(ctx context.Context) ([]domain.Client, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	result := make([]domain.Client, 0, len(r.store.clients))
	for _, c := range r.store.clients {
		result = append(result, *cloneClient(c))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *inMemoryClientRepo) Search(ctx context.Context, field, pattern string) ([]domain.Client, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	needle := strings.ToLower(pattern)
	var result []domain.Client
	for _, c := range r.store.clients {
		var value string
		switch field {
		case "name":
			value = c.Name
		case "email":
			value = c.Email
		case "address":
			value = c.Address
		}
		if strings.Contains(strings.ToLower(value), needle) {
			result = append(result, *cloneClient(c))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *inMemoryClientRepo) SearchProfitRange(ctx context.Context, min, max decimal.Decimal) ([]domain.Client, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var result []domain.Client
	for _, c := range r.store.clients {
		if c.Profit.GreaterThanOrEqual(min) && c.Profit.LessThanOrEqual(max) {
			result = append(result, *cloneClient(c))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *inMemoryClientRepo) Update(ctx context.Context, client *domain.Client) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	current, ok := r.store.clients[client.ID]
	if !ok || current.Version != client.Version {
		return ports.ErrVersionConflict
	}
	for _, existing := range r.store.clients {
		if existing.ID != client.ID && existing.Email == client.Email {
			return ports.ErrDuplicateKey
		}
	}
	client.Version++
	stored := cloneClient(client)
	stored.Profit = current.Profit
	r.store.clients[client.ID] = stored
	return nil
}

func (r *inMemoryClientRepo) UpdateProfit(ctx context.Context, tx pgx.Tx, clientID, expectedVersion int64, profit decimal.Decimal) error {
	mtx, ok := tx.(*memTx)
	if !ok {
		return pgx.ErrTxClosed
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	current, found := r.store.clients[clientID]
	if !found || current.Version != expectedVersion {
		return ports.ErrVersionConflict
	}
	prevProfit := current.Profit
	prevVersion := current.Version
	mtx.undo = append(mtx.undo, func() {
		if c, still := r.store.clients[clientID]; still {
			c.Profit = prevProfit
			c.Version = prevVersion
		}
	})
	current.Profit = profit
	current.Version++
	return nil
}

// --- In-Memory Order Repo ---

type inMemoryOrderRepo struct {
	store *memStore
}

func newInMemoryOrderRepo(store *memStore) *inMemoryOrderRepo {
	return &inMemoryOrderRepo{store: store}
}

func (r *inMemoryOrderRepo) Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	mtx, ok := tx.(*memTx)
	if !ok {
		return pgx.ErrTxClosed
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := order.Key()
	if _, taken := r.store.orderKeys[key]; taken {
		return ports.ErrDuplicateKey
	}
	r.store.nextOrderID++
	order.ID = r.store.nextOrderID
	r.store.orders[order.ID] = cloneOrder(order)
	r.store.orderKeys[key] = order.ID
	id := order.ID
	mtx.undo = append(mtx.undo, func() {
		delete(r.store.orders, id)
		delete(r.store.orderKeys, key)
	})
	return nil
}

func (r *inMemoryOrderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	o, ok := r.store.orders[id]
	if !ok {
		return nil, nil
	}
	return cloneOrder(o), nil
}

func (r *inMemoryOrderRepo) List(ctx context.Context) ([]domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	result := make([]domain.Order, 0, len(r.store.orders))
	for _, o := range r.store.orders {
		result = append(result, *cloneOrder(o))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *inMemoryOrderRepo) ListBySupplier(ctx context.Context, clientID int64) ([]domain.Order, error) {
	return r.listWhere(func(o *domain.Order) bool { return o.SupplierID == clientID })
}

func (r *inMemoryOrderRepo) ListByConsumer(ctx context.Context, clientID int64) ([]domain.Order, error) {
	return r.listWhere(func(o *domain.Order) bool { return o.ConsumerID == clientID })
}

func (r *inMemoryOrderRepo) listWhere(match func(*domain.Order) bool) ([]domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var result []domain.Order
	for _, o := range r.store.orders {
		if match(o) {
			result = append(result, *cloneOrder(o))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *inMemoryOrderRepo) ExistsByBusinessKey(ctx context.Context, key domain.BusinessKey) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	_, ok := r.store.orderKeys[key]
	return ok, nil
}

// --- In-Memory Settled-Key Cache ---

type inMemorySettledKeys struct {
	mu   sync.RWMutex
	keys map[domain.BusinessKey]struct{}
}

func newInMemorySettledKeys() *inMemorySettledKeys {
	return &inMemorySettledKeys{keys: make(map[domain.BusinessKey]struct{})}
}

func (c *inMemorySettledKeys) Contains(ctx context.Context, key domain.BusinessKey) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.keys[key]
	return ok, nil
}

func (c *inMemorySettledKeys) Add(ctx context.Context, key domain.BusinessKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[key] = struct{}{}
	return nil
}
