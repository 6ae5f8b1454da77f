package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rl1809/retail-fulfillment/internal/core/domain"
	"github.com/rl1809/retail-fulfillment/internal/port"
)

var errTxDone = errors.New("transaction already committed or rolled back")

// Mock StockRepository. Transactions are serialized, like row locks on a
// single hot product.
type mockStockRepo struct {
	mu      sync.Mutex
	txMu    sync.Mutex
	records map[string]*domain.StockRecord

	getErr      error
	staleReads  map[string]int
	beginErr    error
	reduceErr   map[string]error
	notModified map[string]bool
	commits     int
	reads       int
}

func newMockStockRepo(stock map[string]int) *mockStockRepo {
	m := &mockStockRepo{
		records:     make(map[string]*domain.StockRecord),
		staleReads:  make(map[string]int),
		reduceErr:   make(map[string]error),
		notModified: make(map[string]bool),
	}
	for id, qty := range stock {
		m.records[id] = &domain.StockRecord{ProductID: id, AvailableStock: qty}
	}
	return m
}

func (m *mockStockRepo) GetStock(ctx context.Context, productID string) (*domain.StockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads++
	if m.getErr != nil {
		return nil, m.getErr
	}
	if qty, ok := m.staleReads[productID]; ok {
		return &domain.StockRecord{ProductID: productID, AvailableStock: qty}, nil
	}
	rec, ok := m.records[productID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *mockStockRepo) BeginTx(ctx context.Context) (port.StockTx, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	m.txMu.Lock()
	return &mockStockTx{repo: m, ctx: ctx, pending: make(map[string]int)}, nil
}

func (m *mockStockRepo) IncrementStock(ctx context.Context, productID string, quantity int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[productID]
	if !ok {
		return false, nil
	}
	rec.AvailableStock += quantity
	return true, nil
}

func (m *mockStockRepo) ListLowStock(ctx context.Context, threshold int) ([]domain.StockRecord, error) {
	return m.list(func(r *domain.StockRecord) bool {
		return r.AvailableStock > 0 && r.AvailableStock <= threshold
	}), nil
}

func (m *mockStockRepo) ListOutOfStock(ctx context.Context) ([]domain.StockRecord, error) {
	return m.list(func(r *domain.StockRecord) bool { return r.AvailableStock == 0 }), nil
}

func (m *mockStockRepo) list(keep func(*domain.StockRecord) bool) []domain.StockRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.StockRecord
	for _, rec := range m.records {
		if keep(rec) {
			out = append(out, *rec)
		}
	}
	return out
}

func (m *mockStockRepo) stock(productID string) (available, sold int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.records[productID]
	return rec.AvailableStock, rec.QuantitySold
}

type mockStockTx struct {
	repo    *mockStockRepo
	ctx     context.Context
	pending map[string]int
	done    bool
}

func (t *mockStockTx) ReduceStock(ctx context.Context, productID string, quantity int) (domain.ReduceResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ReduceResult{}, err
	}
	if err := t.repo.reduceErr[productID]; err != nil {
		return domain.ReduceResult{}, err
	}
	if t.repo.notModified[productID] {
		return domain.ReduceResult{Matched: 1, Modified: 0}, nil
	}

	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	rec, ok := t.repo.records[productID]
	if !ok || rec.AvailableStock-t.pending[productID] < quantity {
		return domain.ReduceResult{}, nil
	}
	t.pending[productID] += quantity
	return domain.ReduceResult{Matched: 1, Modified: 1}, nil
}

func (t *mockStockTx) Commit() error {
	if t.done {
		return errTxDone
	}
	t.done = true
	defer t.repo.txMu.Unlock()

	if err := t.ctx.Err(); err != nil {
		return err
	}

	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	for id, qty := range t.pending {
		rec := t.repo.records[id]
		rec.AvailableStock -= qty
		rec.QuantitySold += qty
	}
	t.repo.commits++
	return nil
}

func (t *mockStockTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.repo.txMu.Unlock()
	return nil
}

// Mock CatalogRepository
type mockCatalog struct {
	mu         sync.Mutex
	products   map[string]*domain.Product
	categories map[string]*domain.Category
	productErr error
	lookups    map[string]int
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		products:   make(map[string]*domain.Product),
		categories: make(map[string]*domain.Category),
		lookups:    make(map[string]int),
	}
}

func (m *mockCatalog) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	m.lookups[id]++
	m.mu.Unlock()
	if m.productErr != nil {
		return nil, m.productErr
	}
	return m.products[id], nil
}

func (m *mockCatalog) GetCategoryByID(ctx context.Context, id string) (*domain.Category, error) {
	return m.categories[id], nil
}

// Mock CarrierClient
type mockCarrier struct {
	mu sync.Mutex

	loginFn  func(email, password string) (string, error)
	createFn func(token string, payload domain.ShipmentPayload) (*domain.CarrierShipmentResponse, error)
	trackFn  func(token, awb string) (domain.TrackingInfo, error)
	cancelFn func(token string, awbs []string) (domain.TrackingInfo, error)

	logins     int
	creates    int
	tokensUsed []string
	payloads   []domain.ShipmentPayload
}

func (m *mockCarrier) Login(ctx context.Context, email, password string) (string, error) {
	m.mu.Lock()
	m.logins++
	m.mu.Unlock()
	if m.loginFn == nil {
		return "token", nil
	}
	return m.loginFn(email, password)
}

func (m *mockCarrier) CreateShipment(ctx context.Context, token string, payload domain.ShipmentPayload) (*domain.CarrierShipmentResponse, error) {
	m.mu.Lock()
	m.creates++
	m.tokensUsed = append(m.tokensUsed, token)
	m.payloads = append(m.payloads, payload)
	m.mu.Unlock()
	return m.createFn(token, payload)
}

func (m *mockCarrier) TrackShipment(ctx context.Context, token, awb string) (domain.TrackingInfo, error) {
	m.mu.Lock()
	m.tokensUsed = append(m.tokensUsed, token)
	m.mu.Unlock()
	return m.trackFn(token, awb)
}

func (m *mockCarrier) CancelShipments(ctx context.Context, token string, awbs []string) (domain.TrackingInfo, error) {
	m.mu.Lock()
	m.tokensUsed = append(m.tokensUsed, token)
	m.mu.Unlock()
	return m.cancelFn(token, awbs)
}

func (m *mockCarrier) counts() (logins, creates int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logins, m.creates
}

// Mock TokenStore
type mockTokenStore struct {
	mu    sync.Mutex
	token string
	err   error
}

func (m *mockTokenStore) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.err
}

func (m *mockTokenStore) SetToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *mockTokenStore) InvalidateToken(ctx context.Context, stale string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == stale {
		m.token = ""
	}
	return nil
}

// Mock OrderRepository
type mockOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[string]*domain.Order)}
}

func (m *mockOrderRepo) CreateOrder(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *mockOrderRepo) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Status = status
	return nil
}

func (m *mockOrderRepo) SaveShipment(ctx context.Context, orderID string, shipment domain.ShipmentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Shipment = &shipment
	o.Status = domain.OrderStatusShipped
	return nil
}

func (m *mockOrderRepo) status(orderID string) domain.OrderStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[orderID].Status
}

// Mock LockRepository
type mockLocks struct {
	mu       sync.Mutex
	held     map[string]string
	releases []string
}

func newMockLocks() *mockLocks {
	return &mockLocks{held: make(map[string]string)}
}

func (m *mockLocks) AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.held[key]; ok {
		return false, nil
	}
	m.held[key] = owner
	return true, nil
}

func (m *mockLocks) ReleaseLock(ctx context.Context, key, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases = append(m.releases, owner)
	if m.held[key] == owner {
		delete(m.held, key)
	}
	return nil
}

// Mock EventPublisher
type mockEvents struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (m *mockEvents) Publish(ctx context.Context, event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockEvents) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

func boolPtr(b bool) *bool { return &b }
