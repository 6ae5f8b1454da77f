package handler

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/retail-fulfillment/internal/adapter/storage"
	"github.com/rl1809/retail-fulfillment/internal/core/domain"
	"github.com/rl1809/retail-fulfillment/internal/core/service"
	"github.com/rl1809/retail-fulfillment/internal/port"
)

// Mock StockRepository with a single global transaction lock.
type mockStockRepo struct {
	mu    sync.Mutex
	txMu  sync.Mutex
	stock map[string]int
}

func (m *mockStockRepo) GetStock(ctx context.Context, productID string) (*domain.StockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	qty, ok := m.stock[productID]
	if !ok {
		return nil, nil
	}
	return &domain.StockRecord{ProductID: productID, AvailableStock: qty}, nil
}

func (m *mockStockRepo) BeginTx(ctx context.Context) (port.StockTx, error) {
	m.txMu.Lock()
	return &mockStockTx{repo: m, pending: map[string]int{}}, nil
}

func (m *mockStockRepo) IncrementStock(ctx context.Context, productID string, quantity int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stock[productID]; !ok {
		return false, nil
	}
	m.stock[productID] += quantity
	return true, nil
}

func (m *mockStockRepo) ListLowStock(ctx context.Context, threshold int) ([]domain.StockRecord, error) {
	return m.filter(func(q int) bool { return q > 0 && q <= threshold }), nil
}

func (m *mockStockRepo) ListOutOfStock(ctx context.Context) ([]domain.StockRecord, error) {
	return m.filter(func(q int) bool { return q == 0 }), nil
}

func (m *mockStockRepo) filter(keep func(int) bool) []domain.StockRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.StockRecord
	for id, q := range m.stock {
		if keep(q) {
			out = append(out, domain.StockRecord{ProductID: id, AvailableStock: q})
		}
	}
	return out
}

type mockStockTx struct {
	repo    *mockStockRepo
	pending map[string]int
	done    bool
}

func (t *mockStockTx) ReduceStock(ctx context.Context, productID string, quantity int) (domain.ReduceResult, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	qty, ok := t.repo.stock[productID]
	if !ok || qty-t.pending[productID] < quantity {
		return domain.ReduceResult{}, nil
	}
	t.pending[productID] += quantity
	return domain.ReduceResult{Matched: 1, Modified: 1}, nil
}

func (t *mockStockTx) Commit() error {
	t.repo.mu.Lock()
	for id, q := range t.pending {
		t.repo.stock[id] -= q
	}
	t.repo.mu.Unlock()
	t.done = true
	t.repo.txMu.Unlock()
	return nil
}

func (t *mockStockTx) Rollback() error {
	if !t.done {
		t.done = true
		t.repo.txMu.Unlock()
	}
	return nil
}

// Mock CatalogRepository
type mockCatalog struct{}

func (mockCatalog) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	return &domain.Product{ID: id, Code: id, Weight: domain.Weight{Value: 1, Unit: domain.WeightUnitKG}}, nil
}

func (mockCatalog) GetCategoryByID(ctx context.Context, id string) (*domain.Category, error) {
	return nil, nil
}

// Mock OrderRepository
type mockOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
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
	if o, ok := m.orders[orderID]; ok {
		o.Status = status
		return nil
	}
	return domain.ErrOrderNotFound
}

func (m *mockOrderRepo) SaveShipment(ctx context.Context, orderID string, s domain.ShipmentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.orders[orderID]
	o.Shipment = &s
	o.Status = domain.OrderStatusShipped
	return nil
}

// Mock LockRepository
type mockLocks struct{}

func (mockLocks) AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	return true, nil
}

func (mockLocks) ReleaseLock(ctx context.Context, key, owner string) error { return nil }

// Mock CarrierClient
type mockCarrier struct {
	createFail string
}

func (m *mockCarrier) Login(ctx context.Context, email, password string) (string, error) {
	return "token", nil
}

func (m *mockCarrier) CreateShipment(ctx context.Context, token string, payload domain.ShipmentPayload) (*domain.CarrierShipmentResponse, error) {
	if m.createFail != "" {
		ok := false
		return &domain.CarrierShipmentResponse{Success: &ok, Message: m.createFail}, nil
	}
	return &domain.CarrierShipmentResponse{OrderID: "9001", ShipmentID: "7001", Status: "NEW", AWBCode: "AWB123"}, nil
}

func (m *mockCarrier) TrackShipment(ctx context.Context, token, awb string) (domain.TrackingInfo, error) {
	return json.RawMessage(`{"awb":"` + awb + `"}`), nil
}

func (m *mockCarrier) CancelShipments(ctx context.Context, token string, awbs []string) (domain.TrackingInfo, error) {
	return json.RawMessage(`{"message":"cancelled"}`), nil
}

type testServices struct {
	orders  *service.OrderService
	ledger  *service.StockLedger
	checker *service.AvailabilityChecker
	stock   *mockStockRepo
	carrier *mockCarrier
}

func newTestServices(stock map[string]int) *testServices {
	logger := zap.NewNop()
	repo := &mockStockRepo{stock: stock}
	carrier := &mockCarrier{}

	checker := service.NewAvailabilityChecker(repo)
	ledger := service.NewStockLedger(repo, checker, logger)
	session := service.NewCarrierSession(carrier, storage.NewMemoryTokenStore(), service.CarrierCredentials{Email: "a@b.c", Password: "p"}, logger)
	dispatcher := service.NewShipmentDispatcher(session, carrier, mockCatalog{}, service.NewPackageAggregator(mockCatalog{}, logger), "Primary", logger)

	orders := service.NewOrderService(service.OrderServiceDeps{
		Checker:    checker,
		Ledger:     ledger,
		Dispatcher: dispatcher,
		Orders:     &mockOrderRepo{orders: map[string]*domain.Order{}},
		Locks:      mockLocks{},
		Events:     eventSink{},
		Logger:     logger,
	}, 100, time.Minute)

	return &testServices{orders: orders, ledger: ledger, checker: checker, stock: repo, carrier: carrier}
}

type eventSink struct{}

func (eventSink) Publish(ctx context.Context, event domain.Event) error { return nil }
