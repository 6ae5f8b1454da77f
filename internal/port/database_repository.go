package port

import (
	"context"

	"github.com/rl1809/retail-fulfillment/internal/core/domain"
)

type StockRepository interface {
	// GetStock returns nil, nil when the product does not exist
	GetStock(ctx context.Context, productID string) (*domain.StockRecord, error)

	// BeginTx opens a transaction; callers must defer Rollback
	BeginTx(ctx context.Context) (StockTx, error)

	// IncrementStock adds quantity to available stock, false if the product is unknown
	IncrementStock(ctx context.Context, productID string, quantity int) (bool, error)

	// ListLowStock returns records with 0 < stock <= threshold
	ListLowStock(ctx context.Context, threshold int) ([]domain.StockRecord, error)

	// ListOutOfStock returns records with zero stock
	ListOutOfStock(ctx context.Context) ([]domain.StockRecord, error)
}

type StockTx interface {
	// ReduceStock decrements stock and increments sold guarded by stock >= quantity
	ReduceStock(ctx context.Context, productID string, quantity int) (domain.ReduceResult, error)

	Commit() error

	// Rollback is a no-op after Commit
	Rollback() error
}

type CatalogRepository interface {
	// GetProductByID returns nil, nil when the product does not exist
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)

	// GetCategoryByID returns nil, nil when the category does not exist
	GetCategoryByID(ctx context.Context, id string) (*domain.Category, error)
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error

	// GetOrder returns nil, nil when the order does not exist
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)

	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error

	// SaveShipment stores the record on the order and moves it to shipped
	SaveShipment(ctx context.Context, orderID string, shipment domain.ShipmentRecord) error
}
