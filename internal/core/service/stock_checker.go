package service

import (
	"context"
	"fmt"

	"github.com/rl1809/retail-fulfillment/internal/core/domain"
	"github.com/rl1809/retail-fulfillment/internal/port"
)

// AvailabilityChecker is a best-effort pre-check. It reads outside any
// transaction, so a passing check is not a reservation.
type AvailabilityChecker struct {
	stock port.StockRepository
}

func NewAvailabilityChecker(stock port.StockRepository) *AvailabilityChecker {
	return &AvailabilityChecker{stock: stock}
}

func (c *AvailabilityChecker) Validate(ctx context.Context, items []domain.StockItem) error {
	if err := validateStockItems(items); err != nil {
		return err
	}

	var shortfalls []domain.Shortfall
	for _, item := range items {
		available, err := c.available(ctx, item.ProductID)
		if err != nil {
			return fmt.Errorf("read stock for %s: %w", item.ProductID, err)
		}
		if available < item.Quantity {
			shortfalls = append(shortfalls, domain.Shortfall{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Requested:   item.Quantity,
				Available:   available,
			})
		}
	}

	if len(shortfalls) > 0 {
		return &domain.InsufficientStockError{Items: shortfalls}
	}
	return nil
}

// available reads a missing product as zero stock.
func (c *AvailabilityChecker) available(ctx context.Context, productID string) (int, error) {
	rec, err := c.stock.GetStock(ctx, productID)
	if err != nil {
		return 0, err
	}
	if rec == nil {
		return 0, nil
	}
	return rec.AvailableStock, nil
}

func validateStockItems(items []domain.StockItem) error {
	if len(items) == 0 {
		return domain.NewValidationError("items", "no order items provided")
	}
	for i, item := range items {
		if item.ProductID == "" {
			return domain.NewValidationError(fmt.Sprintf("items[%d].product_id", i), "is required")
		}
		if item.Quantity <= 0 {
			return domain.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "must be greater than zero")
		}
	}
	return nil
}
