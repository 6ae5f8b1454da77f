package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rl1809/retail-fulfillment/internal/core/domain"
	"github.com/rl1809/retail-fulfillment/internal/port"
)

const DefaultLowStockThreshold = 5

// StockLedger applies all-or-nothing stock reductions. Correctness rests on
// the store's guarded update and transaction, not on anything in process.
type StockLedger struct {
	stock   port.StockRepository
	checker *AvailabilityChecker
	logger  *zap.Logger
}

func NewStockLedger(stock port.StockRepository, checker *AvailabilityChecker, logger *zap.Logger) *StockLedger {
	return &StockLedger{
		stock:   stock,
		checker: checker,
		logger:  logger,
	}
}

func (l *StockLedger) CommitReduction(ctx context.Context, items []domain.StockItem) error {
	if err := validateStockItems(items); err != nil {
		return err
	}

	if err := l.checker.Validate(ctx, items); err != nil {
		return err
	}

	return l.commit(ctx, items)
}

// commit runs the guarded transaction for items that were already validated
// and pre-checked by the caller.
func (l *StockLedger) commit(ctx context.Context, items []domain.StockItem) error {
	tx, err := l.stock.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin stock tx: %w", err)
	}
	defer tx.Rollback()

	for _, item := range items {
		result, err := tx.ReduceStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			l.logger.Error("stock reduction aborted",
				zap.String("product_id", item.ProductID),
				zap.Error(err),
			)
			return fmt.Errorf("reduce stock for %s: %w", item.Label(), err)
		}

		if result.Matched == 0 {
			return &domain.StockReductionError{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Reason:      "product not found or insufficient stock",
			}
		}
		if result.Modified == 0 {
			return &domain.StockReductionError{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Reason:      "failed to reduce stock",
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit stock tx: %w", err)
	}

	l.logger.Info("stock reduced", zap.Int("items", len(items)))
	return nil
}

// Restock adds quantity back to a product's available stock.
func (l *StockLedger) Restock(ctx context.Context, productID string, quantity int) error {
	if productID == "" {
		return domain.NewValidationError("product_id", "is required")
	}
	if quantity <= 0 {
		return domain.NewValidationError("quantity", "must be greater than zero")
	}

	ok, err := l.stock.IncrementStock(ctx, productID, quantity)
	if err != nil {
		return fmt.Errorf("increment stock for %s: %w", productID, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
	}
	return nil
}

func (l *StockLedger) LowStock(ctx context.Context, threshold int) ([]domain.StockRecord, error) {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return l.stock.ListLowStock(ctx, threshold)
}

func (l *StockLedger) OutOfStock(ctx context.Context) ([]domain.StockRecord, error) {
	return l.stock.ListOutOfStock(ctx)
}
