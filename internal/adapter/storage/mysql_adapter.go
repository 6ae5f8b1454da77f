package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/retail-fulfillment/internal/core/domain"
	"github.com/rl1809/retail-fulfillment/internal/port"
)

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) GetStock(ctx context.Context, productID string) (*domain.StockRecord, error) {
	var rec domain.StockRecord
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, code, stock, quantity_sold, updated_at
		FROM products WHERE id = ?`, productID,
	).Scan(&rec.ProductID, &rec.ProductName, &rec.ProductCode, &rec.AvailableStock, &rec.QuantitySold, &rec.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query stock: %w", err)
	}

	return &rec, nil
}

// BeginTx opens a transaction bound to ctx; database/sql rolls it back when
// ctx is cancelled before Commit.
func (m *MySQLAdapter) BeginTx(ctx context.Context) (port.StockTx, error) {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &mysqlStockTx{tx: tx}, nil
}

func (m *MySQLAdapter) IncrementStock(ctx context.Context, productID string, quantity int) (bool, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + ?, updated_at = NOW()
		WHERE id = ?`,
		quantity, productID,
	)
	if err != nil {
		return false, fmt.Errorf("increment stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (m *MySQLAdapter) ListLowStock(ctx context.Context, threshold int) ([]domain.StockRecord, error) {
	return m.listStock(ctx, `
		SELECT id, name, code, stock, quantity_sold, updated_at
		FROM products
		WHERE is_active = TRUE AND stock > 0 AND stock <= ?
		ORDER BY stock, id`, threshold)
}

func (m *MySQLAdapter) ListOutOfStock(ctx context.Context) ([]domain.StockRecord, error) {
	return m.listStock(ctx, `
		SELECT id, name, code, stock, quantity_sold, updated_at
		FROM products
		WHERE is_active = TRUE AND stock = 0
		ORDER BY id`)
}

func (m *MySQLAdapter) listStock(ctx context.Context, query string, args ...any) ([]domain.StockRecord, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stock: %w", err)
	}
	defer rows.Close()

	var records []domain.StockRecord
	for rows.Next() {
		var rec domain.StockRecord
		if err := rows.Scan(&rec.ProductID, &rec.ProductName, &rec.ProductCode, &rec.AvailableStock, &rec.QuantitySold, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type mysqlStockTx struct {
	tx *sql.Tx
}

// ReduceStock is a single guarded statement, so two transactions racing on
// one row serialize on InnoDB's row lock and the loser re-evaluates the guard.
func (t *mysqlStockTx) ReduceStock(ctx context.Context, productID string, quantity int) (domain.ReduceResult, error) {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - ?, quantity_sold = quantity_sold + ?, updated_at = NOW()
		WHERE id = ? AND stock >= ?`,
		quantity, quantity, productID, quantity,
	)
	if err != nil {
		return domain.ReduceResult{}, fmt.Errorf("update stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.ReduceResult{}, fmt.Errorf("rows affected: %w", err)
	}

	// quantity > 0, so every matched row is also a changed row
	return domain.ReduceResult{Matched: rows, Modified: rows}, nil
}

func (t *mysqlStockTx) Commit() error {
	return t.tx.Commit()
}

func (t *mysqlStockTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
