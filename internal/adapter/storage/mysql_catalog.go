package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/retail-fulfillment/internal/core/domain"
)

func (m *MySQLAdapter) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var (
		p    domain.Product
		unit string
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, code, category_id, weight_value, weight_unit, length_cm, breadth_cm, height_cm
		FROM products WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Code, &p.CategoryID, &p.Weight.Value, &unit,
		&p.Dimensions.Length, &p.Dimensions.Breadth, &p.Dimensions.Height)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}

	p.Weight.Unit = domain.WeightUnit(unit)
	return &p, nil
}

func (m *MySQLAdapter) GetCategoryByID(ctx context.Context, id string) (*domain.Category, error) {
	var c domain.Category
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, hsn FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.HSN)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query category: %w", err)
	}

	return &c, nil
}
