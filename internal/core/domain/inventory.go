package domain

import "time"

// StockRecord is the ledger row for one product. AvailableStock never goes
// negative and QuantitySold only grows, by the same amount stock shrinks.
type StockRecord struct {
	ProductID      string
	ProductName    string
	ProductCode    string
	AvailableStock int
	QuantitySold   int
	UpdatedAt      time.Time
}

// StockItem is one requested quantity of a product.
type StockItem struct {
	ProductID   string `json:"product_id"`
	Quantity    int    `json:"quantity"`
	ProductName string `json:"product_name,omitempty"`
}

// Label returns the name used in user-facing messages.
func (i StockItem) Label() string {
	if i.ProductName != "" {
		return i.ProductName
	}
	return i.ProductID
}

// ReduceResult reports what a guarded decrement touched.
type ReduceResult struct {
	Matched  int64
	Modified int64
}
