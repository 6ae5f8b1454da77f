package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusFailed    OrderStatus = "failed"
)

type PaymentMethod string

const (
	PaymentMethodCOD     PaymentMethod = "cod"
	PaymentMethodPrepaid PaymentMethod = "prepaid"
)

type Address struct {
	Name         string `json:"name"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PinCode      string `json:"pin_code"`
	Country      string `json:"country"`
	Phone        string `json:"phone"`
}

// OrderLineItem references its product by id only; the product is looked up
// again whenever its weight, dimensions or category are needed.
type OrderLineItem struct {
	ProductID       string          `json:"product_id"`
	ProductName     string          `json:"product_name"`
	ProductCode     string          `json:"product_code"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
	ItemTotal       decimal.Decimal `json:"item_total"`
}

func NewOrderLineItem(productID, name, code string, quantity int, price decimal.Decimal) OrderLineItem {
	return OrderLineItem{
		ProductID:       productID,
		ProductName:     name,
		ProductCode:     code,
		Quantity:        quantity,
		PriceAtPurchase: price,
		ItemTotal:       price.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

type Order struct {
	ID              string
	OrderNumber     string
	UserID          string
	CustomerEmail   string
	Items           []OrderLineItem
	ShippingAddress Address
	BillingAddress  Address
	Subtotal        decimal.Decimal
	Total           decimal.Decimal
	PaymentMethod   PaymentMethod
	Status          OrderStatus
	Shipment        *ShipmentRecord
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// StockItems projects the order lines onto the ledger's input shape.
func (o *Order) StockItems() []StockItem {
	items := make([]StockItem, 0, len(o.Items))
	for _, li := range o.Items {
		items = append(items, StockItem{
			ProductID:   li.ProductID,
			Quantity:    li.Quantity,
			ProductName: li.ProductName,
		})
	}
	return items
}

func (o *Order) PackageItems() []PackageItem {
	items := make([]PackageItem, 0, len(o.Items))
	for _, li := range o.Items {
		items = append(items, PackageItem{ProductID: li.ProductID, Quantity: li.Quantity})
	}
	return items
}

// RecalculateTotals sets every ItemTotal and the order Subtotal from the
// line prices. Total is left alone when already set (discounts, shipping).
func (o *Order) RecalculateTotals() {
	subtotal := decimal.Zero
	for i := range o.Items {
		li := &o.Items[i]
		li.ItemTotal = li.PriceAtPurchase.Mul(decimal.NewFromInt(int64(li.Quantity)))
		subtotal = subtotal.Add(li.ItemTotal)
	}
	o.Subtotal = subtotal
	if o.Total.IsZero() {
		o.Total = subtotal
	}
}
