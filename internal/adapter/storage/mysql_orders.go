package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rl1809/retail-fulfillment/internal/core/domain"
)

func (m *MySQLAdapter) CreateOrder(ctx context.Context, order *domain.Order) error {
	shipping, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("encode shipping address: %w", err)
	}
	billing, err := json.Marshal(order.BillingAddress)
	if err != nil {
		return fmt.Errorf("encode billing address: %w", err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, order_number, user_id, customer_email, shipping_address, billing_address,
			subtotal, total, payment_method, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.OrderNumber, order.UserID, order.CustomerEmail, shipping, billing,
		order.Subtotal, order.Total, order.PaymentMethod, order.Status, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, li := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, product_code, quantity, price_at_purchase, item_total)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			order.ID, li.ProductID, li.ProductName, li.ProductCode, li.Quantity, li.PriceAtPurchase, li.ItemTotal,
		)
		if err != nil {
			return fmt.Errorf("insert order item %s: %w", li.ProductID, err)
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var (
		o                 domain.Order
		shipping, billing []byte
		shipmentID        sql.NullString
		carrierOrderID    sql.NullString
		awb               sql.NullString
		courierName       sql.NullString
		courierCompanyID  sql.NullString
		shipmentStatus    sql.NullString
		shipmentCode      sql.NullInt64
		trackingURL       sql.NullString
		labelURL          sql.NullString
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT id, order_number, user_id, customer_email, shipping_address, billing_address,
			subtotal, total, payment_method, status,
			shipment_id, carrier_order_id, awb_number, courier_name, courier_company_id,
			shipment_status, shipment_status_code, tracking_url, label_url,
			created_at, updated_at
		FROM orders WHERE id = ?`, orderID,
	).Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.CustomerEmail, &shipping, &billing,
		&o.Subtotal, &o.Total, &o.PaymentMethod, &o.Status,
		&shipmentID, &carrierOrderID, &awb, &courierName, &courierCompanyID,
		&shipmentStatus, &shipmentCode, &trackingURL, &labelURL,
		&o.CreatedAt, &o.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	if err := json.Unmarshal(shipping, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decode shipping address: %w", err)
	}
	if err := json.Unmarshal(billing, &o.BillingAddress); err != nil {
		return nil, fmt.Errorf("decode billing address: %w", err)
	}

	if shipmentID.Valid {
		o.Shipment = &domain.ShipmentRecord{
			ShipmentID:       shipmentID.String,
			CarrierOrderID:   carrierOrderID.String,
			AWBNumber:        awb.String,
			CourierName:      courierName.String,
			CourierCompanyID: courierCompanyID.String,
			Status:           shipmentStatus.String,
			StatusCode:       int(shipmentCode.Int64),
			TrackingURL:      trackingURL.String,
			LabelURL:         labelURL.String,
		}
	}

	items, err := m.orderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return &o, nil
}

func (m *MySQLAdapter) orderItems(ctx context.Context, orderID string) ([]domain.OrderLineItem, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT product_id, product_name, product_code, quantity, price_at_purchase, item_total
		FROM order_items WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderLineItem
	for rows.Next() {
		var li domain.OrderLineItem
		if err := rows.Scan(&li.ProductID, &li.ProductName, &li.ProductCode, &li.Quantity, &li.PriceAtPurchase, &li.ItemTotal); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

func (m *MySQLAdapter) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE orders SET status = ?, updated_at = NOW() WHERE id = ?`,
		status, orderID,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}
	return nil
}

func (m *MySQLAdapter) SaveShipment(ctx context.Context, orderID string, s domain.ShipmentRecord) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE orders
		SET shipment_id = ?, carrier_order_id = ?, awb_number = NULLIF(?, ''), courier_name = NULLIF(?, ''),
			courier_company_id = NULLIF(?, ''), shipment_status = ?, shipment_status_code = ?,
			tracking_url = NULLIF(?, ''), label_url = NULLIF(?, ''),
			status = ?, updated_at = NOW()
		WHERE id = ?`,
		s.ShipmentID, s.CarrierOrderID, s.AWBNumber, s.CourierName,
		s.CourierCompanyID, s.Status, s.StatusCode,
		s.TrackingURL, s.LabelURL,
		domain.OrderStatusShipped, orderID,
	)
	if err != nil {
		return fmt.Errorf("save shipment: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}
	return nil
}
