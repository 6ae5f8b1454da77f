package storage

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id         VARCHAR(64)  PRIMARY KEY,
		name       VARCHAR(50)  NOT NULL UNIQUE,
		hsn        VARCHAR(8)   NOT NULL DEFAULT '',
		is_active  BOOLEAN      NOT NULL DEFAULT TRUE,
		created_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id            VARCHAR(64)    PRIMARY KEY,
		name          VARCHAR(100)   NOT NULL,
		code          VARCHAR(64)    NOT NULL UNIQUE,
		category_id   VARCHAR(64)    NOT NULL DEFAULT '',
		price         DECIMAL(12,2)  NOT NULL DEFAULT 0,
		stock         INT            NOT NULL DEFAULT 0,
		quantity_sold INT            NOT NULL DEFAULT 0,
		weight_value  DOUBLE         NOT NULL DEFAULT 0,
		weight_unit   VARCHAR(2)     NOT NULL DEFAULT 'kg',
		length_cm     DOUBLE         NOT NULL DEFAULT 0,
		breadth_cm    DOUBLE         NOT NULL DEFAULT 0,
		height_cm     DOUBLE         NOT NULL DEFAULT 0,
		is_active     BOOLEAN        NOT NULL DEFAULT TRUE,
		created_at    DATETIME       NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME       NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT products_stock_non_negative CHECK (stock >= 0),
		INDEX idx_products_category (category_id)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id                   VARCHAR(64)   PRIMARY KEY,
		order_number         VARCHAR(64)   NOT NULL UNIQUE,
		user_id              VARCHAR(64)   NOT NULL DEFAULT '',
		customer_email       VARCHAR(255)  NOT NULL DEFAULT '',
		shipping_address     JSON          NOT NULL,
		billing_address      JSON          NOT NULL,
		subtotal             DECIMAL(12,2) NOT NULL DEFAULT 0,
		total                DECIMAL(12,2) NOT NULL DEFAULT 0,
		payment_method       VARCHAR(32)   NOT NULL DEFAULT '',
		status               VARCHAR(32)   NOT NULL,
		shipment_id          VARCHAR(64)   NULL,
		carrier_order_id     VARCHAR(64)   NULL,
		awb_number           VARCHAR(64)   NULL,
		courier_name         VARCHAR(128)  NULL,
		courier_company_id   VARCHAR(64)   NULL,
		shipment_status      VARCHAR(64)   NULL,
		shipment_status_code INT           NULL,
		tracking_url         VARCHAR(512)  NULL,
		label_url            VARCHAR(512)  NULL,
		created_at           DATETIME      NOT NULL,
		updated_at           DATETIME      NOT NULL,
		INDEX idx_orders_awb (awb_number),
		INDEX idx_orders_shipment (shipment_id)
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id                BIGINT AUTO_INCREMENT PRIMARY KEY,
		order_id          VARCHAR(64)   NOT NULL,
		product_id        VARCHAR(64)   NOT NULL,
		product_name      VARCHAR(100)  NOT NULL,
		product_code      VARCHAR(64)   NOT NULL,
		quantity          INT           NOT NULL,
		price_at_purchase DECIMAL(12,2) NOT NULL,
		item_total        DECIMAL(12,2) NOT NULL,
		INDEX idx_order_items_order (order_id)
	)`,
}

// Migrate creates the tables the adapters use when they are missing.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
