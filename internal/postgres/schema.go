package postgres

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL CHECK (role IN ('buyer', 'seller', 'admin')),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		image_url TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_name ON products(name)`,

	`CREATE TABLE IF NOT EXISTS seller_products (
		id BIGSERIAL PRIMARY KEY,
		seller_id BIGINT NOT NULL REFERENCES users(id),
		product_id BIGINT NOT NULL REFERENCES products(id),
		price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
		quantity INTEGER NOT NULL CHECK (quantity >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT seller_products_seller_product_key UNIQUE (seller_id, product_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_seller_products_product_id ON seller_products(product_id)`,

	`CREATE TABLE IF NOT EXISTS orders (
		id BIGSERIAL PRIMARY KEY,
		buyer_id BIGINT NOT NULL REFERENCES users(id),
		seller_id BIGINT NOT NULL REFERENCES users(id),
		total_price_cents BIGINT NOT NULL CHECK (total_price_cents >= 0),
		status TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING', 'CONFIRMED', 'CANCELED')),
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`ALTER TABLE orders ADD COLUMN IF NOT EXISTS version BIGINT NOT NULL DEFAULT 1`,
	`CREATE INDEX IF NOT EXISTS idx_orders_buyer_id ON orders(buyer_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_seller_id ON orders(seller_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS order_items (
		id BIGSERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		seller_product_id BIGINT NOT NULL REFERENCES seller_products(id),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		price_at_purchase_cents BIGINT NOT NULL CHECK (price_at_purchase_cents >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id)`,
}

// Migrate creates the tables if they do not exist yet. It is idempotent and
// does not version the schema.
func Migrate(ctx context.Context, q Querier) error {
	for i, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}
