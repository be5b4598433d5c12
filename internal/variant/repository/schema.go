package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// schema is kept to the subset of SQL that postgres and sqlite3 share.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id          VARCHAR(36) PRIMARY KEY,
		merchant_id VARCHAR(36) NOT NULL,
		code        VARCHAR(50),
		name        VARCHAR(255) NOT NULL,
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		created_at  TIMESTAMP NOT NULL,
		updated_at  TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS attribute_definitions (
		id                  VARCHAR(36) PRIMARY KEY,
		product_id          VARCHAR(36) NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		name                VARCHAR(100) NOT NULL,
		sort_order          INTEGER NOT NULL DEFAULT 0,
		is_variant_defining BOOLEAN NOT NULL DEFAULT FALSE,
		created_at          TIMESTAMP NOT NULL,
		updated_at          TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS product_variants (
		id          VARCHAR(36) PRIMARY KEY,
		product_id  VARCHAR(36) NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		name        VARCHAR(255) NOT NULL,
		code        VARCHAR(50) NOT NULL,
		is_default  BOOLEAN NOT NULL DEFAULT FALSE,
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		is_verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  TIMESTAMP NOT NULL,
		updated_at  TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_product_variants_code ON product_variants (product_id, code)`,
	`CREATE TABLE IF NOT EXISTS variant_attribute_values (
		variant_id              VARCHAR(36) NOT NULL REFERENCES product_variants(id) ON DELETE CASCADE,
		attribute_definition_id VARCHAR(36) NOT NULL REFERENCES attribute_definitions(id) ON DELETE CASCADE,
		value                   VARCHAR(255) NOT NULL DEFAULT '',
		PRIMARY KEY (variant_id, attribute_definition_id)
	)`,
}

// ApplySchema creates the catalog tables if they are missing.
func ApplySchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
