package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Usernames are global (login has no tenant field) but reusable after
	// a soft delete.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
	     ON users(username) WHERE deleted_at IS NULL`,

	// SKU and barcode are unique per company among live products.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_products_sku_active
	     ON products(company_id, sku) WHERE deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_products_barcode_active
	     ON products(company_id, barcode)
	     WHERE deleted_at IS NULL AND barcode IS NOT NULL AND barcode <> ''`,

	// One open shift per cashier.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_shifts_open_user
	     ON shifts(user_id) WHERE status = 'open'`,

	`CREATE INDEX IF NOT EXISTS idx_sales_company_created ON sales(company_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_movements_company_created ON stock_movements(company_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_company_unread ON alerts(company_id, read_at)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_company_created ON activity_log(company_id, created_at)`,
}

// Migrate creates the schema and runs the migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
