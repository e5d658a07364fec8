package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. Money columns are decimal strings.
const schema = `
CREATE TABLE IF NOT EXISTS companies (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    tax_id     TEXT,
    email      TEXT,
    phone      TEXT,
    status     TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'suspended')),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME
);

CREATE TABLE IF NOT EXISTS subscriptions (
    id            INTEGER PRIMARY KEY,
    company_id    INTEGER NOT NULL REFERENCES companies(id),
    plan          TEXT NOT NULL CHECK (plan IN ('basic', 'pro', 'enterprise')),
    status        TEXT NOT NULL CHECK (status IN ('trial', 'active', 'past_due', 'cancelled')),
    max_branches  INTEGER NOT NULL DEFAULT 0,
    max_users     INTEGER NOT NULL DEFAULT 0,
    max_products  INTEGER NOT NULL DEFAULT 0,
    price_monthly TEXT NOT NULL DEFAULT '0',
    starts_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    ends_at       DATETIME,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS branches (
    id              INTEGER PRIMARY KEY,
    company_id      INTEGER NOT NULL REFERENCES companies(id),
    name            TEXT NOT NULL,
    address         TEXT,
    phone           TEXT,
    tax_rate        TEXT NOT NULL DEFAULT '0',
    currency        TEXT NOT NULL DEFAULT 'EUR',
    primary_color   TEXT,
    secondary_color TEXT,
    logo            BLOB,
    logo_mime       TEXT,
    favicon         BLOB,
    favicon_mime    TEXT,
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at      DATETIME
);

CREATE TABLE IF NOT EXISTS roles (
    id          INTEGER PRIMARY KEY,
    company_id  INTEGER NOT NULL REFERENCES companies(id),
    name        TEXT NOT NULL,
    permissions TEXT NOT NULL DEFAULT '',
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (company_id, name)
);

CREATE TABLE IF NOT EXISTS users (
    id                INTEGER PRIMARY KEY,
    company_id        INTEGER REFERENCES companies(id),
    branch_id         INTEGER REFERENCES branches(id),
    role_id           INTEGER REFERENCES roles(id) ON DELETE SET NULL,
    username          TEXT NOT NULL,
    full_name         TEXT,
    email             TEXT,
    password_hash     TEXT NOT NULL,
    is_admin          INTEGER NOT NULL DEFAULT 0,
    is_platform_admin INTEGER NOT NULL DEFAULT 0,
    created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at        DATETIME
);

CREATE TABLE IF NOT EXISTS categories (
    id          INTEGER PRIMARY KEY,
    company_id  INTEGER NOT NULL REFERENCES companies(id),
    name        TEXT NOT NULL,
    description TEXT,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (company_id, name)
);

CREATE TABLE IF NOT EXISTS products (
    id          INTEGER PRIMARY KEY,
    company_id  INTEGER NOT NULL REFERENCES companies(id),
    category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL,
    sku         TEXT NOT NULL,
    barcode     TEXT,
    name        TEXT NOT NULL,
    description TEXT,
    price       TEXT NOT NULL DEFAULT '0',
    cost        TEXT NOT NULL DEFAULT '0',
    min_stock   INTEGER NOT NULL DEFAULT 0 CHECK (min_stock >= 0),
    active      INTEGER NOT NULL DEFAULT 1,
    image       BLOB,
    image_mime  TEXT,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at  DATETIME
);

CREATE TABLE IF NOT EXISTS stock (
    branch_id  INTEGER NOT NULL REFERENCES branches(id),
    product_id INTEGER NOT NULL REFERENCES products(id),
    quantity   INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
    PRIMARY KEY (branch_id, product_id)
);

CREATE TABLE IF NOT EXISTS stock_movements (
    id         INTEGER PRIMARY KEY,
    company_id INTEGER NOT NULL REFERENCES companies(id),
    branch_id  INTEGER NOT NULL REFERENCES branches(id),
    product_id INTEGER NOT NULL REFERENCES products(id),
    type       TEXT NOT NULL CHECK (type IN ('in', 'out', 'adjust', 'transfer', 'sale', 'purchase', 'void')),
    quantity   INTEGER NOT NULL,
    reference  TEXT,
    notes      TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    created_by INTEGER REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS shifts (
    id            INTEGER PRIMARY KEY,
    company_id    INTEGER NOT NULL REFERENCES companies(id),
    branch_id     INTEGER NOT NULL REFERENCES branches(id),
    user_id       INTEGER NOT NULL REFERENCES users(id),
    status        TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'closed')),
    opening_cash  TEXT NOT NULL DEFAULT '0',
    closing_cash  TEXT,
    expected_cash TEXT,
    difference    TEXT,
    notes         TEXT,
    opened_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    closed_at     DATETIME
);

CREATE TABLE IF NOT EXISTS sales (
    id             INTEGER PRIMARY KEY,
    company_id     INTEGER NOT NULL REFERENCES companies(id),
    branch_id      INTEGER NOT NULL REFERENCES branches(id),
    shift_id       INTEGER REFERENCES shifts(id),
    user_id        INTEGER NOT NULL REFERENCES users(id),
    receipt        TEXT NOT NULL UNIQUE,
    payment_method TEXT NOT NULL CHECK (payment_method IN ('cash', 'card')),
    subtotal       TEXT NOT NULL,
    discount       TEXT NOT NULL DEFAULT '0',
    tax            TEXT NOT NULL DEFAULT '0',
    total          TEXT NOT NULL,
    paid           TEXT NOT NULL DEFAULT '0',
    change_due     TEXT NOT NULL DEFAULT '0',
    status         TEXT NOT NULL DEFAULT 'completed' CHECK (status IN ('completed', 'voided')),
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    voided_at      DATETIME
);

CREATE TABLE IF NOT EXISTS sale_items (
    id           INTEGER PRIMARY KEY,
    sale_id      INTEGER NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
    product_id   INTEGER NOT NULL REFERENCES products(id),
    product_name TEXT NOT NULL,
    quantity     INTEGER NOT NULL CHECK (quantity > 0),
    unit_price   TEXT NOT NULL,
    line_total   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS suppliers (
    id           INTEGER PRIMARY KEY,
    company_id   INTEGER NOT NULL REFERENCES companies(id),
    name         TEXT NOT NULL,
    contact_name TEXT,
    email        TEXT,
    phone        TEXT,
    address      TEXT,
    tax_id       TEXT,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at   DATETIME
);

CREATE TABLE IF NOT EXISTS purchase_orders (
    id          INTEGER PRIMARY KEY,
    company_id  INTEGER NOT NULL REFERENCES companies(id),
    supplier_id INTEGER NOT NULL REFERENCES suppliers(id),
    branch_id   INTEGER NOT NULL REFERENCES branches(id),
    status      TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'ordered', 'received', 'cancelled')),
    total       TEXT NOT NULL DEFAULT '0',
    notes       TEXT,
    expected_at DATETIME,
    received_at DATETIME,
    created_by  INTEGER REFERENCES users(id),
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS purchase_order_items (
    id         INTEGER PRIMARY KEY,
    order_id   INTEGER NOT NULL REFERENCES purchase_orders(id) ON DELETE CASCADE,
    product_id INTEGER NOT NULL REFERENCES products(id),
    quantity   INTEGER NOT NULL CHECK (quantity > 0),
    unit_cost  TEXT NOT NULL DEFAULT '0'
);

CREATE TABLE IF NOT EXISTS alerts (
    id         INTEGER PRIMARY KEY,
    company_id INTEGER NOT NULL REFERENCES companies(id),
    branch_id  INTEGER REFERENCES branches(id),
    type       TEXT NOT NULL CHECK (type IN ('low_stock', 'out_of_stock', 'subscription_expiring', 'po_overdue')),
    severity   TEXT NOT NULL DEFAULT 'info' CHECK (severity IN ('info', 'warning', 'critical')),
    message    TEXT NOT NULL,
    reference  TEXT,
    read_at    DATETIME,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS activity_log (
    id         INTEGER PRIMARY KEY,
    company_id INTEGER NOT NULL REFERENCES companies(id),
    user_id    INTEGER REFERENCES users(id),
    action     TEXT NOT NULL,
    entity     TEXT NOT NULL,
    entity_id  INTEGER,
    message    TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS user_reports (
    id         INTEGER PRIMARY KEY,
    company_id INTEGER REFERENCES companies(id),
    user_id    INTEGER NOT NULL REFERENCES users(id),
    kind       TEXT NOT NULL CHECK (kind IN ('bug', 'suggestion', 'other')),
    subject    TEXT NOT NULL,
    body       TEXT NOT NULL,
    status     TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'reviewed', 'resolved')),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables if they don't exist.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
