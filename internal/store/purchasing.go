package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/trgovina/internal/model"
)

const supplierColumns = `id, company_id, name, contact_name, email, phone, address, tax_id, created_at, deleted_at`

func scanSupplier(s interface{ Scan(...any) error }, sup *model.Supplier) error {
	var contact, email, phone, address, taxID sql.NullString
	err := s.Scan(&sup.ID, &sup.CompanyID, &sup.Name, &contact, &email, &phone, &address, &taxID,
		&sup.CreatedAt, &sup.DeletedAt)
	sup.ContactName, sup.Email, sup.Phone = contact.String, email.String, phone.String
	sup.Address, sup.TaxID = address.String, taxID.String
	return err
}

// CreateSupplier creates a supplier.
func CreateSupplier(ctx context.Context, db *sql.DB, companyID int64, req model.SupplierRequest) (*model.Supplier, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO suppliers (company_id, name, contact_name, email, phone, address, tax_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		companyID, req.Name, nullString(req.ContactName), nullString(req.Email), nullString(req.Phone),
		nullString(req.Address), nullString(req.TaxID),
	)
	if err != nil {
		return nil, fmt.Errorf("creating supplier: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting supplier id: %w", err)
	}
	return GetSupplier(ctx, db, companyID, id)
}

// GetSupplier returns a live supplier of the company.
func GetSupplier(ctx context.Context, db *sql.DB, companyID, id int64) (*model.Supplier, error) {
	sup := &model.Supplier{}
	err := scanSupplier(db.QueryRowContext(ctx,
		`SELECT `+supplierColumns+` FROM suppliers WHERE id = ? AND company_id = ? AND deleted_at IS NULL`,
		id, companyID,
	), sup)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting supplier: %w", err)
	}
	return sup, nil
}

// ListSuppliers returns the company's live suppliers.
func ListSuppliers(ctx context.Context, db *sql.DB, companyID int64) ([]model.Supplier, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+supplierColumns+` FROM suppliers WHERE company_id = ? AND deleted_at IS NULL ORDER BY name`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []model.Supplier
	for rows.Next() {
		var sup model.Supplier
		if err := scanSupplier(rows, &sup); err != nil {
			return nil, fmt.Errorf("scanning supplier: %w", err)
		}
		suppliers = append(suppliers, sup)
	}
	return suppliers, rows.Err()
}

// UpdateSupplier updates a supplier.
func UpdateSupplier(ctx context.Context, db *sql.DB, companyID, id int64, req model.SupplierRequest) error {
	_, err := db.ExecContext(ctx,
		`UPDATE suppliers SET name = ?, contact_name = ?, email = ?, phone = ?, address = ?, tax_id = ?
		 WHERE id = ? AND company_id = ? AND deleted_at IS NULL`,
		req.Name, nullString(req.ContactName), nullString(req.Email), nullString(req.Phone),
		nullString(req.Address), nullString(req.TaxID), id, companyID,
	)
	if err != nil {
		return fmt.Errorf("updating supplier: %w", err)
	}
	return nil
}

// DeleteSupplier soft-deletes a supplier. Suppliers with open orders cannot be deleted.
func DeleteSupplier(ctx context.Context, db *sql.DB, companyID, id int64) error {
	var open int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM purchase_orders WHERE supplier_id = ? AND status IN ('draft', 'ordered')`, id,
	).Scan(&open)
	if err != nil {
		return fmt.Errorf("checking supplier orders: %w", err)
	}
	if open > 0 {
		return fmt.Errorf("supplier %w: it has %d open purchase orders", ErrInvalidState, open)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE suppliers SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND company_id = ? AND deleted_at IS NULL`,
		id, companyID,
	)
	if err != nil {
		return fmt.Errorf("deleting supplier: %w", err)
	}
	return nil
}

// CreatePurchaseOrder creates a purchase order. The status defaults to draft.
func CreatePurchaseOrder(ctx context.Context, db *sql.DB, companyID int64, userID *int64, req model.CreatePurchaseOrderRequest) (*model.PurchaseOrder, error) {
	status := req.Status
	if status == "" {
		status = model.OrderDraft
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ref := range []struct {
		table, name string
		id          int64
	}{
		{"suppliers", "supplier", req.SupplierID},
		{"branches", "branch", req.BranchID},
	} {
		ok, err := companyOwns(ctx, tx, ref.table, companyID, ref.id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%s %d %w", ref.name, ref.id, ErrNotFound)
		}
	}

	total := decimal.Zero
	for _, it := range req.Items {
		if it.UnitCost.IsNegative() {
			return nil, fmt.Errorf("%w: unit cost cannot be negative", ErrInvalid)
		}
		ok, err := companyOwns(ctx, tx, "products", companyID, it.ProductID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("product %d %w", it.ProductID, ErrNotFound)
		}
		total = total.Add(it.UnitCost.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO purchase_orders (company_id, supplier_id, branch_id, status, total, notes, expected_at, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		companyID, req.SupplierID, req.BranchID, status, total.Round(2), nullString(req.Notes),
		nullTime(req.ExpectedAt), nullID(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("creating purchase order: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting purchase order id: %w", err)
	}

	for _, it := range req.Items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO purchase_order_items (order_id, product_id, quantity, unit_cost) VALUES (?, ?, ?, ?)`,
			id, it.ProductID, it.Quantity, it.UnitCost,
		); err != nil {
			return nil, fmt.Errorf("creating purchase order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing purchase order: %w", err)
	}
	return GetPurchaseOrder(ctx, db, companyID, id)
}

const orderSelect = `SELECT o.id, o.company_id, o.supplier_id, o.branch_id, o.status, o.total, o.notes,
        o.expected_at, o.received_at, o.created_by, o.created_at, s.name, b.name
 FROM purchase_orders o
 JOIN suppliers s ON s.id = o.supplier_id
 JOIN branches b ON b.id = o.branch_id`

func scanOrder(s interface{ Scan(...any) error }, o *model.PurchaseOrder) error {
	var notes sql.NullString
	err := s.Scan(&o.ID, &o.CompanyID, &o.SupplierID, &o.BranchID, &o.Status, &o.Total, &notes,
		&o.ExpectedAt, &o.ReceivedAt, &o.CreatedBy, &o.CreatedAt, &o.SupplierName, &o.BranchName)
	o.Notes = notes.String
	return err
}

// GetPurchaseOrder returns a purchase order of the company with its items.
func GetPurchaseOrder(ctx context.Context, db *sql.DB, companyID, id int64) (*model.PurchaseOrder, error) {
	o := &model.PurchaseOrder{}
	err := scanOrder(db.QueryRowContext(ctx, orderSelect+` WHERE o.id = ? AND o.company_id = ?`, id, companyID), o)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting purchase order: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT i.id, i.order_id, i.product_id, p.name, i.quantity, i.unit_cost
		 FROM purchase_order_items i JOIN products p ON p.id = i.product_id
		 WHERE i.order_id = ? ORDER BY i.id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting purchase order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it model.PurchaseOrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitCost); err != nil {
			return nil, fmt.Errorf("scanning purchase order item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

// ListPurchaseOrders returns the company's purchase orders, newest first, without items.
func ListPurchaseOrders(ctx context.Context, db *sql.DB, companyID int64, status string) ([]model.PurchaseOrder, error) {
	query := orderSelect + ` WHERE o.company_id = ?`
	args := []any{companyID}
	if status != "" {
		query += ` AND o.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY o.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing purchase orders: %w", err)
	}
	defer rows.Close()

	var orders []model.PurchaseOrder
	for rows.Next() {
		var o model.PurchaseOrder
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("scanning purchase order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ReceivePurchaseOrder marks a draft or ordered purchase order received and
// adds its items to the branch's stock.
func ReceivePurchaseOrder(ctx context.Context, db *sql.DB, companyID int64, userID *int64, id int64) (*model.PurchaseOrder, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	var branchID int64
	err = tx.QueryRowContext(ctx,
		`SELECT status, branch_id FROM purchase_orders WHERE id = ? AND company_id = ?`, id, companyID,
	).Scan(&status, &branchID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("purchase order %d %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting purchase order: %w", err)
	}
	if status != model.OrderDraft && status != model.OrderOrdered {
		return nil, fmt.Errorf("purchase order %w: it is %s", ErrInvalidState, status)
	}

	type line struct {
		productID int64
		quantity  int
	}
	rows, err := tx.QueryContext(ctx, `SELECT product_id, quantity FROM purchase_order_items WHERE order_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("getting purchase order items: %w", err)
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.productID, &l.quantity); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning purchase order item: %w", err)
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading purchase order items: %w", err)
	}

	reference := fmt.Sprintf("PO-%d", id)
	for _, l := range lines {
		if _, err := applyMovement(ctx, tx, movement{
			companyID: companyID,
			branchID:  branchID,
			productID: l.productID,
			kind:      model.MovementPurchase,
			delta:     l.quantity,
			reference: reference,
			userID:    userID,
		}); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE purchase_orders SET status = 'received', received_at = ? WHERE id = ?`, sqlTime(time.Now()), id,
	); err != nil {
		return nil, fmt.Errorf("receiving purchase order: %w", err)
	}

	if err := logActivity(ctx, tx, model.ActivityLog{
		CompanyID: companyID,
		UserID:    userID,
		Action:    ActionReceived,
		Entity:    "purchase_order",
		EntityID:  &id,
		Message:   fmt.Sprintf("%s received (%d lines)", reference, len(lines)),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing receipt: %w", err)
	}
	return GetPurchaseOrder(ctx, db, companyID, id)
}

// CancelPurchaseOrder cancels a draft or ordered purchase order.
func CancelPurchaseOrder(ctx context.Context, db *sql.DB, companyID, id int64) (*model.PurchaseOrder, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE purchase_orders SET status = 'cancelled'
		 WHERE id = ? AND company_id = ? AND status IN ('draft', 'ordered')`, id, companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("cancelling purchase order: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		o, err := GetPurchaseOrder(ctx, db, companyID, id)
		if err != nil {
			return nil, err
		}
		if o == nil {
			return nil, fmt.Errorf("purchase order %d %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("purchase order %w: it is %s", ErrInvalidState, o.Status)
	}
	return GetPurchaseOrder(ctx, db, companyID, id)
}

// OverdueOrders returns ordered purchase orders whose expected date has passed.
func OverdueOrders(ctx context.Context, db *sql.DB, now time.Time) ([]model.PurchaseOrder, error) {
	rows, err := db.QueryContext(ctx,
		orderSelect+` WHERE o.status = 'ordered' AND o.expected_at IS NOT NULL AND o.expected_at < ?
		 ORDER BY o.expected_at`, sqlTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("listing overdue orders: %w", err)
	}
	defer rows.Close()

	var orders []model.PurchaseOrder
	for rows.Next() {
		var o model.PurchaseOrder
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("scanning purchase order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
