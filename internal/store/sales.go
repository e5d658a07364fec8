package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erazemk/trgovina/internal/model"
)

// newReceipt returns a receipt number such as 20240105-1A2B3C4D5E6F.
func newReceipt(now time.Time) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return now.UTC().Format("20060102") + "-" + id[:12]
}

// CreateSale records a sale at a branch. The server prices every line,
// applies the discount and the branch tax rate, checks the payment, takes
// the stock and links the cashier's open shift. Cash sales require an open
// shift at the branch.
func CreateSale(ctx context.Context, db *sql.DB, companyID, userID int64, req model.CreateSaleRequest) (*model.Sale, error) {
	if req.Discount.IsNegative() {
		return nil, fmt.Errorf("%w: discount cannot be negative", ErrInvalid)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var taxRate decimal.Decimal
	err = tx.QueryRowContext(ctx,
		`SELECT tax_rate FROM branches WHERE id = ? AND company_id = ? AND deleted_at IS NULL`,
		req.BranchID, companyID,
	).Scan(&taxRate)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("branch %d %w", req.BranchID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting branch: %w", err)
	}

	// Link the cashier's open shift at this branch.
	var shiftID *int64
	var sid int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM shifts WHERE user_id = ? AND branch_id = ? AND status = 'open'`, userID, req.BranchID,
	).Scan(&sid)
	switch {
	case err == sql.ErrNoRows:
		if req.PaymentMethod == model.PaymentCash {
			return nil, fmt.Errorf("%w: open a shift before taking cash payments", ErrNoOpenShift)
		}
	case err != nil:
		return nil, fmt.Errorf("getting open shift: %w", err)
	default:
		shiftID = &sid
	}

	// Price the lines.
	items := make([]model.SaleItem, 0, len(req.Items))
	subtotal := decimal.Zero
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalid)
		}

		var name string
		var price decimal.Decimal
		var active bool
		err := tx.QueryRowContext(ctx,
			`SELECT name, price, active FROM products WHERE id = ? AND company_id = ? AND deleted_at IS NULL`,
			line.ProductID, companyID,
		).Scan(&name, &price, &active)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("product %d %w", line.ProductID, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("getting product: %w", err)
		}
		if !active {
			return nil, fmt.Errorf("%w: %s is not for sale", ErrInvalid, name)
		}

		total := price.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		subtotal = subtotal.Add(total)
		items = append(items, model.SaleItem{
			ProductID:   line.ProductID,
			ProductName: name,
			Quantity:    line.Quantity,
			UnitPrice:   price,
			LineTotal:   total,
		})
	}

	net, tax, total := model.ComputeTotals(subtotal, req.Discount, taxRate)
	discount := subtotal.Sub(net)

	paid, change := total, decimal.Zero
	if req.PaymentMethod == model.PaymentCash {
		if req.Paid.LessThan(total) {
			return nil, fmt.Errorf("%w: %s paid, %s due", ErrInsufficientPayment, req.Paid.StringFixed(2), total.StringFixed(2))
		}
		paid, change = req.Paid, req.Paid.Sub(total)
	}

	now := time.Now()
	receipt := newReceipt(now)
	result, err := tx.ExecContext(ctx,
		`INSERT INTO sales (company_id, branch_id, shift_id, user_id, receipt, payment_method,
		                    subtotal, discount, tax, total, paid, change_due, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		companyID, req.BranchID, shiftID, userID, receipt, req.PaymentMethod,
		subtotal, discount, tax, total, paid, change, sqlTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sale: %w", err)
	}
	saleID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting sale id: %w", err)
	}

	for _, it := range items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sale_items (sale_id, product_id, product_name, quantity, unit_price, line_total)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			saleID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, it.LineTotal,
		); err != nil {
			return nil, fmt.Errorf("creating sale item: %w", err)
		}

		if _, err := applyMovement(ctx, tx, movement{
			companyID: companyID,
			branchID:  req.BranchID,
			productID: it.ProductID,
			kind:      model.MovementSale,
			delta:     -it.Quantity,
			reference: receipt,
			userID:    &userID,
		}); err != nil {
			return nil, err
		}
	}

	if err := logActivity(ctx, tx, model.ActivityLog{
		CompanyID: companyID,
		UserID:    &userID,
		Action:    ActionCreated,
		Entity:    "sale",
		EntityID:  &saleID,
		Message:   fmt.Sprintf("Sale %s for %s", receipt, total.StringFixed(2)),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing sale: %w", err)
	}
	return GetSale(ctx, db, companyID, saleID)
}

const saleSelect = `SELECT s.id, s.company_id, s.branch_id, s.shift_id, s.user_id, s.receipt, s.payment_method,
        s.subtotal, s.discount, s.tax, s.total, s.paid, s.change_due, s.status, s.created_at, s.voided_at,
        b.name, u.username
 FROM sales s
 JOIN branches b ON b.id = s.branch_id
 JOIN users u ON u.id = s.user_id`

func scanSale(s interface{ Scan(...any) error }, sale *model.Sale) error {
	return s.Scan(&sale.ID, &sale.CompanyID, &sale.BranchID, &sale.ShiftID, &sale.UserID, &sale.Receipt,
		&sale.PaymentMethod, &sale.Subtotal, &sale.Discount, &sale.Tax, &sale.Total, &sale.Paid, &sale.Change,
		&sale.Status, &sale.CreatedAt, &sale.VoidedAt, &sale.BranchName, &sale.Cashier)
}

// GetSale returns a sale of the company with its items.
func GetSale(ctx context.Context, db *sql.DB, companyID, id int64) (*model.Sale, error) {
	sale := &model.Sale{}
	err := scanSale(db.QueryRowContext(ctx, saleSelect+` WHERE s.id = ? AND s.company_id = ?`, id, companyID), sale)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting sale: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, sale_id, product_id, product_name, quantity, unit_price, line_total
		 FROM sale_items WHERE sale_id = ? ORDER BY id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting sale items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it model.SaleItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return nil, fmt.Errorf("scanning sale item: %w", err)
		}
		sale.Items = append(sale.Items, it)
	}
	return sale, rows.Err()
}

// ListSales returns the company's sales matching the filter, newest first, without items.
func ListSales(ctx context.Context, db *sql.DB, companyID int64, f model.SaleFilter) ([]model.Sale, error) {
	query, args := saleQuery(companyID, f)
	query += ` ORDER BY s.id DESC LIMIT ?`
	args = append(args, limit(f.Limit, 100, 1000))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sales: %w", err)
	}
	defer rows.Close()

	var sales []model.Sale
	for rows.Next() {
		var sale model.Sale
		if err := scanSale(rows, &sale); err != nil {
			return nil, fmt.Errorf("scanning sale: %w", err)
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

func saleQuery(companyID int64, f model.SaleFilter) (string, []any) {
	query := saleSelect + ` WHERE s.company_id = ?`
	args := []any{companyID}
	if f.BranchID != 0 {
		query += ` AND s.branch_id = ?`
		args = append(args, f.BranchID)
	}
	if f.UserID != 0 {
		query += ` AND s.user_id = ?`
		args = append(args, f.UserID)
	}
	if !f.From.IsZero() {
		query += ` AND s.created_at >= ?`
		args = append(args, sqlTime(f.From))
	}
	if !f.To.IsZero() {
		query += ` AND s.created_at < ?`
		args = append(args, sqlTime(f.To))
	}
	if f.Status != "" {
		query += ` AND s.status = ?`
		args = append(args, f.Status)
	}
	return query, args
}

// VoidSale voids a completed sale and returns its items to stock.
func VoidSale(ctx context.Context, db *sql.DB, companyID, userID, id int64) (*model.Sale, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var status, receipt string
	var branchID int64
	err = tx.QueryRowContext(ctx,
		`SELECT status, receipt, branch_id FROM sales WHERE id = ? AND company_id = ?`, id, companyID,
	).Scan(&status, &receipt, &branchID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sale %d %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting sale: %w", err)
	}
	if status != model.SaleCompleted {
		return nil, fmt.Errorf("sale %w: it is already voided", ErrInvalidState)
	}

	type line struct {
		productID int64
		quantity  int
	}
	rows, err := tx.QueryContext(ctx, `SELECT product_id, quantity FROM sale_items WHERE sale_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("getting sale items: %w", err)
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.productID, &l.quantity); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning sale item: %w", err)
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading sale items: %w", err)
	}

	// Return the items to stock.
	for _, l := range lines {
		if _, err := applyMovement(ctx, tx, movement{
			companyID: companyID,
			branchID:  branchID,
			productID: l.productID,
			kind:      model.MovementVoid,
			delta:     l.quantity,
			reference: receipt,
			userID:    &userID,
		}); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sales SET status = 'voided', voided_at = ? WHERE id = ?`, sqlTime(time.Now()), id,
	); err != nil {
		return nil, fmt.Errorf("voiding sale: %w", err)
	}

	if err := logActivity(ctx, tx, model.ActivityLog{
		CompanyID: companyID,
		UserID:    &userID,
		Action:    ActionVoided,
		Entity:    "sale",
		EntityID:  &id,
		Message:   fmt.Sprintf("Sale %s voided", receipt),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing void: %w", err)
	}
	return GetSale(ctx, db, companyID, id)
}
