package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/trgovina/internal/model"
)

// movement is one stock change applied inside a transaction.
type movement struct {
	companyID int64
	branchID  int64
	productID int64
	kind      string
	delta     int
	reference string
	notes     string
	userID    *int64
}

// applyMovement changes a branch's stock by m.delta and records the movement.
// Stock never goes below zero.
func applyMovement(ctx context.Context, tx *sql.Tx, m movement) (int64, error) {
	var current int
	err := tx.QueryRowContext(ctx,
		`SELECT quantity FROM stock WHERE branch_id = ? AND product_id = ?`,
		m.branchID, m.productID,
	).Scan(&current)
	exists := err == nil
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("checking current quantity: %w", err)
	}

	if current+m.delta < 0 {
		var name string
		if err := tx.QueryRowContext(ctx, `SELECT name FROM products WHERE id = ?`, m.productID).Scan(&name); err != nil {
			return 0, fmt.Errorf("getting product name: %w", err)
		}
		return 0, fmt.Errorf("%w for %s: %d available, %d requested", ErrInsufficientStock, name, current, -m.delta)
	}

	// The quantity CHECK applies to the proposed insert row even when it
	// conflicts, so an existing row is updated in place.
	if exists {
		_, err = tx.ExecContext(ctx,
			`UPDATE stock SET quantity = quantity + ? WHERE branch_id = ? AND product_id = ?`,
			m.delta, m.branchID, m.productID,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO stock (branch_id, product_id, quantity) VALUES (?, ?, ?)`,
			m.branchID, m.productID, m.delta,
		)
	}
	if err != nil {
		return 0, fmt.Errorf("updating stock: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO stock_movements (company_id, branch_id, product_id, type, quantity, reference, notes, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.companyID, m.branchID, m.productID, m.kind, m.delta, nullString(m.reference), nullString(m.notes), nullID(m.userID),
	)
	if err != nil {
		return 0, fmt.Errorf("recording movement: %w", err)
	}
	return result.LastInsertId()
}

// companyOwns reports whether a live row of table with the id belongs to the company.
func companyOwns(ctx context.Context, q querier, table string, companyID, id int64) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE id = ? AND company_id = ? AND deleted_at IS NULL`, id, companyID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", table, err)
	}
	return n > 0, nil
}

// CreateMovement records a manual stock movement. In and out take the
// absolute quantity; adjust applies the signed quantity; transfer moves the
// absolute quantity from BranchID to ToBranchID and records both sides.
func CreateMovement(ctx context.Context, db *sql.DB, companyID int64, userID *int64, req model.CreateMovementRequest) ([]model.StockMovement, error) {
	qty := req.Quantity
	if qty < 0 {
		qty = -qty
	}

	base := movement{
		companyID: companyID,
		branchID:  req.BranchID,
		productID: req.ProductID,
		kind:      req.Type,
		reference: req.Reference,
		notes:     req.Notes,
		userID:    userID,
	}

	var moves []movement
	switch req.Type {
	case model.MovementIn:
		base.delta = qty
		moves = append(moves, base)
	case model.MovementOut:
		base.delta = -qty
		moves = append(moves, base)
	case model.MovementAdjust:
		base.delta = req.Quantity
		moves = append(moves, base)
	case model.MovementTransfer:
		if req.ToBranchID == req.BranchID {
			return nil, fmt.Errorf("%w: cannot transfer to the same branch", ErrInvalid)
		}
		from, to := base, base
		from.delta = -qty
		to.branchID, to.delta = req.ToBranchID, qty
		if from.reference == "" {
			from.reference = fmt.Sprintf("to branch %d", req.ToBranchID)
			to.reference = fmt.Sprintf("from branch %d", req.BranchID)
		}
		moves = append(moves, from, to)
	default:
		return nil, fmt.Errorf("%w: movement type %q", ErrInvalid, req.Type)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ok, err := companyOwns(ctx, tx, "products", companyID, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("product %d %w", req.ProductID, ErrNotFound)
	}

	var ids []int64
	for _, m := range moves {
		ok, err := companyOwns(ctx, tx, "branches", companyID, m.branchID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("branch %d %w", m.branchID, ErrNotFound)
		}

		id, err := applyMovement(ctx, tx, m)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing movement: %w", err)
	}

	out := make([]model.StockMovement, 0, len(ids))
	for _, id := range ids {
		m, err := GetMovement(ctx, db, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, nil
}

const movementSelect = `SELECT m.id, m.company_id, m.branch_id, m.product_id, m.type, m.quantity, m.reference, m.notes,
        m.created_at, m.created_by, p.name, b.name
 FROM stock_movements m
 JOIN products p ON p.id = m.product_id
 JOIN branches b ON b.id = m.branch_id`

func scanMovement(s interface{ Scan(...any) error }, m *model.StockMovement) error {
	var reference, notes sql.NullString
	err := s.Scan(&m.ID, &m.CompanyID, &m.BranchID, &m.ProductID, &m.Type, &m.Quantity, &reference, &notes,
		&m.CreatedAt, &m.CreatedBy, &m.ProductName, &m.BranchName)
	m.Reference, m.Notes = reference.String, notes.String
	return err
}

// GetMovement returns a stock movement by ID.
func GetMovement(ctx context.Context, db *sql.DB, id int64) (*model.StockMovement, error) {
	m := &model.StockMovement{}
	err := scanMovement(db.QueryRowContext(ctx, movementSelect+` WHERE m.id = ?`, id), m)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting movement: %w", err)
	}
	return m, nil
}

// ListMovements returns the company's stock movements, newest first.
func ListMovements(ctx context.Context, db *sql.DB, companyID int64, f model.MovementFilter) ([]model.StockMovement, error) {
	query := movementSelect + ` WHERE m.company_id = ?`
	args := []any{companyID}
	if f.BranchID != 0 {
		query += ` AND m.branch_id = ?`
		args = append(args, f.BranchID)
	}
	if f.ProductID != 0 {
		query += ` AND m.product_id = ?`
		args = append(args, f.ProductID)
	}
	if f.Type != "" {
		query += ` AND m.type = ?`
		args = append(args, f.Type)
	}
	query += ` ORDER BY m.id DESC LIMIT ?`
	args = append(args, limit(f.Limit, 100, 1000))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing movements: %w", err)
	}
	defer rows.Close()

	var moves []model.StockMovement
	for rows.Next() {
		var m model.StockMovement
		if err := scanMovement(rows, &m); err != nil {
			return nil, fmt.Errorf("scanning movement: %w", err)
		}
		moves = append(moves, m)
	}
	return moves, rows.Err()
}

const stockSelect = `SELECT b.id, p.id, COALESCE(s.quantity, 0), b.name, p.name, p.sku, p.min_stock
 FROM products p
 JOIN branches b ON b.company_id = p.company_id AND b.deleted_at IS NULL
 LEFT JOIN stock s ON s.branch_id = b.id AND s.product_id = p.id
 WHERE p.company_id = ? AND p.deleted_at IS NULL`

func listStock(ctx context.Context, db *sql.DB, query string, args ...any) ([]model.Stock, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing stock: %w", err)
	}
	defer rows.Close()

	var stock []model.Stock
	for rows.Next() {
		var s model.Stock
		if err := rows.Scan(&s.BranchID, &s.ProductID, &s.Quantity, &s.BranchName, &s.ProductName, &s.SKU, &s.MinStock); err != nil {
			return nil, fmt.Errorf("scanning stock: %w", err)
		}
		stock = append(stock, s)
	}
	return stock, rows.Err()
}

// ListStock returns the stock rows held by the company, optionally for one branch.
func ListStock(ctx context.Context, db *sql.DB, companyID, branchID int64) ([]model.Stock, error) {
	query := stockSelect + ` AND s.quantity IS NOT NULL`
	args := []any{companyID}
	if branchID != 0 {
		query += ` AND b.id = ?`
		args = append(args, branchID)
	}
	query += ` ORDER BY b.name, p.name`
	return listStock(ctx, db, query, args...)
}

// LowStock returns active products at or below their minimum stock. A
// product never stocked at a branch counts as zero there when it has a minimum.
func LowStock(ctx context.Context, db *sql.DB, companyID, branchID int64) ([]model.Stock, error) {
	query := stockSelect + ` AND p.active = 1
	   AND COALESCE(s.quantity, 0) <= p.min_stock
	   AND (s.quantity IS NOT NULL OR p.min_stock > 0)`
	args := []any{companyID}
	if branchID != 0 {
		query += ` AND b.id = ?`
		args = append(args, branchID)
	}
	query += ` ORDER BY COALESCE(s.quantity, 0), p.name`
	return listStock(ctx, db, query, args...)
}
