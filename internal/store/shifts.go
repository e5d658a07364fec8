package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/trgovina/internal/model"
)

const shiftSelect = `SELECT sh.id, sh.company_id, sh.branch_id, sh.user_id, sh.status, sh.opening_cash,
        sh.closing_cash, sh.expected_cash, sh.difference, sh.notes, sh.opened_at, sh.closed_at,
        u.username, b.name
 FROM shifts sh
 JOIN users u ON u.id = sh.user_id
 JOIN branches b ON b.id = sh.branch_id`

func scanShift(s interface{ Scan(...any) error }, sh *model.Shift) error {
	var closing, expected, difference decimal.NullDecimal
	var notes sql.NullString
	err := s.Scan(&sh.ID, &sh.CompanyID, &sh.BranchID, &sh.UserID, &sh.Status, &sh.OpeningCash,
		&closing, &expected, &difference, &notes, &sh.OpenedAt, &sh.ClosedAt,
		&sh.Username, &sh.BranchName)
	sh.ClosingCash = nullDecimal(closing)
	sh.ExpectedCash = nullDecimal(expected)
	sh.Difference = nullDecimal(difference)
	sh.Notes = notes.String
	return err
}

func nullDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	return &d.Decimal
}

// OpenShift opens a shift for the user at a branch. A user holds at most one open shift.
func OpenShift(ctx context.Context, db *sql.DB, companyID, userID int64, req model.OpenShiftRequest) (*model.Shift, error) {
	ok, err := companyOwns(ctx, db, "branches", companyID, req.BranchID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("branch %d %w", req.BranchID, ErrNotFound)
	}
	if req.OpeningCash.IsNegative() {
		return nil, fmt.Errorf("%w: opening cash cannot be negative", ErrInvalid)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO shifts (company_id, branch_id, user_id, opening_cash) VALUES (?, ?, ?, ?)`,
		companyID, req.BranchID, userID, req.OpeningCash,
	)
	if isUniqueViolation(err) {
		return nil, ErrShiftAlreadyOpen
	}
	if err != nil {
		return nil, fmt.Errorf("opening shift: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting shift id: %w", err)
	}
	return GetShift(ctx, db, companyID, id)
}

// GetShift returns a shift of the company.
func GetShift(ctx context.Context, db *sql.DB, companyID, id int64) (*model.Shift, error) {
	sh := &model.Shift{}
	err := scanShift(db.QueryRowContext(ctx, shiftSelect+` WHERE sh.id = ? AND sh.company_id = ?`, id, companyID), sh)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting shift: %w", err)
	}
	return sh, nil
}

// CurrentShift returns the user's open shift, or nil.
func CurrentShift(ctx context.Context, db *sql.DB, userID int64) (*model.Shift, error) {
	sh := &model.Shift{}
	err := scanShift(db.QueryRowContext(ctx, shiftSelect+` WHERE sh.user_id = ? AND sh.status = 'open'`, userID), sh)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting current shift: %w", err)
	}
	return sh, nil
}

// ListShifts returns the company's shifts, newest first.
func ListShifts(ctx context.Context, db *sql.DB, companyID, branchID, userID int64, n int) ([]model.Shift, error) {
	query := shiftSelect + ` WHERE sh.company_id = ?`
	args := []any{companyID}
	if branchID != 0 {
		query += ` AND sh.branch_id = ?`
		args = append(args, branchID)
	}
	if userID != 0 {
		query += ` AND sh.user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY sh.id DESC LIMIT ?`
	args = append(args, limit(n, 50, 500))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing shifts: %w", err)
	}
	defer rows.Close()

	var shifts []model.Shift
	for rows.Next() {
		var sh model.Shift
		if err := scanShift(rows, &sh); err != nil {
			return nil, fmt.Errorf("scanning shift: %w", err)
		}
		shifts = append(shifts, sh)
	}
	return shifts, rows.Err()
}

// CloseShift closes an open shift. The expected cash is the opening cash plus
// the totals of the shift's completed cash sales.
func CloseShift(ctx context.Context, db *sql.DB, companyID, id int64, req model.CloseShiftRequest) (*model.Shift, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	var opening decimal.Decimal
	err = tx.QueryRowContext(ctx,
		`SELECT status, opening_cash FROM shifts WHERE id = ? AND company_id = ?`, id, companyID,
	).Scan(&status, &opening)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("shift %d %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting shift: %w", err)
	}
	if status != model.ShiftOpen {
		return nil, fmt.Errorf("shift %w: it is already closed", ErrInvalidState)
	}

	cash, err := sumTotals(ctx, tx,
		`SELECT total FROM sales WHERE shift_id = ? AND status = 'completed' AND payment_method = 'cash'`, id)
	if err != nil {
		return nil, err
	}
	expected := opening.Add(cash)
	difference := req.ClosingCash.Sub(expected)

	_, err = tx.ExecContext(ctx,
		`UPDATE shifts SET status = 'closed', closing_cash = ?, expected_cash = ?, difference = ?, notes = ?, closed_at = ?
		 WHERE id = ?`,
		req.ClosingCash, expected, difference, nullString(req.Notes), sqlTime(time.Now()), id,
	)
	if err != nil {
		return nil, fmt.Errorf("closing shift: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing shift: %w", err)
	}
	return GetShift(ctx, db, companyID, id)
}

// sumTotals adds up the single decimal column selected by query.
func sumTotals(ctx context.Context, q querier, query string, args ...any) (decimal.Decimal, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("summing totals: %w", err)
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var d decimal.Decimal
		if err := rows.Scan(&d); err != nil {
			return decimal.Zero, fmt.Errorf("scanning total: %w", err)
		}
		sum = sum.Add(d)
	}
	return sum, rows.Err()
}
