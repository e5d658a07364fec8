package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/trgovina/internal/model"
)

// RaiseAlert creates an alert unless an unread alert of the same type for
// the same branch and reference already exists. It reports whether a new
// alert was created.
func RaiseAlert(ctx context.Context, db *sql.DB, a model.Alert) (bool, error) {
	var existing int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alerts
		 WHERE company_id = ? AND type = ? AND COALESCE(branch_id, 0) = ? AND COALESCE(reference, '') = ?
		   AND read_at IS NULL`,
		a.CompanyID, a.Type, nullIDValue(a.BranchID), a.Reference,
	).Scan(&existing)
	if err != nil {
		return false, fmt.Errorf("checking existing alerts: %w", err)
	}
	if existing > 0 {
		return false, nil
	}

	severity := a.Severity
	if severity == "" {
		severity = model.SeverityInfo
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO alerts (company_id, branch_id, type, severity, message, reference) VALUES (?, ?, ?, ?, ?, ?)`,
		a.CompanyID, nullID(a.BranchID), a.Type, severity, a.Message, nullString(a.Reference),
	)
	if err != nil {
		return false, fmt.Errorf("raising alert: %w", err)
	}
	return true, nil
}

func nullIDValue(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

// ListAlerts returns the company's alerts, newest first.
func ListAlerts(ctx context.Context, db *sql.DB, companyID int64, f model.AlertFilter) ([]model.Alert, error) {
	query := `SELECT id, company_id, branch_id, type, severity, message, reference, read_at, created_at
	          FROM alerts WHERE company_id = ?`
	args := []any{companyID}
	if f.BranchID != 0 {
		query += ` AND (branch_id = ? OR branch_id IS NULL)`
		args = append(args, f.BranchID)
	}
	if f.UnreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit(f.Limit, 50, 500))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		var a model.Alert
		var reference sql.NullString
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.BranchID, &a.Type, &a.Severity, &a.Message, &reference,
			&a.ReadAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		a.Reference = reference.String
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// MarkAlertRead marks one alert read. Marking a read alert again is a no-op.
func MarkAlertRead(ctx context.Context, db *sql.DB, companyID, id int64) error {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alerts WHERE id = ? AND company_id = ?`, id, companyID,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("checking alert: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("alert %d %w", id, ErrNotFound)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE alerts SET read_at = ? WHERE id = ? AND read_at IS NULL`, sqlTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("marking alert read: %w", err)
	}
	return nil
}

// MarkAllAlertsRead marks every unread alert of the company read and returns how many changed.
func MarkAllAlertsRead(ctx context.Context, db *sql.DB, companyID int64) (int64, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE alerts SET read_at = ? WHERE company_id = ? AND read_at IS NULL`, sqlTime(time.Now()), companyID,
	)
	if err != nil {
		return 0, fmt.Errorf("marking alerts read: %w", err)
	}
	return result.RowsAffected()
}

const reportSelect = `SELECT r.id, r.company_id, r.user_id, r.kind, r.subject, r.body, r.status, r.created_at, r.updated_at,
        u.username
 FROM user_reports r JOIN users u ON u.id = r.user_id`

func scanUserReport(s interface{ Scan(...any) error }, r *model.UserReport) error {
	return s.Scan(&r.ID, &r.CompanyID, &r.UserID, &r.Kind, &r.Subject, &r.Body, &r.Status, &r.CreatedAt, &r.UpdatedAt,
		&r.Username)
}

// CreateUserReport stores feedback from a user.
func CreateUserReport(ctx context.Context, db *sql.DB, companyID *int64, userID int64, req model.UserReportRequest) (*model.UserReport, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO user_reports (company_id, user_id, kind, subject, body) VALUES (?, ?, ?, ?, ?)`,
		nullID(companyID), userID, req.Kind, req.Subject, req.Body,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user report: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user report id: %w", err)
	}
	return GetUserReport(ctx, db, 0, id)
}

// GetUserReport returns a user report, restricted to the company unless companyID is 0.
func GetUserReport(ctx context.Context, db *sql.DB, companyID, id int64) (*model.UserReport, error) {
	query := reportSelect + ` WHERE r.id = ?`
	args := []any{id}
	if companyID != 0 {
		query += ` AND r.company_id = ?`
		args = append(args, companyID)
	}

	r := &model.UserReport{}
	err := scanUserReport(db.QueryRowContext(ctx, query, args...), r)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user report: %w", err)
	}
	return r, nil
}

// ListUserReports returns user reports, newest first. A zero companyID lists every company.
func ListUserReports(ctx context.Context, db *sql.DB, companyID int64, status string) ([]model.UserReport, error) {
	query := reportSelect + ` WHERE 1 = 1`
	var args []any
	if companyID != 0 {
		query += ` AND r.company_id = ?`
		args = append(args, companyID)
	}
	if status != "" {
		query += ` AND r.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY r.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing user reports: %w", err)
	}
	defer rows.Close()

	var reports []model.UserReport
	for rows.Next() {
		var r model.UserReport
		if err := scanUserReport(rows, &r); err != nil {
			return nil, fmt.Errorf("scanning user report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// UpdateUserReportStatus changes a report's status.
func UpdateUserReportStatus(ctx context.Context, db *sql.DB, id int64, status string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE user_reports SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id,
	)
	if err != nil {
		return fmt.Errorf("updating user report: %w", err)
	}
	return nil
}
