package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/trgovina/internal/model"
)

// Activity actions.
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionDeleted   = "deleted"
	ActionVoided    = "voided"
	ActionOpened    = "opened"
	ActionClosed    = "closed"
	ActionMoved     = "moved"
	ActionReceived  = "received"
	ActionCancelled = "cancelled"
)

func logActivity(ctx context.Context, q querier, a model.ActivityLog) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO activity_log (company_id, user_id, action, entity, entity_id, message) VALUES (?, ?, ?, ?, ?, ?)`,
		a.CompanyID, nullID(a.UserID), a.Action, a.Entity, nullID(a.EntityID), a.Message,
	)
	if err != nil {
		return fmt.Errorf("logging activity: %w", err)
	}
	return nil
}

// LogActivity appends an entry to the company's activity feed.
func LogActivity(ctx context.Context, db *sql.DB, a model.ActivityLog) error {
	return logActivity(ctx, db, a)
}

// ListActivity returns the company's activity feed, newest first.
func ListActivity(ctx context.Context, db *sql.DB, companyID int64, n int) ([]model.ActivityLog, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT a.id, a.company_id, a.user_id, a.action, a.entity, a.entity_id, a.message, a.created_at,
		        COALESCE(u.username, '')
		 FROM activity_log a LEFT JOIN users u ON u.id = a.user_id
		 WHERE a.company_id = ?
		 ORDER BY a.id DESC LIMIT ?`,
		companyID, limit(n, 50, 500),
	)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	defer rows.Close()

	var entries []model.ActivityLog
	for rows.Next() {
		var a model.ActivityLog
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.UserID, &a.Action, &a.Entity, &a.EntityID, &a.Message,
			&a.CreatedAt, &a.Username); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		entries = append(entries, a)
	}
	return entries, rows.Err()
}
