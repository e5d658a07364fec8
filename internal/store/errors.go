package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Domain errors. Callers match them with errors.Is; the wrapped message
// names the offending record and is safe to show to users.
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("already exists")
	ErrPlanLimit           = errors.New("plan limit reached")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrNoOpenShift         = errors.New("no open shift")
	ErrShiftAlreadyOpen    = errors.New("shift already open")
	ErrInvalidState        = errors.New("cannot be changed in its current state")
	ErrInvalid             = errors.New("invalid request")
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY constraint failure.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// timeFormat matches CURRENT_TIMESTAMP so stored values compare as strings.
const timeFormat = "2006-01-02 15:04:05"

// sqlTime formats t for storage and comparison.
func sqlTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// nullTime formats an optional time.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return sqlTime(*t)
}

// nullID maps a zero or nil id to NULL.
func nullID(id *int64) any {
	if id == nil || *id == 0 {
		return nil
	}
	return *id
}

// nullString maps an empty string to NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// limit clamps a requested page size.
func limit(n, def, max int) int {
	if n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
