package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/trgovina/internal/model"
)

const userColumns = `u.id, u.company_id, u.branch_id, u.role_id, u.username, u.full_name, u.email,
        u.password_hash, u.is_admin, u.is_platform_admin, u.created_at, u.deleted_at,
        COALESCE(r.name, '')`

const userFrom = ` FROM users u LEFT JOIN roles r ON r.id = u.role_id`

func scanUser(s interface{ Scan(...any) error }, u *model.User) error {
	var fullName, email sql.NullString
	err := s.Scan(&u.ID, &u.CompanyID, &u.BranchID, &u.RoleID, &u.Username, &fullName, &email,
		&u.PasswordHash, &u.IsAdmin, &u.IsPlatformAdmin, &u.CreatedAt, &u.DeletedAt, &u.RoleName)
	u.FullName = fullName.String
	u.Email = email.String
	return err
}

// CreateUser creates a new user. Company users count against the plan's user limit.
func CreateUser(ctx context.Context, db *sql.DB, u *model.User) (*model.User, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if u.CompanyID != nil {
		if err := checkLimit(ctx, tx, *u.CompanyID, resourceUsers); err != nil {
			return nil, err
		}
		if err := checkBranchAndRole(ctx, tx, *u.CompanyID, u.BranchID, u.RoleID); err != nil {
			return nil, err
		}
	}

	id, err := insertUser(ctx, tx, u)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing user: %w", err)
	}
	return GetUser(ctx, db, id)
}

func insertUser(ctx context.Context, q querier, u *model.User) (int64, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO users (company_id, branch_id, role_id, username, full_name, email,
		                    password_hash, is_admin, is_platform_admin)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullID(u.CompanyID), nullID(u.BranchID), nullID(u.RoleID), u.Username,
		nullString(u.FullName), nullString(u.Email), u.PasswordHash, u.IsAdmin, u.IsPlatformAdmin,
	)
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("username %q %w", u.Username, ErrConflict)
	}
	if err != nil {
		return 0, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting user id: %w", err)
	}
	return id, nil
}

// checkBranchAndRole verifies that the referenced branch and role belong to the company.
func checkBranchAndRole(ctx context.Context, q querier, companyID int64, branchID, roleID *int64) error {
	if branchID != nil && *branchID != 0 {
		var n int
		if err := q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM branches WHERE id = ? AND company_id = ? AND deleted_at IS NULL`,
			*branchID, companyID,
		).Scan(&n); err != nil {
			return fmt.Errorf("checking branch: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("branch %d %w", *branchID, ErrNotFound)
		}
	}
	if roleID != nil && *roleID != 0 {
		var n int
		if err := q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM roles WHERE id = ? AND company_id = ?`, *roleID, companyID,
		).Scan(&n); err != nil {
			return fmt.Errorf("checking role: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("role %d %w", *roleID, ErrNotFound)
		}
	}
	return nil
}

// GetUser returns a user by ID, including soft-deleted users.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	u := &model.User{}
	err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+userFrom+` WHERE u.id = ?`, id,
	), u)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetCompanyUser returns a live user of the company, or any live user when companyID is 0.
func GetCompanyUser(ctx context.Context, db *sql.DB, companyID, id int64) (*model.User, error) {
	u, err := GetUser(ctx, db, id)
	if err != nil || u == nil {
		return nil, err
	}
	if u.DeletedAt != nil {
		return nil, nil
	}
	if companyID != 0 && (u.CompanyID == nil || *u.CompanyID != companyID) {
		return nil, nil
	}
	return u, nil
}

// GetUserByUsername returns a live user by username.
func GetUserByUsername(ctx context.Context, db *sql.DB, username string) (*model.User, error) {
	u := &model.User{}
	err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+userFrom+` WHERE u.username = ? AND u.deleted_at IS NULL`, username,
	), u)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

// ListUsers returns the company's live users, or every live user when companyID is 0.
func ListUsers(ctx context.Context, db *sql.DB, companyID int64) ([]model.User, error) {
	query := `SELECT ` + userColumns + userFrom + ` WHERE u.deleted_at IS NULL`
	var args []any
	if companyID != 0 {
		query += ` AND u.company_id = ?`
		args = append(args, companyID)
	}
	query += ` ORDER BY u.username`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUser updates a user's profile, branch, role and admin flag.
func UpdateUser(ctx context.Context, db *sql.DB, companyID, id int64, req model.UpdateUserRequest) error {
	if err := checkBranchAndRole(ctx, db, companyID, req.BranchID, req.RoleID); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx,
		`UPDATE users SET full_name = ?, email = ?, branch_id = ?, role_id = ?, is_admin = ?
		 WHERE id = ? AND company_id = ? AND deleted_at IS NULL`,
		nullString(req.FullName), nullString(req.Email), nullID(req.BranchID), nullID(req.RoleID), req.IsAdmin,
		id, companyID,
	)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	return nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}

// DeleteUser soft-deletes a user.
func DeleteUser(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`, id,
	)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}

// CountPlatformAdmins returns the number of live platform admins.
func CountPlatformAdmins(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE is_platform_admin = 1 AND deleted_at IS NULL`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting platform admins: %w", err)
	}
	return n, nil
}

// GetMe returns the user with tenant names and effective permissions.
// Company admins receive the whole catalog; platform admins receive none.
func GetMe(ctx context.Context, db *sql.DB, userID int64) (*model.Me, error) {
	u, err := GetUser(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	if u == nil || u.DeletedAt != nil {
		return nil, nil
	}

	var companyName, branchName, perms sql.NullString
	err = db.QueryRowContext(ctx,
		`SELECT c.name, b.name, r.permissions
		 FROM users u
		 LEFT JOIN companies c ON c.id = u.company_id
		 LEFT JOIN branches b ON b.id = u.branch_id
		 LEFT JOIN roles r ON r.id = u.role_id
		 WHERE u.id = ?`, userID,
	).Scan(&companyName, &branchName, &perms)
	if err != nil {
		return nil, fmt.Errorf("getting current user: %w", err)
	}

	me := &model.Me{
		User:        *u,
		CompanyName: companyName.String,
		BranchName:  branchName.String,
		Permissions: []string{},
	}
	switch {
	case u.IsAdmin:
		for _, p := range model.Permissions {
			me.Permissions = append(me.Permissions, p.Code)
		}
	case perms.String != "":
		me.Permissions = splitPermissions(perms.String)
	}
	return me, nil
}

func splitPermissions(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
