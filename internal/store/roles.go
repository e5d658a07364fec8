package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/trgovina/internal/model"
)

func checkPermissions(perms []string) error {
	for _, p := range perms {
		if !model.IsPermission(p) {
			return fmt.Errorf("%w: unknown permission %q", ErrInvalid, p)
		}
	}
	return nil
}

// CreateRole creates a role with the given permission codes.
func CreateRole(ctx context.Context, db *sql.DB, companyID int64, req model.RoleRequest) (*model.Role, error) {
	if err := checkPermissions(req.Permissions); err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO roles (company_id, name, permissions) VALUES (?, ?, ?)`,
		companyID, req.Name, strings.Join(req.Permissions, ","),
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("role %q %w", req.Name, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("creating role: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting role id: %w", err)
	}
	return GetRole(ctx, db, companyID, id)
}

// GetRole returns a role of the company.
func GetRole(ctx context.Context, db *sql.DB, companyID, id int64) (*model.Role, error) {
	r := &model.Role{}
	var perms string
	err := db.QueryRowContext(ctx,
		`SELECT id, company_id, name, permissions, created_at FROM roles WHERE id = ? AND company_id = ?`,
		id, companyID,
	).Scan(&r.ID, &r.CompanyID, &r.Name, &perms, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting role: %w", err)
	}
	r.Permissions = splitPermissions(perms)
	return r, nil
}

// ListRoles returns the company's roles.
func ListRoles(ctx context.Context, db *sql.DB, companyID int64) ([]model.Role, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, company_id, name, permissions, created_at FROM roles WHERE company_id = ? ORDER BY name`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		var r model.Role
		var perms string
		if err := rows.Scan(&r.ID, &r.CompanyID, &r.Name, &perms, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning role: %w", err)
		}
		r.Permissions = splitPermissions(perms)
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// UpdateRole renames a role and replaces its permissions.
func UpdateRole(ctx context.Context, db *sql.DB, companyID, id int64, req model.RoleRequest) error {
	if err := checkPermissions(req.Permissions); err != nil {
		return err
	}

	_, err := db.ExecContext(ctx,
		`UPDATE roles SET name = ?, permissions = ? WHERE id = ? AND company_id = ?`,
		req.Name, strings.Join(req.Permissions, ","), id, companyID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("role %q %w", req.Name, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("updating role: %w", err)
	}
	return nil
}

// DeleteRole deletes a role. Users holding it are left without a role.
func DeleteRole(ctx context.Context, db *sql.DB, companyID, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM roles WHERE id = ? AND company_id = ?`, id, companyID)
	if err != nil {
		return fmt.Errorf("deleting role: %w", err)
	}
	return nil
}
