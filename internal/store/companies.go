package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/trgovina/internal/model"
)

// TrialPeriod is the length of the trial subscription given to new companies.
const TrialPeriod = 30 * 24 * time.Hour

// CreateCompany creates a company with a trial subscription on the requested
// plan and, when adminHash is set, the company's first admin account.
func CreateCompany(ctx context.Context, db *sql.DB, req model.CreateCompanyRequest, adminHash string) (*model.Company, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO companies (name, tax_id, email, phone) VALUES (?, ?, ?, ?)`,
		req.Name, nullString(req.TaxID), nullString(req.Email), nullString(req.Phone),
	)
	if err != nil {
		return nil, fmt.Errorf("creating company: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting company id: %w", err)
	}

	plan := req.Plan
	if plan == "" {
		plan = model.PlanBasic
	}
	now := time.Now()
	ends := now.Add(TrialPeriod)
	if _, err := insertSubscription(ctx, tx, model.SubscriptionRequest{
		CompanyID: id,
		Plan:      plan,
		Status:    model.SubscriptionTrial,
		StartsAt:  &now,
		EndsAt:    &ends,
	}); err != nil {
		return nil, err
	}

	if req.AdminUsername != "" {
		if _, err := insertUser(ctx, tx, &model.User{
			CompanyID:    &id,
			Username:     req.AdminUsername,
			PasswordHash: adminHash,
			IsAdmin:      true,
		}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing company: %w", err)
	}
	return GetCompany(ctx, db, id)
}

// GetCompany returns a live company by ID.
func GetCompany(ctx context.Context, db *sql.DB, id int64) (*model.Company, error) {
	c := &model.Company{}
	var taxID, email, phone sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, name, tax_id, email, phone, status, created_at, deleted_at
		 FROM companies WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&c.ID, &c.Name, &taxID, &email, &phone, &c.Status, &c.CreatedAt, &c.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting company: %w", err)
	}
	c.TaxID, c.Email, c.Phone = taxID.String, email.String, phone.String
	return c, nil
}

// ListCompanies returns all live companies.
func ListCompanies(ctx context.Context, db *sql.DB) ([]model.Company, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, tax_id, email, phone, status, created_at, deleted_at
		 FROM companies WHERE deleted_at IS NULL ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing companies: %w", err)
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		var c model.Company
		var taxID, email, phone sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &taxID, &email, &phone, &c.Status, &c.CreatedAt, &c.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning company: %w", err)
		}
		c.TaxID, c.Email, c.Phone = taxID.String, email.String, phone.String
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// UpdateCompany updates a company's details and status.
func UpdateCompany(ctx context.Context, db *sql.DB, id int64, req model.UpdateCompanyRequest) error {
	_, err := db.ExecContext(ctx,
		`UPDATE companies SET name = ?, tax_id = ?, email = ?, phone = ?, status = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		req.Name, nullString(req.TaxID), nullString(req.Email), nullString(req.Phone), req.Status, id,
	)
	if err != nil {
		return fmt.Errorf("updating company: %w", err)
	}
	return nil
}

// DeleteCompany soft-deletes a company and its users so they can no longer sign in.
func DeleteCompany(ctx context.Context, db *sql.DB, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE companies SET deleted_at = CURRENT_TIMESTAMP, status = 'suspended'
		 WHERE id = ? AND deleted_at IS NULL`, id,
	); err != nil {
		return fmt.Errorf("deleting company: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE company_id = ? AND deleted_at IS NULL`, id,
	); err != nil {
		return fmt.Errorf("deleting company users: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing company deletion: %w", err)
	}
	return nil
}
