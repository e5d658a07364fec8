package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/trgovina/internal/model"
)

// CreateCategory creates a product category.
func CreateCategory(ctx context.Context, db *sql.DB, companyID int64, req model.CategoryRequest) (*model.Category, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO categories (company_id, name, description) VALUES (?, ?, ?)`,
		companyID, req.Name, nullString(req.Description),
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("category %q %w", req.Name, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting category id: %w", err)
	}
	return GetCategory(ctx, db, companyID, id)
}

// GetCategory returns a category of the company.
func GetCategory(ctx context.Context, db *sql.DB, companyID, id int64) (*model.Category, error) {
	c := &model.Category{}
	var description sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, company_id, name, description, created_at FROM categories WHERE id = ? AND company_id = ?`,
		id, companyID,
	).Scan(&c.ID, &c.CompanyID, &c.Name, &description, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}
	c.Description = description.String
	return c, nil
}

// ListCategories returns the company's categories.
func ListCategories(ctx context.Context, db *sql.DB, companyID int64) ([]model.Category, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, company_id, name, description, created_at FROM categories WHERE company_id = ? ORDER BY name`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		var description sql.NullString
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Name, &description, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		c.Description = description.String
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpdateCategory updates a category.
func UpdateCategory(ctx context.Context, db *sql.DB, companyID, id int64, req model.CategoryRequest) error {
	_, err := db.ExecContext(ctx,
		`UPDATE categories SET name = ?, description = ? WHERE id = ? AND company_id = ?`,
		req.Name, nullString(req.Description), id, companyID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("category %q %w", req.Name, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("updating category: %w", err)
	}
	return nil
}

// DeleteCategory deletes a category. Its products become uncategorised.
func DeleteCategory(ctx context.Context, db *sql.DB, companyID, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND company_id = ?`, id, companyID)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	return nil
}
