package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/trgovina/internal/model"
)

// maxProducts caps one product listing.
const maxProducts = 500

const productColumns = `p.id, p.company_id, p.category_id, p.sku, p.barcode, p.name, p.description,
        p.price, p.cost, p.min_stock, p.active, p.image_mime, p.created_at, p.updated_at, p.deleted_at,
        COALESCE(c.name, '')`

const productFrom = ` FROM products p LEFT JOIN categories c ON c.id = p.category_id`

func scanProduct(s interface{ Scan(...any) error }, p *model.Product, extra ...any) error {
	var barcode, description, imageMime sql.NullString
	dest := []any{&p.ID, &p.CompanyID, &p.CategoryID, &p.SKU, &barcode, &p.Name, &description,
		&p.Price, &p.Cost, &p.MinStock, &p.Active, &imageMime, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
		&p.CategoryName}
	err := s.Scan(append(dest, extra...)...)
	p.Barcode, p.Description, p.ImageMime = barcode.String, description.String, imageMime.String
	return err
}

func checkCategory(ctx context.Context, q querier, companyID int64, categoryID *int64) error {
	if categoryID == nil || *categoryID == 0 {
		return nil
	}
	var n int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE id = ? AND company_id = ?`, *categoryID, companyID,
	).Scan(&n); err != nil {
		return fmt.Errorf("checking category: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("category %d %w", *categoryID, ErrNotFound)
	}
	return nil
}

func productActive(req model.ProductRequest) bool {
	return req.Active == nil || *req.Active
}

// CreateProduct creates a product. Products count against the plan's product limit.
func CreateProduct(ctx context.Context, db *sql.DB, companyID int64, req model.ProductRequest) (*model.Product, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkLimit(ctx, tx, companyID, resourceProducts); err != nil {
		return nil, err
	}
	if err := checkCategory(ctx, tx, companyID, req.CategoryID); err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO products (company_id, category_id, sku, barcode, name, description, price, cost, min_stock, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		companyID, nullID(req.CategoryID), req.SKU, nullString(req.Barcode), req.Name, nullString(req.Description),
		req.Price, req.Cost, req.MinStock, productActive(req),
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("product with this SKU or barcode %w", ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("creating product: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting product id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing product: %w", err)
	}
	return GetProduct(ctx, db, companyID, id, 0)
}

// GetProduct returns a live product of the company. With a branch, the
// product's stock at that branch is included.
func GetProduct(ctx context.Context, db *sql.DB, companyID, id, branchID int64) (*model.Product, error) {
	return getProduct(ctx, db, companyID, branchID, `p.id = ?`, id)
}

// GetProductByBarcode returns a live product by barcode.
func GetProductByBarcode(ctx context.Context, db *sql.DB, companyID int64, code string, branchID int64) (*model.Product, error) {
	return getProduct(ctx, db, companyID, branchID, `p.barcode = ?`, code)
}

func getProduct(ctx context.Context, db *sql.DB, companyID, branchID int64, cond string, arg any) (*model.Product, error) {
	p := &model.Product{}
	var stock sql.NullInt64
	err := scanProduct(db.QueryRowContext(ctx,
		`SELECT `+productColumns+`, st.quantity`+productFrom+`
		 LEFT JOIN stock st ON st.product_id = p.id AND st.branch_id = ?
		 WHERE `+cond+` AND p.company_id = ? AND p.deleted_at IS NULL`,
		branchID, arg, companyID,
	), p, &stock)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting product: %w", err)
	}
	if branchID != 0 {
		n := int(stock.Int64)
		p.Stock = &n
	}
	return p, nil
}

// ListProducts returns the company's live products matching the filter.
func ListProducts(ctx context.Context, db *sql.DB, companyID int64, f model.ProductFilter) ([]model.Product, error) {
	query := `SELECT ` + productColumns + `, st.quantity` + productFrom + `
		 LEFT JOIN stock st ON st.product_id = p.id AND st.branch_id = ?
		 WHERE p.company_id = ? AND p.deleted_at IS NULL`
	args := []any{f.BranchID, companyID}

	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query += ` AND (LOWER(p.name) LIKE ? OR LOWER(p.sku) LIKE ? OR p.barcode = ?)`
		args = append(args, like, like, s)
	}
	if f.Barcode != "" {
		query += ` AND p.barcode = ?`
		args = append(args, f.Barcode)
	}
	if f.CategoryID != 0 {
		query += ` AND p.category_id = ?`
		args = append(args, f.CategoryID)
	}
	if f.ActiveOnly {
		query += ` AND p.active = 1`
	}
	query += fmt.Sprintf(` ORDER BY p.name LIMIT %d`, maxProducts)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		var stock sql.NullInt64
		if err := scanProduct(rows, &p, &stock); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		if f.BranchID != 0 {
			n := int(stock.Int64)
			p.Stock = &n
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// UpdateProduct updates a product.
func UpdateProduct(ctx context.Context, db *sql.DB, companyID, id int64, req model.ProductRequest) error {
	if err := checkCategory(ctx, db, companyID, req.CategoryID); err != nil {
		return err
	}

	_, err := db.ExecContext(ctx,
		`UPDATE products SET category_id = ?, sku = ?, barcode = ?, name = ?, description = ?, price = ?, cost = ?,
		        min_stock = ?, active = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND company_id = ? AND deleted_at IS NULL`,
		nullID(req.CategoryID), req.SKU, nullString(req.Barcode), req.Name, nullString(req.Description),
		req.Price, req.Cost, req.MinStock, productActive(req), id, companyID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("product with this SKU or barcode %w", ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("updating product: %w", err)
	}
	return nil
}

// DeleteProduct soft-deletes a product.
func DeleteProduct(ctx context.Context, db *sql.DB, companyID, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE products SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND company_id = ? AND deleted_at IS NULL`,
		id, companyID,
	)
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	return nil
}

// SetProductImage sets a product's image data.
func SetProductImage(ctx context.Context, db *sql.DB, companyID, id int64, image []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE products SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND company_id = ? AND deleted_at IS NULL`,
		image, mime, id, companyID,
	)
	if err != nil {
		return fmt.Errorf("setting product image: %w", err)
	}
	return nil
}

// GetProductImage returns a product's image data and MIME type.
func GetProductImage(ctx context.Context, db *sql.DB, companyID, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM products WHERE id = ? AND company_id = ?`, id, companyID,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting product image: %w", err)
	}
	return image, mime.String, nil
}
