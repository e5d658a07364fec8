package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/trgovina/internal/model"
)

// Blob is an uploaded image and its MIME type.
type Blob struct {
	Data []byte
	Mime string
}

const branchColumns = `id, company_id, name, address, phone, tax_rate, currency, primary_color, secondary_color,
        logo IS NOT NULL, favicon IS NOT NULL, created_at, deleted_at`

func scanBranch(s interface{ Scan(...any) error }, b *model.Branch) error {
	var address, phone, primary, secondary sql.NullString
	err := s.Scan(&b.ID, &b.CompanyID, &b.Name, &address, &phone, &b.TaxRate, &b.Currency, &primary, &secondary,
		&b.HasLogo, &b.HasFavicon, &b.CreatedAt, &b.DeletedAt)
	b.Address, b.Phone = address.String, phone.String
	b.PrimaryColor, b.SecondaryColor = primary.String, secondary.String
	return err
}

func branchCurrency(c string) string {
	if c == "" {
		return model.DefaultCurrency
	}
	return strings.ToUpper(c)
}

// CreateBranch creates a branch. Branches count against the plan's branch limit.
func CreateBranch(ctx context.Context, db *sql.DB, companyID int64, req model.BranchRequest) (*model.Branch, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkLimit(ctx, tx, companyID, resourceBranches); err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO branches (company_id, name, address, phone, tax_rate, currency, primary_color, secondary_color)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		companyID, req.Name, nullString(req.Address), nullString(req.Phone), req.TaxRate,
		branchCurrency(req.Currency), nullString(req.PrimaryColor), nullString(req.SecondaryColor),
	)
	if err != nil {
		return nil, fmt.Errorf("creating branch: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting branch id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing branch: %w", err)
	}
	return GetBranch(ctx, db, companyID, id)
}

// GetBranch returns a live branch of the company.
func GetBranch(ctx context.Context, db *sql.DB, companyID, id int64) (*model.Branch, error) {
	b := &model.Branch{}
	err := scanBranch(db.QueryRowContext(ctx,
		`SELECT `+branchColumns+` FROM branches WHERE id = ? AND company_id = ? AND deleted_at IS NULL`,
		id, companyID,
	), b)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting branch: %w", err)
	}
	return b, nil
}

// ListBranches returns the company's live branches.
func ListBranches(ctx context.Context, db *sql.DB, companyID int64) ([]model.Branch, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+branchColumns+` FROM branches WHERE company_id = ? AND deleted_at IS NULL ORDER BY name`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	defer rows.Close()

	var branches []model.Branch
	for rows.Next() {
		var b model.Branch
		if err := scanBranch(rows, &b); err != nil {
			return nil, fmt.Errorf("scanning branch: %w", err)
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}

// UpdateBranch updates a branch's details.
func UpdateBranch(ctx context.Context, db *sql.DB, companyID, id int64, req model.BranchRequest) error {
	_, err := db.ExecContext(ctx,
		`UPDATE branches SET name = ?, address = ?, phone = ?, tax_rate = ?, currency = ?,
		        primary_color = ?, secondary_color = ?
		 WHERE id = ? AND company_id = ? AND deleted_at IS NULL`,
		req.Name, nullString(req.Address), nullString(req.Phone), req.TaxRate, branchCurrency(req.Currency),
		nullString(req.PrimaryColor), nullString(req.SecondaryColor), id, companyID,
	)
	if err != nil {
		return fmt.Errorf("updating branch: %w", err)
	}
	return nil
}

// DeleteBranch soft-deletes a branch. Branches holding stock cannot be deleted.
func DeleteBranch(ctx context.Context, db *sql.DB, companyID, id int64) error {
	var held int
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM stock WHERE branch_id = ?`, id,
	).Scan(&held)
	if err != nil {
		return fmt.Errorf("checking branch stock: %w", err)
	}
	if held > 0 {
		return fmt.Errorf("branch %w: it still holds %d units of stock", ErrInvalidState, held)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE branches SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND company_id = ? AND deleted_at IS NULL`,
		id, companyID,
	)
	if err != nil {
		return fmt.Errorf("deleting branch: %w", err)
	}
	return nil
}

// UpdateBranding sets a branch's colours and, when given, its logo and favicon.
// Empty colours keep the current value.
func UpdateBranding(ctx context.Context, db *sql.DB, companyID, id int64, primary, secondary string, logo, favicon *Blob) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE branches SET primary_color = COALESCE(?, primary_color), secondary_color = COALESCE(?, secondary_color)
		 WHERE id = ? AND company_id = ? AND deleted_at IS NULL`,
		nullString(primary), nullString(secondary), id, companyID,
	)
	if err != nil {
		return fmt.Errorf("updating branch colours: %w", err)
	}

	if logo != nil {
		if _, err := tx.ExecContext(ctx,
			`UPDATE branches SET logo = ?, logo_mime = ? WHERE id = ? AND company_id = ?`,
			logo.Data, logo.Mime, id, companyID,
		); err != nil {
			return fmt.Errorf("setting branch logo: %w", err)
		}
	}
	if favicon != nil {
		if _, err := tx.ExecContext(ctx,
			`UPDATE branches SET favicon = ?, favicon_mime = ? WHERE id = ? AND company_id = ?`,
			favicon.Data, favicon.Mime, id, companyID,
		); err != nil {
			return fmt.Errorf("setting branch favicon: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing branding: %w", err)
	}
	return nil
}

// GetBranchImage returns a branch's logo or favicon ("logo" or "favicon").
func GetBranchImage(ctx context.Context, db *sql.DB, companyID, id int64, kind string) (*Blob, error) {
	var query string
	switch kind {
	case "logo":
		query = `SELECT logo, logo_mime FROM branches WHERE id = ? AND company_id = ? AND deleted_at IS NULL`
	case "favicon":
		query = `SELECT favicon, favicon_mime FROM branches WHERE id = ? AND company_id = ? AND deleted_at IS NULL`
	default:
		return nil, fmt.Errorf("unknown branch image %q", kind)
	}

	var data []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx, query, id, companyID).Scan(&data, &mime)
	if err == sql.ErrNoRows || (err == nil && len(data) == 0) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting branch %s: %w", kind, err)
	}
	return &Blob{Data: data, Mime: mime.String}, nil
}

// GetBranchTheme returns the branding clients apply for a branch. Missing
// colours take the defaults.
func GetBranchTheme(ctx context.Context, db *sql.DB, companyID, id int64) (*model.Theme, error) {
	b, err := GetBranch(ctx, db, companyID, id)
	if err != nil || b == nil {
		return nil, err
	}

	t := &model.Theme{
		BranchID:       b.ID,
		DisplayName:    b.Name,
		PrimaryColor:   b.PrimaryColor,
		SecondaryColor: b.SecondaryColor,
		Currency:       b.Currency,
		TaxRate:        b.TaxRate,
	}
	if t.PrimaryColor == "" {
		t.PrimaryColor = model.DefaultPrimaryColor
	}
	if t.SecondaryColor == "" {
		t.SecondaryColor = model.DefaultSecondaryColor
	}
	if b.HasLogo {
		t.LogoURL = fmt.Sprintf("/api/branches/%d/logo/", b.ID)
	}
	if b.HasFavicon {
		t.FaviconURL = fmt.Sprintf("/api/branches/%d/favicon/", b.ID)
	}
	return t, nil
}
