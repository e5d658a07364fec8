package store

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/erazemk/trgovina/internal/model"
)

// periodFilter appends the period conditions on the sales table aliased s.
func periodFilter(query string, args []any, p model.ReportPeriod) (string, []any) {
	if p.BranchID != 0 {
		query += ` AND s.branch_id = ?`
		args = append(args, p.BranchID)
	}
	if !p.From.IsZero() {
		query += ` AND s.created_at >= ?`
		args = append(args, sqlTime(p.From))
	}
	if !p.To.IsZero() {
		query += ` AND s.created_at < ?`
		args = append(args, sqlTime(p.To))
	}
	return query, args
}

// SalesSummary aggregates the company's sales over a period. Voided sales
// are only counted.
func SalesSummary(ctx context.Context, db *sql.DB, companyID int64, p model.ReportPeriod) (*model.SalesSummary, error) {
	query, args := periodFilter(
		`SELECT s.payment_method, s.status, s.subtotal, s.discount, s.tax, s.total FROM sales s WHERE s.company_id = ?`,
		[]any{companyID}, p)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summarising sales: %w", err)
	}
	defer rows.Close()

	sum := &model.SalesSummary{
		From:        p.From,
		To:          p.To,
		Subtotal:    decimal.Zero,
		Discount:    decimal.Zero,
		Tax:         decimal.Zero,
		Total:       decimal.Zero,
		CashTotal:   decimal.Zero,
		CardTotal:   decimal.Zero,
		AverageSale: decimal.Zero,
	}
	if p.BranchID != 0 {
		sum.BranchID = &p.BranchID
	}

	for rows.Next() {
		var method, status string
		var subtotal, discount, tax, total decimal.Decimal
		if err := rows.Scan(&method, &status, &subtotal, &discount, &tax, &total); err != nil {
			return nil, fmt.Errorf("scanning sale: %w", err)
		}
		if status == model.SaleVoided {
			sum.VoidedCount++
			continue
		}
		sum.Count++
		sum.Subtotal = sum.Subtotal.Add(subtotal)
		sum.Discount = sum.Discount.Add(discount)
		sum.Tax = sum.Tax.Add(tax)
		sum.Total = sum.Total.Add(total)
		if method == model.PaymentCash {
			sum.CashTotal = sum.CashTotal.Add(total)
		} else {
			sum.CardTotal = sum.CardTotal.Add(total)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading sales: %w", err)
	}

	if sum.Count > 0 {
		sum.AverageSale = sum.Total.Div(decimal.NewFromInt(int64(sum.Count))).Round(2)
	}
	return sum, nil
}

// TopProducts returns the best selling products by quantity over a period.
func TopProducts(ctx context.Context, db *sql.DB, companyID int64, p model.ReportPeriod) ([]model.TopProduct, error) {
	query, args := periodFilter(
		`SELECT i.product_id, i.product_name, i.quantity, i.line_total
		 FROM sale_items i JOIN sales s ON s.id = i.sale_id
		 WHERE s.company_id = ? AND s.status = 'completed'`,
		[]any{companyID}, p)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing top products: %w", err)
	}
	defer rows.Close()

	byProduct := map[int64]*model.TopProduct{}
	for rows.Next() {
		var id int64
		var name string
		var qty int
		var total decimal.Decimal
		if err := rows.Scan(&id, &name, &qty, &total); err != nil {
			return nil, fmt.Errorf("scanning sale item: %w", err)
		}
		tp, ok := byProduct[id]
		if !ok {
			tp = &model.TopProduct{ProductID: id, Name: name, Revenue: decimal.Zero}
			byProduct[id] = tp
		}
		tp.Quantity += qty
		tp.Revenue = tp.Revenue.Add(total)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading sale items: %w", err)
	}

	top := make([]model.TopProduct, 0, len(byProduct))
	for _, tp := range byProduct {
		top = append(top, *tp)
	}
	slices.SortFunc(top, func(a, b model.TopProduct) int {
		if c := cmp.Compare(b.Quantity, a.Quantity); c != 0 {
			return c
		}
		if c := b.Revenue.Cmp(a.Revenue); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	if n := limit(p.Limit, 10, 100); len(top) > n {
		top = top[:n]
	}
	return top, nil
}

// InventoryValue values each branch's stock at cost and at retail price.
func InventoryValue(ctx context.Context, db *sql.DB, companyID, branchID int64) ([]model.InventoryValue, error) {
	query := `SELECT b.id, b.name, COALESCE(s.quantity, 0), COALESCE(p.cost, '0'), COALESCE(p.price, '0')
	          FROM branches b
	          LEFT JOIN stock s ON s.branch_id = b.id AND s.quantity > 0
	          LEFT JOIN products p ON p.id = s.product_id AND p.deleted_at IS NULL
	          WHERE b.company_id = ? AND b.deleted_at IS NULL`
	args := []any{companyID}
	if branchID != 0 {
		query += ` AND b.id = ?`
		args = append(args, branchID)
	}
	query += ` ORDER BY b.name, b.id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("valuing inventory: %w", err)
	}
	defer rows.Close()

	var values []model.InventoryValue
	for rows.Next() {
		var id int64
		var name string
		var qty int
		var cost, price decimal.Decimal
		if err := rows.Scan(&id, &name, &qty, &cost, &price); err != nil {
			return nil, fmt.Errorf("scanning stock value: %w", err)
		}
		if len(values) == 0 || values[len(values)-1].BranchID != id {
			values = append(values, model.InventoryValue{
				BranchID:    id,
				BranchName:  name,
				CostValue:   decimal.Zero,
				RetailValue: decimal.Zero,
			})
		}
		v := &values[len(values)-1]
		n := decimal.NewFromInt(int64(qty))
		v.Units += qty
		v.CostValue = v.CostValue.Add(cost.Mul(n))
		v.RetailValue = v.RetailValue.Add(price.Mul(n))
	}
	return values, rows.Err()
}
