package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/trgovina/internal/model"
)

// Plan-limited resources.
const (
	resourceBranches = "branches"
	resourceUsers    = "users"
	resourceProducts = "products"
)

const subscriptionColumns = `s.id, s.company_id, s.plan, s.status, s.max_branches, s.max_users, s.max_products,
        s.price_monthly, s.starts_at, s.ends_at, s.created_at, c.name`

const subscriptionFrom = ` FROM subscriptions s JOIN companies c ON c.id = s.company_id`

func scanSubscription(s interface{ Scan(...any) error }, sub *model.Subscription) error {
	return s.Scan(&sub.ID, &sub.CompanyID, &sub.Plan, &sub.Status, &sub.MaxBranches, &sub.MaxUsers, &sub.MaxProducts,
		&sub.PriceMonthly, &sub.StartsAt, &sub.EndsAt, &sub.CreatedAt, &sub.CompanyName)
}

// subscriptionLimits resolves the request's limits, falling back to the plan defaults.
func subscriptionLimits(req model.SubscriptionRequest) (branches, users, products int) {
	branches, users, products = model.PlanLimits(req.Plan)
	if req.MaxBranches != nil {
		branches = *req.MaxBranches
	}
	if req.MaxUsers != nil {
		users = *req.MaxUsers
	}
	if req.MaxProducts != nil {
		products = *req.MaxProducts
	}
	return branches, users, products
}

func insertSubscription(ctx context.Context, q querier, req model.SubscriptionRequest) (int64, error) {
	branches, users, products := subscriptionLimits(req)
	starts := time.Now()
	if req.StartsAt != nil {
		starts = *req.StartsAt
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO subscriptions (company_id, plan, status, max_branches, max_users, max_products,
		                            price_monthly, starts_at, ends_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.CompanyID, req.Plan, req.Status, branches, users, products,
		req.PriceMonthly, sqlTime(starts), nullTime(req.EndsAt),
	)
	if err != nil {
		return 0, fmt.Errorf("creating subscription: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting subscription id: %w", err)
	}
	return id, nil
}

// CreateSubscription creates a subscription, which becomes the company's current one.
func CreateSubscription(ctx context.Context, db *sql.DB, req model.SubscriptionRequest) (*model.Subscription, error) {
	c, err := GetCompany(ctx, db, req.CompanyID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("company %d %w", req.CompanyID, ErrNotFound)
	}

	id, err := insertSubscription(ctx, db, req)
	if err != nil {
		return nil, err
	}
	return GetSubscription(ctx, db, id)
}

// GetSubscription returns a subscription by ID.
func GetSubscription(ctx context.Context, db *sql.DB, id int64) (*model.Subscription, error) {
	sub := &model.Subscription{}
	err := scanSubscription(db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+subscriptionFrom+` WHERE s.id = ?`, id,
	), sub)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting subscription: %w", err)
	}
	return sub, nil
}

// ListSubscriptions returns subscriptions, newest first, optionally for one company.
func ListSubscriptions(ctx context.Context, db *sql.DB, companyID int64) ([]model.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + subscriptionFrom + ` WHERE c.deleted_at IS NULL`
	var args []any
	if companyID != 0 {
		query += ` AND s.company_id = ?`
		args = append(args, companyID)
	}
	query += ` ORDER BY s.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.Subscription
	for rows.Next() {
		var sub model.Subscription
		if err := scanSubscription(rows, &sub); err != nil {
			return nil, fmt.Errorf("scanning subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// UpdateSubscription replaces a subscription's plan, status, limits and period.
func UpdateSubscription(ctx context.Context, db *sql.DB, id int64, req model.SubscriptionRequest) error {
	branches, users, products := subscriptionLimits(req)
	_, err := db.ExecContext(ctx,
		`UPDATE subscriptions SET plan = ?, status = ?, max_branches = ?, max_users = ?, max_products = ?,
		        price_monthly = ?, starts_at = COALESCE(?, starts_at), ends_at = ?
		 WHERE id = ?`,
		req.Plan, req.Status, branches, users, products,
		req.PriceMonthly, nullTime(req.StartsAt), nullTime(req.EndsAt), id,
	)
	if err != nil {
		return fmt.Errorf("updating subscription: %w", err)
	}
	return nil
}

// currentSubscription returns the company's newest subscription that is not cancelled.
func currentSubscription(ctx context.Context, q querier, companyID int64) (*model.Subscription, error) {
	sub := &model.Subscription{}
	err := scanSubscription(q.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+subscriptionFrom+`
		 WHERE s.company_id = ? AND s.status <> 'cancelled'
		 ORDER BY s.id DESC LIMIT 1`, companyID,
	), sub)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting current subscription: %w", err)
	}
	return sub, nil
}

// CurrentSubscription returns the company's current subscription, or nil.
func CurrentSubscription(ctx context.Context, db *sql.DB, companyID int64) (*model.Subscription, error) {
	return currentSubscription(ctx, db, companyID)
}

func countResource(ctx context.Context, q querier, companyID int64, resource string) (int, error) {
	var query string
	switch resource {
	case resourceBranches:
		query = `SELECT COUNT(*) FROM branches WHERE company_id = ? AND deleted_at IS NULL`
	case resourceUsers:
		query = `SELECT COUNT(*) FROM users WHERE company_id = ? AND deleted_at IS NULL`
	case resourceProducts:
		query = `SELECT COUNT(*) FROM products WHERE company_id = ? AND deleted_at IS NULL`
	default:
		return 0, fmt.Errorf("unknown resource %q", resource)
	}

	var n int
	if err := q.QueryRowContext(ctx, query, companyID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", resource, err)
	}
	return n, nil
}

func resourceLimit(sub *model.Subscription, resource string) int {
	if sub == nil {
		return 0
	}
	switch resource {
	case resourceBranches:
		return sub.MaxBranches
	case resourceUsers:
		return sub.MaxUsers
	case resourceProducts:
		return sub.MaxProducts
	}
	return 0
}

// checkLimit returns ErrPlanLimit when adding one more resource would exceed
// the current plan. Companies without a subscription are not limited.
func checkLimit(ctx context.Context, q querier, companyID int64, resource string) error {
	sub, err := currentSubscription(ctx, q, companyID)
	if err != nil {
		return err
	}
	capacity := resourceLimit(sub, resource)
	if capacity == 0 {
		return nil
	}

	used, err := countResource(ctx, q, companyID, resource)
	if err != nil {
		return err
	}
	if (model.Usage{Used: used, Limit: capacity}).Exceeded() {
		return fmt.Errorf("%w: %s", ErrPlanLimit, resource)
	}
	return nil
}

// GetUsage returns one company's consumption against its plan and its sales
// over the last 30 days.
func GetUsage(ctx context.Context, db *sql.DB, c model.Company) (*model.CompanyUsage, error) {
	sub, err := currentSubscription(ctx, db, c.ID)
	if err != nil {
		return nil, err
	}

	u := &model.CompanyUsage{
		CompanyID:   c.ID,
		CompanyName: c.Name,
		Status:      c.Status,
		Revenue30d:  decimal.Zero,
	}
	if sub != nil {
		u.Plan, u.PlanStatus = sub.Plan, sub.Status
	}

	for _, r := range []struct {
		resource string
		usage    *model.Usage
	}{
		{resourceBranches, &u.Branches},
		{resourceUsers, &u.Users},
		{resourceProducts, &u.Products},
	} {
		used, err := countResource(ctx, db, c.ID, r.resource)
		if err != nil {
			return nil, err
		}
		*r.usage = model.Usage{Used: used, Limit: resourceLimit(sub, r.resource)}
	}

	rows, err := db.QueryContext(ctx,
		`SELECT total FROM sales WHERE company_id = ? AND status = 'completed' AND created_at >= ?`,
		c.ID, sqlTime(time.Now().AddDate(0, 0, -30)),
	)
	if err != nil {
		return nil, fmt.Errorf("summing recent sales: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var total decimal.Decimal
		if err := rows.Scan(&total); err != nil {
			return nil, fmt.Errorf("scanning sale total: %w", err)
		}
		u.Sales30d++
		u.Revenue30d = u.Revenue30d.Add(total)
	}
	return u, rows.Err()
}

// PlatformUsage returns the usage of every live company.
func PlatformUsage(ctx context.Context, db *sql.DB) ([]model.CompanyUsage, error) {
	companies, err := ListCompanies(ctx, db)
	if err != nil {
		return nil, err
	}

	usage := make([]model.CompanyUsage, 0, len(companies))
	for _, c := range companies {
		u, err := GetUsage(ctx, db, c)
		if err != nil {
			return nil, err
		}
		usage = append(usage, *u)
	}
	return usage, nil
}

// ExpiringSubscriptions returns live subscriptions ending between now and now+within.
func ExpiringSubscriptions(ctx context.Context, db *sql.DB, now time.Time, within time.Duration) ([]model.Subscription, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+subscriptionColumns+subscriptionFrom+`
		 WHERE c.deleted_at IS NULL AND s.status IN ('trial', 'active', 'past_due')
		   AND s.id = (SELECT MAX(id) FROM subscriptions WHERE company_id = s.company_id AND status <> 'cancelled')
		   AND s.ends_at IS NOT NULL AND s.ends_at >= ? AND s.ends_at <= ?
		 ORDER BY s.ends_at`,
		sqlTime(now), sqlTime(now.Add(within)),
	)
	if err != nil {
		return nil, fmt.Errorf("listing expiring subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.Subscription
	for rows.Next() {
		var sub model.Subscription
		if err := scanSubscription(rows, &sub); err != nil {
			return nil, fmt.Errorf("scanning subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
