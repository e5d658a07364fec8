// Package scheduler runs the server's periodic jobs: stock alerts,
// subscription expiry and overdue purchase order warnings, and the purge of
// expired revoked tokens.
package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

// Default schedules.
const (
	DefaultStockSpec = "@every 15m"
	dailySpec        = "0 6 * * *"
	hourlySpec       = "@hourly"
)

// ExpiryWarning is how far ahead subscription expiry is announced.
const ExpiryWarning = 7 * 24 * time.Hour

// jobTimeout bounds a single run of any job.
const jobTimeout = 2 * time.Minute

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron *cron.Cron
	db   *sql.DB
	log  *zap.Logger
	spec string
	now  func() time.Time
}

// New creates a scheduler. An empty stockSpec uses DefaultStockSpec.
func New(db *sql.DB, stockSpec string, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if stockSpec == "" {
		stockSpec = DefaultStockSpec
	}
	return &Scheduler{
		cron: cron.New(),
		db:   db,
		log:  log,
		spec: stockSpec,
		now:  time.Now,
	}
}

// Start registers every job and starts the cron loop.
func (s *Scheduler) Start() error {
	jobs := []struct {
		name string
		spec string
		run  func(context.Context) (int, error)
	}{
		{"stock alerts", s.spec, s.CheckStock},
		{"subscription expiry", dailySpec, s.CheckSubscriptions},
		{"overdue orders", dailySpec, s.CheckOrders},
		{"token purge", hourlySpec, s.PurgeTokens},
	}
	for _, j := range jobs {
		if _, err := s.cron.AddFunc(j.spec, s.wrap(j.name, j.run)); err != nil {
			return fmt.Errorf("scheduling %s (%q): %w", j.name, j.spec, err)
		}
	}

	s.log.Info("starting scheduler", zap.String("stock_spec", s.spec))
	s.cron.Start()
	return nil
}

// Stop stops the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.log.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) wrap(name string, run func(context.Context) (int, error)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		n, err := run(ctx)
		if err != nil {
			s.log.Error("job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.log.Debug("job finished", zap.String("job", name), zap.Int("affected", n),
			zap.Duration("duration", time.Since(start)))
	}
}

// CheckStock raises low_stock and out_of_stock alerts for every active
// company and returns how many new alerts were raised.
func (s *Scheduler) CheckStock(ctx context.Context) (int, error) {
	companies, err := store.ListCompanies(ctx, s.db)
	if err != nil {
		return 0, err
	}

	raised := 0
	for _, c := range companies {
		if c.Status != model.CompanyStatusActive {
			continue
		}
		low, err := store.LowStock(ctx, s.db, c.ID, 0)
		if err != nil {
			return raised, err
		}
		for _, st := range low {
			ok, err := store.RaiseAlert(ctx, s.db, stockAlert(c.ID, st))
			if err != nil {
				return raised, err
			}
			if ok {
				raised++
			}
		}
	}
	if raised > 0 {
		s.log.Info("stock alerts raised", zap.Int("count", raised))
	}
	return raised, nil
}

func stockAlert(companyID int64, st model.Stock) model.Alert {
	branchID := st.BranchID
	a := model.Alert{
		CompanyID: companyID,
		BranchID:  &branchID,
		Reference: fmt.Sprintf("product:%d", st.ProductID),
	}
	if st.Quantity <= 0 {
		a.Type = model.AlertOutOfStock
		a.Severity = model.SeverityCritical
		a.Message = fmt.Sprintf("%s is out of stock at %s", st.ProductName, st.BranchName)
		return a
	}
	a.Type = model.AlertLowStock
	a.Severity = model.SeverityWarning
	a.Message = fmt.Sprintf("%s is low at %s: %d left (minimum %d)", st.ProductName, st.BranchName, st.Quantity, st.MinStock)
	return a
}

// CheckSubscriptions warns companies whose subscription ends within ExpiryWarning.
func (s *Scheduler) CheckSubscriptions(ctx context.Context) (int, error) {
	subs, err := store.ExpiringSubscriptions(ctx, s.db, s.now(), ExpiryWarning)
	if err != nil {
		return 0, err
	}

	raised := 0
	for _, sub := range subs {
		days := int(sub.EndsAt.Sub(s.now()).Hours() / 24)
		ok, err := store.RaiseAlert(ctx, s.db, model.Alert{
			CompanyID: sub.CompanyID,
			Type:      model.AlertSubscriptionExpiring,
			Severity:  model.SeverityWarning,
			Message:   fmt.Sprintf("Your %s subscription ends in %d days (%s)", sub.Plan, days, sub.EndsAt.Format(time.DateOnly)),
			Reference: fmt.Sprintf("subscription:%d", sub.ID),
		})
		if err != nil {
			return raised, err
		}
		if ok {
			raised++
		}
	}
	return raised, nil
}

// CheckOrders warns about ordered purchase orders past their expected date.
func (s *Scheduler) CheckOrders(ctx context.Context) (int, error) {
	orders, err := store.OverdueOrders(ctx, s.db, s.now())
	if err != nil {
		return 0, err
	}

	raised := 0
	for _, o := range orders {
		branchID := o.BranchID
		ok, err := store.RaiseAlert(ctx, s.db, model.Alert{
			CompanyID: o.CompanyID,
			BranchID:  &branchID,
			Type:      model.AlertOrderOverdue,
			Severity:  model.SeverityWarning,
			Message: fmt.Sprintf("Purchase order #%d from %s was expected on %s",
				o.ID, o.SupplierName, o.ExpectedAt.Format(time.DateOnly)),
			Reference: fmt.Sprintf("po:%d", o.ID),
		})
		if err != nil {
			return raised, err
		}
		if ok {
			raised++
		}
	}
	return raised, nil
}

// PurgeTokens deletes revoked tokens that have expired anyway.
func (s *Scheduler) PurgeTokens(ctx context.Context) (int, error) {
	n, err := store.PurgeRevokedTokens(ctx, s.db, s.now())
	return int(n), err
}
