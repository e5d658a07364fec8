// Package seed fills an empty database with a demo tenant: branches, staff,
// a catalog with stock, suppliers and a few days of sales.
package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

// ErrAlreadySeeded is returned when demo data exists already.
var ErrAlreadySeeded = errors.New("demo data already generated")

// Options sizes the demo tenant. Zero values select the defaults.
type Options struct {
	Seed     uint64 // 0 picks a random seed
	Branches int
	Products int
	Sales    int // per branch
	Password string
}

func (o Options) withDefaults() Options {
	if o.Branches <= 0 {
		o.Branches = 2
	}
	if o.Products <= 0 {
		o.Products = 40
	}
	if o.Sales <= 0 {
		o.Sales = 25
	}
	if o.Password == "" {
		o.Password = "demo-password"
	}
	return o
}

// Result summarises what was generated.
type Result struct {
	Company   *model.Company
	Admin     string
	Cashiers  []string
	Branches  int
	Products  int
	Sales     int
	Suppliers int
}

// Usernames of the demo accounts.
const (
	AdminUsername   = "demo-admin"
	ManagerUsername = "demo-manager"
)

var (
	cashierPerms = []string{
		model.PermProductsView, model.PermInventoryView, model.PermSalesCreate,
		model.PermShiftsManage, model.PermAlertsView,
	}
	managerPerms = []string{
		model.PermProductsView, model.PermProductsManage, model.PermInventoryView,
		model.PermInventoryManage, model.PermSalesView, model.PermSalesVoid,
		model.PermSuppliersManage, model.PermPurchasesManage, model.PermReportsView,
		model.PermAlertsView,
	}
)

type seeder struct {
	db   *sql.DB
	log  *zap.Logger
	fake *gofakeit.Faker
	opts Options
	hash string
	res  *Result

	company  int64
	branches []*model.Branch
	products []*model.Product
}

// Run generates the demo tenant once per database.
func Run(ctx context.Context, db *sql.DB, opts Options, log *zap.Logger) (*Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts = opts.withDefaults()

	seeded, err := store.MarkSeeded(ctx, db)
	if err != nil {
		return nil, err
	}
	if seeded {
		return nil, ErrAlreadySeeded
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing demo password: %w", err)
	}

	s := &seeder{
		db:   db,
		log:  log,
		fake: gofakeit.New(opts.Seed),
		opts: opts,
		hash: string(hash),
		res:  &Result{Admin: AdminUsername},
	}
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"company", s.createCompany},
		{"branches", s.createBranches},
		{"staff", s.createStaff},
		{"catalog", s.createCatalog},
		{"purchasing", s.createPurchasing},
		{"sales", s.createSales},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			return nil, fmt.Errorf("seeding %s: %w", step.name, err)
		}
	}

	log.Info("demo data generated",
		zap.String("company", s.res.Company.Name),
		zap.Int("branches", s.res.Branches),
		zap.Int("products", s.res.Products),
		zap.Int("sales", s.res.Sales))
	return s.res, nil
}

func (s *seeder) createCompany(ctx context.Context) error {
	company, err := store.CreateCompany(ctx, s.db, model.CreateCompanyRequest{
		Name:          s.fake.Company(),
		TaxID:         s.fake.DigitN(8),
		Email:         s.fake.Email(),
		Phone:         s.fake.Phone(),
		Plan:          model.PlanEnterprise,
		AdminUsername: AdminUsername,
	}, s.hash)
	if err != nil {
		return err
	}
	s.company = company.ID
	s.res.Company = company
	return nil
}

func (s *seeder) createBranches(ctx context.Context) error {
	for i := range s.opts.Branches {
		branch, err := store.CreateBranch(ctx, s.db, s.company, model.BranchRequest{
			Name:           fmt.Sprintf("%s #%d", s.fake.City(), i+1),
			Address:        s.fake.Street(),
			Phone:          s.fake.Phone(),
			TaxRate:        decimal.RequireFromString("0.22"),
			Currency:       "EUR",
			PrimaryColor:   s.fake.HexColor(),
			SecondaryColor: s.fake.HexColor(),
		})
		if err != nil {
			return err
		}
		s.branches = append(s.branches, branch)
	}
	s.res.Branches = len(s.branches)
	return nil
}

func (s *seeder) createStaff(ctx context.Context) error {
	cashier, err := store.CreateRole(ctx, s.db, s.company, model.RoleRequest{Name: "Cashier", Permissions: cashierPerms})
	if err != nil {
		return err
	}
	manager, err := store.CreateRole(ctx, s.db, s.company, model.RoleRequest{Name: "Manager", Permissions: managerPerms})
	if err != nil {
		return err
	}

	if _, err := s.createUser(ctx, ManagerUsername, &manager.ID, nil); err != nil {
		return err
	}
	for i, b := range s.branches {
		username := "demo-cashier" + strconv.Itoa(i+1)
		if _, err := s.createUser(ctx, username, &cashier.ID, &b.ID); err != nil {
			return err
		}
		s.res.Cashiers = append(s.res.Cashiers, username)
	}
	return nil
}

func (s *seeder) createUser(ctx context.Context, username string, roleID, branchID *int64) (*model.User, error) {
	return store.CreateUser(ctx, s.db, &model.User{
		CompanyID:    &s.company,
		BranchID:     branchID,
		RoleID:       roleID,
		Username:     username,
		FullName:     s.fake.Name(),
		Email:        s.fake.Email(),
		PasswordHash: s.hash,
	})
}

func (s *seeder) createCatalog(ctx context.Context) error {
	var categories []int64
	seen := map[string]bool{}
	for len(categories) < 5 {
		name := s.fake.ProductCategory()
		if seen[name] {
			continue
		}
		seen[name] = true
		c, err := store.CreateCategory(ctx, s.db, s.company, model.CategoryRequest{Name: name})
		if err != nil {
			return err
		}
		categories = append(categories, c.ID)
	}

	for i := range s.opts.Products {
		price := decimal.NewFromFloat(s.fake.Price(0.5, 80)).Round(2)
		category := categories[s.fake.IntN(len(categories))]
		p, err := store.CreateProduct(ctx, s.db, s.company, model.ProductRequest{
			CategoryID:  &category,
			SKU:         fmt.Sprintf("SKU-%04d", i+1),
			Barcode:     EAN13(s.fake.DigitN(12)),
			Name:        s.fake.ProductName(),
			Description: s.fake.ProductDescription(),
			Price:       price,
			Cost:        price.Mul(decimal.RequireFromString("0.6")).Round(2),
			MinStock:    s.fake.IntRange(2, 10),
		})
		if errors.Is(err, store.ErrConflict) {
			// Duplicate random barcode; the catalog is just one product shorter.
			continue
		}
		if err != nil {
			return err
		}
		s.products = append(s.products, p)

		for _, b := range s.branches {
			qty := s.fake.IntRange(0, 60)
			if qty == 0 {
				continue
			}
			if _, err := store.CreateMovement(ctx, s.db, s.company, nil, model.CreateMovementRequest{
				BranchID:  b.ID,
				ProductID: p.ID,
				Type:      model.MovementIn,
				Quantity:  qty,
				Reference: "opening stock",
			}); err != nil {
				return err
			}
		}
	}
	s.res.Products = len(s.products)
	return nil
}

func (s *seeder) createPurchasing(ctx context.Context) error {
	for range 3 {
		supplier, err := store.CreateSupplier(ctx, s.db, s.company, model.SupplierRequest{
			Name:        s.fake.Company(),
			ContactName: s.fake.Name(),
			Email:       s.fake.Email(),
			Phone:       s.fake.Phone(),
			Address:     s.fake.Street(),
		})
		if err != nil {
			return err
		}
		s.res.Suppliers++

		var items []model.PurchaseOrderItemRequest
		for range 3 {
			p := s.products[s.fake.IntN(len(s.products))]
			items = append(items, model.PurchaseOrderItemRequest{
				ProductID: p.ID,
				Quantity:  s.fake.IntRange(10, 50),
				UnitCost:  p.Cost,
			})
		}
		expected := s.fake.FutureDate()
		if _, err := store.CreatePurchaseOrder(ctx, s.db, s.company, nil, model.CreatePurchaseOrderRequest{
			SupplierID: supplier.ID,
			BranchID:   s.branches[s.fake.IntN(len(s.branches))].ID,
			Status:     model.OrderOrdered,
			ExpectedAt: &expected,
			Items:      items,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) createSales(ctx context.Context) error {
	if len(s.products) == 0 {
		return nil
	}
	for i, b := range s.branches {
		user, err := store.GetUserByUsername(ctx, s.db, s.res.Cashiers[i])
		if err != nil {
			return err
		}

		shift, err := store.OpenShift(ctx, s.db, s.company, user.ID, model.OpenShiftRequest{
			BranchID:    b.ID,
			OpeningCash: decimal.NewFromInt(100),
		})
		if err != nil {
			return err
		}

		cash := decimal.Zero
		for range s.opts.Sales {
			sale, err := store.CreateSale(ctx, s.db, s.company, user.ID, s.saleRequest(b.ID))
			if errors.Is(err, store.ErrInsufficientStock) {
				continue
			}
			if err != nil {
				return err
			}
			if sale.PaymentMethod == model.PaymentCash {
				cash = cash.Add(sale.Total)
			}
			s.res.Sales++
		}

		if _, err := store.CloseShift(ctx, s.db, s.company, shift.ID, model.CloseShiftRequest{
			ClosingCash: shift.OpeningCash.Add(cash),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) saleRequest(branchID int64) model.CreateSaleRequest {
	req := model.CreateSaleRequest{BranchID: branchID, PaymentMethod: model.PaymentCard}

	picked := map[int64]bool{}
	subtotal := decimal.Zero
	for range s.fake.IntRange(1, 4) {
		p := s.products[s.fake.IntN(len(s.products))]
		if picked[p.ID] {
			continue
		}
		picked[p.ID] = true
		qty := s.fake.IntRange(1, 3)
		req.Items = append(req.Items, model.SaleItemRequest{ProductID: p.ID, Quantity: qty})
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(qty))))
	}

	if s.fake.Bool() {
		// Round the tendered amount up to the next ten, covering up to 100% tax.
		req.PaymentMethod = model.PaymentCash
		req.Paid = subtotal.Mul(decimal.NewFromInt(2)).Div(decimal.NewFromInt(10)).Ceil().Mul(decimal.NewFromInt(10))
	}
	return req
}

// EAN13 appends the check digit to a 12 digit code.
func EAN13(digits string) string {
	sum := 0
	for i, r := range digits {
		d := int(r - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return digits + strconv.Itoa((10-sum%10)%10)
}
