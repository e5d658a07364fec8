package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"github.com/erazemk/trgovina/internal/client"
	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/sanitize"
)

func decimalFlag(fs *pflag.FlagSet, name string) (decimal.Decimal, error) {
	s, _ := fs.GetString(name)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, usageErr("--%s: %q is not a number", name, s)
	}
	return d, nil
}

func dateFlag(fs *pflag.FlagSet, name string) (time.Time, error) {
	s, _ := fs.GetString(name)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, usageErr("--%s: expected a date like 2024-01-31", name)
	}
	return t, nil
}

func optionalID(fs *pflag.FlagSet, name string) *int64 {
	if id, _ := fs.GetInt64(name); id > 0 {
		return &id
	}
	return nil
}

func branchFlag(fs *pflag.FlagSet) {
	fs.Int64("branch", 0, "branch id (default: your branch)")
}

func branchesCmd() *Command {
	return &Command{
		Name:    "branches",
		Summary: "Manage branches.",
		Subcommands: []*Command{
			{
				Name:    "list",
				Summary: "List branches.",
				Run: func(e *env, _ *pflag.FlagSet, _ []string) error {
					ctx, cancel := e.ctx()
					defer cancel()
					branches, err := e.api.ListBranches(ctx)
					if err != nil {
						return failed(sanitize.ActionFetch, err)
					}
					rows := make([][]string, 0, len(branches))
					for _, b := range branches {
						rows = append(rows, []string{
							fmt.Sprint(b.ID), b.Name, orDash(b.Address), b.TaxRate.String(), b.Currency,
						})
					}
					return e.emit(view{branches, []string{"ID", "Name", "Address", "Tax", "Currency"}, rows})
				},
			},
			{
				Name:    "show",
				Summary: "Show a branch.",
				Args:    "<id>",
				Run: func(e *env, _ *pflag.FlagSet, args []string) error {
					id, err := parseID(args, "branch")
					if err != nil {
						return err
					}
					ctx, cancel := e.ctx()
					defer cancel()
					b, err := e.api.GetBranch(ctx, id)
					if err != nil {
						return failed(sanitize.ActionFetch, err)
					}
					return e.emit(branchRecord(b))
				},
			},
			{
				Name:    "create",
				Summary: "Create a branch.",
				Flags: func(fs *pflag.FlagSet) {
					fs.String("name", "", "branch name")
					fs.String("address", "", "street address")
					fs.String("phone", "", "phone number")
					fs.String("tax-rate", "", "tax rate as a fraction, 0.22 for 22%")
					fs.String("currency", "", "ISO currency code (default EUR)")
				},
				Run: func(e *env, fs *pflag.FlagSet, _ []string) error {
					var req model.BranchRequest
					req.Name, _ = fs.GetString("name")
					req.Address, _ = fs.GetString("address")
					req.Phone, _ = fs.GetString("phone")
					req.Currency, _ = fs.GetString("currency")
					var err error
					if req.TaxRate, err = decimalFlag(fs, "tax-rate"); err != nil {
						return err
					}
					if req.Name == "" {
						return usageErr("--name is required")
					}

					ctx, cancel := e.ctx()
					defer cancel()
					b, err := e.api.CreateBranch(ctx, req)
					if err != nil {
						return failed(sanitize.ActionCreate, err)
					}
					return e.emit(branchRecord(b))
				},
			},
			{
				Name:    "branding",
				Summary: "Set a branch's colours, logo and favicon.",
				Args:    "<id>",
				Flags: func(fs *pflag.FlagSet) {
					fs.String("primary", "", "primary colour, #RRGGBB")
					fs.String("secondary", "", "secondary colour, #RRGGBB")
					fs.String("logo", "", "logo image file (JPEG or PNG)")
					fs.String("favicon", "", "favicon image file (JPEG or PNG)")
				},
				Run: func(e *env, fs *pflag.FlagSet, args []string) error {
					id, err := parseID(args, "branch")
					if err != nil {
						return err
					}
					var b client.Branding
					b.PrimaryColor, _ = fs.GetString("primary")
					b.SecondaryColor, _ = fs.GetString("secondary")

					for flag, dst := range map[string]**client.Upload{"logo": &b.Logo, "favicon": &b.Favicon} {
						path, _ := fs.GetString(flag)
						if path == "" {
							continue
						}
						f, err := os.Open(path)
						if err != nil {
							return fmt.Errorf("opening %s: %w", flag, err)
						}
						defer f.Close()
						*dst = &client.Upload{Name: filepath.Base(path), Data: f}
					}

					ctx, cancel := e.ctx()
					defer cancel()
					branch, err := e.api.UpdateBranding(ctx, id, b)
					if err != nil {
						return failed(sanitize.ActionUpdate, err)
					}
					return e.emit(branchRecord(branch))
				},
			},
		},
	}
}

func branchRecord(b *model.Branch) view {
	return record(b,
		[2]string{"ID", fmt.Sprint(b.ID)},
		[2]string{"Name", b.Name},
		[2]string{"Address", orDash(b.Address)},
		[2]string{"Phone", orDash(b.Phone)},
		[2]string{"Tax rate", b.TaxRate.String()},
		[2]string{"Currency", b.Currency},
		[2]string{"Colours", orDash(b.PrimaryColor) + " / " + orDash(b.SecondaryColor)},
		[2]string{"Logo", yesNo(b.HasLogo)},
		[2]string{"Favicon", yesNo(b.HasFavicon)},
	)
}

func productsCmd() *Command {
	return &Command{
		Name:    "products",
		Summary: "Browse and manage the catalog.",
		Subcommands: []*Command{
			{
				Name:    "list",
				Summary: "List products.",
				Flags: func(fs *pflag.FlagSet) {
					fs.StringP("search", "s", "", "match name, SKU or barcode")
					fs.Int64("category", 0, "category id")
					branchFlag(fs)
					fs.Bool("active", false, "only active products")
				},
				Run: func(e *env, fs *pflag.FlagSet, _ []string) error {
					f := model.ProductFilter{BranchID: e.branch(fs)}
					f.Search, _ = fs.GetString("search")
					f.CategoryID, _ = fs.GetInt64("category")
					f.ActiveOnly, _ = fs.GetBool("active")

					ctx, cancel := e.ctx()
					defer cancel()
					products, err := e.api.ListProducts(ctx, f)
					if err != nil {
						return failed(sanitize.ActionFetch, err)
					}
					rows := make([][]string, 0, len(products))
					for _, p := range products {
						stock := "-"
						if p.Stock != nil {
							stock = strconv.Itoa(*p.Stock)
						}
						rows = append(rows, []string{
							fmt.Sprint(p.ID), p.SKU, orDash(p.Barcode), p.Name, money(p.Price), stock, yesNo(p.Active),
						})
					}
					return e.emit(view{products, []string{"ID", "SKU", "Barcode", "Name", "Price", "Stock", "Active"}, rows})
				},
			},
			{
				Name:    "show",
				Summary: "Show a product.",
				Args:    "<id>",
				Run: func(e *env, _ *pflag.FlagSet, args []string) error {
					id, err := parseID(args, "product")
					if err != nil {
						return err
					}
					ctx, cancel := e.ctx()
					defer cancel()
					p, err := e.api.GetProduct(ctx, id)
					if err != nil {
						return failed(sanitize.ActionFetch, err)
					}
					return e.emit(productRecord(p))
				},
			},
			{
				Name:    "barcode",
				Summary: "Look a product up by barcode.",
				Args:    "<code>",
				Run: func(e *env, _ *pflag.FlagSet, args []string) error {
					if len(args) != 1 {
						return usageErr("expected one barcode")
					}
					ctx, cancel := e.ctx()
					defer cancel()
					p, err := e.api.ProductByBarcode(ctx, args[0])
					if err != nil {
						return failed(sanitize.ActionFetch, err)
					}
					return e.emit(productRecord(p))
				},
			},
			{
				Name:    "create",
				Summary: "Create a product.",
				Flags: func(fs *pflag.FlagSet) {
					fs.String("sku", "", "stock keeping unit")
					fs.String("name", "", "product name")
					fs.String("barcode", "", "EAN or other barcode")
					fs.String("description", "", "description")
					fs.String("price", "", "selling price, tax exclusive")
					fs.String("cost", "", "purchase cost")
					fs.Int("min-stock", 0, "low stock threshold")
					fs.Int64("category", 0, "category id")
				},
				Run: func(e *env, fs *pflag.FlagSet, _ []string) error {
					var req model.ProductRequest
					req.SKU, _ = fs.GetString("sku")
					req.Name, _ = fs.GetString("name")
					req.Barcode, _ = fs.GetString("barcode")
					req.Description, _ = fs.GetString("description")
					req.MinStock, _ = fs.GetInt("min-stock")
					req.CategoryID = optionalID(fs, "category")
					var err error
					if req.Price, err = decimalFlag(fs, "price"); err != nil {
						return err
					}
					if req.Cost, err = decimalFlag(fs, "cost"); err != nil {
						return err
					}
					if req.SKU == "" || req.Name == "" {
						return usageErr("--sku and --name are required")
					}

					ctx, cancel := e.ctx()
					defer cancel()
					p, err := e.api.CreateProduct(ctx, req)
					if err != nil {
						return failed(sanitize.ActionCreate, err)
					}
					return e.emit(productRecord(p))
				},
			},
			{
				Name:    "image",
				Summary: "Upload a product image (JPEG or PNG).",
				Args:    "<id> <file>",
				Run: func(e *env, _ *pflag.FlagSet, args []string) error {
					if len(args) != 2 {
						return usageErr("expected a product id and an image file")
					}
					id, err := parseID(args[:1], "product")
					if err != nil {
						return err
					}
					f, err := os.Open(args[1])
					if err != nil {
						return fmt.Errorf("opening image: %w", err)
					}
					defer f.Close()

					ctx, cancel := e.ctx()
					defer cancel()
					p, err := e.api.UploadProductImage(ctx, id, client.Upload{Name: filepath.Base(args[1]), Data: f})
					if err != nil {
						return failed(sanitize.ActionUpdate, err)
					}
					return e.emit(productRecord(p))
				},
			},
		},
	}
}

func productRecord(p *model.Product) view {
	stock := "-"
	if p.Stock != nil {
		stock = strconv.Itoa(*p.Stock)
	}
	return record(p,
		[2]string{"ID", fmt.Sprint(p.ID)},
		[2]string{"SKU", p.SKU},
		[2]string{"Barcode", orDash(p.Barcode)},
		[2]string{"Name", p.Name},
		[2]string{"Category", orDash(p.CategoryName)},
		[2]string{"Price", money(p.Price)},
		[2]string{"Cost", money(p.Cost)},
		[2]string{"Min stock", strconv.Itoa(p.MinStock)},
		[2]string{"Stock", stock},
		[2]string{"Active", yesNo(p.Active)},
		[2]string{"Image", orDash(p.ImageMime)},
	)
}

func stockCmd() *Command {
	list := func(low bool) func(e *env, fs *pflag.FlagSet, _ []string) error {
		return func(e *env, fs *pflag.FlagSet, _ []string) error {
			ctx, cancel := e.ctx()
			defer cancel()
			var stock []model.Stock
			var err error
			if low {
				stock, err = e.api.LowStock(ctx, e.branch(fs))
			} else {
				stock, err = e.api.ListStock(ctx, e.branch(fs))
			}
			if err != nil {
				return failed(sanitize.ActionFetch, err)
			}
			rows := make([][]string, 0, len(stock))
			for _, s := range stock {
				rows = append(rows, []string{
					s.BranchName, s.SKU, s.ProductName, strconv.Itoa(s.Quantity), strconv.Itoa(s.MinStock),
				})
			}
			return e.emit(view{stock, []string{"Branch", "SKU", "Product", "Quantity", "Min"}, rows})
		}
	}

	return &Command{
		Name:    "stock",
		Summary: "Inspect and move stock.",
		Subcommands: []*Command{
			{Name: "list", Summary: "List stock levels.", Flags: branchFlag, Run: list(false)},
			{Name: "low", Summary: "List products at or below their minimum.", Flags: branchFlag, Run: list(true)},
			{
				Name:    "move",
				Summary: "Record a stock movement.",
				Flags: func(fs *pflag.FlagSet) {
					branchFlag(fs)
					fs.Int64("product", 0, "product id")
					fs.String("type", model.MovementIn, "in, out, adjust or transfer")
					fs.Int("qty", 0, "quantity (signed for adjust)")
					fs.Int64("to", 0, "destination branch for transfers")
					fs.String("reference", "", "reference such as a delivery note")
					fs.String("notes", "", "notes")
				},
				Run: func(e *env, fs *pflag.FlagSet, _ []string) error {
					req := model.CreateMovementRequest{BranchID: e.branch(fs)}
					req.ProductID, _ = fs.GetInt64("product")
					req.Type, _ = fs.GetString("type")
					req.Quantity, _ = fs.GetInt("qty")
					req.ToBranchID, _ = fs.GetInt64("to")
					req.Reference, _ = fs.GetString("reference")
					req.Notes, _ = fs.GetString("notes")
					if req.ProductID == 0 || req.Quantity == 0 {
						return usageErr("--product and --qty are required")
					}

					ctx, cancel := e.ctx()
					defer cancel()
					moves, err := e.api.CreateMovement(ctx, req)
					if err != nil {
						return failed(sanitize.ActionCreate, err)
					}
					rows := make([][]string, 0, len(moves))
					for _, m := range moves {
						rows = append(rows, []string{
							fmt.Sprint(m.ID), orDash(m.BranchName), orDash(m.ProductName), m.Type, strconv.Itoa(m.Quantity),
						})
					}
					return e.emit(view{moves, []string{"ID", "Branch", "Product", "Type", "Quantity"}, rows})
				},
			},
		},
	}
}
