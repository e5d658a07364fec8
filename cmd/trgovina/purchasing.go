package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/sanitize"
)

func suppliersCmd() *Command {
	return &Command{
		Name:    "suppliers",
		Summary: "Manage suppliers.",
		Subcommands: []*Command{
			{
				Name:    "list",
				Summary: "List suppliers.",
				Run: func(e *env, _ *pflag.FlagSet, _ []string) error {
					ctx, cancel := e.ctx()
					defer cancel()
					suppliers, err := e.api.ListSuppliers(ctx)
					if err != nil {
						return failed(sanitize.ActionFetch, err)
					}
					rows := make([][]string, 0, len(suppliers))
					for _, s := range suppliers {
						rows = append(rows, []string{
							fmt.Sprint(s.ID), s.Name, orDash(s.ContactName), orDash(s.Email), orDash(s.Phone),
						})
					}
					return e.emit(view{suppliers, []string{"ID", "Name", "Contact", "Email", "Phone"}, rows})
				},
			},
			{
				Name:    "create",
				Summary: "Create a supplier.",
				Flags: func(fs *pflag.FlagSet) {
					fs.String("name", "", "supplier name")
					fs.String("contact", "", "contact person")
					fs.String("email", "", "email address")
					fs.String("phone", "", "phone number")
					fs.String("address", "", "address")
					fs.String("tax-id", "", "tax number")
				},
				Run: func(e *env, fs *pflag.FlagSet, _ []string) error {
					var req model.SupplierRequest
					req.Name, _ = fs.GetString("name")
					req.ContactName, _ = fs.GetString("contact")
					req.Email, _ = fs.GetString("email")
					req.Phone, _ = fs.GetString("phone")
					req.Address, _ = fs.GetString("address")
					req.TaxID, _ = fs.GetString("tax-id")
					if req.Name == "" {
						return usageErr("--name is required")
					}

					ctx, cancel := e.ctx()
					defer cancel()
					s, err := e.api.CreateSupplier(ctx, req)
					if err != nil {
						return failed(sanitize.ActionCreate, err)
					}
					return e.emit(record(s,
						[2]string{"ID", fmt.Sprint(s.ID)},
						[2]string{"Name", s.Name},
						[2]string{"Contact", orDash(s.ContactName)},
						[2]string{"Email", orDash(s.Email)},
						[2]string{"Phone", orDash(s.Phone)},
					))
				},
			},
		},
	}
}

// parseOrderItem parses PRODUCT:QTY[:COST].
func parseOrderItem(s string) (model.PurchaseOrderItemRequest, error) {
	var it model.PurchaseOrderItemRequest
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return it, usageErr("--item %q: expected product:qty[:cost]", s)
	}
	var err error
	if it.ProductID, err = strconv.ParseInt(parts[0], 10, 64); err != nil || it.ProductID <= 0 {
		return it, usageErr("--item %q: invalid product id", s)
	}
	if it.Quantity, err = strconv.Atoi(parts[1]); err != nil || it.Quantity <= 0 {
		return it, usageErr("--item %q: invalid quantity", s)
	}
	if len(parts) == 3 {
		if it.UnitCost, err = decimal.NewFromString(parts[2]); err != nil || it.UnitCost.IsNegative() {
			return it, usageErr("--item %q: invalid cost", s)
		}
	}
	return it, nil
}

func ordersCmd() *Command {
	transition := func(call func(e *env, id int64) (*model.PurchaseOrder, error)) func(*env, *pflag.FlagSet, []string) error {
		return func(e *env, _ *pflag.FlagSet, args []string) error {
			id, err := parseID(args, "order")
			if err != nil {
				return err
			}
			po, err := call(e, id)
			if err != nil {
				return failed(sanitize.ActionUpdate, err)
			}
			e.log.Info("purchase order updated", zap.Int64("id", id), zap.String("status", po.Status))
			return e.emit(orderRecord(po))
		}
	}

	return &Command{
		Name:    "orders",
		Summary: "Manage purchase orders.",
		Subcommands: []*Command{
			{
				Name:    "list",
				Summary: "List purchase orders.",
				Flags: func(fs *pflag.FlagSet) {
					fs.String("status", "", "draft, ordered, received or cancelled")
				},
				Run: func(e *env, fs *pflag.FlagSet, _ []string) error {
					status, _ := fs.GetString("status")
					ctx, cancel := e.ctx()
					defer cancel()
					orders, err := e.api.ListPurchaseOrders(ctx, status)
					if err != nil {
						return failed(sanitize.ActionFetch, err)
					}
					rows := make([][]string, 0, len(orders))
					for _, po := range orders {
						rows = append(rows, []string{
							fmt.Sprint(po.ID), orDash(po.SupplierName), orDash(po.BranchName), po.Status,
							money(po.Total), stampPtr(po.ExpectedAt),
						})
					}
					return e.emit(view{orders, []string{"ID", "Supplier", "Branch", "Status", "Total", "Expected"}, rows})
				},
			},
			{
				Name:    "show",
				Summary: "Show a purchase order.",
				Args:    "<id>",
				Run: func(e *env, _ *pflag.FlagSet, args []string) error {
					id, err := parseID(args, "order")
					if err != nil {
						return err
					}
					ctx, cancel := e.ctx()
					defer cancel()
					po, err := e.api.GetPurchaseOrder(ctx, id)
					if err != nil {
						return failed(sanitize.ActionFetch, err)
					}
					if e.format != "table" {
						return e.emit(view{value: po})
					}
					if err := e.emit(orderRecord(po)); err != nil {
						return err
					}
					rows := make([][]string, 0, len(po.Items))
					for _, it := range po.Items {
						rows = append(rows, []string{
							orDash(it.ProductName), strconv.Itoa(it.Quantity), money(it.UnitCost),
						})
					}
					return e.emit(view{po.Items, []string{"Product", "Qty", "Unit cost"}, rows})
				},
			},
			{
				Name:    "create",
				Summary: "Create a purchase order.",
				Flags: func(fs *pflag.FlagSet) {
					fs.Int64("supplier", 0, "supplier id")
					branchFlag(fs)
					fs.StringArray("item", nil, "order line as product:qty[:cost], repeatable")
					fs.String("expected", "", "expected delivery date, YYYY-MM-DD")
					fs.String("notes", "", "notes")
					fs.Bool("draft", false, "save as a draft instead of ordering")
				},
				Run: func(e *env, fs *pflag.FlagSet, _ []string) error {
					req := model.CreatePurchaseOrderRequest{BranchID: e.branch(fs), Status: model.OrderOrdered}
					req.SupplierID, _ = fs.GetInt64("supplier")
					req.Notes, _ = fs.GetString("notes")
					if draft, _ := fs.GetBool("draft"); draft {
						req.Status = model.OrderDraft
					}
					expected, err := dateFlag(fs, "expected")
					if err != nil {
						return err
					}
					if !expected.IsZero() {
						req.ExpectedAt = &expected
					}
					items, _ := fs.GetStringArray("item")
					for _, s := range items {
						it, err := parseOrderItem(s)
						if err != nil {
							return err
						}
						req.Items = append(req.Items, it)
					}
					if req.SupplierID == 0 || req.BranchID == 0 || len(req.Items) == 0 {
						return usageErr("--supplier, --branch and at least one --item are required")
					}

					ctx, cancel := e.ctx()
					defer cancel()
					po, err := e.api.CreatePurchaseOrder(ctx, req)
					if err != nil {
						return failed(sanitize.ActionCreate, err)
					}
					return e.emit(orderRecord(po))
				},
			},
			{
				Name:    "receive",
				Summary: "Receive an order into stock.",
				Args:    "<id>",
				Run: transition(func(e *env, id int64) (*model.PurchaseOrder, error) {
					ctx, cancel := e.ctx()
					defer cancel()
					return e.api.ReceivePurchaseOrder(ctx, id)
				}),
			},
			{
				Name:    "cancel",
				Summary: "Cancel an order that has not been received.",
				Args:    "<id>",
				Run: transition(func(e *env, id int64) (*model.PurchaseOrder, error) {
					ctx, cancel := e.ctx()
					defer cancel()
					return e.api.CancelPurchaseOrder(ctx, id)
				}),
			},
		},
	}
}

func orderRecord(po *model.PurchaseOrder) view {
	return record(po,
		[2]string{"ID", fmt.Sprint(po.ID)},
		[2]string{"Supplier", orDash(po.SupplierName)},
		[2]string{"Branch", orDash(po.BranchName)},
		[2]string{"Status", po.Status},
		[2]string{"Total", money(po.Total)},
		[2]string{"Expected", stampPtr(po.ExpectedAt)},
		[2]string{"Received", stampPtr(po.ReceivedAt)},
		[2]string{"Notes", orDash(po.Notes)},
	)
}
