package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/sanitize"
)

func periodFlags(fs *pflag.FlagSet) {
	branchFlag(fs)
	fs.String("from", "", "first day, YYYY-MM-DD")
	fs.String("to", "", "last day, YYYY-MM-DD")
}

// period reads --from and --to. The last day is inclusive.
func period(fs *pflag.FlagSet) (from, to time.Time, err error) {
	if from, err = dateFlag(fs, "from"); err != nil {
		return
	}
	if to, err = dateFlag(fs, "to"); err != nil {
		return
	}
	if !to.IsZero() {
		to = to.AddDate(0, 0, 1)
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		err = usageErr("--from must not be after --to")
	}
	return
}

func salesCmd() *Command {
	return &Command{
		Name:    "sales",
		Summary: "Browse and void sales.",
		Subcommands: []*Command{
			{
				Name:    "list",
				Summary: "List sales, newest first.",
				Flags: func(fs *pflag.FlagSet) {
					periodFlags(fs)
					fs.String("status", "", "completed or voided")
					fs.Int("limit", 50, "maximum number of sales")
				},
				Run: func(e *env, fs *pflag.FlagSet, _ []string) error {
					from, to, err := period(fs)
					if err != nil {
						return err
					}
					f := model.SaleFilter{BranchID: e.branch(fs), From: from, To: to}
					f.Status, _ = fs.GetString("status")
					f.Limit, _ = fs.GetInt("limit")

					ctx, cancel := e.ctx()
					defer cancel()
					sales, err := e.api.ListSales(ctx, f)
					if err != nil {
						return failed(sanitize.ActionFetch, err)
					}
					rows := make([][]string, 0, len(sales))
					for _, s := range sales {
						rows = append(rows, []string{
							fmt.Sprint(s.ID), s.Receipt, stamp(s.CreatedAt), orDash(s.Cashier),
							s.PaymentMethod, money(s.Total), s.Status,
						})
					}
					return e.emit(view{sales, []string{"ID", "Receipt", "Time", "Cashier", "Payment", "Total", "Status"}, rows})
				},
			},
			{
				Name:    "show",
				Summary: "Show a sale with its items.",
				Args:    "<id>",
				Run: func(e *env, _ *pflag.FlagSet, args []string) error {
					id, err := parseID(args, "sale")
					if err != nil {
						return err
					}
					ctx, cancel := e.ctx()
					defer cancel()
					s, err := e.api.GetSale(ctx, id)
					if err != nil {
						return failed(sanitize.ActionFetch, err)
					}
					if e.format != "table" {
						return e.emit(view{value: s})
					}
					if err := e.emit(saleRecord(s)); err != nil {
						return err
					}
					rows := make([][]string, 0, len(s.Items))
					for _, it := range s.Items {
						rows = append(rows, []string{
							it.ProductName, strconv.Itoa(it.Quantity), money(it.UnitPrice), money(it.LineTotal),
						})
					}
					return e.emit(view{s.Items, []string{"Item", "Qty", "Unit", "Total"}, rows})
				},
			},
			{
				Name:    "void",
				Summary: "Void a sale and return its items to stock.",
				Args:    "<id>",
				Run: func(e *env, _ *pflag.FlagSet, args []string) error {
					id, err := parseID(args, "sale")
					if err != nil {
						return err
					}
					ctx, cancel := e.ctx()
					defer cancel()
					s, err := e.api.VoidSale(ctx, id)
					if err != nil {
						return failed(sanitize.ActionUpdate, err)
					}
					return e.emit(saleRecord(s))
				},
			},
		},
	}
}

func saleRecord(s *model.Sale) view {
	return record(s,
		[2]string{"ID", fmt.Sprint(s.ID)},
		[2]string{"Receipt", s.Receipt},
		[2]string{"Branch", orDash(s.BranchName)},
		[2]string{"Cashier", orDash(s.Cashier)},
		[2]string{"Time", stamp(s.CreatedAt)},
		[2]string{"Payment", s.PaymentMethod},
		[2]string{"Subtotal", money(s.Subtotal)},
		[2]string{"Discount", money(s.Discount)},
		[2]string{"Tax", money(s.Tax)},
		[2]string{"Total", money(s.Total)},
		[2]string{"Paid", money(s.Paid)},
		[2]string{"Change", money(s.Change)},
		[2]string{"Status", s.Status},
		[2]string{"Voided", stampPtr(s.VoidedAt)},
	)
}

func shiftsCmd() *Command {
	return &Command{
		Name:    "shifts",
		Summary: "Open and close cashier shifts.",
		Subcommands: []*Command{
			{
				Name:    "list",
				Summary: "List shifts.",
				Flags:   branchFlag,
				Run: func(e *env, fs *pflag.FlagSet, _ []string) error {
					ctx, cancel := e.ctx()
					defer cancel()
					shifts, err := e.api.ListShifts(ctx, e.branch(fs))
					if err != nil {
						return failed(sanitize.ActionFetch, err)
					}
					rows := make([][]string, 0, len(shifts))
					for _, s := range shifts {
						rows = append(rows, []string{
							fmt.Sprint(s.ID), orDash(s.BranchName), orDash(s.Username), s.Status,
							stamp(s.OpenedAt), stampPtr(s.ClosedAt), moneyPtr(s.Difference),
						})
					}
					return e.emit(view{shifts, []string{"ID", "Branch", "Cashier", "Status", "Opened", "Closed", "Difference"}, rows})
				},
			},
			{
				Name:    "current",
				Summary: "Show your open shift.",
				Run: func(e *env, _ *pflag.FlagSet, _ []string) error {
					ctx, cancel := e.ctx()
					defer cancel()
					s, err := e.api.CurrentShift(ctx)
					if err != nil {
						return failed(sanitize.ActionFetch, err)
					}
					if s == nil {
						fmt.Fprintln(e.stdout, "No open shift.")
						return nil
					}
					return e.emit(shiftRecord(s))
				},
			},
			{
				Name:    "open",
				Summary: "Open a shift.",
				Flags: func(fs *pflag.FlagSet) {
					branchFlag(fs)
					fs.String("cash", "0", "cash in the drawer")
				},
				Run: func(e *env, fs *pflag.FlagSet, _ []string) error {
					req := model.OpenShiftRequest{BranchID: e.branch(fs)}
					var err error
					if req.OpeningCash, err = decimalFlag(fs, "cash"); err != nil {
						return err
					}
					if req.BranchID == 0 {
						return usageErr("--branch is required")
					}

					ctx, cancel := e.ctx()
					defer cancel()
					s, err := e.api.OpenShift(ctx, req)
					if err != nil {
						return failed(sanitize.ActionCreate, err)
					}
					return e.emit(shiftRecord(s))
				},
			},
			{
				Name:    "close",
				Summary: "Close a shift and count the drawer.",
				Args:    "<id>",
				Flags: func(fs *pflag.FlagSet) {
					fs.String("cash", "", "counted cash in the drawer")
					fs.String("notes", "", "notes")
				},
				Run: func(e *env, fs *pflag.FlagSet, args []string) error {
					id, err := parseID(args, "shift")
					if err != nil {
						return err
					}
					var req model.CloseShiftRequest
					if req.ClosingCash, err = decimalFlag(fs, "cash"); err != nil {
						return err
					}
					req.Notes, _ = fs.GetString("notes")

					ctx, cancel := e.ctx()
					defer cancel()
					s, err := e.api.CloseShift(ctx, id, req)
					if err != nil {
						return failed(sanitize.ActionUpdate, err)
					}
					return e.emit(shiftRecord(s))
				},
			},
		},
	}
}

func shiftRecord(s *model.Shift) view {
	return record(s,
		[2]string{"ID", fmt.Sprint(s.ID)},
		[2]string{"Branch", orDash(s.BranchName)},
		[2]string{"Cashier", orDash(s.Username)},
		[2]string{"Status", s.Status},
		[2]string{"Opened", stamp(s.OpenedAt)},
		[2]string{"Opening cash", money(s.OpeningCash)},
		[2]string{"Closed", stampPtr(s.ClosedAt)},
		[2]string{"Closing cash", moneyPtr(s.ClosingCash)},
		[2]string{"Expected cash", moneyPtr(s.ExpectedCash)},
		[2]string{"Difference", moneyPtr(s.Difference)},
		[2]string{"Notes", orDash(s.Notes)},
	)
}
