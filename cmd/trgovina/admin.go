package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/sanitize"
)

func alertsCmd() *Command {
	return &Command{
		Name:    "alerts",
		Summary: "Read alerts and the activity feed.",
		Subcommands: []*Command{
			{
				Name:    "list",
				Summary: "List alerts, newest first.",
				Flags: func(fs *pflag.FlagSet) {
					fs.Int64("branch", 0, "branch id")
					fs.Bool("unread", false, "only unread alerts")
					fs.Int("limit", 50, "maximum number of alerts")
				},
				Run: func(e *env, fs *pflag.FlagSet, _ []string) error {
					var f model.AlertFilter
					f.BranchID, _ = fs.GetInt64("branch")
					f.UnreadOnly, _ = fs.GetBool("unread")
					f.Limit, _ = fs.GetInt("limit")

					ctx, cancel := e.ctx()
					defer cancel()
					alerts, err := e.api.ListAlerts(ctx, f)
					if err != nil {
						return failed(sanitize.ActionFetch, err)
					}
					rows := make([][]string, 0, len(alerts))
					for _, a := range alerts {
						rows = append(rows, []string{
							fmt.Sprint(a.ID), stamp(a.CreatedAt), a.Severity, a.Message, yesNo(a.ReadAt != nil),
						})
					}
					return e.emit(view{alerts, []string{"ID", "Time", "Severity", "Message", "Read"}, rows})
				},
			},
			{
				Name:    "read",
				Summary: "Mark an alert read.",
				Args:    "<id>",
				Run: func(e *env, _ *pflag.FlagSet, args []string) error {
					id, err := parseID(args, "alert")
					if err != nil {
						return err
					}
					ctx, cancel := e.ctx()
					defer cancel()
					if err := e.api.MarkAlertRead(ctx, id); err != nil {
						return failed(sanitize.ActionUpdate, err)
					}
					fmt.Fprintln(e.stdout, "Marked read.")
					return nil
				},
			},
			{
				Name:    "read-all",
				Summary: "Mark every alert read.",
				Run: func(e *env, _ *pflag.FlagSet, _ []string) error {
					ctx, cancel := e.ctx()
					defer cancel()
					if err := e.api.MarkAllAlertsRead(ctx); err != nil {
						return failed(sanitize.ActionUpdate, err)
					}
					fmt.Fprintln(e.stdout, "All alerts marked read.")
					return nil
				},
			},
			{
				Name:    "activity",
				Summary: "Show the company activity feed.",
				Flags: func(fs *pflag.FlagSet) {
					fs.Int("limit", 50, "maximum number of entries")
				},
				Run: func(e *env, fs *pflag.FlagSet, _ []string) error {
					limit, _ := fs.GetInt("limit")
					ctx, cancel := e.ctx()
					defer cancel()
					feed, err := e.api.ActivityFeed(ctx, limit)
					if err != nil {
						return failed(sanitize.ActionFetch, err)
					}
					rows := make([][]string, 0, len(feed))
					for _, l := range feed {
						rows = append(rows, []string{stamp(l.CreatedAt), orDash(l.Username), l.Action, l.Message})
					}
					return e.emit(view{feed, []string{"Time", "User", "Action", "Message"}, rows})
				},
			},
		},
	}
}

func reportsCmd() *Command {
	reportPeriod := func(fs *pflag.FlagSet) (model.ReportPeriod, error) {
		from, to, err := period(fs)
		if err != nil {
			return model.ReportPeriod{}, err
		}
		p := model.ReportPeriod{From: from, To: to}
		p.BranchID, _ = fs.GetInt64("branch")
		if fs.Lookup("limit") != nil {
			p.Limit, _ = fs.GetInt("limit")
		}
		return p, nil
	}

	return &Command{
		Name:    "reports",
		Summary: "Sales and inventory reports.",
		Subcommands: []*Command{
			{
				Name:    "summary",
				Summary: "Sales totals for a period (default the last 30 days).",
				Flags:   periodFlags,
				Run: func(e *env, fs *pflag.FlagSet, _ []string) error {
					p, err := reportPeriod(fs)
					if err != nil {
						return err
					}
					ctx, cancel := e.ctx()
					defer cancel()
					s, err := e.api.SalesSummary(ctx, p)
					if err != nil {
						return failed(sanitize.ActionFetch, err)
					}
					return e.emit(record(s,
						[2]string{"From", stamp(s.From)},
						[2]string{"To", stamp(s.To)},
						[2]string{"Branch", idPtr(s.BranchID)},
						[2]string{"Sales", strconv.Itoa(s.Count)},
						[2]string{"Subtotal", money(s.Subtotal)},
						[2]string{"Discount", money(s.Discount)},
						[2]string{"Tax", money(s.Tax)},
						[2]string{"Total", money(s.Total)},
						[2]string{"Cash", money(s.CashTotal)},
						[2]string{"Card", money(s.CardTotal)},
						[2]string{"Average sale", money(s.AverageSale)},
						[2]string{"Voided", strconv.Itoa(s.VoidedCount)},
					))
				},
			},
			{
				Name:    "top",
				Summary: "Best selling products for a period.",
				Flags: func(fs *pflag.FlagSet) {
					periodFlags(fs)
					fs.Int("limit", 10, "number of products")
				},
				Run: func(e *env, fs *pflag.FlagSet, _ []string) error {
					p, err := reportPeriod(fs)
					if err != nil {
						return err
					}
					ctx, cancel := e.ctx()
					defer cancel()
					top, err := e.api.TopProducts(ctx, p)
					if err != nil {
						return failed(sanitize.ActionFetch, err)
					}
					rows := make([][]string, 0, len(top))
					for i, t := range top {
						rows = append(rows, []string{strconv.Itoa(i + 1), t.Name, strconv.Itoa(t.Quantity), money(t.Revenue)})
					}
					return e.emit(view{top, []string{"#", "Product", "Sold", "Revenue"}, rows})
				},
			},
			{
				Name:    "value",
				Summary: "Stock value per branch at cost and retail price.",
				Flags: func(fs *pflag.FlagSet) {
					fs.Int64("branch", 0, "branch id")
				},
				Run: func(e *env, fs *pflag.FlagSet, _ []string) error {
					branch, _ := fs.GetInt64("branch")
					ctx, cancel := e.ctx()
					defer cancel()
					values, err := e.api.InventoryValue(ctx, branch)
					if err != nil {
						return failed(sanitize.ActionFetch, err)
					}
					rows := make([][]string, 0, len(values))
					for _, v := range values {
						rows = append(rows, []string{v.BranchName, strconv.Itoa(v.Units), money(v.CostValue), money(v.RetailValue)})
					}
					return e.emit(view{values, []string{"Branch", "Units", "Cost", "Retail"}, rows})
				},
			},
		},
	}
}

func usersCmd() *Command {
	return &Command{
		Name:    "users",
		Summary: "Manage user accounts.",
		Subcommands: []*Command{
			{
				Name:    "list",
				Summary: "List users.",
				Run: func(e *env, _ *pflag.FlagSet, _ []string) error {
					ctx, cancel := e.ctx()
					defer cancel()
					users, err := e.api.ListUsers(ctx)
					if err != nil {
						return failed(sanitize.ActionFetch, err)
					}
					rows := make([][]string, 0, len(users))
					for _, u := range users {
						rows = append(rows, []string{
							fmt.Sprint(u.ID), u.Username, orDash(u.FullName), idPtr(u.BranchID),
							orDash(u.RoleName), yesNo(u.IsAdmin),
						})
					}
					return e.emit(view{users, []string{"ID", "Username", "Name", "Branch", "Role", "Admin"}, rows})
				},
			},
			{
				Name:    "create",
				Summary: "Create a user. The password is prompted for.",
				Flags: func(fs *pflag.FlagSet) {
					fs.String("username", "", "login name")
					fs.String("name", "", "full name")
					fs.String("email", "", "email address")
					fs.Int64("branch", 0, "home branch id")
					fs.Int64("role", 0, "role id")
					fs.Bool("admin", false, "make the user a company admin")
					fs.Int64("company", 0, "company id (platform admins only)")
					fs.Bool("password-stdin", false, "read the password from stdin")
				},
				Run: func(e *env, fs *pflag.FlagSet, _ []string) error {
					var req model.CreateUserRequest
					req.Username, _ = fs.GetString("username")
					req.FullName, _ = fs.GetString("name")
					req.Email, _ = fs.GetString("email")
					req.IsAdmin, _ = fs.GetBool("admin")
					req.BranchID = optionalID(fs, "branch")
					req.RoleID = optionalID(fs, "role")
					req.CompanyID = optionalID(fs, "company")
					if req.Username == "" {
						return usageErr("--username is required")
					}

					fromStdin, _ := fs.GetBool("password-stdin")
					var err error
					if req.Password, err = e.readPassword("Password for "+req.Username+": ", fromStdin); err != nil {
						return err
					}
					if err := model.ValidatePassword(req.Password); err != nil {
						return err
					}

					ctx, cancel := e.ctx()
					defer cancel()
					u, err := e.api.CreateUser(ctx, req)
					if err != nil {
						return failed(sanitize.ActionCreate, err)
					}
					return e.emit(record(u,
						[2]string{"ID", fmt.Sprint(u.ID)},
						[2]string{"Username", u.Username},
						[2]string{"Name", orDash(u.FullName)},
						[2]string{"Branch", idPtr(u.BranchID)},
						[2]string{"Role", idPtr(u.RoleID)},
						[2]string{"Admin", yesNo(u.IsAdmin)},
					))
				},
			},
			{
				Name:    "delete",
				Summary: "Delete a user.",
				Args:    "<id>",
				Run: func(e *env, _ *pflag.FlagSet, args []string) error {
					id, err := parseID(args, "user")
					if err != nil {
						return err
					}
					ctx, cancel := e.ctx()
					defer cancel()
					if err := e.api.DeleteUser(ctx, id); err != nil {
						return failed(sanitize.ActionDelete, err)
					}
					fmt.Fprintln(e.stdout, "User deleted.")
					return nil
				},
			},
		},
	}
}

func rolesCmd() *Command {
	return &Command{
		Name:    "roles",
		Summary: "Inspect roles and permissions.",
		Subcommands: []*Command{
			{
				Name:    "list",
				Summary: "List roles.",
				Run: func(e *env, _ *pflag.FlagSet, _ []string) error {
					ctx, cancel := e.ctx()
					defer cancel()
					roles, err := e.api.ListRoles(ctx)
					if err != nil {
						return failed(sanitize.ActionFetch, err)
					}
					rows := make([][]string, 0, len(roles))
					for _, r := range roles {
						rows = append(rows, []string{fmt.Sprint(r.ID), r.Name, orDash(strings.Join(r.Permissions, ", "))})
					}
					return e.emit(view{roles, []string{"ID", "Name", "Permissions"}, rows})
				},
			},
			{
				Name:    "create",
				Summary: "Create a role.",
				Flags: func(fs *pflag.FlagSet) {
					fs.String("name", "", "role name")
					fs.StringSlice("perm", nil, "permission code, repeatable or comma separated")
				},
				Run: func(e *env, fs *pflag.FlagSet, _ []string) error {
					var req model.RoleRequest
					req.Name, _ = fs.GetString("name")
					req.Permissions, _ = fs.GetStringSlice("perm")
					if req.Name == "" {
						return usageErr("--name is required")
					}
					for _, p := range req.Permissions {
						if !model.IsPermission(p) {
							return usageErr("unknown permission %q, see 'trgovina roles permissions'", p)
						}
					}

					ctx, cancel := e.ctx()
					defer cancel()
					r, err := e.api.CreateRole(ctx, req)
					if err != nil {
						return failed(sanitize.ActionCreate, err)
					}
					return e.emit(record(r,
						[2]string{"ID", fmt.Sprint(r.ID)},
						[2]string{"Name", r.Name},
						[2]string{"Permissions", orDash(strings.Join(r.Permissions, ", "))},
					))
				},
			},
			{
				Name:    "permissions",
				Summary: "List permission codes.",
				Run: func(e *env, _ *pflag.FlagSet, _ []string) error {
					ctx, cancel := e.ctx()
					defer cancel()
					perms, err := e.api.ListPermissions(ctx)
					if err != nil {
						return failed(sanitize.ActionFetch, err)
					}
					rows := make([][]string, 0, len(perms))
					for _, p := range perms {
						rows = append(rows, []string{p.Code, p.Description})
					}
					return e.emit(view{perms, []string{"Code", "Description"}, rows})
				},
			},
		},
	}
}

func companiesCmd() *Command {
	return &Command{
		Name:    "companies",
		Summary: "Manage tenant companies (platform admins).",
		Subcommands: []*Command{
			{
				Name:    "list",
				Summary: "List companies.",
				Run: func(e *env, _ *pflag.FlagSet, _ []string) error {
					ctx, cancel := e.ctx()
					defer cancel()
					companies, err := e.api.ListCompanies(ctx)
					if err != nil {
						return failed(sanitize.ActionFetch, err)
					}
					rows := make([][]string, 0, len(companies))
					for _, c := range companies {
						rows = append(rows, []string{fmt.Sprint(c.ID), c.Name, orDash(c.TaxID), c.Status, stamp(c.CreatedAt)})
					}
					return e.emit(view{companies, []string{"ID", "Name", "Tax ID", "Status", "Created"}, rows})
				},
			},
			{
				Name:    "create",
				Summary: "Create a company with a subscription and an optional admin.",
				Flags: func(fs *pflag.FlagSet) {
					fs.String("name", "", "company name")
					fs.String("tax-id", "", "tax number")
					fs.String("email", "", "contact email")
					fs.String("phone", "", "contact phone")
					fs.String("plan", model.PlanBasic, "basic, pro or enterprise")
					fs.String("admin-user", "", "username of the company admin to create")
					fs.Bool("password-stdin", false, "read the admin password from stdin")
				},
				Run: func(e *env, fs *pflag.FlagSet, _ []string) error {
					var req model.CreateCompanyRequest
					req.Name, _ = fs.GetString("name")
					req.TaxID, _ = fs.GetString("tax-id")
					req.Email, _ = fs.GetString("email")
					req.Phone, _ = fs.GetString("phone")
					req.Plan, _ = fs.GetString("plan")
					req.AdminUsername, _ = fs.GetString("admin-user")
					if req.Name == "" {
						return usageErr("--name is required")
					}
					if req.AdminUsername != "" {
						fromStdin, _ := fs.GetBool("password-stdin")
						var err error
						if req.AdminPassword, err = e.readPassword("Password for "+req.AdminUsername+": ", fromStdin); err != nil {
							return err
						}
						if err := model.ValidatePassword(req.AdminPassword); err != nil {
							return err
						}
					}

					ctx, cancel := e.ctx()
					defer cancel()
					c, err := e.api.CreateCompany(ctx, req)
					if err != nil {
						return failed(sanitize.ActionCreate, err)
					}
					return e.emit(record(c,
						[2]string{"ID", fmt.Sprint(c.ID)},
						[2]string{"Name", c.Name},
						[2]string{"Tax ID", orDash(c.TaxID)},
						[2]string{"Status", c.Status},
					))
				},
			},
		},
	}
}

func usageCmd() *Command {
	return &Command{
		Name:    "usage",
		Summary: "Show every company's usage against its plan (platform admins).",
		Run: func(e *env, _ *pflag.FlagSet, _ []string) error {
			ctx, cancel := e.ctx()
			defer cancel()
			usage, err := e.api.PlatformUsage(ctx)
			if err != nil {
				return failed(sanitize.ActionFetch, err)
			}
			rows := make([][]string, 0, len(usage))
			for _, u := range usage {
				rows = append(rows, []string{
					u.CompanyName, orDash(u.Plan), u.Status,
					usageCell(u.Branches), usageCell(u.Users), usageCell(u.Products),
					strconv.Itoa(u.Sales30d), money(u.Revenue30d),
				})
			}
			return e.emit(view{usage, []string{"Company", "Plan", "Status", "Branches", "Users", "Products", "Sales 30d", "Revenue 30d"}, rows})
		},
	}
}

func usageCell(u model.Usage) string {
	if u.Limit == 0 {
		return strconv.Itoa(u.Used)
	}
	s := fmt.Sprintf("%d/%d", u.Used, u.Limit)
	if u.Exceeded() {
		s += " !"
	}
	return s
}

func feedbackCmd() *Command {
	return &Command{
		Name:    "feedback",
		Summary: "Send a bug report or suggestion to the platform operators.",
		Flags: func(fs *pflag.FlagSet) {
			fs.String("kind", model.ReportBug, "bug, suggestion or other")
			fs.String("subject", "", "one line summary")
			fs.String("body", "", "details (default: read from stdin)")
		},
		Run: func(e *env, fs *pflag.FlagSet, _ []string) error {
			var req model.UserReportRequest
			req.Kind, _ = fs.GetString("kind")
			req.Subject, _ = fs.GetString("subject")
			req.Body, _ = fs.GetString("body")
			if req.Subject == "" {
				return usageErr("--subject is required")
			}
			if req.Body == "" {
				line, err := e.prompt("Details: ")
				if err != nil {
					return err
				}
				req.Body = line
			}

			ctx, cancel := e.ctx()
			defer cancel()
			r, err := e.api.CreateUserReport(ctx, req)
			if err != nil {
				return failed(sanitize.ActionCreate, err)
			}
			fmt.Fprintf(e.stdout, "Thanks, report #%d was sent.\n", r.ID)
			return nil
		},
	}
}
