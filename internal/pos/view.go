package pos

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/erazemk/trgovina/internal/client"
	"github.com/erazemk/trgovina/internal/model"
)

var (
	resultColumns = []table.Column{
		{Title: "Product", Width: 26},
		{Title: "Barcode", Width: 14},
		{Title: "Price", Width: 9},
		{Title: "Stock", Width: 6},
	}
	cartColumns = []table.Column{
		{Title: "Item", Width: 22},
		{Title: "Qty", Width: 4},
		{Title: "Total", Width: 9},
	}
)

func (m *Model) setResults(products []model.Product) {
	if len(products) > searchLimit {
		products = products[:searchLimit]
	}
	m.results = products

	rows := make([]table.Row, 0, len(products))
	for _, p := range products {
		stock := "-"
		if p.Stock != nil {
			stock = strconv.Itoa(*p.Stock)
		}
		rows = append(rows, table.Row{p.Name, p.Barcode, p.Price.StringFixed(2), stock})
	}
	m.resultTbl.SetRows(rows)
	m.resultTbl.SetCursor(0)
}

func (m *Model) syncCart() {
	lines := m.cart.Lines()
	rows := make([]table.Row, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, table.Row{l.Name, strconv.Itoa(l.Quantity), l.Total().StringFixed(2)})
	}
	m.cartTbl.SetRows(rows)
	if c := m.cartTbl.Cursor(); c >= len(rows) {
		m.cartTbl.SetCursor(max(len(rows)-1, 0))
	}
}

// resize fits both tables to the terminal height, leaving room for the
// header, inputs, totals and footer.
func (m *Model) resize() {
	h := max(m.height-12, 3)
	m.resultTbl.SetHeight(h)
	m.cartTbl.SetHeight(max(h-6, 3))
	m.help.Width = m.width
}

// View implements tea.Model.
func (m Model) View() string {
	var body string
	switch m.screen {
	case screenLogin:
		body = m.loginView()
	case screenRegister:
		body = m.registerView()
	case screenPayment:
		body = m.paymentView()
	case screenReceipt:
		body = m.receiptView()
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.headerView(), body, m.statusView(), m.helpView())
}

func (m Model) headerView() string {
	t := m.themes.Active()
	title := t.DisplayName
	if m.me == nil {
		return m.styles.Header.Render(title + " · point of sale")
	}

	parts := []string{title, m.me.Username}
	if m.me.BranchName != "" {
		parts = append(parts, m.me.BranchName)
	}
	if m.shift != nil {
		parts = append(parts, "shift since "+m.shift.OpenedAt.Local().Format("15:04"))
	} else {
		parts = append(parts, "no open shift")
	}
	return m.styles.Header.Render(strings.Join(parts, " · "))
}

func (m Model) loginView() string {
	lines := []string{
		m.styles.Title.Render("Sign in"),
		"",
		m.username.View(),
		m.password.View(),
	}
	if m.busy {
		lines = append(lines, "", m.styles.Muted.Render("Signing in…"))
	}
	return m.styles.Box.Render(strings.Join(lines, "\n"))
}

func (m Model) registerView() string {
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.search.View(),
		m.resultTbl.View(),
	)

	currency := m.themes.Active().Currency
	totals := []string{
		totalLine("Items", strconv.Itoa(m.cart.Count())),
		totalLine("Subtotal", money(m.cart.Subtotal(), currency)),
	}
	if !m.cart.Discount().IsZero() {
		totals = append(totals, totalLine("Discount", "-"+money(m.cart.Discount(), currency)))
	}
	totals = append(totals,
		totalLine("Tax", money(m.cart.Tax(), currency)),
		m.styles.Title.Render(totalLine("Total", money(m.cart.Total(), currency))),
	)

	right := lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Title.Render("Cart"),
		m.cartTbl.View(),
		m.styles.Box.Render(strings.Join(totals, "\n")),
		m.alertsView(),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
}

func (m Model) alertsView() string {
	if len(m.alerts) == 0 {
		return ""
	}
	lines := []string{m.styles.Notice.Render(fmt.Sprintf("%d unread alerts", len(m.alerts)))}
	for _, a := range m.alerts {
		lines = append(lines, m.styles.Muted.Render("• "+a.Message))
	}
	return strings.Join(lines, "\n")
}

func (m Model) paymentView() string {
	currency := m.themes.Active().Currency
	cash, card := "( ) cash", "( ) card"
	if m.method == model.PaymentCash {
		cash = m.styles.Accent.Render("(•) cash")
	} else {
		card = m.styles.Accent.Render("(•) card")
	}

	lines := []string{
		m.styles.Title.Render("Payment"),
		"",
		totalLine("Total due", money(m.cart.Total(), currency)),
		"",
		cash + "   " + card,
	}
	if m.method == model.PaymentCash {
		lines = append(lines, "", m.paid.View())
		if amount, err := parseAmount(m.paid.Value()); err == nil && amount.GreaterThanOrEqual(m.cart.Total()) {
			lines = append(lines, totalLine("Change", money(amount.Sub(m.cart.Total()), currency)))
		}
	}
	if m.busy {
		lines = append(lines, "", m.styles.Muted.Render("Processing…"))
	}
	return m.styles.Box.Render(strings.Join(lines, "\n"))
}

func (m Model) receiptView() string {
	s := m.lastSale
	if s == nil {
		return ""
	}
	currency := m.themes.Active().Currency

	lines := []string{
		m.styles.Title.Render("Receipt " + s.Receipt),
		m.styles.Muted.Render(s.CreatedAt.Local().Format("2006-01-02 15:04")),
		"",
	}
	for _, it := range s.Items {
		lines = append(lines, totalLine(
			fmt.Sprintf("%d × %s", it.Quantity, it.ProductName),
			money(it.LineTotal, currency)))
	}
	lines = append(lines, "",
		totalLine("Subtotal", money(s.Subtotal, currency)))
	if !s.Discount.IsZero() {
		lines = append(lines, totalLine("Discount", "-"+money(s.Discount, currency)))
	}
	lines = append(lines,
		totalLine("Tax", money(s.Tax, currency)),
		m.styles.Title.Render(totalLine("Total", money(s.Total, currency))),
		totalLine("Paid ("+s.PaymentMethod+")", money(s.Paid, currency)),
	)
	if !s.Change.IsZero() {
		lines = append(lines, m.styles.Accent.Render(totalLine("Change", money(s.Change, currency))))
	}
	lines = append(lines, "", m.styles.Muted.Render("Press enter for the next sale."))
	return m.styles.Box.Render(strings.Join(lines, "\n"))
}

func (m Model) statusView() string {
	if m.err != "" {
		return m.styles.Error.Render(m.err)
	}
	if m.notice.Text == "" {
		return ""
	}
	switch m.notice.Level {
	case client.LevelError:
		return m.styles.Error.Render(m.notice.Text)
	case client.LevelWarning:
		return m.styles.Notice.Render(m.notice.Text)
	}
	return m.styles.Muted.Render(m.notice.Text)
}

func (m Model) helpView() string {
	switch m.screen {
	case screenRegister:
		return m.help.ShortHelpView(m.keys.registerHelp())
	case screenPayment:
		return m.help.ShortHelpView(m.keys.paymentHelp())
	}
	return m.help.ShortHelpView([]key.Binding{m.keys.NextField, m.keys.Submit, m.keys.Quit})
}

func totalLine(label, value string) string {
	const width = 34
	pad := max(width-lipgloss.Width(label)-lipgloss.Width(value), 1)
	return label + strings.Repeat(" ", pad) + value
}

func money(d decimal.Decimal, currency string) string {
	return d.StringFixed(2) + " " + currency
}
