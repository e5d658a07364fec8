// Package pos is the terminal point of sale: sign in, find products by
// search or barcode scan, build a cart and ring it up.
package pos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erazemk/trgovina/internal/barcode"
	"github.com/erazemk/trgovina/internal/cart"
	"github.com/erazemk/trgovina/internal/client"
	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/sanitize"
	"github.com/erazemk/trgovina/internal/session"
	"github.com/erazemk/trgovina/internal/theme"
)

// Backend is the part of the API the POS uses. *client.Client satisfies it.
type Backend interface {
	Login(ctx context.Context, username, password string) (*model.TokenPair, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*model.Me, error)
	ListProducts(ctx context.Context, f model.ProductFilter) ([]model.Product, error)
	ProductByBarcode(ctx context.Context, code string) (*model.Product, error)
	CreateSale(ctx context.Context, req model.CreateSaleRequest) (*model.Sale, error)
	BranchTheme(ctx context.Context, id int64) (*model.Theme, error)
	CurrentShift(ctx context.Context) (*model.Shift, error)
	ListAlerts(ctx context.Context, f model.AlertFilter) ([]model.Alert, error)
}

var _ Backend = (*client.Client)(nil)

// DefaultSearchDebounce is how long the search text must stay unchanged
// before a search is sent.
const DefaultSearchDebounce = 300 * time.Millisecond

const (
	requestTimeout = 15 * time.Second
	searchLimit    = 20
	alertLimit     = 5
)

// Config tunes the POS. Zero values select the defaults.
type Config struct {
	Scanner        barcode.Config
	SearchDebounce time.Duration
	// Session, when set, receives the signed-in user and branch, and a
	// signed-in session skips the login screen.
	Session *session.Store
	Logger  *zap.Logger
}

type screen int

const (
	screenLogin screen = iota
	screenRegister
	screenPayment
	screenReceipt
)

// NoticeMsg carries a client notice (failed call, missing permission) to
// the status line. Send it with tea.Program.Send from the client notifier.
type NoticeMsg client.Notice

// SessionExpiredMsg returns the POS to the login screen.
type SessionExpiredMsg struct{}

type loginMsg struct {
	me  *model.Me
	err error
}

type themeMsg struct {
	theme *model.Theme
	err   error
}

type shiftMsg struct {
	shift *model.Shift
	err   error
}

type alertsMsg struct {
	alerts []model.Alert
	err    error
}

// searchTickMsg fires when the debounce delay of search number seq ends.
type searchTickMsg struct{ seq int }

type searchMsg struct {
	seq      int
	products []model.Product
	err      error
}

// scanTickMsg fires when the scanner's fallback flush may be due.
type scanTickMsg struct{ at time.Time }

type scanMsg struct {
	code    string
	product *model.Product
	err     error
}

type saleMsg struct {
	sale *model.Sale
	err  error
}

type logoutMsg struct{ err error }

// Model is the POS program state.
type Model struct {
	backend  Backend
	session  *session.Store
	log      *zap.Logger
	keys     KeyMap
	help     help.Model
	now      func() time.Time
	debounce time.Duration

	screen        screen
	width, height int
	themes        *theme.Store
	styles        theme.Styles
	busy          bool

	username   textinput.Model
	password   textinput.Model
	loginFocus int

	me       *model.Me
	branchID int64
	shift    *model.Shift
	alerts   []model.Alert

	search    textinput.Model
	searchSeq int
	results   []model.Product
	resultTbl table.Model
	cart      *cart.Cart
	cartTbl   table.Model
	scanner   *barcode.Detector

	paid     textinput.Model
	method   string
	lastSale *model.Sale

	notice client.Notice
	err    string
}

// New returns the POS model.
func New(backend Backend, cfg Config) Model {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	debounce := cfg.SearchDebounce
	if debounce <= 0 {
		debounce = DefaultSearchDebounce
	}

	username := textinput.New()
	username.Prompt = "Username: "
	username.CharLimit = 50
	username.Focus()

	password := textinput.New()
	password.Prompt = "Password: "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	search := textinput.New()
	search.Prompt = "Search or scan: "
	search.Placeholder = "name, SKU or barcode"
	search.CharLimit = 100

	paid := textinput.New()
	paid.Prompt = "Amount paid: "
	paid.CharLimit = 12

	styles := theme.NewStyles(theme.Default())
	m := Model{
		backend:  backend,
		session:  cfg.Session,
		log:      log,
		keys:     DefaultKeyMap,
		help:     help.New(),
		now:      time.Now,
		debounce: debounce,
		themes:   theme.NewStore(),
		styles:   styles,
		username: username,
		password: password,
		search:   search,
		paid:     paid,
		method:   model.PaymentCash,
		cart:     cart.New(),
		scanner:  barcode.NewDetector(cfg.Scanner),
		resultTbl: table.New(
			table.WithColumns(resultColumns),
			table.WithHeight(10),
			table.WithFocused(true),
			table.WithStyles(styles.Table()),
		),
		cartTbl: table.New(
			table.WithColumns(cartColumns),
			table.WithHeight(10),
			table.WithFocused(true),
			table.WithStyles(styles.Table()),
		),
	}
	if cfg.Session != nil {
		if me := cfg.Session.User(); me != nil {
			m.username.SetValue(me.Username)
		}
	}
	return m
}

// Init resumes a stored session, if there is one.
func (m Model) Init() tea.Cmd {
	if m.session != nil && m.session.LoggedIn() {
		return m.call(func(ctx context.Context) tea.Msg {
			me, err := m.backend.Me(ctx)
			return loginMsg{me: me, err: err}
		})
	}
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		switch m.screen {
		case screenLogin:
			return m.updateLogin(msg)
		case screenRegister:
			return m.updateRegister(msg)
		case screenPayment:
			return m.updatePayment(msg)
		case screenReceipt:
			return m.updateReceipt(msg)
		}
		return m, nil

	case NoticeMsg:
		m.notice = client.Notice(msg)
		return m, nil

	case SessionExpiredMsg:
		m = m.signOut()
		m.err = client.SessionExpiredMessage
		return m, nil

	case loginMsg:
		return m.handleLogin(msg)

	case themeMsg:
		m.applyTheme(msg)
		return m, nil

	case shiftMsg:
		if msg.err != nil {
			m.log.Warn("loading current shift", zap.Error(msg.err))
			return m, nil
		}
		m.shift = msg.shift
		return m, nil

	case alertsMsg:
		if msg.err != nil {
			m.log.Warn("loading alerts", zap.Error(msg.err))
			return m, nil
		}
		m.alerts = msg.alerts
		return m, nil

	case searchTickMsg:
		if msg.seq != m.searchSeq {
			return m, nil
		}
		query := strings.TrimSpace(m.search.Value())
		if query == "" {
			m.setResults(nil)
			return m, nil
		}
		return m, m.searchCmd(query, msg.seq)

	case searchMsg:
		if msg.seq != m.searchSeq {
			return m, nil
		}
		if msg.err != nil {
			return m.fail(msg.err, sanitize.ActionFetch), nil
		}
		m.setResults(msg.products)
		return m, nil

	case scanTickMsg:
		if m.screen != screenRegister {
			return m, nil
		}
		if code, ok := m.scanner.Expire(msg.at); ok {
			m.trimScan(code)
			return m, m.lookupCmd(code)
		}
		return m, nil

	case scanMsg:
		return m.handleScan(msg), nil

	case saleMsg:
		return m.handleSale(msg)

	case logoutMsg:
		if msg.err != nil {
			m.log.Warn("logging out", zap.Error(msg.err))
		}
		m = m.signOut()
		m.notice = client.Notice{Level: client.LevelInfo, Text: "Signed out."}
		return m, nil
	}

	return m.updateFocused(msg)
}

// updateFocused forwards non-key messages such as cursor blinks to the
// focused input.
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.screen {
	case screenLogin:
		if m.loginFocus == 0 {
			m.username, cmd = m.username.Update(msg)
		} else {
			m.password, cmd = m.password.Update(msg)
		}
	case screenRegister:
		m.search, cmd = m.search.Update(msg)
	case screenPayment:
		m.paid, cmd = m.paid.Update(msg)
	}
	return m, cmd
}

func (m Model) call(fn func(ctx context.Context) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return fn(ctx)
	}
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.NextField), key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		cmd := m.focusLogin(1 - m.loginFocus)
		return m, cmd

	case key.Matches(msg, m.keys.Submit):
		if m.busy {
			return m, nil
		}
		if m.loginFocus == 0 {
			cmd := m.focusLogin(1)
			return m, cmd
		}
		username := strings.TrimSpace(m.username.Value())
		password := m.password.Value()
		if username == "" || password == "" {
			m.err = "Enter your username and password."
			return m, nil
		}
		m.busy = true
		m.err = ""
		return m, m.call(func(ctx context.Context) tea.Msg {
			pair, err := m.backend.Login(ctx, username, password)
			if err != nil {
				return loginMsg{err: err}
			}
			return loginMsg{me: pair.User}
		})
	}

	var cmd tea.Cmd
	if m.loginFocus == 0 {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m *Model) focusLogin(field int) tea.Cmd {
	m.loginFocus = field
	if field == 0 {
		m.password.Blur()
		return m.username.Focus()
	}
	m.username.Blur()
	return m.password.Focus()
}

func (m Model) handleLogin(msg loginMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	m.password.SetValue("")

	if msg.err != nil {
		m.err = client.UserMessage(msg.err, sanitize.ActionAuth)
		cmd := m.focusLogin(0)
		return m, cmd
	}
	if msg.me == nil || msg.me.BranchID == nil {
		m.err = "This account is not assigned to a branch."
		cmd := m.focusLogin(0)
		return m, cmd
	}

	m.me = msg.me
	m.branchID = *msg.me.BranchID
	m.err = ""
	m.notice = client.Notice{}
	if m.session != nil {
		if err := m.session.SetUser(m.me); err != nil {
			m.log.Warn("saving session user", zap.Error(err))
		}
		if err := m.session.SetBranch(m.branchID); err != nil {
			m.log.Warn("saving session branch", zap.Error(err))
		}
	}
	m.log.Info("signed in", zap.String("user", m.me.Username), zap.Int64("branch", m.branchID))

	m.screen = screenRegister
	m.username.Blur()
	m.password.Blur()
	branchID := m.branchID
	focus := m.search.Focus()
	return m, tea.Batch(
		focus,
		m.call(func(ctx context.Context) tea.Msg {
			t, err := m.backend.BranchTheme(ctx, branchID)
			return themeMsg{theme: t, err: err}
		}),
		m.shiftCmd(),
		m.alertsCmd(),
	)
}

func (m *Model) applyTheme(msg themeMsg) {
	if msg.err != nil {
		m.log.Warn("loading branch theme", zap.Error(msg.err))
		return
	}
	m.themes.Set(*msg.theme)
	m.themes.Activate(msg.theme.BranchID)
	m.styles = theme.NewStyles(m.themes.Active())
	m.resultTbl.SetStyles(m.styles.Table())
	m.cartTbl.SetStyles(m.styles.Table())
	m.cart.SetTaxRate(msg.theme.TaxRate)
}

func (m Model) shiftCmd() tea.Cmd {
	return m.call(func(ctx context.Context) tea.Msg {
		shift, err := m.backend.CurrentShift(ctx)
		return shiftMsg{shift: shift, err: err}
	})
}

func (m Model) alertsCmd() tea.Cmd {
	f := model.AlertFilter{BranchID: m.branchID, UnreadOnly: true, Limit: alertLimit}
	return m.call(func(ctx context.Context) tea.Msg {
		alerts, err := m.backend.ListAlerts(ctx, f)
		return alertsMsg{alerts: alerts, err: err}
	})
}

func (m Model) updateRegister(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	code, scanned := m.feedScanner(msg, barcode.FieldScanner)
	if scanned {
		m.trimScan(code)
	}
	cmds := []tea.Cmd{}
	if scanned {
		cmds = append(cmds, m.lookupCmd(code))
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		if !scanned {
			m.addSelected()
		}

	case key.Matches(msg, m.keys.Up):
		m.resultTbl.MoveUp(1)
	case key.Matches(msg, m.keys.Down):
		m.resultTbl.MoveDown(1)
	case key.Matches(msg, m.keys.CartUp):
		m.cartTbl.MoveUp(1)
	case key.Matches(msg, m.keys.CartDown):
		m.cartTbl.MoveDown(1)

	case key.Matches(msg, m.keys.Increase):
		m.changeQuantity(1)
	case key.Matches(msg, m.keys.Decrease):
		m.changeQuantity(-1)
	case key.Matches(msg, m.keys.Remove):
		if line, ok := m.selectedLine(); ok {
			m.cart.Remove(line.ProductID)
			m.syncCart()
		}
	case key.Matches(msg, m.keys.ClearCart):
		m.cart.Clear()
		m.syncCart()

	case key.Matches(msg, m.keys.Checkout):
		if m.cart.Empty() {
			m.err = "The cart is empty."
			break
		}
		cmds = append(cmds, m.openPayment())

	case key.Matches(msg, m.keys.Alerts):
		cmds = append(cmds, m.alertsCmd())

	case key.Matches(msg, m.keys.Logout):
		m.busy = true
		cmds = append(cmds, m.call(func(ctx context.Context) tea.Msg {
			return logoutMsg{err: m.backend.Logout(ctx)}
		}))

	default:
		before := m.search.Value()
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		cmds = append(cmds, cmd)
		if m.search.Value() != before {
			cmds = append(cmds, m.scheduleSearch())
		}
	}

	cmds = append(cmds, m.scanTick())
	return m, tea.Batch(cmds...)
}

// feedScanner passes a key to the barcode detector and returns a completed
// scan, if any.
func (m Model) feedScanner(msg tea.KeyMsg, field barcode.Field) (string, bool) {
	now := m.now()
	var code string
	var ok bool
	switch msg.Type {
	case tea.KeyEnter:
		code, ok = m.scanner.Feed(barcode.Event{Enter: true, At: now, Field: field})
	case tea.KeyRunes, tea.KeySpace:
		for _, r := range msg.Runes {
			if c, done := m.scanner.Feed(barcode.Event{Rune: r, At: now, Field: field}); done {
				code, ok = c, true
			}
		}
	}
	return code, ok
}

// scanTick schedules the scanner's fallback flush.
func (m Model) scanTick() tea.Cmd {
	deadline, ok := m.scanner.Deadline()
	if !ok {
		return nil
	}
	return tea.Tick(max(deadline.Sub(m.now()), 0), func(t time.Time) tea.Msg {
		return scanTickMsg{at: t}
	})
}

// trimScan removes a scanned code the scanner typed into the search input.
func (m *Model) trimScan(code string) {
	value := m.search.Value()
	if !strings.HasSuffix(value, code) {
		return
	}
	m.search.SetValue(strings.TrimSuffix(value, code))
	// Any search scheduled for the scanned characters is stale.
	m.searchSeq++
	if strings.TrimSpace(m.search.Value()) == "" {
		m.setResults(nil)
	}
}

// scheduleSearch starts the debounce delay for the current search text.
// Only the tick carrying the latest sequence number sends a request.
func (m *Model) scheduleSearch() tea.Cmd {
	m.searchSeq++
	seq := m.searchSeq
	return tea.Tick(m.debounce, func(time.Time) tea.Msg {
		return searchTickMsg{seq: seq}
	})
}

func (m Model) searchCmd(query string, seq int) tea.Cmd {
	f := model.ProductFilter{Search: query, BranchID: m.branchID, ActiveOnly: true}
	return m.call(func(ctx context.Context) tea.Msg {
		products, err := m.backend.ListProducts(ctx, f)
		return searchMsg{seq: seq, products: products, err: err}
	})
}

func (m Model) lookupCmd(code string) tea.Cmd {
	return m.call(func(ctx context.Context) tea.Msg {
		p, err := m.backend.ProductByBarcode(ctx, code)
		return scanMsg{code: code, product: p, err: err}
	})
}

func (m Model) handleScan(msg scanMsg) Model {
	if msg.err != nil {
		if client.IsNotFound(msg.err) {
			m.err = fmt.Sprintf("No product with barcode %s.", msg.code)
			return m
		}
		return m.fail(msg.err, sanitize.ActionFetch)
	}
	m.addProduct(*msg.product)
	return m
}

func (m *Model) addSelected() {
	i := m.resultTbl.Cursor()
	if i < 0 || i >= len(m.results) {
		return
	}
	m.addProduct(m.results[i])
}

func (m *Model) addProduct(p model.Product) {
	m.cart.Add(p, 1)
	m.syncCart()
	m.err = ""
	m.notice = client.Notice{Level: client.LevelInfo, Text: "Added " + p.Name + "."}
	if p.Stock != nil && *p.Stock < m.quantityOf(p.ID) {
		m.notice = client.Notice{
			Level: client.LevelWarning,
			Text:  fmt.Sprintf("Only %d of %s in stock.", *p.Stock, p.Name),
		}
	}
}

func (m Model) quantityOf(productID int64) int {
	for _, l := range m.cart.Lines() {
		if l.ProductID == productID {
			return l.Quantity
		}
	}
	return 0
}

func (m Model) selectedLine() (cart.Line, bool) {
	lines := m.cart.Lines()
	i := m.cartTbl.Cursor()
	if i < 0 || i >= len(lines) {
		return cart.Line{}, false
	}
	return lines[i], true
}

func (m *Model) changeQuantity(delta int) {
	line, ok := m.selectedLine()
	if !ok {
		return
	}
	m.cart.SetQuantity(line.ProductID, line.Quantity+delta)
	m.syncCart()
}

func (m *Model) openPayment() tea.Cmd {
	m.screen = screenPayment
	m.method = model.PaymentCash
	m.err = ""
	m.scanner.Reset()
	m.search.Blur()
	m.paid.SetValue("")
	return m.paid.Focus()
}

func (m Model) updatePayment(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The amount field is ordinary text: the detector sees the keys but
	// never takes them.
	m.feedScanner(msg, barcode.FieldText)

	switch {
	case key.Matches(msg, m.keys.Back):
		if m.busy {
			return m, nil
		}
		m.screen = screenRegister
		m.paid.Blur()
		cmd := m.search.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.NextField):
		if m.method == model.PaymentCash {
			m.method = model.PaymentCard
		} else {
			m.method = model.PaymentCash
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if m.busy {
			return m, nil
		}
		paid := m.cart.Total()
		if m.method == model.PaymentCash {
			amount, err := parseAmount(m.paid.Value())
			if err != nil {
				m.err = "Enter the amount paid."
				return m, nil
			}
			paid = amount
		}
		m.busy = true
		m.err = ""
		req := m.cart.SaleRequest(m.branchID, m.method, paid)
		return m, m.call(func(ctx context.Context) tea.Msg {
			sale, err := m.backend.CreateSale(ctx, req)
			return saleMsg{sale: sale, err: err}
		})
	}

	var cmd tea.Cmd
	m.paid, cmd = m.paid.Update(msg)
	return m, cmd
}

// parseAmount accepts a decimal comma or point.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return decimal.Zero, errors.New("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("negative amount")
	}
	return d, nil
}

func (m Model) handleSale(msg saleMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if msg.err != nil {
		return m.fail(msg.err, sanitize.ActionCreate), nil
	}

	m.log.Info("sale completed", zap.String("receipt", msg.sale.Receipt), zap.String("total", msg.sale.Total.StringFixed(2)))
	m.lastSale = msg.sale
	m.cart.Clear()
	m.syncCart()
	m.screen = screenReceipt
	m.paid.Blur()
	return m, tea.Batch(m.shiftCmd(), m.alertsCmd())
}

func (m Model) updateReceipt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, m.keys.Submit) && !key.Matches(msg, m.keys.Back) {
		return m, nil
	}
	m.screen = screenRegister
	m.search.SetValue("")
	m.searchSeq++
	m.setResults(nil)
	cmd := m.search.Focus()
	return m, cmd
}

// fail shows a sanitized error. An expired session signs the user out.
func (m Model) fail(err error, action sanitize.Action) Model {
	if errors.Is(err, client.ErrSessionExpired) {
		m = m.signOut()
	}
	m.err = client.UserMessage(err, action)
	return m
}

// signOut drops everything tied to the signed-in user.
func (m Model) signOut() Model {
	if m.session != nil {
		if err := m.session.Clear(); err != nil {
			m.log.Warn("clearing session", zap.Error(err))
		}
	}
	m.screen = screenLogin
	m.busy = false
	m.me = nil
	m.branchID = 0
	m.shift = nil
	m.alerts = nil
	m.lastSale = nil
	m.cart.Clear()
	m.cart.SetTaxRate(decimal.Zero)
	m.syncCart()
	m.search.SetValue("")
	m.search.Blur()
	m.paid.Blur()
	m.searchSeq++
	m.setResults(nil)
	m.scanner.Reset()
	m.themes.Clear()
	m.styles = theme.NewStyles(theme.Default())
	m.resultTbl.SetStyles(m.styles.Table())
	m.cartTbl.SetStyles(m.styles.Table())
	m.password.SetValue("")
	m.focusLogin(1)
	return m
}
