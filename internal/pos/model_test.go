package pos

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/trgovina/internal/barcode"
	"github.com/erazemk/trgovina/internal/client"
	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/session"
)

type fakeBackend struct {
	mu sync.Mutex

	me       *model.Me
	loginErr error
	products []model.Product
	saleErr  error

	searches []string
	lookups  []string
	sales    []model.CreateSaleRequest
}

func (f *fakeBackend) Login(_ context.Context, username, password string) (*model.TokenPair, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &model.TokenPair{Access: "a", Refresh: "r", User: f.me}, nil
}

func (f *fakeBackend) Logout(context.Context) error { return nil }

func (f *fakeBackend) Me(context.Context) (*model.Me, error) { return f.me, nil }

func (f *fakeBackend) ListProducts(_ context.Context, pf model.ProductFilter) ([]model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, pf.Search)
	var out []model.Product
	for _, p := range f.products {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(pf.Search)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeBackend) ProductByBarcode(_ context.Context, code string) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, code)
	for _, p := range f.products {
		if p.Barcode == code {
			return &p, nil
		}
	}
	return nil, &client.APIError{Status: 404, Message: "product not found"}
}

func (f *fakeBackend) CreateSale(_ context.Context, req model.CreateSaleRequest) (*model.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saleErr != nil {
		return nil, f.saleErr
	}
	f.sales = append(f.sales, req)
	total := decimal.RequireFromString("12.20")
	return &model.Sale{
		ID:            1,
		Receipt:       "R-000001",
		PaymentMethod: req.PaymentMethod,
		Total:         total,
		Paid:          req.Paid,
		Change:        req.Paid.Sub(total),
		Status:        model.SaleCompleted,
	}, nil
}

func (f *fakeBackend) BranchTheme(_ context.Context, id int64) (*model.Theme, error) {
	return &model.Theme{
		BranchID:       id,
		DisplayName:    "Acme Center",
		PrimaryColor:   "#112233",
		SecondaryColor: "#445566",
		Currency:       "EUR",
		TaxRate:        decimal.RequireFromString("0.22"),
	}, nil
}

func (f *fakeBackend) CurrentShift(context.Context) (*model.Shift, error) {
	return &model.Shift{ID: 1, Status: model.ShiftOpen}, nil
}

func (f *fakeBackend) ListAlerts(context.Context, model.AlertFilter) ([]model.Alert, error) {
	return []model.Alert{{ID: 1, Message: "Coffee is low at Acme Center: 1 left (minimum 2)"}}, nil
}

func testBackend() *fakeBackend {
	branch := int64(7)
	stock := 1
	return &fakeBackend{
		me: &model.Me{User: model.User{ID: 3, Username: "cashier", BranchID: &branch}},
		products: []model.Product{
			{ID: 1, Name: "Coffee", Barcode: "4006381333931", Price: decimal.NewFromInt(10), Stock: &stock},
			{ID: 2, Name: "Cocoa", Barcode: "5901234123457", Price: decimal.NewFromInt(4)},
		},
	}
}

// clock is a manually advanced time source.
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

// collect runs cmd and returns the messages it produced, expanding batches.
// Commands that do not finish quickly, such as cursor blinks, are dropped.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, collect(c)...)
			}
			return out
		}
		return []tea.Msg{msg}
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// find returns the first message of type T.
func find[T tea.Msg](t *testing.T, msgs []tea.Msg) T {
	t.Helper()
	for _, msg := range msgs {
		if m, ok := msg.(T); ok {
			return m
		}
	}
	var zero T
	t.Fatalf("no %T among %d messages", zero, len(msgs))
	return zero
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newModel(backend Backend, c *clock) Model {
	m := New(backend, Config{
		SearchDebounce: time.Millisecond,
		Scanner:        barcode.Config{FlushAfter: time.Millisecond},
		Session:        session.NewMemoryStore(),
	})
	m.now = c.now
	return m
}

// signedIn returns a model on the register screen with the branch theme
// applied.
func signedIn(t *testing.T, fb *fakeBackend, c *clock) Model {
	t.Helper()
	m := newModel(fb, c)
	m, cmd := update(t, m, loginMsg{me: fb.me})
	require.Equal(t, screenRegister, m.screen)
	for _, msg := range collect(cmd) {
		switch msg.(type) {
		case themeMsg, shiftMsg, alertsMsg:
			m, _ = update(t, m, msg)
		}
	}
	return m
}

func TestLogin(t *testing.T) {
	fb := testBackend()
	c := &clock{t: time.Now()}
	m := newModel(fb, c)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, 1, m.loginFocus, "enter on the username moves to the password")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "Enter your username and password.", m.err)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m, _ = update(t, m, runes("cashier"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(t, m, runes("password1"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.busy)
	require.NotNil(t, cmd)

	m, cmd = update(t, m, find[loginMsg](t, collect(cmd)))
	assert.Equal(t, screenRegister, m.screen)
	assert.Empty(t, m.password.Value(), "password is not kept")
	assert.Equal(t, int64(7), m.branchID)
	assert.Equal(t, int64(7), m.session.BranchID())
	assert.Equal(t, "cashier", m.session.User().Username)

	msgs := collect(cmd)
	m, _ = update(t, m, find[themeMsg](t, msgs))
	m, _ = update(t, m, find[shiftMsg](t, msgs))
	m, _ = update(t, m, find[alertsMsg](t, msgs))
	assert.Equal(t, "Acme Center", m.themes.Active().DisplayName)
	assert.NotNil(t, m.shift)
	assert.Len(t, m.alerts, 1)
	assert.Contains(t, m.View(), "Acme Center")
}

func TestLoginErrors(t *testing.T) {
	c := &clock{t: time.Now()}

	t.Run("bad credentials", func(t *testing.T) {
		fb := testBackend()
		fb.loginErr = &client.APIError{Status: 401, Message: "invalid username or password"}
		m, _ := update(t, newModel(fb, c), loginMsg{err: fb.loginErr})
		assert.Equal(t, screenLogin, m.screen)
		assert.NotEmpty(t, m.err)
		assert.False(t, m.busy)
	})

	t.Run("no branch", func(t *testing.T) {
		fb := testBackend()
		fb.me.BranchID = nil
		m, _ := update(t, newModel(fb, c), loginMsg{me: fb.me})
		assert.Equal(t, screenLogin, m.screen)
		assert.Equal(t, "This account is not assigned to a branch.", m.err)
	})
}

func TestSearchDebounce(t *testing.T) {
	fb := testBackend()
	c := &clock{t: time.Now()}
	m := signedIn(t, fb, c)

	// Slow keys are typing, not a scan.
	m, _ = update(t, m, runes("c"))
	first := m.searchSeq
	c.advance(200 * time.Millisecond)
	m, _ = update(t, m, runes("o"))
	require.Equal(t, first+1, m.searchSeq)
	assert.Equal(t, "co", m.search.Value())

	m, cmd := update(t, m, searchTickMsg{seq: first})
	assert.Nil(t, cmd, "a superseded tick sends nothing")

	m, cmd = update(t, m, searchTickMsg{seq: m.searchSeq})
	res := find[searchMsg](t, collect(cmd))
	m, _ = update(t, m, res)
	assert.Equal(t, []string{"co"}, fb.searches)
	require.Len(t, m.results, 2)

	// A response for an older query is ignored.
	m, _ = update(t, m, searchMsg{seq: first, products: fb.products[:1]})
	assert.Len(t, m.results, 2)

	// Enter adds the highlighted result.
	c.advance(200 * time.Millisecond)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	c.advance(200 * time.Millisecond)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	lines := m.cart.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "Cocoa", lines[0].Name)
	assert.Equal(t, "Added Cocoa.", m.notice.Text)
}

func TestSetResultsTruncates(t *testing.T) {
	m := New(testBackend(), Config{})
	products := make([]model.Product, searchLimit+5)
	m.setResults(products)
	assert.Len(t, m.results, searchLimit)
	assert.Len(t, m.resultTbl.Rows(), searchLimit)
}

func TestScanAddsProduct(t *testing.T) {
	fb := testBackend()
	c := &clock{t: time.Now()}
	m := signedIn(t, fb, c)

	m, _ = update(t, m, runes("4006381333931"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, m.search.Value(), "scanned digits are removed from the search box")

	m, _ = update(t, m, find[scanMsg](t, collect(cmd)))
	assert.Equal(t, []string{"4006381333931"}, fb.lookups)
	require.Len(t, m.cart.Lines(), 1)
	assert.Equal(t, "Coffee", m.cart.Lines()[0].Name)
	assert.Equal(t, "12.20", m.cart.Total().StringFixed(2), "branch tax rate applies")

	// A second scan goes past the single unit in stock.
	m, _ = update(t, m, runes("4006381333931"))
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, find[scanMsg](t, collect(cmd)))
	assert.Equal(t, 2, m.cart.Lines()[0].Quantity)
	assert.Equal(t, client.LevelWarning, m.notice.Level)
	assert.Equal(t, "Only 1 of Coffee in stock.", m.notice.Text)
}

func TestScanWithoutTerminator(t *testing.T) {
	fb := testBackend()
	c := &clock{t: time.Now()}
	m := signedIn(t, fb, c)

	m, _ = update(t, m, runes("5901234123457"))
	c.advance(time.Second)
	m, cmd := update(t, m, scanTickMsg{at: c.now()})
	require.NotNil(t, cmd)
	assert.Empty(t, m.search.Value())

	m, _ = update(t, m, find[scanMsg](t, collect(cmd)))
	require.Len(t, m.cart.Lines(), 1)
	assert.Equal(t, "Cocoa", m.cart.Lines()[0].Name)
}

func TestScanUnknownBarcode(t *testing.T) {
	fb := testBackend()
	c := &clock{t: time.Now()}
	m := signedIn(t, fb, c)

	m, _ = update(t, m, runes("0000000000000"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, find[scanMsg](t, collect(cmd)))
	assert.Equal(t, "No product with barcode 0000000000000.", m.err)
	assert.True(t, m.cart.Empty())
}

func TestCartKeys(t *testing.T) {
	fb := testBackend()
	c := &clock{t: time.Now()}
	m := signedIn(t, fb, c)
	m.addProduct(fb.products[0])

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyF3})
	assert.Equal(t, 2, m.cart.Lines()[0].Quantity)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyF2})
	assert.Equal(t, 1, m.cart.Lines()[0].Quantity)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDelete})
	assert.True(t, m.cart.Empty())
	assert.Empty(t, m.cartTbl.Rows())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyF9})
	assert.Equal(t, screenRegister, m.screen)
	assert.Equal(t, "The cart is empty.", m.err)
}

func TestCheckout(t *testing.T) {
	fb := testBackend()
	c := &clock{t: time.Now()}
	m := signedIn(t, fb, c)
	m.addProduct(fb.products[0])

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyF9})
	require.Equal(t, screenPayment, m.screen)
	assert.Equal(t, model.PaymentCash, m.method)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "Enter the amount paid.", m.err)

	m, _ = update(t, m, runes("20,00"))
	assert.Contains(t, m.View(), "Change")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.busy)

	m, _ = update(t, m, find[saleMsg](t, collect(cmd)))
	require.Len(t, fb.sales, 1)
	req := fb.sales[0]
	assert.Equal(t, int64(7), req.BranchID)
	assert.Equal(t, model.PaymentCash, req.PaymentMethod)
	assert.Equal(t, "20", req.Paid.String())
	require.Len(t, req.Items, 1)
	assert.Equal(t, int64(1), req.Items[0].ProductID)

	assert.Equal(t, screenReceipt, m.screen)
	assert.True(t, m.cart.Empty())
	assert.Contains(t, m.View(), "R-000001")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, screenRegister, m.screen)
}

func TestCheckoutByCard(t *testing.T) {
	fb := testBackend()
	c := &clock{t: time.Now()}
	m := signedIn(t, fb, c)
	m.addProduct(fb.products[0])

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyF9})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, model.PaymentCard, m.method)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, find[saleMsg](t, collect(cmd)))

	require.Len(t, fb.sales, 1)
	assert.Equal(t, model.PaymentCard, fb.sales[0].PaymentMethod)
	assert.True(t, fb.sales[0].Paid.Equal(decimal.RequireFromString("12.20")))
}

func TestPaymentBack(t *testing.T) {
	fb := testBackend()
	c := &clock{t: time.Now()}
	m := signedIn(t, fb, c)
	m.addProduct(fb.products[1])

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyF9})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, screenRegister, m.screen)
	assert.False(t, m.cart.Empty(), "going back keeps the cart")
}

func TestSaleFailureKeepsCart(t *testing.T) {
	fb := testBackend()
	fb.saleErr = &client.APIError{Status: 409, Message: "insufficient stock: Coffee"}
	c := &clock{t: time.Now()}
	m := signedIn(t, fb, c)
	m.addProduct(fb.products[0])
	m.screen = screenPayment

	m, _ = update(t, m, saleMsg{err: fb.saleErr})
	assert.Equal(t, screenPayment, m.screen)
	assert.False(t, m.busy)
	assert.NotEmpty(t, m.err)
	assert.False(t, m.cart.Empty())
}

func TestSessionExpired(t *testing.T) {
	fb := testBackend()
	c := &clock{t: time.Now()}
	m := signedIn(t, fb, c)
	m.addProduct(fb.products[0])

	m, _ = update(t, m, SessionExpiredMsg{})
	assert.Equal(t, screenLogin, m.screen)
	assert.Equal(t, client.SessionExpiredMessage, m.err)
	assert.Nil(t, m.me)
	assert.True(t, m.cart.Empty())
	assert.Nil(t, m.session.User())
	assert.Equal(t, "trgovina", m.themes.Active().DisplayName)

	// The same happens when a call fails with an expired session.
	m = signedIn(t, fb, c)
	m, _ = update(t, m, searchMsg{seq: m.searchSeq, err: fmt.Errorf("listing products: %w", client.ErrSessionExpired)})
	assert.Equal(t, screenLogin, m.screen)
	assert.Equal(t, client.SessionExpiredMessage, m.err)
}

func TestNoticeMsg(t *testing.T) {
	m := New(testBackend(), Config{})
	m, _ = update(t, m, NoticeMsg{Level: client.LevelWarning, Text: "You do not have permission to do that."})
	assert.Equal(t, client.LevelWarning, m.notice.Level)
	assert.Contains(t, m.View(), "You do not have permission to do that.")
}

func TestLogout(t *testing.T) {
	fb := testBackend()
	c := &clock{t: time.Now()}
	m := signedIn(t, fb, c)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	m, _ = update(t, m, find[logoutMsg](t, collect(cmd)))
	assert.Equal(t, screenLogin, m.screen)
	assert.Equal(t, "Signed out.", m.notice.Text)
}

func TestQuit(t *testing.T) {
	m := New(testBackend(), Config{})
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestParseAmount(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want string
		ok   bool
	}{
		{"20", "20", true},
		{"12,50", "12.5", true},
		{" 7.05 ", "7.05", true},
		{"", "", false},
		{"abc", "", false},
		{"-1", "", false},
	} {
		got, err := parseAmount(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got.String(), tt.in)
	}
}
