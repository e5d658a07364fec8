package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/trgovina/internal/auth"
	"github.com/erazemk/trgovina/internal/db"
	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

const (
	testJWTSecret = "test-secret"
	testPassword  = "password1"
)

// testServer runs the real router over one company ("Acme") with a branch,
// a stocked product, a company admin, a cashier and a platform admin.
type testServer struct {
	*httptest.Server
	db      *sql.DB
	company *model.Company
	branch  *model.Branch
	product *model.Product
}

func setupTestServer(t *testing.T, opts ...func(*Config)) *testServer {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	cfg := Config{Issuer: auth.NewIssuer(testJWTSecret, 0, 0)}
	for _, opt := range opts {
		opt(&cfg)
	}
	server := httptest.NewServer(NewRouter(database, cfg))
	t.Cleanup(server.Close)

	hash := testHash(t)
	_, err := store.CreateUser(ctx, database, &model.User{
		Username:        "root",
		PasswordHash:    hash,
		IsPlatformAdmin: true,
	})
	require.NoError(t, err)

	company, err := store.CreateCompany(ctx, database, model.CreateCompanyRequest{
		Name:          "Acme",
		Plan:          model.PlanBasic,
		AdminUsername: "acme-admin",
	}, hash)
	require.NoError(t, err)

	branch, err := store.CreateBranch(ctx, database, company.ID, model.BranchRequest{
		Name:    "Acme Center",
		TaxRate: dec("0.22"),
	})
	require.NoError(t, err)

	product, err := store.CreateProduct(ctx, database, company.ID, model.ProductRequest{
		SKU:      "SKU-1",
		Barcode:  "4006381333931",
		Name:     "Coffee",
		Price:    dec("10.00"),
		Cost:     dec("6.00"),
		MinStock: 2,
	})
	require.NoError(t, err)

	_, err = store.CreateMovement(ctx, database, company.ID, nil, model.CreateMovementRequest{
		BranchID: branch.ID, ProductID: product.ID, Type: model.MovementIn, Quantity: 10,
	})
	require.NoError(t, err)

	role, err := store.CreateRole(ctx, database, company.ID, model.RoleRequest{
		Name:        "Cashier",
		Permissions: []string{model.PermSalesCreate, model.PermShiftsManage, model.PermProductsView},
	})
	require.NoError(t, err)

	_, err = store.CreateUser(ctx, database, &model.User{
		CompanyID:    &company.ID,
		BranchID:     &branch.ID,
		RoleID:       &role.ID,
		Username:     "cashier",
		PasswordHash: hash,
	})
	require.NoError(t, err)

	return &testServer{Server: server, db: database, company: company, branch: branch, product: product}
}

func testHash(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// login returns the token pair for a user with the test password.
func (s *testServer) login(t *testing.T, username string) model.TokenPair {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/api/auth/login/", "", model.LoginRequest{Username: username, Password: testPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode, "login as %s", username)
	return decode[model.TokenPair](t, resp)
}

func (s *testServer) token(t *testing.T, username string) string {
	return s.login(t, username).Access
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestLoginEndpoint(t *testing.T) {
	s := setupTestServer(t)

	t.Run("wrong password", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/auth/login/", "", model.LoginRequest{Username: "cashier", Password: "wrong"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "invalid credentials", decode[errorResponse](t, resp).Error)
	})

	t.Run("unknown user", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/auth/login/", "", model.LoginRequest{Username: "ghost", Password: testPassword})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/auth/login/", "", map[string]string{})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decode[errorResponse](t, resp)
		assert.Equal(t, "validation failed", body.Error)
		assert.Equal(t, []string{"this field is required"}, body.Fields["username"])
		assert.Contains(t, body.Fields, "password")
	})

	t.Run("success", func(t *testing.T) {
		pair := s.login(t, "cashier")
		assert.NotEmpty(t, pair.Access)
		assert.NotEmpty(t, pair.Refresh)
		require.NotNil(t, pair.User)
		assert.Equal(t, "Acme", pair.User.CompanyName)
		assert.Equal(t, "Acme Center", pair.User.BranchName)
		assert.ElementsMatch(t,
			[]string{model.PermSalesCreate, model.PermShiftsManage, model.PermProductsView},
			pair.User.Permissions)
	})
}

func TestLoginSuspendedCompany(t *testing.T) {
	s := setupTestServer(t)
	require.NoError(t, store.UpdateCompany(context.Background(), s.db, s.company.ID, model.UpdateCompanyRequest{
		Name: "Acme", Status: model.CompanyStatusSuspended,
	}))

	resp := s.do(t, http.MethodPost, "/api/auth/login/", "", model.LoginRequest{Username: "cashier", Password: testPassword})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "company account is suspended", decode[errorResponse](t, resp).Error)
}

func TestRefreshRotatesTokens(t *testing.T) {
	s := setupTestServer(t)
	pair := s.login(t, "cashier")

	resp := s.do(t, http.MethodPost, "/api/auth/refresh/", "", model.RefreshRequest{Refresh: pair.Refresh})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	next := decode[model.TokenPair](t, resp)
	assert.NotEmpty(t, next.Access)
	assert.NotEqual(t, pair.Refresh, next.Refresh)
	assert.Nil(t, next.User)

	resp = s.do(t, http.MethodGet, "/api/auth/me/", next.Access, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The old refresh token is single use.
	resp = s.do(t, http.MethodPost, "/api/auth/refresh/", "", model.RefreshRequest{Refresh: pair.Refresh})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Access tokens cannot be used to refresh, nor refresh tokens to call the API.
	resp = s.do(t, http.MethodPost, "/api/auth/refresh/", "", model.RefreshRequest{Refresh: next.Access})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = s.do(t, http.MethodGet, "/api/auth/me/", next.Refresh, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutRevokesTokens(t *testing.T) {
	s := setupTestServer(t)
	pair := s.login(t, "cashier")

	resp := s.do(t, http.MethodPost, "/api/auth/logout/", pair.Access, model.RefreshRequest{Refresh: pair.Refresh})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/auth/me/", pair.Access, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = s.do(t, http.MethodPost, "/api/auth/refresh/", "", model.RefreshRequest{Refresh: pair.Refresh})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Logging out again still succeeds.
	resp = s.do(t, http.MethodPost, "/api/auth/logout/", "", model.RefreshRequest{Refresh: pair.Refresh})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestChangePassword(t *testing.T) {
	s := setupTestServer(t)
	token := s.token(t, "cashier")

	resp := s.do(t, http.MethodPut, "/api/auth/password/", token, model.ChangePasswordRequest{
		CurrentPassword: "wrong", NewPassword: "new-password",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "current password is incorrect", decode[errorResponse](t, resp).Error)

	resp = s.do(t, http.MethodPut, "/api/auth/password/", token, model.ChangePasswordRequest{
		CurrentPassword: testPassword, NewPassword: "short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "password must be at least 8 characters", decode[errorResponse](t, resp).Error)

	resp = s.do(t, http.MethodPut, "/api/auth/password/", token, model.ChangePasswordRequest{
		CurrentPassword: testPassword, NewPassword: "new-password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/auth/login/", "", model.LoginRequest{Username: "cashier", Password: "new-password"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPermissions(t *testing.T) {
	s := setupTestServer(t)
	cashier := s.token(t, "cashier")
	admin := s.token(t, "acme-admin")
	root := s.token(t, "root")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"no token", http.MethodGet, "/api/products/", "", nil, http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/products/", "not-a-jwt", nil, http.StatusUnauthorized},
		{"cashier reads products", http.MethodGet, "/api/products/", cashier, nil, http.StatusOK},
		{"cashier cannot create products", http.MethodPost, "/api/products/", cashier,
			model.ProductRequest{SKU: "X", Name: "X"}, http.StatusForbidden},
		{"cashier cannot list users", http.MethodGet, "/api/users/", cashier, nil, http.StatusForbidden},
		{"cashier cannot view sales", http.MethodGet, "/api/sales/", cashier, nil, http.StatusForbidden},
		{"admin holds every permission", http.MethodGet, "/api/sales/", admin, nil, http.StatusOK},
		{"admin cannot manage companies", http.MethodGet, "/api/companies/", admin, nil, http.StatusForbidden},
		{"platform admin manages companies", http.MethodGet, "/api/companies/", root, nil, http.StatusOK},
		{"platform admin has no catalog", http.MethodGet, "/api/products/", root, nil, http.StatusForbidden},
		{"platform admin has no branches", http.MethodGet, "/api/branches/", root, nil, http.StatusForbidden},
		{"platform admin lists all users", http.MethodGet, "/api/users/", root, nil, http.StatusOK},
		{"anyone lists permissions", http.MethodGet, "/api/permissions/", cashier, nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestTenantIsolation(t *testing.T) {
	s := setupTestServer(t)
	root := s.token(t, "root")

	resp := s.do(t, http.MethodPost, "/api/companies/", root, model.CreateCompanyRequest{
		Name: "Rival", AdminUsername: "rival-admin", AdminPassword: testPassword,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	rival := s.token(t, "rival-admin")

	resp = s.do(t, http.MethodGet, "/api/products/"+itoa(s.product.ID)+"/", rival, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/products/", rival, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]model.Product](t, resp))

	resp = s.do(t, http.MethodGet, "/api/branches/"+itoa(s.branch.ID)+"/theme/", rival, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/inventory/movements/", rival, model.CreateMovementRequest{
		BranchID: s.branch.ID, ProductID: s.product.ID, Type: model.MovementOut, Quantity: 1,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateCompany(t *testing.T) {
	s := setupTestServer(t)
	root := s.token(t, "root")

	resp := s.do(t, http.MethodPost, "/api/companies/", root, model.CreateCompanyRequest{
		Name: "Dup", AdminUsername: "acme-admin", AdminPassword: testPassword,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/companies/", root, model.CreateCompanyRequest{
		Name: "Weak", AdminUsername: "weak-admin", AdminPassword: "123",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/companies/", root, model.CreateCompanyRequest{
		Name: "Bad Mail", Email: "not-an-email",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, []string{"must be a valid email address"}, decode[errorResponse](t, resp).Fields["email"])

	resp = s.do(t, http.MethodGet, "/api/subscriptions/?company_id="+itoa(s.company.ID), root, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	subs := decode[[]model.Subscription](t, resp)
	require.Len(t, subs, 1)
	assert.Equal(t, model.SubscriptionTrial, subs[0].Status)
}

func TestPlanLimitIsForbidden(t *testing.T) {
	s := setupTestServer(t)
	admin := s.token(t, "acme-admin")

	// The basic plan allows one branch.
	resp := s.do(t, http.MethodPost, "/api/branches/", admin, model.BranchRequest{Name: "Annex"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "plan limit reached: branches", decode[errorResponse](t, resp).Error)
}

func TestBranchValidation(t *testing.T) {
	s := setupTestServer(t)
	admin := s.token(t, "acme-admin")

	resp := s.do(t, http.MethodPut, "/api/branches/"+itoa(s.branch.ID)+"/", admin, model.BranchRequest{
		Name: "Acme Center", PrimaryColor: "blue",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, []string{"must be a colour like #1A2B3C"}, decode[errorResponse](t, resp).Fields["primary_color"])

	resp = s.do(t, http.MethodPut, "/api/branches/"+itoa(s.branch.ID)+"/", admin, model.BranchRequest{
		Name: "Acme Center", TaxRate: dec("22"),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodPut, "/api/branches/"+itoa(s.branch.ID)+"/", admin, model.BranchRequest{
		Name: "Acme Main", TaxRate: dec("0.095"), PrimaryColor: "#112233",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	branch := decode[model.Branch](t, resp)
	assert.Equal(t, "Acme Main", branch.Name)
	assert.Equal(t, "#112233", branch.PrimaryColor)
}

func TestUserManagement(t *testing.T) {
	s := setupTestServer(t)
	admin := s.token(t, "acme-admin")

	resp := s.do(t, http.MethodPost, "/api/users/", admin, model.CreateUserRequest{
		Username: "clerk", Password: testPassword, BranchID: &s.branch.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	clerk := decode[model.User](t, resp)
	require.NotNil(t, clerk.CompanyID)
	assert.Equal(t, s.company.ID, *clerk.CompanyID)

	resp = s.do(t, http.MethodPost, "/api/users/", admin, model.CreateUserRequest{
		Username: "clerk", Password: testPassword,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = s.do(t, http.MethodPut, "/api/users/"+itoa(clerk.ID)+"/password/", admin, model.ResetPasswordRequest{Password: "another-pass"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = s.do(t, http.MethodPost, "/api/auth/login/", "", model.LoginRequest{Username: "clerk", Password: "another-pass"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	me := s.login(t, "acme-admin").User
	resp = s.do(t, http.MethodDelete, "/api/users/"+itoa(me.ID)+"/", admin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodDelete, "/api/users/"+itoa(clerk.ID)+"/", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = s.do(t, http.MethodGet, "/api/users/"+itoa(clerk.ID)+"/", admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Deleting a user is recorded in the activity feed.
	resp = s.do(t, http.MethodGet, "/api/alerts/activity/", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	feed := decode[[]model.ActivityLog](t, resp)
	require.NotEmpty(t, feed)
	assert.Equal(t, "Deleted user clerk", feed[0].Message)
}

func TestUserManagerCannotGrantAdmin(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	role, err := store.CreateRole(ctx, s.db, s.company.ID, model.RoleRequest{
		Name: "HR", Permissions: []string{model.PermUsersManage},
	})
	require.NoError(t, err)
	_, err = store.CreateUser(ctx, s.db, &model.User{
		CompanyID: &s.company.ID, RoleID: &role.ID, Username: "hr", PasswordHash: testHash(t),
	})
	require.NoError(t, err)

	resp := s.do(t, http.MethodPost, "/api/users/", s.token(t, "hr"), model.CreateUserRequest{
		Username: "boss", Password: testPassword, IsAdmin: true,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestUserReports(t *testing.T) {
	s := setupTestServer(t)
	cashier := s.token(t, "cashier")
	root := s.token(t, "root")

	resp := s.do(t, http.MethodPost, "/api/user_reports/", cashier, model.UserReportRequest{
		Kind: model.ReportBug, Subject: "Scanner", Body: "Beeps twice",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	report := decode[model.UserReport](t, resp)
	assert.Equal(t, model.ReportOpen, report.Status)

	resp = s.do(t, http.MethodGet, "/api/user_reports/", cashier, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = s.do(t, http.MethodPatch, "/api/user_reports/"+itoa(report.ID)+"/", root,
		model.UserReportStatusRequest{Status: model.ReportResolved})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.ReportResolved, decode[model.UserReport](t, resp).Status)

	resp = s.do(t, http.MethodGet, "/api/user_reports/?status=resolved", root, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.UserReport](t, resp), 1)
}

func TestSaleIgnoresClientPrices(t *testing.T) {
	s := setupTestServer(t)
	body := map[string]any{
		"branch_id":      s.branch.ID,
		"payment_method": model.PaymentCard,
		"items": []map[string]any{
			{"product_id": s.product.ID, "quantity": 1, "unit_price": "0.01"},
		},
	}
	resp := s.do(t, http.MethodPost, "/api/sales/", s.token(t, "cashier"), body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	sale := decode[model.Sale](t, resp)
	require.Len(t, sale.Items, 1)
	assert.True(t, sale.Items[0].UnitPrice.Equal(dec("10")))
	assert.True(t, sale.Total.Equal(dec("12.20")))

	stock, err := store.ListStock(context.Background(), s.db, s.company.ID, s.branch.ID)
	require.NoError(t, err)
	require.Len(t, stock, 1)
	assert.Equal(t, 9, stock[0].Quantity)
}

func TestCurrentShiftNoContent(t *testing.T) {
	s := setupTestServer(t)
	resp := s.do(t, http.MethodGet, "/api/shifts/current/", s.token(t, "cashier"), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestUnknownRouteAndBadID(t *testing.T) {
	s := setupTestServer(t)
	admin := s.token(t, "acme-admin")

	resp := s.do(t, http.MethodGet, "/api/products/abc/", admin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid product id", decode[errorResponse](t, resp).Error)

	resp = s.do(t, http.MethodGet, "/api/products/999/", admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/nowhere/", admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
