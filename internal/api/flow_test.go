package api

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/erazemk/trgovina/internal/client"
	"github.com/erazemk/trgovina/internal/model"
)

// newClient logs a user in through the real API client.
func (s *testServer) newClient(t *testing.T, username string) *client.Client {
	t.Helper()
	c := client.New(client.Config{BaseURL: s.URL + "/api", Timeout: 5 * time.Second})
	_, err := c.Login(context.Background(), username, testPassword)
	require.NoError(t, err)
	return c
}

func testPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSaleFlowThroughClient(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	c := s.newClient(t, "cashier")

	shift, err := c.CurrentShift(ctx)
	require.NoError(t, err)
	assert.Nil(t, shift)

	// Cash sales need an open shift.
	_, err = c.CreateSale(ctx, model.CreateSaleRequest{
		BranchID: s.branch.ID, PaymentMethod: model.PaymentCash, Paid: dec("100"),
		Items: []model.SaleItemRequest{{ProductID: s.product.ID, Quantity: 1}},
	})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	shift, err = c.OpenShift(ctx, model.OpenShiftRequest{BranchID: s.branch.ID, OpeningCash: dec("10")})
	require.NoError(t, err)
	assert.Equal(t, model.ShiftOpen, shift.Status)

	_, err = c.OpenShift(ctx, model.OpenShiftRequest{BranchID: s.branch.ID})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)

	product, err := c.ProductByBarcode(ctx, "4006381333931")
	require.NoError(t, err)
	require.NotNil(t, product.Stock)
	assert.Equal(t, 10, *product.Stock)

	_, err = c.CreateSale(ctx, model.CreateSaleRequest{
		BranchID: s.branch.ID, PaymentMethod: model.PaymentCash, Paid: dec("5"),
		Items: []model.SaleItemRequest{{ProductID: product.ID, Quantity: 1}},
	})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "insufficient payment: 5.00 paid, 12.20 due", apiErr.Message)

	_, err = c.CreateSale(ctx, model.CreateSaleRequest{
		BranchID: s.branch.ID, PaymentMethod: model.PaymentCard,
		Items: []model.SaleItemRequest{{ProductID: product.ID, Quantity: 11}},
	})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	sale, err := c.CreateSale(ctx, model.CreateSaleRequest{
		BranchID: s.branch.ID, PaymentMethod: model.PaymentCash, Paid: dec("30"),
		Items: []model.SaleItemRequest{{ProductID: product.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.True(t, dec("24.40").Equal(sale.Total), "total %s", sale.Total)
	assert.True(t, dec("5.60").Equal(sale.Change), "change %s", sale.Change)
	require.Len(t, sale.Items, 1)

	product, err = c.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	require.NotNil(t, product.Stock)
	assert.Equal(t, 8, *product.Stock)

	// Cashiers cannot void.
	_, err = c.VoidSale(ctx, sale.ID)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	closed, err := c.CloseShift(ctx, shift.ID, model.CloseShiftRequest{ClosingCash: dec("34.40")})
	require.NoError(t, err)
	assert.Equal(t, model.ShiftClosed, closed.Status)
	require.NotNil(t, closed.Difference)
	assert.True(t, closed.Difference.IsZero(), "difference %s", closed.Difference)

	// The admin voids the sale and the stock comes back.
	admin := s.newClient(t, "acme-admin")
	voided, err := admin.VoidSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SaleVoided, voided.Status)

	product, err = admin.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, *product.Stock)

	summary, err := admin.SalesSummary(ctx, model.ReportPeriod{})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Count)
	assert.Equal(t, 1, summary.VoidedCount)
}

func TestLowStockAndOversell(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	admin := s.newClient(t, "acme-admin")

	low, err := admin.LowStock(ctx, s.branch.ID)
	require.NoError(t, err)
	assert.Empty(t, low)

	_, err = admin.CreateMovement(ctx, model.CreateMovementRequest{
		BranchID: s.branch.ID, ProductID: s.product.ID, Type: model.MovementOut, Quantity: 9,
	})
	require.NoError(t, err)

	low, err = admin.LowStock(ctx, s.branch.ID)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, 1, low[0].Quantity)

	_, err = admin.CreateMovement(ctx, model.CreateMovementRequest{
		BranchID: s.branch.ID, ProductID: s.product.ID, Type: model.MovementOut, Quantity: 5,
	})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestBrandingUpload(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	admin := s.newClient(t, "acme-admin")

	branch, err := admin.UpdateBranding(ctx, s.branch.ID, client.Branding{
		PrimaryColor: "#112233",
		Logo:         &client.Upload{Name: "logo.png", Data: bytes.NewReader(testPNG(t, 800, 400, color.NRGBA{R: 200, A: 128}))},
		Favicon:      &client.Upload{Name: "icon.png", Data: bytes.NewReader(testPNG(t, 32, 32, color.White))},
	})
	require.NoError(t, err)
	assert.Equal(t, "#112233", branch.PrimaryColor)

	theme, err := admin.BranchTheme(ctx, s.branch.ID)
	require.NoError(t, err)
	assert.Equal(t, "#112233", theme.PrimaryColor)
	assert.NotEmpty(t, theme.LogoURL)
	assert.NotEmpty(t, theme.FaviconURL)

	logo, mime, err := admin.BranchLogo(ctx, s.branch.ID)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	cfg, err := png.DecodeConfig(bytes.NewReader(logo))
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.Width)
	assert.Equal(t, 256, cfg.Height)

	icon, _, err := admin.BranchFavicon(ctx, s.branch.ID)
	require.NoError(t, err)
	cfg, err = png.DecodeConfig(bytes.NewReader(icon))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)

	// Cashiers can read the theme but not change it.
	cashier := s.newClient(t, "cashier")
	_, err = cashier.BranchTheme(ctx, s.branch.ID)
	require.NoError(t, err)
	_, err = cashier.UpdateBranding(ctx, s.branch.ID, client.Branding{PrimaryColor: "#000000"})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
}

func TestBrandingRejectsBadInput(t *testing.T) {
	s := setupTestServer(t)
	token := s.token(t, "acme-admin")

	post := func(t *testing.T, field, filename string, data []byte, colour string) *http.Response {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		if colour != "" {
			require.NoError(t, mw.WriteField("primary_color", colour))
		}
		if field != "" {
			fw, err := mw.CreateFormFile(field, filename)
			require.NoError(t, err)
			_, err = fw.Write(data)
			require.NoError(t, err)
		}
		require.NoError(t, mw.Close())

		req, err := http.NewRequest(http.MethodPost, s.URL+"/api/branches/"+itoa(s.branch.ID)+"/branding/", &body)
		require.NoError(t, err)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := post(t, "logo", "logo.txt", []byte("definitely not an image"), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "image must be a JPEG or PNG", decode[errorResponse](t, resp).Error)

	resp = post(t, "", "", nil, "red")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[errorResponse](t, resp).Fields, "primary_color")

	resp = s.do(t, http.MethodGet, "/api/branches/"+itoa(s.branch.ID)+"/logo/", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProductImage(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	admin := s.newClient(t, "acme-admin")

	product, err := admin.UploadProductImage(ctx, s.product.ID, client.Upload{
		Name: "coffee.png",
		Data: bytes.NewReader(testPNG(t, 2048, 1024, color.Black)),
	})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", product.ImageMime)

	resp := s.do(t, http.MethodGet, "/api/products/"+itoa(s.product.ID)+"/image", s.token(t, "cashier"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	assert.Equal(t, "private, max-age=3600", resp.Header.Get("Cache-Control"))
	cfg, _, err := image.DecodeConfig(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Width)
	assert.Equal(t, 512, cfg.Height)
}

func TestHealthAndMetrics(t *testing.T) {
	s := setupTestServer(t)

	resp := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/auth/me/", s.token(t, "cashier"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	s.do(t, http.MethodGet, "/api/nowhere/", "", nil)

	resp = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `trgovina_http_requests_total{code="200",route="GET /api/auth/me/{$}"} 1`)
	assert.Contains(t, text, `route="unmatched"`)
	assert.Contains(t, text, "trgovina_http_request_duration_seconds_bucket")
}

func TestRequestIDHeader(t *testing.T) {
	s := setupTestServer(t)

	req, err := http.NewRequest(http.MethodGet, s.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(headerRequestID, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(headerRequestID))

	resp = s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Len(t, resp.Header.Get(headerRequestID), 36)
}

func TestLoginRateLimit(t *testing.T) {
	s := setupTestServer(t, func(cfg *Config) {
		cfg.LoginRate = rate.Every(time.Minute)
		cfg.LoginBurst = 2
	})

	bad := model.LoginRequest{Username: "cashier", Password: "wrong"}
	for range 2 {
		resp := s.do(t, http.MethodPost, "/api/auth/login/", "", bad)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp := s.do(t, http.MethodPost, "/api/auth/login/", "", bad)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
	assert.True(t, strings.HasPrefix(decode[errorResponse](t, resp).Error, "too many login attempts"))

	// Other endpoints are not limited.
	resp = s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
