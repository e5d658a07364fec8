package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/erazemk/trgovina/internal/auth"
	"github.com/erazemk/trgovina/internal/store"
)

func TestIPLimiter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := newIPLimiter(rate.Every(time.Minute), 1)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"), "limits are per address")

	now = now.Add(time.Minute)
	assert.True(t, l.allow("10.0.0.1"))

	now = now.Add(idleVisitor + time.Second)
	l.allow("10.0.0.3")
	assert.Len(t, l.limiters, 1, "idle visitors are dropped")
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.7:51234"
	assert.Equal(t, "192.0.2.7", clientIP(r))

	r.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", clientIP(r))
}

func TestStoreErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("product 4 %w", store.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("username %w", store.ErrConflict), http.StatusConflict},
		{store.ErrShiftAlreadyOpen, http.StatusConflict},
		{fmt.Errorf("sale 3 %w", store.ErrInvalidState), http.StatusConflict},
		{fmt.Errorf("%w: users", store.ErrPlanLimit), http.StatusForbidden},
		{store.ErrInsufficientStock, http.StatusBadRequest},
		{store.ErrNoOpenShift, http.StatusBadRequest},
		{fmt.Errorf("%w: bad", store.ErrInvalid), http.StatusBadRequest},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			storeError(w, zap.NewNop(), tt.err, "do it")
			assert.Equal(t, tt.want, w.Code)
		})
	}

	w := httptest.NewRecorder()
	storeError(w, zap.NewNop(), errors.New("disk full"), "save product")
	assert.JSONEq(t, `{"error":"failed to save product"}`, w.Body.String())
}

func TestJSONListNeverNull(t *testing.T) {
	w := httptest.NewRecorder()
	jsonList[int](w, nil)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestRequirePermission(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := RequirePermission("sales.void")(ok)
	company := int64(1)

	tests := []struct {
		name   string
		claims *auth.Claims
		want   int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"platform admin", &auth.Claims{IsPlatformAdmin: true}, http.StatusForbidden},
		{"missing permission", &auth.Claims{CompanyID: &company, Permissions: []string{"sales.create"}}, http.StatusForbidden},
		{"granted", &auth.Claims{CompanyID: &company, Permissions: []string{"sales.void"}}, http.StatusNoContent},
		{"company admin", &auth.Claims{CompanyID: &company, IsAdmin: true}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.claims != nil {
				r = r.WithContext(context.WithValue(r.Context(), claimsKey, tt.claims))
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
