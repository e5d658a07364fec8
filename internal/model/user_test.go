package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMeCan(t *testing.T) {
	tests := []struct {
		name string
		me   *Me
		perm string
		want bool
	}{
		{"nil user", nil, PermSalesCreate, false},
		{"admin has everything", &Me{User: User{IsAdmin: true}}, PermRolesManage, true},
		{"granted", &Me{Permissions: []string{PermSalesCreate, PermSalesView}}, PermSalesView, true},
		{"not granted", &Me{Permissions: []string{PermSalesCreate}}, PermSalesVoid, false},
		// Platform admins are not company admins.
		{"platform admin without company", &Me{User: User{IsPlatformAdmin: true}}, PermSalesCreate, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.me.Can(tt.perm))
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"1234567", true},
		{"12345678", false},
		{"a-valid-password", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		assert.Equal(t, tt.wantErr, err != nil, "ValidatePassword(%q)", tt.password)
	}
}

func TestIsPermission(t *testing.T) {
	assert.True(t, IsPermission(PermInventoryManage))
	assert.False(t, IsPermission("inventory.delete"))
	assert.False(t, IsPermission(""))
}

func TestUsageExceeded(t *testing.T) {
	assert.False(t, Usage{Used: 0, Limit: 0}.Exceeded(), "zero limit is unlimited")
	assert.False(t, Usage{Used: 4, Limit: 5}.Exceeded())
	assert.True(t, Usage{Used: 5, Limit: 5}.Exceeded())
}

func TestPlanLimits(t *testing.T) {
	b, u, p := PlanLimits(PlanBasic)
	assert.Equal(t, []int{1, 5, 500}, []int{b, u, p})

	b, u, p = PlanLimits(PlanEnterprise)
	assert.Equal(t, []int{0, 0, 0}, []int{b, u, p})
}

func TestComputeTotals(t *testing.T) {
	d := decimal.RequireFromString
	tests := []struct {
		name                        string
		subtotal, discount, rate    string
		wantNet, wantTax, wantTotal string
	}{
		{"no tax", "10.00", "0", "0", "10", "0", "10"},
		{"tax", "10.00", "0", "0.22", "10", "2.2", "12.2"},
		{"discount", "10.00", "2.00", "0.22", "8", "1.76", "9.76"},
		{"rounded", "0.99", "0", "0.095", "0.99", "0.09", "1.08"},
		{"discount above subtotal", "5", "9", "0.22", "0", "0", "0"},
		{"negative discount", "5", "-1", "0", "5", "0", "5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net, tax, total := ComputeTotals(d(tt.subtotal), d(tt.discount), d(tt.rate))
			assert.True(t, d(tt.wantNet).Equal(net), "net %s", net)
			assert.True(t, d(tt.wantTax).Equal(tax), "tax %s", tax)
			assert.True(t, d(tt.wantTotal).Equal(total), "total %s", total)
		})
	}
}
