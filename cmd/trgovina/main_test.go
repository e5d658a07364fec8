package main

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/trgovina/internal/client"
	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/sanitize"
)

func TestRenderJSONNilSlice(t *testing.T) {
	var buf bytes.Buffer
	var branches []model.Branch
	require.NoError(t, render(&buf, "json", view{value: branches}))
	assert.Equal(t, "[]\n", buf.String())
}

func TestRenderYAMLUsesJSONNames(t *testing.T) {
	var buf bytes.Buffer
	p := &model.Product{ID: 3, SKU: "A-1", Name: "Coffee", Price: decimal.RequireFromString("2.5")}
	require.NoError(t, render(&buf, "yaml", view{value: p}))

	out := buf.String()
	assert.Contains(t, out, "sku: A-1\n")
	assert.Contains(t, out, "min_stock: 0\n")
	assert.NotContains(t, out, "{")
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	v := view{headers: []string{"ID", "Name"}, rows: [][]string{{"1", "Coffee"}, {"2", "Cocoa"}}}
	require.NoError(t, render(&buf, "table", v))
	assert.Contains(t, buf.String(), "Coffee")
	assert.Contains(t, buf.String(), "Name")

	buf.Reset()
	require.NoError(t, render(&buf, "table", view{headers: []string{"ID"}}))
	assert.Equal(t, "No results.\n", buf.String())
}

func TestParseID(t *testing.T) {
	id, err := parseID([]string{"42"}, "sale")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, args := range [][]string{nil, {"0"}, {"x"}, {"1", "2"}} {
		_, err := parseID(args, "sale")
		assert.ErrorIs(t, err, errUsage, "args %q", args)
	}
}

func TestParseOrderItem(t *testing.T) {
	it, err := parseOrderItem("5:12:1.25")
	require.NoError(t, err)
	assert.Equal(t, int64(5), it.ProductID)
	assert.Equal(t, 12, it.Quantity)
	assert.Equal(t, "1.25", it.UnitCost.String())

	it, err = parseOrderItem("5:1")
	require.NoError(t, err)
	assert.True(t, it.UnitCost.IsZero())

	for _, s := range []string{"5", "x:1", "5:0", "5:1:-2", "1:2:3:4"} {
		_, err := parseOrderItem(s)
		assert.ErrorIs(t, err, errUsage, s)
	}
}

func TestPeriodEndIsInclusive(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	periodFlags(fs)
	require.NoError(t, fs.Parse([]string{"--from", "2024-03-01", "--to", "2024-03-31"}))

	from, to, err := period(fs)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local), from)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.Local), to)

	fs = pflag.NewFlagSet("test", pflag.ContinueOnError)
	periodFlags(fs)
	require.NoError(t, fs.Parse([]string{"--from", "2024-03-05", "--to", "2024-03-01"}))
	_, _, err = period(fs)
	assert.ErrorIs(t, err, errUsage)
}

func TestErrorText(t *testing.T) {
	apiErr := &client.APIError{Status: 500, Message: "sqlite: database is locked"}
	text := errorText(failed(sanitize.ActionFetch, apiErr))
	assert.NotContains(t, text, "sqlite")
	assert.Contains(t, text, "error: ")

	assert.Equal(t, "error: boom", errorText(errors.New("boom")))
	assert.Contains(t, errorText(fmt.Errorf("listing: %w", client.ErrSessionExpired)), client.SessionExpiredMessage)
}

func TestUsageCell(t *testing.T) {
	assert.Equal(t, "3", usageCell(model.Usage{Used: 3}))
	assert.Equal(t, "3/5", usageCell(model.Usage{Used: 3, Limit: 5}))
	assert.Equal(t, "5/5 !", usageCell(model.Usage{Used: 5, Limit: 5}))
}

func TestCommandDispatch(t *testing.T) {
	var got []string
	cmd := &Command{
		Name: "root",
		Subcommands: []*Command{{
			Name: "echo",
			Flags: func(fs *pflag.FlagSet) {
				fs.Bool("loud", false, "")
			},
			Run: func(_ *env, fs *pflag.FlagSet, args []string) error {
				loud, _ := fs.GetBool("loud")
				got = append(args, fmt.Sprint(loud))
				return nil
			},
		}},
	}
	var out bytes.Buffer
	e := &env{stdout: &out, stderr: &out}

	require.NoError(t, cmd.Execute(e, []string{"echo", "--loud", "a"}))
	assert.Equal(t, []string{"a", "true"}, got)

	assert.ErrorIs(t, cmd.Execute(e, []string{"nope"}), errUsage)
	assert.ErrorIs(t, cmd.Execute(e, nil), errUsage)
	assert.ErrorIs(t, cmd.Execute(e, []string{"echo", "--bogus"}), errUsage)

	out.Reset()
	require.NoError(t, cmd.Execute(e, []string{"echo", "--help"}))
	assert.Contains(t, out.String(), "Usage: root echo [flags]")
}
