// Package cart holds the point-of-sale shopping cart.
package cart

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/erazemk/trgovina/internal/model"
)

// Line is one product in the cart.
type Line struct {
	ProductID int64
	Name      string
	Barcode   string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Total returns the line's price before discount and tax.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the sale being rung up. Prices shown are catalog prices; the
// server computes the final amounts when the sale is created.
type Cart struct {
	lines    []Line
	discount decimal.Decimal
	taxRate  decimal.Decimal
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Add puts qty units of p in the cart, merging with an existing line.
func (c *Cart) Add(p model.Product, qty int) {
	if qty <= 0 {
		return
	}
	if i := c.index(p.ID); i >= 0 {
		c.lines[i].Quantity += qty
		return
	}
	c.lines = append(c.lines, Line{
		ProductID: p.ID,
		Name:      p.Name,
		Barcode:   p.Barcode,
		UnitPrice: p.Price,
		Quantity:  qty,
	})
}

// SetQuantity changes a line's quantity; zero or less removes it.
// It reports whether the product was in the cart.
func (c *Cart) SetQuantity(productID int64, qty int) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	if qty <= 0 {
		c.lines = slices.Delete(c.lines, i, i+1)
		return true
	}
	c.lines[i].Quantity = qty
	return true
}

// Remove drops a product from the cart.
func (c *Cart) Remove(productID int64) bool {
	return c.SetQuantity(productID, 0)
}

// Clear empties the cart and resets the discount.
func (c *Cart) Clear() {
	c.lines = nil
	c.discount = decimal.Zero
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	return slices.Clone(c.lines)
}

// Count returns the number of units in the cart.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

// SetDiscount sets an absolute discount. Negative values are treated as zero.
func (c *Cart) SetDiscount(d decimal.Decimal) {
	if d.IsNegative() {
		d = decimal.Zero
	}
	c.discount = d
}

func (c *Cart) Discount() decimal.Decimal {
	return c.discount
}

// SetTaxRate sets the branch tax rate used for the estimate in Tax and Total.
func (c *Cart) SetTaxRate(rate decimal.Decimal) {
	c.taxRate = rate
}

func (c *Cart) Tax() decimal.Decimal {
	_, tax, _ := model.ComputeTotals(c.Subtotal(), c.discount, c.taxRate)
	return tax
}

// Total returns subtotal minus discount plus tax, never below zero.
func (c *Cart) Total() decimal.Decimal {
	_, _, total := model.ComputeTotals(c.Subtotal(), c.discount, c.taxRate)
	return total
}

// SaleRequest builds the request that rings up the cart. Unit prices are
// left to the server's catalog.
func (c *Cart) SaleRequest(branchID int64, method string, paid decimal.Decimal) model.CreateSaleRequest {
	items := make([]model.SaleItemRequest, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, model.SaleItemRequest{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return model.CreateSaleRequest{
		BranchID:      branchID,
		PaymentMethod: method,
		Discount:      c.discount,
		Paid:          paid,
		Items:         items,
	}
}

func (c *Cart) index(productID int64) int {
	return slices.IndexFunc(c.lines, func(l Line) bool { return l.ProductID == productID })
}
