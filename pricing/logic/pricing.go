// Package logic computes cart-line prices, subtotals, tax and loyalty perks.
// Every function is pure: results depend only on the arguments.
package logic

import (
	"github.com/angzarr-io/pos/catalog"
	"github.com/angzarr-io/pos/pos"
	"github.com/shopspring/decimal"
)

// TaxRate is the flat sales-tax rate.
var TaxRate = decimal.RequireFromString("0.0825")

// Totals is the money summary of a cart.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// FinalPrice is base price plus every selected modifier, with no perks.
func FinalPrice(item catalog.OrderItem) decimal.Decimal {
	total := item.Price
	for _, m := range item.SelectedModifiers {
		total = total.Add(m.Price)
	}
	return total
}

// Subtotal sums the final price of every line.
func Subtotal(items []catalog.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.FinalPrice)
	}
	return total
}

// Tax applies rate to subtotal, rounded half-up to the cent.
func Tax(subtotal, rate decimal.Decimal) decimal.Decimal {
	return pos.RoundCents(subtotal.Mul(rate))
}

// Calculator holds the tax configuration for a store.
type Calculator struct {
	Rate decimal.Decimal
}

// NewCalculator returns a Calculator using rate, or TaxRate when rate is zero.
func NewCalculator(rate decimal.Decimal) Calculator {
	if rate.IsZero() {
		rate = TaxRate
	}
	return Calculator{Rate: rate}
}

// Totals computes subtotal, tax and total. Tax is zero when taxEnabled is false.
func (c Calculator) Totals(items []catalog.OrderItem, taxEnabled bool) Totals {
	subtotal := Subtotal(items)
	tax := decimal.Zero
	if taxEnabled {
		tax = Tax(subtotal, c.Rate)
	}
	return Totals{Subtotal: subtotal, Tax: tax, Total: subtotal.Add(tax)}
}
