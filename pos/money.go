package pos

import "github.com/shopspring/decimal"

// Cent is the smallest settled currency unit and the tolerance used when
// comparing balances.
var Cent = decimal.New(1, -2)

// RoundCents rounds half away from zero to two decimal places. For the
// non-negative amounts a till deals with this is standard half-up rounding.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// WithinCent reports whether |a - b| < 0.01.
func WithinCent(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Cent)
}
