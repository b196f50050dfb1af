package money

import "github.com/shopspring/decimal"

// Round2 rounds a monetary amount to 2 decimal places, half up.
// Every place money is computed goes through this helper so rounding
// never drifts between components.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Mul multiplies a per-unit amount by an integer quantity.
func Mul(perUnit decimal.Decimal, qty int) decimal.Decimal {
	return perUnit.Mul(decimal.NewFromInt(int64(qty)))
}
