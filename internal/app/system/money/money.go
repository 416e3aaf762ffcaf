// Package money does ledger arithmetic in decimal and converts results
// back to the float64 amounts stored on documents.
//
// Stored amounts are rounded to two places (paise). Doing the sums in
// decimal keeps long replays of small amounts from drifting.
package money

import (
	"github.com/shopspring/decimal"
)

// Places is the number of decimal places kept on stored amounts.
const Places = 2

// D converts a stored amount to decimal.
func D(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// F rounds a decimal to Places and converts it back to a stored amount.
func F(d decimal.Decimal) float64 {
	return d.Round(Places).InexactFloat64()
}

// Sum adds stored amounts in decimal.
func Sum(vals ...float64) decimal.Decimal {
	total := decimal.Zero
	for _, v := range vals {
		total = total.Add(D(v))
	}
	return total
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Round rounds a stored amount to Places.
func Round(f float64) float64 {
	return F(D(f))
}

// SimpleInterest returns principal*rate*months/12/100 rounded to Places.
func SimpleInterest(principal, ratePercent float64, months int) float64 {
	years := decimal.NewFromInt(int64(months)).Div(decimal.NewFromInt(12))
	return F(D(principal).Mul(D(ratePercent)).Mul(years).Div(decimal.NewFromInt(100)))
}
