package money

import (
	"math"

	"github.com/shopspring/decimal"
)

const percentBase = 100

// Round2 rounds half away from zero to two decimal places.
// The value goes through its shortest decimal representation first, so 1.005 rounds to 1.01.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	out, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return out
}

// PercentOf returns amount*percent/100 rounded to two decimals.
func PercentOf(amount, percent float64) float64 {
	if amount == 0 || percent == 0 {
		return 0
	}
	d := decimal.NewFromFloat(amount).
		Mul(decimal.NewFromFloat(percent)).
		Div(decimal.NewFromInt(percentBase))
	out, _ := d.Round(2).Float64()
	return out
}

// Sum adds the values exactly and rounds the result to two decimals.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		total = total.Add(decimal.NewFromFloat(v))
	}
	out, _ := total.Round(2).Float64()
	return out
}

// Sub returns a-b rounded to two decimals.
func Sub(a, b float64) float64 {
	return Sum(a, -b)
}

// NonNegative maps NaN, infinities and negative values to zero.
func NonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
