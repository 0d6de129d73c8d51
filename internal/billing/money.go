package billing

import "github.com/shopspring/decimal"

// Money values are carried as exact decimals end to end and only rounded to
// cents when a total leaves the engine. Hours round to a hundredth.

var oneHundred = decimal.NewFromInt(100)

// RoundMoney rounds an amount to two decimal places, half away from zero.
func RoundMoney(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// RoundHours rounds an hour figure to two decimal places.
func RoundHours(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// DecimalOrZero dereferences an optional decimal, defaulting to zero.
func DecimalOrZero(v *decimal.Decimal) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return *v
}
