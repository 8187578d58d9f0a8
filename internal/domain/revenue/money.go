package revenue

import (
	"math"

	"github.com/shopspring/decimal"
)

// moneyPlaces is the number of decimal places kept for every monetary value.
const moneyPlaces = 2

// roundingEpsilon nudges IEEE values such as 10.005 (stored as 10.00499...)
// past the half-cent boundary before rounding.
const roundingEpsilon = 1e-9

// RoundMoney rounds d to two decimal places, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}

// RoundMoneyFloat rounds v to two decimal places, half away from zero,
// after nudging its magnitude by a small epsilon so that binary
// representation error does not truncate a half cent (10.005 -> 10.01).
// NaN and infinities collapse to 0.
func RoundMoneyFloat(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v == 0 {
		return 0
	}
	scaled := math.Round((math.Abs(v) + roundingEpsilon) * 100)
	return math.Copysign(scaled/100, v)
}

// MoneyToFloat converts an amount to a float64 rounded to cents.
func MoneyToFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return RoundMoneyFloat(f)
}
