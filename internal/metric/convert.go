package metric

import "github.com/shopspring/decimal"

// GramsPerTroyOunce is the exact troy ounce definition.
var GramsPerTroyOunce = decimal.RequireFromString("31.1034768")

var tenGrams = decimal.NewFromInt(10)

// OunceToTenGrams converts a per-troy-ounce price into a per-10-gram price
// rounded half away from zero to a whole unit. This is the only conversion
// used for both live and backfilled values.
func OunceToTenGrams(perOunce decimal.Decimal) decimal.Decimal {
	return perOunce.Mul(tenGrams).Div(GramsPerTroyOunce).Round(0)
}
