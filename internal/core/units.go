package core

import "github.com/shopspring/decimal"

// Known measurement scales. Factors convert to the canonical unit of each
// dimension (g for mass, ml for volume, pcs for count).
var unitScales = map[string]struct {
	dim    string
	factor decimal.Decimal
}{
	"mg":  {"mass", decimal.NewFromFloat(0.001)},
	"g":   {"mass", decimal.NewFromInt(1)},
	"kg":  {"mass", decimal.NewFromInt(1000)},
	"ml":  {"volume", decimal.NewFromInt(1)},
	"l":   {"volume", decimal.NewFromInt(1000)},
	"pcs": {"count", decimal.NewFromInt(1)},
}

// ConvertQuantity expresses qty, given in fromUnit, in toUnit.
//
// Units on the same measurement scale convert through the scale table.
// Otherwise the item's secondary-unit conversion factor is used (quantity in
// the secondary unit × factor = quantity in the base unit). Anything else is
// a validation failure — the engine never guesses a conversion.
func ConvertQuantity(qty decimal.Decimal, fromUnit, toUnit string, factor *decimal.Decimal) (decimal.Decimal, error) {
	if fromUnit == toUnit {
		return qty, nil
	}
	from, fromOK := unitScales[fromUnit]
	to, toOK := unitScales[toUnit]
	if fromOK && toOK && from.dim == to.dim {
		return qty.Mul(from.factor).Div(to.factor), nil
	}
	if factor != nil && !factor.IsZero() {
		return qty.Mul(*factor), nil
	}
	return decimal.Zero, NewValidationError("unit", fromUnit,
		"no conversion to "+toUnit)
}
