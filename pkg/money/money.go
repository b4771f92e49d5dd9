// Package money concentra la aritmética monetaria del núcleo.
// Todos los importes se manejan con decimales de precisión arbitraria
// (shopspring/decimal), nunca con punto flotante binario.
package money

import "github.com/shopspring/decimal"

// MinorUnitPlaces dígitos fraccionarios de la unidad menor de la moneda (centavos).
const MinorUnitPlaces = 2

var hundred = decimal.NewFromInt(100)

// Round aplica la única regla de redondeo del sistema: half-up a la unidad menor.
// Se aplica exactamente una vez por cifra derivada; nunca se re-redondea un valor
// que ya pasó por aquí.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(MinorUnitPlaces)
}

// MulQty multiplica un valor unitario por una cantidad entera y redondea una vez.
func MulQty(unit decimal.Decimal, qty int64) decimal.Decimal {
	return Round(unit.Mul(decimal.NewFromInt(qty)))
}

// Percent calcula pct% de base construyendo la fracción exacta antes de redondear.
// pct es un porcentaje decimal (ej: 19 para 19%, 10.5 para 10.5%).
func Percent(base, pct decimal.Decimal) decimal.Decimal {
	return Round(base.Mul(pct).Div(hundred))
}

// IsValidPercent verifica que un porcentaje esté en el rango [0, 100].
func IsValidPercent(pct decimal.Decimal) bool {
	return !pct.IsNegative() && pct.LessThanOrEqual(hundred)
}
