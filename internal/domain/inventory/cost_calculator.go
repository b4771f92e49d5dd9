package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/invorya/comercial-api/pkg/money"
)

// CostCalculator implementa la lógica de costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
// redondeado una sola vez a la unidad menor. Si el stock actual es 0, el nuevo
// promedio es exactamente el costo de la entrada (sin redondeo adicional).
func CostCalculator(stockActual int64, costoActual decimal.Decimal, cantEntrada int64, costoEntrada decimal.Decimal) decimal.Decimal {
	total := stockActual + cantEntrada
	if total <= 0 {
		return decimal.Zero
	}
	if stockActual <= 0 {
		return costoEntrada
	}
	num := decimal.NewFromInt(stockActual).Mul(costoActual).
		Add(decimal.NewFromInt(cantEntrada).Mul(costoEntrada))
	return money.Round(num.Div(decimal.NewFromInt(total)))
}
