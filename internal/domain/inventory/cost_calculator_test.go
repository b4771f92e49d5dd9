package inventory_test

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/invorya/comercial-api/internal/domain/inventory"
	"github.com/invorya/comercial-api/pkg/money"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Escenario de referencia: stock 10 @ $10.00, entrada 10 @ $12.00 -> promedio $11.00.
func TestCostCalculator_PromedioPonderado(t *testing.T) {
	got := inventory.CostCalculator(10, dec("10.00"), 10, dec("12.00"))
	assert.True(t, got.Equal(dec("11.00")),
		"10@10.00 + 10@12.00 debe promediar 11.00, fue %s", got)
}

// Con stock en cero el promedio es exactamente el costo de la entrada.
func TestCostCalculator_StockCeroTomaCostoEntradaExacto(t *testing.T) {
	costo := dec("12.3456")
	got := inventory.CostCalculator(0, decimal.Zero, 5, costo)
	assert.True(t, got.Equal(costo),
		"con stock 0 el promedio debe ser el costo de entrada sin redondear, fue %s", got)
}

func TestCostCalculator_TotalCeroRetornaCero(t *testing.T) {
	got := inventory.CostCalculator(0, decimal.Zero, 0, dec("10.00"))
	assert.True(t, got.IsZero())
}

// El promedio se redondea una sola vez: 3@10.00 + 1@10.01 = 40.01/4 = 10.0025 -> 10.00.
func TestCostCalculator_RedondeaUnaVez(t *testing.T) {
	got := inventory.CostCalculator(3, dec("10.00"), 1, dec("10.01"))
	assert.True(t, got.Equal(dec("10.00")), "40.01/4 debe redondear a 10.00, fue %s", got)
}

// Propiedad: para cualquier secuencia de entradas, el promedio tras cada una
// coincide con la fórmula de libro aplicada acumulativamente.
func TestCostCalculator_PropiedadAcumulativa(t *testing.T) {
	rng := rand.New(rand.NewSource(42)) // determinista

	for caso := 0; caso < 50; caso++ {
		stock := int64(0)
		promedio := decimal.Zero

		for paso := 0; paso < 20; paso++ {
			cant := int64(rng.Intn(100) + 1)
			costo := decimal.NewFromInt(int64(rng.Intn(100000))).Div(decimal.NewFromInt(100))

			nuevo := inventory.CostCalculator(stock, promedio, cant, costo)

			// Fórmula de libro calculada aparte sobre los mismos valores.
			var esperado decimal.Decimal
			if stock == 0 {
				esperado = costo
			} else {
				num := decimal.NewFromInt(stock).Mul(promedio).
					Add(decimal.NewFromInt(cant).Mul(costo))
				esperado = money.Round(num.Div(decimal.NewFromInt(stock + cant)))
			}
			assert.True(t, nuevo.Equal(esperado),
				"caso %d paso %d: promedio %s, esperado %s", caso, paso, nuevo, esperado)

			stock += cant
			promedio = nuevo
			assert.False(t, promedio.IsNegative(), "el promedio nunca puede ser negativo")
		}
	}
}
