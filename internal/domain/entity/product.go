package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto o SKU del catálogo.
// QuantityOnHand y AverageUnitCost son propiedad exclusiva del kardex:
// solo el procesador de movimientos puede mutarlos (vía UpdateAggregate).
type Product struct {
	ID              string
	SKU             string // código único, inmutable una vez creado
	Name            string
	BasePrice       decimal.Decimal // precio de adquisición/referencia
	PublicPrice     decimal.Decimal // precio de venta
	QuantityOnHand  int64           // unidades enteras, nunca negativo
	AverageUnitCost decimal.Decimal // costo promedio ponderado (inicia en 0)
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
