package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de inventario (kardex).
const (
	MovementKindInbound    = "INBOUND"    // entrada (compra, devolución)
	MovementKindOutbound   = "OUTBOUND"   // salida (venta)
	MovementKindShrinkage  = "SHRINKAGE"  // merma
	MovementKindAdjustment = "ADJUSTMENT" // ajuste (delta con signo)
)

// ValidMovementKind verifica que kind sea uno de los tipos cerrados del kardex.
func ValidMovementKind(kind string) bool {
	switch kind {
	case MovementKindInbound, MovementKindOutbound, MovementKindShrinkage, MovementKindAdjustment:
		return true
	}
	return false
}

// StockMovement es una entrada del kardex: inmutable una vez escrita.
// Una corrección nunca edita el movimiento, es un movimiento nuevo
// (un ADJUSTMENT o una reversa de igual magnitud y dirección opuesta).
//
// Quantity siempre se guarda positiva; la dirección la da Kind. Para un
// ADJUSTMENT el signo del delta queda registrado en QuantityBefore/QuantityAfter.
// AverageCostBefore/AverageCostAfter se persisten para que la reversa sea exacta
// por valor guardado, sin recomputar (independiente de la actividad posterior).
type StockMovement struct {
	ID                string
	ProductID         string
	Kind              string
	Quantity          int64
	UnitPrice         *decimal.Decimal // informativo, no afecta el kardex
	UnitCost          decimal.Decimal  // costo atribuido al movimiento
	QuantityBefore    int64
	QuantityAfter     int64
	AverageCostBefore decimal.Decimal
	AverageCostAfter  decimal.Decimal
	Reference         string // factura, orden, nota de ajuste, etc.
	Notes             string
	ReversalOf        string // ID del movimiento que esta entrada revierte ("" si no es reversa)
	ReversedBy        string // ID de la reversa que anuló esta entrada ("" si sigue vigente)
	CreatedAt         time.Time
	CreatedBy         string // identidad del actor
}

// Delta devuelve el efecto con signo del movimiento sobre el stock.
// Se deriva de QuantityBefore/QuantityAfter, nunca se confía en el caller.
func (m *StockMovement) Delta() int64 {
	return m.QuantityAfter - m.QuantityBefore
}

// IsReversal indica si la entrada es la reversa de otro movimiento.
func (m *StockMovement) IsReversal() bool {
	return m.ReversalOf != ""
}

// ChangedAverage indica si el movimiento alteró el costo promedio
// (solo las entradas y los ajustes positivos lo hacen).
func (m *StockMovement) ChangedAverage() bool {
	return !m.AverageCostBefore.Equal(m.AverageCostAfter)
}
