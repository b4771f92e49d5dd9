package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/invorya/comercial-api/internal/domain/entity"
)

// RegisterMovementRequest body para POST /api/inventory/movements.
// Quantity es positiva; para ADJUSTMENT es el delta con signo (≠ 0).
type RegisterMovementRequest struct {
	ProductID string           `json:"product_id"`
	Kind      string           `json:"kind"`
	Quantity  int64            `json:"quantity"`
	UnitCost  *decimal.Decimal `json:"unit_cost,omitempty"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Reference string           `json:"reference,omitempty"`
	Notes     string           `json:"notes,omitempty"`
}

// MovementResponse entrada de kardex en respuestas HTTP.
type MovementResponse struct {
	ID                string           `json:"id"`
	ProductID         string           `json:"product_id"`
	Kind              string           `json:"kind"`
	Quantity          int64            `json:"quantity"`
	UnitPrice         *decimal.Decimal `json:"unit_price,omitempty"`
	UnitCost          decimal.Decimal  `json:"unit_cost"`
	QuantityBefore    int64            `json:"quantity_before"`
	QuantityAfter     int64            `json:"quantity_after"`
	AverageCostBefore decimal.Decimal  `json:"average_cost_before"`
	AverageCostAfter  decimal.Decimal  `json:"average_cost_after"`
	Reference         string           `json:"reference,omitempty"`
	Notes             string           `json:"notes,omitempty"`
	ReversalOf        string           `json:"reversal_of,omitempty"`
	ReversedBy        string           `json:"reversed_by,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	CreatedBy         string           `json:"created_by,omitempty"`
}

// FromMovement convierte la entidad a su representación HTTP.
func FromMovement(m *entity.StockMovement) MovementResponse {
	return MovementResponse{
		ID:                m.ID,
		ProductID:         m.ProductID,
		Kind:              m.Kind,
		Quantity:          m.Quantity,
		UnitPrice:         m.UnitPrice,
		UnitCost:          m.UnitCost,
		QuantityBefore:    m.QuantityBefore,
		QuantityAfter:     m.QuantityAfter,
		AverageCostBefore: m.AverageCostBefore,
		AverageCostAfter:  m.AverageCostAfter,
		Reference:         m.Reference,
		Notes:             m.Notes,
		ReversalOf:        m.ReversalOf,
		ReversedBy:        m.ReversedBy,
		CreatedAt:         m.CreatedAt,
		CreatedBy:         m.CreatedBy,
	}
}

// StockResponse snapshot del agregado de stock de un producto.
type StockResponse struct {
	ProductID       string          `json:"product_id"`
	QuantityOnHand  int64           `json:"quantity_on_hand"`
	AverageUnitCost decimal.Decimal `json:"average_unit_cost"`
}
