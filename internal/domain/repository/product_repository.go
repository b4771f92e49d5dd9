package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/invorya/comercial-api/internal/domain/entity"
)

// ProductRepository puerto de persistencia para productos.
// El agregado (QuantityOnHand, AverageUnitCost) solo se muta vía UpdateAggregate,
// y siempre dentro de la transacción que escribe el movimiento correspondiente.
type ProductRepository interface {
	Create(product *entity.Product) error
	GetByID(id string) (*entity.Product, error)
	GetBySKU(sku string) (*entity.Product, error)
	List(limit, offset int) ([]*entity.Product, error)

	// GetForUpdate obtiene el producto bloqueando la fila (SELECT FOR UPDATE).
	// Serializa los read-modify-write del agregado por producto.
	GetForUpdate(id string) (*entity.Product, error)

	// UpdateAggregate actualiza el par (quantity_on_hand, average_unit_cost).
	UpdateAggregate(id string, quantityOnHand int64, averageUnitCost decimal.Decimal, updatedAt time.Time) error
}
