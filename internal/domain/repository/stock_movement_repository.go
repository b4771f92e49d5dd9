package repository

import (
	"time"

	"github.com/invorya/comercial-api/internal/domain/entity"
)

// MovementFilter filtros para la consulta de kardex.
type MovementFilter struct {
	Kind      string // vacío = todos
	From      *time.Time
	To        *time.Time
	Reference string // vacío = todas
	Limit     int
	Offset    int
}

// StockMovementRepository puerto de persistencia para el kardex (append-only).
// Los movimientos nunca se editan ni se borran; la única mutación permitida es
// MarkReversed, que enlaza la reversa sin alterar las cifras originales.
type StockMovementRepository interface {
	Create(movement *entity.StockMovement) error
	GetByID(id string) (*entity.StockMovement, error)

	// GetForUpdate bloquea la fila del movimiento para marcar la reversa
	// sin carreras (dos reversas concurrentes del mismo movimiento).
	GetForUpdate(id string) (*entity.StockMovement, error)

	// MarkReversed enlaza la reversa en el movimiento original.
	MarkReversed(id, reversedBy string) error

	// ListByProduct lista el kardex de un producto en orden de creación ascendente.
	ListByProduct(productID string, filter MovementFilter) ([]*entity.StockMovement, error)

	// ListByReference lista los movimientos con una referencia dada (ej: ID de factura),
	// en orden de creación ascendente.
	ListByReference(reference string) ([]*entity.StockMovement, error)
}
