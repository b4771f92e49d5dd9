package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/invorya/comercial-api/internal/domain"
	"github.com/invorya/comercial-api/internal/domain/entity"
	"github.com/invorya/comercial-api/internal/domain/inventory"
	"github.com/invorya/comercial-api/internal/domain/repository"
)

// MovementUseCase procesa movimientos de kardex de forma transaccional:
// valida el movimiento propuesto, calcula el nuevo agregado
// (cantidad, costo promedio) y delega la escritura al repositorio, todo bajo
// bloqueo de fila por producto (SELECT FOR UPDATE) con Commit/Rollback.
type MovementUseCase struct {
	txRunner     TxRunner
	productRepo  repository.ProductRepository
	movementRepo repository.StockMovementRepository
}

// NewMovementUseCase construye el caso de uso. productRepo y movementRepo van
// atados al pool (lecturas sin bloqueo); las escrituras usan los repos de la tx.
func NewMovementUseCase(
	txRunner TxRunner,
	productRepo repository.ProductRepository,
	movementRepo repository.StockMovementRepository,
) *MovementUseCase {
	return &MovementUseCase{
		txRunner:     txRunner,
		productRepo:  productRepo,
		movementRepo: movementRepo,
	}
}

// ApplyInput entrada para aplicar un movimiento de kardex.
// Quantity es un entero positivo; para ADJUSTMENT es el delta con signo (≠ 0).
// UnitCost es obligatorio en INBOUND y en ajustes positivos; en salidas es
// informativo y no afecta el kardex (el costo sale del promedio vigente).
type ApplyInput struct {
	ProductID string
	Kind      string
	Quantity  int64
	UnitCost  *decimal.Decimal
	UnitPrice *decimal.Decimal
	Reference string
	Notes     string
	ActorID   string
}

// StockState snapshot del agregado de un producto.
type StockState struct {
	ProductID       string
	QuantityOnHand  int64
	AverageUnitCost decimal.Decimal
}

// Apply valida y aplica un movimiento contra el kardex del producto.
// Cada llamada exitosa escribe exactamente una entrada con
// QuantityBefore/QuantityAfter/AverageCostBefore/AverageCostAfter capturados
// para permitir una reversa exacta por valor guardado.
func (uc *MovementUseCase) Apply(ctx context.Context, input ApplyInput) (*entity.StockMovement, error) {
	if err := validateApply(input); err != nil {
		return nil, err
	}
	now := time.Now()
	var mov *entity.StockMovement
	err := uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
	) error {
		var err error
		mov, err = uc.ApplyInTx(movRepo, productRepo, input, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}

// ApplyInTx aplica el movimiento usando los repositorios del caller (misma
// transacción). Lo usa el ciclo de vida de facturas para que un fallo en
// cualquier línea revierta el documento completo.
func (uc *MovementUseCase) ApplyInTx(
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
	input ApplyInput,
	now time.Time,
) (*entity.StockMovement, error) {
	if err := validateApply(input); err != nil {
		return nil, err
	}

	// Bloquea la fila del producto: serializa los read-modify-write del agregado
	product, err := productRepo.GetForUpdate(input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	if !product.Active {
		return nil, fmt.Errorf("%w: producto inactivo", domain.ErrInvalidInput)
	}

	qtyBefore := product.QuantityOnHand
	avgBefore := product.AverageUnitCost
	var qtyAfter int64
	var avgAfter decimal.Decimal
	var unitCost decimal.Decimal

	switch input.Kind {
	case entity.MovementKindInbound:
		unitCost = *input.UnitCost
		qtyAfter = qtyBefore + input.Quantity
		avgAfter = inventory.CostCalculator(qtyBefore, avgBefore, input.Quantity, unitCost)

	case entity.MovementKindOutbound, entity.MovementKindShrinkage:
		if input.Quantity > qtyBefore {
			return nil, domain.ErrInsufficientStock
		}
		// El costo del movimiento es el promedio vigente; el costo del caller
		// (si viene) es informativo y no toca el kardex
		unitCost = avgBefore
		qtyAfter = qtyBefore - input.Quantity
		avgAfter = avgBefore

	case entity.MovementKindAdjustment:
		if input.Quantity > 0 {
			unitCost = *input.UnitCost
			qtyAfter = qtyBefore + input.Quantity
			avgAfter = inventory.CostCalculator(qtyBefore, avgBefore, input.Quantity, unitCost)
		} else {
			// Delta negativo: cuesta al promedio vigente y no cambia el promedio.
			// Nunca falla por stock insuficiente, pero tampoco recorta en silencio:
			// un resultado negativo se rechaza y el caller reenvía un delta consistente
			if qtyBefore+input.Quantity < 0 {
				return nil, domain.ErrInvalidAdjustment
			}
			unitCost = avgBefore
			qtyAfter = qtyBefore + input.Quantity
			avgAfter = avgBefore
		}

	default:
		return nil, domain.ErrInvalidInput
	}

	mov := &entity.StockMovement{
		ID:                uuid.New().String(),
		ProductID:         input.ProductID,
		Kind:              input.Kind,
		Quantity:          absInt64(input.Quantity),
		UnitPrice:         input.UnitPrice,
		UnitCost:          unitCost,
		QuantityBefore:    qtyBefore,
		QuantityAfter:     qtyAfter,
		AverageCostBefore: avgBefore,
		AverageCostAfter:  avgAfter,
		Reference:         input.Reference,
		Notes:             input.Notes,
		CreatedAt:         now,
		CreatedBy:         input.ActorID,
	}

	if err := productRepo.UpdateAggregate(product.ID, qtyAfter, avgAfter, now); err != nil {
		return nil, err
	}
	if err := movRepo.Create(mov); err != nil {
		return nil, err
	}
	return mov, nil
}

// Reverse produce y aplica el movimiento inverso exacto de un movimiento previo,
// usando los valores guardados en la entrada original (nunca recomputando).
// Falla con ErrAlreadyReversed si el movimiento ya tiene una reversa enlazada.
func (uc *MovementUseCase) Reverse(ctx context.Context, movementID, actorID string) (*entity.StockMovement, error) {
	now := time.Now()
	var rev *entity.StockMovement
	err := uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
	) error {
		var err error
		rev, err = uc.ReverseInTx(movRepo, productRepo, movementID, actorID, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rev, nil
}

// ReverseInTx ejecuta la reversa usando los repositorios del caller (misma
// transacción). Lo usa la anulación de facturas.
func (uc *MovementUseCase) ReverseInTx(
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
	movementID, actorID string,
	now time.Time,
) (*entity.StockMovement, error) {
	// Bloquea el movimiento original: dos reversas concurrentes no pueden
	// pasar ambas la verificación de ReversedBy
	orig, err := movRepo.GetForUpdate(movementID)
	if err != nil {
		return nil, err
	}
	if orig == nil {
		return nil, domain.ErrNotFound
	}
	if orig.ReversedBy != "" {
		return nil, domain.ErrAlreadyReversed
	}

	product, err := productRepo.GetForUpdate(orig.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}

	inverse := -orig.Delta()
	qtyBefore := product.QuantityOnHand
	qtyAfter := qtyBefore + inverse
	if qtyAfter < 0 {
		return nil, domain.ErrInvalidAdjustment
	}

	// La reversa restaura el promedio por valor guardado: si el movimiento
	// original lo alteró (entradas y ajustes positivos), vuelve exactamente al
	// promedio previo al original; las salidas no lo tocaron y no hay nada que restaurar
	avgAfter := product.AverageUnitCost
	if orig.ChangedAverage() {
		avgAfter = orig.AverageCostBefore
	}

	rev := &entity.StockMovement{
		ID:                uuid.New().String(),
		ProductID:         orig.ProductID,
		Kind:              inverseKind(orig.Kind),
		Quantity:          absInt64(inverse),
		UnitCost:          orig.UnitCost,
		QuantityBefore:    qtyBefore,
		QuantityAfter:     qtyAfter,
		AverageCostBefore: product.AverageUnitCost,
		AverageCostAfter:  avgAfter,
		Reference:         orig.Reference,
		Notes:             "reversa del movimiento " + orig.ID,
		ReversalOf:        orig.ID,
		CreatedAt:         now,
		CreatedBy:         actorID,
	}

	if err := productRepo.UpdateAggregate(product.ID, qtyAfter, avgAfter, now); err != nil {
		return nil, err
	}
	if err := movRepo.Create(rev); err != nil {
		return nil, err
	}
	if err := movRepo.MarkReversed(orig.ID, rev.ID); err != nil {
		return nil, err
	}
	return rev, nil
}

// CurrentState devuelve el snapshot vigente del agregado (lectura sin bloqueo).
func (uc *MovementUseCase) CurrentState(ctx context.Context, productID string) (*StockState, error) {
	product, err := uc.productRepo.GetByID(productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	return &StockState{
		ProductID:       product.ID,
		QuantityOnHand:  product.QuantityOnHand,
		AverageUnitCost: product.AverageUnitCost,
	}, nil
}

// History devuelve el kardex del producto en orden de creación ascendente,
// filtrable por tipo, rango de fechas y referencia. Re-consultable (no es un stream).
func (uc *MovementUseCase) History(ctx context.Context, productID string, filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	product, err := uc.productRepo.GetByID(productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	if filter.Kind != "" && !entity.ValidMovementKind(filter.Kind) {
		return nil, fmt.Errorf("%w: tipo de movimiento desconocido", domain.ErrInvalidInput)
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return uc.movementRepo.ListByProduct(productID, filter)
}

// validateApply valida tipo, cantidad y costo antes de tocar la BD.
func validateApply(input ApplyInput) error {
	if input.ProductID == "" {
		return domain.ErrInvalidInput
	}
	if !entity.ValidMovementKind(input.Kind) {
		return fmt.Errorf("%w: tipo de movimiento desconocido", domain.ErrInvalidInput)
	}
	if input.Kind == entity.MovementKindAdjustment {
		if input.Quantity == 0 {
			return domain.ErrInvalidQuantity
		}
	} else if input.Quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	needsCost := input.Kind == entity.MovementKindInbound ||
		(input.Kind == entity.MovementKindAdjustment && input.Quantity > 0)
	if needsCost && (input.UnitCost == nil || input.UnitCost.IsNegative()) {
		return fmt.Errorf("%w: costo unitario requerido y no negativo", domain.ErrInvalidInput)
	}
	return nil
}

// inverseKind devuelve el tipo del movimiento inverso para una reversa.
func inverseKind(kind string) string {
	switch kind {
	case entity.MovementKindInbound:
		return entity.MovementKindOutbound
	case entity.MovementKindOutbound, entity.MovementKindShrinkage:
		return entity.MovementKindInbound
	}
	return entity.MovementKindAdjustment
}

func absInt64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
