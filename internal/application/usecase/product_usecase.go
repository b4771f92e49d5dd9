package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/invorya/comercial-api/internal/domain"
	"github.com/invorya/comercial-api/internal/domain/entity"
	"github.com/invorya/comercial-api/internal/domain/repository"
)

// ProductUseCase gestiona el catálogo de productos. El agregado de stock
// (cantidad, costo promedio) nunca se edita por aquí: solo vía movimientos.
type ProductUseCase struct {
	productRepo repository.ProductRepository
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(productRepo repository.ProductRepository) *ProductUseCase {
	return &ProductUseCase{productRepo: productRepo}
}

// CreateInput datos para registrar un producto.
type CreateInput struct {
	SKU         string
	Name        string
	BasePrice   decimal.Decimal
	PublicPrice decimal.Decimal
}

// Create registra un producto nuevo con stock cero y costo promedio cero.
func (uc *ProductUseCase) Create(ctx context.Context, input CreateInput) (*entity.Product, error) {
	verr := &domain.ValidationError{}
	if input.SKU == "" {
		verr.Add("sku", "requerido")
	}
	if input.Name == "" {
		verr.Add("name", "requerido")
	}
	if input.BasePrice.IsNegative() {
		verr.Add("base_price", "no puede ser negativo")
	}
	if input.PublicPrice.IsNegative() {
		verr.Add("public_price", "no puede ser negativo")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	existing, err := uc.productRepo.GetBySKU(input.SKU)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: sku %s", domain.ErrDuplicate, input.SKU)
	}

	now := time.Now()
	product := &entity.Product{
		ID:              uuid.New().String(),
		SKU:             input.SKU,
		Name:            input.Name,
		BasePrice:       input.BasePrice,
		PublicPrice:     input.PublicPrice,
		QuantityOnHand:  0,
		AverageUnitCost: decimal.Zero,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := uc.productRepo.Create(product); err != nil {
		return nil, err
	}
	return product, nil
}

// GetByID obtiene un producto.
func (uc *ProductUseCase) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	product, err := uc.productRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	return product, nil
}

// List lista productos con paginación.
func (uc *ProductUseCase) List(ctx context.Context, limit, offset int) ([]*entity.Product, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return uc.productRepo.List(limit, offset)
}
