package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/invorya/comercial-api/internal/domain/entity"
)

// CreateProductRequest body para POST /api/products.
type CreateProductRequest struct {
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	BasePrice   decimal.Decimal `json:"base_price"`
	PublicPrice decimal.Decimal `json:"public_price"`
}

// ProductResponse representación HTTP de un producto con su agregado de stock.
type ProductResponse struct {
	ID              string          `json:"id"`
	SKU             string          `json:"sku"`
	Name            string          `json:"name"`
	BasePrice       decimal.Decimal `json:"base_price"`
	PublicPrice     decimal.Decimal `json:"public_price"`
	QuantityOnHand  int64           `json:"quantity_on_hand"`
	AverageUnitCost decimal.Decimal `json:"average_unit_cost"`
	Active          bool            `json:"active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// FromProduct convierte la entidad a su representación HTTP.
func FromProduct(p *entity.Product) ProductResponse {
	return ProductResponse{
		ID:              p.ID,
		SKU:             p.SKU,
		Name:            p.Name,
		BasePrice:       p.BasePrice,
		PublicPrice:     p.PublicPrice,
		QuantityOnHand:  p.QuantityOnHand,
		AverageUnitCost: p.AverageUnitCost,
		Active:          p.Active,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}
