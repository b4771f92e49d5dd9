package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/invorya/comercial-api/internal/application/inventory"
	"github.com/invorya/comercial-api/internal/domain/entity"
	"github.com/invorya/comercial-api/internal/domain/repository"
)

// TxRunner ejecuta una función con los tres repositorios atados a una misma
// transacción. Emitir o anular una factura toca kardex, agregados de producto y
// el documento: o se confirma todo, o no queda rastro de nada.
type TxRunner interface {
	RunBilling(ctx context.Context, fn func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
		invoiceRepo repository.InvoiceRepository,
	) error) error
}

// StockLedger operaciones de kardex dentro de la transacción del caller.
// Lo implementa el caso de uso de inventario; el ciclo de vida de facturas lo
// invoca línea a línea para que ErrInsufficientStock revierta el documento completo.
type StockLedger interface {
	ApplyInTx(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
		input inventory.ApplyInput,
		now time.Time,
	) (*entity.StockMovement, error)

	ReverseInTx(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
		movementID, actorID string,
		now time.Time,
	) (*entity.StockMovement, error)
}

// Dirección de un asiento contable.
const (
	PostingDirectionForward  = "FORWARD"
	PostingDirectionReversal = "REVERSAL"
)

// PostingLine línea de un asiento contable.
type PostingLine struct {
	ProductID   string          `json:"product_id,omitempty"`
	Description string          `json:"description"`
	Quantity    int64           `json:"quantity"`
	Total       decimal.Decimal `json:"total"`
}

// PostingRequest solicitud de asiento al colaborador contable externo.
// IdempotencyKey identifica el asiento de forma estable (factura + dirección)
// para que los reintentos no dupliquen asientos.
type PostingRequest struct {
	InvoiceID      string          `json:"invoice_id"`
	InvoiceNumber  string          `json:"invoice_number"`
	ClientRef      string          `json:"client_ref,omitempty"`
	Direction      string          `json:"direction"`
	IssueDate      time.Time       `json:"issue_date"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TotalDiscount  decimal.Decimal `json:"total_discount"`
	TotalTax       decimal.Decimal `json:"total_tax"`
	Total          decimal.Decimal `json:"total"`
	Lines          []PostingLine   `json:"lines"`
	IdempotencyKey string          `json:"-"`
}

// AccountingPoster colaborador contable externo. Post devuelve la referencia
// opaca del asiento creado. Un error aquí impide emitir o anular la factura.
type AccountingPoster interface {
	Post(ctx context.Context, req PostingRequest) (string, error)
}
