package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una factura. Máquina de estados cerrada:
// ISSUED --markPaid--> PAID (terminal), ISSUED --void--> VOIDED (terminal).
// Ninguna transición sale de PAID ni de VOIDED.
const (
	InvoiceStatusIssued = "ISSUED"
	InvoiceStatusPaid   = "PAID"
	InvoiceStatusVoided = "VOIDED"
)

// Tipos de documento de venta.
const (
	DocumentTypeSale    = "SALE"    // con efecto de inventario (OUTBOUND por línea)
	DocumentTypeService = "SERVICE" // sin efecto de inventario
)

// ValidDocumentType verifica el tipo de documento.
func ValidDocumentType(t string) bool {
	return t == DocumentTypeSale || t == DocumentTypeService
}

// Invoice representa la cabecera de una factura.
// Los totales son derivados (calculados una vez por el computador de facturas)
// y verificables: Total = Subtotal - TotalDiscount + TotalTax siempre.
// Status y los campos de pago/anulación solo los muta el ciclo de vida.
type Invoice struct {
	ID             string
	Number         string // consecutivo legible (FV-000123)
	ClientRef      string // referencia opaca al cliente
	DocumentType   string
	Status         string
	IssueDate      time.Time
	DueDate        *time.Time
	PaymentDate    *time.Time
	PaymentMethod  string
	ReceivedAmount *decimal.Decimal
	Subtotal       decimal.Decimal
	TotalDiscount  decimal.Decimal
	TotalTax       decimal.Decimal
	Total          decimal.Decimal
	AccountingRef  string // referencia opaca del asiento contable (colaborador externo)
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CanMarkPaid indica si la factura admite la transición a PAID.
func (i *Invoice) CanMarkPaid() bool {
	return i.Status == InvoiceStatusIssued
}

// CanVoid indica si la factura admite la transición a VOIDED.
// Una factura PAID no se puede anular (política de dominio).
func (i *Invoice) CanVoid() bool {
	return i.Status == InvoiceStatusIssued
}
