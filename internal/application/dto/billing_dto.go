package dto

import (
	"time"

	"github.com/shopspring/decimal"

	domainbilling "github.com/invorya/comercial-api/internal/domain/billing"
	"github.com/invorya/comercial-api/internal/domain/entity"
)

// InvoiceLineRequest línea solicitada al emitir o calcular una factura.
// unit_price omitido toma el precio público vigente del producto.
type InvoiceLineRequest struct {
	ProductID   string           `json:"product_id"`
	Quantity    int64            `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	DiscountPct decimal.Decimal  `json:"discount_pct"`
	TaxPct      decimal.Decimal  `json:"tax_pct"`
}

// IssueInvoiceRequest body para POST /api/invoices.
type IssueInvoiceRequest struct {
	ClientRef    string               `json:"client_ref,omitempty"`
	DocumentType string               `json:"document_type"`
	DueDate      *time.Time           `json:"due_date,omitempty"`
	Lines        []InvoiceLineRequest `json:"lines"`
}

// ComputeInvoiceRequest body para POST /api/invoices/compute (cálculo sin persistir).
type ComputeInvoiceRequest struct {
	Lines []InvoiceLineRequest `json:"lines"`
}

// PayInvoiceRequest body para POST /api/invoices/:id/pay.
type PayInvoiceRequest struct {
	Method         string           `json:"method"`
	PaymentDate    *time.Time       `json:"payment_date,omitempty"`
	ReceivedAmount *decimal.Decimal `json:"received_amount,omitempty"`
}

// LineTotalsResponse cifras derivadas de una línea.
type LineTotalsResponse struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// ComputeInvoiceResponse respuesta del cálculo puro.
type ComputeInvoiceResponse struct {
	Lines         []LineTotalsResponse `json:"lines"`
	Subtotal      decimal.Decimal      `json:"subtotal"`
	TotalDiscount decimal.Decimal      `json:"total_discount"`
	TotalTax      decimal.Decimal      `json:"total_tax"`
	Total         decimal.Decimal      `json:"total"`
}

// FromComputed arma la respuesta del cálculo puro.
func FromComputed(perLine []domainbilling.LineTotals, totals domainbilling.DocumentTotals) ComputeInvoiceResponse {
	resp := ComputeInvoiceResponse{
		Lines:         make([]LineTotalsResponse, 0, len(perLine)),
		Subtotal:      totals.Subtotal,
		TotalDiscount: totals.TotalDiscount,
		TotalTax:      totals.TotalTax,
		Total:         totals.Total,
	}
	for _, lt := range perLine {
		resp.Lines = append(resp.Lines, LineTotalsResponse{
			Subtotal: lt.Subtotal,
			Discount: lt.Discount,
			Tax:      lt.Tax,
			Total:    lt.Total,
		})
	}
	return resp
}

// InvoiceLineResponse línea de factura en respuestas HTTP.
type InvoiceLineResponse struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"product_id"`
	Description  string          `json:"description"`
	Quantity     int64           `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	DiscountPct  decimal.Decimal `json:"discount_pct"`
	TaxPct       decimal.Decimal `json:"tax_pct"`
	LineSubtotal decimal.Decimal `json:"line_subtotal"`
	LineDiscount decimal.Decimal `json:"line_discount"`
	LineTax      decimal.Decimal `json:"line_tax"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

// InvoiceResponse cabecera de factura en respuestas HTTP.
type InvoiceResponse struct {
	ID             string                `json:"id"`
	Number         string                `json:"number"`
	ClientRef      string                `json:"client_ref,omitempty"`
	DocumentType   string                `json:"document_type"`
	Status         string                `json:"status"`
	IssueDate      time.Time             `json:"issue_date"`
	DueDate        *time.Time            `json:"due_date,omitempty"`
	PaymentDate    *time.Time            `json:"payment_date,omitempty"`
	PaymentMethod  string                `json:"payment_method,omitempty"`
	ReceivedAmount *decimal.Decimal      `json:"received_amount,omitempty"`
	Subtotal       decimal.Decimal       `json:"subtotal"`
	TotalDiscount  decimal.Decimal       `json:"total_discount"`
	TotalTax       decimal.Decimal       `json:"total_tax"`
	Total          decimal.Decimal       `json:"total"`
	AccountingRef  string                `json:"accounting_ref,omitempty"`
	Lines          []InvoiceLineResponse `json:"lines,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// FromInvoice convierte cabecera y líneas a su representación HTTP.
func FromInvoice(inv *entity.Invoice, lines []*entity.InvoiceLine) InvoiceResponse {
	resp := InvoiceResponse{
		ID:             inv.ID,
		Number:         inv.Number,
		ClientRef:      inv.ClientRef,
		DocumentType:   inv.DocumentType,
		Status:         inv.Status,
		IssueDate:      inv.IssueDate,
		DueDate:        inv.DueDate,
		PaymentDate:    inv.PaymentDate,
		PaymentMethod:  inv.PaymentMethod,
		ReceivedAmount: inv.ReceivedAmount,
		Subtotal:       inv.Subtotal,
		TotalDiscount:  inv.TotalDiscount,
		TotalTax:       inv.TotalTax,
		Total:          inv.Total,
		AccountingRef:  inv.AccountingRef,
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
	}
	for _, ln := range lines {
		resp.Lines = append(resp.Lines, InvoiceLineResponse{
			ID:           ln.ID,
			ProductID:    ln.ProductID,
			Description:  ln.Description,
			Quantity:     ln.Quantity,
			UnitPrice:    ln.UnitPrice,
			DiscountPct:  ln.DiscountPct,
			TaxPct:       ln.TaxPct,
			LineSubtotal: ln.LineSubtotal,
			LineDiscount: ln.LineDiscount,
			LineTax:      ln.LineTax,
			LineTotal:    ln.LineTotal,
		})
	}
	return resp
}
