package entity

import "github.com/shopspring/decimal"

// InvoiceLine representa una línea de una factura. Inmutable una vez emitida.
// Description es un snapshot tomado al emitir, independiente de ediciones
// posteriores del nombre del producto. Las cuatro cifras derivadas se calculan
// una sola vez y se guardan tal cual.
type InvoiceLine struct {
	ID           string
	InvoiceID    string
	ProductID    string
	Description  string
	Quantity     int64
	UnitPrice    decimal.Decimal
	DiscountPct  decimal.Decimal // porcentaje decimal en [0,100]
	TaxPct       decimal.Decimal // porcentaje decimal en [0,100]
	LineSubtotal decimal.Decimal
	LineDiscount decimal.Decimal
	LineTax      decimal.Decimal
	LineTotal    decimal.Decimal
}
