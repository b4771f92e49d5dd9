// Package billing contiene el computador de facturas: funciones puras que
// convierten líneas en cifras de documento. Sin efectos secundarios ni persistencia.
package billing

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/invorya/comercial-api/internal/domain"
	"github.com/invorya/comercial-api/pkg/money"
)

// LineInput entrada de cálculo para una línea de factura.
type LineInput struct {
	Quantity    int64
	UnitPrice   decimal.Decimal
	DiscountPct decimal.Decimal // porcentaje decimal en [0,100]
	TaxPct      decimal.Decimal // porcentaje decimal en [0,100]
}

// LineTotals cifras derivadas de una línea. Cada intermedio se redondea una vez.
type LineTotals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// DocumentTotals cifras agregadas del documento.
type DocumentTotals struct {
	Subtotal      decimal.Decimal
	TotalDiscount decimal.Decimal
	TotalTax      decimal.Decimal
	Total         decimal.Decimal
}

// ComputeLine calcula las cuatro cifras de una línea:
// subtotal = cantidad * precio; descuento = subtotal * pctDescuento/100;
// base gravable = subtotal - descuento; impuesto = base * pctImpuesto/100;
// total = base + impuesto. Cada cifra se redondea exactamente una vez (half-up).
func ComputeLine(in LineInput) LineTotals {
	subtotal := money.MulQty(in.UnitPrice, in.Quantity)
	descuento := money.Percent(subtotal, in.DiscountPct)
	base := subtotal.Sub(descuento)
	impuesto := money.Percent(base, in.TaxPct)
	return LineTotals{
		Subtotal: subtotal,
		Discount: descuento,
		Tax:      impuesto,
		Total:    base.Add(impuesto),
	}
}

// ComputeInvoice suma las cifras de cada línea. El total del documento es la
// suma directa de los totales de línea (no se re-deriva con una segunda fórmula);
// como verificación interna se comprueba la identidad
// total = subtotal - descuento + impuesto con tolerancia de una unidad menor por línea.
func ComputeInvoice(lines []LineInput) (DocumentTotals, error) {
	var totals DocumentTotals
	for _, in := range lines {
		lt := ComputeLine(in)
		totals.Subtotal = totals.Subtotal.Add(lt.Subtotal)
		totals.TotalDiscount = totals.TotalDiscount.Add(lt.Discount)
		totals.TotalTax = totals.TotalTax.Add(lt.Tax)
		totals.Total = totals.Total.Add(lt.Total)
	}

	derivado := totals.Subtotal.Sub(totals.TotalDiscount).Add(totals.TotalTax)
	tolerancia := decimal.New(int64(len(lines)), -money.MinorUnitPlaces)
	if totals.Total.Sub(derivado).Abs().GreaterThan(tolerancia) {
		return DocumentTotals{}, fmt.Errorf(
			"inconsistencia interna de totales: %s vs %s", totals.Total, derivado)
	}
	return totals, nil
}

// ValidateLines valida las líneas de un documento. Devuelve errores a nivel de
// campo (recuperables por el caller); nil si todo es válido.
func ValidateLines(lines []LineInput) *domain.ValidationError {
	verr := &domain.ValidationError{}
	if len(lines) == 0 {
		verr.Add("lines", "se requiere al menos una línea")
		return verr
	}
	for i, in := range lines {
		prefix := "lines[" + strconv.Itoa(i) + "]."
		if in.Quantity <= 0 {
			verr.Add(prefix+"quantity", "debe ser mayor que cero")
		}
		if !in.UnitPrice.IsPositive() {
			verr.Add(prefix+"unit_price", "debe ser mayor que cero")
		}
		if !money.IsValidPercent(in.DiscountPct) {
			verr.Add(prefix+"discount_pct", "debe estar entre 0 y 100")
		}
		if !money.IsValidPercent(in.TaxPct) {
			verr.Add(prefix+"tax_pct", "debe estar entre 0 y 100")
		}
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}
