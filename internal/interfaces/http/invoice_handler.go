package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/invorya/comercial-api/internal/application/billing"
	"github.com/invorya/comercial-api/internal/application/dto"
)

// InvoiceHandler maneja las peticiones HTTP del ciclo de vida de facturas.
type InvoiceHandler struct {
	uc *billing.InvoiceLifecycleUseCase
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(uc *billing.InvoiceLifecycleUseCase) *InvoiceHandler {
	return &InvoiceHandler{uc: uc}
}

func toLineInputs(lines []dto.InvoiceLineRequest) []billing.IssueLineInput {
	out := make([]billing.IssueLineInput, 0, len(lines))
	for _, ln := range lines {
		out = append(out, billing.IssueLineInput{
			ProductID:   ln.ProductID,
			Quantity:    ln.Quantity,
			UnitPrice:   ln.UnitPrice,
			DiscountPct: ln.DiscountPct,
			TaxPct:      ln.TaxPct,
		})
	}
	return out
}

// Compute godoc
// @Summary      Calcular totales de una factura sin emitirla
// @Description  Cálculo puro: no descuenta stock, no consume consecutivo, no persiste.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ComputeInvoiceRequest  true  "lines"
// @Success      200   {object}  dto.ComputeInvoiceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/invoices/compute [post]
func (h *InvoiceHandler) Compute(c *fiber.Ctx) error {
	var in dto.ComputeInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	perLine, totals, err := h.uc.Compute(c.Context(), toLineInputs(in.Lines))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FromComputed(perLine, totals))
}

// Issue godoc
// @Summary      Emitir factura
// @Description  Emite en una sola transacción: descuenta stock por línea (SALE),
//
//	reserva el consecutivo y registra el asiento contable. Todo o nada.
//
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        body  body  dto.IssueInvoiceRequest  true  "document_type, lines, client_ref"
// @Success      201   {object}  dto.InvoiceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      502   {object}  dto.ErrorResponse
// @Router       /api/invoices [post]
func (h *InvoiceHandler) Issue(c *fiber.Ctx) error {
	var in dto.IssueInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	invoice, lines, err := h.uc.Issue(c.Context(), billing.IssueInput{
		ClientRef:    in.ClientRef,
		DocumentType: in.DocumentType,
		DueDate:      in.DueDate,
		ActorID:      GetActorID(c),
		Lines:        toLineInputs(in.Lines),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromInvoice(invoice, lines))
}

// Pay godoc
// @Summary      Marcar factura como pagada
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id    path  string                true  "ID de la factura"
// @Param        body  body  dto.PayInvoiceRequest true  "method, payment_date, received_amount"
// @Success      200   {object}  dto.InvoiceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/pay [post]
func (h *InvoiceHandler) Pay(c *fiber.Ctx) error {
	var in dto.PayInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	invoice, err := h.uc.MarkPaid(c.Context(), c.Params("id"), billing.PayInput{
		Method:         in.Method,
		PaymentDate:    in.PaymentDate,
		ReceivedAmount: in.ReceivedAmount,
		ActorID:        GetActorID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FromInvoice(invoice, nil))
}

// Void godoc
// @Summary      Anular factura
// @Description  Revierte los movimientos de stock de la emisión y registra el
//
//	asiento contable de reversa, en una sola transacción. Una factura
//	pagada no se puede anular.
//
// @Tags         invoices
// @Produce      json
// @Param        id  path  string  true  "ID de la factura"
// @Success      200  {object}  dto.InvoiceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/void [post]
func (h *InvoiceHandler) Void(c *fiber.Ctx) error {
	invoice, err := h.uc.Void(c.Context(), c.Params("id"), GetActorID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FromInvoice(invoice, nil))
}

// GetByID godoc
// @Summary      Obtener factura con sus líneas
// @Tags         invoices
// @Produce      json
// @Param        id  path  string  true  "ID de la factura"
// @Success      200  {object}  dto.InvoiceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	invoice, lines, err := h.uc.GetInvoice(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FromInvoice(invoice, lines))
}
