package billing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/invorya/comercial-api/internal/application/inventory"
	"github.com/invorya/comercial-api/internal/domain"
	domainbilling "github.com/invorya/comercial-api/internal/domain/billing"
	"github.com/invorya/comercial-api/internal/domain/entity"
	"github.com/invorya/comercial-api/internal/domain/repository"
)

// InvoiceLifecycleUseCase orquesta la máquina de estados de la factura:
// emitir (ISSUED), marcar pagada (PAID) y anular (VOIDED). Emitir y anular
// tocan kardex, producto, documento y asiento contable en una sola transacción.
type InvoiceLifecycleUseCase struct {
	txRunner       TxRunner
	stock          StockLedger
	productRepo    repository.ProductRepository
	invoiceRepo    repository.InvoiceRepository
	poster         AccountingPoster
	postingTimeout time.Duration
}

// NewInvoiceLifecycleUseCase construye el caso de uso. postingTimeout acota la
// llamada al colaborador contable para no retener los bloqueos de fila indefinidamente.
func NewInvoiceLifecycleUseCase(
	txRunner TxRunner,
	stock StockLedger,
	productRepo repository.ProductRepository,
	invoiceRepo repository.InvoiceRepository,
	poster AccountingPoster,
	postingTimeout time.Duration,
) *InvoiceLifecycleUseCase {
	return &InvoiceLifecycleUseCase{
		txRunner:       txRunner,
		stock:          stock,
		productRepo:    productRepo,
		invoiceRepo:    invoiceRepo,
		poster:         poster,
		postingTimeout: postingTimeout,
	}
}

// IssueLineInput línea solicitada al emitir. UnitPrice nil toma el precio
// público vigente del producto como default (editable por línea).
type IssueLineInput struct {
	ProductID   string
	Quantity    int64
	UnitPrice   *decimal.Decimal
	DiscountPct decimal.Decimal
	TaxPct      decimal.Decimal
}

// IssueInput solicitud de emisión de factura.
type IssueInput struct {
	ClientRef    string
	DocumentType string
	DueDate      *time.Time
	ActorID      string
	Lines        []IssueLineInput
}

// PayInput datos de la transición a PAID.
type PayInput struct {
	Method         string
	PaymentDate    *time.Time
	ReceivedAmount *decimal.Decimal
	ActorID        string
}

// resolvedLine línea con el producto resuelto y las cifras ya calculadas.
type resolvedLine struct {
	product *entity.Product
	input   IssueLineInput
	price   decimal.Decimal
	totals  domainbilling.LineTotals
}

// Issue emite una factura: calcula los totales, descuenta stock por cada línea
// (solo documentos SALE), reserva el consecutivo, persiste cabecera y líneas en
// ISSUED y registra el asiento contable FORWARD. Todo dentro de una transacción:
// si cualquier línea no tiene stock o el asiento falla, no queda ningún efecto.
func (uc *InvoiceLifecycleUseCase) Issue(ctx context.Context, input IssueInput) (*entity.Invoice, []*entity.InvoiceLine, error) {
	if !entity.ValidDocumentType(input.DocumentType) {
		return nil, nil, fmt.Errorf("%w: tipo de documento desconocido", domain.ErrInvalidInput)
	}

	resolved, err := uc.resolveLines(input.Lines)
	if err != nil {
		return nil, nil, err
	}

	lineInputs := make([]domainbilling.LineInput, len(resolved))
	for i, rl := range resolved {
		lineInputs[i] = domainbilling.LineInput{
			Quantity:    rl.input.Quantity,
			UnitPrice:   rl.price,
			DiscountPct: rl.input.DiscountPct,
			TaxPct:      rl.input.TaxPct,
		}
	}
	if verr := domainbilling.ValidateLines(lineInputs); verr != nil {
		return nil, nil, verr
	}
	totals, err := domainbilling.ComputeInvoice(lineInputs)
	if err != nil {
		return nil, nil, err
	}
	for i := range resolved {
		resolved[i].totals = domainbilling.ComputeLine(lineInputs[i])
	}

	now := time.Now()
	invoice := &entity.Invoice{
		ID:            uuid.New().String(),
		ClientRef:     input.ClientRef,
		DocumentType:  input.DocumentType,
		Status:        entity.InvoiceStatusIssued,
		IssueDate:     now,
		DueDate:       input.DueDate,
		Subtotal:      totals.Subtotal,
		TotalDiscount: totals.TotalDiscount,
		TotalTax:      totals.TotalTax,
		Total:         totals.Total,
		CreatedBy:     input.ActorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var lines []*entity.InvoiceLine
	err = uc.txRunner.RunBilling(ctx, func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
		invoiceRepo repository.InvoiceRepository,
	) error {
		// Orden de bloqueo estable por producto: dos emisiones concurrentes con
		// productos en común nunca se bloquean en orden cruzado
		order := make([]int, len(resolved))
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(a, b int) bool {
			return resolved[order[a]].product.ID < resolved[order[b]].product.ID
		})

		if invoice.DocumentType == entity.DocumentTypeSale {
			for _, idx := range order {
				rl := resolved[idx]
				_, err := uc.stock.ApplyInTx(movRepo, productRepo, inventory.ApplyInput{
					ProductID: rl.product.ID,
					Kind:      entity.MovementKindOutbound,
					Quantity:  rl.input.Quantity,
					UnitPrice: &rl.price,
					Reference: invoice.ID,
					Notes:     "venta",
					ActorID:   input.ActorID,
				}, now)
				if err != nil {
					return err
				}
			}
		}

		number, err := invoiceRepo.NextNumber()
		if err != nil {
			return err
		}
		invoice.Number = number

		if err := invoiceRepo.Create(invoice); err != nil {
			return err
		}
		lines = make([]*entity.InvoiceLine, 0, len(resolved))
		for _, rl := range resolved {
			line := &entity.InvoiceLine{
				ID:           uuid.New().String(),
				InvoiceID:    invoice.ID,
				ProductID:    rl.product.ID,
				Description:  rl.product.Name,
				Quantity:     rl.input.Quantity,
				UnitPrice:    rl.price,
				DiscountPct:  rl.input.DiscountPct,
				TaxPct:       rl.input.TaxPct,
				LineSubtotal: rl.totals.Subtotal,
				LineDiscount: rl.totals.Discount,
				LineTax:      rl.totals.Tax,
				LineTotal:    rl.totals.Total,
			}
			if err := invoiceRepo.CreateLine(line); err != nil {
				return err
			}
			lines = append(lines, line)
		}

		ref, err := uc.post(ctx, invoice, lines, PostingDirectionForward)
		if err != nil {
			return err
		}
		invoice.AccountingRef = ref
		return invoiceRepo.UpdateAccountingRef(invoice)
	})
	if err != nil {
		return nil, nil, err
	}
	return invoice, lines, nil
}

// MarkPaid registra el pago de una factura emitida. Transición pura de estado:
// no toca inventario ni contabilidad.
func (uc *InvoiceLifecycleUseCase) MarkPaid(ctx context.Context, invoiceID string, input PayInput) (*entity.Invoice, error) {
	if input.Method == "" {
		return nil, fmt.Errorf("%w: método de pago requerido", domain.ErrInvalidInput)
	}
	if input.ReceivedAmount != nil && input.ReceivedAmount.IsNegative() {
		return nil, fmt.Errorf("%w: monto recibido negativo", domain.ErrInvalidInput)
	}

	var invoice *entity.Invoice
	err := uc.txRunner.RunBilling(ctx, func(
		_ repository.StockMovementRepository,
		_ repository.ProductRepository,
		invoiceRepo repository.InvoiceRepository,
	) error {
		var err error
		invoice, err = invoiceRepo.GetForUpdate(invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrNotFound
		}
		if !invoice.CanMarkPaid() {
			return fmt.Errorf("%w: %s no admite pago", domain.ErrInvalidTransition, invoice.Status)
		}

		now := time.Now()
		paidAt := now
		if input.PaymentDate != nil {
			paidAt = *input.PaymentDate
		}
		invoice.Status = entity.InvoiceStatusPaid
		invoice.PaymentDate = &paidAt
		invoice.PaymentMethod = input.Method
		invoice.ReceivedAmount = input.ReceivedAmount
		invoice.UpdatedAt = now
		return invoiceRepo.MarkPaid(invoice)
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// Void anula una factura emitida: revierte cada movimiento de stock que la
// emisión generó (por valor guardado, vía el kardex) y registra el asiento
// contable REVERSAL, todo en una transacción. Una factura PAID no se anula.
func (uc *InvoiceLifecycleUseCase) Void(ctx context.Context, invoiceID, actorID string) (*entity.Invoice, error) {
	var invoice *entity.Invoice
	err := uc.txRunner.RunBilling(ctx, func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
		invoiceRepo repository.InvoiceRepository,
	) error {
		var err error
		invoice, err = invoiceRepo.GetForUpdate(invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrNotFound
		}
		if !invoice.CanVoid() {
			return fmt.Errorf("%w: %s no admite anulación", domain.ErrInvalidTransition, invoice.Status)
		}

		now := time.Now()

		// Los movimientos de la emisión llevan el ID de la factura como referencia.
		// Se revierten los originales (no reversas previas, no ya revertidos),
		// en orden de bloqueo estable por producto
		movements, err := movRepo.ListByReference(invoice.ID)
		if err != nil {
			return err
		}
		var toReverse []*entity.StockMovement
		for _, m := range movements {
			if !m.IsReversal() && m.ReversedBy == "" {
				toReverse = append(toReverse, m)
			}
		}
		sort.Slice(toReverse, func(a, b int) bool {
			return toReverse[a].ProductID < toReverse[b].ProductID
		})
		for _, m := range toReverse {
			if _, err := uc.stock.ReverseInTx(movRepo, productRepo, m.ID, actorID, now); err != nil {
				return err
			}
		}

		lines, err := invoiceRepo.GetLines(invoice.ID)
		if err != nil {
			return err
		}
		if _, err := uc.post(ctx, invoice, lines, PostingDirectionReversal); err != nil {
			return err
		}

		invoice.Status = entity.InvoiceStatusVoided
		invoice.UpdatedAt = now
		return invoiceRepo.MarkVoided(invoice)
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// Compute calcula los totales de un documento sin persistir nada.
// Resuelve el precio público del producto cuando la línea no trae precio.
func (uc *InvoiceLifecycleUseCase) Compute(ctx context.Context, lines []IssueLineInput) ([]domainbilling.LineTotals, domainbilling.DocumentTotals, error) {
	resolved, err := uc.resolveLines(lines)
	if err != nil {
		return nil, domainbilling.DocumentTotals{}, err
	}
	lineInputs := make([]domainbilling.LineInput, len(resolved))
	for i, rl := range resolved {
		lineInputs[i] = domainbilling.LineInput{
			Quantity:    rl.input.Quantity,
			UnitPrice:   rl.price,
			DiscountPct: rl.input.DiscountPct,
			TaxPct:      rl.input.TaxPct,
		}
	}
	if verr := domainbilling.ValidateLines(lineInputs); verr != nil {
		return nil, domainbilling.DocumentTotals{}, verr
	}
	totals, err := domainbilling.ComputeInvoice(lineInputs)
	if err != nil {
		return nil, domainbilling.DocumentTotals{}, err
	}
	perLine := make([]domainbilling.LineTotals, len(lineInputs))
	for i, in := range lineInputs {
		perLine[i] = domainbilling.ComputeLine(in)
	}
	return perLine, totals, nil
}

// GetInvoice devuelve cabecera y líneas.
func (uc *InvoiceLifecycleUseCase) GetInvoice(ctx context.Context, invoiceID string) (*entity.Invoice, []*entity.InvoiceLine, error) {
	invoice, err := uc.invoiceRepo.GetByID(invoiceID)
	if err != nil {
		return nil, nil, err
	}
	if invoice == nil {
		return nil, nil, domain.ErrNotFound
	}
	lines, err := uc.invoiceRepo.GetLines(invoiceID)
	if err != nil {
		return nil, nil, err
	}
	return invoice, lines, nil
}

// resolveLines carga los productos de cada línea y fija el precio efectivo
// (precio explícito o precio público vigente). Lecturas sin bloqueo.
func (uc *InvoiceLifecycleUseCase) resolveLines(lines []IssueLineInput) ([]resolvedLine, error) {
	if len(lines) == 0 {
		verr := &domain.ValidationError{}
		verr.Add("lines", "se requiere al menos una línea")
		return nil, verr
	}
	resolved := make([]resolvedLine, 0, len(lines))
	for _, ln := range lines {
		product, err := uc.productRepo.GetByID(ln.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, ln.ProductID)
		}
		if !product.Active {
			return nil, fmt.Errorf("%w: producto %s inactivo", domain.ErrInvalidInput, ln.ProductID)
		}
		price := product.PublicPrice
		if ln.UnitPrice != nil {
			price = *ln.UnitPrice
		}
		resolved = append(resolved, resolvedLine{product: product, input: ln, price: price})
	}
	return resolved, nil
}

// post llama al colaborador contable con timeout acotado. Un fallo se envuelve
// en ErrExternalPosting y revierte la transacción del caller.
func (uc *InvoiceLifecycleUseCase) post(ctx context.Context, invoice *entity.Invoice, lines []*entity.InvoiceLine, direction string) (string, error) {
	if uc.postingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.postingTimeout)
		defer cancel()
	}
	req := PostingRequest{
		InvoiceID:      invoice.ID,
		InvoiceNumber:  invoice.Number,
		ClientRef:      invoice.ClientRef,
		Direction:      direction,
		IssueDate:      invoice.IssueDate,
		Subtotal:       invoice.Subtotal,
		TotalDiscount:  invoice.TotalDiscount,
		TotalTax:       invoice.TotalTax,
		Total:          invoice.Total,
		IdempotencyKey: invoice.ID + ":" + direction,
	}
	for _, ln := range lines {
		req.Lines = append(req.Lines, PostingLine{
			ProductID:   ln.ProductID,
			Description: ln.Description,
			Quantity:    ln.Quantity,
			Total:       ln.LineTotal,
		})
	}
	ref, err := uc.poster.Post(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrExternalPosting, err)
	}
	return ref, nil
}
