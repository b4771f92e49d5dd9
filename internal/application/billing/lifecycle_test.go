package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invorya/comercial-api/internal/application/inventory"
	"github.com/invorya/comercial-api/internal/domain"
	"github.com/invorya/comercial-api/internal/domain/entity"
	"github.com/invorya/comercial-api/internal/domain/repository"
)

// ─────────────────────────────────────────────────────────────
// Fakes en memoria con snapshot/restore (Commit/Rollback)
// ─────────────────────────────────────────────────────────────

type memStore struct {
	mu        sync.Mutex
	products  map[string]*entity.Product
	movements map[string]*entity.StockMovement
	movOrder  []string
	invoices  map[string]*entity.Invoice
	lines     map[string][]*entity.InvoiceLine
	seq       int64
}

func newMemStore() *memStore {
	return &memStore{
		products:  make(map[string]*entity.Product),
		movements: make(map[string]*entity.StockMovement),
		invoices:  make(map[string]*entity.Invoice),
		lines:     make(map[string][]*entity.InvoiceLine),
	}
}

func (s *memStore) snapshot() *memStore {
	cp := newMemStore()
	for id, p := range s.products {
		pc := *p
		cp.products[id] = &pc
	}
	for id, m := range s.movements {
		mc := *m
		cp.movements[id] = &mc
	}
	cp.movOrder = append([]string(nil), s.movOrder...)
	for id, inv := range s.invoices {
		ic := *inv
		cp.invoices[id] = &ic
	}
	for id, lns := range s.lines {
		for _, ln := range lns {
			lc := *ln
			cp.lines[id] = append(cp.lines[id], &lc)
		}
	}
	cp.seq = s.seq
	return cp
}

func (s *memStore) restore(snap *memStore) {
	s.products = snap.products
	s.movements = snap.movements
	s.movOrder = snap.movOrder
	s.invoices = snap.invoices
	s.lines = snap.lines
	s.seq = snap.seq
}

type fakeProductRepo struct{ store *memStore }

func (r *fakeProductRepo) Create(p *entity.Product) error {
	pc := *p
	r.store.products[p.ID] = &pc
	return nil
}

func (r *fakeProductRepo) GetByID(id string) (*entity.Product, error) {
	p, ok := r.store.products[id]
	if !ok {
		return nil, nil
	}
	pc := *p
	return &pc, nil
}

func (r *fakeProductRepo) GetBySKU(sku string) (*entity.Product, error) { return nil, nil }

func (r *fakeProductRepo) List(limit, offset int) ([]*entity.Product, error) { return nil, nil }

func (r *fakeProductRepo) GetForUpdate(id string) (*entity.Product, error) { return r.GetByID(id) }

func (r *fakeProductRepo) UpdateAggregate(id string, qty int64, avg decimal.Decimal, updatedAt time.Time) error {
	p, ok := r.store.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.QuantityOnHand = qty
	p.AverageUnitCost = avg
	p.UpdatedAt = updatedAt
	return nil
}

type fakeMovementRepo struct{ store *memStore }

func (r *fakeMovementRepo) Create(m *entity.StockMovement) error {
	mc := *m
	r.store.movements[m.ID] = &mc
	r.store.movOrder = append(r.store.movOrder, m.ID)
	return nil
}

func (r *fakeMovementRepo) GetByID(id string) (*entity.StockMovement, error) {
	m, ok := r.store.movements[id]
	if !ok {
		return nil, nil
	}
	mc := *m
	return &mc, nil
}

func (r *fakeMovementRepo) GetForUpdate(id string) (*entity.StockMovement, error) {
	return r.GetByID(id)
}

func (r *fakeMovementRepo) MarkReversed(id, reversedBy string) error {
	m, ok := r.store.movements[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.ReversedBy = reversedBy
	return nil
}

func (r *fakeMovementRepo) ListByProduct(productID string, filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for _, id := range r.store.movOrder {
		m := r.store.movements[id]
		if m.ProductID == productID {
			mc := *m
			out = append(out, &mc)
		}
	}
	return out, nil
}

func (r *fakeMovementRepo) ListByReference(reference string) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for _, id := range r.store.movOrder {
		m := r.store.movements[id]
		if m.Reference == reference {
			mc := *m
			out = append(out, &mc)
		}
	}
	return out, nil
}

type fakeInvoiceRepo struct{ store *memStore }

func (r *fakeInvoiceRepo) Create(inv *entity.Invoice) error {
	ic := *inv
	r.store.invoices[inv.ID] = &ic
	return nil
}

func (r *fakeInvoiceRepo) CreateLine(line *entity.InvoiceLine) error {
	lc := *line
	r.store.lines[line.InvoiceID] = append(r.store.lines[line.InvoiceID], &lc)
	return nil
}

func (r *fakeInvoiceRepo) GetByID(id string) (*entity.Invoice, error) {
	inv, ok := r.store.invoices[id]
	if !ok {
		return nil, nil
	}
	ic := *inv
	return &ic, nil
}

func (r *fakeInvoiceRepo) GetLines(invoiceID string) ([]*entity.InvoiceLine, error) {
	var out []*entity.InvoiceLine
	for _, ln := range r.store.lines[invoiceID] {
		lc := *ln
		out = append(out, &lc)
	}
	return out, nil
}

func (r *fakeInvoiceRepo) GetForUpdate(id string) (*entity.Invoice, error) { return r.GetByID(id) }

func (r *fakeInvoiceRepo) NextNumber() (string, error) {
	r.store.seq++
	return fmt.Sprintf("FV-%06d", r.store.seq), nil
}

func (r *fakeInvoiceRepo) UpdateAccountingRef(inv *entity.Invoice) error {
	stored, ok := r.store.invoices[inv.ID]
	if !ok {
		return domain.ErrNotFound
	}
	stored.AccountingRef = inv.AccountingRef
	return nil
}

func (r *fakeInvoiceRepo) MarkPaid(inv *entity.Invoice) error {
	stored, ok := r.store.invoices[inv.ID]
	if !ok {
		return domain.ErrNotFound
	}
	*stored = *inv
	return nil
}

func (r *fakeInvoiceRepo) MarkVoided(inv *entity.Invoice) error {
	stored, ok := r.store.invoices[inv.ID]
	if !ok {
		return domain.ErrNotFound
	}
	*stored = *inv
	return nil
}

type fakeTxRunner struct{ store *memStore }

func (t *fakeTxRunner) RunBilling(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
	invoiceRepo repository.InvoiceRepository,
) error) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	snap := t.store.snapshot()
	err := fn(
		&fakeMovementRepo{store: t.store},
		&fakeProductRepo{store: t.store},
		&fakeInvoiceRepo{store: t.store},
	)
	if err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

// fakePoster registra los asientos solicitados; failNext simula un colaborador caído.
type fakePoster struct {
	mu       sync.Mutex
	requests []PostingRequest
	failNext error
}

func (p *fakePoster) Post(ctx context.Context, req PostingRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failNext != nil {
		err := p.failNext
		p.failNext = nil
		return "", err
	}
	p.requests = append(p.requests, req)
	return fmt.Sprintf("AS-%04d", len(p.requests)), nil
}

func newLifecycle(t *testing.T) (*InvoiceLifecycleUseCase, *memStore, *fakePoster) {
	t.Helper()
	store := newMemStore()
	poster := &fakePoster{}
	stock := inventory.NewMovementUseCase(nil, &fakeProductRepo{store: store}, &fakeMovementRepo{store: store})
	uc := NewInvoiceLifecycleUseCase(
		&fakeTxRunner{store: store},
		stock,
		&fakeProductRepo{store: store},
		&fakeInvoiceRepo{store: store},
		poster,
		2*time.Second,
	)
	return uc, store, poster
}

func seedProduct(store *memStore, id string, qty int64, avg, publicPrice string) {
	store.products[id] = &entity.Product{
		ID:              id,
		SKU:             "SKU-" + id,
		Name:            "Producto " + id,
		PublicPrice:     decimal.RequireFromString(publicPrice),
		AverageUnitCost: decimal.RequireFromString(avg),
		QuantityOnHand:  qty,
		Active:          true,
	}
}

func pricePtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ─────────────────────────────────────────────────────────────
// Emisión
// ─────────────────────────────────────────────────────────────

func TestIssue_VentaDescuentaStockYRegistraAsiento(t *testing.T) {
	uc, store, poster := newLifecycle(t)
	seedProduct(store, "p1", 20, "11.00", "100.00")
	seedProduct(store, "p2", 10, "5.00", "25.00")
	ctx := context.Background()

	invoice, lines, err := uc.Issue(ctx, IssueInput{
		ClientRef:    "cli-1",
		DocumentType: entity.DocumentTypeSale,
		ActorID:      "vendedor",
		Lines: []IssueLineInput{
			{ProductID: "p1", Quantity: 3, UnitPrice: pricePtr("100.00"), DiscountPct: dec("10"), TaxPct: dec("19")},
			{ProductID: "p2", Quantity: 2, UnitPrice: pricePtr("25.00"), TaxPct: dec("19")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "FV-000001", invoice.Number)
	assert.Equal(t, entity.InvoiceStatusIssued, invoice.Status)
	assert.True(t, invoice.Subtotal.Equal(dec("350.00")), "subtotal = %s", invoice.Subtotal)
	assert.True(t, invoice.TotalDiscount.Equal(dec("30.00")))
	assert.True(t, invoice.TotalTax.Equal(dec("60.80")), "impuesto = %s", invoice.TotalTax)
	assert.True(t, invoice.Total.Equal(dec("380.80")))
	assert.NotEmpty(t, invoice.AccountingRef)
	require.Len(t, lines, 2)
	assert.Equal(t, "Producto p1", lines[0].Description)
	assert.True(t, lines[0].LineTotal.Equal(dec("321.30")))

	// El stock bajó y cada línea dejó su OUTBOUND con la factura como referencia
	assert.Equal(t, int64(17), store.products["p1"].QuantityOnHand)
	assert.Equal(t, int64(8), store.products["p2"].QuantityOnHand)
	movs, _ := (&fakeMovementRepo{store: store}).ListByReference(invoice.ID)
	require.Len(t, movs, 2)
	for _, m := range movs {
		assert.Equal(t, entity.MovementKindOutbound, m.Kind)
	}

	require.Len(t, poster.requests, 1)
	assert.Equal(t, PostingDirectionForward, poster.requests[0].Direction)
	assert.Equal(t, invoice.ID+":"+PostingDirectionForward, poster.requests[0].IdempotencyKey)
}

func TestIssue_PrecioPorDefectoEsElPrecioPublico(t *testing.T) {
	uc, store, _ := newLifecycle(t)
	seedProduct(store, "p1", 10, "11.00", "42.00")

	invoice, lines, err := uc.Issue(context.Background(), IssueInput{
		DocumentType: entity.DocumentTypeSale,
		Lines:        []IssueLineInput{{ProductID: "p1", Quantity: 2}},
	})
	require.NoError(t, err)
	assert.True(t, lines[0].UnitPrice.Equal(dec("42.00")))
	assert.True(t, invoice.Total.Equal(dec("84.00")))
}

func TestIssue_StockInsuficienteNoDejaEfectoAlguno(t *testing.T) {
	uc, store, poster := newLifecycle(t)
	seedProduct(store, "p1", 20, "11.00", "100.00")
	seedProduct(store, "p2", 1, "5.00", "25.00")
	ctx := context.Background()

	_, _, err := uc.Issue(ctx, IssueInput{
		DocumentType: entity.DocumentTypeSale,
		Lines: []IssueLineInput{
			{ProductID: "p1", Quantity: 3, UnitPrice: pricePtr("100.00")},
			{ProductID: "p2", Quantity: 5, UnitPrice: pricePtr("25.00")},
		},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// Ni stock, ni movimientos, ni factura, ni asiento: todo o nada
	assert.Equal(t, int64(20), store.products["p1"].QuantityOnHand)
	assert.Equal(t, int64(1), store.products["p2"].QuantityOnHand)
	assert.Empty(t, store.movements)
	assert.Empty(t, store.invoices)
	assert.Empty(t, poster.requests)
	assert.Equal(t, int64(0), store.seq, "el consecutivo no se consume")
}

func TestIssue_FalloContableRevierteTodo(t *testing.T) {
	uc, store, poster := newLifecycle(t)
	seedProduct(store, "p1", 20, "11.00", "100.00")
	poster.failNext = errors.New("colaborador caído")

	_, _, err := uc.Issue(context.Background(), IssueInput{
		DocumentType: entity.DocumentTypeSale,
		Lines:        []IssueLineInput{{ProductID: "p1", Quantity: 3, UnitPrice: pricePtr("100.00")}},
	})
	assert.ErrorIs(t, err, domain.ErrExternalPosting)

	assert.Equal(t, int64(20), store.products["p1"].QuantityOnHand)
	assert.Empty(t, store.movements)
	assert.Empty(t, store.invoices)
}

func TestIssue_ServicioNoTocaInventario(t *testing.T) {
	uc, store, poster := newLifecycle(t)
	seedProduct(store, "p1", 5, "11.00", "100.00")

	invoice, _, err := uc.Issue(context.Background(), IssueInput{
		DocumentType: entity.DocumentTypeService,
		Lines:        []IssueLineInput{{ProductID: "p1", Quantity: 10, UnitPrice: pricePtr("100.00")}},
	})
	require.NoError(t, err, "un servicio no exige stock")

	assert.Equal(t, int64(5), store.products["p1"].QuantityOnHand)
	assert.Empty(t, store.movements)
	assert.Equal(t, entity.InvoiceStatusIssued, invoice.Status)
	require.Len(t, poster.requests, 1)
}

func TestIssue_Validaciones(t *testing.T) {
	uc, store, _ := newLifecycle(t)
	seedProduct(store, "p1", 5, "11.00", "100.00")
	ctx := context.Background()

	_, _, err := uc.Issue(ctx, IssueInput{DocumentType: "COTIZACION",
		Lines: []IssueLineInput{{ProductID: "p1", Quantity: 1}}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = uc.Issue(ctx, IssueInput{DocumentType: entity.DocumentTypeSale})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr, "sin líneas: error de validación por campo")

	_, _, err = uc.Issue(ctx, IssueInput{DocumentType: entity.DocumentTypeSale,
		Lines: []IssueLineInput{{ProductID: "nope", Quantity: 1}}})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = uc.Issue(ctx, IssueInput{DocumentType: entity.DocumentTypeSale,
		Lines: []IssueLineInput{{ProductID: "p1", Quantity: 1, DiscountPct: dec("101")}}})
	assert.ErrorAs(t, err, &verr)
}

// ─────────────────────────────────────────────────────────────
// Pago
// ─────────────────────────────────────────────────────────────

func TestMarkPaid_TransicionYRechazos(t *testing.T) {
	uc, store, _ := newLifecycle(t)
	seedProduct(store, "p1", 10, "11.00", "100.00")
	ctx := context.Background()

	invoice, _, err := uc.Issue(ctx, IssueInput{
		DocumentType: entity.DocumentTypeSale,
		Lines:        []IssueLineInput{{ProductID: "p1", Quantity: 1}},
	})
	require.NoError(t, err)

	paid, err := uc.MarkPaid(ctx, invoice.ID, PayInput{Method: "EFECTIVO", ReceivedAmount: pricePtr("100.00")})
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPaid, paid.Status)
	assert.Equal(t, "EFECTIVO", paid.PaymentMethod)
	require.NotNil(t, paid.PaymentDate)

	// PAID es terminal: ni doble pago ni anulación
	_, err = uc.MarkPaid(ctx, invoice.ID, PayInput{Method: "EFECTIVO"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = uc.Void(ctx, invoice.ID, "admin")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = uc.MarkPaid(ctx, invoice.ID, PayInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "método de pago requerido")
	_, err = uc.MarkPaid(ctx, "nope", PayInput{Method: "EFECTIVO"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ─────────────────────────────────────────────────────────────
// Anulación
// ─────────────────────────────────────────────────────────────

func TestVoid_RestauraElEstadoExactoDelInventario(t *testing.T) {
	uc, store, poster := newLifecycle(t)
	seedProduct(store, "p1", 20, "11.00", "100.00")
	seedProduct(store, "p2", 10, "5.25", "25.00")
	ctx := context.Background()

	invoice, _, err := uc.Issue(ctx, IssueInput{
		DocumentType: entity.DocumentTypeSale,
		Lines: []IssueLineInput{
			{ProductID: "p1", Quantity: 3, UnitPrice: pricePtr("100.00")},
			{ProductID: "p2", Quantity: 2, UnitPrice: pricePtr("25.00")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(17), store.products["p1"].QuantityOnHand)

	voided, err := uc.Void(ctx, invoice.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusVoided, voided.Status)

	// Cantidad y costo promedio vuelven exactamente al estado previo
	assert.Equal(t, int64(20), store.products["p1"].QuantityOnHand)
	assert.True(t, store.products["p1"].AverageUnitCost.Equal(dec("11.00")))
	assert.Equal(t, int64(10), store.products["p2"].QuantityOnHand)
	assert.True(t, store.products["p2"].AverageUnitCost.Equal(dec("5.25")))

	// Cada OUTBOUND original quedó enlazado a su reversa
	movs, _ := (&fakeMovementRepo{store: store}).ListByReference(invoice.ID)
	var originals, reversals []*entity.StockMovement
	for _, m := range movs {
		if m.ReversalOf == "" {
			originals = append(originals, m)
		} else {
			reversals = append(reversals, m)
		}
	}
	require.Len(t, originals, 2)
	require.Len(t, reversals, 2)
	for _, m := range originals {
		assert.NotEmpty(t, m.ReversedBy)
	}
	sort.Slice(reversals, func(a, b int) bool { return reversals[a].ProductID < reversals[b].ProductID })
	assert.Equal(t, entity.MovementKindInbound, reversals[0].Kind)

	// Asiento de reversa con su propia clave de idempotencia
	require.Len(t, poster.requests, 2)
	assert.Equal(t, PostingDirectionReversal, poster.requests[1].Direction)
	assert.Equal(t, invoice.ID+":"+PostingDirectionReversal, poster.requests[1].IdempotencyKey)
}

func TestVoid_DobleAnulacionRechazada(t *testing.T) {
	uc, store, _ := newLifecycle(t)
	seedProduct(store, "p1", 10, "11.00", "100.00")
	ctx := context.Background()

	invoice, _, err := uc.Issue(ctx, IssueInput{
		DocumentType: entity.DocumentTypeSale,
		Lines:        []IssueLineInput{{ProductID: "p1", Quantity: 2}},
	})
	require.NoError(t, err)

	_, err = uc.Void(ctx, invoice.ID, "admin")
	require.NoError(t, err)

	_, err = uc.Void(ctx, invoice.ID, "admin")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, int64(10), store.products["p1"].QuantityOnHand, "la segunda anulación no re-ingresa stock")

	_, err = uc.MarkPaid(ctx, invoice.ID, PayInput{Method: "EFECTIVO"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "VOIDED es terminal")
}

func TestVoid_FalloContableDejaLaFacturaEmitida(t *testing.T) {
	uc, store, poster := newLifecycle(t)
	seedProduct(store, "p1", 10, "11.00", "100.00")
	ctx := context.Background()

	invoice, _, err := uc.Issue(ctx, IssueInput{
		DocumentType: entity.DocumentTypeSale,
		Lines:        []IssueLineInput{{ProductID: "p1", Quantity: 2}},
	})
	require.NoError(t, err)

	poster.failNext = errors.New("colaborador caído")
	_, err = uc.Void(ctx, invoice.ID, "admin")
	assert.ErrorIs(t, err, domain.ErrExternalPosting)

	// La anulación fallida no deja efectos parciales: sigue emitida y con stock descontado
	stored, _, err := uc.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusIssued, stored.Status)
	assert.Equal(t, int64(8), store.products["p1"].QuantityOnHand)

	// Reintentable: la segunda anulación sí procede
	_, err = uc.Void(ctx, invoice.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, int64(10), store.products["p1"].QuantityOnHand)
}

// ─────────────────────────────────────────────────────────────
// Cálculo puro
// ─────────────────────────────────────────────────────────────

func TestCompute_NoPersisteNada(t *testing.T) {
	uc, store, poster := newLifecycle(t)
	seedProduct(store, "p1", 2, "11.00", "100.00")

	perLine, totals, err := uc.Compute(context.Background(), []IssueLineInput{
		{ProductID: "p1", Quantity: 99, DiscountPct: dec("10"), TaxPct: dec("19")},
	})
	require.NoError(t, err, "el cálculo no exige stock")
	require.Len(t, perLine, 1)
	assert.True(t, totals.Subtotal.Equal(dec("9900.00")))
	assert.True(t, totals.TotalDiscount.Equal(dec("990.00")))
	assert.True(t, totals.TotalTax.Equal(dec("1692.90")))
	assert.True(t, totals.Total.Equal(dec("10602.90")))

	assert.Empty(t, store.invoices)
	assert.Empty(t, store.movements)
	assert.Empty(t, poster.requests)
}

func TestGetInvoice_Inexistente(t *testing.T) {
	uc, _, _ := newLifecycle(t)
	_, _, err := uc.GetInvoice(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
