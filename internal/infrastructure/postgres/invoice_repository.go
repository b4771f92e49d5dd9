package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/invorya/comercial-api/internal/domain"
	"github.com/invorya/comercial-api/internal/domain/entity"
	"github.com/invorya/comercial-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación del puerto InvoiceRepository sobre PostgreSQL
// (usable con pool o tx). Las líneas son inmutables; la cabecera solo muta por
// las transiciones del ciclo de vida.
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `id, number, COALESCE(client_ref, ''), document_type, status,
	issue_date, due_date, payment_date, COALESCE(payment_method, ''), received_amount,
	subtotal, total_discount, total_tax, total, COALESCE(accounting_ref, ''),
	COALESCE(created_by, ''), created_at, updated_at`

// Create persiste la cabecera de una factura recién emitida.
func (r *InvoiceRepo) Create(inv *entity.Invoice) error {
	query := `
		INSERT INTO invoices (id, number, client_ref, document_type, status, issue_date, due_date,
			subtotal, total_discount, total_tax, total, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(context.Background(), query,
		inv.ID, inv.Number, nullIfEmpty(inv.ClientRef), inv.DocumentType, inv.Status,
		inv.IssueDate, inv.DueDate, inv.Subtotal, inv.TotalDiscount, inv.TotalTax, inv.Total,
		nullIfEmpty(inv.CreatedBy), inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// CreateLine persiste una línea de factura.
func (r *InvoiceRepo) CreateLine(line *entity.InvoiceLine) error {
	query := `
		INSERT INTO invoice_lines (id, invoice_id, product_id, description, quantity, unit_price,
			discount_pct, tax_pct, line_subtotal, line_discount, line_tax, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(context.Background(), query,
		line.ID, line.InvoiceID, line.ProductID, line.Description, line.Quantity, line.UnitPrice,
		line.DiscountPct, line.TaxPct, line.LineSubtotal, line.LineDiscount, line.LineTax, line.LineTotal,
	)
	if err != nil {
		return fmt.Errorf("insert invoice line: %w", err)
	}
	return nil
}

// GetByID obtiene la cabecera de una factura.
func (r *InvoiceRepo) GetByID(id string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	return r.scanOne(r.q.QueryRow(context.Background(), query, id), "get invoice")
}

// GetForUpdate obtiene la cabecera bloqueando la fila para una transición de estado.
func (r *InvoiceRepo) GetForUpdate(id string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 FOR UPDATE`
	return r.scanOne(r.q.QueryRow(context.Background(), query, id), "get invoice for update")
}

// GetLines obtiene las líneas de una factura en orden de inserción.
func (r *InvoiceRepo) GetLines(invoiceID string) ([]*entity.InvoiceLine, error) {
	query := `
		SELECT id, invoice_id, product_id, description, quantity, unit_price,
			discount_pct, tax_pct, line_subtotal, line_discount, line_tax, line_total
		FROM invoice_lines WHERE invoice_id = $1 ORDER BY id ASC`
	rows, err := r.q.Query(context.Background(), query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice lines: %w", err)
	}
	defer rows.Close()
	var list []*entity.InvoiceLine
	for rows.Next() {
		var ln entity.InvoiceLine
		if err := rows.Scan(&ln.ID, &ln.InvoiceID, &ln.ProductID, &ln.Description, &ln.Quantity,
			&ln.UnitPrice, &ln.DiscountPct, &ln.TaxPct, &ln.LineSubtotal, &ln.LineDiscount,
			&ln.LineTax, &ln.LineTotal); err != nil {
			return nil, fmt.Errorf("scan invoice line: %w", err)
		}
		list = append(list, &ln)
	}
	return list, rows.Err()
}

// NextNumber reserva el siguiente consecutivo de facturación. La secuencia no
// es transaccional (los huecos por rollback son aceptables y esperados).
func (r *InvoiceRepo) NextNumber() (string, error) {
	var n int64
	err := r.q.QueryRow(context.Background(), `SELECT nextval('invoice_number_seq')`).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("next invoice number: %w", err)
	}
	return fmt.Sprintf("FV-%06d", n), nil
}

// UpdateAccountingRef guarda la referencia del asiento contable.
func (r *InvoiceRepo) UpdateAccountingRef(inv *entity.Invoice) error {
	cmd, err := r.q.Exec(context.Background(),
		`UPDATE invoices SET accounting_ref = $2, updated_at = $3 WHERE id = $1`,
		inv.ID, nullIfEmpty(inv.AccountingRef), inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update accounting ref: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkPaid persiste la transición ISSUED -> PAID. El WHERE por estado es la
// última línea de defensa contra dos pagos concurrentes.
func (r *InvoiceRepo) MarkPaid(inv *entity.Invoice) error {
	cmd, err := r.q.Exec(context.Background(),
		`UPDATE invoices SET status = $2, payment_date = $3, payment_method = $4,
			received_amount = $5, updated_at = $6
		WHERE id = $1 AND status = $7`,
		inv.ID, inv.Status, inv.PaymentDate, nullIfEmpty(inv.PaymentMethod),
		inv.ReceivedAmount, inv.UpdatedAt, entity.InvoiceStatusIssued,
	)
	if err != nil {
		return fmt.Errorf("mark invoice paid: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

// MarkVoided persiste la transición ISSUED -> VOIDED.
func (r *InvoiceRepo) MarkVoided(inv *entity.Invoice) error {
	cmd, err := r.q.Exec(context.Background(),
		`UPDATE invoices SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`,
		inv.ID, inv.Status, inv.UpdatedAt, entity.InvoiceStatusIssued,
	)
	if err != nil {
		return fmt.Errorf("mark invoice voided: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *InvoiceRepo) scanOne(row pgx.Row, op string) (*entity.Invoice, error) {
	var inv entity.Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.ClientRef, &inv.DocumentType, &inv.Status,
		&inv.IssueDate, &inv.DueDate, &inv.PaymentDate, &inv.PaymentMethod, &inv.ReceivedAmount,
		&inv.Subtotal, &inv.TotalDiscount, &inv.TotalTax, &inv.Total, &inv.AccountingRef,
		&inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &inv, nil
}
