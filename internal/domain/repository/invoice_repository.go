package repository

import "github.com/invorya/comercial-api/internal/domain/entity"

// InvoiceRepository puerto de persistencia para facturas.
// Las líneas son inmutables una vez escritas; el estado solo se muta por las
// transiciones del ciclo de vida (MarkPaid, MarkVoided).
type InvoiceRepository interface {
	Create(invoice *entity.Invoice) error
	CreateLine(line *entity.InvoiceLine) error
	GetByID(id string) (*entity.Invoice, error)
	GetLines(invoiceID string) ([]*entity.InvoiceLine, error)

	// GetForUpdate bloquea la cabecera para una transición de estado.
	GetForUpdate(id string) (*entity.Invoice, error)

	// NextNumber reserva el siguiente consecutivo legible (FV-000123).
	NextNumber() (string, error)

	// UpdateAccountingRef guarda la referencia del asiento devuelta por el colaborador.
	UpdateAccountingRef(invoice *entity.Invoice) error

	// MarkPaid persiste la transición ISSUED -> PAID con los campos de pago.
	MarkPaid(invoice *entity.Invoice) error

	// MarkVoided persiste la transición ISSUED -> VOIDED.
	MarkVoided(invoice *entity.Invoice) error
}
