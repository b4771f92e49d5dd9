package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/invorya/comercial-api/internal/domain"
	"github.com/invorya/comercial-api/internal/domain/entity"
	"github.com/invorya/comercial-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo implementación del puerto StockMovementRepository sobre
// PostgreSQL (usable con pool o tx). El kardex es append-only: no hay UPDATE
// de cifras ni DELETE; la única mutación es enlazar la reversa.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const movementColumns = `id, product_id, kind, quantity, unit_price, unit_cost,
	quantity_before, quantity_after, average_cost_before, average_cost_after,
	COALESCE(reference, ''), COALESCE(notes, ''), COALESCE(reversal_of, ''), COALESCE(reversed_by, ''),
	created_at, COALESCE(created_by, '')`

// Create persiste una entrada de kardex.
func (r *StockMovementRepo) Create(m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (id, product_id, kind, quantity, unit_price, unit_cost,
			quantity_before, quantity_after, average_cost_before, average_cost_after,
			reference, notes, reversal_of, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(context.Background(), query,
		m.ID, m.ProductID, m.Kind, m.Quantity, m.UnitPrice, m.UnitCost,
		m.QuantityBefore, m.QuantityAfter, m.AverageCostBefore, m.AverageCostAfter,
		nullIfEmpty(m.Reference), nullIfEmpty(m.Notes), nullIfEmpty(m.ReversalOf),
		m.CreatedAt, nullIfEmpty(m.CreatedBy),
	)
	if err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

// GetByID obtiene un movimiento por ID.
func (r *StockMovementRepo) GetByID(id string) (*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE id = $1`
	return r.scanOne(r.q.QueryRow(context.Background(), query, id), "get stock movement")
}

// GetForUpdate obtiene el movimiento bloqueando la fila. Usar solo dentro de una tx.
func (r *StockMovementRepo) GetForUpdate(id string) (*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE id = $1 FOR UPDATE`
	return r.scanOne(r.q.QueryRow(context.Background(), query, id), "get stock movement for update")
}

// MarkReversed enlaza la reversa en el movimiento original. Falla si otro ya lo revirtió.
func (r *StockMovementRepo) MarkReversed(id, reversedBy string) error {
	cmd, err := r.q.Exec(context.Background(),
		`UPDATE stock_movements SET reversed_by = $2 WHERE id = $1 AND reversed_by IS NULL`,
		id, reversedBy,
	)
	if err != nil {
		return fmt.Errorf("mark movement reversed: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrAlreadyReversed
	}
	return nil
}

// ListByProduct lista el kardex de un producto en orden de creación ascendente.
func (r *StockMovementRepo) ListByProduct(productID string, filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE product_id = $1`
	args := []any{productID}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		query += ` AND kind = $` + strconv.Itoa(len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += ` AND created_at >= $` + strconv.Itoa(len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += ` AND created_at <= $` + strconv.Itoa(len(args))
	}
	if filter.Reference != "" {
		args = append(args, filter.Reference)
		query += ` AND reference = $` + strconv.Itoa(len(args))
	}
	args = append(args, filter.Limit)
	query += ` ORDER BY created_at ASC, id ASC LIMIT $` + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	query += ` OFFSET $` + strconv.Itoa(len(args))

	return r.queryList(query, args, "list movements by product")
}

// ListByReference lista los movimientos con una referencia dada (ej: ID de factura).
func (r *StockMovementRepo) ListByReference(reference string) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE reference = $1 ORDER BY created_at ASC, id ASC`
	return r.queryList(query, []any{reference}, "list movements by reference")
}

func (r *StockMovementRepo) queryList(query string, args []any, op string) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		var m entity.StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Kind, &m.Quantity, &m.UnitPrice, &m.UnitCost,
			&m.QuantityBefore, &m.QuantityAfter, &m.AverageCostBefore, &m.AverageCostAfter,
			&m.Reference, &m.Notes, &m.ReversalOf, &m.ReversedBy, &m.CreatedAt, &m.CreatedBy); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

func (r *StockMovementRepo) scanOne(row pgx.Row, op string) (*entity.StockMovement, error) {
	var m entity.StockMovement
	err := row.Scan(&m.ID, &m.ProductID, &m.Kind, &m.Quantity, &m.UnitPrice, &m.UnitCost,
		&m.QuantityBefore, &m.QuantityAfter, &m.AverageCostBefore, &m.AverageCostAfter,
		&m.Reference, &m.Notes, &m.ReversalOf, &m.ReversedBy, &m.CreatedAt, &m.CreatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &m, nil
}
