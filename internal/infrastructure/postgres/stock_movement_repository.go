package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

const movementColumns = `id, product_id, type, quantity, previous_quantity, new_quantity, reason,
	reference, idempotency_key, location, performed_by, created_at`

// StockMovementRepo ledger sobre PostgreSQL. Solo INSERT; el orden total es (created_at, seq).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var reason, reference, key, location, performedBy *string
	err := row.Scan(&m.ID, &m.ProductID, &m.Type, &m.Quantity, &m.PreviousQuantity, &m.NewQuantity,
		&reason, &reference, &key, &location, &performedBy, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.Reason = derefString(reason)
	m.Reference = derefString(reference)
	m.IdempotencyKey = derefString(key)
	m.Location = derefString(location)
	m.PerformedBy = derefString(performedBy)
	return &m, nil
}

// Create inserta el movimiento. Una idempotency_key repetida devuelve domain.ErrDuplicate.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.ProductID, m.Type, m.Quantity, m.PreviousQuantity, m.NewQuantity,
		nullString(m.Reason), nullString(m.Reference), nullString(m.IdempotencyKey),
		nullString(m.Location), nullString(m.PerformedBy), m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: idempotency_key %s", domain.ErrDuplicate, m.IdempotencyKey)
		}
		return wrapPgError("create stock movement", err)
	}
	return nil
}

// GetByIdempotencyKey devuelve (nil, nil) si la clave no fue usada.
func (r *StockMovementRepo) GetByIdempotencyKey(ctx context.Context, key string) (*entity.StockMovement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx,
		`SELECT `+movementColumns+` FROM stock_movements WHERE idempotency_key = $1`, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement by idempotency key: %w", err)
	}
	return m, nil
}

// ListByProduct historial ascendente, opcionalmente acotado por fechas.
func (r *StockMovementRepo) ListByProduct(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE product_id = $1`
	args := []any{productID}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	query += " ORDER BY created_at, seq" + limitOffset(&args, limit, offset)
	return r.list(ctx, query, args...)
}

// ListByReference movimientos que comparten referencia (pares de traslado, recepciones de una solicitud).
func (r *StockMovementRepo) ListByReference(ctx context.Context, reference string) ([]*entity.StockMovement, error) {
	return r.list(ctx, `SELECT `+movementColumns+` FROM stock_movements WHERE reference = $1 ORDER BY created_at, seq`, reference)
}

func (r *StockMovementRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
