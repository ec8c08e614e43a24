package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.ReorderRequestRepository = (*ReorderRequestRepo)(nil)

const reorderColumns = `id, product_id, requested_quantity, received_quantity, status, priority, vendor_id,
	requested_by, approved_by, notes, rejection_reason, auto_generated, version, created_at, updated_at,
	approved_at, sent_at, received_at`

// ReorderRequestRepo solicitudes de reposición con bloqueo optimista por versión.
type ReorderRequestRepo struct {
	q Querier
}

// NewReorderRequestRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReorderRequestRepository(q Querier) *ReorderRequestRepo {
	return &ReorderRequestRepo{q: q}
}

func scanReorder(row pgx.Row) (*entity.ReorderRequest, error) {
	var req entity.ReorderRequest
	var vendorID, approvedBy, notes, rejection *string
	err := row.Scan(&req.ID, &req.ProductID, &req.RequestedQuantity, &req.ReceivedQuantity, &req.Status,
		&req.Priority, &vendorID, &req.RequestedBy, &approvedBy, &notes, &rejection, &req.AutoGenerated,
		&req.Version, &req.CreatedAt, &req.UpdatedAt, &req.ApprovedAt, &req.SentAt, &req.ReceivedAt)
	if err != nil {
		return nil, err
	}
	req.VendorID = derefString(vendorID)
	req.ApprovedBy = derefString(approvedBy)
	req.Notes = derefString(notes)
	req.RejectionReason = derefString(rejection)
	return &req, nil
}

// Create inserta la solicitud. El índice único parcial sobre product_id de solicitudes
// autogeneradas abiertas convierte una segunda en domain.ErrDuplicate; las manuales no
// quedan restringidas.
func (r *ReorderRequestRepo) Create(ctx context.Context, req *entity.ReorderRequest) error {
	if req.Version == 0 {
		req.Version = 1
	}
	query := `
		INSERT INTO reorder_requests (` + reorderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.q.Exec(ctx, query,
		req.ID, req.ProductID, req.RequestedQuantity, req.ReceivedQuantity, req.Status, req.Priority,
		nullString(req.VendorID), req.RequestedBy, nullString(req.ApprovedBy), nullString(req.Notes),
		nullString(req.RejectionReason), req.AutoGenerated, req.Version, req.CreatedAt, req.UpdatedAt,
		req.ApprovedAt, req.SentAt, req.ReceivedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: ya existe una solicitud automática abierta para el producto", domain.ErrDuplicate)
		}
		return wrapPgError("insert reorder request", err)
	}
	return nil
}

// GetByID devuelve (nil, nil) si no existe.
func (r *ReorderRequestRepo) GetByID(ctx context.Context, id string) (*entity.ReorderRequest, error) {
	req, err := scanReorder(r.q.QueryRow(ctx, `SELECT `+reorderColumns+` FROM reorder_requests WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reorder request: %w", err)
	}
	return req, nil
}

// Update escribe solo si version = expectedVersion (UPDATE ... WHERE version = $n).
func (r *ReorderRequestRepo) Update(ctx context.Context, req *entity.ReorderRequest, expectedVersion int64) error {
	query := `
		UPDATE reorder_requests SET
			requested_quantity = $3, received_quantity = $4, status = $5, priority = $6, vendor_id = $7,
			approved_by = $8, notes = $9, rejection_reason = $10, updated_at = $11,
			approved_at = $12, sent_at = $13, received_at = $14, version = version + 1
		WHERE id = $1 AND version = $2`
	cmd, err := r.q.Exec(ctx, query,
		req.ID, expectedVersion, req.RequestedQuantity, req.ReceivedQuantity, req.Status, req.Priority,
		nullString(req.VendorID), nullString(req.ApprovedBy), nullString(req.Notes),
		nullString(req.RejectionReason), req.UpdatedAt, req.ApprovedAt, req.SentAt, req.ReceivedAt,
	)
	if err != nil {
		return wrapPgError("update reorder request", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrConcurrentModification
	}
	req.Version = expectedVersion + 1
	return nil
}

// List solicitudes más recientes primero.
func (r *ReorderRequestRepo) List(ctx context.Context, f entity.ReorderFilter) ([]*entity.ReorderRequest, error) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.VendorID != "" {
		add("vendor_id = $%d", f.VendorID)
	}
	if f.ProductID != "" {
		add("product_id = $%d", f.ProductID)
	}
	query := `SELECT ` + reorderColumns + ` FROM reorder_requests`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id" + limitOffset(&args, f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reorder requests: %w", err)
	}
	defer rows.Close()
	var list []*entity.ReorderRequest
	for rows.Next() {
		req, err := scanReorder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reorder request: %w", err)
		}
		list = append(list, req)
	}
	return list, rows.Err()
}

// CountByStatus solicitudes agrupadas por estado.
func (r *ReorderRequestRepo) CountByStatus(ctx context.Context, vendorID string) (map[entity.ReorderStatus]int, error) {
	rows, err := r.q.Query(ctx, `
		SELECT status, COUNT(*) FROM reorder_requests
		WHERE ($1::text = '' OR vendor_id = $1)
		GROUP BY status`, vendorID)
	if err != nil {
		return nil, fmt.Errorf("count reorder requests: %w", err)
	}
	defer rows.Close()
	out := make(map[entity.ReorderStatus]int)
	for rows.Next() {
		var status entity.ReorderStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan reorder count: %w", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}

// HasOpenForProduct indica si el producto tiene una solicitud en estado abierto.
func (r *ReorderRequestRepo) HasOpenForProduct(ctx context.Context, productID string) (bool, error) {
	open := make([]string, len(entity.OpenReorderStatuses))
	for i, s := range entity.OpenReorderStatuses {
		open[i] = string(s)
	}
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reorder_requests WHERE product_id = $1 AND status = ANY($2))`,
		productID, open,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check open reorder: %w", err)
	}
	return exists, nil
}
