package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.AuditRepository = (*AuditRepo)(nil)

const auditColumns = `id, action, entity_type, entity_id, changed_fields, old_value, new_value, performed_by, performed_at`

// AuditRepo bitácora de cambios sobre PostgreSQL. old_value y new_value son JSONB.
type AuditRepo struct {
	q Querier
}

// NewAuditRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAuditRepository(q Querier) *AuditRepo {
	return &AuditRepo{q: q}
}

// Append inserta la entrada; debe ir en la tx de la mutación auditada.
func (r *AuditRepo) Append(ctx context.Context, e *entity.AuditEntry) error {
	fields := e.ChangedFields
	if fields == nil {
		fields = []string{}
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO audit_log (`+auditColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.Action, e.EntityType, e.EntityID, fields, e.OldValue, e.NewValue,
		e.PerformedBy, e.PerformedAt,
	)
	if err != nil {
		return wrapPgError("insert audit entry", err)
	}
	return nil
}

// List entradas más recientes primero.
func (r *AuditRepo) List(ctx context.Context, f entity.AuditFilter) ([]*entity.AuditEntry, error) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.EntityType != "" {
		add("entity_type = $%d", f.EntityType)
	}
	if f.EntityID != "" {
		add("entity_id = $%d", f.EntityID)
	}
	if f.Action != "" {
		add("action = $%d", f.Action)
	}
	if f.PerformedBy != "" {
		add("performed_by = $%d", f.PerformedBy)
	}
	query := `SELECT ` + auditColumns + ` FROM audit_log`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY performed_at DESC, pos DESC" + limitOffset(&args, f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()
	var list []*entity.AuditEntry
	for rows.Next() {
		var e entity.AuditEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.EntityType, &e.EntityID, &e.ChangedFields,
			&e.OldValue, &e.NewValue, &e.PerformedBy, &e.PerformedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
