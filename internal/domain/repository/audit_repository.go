package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// AuditRepository bitácora de cambios, solo inserción.
type AuditRepository interface {
	// Append persiste la entrada dentro de la transacción del llamador.
	Append(ctx context.Context, entry *entity.AuditEntry) error
	// List entradas más recientes primero.
	List(ctx context.Context, filter entity.AuditFilter) ([]*entity.AuditEntry, error)
}
