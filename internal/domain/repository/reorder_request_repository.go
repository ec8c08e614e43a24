package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ReorderRequestRepository puerto de persistencia de solicitudes de reposición.
type ReorderRequestRepository interface {
	// Create devuelve domain.ErrDuplicate si la nueva es autogenerada, nace abierta y el
	// producto ya tiene otra autogenerada abierta.
	Create(ctx context.Context, req *entity.ReorderRequest) error
	GetByID(ctx context.Context, id string) (*entity.ReorderRequest, error)
	// Update escribe si la versión persistida es expectedVersion; si no, domain.ErrConcurrentModification.
	// En éxito req.Version queda en expectedVersion+1.
	Update(ctx context.Context, req *entity.ReorderRequest, expectedVersion int64) error
	List(ctx context.Context, filter entity.ReorderFilter) ([]*entity.ReorderRequest, error)
	HasOpenForProduct(ctx context.Context, productID string) (bool, error)
	// CountByStatus solicitudes por estado; vendorID vacío = todas.
	CountByStatus(ctx context.Context, vendorID string) (map[entity.ReorderStatus]int, error)
}
