package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// Repos agrupa los repositorios que participan en una unidad atómica.
// Dentro de TxRunner.Run todos comparten la misma transacción.
type Repos struct {
	Products  repository.ProductRepository
	Movements repository.StockMovementRepository
	Reorders  repository.ReorderRequestRepository
	Events    repository.EventRepository
	Audit     repository.AuditRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback; en otro caso Commit. Los bloqueos de fila
// tomados con GetForUpdate se liberan al terminar.
type TxRunner interface {
	Run(ctx context.Context, fn func(r Repos) error) error
}
