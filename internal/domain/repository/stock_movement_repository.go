package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockMovementRepository puerto del ledger. Solo inserción: no hay Update ni Delete.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	// GetByIdempotencyKey devuelve (nil, nil) si la clave no fue usada.
	GetByIdempotencyKey(ctx context.Context, key string) (*entity.StockMovement, error)
	// ListByProduct en orden total por created_at ascendente. limit <= 0 = sin límite.
	ListByProduct(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error)
	ListByReference(ctx context.Context, reference string) ([]*entity.StockMovement, error)
}
