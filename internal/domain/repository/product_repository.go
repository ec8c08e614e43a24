package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ProductFilter filtros de listado de productos.
type ProductFilter struct {
	Status     entity.StockStatus
	CategoryID string
	VendorID   string
	OnlyActive bool
	Limit      int
	Offset     int
}

// ProductRepository define el puerto de persistencia para Product (DIP).
// GetByID y GetBySKU devuelven (nil, nil) si no existe.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	GetBySKU(ctx context.Context, sku string) (*entity.Product, error)
	// GetForUpdate bloquea la fila del producto hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.Product, error)
	// UpdateStock persiste el agregado: quantity, status y cost_price.
	UpdateStock(ctx context.Context, product *entity.Product) error
	// Update persiste datos maestros y umbrales (no toca quantity).
	Update(ctx context.Context, product *entity.Product) error
	List(ctx context.Context, filter ProductFilter) ([]*entity.Product, error)
	// ListAtOrBelowReorderPoint productos activos con quantity <= reorder_point.
	ListAtOrBelowReorderPoint(ctx context.Context) ([]*entity.Product, error)
	// Summarize resume los productos activos; vendorID vacío = todos.
	Summarize(ctx context.Context, vendorID string) (*entity.StockSummary, error)
}
