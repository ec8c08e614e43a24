// Package stats arma las vistas de lectura del tablero: conteos por estado de stock,
// valor del inventario y solicitudes de reposición, globales o por proveedor.
package stats

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/application/auth"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

const criticalLimit = 10

// Service consultas de solo lectura; no abre transacciones.
type Service struct {
	repos inventory.Repos
}

// NewService construye el servicio.
func NewService(repos inventory.Repos) *Service {
	return &Service{repos: repos}
}

// Inventory devuelve la vista global (vendorID vacío) o la de un proveedor. Un actor
// proveedor siempre recibe la suya.
func (s *Service) Inventory(ctx context.Context, actor entity.Actor, vendorID string) (*entity.InventoryStats, error) {
	if err := auth.Authorize(actor, auth.CapStatsRead); err != nil {
		return nil, err
	}
	if actor.Role == entity.RoleVendor {
		vendorID = actor.VendorID
	}

	summary, err := s.repos.Products.Summarize(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.repos.Reorders.CountByStatus(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	critical, err := s.repos.Products.List(ctx, repository.ProductFilter{
		Status:     entity.StatusOutOfStock,
		VendorID:   vendorID,
		OnlyActive: true,
		Limit:      criticalLimit,
	})
	if err != nil {
		return nil, err
	}

	out := &entity.InventoryStats{
		VendorID:         vendorID,
		Summary:          summary,
		HealthPercentage: HealthPercentage(summary),
		PendingReorders:  byStatus[entity.ReorderPending],
		ReordersByStatus: byStatus,
		CriticalProducts: critical,
	}
	for _, st := range entity.OpenReorderStatuses {
		out.OpenReorders += byStatus[st]
	}
	return out, nil
}

// HealthPercentage porcentaje de productos IN_STOCK con dos decimales; 0 sin productos.
func HealthPercentage(s *entity.StockSummary) decimal.Decimal {
	if s.TotalProducts == 0 {
		return decimal.Zero
	}
	in := decimal.NewFromInt(int64(s.ByStatus[entity.StatusInStock]))
	return in.Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(s.TotalProducts))).Round(2)
}
