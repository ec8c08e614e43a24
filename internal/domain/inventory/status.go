package inventory

import (
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ClassifyStatus deriva el estado de stock. Función pura de las cuatro cantidades:
//
//	quantity == 0              -> OUT_OF_STOCK
//	0 < quantity <= reorder    -> LOW_STOCK
//	quantity > max             -> OVERSTOCKED
//	en otro caso               -> IN_STOCK
//
// El segundo umbral (mínimo) no interviene en la clasificación.
func ClassifyStatus(quantity, _, maxQuantity, reorderPoint decimal.Decimal) entity.StockStatus {
	switch {
	case quantity.Sign() <= 0:
		return entity.StatusOutOfStock
	case quantity.LessThanOrEqual(reorderPoint):
		return entity.StatusLowStock
	case quantity.GreaterThan(maxQuantity):
		return entity.StatusOverstocked
	default:
		return entity.StatusInStock
	}
}

// StatusOf clasifica un producto con una cantidad hipotética.
func StatusOf(p *entity.Product, quantity decimal.Decimal) entity.StockStatus {
	return ClassifyStatus(quantity, p.MinQuantity, p.MaxQuantity, p.ReorderPoint)
}

// ReorderPriority prioridad de una solicitud autogenerada:
// HIGH si quantity == 0, MEDIUM si quantity <= reorderPoint/2, LOW en otro caso.
func ReorderPriority(quantity, reorderPoint decimal.Decimal) entity.Priority {
	if quantity.Sign() <= 0 {
		return entity.PriorityHigh
	}
	// quantity*2 <= reorderPoint evita redondeos de la división
	if quantity.Mul(decimal.NewFromInt(2)).LessThanOrEqual(reorderPoint) {
		return entity.PriorityMedium
	}
	return entity.PriorityLow
}

// NeedsReorder indica si el producto está en o bajo su punto de reorden.
func NeedsReorder(p *entity.Product) bool {
	return p.Quantity.LessThanOrEqual(p.ReorderPoint)
}

// SuggestedOrderQuantity cantidad que lleva el producto a su máximo.
func SuggestedOrderQuantity(p *entity.Product) decimal.Decimal {
	q := p.MaxQuantity.Sub(p.Quantity)
	if q.IsNegative() {
		return decimal.Zero
	}
	return q
}
