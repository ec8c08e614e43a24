package inventory

import (
	"context"
	"sort"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// RestockSuggestion producto en o bajo su punto de reorden con la cantidad que lo lleva al máximo.
type RestockSuggestion struct {
	ProductID      string
	SKU            string
	Name           string
	VendorID       string
	CurrentStock   decimal.Decimal
	ReorderPoint   decimal.Decimal
	MaxQuantity    decimal.Decimal
	SuggestedQty   decimal.Decimal // MaxQuantity - CurrentStock
	UnitCost       decimal.Decimal // costo promedio ponderado
	EstimatedCost  decimal.Decimal // SuggestedQty * UnitCost
	Status         entity.StockStatus
	Priority       entity.Priority
	HasOpenRequest bool
	Rank           int // 1 = más urgente
}

var priorityWeight = map[entity.Priority]int{
	entity.PriorityHigh:   3,
	entity.PriorityMedium: 2,
	entity.PriorityLow:    1,
}

// RestockSuggestions lista los productos que necesitan reposición, ordenados por urgencia:
// primero prioridad, luego mayor déficit relativo al punto de reorden.
func (s *LedgerService) RestockSuggestions(ctx context.Context) ([]RestockSuggestion, error) {
	products, err := s.repos.Products.ListAtOrBelowReorderPoint(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RestockSuggestion, 0, len(products))
	for _, p := range products {
		qty := inventory.SuggestedOrderQuantity(p)
		if !qty.IsPositive() {
			continue
		}
		open, err := s.repos.Reorders.HasOpenForProduct(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, RestockSuggestion{
			ProductID:      p.ID,
			SKU:            p.SKU,
			Name:           p.Name,
			VendorID:       p.VendorID,
			CurrentStock:   p.Quantity,
			ReorderPoint:   p.ReorderPoint,
			MaxQuantity:    p.MaxQuantity,
			SuggestedQty:   qty,
			UnitCost:       p.CostPrice,
			EstimatedCost:  qty.Mul(p.CostPrice),
			Status:         p.Status,
			Priority:       inventory.ReorderPriority(p.Quantity, p.ReorderPoint),
			HasOpenRequest: open,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if priorityWeight[a.Priority] != priorityWeight[b.Priority] {
			return priorityWeight[a.Priority] > priorityWeight[b.Priority]
		}
		// Tiebreak: déficit relativo (1 - stock/reorden)
		ra, rb := coverage(a), coverage(b)
		if !ra.Equal(rb) {
			return ra.LessThan(rb)
		}
		return a.SKU < b.SKU
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

func coverage(s RestockSuggestion) decimal.Decimal {
	if !s.ReorderPoint.IsPositive() {
		return decimal.Zero
	}
	return s.CurrentStock.Div(s.ReorderPoint)
}
