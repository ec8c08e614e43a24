package dto

import (
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// InventoryStatsResponse cuerpo de GET /api/stats.
type InventoryStatsResponse struct {
	VendorID         string            `json:"vendor_id,omitempty"`
	TotalProducts    int               `json:"total_products"`
	ByStatus         map[string]int    `json:"by_status"`
	InventoryValue   decimal.Decimal   `json:"inventory_value"`
	HealthPercentage decimal.Decimal   `json:"health_percentage"`
	PendingReorders  int               `json:"pending_reorders"`
	OpenReorders     int               `json:"open_reorders"`
	ReordersByStatus map[string]int    `json:"reorders_by_status"`
	CriticalProducts []ProductResponse `json:"critical_products"`
}

func StatsFromEntity(s *entity.InventoryStats) InventoryStatsResponse {
	out := InventoryStatsResponse{
		VendorID:         s.VendorID,
		TotalProducts:    s.Summary.TotalProducts,
		ByStatus:         make(map[string]int, len(s.Summary.ByStatus)),
		InventoryValue:   s.Summary.InventoryValue,
		HealthPercentage: s.HealthPercentage,
		PendingReorders:  s.PendingReorders,
		OpenReorders:     s.OpenReorders,
		ReordersByStatus: make(map[string]int, len(s.ReordersByStatus)),
		CriticalProducts: make([]ProductResponse, 0, len(s.CriticalProducts)),
	}
	for st, n := range s.Summary.ByStatus {
		out.ByStatus[string(st)] = n
	}
	for st, n := range s.ReordersByStatus {
		out.ReordersByStatus[string(st)] = n
	}
	for _, p := range s.CriticalProducts {
		out.CriticalProducts = append(out.CriticalProducts, ProductFromEntity(p))
	}
	return out
}
