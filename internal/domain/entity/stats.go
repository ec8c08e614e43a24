package entity

import "github.com/shopspring/decimal"

// StockSummary conteo de productos activos por estado y valor del inventario.
type StockSummary struct {
	TotalProducts  int
	ByStatus       map[StockStatus]int
	InventoryValue decimal.Decimal // suma de cantidad x precio unitario
}

// NewStockSummary resumen vacío con todos los estados en cero.
func NewStockSummary() *StockSummary {
	return &StockSummary{
		ByStatus: map[StockStatus]int{
			StatusOutOfStock: 0, StatusLowStock: 0, StatusInStock: 0, StatusOverstocked: 0,
		},
		InventoryValue: decimal.Zero,
	}
}

// Add suma un producto al resumen.
func (s *StockSummary) Add(p *Product) {
	s.TotalProducts++
	s.ByStatus[p.Status]++
	s.InventoryValue = s.InventoryValue.Add(p.Quantity.Mul(p.UnitPrice))
}

// InventoryStats vista de lectura del tablero: global o de un proveedor.
type InventoryStats struct {
	VendorID         string
	Summary          *StockSummary
	HealthPercentage decimal.Decimal // porcentaje IN_STOCK sobre el total, dos decimales
	PendingReorders  int
	OpenReorders     int
	ReordersByStatus map[ReorderStatus]int
	CriticalProducts []*Product // sin stock, hasta diez
}
