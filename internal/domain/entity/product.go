package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockStatus clasificación derivada del stock de un producto.
type StockStatus string

const (
	StatusOutOfStock  StockStatus = "OUT_OF_STOCK"
	StatusLowStock    StockStatus = "LOW_STOCK"
	StatusInStock     StockStatus = "IN_STOCK"
	StatusOverstocked StockStatus = "OVERSTOCKED"
)

// Product representa un SKU con su agregado de stock materializado.
// Quantity y Status solo cambian junto con un movimiento del ledger (misma transacción).
type Product struct {
	ID           string
	SKU          string // único
	Name         string
	CategoryID   string
	Quantity     decimal.Decimal
	MinQuantity  decimal.Decimal
	MaxQuantity  decimal.Decimal
	ReorderPoint decimal.Decimal
	UnitPrice    decimal.Decimal
	CostPrice    decimal.Decimal // costo promedio ponderado
	VendorID     string          // opcional
	Status       StockStatus     // derivado, nunca fuente de verdad
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ThresholdsValid verifica 0 <= MinQuantity <= ReorderPoint <= MaxQuantity.
func (p *Product) ThresholdsValid() bool {
	return !p.MinQuantity.IsNegative() &&
		p.MinQuantity.LessThanOrEqual(p.ReorderPoint) &&
		p.ReorderPoint.LessThanOrEqual(p.MaxQuantity)
}
