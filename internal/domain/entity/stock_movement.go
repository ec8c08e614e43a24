package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType tipo de movimiento del ledger.
type MovementType string

const (
	MovementStockIn    MovementType = "STOCK_IN"
	MovementStockOut   MovementType = "STOCK_OUT"
	MovementAdjustment MovementType = "ADJUSTMENT" // lleva la cantidad objetivo, no un delta
	MovementTransfer   MovementType = "TRANSFER"   // par salida/entrada con referencia compartida
	MovementReturn     MovementType = "RETURN"
)

// Valid indica si el tipo pertenece al catálogo.
func (t MovementType) Valid() bool {
	switch t {
	case MovementStockIn, MovementStockOut, MovementAdjustment, MovementTransfer, MovementReturn:
		return true
	}
	return false
}

// StockMovement registro inmutable del ledger. Quantity es el delta con signo:
// NewQuantity = PreviousQuantity + Quantity.
type StockMovement struct {
	ID               string
	ProductID        string
	Type             MovementType
	Quantity         decimal.Decimal
	PreviousQuantity decimal.Decimal
	NewQuantity      decimal.Decimal
	Reason           string
	Reference        string // orden de compra, despacho, par de traslado...
	IdempotencyKey   string
	Location         string // solo traslados
	PerformedBy      string
	CreatedAt        time.Time
}
