package inventory

import (
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// EffectiveDelta calcula el delta con signo que un movimiento aplica sobre previous.
//
//	STOCK_IN, RETURN -> +quantity
//	STOCK_OUT        -> -quantity (ErrInsufficientStock si el resultado es negativo)
//	ADJUSTMENT       -> quantity - previous (quantity es el valor absoluto objetivo)
//
// TRANSFER no se resuelve aquí: son dos patas que se aplican con ApplyDelta.
func EffectiveDelta(t entity.MovementType, previous, quantity decimal.Decimal) (decimal.Decimal, error) {
	switch t {
	case entity.MovementStockIn, entity.MovementReturn:
		if !quantity.IsPositive() {
			return decimal.Zero, domain.ErrInvalidQuantity
		}
		return quantity, nil
	case entity.MovementStockOut:
		if !quantity.IsPositive() {
			return decimal.Zero, domain.ErrInvalidQuantity
		}
		if previous.LessThan(quantity) {
			return decimal.Zero, &domain.InsufficientStockError{Available: previous.String(), Requested: quantity.String()}
		}
		return quantity.Neg(), nil
	case entity.MovementAdjustment:
		if quantity.IsNegative() {
			return decimal.Zero, domain.ErrInvalidQuantity
		}
		return quantity.Sub(previous), nil
	}
	return decimal.Zero, domain.ErrInvalidInput
}

// ApplyDelta suma delta a previous sin permitir cantidades negativas.
func ApplyDelta(previous, delta decimal.Decimal) (decimal.Decimal, error) {
	next := previous.Add(delta)
	if next.IsNegative() {
		return previous, &domain.InsufficientStockError{Available: previous.String(), Requested: delta.Neg().String()}
	}
	return next, nil
}

// Replay reconstruye la cantidad de un producto sumando los deltas de su ledger.
func Replay(movements []*entity.StockMovement) decimal.Decimal {
	total := decimal.Zero
	for _, m := range movements {
		total = total.Add(m.Quantity)
	}
	return total
}

// ReorderReceiptReason motivo que llevan las entradas escritas por la recepción de una
// solicitud. Ningún otro camino del ledger puede usarlo.
const ReorderReceiptReason = "recepción de reposición"

// ReceivedForReference suma las entradas de recepción de la solicitud reference. Un
// STOCK_IN cualquiera que solo repita la referencia no cuenta.
func ReceivedForReference(movements []*entity.StockMovement, reference string) decimal.Decimal {
	total := decimal.Zero
	for _, m := range movements {
		if m.Type == entity.MovementStockIn && m.Reference == reference && m.Reason == ReorderReceiptReason {
			total = total.Add(m.Quantity)
		}
	}
	return total
}
