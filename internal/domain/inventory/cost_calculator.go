package inventory

import "github.com/shopspring/decimal"

// costScale decimales con los que se guarda cost_price (NUMERIC(18,4)).
const costScale = 4

// WeightedAverageCost costo unitario tras una entrada:
// (onHand*currentCost + incoming*incomingCost) / (onHand + incoming).
// Sin existencias previas el resultado es incomingCost; sin entrada se conserva currentCost.
func WeightedAverageCost(onHand, currentCost, incoming, incomingCost decimal.Decimal) decimal.Decimal {
	if incoming.LessThanOrEqual(decimal.Zero) {
		return currentCost
	}
	if onHand.LessThanOrEqual(decimal.Zero) {
		return incomingCost.Round(costScale)
	}
	total := onHand.Add(incoming)
	value := onHand.Mul(currentCost).Add(incoming.Mul(incomingCost))
	return value.DivRound(total, costScale)
}
