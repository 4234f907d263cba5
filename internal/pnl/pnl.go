// Package pnl computes profit and loss for simulated positions.
//
// Live (unrealized) PnL is recomputed against the venue mid price on every
// book update; realized PnL is computed exactly once at close, from the
// actual simulated exit fill price.
package pnl

import (
	"github.com/shopspring/decimal"

	"main/internal/model/enum"
)

// Unrealized returns (ref-entry)*qty for a buy position and
// (entry-ref)*qty for a sell position.
func Unrealized(side enum.Side, entryPrice, quantity, referencePrice decimal.Decimal) decimal.Decimal {
	switch side {
	case enum.SideBuy:
		return referencePrice.Sub(entryPrice).Mul(quantity)
	case enum.SideSell:
		return entryPrice.Sub(referencePrice).Mul(quantity)
	default:
		return decimal.Zero
	}
}

// Realized is Unrealized evaluated at the exit fill price. Kept as its own
// name so call sites say what they mean.
func Realized(side enum.Side, entryPrice, quantity, exitFillPrice decimal.Decimal) decimal.Decimal {
	return Unrealized(side, entryPrice, quantity, exitFillPrice)
}
