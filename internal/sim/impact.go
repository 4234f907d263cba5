// Package sim is the execution simulation core: pure functions mapping
// (order parameters, book snapshot) to a hypothetical fill. No state, no
// I/O; cost is bounded by book depth.
package sim

import (
	"time"

	"github.com/shopspring/decimal"

	"main/internal/model"
	"main/internal/model/enum"
)

var hundred = decimal.NewFromInt(100)

// Simulate walks the opposing side of the book and returns the fill
// outcome for the requested quantity.
//
// Any empty or unusable input (missing book, empty relevant side,
// non-positive quantity) yields the zero-valued FillResult: "no fill" is a
// normal outcome here, never an error.
func Simulate(params model.OrderParams, snap model.BookSnapshot) model.FillResult {
	if !params.Quantity.IsPositive() {
		return model.FillResult{}
	}

	var levels []model.PriceLevel
	switch params.Side {
	case enum.SideBuy:
		levels = snap.Asks
	case enum.SideSell:
		levels = snap.Bids
	default:
		return model.FillResult{}
	}
	if len(levels) == 0 {
		return model.FillResult{}
	}

	bestPrice := levels[0].Price
	remaining := params.Quantity
	filled := decimal.Zero
	cost := decimal.Zero

	for _, level := range levels {
		if remaining.IsZero() {
			break
		}
		// A limit order never consumes past its boundary; execution stops
		// at the first level crossing it rather than skipping ahead.
		if params.Type == enum.OrderTypeLimit && params.Price != nil {
			if params.Side == enum.SideBuy && level.Price.GreaterThan(*params.Price) {
				break
			}
			if params.Side == enum.SideSell && level.Price.LessThan(*params.Price) {
				break
			}
		}

		available := level.Size
		if snap.SizeInNotional {
			if !level.Price.IsPositive() {
				continue
			}
			available = level.Size.Div(level.Price)
		}
		if !available.IsPositive() {
			continue
		}

		take := decimal.Min(remaining, available)
		filled = filled.Add(take)
		cost = cost.Add(level.Price.Mul(take))
		remaining = remaining.Sub(take)
	}

	if !filled.IsPositive() {
		return model.FillResult{}
	}

	avg := cost.Div(filled)
	impact := avg.Sub(bestPrice).Abs()
	slippage := decimal.Zero
	if bestPrice.IsPositive() {
		slippage = impact.Div(bestPrice).Mul(hundred)
	}

	return model.FillResult{
		AvgFillPrice:    avg,
		SlippagePercent: slippage,
		FilledPercent:   filled.Div(params.Quantity).Mul(hundred),
		PriceImpact:     impact,
		ExecutedAt:      time.Now().UTC(),
	}
}

// IsMarketable reports whether a resting limit order would execute against
// the snapshot right now: a buy limit when limitPrice >= bestAsk, a sell
// limit when limitPrice <= bestBid.
func IsMarketable(params model.OrderParams, snap model.BookSnapshot) bool {
	if params.Type != enum.OrderTypeLimit || params.Price == nil {
		return false
	}
	switch params.Side {
	case enum.SideBuy:
		bestAsk, ok := snap.BestAsk()
		return ok && params.Price.GreaterThanOrEqual(bestAsk)
	case enum.SideSell:
		bestBid, ok := snap.BestBid()
		return ok && params.Price.LessThanOrEqual(bestBid)
	default:
		return false
	}
}
