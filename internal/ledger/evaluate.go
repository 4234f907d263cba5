package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/pnl"
	"main/internal/sim"
)

// EvaluateBook re-evaluates every live order against a fresh snapshot:
// resting limit orders fill when they become marketable, armed stops fire
// on mid-price crossings, and open positions refresh their unrealized PnL.
// Orders on symbols other than activeSymbol get their live PnL zeroed
// instead of recomputed. Returns true when anything changed.
func (l *Ledger) EvaluateBook(snap model.BookSnapshot, activeSymbol string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	changed := false
	for _, id := range append([]string(nil), l.sequence...) {
		o, ok := l.orders[id]
		if !ok || o.Status.IsTerminal() {
			continue
		}
		if o.Params.Symbol != activeSymbol {
			if !o.LivePnL.IsZero() {
				o.LivePnL = decimal.Zero
				changed = true
			}
			continue
		}
		if o.Params.Venue != snap.Venue || o.Params.Symbol != snap.Symbol {
			continue
		}

		switch o.Status {
		case enum.OrderStatusPending:
			if l.evaluatePendingLocked(o, snap, now) {
				changed = true
			}
		case enum.OrderStatusUntriggered:
			if l.evaluateStopLocked(o, snap) {
				changed = true
			}
		case enum.OrderStatusFilledOpen:
			if refreshLivePnL(o, snap) {
				changed = true
			}
		}
	}
	if changed {
		l.revision++
	}
	return changed
}

// evaluatePendingLocked fills a resting limit order the moment the book
// makes it marketable. Market orders are never filled here; their execution
// is owned by the scheduler's delay timer. A limit order whose delay has
// not elapsed is not yet live either.
func (l *Ledger) evaluatePendingLocked(o *model.Order, snap model.BookSnapshot, now time.Time) bool {
	if o.Params.Type != enum.OrderTypeLimit {
		return false
	}
	if o.Params.DelayMs > 0 {
		live := o.CreatedAt.Add(time.Duration(o.Params.DelayMs) * time.Millisecond)
		if now.Before(live) {
			return false
		}
	}
	if !sim.IsMarketable(o.Params, snap) {
		return false
	}
	l.fillLocked(o, sim.Simulate(o.Params, snap))
	return true
}

// evaluateStopLocked fires an armed stop when the mid price crosses it:
// a Sell stop at or below, a Buy stop at or above. A fired stop closes its
// position at the simulated market fill and is consumed; when the book
// cannot fill it the stop stays armed for the next update.
func (l *Ledger) evaluateStopLocked(o *model.Order, snap model.BookSnapshot) bool {
	if o.StopLoss == nil {
		return false
	}
	mid, ok := snap.MidPrice()
	if !ok {
		return false
	}
	triggered := false
	switch o.Params.Side {
	case enum.SideSell:
		triggered = mid.LessThanOrEqual(o.StopLoss.StopPrice)
	case enum.SideBuy:
		triggered = mid.GreaterThanOrEqual(o.StopLoss.StopPrice)
	}
	if !triggered {
		return false
	}

	result := sim.Simulate(o.Params, snap)
	if !result.Filled() {
		return false
	}

	position, ok := l.orders[o.PositionID]
	if ok && position.Status == enum.OrderStatusFilledOpen {
		l.closeLocked(position, result)
	}
	l.removeLocked(o.ID)
	return true
}

func refreshLivePnL(o *model.Order, snap model.BookSnapshot) bool {
	mid, ok := snap.MidPrice()
	if !ok {
		return false
	}
	live := pnl.Unrealized(o.Params.Side, o.Result.AvgFillPrice, o.Params.Quantity, mid)
	if live.Equal(o.LivePnL) {
		return false
	}
	o.LivePnL = live
	return true
}
