package ledger

import (
	"github.com/shopspring/decimal"

	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/pnl"
	"main/internal/sim"
)

// Place validates the parameters and records a new Pending order. It never
// touches the book; execution is driven separately so placement and delayed
// execution share one code path.
func (l *Ledger) Place(params model.OrderParams) (*model.Order, error) {
	if err := l.validateParams(&params); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	o := &model.Order{
		ID:        l.newID(),
		Params:    params,
		Status:    enum.OrderStatusPending,
		CreatedAt: l.now().UTC(),
	}
	l.insertLocked(o)
	l.revision++
	return o.Clone(), nil
}

func (l *Ledger) validateParams(params *model.OrderParams) error {
	if !params.Venue.IsAvailable() {
		return ErrInvalidVenue
	}
	if !params.Side.IsAvailable() {
		return ErrInvalidSide
	}
	if !params.Type.IsAvailable() {
		return ErrInvalidOrderType
	}
	if !params.Quantity.IsPositive() {
		return ErrInvalidQuantity
	}
	if params.DelayMs < 0 {
		return ErrInvalidDelay
	}
	switch params.Type {
	case enum.OrderTypeLimit:
		if params.Price == nil || !params.Price.IsPositive() {
			return ErrInvalidPrice
		}
	case enum.OrderTypeMarket:
		// Market orders carry no price; a stray one is discarded rather
		// than rejected.
		params.Price = nil
	}
	if err := l.validate.Struct(params); err != nil {
		return ErrInvalidSymbol
	}
	return nil
}

// Execute runs a Pending order against the given book snapshot. Market
// orders fill or fail immediately; limit orders fill only when marketable
// and otherwise keep resting. A stale call (the order was cancelled while
// the caller waited) is a no-op returning the current state.
func (l *Ledger) Execute(id string, snap model.BookSnapshot) (*model.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	o, ok := l.orders[id]
	if !ok {
		return nil, ErrUnknownOrder
	}
	if o.Status != enum.OrderStatusPending {
		return o.Clone(), nil
	}

	switch o.Params.Type {
	case enum.OrderTypeMarket:
		l.executeMarketLocked(o, snap)
		l.revision++
		return l.orders[resolveID(l, o)].Clone(), nil
	case enum.OrderTypeLimit:
		if snap.Empty() || !sim.IsMarketable(o.Params, snap) {
			return o.Clone(), nil
		}
		o = l.fillLocked(o, sim.Simulate(o.Params, snap))
		l.revision++
		return o.Clone(), nil
	default:
		return nil, ErrInvalidOrderType
	}
}

// resolveID follows a merge: when a fill was folded into an existing
// position the original order no longer exists.
func resolveID(l *Ledger, o *model.Order) string {
	if _, ok := l.orders[o.ID]; ok {
		return o.ID
	}
	return o.PositionID
}

func (l *Ledger) executeMarketLocked(o *model.Order, snap model.BookSnapshot) {
	if snap.Empty() {
		o.Status = enum.OrderStatusFailed
		o.FailReason = enum.FailReasonDataUnavailable
		return
	}
	result := sim.Simulate(o.Params, snap)
	if !result.Filled() {
		o.Status = enum.OrderStatusFailed
		o.FailReason = enum.FailReasonInsufficientLiquidity
		return
	}
	l.fillLocked(o, result)
}

// fillLocked commits a fill: partial fills shrink the order to the size
// actually obtained, and a fill on a venue+symbol+side with an existing
// open position folds into it by quantity-weighted averaging, discarding
// the incoming order. Returns the surviving order.
func (l *Ledger) fillLocked(o *model.Order, result model.FillResult) *model.Order {
	filledQty := o.Params.Quantity
	if result.FilledPercent.LessThan(hundred) {
		filledQty = o.Params.Quantity.Mul(result.FilledPercent).Div(hundred)
	}

	if target := l.mergeTargetLocked(o); target != nil {
		combined := target.Params.Quantity.Add(filledQty)
		weighted := target.Result.AvgFillPrice.Mul(target.Params.Quantity).
			Add(result.AvgFillPrice.Mul(filledQty))
		target.Result.AvgFillPrice = weighted.Div(combined)
		target.Params.Quantity = combined
		l.removeLocked(o.ID)
		o.PositionID = target.ID
		return target
	}

	o.Params.Quantity = filledQty
	o.Status = enum.OrderStatusFilledOpen
	o.Result = &result
	if o.Params.Type == enum.OrderTypeLimit {
		elapsed := l.now().UTC().Sub(o.CreatedAt)
		o.TimeToFill = &elapsed
	}
	return o
}

func (l *Ledger) mergeTargetLocked(o *model.Order) *model.Order {
	for _, id := range l.sequence {
		existing := l.orders[id]
		if existing == nil || existing.ID == o.ID {
			continue
		}
		if existing.Status != enum.OrderStatusFilledOpen {
			continue
		}
		if existing.Params.Venue == o.Params.Venue &&
			existing.Params.Symbol == o.Params.Symbol &&
			existing.Params.Side == o.Params.Side {
			return existing
		}
	}
	return nil
}

// Cancel moves a Pending or Untriggered order to Cancelled. Orders that
// already filled or reached a terminal state are left alone, so a cancel
// racing a delayed execution is safe from either side.
func (l *Ledger) Cancel(id string) (*model.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	o, ok := l.orders[id]
	if !ok {
		return nil, ErrUnknownOrder
	}
	switch o.Status {
	case enum.OrderStatusPending, enum.OrderStatusUntriggered:
		o.Status = enum.OrderStatusCancelled
		l.revision++
	}
	return o.Clone(), nil
}

// AddStopLoss registers an Untriggered opposite-side market order bound to
// an open position. The stop never rests on the book; it is armed against
// mid-price crossings in EvaluateBook.
func (l *Ledger) AddStopLoss(positionID string, stopPrice decimal.Decimal) (*model.Order, error) {
	if !stopPrice.IsPositive() {
		return nil, ErrInvalidStopPrice
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	position, ok := l.orders[positionID]
	if !ok {
		return nil, ErrUnknownPosition
	}
	if position.Status != enum.OrderStatusFilledOpen {
		return nil, ErrNotOpenPosition
	}

	stop := &model.Order{
		ID: l.newID(),
		Params: model.OrderParams{
			Symbol:   position.Params.Symbol,
			Venue:    position.Params.Venue,
			Side:     position.Params.Side.Opposite(),
			Type:     enum.OrderTypeMarket,
			Quantity: position.Params.Quantity,
		},
		Status:     enum.OrderStatusUntriggered,
		CreatedAt:  l.now().UTC(),
		PositionID: positionID,
		StopLoss:   &model.StopLoss{StopPrice: stopPrice},
	}
	l.insertLocked(stop)
	l.revision++
	return stop.Clone(), nil
}

// AddQuantity grows an open position by simulating an extra market fill on
// the given snapshot and folding it in by weighted averaging. Stops guarding
// the position grow with it. The ledger is untouched when the book cannot
// fill anything.
func (l *Ledger) AddQuantity(positionID string, quantity decimal.Decimal, snap model.BookSnapshot) (*model.Order, error) {
	if !quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	position, ok := l.orders[positionID]
	if !ok {
		return nil, ErrUnknownPosition
	}
	if position.Status != enum.OrderStatusFilledOpen {
		return nil, ErrNotOpenPosition
	}

	params := position.Params
	params.Type = enum.OrderTypeMarket
	params.Price = nil
	params.Quantity = quantity
	result := sim.Simulate(params, snap)
	if !result.Filled() {
		return nil, ErrInsufficientLiquidity
	}

	filledQty := quantity
	if result.FilledPercent.LessThan(hundred) {
		filledQty = quantity.Mul(result.FilledPercent).Div(hundred)
	}
	combined := position.Params.Quantity.Add(filledQty)
	weighted := position.Result.AvgFillPrice.Mul(position.Params.Quantity).
		Add(result.AvgFillPrice.Mul(filledQty))
	position.Result.AvgFillPrice = weighted.Div(combined)
	position.Params.Quantity = combined

	// Armed stops exit the whole position, so they track its size.
	for _, id := range l.sequence {
		stop := l.orders[id]
		if stop != nil && stop.Status == enum.OrderStatusUntriggered && stop.PositionID == positionID {
			stop.Params.Quantity = combined
		}
	}
	l.revision++
	return position.Clone(), nil
}

// ClosePosition exits an open position with an opposite-side market fill
// against the given snapshot, realizing PnL at the exit price. The position
// stays open when the book cannot absorb the full close.
func (l *Ledger) ClosePosition(positionID string, snap model.BookSnapshot) (*model.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	position, ok := l.orders[positionID]
	if !ok {
		return nil, ErrUnknownPosition
	}
	if position.Status != enum.OrderStatusFilledOpen {
		return nil, ErrNotOpenPosition
	}

	exit := l.exitParams(position)
	result := sim.Simulate(exit, snap)
	if !result.Filled() {
		return nil, ErrInsufficientLiquidity
	}
	l.closeLocked(position, result)
	l.revision++
	return position.Clone(), nil
}

func (l *Ledger) exitParams(position *model.Order) model.OrderParams {
	return model.OrderParams{
		Symbol:   position.Params.Symbol,
		Venue:    position.Params.Venue,
		Side:     position.Params.Side.Opposite(),
		Type:     enum.OrderTypeMarket,
		Quantity: position.Params.Quantity,
	}
}

func (l *Ledger) closeLocked(position *model.Order, exit model.FillResult) {
	realized := pnl.Realized(
		position.Params.Side,
		position.Result.AvgFillPrice,
		position.Params.Quantity,
		exit.AvgFillPrice,
	)
	position.ExitResult = &exit
	position.PnL = &realized
	position.LivePnL = decimal.Zero
	position.Status = enum.OrderStatusFilledClosed

	// Stops guarding a closed position are dead weight.
	for _, id := range append([]string(nil), l.sequence...) {
		o := l.orders[id]
		if o != nil && o.Status == enum.OrderStatusUntriggered && o.PositionID == position.ID {
			l.removeLocked(id)
		}
	}
}

var hundred = decimal.NewFromInt(100)
