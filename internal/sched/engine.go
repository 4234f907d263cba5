// Package sched drives order execution timing on top of the ledger: it
// owns the delay timers for deferred orders, feeds book updates into
// ledger re-evaluation, and exposes the user-facing order operations.
package sched

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"main/internal/book"
	"main/internal/ledger"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/sim"
)

// Engine composes the ledger state machine with the book store and a
// clock. All mutating calls funnel into the ledger, which re-checks order
// status at commit time, so a delay timer firing after a cancel lands is
// harmless.
type Engine struct {
	ledger    *ledger.Ledger
	books     *book.Store
	clock     Clock
	scenarios []sim.Scenario

	mu     sync.Mutex
	timers map[string]Timer
	active string
}

// New wires the engine into the book store's commit hook. A nil clock
// falls back to runtime timers.
func New(led *ledger.Ledger, books *book.Store, clock Clock) *Engine {
	if clock == nil {
		clock = RealClock()
	}
	e := &Engine{
		ledger:    led,
		books:     books,
		clock:     clock,
		scenarios: sim.DefaultScenarios(),
		timers:    make(map[string]Timer),
	}
	books.OnCommit(e.onBookUpdate)
	return e
}

// SetActiveSymbol switches which symbol gets live PnL refreshed on book
// updates; everything else is zeroed on its next evaluation.
func (e *Engine) SetActiveSymbol(symbol string) {
	e.mu.Lock()
	e.active = symbol
	e.mu.Unlock()
}

// ActiveSymbol returns the symbol currently receiving live PnL updates.
func (e *Engine) ActiveSymbol() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Place records the order and schedules its execution: immediately when no
// delay is requested, otherwise on a disarmable timer. The returned order
// reflects the state after any immediate execution.
func (e *Engine) Place(params model.OrderParams) (*model.Order, error) {
	o, err := e.ledger.Place(params)
	if err != nil {
		return nil, err
	}

	if params.DelayMs <= 0 {
		return e.ledger.Execute(o.ID, e.books.Snapshot(params.Venue))
	}

	delay := time.Duration(params.DelayMs) * time.Millisecond
	e.mu.Lock()
	e.timers[o.ID] = e.clock.AfterFunc(delay, func() {
		e.fireDelayed(o.ID, params.Venue)
	})
	e.mu.Unlock()
	return o, nil
}

// Restore loads previously serialized orders and re-arms delay timers for
// market orders that were still pending at shutdown. An already elapsed
// delay fires immediately. Pending limit orders need no timer; book updates
// pick them up once their delay passes.
func (e *Engine) Restore(records []model.OrderRecord) error {
	if err := e.ledger.Restore(records); err != nil {
		return err
	}

	now := e.clock.Now()
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, o := range e.ledger.Orders() {
		if o.Status != enum.OrderStatusPending || o.Params.Type != enum.OrderTypeMarket {
			continue
		}
		live := o.CreatedAt.Add(time.Duration(o.Params.DelayMs) * time.Millisecond)
		remaining := live.Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		id, venue := o.ID, o.Params.Venue
		e.timers[id] = e.clock.AfterFunc(remaining, func() {
			e.fireDelayed(id, venue)
		})
	}
	return nil
}

func (e *Engine) fireDelayed(id string, venue enum.Venue) {
	e.mu.Lock()
	delete(e.timers, id)
	e.mu.Unlock()

	if _, err := e.ledger.Execute(id, e.books.Snapshot(venue)); err != nil {
		logs.Warnf("delayed execution of %s failed, err: %+v", id, err)
	}
}

// Cancel disarms any pending delay timer and cancels the order. An order
// that already filled is returned unchanged.
func (e *Engine) Cancel(id string) (*model.Order, error) {
	e.mu.Lock()
	if timer, ok := e.timers[id]; ok {
		timer.Stop()
		delete(e.timers, id)
	}
	e.mu.Unlock()
	return e.ledger.Cancel(id)
}

// AddStopLoss arms an opposite-side stop against an open position.
func (e *Engine) AddStopLoss(positionID string, stopPrice decimal.Decimal) (*model.Order, error) {
	return e.ledger.AddStopLoss(positionID, stopPrice)
}

// AddQuantity grows an open position at the current book.
func (e *Engine) AddQuantity(positionID string, quantity decimal.Decimal) (*model.Order, error) {
	o, ok := e.ledger.Get(positionID)
	if !ok {
		return nil, ledger.ErrUnknownPosition
	}
	return e.ledger.AddQuantity(positionID, quantity, e.books.Snapshot(o.Params.Venue))
}

// ClosePosition exits an open position at the current book.
func (e *Engine) ClosePosition(positionID string) (*model.Order, error) {
	o, ok := e.ledger.Get(positionID)
	if !ok {
		return nil, ledger.ErrUnknownPosition
	}
	return e.ledger.ClosePosition(positionID, e.books.Snapshot(o.Params.Venue))
}

// CompareTimings projects the same order across the configured execution
// delay scenarios against the current book, without placing anything.
func (e *Engine) CompareTimings(params model.OrderParams) []model.ScenarioResult {
	return sim.CompareTimings(params, e.books.Snapshot(params.Venue), e.scenarios)
}

// Orders returns copies of every ledger order.
func (e *Engine) Orders() []*model.Order { return e.ledger.Orders() }

// List serializes every ledger order to its record form.
func (e *Engine) List() []model.OrderRecord { return e.ledger.List() }

// Close disarms every outstanding delay timer.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, timer := range e.timers {
		timer.Stop()
		delete(e.timers, id)
	}
}

func (e *Engine) onBookUpdate(venue enum.Venue) {
	e.mu.Lock()
	active := e.active
	e.mu.Unlock()
	e.ledger.EvaluateBook(e.books.Snapshot(venue), active)
}
