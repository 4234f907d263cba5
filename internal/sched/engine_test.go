package sched

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/book"
	"main/internal/feed"
	"main/internal/ledger"
	"main/internal/model"
	"main/internal/model/enum"
)

type fakeTimer struct {
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(_ time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &fakeTimer{fn: fn}
	c.timers = append(c.timers, timer)
	return timer
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fire runs every armed timer, including stopped ones, modelling the
// worst case where Stop loses the race against an already-firing timer.
func (c *fakeClock) fire() {
	c.mu.Lock()
	pending := c.timers
	c.timers = nil
	c.mu.Unlock()
	for _, timer := range pending {
		timer.fired = true
		timer.fn()
	}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedBook(books *book.Store, bidPrice, askPrice string) {
	books.Apply(feed.Update{
		Venue:    enum.VenueOKX,
		Symbol:   "BTC-USDT",
		Side:     enum.SideBuy,
		Levels:   []model.PriceLevel{{Price: d(bidPrice), Size: d("10")}},
		EventTs:  time.Now().UTC(),
		Snapshot: true,
	})
	books.Apply(feed.Update{
		Venue:    enum.VenueOKX,
		Symbol:   "BTC-USDT",
		Side:     enum.SideSell,
		Levels:   []model.PriceLevel{{Price: d(askPrice), Size: d("10")}},
		EventTs:  time.Now().UTC(),
		Snapshot: true,
	})
}

func marketBuy(qty string) model.OrderParams {
	return model.OrderParams{
		Symbol:   "BTC-USDT",
		Venue:    enum.VenueOKX,
		Side:     enum.SideBuy,
		Type:     enum.OrderTypeMarket,
		Quantity: d(qty),
	}
}

func newEngine(t *testing.T) (*Engine, *book.Store, *fakeClock) {
	t.Helper()
	books := book.NewStore()
	clock := newFakeClock()
	engine := New(ledger.New(clock.Now), books, clock)
	engine.SetActiveSymbol("BTC-USDT")
	t.Cleanup(engine.Close)
	return engine, books, clock
}

func TestPlaceImmediateMarket(t *testing.T) {
	engine, books, _ := newEngine(t)
	seedBook(books, "99", "101")

	o, err := engine.Place(marketBuy("1"))
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusFilledOpen, o.Status)
	assert.Equal(t, "101", o.Result.AvgFillPrice.String())
}

func TestDelayedExecutionFiresOnTimer(t *testing.T) {
	engine, books, clock := newEngine(t)
	seedBook(books, "99", "101")

	params := marketBuy("1")
	params.DelayMs = 500
	o, err := engine.Place(params)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusPending, o.Status)

	clock.fire()
	orders := engine.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, enum.OrderStatusFilledOpen, orders[0].Status)
}

func TestCancelBeatsDelayedExecution(t *testing.T) {
	engine, books, clock := newEngine(t)
	seedBook(books, "99", "101")

	params := marketBuy("1")
	params.DelayMs = 500
	o, err := engine.Place(params)
	require.NoError(t, err)

	cancelled, err := engine.Cancel(o.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusCancelled, cancelled.Status)

	// even if the timer slipped through, the fill must not land
	clock.fire()
	orders := engine.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, enum.OrderStatusCancelled, orders[0].Status)
}

func TestRestoreRearmsDelayedMarket(t *testing.T) {
	engine, books, clock := newEngine(t)
	seedBook(books, "99", "101")

	staged := ledger.New(clock.Now)
	params := marketBuy("1")
	params.DelayMs = 500
	_, err := staged.Place(params)
	require.NoError(t, err)
	price := d("50")
	resting := marketBuy("1")
	resting.Type = enum.OrderTypeLimit
	resting.Price = &price
	_, err = staged.Place(resting)
	require.NoError(t, err)

	require.NoError(t, engine.Restore(staged.List()))

	// only the delayed market order gets a timer; the resting limit
	// keeps waiting for a marketable book
	clock.fire()
	var market, limit *model.Order
	for _, o := range engine.Orders() {
		if o.Params.Type == enum.OrderTypeMarket {
			market = o
		} else {
			limit = o
		}
	}
	require.NotNil(t, market)
	require.NotNil(t, limit)
	assert.Equal(t, enum.OrderStatusFilledOpen, market.Status)
	assert.Equal(t, "101", market.Result.AvgFillPrice.String())
	assert.Equal(t, enum.OrderStatusPending, limit.Status)
}

func TestRestoreExecutesElapsedDelay(t *testing.T) {
	engine, books, clock := newEngine(t)
	seedBook(books, "99", "101")

	staged := ledger.New(clock.Now)
	params := marketBuy("1")
	params.DelayMs = 500
	_, err := staged.Place(params)
	require.NoError(t, err)
	records := staged.List()

	// the delay ran out while the process was down
	clock.advance(time.Second)
	require.NoError(t, engine.Restore(records))

	clock.fire()
	got := engine.Orders()
	require.Len(t, got, 1)
	assert.Equal(t, enum.OrderStatusFilledOpen, got[0].Status)
}

func TestBookUpdateFillsRestingLimit(t *testing.T) {
	engine, books, _ := newEngine(t)
	seedBook(books, "99", "101")

	price := d("100")
	params := marketBuy("1")
	params.Type = enum.OrderTypeLimit
	params.Price = &price
	o, err := engine.Place(params)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusPending, o.Status)

	// the ask drops through the limit; the commit hook re-evaluates
	seedBook(books, "98", "99.5")
	got := engine.Orders()
	require.Len(t, got, 1)
	assert.Equal(t, enum.OrderStatusFilledOpen, got[0].Status)
	assert.Equal(t, "99.5", got[0].Result.AvgFillPrice.String())
}

func TestBookUpdateRefreshesLivePnL(t *testing.T) {
	engine, books, _ := newEngine(t)
	seedBook(books, "99", "101")

	o, err := engine.Place(marketBuy("1"))
	require.NoError(t, err)
	require.Equal(t, enum.OrderStatusFilledOpen, o.Status)

	seedBook(books, "103", "105")
	got := engine.Orders()
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].LivePnL.String())

	// focus moves away, live pnl zeroes on the next tick
	engine.SetActiveSymbol("ETH-USDT")
	seedBook(books, "103", "105")
	got = engine.Orders()
	assert.True(t, got[0].LivePnL.IsZero())
}

func TestCompareTimings(t *testing.T) {
	engine, books, _ := newEngine(t)
	seedBook(books, "99", "101")

	results := engine.CompareTimings(marketBuy("1"))
	require.Len(t, results, 4)
	assert.Equal(t, "instant", results[0].Name)
	assert.Equal(t, "101", results[0].AvgFillPrice.String())

	// a pure query places nothing
	assert.Empty(t, engine.Orders())
}

func TestCloseAndStopThroughFacade(t *testing.T) {
	engine, books, _ := newEngine(t)
	seedBook(books, "99", "101")

	o, err := engine.Place(marketBuy("1"))
	require.NoError(t, err)

	added, err := engine.AddQuantity(o.ID, d("1"))
	require.NoError(t, err)
	assert.Equal(t, "2", added.Params.Quantity.String())

	stop, err := engine.AddStopLoss(o.ID, d("90"))
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusUntriggered, stop.Status)

	closed, err := engine.ClosePosition(o.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusFilledClosed, closed.Status)
}
