package model

import (
	"time"

	"github.com/shopspring/decimal"

	"main/internal/model/enum"
)

// OrderParams is the user-supplied definition of a simulated order.
type OrderParams struct {
	Symbol   string           `json:"symbol" validate:"required"`
	Venue    enum.Venue       `json:"venue"`
	Side     enum.Side        `json:"side"`
	Type     enum.OrderType   `json:"type"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Quantity decimal.Decimal  `json:"quantity"`
	DelayMs  int64            `json:"delayMs" validate:"gte=0"`
}

// FillResult is the outcome of walking a book snapshot with an order.
// The zero value is the "no fill" sentinel, not an error.
type FillResult struct {
	AvgFillPrice    decimal.Decimal `json:"avgFillPrice"`
	SlippagePercent decimal.Decimal `json:"slippagePercent"`
	FilledPercent   decimal.Decimal `json:"filledPercent"`
	PriceImpact     decimal.Decimal `json:"priceImpact"`
	ExecutedAt      time.Time       `json:"executedAt"`
}

// Filled reports whether any quantity was filled.
func (r FillResult) Filled() bool {
	return r.FilledPercent.IsPositive()
}

// StopLoss is the trigger definition attached to a stop order.
type StopLoss struct {
	StopPrice decimal.Decimal `json:"stopPrice"`
}

// Order is the ledger's view of a simulated order or position.
//
// PositionID is set only on stop orders and references the position the
// stop protects. It is a lookup key, never an owning pointer: the position
// can be closed and removed independently, and the stop must tolerate the
// target being absent.
type Order struct {
	ID         string           `json:"id"`
	Params     OrderParams      `json:"params"`
	Status     enum.OrderStatus `json:"status"`
	FailReason enum.FailReason  `json:"failReason,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`

	Result     *FillResult      `json:"result,omitempty"`
	ExitResult *FillResult      `json:"exitResult,omitempty"`
	PnL        *decimal.Decimal `json:"pnl,omitempty"`
	LivePnL    decimal.Decimal  `json:"livePnl"`
	TimeToFill *time.Duration   `json:"timeToFill,omitempty"`

	PositionID string    `json:"positionId,omitempty"`
	StopLoss   *StopLoss `json:"stopLoss,omitempty"`
}

// Clone returns a deep copy so callers never alias ledger-owned state.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cp := *o
	if o.Params.Price != nil {
		price := *o.Params.Price
		cp.Params.Price = &price
	}
	if o.Result != nil {
		result := *o.Result
		cp.Result = &result
	}
	if o.ExitResult != nil {
		exit := *o.ExitResult
		cp.ExitResult = &exit
	}
	if o.PnL != nil {
		pnl := *o.PnL
		cp.PnL = &pnl
	}
	if o.TimeToFill != nil {
		ttf := *o.TimeToFill
		cp.TimeToFill = &ttf
	}
	if o.StopLoss != nil {
		stop := *o.StopLoss
		cp.StopLoss = &stop
	}
	return &cp
}

// ScenarioResult is one timing-comparison outcome.
type ScenarioResult struct {
	Name            string          `json:"name"`
	Delay           time.Duration   `json:"delay"`
	ImpactFactor    decimal.Decimal `json:"impactFactor"`
	AvgFillPrice    decimal.Decimal `json:"avgFillPrice"`
	SlippagePercent decimal.Decimal `json:"slippagePercent"`
	PriceImpact     decimal.Decimal `json:"priceImpact"`
	FilledPercent   decimal.Decimal `json:"filledPercent"`
}
