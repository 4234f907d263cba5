package model

import (
	"time"

	"github.com/shopspring/decimal"

	"main/internal/model/enum"
)

// PriceLevel is a single price+size entry in an order book side.
// A stored level always has Size > 0; a zero size in a delta deletes it.
type PriceLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// BookSnapshot is an immutable sorted view of one venue's book.
// Bids are strictly descending by price, asks strictly ascending,
// with no duplicate prices per side.
type BookSnapshot struct {
	Venue  enum.Venue
	Symbol string
	Bids   []PriceLevel
	Asks   []PriceLevel

	// SizeInNotional marks sizes denominated in quote-currency notional
	// rather than base quantity (baseQty = notional / price).
	SizeInNotional bool

	Revision  uint64
	UpdatedAt time.Time
}

// Empty reports whether both sides carry no levels.
func (s BookSnapshot) Empty() bool {
	return len(s.Bids) == 0 && len(s.Asks) == 0
}

// BestBid returns the highest bid price.
func (s BookSnapshot) BestBid() (decimal.Decimal, bool) {
	if len(s.Bids) == 0 {
		return decimal.Zero, false
	}
	return s.Bids[0].Price, true
}

// BestAsk returns the lowest ask price.
func (s BookSnapshot) BestAsk() (decimal.Decimal, bool) {
	if len(s.Asks) == 0 {
		return decimal.Zero, false
	}
	return s.Asks[0].Price, true
}

// MidPrice returns (bestBid+bestAsk)/2. It requires both sides to be
// populated; a one-sided book has no mid.
func (s BookSnapshot) MidPrice() (decimal.Decimal, bool) {
	bid, ok := s.BestBid()
	if !ok {
		return decimal.Zero, false
	}
	ask, ok := s.BestAsk()
	if !ok {
		return decimal.Zero, false
	}
	return bid.Add(ask).Div(two), true
}

var two = decimal.NewFromInt(2)
