package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model/enum"
)

func TestBookSnapshotTops(t *testing.T) {
	snap := BookSnapshot{
		Venue:  enum.VenueOKX,
		Symbol: "BTC-USDT",
		Bids: []PriceLevel{
			{Price: d("99"), Size: d("1")},
			{Price: d("98"), Size: d("2")},
		},
		Asks: []PriceLevel{
			{Price: d("101"), Size: d("1")},
			{Price: d("102"), Size: d("2")},
		},
	}

	bid, ok := snap.BestBid()
	require.True(t, ok)
	assert.Equal(t, "99", bid.String())

	ask, ok := snap.BestAsk()
	require.True(t, ok)
	assert.Equal(t, "101", ask.String())

	mid, ok := snap.MidPrice()
	require.True(t, ok)
	assert.Equal(t, "100", mid.String())

	assert.False(t, snap.Empty())
}

func TestBookSnapshotOneSided(t *testing.T) {
	snap := BookSnapshot{
		Bids: []PriceLevel{{Price: d("99"), Size: d("1")}},
	}

	_, ok := snap.BestAsk()
	assert.False(t, ok)
	_, ok = snap.MidPrice()
	assert.False(t, ok)
	assert.False(t, snap.Empty())

	assert.True(t, BookSnapshot{}.Empty())
}

func TestOrderCloneIsDeep(t *testing.T) {
	original := sampleClosedOrder()
	clone := original.Clone()

	*clone.Params.Price = d("1")
	clone.Result.AvgFillPrice = d("1")
	*clone.PnL = d("1")
	clone.StopLoss = &StopLoss{StopPrice: d("1")}

	assert.Equal(t, "101.25", original.Params.Price.String())
	assert.Equal(t, "101.3", original.Result.AvgFillPrice.String())
	assert.Equal(t, "-3.5", original.PnL.String())
	assert.Nil(t, original.StopLoss)
}
