package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model/enum"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleClosedOrder() *Order {
	price := d("101.25")
	pnl := d("-3.5")
	ttf := 1500 * time.Millisecond
	return &Order{
		ID: "ord-1",
		Params: OrderParams{
			Symbol:   "BTC-USDT",
			Venue:    enum.VenueBybit,
			Side:     enum.SideSell,
			Type:     enum.OrderTypeLimit,
			Price:    &price,
			Quantity: d("0.75"),
			DelayMs:  250,
		},
		Status:    enum.OrderStatusFilledClosed,
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC),
		Result: &FillResult{
			AvgFillPrice:    d("101.3"),
			SlippagePercent: d("0.05"),
			FilledPercent:   d("100"),
			PriceImpact:     d("0.05"),
			ExecutedAt:      time.Date(2026, 3, 14, 9, 26, 55, 1, time.UTC),
		},
		ExitResult: &FillResult{
			AvgFillPrice:  d("105"),
			FilledPercent: d("100"),
			ExecutedAt:    time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		},
		PnL:        &pnl,
		LivePnL:    decimal.Zero,
		TimeToFill: &ttf,
	}
}

func TestRecordRoundTrip(t *testing.T) {
	original := sampleClosedOrder()
	restored, err := ToRecord(original).ToOrder()
	require.NoError(t, err)

	assert.Equal(t, original.ID, restored.ID)
	assert.Equal(t, original.Params.Symbol, restored.Params.Symbol)
	assert.Equal(t, original.Params.Venue, restored.Params.Venue)
	assert.Equal(t, original.Params.Side, restored.Params.Side)
	assert.Equal(t, original.Params.Type, restored.Params.Type)
	require.NotNil(t, restored.Params.Price)
	assert.True(t, original.Params.Price.Equal(*restored.Params.Price))
	assert.True(t, original.Params.Quantity.Equal(restored.Params.Quantity))
	assert.Equal(t, original.Params.DelayMs, restored.Params.DelayMs)
	assert.Equal(t, original.Status, restored.Status)
	assert.True(t, original.CreatedAt.Equal(restored.CreatedAt))

	require.NotNil(t, restored.Result)
	assert.True(t, original.Result.AvgFillPrice.Equal(restored.Result.AvgFillPrice))
	assert.True(t, original.Result.ExecutedAt.Equal(restored.Result.ExecutedAt))

	require.NotNil(t, restored.ExitResult)
	assert.True(t, original.ExitResult.AvgFillPrice.Equal(restored.ExitResult.AvgFillPrice))

	require.NotNil(t, restored.PnL)
	assert.True(t, original.PnL.Equal(*restored.PnL))
	require.NotNil(t, restored.TimeToFill)
	assert.Equal(t, *original.TimeToFill, *restored.TimeToFill)
}

func TestRecordRoundTripMinimal(t *testing.T) {
	original := &Order{
		ID: "ord-2",
		Params: OrderParams{
			Symbol:   "ETH-USDT",
			Venue:    enum.VenueOKX,
			Side:     enum.SideBuy,
			Type:     enum.OrderTypeMarket,
			Quantity: d("2"),
		},
		Status:     enum.OrderStatusFailed,
		FailReason: enum.FailReasonDataUnavailable,
		CreatedAt:  time.Now().UTC(),
		LivePnL:    decimal.Zero,
	}

	restored, err := ToRecord(original).ToOrder()
	require.NoError(t, err)
	assert.Nil(t, restored.Params.Price)
	assert.Nil(t, restored.Result)
	assert.Nil(t, restored.ExitResult)
	assert.Nil(t, restored.PnL)
	assert.Nil(t, restored.TimeToFill)
	assert.Equal(t, enum.FailReasonDataUnavailable, restored.FailReason)
}

func TestRecordRoundTripStopOrder(t *testing.T) {
	original := &Order{
		ID: "stop-1",
		Params: OrderParams{
			Symbol:   "BTC-USDT",
			Venue:    enum.VenueDeribit,
			Side:     enum.SideSell,
			Type:     enum.OrderTypeMarket,
			Quantity: d("1"),
		},
		Status:     enum.OrderStatusUntriggered,
		CreatedAt:  time.Now().UTC(),
		PositionID: "ord-1",
		StopLoss:   &StopLoss{StopPrice: d("95000")},
	}

	restored, err := ToRecord(original).ToOrder()
	require.NoError(t, err)
	assert.Equal(t, "ord-1", restored.PositionID)
	require.NotNil(t, restored.StopLoss)
	assert.True(t, d("95000").Equal(restored.StopLoss.StopPrice))
}

func TestRecordJSONShape(t *testing.T) {
	record := ToRecord(sampleClosedOrder())
	payload, err := json.Marshal(record)
	require.NoError(t, err)

	var decoded OrderRecord
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, record, decoded)
}

func TestToOrderRejectsGarbage(t *testing.T) {
	record := ToRecord(sampleClosedOrder())
	record.Venue = "nyse"
	_, err := record.ToOrder()
	assert.Error(t, err)

	record = ToRecord(sampleClosedOrder())
	record.Quantity = "not-a-number"
	_, err = record.ToOrder()
	assert.Error(t, err)
}
