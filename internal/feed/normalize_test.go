package feed

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model/enum"
)

func TestNormalizeOKXBookSnapshot(t *testing.T) {
	payload := []byte(`{
		"arg": {"channel": "books", "instId": "BTC-USDT"},
		"action": "snapshot",
		"data": [{
			"bids": [["100.5","1.2","0","3"], ["100","0.8","0","1"]],
			"asks": [["101","2","0","2"]],
			"ts": "1700000000123"
		}]
	}`)
	var msg okxBookMessage
	require.NoError(t, json.Unmarshal(payload, &msg))

	updates := normalizeOKXBook(msg)
	require.Len(t, updates, 2)

	bids := updates[0]
	assert.Equal(t, enum.VenueOKX, bids.Venue)
	assert.Equal(t, "BTC-USDT", bids.Symbol)
	assert.Equal(t, enum.SideBuy, bids.Side)
	assert.True(t, bids.Snapshot)
	assert.False(t, bids.SizeInNotional)
	require.Len(t, bids.Levels, 2)
	assert.Equal(t, "100.5", bids.Levels[0].Price.String())
	assert.Equal(t, "1.2", bids.Levels[0].Size.String())
	assert.Equal(t, time.UnixMilli(1700000000123).UTC(), bids.EventTs)

	asks := updates[1]
	assert.Equal(t, enum.SideSell, asks.Side)
	require.Len(t, asks.Levels, 1)
	assert.Equal(t, "101", asks.Levels[0].Price.String())
}

func TestNormalizeOKXBookDelta(t *testing.T) {
	payload := []byte(`{
		"arg": {"channel": "books", "instId": "BTC-USDT"},
		"action": "update",
		"data": [{
			"bids": [["100.5","0","0","0"]],
			"asks": [],
			"ts": "1700000000456"
		}]
	}`)
	var msg okxBookMessage
	require.NoError(t, json.Unmarshal(payload, &msg))

	updates := normalizeOKXBook(msg)
	require.Len(t, updates, 1, "empty delta side emits nothing")

	bids := updates[0]
	assert.False(t, bids.Snapshot)
	require.Len(t, bids.Levels, 1)
	assert.True(t, bids.Levels[0].Size.IsZero(), "zero size is a deletion")
}

func TestNormalizeBybitBook(t *testing.T) {
	payload := []byte(`{
		"topic": "orderbook.50.BTCUSDT",
		"type": "delta",
		"ts": 1700000001000,
		"data": {
			"s": "BTCUSDT",
			"b": [["99.9","5"]],
			"a": [["100.1","3"], ["100.2","0"]]
		}
	}`)
	var msg bybitBookMessage
	require.NoError(t, json.Unmarshal(payload, &msg))

	updates := normalizeBybitBook(msg)
	require.Len(t, updates, 2)

	assert.Equal(t, enum.VenueBybit, updates[0].Venue)
	assert.Equal(t, "BTCUSDT", updates[0].Symbol)
	assert.Equal(t, enum.SideBuy, updates[0].Side)
	assert.False(t, updates[0].Snapshot)

	asks := updates[1]
	require.Len(t, asks.Levels, 2)
	assert.Equal(t, "100.1", asks.Levels[0].Price.String())
	assert.True(t, asks.Levels[1].Size.IsZero())
}

func TestNormalizeDeribitBook(t *testing.T) {
	payload := []byte(`{
		"type": "change",
		"timestamp": 1700000002000,
		"instrument_name": "BTC-PERPETUAL",
		"bids": [["new", 43000.5, 12000], ["delete", 42999.0, 0]],
		"asks": [["change", 43001.0, 8000]]
	}`)
	var data deribitBookData
	require.NoError(t, json.Unmarshal(payload, &data))

	updates := normalizeDeribitBook(data)
	require.Len(t, updates, 2)

	bids := updates[0]
	assert.Equal(t, enum.VenueDeribit, bids.Venue)
	assert.Equal(t, "BTC-PERPETUAL", bids.Symbol)
	assert.True(t, bids.SizeInNotional, "deribit sizes are USD notionals")
	require.Len(t, bids.Levels, 2)
	assert.Equal(t, "43000.5", bids.Levels[0].Price.String())
	assert.Equal(t, "12000", bids.Levels[0].Size.String())
	assert.True(t, bids.Levels[1].Size.IsZero())

	asks := updates[1]
	assert.True(t, asks.SizeInNotional)
	require.Len(t, asks.Levels, 1)
	assert.Equal(t, "8000", asks.Levels[0].Size.String())
}

func TestParseLevelRowsDropsGarbage(t *testing.T) {
	levels := parseLevelRows([][]string{
		{"100", "1"},
		{"oops", "1"},
		{"101"},
		{"102", "2"},
	})
	require.Len(t, levels, 2)
	assert.Equal(t, "100", levels[0].Price.String())
	assert.Equal(t, "102", levels[1].Price.String())
}

func TestOKXTimestampFallback(t *testing.T) {
	assert.Equal(t, time.UnixMilli(1700000000123).UTC(), okxTimestamp("1700000000123"))
	assert.WithinDuration(t, time.Now().UTC(), okxTimestamp("garbage"), time.Second)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Symbol: "BTC-USDT"}.withDefaults("wss://example", 25*time.Second)
	assert.Equal(t, "wss://example", cfg.URL)
	assert.Equal(t, 50, cfg.Depth)
	assert.Equal(t, 25*time.Second, cfg.KeepaliveInterval)
	assert.Equal(t, 45*time.Second, cfg.StaleAfter)

	custom := Config{Symbol: "X", URL: "wss://own", Depth: 10, KeepaliveInterval: time.Second, StaleAfter: time.Minute}.
		withDefaults("wss://example", 25*time.Second)
	assert.Equal(t, "wss://own", custom.URL)
	assert.Equal(t, 10, custom.Depth)
}
