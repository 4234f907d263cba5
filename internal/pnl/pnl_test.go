package pnl

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"main/internal/model/enum"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestUnrealized(t *testing.T) {
	testCases := []struct {
		desc      string
		side      enum.Side
		entry     string
		qty       string
		reference string
		expected  string
	}{
		{"long gains on rally", enum.SideBuy, "100", "2", "110", "20"},
		{"long loses on drop", enum.SideBuy, "100", "2", "90", "-20"},
		{"short gains on drop", enum.SideSell, "100", "2", "90", "20"},
		{"short loses on rally", enum.SideSell, "100", "2", "110", "-20"},
		{"flat at entry", enum.SideBuy, "100", "3", "100", "0"},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got := Unrealized(tc.side, d(tc.entry), d(tc.qty), d(tc.reference))
			assert.Equal(t, tc.expected, got.String())
		})
	}
}

func TestRealizedUsesExitPrice(t *testing.T) {
	got := Realized(enum.SideBuy, d("100"), d("1.5"), d("104"))
	assert.Equal(t, "6", got.String())

	got = Realized(enum.SideSell, d("100"), d("1.5"), d("104"))
	assert.Equal(t, "-6", got.String())
}
