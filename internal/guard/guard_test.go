package guard

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestGuard(limits StaticLimits) *Guard {
	return New(limits, zerolog.Nop())
}

func btcLimits() StaticLimits {
	return StaticLimits{
		"BINANCE:BTCUSDT": {
			StepSize:    d("0.001"),
			TickSize:    d("0.01"),
			MinNotional: d("10"),
		},
	}
}

func TestMissingLimitsPassThroughWithWarning(t *testing.T) {
	g := newTestGuard(StaticLimits{})

	res := g.ValidateAndAdjust(Request{
		Exchange: "BINANCE", Symbol: "DOGEUSDT", Side: "BUY",
		Qty: d("5"), Price: d("0.123456"),
	})

	assert.True(t, res.OK)
	assert.False(t, res.Adjusted)
	assert.True(t, res.FinalQty.Equal(d("5")))
	assert.True(t, res.FinalPrice.Equal(d("0.123456")))
	require.Len(t, res.Warnings, 1)
	assert.Empty(t, res.Errors)
}

func TestMissingLimitsStillRejectsNonsenseOrders(t *testing.T) {
	g := newTestGuard(StaticLimits{})

	res := g.ValidateAndAdjust(Request{
		Exchange: "BINANCE", Symbol: "DOGEUSDT", Side: "BUY",
		Qty: d("0"), Price: d("-5"),
	})
	assert.False(t, res.OK)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "quantity")
	assert.Contains(t, res.Errors[1], "price")

	// A market order only needs a positive quantity.
	mkt := g.ValidateAndAdjust(Request{
		Exchange: "BINANCE", Symbol: "DOGEUSDT", Side: "BUY",
		Qty: d("1"), Price: d("0"), IsMarket: true,
	})
	assert.True(t, mkt.OK)
	assert.Empty(t, mkt.Errors)
}

func TestMarketOrderSkipsTickRounding(t *testing.T) {
	g := newTestGuard(btcLimits())

	res := g.ValidateAndAdjust(Request{
		Exchange: "BINANCE", Symbol: "BTCUSDT", Side: "BUY",
		Qty: d("0.001"), Price: d("50000.017"), IsMarket: true,
	})

	require.True(t, res.OK, "errors: %v", res.Errors)
	assert.True(t, res.FinalPrice.Equal(d("50000.017")), "got %s", res.FinalPrice)
}

func TestMarketOrderUnknownPriceSkipsMinNotional(t *testing.T) {
	g := newTestGuard(btcLimits())

	res := g.ValidateAndAdjust(Request{
		Exchange: "BINANCE", Symbol: "BTCUSDT", Side: "BUY",
		Qty: d("0.001"), IsMarket: true,
	})

	require.True(t, res.OK, "errors: %v", res.Errors)
	assert.True(t, res.FinalQty.Equal(d("0.001")))
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "min notional check skipped") {
			found = true
		}
	}
	assert.True(t, found, "warnings: %v", res.Warnings)
}

func TestPriceAndQtyFlooredToIncrements(t *testing.T) {
	g := newTestGuard(btcLimits())

	res := g.ValidateAndAdjust(Request{
		Exchange: "BINANCE", Symbol: "BTCUSDT", Side: "BUY",
		Qty: d("0.0015"), Price: d("50000.017"),
	})

	require.True(t, res.OK, "errors: %v", res.Errors)
	assert.True(t, res.Adjusted)
	assert.True(t, res.FinalQty.Equal(d("0.001")), "got %s", res.FinalQty)
	assert.True(t, res.FinalPrice.Equal(d("50000.01")), "got %s", res.FinalPrice)
	assert.True(t, res.ComputedNotional.Equal(d("50.00001")), "got %s", res.ComputedNotional)
}

func TestQtyZeroAfterRoundingIsError(t *testing.T) {
	g := newTestGuard(btcLimits())

	res := g.ValidateAndAdjust(Request{
		Exchange: "BINANCE", Symbol: "BTCUSDT", Side: "BUY",
		Qty: d("0.0004"), Price: d("50000"),
	})

	assert.False(t, res.OK)
	require.NotEmpty(t, res.Errors)
	assert.True(t, res.FinalQty.IsZero())
}

func TestMinNotionalBlocksWithoutIncrease(t *testing.T) {
	g := newTestGuard(btcLimits())

	res := g.ValidateAndAdjust(Request{
		Exchange: "BINANCE", Symbol: "BTCUSDT", Side: "BUY",
		Qty: d("0.001"), Price: d("100"),
	})

	assert.False(t, res.OK)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "below minimum")
	assert.True(t, res.ComputedNotional.Equal(d("0.1")))
}

func TestMinNotionalRaisesQtyWhenAllowed(t *testing.T) {
	limits := StaticLimits{
		"BINANCE:BTCUSDT": {
			StepSize:    d("0.01"),
			TickSize:    d("0.01"),
			MinNotional: d("50"),
		},
	}
	g := newTestGuard(limits)

	res := g.ValidateAndAdjust(Request{
		Exchange: "BINANCE", Symbol: "BTCUSDT", Side: "BUY",
		Qty: d("0.1"), Price: d("100"),
		AllowIncreaseQtyToMinNotional: true,
	})

	require.True(t, res.OK, "errors: %v", res.Errors)
	assert.True(t, res.Adjusted)
	assert.True(t, res.FinalQty.Equal(d("0.5")), "got %s", res.FinalQty)
	assert.True(t, res.ComputedNotional.Equal(d("50")), "got %s", res.ComputedNotional)
	assert.NotEmpty(t, res.Warnings)
}

func TestMinNotionalRaiseRoundsUpToStep(t *testing.T) {
	limits := StaticLimits{
		"BYBIT:ETHUSDT": {
			StepSize:    d("0.01"),
			MinNotional: d("10"),
		},
	}
	g := newTestGuard(limits)

	// 10 / 3000 = 0.00333..., next step multiple is 0.01.
	res := g.ValidateAndAdjust(Request{
		Exchange: "BYBIT", Symbol: "ETHUSDT", Side: "BUY",
		Qty: d("0.001"), Price: d("3000"),
		AllowIncreaseQtyToMinNotional: true,
	})

	require.True(t, res.OK, "errors: %v", res.Errors)
	assert.True(t, res.FinalQty.Equal(d("0.01")), "got %s", res.FinalQty)
	assert.True(t, res.ComputedNotional.GreaterThanOrEqual(d("10")))
}

func TestOKMirrorsErrors(t *testing.T) {
	g := newTestGuard(btcLimits())

	good := g.ValidateAndAdjust(Request{
		Exchange: "BINANCE", Symbol: "BTCUSDT", Side: "SELL",
		Qty: d("0.01"), Price: d("50000"),
	})
	assert.True(t, good.OK)
	assert.Empty(t, good.Errors)

	bad := g.ValidateAndAdjust(Request{
		Exchange: "BINANCE", Symbol: "BTCUSDT", Side: "SELL",
		Qty: d("0"), Price: d("50000"),
	})
	assert.False(t, bad.OK)
	assert.NotEmpty(t, bad.Errors)
}
