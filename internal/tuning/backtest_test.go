package tuning

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergvlet/AiTradeBot-sub002/internal/market"
	"github.com/sergvlet/AiTradeBot-sub002/internal/strategy"
)

func seedCandles(t *testing.T, agg *market.Aggregator, closes []float64) {
	t.Helper()
	for i, c := range closes {
		require.NoError(t, agg.AddKline("BTCUSDT", "1m", market.Candle{
			OpenTime: int64(i * 60),
			Open:     c, High: c + 1, Low: c - 1, Close: c,
			Volume: 1, Closed: true,
		}))
	}
}

func TestReplayEmptyHistoryScoresZero(t *testing.T) {
	bt := NewCandleReplayBacktester(market.NewAggregator())

	m, err := bt.Run(context.Background(), "acct-1", strategy.TypeWindowRange, "BTCUSDT", "1m",
		strategy.WindowRangeSettings{WindowBars: 10, BuyBelowPct: 0.2, SellAbovePct: 0.8},
		time.Unix(0, 0), time.Unix(1<<40, 0))
	require.NoError(t, err)
	assert.Zero(t, m.Score)
	assert.Zero(t, m.Trades)
}

func TestReplayUnknownStrategyFails(t *testing.T) {
	bt := NewCandleReplayBacktester(market.NewAggregator())

	_, err := bt.Run(context.Background(), "acct-1", "NOPE", "BTCUSDT", "1m",
		strategy.WindowRangeSettings{}, time.Unix(0, 0), time.Now())
	assert.Error(t, err)
}

func TestReplayProfitsOnOscillation(t *testing.T) {
	agg := market.NewAggregator()
	// Two full swings between 100 and 110: buy low, sell high twice.
	seedCandles(t, agg, []float64{105, 100, 101, 109, 110, 100, 101, 110, 105})
	bt := NewCandleReplayBacktester(agg)

	m, err := bt.Run(context.Background(), "acct-1", strategy.TypeWindowRange, "BTCUSDT", "1m",
		strategy.WindowRangeSettings{WindowBars: 20, BuyBelowPct: 0.2, SellAbovePct: 0.9},
		time.Unix(0, 0), time.Unix(1<<40, 0))
	require.NoError(t, err)
	assert.Greater(t, m.Score, 0.0)
	assert.GreaterOrEqual(t, m.Trades, 1)
}

func TestReplayWindowSelection(t *testing.T) {
	agg := market.NewAggregator()
	seedCandles(t, agg, []float64{100, 101, 102, 103, 104})
	bt := NewCandleReplayBacktester(agg)

	// A range that excludes every bar behaves like empty history.
	m, err := bt.Run(context.Background(), "acct-1", strategy.TypeWindowRange, "BTCUSDT", "1m",
		strategy.WindowRangeSettings{WindowBars: 10, BuyBelowPct: 0.2, SellAbovePct: 0.8},
		time.Unix(10_000, 0), time.Unix(20_000, 0))
	require.NoError(t, err)
	assert.Zero(t, m.Trades)
	assert.Zero(t, m.Score)
}
