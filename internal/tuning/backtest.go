package tuning

import (
	"context"
	"fmt"
	"time"

	"github.com/sergvlet/AiTradeBot-sub002/internal/market"
	"github.com/sergvlet/AiTradeBot-sub002/internal/strategy"
)

// CandleReplayBacktester scores a parameter set by replaying the
// aggregator's recent closed bars through the decision function with a
// single-position long-only book. It is deliberately simple: the point is a
// comparable fitness number per candidate, not a realistic fill simulator.
type CandleReplayBacktester struct {
	candles  *market.Aggregator
	registry *strategy.Registry
}

// NewCandleReplayBacktester wires the backtester to the live aggregator.
func NewCandleReplayBacktester(candles *market.Aggregator) *CandleReplayBacktester {
	registry, err := strategy.DefaultRegistry()
	if err != nil {
		// DefaultRegistry only fails on a programming error in the
		// static list.
		panic(err)
	}
	return &CandleReplayBacktester{candles: candles, registry: registry}
}

// Run replays the [startAt, endAt] slice of recent bars. No history scores
// zero rather than erroring, so tuning quietly no-ops until enough candles
// accumulate.
func (b *CandleReplayBacktester) Run(ctx context.Context, accountID, strategyType, symbol, timeframe string,
	params strategy.Settings, startAt, endAt time.Time) (BacktestMetrics, error) {
	if err := ctx.Err(); err != nil {
		return BacktestMetrics{}, err
	}
	decision, ok := b.registry.Get(strategyType)
	if !ok {
		return BacktestMetrics{}, fmt.Errorf("no decision for strategy type %q", strategyType)
	}

	all := b.candles.Recent(symbol, timeframe, 2000)
	bars := make([]market.Candle, 0, len(all))
	for _, c := range all {
		if !c.Closed {
			continue
		}
		ts := time.Unix(c.OpenTime, 0)
		if ts.Before(startAt) || ts.After(endAt) {
			continue
		}
		bars = append(bars, c)
	}
	if len(bars) < 2 {
		return BacktestMetrics{}, nil
	}

	var (
		pnl    float64
		entry  float64
		long   bool
		trades int
	)
	for i := 1; i < len(bars); i++ {
		px := bars[i].Close
		sig := decision.Evaluate(px, bars[:i+1], params)
		switch {
		case sig.Action == strategy.Buy && !long:
			entry = px
			long = true
		case sig.Action == strategy.Sell && long:
			pnl += px - entry
			long = false
			trades++
		}
	}
	if long {
		pnl += bars[len(bars)-1].Close - entry
	}
	return BacktestMetrics{Score: pnl, PnL: pnl, Trades: trades}, nil
}
