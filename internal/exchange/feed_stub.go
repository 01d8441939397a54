package exchange

import (
	"context"
	"time"

	"github.com/sergvlet/AiTradeBot-sub002/internal/market"
	"github.com/sergvlet/AiTradeBot-sub002/internal/metrics"
)

// StubFeed emits deterministic synthetic ticks. Useful for the paper engine
// and for tests that need a live-looking feed without network access.
type StubFeed struct {
	Exchange string
	Symbols  []string
	Interval time.Duration
	Start    float64
	Step     float64
}

// NewStubFeed builds a stub walking upward from 100.0 in 0.1 increments.
func NewStubFeed(symbols []string) *StubFeed {
	return &StubFeed{
		Exchange: ExchangeBinance,
		Symbols:  symbols,
		Interval: 500 * time.Millisecond,
		Start:    100.0,
		Step:     0.1,
	}
}

// Run pushes ticks into the sink until the context is canceled.
func (f *StubFeed) Run(ctx context.Context, sink Sink) error {
	ticker := time.NewTicker(f.Interval)
	defer ticker.Stop()

	px := f.Start
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			px += f.Step
			for _, s := range f.Symbols {
				tick := market.Tick{
					Exchange: f.Exchange,
					Symbol:   market.NormalizeSymbol(s),
					Price:    px,
					Qty:      1,
					Ts:       ts,
				}
				sink.Route(tick)
				metrics.TicksTotal.WithLabelValues(tick.Symbol).Inc()
			}
		}
	}
}
