package paper

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/sergvlet/AiTradeBot-sub002/internal/execution"
	"github.com/sergvlet/AiTradeBot-sub002/internal/market"
	"github.com/sergvlet/AiTradeBot-sub002/internal/metrics"
	"github.com/sergvlet/AiTradeBot-sub002/internal/risk"
)

// Executor fills orders against the virtual account at the cached last
// price. It satisfies the same submission interface as a live executor, so
// runners cannot tell paper from real.
type Executor struct {
	account  *Account
	prices   *market.PriceCache
	limits   risk.Limits
	recorder FillRecorder
	log      zerolog.Logger
	seq      atomic.Uint64
}

// NewExecutor wires the paper executor. recorder may be nil.
func NewExecutor(account *Account, prices *market.PriceCache, limits risk.Limits, recorder FillRecorder, log zerolog.Logger) *Executor {
	return &Executor{
		account:  account,
		prices:   prices,
		limits:   limits,
		recorder: recorder,
		log:      log.With().Str("component", "paper").Logger(),
	}
}

// Submit fills the order at its limit price, falling back to the cached last
// price for market orders.
func (e *Executor) Submit(order execution.Order) (execution.Ack, error) {
	price := order.Price
	if price <= 0 {
		last, ok := e.prices.LastPrice(order.Symbol)
		if !ok {
			return execution.Ack{}, errors.New("no mark price for market order")
		}
		price = last
	}

	notional := order.Qty * price
	if !e.limits.Allow(notional) {
		return execution.Ack{}, fmt.Errorf("notional %.2f exceeds per-trade limit", notional)
	}
	snap := e.account.Snapshot(nil)
	if e.limits.Halted(e.account.StartingCash(), snap.Equity) {
		return execution.Ack{}, errors.New("kill switch tripped, trading halted")
	}

	if err := e.account.MarketFill(order.Symbol, order.Side, order.Qty, price); err != nil {
		return execution.Ack{}, err
	}

	now := time.Now()
	fill := execution.Fill{Symbol: order.Symbol, Side: order.Side, Qty: order.Qty, Price: price, Ts: now}
	if e.recorder != nil {
		e.recorder.Record(fill)
	}
	metrics.OrdersTotal.WithLabelValues(order.Symbol, string(order.Side)).Inc()

	// Runners on different scheduler workers share one executor, so the
	// sequence must be atomic.
	seq := e.seq.Add(1)
	e.log.Info().
		Str("sym", order.Symbol).
		Str("side", string(order.Side)).
		Float64("qty", order.Qty).
		Float64("px", price).
		Msg("paper fill")
	return execution.Ack{OrderID: fmt.Sprintf("paper-%d", seq), Ts: now}, nil
}
