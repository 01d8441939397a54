// Package runner drives one strategy over one symbol on a fixed schedule.
package runner

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sergvlet/AiTradeBot-sub002/internal/execution"
	"github.com/sergvlet/AiTradeBot-sub002/internal/guard"
	"github.com/sergvlet/AiTradeBot-sub002/internal/market"
	"github.com/sergvlet/AiTradeBot-sub002/internal/store"
	"github.com/sergvlet/AiTradeBot-sub002/internal/strategy"
)

// Spec pins a runner to its account, market and strategy.
type Spec struct {
	AccountID    string
	Exchange     string
	Symbol       string
	Timeframe    string
	StrategyType string
	CandlesLimit int

	// AllowIncreaseQtyToMinNotional forwards to the guard: raise quantity
	// to the exchange minimum instead of dropping the order.
	AllowIncreaseQtyToMinNotional bool
}

// Key identifies the runner's scheduler slot.
func (s Spec) Key() string {
	return strings.Join([]string{"run", s.AccountID, s.Exchange, s.Symbol, s.Timeframe, s.StrategyType}, "|")
}

// Runner executes one strategy iteration at a time. It holds no trading
// state of its own: prices, candles and settings are read fresh per tick and
// all side effects go through the executor.
type Runner struct {
	spec     Spec
	prices   *market.PriceCache
	candles  *market.Aggregator
	registry *strategy.Registry
	settings store.SettingsService
	guard    *guard.Guard
	exec     execution.Executor
	log      zerolog.Logger
}

// New wires a runner to its collaborators.
func New(spec Spec, prices *market.PriceCache, candles *market.Aggregator, registry *strategy.Registry,
	settings store.SettingsService, g *guard.Guard, exec execution.Executor, log zerolog.Logger) *Runner {
	if spec.CandlesLimit <= 0 {
		spec.CandlesLimit = 100
	}
	return &Runner{
		spec:     spec,
		prices:   prices,
		candles:  candles,
		registry: registry,
		settings: settings,
		guard:    g,
		exec:     exec,
		log: log.With().
			Str("account", spec.AccountID).
			Str("sym", spec.Symbol).
			Str("strategy", spec.StrategyType).
			Logger(),
	}
}

// RunOnce performs a single iteration. Any panic below is recovered here so
// the schedule survives a misbehaving decision or collaborator.
func (r *Runner) RunOnce(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().
				Str("panic", fmt.Sprint(rec)).
				Bytes("stack", debug.Stack()).
				Msg("runner iteration panicked")
		}
	}()
	r.iterate(ctx)
}

func (r *Runner) iterate(ctx context.Context) {
	candles := r.candles.Recent(r.spec.Symbol, r.spec.Timeframe, r.spec.CandlesLimit)

	price, ok := r.prices.LastPrice(r.spec.Symbol)
	if !ok && len(candles) > 0 {
		price = candles[len(candles)-1].Close
		ok = price > 0
	}
	if !ok {
		r.log.Debug().Msg("no price yet, skipping tick")
		return
	}

	settings, err := r.settings.GetOrCreate(ctx, r.spec.AccountID, r.spec.StrategyType)
	if err != nil {
		r.log.Error().Err(err).Msg("settings lookup failed")
		return
	}

	decision, ok := r.registry.Get(r.spec.StrategyType)
	if !ok {
		r.log.Error().Msg("no decision registered for strategy type")
		return
	}

	sig := decision.Evaluate(price, candles, settings)
	if sig.Action == strategy.Hold {
		return
	}

	qty := orderQty(settings)
	if qty <= 0 {
		r.log.Warn().Msg("settings carry no positive order qty, dropping signal")
		return
	}

	res := r.guard.ValidateAndAdjust(guard.Request{
		Exchange:                      r.spec.Exchange,
		Symbol:                        r.spec.Symbol,
		Side:                          sig.Action.String(),
		Qty:                           decimal.NewFromFloat(qty),
		Price:                         decimal.NewFromFloat(price),
		AllowIncreaseQtyToMinNotional: r.spec.AllowIncreaseQtyToMinNotional,
	})
	if !res.OK {
		r.log.Warn().Strs("errors", res.Errors).Str("reason", sig.Reason).Msg("order dropped by guard")
		return
	}

	order := execution.Order{
		AccountID: r.spec.AccountID,
		Exchange:  r.spec.Exchange,
		Symbol:    r.spec.Symbol,
		Side:      execution.Side(sig.Action.String()),
		Qty:       res.FinalQty.InexactFloat64(),
		Price:     res.FinalPrice.InexactFloat64(),
	}
	ack, err := r.exec.Submit(order)
	if err != nil {
		r.log.Error().Err(err).Msg("order submission failed")
		return
	}
	r.log.Info().
		Str("side", string(order.Side)).
		Float64("qty", order.Qty).
		Float64("px", order.Price).
		Str("order_id", ack.OrderID).
		Str("reason", sig.Reason).
		Msg("order submitted")
}

// orderQty extracts the configured order size from the settings union.
func orderQty(s strategy.Settings) float64 {
	switch cfg := s.(type) {
	case strategy.MomentumSettings:
		return cfg.Qty
	case strategy.WindowRangeSettings:
		return cfg.Qty
	default:
		return 0
	}
}
