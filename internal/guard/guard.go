// Package guard validates and adjusts order parameters against per-symbol
// exchange limits before anything reaches an executor.
package guard

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sergvlet/AiTradeBot-sub002/internal/metrics"
)

// SymbolLimits carries the exchange filters for one trading pair. Zero-valued
// fields disable the corresponding check.
type SymbolLimits struct {
	StepSize    decimal.Decimal // quantity increment
	TickSize    decimal.Decimal // price increment
	MinNotional decimal.Decimal // minimum price*qty
}

// LimitsSource resolves the limits for a (exchange, symbol) pair. A false
// second return means the pair has no known limits.
type LimitsSource interface {
	Limits(exchange, symbol string) (SymbolLimits, bool)
}

// StaticLimits is a LimitsSource backed by a fixed map keyed by
// "EXCHANGE:SYMBOL". Handy for configuration-driven setups and tests.
type StaticLimits map[string]SymbolLimits

func (m StaticLimits) Limits(exchange, symbol string) (SymbolLimits, bool) {
	l, ok := m[exchange+":"+symbol]
	return l, ok
}

// Request describes an order candidate to validate.
type Request struct {
	Exchange string
	Symbol   string
	Side     string
	Qty      decimal.Decimal
	Price    decimal.Decimal

	// IsMarket marks a market order: the price is advisory or absent, so
	// tick rounding is skipped and a missing price downgrades the
	// notional check to a warning.
	IsMarket bool

	// AllowIncreaseQtyToMinNotional permits raising the quantity to the
	// smallest step multiple that satisfies the minimum-notional filter
	// instead of rejecting the order.
	AllowIncreaseQtyToMinNotional bool
}

// Result is the outcome of a validation pass. OK is true exactly when Errors
// is empty; Warnings never block an order.
type Result struct {
	OK               bool
	Adjusted         bool
	FinalQty         decimal.Decimal
	FinalPrice       decimal.Decimal
	MinNotional      decimal.Decimal
	ComputedNotional decimal.Decimal
	Warnings         []string
	Errors           []string
}

// Guard applies symbol limits to order candidates.
type Guard struct {
	limits LimitsSource
	log    zerolog.Logger
}

// New wires a guard to its limits source.
func New(limits LimitsSource, log zerolog.Logger) *Guard {
	return &Guard{limits: limits, log: log.With().Str("component", "guard").Logger()}
}

// ValidateAndAdjust checks one order candidate against its symbol limits,
// rounding a limit price down to the tick size and quantity down to the
// step size. When no limits are known for the pair the candidate skips the
// exchange filters with a warning but still passes the basic sanity checks,
// so an exchange with missing metadata degrades loudly instead of silently
// blocking trading.
func (g *Guard) ValidateAndAdjust(req Request) Result {
	res := Result{FinalQty: req.Qty, FinalPrice: req.Price}

	limits, ok := g.limits.Limits(req.Exchange, req.Symbol)
	if !ok {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("no symbol limits for %s:%s, constraint check skipped", req.Exchange, req.Symbol))
		if !req.Qty.IsPositive() {
			res.Errors = append(res.Errors, "quantity must be positive")
		}
		if !req.IsMarket && !req.Price.IsPositive() {
			res.Errors = append(res.Errors, "limit price must be positive")
		}
		res.ComputedNotional = req.Price.Mul(req.Qty)
		res.OK = len(res.Errors) == 0
		g.log.Warn().Str("exchange", req.Exchange).Str("sym", req.Symbol).Msg("symbol limits missing")
		if !res.OK {
			metrics.GuardBlocks.WithLabelValues(req.Exchange).Inc()
		}
		return res
	}
	res.MinNotional = limits.MinNotional

	// Market orders fill at whatever the book gives; only limit prices are
	// snapped to the tick grid.
	if !req.IsMarket && limits.TickSize.IsPositive() {
		floored := floorToIncrement(req.Price, limits.TickSize)
		if !floored.Equal(req.Price) {
			res.Adjusted = true
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("price %s floored to tick size %s: %s", req.Price, limits.TickSize, floored))
		}
		res.FinalPrice = floored
	}

	if limits.StepSize.IsPositive() {
		floored := floorToIncrement(req.Qty, limits.StepSize)
		if !floored.Equal(req.Qty) {
			res.Adjusted = true
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("qty %s floored to step size %s: %s", req.Qty, limits.StepSize, floored))
		}
		res.FinalQty = floored
	}

	if !res.FinalQty.IsPositive() {
		res.Errors = append(res.Errors, "quantity is zero after step rounding")
	}
	if !req.IsMarket && !res.FinalPrice.IsPositive() {
		res.Errors = append(res.Errors, "price is zero after tick rounding")
	}

	priceKnown := res.FinalPrice.IsPositive()
	res.ComputedNotional = res.FinalPrice.Mul(res.FinalQty)
	switch {
	case req.IsMarket && !priceKnown:
		if limits.MinNotional.IsPositive() {
			res.Warnings = append(res.Warnings, "market order without price, min notional check skipped")
		}
	case len(res.Errors) == 0 && limits.MinNotional.IsPositive() && res.ComputedNotional.LessThan(limits.MinNotional):
		if req.AllowIncreaseQtyToMinNotional {
			needed := limits.MinNotional.Div(res.FinalPrice)
			raised := needed
			if limits.StepSize.IsPositive() {
				raised = ceilToIncrement(needed, limits.StepSize)
			}
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("qty %s raised to %s to satisfy min notional %s", res.FinalQty, raised, limits.MinNotional))
			res.FinalQty = raised
			res.Adjusted = true
			res.ComputedNotional = res.FinalPrice.Mul(res.FinalQty)
		} else {
			res.Errors = append(res.Errors,
				fmt.Sprintf("notional %s below minimum %s", res.ComputedNotional, limits.MinNotional))
		}
	}

	res.OK = len(res.Errors) == 0
	if !res.OK {
		metrics.GuardBlocks.WithLabelValues(req.Exchange).Inc()
		g.log.Warn().
			Str("exchange", req.Exchange).
			Str("sym", req.Symbol).
			Strs("errors", res.Errors).
			Msg("order blocked")
	}
	return res
}

func floorToIncrement(v, inc decimal.Decimal) decimal.Decimal {
	return v.Div(inc).Floor().Mul(inc)
}

func ceilToIncrement(v, inc decimal.Decimal) decimal.Decimal {
	return v.Div(inc).Ceil().Mul(inc)
}
