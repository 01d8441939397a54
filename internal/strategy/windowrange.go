package strategy

import (
	"fmt"

	"github.com/sergvlet/AiTradeBot-sub002/internal/market"
)

// WindowRange buys near the bottom of the recent high-low range and sells
// near the top, a mean-reversion counterpart to Momentum.
type WindowRange struct{}

// NewWindowRange builds the window-range decision.
func NewWindowRange() WindowRange { return WindowRange{} }

func (WindowRange) Evaluate(price float64, candles []market.Candle, s Settings) Signal {
	cfg, ok := s.(WindowRangeSettings)
	if !ok {
		return hold(fmt.Sprintf("settings type %s does not match %s", s.StrategyType(), TypeWindowRange))
	}
	window := cfg.WindowBars
	if window <= 0 {
		window = 60
	}
	if len(candles) == 0 {
		return hold("no candles")
	}
	if len(candles) > window {
		candles = candles[len(candles)-window:]
	}

	lo, hi := candles[0].Low, candles[0].High
	for _, c := range candles[1:] {
		if c.Low < lo {
			lo = c.Low
		}
		if c.High > hi {
			hi = c.High
		}
	}
	if hi <= lo {
		return hold("flat window")
	}

	pos := (price - lo) / (hi - lo)
	reason := fmt.Sprintf("pos=%.2f in [%.4f, %.4f]", pos, lo, hi)
	switch {
	case pos <= cfg.BuyBelowPct:
		return Signal{Action: Buy, Reason: reason}
	case pos >= cfg.SellAbovePct:
		return Signal{Action: Sell, Reason: reason}
	default:
		return hold(reason)
	}
}
