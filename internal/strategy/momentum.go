package strategy

import (
	"fmt"
	"math"

	"github.com/sergvlet/AiTradeBot-sub002/internal/market"
)

// Momentum signals when the percent move across the lookback window exceeds
// a threshold alongside minimum traded volume.
type Momentum struct{}

// NewMomentum builds the momentum decision.
func NewMomentum() Momentum { return Momentum{} }

func (Momentum) Evaluate(price float64, candles []market.Candle, s Settings) Signal {
	cfg, ok := s.(MomentumSettings)
	if !ok {
		return hold(fmt.Sprintf("settings type %s does not match %s", s.StrategyType(), TypeMomentum))
	}
	window := cfg.WindowBars
	if window <= 0 {
		window = 30
	}
	if len(candles) < 2 {
		return hold("not enough candles")
	}
	if len(candles) > window {
		candles = candles[len(candles)-window:]
	}

	first := candles[0].Close
	if first <= 0 {
		return hold("degenerate window open")
	}
	change := (price - first) / first
	if math.Abs(change) < cfg.ThresholdPct {
		return hold(fmt.Sprintf("Δ=%.3f%% below threshold", change*100))
	}

	if cfg.MinVolume > 0 {
		var notional float64
		for _, c := range candles {
			notional += c.Volume * c.Close
		}
		if notional < cfg.MinVolume {
			return hold(fmt.Sprintf("volume=%.0f below floor", notional))
		}
	}

	reason := fmt.Sprintf("Δ=%.2f%% over %d bars", change*100, len(candles))
	if change > 0 {
		return Signal{Action: Buy, Reason: reason}
	}
	return Signal{Action: Sell, Reason: reason}
}
