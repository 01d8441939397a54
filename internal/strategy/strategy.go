// Package strategy contains trading decision logic evaluated over cached
// prices and candles. Implementations are registered explicitly at startup;
// there is no runtime discovery.
package strategy

import (
	"github.com/sergvlet/AiTradeBot-sub002/internal/market"
)

// Action is the direction a decision asks the runner to take.
type Action int

const (
	Hold Action = iota
	Buy
	Sell
)

func (a Action) String() string {
	switch a {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Signal is the outcome of one decision evaluation. Reason carries a short
// diagnostic for logs.
type Signal struct {
	Action Action
	Reason string
}

// Decision evaluates one (price, candles, settings) snapshot into a signal.
// Implementations must be stateless across calls: every input they need is
// passed per evaluation.
type Decision interface {
	Evaluate(price float64, candles []market.Candle, s Settings) Signal
}

func hold(reason string) Signal { return Signal{Action: Hold, Reason: reason} }
