// Package execution handles order lifecycle and interaction with venues.
package execution

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/sergvlet/AiTradeBot-sub002/internal/metrics"
)

// Side enumerates order directions used by the executor.
type Side string

const (
	// Buy indicates a long order.
	Buy Side = "BUY"
	// Sell indicates a short order.
	Sell Side = "SELL"
)

// Order represents a placement request the executor can process. Qty and
// Price arrive already adjusted to the symbol's exchange filters.
type Order struct {
	AccountID string
	Exchange  string
	Symbol    string
	Side      Side
	Qty       float64
	Price     float64 // 0 for market (avoid in real life)
}

// Ack confirms a submitted order.
type Ack struct {
	OrderID string
	Ts      time.Time
}

// Fill records an executed (or simulated) trade.
type Fill struct {
	Symbol string    `json:"symbol"`
	Side   Side      `json:"side"`
	Qty    float64   `json:"qty"`
	Price  float64   `json:"price"`
	Ts     time.Time `json:"ts"`
}

// Executor is the order-submission collaborator consumed by strategy runners.
type Executor interface {
	Submit(order Order) (Ack, error)
}

// LogExecutor implements a logger-backed submitter for orders.
type LogExecutor struct{ log zerolog.Logger }

// NewLogExecutor wraps a zerolog logger for future order submissions.
func NewLogExecutor(log zerolog.Logger) *LogExecutor { return &LogExecutor{log: log} }

// Submit currently logs out the order request; wire real exchange APIs later.
func (e *LogExecutor) Submit(order Order) (Ack, error) {
	metrics.OrdersTotal.WithLabelValues(order.Symbol, string(order.Side)).Inc()
	e.log.Info().
		Str("account", order.AccountID).
		Str("exchange", order.Exchange).
		Str("sym", order.Symbol).
		Str("side", string(order.Side)).
		Float64("qty", order.Qty).
		Float64("px", order.Price).
		Msg("submit order (stub)")
	return Ack{OrderID: order.Symbol + "-" + time.Now().UTC().Format("20060102150405.000000000"), Ts: time.Now()}, nil
}
