// Package market holds the in-memory market data pipeline: normalized ticks,
// OHLCV candles, the last-price and bounded tick caches, and the router that
// fans exchange feeds out to them.
package market

import "time"

// Tick is one observed trade from an exchange feed. Ticks are immutable once
// produced by a feed connection.
type Tick struct {
	Exchange string
	Symbol   string
	Price    float64
	Qty      float64
	Ts       time.Time
}

// Candle is an OHLCV bar for a fixed time bucket. OpenTime is the bucket
// start in epoch seconds. A closed candle is never amended.
type Candle struct {
	OpenTime int64
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
	Closed   bool
}
