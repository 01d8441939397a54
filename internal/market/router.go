package market

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/sergvlet/AiTradeBot-sub002/internal/metrics"
)

// Router normalizes incoming ticks and fans them out to the price cache, the
// bounded tick cache, and the candle aggregator.
//
// The exchange allow-list is fail-open on purpose: an empty map accepts every
// source, and a symbol without an entry accepts ticks from any exchange. Only
// a symbol with an explicit entry is restricted to that exchange. Strategy
// code depends on the fail-open default, so do not tighten it.
type Router struct {
	prices     *PriceCache
	ticks      *TickCache
	candles    *Aggregator
	timeframes []string

	mu      sync.RWMutex
	allowed map[string]string

	log zerolog.Logger
}

// NewRouter wires the router to its sinks. timeframes lists the buckets the
// aggregator synthesizes from raw ticks (typically the sub-minute ones the
// exchange does not serve natively).
func NewRouter(prices *PriceCache, ticks *TickCache, candles *Aggregator, timeframes []string, log zerolog.Logger) *Router {
	return &Router{
		prices:     prices,
		ticks:      ticks,
		candles:    candles,
		timeframes: timeframes,
		allowed:    make(map[string]string),
		log:        log,
	}
}

// AllowSymbol restricts a symbol to ticks from a single exchange. Symbols
// never passed to AllowSymbol stay unrestricted.
func (r *Router) AllowSymbol(symbol, exchange string) {
	symbol = NormalizeSymbol(symbol)
	exchange = NormalizeSymbol(exchange)
	if symbol == "" || exchange == "" {
		return
	}
	r.mu.Lock()
	r.allowed[symbol] = exchange
	r.mu.Unlock()
	r.log.Info().Str("sym", symbol).Str("exchange", exchange).Msg("stream source pinned")
}

// Route accepts one normalized tick and updates every sink. Ticks with a
// blank symbol or non-positive price are dropped, as are ticks from an
// exchange the symbol is pinned away from.
func (r *Router) Route(t Tick) {
	symbol := NormalizeSymbol(t.Symbol)
	if symbol == "" || t.Price <= 0 {
		return
	}
	if !r.sourceAllowed(symbol, t.Exchange) {
		metrics.TicksFiltered.WithLabelValues(symbol).Inc()
		return
	}

	t.Symbol = symbol
	r.prices.Update(symbol, t.Price)
	r.ticks.Put(t)
	for _, tf := range r.timeframes {
		if err := r.candles.OnTick(symbol, tf, t); err != nil {
			r.log.Warn().Err(err).Str("sym", symbol).Str("tf", tf).Msg("candle bucketing failed")
		}
	}
}

func (r *Router) sourceAllowed(symbol, exchange string) bool {
	r.mu.RLock()
	want, pinned := r.allowed[symbol]
	r.mu.RUnlock()
	if !pinned {
		return true
	}
	return want == NormalizeSymbol(exchange)
}
