package market

import (
	"strings"
	"sync"
)

// PriceCache stores the last observed price per symbol. It is written by the
// tick router and read concurrently by strategy runners and the UI surface.
type PriceCache struct {
	mu     sync.RWMutex
	prices map[string]float64
}

// NewPriceCache returns an empty cache.
func NewPriceCache() *PriceCache {
	return &PriceCache{prices: make(map[string]float64)}
}

// Update records the latest price for a symbol. Blank symbols and
// non-positive prices are ignored.
func (c *PriceCache) Update(symbol string, price float64) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" || price <= 0 {
		return
	}
	c.mu.Lock()
	c.prices[symbol] = price
	c.mu.Unlock()
}

// LastPrice returns the most recent price for a symbol, if one was seen.
func (c *PriceCache) LastPrice(symbol string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	px, ok := c.prices[NormalizeSymbol(symbol)]
	return px, ok
}

// NormalizeSymbol maps a raw symbol to its canonical uppercase form.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
