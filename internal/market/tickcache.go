package market

import (
	"sync"
	"time"
)

// DefaultTickRetention bounds how far back the tick cache keeps raw trades.
const DefaultTickRetention = 30 * time.Minute

// TickCache is a short-retention queue of raw ticks per symbol. It feeds
// sub-minute candle synthesis. Old entries are pruned from the head on every
// write; a symbol that stops ticking keeps its stale tail until the next
// write, which is acceptable for this cache.
type TickCache struct {
	retention time.Duration
	mu        sync.Mutex
	ticks     map[string][]Tick
	now       func() time.Time
}

// NewTickCache builds a cache with the given retention window. A
// non-positive retention falls back to DefaultTickRetention.
func NewTickCache(retention time.Duration) *TickCache {
	if retention <= 0 {
		retention = DefaultTickRetention
	}
	return &TickCache{
		retention: retention,
		ticks:     make(map[string][]Tick),
		now:       time.Now,
	}
}

// Put appends a tick to its symbol queue, pruning entries older than the
// retention window measured against wall-clock now.
func (c *TickCache) Put(t Tick) {
	symbol := NormalizeSymbol(t.Symbol)
	if symbol == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	q := append(c.ticks[symbol], t)
	cutoff := c.now().Add(-c.retention)
	idx := 0
	for idx < len(q) && q[idx].Ts.Before(cutoff) {
		idx++
	}
	c.ticks[symbol] = q[idx:]
}

// GetRecent returns up to max of the newest ticks for a symbol, oldest first.
func (c *TickCache) GetRecent(symbol string, max int) []Tick {
	c.mu.Lock()
	defer c.mu.Unlock()

	q := c.ticks[NormalizeSymbol(symbol)]
	if max <= 0 || len(q) == 0 {
		return nil
	}
	from := len(q) - max
	if from < 0 {
		from = 0
	}
	out := make([]Tick, len(q)-from)
	copy(out, q[from:])
	return out
}
