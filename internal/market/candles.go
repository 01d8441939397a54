package market

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// maxBarsPerSeries caps the closed-bar history retained per (symbol, timeframe).
const maxBarsPerSeries = 2000

// TimeframeSeconds parses a timeframe code ("1s", "5s", "1m", "1h", "1d")
// into its bucket width in seconds.
func TimeframeSeconds(tf string) (int64, error) {
	tf = strings.ToLower(strings.TrimSpace(tf))
	if len(tf) < 2 {
		return 0, fmt.Errorf("unsupported timeframe %q", tf)
	}
	n, err := strconv.ParseInt(tf[:len(tf)-1], 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("unsupported timeframe %q", tf)
	}
	switch tf[len(tf)-1] {
	case 's':
		return n, nil
	case 'm':
		return n * 60, nil
	case 'h':
		return n * 3600, nil
	case 'd':
		return n * 86400, nil
	default:
		return 0, fmt.Errorf("unsupported timeframe %q", tf)
	}
}

// FromTicks buckets raw ticks into OHLCV bars of stepSec width and returns
// the most recent limit bars, oldest first. Input order does not matter: the
// ticks are stably sorted by timestamp before bucketing, so a reordered feed
// yields identical bars. All bars except the newest are marked closed.
func FromTicks(ticks []Tick, stepSec int64, limit int) []Candle {
	if len(ticks) == 0 || stepSec <= 0 {
		return nil
	}

	sorted := make([]Tick, len(ticks))
	copy(sorted, ticks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Ts.Before(sorted[j].Ts)
	})

	var out []Candle
	for _, t := range sorted {
		bucket := (t.Ts.Unix() / stepSec) * stepSec
		if len(out) == 0 || out[len(out)-1].OpenTime != bucket {
			if len(out) > 0 {
				out[len(out)-1].Closed = true
			}
			out = append(out, Candle{
				OpenTime: bucket,
				Open:     t.Price,
				High:     t.Price,
				Low:      t.Price,
				Close:    t.Price,
				Volume:   t.Qty,
			})
			continue
		}
		bar := &out[len(out)-1]
		bar.Close = t.Price
		if t.Price > bar.High {
			bar.High = t.Price
		}
		if t.Price < bar.Low {
			bar.Low = t.Price
		}
		bar.Volume += t.Qty
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Resample merges candles into a coarser timeframe. The input is sorted by
// open time first, so out-of-order history self-heals at the bucket level.
// Every output bar except the last is closed; the last stays open because
// its bucket may still be filling.
func Resample(src []Candle, stepSec int64) []Candle {
	if len(src) == 0 || stepSec <= 0 {
		return nil
	}

	sorted := make([]Candle, len(src))
	copy(sorted, src)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OpenTime < sorted[j].OpenTime
	})

	var out []Candle
	for _, c := range sorted {
		bucket := (c.OpenTime / stepSec) * stepSec
		if len(out) == 0 || out[len(out)-1].OpenTime != bucket {
			if len(out) > 0 {
				out[len(out)-1].Closed = true
			}
			merged := c
			merged.OpenTime = bucket
			merged.Closed = false
			out = append(out, merged)
			continue
		}
		bar := &out[len(out)-1]
		if c.High > bar.High {
			bar.High = c.High
		}
		if c.Low < bar.Low {
			bar.Low = c.Low
		}
		bar.Close = c.Close
		bar.Volume += c.Volume
	}
	return out
}

type seriesKey struct {
	symbol    string
	timeframe string
}

type series struct {
	stepSec int64
	closed  []Candle
	live    *Candle
}

// Aggregator maintains per-(symbol, timeframe) candle series. Sub-minute
// timeframes are synthesized from ticks via OnTick; natively supported
// timeframes may instead cache upstream bars verbatim via AddKline.
type Aggregator struct {
	mu     sync.Mutex
	series map[seriesKey]*series
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{series: make(map[seriesKey]*series)}
}

func (a *Aggregator) getSeries(symbol, timeframe string) (*series, error) {
	key := seriesKey{NormalizeSymbol(symbol), strings.ToLower(strings.TrimSpace(timeframe))}
	s := a.series[key]
	if s == nil {
		stepSec, err := TimeframeSeconds(key.timeframe)
		if err != nil {
			return nil, err
		}
		s = &series{stepSec: stepSec}
		a.series[key] = s
	}
	return s, nil
}

// OnTick folds a tick into the live bar for (symbol, timeframe), closing the
// bar and opening a new one when the bucket rolls over. A tick from an
// already-closed bucket opens a fresh (out-of-order) bar rather than
// amending history.
func (a *Aggregator) OnTick(symbol, timeframe string, t Tick) error {
	if t.Price <= 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.getSeries(symbol, timeframe)
	if err != nil {
		return err
	}

	bucket := (t.Ts.Unix() / s.stepSec) * s.stepSec
	if s.live == nil || s.live.OpenTime != bucket {
		if s.live != nil {
			s.live.Closed = true
			s.appendClosed(*s.live)
		}
		s.live = &Candle{
			OpenTime: bucket,
			Open:     t.Price,
			High:     t.Price,
			Low:      t.Price,
			Close:    t.Price,
			Volume:   t.Qty,
		}
		return nil
	}

	s.live.Close = t.Price
	if t.Price > s.live.High {
		s.live.High = t.Price
	}
	if t.Price < s.live.Low {
		s.live.Low = t.Price
	}
	s.live.Volume += t.Qty
	return nil
}

// AddKline caches an upstream-provided bar verbatim. Used for timeframes the
// exchange serves natively, where the aggregator is a passthrough store.
func (a *Aggregator) AddKline(symbol, timeframe string, c Candle) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.getSeries(symbol, timeframe)
	if err != nil {
		return err
	}
	if c.Closed {
		s.appendClosed(c)
		if s.live != nil && s.live.OpenTime <= c.OpenTime {
			s.live = nil
		}
		return nil
	}
	s.live = &c
	return nil
}

// Recent returns up to limit bars for (symbol, timeframe), most recent last.
// The live (unclosed) bar, when present, is the final element.
func (a *Aggregator) Recent(symbol, timeframe string, limit int) []Candle {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := seriesKey{NormalizeSymbol(symbol), strings.ToLower(strings.TrimSpace(timeframe))}
	s := a.series[key]
	if s == nil || limit <= 0 {
		return nil
	}

	out := make([]Candle, 0, limit)
	out = append(out, s.closed...)
	if s.live != nil {
		out = append(out, *s.live)
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func (s *series) appendClosed(c Candle) {
	s.closed = append(s.closed, c)
	if len(s.closed) > maxBarsPerSeries {
		s.closed = s.closed[len(s.closed)-maxBarsPerSeries:]
	}
}
