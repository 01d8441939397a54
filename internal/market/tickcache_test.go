package market

import (
	"testing"
	"time"
)

func TestTickCachePruneOnWrite(t *testing.T) {
	base := time.Unix(10_000, 0)
	c := NewTickCache(30 * time.Minute)
	c.now = func() time.Time { return base }

	old := tk("BTCUSDT", 100, 1, base.Add(-30*time.Minute-time.Second).Unix())
	fresh := tk("BTCUSDT", 101, 1, base.Unix())

	c.Put(old)
	got := c.GetRecent("BTCUSDT", 10)
	if len(got) != 1 {
		t.Fatalf("stale tick should survive until the next write, got %d", len(got))
	}

	c.Put(fresh)
	got = c.GetRecent("BTCUSDT", 10)
	if len(got) != 1 {
		t.Fatalf("expected only the fresh tick, got %d", len(got))
	}
	if got[0].Price != 101 {
		t.Fatalf("wrong survivor: %+v", got[0])
	}
}

func TestTickCacheGetRecentNewestFirstCapped(t *testing.T) {
	base := time.Unix(20_000, 0)
	c := NewTickCache(time.Hour)
	c.now = func() time.Time { return base }

	for i := 0; i < 5; i++ {
		c.Put(tk("ETHUSDT", float64(100+i), 1, base.Add(time.Duration(i)*time.Second).Unix()))
	}

	got := c.GetRecent("ethusdt", 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 ticks, got %d", len(got))
	}
	if got[0].Price != 102 || got[2].Price != 104 {
		t.Fatalf("expected the newest ticks oldest first, got %+v", got)
	}

	if c.GetRecent("ETHUSDT", 0) != nil {
		t.Fatal("max<=0 must return nil")
	}
	if c.GetRecent("NOPE", 5) != nil {
		t.Fatal("unknown symbol must return nil")
	}
}

func TestTickCacheBlankSymbolIgnored(t *testing.T) {
	c := NewTickCache(0)
	if c.retention != DefaultTickRetention {
		t.Fatalf("expected default retention, got %v", c.retention)
	}
	c.Put(Tick{Symbol: "  ", Price: 1, Ts: time.Now()})
	if len(c.ticks) != 0 {
		t.Fatal("blank symbol must not create a queue")
	}
}
