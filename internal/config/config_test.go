package config

import (
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "aitradebot-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if len(cfg.Market.Feeds) != 2 {
		t.Fatalf("expected 2 feeds, got %d", len(cfg.Market.Feeds))
	}
	if cfg.Market.Feeds[0].Exchange != "BINANCE" || len(cfg.Market.Feeds[0].Symbols) != 2 {
		t.Fatalf("unexpected binance feed: %+v", cfg.Market.Feeds[0])
	}
	if cfg.Market.TickRetentionMins != 30 {
		t.Fatalf("unexpected tick retention: %d", cfg.Market.TickRetentionMins)
	}
	if cfg.Market.Allowlist["BTCUSDT"] != "BINANCE" {
		t.Fatalf("unexpected allowlist: %+v", cfg.Market.Allowlist)
	}
	if cfg.Scheduler.Workers != 4 || cfg.Scheduler.IntervalMs != 1000 {
		t.Fatalf("unexpected scheduler config: %+v", cfg.Scheduler)
	}
	if len(cfg.Runners) != 1 {
		t.Fatalf("expected one runner, got %d", len(cfg.Runners))
	}
	r := cfg.Runners[0]
	if r.Type != "WINDOW_RANGE" || r.CandlesLimit != 120 || !r.AllowRaise {
		t.Fatalf("unexpected runner: %+v", r)
	}
	limits, ok := cfg.Limits["BINANCE:BTCUSDT"]
	if !ok || limits.StepSize != "0.00001" || limits.MinNotional != "10" {
		t.Fatalf("unexpected limits: %+v", cfg.Limits)
	}
	if cfg.Risk.MaxNotionalPerTrade != 250 {
		t.Fatalf("unexpected risk: %+v", cfg.Risk)
	}
	if !cfg.Tuning.Enabled || cfg.Tuning.Candidates != 16 {
		t.Fatalf("unexpected tuning: %+v", cfg.Tuning)
	}
	if cfg.Storage.SettingsPath != "data/settings.db" {
		t.Fatalf("unexpected storage: %+v", cfg.Storage)
	}
	if cfg.Paper.StartingCash != 5000 {
		t.Fatalf("unexpected paper config: %+v", cfg.Paper)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join("testdata", "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	in := &Config{App: App{Name: "roundtrip", MetricsAddr: ":9", LogLevel: "warn"}}
	if err := Save(path, in); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if out.App.Name != "roundtrip" {
		t.Fatalf("round trip lost App.Name: %+v", out.App)
	}
}

func TestSaveNilConfig(t *testing.T) {
	if err := Save(filepath.Join(t.TempDir(), "x.yaml"), nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
