// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Feed describes one exchange websocket source and the symbols taken from it.
type Feed struct {
	Exchange string   `yaml:"exchange"`
	Symbols  []string `yaml:"symbols"`
}

// Market groups the ingestion surface: feeds, synthesized timeframes, the
// tick retention window, and the optional symbol→exchange pinning.
type Market struct {
	Feeds             []Feed            `yaml:"feeds"`
	Timeframes        []string          `yaml:"timeframes"`
	TickRetentionMins int               `yaml:"tick_retention_mins"`
	Allowlist         map[string]string `yaml:"allowlist"`
}

// Scheduler sizes the shared task scheduler.
type Scheduler struct {
	Workers    int `yaml:"workers"`
	IntervalMs int `yaml:"interval_ms"`
}

// Runner binds one strategy to one market for one account.
type Runner struct {
	AccountID    string `yaml:"account_id"`
	Exchange     string `yaml:"exchange"`
	Symbol       string `yaml:"symbol"`
	Timeframe    string `yaml:"timeframe"`
	Type         string `yaml:"type"`
	CandlesLimit int    `yaml:"candles_limit"`
	AllowRaise   bool   `yaml:"allow_increase_qty_to_min_notional"`
}

// SymbolLimits mirrors the exchange filters, kept as strings so tick and
// step sizes survive YAML without float drift.
type SymbolLimits struct {
	StepSize    string `yaml:"step_size"`
	TickSize    string `yaml:"tick_size"`
	MinNotional string `yaml:"min_notional"`
}

// Risk encodes guard-rails for how much size the executor may take on.
type Risk struct {
	MaxNotionalPerTrade float64 `yaml:"max_notional_per_trade"`
	KillSwitchDrawdown  float64 `yaml:"kill_switch_drawdown"`
}

// Tuning controls the background parameter-search loop.
type Tuning struct {
	Enabled    bool `yaml:"enabled"`
	IntervalMs int  `yaml:"interval_ms"`
	Candidates int  `yaml:"candidates"`
}

// Storage points at the settings database.
type Storage struct {
	SettingsPath string `yaml:"settings_path"`
}

// Paper captures paper-trading account settings such as starting cash and per-symbol caps.
type Paper struct {
	StartingCash         float64 `yaml:"starting_cash"`
	MaxPositionPerSymbol float64 `yaml:"max_position_per_symbol"`
	FillsPath            string  `yaml:"fills_path"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App       App                     `yaml:"app"`
	Market    Market                  `yaml:"market"`
	Scheduler Scheduler               `yaml:"scheduler"`
	Runners   []Runner                `yaml:"runners"`
	Limits    map[string]SymbolLimits `yaml:"limits"` // keyed "EXCHANGE:SYMBOL"
	Risk      Risk                    `yaml:"risk"`
	Tuning    Tuning                  `yaml:"tuning"`
	Storage   Storage                 `yaml:"storage"`
	Paper     Paper                   `yaml:"paper"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
