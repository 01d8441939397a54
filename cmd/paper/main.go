package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sergvlet/AiTradeBot-sub002/internal/config"
	"github.com/sergvlet/AiTradeBot-sub002/internal/exchange"
	"github.com/sergvlet/AiTradeBot-sub002/internal/guard"
	"github.com/sergvlet/AiTradeBot-sub002/internal/market"
	"github.com/sergvlet/AiTradeBot-sub002/internal/metrics"
	"github.com/sergvlet/AiTradeBot-sub002/internal/paper"
	"github.com/sergvlet/AiTradeBot-sub002/internal/risk"
	"github.com/sergvlet/AiTradeBot-sub002/internal/runner"
	"github.com/sergvlet/AiTradeBot-sub002/internal/sched"
	"github.com/sergvlet/AiTradeBot-sub002/internal/store"
	"github.com/sergvlet/AiTradeBot-sub002/internal/strategy"
	"github.com/sergvlet/AiTradeBot-sub002/internal/util"
)

// Paper engine: the live wiring with the websocket feeds swapped for the
// stub feed and the executor swapped for the virtual account.
func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to YAML config")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	prices := market.NewPriceCache()
	ticks := market.NewTickCache(time.Duration(cfg.Market.TickRetentionMins) * time.Minute)
	candles := market.NewAggregator()
	router := market.NewRouter(prices, ticks, candles, cfg.Market.Timeframes, log)

	var symbols []string
	for _, feed := range cfg.Market.Feeds {
		symbols = append(symbols, feed.Symbols...)
	}
	stub := exchange.NewStubFeed(symbols)
	go func() { _ = stub.Run(ctx, router) }()

	settings, err := store.NewSettingsStore(":memory:")
	if err != nil {
		log.Fatal().Err(err).Msg("open settings store")
	}
	defer settings.Close()

	registry, err := strategy.DefaultRegistry()
	if err != nil {
		log.Fatal().Err(err).Msg("build strategy registry")
	}

	account := paper.NewAccount(cfg.Paper.StartingCash, cfg.Paper.MaxPositionPerSymbol)
	var recorder paper.FillRecorder
	if cfg.Paper.FillsPath != "" {
		jsonl, err := paper.NewJSONLRecorder(cfg.Paper.FillsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("open fills recorder")
		}
		defer jsonl.Close()
		recorder = jsonl
	}
	limits := risk.Limits{
		MaxNotionalPerTrade: cfg.Risk.MaxNotionalPerTrade,
		KillSwitchDrawdown:  cfg.Risk.KillSwitchDrawdown,
	}
	exec := paper.NewExecutor(account, prices, limits, recorder, log)

	// Paper mode trades without exchange filters.
	g := guard.New(guard.StaticLimits{}, log)

	scheduler := sched.New(log, cfg.Scheduler.Workers)
	defer scheduler.Shutdown()

	interval := time.Duration(cfg.Scheduler.IntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	for _, rc := range cfg.Runners {
		spec := runner.Spec{
			AccountID:    rc.AccountID,
			Exchange:     rc.Exchange,
			Symbol:       rc.Symbol,
			Timeframe:    rc.Timeframe,
			StrategyType: rc.Type,
			CandlesLimit: rc.CandlesLimit,
		}
		run := runner.New(spec, prices, candles, registry, settings, g, exec, log)
		if err := scheduler.ScheduleAtFixedRate(spec.Key(), interval, run.RunOnce); err != nil {
			log.Fatal().Err(err).Str("key", spec.Key()).Msg("schedule runner")
		}
	}

	log.Info().Float64("cash", cfg.Paper.StartingCash).Msg("paper engine started")
	<-ctx.Done()

	marks := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		if px, ok := prices.LastPrice(s); ok {
			marks[market.NormalizeSymbol(s)] = px
		}
	}
	snap := account.Snapshot(marks)
	log.Info().
		Float64("cash", snap.Cash).
		Float64("equity", snap.Equity).
		Float64("realized_pnl", snap.RealizedPnL).
		Int("open_positions", len(snap.Positions)).
		Msg("paper session closed")
}
