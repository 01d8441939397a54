package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sergvlet/AiTradeBot-sub002/internal/config"
	"github.com/sergvlet/AiTradeBot-sub002/internal/exchange"
	"github.com/sergvlet/AiTradeBot-sub002/internal/execution"
	"github.com/sergvlet/AiTradeBot-sub002/internal/guard"
	"github.com/sergvlet/AiTradeBot-sub002/internal/market"
	"github.com/sergvlet/AiTradeBot-sub002/internal/metrics"
	"github.com/sergvlet/AiTradeBot-sub002/internal/runner"
	"github.com/sergvlet/AiTradeBot-sub002/internal/sched"
	"github.com/sergvlet/AiTradeBot-sub002/internal/store"
	"github.com/sergvlet/AiTradeBot-sub002/internal/strategy"
	"github.com/sergvlet/AiTradeBot-sub002/internal/tuning"
	"github.com/sergvlet/AiTradeBot-sub002/internal/util"
)

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
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Market ingestion surface.
	prices := market.NewPriceCache()
	retention := time.Duration(cfg.Market.TickRetentionMins) * time.Minute
	ticks := market.NewTickCache(retention)
	candles := market.NewAggregator()
	router := market.NewRouter(prices, ticks, candles, cfg.Market.Timeframes, log)
	for symbol, ex := range cfg.Market.Allowlist {
		router.AllowSymbol(symbol, ex)
	}

	var managers []*exchange.Manager
	for _, feed := range cfg.Market.Feeds {
		adapter, err := adapterFor(feed.Exchange)
		if err != nil {
			log.Fatal().Err(err).Msg("feed setup")
		}
		mgr := exchange.NewManager(adapter, router, log)
		managers = append(managers, mgr)
		for _, symbol := range feed.Symbols {
			mgr.Connect(ctx, symbol)
		}
	}

	// Collaborators shared by runners and tuning.
	settings, err := store.NewSettingsStore(cfg.Storage.SettingsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open settings store")
	}
	defer settings.Close()

	registry, err := strategy.DefaultRegistry()
	if err != nil {
		log.Fatal().Err(err).Msg("build strategy registry")
	}
	g := guard.New(buildLimits(cfg.Limits, log), log)
	exec := execution.NewLogExecutor(log)

	scheduler := sched.New(log, cfg.Scheduler.Workers)
	defer scheduler.Shutdown()

	interval := time.Duration(cfg.Scheduler.IntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	for _, rc := range cfg.Runners {
		spec := runner.Spec{
			AccountID:                     rc.AccountID,
			Exchange:                      rc.Exchange,
			Symbol:                        rc.Symbol,
			Timeframe:                     rc.Timeframe,
			StrategyType:                  rc.Type,
			CandlesLimit:                  rc.CandlesLimit,
			AllowIncreaseQtyToMinNotional: rc.AllowRaise,
		}
		run := runner.New(spec, prices, candles, registry, settings, g, exec, log)
		if err := scheduler.ScheduleAtFixedRate(spec.Key(), interval, run.RunOnce); err != nil {
			log.Fatal().Err(err).Str("key", spec.Key()).Msg("schedule runner")
		}
	}

	if cfg.Tuning.Enabled {
		if err := scheduleTuning(cfg, scheduler, settings, candles, log); err != nil {
			log.Fatal().Err(err).Msg("schedule tuning")
		}
	}

	log.Info().Int("runners", len(cfg.Runners)).Msg("engine started")
	<-ctx.Done()
	log.Info().Msg("shutting down")
	for _, mgr := range managers {
		mgr.Shutdown()
	}
}

func adapterFor(name string) (exchange.Adapter, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case exchange.ExchangeBinance:
		return exchange.NewBinanceAdapter(), nil
	case exchange.ExchangeBybit:
		return exchange.NewBybitAdapter(), nil
	default:
		return nil, fmt.Errorf("unknown exchange %q", name)
	}
}

// buildLimits parses the string-typed YAML filters into decimals. Malformed
// entries are skipped with a log line so one bad filter cannot take the
// whole engine down.
func buildLimits(raw map[string]config.SymbolLimits, log zerolog.Logger) guard.StaticLimits {
	out := make(guard.StaticLimits, len(raw))
	for key, l := range raw {
		step, err1 := decimal.NewFromString(orZero(l.StepSize))
		tick, err2 := decimal.NewFromString(orZero(l.TickSize))
		minNotional, err3 := decimal.NewFromString(orZero(l.MinNotional))
		if err1 != nil || err2 != nil || err3 != nil {
			log.Error().Str("key", key).Msg("malformed symbol limits, skipping")
			continue
		}
		out[key] = guard.SymbolLimits{StepSize: step, TickSize: tick, MinNotional: minNotional}
	}
	return out
}

func orZero(s string) string {
	if strings.TrimSpace(s) == "" {
		return "0"
	}
	return s
}

// scheduleTuning runs the window tuner for every WINDOW_RANGE runner on a
// fixed interval. Scores come from a candle-replay backtest over the
// aggregator's recent history.
func scheduleTuning(cfg *config.Config, scheduler *sched.Scheduler, settings store.SettingsService,
	candles *market.Aggregator, log zerolog.Logger) error {
	backtester := tuning.NewCandleReplayBacktester(candles)
	orch, err := tuning.NewOrchestrator(log, tuning.NewWindowTuner(settings, backtester, log))
	if err != nil {
		return err
	}

	interval := time.Duration(cfg.Tuning.IntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	for _, rc := range cfg.Runners {
		if rc.Type != strategy.TypeWindowRange {
			continue
		}
		req := tuning.Request{
			AccountID:    rc.AccountID,
			StrategyType: rc.Type,
			Exchange:     rc.Exchange,
			Symbol:       rc.Symbol,
			Timeframe:    rc.Timeframe,
			CandlesLimit: rc.CandlesLimit,
			Reason:       "scheduled",
		}
		key := "tune|" + rc.AccountID + "|" + rc.Exchange + "|" + rc.Symbol + "|" + rc.Timeframe + "|" + rc.Type
		if err := scheduler.ScheduleAtFixedRate(key, interval, func(ctx context.Context) {
			res := orch.Run(ctx, req)
			if !res.Applied {
				log.Debug().Str("reason", res.Reason).Str("sym", req.Symbol).Msg("tuning skipped")
			}
		}); err != nil {
			return err
		}
	}
	return nil
}
