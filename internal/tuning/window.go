package tuning

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sergvlet/AiTradeBot-sub002/internal/store"
	"github.com/sergvlet/AiTradeBot-sub002/internal/strategy"
)

// BacktestMetrics summarizes one evaluation of a parameter set.
type BacktestMetrics struct {
	Score  float64
	PnL    float64
	Trades int
}

// Backtester scores a parameter set over a historical window. It is an
// external collaborator; the orchestrator never looks inside.
type Backtester interface {
	Run(ctx context.Context, accountID, strategyType, symbol, timeframe string,
		params strategy.Settings, startAt, endAt time.Time) (BacktestMetrics, error)
}

// WindowTuner searches WindowRangeSettings: window length and the two range
// thresholds. The current settings stay in place unless a candidate scores
// strictly better.
type WindowTuner struct {
	settings   store.SettingsService
	backtester Backtester
	log        zerolog.Logger

	candidates int
	lookback   time.Duration
	seed       func() int64
	now        func() time.Time
}

// NewWindowTuner wires the tuner to its collaborators.
func NewWindowTuner(settings store.SettingsService, backtester Backtester, log zerolog.Logger) *WindowTuner {
	return &WindowTuner{
		settings:   settings,
		backtester: backtester,
		log:        log.With().Str("component", "window_tuner").Logger(),
		candidates: 16,
		lookback:   24 * time.Hour,
		seed:       func() int64 { return time.Now().UnixNano() },
		now:        time.Now,
	}
}

func (t *WindowTuner) StrategyType() string { return strategy.TypeWindowRange }

func windowSpace() Space {
	return Space{
		{Name: "windowBars", Kind: KindInt, Min: decimal.NewFromInt(10), Max: decimal.NewFromInt(200), Step: decimal.NewFromInt(5)},
		{Name: "buyBelowPct", Kind: KindDecimal, Min: decimal.RequireFromString("0.05"), Max: decimal.RequireFromString("0.45"), Step: decimal.RequireFromString("0.05")},
		{Name: "sellAbovePct", Kind: KindDecimal, Min: decimal.RequireFromString("0.55"), Max: decimal.RequireFromString("0.95"), Step: decimal.RequireFromString("0.05")},
	}
}

// Tune scores the current settings, draws candidates from the space, keeps
// the best strict improvement and persists it.
func (t *WindowTuner) Tune(ctx context.Context, req Request) (Outcome, error) {
	cur, err := t.settings.GetOrCreate(ctx, req.AccountID, strategy.TypeWindowRange)
	if err != nil {
		return Outcome{}, fmt.Errorf("load settings: %w", err)
	}
	current, ok := cur.(strategy.WindowRangeSettings)
	if !ok {
		return Outcome{}, fmt.Errorf("settings type %s is not %s", cur.StrategyType(), strategy.TypeWindowRange)
	}

	space := windowSpace()
	startAt, endAt := req.StartAt, req.EndAt
	if endAt.IsZero() {
		endAt = t.now()
	}
	if startAt.IsZero() {
		startAt = endAt.Add(-t.lookback)
	}

	baseline, err := t.backtester.Run(ctx, req.AccountID, req.StrategyType, req.Symbol, req.Timeframe, current, startAt, endAt)
	if err != nil {
		return Outcome{}, fmt.Errorf("baseline backtest: %w", err)
	}

	seed := req.Seed
	if seed == 0 {
		seed = t.seed()
	}
	gen := NewGenerator(seed)
	cands, err := gen.Generate(space, t.candidates)
	if err != nil {
		return Outcome{}, err
	}

	best := current
	bestScore := baseline.Score
	improved := false
	for _, cand := range cands {
		patched := applyWindowCandidate(current, space, cand)
		if patched.BuyBelowPct >= patched.SellAbovePct {
			continue
		}
		m, err := t.backtester.Run(ctx, req.AccountID, req.StrategyType, req.Symbol, req.Timeframe, patched, startAt, endAt)
		if err != nil {
			return Outcome{}, fmt.Errorf("candidate backtest: %w", err)
		}
		if m.Score > bestScore {
			best = patched
			bestScore = m.Score
			improved = true
		}
	}

	version := fmt.Sprintf("wr-%d", endAt.UnixMilli())
	if !improved {
		t.log.Info().Float64("score", baseline.Score).Msg("no candidate beat current settings")
		return Outcome{Old: current, New: current, Version: version}, nil
	}

	if err := t.settings.Update(ctx, req.AccountID, best); err != nil {
		return Outcome{}, fmt.Errorf("persist settings: %w", err)
	}
	t.log.Info().
		Float64("old_score", baseline.Score).
		Float64("new_score", bestScore).
		Int("window_bars", best.WindowBars).
		Msg("settings updated")
	return Outcome{Old: current, New: best, Version: version}, nil
}

func applyWindowCandidate(base strategy.WindowRangeSettings, space Space, c Candidate) strategy.WindowRangeSettings {
	out := base
	if v, ok := c["windowBars"]; ok {
		out.WindowBars = int(space.Clamp("windowBars", v).IntPart())
	}
	if v, ok := c["buyBelowPct"]; ok {
		out.BuyBelowPct = space.Clamp("buyBelowPct", v).InexactFloat64()
	}
	if v, ok := c["sellAbovePct"]; ok {
		out.SellAbovePct = space.Clamp("sellAbovePct", v).InexactFloat64()
	}
	return out
}
