package tuning

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sergvlet/AiTradeBot-sub002/internal/metrics"
	"github.com/sergvlet/AiTradeBot-sub002/internal/strategy"
)

// Cooldown is the minimum gap between two tuning runs with the same
// signature. A request inside the window is debounced and echoes the
// previous result version.
const Cooldown = time.Minute

// Defaults applied to requests that leave exchange or network blank.
const (
	DefaultExchange = "BINANCE"
	NetworkMainnet  = "MAINNET"
)

// Request asks for one tuning run.
type Request struct {
	AccountID    string
	StrategyType string
	Exchange     string
	Network      string
	Symbol       string
	Timeframe    string
	CandlesLimit int

	// StartAt/EndAt bound the evaluation window. Zero values let the
	// tuner pick its own lookback ending at the current time.
	StartAt time.Time
	EndAt   time.Time

	// Seed fixes the candidate draw for reproducible comparisons. Zero
	// means a fresh draw per run.
	Seed int64

	// Reason records what triggered the run, for the logs only.
	Reason string
}

func (r Request) validate() error {
	switch {
	case r.AccountID == "":
		return fmt.Errorf("accountId is required")
	case r.StrategyType == "":
		return fmt.Errorf("strategyType is required")
	case r.Symbol == "":
		return fmt.Errorf("symbol is required")
	case r.Timeframe == "":
		return fmt.Errorf("timeframe is required")
	}
	return nil
}

func (r Request) normalized() Request {
	if r.Exchange == "" {
		r.Exchange = DefaultExchange
	}
	if r.Network == "" {
		r.Network = NetworkMainnet
	}
	return r
}

// Key scopes the in-flight guard: one concurrent run per account, strategy,
// exchange and network.
type Key struct {
	AccountID    string
	StrategyType string
	Exchange     string
	Network      string
}

func (r Request) key() Key {
	return Key{AccountID: r.AccountID, StrategyType: r.StrategyType, Exchange: r.Exchange, Network: r.Network}
}

// signature scopes the debounce window. Unlike Key it includes the market
// coordinates, so tuning the same strategy on another symbol is not delayed.
func (r Request) signature() string {
	return strings.Join([]string{
		r.StrategyType, r.Exchange, r.Network, r.Symbol, r.Timeframe, strconv.Itoa(r.CandlesLimit),
	}, "|")
}

// Result reports one tuning attempt. Expected rejections (busy, cooldown,
// tuner errors) come back as Applied=false with a reason, not as an error.
type Result struct {
	Applied bool
	Reason  string
	Version string
	Old     strategy.Settings
	New     strategy.Settings
}

// Outcome is what a strategy tuner returns on success.
type Outcome struct {
	Old     strategy.Settings
	New     strategy.Settings
	Version string
}

// Tuner searches parameters for one strategy type and persists the winner.
type Tuner interface {
	StrategyType() string
	Tune(ctx context.Context, req Request) (Outcome, error)
}

type lastRun struct {
	sig     string
	at      time.Time
	version string
}

// Orchestrator serializes tuning per key and debounces repeats of the key's
// most recent signature. Each key remembers only its latest run, so tuning
// the key with new parameters clears the debounce for the old ones.
type Orchestrator struct {
	log    zerolog.Logger
	tuners map[string]Tuner

	mu       sync.Mutex
	inFlight map[Key]struct{}
	lastRun  map[Key]lastRun

	now func() time.Time
}

// NewOrchestrator builds an orchestrator over an explicit tuner list.
// Duplicate strategy types fail construction.
func NewOrchestrator(log zerolog.Logger, tuners ...Tuner) (*Orchestrator, error) {
	byType := make(map[string]Tuner, len(tuners))
	for _, t := range tuners {
		if t == nil || t.StrategyType() == "" {
			return nil, fmt.Errorf("invalid tuner registration")
		}
		if _, dup := byType[t.StrategyType()]; dup {
			return nil, fmt.Errorf("duplicate tuner for strategy type %q", t.StrategyType())
		}
		byType[t.StrategyType()] = t
	}
	return &Orchestrator{
		log:      log.With().Str("component", "tuning").Logger(),
		tuners:   byType,
		inFlight: make(map[Key]struct{}),
		lastRun:  make(map[Key]lastRun),
		now:      time.Now,
	}, nil
}

// Run executes one tuning attempt end to end. The in-flight mark is always
// released, including on tuner panic unwinding into an error path.
func (o *Orchestrator) Run(ctx context.Context, req Request) Result {
	if err := req.validate(); err != nil {
		return o.rejected(req, "invalid", fmt.Sprintf("invalid request: %v", err))
	}
	req = req.normalized()

	tuner, ok := o.tuners[req.StrategyType]
	if !ok {
		return o.rejected(req, "invalid", fmt.Sprintf("no tuner for strategy type %q", req.StrategyType))
	}

	key := req.key()
	sig := req.signature()
	now := o.now()

	o.mu.Lock()
	if _, busy := o.inFlight[key]; busy {
		o.mu.Unlock()
		return o.rejected(req, "busy", "already running")
	}
	if prev, seen := o.lastRun[key]; seen && prev.sig == sig && now.Sub(prev.at) < Cooldown {
		o.mu.Unlock()
		res := o.rejected(req, "cooldown", "debounced: ran recently")
		res.Version = prev.version
		return res
	}
	o.inFlight[key] = struct{}{}
	// Provisional mark: a failed run still consumes the cooldown window so
	// a broken tuner cannot spin at full request rate.
	o.lastRun[key] = lastRun{sig: sig, at: now}
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.inFlight, key)
		o.mu.Unlock()
	}()

	outcome, err := tuner.Tune(ctx, req)
	if err != nil {
		metrics.TuningRuns.WithLabelValues(req.StrategyType, "error").Inc()
		o.log.Error().Err(err).
			Str("sym", req.Symbol).
			Str("strategy", req.StrategyType).
			Str("reason", req.Reason).
			Msg("tuning failed")
		return Result{Applied: false, Reason: fmt.Sprintf("tuning error: %v", err)}
	}

	// Stamp completion time, not start time: the cooldown window counts
	// from when the run finished.
	o.mu.Lock()
	o.lastRun[key] = lastRun{sig: sig, at: o.now(), version: outcome.Version}
	o.mu.Unlock()

	metrics.TuningRuns.WithLabelValues(req.StrategyType, "applied").Inc()
	o.log.Info().
		Str("sym", req.Symbol).
		Str("strategy", req.StrategyType).
		Str("version", outcome.Version).
		Str("reason", req.Reason).
		Msg("tuning applied")
	return Result{Applied: true, Version: outcome.Version, Old: outcome.Old, New: outcome.New}
}

func (o *Orchestrator) rejected(req Request, outcome, reason string) Result {
	metrics.TuningRuns.WithLabelValues(req.StrategyType, outcome).Inc()
	o.log.Debug().Str("strategy", req.StrategyType).Str("reason", reason).Msg("tuning rejected")
	return Result{Applied: false, Reason: reason}
}
