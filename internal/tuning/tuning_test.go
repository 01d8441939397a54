package tuning

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergvlet/AiTradeBot-sub002/internal/strategy"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSpaceValidate(t *testing.T) {
	good := Space{
		{Name: "a", Kind: KindInt, Min: d("1"), Max: d("10"), Step: d("1")},
		{Name: "b", Kind: KindDecimal, Min: d("0.1"), Max: d("0.1"), Step: d("0.01")},
		{Name: "c", Kind: KindBool},
	}
	require.NoError(t, good.Validate())

	assert.Error(t, Space{{Name: "x", Kind: KindInt, Min: d("1"), Max: d("10"), Step: d("0")}}.Validate())
	assert.Error(t, Space{{Name: "x", Kind: KindInt, Min: d("1"), Max: d("10"), Step: d("-1")}}.Validate())
	assert.Error(t, Space{{Name: "x", Kind: KindInt, Min: d("11"), Max: d("10"), Step: d("1")}}.Validate())
	assert.Error(t, Space{{Name: "", Kind: KindInt, Min: d("1"), Max: d("2"), Step: d("1")}}.Validate())
	assert.Error(t, Space{
		{Name: "x", Kind: KindBool},
		{Name: "x", Kind: KindBool},
	}.Validate())
}

func TestGenerateStaysOnGrid(t *testing.T) {
	space := Space{
		{Name: "n", Kind: KindInt, Min: d("10"), Max: d("40"), Step: d("10")},
		{Name: "p", Kind: KindDecimal, Min: d("0.1"), Max: d("0.3"), Step: d("0.1")},
		{Name: "f", Kind: KindBool},
	}
	cands, err := NewGenerator(42).Generate(space, 100)
	require.NoError(t, err)
	require.Len(t, cands, 100)

	for _, c := range cands {
		n := c["n"]
		assert.True(t, n.GreaterThanOrEqual(d("10")) && n.LessThanOrEqual(d("40")), "n=%s", n)
		assert.True(t, n.Sub(d("10")).Mod(d("10")).IsZero(), "n=%s off grid", n)

		p := c["p"]
		assert.True(t, p.GreaterThanOrEqual(d("0.1")) && p.LessThanOrEqual(d("0.3")), "p=%s", p)

		f := c["f"]
		assert.True(t, f.IsZero() || f.Equal(d("1")), "f=%s", f)
	}
}

func TestGenerateReproducibleForSeed(t *testing.T) {
	space := windowSpace()

	a, err := NewGenerator(7).Generate(space, 20)
	require.NoError(t, err)
	b, err := NewGenerator(7).Generate(space, 20)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := NewGenerator(8).Generate(space, 20)
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "different seeds should diverge")
}

type fakeTuner struct {
	typ     string
	mu      sync.Mutex
	calls   int
	block   chan struct{}
	inside  func()
	err     error
	version string
}

func (f *fakeTuner) StrategyType() string { return f.typ }

func (f *fakeTuner) Tune(context.Context, Request) (Outcome, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.inside != nil {
		f.inside()
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return Outcome{}, f.err
	}
	return Outcome{Version: f.version}, nil
}

func (f *fakeTuner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func validRequest() Request {
	return Request{
		AccountID:    "acct-1",
		StrategyType: strategy.TypeWindowRange,
		Symbol:       "BTCUSDT",
		Timeframe:    "1m",
		CandlesLimit: 500,
	}
}

func TestOrchestratorRejectsDuplicateTuners(t *testing.T) {
	_, err := NewOrchestrator(zerolog.Nop(),
		&fakeTuner{typ: strategy.TypeWindowRange},
		&fakeTuner{typ: strategy.TypeWindowRange},
	)
	assert.Error(t, err)
}

func TestOrchestratorValidation(t *testing.T) {
	o, err := NewOrchestrator(zerolog.Nop(), &fakeTuner{typ: strategy.TypeWindowRange, version: "v1"})
	require.NoError(t, err)

	for _, req := range []Request{
		{},
		{AccountID: "a"},
		{AccountID: "a", StrategyType: strategy.TypeWindowRange},
		{AccountID: "a", StrategyType: strategy.TypeWindowRange, Symbol: "BTCUSDT"},
	} {
		res := o.Run(context.Background(), req)
		assert.False(t, res.Applied)
		assert.Contains(t, res.Reason, "invalid request")
	}

	res := o.Run(context.Background(), Request{
		AccountID: "a", StrategyType: "NOPE", Symbol: "BTCUSDT", Timeframe: "1m",
	})
	assert.False(t, res.Applied)
	assert.Contains(t, res.Reason, "no tuner")
}

func TestOrchestratorDebounce(t *testing.T) {
	tuner := &fakeTuner{typ: strategy.TypeWindowRange, version: "v1"}
	o, err := NewOrchestrator(zerolog.Nop(), tuner)
	require.NoError(t, err)

	base := time.Unix(1_000_000, 0)
	now := base
	o.now = func() time.Time { return now }

	first := o.Run(context.Background(), validRequest())
	require.True(t, first.Applied)
	assert.Equal(t, "v1", first.Version)

	// Inside the cooldown: rejected, previous version echoed, no tuner call.
	now = base.Add(30 * time.Second)
	second := o.Run(context.Background(), validRequest())
	assert.False(t, second.Applied)
	assert.Equal(t, "v1", second.Version)
	assert.Equal(t, 1, tuner.callCount())

	// A different symbol has a different signature and runs immediately.
	other := validRequest()
	other.Symbol = "ETHUSDT"
	assert.True(t, o.Run(context.Background(), other).Applied)

	// Past the cooldown the original signature runs again.
	now = base.Add(Cooldown + time.Second)
	third := o.Run(context.Background(), validRequest())
	assert.True(t, third.Applied)
	assert.Equal(t, 3, tuner.callCount())
}

func TestDebounceTracksLatestSignaturePerKey(t *testing.T) {
	tuner := &fakeTuner{typ: strategy.TypeWindowRange, version: "v1"}
	o, err := NewOrchestrator(zerolog.Nop(), tuner)
	require.NoError(t, err)

	base := time.Unix(3_000_000, 0)
	now := base
	o.now = func() time.Time { return now }

	reqA := validRequest()
	reqB := validRequest()
	reqB.Symbol = "ETHUSDT"

	require.True(t, o.Run(context.Background(), reqA).Applied)

	// The key moves on to different parameters.
	now = base.Add(5 * time.Second)
	require.True(t, o.Run(context.Background(), reqB).Applied)

	// The old parameters are no longer the key's last run, so they are not
	// debounced even inside the cooldown window.
	now = base.Add(10 * time.Second)
	again := o.Run(context.Background(), reqA)
	assert.True(t, again.Applied)
	assert.Equal(t, 3, tuner.callCount())

	// Repeating the key's current parameters is still debounced.
	now = base.Add(15 * time.Second)
	assert.False(t, o.Run(context.Background(), reqA).Applied)
	assert.Equal(t, 3, tuner.callCount())
}

func TestCooldownCountsFromRunCompletion(t *testing.T) {
	base := time.Unix(4_000_000, 0)
	now := base

	tuner := &fakeTuner{typ: strategy.TypeWindowRange, version: "v1"}
	o, err := NewOrchestrator(zerolog.Nop(), tuner)
	require.NoError(t, err)
	o.now = func() time.Time { return now }

	// The run itself takes 45 seconds.
	tuner.inside = func() { now = base.Add(45 * time.Second) }
	require.True(t, o.Run(context.Background(), validRequest()).Applied)

	// 75s after the start but only 30s after completion: still cooling.
	now = base.Add(75 * time.Second)
	res := o.Run(context.Background(), validRequest())
	assert.False(t, res.Applied)
	assert.Contains(t, res.Reason, "debounced")
	assert.Equal(t, 1, tuner.callCount())

	// A full cooldown past completion runs again.
	now = base.Add(45*time.Second + Cooldown + time.Second)
	tuner.inside = nil
	assert.True(t, o.Run(context.Background(), validRequest()).Applied)
}

func TestOrchestratorInFlightGuard(t *testing.T) {
	tuner := &fakeTuner{typ: strategy.TypeWindowRange, version: "v1", block: make(chan struct{})}
	o, err := NewOrchestrator(zerolog.Nop(), tuner)
	require.NoError(t, err)

	done := make(chan Result, 1)
	go func() { done <- o.Run(context.Background(), validRequest()) }()

	// Wait until the first run is inside the tuner.
	deadline := time.Now().Add(2 * time.Second)
	for tuner.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	require.Equal(t, 1, tuner.callCount(), "first run never started")

	// Same key, different symbol: debounce does not apply but the
	// in-flight guard does.
	other := validRequest()
	other.Symbol = "ETHUSDT"
	busy := o.Run(context.Background(), other)
	assert.False(t, busy.Applied)
	assert.Equal(t, "already running", busy.Reason)

	close(tuner.block)
	res := <-done
	assert.True(t, res.Applied)

	// Released after completion: the other symbol can run now.
	tuner.block = nil
	assert.True(t, o.Run(context.Background(), other).Applied)
}

func TestOrchestratorTunerErrorReleasesInFlight(t *testing.T) {
	tuner := &fakeTuner{typ: strategy.TypeWindowRange, err: errors.New("model sidecar down")}
	o, err := NewOrchestrator(zerolog.Nop(), tuner)
	require.NoError(t, err)

	base := time.Unix(2_000_000, 0)
	now := base
	o.now = func() time.Time { return now }

	res := o.Run(context.Background(), validRequest())
	assert.False(t, res.Applied)
	assert.Contains(t, res.Reason, "tuning error:")

	// Failure still consumes the cooldown window.
	busy := o.Run(context.Background(), validRequest())
	assert.False(t, busy.Applied)
	assert.Contains(t, busy.Reason, "debounced")

	// The in-flight mark is gone: past the cooldown the key runs again.
	now = base.Add(Cooldown + time.Second)
	tuner.err = nil
	tuner.version = "v2"
	again := o.Run(context.Background(), validRequest())
	assert.True(t, again.Applied)
}
