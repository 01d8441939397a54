package paper

import (
	"sync"

	"github.com/sergvlet/AiTradeBot-sub002/internal/execution"
)

// Ledger keeps simulated fills in memory, in submission order. It backs the
// shutdown report in the paper binary and lets tests assert on what the
// strategy actually traded.
type Ledger struct {
	mu    sync.Mutex
	fills []execution.Fill
}

// NewLedger sizes the fill slice up front; capacity below zero means none.
func NewLedger(capacity int) *Ledger {
	if capacity < 0 {
		capacity = 0
	}
	return &Ledger{fills: make([]execution.Fill, 0, capacity)}
}

// Record implements FillRecorder.
func (l *Ledger) Record(fill execution.Fill) {
	l.mu.Lock()
	l.fills = append(l.fills, fill)
	l.mu.Unlock()
}

// Snapshot copies the fills recorded so far.
func (l *Ledger) Snapshot() []execution.Fill {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]execution.Fill, len(l.fills))
	copy(out, l.fills)
	return out
}

// Reset drops every recorded fill, keeping the allocation.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.fills = l.fills[:0]
	l.mu.Unlock()
}
