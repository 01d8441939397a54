// Package risk holds portfolio-level guard rails applied on top of the
// per-order exchange constraint guard.
package risk

// Limits caps the size the executor may take on.
type Limits struct {
	MaxNotionalPerTrade float64
	KillSwitchDrawdown  float64 // fraction of starting cash, 0 disables
}

// Allow reports whether a single trade of the given notional is permitted.
// A zero MaxNotionalPerTrade disables the check.
func (l Limits) Allow(notional float64) bool {
	if l.MaxNotionalPerTrade <= 0 {
		return true
	}
	return notional <= l.MaxNotionalPerTrade
}

// Halted reports whether equity has drawn down past the kill switch.
func (l Limits) Halted(startingCash, equity float64) bool {
	if l.KillSwitchDrawdown <= 0 || startingCash <= 0 {
		return false
	}
	return equity <= startingCash*(1-l.KillSwitchDrawdown)
}
