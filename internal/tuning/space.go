// Package tuning searches strategy parameters and applies winners through
// the settings collaborator, guarded against concurrent and rapid-fire runs.
package tuning

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind tags the value type of one tunable parameter.
type Kind int

const (
	KindInt Kind = iota
	KindDecimal
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindDecimal:
		return "decimal"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Param describes one tunable dimension. Min/Max/Step are ignored for bools.
type Param struct {
	Name string
	Kind Kind
	Min  decimal.Decimal
	Max  decimal.Decimal
	Step decimal.Decimal
}

// Space is the full search space of one tuner.
type Space []Param

// Validate fails fast on the first malformed parameter: numeric dimensions
// need a positive step and min <= max.
func (s Space) Validate() error {
	seen := make(map[string]struct{}, len(s))
	for _, p := range s {
		if p.Name == "" {
			return fmt.Errorf("param with empty name")
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("duplicate param %q", p.Name)
		}
		seen[p.Name] = struct{}{}
		if p.Kind == KindBool {
			continue
		}
		if !p.Step.IsPositive() {
			return fmt.Errorf("param %q: step must be positive, got %s", p.Name, p.Step)
		}
		if p.Min.GreaterThan(p.Max) {
			return fmt.Errorf("param %q: min %s exceeds max %s", p.Name, p.Min, p.Max)
		}
	}
	return nil
}

// Clamp forces v into [min, max] for the named parameter. Unknown names
// return v unchanged.
func (s Space) Clamp(name string, v decimal.Decimal) decimal.Decimal {
	for _, p := range s {
		if p.Name != name || p.Kind == KindBool {
			continue
		}
		if v.LessThan(p.Min) {
			return p.Min
		}
		if v.GreaterThan(p.Max) {
			return p.Max
		}
		return v
	}
	return v
}
