package strategy

import "fmt"

// Registration pairs a strategy type tag with its decision implementation.
type Registration struct {
	Type     string
	Decision Decision
}

// Registry is the static strategy catalogue built once at startup.
type Registry struct {
	decisions map[string]Decision
}

// NewRegistry builds a registry from an explicit list. A blank type, a nil
// decision or a duplicate type fails construction.
func NewRegistry(regs ...Registration) (*Registry, error) {
	r := &Registry{decisions: make(map[string]Decision, len(regs))}
	for _, reg := range regs {
		if reg.Type == "" || reg.Decision == nil {
			return nil, fmt.Errorf("invalid registration %+v", reg)
		}
		if _, dup := r.decisions[reg.Type]; dup {
			return nil, fmt.Errorf("duplicate strategy type %q", reg.Type)
		}
		r.decisions[reg.Type] = reg.Decision
	}
	return r, nil
}

// DefaultRegistry registers the built-in decisions.
func DefaultRegistry() (*Registry, error) {
	return NewRegistry(
		Registration{Type: TypeMomentum, Decision: NewMomentum()},
		Registration{Type: TypeWindowRange, Decision: NewWindowRange()},
	)
}

// Get returns the decision for a strategy type.
func (r *Registry) Get(strategyType string) (Decision, bool) {
	d, ok := r.decisions[strategyType]
	return d, ok
}

// Types lists the registered strategy types in no particular order.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.decisions))
	for t := range r.decisions {
		out = append(out, t)
	}
	return out
}
