package tuning

import (
	"math/rand"

	"github.com/shopspring/decimal"
)

// Candidate assigns one value per parameter name. Bools are encoded as 0/1.
type Candidate map[string]decimal.Decimal

var decimalOne = decimal.NewFromInt(1)

// Generator draws candidates from a validated space. It is deterministic for
// a fixed seed, which keeps tuning runs reproducible.
type Generator struct {
	rnd *rand.Rand
}

// NewGenerator seeds a candidate generator.
func NewGenerator(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Generate draws n candidates. Numeric values are min + k*step with k drawn
// uniformly from [0, floor((max-min)/step)]; bools are a fair coin.
func (g *Generator) Generate(space Space, n int) ([]Candidate, error) {
	if err := space.Validate(); err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, n)
	for i := 0; i < n; i++ {
		c := make(Candidate, len(space))
		for _, p := range space {
			if p.Kind == KindBool {
				if g.rnd.Intn(2) == 1 {
					c[p.Name] = decimalOne
				} else {
					c[p.Name] = decimal.Zero
				}
				continue
			}
			steps := p.Max.Sub(p.Min).Div(p.Step).Floor().IntPart()
			k := g.rnd.Int63n(steps + 1)
			c[p.Name] = p.Min.Add(p.Step.Mul(decimal.NewFromInt(k)))
		}
		out = append(out, c)
	}
	return out, nil
}
