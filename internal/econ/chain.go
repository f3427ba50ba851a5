// Production chains — ordered multi-step pipelines with bottleneck tracking.
package econ

import (
	"fmt"
	"sort"
)

// Step is one stage of a production chain with its own inputs, outputs,
// workforce requirement, and efficiency.
type Step struct {
	Name       string                   `json:"name"`
	Inputs     map[ResourceType]float64 `json:"inputs"`
	Outputs    map[ResourceType]float64 `json:"outputs"`
	Workforce  int                      `json:"workforce"`
	Efficiency float64                  `json:"efficiency"` // 0–1 per-step
}

// Bottleneck records a blocked step. Severity is the shortfall ratio: how
// much of the requirement was missing.
type Bottleneck struct {
	Step     string       `json:"step"`
	Resource ResourceType `json:"resource,omitempty"`
	Reason   string       `json:"reason"` // "input" or "workforce"
	Severity float64      `json:"severity"`
}

// Chain is an ordered sequence of steps. Earlier output feeds later input
// through the shared stockpile; a blocked step truncates downstream volume
// but does not halt later steps whose own inputs remain satisfied.
type Chain struct {
	Name        string       `json:"name"`
	Steps       []Step       `json:"steps"`
	Bottlenecks []Bottleneck `json:"bottlenecks"` // from the last simulation
}

// NewChain creates a chain after validating every step against the market.
func NewChain(name string, steps []Step, m *Market) (*Chain, error) {
	for _, st := range steps {
		for t := range st.Inputs {
			if !m.Has(t) {
				return nil, fmt.Errorf("chain %q step %q input %s: %w", name, st.Name, t, ErrUnknownResource)
			}
		}
		for t := range st.Outputs {
			if !m.Has(t) {
				return nil, fmt.Errorf("chain %q step %q output %s: %w", name, st.Name, t, ErrUnknownResource)
			}
		}
	}
	return &Chain{Name: name, Steps: steps}, nil
}

// SimulateProduction walks the steps in order against the shared stockpile
// and a workforce pool. Blocked steps consume and produce nothing and are
// recorded as bottlenecks; the walk continues so later steps can still run
// on prior output. Returns the net outputs produced this turn.
func (c *Chain) SimulateProduction(available map[ResourceType]float64, workforce int) map[ResourceType]float64 {
	c.Bottlenecks = c.Bottlenecks[:0]
	produced := make(map[ResourceType]float64)

	for i := range c.Steps {
		step := &c.Steps[i]

		if workforce < step.Workforce {
			short := 1.0
			if step.Workforce > 0 {
				short = float64(step.Workforce-workforce) / float64(step.Workforce)
			}
			c.Bottlenecks = append(c.Bottlenecks, Bottleneck{
				Step:     step.Name,
				Reason:   "workforce",
				Severity: short,
			})
			continue
		}

		blocked := false
		for t, need := range step.Inputs {
			if need <= 0 {
				continue
			}
			if have := available[t]; have < need {
				c.Bottlenecks = append(c.Bottlenecks, Bottleneck{
					Step:     step.Name,
					Resource: t,
					Reason:   "input",
					Severity: (need - have) / need,
				})
				blocked = true
			}
		}
		if blocked {
			continue
		}

		eff := step.Efficiency
		if eff <= 0 {
			continue
		}
		if eff > 1 {
			eff = 1
		}

		workforce -= step.Workforce
		for t, need := range step.Inputs {
			available[t] -= need
		}
		for t, out := range step.Outputs {
			amount := out * eff
			available[t] += amount
			produced[t] += amount
		}
	}

	return produced
}

// OverallEfficiency is the product of step efficiencies — the fraction of
// first-stage input value that survives to the end of the chain.
func (c *Chain) OverallEfficiency() float64 {
	eff := 1.0
	for _, st := range c.Steps {
		e := st.Efficiency
		if e < 0 {
			e = 0
		}
		if e > 1 {
			e = 1
		}
		eff *= e
	}
	return eff
}

// Opportunity is an investment recommendation for one chain step.
type Opportunity struct {
	Step  string  `json:"step"`
	Score float64 `json:"score"` // 1 − efficiency; higher = better target
}

// OptimizationOpportunities ranks steps by how much efficiency they leave on
// the table, worst first.
func (c *Chain) OptimizationOpportunities() []Opportunity {
	opps := make([]Opportunity, 0, len(c.Steps))
	for _, st := range c.Steps {
		opps = append(opps, Opportunity{Step: st.Name, Score: 1 - st.Efficiency})
	}
	sort.SliceStable(opps, func(i, j int) bool { return opps[i].Score > opps[j].Score })
	return opps
}
