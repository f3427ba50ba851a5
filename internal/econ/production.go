// Production facilities — single-step recipe execution constrained by
// workforce, accumulated learning, and equipment condition.
package econ

import "fmt"

const (
	// conditionDecayPerTurn is taken off equipment condition every turn,
	// operating or not.
	conditionDecayPerTurn = 0.004

	// operabilityFloor deactivates a facility until externally repaired.
	operabilityFloor = 0.3

	// maxEfficiency caps effective efficiency.
	maxEfficiency = 2.0
)

// Recipe is a fixed mapping of input quantities to output quantities.
// Immutable after definition. A recipe with no inputs is an extraction
// recipe: it draws its outputs from market reserves instead of a stockpile.
type Recipe struct {
	Name           string                   `json:"name"`
	Inputs         map[ResourceType]float64 `json:"inputs"`
	Outputs        map[ResourceType]float64 `json:"outputs"`
	Duration       int                      `json:"duration"` // turns per batch
	Workforce      int                      `json:"workforce"`
	MinDevelopment float64                  `json:"min_development"`
	LearningRate   float64                  `json:"learning_rate"` // experience gained per productive turn
}

// Validate rejects a recipe referencing a resource the market does not
// carry. Constraint violations are fatal at definition time.
func (r Recipe) Validate(m *Market) error {
	for t := range r.Inputs {
		if !m.Has(t) {
			return fmt.Errorf("recipe %q input %s: %w", r.Name, t, ErrUnknownResource)
		}
	}
	for t := range r.Outputs {
		if !m.Has(t) {
			return fmt.Errorf("recipe %q output %s: %w", r.Name, t, ErrUnknownResource)
		}
	}
	if len(r.Outputs) == 0 {
		return fmt.Errorf("recipe %q produces nothing", r.Name)
	}
	return nil
}

// IsExtraction reports whether the recipe draws from reserves rather than
// consuming stockpiled inputs.
func (r Recipe) IsExtraction() bool {
	return len(r.Inputs) == 0
}

// Facility owns one recipe and the mutable state that scales its output.
type Facility struct {
	Name          string  `json:"name"`
	Recipe        Recipe  `json:"recipe"`
	WorkforceFill float64 `json:"workforce_fill"` // 0–1, staffed fraction
	Experience    float64 `json:"experience"`
	Condition     float64 `json:"condition"` // 0–1
	Active        bool    `json:"active"`
}

// NewFacility creates an active facility at full condition, validating the
// recipe against the market.
func NewFacility(name string, recipe Recipe, m *Market) (*Facility, error) {
	if err := recipe.Validate(m); err != nil {
		return nil, err
	}
	return &Facility{
		Name:          name,
		Recipe:        recipe,
		WorkforceFill: 1.0,
		Condition:     1.0,
		Active:        true,
	}, nil
}

// inputSufficiency returns the smallest available/required ratio across the
// recipe's inputs, capped at 1. Extraction recipes always return 1.
func (f *Facility) inputSufficiency(available map[ResourceType]float64) float64 {
	ratio := 1.0
	for t, need := range f.Recipe.Inputs {
		if need <= 0 {
			continue
		}
		have := available[t]
		r := have / need
		if r < ratio {
			ratio = r
		}
	}
	if ratio < 0 {
		ratio = 0
	}
	return ratio
}

// Efficiency computes effective efficiency in [0, 2]:
// workforce fill × input sufficiency × condition factor × learning bonus.
// An inactive facility runs at 0.
func (f *Facility) Efficiency(available map[ResourceType]float64) float64 {
	if !f.Active {
		return 0
	}

	conditionFactor := 0.3 + 0.7*f.Condition
	learning := f.Experience * 0.01
	if learning > 0.5 {
		learning = 0.5
	}

	eff := f.WorkforceFill * f.inputSufficiency(available) * conditionFactor * (1 + learning)
	if eff < 0 {
		eff = 0
	}
	if eff > maxEfficiency {
		eff = maxEfficiency
	}
	return eff
}

// Produce runs one turn of production against the available stockpile.
// Inputs are decremented by recipe.input × efficiency and outputs returned
// as recipe.output × efficiency. Zero efficiency consumes nothing and
// produces nothing. Experience accrues only when efficiency exceeds 0.5.
func (f *Facility) Produce(available map[ResourceType]float64) map[ResourceType]float64 {
	eff := f.Efficiency(available)
	if eff <= 0 {
		return nil
	}

	for t, need := range f.Recipe.Inputs {
		available[t] -= need * eff
		if available[t] < 0 {
			available[t] = 0
		}
	}

	outputs := make(map[ResourceType]float64, len(f.Recipe.Outputs))
	for t, out := range f.Recipe.Outputs {
		outputs[t] = out * eff
	}

	if eff > 0.5 {
		rate := f.Recipe.LearningRate
		if rate <= 0 {
			rate = 1
		}
		f.Experience += rate
	}

	return outputs
}

// DecayCondition applies the fixed per-turn equipment decay and deactivates
// the facility once condition falls below the operability floor. Terminal
// until repaired.
func (f *Facility) DecayCondition() {
	f.Condition -= conditionDecayPerTurn
	if f.Condition < 0 {
		f.Condition = 0
	}
	if f.Condition < operabilityFloor {
		f.Active = false
	}
}

// Repair restores condition and reactivates the facility if it clears the
// operability floor. External collaborators (infrastructure projects) call
// this; the core never repairs on its own.
func (f *Facility) Repair(amount float64) {
	f.Condition += amount
	if f.Condition > 1 {
		f.Condition = 1
	}
	if f.Condition >= operabilityFloor {
		f.Active = true
	}
}
