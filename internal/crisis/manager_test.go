package crisis

import (
	"math"
	"testing"

	"github.com/talgya/econsim/internal/entropy"
)

// stubEntity implements entity.EconomicEntity for scoring tests.
type stubEntity struct {
	id           string
	gdp          float64
	growth       float64
	inflation    float64
	unemployment float64
	debt         float64
	openness     float64
	development  float64
	population   int
}

func (s stubEntity) ID() string                { return s.id }
func (s stubEntity) GDP() float64              { return s.gdp }
func (s stubEntity) GDPGrowth() float64        { return s.growth }
func (s stubEntity) Inflation() float64        { return s.inflation }
func (s stubEntity) Unemployment() float64     { return s.unemployment }
func (s stubEntity) Debt() float64             { return s.debt }
func (s stubEntity) TradeOpenness() float64    { return s.openness }
func (s stubEntity) DevelopmentLevel() float64 { return s.development }
func (s stubEntity) Population() int           { return s.population }

func healthy() stubEntity {
	return stubEntity{
		id: "ent-01", gdp: 1e6, growth: 0.03, inflation: 0.02,
		unemployment: 0.05, openness: 0.4, development: 0.7, population: 100000,
	}
}

func TestCatastrophicRecessionEffects(t *testing.T) {
	c := &Crisis{Type: Recession, Severity: Catastrophic}
	eff := c.Effects()
	if math.Abs(eff.GDPGrowthDelta-(-0.072)) > 1e-9 {
		t.Fatalf("catastrophic recession GDP delta = %v, want -0.072", eff.GDPGrowthDelta)
	}
	if math.Abs(eff.UnemploymentDelta-0.054) > 1e-9 {
		t.Fatalf("catastrophic recession unemployment delta = %v, want 0.054", eff.UnemploymentDelta)
	}
}

func TestSeverityForHealth(t *testing.T) {
	cases := []struct {
		health float64
		want   Severity
	}{
		{0.9, Mild},
		{0.7, Moderate},
		{0.5, Severe},
		{0.3, Critical},
		{0.1, Catastrophic},
	}
	for _, tc := range cases {
		if got := SeverityForHealth(tc.health); got != tc.want {
			t.Errorf("SeverityForHealth(%v) = %v, want %v", tc.health, got, tc.want)
		}
	}
}

func TestRiskScores(t *testing.T) {
	h := healthy()
	if got := riskScore(Recession, h, 0); got != 0 {
		t.Fatalf("growing economy recession risk = %v, want 0", got)
	}

	shrinking := h
	shrinking.growth = -0.20
	if got := riskScore(Recession, shrinking, 0); got != 0.25 {
		t.Fatalf("collapsing economy recession risk = %v, want clamp 0.25", got)
	}
	if got := riskScore(Depression, shrinking, 0); got != 0.20 {
		t.Fatalf("depression risk = %v, want clamp 0.20", got)
	}

	inflated := h
	inflated.inflation = 0.30
	if got := riskScore(Hyperinflation, inflated, 0); math.Abs(got-0.30) > 1e-9 {
		t.Fatalf("hyperinflation risk = %v, want 0.30", got)
	}

	indebted := h
	indebted.debt = indebted.gdp * 2
	if got := riskScore(DebtCrisis, indebted, 0); math.Abs(got-0.24) > 1e-9 {
		t.Fatalf("debt crisis risk = %v, want 0.24", got)
	}

	if got := riskScore(MarketCrash, h, 2.0); math.Abs(got-0.25) > 1e-9 {
		t.Fatalf("bubble-exposed crash risk = %v, want clamp 0.25", got)
	}
	if got := riskScore(MarketCrash, h, 0); got != 0 {
		t.Fatalf("no-bubble crash risk = %v, want 0", got)
	}
}

func TestHasActiveBlocksDuplicates(t *testing.T) {
	m := NewManager()
	m.Active = append(m.Active, &Crisis{
		ID: "c1", Type: Recession, Affected: map[string]bool{"ent-01": true},
	})

	if !m.HasActive("ent-01", Recession) {
		t.Fatalf("HasActive missed the active recession")
	}
	if m.HasActive("ent-01", TradeWar) {
		t.Fatalf("HasActive matched the wrong type")
	}
	if m.HasActive("ent-02", Recession) {
		t.Fatalf("HasActive matched an unaffected entity")
	}
}

func TestPropagationCertainAndImpossible(t *testing.T) {
	m := NewManager()
	m.GlobalContagionRisk = 1

	c := &Crisis{
		ID: "c1", Type: Recession, Origin: "a",
		Affected:      map[string]bool{"a": true},
		ContagionRisk: 1,
	}
	spread := m.SimulateCrisisPropagation(c, []string{"a", "b", "c"}, nil, entropy.NewStream(1))
	if len(spread) != 2 {
		t.Fatalf("certain contagion spread to %v, want b and c", spread)
	}
	if !c.Affected["b"] || !c.Affected["c"] {
		t.Fatalf("affected set = %v", c.Affected)
	}

	none := &Crisis{
		ID: "c2", Type: Recession, Origin: "a",
		Affected:      map[string]bool{"a": true},
		ContagionRisk: 0,
	}
	if spread := m.SimulateCrisisPropagation(none, []string{"b", "c"}, nil, entropy.NewStream(1)); len(spread) != 0 {
		t.Fatalf("zero-risk contagion spread to %v", spread)
	}
}

func TestAdvanceResolutionMonotonicAndSweep(t *testing.T) {
	m := NewManager()
	c := &Crisis{
		ID: "c1", Type: Recession, Severity: Moderate, Origin: "a",
		Affected: map[string]bool{"a": true}, StartedTurn: 1,
	}
	m.Active = append(m.Active, c)

	prev := 0.0
	turn := uint64(1)
	for !c.Resolved() {
		turn++
		m.AdvanceResolution(c, 0.5, 0.6)
		if c.ResolutionProgress <= prev && c.ResolutionProgress < 1 {
			t.Fatalf("resolution regressed: %v -> %v", prev, c.ResolutionProgress)
		}
		prev = c.ResolutionProgress
		if turn > 100 {
			t.Fatalf("crisis never resolved, progress %v", c.ResolutionProgress)
		}
	}
	if c.ResolutionProgress != 1 {
		t.Fatalf("final progress = %v, want capped at 1", c.ResolutionProgress)
	}

	resolved := m.Sweep(turn)
	if len(resolved) != 1 || resolved[0] != c {
		t.Fatalf("Sweep resolved %v, want the one crisis", resolved)
	}
	if len(m.Active) != 0 || len(m.History) != 1 {
		t.Fatalf("active %d history %d, want 0 and 1", len(m.Active), len(m.History))
	}
	if c.ResolvedTurn != turn {
		t.Fatalf("ResolvedTurn = %d, want %d", c.ResolvedTurn, turn)
	}

	// Sweeping again resolves nothing: exactly one lifecycle transition.
	if again := m.Sweep(turn + 1); len(again) != 0 {
		t.Fatalf("second sweep resolved %v", again)
	}
}

func TestAffectedIDsSorted(t *testing.T) {
	c := &Crisis{Affected: map[string]bool{"c": true, "a": true, "b": true}}
	ids := c.AffectedIDs()
	want := []string{"a", "b", "c"}
	for i, id := range want {
		if ids[i] != id {
			t.Fatalf("AffectedIDs = %v, want %v", ids, want)
		}
	}
}
