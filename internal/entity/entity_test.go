package entity

import (
	"math"
	"testing"

	"github.com/talgya/econsim/internal/econ"
)

func TestNewDefaults(t *testing.T) {
	e := New("ent-01", "Aldria", KindRegion, 100000, 0.5)

	if got, want := e.GDPValue, 100000.0; got != want {
		t.Fatalf("GDP = %v, want %v", got, want)
	}
	if e.Wealth == nil {
		t.Fatalf("entity created without a wealth distribution")
	}
	if e.Stockpile == nil {
		t.Fatalf("entity created without a stockpile")
	}
	if e.LaborForce() != 60000 {
		t.Fatalf("LaborForce = %d, want 60000", e.LaborForce())
	}
}

func TestEconomicHealthNeutral(t *testing.T) {
	e := New("ent-01", "Aldria", KindRegion, 100000, 0.5)

	// growth 0 → 0.5, inflation 0.02 → 0.9, unemployment 0.08 → 0.84, no debt → 1.
	want := (0.5 + 0.9 + 0.84 + 1.0) / 4
	if got := EconomicHealth(e); math.Abs(got-want) > 1e-9 {
		t.Fatalf("EconomicHealth = %v, want %v", got, want)
	}
}

func TestEconomicHealthDegrades(t *testing.T) {
	e := New("ent-01", "Aldria", KindRegion, 100000, 0.5)
	base := EconomicHealth(e)

	e.Growth = -0.10
	e.InflationRate = 0.25
	e.UnemploymentRate = 0.40
	e.DebtValue = e.GDPValue * 2

	if got := EconomicHealth(e); got >= base {
		t.Fatalf("distressed health = %v, want below %v", got, base)
	}
	if got := EconomicHealth(e); got < 0 || got > 1 {
		t.Fatalf("health = %v, want within [0, 1]", got)
	}
}

func TestDebtRatio(t *testing.T) {
	e := New("ent-01", "Aldria", KindRegion, 100000, 0.5)
	e.DebtValue = e.GDPValue / 2
	if got := e.DebtRatio(); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("DebtRatio = %v, want 0.5", got)
	}

	e.GDPValue = 0
	if got := e.DebtRatio(); got != 0 {
		t.Fatalf("DebtRatio with zero GDP = %v, want 0", got)
	}
}

func TestAddFacilityValidates(t *testing.T) {
	m := econ.NewMarket()
	e := New("ent-01", "Aldria", KindRegion, 100000, 0.5)

	if _, err := e.AddFacility("farms", econ.Recipe{
		Name:    "grain_farming",
		Outputs: map[econ.ResourceType]float64{econ.ResourceGrain: 100},
	}, m); err != nil {
		t.Fatalf("AddFacility: %v", err)
	}
	if len(e.Facilities) != 1 {
		t.Fatalf("facilities = %d, want 1", len(e.Facilities))
	}

	_, err := e.AddFacility("broken", econ.Recipe{Name: "nothing"}, m)
	if err == nil {
		t.Fatalf("AddFacility accepted a recipe with no outputs")
	}
	if len(e.Facilities) != 1 {
		t.Fatalf("rejected facility was attached")
	}
}
