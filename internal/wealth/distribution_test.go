package wealth

import (
	"math"
	"testing"

	"github.com/talgya/econsim/internal/entropy"
)

func shareSums(d *Distribution) (pop, w float64) {
	for i := range d.Segments {
		pop += d.Segments[i].PopulationShare
		w += d.Segments[i].WealthShare
	}
	return pop, w
}

func TestNewDistributionNormalized(t *testing.T) {
	d := NewDistribution()
	pop, w := shareSums(d)
	if math.Abs(pop-1) > 1e-9 || math.Abs(w-1) > 1e-9 {
		t.Fatalf("share sums = %v/%v, want 1/1", pop, w)
	}
	for i := range d.Segments {
		if d.Segments[i].Tier != Tier(i) {
			t.Fatalf("segment %d carries tier %v", i, d.Segments[i].Tier)
		}
	}
}

func TestUpdateDistributionGrowthFavorsMobile(t *testing.T) {
	d := NewDistribution()
	richBefore := d.Segments[TierRich].WealthShare
	destBefore := d.Segments[TierDestitute].WealthShare

	d.UpdateDistribution(1e6, Conditions{GDPGrowth: 0.10})

	if d.Segments[TierRich].WealthShare <= richBefore {
		t.Fatalf("rich share %v -> %v under growth, want higher", richBefore, d.Segments[TierRich].WealthShare)
	}
	if d.Segments[TierDestitute].WealthShare >= destBefore {
		t.Fatalf("destitute share %v -> %v under growth, want relatively lower", destBefore, d.Segments[TierDestitute].WealthShare)
	}

	pop, w := shareSums(d)
	if math.Abs(pop-1) > 1e-9 || math.Abs(w-1) > 1e-9 {
		t.Fatalf("share sums after update = %v/%v, want 1/1", pop, w)
	}
	if d.Segments[TierRich].AverageIncome <= d.Segments[TierPoor].AverageIncome {
		t.Fatalf("average income inverted: rich %v <= poor %v",
			d.Segments[TierRich].AverageIncome, d.Segments[TierPoor].AverageIncome)
	}
}

func TestUpdateDistributionInflationHurtsPoor(t *testing.T) {
	d := NewDistribution()
	poorBefore := d.Segments[TierPoor].WealthShare

	d.UpdateDistribution(1e6, Conditions{Inflation: 0.20, Unemployment: 0.15})

	if d.Segments[TierPoor].WealthShare >= poorBefore {
		t.Fatalf("poor share %v -> %v under inflation, want lower", poorBefore, d.Segments[TierPoor].WealthShare)
	}
}

func TestGiniBounds(t *testing.T) {
	d := NewDistribution()
	m := d.CalculateInequalityMetrics()
	if m.Gini <= 0 || m.Gini >= 1 {
		t.Fatalf("default gini = %v, want within (0, 1)", m.Gini)
	}

	// Perfect equality: wealth shares track population shares exactly.
	for i := range d.Segments {
		d.Segments[i].WealthShare = d.Segments[i].PopulationShare
	}
	if g := d.CalculateInequalityMetrics().Gini; math.Abs(g) > 1e-9 {
		t.Fatalf("equal distribution gini = %v, want 0", g)
	}
}

func TestPalmaRatio(t *testing.T) {
	d := NewDistribution()
	m := d.CalculateInequalityMetrics()

	rich := d.Segments[TierRich].WealthShare + d.Segments[TierUltraRich].WealthShare
	poor := d.Segments[TierDestitute].WealthShare + d.Segments[TierPoor].WealthShare
	if math.Abs(m.Palma-rich/poor) > 1e-9 {
		t.Fatalf("palma = %v, want %v", m.Palma, rich/poor)
	}
	if m.Top10Share != rich || m.BottomShare != poor {
		t.Fatalf("top/bottom shares = %v/%v, want %v/%v", m.Top10Share, m.BottomShare, rich, poor)
	}
}

func TestSimulateWealthMobilityConserves(t *testing.T) {
	d := NewDistribution()
	rng := entropy.NewStream(11)

	for turn := 0; turn < 200; turn++ {
		d.SimulateWealthMobility(rng)
	}

	pop, w := shareSums(d)
	if math.Abs(pop-1) > 1e-6 || math.Abs(w-1) > 1e-6 {
		t.Fatalf("share sums after mobility = %v/%v, want 1/1", pop, w)
	}
	for i := range d.Segments {
		if d.Segments[i].PopulationShare < 0 || d.Segments[i].WealthShare < 0 {
			t.Fatalf("tier %v went negative: %+v", d.Segments[i].Tier, d.Segments[i])
		}
	}
}
