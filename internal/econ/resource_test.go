package econ

import (
	"math"
	"testing"

	"github.com/talgya/econsim/internal/entropy"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestNewMarketCarriesAllResources(t *testing.T) {
	m := NewMarket()
	for _, rt := range AllResourceTypes() {
		r := m.Get(rt)
		if r == nil {
			t.Fatalf("market missing %s", rt)
		}
		if r.Reserves != r.InitialReserves {
			t.Errorf("%s: reserves %v != initial %v", rt, r.Reserves, r.InitialReserves)
		}
		if r.Abundance != 1.0 {
			t.Errorf("%s: abundance = %v, want 1.0", rt, r.Abundance)
		}
	}
}

func TestCurrentValueFormula(t *testing.T) {
	m := NewMarket()
	r := m.Get(ResourceGrain)
	r.BaseValue = 10
	r.Demand = 2
	r.Supply = 1
	r.Shock = 0

	// 10 × (2/1) × 1 × 1 / 1 = 20 with no depletion and full abundance.
	if got := m.CurrentValue(ResourceGrain); !almostEqual(got, 20, 1e-9) {
		t.Fatalf("CurrentValue = %v, want 20", got)
	}

	// Depletion doubles in: extract half the reserves.
	m.Extract(ResourceGrain, r.InitialReserves/2)
	want := 10.0 * 2 * (1 + 2*0.5) * 1 / 0.5
	if got := m.CurrentValue(ResourceGrain); !almostEqual(got, want, 1e-9) {
		t.Fatalf("CurrentValue after depletion = %v, want %v", got, want)
	}
}

func TestCurrentValuePositive(t *testing.T) {
	m := NewMarket()
	r := m.Get(ResourceGold)
	r.Demand = 0
	r.Supply = 1000
	r.Shock = -0.9

	if got := m.CurrentValue(ResourceGold); got < 0.01 {
		t.Fatalf("CurrentValue = %v, want >= 0.01", got)
	}
}

func TestExtractCapsAtReserves(t *testing.T) {
	m := NewMarket()
	r := m.Get(ResourceGems)

	got := m.Extract(ResourceGems, r.InitialReserves*2)
	if got != r.InitialReserves-r.Reserves {
		t.Fatalf("Extract accounting mismatch: got %v, reserves delta %v", got, r.InitialReserves-r.Reserves)
	}
	if r.Reserves != 0 {
		t.Fatalf("reserves = %v, want 0", r.Reserves)
	}
	if d := r.Depletion(); !almostEqual(d, 1, 1e-9) {
		t.Fatalf("Depletion = %v, want 1", d)
	}

	// Exhausted reserves extract zero, not an error.
	if again := m.Extract(ResourceGems, 10); again != 0 {
		t.Fatalf("Extract on exhausted reserves = %v, want 0", again)
	}
}

func TestDiscoverReservesReversesDepletion(t *testing.T) {
	m := NewMarket()
	r := m.Get(ResourceOil)

	m.Extract(ResourceOil, r.InitialReserves/2)
	before := r.Depletion()

	m.DiscoverReserves(ResourceOil, r.InitialReserves)
	if after := r.Depletion(); after >= before {
		t.Fatalf("Depletion after discovery = %v, want < %v", after, before)
	}
	if r.Abundance <= 0 {
		t.Fatalf("abundance = %v after discovery", r.Abundance)
	}
}

func TestUpdateGlobalSupplyDemand(t *testing.T) {
	m := NewMarket()
	rng := entropy.NewStream(7)

	demand := map[ResourceType]float64{ResourceGrain: 100}
	supply := map[ResourceType]float64{ResourceGrain: 10}
	m.UpdateGlobalSupplyDemand(demand, supply, rng)

	r := m.Get(ResourceGrain)
	if r.Demand != 100 || r.Supply != 10 {
		t.Fatalf("demand/supply = %v/%v, want 100/10", r.Demand, r.Supply)
	}
	if r.Volatility < 0.02 || r.Volatility > 0.5 {
		t.Fatalf("volatility = %v, want within [0.02, 0.5]", r.Volatility)
	}
	if math.Abs(r.Shock) > r.Volatility {
		t.Fatalf("shock %v exceeds volatility %v", r.Shock, r.Volatility)
	}

	// Without a stream the shock resets so prices stay pure.
	m.UpdateGlobalSupplyDemand(nil, nil, nil)
	if r.Shock != 0 {
		t.Fatalf("shock = %v with nil rng, want 0", r.Shock)
	}
}

func TestTypesStableOrder(t *testing.T) {
	m := NewMarket()
	types := m.Types()
	for i := 1; i < len(types); i++ {
		if types[i-1] >= types[i] {
			t.Fatalf("Types not strictly ascending at %d: %v >= %v", i, types[i-1], types[i])
		}
	}
}
