package econ

import "testing"

func testChain(t *testing.T, m *Market) *Chain {
	t.Helper()
	c, err := NewChain("industry", []Step{
		{
			Name:       "smelting",
			Inputs:     map[ResourceType]float64{ResourceIronOre: 10},
			Outputs:    map[ResourceType]float64{ResourceMachinery: 5},
			Workforce:  50,
			Efficiency: 0.8,
		},
		{
			Name:       "assembly",
			Inputs:     map[ResourceType]float64{ResourceMachinery: 4},
			Outputs:    map[ResourceType]float64{ResourceElectronics: 2},
			Workforce:  30,
			Efficiency: 0.9,
		},
	}, m)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	return c
}

func TestChainFeedsDownstream(t *testing.T) {
	m := NewMarket()
	c := testChain(t, m)

	stock := map[ResourceType]float64{ResourceIronOre: 100}
	produced := c.SimulateProduction(stock, 1000)

	// Smelting yields 4 machinery (5 × 0.8); assembly consumes 4 of it.
	if !almostEqual(produced[ResourceMachinery], 4, 1e-9) {
		t.Fatalf("machinery produced = %v, want 4", produced[ResourceMachinery])
	}
	if !almostEqual(produced[ResourceElectronics], 1.8, 1e-9) {
		t.Fatalf("electronics produced = %v, want 1.8", produced[ResourceElectronics])
	}
	if len(c.Bottlenecks) != 0 {
		t.Fatalf("unexpected bottlenecks: %+v", c.Bottlenecks)
	}
}

func TestChainInputBottleneckSeverity(t *testing.T) {
	m := NewMarket()
	c := testChain(t, m)

	// 4 of 10 ore on hand: shortfall ratio 0.6.
	stock := map[ResourceType]float64{ResourceIronOre: 4}
	c.SimulateProduction(stock, 1000)

	if len(c.Bottlenecks) == 0 {
		t.Fatalf("no bottleneck recorded for input shortfall")
	}
	b := c.Bottlenecks[0]
	if b.Step != "smelting" || b.Reason != "input" || b.Resource != ResourceIronOre {
		t.Fatalf("bottleneck = %+v", b)
	}
	if !almostEqual(b.Severity, 0.6, 1e-9) {
		t.Fatalf("severity = %v, want 0.6", b.Severity)
	}
	// Blocked step consumed nothing.
	if stock[ResourceIronOre] != 4 {
		t.Fatalf("blocked step consumed inputs: %v", stock[ResourceIronOre])
	}
}

func TestChainBlockedStepDoesNotHaltDownstream(t *testing.T) {
	m := NewMarket()
	c := testChain(t, m)

	// No ore, but machinery already stockpiled: assembly still runs.
	stock := map[ResourceType]float64{ResourceMachinery: 10}
	produced := c.SimulateProduction(stock, 1000)

	if produced[ResourceElectronics] <= 0 {
		t.Fatalf("downstream step did not run past blocked upstream step")
	}
}

func TestChainWorkforceBottleneck(t *testing.T) {
	m := NewMarket()
	c := testChain(t, m)

	stock := map[ResourceType]float64{ResourceIronOre: 100, ResourceMachinery: 100}
	c.SimulateProduction(stock, 40) // smelting needs 50

	found := false
	for _, b := range c.Bottlenecks {
		if b.Step == "smelting" && b.Reason == "workforce" {
			found = true
			if !almostEqual(b.Severity, 0.2, 1e-9) {
				t.Fatalf("workforce severity = %v, want 0.2", b.Severity)
			}
		}
	}
	if !found {
		t.Fatalf("workforce bottleneck not recorded: %+v", c.Bottlenecks)
	}
}

func TestOverallEfficiency(t *testing.T) {
	m := NewMarket()
	c := testChain(t, m)
	if got := c.OverallEfficiency(); !almostEqual(got, 0.72, 1e-9) {
		t.Fatalf("OverallEfficiency = %v, want 0.72", got)
	}
}

func TestOptimizationOpportunitiesWorstFirst(t *testing.T) {
	m := NewMarket()
	c := testChain(t, m)
	opps := c.OptimizationOpportunities()
	if len(opps) != 2 {
		t.Fatalf("opportunities = %d, want 2", len(opps))
	}
	if opps[0].Step != "smelting" {
		t.Fatalf("worst step first = %q, want smelting", opps[0].Step)
	}
	if !almostEqual(opps[0].Score, 0.2, 1e-9) {
		t.Fatalf("score = %v, want 0.2", opps[0].Score)
	}
}
