package worldgen

import "testing"

func TestGenerateDeterministic(t *testing.T) {
	cfg := DefaultGenConfig()
	a := Generate(cfg)
	b := Generate(cfg)

	if len(a.Entities) != len(b.Entities) {
		t.Fatalf("entity counts differ: %d vs %d", len(a.Entities), len(b.Entities))
	}
	for i := range a.Entities {
		ea, eb := a.Entities[i], b.Entities[i]
		if ea.EntityID != eb.EntityID || ea.Name != eb.Name || ea.Pop != eb.Pop {
			t.Fatalf("entity %d differs: %+v vs %+v", i, ea, eb)
		}
		if ea.Development != eb.Development || ea.X != eb.X || ea.Y != eb.Y {
			t.Fatalf("entity %d placement differs", i)
		}
	}
	if len(a.Network.Routes()) != len(b.Network.Routes()) {
		t.Fatalf("route counts differ: %d vs %d", len(a.Network.Routes()), len(b.Network.Routes()))
	}
	for _, rt := range a.Market.Types() {
		if a.Market.Get(rt).Reserves != b.Market.Get(rt).Reserves {
			t.Fatalf("%s reserves differ", rt)
		}
	}
}

func TestGenerateSeedsVary(t *testing.T) {
	cfg := DefaultGenConfig()
	a := Generate(cfg)
	cfg.Seed = 1337
	b := Generate(cfg)

	same := true
	for i := range a.Entities {
		if a.Entities[i].Pop != b.Entities[i].Pop || a.Entities[i].X != b.Entities[i].X {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("different seeds produced identical worlds")
	}
}

func TestGenerateWorldShape(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Entities = 6
	w := Generate(cfg)

	if len(w.Entities) != 6 {
		t.Fatalf("entities = %d, want 6", len(w.Entities))
	}
	if got := len(w.Network.Entities()); got != 6 {
		t.Fatalf("network nodes = %d, want 6", got)
	}
	if len(w.Network.Routes()) == 0 {
		t.Fatalf("generated world has no routes")
	}

	for _, e := range w.Entities {
		if len(e.Facilities) == 0 {
			t.Fatalf("%s has no starter production", e.EntityID)
		}
		if e.Development < 0.2 || e.Development > 0.9 {
			t.Fatalf("%s development = %v out of generation band", e.EntityID, e.Development)
		}
		// Every node can reach at least one neighbor.
		if len(w.Network.RoutesFrom(e.EntityID)) == 0 {
			t.Fatalf("%s is disconnected", e.EntityID)
		}
	}
}
