package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/talgya/econsim/internal/engine"
	"github.com/talgya/econsim/internal/worldgen"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := worldgen.DefaultGenConfig()
	cfg.Entities = 4
	world := worldgen.Generate(cfg)
	sim := engine.NewSimulation(world.Market, world.Network, world.Entities, cfg.Seed)
	sim.AdvanceTurn()

	var mu sync.RWMutex
	return New(sim, &mu, 0)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := testServer(t)
	rec := get(t, s, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health: %d", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	s := testServer(t)
	rec := get(t, s, "/api/v1/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/status: %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if body["turn"].(float64) != 1 {
		t.Fatalf("turn = %v, want 1", body["turn"])
	}
	if body["entities"].(float64) != 4 {
		t.Fatalf("entities = %v, want 4", body["entities"])
	}
}

func TestEntityLookup(t *testing.T) {
	s := testServer(t)

	rec := get(t, s, "/api/v1/entity/ent-01")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET known entity: %d", rec.Code)
	}

	rec = get(t, s, "/api/v1/entity/ent-99")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET unknown entity: %d, want 404", rec.Code)
	}
}

func TestMarketListsAllResources(t *testing.T) {
	s := testServer(t)
	rec := get(t, s, "/api/v1/market")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/market: %d", rec.Code)
	}

	var rows []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode market: %v", err)
	}
	if len(rows) != len(s.sim.Market.Types()) {
		t.Fatalf("market rows = %d, want %d", len(rows), len(s.sim.Market.Types()))
	}
	for _, row := range rows {
		if row["price"].(float64) <= 0 {
			t.Fatalf("resource %v priced at %v", row["resource"], row["price"])
		}
	}
}

func TestReportAvailableAfterTurn(t *testing.T) {
	s := testServer(t)
	if rec := get(t, s, "/api/v1/report"); rec.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/report: %d", rec.Code)
	}
	if rec := get(t, s, "/api/v1/resilience"); rec.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/resilience: %d", rec.Code)
	}
}
