// Package api serves a read-only HTTP view of a running simulation.
// Observation only: nothing here mutates economic state.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/talgya/econsim/internal/engine"
)

// Server exposes simulation state over HTTP. Reads are guarded by the
// mutex the turn loop holds while advancing.
type Server struct {
	sim  *engine.Simulation
	mu   *sync.RWMutex
	http *http.Server
}

// New creates an API server for the simulation. The mutex must be the same
// one the turn loop write-locks around AdvanceTurn.
func New(sim *engine.Simulation, mu *sync.RWMutex, port int) *Server {
	s := &Server{sim: sim, mu: mu}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/entities", s.handleEntities)
		r.Get("/entity/{id}", s.handleEntity)
		r.Get("/market", s.handleMarket)
		r.Get("/crises", s.handleCrises)
		r.Get("/report", s.handleReport)
		r.Get("/resilience", s.handleResilience)
		r.Get("/events", s.handleEvents)
	})

	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		slog.Info("api listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api server failed", "error", err)
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"turn":          s.sim.Turn,
		"entities":      len(s.sim.Entities),
		"routes":        len(s.sim.Network.Routes()),
		"active_crises": len(s.sim.Crises.Active),
		"confidence":    s.sim.Dynamics.Confidence,
	})
}

func (s *Server) handleEntities(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type row struct {
		ID           string  `json:"id"`
		Name         string  `json:"name"`
		Population   int     `json:"population"`
		Development  float64 `json:"development"`
		GDP          float64 `json:"gdp"`
		Growth       float64 `json:"growth"`
		Unemployment float64 `json:"unemployment"`
	}
	rows := make([]row, 0, len(s.sim.Entities))
	for _, e := range s.sim.Entities {
		rows = append(rows, row{
			ID:           e.EntityID,
			Name:         e.Name,
			Population:   e.Pop,
			Development:  e.Development,
			GDP:          e.GDPValue,
			Growth:       e.Growth,
			Unemployment: e.UnemploymentRate,
		})
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleEntity(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id := chi.URLParam(r, "id")
	e, ok := s.sim.EntityIndex[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown entity"})
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleMarket(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type row struct {
		Resource    string  `json:"resource"`
		Price       float64 `json:"price"`
		Fundamental float64 `json:"fundamental"`
		Demand      float64 `json:"demand"`
		Supply      float64 `json:"supply"`
		Depletion   float64 `json:"depletion"`
		Bubble      float64 `json:"bubble,omitempty"`
	}
	rows := make([]row, 0)
	for _, t := range s.sim.Market.Types() {
		res := s.sim.Market.Get(t)
		rows = append(rows, row{
			Resource:    t.String(),
			Price:       s.sim.Market.CurrentValue(t),
			Fundamental: s.sim.Market.FundamentalValue(t),
			Demand:      res.Demand,
			Supply:      res.Supply,
			Depletion:   res.Depletion(),
			Bubble:      s.sim.Dynamics.ActiveBubbles[t],
		})
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleCrises(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"active":  s.sim.Crises.Active,
		"history": s.sim.Crises.History,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := s.sim.LastReport()
	if report == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no turn has run"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleResilience(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"resilience":     s.sim.Network.NetworkResilience(),
		"critical_nodes": s.sim.Network.IdentifyCriticalNodes(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.sim.Events
	if len(events) > 100 {
		events = events[len(events)-100:]
	}
	writeJSON(w, http.StatusOK, events)
}
