// Package engine ties the economic subsystems together and advances them
// one discrete turn at a time. Exactly one turn is computed at a time,
// deterministically given the simulation's random stream.
package engine

import (
	"sort"

	"github.com/talgya/econsim/internal/crisis"
	"github.com/talgya/econsim/internal/econ"
	"github.com/talgya/econsim/internal/entity"
	"github.com/talgya/econsim/internal/entropy"
	"github.com/talgya/econsim/internal/trade"
	"github.com/talgya/econsim/internal/wealth"
)

// Event is a notable occurrence in the simulated economy. The dynamics
// layer's keyword scan and the reporting API both read these.
type Event struct {
	Turn        uint64 `json:"turn" db:"turn"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"` // "market", "crisis", "trade", "production"
}

// Environment carries the per-turn numeric inputs from excluded
// collaborators (environment, technology). Defaults are neutral.
type Environment struct {
	AbundanceMultiplier float64         `json:"abundance_multiplier"`
	DisasterSeverity    float64         `json:"disaster_severity"`
	UnlockedTech        map[string]bool `json:"unlocked_tech"`
}

// NeutralEnvironment returns an environment with no external pressure and
// the early technologies unlocked.
func NeutralEnvironment() Environment {
	return Environment{
		AbundanceMultiplier: 1.0,
		UnlockedTech: map[string]bool{
			"refining":   true,
			"metallurgy": true,
			"chemistry":  true,
		},
	}
}

// Simulation owns the complete economic state and wires the subsystems
// together. Constructed once at world start and threaded explicitly — there
// are no ambient singletons.
type Simulation struct {
	Market   *econ.Market
	Dynamics *econ.Dynamics
	Network  *trade.Network
	Crises   *crisis.Manager

	Entities    []*entity.Entity
	EntityIndex map[string]*entity.Entity

	Turn   uint64
	Events []Event
	Env    Environment
	Rng    *entropy.Stream

	lastReport *TurnReport
}

// NewSimulation assembles a simulation from generated components. Entities
// are indexed and kept in sorted id order so every turn iterates them the
// same way.
func NewSimulation(market *econ.Market, network *trade.Network, entities []*entity.Entity, seed int64) *Simulation {
	sorted := make([]*entity.Entity, len(entities))
	copy(sorted, entities)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].EntityID < sorted[j].EntityID })

	index := make(map[string]*entity.Entity, len(sorted))
	for _, e := range sorted {
		index[e.EntityID] = e
	}

	return &Simulation{
		Market:      market,
		Dynamics:    econ.NewDynamics(),
		Network:     network,
		Crises:      crisis.NewManager(),
		Entities:    sorted,
		EntityIndex: index,
		Env:         NeutralEnvironment(),
		Rng:         entropy.NewStream(seed),
	}
}

// LastReport returns the most recent turn report, or nil before the first
// turn.
func (s *Simulation) LastReport() *TurnReport {
	return s.lastReport
}

// record appends a narrative event. The feed is bounded.
func (s *Simulation) record(category, description string) {
	s.Events = append(s.Events, Event{Turn: s.Turn, Description: description, Category: category})
	if len(s.Events) > 1000 {
		s.Events = s.Events[len(s.Events)-1000:]
	}
}

// recentEventText returns the last n event descriptions for the psychology
// keyword scan.
func (s *Simulation) recentEventText(n int) []string {
	start := 0
	if len(s.Events) > n {
		start = len(s.Events) - n
	}
	out := make([]string, 0, n)
	for _, e := range s.Events[start:] {
		out = append(out, e.Description)
	}
	return out
}

// perCapitaNeed is the baseline per-capita desired stock by resource tier.
var perCapitaNeed = map[econ.Tier]float64{
	econ.TierBasic:     0.004,
	econ.TierStrategic: 0.0015,
	econ.TierLuxury:    0.0004,
	econ.TierAdvanced:  0.0010,
	econ.TierDigital:   0.0008,
}

// desiredStock is how much of a resource an entity wants on hand: population
// scaled by tier need, development for the industrial tiers, and the wealth
// structure for luxuries. Tech-locked resources are not demanded.
func (s *Simulation) desiredStock(e *entity.Entity, r *econ.Resource) float64 {
	if r.Technology != "" && !s.Env.UnlockedTech[r.Technology] {
		return 0
	}

	need := float64(e.Pop) * perCapitaNeed[r.Tier]
	switch r.Tier {
	case econ.TierStrategic, econ.TierAdvanced, econ.TierDigital:
		need *= 0.3 + e.Development
	case econ.TierLuxury:
		rich := e.Wealth.Segments[wealth.TierRich].WealthShare +
			e.Wealth.Segments[wealth.TierUltraRich].WealthShare
		need *= 0.5 + rich*2
	}
	return need
}

// entityViews returns the entities as the capability interface, preserving
// sorted order.
func (s *Simulation) entityViews() []entity.EconomicEntity {
	views := make([]entity.EconomicEntity, len(s.Entities))
	for i, e := range s.Entities {
		views[i] = e
	}
	return views
}
