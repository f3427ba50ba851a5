// Package trade provides the weighted, typed trade network between economic
// entities: least-cost routing, per-route risk simulation, and structural
// resilience analysis.
package trade

import (
	"github.com/talgya/econsim/internal/econ"
	"github.com/talgya/econsim/internal/entropy"
)

// RouteType classifies the physical medium of a trade route.
type RouteType uint8

const (
	RouteLand RouteType = iota
	RouteSea
	RouteRiver
	RouteAir
	RouteDigital
)

var routeTypeNames = [...]string{"land", "sea", "river", "air", "digital"}

func (t RouteType) String() string {
	if int(t) < len(routeTypeNames) {
		return routeTypeNames[t]
	}
	return "unknown"
}

// routeTypeMultiplier scales per-unit transport cost by medium.
var routeTypeMultiplier = map[RouteType]float64{
	RouteLand:    1.0,
	RouteSea:     0.7,
	RouteRiver:   0.8,
	RouteAir:     2.0,
	RouteDigital: 0.05,
}

// resourceMultiplier scales per-unit transport cost by cargo class.
var resourceMultiplier = map[econ.Tier]float64{
	econ.TierBasic:     1.0,
	econ.TierStrategic: 1.2,
	econ.TierLuxury:    1.5,
	econ.TierAdvanced:  1.3,
	econ.TierDigital:   0.1,
}

// RiskEvent records one realized route risk. The cumulative history is part
// of the persisted state — replaying it is what keeps reloads deterministic.
type RiskEvent struct {
	Turn uint64  `json:"turn"`
	Name string  `json:"name"`
	Loss float64 `json:"loss"` // fraction of cargo lost
}

// Route is an edge between two entity identifiers. Entities are referenced
// by id only; the route never owns them.
type Route struct {
	From       string             `json:"from"`
	To         string             `json:"to"`
	Type       RouteType          `json:"type"`
	Capacity   float64            `json:"capacity"`   // units per turn
	Efficiency float64            `json:"efficiency"` // base, 0–1
	Distance   float64            `json:"distance"`
	Risks      map[string]float64 `json:"risks"` // name → per-turn probability
	Active     bool               `json:"active"`

	// LastRiskMean is the mean realized loss from the most recent sampling
	// pass; it feeds effective capacity.
	LastRiskMean float64     `json:"last_risk_mean"`
	RiskHistory  []RiskEvent `json:"risk_history"`
}

// EffectiveCapacity is capacity × base efficiency × (1 − mean realized risk).
func (r *Route) EffectiveCapacity() float64 {
	c := r.Capacity * r.Efficiency * (1 - r.LastRiskMean)
	if c < 0 {
		return 0
	}
	return c
}

// UnitCost is the per-unit transport cost over this route:
// distance × 0.01 × resource multiplier × route type multiplier.
func (r *Route) UnitCost(tier econ.Tier) float64 {
	return r.Distance * 0.01 * resourceMultiplier[tier] * routeTypeMultiplier[r.Type]
}

// Other returns the endpoint opposite the given entity, or "" if the entity
// is not on this route.
func (r *Route) Other(id string) string {
	switch id {
	case r.From:
		return r.To
	case r.To:
		return r.From
	}
	return ""
}

// lossRange returns the loss fraction bounds for a named risk on a route
// type, or ok=false when the risk cannot realize on this medium.
// Piracy removes 10–30% of goods on sea routes only.
func lossRange(risk string, rt RouteType) (lo, hi float64, ok bool) {
	switch risk {
	case "piracy":
		if rt != RouteSea {
			return 0, 0, false
		}
		return 0.10, 0.30, true
	case "weather", "storm":
		if rt == RouteDigital {
			return 0, 0, false
		}
		return 0.05, 0.20, true
	case "banditry":
		if rt != RouteLand && rt != RouteRiver {
			return 0, 0, false
		}
		return 0.05, 0.25, true
	case "flooding":
		if rt != RouteRiver {
			return 0, 0, false
		}
		return 0.05, 0.20, true
	case "cyberattack":
		if rt != RouteDigital {
			return 0, 0, false
		}
		return 0.10, 0.40, true
	default:
		return 0.05, 0.15, true
	}
}

// SampleRisks rolls every named risk independently for one turn, appends
// realized events to the history, and updates the realized-risk mean.
// Returns the total loss fraction for the turn, capped at 0.9.
func (r *Route) SampleRisks(turn uint64, rng *entropy.Stream) float64 {
	if len(r.Risks) == 0 {
		r.LastRiskMean = 0
		return 0
	}

	total := 0.0
	// Stable iteration: sorted risk names so rng consumption is reproducible.
	for _, name := range sortedKeys(r.Risks) {
		p := r.Risks[name]
		lo, hi, ok := lossRange(name, r.Type)
		if !ok || !rng.Chance(p) {
			continue
		}
		loss := rng.Range(lo, hi)
		total += loss
		r.RiskHistory = append(r.RiskHistory, RiskEvent{Turn: turn, Name: name, Loss: loss})
	}
	if total > 0.9 {
		total = 0.9
	}

	r.LastRiskMean = total / float64(len(r.Risks))
	return total
}

// Shipment is the outcome of moving goods over a single route for one turn.
type Shipment struct {
	Route     *Route           `json:"-"`
	Resource  econ.ResourceType `json:"resource"`
	Requested float64          `json:"requested"`
	Moved     float64          `json:"moved"`     // after the capacity cap
	Delivered float64          `json:"delivered"` // after realized losses
	Lost      float64          `json:"lost"`
}

// SimulateOperation moves up to amount units of a resource across the route
// for one turn. Volume is capped at effective capacity, then each named risk
// is sampled and type-specific losses applied. Insufficient capacity is
// never an error — the shipment degrades to what fits.
func (r *Route) SimulateOperation(res econ.ResourceType, amount float64, turn uint64, rng *entropy.Stream) Shipment {
	sh := Shipment{Route: r, Resource: res, Requested: amount}
	if !r.Active || amount <= 0 {
		return sh
	}

	moved := amount
	if limit := r.EffectiveCapacity(); moved > limit {
		moved = limit
	}
	sh.Moved = moved

	loss := r.SampleRisks(turn, rng)
	sh.Lost = moved * loss
	sh.Delivered = moved - sh.Lost
	return sh
}
