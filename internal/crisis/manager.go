// Crisis manager — the inactive → active → resolved state machine.
package crisis

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/talgya/econsim/internal/entity"
	"github.com/talgya/econsim/internal/entropy"
)

// Manager owns every active and historical crisis. Entities are referenced
// by id only.
type Manager struct {
	Active  []*Crisis `json:"active"`
	History []*Crisis `json:"history"`

	// GlobalContagionRisk scales every contagion roll.
	GlobalContagionRisk float64 `json:"global_contagion_risk"`

	// newID is swappable for tests; defaults to uuid.
	newID func() string
}

// NewManager creates a crisis manager with default contagion pressure.
func NewManager() *Manager {
	return &Manager{
		GlobalContagionRisk: 0.6,
		newID:               uuid.NewString,
	}
}

// ActiveFor returns the active crises affecting an entity.
func (m *Manager) ActiveFor(id string) []*Crisis {
	var out []*Crisis
	for _, c := range m.Active {
		if c.Affected[id] {
			out = append(out, c)
		}
	}
	return out
}

// HasActive reports whether a crisis of the given type already affects the
// entity. Assessment skips these — one active record per entity per type.
func (m *Manager) HasActive(id string, t Type) bool {
	for _, c := range m.Active {
		if c.Type == t && c.Affected[id] {
			return true
		}
	}
	return false
}

// riskScore computes the per-turn trigger probability of one crisis type for
// one entity from its observable state. Every signal comes through the
// EconomicEntity interface.
func riskScore(t Type, e entity.EconomicEntity, bubbleExposure float64) float64 {
	clamp := func(v, hi float64) float64 {
		if v < 0 {
			return 0
		}
		if v > hi {
			return hi
		}
		return v
	}

	debtRatio := 0.0
	if e.GDP() > 0 {
		debtRatio = e.Debt() / e.GDP()
	}

	switch t {
	case Recession:
		return clamp(-e.GDPGrowth()*2, 0.25)
	case Depression:
		if e.GDPGrowth() < -0.05 {
			return clamp(-e.GDPGrowth()*1.5, 0.20)
		}
		return 0
	case Hyperinflation:
		return clamp((e.Inflation()-0.10)*1.5, 0.30)
	case MarketCrash:
		return clamp(bubbleExposure*0.25, 0.25)
	case DebtCrisis:
		return clamp((debtRatio-0.8)*0.2, 0.25)
	case BankingCrisis:
		return clamp((debtRatio-1.0)*0.1+(e.Unemployment()-0.12)*0.2, 0.15)
	case CurrencyCrisis:
		return clamp((e.Inflation()-0.06)*0.8*e.TradeOpenness(), 0.20)
	case CommodityCrisis:
		return clamp((0.4-e.DevelopmentLevel())*0.05, 0.10)
	case TradeWar:
		return clamp(e.TradeOpenness()*0.03, 0.08)
	case SupplyChainCrisis:
		return clamp(e.TradeOpenness()*0.04*(1-e.DevelopmentLevel()), 0.10)
	}
	return 0
}

// AssessRisks runs the inactive → active transition: for every entity, every
// crisis type's risk score is compared against an independent draw. Entities
// must arrive in a deterministic order. Returns the crises triggered this
// turn (already added to the active set).
func (m *Manager) AssessRisks(entities []entity.EconomicEntity, bubbleExposure func(id string) float64, turn uint64, rng *entropy.Stream) []*Crisis {
	var triggered []*Crisis

	for _, e := range entities {
		exposure := 0.0
		if bubbleExposure != nil {
			exposure = bubbleExposure(e.ID())
		}

		for _, t := range AllTypes {
			if m.HasActive(e.ID(), t) {
				continue
			}
			score := riskScore(t, e, exposure)
			if !rng.Chance(score) {
				continue
			}

			health := entity.EconomicHealth(e)
			c := &Crisis{
				ID:            m.newID(),
				Type:          t,
				Severity:      SeverityForHealth(health),
				Origin:        e.ID(),
				Affected:      map[string]bool{e.ID(): true},
				ContagionRisk: 0.2 + (1-health)*0.5,
				StartedTurn:   turn,
			}
			m.Active = append(m.Active, c)
			triggered = append(triggered, c)

			slog.Info("crisis triggered",
				"id", c.ID,
				"type", string(t),
				"severity", c.Severity.String(),
				"origin", e.ID(),
				"health", health,
			)
		}
	}

	return triggered
}

// SimulateCrisisPropagation rolls contagion for every not-yet-affected
// entity against a snapshot of the affected set taken before iteration —
// spread within a single turn must not depend on iteration order. The
// probability doubles when the candidate has an active trade route to an
// affected entity (the explicit definition of "trade partner").
func (m *Manager) SimulateCrisisPropagation(c *Crisis, candidates []string, isPartner func(candidate string, affected map[string]bool) bool, rng *entropy.Stream) []string {
	snapshot := make(map[string]bool, len(c.Affected))
	for id := range c.Affected {
		snapshot[id] = true
	}

	var spread []string
	for _, id := range candidates {
		if snapshot[id] {
			continue
		}
		p := c.ContagionRisk * m.GlobalContagionRisk
		if isPartner != nil && isPartner(id, snapshot) {
			p *= 2
		}
		if p > 1 {
			p = 1
		}
		if rng.Chance(p) {
			c.Affected[id] = true
			spread = append(spread, id)
		}
	}

	if len(spread) > 0 {
		slog.Info("crisis spread", "id", c.ID, "type", string(c.Type), "to", spread)
	}
	return spread
}

// AdvanceResolution accrues resolution progress for one crisis:
// base 0.05 + policy effectiveness × 0.1 + economic health × 0.05 +
// min(0.1, turns active × 0.01). Progress is monotonically non-decreasing.
func (m *Manager) AdvanceResolution(c *Crisis, policyEffectiveness, health float64) {
	c.TurnsActive++

	timeBonus := float64(c.TurnsActive) * 0.01
	if timeBonus > 0.1 {
		timeBonus = 0.1
	}
	c.ResolutionProgress += 0.05 + policyEffectiveness*0.1 + health*0.05 + timeBonus
	if c.ResolutionProgress > 1 {
		c.ResolutionProgress = 1
	}
}

// Sweep moves resolved crises from the active set to history. Returns the
// crises resolved this turn.
func (m *Manager) Sweep(turn uint64) []*Crisis {
	var resolved []*Crisis
	active := m.Active[:0]
	for _, c := range m.Active {
		if c.Resolved() {
			c.ResolvedTurn = turn
			m.History = append(m.History, c)
			resolved = append(resolved, c)
			slog.Info("crisis resolved",
				"id", c.ID,
				"type", string(c.Type),
				"turns_active", c.TurnsActive,
				"affected", len(c.Affected),
			)
			continue
		}
		active = append(active, c)
	}
	m.Active = active
	return resolved
}
