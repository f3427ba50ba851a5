// Package crisis models systemic economic crises: probabilistic triggering,
// type-specific effects, contagion over the trade network, and resolution.
package crisis

import "sort"

// Type enumerates the systemic crisis kinds.
type Type string

const (
	Recession         Type = "recession"
	Depression        Type = "depression"
	Hyperinflation    Type = "hyperinflation"
	MarketCrash       Type = "market_crash"
	DebtCrisis        Type = "debt_crisis"
	BankingCrisis     Type = "banking_crisis"
	CurrencyCrisis    Type = "currency_crisis"
	CommodityCrisis   Type = "commodity_crisis"
	TradeWar          Type = "trade_war"
	SupplyChainCrisis Type = "supply_chain_crisis"
)

// AllTypes lists every crisis type in assessment order.
var AllTypes = []Type{
	Recession, Depression, Hyperinflation, MarketCrash, DebtCrisis,
	BankingCrisis, CurrencyCrisis, CommodityCrisis, TradeWar, SupplyChainCrisis,
}

// Severity tiers scale every crisis effect.
type Severity uint8

const (
	Mild Severity = iota
	Moderate
	Severe
	Critical
	Catastrophic
)

var severityNames = [...]string{"mild", "moderate", "severe", "critical", "catastrophic"}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "unknown"
}

// Multiplier returns the effect scale for a severity tier.
func (s Severity) Multiplier() float64 {
	switch s {
	case Mild:
		return 0.3
	case Moderate:
		return 0.6
	case Severe:
		return 1.0
	case Critical:
		return 1.4
	case Catastrophic:
		return 1.8
	}
	return 1.0
}

// SeverityForHealth maps an entity's economic health onto a severity tier —
// the weaker the economy, the harder the crisis lands.
func SeverityForHealth(health float64) Severity {
	switch {
	case health > 0.8:
		return Mild
	case health > 0.6:
		return Moderate
	case health > 0.4:
		return Severe
	case health > 0.25:
		return Critical
	default:
		return Catastrophic
	}
}

// Effects are the per-turn deltas an active crisis applies to every affected
// entity. Simultaneous crises accumulate additively.
type Effects struct {
	GDPGrowthDelta    float64 `json:"gdp_growth_delta"`
	InflationDelta    float64 `json:"inflation_delta"`
	UnemploymentDelta float64 `json:"unemployment_delta"`
	TradeDelta        float64 `json:"trade_delta"` // fractional hit to trade openness
	ConfidenceDelta   float64 `json:"confidence_delta"`
}

// baseEffects holds the unscaled per-type deltas.
var baseEffects = map[Type]Effects{
	Recession:         {GDPGrowthDelta: -0.04, UnemploymentDelta: 0.03, ConfidenceDelta: -0.05},
	Depression:        {GDPGrowthDelta: -0.08, UnemploymentDelta: 0.06, TradeDelta: -0.10, ConfidenceDelta: -0.12},
	Hyperinflation:    {GDPGrowthDelta: -0.03, InflationDelta: 0.15, ConfidenceDelta: -0.08},
	MarketCrash:       {GDPGrowthDelta: -0.03, UnemploymentDelta: 0.02, ConfidenceDelta: -0.20},
	DebtCrisis:        {GDPGrowthDelta: -0.02, InflationDelta: 0.02, TradeDelta: -0.05, ConfidenceDelta: -0.06},
	BankingCrisis:     {GDPGrowthDelta: -0.04, UnemploymentDelta: 0.02, TradeDelta: -0.08, ConfidenceDelta: -0.10},
	CurrencyCrisis:    {GDPGrowthDelta: -0.02, InflationDelta: 0.08, TradeDelta: -0.15, ConfidenceDelta: -0.07},
	CommodityCrisis:   {GDPGrowthDelta: -0.02, InflationDelta: 0.05, TradeDelta: -0.06, ConfidenceDelta: -0.04},
	TradeWar:          {GDPGrowthDelta: -0.02, InflationDelta: 0.02, TradeDelta: -0.25, ConfidenceDelta: -0.05},
	SupplyChainCrisis: {GDPGrowthDelta: -0.03, InflationDelta: 0.04, TradeDelta: -0.20, ConfidenceDelta: -0.05},
}

// Crisis is one active or historical systemic crisis. Lifecycle: created by
// the manager when a risk check fires, mutated each turn, deactivated once
// resolution progress reaches 1.0 (retained in history).
type Crisis struct {
	ID                 string          `json:"id"`
	Type               Type            `json:"type"`
	Severity           Severity        `json:"severity"`
	Origin             string          `json:"origin"`
	Affected           map[string]bool `json:"affected"`
	ContagionRisk      float64         `json:"contagion_risk"` // 0–1
	ResolutionProgress float64         `json:"resolution_progress"`
	TurnsActive        int             `json:"turns_active"`
	StartedTurn        uint64          `json:"started_turn"`
	ResolvedTurn       uint64          `json:"resolved_turn,omitempty"`
}

// Effects returns the crisis's per-turn deltas scaled by its severity
// multiplier.
func (c *Crisis) Effects() Effects {
	base := baseEffects[c.Type]
	m := c.Severity.Multiplier()
	return Effects{
		GDPGrowthDelta:    base.GDPGrowthDelta * m,
		InflationDelta:    base.InflationDelta * m,
		UnemploymentDelta: base.UnemploymentDelta * m,
		TradeDelta:        base.TradeDelta * m,
		ConfidenceDelta:   base.ConfidenceDelta * m,
	}
}

// AffectedIDs returns the affected entity ids in sorted order. Contagion
// and effect application iterate this, never the map directly.
func (c *Crisis) AffectedIDs() []string {
	ids := make([]string, 0, len(c.Affected))
	for id := range c.Affected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolved reports whether the crisis has run its course.
func (c *Crisis) Resolved() bool {
	return c.ResolutionProgress >= 1.0
}
