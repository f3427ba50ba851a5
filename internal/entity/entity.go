// Package entity defines economic actors: the capability interface the
// crisis and trade systems score against, and the concrete Entity record
// that owns production, stockpiles, and wealth state.
package entity

import (
	"github.com/talgya/econsim/internal/econ"
	"github.com/talgya/econsim/internal/wealth"
)

// Kind classifies an economic actor.
type Kind uint8

const (
	KindNation Kind = iota
	KindRegion
	KindCity
	KindCorporation
)

var kindNames = [...]string{"nation", "region", "city", "corporation"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// EconomicEntity is the capability interface every concrete entity type
// exposes for risk and health scoring. No attribute probing — if a scorer
// needs a signal, it is a method here.
type EconomicEntity interface {
	ID() string
	GDP() float64
	GDPGrowth() float64
	Inflation() float64
	Unemployment() float64
	Debt() float64
	TradeOpenness() float64
	DevelopmentLevel() float64
	Population() int
}

// Entity is a concrete economic actor. It exclusively owns its facilities,
// chains, stockpile, and wealth distribution; routes and crises reference it
// by id only.
type Entity struct {
	EntityID    string `json:"id"`
	Name        string `json:"name"`
	Kind        Kind   `json:"kind"`
	Pop         int    `json:"population"`
	Development float64 `json:"development"` // 0–1
	X, Y        float64 `json:"-"`           // placement, drives route distance

	// Macro indicators, updated each turn.
	GDPValue            float64 `json:"gdp"`
	Growth              float64 `json:"gdp_growth"`
	InflationRate       float64 `json:"inflation"`
	UnemploymentRate    float64 `json:"unemployment"`
	DebtValue           float64 `json:"debt"`
	TaxRate             float64 `json:"tax_rate"`
	Openness            float64 `json:"trade_openness"` // 0–1
	PolicyEffectiveness float64 `json:"policy_effectiveness"`

	Stockpile  map[econ.ResourceType]float64 `json:"stockpile"`
	Facilities []*econ.Facility              `json:"facilities"`
	Chains     []*econ.Chain                 `json:"chains"`
	Wealth     *wealth.Distribution          `json:"wealth"`
}

// New creates an entity with an empty stockpile and default wealth strata.
func New(id, name string, kind Kind, population int, development float64) *Entity {
	return &Entity{
		EntityID:            id,
		Name:                name,
		Kind:                kind,
		Pop:                 population,
		Development:         development,
		GDPValue:            float64(population) * (0.5 + development),
		TaxRate:             0.12,
		Openness:            0.3 + development*0.4,
		PolicyEffectiveness: 0.3 + development*0.5,
		InflationRate:       0.02,
		UnemploymentRate:    0.08,
		Stockpile:           make(map[econ.ResourceType]float64),
		Wealth:              wealth.NewDistribution(),
	}
}

func (e *Entity) ID() string                { return e.EntityID }
func (e *Entity) GDP() float64              { return e.GDPValue }
func (e *Entity) GDPGrowth() float64        { return e.Growth }
func (e *Entity) Inflation() float64        { return e.InflationRate }
func (e *Entity) Unemployment() float64     { return e.UnemploymentRate }
func (e *Entity) Debt() float64             { return e.DebtValue }
func (e *Entity) TradeOpenness() float64    { return e.Openness }
func (e *Entity) DevelopmentLevel() float64 { return e.Development }
func (e *Entity) Population() int           { return e.Pop }

// DebtRatio is debt over GDP, the debt-crisis risk signal.
func (e *Entity) DebtRatio() float64 {
	if e.GDPValue <= 0 {
		return 0
	}
	return e.DebtValue / e.GDPValue
}

// LaborForce is the share of population available to production.
func (e *Entity) LaborForce() int {
	return int(float64(e.Pop) * 0.6)
}

// AddFacility validates and attaches a facility.
func (e *Entity) AddFacility(name string, recipe econ.Recipe, m *econ.Market) (*econ.Facility, error) {
	f, err := econ.NewFacility(name, recipe, m)
	if err != nil {
		return nil, err
	}
	e.Facilities = append(e.Facilities, f)
	return f, nil
}

// AddChain validates and attaches a production chain.
func (e *Entity) AddChain(name string, steps []econ.Step, m *econ.Market) (*econ.Chain, error) {
	c, err := econ.NewChain(name, steps, m)
	if err != nil {
		return nil, err
	}
	e.Chains = append(e.Chains, c)
	return c, nil
}

// EconomicHealth is the four-way average of normalized growth, inflation,
// employment, and debt position, in [0, 1]. Lower health means a crisis
// lands at a higher severity tier.
func EconomicHealth(e EconomicEntity) float64 {
	clamp01 := func(v float64) float64 {
		if v < 0 {
			return 0
		}
		if v > 1 {
			return 1
		}
		return v
	}

	growthScore := clamp01(0.5 + e.GDPGrowth()*5)
	inflationScore := clamp01(1 - e.Inflation()*5)
	employmentScore := clamp01(1 - e.Unemployment()*2)

	debtRatio := 0.0
	if e.GDP() > 0 {
		debtRatio = e.Debt() / e.GDP()
	}
	debtScore := clamp01(1 - debtRatio*0.5)

	return (growthScore + inflationScore + employmentScore + debtScore) / 4
}
