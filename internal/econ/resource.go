// Package econ provides the resource market, price dynamics, and the
// production pipeline that converts resources into other resources.
package econ

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/talgya/econsim/internal/entropy"
)

// ErrUnknownResource is returned when a definition references a resource type
// the market does not carry. Definitions are rejected outright — a bad
// reference is a data-model bug, not a runtime condition.
var ErrUnknownResource = errors.New("econ: unknown resource type")

// ResourceType identifies a tradable commodity.
type ResourceType uint8

const (
	ResourceGrain ResourceType = iota
	ResourceTimber
	ResourceStone
	ResourceIronOre
	ResourceCoal
	ResourceOil
	ResourceGold
	ResourceRareEarths
	ResourceTextiles
	ResourceMachinery
	ResourceElectronics
	ResourceMedicine
	ResourceSpices
	ResourceGems
	ResourceSoftware

	resourceCount
)

var resourceNames = [...]string{
	"grain", "timber", "stone", "iron_ore", "coal", "oil", "gold",
	"rare_earths", "textiles", "machinery", "electronics", "medicine",
	"spices", "gems", "software",
}

func (t ResourceType) String() string {
	if int(t) < len(resourceNames) {
		return resourceNames[t]
	}
	return fmt.Sprintf("resource(%d)", uint8(t))
}

// AllResourceTypes returns every defined resource type in declaration order.
func AllResourceTypes() []ResourceType {
	types := make([]ResourceType, 0, resourceCount)
	for t := ResourceType(0); t < resourceCount; t++ {
		types = append(types, t)
	}
	return types
}

// Tier classifies a resource by economic role.
type Tier uint8

const (
	TierBasic Tier = iota
	TierStrategic
	TierLuxury
	TierAdvanced
	TierDigital
)

func (t Tier) String() string {
	switch t {
	case TierBasic:
		return "basic"
	case TierStrategic:
		return "strategic"
	case TierLuxury:
		return "luxury"
	case TierAdvanced:
		return "advanced"
	case TierDigital:
		return "digital"
	}
	return "unknown"
}

// Resource is the market's record for one commodity. Created once at world
// initialization and mutated every turn; never destroyed (reserves may reach
// zero, which freezes extraction).
type Resource struct {
	Type             ResourceType `json:"type"`
	BaseValue        float64      `json:"base_value"`
	Abundance        float64      `json:"abundance"` // 0–1, depletes with extraction
	InitialAbundance float64      `json:"initial_abundance"`
	Tier             Tier         `json:"tier"`
	Technology       string       `json:"technology"` // unlocking tech id, "" = always available
	Demand           float64      `json:"demand"`
	Supply           float64      `json:"supply"`
	Volatility       float64      `json:"volatility"`
	Shock            float64      `json:"shock"` // last sampled draw in [-Volatility, +Volatility]
	Reserves         float64      `json:"reserves"`
	InitialReserves  float64      `json:"initial_reserves"`
	Extracted        float64      `json:"extracted"`
}

// Depletion returns the extracted fraction of initial reserves, in [0, 1].
// Monotonically non-decreasing absent reserve-discovery events.
func (r *Resource) Depletion() float64 {
	if r.InitialReserves <= 0 {
		return 0
	}
	d := r.Extracted / r.InitialReserves
	if d > 1 {
		d = 1
	}
	return d
}

// resourceDef seeds a market resource. The table plays the role the base
// price map plays for settlement markets.
type resourceDef struct {
	base     float64
	tier     Tier
	tech     string
	reserves float64
}

var resourceDefs = map[ResourceType]resourceDef{
	ResourceGrain:       {base: 2, tier: TierBasic, reserves: 500000},
	ResourceTimber:      {base: 3, tier: TierBasic, reserves: 300000},
	ResourceStone:       {base: 3, tier: TierBasic, reserves: 400000},
	ResourceIronOre:     {base: 4, tier: TierStrategic, reserves: 200000},
	ResourceCoal:        {base: 4, tier: TierStrategic, reserves: 250000},
	ResourceOil:         {base: 8, tier: TierStrategic, tech: "refining", reserves: 150000},
	ResourceGold:        {base: 25, tier: TierLuxury, reserves: 20000},
	ResourceRareEarths:  {base: 18, tier: TierStrategic, tech: "metallurgy", reserves: 30000},
	ResourceTextiles:    {base: 6, tier: TierBasic, reserves: 200000},
	ResourceMachinery:   {base: 20, tier: TierAdvanced, tech: "engineering", reserves: 80000},
	ResourceElectronics: {base: 30, tier: TierAdvanced, tech: "electronics", reserves: 60000},
	ResourceMedicine:    {base: 15, tier: TierAdvanced, tech: "chemistry", reserves: 90000},
	ResourceSpices:      {base: 12, tier: TierLuxury, reserves: 50000},
	ResourceGems:        {base: 35, tier: TierLuxury, reserves: 15000},
	ResourceSoftware:    {base: 22, tier: TierDigital, tech: "computing", reserves: 1000000},
}

// Market owns every Resource record and prices them from supply, demand,
// depletion, and the stochastic volatility shock.
type Market struct {
	Resources map[ResourceType]*Resource `json:"resources"`
}

// NewMarket creates a market carrying every defined resource with neutral
// supply/demand and full reserves.
func NewMarket() *Market {
	resources := make(map[ResourceType]*Resource, len(resourceDefs))
	for t, def := range resourceDefs {
		resources[t] = &Resource{
			Type:             t,
			BaseValue:        def.base,
			Abundance:        1.0,
			InitialAbundance: 1.0,
			Tier:             def.tier,
			Technology:       def.tech,
			Demand:           1,
			Supply:           1,
			Volatility:       0.05,
			Reserves:         def.reserves,
			InitialReserves:  def.reserves,
		}
	}
	return &Market{Resources: resources}
}

// Get returns the resource record for a type, or nil if the market does not
// carry it.
func (m *Market) Get(t ResourceType) *Resource {
	return m.Resources[t]
}

// Has reports whether the market carries the resource type.
func (m *Market) Has(t ResourceType) bool {
	_, ok := m.Resources[t]
	return ok
}

// Types returns the carried resource types in stable (declaration) order.
// Map iteration order must never leak into rng consumption.
func (m *Market) Types() []ResourceType {
	types := make([]ResourceType, 0, len(m.Resources))
	for t := range m.Resources {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Extract removes up to amount from a resource's reserves and returns what
// was actually extracted. Exhausted reserves extract zero — silently, per the
// exhaustion rule: the unit is disabled, the simulation keeps going.
// Abundance depletes proportionally to the extracted volume.
func (m *Market) Extract(t ResourceType, amount float64) float64 {
	r := m.Resources[t]
	if r == nil || amount <= 0 || r.Reserves <= 0 {
		return 0
	}

	actual := amount
	if actual > r.Reserves {
		actual = r.Reserves
	}

	r.Reserves -= actual
	r.Extracted += actual

	// Abundance tracks the remaining fraction of initial reserves.
	if r.InitialReserves > 0 {
		r.Abundance = r.InitialAbundance * (r.Reserves / r.InitialReserves)
		if r.Abundance < 0.01 {
			r.Abundance = 0.01
		}
	}

	return actual
}

// DiscoverReserves adds newly found reserves, the one event that can reverse
// depletion. Abundance recovers proportionally.
func (m *Market) DiscoverReserves(t ResourceType, amount float64) {
	r := m.Resources[t]
	if r == nil || amount <= 0 {
		return
	}
	r.Reserves += amount
	r.InitialReserves += amount
	if r.InitialReserves > 0 {
		r.Abundance = r.InitialAbundance * (r.Reserves / r.InitialReserves)
	}
}

// CurrentValue computes the current price:
//
//	base × (demand / max(supply, 0.1)) × (1 + 2·depletion) × (1 + shock) / abundance
//
// Pure in the stored state: the volatility shock is sampled once per
// UpdateGlobalSupplyDemand and held, so reloading a snapshot reproduces
// prices exactly. Returns 0 for a resource the market does not carry.
func (m *Market) CurrentValue(t ResourceType) float64 {
	r := m.Resources[t]
	if r == nil {
		return 0
	}

	supply := r.Supply
	if supply < 0.1 {
		supply = 0.1
	}
	abundance := r.Abundance
	if abundance < 0.01 {
		abundance = 0.01
	}

	price := r.BaseValue * (r.Demand / supply) * (1 + 2*r.Depletion()) * (1 + r.Shock) / abundance
	if price < 0.01 {
		price = 0.01
	}
	return price
}

// FundamentalValue is the price a resource "should" have absent speculation
// and the shock term — what bubble detection compares against.
func (m *Market) FundamentalValue(t ResourceType) float64 {
	r := m.Resources[t]
	if r == nil {
		return 0
	}
	abundance := r.Abundance
	if abundance < 0.01 {
		abundance = 0.01
	}
	return r.BaseValue * (1 + 2*r.Depletion()) / abundance
}

// UpdateGlobalSupplyDemand stores the turn's aggregate demand and supply,
// recomputes volatility from the imbalance, and samples a fresh shock for
// each resource. Resources absent from the maps keep their previous scalars.
func (m *Market) UpdateGlobalSupplyDemand(demand, supply map[ResourceType]float64, rng *entropy.Stream) {
	for _, t := range m.Types() {
		r := m.Resources[t]
		if d, ok := demand[t]; ok && d >= 0 {
			r.Demand = d
		}
		if s, ok := supply[t]; ok && s >= 0 {
			r.Supply = s
		}

		// Volatility grows with the supply/demand imbalance.
		denom := r.Demand + r.Supply
		if denom < 0.1 {
			denom = 0.1
		}
		imbalance := math.Abs(r.Demand-r.Supply) / denom
		r.Volatility = 0.02 + 0.3*imbalance
		if r.Volatility > 0.5 {
			r.Volatility = 0.5
		}

		if rng != nil {
			r.Shock = rng.Range(-r.Volatility, r.Volatility)
		} else {
			r.Shock = 0
		}
	}
}
