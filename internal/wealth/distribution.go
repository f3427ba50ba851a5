// Package wealth maintains the tiered population/wealth breakdown of an
// economic entity, derives inequality metrics, and simulates tier-to-tier
// mobility.
package wealth

import (
	"sort"

	"github.com/talgya/econsim/internal/entropy"
)

// Tier is one of the seven ordered wealth strata.
type Tier uint8

const (
	TierDestitute Tier = iota
	TierPoor
	TierWorking
	TierMiddle
	TierUpperMiddle
	TierRich
	TierUltraRich

	TierCount = 7
)

var tierNames = [TierCount]string{
	"destitute", "poor", "working", "middle", "upper_middle", "rich", "ultra_rich",
}

func (t Tier) String() string {
	if int(t) < TierCount {
		return tierNames[t]
	}
	return "unknown"
}

// Segment is one wealth tier's share of an entity's population and wealth.
type Segment struct {
	Tier                  Tier    `json:"tier"`
	PopulationShare       float64 `json:"population_share"`
	WealthShare           float64 `json:"wealth_share"`
	AverageIncome         float64 `json:"average_income"`
	Mobility              float64 `json:"economic_mobility"` // 0–1
	ConsumptionPropensity float64 `json:"consumption_propensity"`
}

// Distribution is the full seven-tier breakdown for one entity. Shares sum
// to 1 on both axes after every update.
type Distribution struct {
	Segments    [TierCount]Segment `json:"segments"`
	TotalWealth float64            `json:"total_wealth"`
}

// defaultSegments seeds a plausible stratification for a new entity.
var defaultSegments = [TierCount]Segment{
	{Tier: TierDestitute, PopulationShare: 0.08, WealthShare: 0.005, Mobility: 0.10, ConsumptionPropensity: 0.98},
	{Tier: TierPoor, PopulationShare: 0.20, WealthShare: 0.035, Mobility: 0.20, ConsumptionPropensity: 0.95},
	{Tier: TierWorking, PopulationShare: 0.32, WealthShare: 0.12, Mobility: 0.35, ConsumptionPropensity: 0.88},
	{Tier: TierMiddle, PopulationShare: 0.24, WealthShare: 0.20, Mobility: 0.50, ConsumptionPropensity: 0.78},
	{Tier: TierUpperMiddle, PopulationShare: 0.11, WealthShare: 0.21, Mobility: 0.65, ConsumptionPropensity: 0.65},
	{Tier: TierRich, PopulationShare: 0.04, WealthShare: 0.22, Mobility: 0.80, ConsumptionPropensity: 0.45},
	{Tier: TierUltraRich, PopulationShare: 0.01, WealthShare: 0.21, Mobility: 0.90, ConsumptionPropensity: 0.25},
}

// NewDistribution returns the default stratification.
func NewDistribution() *Distribution {
	d := &Distribution{Segments: defaultSegments}
	d.Normalize()
	return d
}

// Conditions are the per-turn macro outcomes a distribution update reacts to.
type Conditions struct {
	GDPGrowth    float64
	Inflation    float64
	Unemployment float64
}

// UpdateDistribution adjusts every tier's wealth share by growth benefit
// minus inflation and unemployment impact. Growth disproportionately
// benefits high-mobility (wealthier) tiers; inflation and unemployment
// disproportionately harm low-mobility tiers. Shares renormalize afterward.
func (d *Distribution) UpdateDistribution(totalWealth float64, c Conditions) {
	d.TotalWealth = totalWealth

	for i := range d.Segments {
		seg := &d.Segments[i]

		growthBenefit := c.GDPGrowth * (0.5 + seg.Mobility)
		inflationImpact := c.Inflation * (1.2 - seg.Mobility) * 0.5
		unemploymentImpact := c.Unemployment * (1.2 - seg.Mobility) * 0.3

		delta := growthBenefit - inflationImpact - unemploymentImpact
		seg.WealthShare *= 1 + delta
		if seg.WealthShare < 0.001 {
			seg.WealthShare = 0.001
		}
	}

	d.Normalize()

	// Average income follows the tier's wealth per capita.
	for i := range d.Segments {
		seg := &d.Segments[i]
		if seg.PopulationShare > 0 {
			seg.AverageIncome = totalWealth * seg.WealthShare / (seg.PopulationShare * 100)
		}
	}
}

// Normalize rescales both share axes to sum to exactly 1.
func (d *Distribution) Normalize() {
	popSum, wealthSum := 0.0, 0.0
	for i := range d.Segments {
		popSum += d.Segments[i].PopulationShare
		wealthSum += d.Segments[i].WealthShare
	}
	if popSum > 0 {
		for i := range d.Segments {
			d.Segments[i].PopulationShare /= popSum
		}
	}
	if wealthSum > 0 {
		for i := range d.Segments {
			d.Segments[i].WealthShare /= wealthSum
		}
	}
}

// Metrics are the derived inequality measures.
type Metrics struct {
	Gini        float64 `json:"gini"`
	Palma       float64 `json:"palma"`
	Top10Share  float64 `json:"top10_share"`
	BottomShare float64 `json:"bottom_share"`
}

// CalculateInequalityMetrics derives the Gini coefficient from the Lorenz
// curve ordering of tiers by wealth per capita, and the Palma ratio as the
// rich+ultra-rich wealth share over the destitute+poor share.
func (d *Distribution) CalculateInequalityMetrics() Metrics {
	// Order tiers by wealth per capita for the Lorenz curve.
	order := make([]int, TierCount)
	for i := range order {
		order[i] = i
	}
	perCapita := func(i int) float64 {
		seg := d.Segments[i]
		if seg.PopulationShare <= 0 {
			return 0
		}
		return seg.WealthShare / seg.PopulationShare
	}
	sort.SliceStable(order, func(a, b int) bool { return perCapita(order[a]) < perCapita(order[b]) })

	// Gini via the trapezoid rule under the Lorenz curve:
	// G = 1 − Σ popShare_i × (cumWealth_i + cumWealth_{i-1}).
	gini := 1.0
	cum := 0.0
	for _, i := range order {
		seg := d.Segments[i]
		next := cum + seg.WealthShare
		gini -= seg.PopulationShare * (cum + next)
		cum = next
	}
	if gini < 0 {
		gini = 0
	}

	richShare := d.Segments[TierRich].WealthShare + d.Segments[TierUltraRich].WealthShare
	poorShare := d.Segments[TierDestitute].WealthShare + d.Segments[TierPoor].WealthShare
	palma := 0.0
	if poorShare > 0 {
		palma = richShare / poorShare
	}

	return Metrics{
		Gini:        gini,
		Palma:       palma,
		Top10Share:  richShare,
		BottomShare: poorShare,
	}
}

// mobilityFraction of a tier's population moves per realized mobility event.
const mobilityFraction = 0.05

// SimulateWealthMobility moves a mobility-proportional fraction of each
// tier's population, with a matching wealth fraction, to the adjacent tier.
// Up-mobility fires with probability mobility×0.1, down-mobility with
// (1−mobility)×0.1. Transfers conserve both share sums.
func (d *Distribution) SimulateWealthMobility(rng *entropy.Stream) {
	type move struct {
		from, to   int
		pop, share float64
	}
	var moves []move

	for i := range d.Segments {
		seg := d.Segments[i]
		frac := seg.Mobility * mobilityFraction

		if i < TierCount-1 && rng.Chance(seg.Mobility*0.1) {
			pop := seg.PopulationShare * frac
			moves = append(moves, move{
				from: i, to: i + 1,
				pop:   pop,
				share: seg.WealthShare * frac,
			})
		}
		if i > 0 && rng.Chance((1-seg.Mobility)*0.1) {
			pop := seg.PopulationShare * frac
			moves = append(moves, move{
				from: i, to: i - 1,
				pop:   pop,
				share: seg.WealthShare * frac,
			})
		}
	}

	for _, mv := range moves {
		d.Segments[mv.from].PopulationShare -= mv.pop
		d.Segments[mv.to].PopulationShare += mv.pop
		d.Segments[mv.from].WealthShare -= mv.share
		d.Segments[mv.to].WealthShare += mv.share
	}

	d.Normalize()
}
