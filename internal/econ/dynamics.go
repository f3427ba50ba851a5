// Market dynamics — the longitudinal layer over the resource market.
// Tracks price history, detects speculative bubbles, and models collective
// market psychology that feeds back into trade price impact.
package econ

import (
	"sort"
	"strings"

	"github.com/talgya/econsim/internal/entropy"
)

const (
	// priceHistoryLen bounds the per-resource price ring.
	priceHistoryLen = 120

	// bubbleThreshold is the price/fundamental ratio above which a
	// resource counts as a bubble.
	bubbleThreshold = 1.5
)

// Dynamics carries the market's memory and mood.
type Dynamics struct {
	History map[ResourceType][]float64 `json:"history"`

	// Market psychology, all in [0.05, 0.95].
	Confidence       float64 `json:"confidence"`
	RiskAversion     float64 `json:"risk_aversion"`
	SpeculationLevel float64 `json:"speculation_level"`

	// ActiveBubbles maps resource → bubble size from the last detection
	// pass. Pops discount the other entries (contagion).
	ActiveBubbles map[ResourceType]float64 `json:"active_bubbles"`
}

// NewDynamics creates a dynamics layer with a neutral mood.
func NewDynamics() *Dynamics {
	return &Dynamics{
		History:          make(map[ResourceType][]float64),
		Confidence:       0.6,
		RiskAversion:     0.4,
		SpeculationLevel: 0.2,
		ActiveBubbles:    make(map[ResourceType]float64),
	}
}

// RecordPrice appends a price observation to the resource's history ring.
func (d *Dynamics) RecordPrice(t ResourceType, price float64) {
	h := append(d.History[t], price)
	if len(h) > priceHistoryLen {
		h = h[len(h)-priceHistoryLen:]
	}
	d.History[t] = h
}

// PriceTrend returns the relative price change over the last n observations,
// or 0 when history is too short.
func (d *Dynamics) PriceTrend(t ResourceType, n int) float64 {
	h := d.History[t]
	if len(h) < 2 || n < 1 {
		return 0
	}
	if n >= len(h) {
		n = len(h) - 1
	}
	old := h[len(h)-1-n]
	if old <= 0 {
		return 0
	}
	return (h[len(h)-1] - old) / old
}

// DetectBubbles flags every resource priced above bubbleThreshold times its
// fundamental value. Bubble size is normalized to [0, 1]: a price at 3× the
// fundamental is a full-size bubble. The result replaces ActiveBubbles.
func (d *Dynamics) DetectBubbles(current, fundamentals map[ResourceType]float64) map[ResourceType]float64 {
	bubbles := make(map[ResourceType]float64)
	for t, price := range current {
		fund := fundamentals[t]
		if fund <= 0 {
			continue
		}
		ratio := price / fund
		if ratio <= bubbleThreshold {
			continue
		}
		size := (ratio - bubbleThreshold) / bubbleThreshold
		if size > 1 {
			size = 1
		}
		bubbles[t] = size
	}
	d.ActiveBubbles = bubbles
	return bubbles
}

// PopResult reports what a bubble pop did to the market.
type PopResult struct {
	Resource  ResourceType `json:"resource"`
	Severity  float64      `json:"severity"`   // size × sampled multiplier
	PriceDrop float64      `json:"price_drop"` // fraction of price wiped out
}

// SimulateBubblePop bursts a bubble of the given size. Severity is the size
// scaled by a sampled 0.5–1.5 multiplier; the price drops by 80% of severity,
// other active bubbles take a 30%-of-severity contagion discount, and market
// confidence degrades multiplicatively by (1 − severity×0.5).
func (d *Dynamics) SimulateBubblePop(m *Market, t ResourceType, size float64, rng *entropy.Stream) PopResult {
	if size < 0 {
		size = 0
	}
	if size > 1 {
		size = 1
	}

	mult := 1.0
	if rng != nil {
		mult = rng.Range(0.5, 1.5)
	}
	severity := size * mult
	drop := 0.8 * severity
	if drop > 0.95 {
		drop = 0.95
	}

	// The drop lands on demand (buyers flee) and the shock term, so the
	// market's own price formula reflects the crash.
	if r := m.Get(t); r != nil {
		r.Demand *= 1 - drop
		r.Shock -= drop
		if r.Shock < -0.9 {
			r.Shock = -0.9
		}
	}
	delete(d.ActiveBubbles, t)

	// Contagion: other live bubbles deflate by 30% of this severity.
	discount := 0.3 * severity
	for _, other := range d.bubbleTypes() {
		if r := m.Get(other); r != nil {
			r.Demand *= 1 - discount
		}
		d.ActiveBubbles[other] *= 1 - discount
	}

	d.Confidence *= 1 - severity*0.5
	d.clampMood()

	return PopResult{Resource: t, Severity: severity, PriceDrop: drop}
}

// bubbleTypes returns the active bubble resources in stable order.
func (d *Dynamics) bubbleTypes() []ResourceType {
	types := make([]ResourceType, 0, len(d.ActiveBubbles))
	for t := range d.ActiveBubbles {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Mood keywords scanned from recent narrative events.
var (
	bearishWords = []string{"crisis", "war", "famine", "collapse", "default", "plague", "shortage"}
	bullishWords = []string{"discovery", "boom", "harvest", "treaty", "expansion", "breakthrough"}
)

// UpdatePsychology moves the market mood from realized GDP growth, inflation,
// and a keyword scan of recent narrative events.
func (d *Dynamics) UpdatePsychology(gdpGrowth, inflation float64, events []string) {
	d.Confidence += gdpGrowth * 2
	d.Confidence -= (inflation - 0.02) * 1.5
	d.RiskAversion -= gdpGrowth * 1.5
	d.RiskAversion += (inflation - 0.02) * 2

	for _, ev := range events {
		lower := strings.ToLower(ev)
		for _, w := range bearishWords {
			if strings.Contains(lower, w) {
				d.Confidence -= 0.02
				d.RiskAversion += 0.02
			}
		}
		for _, w := range bullishWords {
			if strings.Contains(lower, w) {
				d.Confidence += 0.02
				d.RiskAversion -= 0.01
			}
		}
	}

	// Speculation follows confidence with a lag and stays low while the
	// market is risk-averse.
	target := d.Confidence * (1 - d.RiskAversion)
	d.SpeculationLevel += (target - d.SpeculationLevel) * 0.3

	d.clampMood()
}

// PriceImpact converts buy/sell pressure into a fractional price move. Buy
// pressure is amplified by confidence, sell pressure by risk aversion.
func (d *Dynamics) PriceImpact(buyPressure, sellPressure float64) float64 {
	net := buyPressure*(0.5+d.Confidence) - sellPressure*(0.5+d.RiskAversion)
	impact := net * 0.1
	if impact > 0.3 {
		impact = 0.3
	}
	if impact < -0.3 {
		impact = -0.3
	}
	return impact
}

func (d *Dynamics) clampMood() {
	clamp := func(v float64) float64 {
		if v < 0.05 {
			return 0.05
		}
		if v > 0.95 {
			return 0.95
		}
		return v
	}
	d.Confidence = clamp(d.Confidence)
	d.RiskAversion = clamp(d.RiskAversion)
	d.SpeculationLevel = clamp(d.SpeculationLevel)
}
