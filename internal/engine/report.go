// Turn report — the per-turn output contract for surrounding systems
// (reporting, persistence, demographics). The core computes it; it never
// reads it back.
package engine

import (
	"github.com/talgya/econsim/internal/econ"
	"github.com/talgya/econsim/internal/wealth"
)

// EntityReport is one entity's macro outcome for a turn.
type EntityReport struct {
	Entity         string         `json:"entity"`
	GDP            float64        `json:"gdp"`
	GDPGrowth      float64        `json:"gdp_growth"`
	EmploymentRate float64        `json:"employment_rate"`
	TaxRevenue     float64        `json:"tax_revenue"`
	TradeBalance   float64        `json:"trade_balance"`
	Inequality     wealth.Metrics `json:"inequality"`
}

// CrisisEvent is a crisis lifecycle transition visible in the report.
type CrisisEvent struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Severity string  `json:"severity"`
	Origin   string  `json:"origin"`
	Affected int     `json:"affected"`
	Progress float64 `json:"progress"`
}

// TradeRecord is one executed inter-entity shipment.
type TradeRecord struct {
	Resource  econ.ResourceType `json:"resource"`
	From      string            `json:"from"`
	To        string            `json:"to"`
	Sent      float64           `json:"sent"`
	Delivered float64           `json:"delivered"`
	Value     float64           `json:"value"`
	Cost      float64           `json:"cost"`
}

// BottleneckRecord ties a production bottleneck to its entity and chain.
type BottleneckRecord struct {
	Entity     string          `json:"entity"`
	Chain      string          `json:"chain"`
	Bottleneck econ.Bottleneck `json:"bottleneck"`
}

// TurnReport is everything one advanced turn produced for the outside world.
type TurnReport struct {
	Turn              uint64                         `json:"turn"`
	Entities          []EntityReport                 `json:"entities"`
	CrisesTriggered   []CrisisEvent                  `json:"crises_triggered"`
	CrisesResolved    []CrisisEvent                  `json:"crises_resolved"`
	Bubbles           map[econ.ResourceType]float64  `json:"bubbles"`
	BubblePops        []econ.PopResult               `json:"bubble_pops"`
	Trades            []TradeRecord                  `json:"trades"`
	Bottlenecks       []BottleneckRecord             `json:"bottlenecks"`
	NetworkResilience float64                        `json:"network_resilience"`
	Prices            map[econ.ResourceType]float64  `json:"prices"`
}

// ByEntity returns the report row for an entity id, or nil.
func (r *TurnReport) ByEntity(id string) *EntityReport {
	for i := range r.Entities {
		if r.Entities[i].Entity == id {
			return &r.Entities[i]
		}
	}
	return nil
}
