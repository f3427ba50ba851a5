// Turn pipeline: market update → production → trade routing → crisis
// lifecycle → wealth update. Single-threaded and all-or-nothing: one turn
// runs to completion before the next begins.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/econsim/internal/crisis"
	"github.com/talgya/econsim/internal/econ"
	"github.com/talgya/econsim/internal/entity"
	"github.com/talgya/econsim/internal/wealth"
)

// AdvanceTurn computes one full simulation turn and returns its report.
func (s *Simulation) AdvanceTurn() *TurnReport {
	s.Turn++
	report := &TurnReport{
		Turn:    s.Turn,
		Bubbles: make(map[econ.ResourceType]float64),
		Prices:  make(map[econ.ResourceType]float64),
	}

	s.marketPhase(report)
	s.productionPhase(report)
	s.tradePhase(report)
	s.finalizeMacro(report)
	s.crisisPhase(report)
	s.wealthPhase(report)

	report.NetworkResilience = s.Network.NetworkResilience()
	s.lastReport = report

	slog.Info("turn report",
		"turn", s.Turn,
		"entities", len(s.Entities),
		"trades", len(report.Trades),
		"bubbles", len(report.Bubbles),
		"crises_active", len(s.Crises.Active),
		"crises_triggered", len(report.CrisesTriggered),
		"crises_resolved", len(report.CrisesResolved),
		"resilience", fmt.Sprintf("%.3f", report.NetworkResilience),
	)

	return report
}

// marketPhase aggregates global supply and demand, reprices every resource,
// refreshes the market mood, and detects (and sometimes pops) bubbles.
// Per-entity contributions are summed into maps and merged once — an
// order-independent reduction.
func (s *Simulation) marketPhase(report *TurnReport) {
	demand := make(map[econ.ResourceType]float64)
	supply := make(map[econ.ResourceType]float64)

	for _, t := range s.Market.Types() {
		r := s.Market.Get(t)
		for _, e := range s.Entities {
			demand[t] += s.desiredStock(e, r)
			supply[t] += e.Stockpile[t]
		}
		// A thin baseline on both sides keeps ratios finite in an empty world.
		demand[t] += 1
		supply[t] += 1
	}

	s.Market.UpdateGlobalSupplyDemand(demand, supply, s.Rng)

	prices := make(map[econ.ResourceType]float64)
	fundamentals := make(map[econ.ResourceType]float64)
	for _, t := range s.Market.Types() {
		p := s.Market.CurrentValue(t)
		prices[t] = p
		fundamentals[t] = s.Market.FundamentalValue(t)
		s.Dynamics.RecordPrice(t, p)
		report.Prices[t] = p
	}

	avgGrowth, avgInflation := 0.0, 0.0
	if len(s.Entities) > 0 {
		for _, e := range s.Entities {
			avgGrowth += e.Growth
			avgInflation += e.InflationRate
		}
		avgGrowth /= float64(len(s.Entities))
		avgInflation /= float64(len(s.Entities))
	}
	s.Dynamics.UpdatePsychology(avgGrowth, avgInflation, s.recentEventText(20))

	bubbles := s.Dynamics.DetectBubbles(prices, fundamentals)
	for t, size := range bubbles {
		report.Bubbles[t] = size
	}

	// Pop check, largest bubbles under the most pressure. Stable order.
	for _, t := range s.Market.Types() {
		size, ok := bubbles[t]
		if !ok {
			continue
		}
		if s.Rng.Chance(size * 0.3 * s.Dynamics.SpeculationLevel) {
			pop := s.Dynamics.SimulateBubblePop(s.Market, t, size, s.Rng)
			report.BubblePops = append(report.BubblePops, pop)
			s.record("market", fmt.Sprintf("speculative bubble in %s collapsed (%.0f%% price drop)", t, pop.PriceDrop*100))
		}
	}
}

// productionPhase runs every entity's facilities and chains against its own
// stockpile. One entity's anomalous state never aborts the turn for others.
func (s *Simulation) productionPhase(report *TurnReport) {
	for _, e := range s.Entities {
		labor := e.LaborForce()
		employed := 0
		prodValue := 0.0

		for _, f := range e.Facilities {
			if f.Recipe.MinDevelopment > e.Development {
				continue
			}

			if f.Recipe.IsExtraction() {
				outputs := f.Produce(e.Stockpile)
				for t, want := range outputs {
					got := s.Market.Extract(t, want*s.Env.AbundanceMultiplier)
					e.Stockpile[t] += got
					prodValue += got * s.Market.CurrentValue(t)
					if got == 0 && want > 0 {
						s.record("production", fmt.Sprintf("%s: %s reserves exhausted at %s", e.Name, t, f.Name))
					}
				}
			} else {
				outputs := f.Produce(e.Stockpile)
				for t, got := range outputs {
					e.Stockpile[t] += got
					prodValue += got * s.Market.CurrentValue(t)
				}
			}

			if f.Active {
				employed += int(float64(f.Recipe.Workforce) * f.WorkforceFill)
			}
			wasActive := f.Active
			f.DecayCondition()
			if wasActive && !f.Active {
				s.record("production", fmt.Sprintf("%s: facility %s deactivated (condition below floor)", e.Name, f.Name))
			}
		}

		for _, c := range e.Chains {
			produced := c.SimulateProduction(e.Stockpile, labor-employed)
			for t, got := range produced {
				prodValue += got * s.Market.CurrentValue(t)
			}

			blocked := make(map[string]bool, len(c.Bottlenecks))
			for _, b := range c.Bottlenecks {
				blocked[b.Step] = true
				report.Bottlenecks = append(report.Bottlenecks, BottleneckRecord{
					Entity:     e.EntityID,
					Chain:      c.Name,
					Bottleneck: b,
				})
			}
			for _, st := range c.Steps {
				if !blocked[st.Name] {
					employed += st.Workforce
				}
			}
		}

		rate := 0.0
		if labor > 0 {
			rate = float64(employed) / float64(labor)
			if rate > 1 {
				rate = 1
			}
		}
		e.UnemploymentRate = 0.02 + (1-rate)*0.3

		row := EntityReport{Entity: e.EntityID, EmploymentRate: rate}
		// Production value is folded into GDP in finalizeMacro via the row.
		row.GDP = prodValue
		report.Entities = append(report.Entities, row)
	}
}

// tradePhase routes surplus toward deficit through the network, applying
// tariffs, transport cost, and per-route risk. Insufficient capacity
// degrades to a partial shipment, never an error.
func (s *Simulation) tradePhase(report *TurnReport) {
	for _, t := range s.Market.Types() {
		r := s.Market.Get(t)
		price := s.Market.CurrentValue(t)

		type position struct {
			e      *entity.Entity
			need   float64
			amount float64 // surplus (exporters) or deficit (importers)
		}
		var exporters, importers []position

		for _, e := range s.Entities {
			need := s.desiredStock(e, r)
			have := e.Stockpile[t]
			if have > need*1.2 {
				exporters = append(exporters, position{e: e, need: need, amount: have - need*1.2})
			} else if have < need {
				importers = append(importers, position{e: e, need: need, amount: need - have})
			}
		}

		for i := range importers {
			imp := &importers[i]
			for j := range exporters {
				exp := &exporters[j]
				if imp.amount <= 0 {
					break
				}
				if exp.amount <= 0 {
					continue
				}

				plan, err := s.Network.FindOptimalRoute(exp.e.EntityID, imp.e.EntityID)
				if err != nil {
					continue
				}

				volume := imp.amount
				if volume > exp.amount {
					volume = exp.amount
				}

				// Walk the path; each leg caps and erodes the cargo.
				sent := volume
				remaining := volume
				for _, route := range plan.Routes {
					sh := route.SimulateOperation(t, remaining, s.Turn, s.Rng)
					remaining = sh.Delivered
					if sh.Moved < sent {
						sent = sh.Moved
					}
					if remaining <= 0 {
						break
					}
				}
				if sent <= 0 {
					continue
				}
				delivered := remaining

				// Psychology-adjusted execution price: buy pressure from the
				// importer's shortfall, sell pressure from the exporter's glut.
				buyPressure := imp.amount / (imp.need + 1)
				sellPressure := exp.amount / (exp.need + 1)
				execPrice := price * (1 + s.Dynamics.PriceImpact(buyPressure, sellPressure))

				value := delivered * execPrice
				cost := plan.TransportCost(r.Tier, sent)
				tariff := value * imp.e.TaxRate

				exp.e.Stockpile[t] -= sent
				if exp.e.Stockpile[t] < 0 {
					exp.e.Stockpile[t] = 0
				}
				imp.e.Stockpile[t] += delivered
				exp.amount -= sent
				imp.amount -= delivered

				expRow := report.ByEntity(exp.e.EntityID)
				impRow := report.ByEntity(imp.e.EntityID)
				expRow.TradeBalance += value
				impRow.TradeBalance -= value + cost
				impRow.TaxRevenue += tariff

				report.Trades = append(report.Trades, TradeRecord{
					Resource:  t,
					From:      exp.e.EntityID,
					To:        imp.e.EntityID,
					Sent:      sent,
					Delivered: delivered,
					Value:     value,
					Cost:      cost,
				})
			}
		}
	}
}

// finalizeMacro folds production and trade into each entity's GDP, growth,
// inflation, and tax take for the turn.
func (s *Simulation) finalizeMacro(report *TurnReport) {
	for i := range report.Entities {
		row := &report.Entities[i]
		e := s.EntityIndex[row.Entity]

		services := float64(e.Pop) * 0.1 * (0.5 + e.Development)
		newGDP := row.GDP*2 + row.TradeBalance + services
		if newGDP < 1 {
			newGDP = 1
		}

		if e.GDPValue > 0 {
			e.Growth = (newGDP - e.GDPValue) / e.GDPValue
			if e.Growth > 0.5 {
				e.Growth = 0.5
			}
			if e.Growth < -0.5 {
				e.Growth = -0.5
			}
		}
		e.GDPValue = newGDP

		// Inflation drifts with the market's aggregate price trend.
		trend := 0.0
		types := s.Market.Types()
		for _, t := range types {
			trend += s.Dynamics.PriceTrend(t, 1)
		}
		if len(types) > 0 {
			trend /= float64(len(types))
		}
		e.InflationRate = e.InflationRate*0.7 + (0.02+trend)*0.3
		if e.InflationRate < -0.05 {
			e.InflationRate = -0.05
		}
		if e.InflationRate > 1 {
			e.InflationRate = 1
		}

		// Base fiscal take on top of tariffs.
		row.TaxRevenue += e.GDPValue * e.TaxRate * 0.1
		row.GDP = e.GDPValue
		row.GDPGrowth = e.Growth
	}
}

// crisisPhase runs the crisis state machine: assess new risks, apply active
// effects, propagate over the network, accrue resolution.
func (s *Simulation) crisisPhase(report *TurnReport) {
	bubbleExposure := func(id string) float64 {
		e := s.EntityIndex[id]
		if e == nil {
			return 0
		}
		total := 0.0
		for _, size := range s.Dynamics.ActiveBubbles {
			total += size
		}
		return total * e.Openness
	}

	triggered := s.Crises.AssessRisks(s.entityViews(), bubbleExposure, s.Turn, s.Rng)
	for _, c := range triggered {
		report.CrisesTriggered = append(report.CrisesTriggered, crisisEvent(c))
		s.record("crisis", fmt.Sprintf("%s crisis erupted in %s (%s)", c.Type, c.Origin, c.Severity))
	}

	allIDs := make([]string, len(s.Entities))
	for i, e := range s.Entities {
		allIDs[i] = e.EntityID
	}

	for _, c := range s.Crises.Active {
		// Effects accumulate additively across simultaneous crises.
		eff := c.Effects()
		for _, id := range c.AffectedIDs() {
			e := s.EntityIndex[id]
			if e == nil {
				continue
			}
			e.Growth += eff.GDPGrowthDelta
			e.InflationRate += eff.InflationDelta
			e.UnemploymentRate += eff.UnemploymentDelta
			if e.UnemploymentRate > 1 {
				e.UnemploymentRate = 1
			}
			e.Openness += eff.TradeDelta * 0.05
			if e.Openness < 0.05 {
				e.Openness = 0.05
			}
			if row := report.ByEntity(id); row != nil {
				row.GDPGrowth = e.Growth
			}
		}
		s.Dynamics.Confidence += eff.ConfidenceDelta
		if s.Dynamics.Confidence < 0.05 {
			s.Dynamics.Confidence = 0.05
		}

		s.Crises.SimulateCrisisPropagation(c, allIDs, s.Network.HasActiveRouteTo, s.Rng)

		// Resolution driven by the affected entities' policy capacity and
		// average health.
		policy, health, n := 0.0, 0.0, 0
		for _, id := range c.AffectedIDs() {
			if e := s.EntityIndex[id]; e != nil {
				policy += e.PolicyEffectiveness
				health += entity.EconomicHealth(e)
				n++
			}
		}
		if n > 0 {
			policy /= float64(n)
			health /= float64(n)
		}
		s.Crises.AdvanceResolution(c, policy, health)
	}

	for _, c := range s.Crises.Sweep(s.Turn) {
		report.CrisesResolved = append(report.CrisesResolved, crisisEvent(c))
		s.record("crisis", fmt.Sprintf("%s crisis in %s resolved after %d turns", c.Type, c.Origin, c.TurnsActive))
	}
}

// wealthPhase updates every entity's distribution from the turn's outcome.
func (s *Simulation) wealthPhase(report *TurnReport) {
	for _, e := range s.Entities {
		totalWealth := e.GDPValue * 3
		e.Wealth.UpdateDistribution(totalWealth, wealth.Conditions{
			GDPGrowth:    e.Growth,
			Inflation:    e.InflationRate,
			Unemployment: e.UnemploymentRate,
		})
		e.Wealth.SimulateWealthMobility(s.Rng)

		if row := report.ByEntity(e.EntityID); row != nil {
			row.Inequality = e.Wealth.CalculateInequalityMetrics()
		}
	}
}

func crisisEvent(c *crisis.Crisis) CrisisEvent {
	return CrisisEvent{
		ID:       c.ID,
		Type:     string(c.Type),
		Severity: c.Severity.String(),
		Origin:   c.Origin,
		Affected: len(c.Affected),
		Progress: c.ResolutionProgress,
	}
}
