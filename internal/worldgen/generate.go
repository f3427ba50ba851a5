// Package worldgen builds the initial economic world: entity placement on a
// coordinate plane using layered simplex noise, resource deposit richness,
// starter production, and the trade network connecting it all. Fully
// deterministic from the seed.
package worldgen

import (
	"fmt"
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/econsim/internal/econ"
	"github.com/talgya/econsim/internal/entity"
	"github.com/talgya/econsim/internal/entropy"
	"github.com/talgya/econsim/internal/trade"
)

// GenConfig holds world generation parameters.
type GenConfig struct {
	Seed       int64
	Entities   int     // number of economic entities
	Spread     float64 // world size; route distances scale with it
	SeaFrac    float64 // fraction of long routes treated as sea lanes
	RouteLinks int     // nearest neighbors each entity connects to
}

// DefaultGenConfig returns a reasonable starting world.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Seed:       42,
		Entities:   8,
		Spread:     100,
		SeaFrac:    0.35,
		RouteLinks: 3,
	}
}

// World is everything Generate produces, ready for a Simulation.
type World struct {
	Market   *econ.Market
	Network  *trade.Network
	Entities []*entity.Entity
}

var entityNames = []string{
	"Aldria", "Belmont", "Corvane", "Drossal", "Esterholt", "Faywick",
	"Grenmar", "Hallowmere", "Ironvale", "Jorundel", "Kestrelgate", "Lorvenna",
	"Mistrand", "Northollow", "Ostermark", "Pellgrove",
}

// Generate creates a complete starting world from the config.
func Generate(cfg GenConfig) *World {
	if cfg.Entities < 2 {
		cfg.Entities = 2
	}
	if cfg.RouteLinks < 1 {
		cfg.RouteLinks = 1
	}

	rng := entropy.NewStream(cfg.Seed)
	richness := opensimplex.NewNormalized(cfg.Seed)
	develNoise := opensimplex.NewNormalized(cfg.Seed + 1)

	market := econ.NewMarket()
	network := trade.NewNetwork()

	// Scale resource abundance by a global richness field so each seed
	// yields a differently endowed world.
	for _, t := range market.Types() {
		r := market.Get(t)
		mul := 0.6 + 0.8*richness.Eval2(float64(t)*0.7, 0.5)
		r.Reserves *= mul
		r.InitialReserves = r.Reserves
	}

	// Place entities on a ring with noise jitter; distance drives routes.
	entities := make([]*entity.Entity, 0, cfg.Entities)
	for i := 0; i < cfg.Entities; i++ {
		angle := 2 * math.Pi * float64(i) / float64(cfg.Entities)
		radius := cfg.Spread * (0.5 + 0.5*rng.Float())
		x := math.Cos(angle) * radius
		y := math.Sin(angle) * radius

		name := entityNames[i%len(entityNames)]
		if i >= len(entityNames) {
			name = fmt.Sprintf("%s-%d", name, i/len(entityNames)+1)
		}
		id := fmt.Sprintf("ent-%02d", i+1)

		development := 0.2 + 0.7*develNoise.Eval2(x*0.01, y*0.01)
		population := 50000 + rng.Intn(950000)

		kind := entity.KindRegion
		if development > 0.6 {
			kind = entity.KindNation
		} else if population < 200000 {
			kind = entity.KindCity
		}

		e := entity.New(id, name, kind, population, development)
		e.X, e.Y = x, y
		seedProduction(e, market, rng)
		entities = append(entities, e)
		network.AddEntity(id)
	}

	buildRoutes(network, entities, cfg, rng)

	return &World{Market: market, Network: network, Entities: entities}
}

// seedProduction gives an entity extraction for its local endowment, and
// processing industry once developed enough.
func seedProduction(e *entity.Entity, market *econ.Market, rng *entropy.Stream) {
	// Everyone farms.
	e.AddFacility("farms", econ.Recipe{
		Name:         "grain_farming",
		Outputs:      map[econ.ResourceType]float64{econ.ResourceGrain: float64(e.Pop) * 0.005},
		Duration:     1,
		Workforce:    int(float64(e.Pop) * 0.2),
		LearningRate: 0.5,
	}, market)

	// One local extraction specialty.
	specialties := []econ.ResourceType{
		econ.ResourceTimber, econ.ResourceStone, econ.ResourceIronOre,
		econ.ResourceCoal, econ.ResourceGold, econ.ResourceSpices,
	}
	spec := specialties[rng.Intn(len(specialties))]
	e.AddFacility("extraction", econ.Recipe{
		Name:         fmt.Sprintf("%s_extraction", spec),
		Outputs:      map[econ.ResourceType]float64{spec: float64(e.Pop) * 0.002},
		Duration:     1,
		Workforce:    int(float64(e.Pop) * 0.1),
		LearningRate: 1,
	}, market)

	// Developed entities run a smelting-to-machinery chain.
	if e.Development > 0.5 {
		e.AddChain("industry", []econ.Step{
			{
				Name:       "smelting",
				Inputs:     map[econ.ResourceType]float64{econ.ResourceIronOre: 20, econ.ResourceCoal: 10},
				Outputs:    map[econ.ResourceType]float64{econ.ResourceMachinery: 8},
				Workforce:  int(float64(e.Pop) * 0.05),
				Efficiency: 0.85,
			},
			{
				Name:       "assembly",
				Inputs:     map[econ.ResourceType]float64{econ.ResourceMachinery: 4, econ.ResourceTimber: 10},
				Outputs:    map[econ.ResourceType]float64{econ.ResourceTextiles: 30},
				Workforce:  int(float64(e.Pop) * 0.04),
				Efficiency: 0.8,
			},
		}, market)
	}
}

// buildRoutes connects each entity to its nearest neighbors. Long hauls
// become sea lanes, short ones land roads; developed pairs also get a
// digital link.
func buildRoutes(network *trade.Network, entities []*entity.Entity, cfg GenConfig, rng *entropy.Stream) {
	type link struct {
		a, b int
		dist float64
	}

	connected := make(map[string]bool)
	key := func(a, b int) string {
		if a > b {
			a, b = b, a
		}
		return fmt.Sprintf("%d-%d", a, b)
	}

	for i := range entities {
		var links []link
		for j := range entities {
			if i == j {
				continue
			}
			dx := entities[i].X - entities[j].X
			dy := entities[i].Y - entities[j].Y
			links = append(links, link{a: i, b: j, dist: math.Hypot(dx, dy)})
		}
		// Selection sort is fine at this scale and keeps order stable.
		for k := 0; k < cfg.RouteLinks && k < len(links); k++ {
			min := k
			for l := k + 1; l < len(links); l++ {
				if links[l].dist < links[min].dist {
					min = l
				}
			}
			links[k], links[min] = links[min], links[k]

			lk := links[k]
			if connected[key(lk.a, lk.b)] {
				continue
			}
			connected[key(lk.a, lk.b)] = true

			a, b := entities[lk.a], entities[lk.b]
			rt := trade.RouteLand
			risks := map[string]float64{"banditry": 0.05, "weather": 0.08}
			if lk.dist > cfg.Spread*cfg.SeaFrac*2 {
				rt = trade.RouteSea
				risks = map[string]float64{"piracy": 0.06, "storm": 0.10}
			}

			network.AddRoute(&trade.Route{
				From:       a.EntityID,
				To:         b.EntityID,
				Type:       rt,
				Capacity:   500 + rng.Float()*1500,
				Efficiency: 0.8 + rng.Float()*0.2,
				Distance:   lk.dist,
				Risks:      risks,
				Active:     true,
			})

			if a.Development > 0.55 && b.Development > 0.55 {
				network.AddRoute(&trade.Route{
					From:       a.EntityID,
					To:         b.EntityID,
					Type:       trade.RouteDigital,
					Capacity:   5000,
					Efficiency: 0.95,
					Distance:   lk.dist,
					Risks:      map[string]float64{"cyberattack": 0.03},
					Active:     true,
				})
			}
		}
	}
}
