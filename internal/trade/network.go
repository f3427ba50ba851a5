// Trade network graph — adjacency-indexed routing with cached shortest
// paths, structural resilience scoring, and critical-node analysis.
package trade

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/talgya/econsim/internal/econ"
)

var (
	// ErrUnknownEntity is returned when a route references an entity id
	// that was never registered. Fatal at construction time.
	ErrUnknownEntity = errors.New("trade: unknown entity")

	// ErrNoRoute is returned when no path connects origin to destination,
	// or origin equals destination.
	ErrNoRoute = errors.New("trade: no route")
)

// Network is an undirected graph of entity identifiers connected by routes.
type Network struct {
	entities map[string]struct{}
	adjacent map[string][]*Route
	routes   []*Route

	// Shortest-path cache, invalidated whenever edges change.
	pathCache map[string]*RoutePlan
}

// NewNetwork creates an empty trade network.
func NewNetwork() *Network {
	return &Network{
		entities:  make(map[string]struct{}),
		adjacent:  make(map[string][]*Route),
		pathCache: make(map[string]*RoutePlan),
	}
}

// AddEntity registers an entity identifier as a graph node.
func (n *Network) AddEntity(id string) {
	n.entities[id] = struct{}{}
}

// HasEntity reports whether the id is a registered node.
func (n *Network) HasEntity(id string) bool {
	_, ok := n.entities[id]
	return ok
}

// Entities returns all node ids in sorted order.
func (n *Network) Entities() []string {
	ids := make([]string, 0, len(n.entities))
	for id := range n.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Routes returns every route edge.
func (n *Network) Routes() []*Route {
	return n.routes
}

// AddRoute attaches a route between two registered entities. A route naming
// an unknown entity is rejected — that is a data-model bug.
func (n *Network) AddRoute(r *Route) error {
	if !n.HasEntity(r.From) {
		return fmt.Errorf("route %s→%s: %q: %w", r.From, r.To, r.From, ErrUnknownEntity)
	}
	if !n.HasEntity(r.To) {
		return fmt.Errorf("route %s→%s: %q: %w", r.From, r.To, r.To, ErrUnknownEntity)
	}
	if r.From == r.To {
		return fmt.Errorf("route %s→%s: self-loop: %w", r.From, r.To, ErrNoRoute)
	}
	n.routes = append(n.routes, r)
	n.adjacent[r.From] = append(n.adjacent[r.From], r)
	n.adjacent[r.To] = append(n.adjacent[r.To], r)
	n.invalidateCache()
	return nil
}

// SetRouteActive toggles a route and invalidates cached paths.
func (n *Network) SetRouteActive(r *Route, active bool) {
	if r.Active != active {
		r.Active = active
		n.invalidateCache()
	}
}

func (n *Network) invalidateCache() {
	n.pathCache = make(map[string]*RoutePlan)
}

// RoutesFrom returns the routes touching an entity.
func (n *Network) RoutesFrom(id string) []*Route {
	return n.adjacent[id]
}

// HasActiveRouteTo reports whether the candidate has an active route to any
// entity in the given set. This is the explicit definition of "trade
// partner" used by crisis contagion.
func (n *Network) HasActiveRouteTo(candidate string, set map[string]bool) bool {
	for _, r := range n.adjacent[candidate] {
		if r.Active && set[r.Other(candidate)] {
			return true
		}
	}
	return false
}

// RoutePlan is a computed least-cost path between two entities.
type RoutePlan struct {
	Path     []string `json:"path"` // node ids, origin first
	Routes   []*Route `json:"-"`
	Distance float64  `json:"distance"`
	Capacity float64  `json:"capacity"` // min effective capacity along the path
}

// TransportCost returns the summed per-unit cost of the plan for a cargo
// tier, times the amount moved.
func (p *RoutePlan) TransportCost(tier econ.Tier, amount float64) float64 {
	cost := 0.0
	for _, r := range p.Routes {
		cost += r.UnitCost(tier)
	}
	return cost * amount
}

// FindOptimalRoute computes the least-distance path between two entities via
// Dijkstra over active routes. Results are cached until edges change, so a
// repeated call with unchanged network state returns the identical plan.
func (n *Network) FindOptimalRoute(origin, destination string) (*RoutePlan, error) {
	if origin == destination {
		return nil, fmt.Errorf("%s→%s: %w", origin, destination, ErrNoRoute)
	}
	if !n.HasEntity(origin) {
		return nil, fmt.Errorf("%q: %w", origin, ErrUnknownEntity)
	}
	if !n.HasEntity(destination) {
		return nil, fmt.Errorf("%q: %w", destination, ErrUnknownEntity)
	}

	key := origin + "\x00" + destination
	if plan, ok := n.pathCache[key]; ok {
		if plan == nil {
			return nil, fmt.Errorf("%s→%s: %w", origin, destination, ErrNoRoute)
		}
		return plan, nil
	}

	plan := n.dijkstra(origin, destination)
	n.pathCache[key] = plan
	if plan == nil {
		return nil, fmt.Errorf("%s→%s: %w", origin, destination, ErrNoRoute)
	}
	return plan, nil
}

// nodeItem is a priority-queue entry for Dijkstra.
type nodeItem struct {
	id   string
	dist float64
}

type nodeQueue []nodeItem

func (q nodeQueue) Len() int            { return len(q) }
func (q nodeQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q nodeQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x any)         { *q = append(*q, x.(nodeItem)) }
func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

func (n *Network) dijkstra(origin, destination string) *RoutePlan {
	dist := map[string]float64{origin: 0}
	prevNode := make(map[string]string)
	prevRoute := make(map[string]*Route)
	visited := make(map[string]bool)

	q := &nodeQueue{{id: origin, dist: 0}}
	for q.Len() > 0 {
		cur := heap.Pop(q).(nodeItem)
		if visited[cur.id] {
			continue
		}
		visited[cur.id] = true
		if cur.id == destination {
			break
		}

		for _, r := range n.adjacent[cur.id] {
			if !r.Active {
				continue
			}
			next := r.Other(cur.id)
			nd := cur.dist + r.Distance
			if old, ok := dist[next]; !ok || nd < old {
				dist[next] = nd
				prevNode[next] = cur.id
				prevRoute[next] = r
				heap.Push(q, nodeItem{id: next, dist: nd})
			}
		}
	}

	if !visited[destination] {
		return nil
	}

	// Walk back from destination.
	var path []string
	var routes []*Route
	for at := destination; ; {
		path = append(path, at)
		if at == origin {
			break
		}
		routes = append(routes, prevRoute[at])
		at = prevNode[at]
	}
	reverse(path)
	reverseRoutes(routes)

	capacity := math.Inf(1)
	for _, r := range routes {
		if c := r.EffectiveCapacity(); c < capacity {
			capacity = c
		}
	}
	if math.IsInf(capacity, 1) {
		capacity = 0
	}

	return &RoutePlan{Path: path, Routes: routes, Distance: dist[destination], Capacity: capacity}
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func reverseRoutes(s []*Route) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// Bounds for the alternate-path enumeration used by resilience scoring.
const (
	redundancyMaxDepth = 4
	redundancyMaxPaths = 5
)

// countPaths enumerates distinct simple paths between two nodes up to the
// depth and count bounds, via bounded depth-first search.
func (n *Network) countPaths(origin, destination string) int {
	seen := map[string]bool{origin: true}
	count := 0
	var dfs func(at string, depth int)
	dfs = func(at string, depth int) {
		if count >= redundancyMaxPaths || depth > redundancyMaxDepth {
			return
		}
		for _, r := range n.adjacent[at] {
			if !r.Active {
				continue
			}
			next := r.Other(at)
			if next == destination {
				count++
				if count >= redundancyMaxPaths {
					return
				}
				continue
			}
			if seen[next] {
				continue
			}
			seen[next] = true
			dfs(next, depth+1)
			delete(seen, next)
		}
	}
	dfs(origin, 0)
	return count
}

// NetworkResilience combines mean connectivity, route redundancy, and risk
// diversification into a single 0–1 score.
func (n *Network) NetworkResilience() float64 {
	ids := n.Entities()
	if len(ids) < 2 {
		return 0
	}

	// Mean node connectivity, normalized by the complete-graph degree.
	totalDegree := 0
	for _, id := range ids {
		for _, r := range n.adjacent[id] {
			if r.Active {
				totalDegree++
			}
		}
	}
	connectivity := float64(totalDegree) / float64(len(ids)) / float64(len(ids)-1)
	if connectivity > 1 {
		connectivity = 1
	}

	// Redundancy: mean alternate-path count over node pairs, saturating at 3.
	pairs, redundancySum := 0, 0.0
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			pairs++
			paths := n.countPaths(ids[i], ids[j])
			if paths > 3 {
				paths = 3
			}
			redundancySum += float64(paths) / 3
		}
	}
	redundancy := 0.0
	if pairs > 0 {
		redundancy = redundancySum / float64(pairs)
	}

	// Risk diversification: 1 − mean route risk probability.
	diversification := 1.0
	if len(n.routes) > 0 {
		riskSum := 0.0
		for _, r := range n.routes {
			mean := 0.0
			for _, p := range r.Risks {
				mean += p
			}
			if len(r.Risks) > 0 {
				mean /= float64(len(r.Risks))
			}
			riskSum += mean
		}
		diversification = 1 - riskSum/float64(len(n.routes))
		if diversification < 0 {
			diversification = 0
		}
	}

	return 0.4*connectivity + 0.3*redundancy + 0.3*diversification
}

// CriticalNode scores one entity's structural importance.
type CriticalNode struct {
	Entity      string  `json:"entity"`
	Betweenness float64 `json:"betweenness"` // normalized optimal-route appearances
	Degree      float64 `json:"degree"`      // normalized connectivity
	Score       float64 `json:"score"`
}

// IdentifyCriticalNodes ranks nodes by how often they sit on the optimal
// route between other node pairs (simplified betweenness) combined with raw
// connectivity. Highest score first.
func (n *Network) IdentifyCriticalNodes() []CriticalNode {
	ids := n.Entities()
	appearances := make(map[string]int)
	pairCount := 0

	for i := 0; i < len(ids); i++ {
		for j := 0; j < len(ids); j++ {
			if i == j {
				continue
			}
			plan, err := n.FindOptimalRoute(ids[i], ids[j])
			if err != nil {
				continue
			}
			pairCount++
			for _, node := range plan.Path[1 : len(plan.Path)-1] {
				appearances[node]++
			}
		}
	}

	maxDegree := 0
	for _, id := range ids {
		if d := len(n.adjacent[id]); d > maxDegree {
			maxDegree = d
		}
	}

	nodes := make([]CriticalNode, 0, len(ids))
	for _, id := range ids {
		betweenness := 0.0
		if pairCount > 0 {
			betweenness = float64(appearances[id]) / float64(pairCount)
		}
		degree := 0.0
		if maxDegree > 0 {
			degree = float64(len(n.adjacent[id])) / float64(maxDegree)
		}
		nodes = append(nodes, CriticalNode{
			Entity:      id,
			Betweenness: betweenness,
			Degree:      degree,
			Score:       0.7*betweenness + 0.3*degree,
		})
	}
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Score > nodes[j].Score })
	return nodes
}

// sortedKeys returns map keys in sorted order for deterministic iteration.
func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
