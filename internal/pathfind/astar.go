// Package pathfind finds least-cost 4-directional routes on the city grid
// with A*, pricing each step by terrain, weather and courier stamina.
package pathfind

import (
	"container/heap"
	"math"

	"github.com/talgya/courier-sim/internal/movement"
	"github.com/talgya/courier-sim/internal/world"
)

// Result is the outcome of one search.
type Result struct {
	Path     []world.Coord // Excludes start, ends at goal; nil when unreachable
	Cost     float64       // Total edge cost of Path; +Inf when unreachable
	Expanded int           // Nodes popped from the frontier
}

// Found reports whether a route exists.
func (r Result) Found() bool { return r.Path != nil }

type pathNode struct {
	point world.Coord
	g     float64
	f     float64
	seq   uint64
	index int
}

// pathQueue is a min-heap on f. Equal f values pop in insertion order so
// equal-cost routes come out the same every run.
type pathQueue []*pathNode

func (pq pathQueue) Len() int { return len(pq) }

func (pq pathQueue) Less(i, j int) bool {
	if pq[i].f == pq[j].f {
		return pq[i].seq < pq[j].seq
	}
	return pq[i].f < pq[j].f
}

func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	item := x.(*pathNode)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// Heuristic is the Manhattan distance. It never overestimates because every
// step costs at least 1 while the weather multiplier stays at or below 1.
func Heuristic(a, b world.Coord) float64 {
	return float64(world.Manhattan(a, b))
}

// Search runs A* from start to goal. Building and out-of-bounds goals are
// unreachable without searching. start == goal yields an empty, non-nil path.
func Search(g *world.Grid, start, goal world.Coord, costs movement.Costs) Result {
	unreachable := Result{Cost: math.Inf(1)}
	if !g.Passable(goal) || !g.InBounds(start) {
		return unreachable
	}
	if start == goal {
		return Result{Path: []world.Coord{}}
	}

	open := &pathQueue{}
	var seq uint64
	heap.Push(open, &pathNode{point: start, f: Heuristic(start, goal), seq: seq})
	gScore := map[world.Coord]float64{start: 0}
	cameFrom := make(map[world.Coord]world.Coord)
	closed := make(map[world.Coord]bool)
	expanded := 0

	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		if closed[current.point] {
			continue
		}
		closed[current.point] = true
		expanded++

		if current.point == goal {
			return Result{
				Path:     reconstructPath(cameFrom, start, goal),
				Cost:     current.g,
				Expanded: expanded,
			}
		}

		for _, next := range current.point.Neighbors() {
			if !g.Passable(next) || closed[next] {
				continue
			}
			tentative := current.g + costs.Edge(g.Tile(next))
			if prev, ok := gScore[next]; ok && tentative >= prev {
				continue
			}
			gScore[next] = tentative
			cameFrom[next] = current.point
			seq++
			heap.Push(open, &pathNode{
				point: next,
				g:     tentative,
				f:     tentative + Heuristic(next, goal),
				seq:   seq,
			})
		}
	}

	unreachable.Expanded = expanded
	return unreachable
}

// Path is Search reduced to the route alone.
func Path(g *world.Grid, start, goal world.Coord, costs movement.Costs) []world.Coord {
	return Search(g, start, goal, costs).Path
}

func reconstructPath(cameFrom map[world.Coord]world.Coord, start, goal world.Coord) []world.Coord {
	var path []world.Coord
	for at := goal; at != start; at = cameFrom[at] {
		path = append(path, at)
	}
	for i := 0; i < len(path)/2; i++ {
		j := len(path) - 1 - i
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// PathCost prices an existing route from start under costs. A route that
// leaves the grid, enters a Building or skips a cell costs +Inf.
func PathCost(g *world.Grid, start world.Coord, path []world.Coord, costs movement.Costs) float64 {
	total := 0.0
	prev := start
	for _, c := range path {
		if world.Manhattan(prev, c) != 1 || !g.Passable(c) {
			return math.Inf(1)
		}
		total += costs.Edge(g.Tile(c))
		prev = c
	}
	return total
}
