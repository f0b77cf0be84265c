package pathfind

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/courier-sim/internal/movement"
	"github.com/talgya/courier-sim/internal/world"
)

var fair = movement.Costs{WeatherMult: 1.0, StaminaExtra: 0, Resistance: 100}

func TestStreetGridManhattanRoute(t *testing.T) {
	g := world.Filled(5, 5, world.TileStreet)
	res := Search(g, world.Coord{X: 0, Y: 0}, world.Coord{X: 4, Y: 4}, fair)

	require.True(t, res.Found())
	assert.Len(t, res.Path, 8)
	assert.InDelta(t, 8.0, res.Cost, 1e-12)
	assert.Equal(t, world.Coord{X: 4, Y: 4}, res.Path[len(res.Path)-1])
	assert.NotContains(t, res.Path, world.Coord{X: 0, Y: 0})

	prev := world.Coord{X: 0, Y: 0}
	for _, c := range res.Path {
		assert.Equal(t, 1, world.Manhattan(prev, c))
		prev = c
	}
	assert.InDelta(t, res.Cost, PathCost(g, world.Coord{}, res.Path, fair), 1e-12)
}

func TestSearchIsDeterministic(t *testing.T) {
	g := world.Filled(6, 6, world.TileStreet)
	first := Path(g, world.Coord{X: 0, Y: 0}, world.Coord{X: 5, Y: 5}, fair)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Path(g, world.Coord{X: 0, Y: 0}, world.Coord{X: 5, Y: 5}, fair))
	}
}

func TestUnreachable(t *testing.T) {
	walled := world.MustParseRows(
		"CCBCC",
		"CCBCC",
		"CCBCC",
	)

	tests := []struct {
		name  string
		grid  *world.Grid
		start world.Coord
		goal  world.Coord
	}{
		{"wall splits the grid", walled, world.Coord{X: 0, Y: 0}, world.Coord{X: 4, Y: 2}},
		{"goal is a building", walled, world.Coord{X: 0, Y: 0}, world.Coord{X: 2, Y: 1}},
		{"goal out of bounds", walled, world.Coord{X: 0, Y: 0}, world.Coord{X: 9, Y: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Search(tt.grid, tt.start, tt.goal, fair)
			assert.Nil(t, res.Path)
			assert.False(t, res.Found())
			assert.True(t, math.IsInf(res.Cost, 1))
		})
	}
}

func TestStartIsGoal(t *testing.T) {
	g := world.Filled(3, 3, world.TileStreet)
	res := Search(g, world.Coord{X: 1, Y: 1}, world.Coord{X: 1, Y: 1}, fair)
	assert.NotNil(t, res.Path)
	assert.Empty(t, res.Path)
	assert.Zero(t, res.Cost)
}

func TestParkDetourCostsMore(t *testing.T) {
	g := world.MustParseRows(
		"CCCCC",
		"CPPPC",
		"CCCCC",
	)
	res := Search(g, world.Coord{X: 0, Y: 1}, world.Coord{X: 4, Y: 1}, fair)
	require.True(t, res.Found())
	assert.InDelta(t, 3/0.95+1, res.Cost, 1e-9)

	// Two equal-length routes: the street one wins.
	g = world.MustParseRows(
		"CC",
		"PC",
	)
	res = Search(g, world.Coord{X: 0, Y: 0}, world.Coord{X: 1, Y: 1}, fair)
	require.True(t, res.Found())
	assert.Equal(t, []world.Coord{{X: 1, Y: 0}, {X: 1, Y: 1}}, res.Path)
	assert.InDelta(t, 2.0, res.Cost, 1e-12)
}

func TestWeatherAndStaminaScaleCost(t *testing.T) {
	g := world.Filled(4, 1, world.TileStreet)
	costs := movement.Costs{WeatherMult: 0.75, StaminaExtra: 0.3, Resistance: 20}
	res := Search(g, world.Coord{X: 0, Y: 0}, world.Coord{X: 3, Y: 0}, costs)
	assert.InDelta(t, 3*1.25*1.3*1.5, res.Cost, 1e-9)
}

func TestMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tiles := []world.Tile{world.TileStreet, world.TileStreet, world.TilePark, world.TileBuilding}

	for trial := 0; trial < 40; trial++ {
		rows := make([][]world.Tile, 4)
		for y := range rows {
			rows[y] = make([]world.Tile, 4)
			for x := range rows[y] {
				rows[y][x] = tiles[rng.Intn(len(tiles))]
			}
		}
		rows[0][0] = world.TileStreet
		rows[3][3] = world.TilePark
		g, err := world.NewGrid(rows)
		require.NoError(t, err)

		costs := movement.Costs{WeatherMult: 0.85, StaminaExtra: 0.1, Resistance: 40}
		start, goal := world.Coord{X: 0, Y: 0}, world.Coord{X: 3, Y: 3}

		want := bruteForce(g, start, goal, costs)
		got := Search(g, start, goal, costs)
		if math.IsInf(want, 1) {
			assert.Nil(t, got.Path, "trial %d:\n%s", trial, g)
			continue
		}
		require.NotNil(t, got.Path, "trial %d:\n%s", trial, g)
		assert.InDelta(t, want, got.Cost, 1e-9, "trial %d:\n%s", trial, g)
		assert.InDelta(t, got.Cost, PathCost(g, start, got.Path, costs), 1e-9)
	}
}

// bruteForce enumerates every simple path.
func bruteForce(g *world.Grid, start, goal world.Coord, costs movement.Costs) float64 {
	best := math.Inf(1)
	visited := map[world.Coord]bool{start: true}
	var walk func(at world.Coord, cost float64)
	walk = func(at world.Coord, cost float64) {
		if at == goal {
			best = math.Min(best, cost)
			return
		}
		for _, n := range at.Neighbors() {
			if !g.Passable(n) || visited[n] {
				continue
			}
			visited[n] = true
			walk(n, cost+costs.Edge(g.Tile(n)))
			visited[n] = false
		}
	}
	walk(start, 0)
	return best
}

func TestPathCostRejectsBrokenRoutes(t *testing.T) {
	g := world.MustParseRows("CBC")
	assert.True(t, math.IsInf(PathCost(g, world.Coord{}, []world.Coord{{X: 1, Y: 0}}, fair), 1))
	assert.True(t, math.IsInf(PathCost(g, world.Coord{}, []world.Coord{{X: 2, Y: 0}}, fair), 1))
}
