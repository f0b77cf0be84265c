package world

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRows(t *testing.T) {
	g, err := ParseRows(
		"CCB",
		"PBC",
	)
	require.NoError(t, err)
	assert.Equal(t, 3, g.Width())
	assert.Equal(t, 2, g.Height())
	assert.Equal(t, TileStreet, g.TileAt(0, 0))
	assert.Equal(t, TileBuilding, g.TileAt(2, 0))
	assert.Equal(t, TilePark, g.TileAt(0, 1))

	_, err = ParseRows("CC", "C")
	assert.ErrorIs(t, err, ErrRagged)

	_, err = ParseRows("CX")
	assert.ErrorIs(t, err, ErrUnknownTile)
}

func TestOutOfBoundsReadsAsBuilding(t *testing.T) {
	g := Filled(2, 2, TileStreet)
	assert.Equal(t, TileBuilding, g.TileAt(-1, 0))
	assert.Equal(t, TileBuilding, g.TileAt(0, 2))
	assert.False(t, g.Passable(Coord{X: 2, Y: 0}))
	assert.True(t, g.Passable(Coord{X: 1, Y: 1}))
}

func TestLoadCityEnvelope(t *testing.T) {
	body := `{"data": {"width": 3, "height": 2, "tiles": [["C","P","B"],["C","C","C"]]}}`
	g, err := LoadCity(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, TilePark, g.TileAt(1, 0))
	assert.Equal(t, TileBuilding, g.TileAt(2, 0))

	bare := `{"tiles": [["street","park"]]}`
	g, err = LoadCity(strings.NewReader(bare))
	require.NoError(t, err)
	assert.Equal(t, 2, g.Width())

	_, err = LoadCity(strings.NewReader(`{"data": {"tiles": []}}`))
	assert.ErrorIs(t, err, ErrEmptyMap)

	_, err = LoadCity(strings.NewReader(`{"data": {"width": 5, "tiles": [["C"]]}}`))
	assert.Error(t, err)
}

func TestGenerateIsDeterministicAndConnected(t *testing.T) {
	cfg := SmallTestConfig()
	a := Generate(cfg)
	b := Generate(cfg)
	assert.Equal(t, a.Rows(), b.Rows())

	start, ok := firstPassable(a)
	require.True(t, ok)

	reached := map[Coord]bool{start: true}
	queue := []Coord{start}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		for _, n := range c.Neighbors() {
			if a.Passable(n) && !reached[n] {
				reached[n] = true
				queue = append(queue, n)
			}
		}
	}
	assert.Len(t, reached, len(a.FreeCells(nil)), "every walkable cell should be reachable")
	assert.NotEqual(t, TileBuilding, a.TileAt(0, 0), "lattice corner must be walkable")
}

func TestPlaceSeparated(t *testing.T) {
	g := Filled(10, 10, TileStreet)
	occupied := map[Coord]bool{}
	rng := rand.New(rand.NewSource(1))

	first, ok := PlaceSeparated(g, occupied, 2, rng)
	require.True(t, ok)
	second, ok := PlaceSeparated(g, occupied, 2, rng)
	require.True(t, ok)

	dx := abs(first.X - second.X)
	dy := abs(first.Y - second.Y)
	assert.True(t, dx > 2 || dy > 2, "points %v and %v too close", first, second)
	assert.True(t, occupied[first])
	assert.True(t, occupied[second])
}

func TestRelocateMovesOffBuildings(t *testing.T) {
	g := MustParseRows(
		"CCCCC",
		"CBBBC",
		"CBBBC",
		"CCCCC",
	)
	occupied := map[Coord]bool{}
	got := Relocate(g, Coord{X: 2, Y: 1}, occupied, 0)
	assert.True(t, g.Passable(got))
	assert.Equal(t, 1, Manhattan(got, Coord{X: 2, Y: 1}))

	free := Relocate(g, Coord{X: 0, Y: 0}, occupied, 0)
	assert.Equal(t, Coord{X: 0, Y: 0}, free)
}

func TestManhattan(t *testing.T) {
	assert.Equal(t, 8, Manhattan(Coord{X: 0, Y: 0}, Coord{X: 4, Y: 4}))
	assert.Equal(t, 3, Manhattan(Coord{X: 2, Y: 1}, Coord{X: 0, Y: 2}))
}
