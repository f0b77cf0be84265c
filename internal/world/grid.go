package world

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyMap is returned when a city description has no tiles.
	ErrEmptyMap = errors.New("empty city map")
	// ErrUnknownTile is returned for an unrecognized tile code.
	ErrUnknownTile = errors.New("unknown tile code")
	// ErrRagged is returned when rows of a city description differ in length.
	ErrRagged = errors.New("ragged city map")
)

// Grid holds the static terrain matrix of the city.
type Grid struct {
	width  int
	height int
	tiles  []Tile // row-major
}

// NewGrid builds a grid from rows of tiles (rows[y][x]).
func NewGrid(rows [][]Tile) (*Grid, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyMap
	}
	width := len(rows[0])
	g := &Grid{
		width:  width,
		height: len(rows),
		tiles:  make([]Tile, 0, width*len(rows)),
	}
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d tiles, want %d", ErrRagged, y, len(row), width)
		}
		g.tiles = append(g.tiles, row...)
	}
	return g, nil
}

// Filled returns a width×height grid of a single tile type.
func Filled(width, height int, t Tile) *Grid {
	g := &Grid{width: width, height: height, tiles: make([]Tile, width*height)}
	for i := range g.tiles {
		g.tiles[i] = t
	}
	return g
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// InBounds reports whether c lies inside the grid.
func (g *Grid) InBounds(c Coord) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.width && c.Y < g.height
}

// TileAt returns the tile at (x, y). Out-of-bounds cells read as Building so
// callers that forget a bounds check still treat them as impassable.
func (g *Grid) TileAt(x, y int) Tile {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return TileBuilding
	}
	return g.tiles[y*g.width+x]
}

// Tile returns the tile at c.
func (g *Grid) Tile(c Coord) Tile {
	return g.TileAt(c.X, c.Y)
}

// Passable reports whether c is in bounds and not a Building.
func (g *Grid) Passable(c Coord) bool {
	return g.InBounds(c) && g.TileAt(c.X, c.Y) != TileBuilding
}

// Set overwrites a single tile. Only used while constructing a city.
func (g *Grid) Set(c Coord, t Tile) {
	if g.InBounds(c) {
		g.tiles[c.Y*g.width+c.X] = t
	}
}

// FreeCells returns all passable cells not present in occupied, in row-major
// order.
func (g *Grid) FreeCells(occupied map[Coord]bool) []Coord {
	var cells []Coord
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			c := Coord{X: x, Y: y}
			if g.tiles[y*g.width+x] == TileBuilding || occupied[c] {
				continue
			}
			cells = append(cells, c)
		}
	}
	return cells
}

// Rows returns a copy of the grid as rows of tile codes.
func (g *Grid) Rows() [][]string {
	rows := make([][]string, g.height)
	for y := 0; y < g.height; y++ {
		row := make([]string, g.width)
		for x := 0; x < g.width; x++ {
			row[x] = g.tiles[y*g.width+x].String()
		}
		rows[y] = row
	}
	return rows
}

// TileCounts returns a summary of tile type distribution.
func TileCounts(g *Grid) map[Tile]int {
	counts := make(map[Tile]int)
	for _, t := range g.tiles {
		counts[t]++
	}
	return counts
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d)", g.width, g.height)
}
