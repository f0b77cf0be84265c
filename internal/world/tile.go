// Package world provides the city grid, terrain tiles, and spatial helpers.
// Coordinates are (x, y) with x as column and y as row; the grid is read-only
// once loaded.
package world

import "fmt"

// Tile is the terrain classification of one grid cell.
type Tile uint8

const (
	TileStreet   Tile = iota // Paved street, full speed
	TilePark                 // Park path, slightly slower
	TileBuilding             // Impassable
)

// String returns the single-letter code used by city descriptions.
func (t Tile) String() string {
	switch t {
	case TileStreet:
		return "C"
	case TilePark:
		return "P"
	case TileBuilding:
		return "B"
	default:
		return "?"
	}
}

// TileName returns a human-readable name for a tile type.
func TileName(t Tile) string {
	switch t {
	case TileStreet:
		return "Street"
	case TilePark:
		return "Park"
	case TileBuilding:
		return "Building"
	default:
		return "Unknown"
	}
}

// ParseTile maps a city description code to a tile.
// Accepts the legacy one-letter codes ("C", "P", "B") and full names.
func ParseTile(code string) (Tile, error) {
	switch code {
	case "C", "c", "S", "street", "Street":
		return TileStreet, nil
	case "P", "p", "park", "Park":
		return TilePark, nil
	case "B", "b", "building", "Building":
		return TileBuilding, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTile, code)
	}
}

// Coord is a position on the grid.
type Coord struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Add returns the coordinate offset by (dx, dy).
func (c Coord) Add(dx, dy int) Coord {
	return Coord{X: c.X + dx, Y: c.Y + dy}
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Directions are the four unit moves: up, down, left, right.
var Directions = [4]Coord{
	{X: 0, Y: -1},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
	{X: 1, Y: 0},
}

// Neighbors returns the four orthogonally adjacent coordinates, in
// Directions order. Bounds are not checked.
func (c Coord) Neighbors() [4]Coord {
	var result [4]Coord
	for i, dir := range Directions {
		result[i] = Coord{X: c.X + dir.X, Y: c.Y + dir.Y}
	}
	return result
}

// Manhattan returns the L1 distance between two coordinates.
func Manhattan(a, b Coord) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
