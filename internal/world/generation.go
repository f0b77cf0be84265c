// City generation using layered simplex noise.
// A street lattice guarantees connectivity; block interiors become buildings
// or parks depending on a noise field, and a post-pass walls off any pocket
// the lattice cannot reach.
package world

import (
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds city generation parameters.
type GenConfig struct {
	Width     int     // Columns
	Height    int     // Rows
	Seed      int64   // Random seed (0 = random)
	BlockSize int     // Street lattice spacing; 4 gives 3×3 blocks
	ParkLevel float64 // Noise threshold below which a block cell is park (0.0–1.0)
	AlleyRate float64 // Chance that a block cell is left open as an alley
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:     30,
		Height:    30,
		Seed:      0,
		BlockSize: 4,
		ParkLevel: 0.30,
		AlleyRate: 0.10,
	}
}

// SmallTestConfig returns a tiny city for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Width:     12,
		Height:    12,
		Seed:      42,
		BlockSize: 3,
		ParkLevel: 0.30,
		AlleyRate: 0.10,
	}
}

// Generate creates a complete city grid.
func Generate(cfg GenConfig) *Grid {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	if cfg.BlockSize < 2 {
		cfg.BlockSize = 2
	}

	parkNoise := opensimplex.NewNormalized(seed)
	rng := rand.New(rand.NewSource(seed + 100))

	g := Filled(cfg.Width, cfg.Height, TileBuilding)

	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			c := Coord{X: x, Y: y}
			park := octaveNoise(parkNoise, float64(x), float64(y), 3, 0.12, 0.5)

			if x%cfg.BlockSize == 0 || y%cfg.BlockSize == 0 {
				// Lattice cells stay walkable; deep inside a park they become paths.
				if park < cfg.ParkLevel*0.5 {
					g.Set(c, TilePark)
				} else {
					g.Set(c, TileStreet)
				}
				continue
			}

			switch {
			case park < cfg.ParkLevel:
				g.Set(c, TilePark)
			case rng.Float64() < cfg.AlleyRate:
				g.Set(c, TileStreet)
			default:
				g.Set(c, TileBuilding)
			}
		}
	}

	// Post-pass: anything the lattice cannot reach becomes a building.
	sealPockets(g)

	return g
}

// sealPockets flood-fills from the first walkable lattice cell and turns every
// unreached walkable cell into a building.
func sealPockets(g *Grid) {
	start, ok := firstPassable(g)
	if !ok {
		return
	}

	reached := map[Coord]bool{start: true}
	queue := []Coord{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, n := range current.Neighbors() {
			if reached[n] || !g.Passable(n) {
				continue
			}
			reached[n] = true
			queue = append(queue, n)
		}
	}

	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			c := Coord{X: x, Y: y}
			if g.Passable(c) && !reached[c] {
				g.Set(c, TileBuilding)
			}
		}
	}
}

func firstPassable(g *Grid) (Coord, bool) {
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			c := Coord{X: x, Y: y}
			if g.Passable(c) {
				return c, true
			}
		}
	}
	return Coord{}, false
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
