// Courier spawning: places the fleet on free street or park cells.
package agents

import (
	"fmt"
	"math/rand"

	"github.com/talgya/courier-sim/internal/world"
)

// Spawner creates couriers for the simulation.
type Spawner struct {
	rng      *rand.Rand
	nextID   CourierID
	occupied map[world.Coord]bool
}

// NewSpawner creates a courier spawner with the given seed.
func NewSpawner(seed int64) *Spawner {
	return &Spawner{
		rng:      rand.New(rand.NewSource(seed + 300)),
		nextID:   1,
		occupied: make(map[world.Coord]bool),
	}
}

// Spawn creates one courier per tier entry, each on a separate passable cell.
// Separation is relaxed to zero when the grid is too crowded for it.
func (s *Spawner) Spawn(g *world.Grid, tiers []Tier, separation int) ([]*Courier, error) {
	couriers := make([]*Courier, 0, len(tiers))
	for _, tier := range tiers {
		pos, ok := world.PlaceSeparated(g, s.occupied, separation, s.rng)
		if !ok {
			pos, ok = world.PlaceSeparated(g, s.occupied, 0, s.rng)
		}
		if !ok {
			return couriers, fmt.Errorf("spawn courier %d: no free cell", s.nextID)
		}

		id := s.nextID
		s.nextID++
		couriers = append(couriers, NewCourier(id, fmt.Sprintf("%s-%d", tier, id), tier, pos))
	}
	return couriers, nil
}
