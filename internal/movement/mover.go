package movement

import (
	"math"
	"time"

	"github.com/talgya/courier-sim/internal/agents"
	"github.com/talgya/courier-sim/internal/world"
)

// Mover validates and applies single-cell moves on a grid.
type Mover struct {
	grid *world.Grid

	// Rejected counts every refused move across all couriers.
	Rejected int
}

// NewMover creates a mover for g.
func NewMover(g *world.Grid) *Mover {
	return &Mover{grid: g}
}

// Grid returns the grid moves are validated against.
func (m *Mover) Grid() *world.Grid { return m.grid }

// CanEnter reports whether c is an in-bounds, non-Building cell.
func (m *Mover) CanEnter(c world.Coord) bool {
	return m.grid.Passable(c)
}

// TryMove moves the courier by (dx, dy). The move is refused, leaving
// position and resistance untouched and bumping MoveAttempts, when the
// courier is blocked, the destination is out of bounds or a Building, or the
// speed on the current tile is zero. A successful move spends the step cost;
// reaching zero resistance blocks the courier until it recovers.
func (m *Mover) TryMove(c *agents.Courier, dx, dy int, weatherMult, staminaExtra float64, now time.Time) bool {
	dest := c.Position.Add(dx, dy)
	if c.Blocked || !m.grid.Passable(dest) {
		return m.reject(c)
	}
	if SpeedMultiplier(c, m.grid.Tile(c.Position), weatherMult) <= 0 {
		return m.reject(c)
	}

	c.Position = dest
	c.Resistance = math.Max(0, c.Resistance-StepResistanceCost(c, staminaExtra))
	c.MoveAttempts = 0
	c.Moves++

	if c.Resistance <= 0 {
		c.Exhaust(now)
	}
	return true
}

// StepTo moves toward an orthogonally adjacent cell.
func (m *Mover) StepTo(c *agents.Courier, to world.Coord, weatherMult, staminaExtra float64, now time.Time) bool {
	if world.Manhattan(c.Position, to) != 1 {
		return m.reject(c)
	}
	return m.TryMove(c, to.X-c.Position.X, to.Y-c.Position.Y, weatherMult, staminaExtra, now)
}

func (m *Mover) reject(c *agents.Courier) bool {
	c.MoveAttempts++
	m.Rejected++
	return false
}
