package movement

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/courier-sim/internal/agents"
	"github.com/talgya/courier-sim/internal/orders"
	"github.com/talgya/courier-sim/internal/world"
)

var now = time.Unix(1_700_000_000, 0)

func courierAt(x, y int) *agents.Courier {
	return agents.NewCourier(1, "test", agents.TierReactive, world.Coord{X: x, Y: y})
}

func carrying(c *agents.Courier, weight float64) *agents.Courier {
	c.Inventory = []orders.Order{{ID: "w", Weight: weight}}
	return c
}

func TestSpeedMultiplierFormula(t *testing.T) {
	c := courierAt(0, 0)
	assert.InDelta(t, 3.0, SpeedMultiplier(c, world.TileStreet, 1.0), 1e-12)
	assert.InDelta(t, 3.0*0.95, SpeedMultiplier(c, world.TilePark, 1.0), 1e-12)
	assert.Zero(t, SpeedMultiplier(c, world.TileBuilding, 1.0))

	c.Reputation = 90
	c.Resistance = 20
	carrying(c, 2)
	want := 3.0 * 0.85 * 0.94 * 1.03 * 0.8
	assert.InDelta(t, want, SpeedMultiplier(c, world.TileStreet, 0.85), 1e-12)

	c.Resistance = 0
	assert.Zero(t, SpeedMultiplier(c, world.TileStreet, 1.0))
}

func TestSpeedMonotonicInWeight(t *testing.T) {
	for _, tile := range []world.Tile{world.TileStreet, world.TilePark} {
		for _, res := range []float64{10, 40, 100} {
			prev := math.Inf(1)
			for w := 0.0; w <= 15; w += 0.5 {
				c := carrying(courierAt(0, 0), w)
				c.Resistance = res
				v := SpeedMultiplier(c, tile, 0.9)
				assert.LessOrEqual(t, v, prev, "tile %s resistance %v weight %v", tile, res, w)
				prev = v
			}
		}
	}
}

func TestStepResistanceCost(t *testing.T) {
	assert.InDelta(t, 0.5, StepResistanceCost(courierAt(0, 0), 0), 1e-12)
	assert.InDelta(t, 0.5, StepResistanceCost(carrying(courierAt(0, 0), 3), 0), 1e-12)
	assert.InDelta(t, 0.5+0.2*2+0.3, StepResistanceCost(carrying(courierAt(0, 0), 5), 0.3), 1e-12)
}

func TestEdgeCost(t *testing.T) {
	g := world.MustParseRows("CPB")
	a := world.Coord{X: 0, Y: 0}
	b := world.Coord{X: 1, Y: 0}
	wall := world.Coord{X: 2, Y: 0}

	assert.InDelta(t, 1.0, EdgeCost(g, b, a, 1.0, 0, 100), 1e-12)
	assert.InDelta(t, (1/0.95)*1.25*1.2*1.5, EdgeCost(g, a, b, 0.75, 0.2, 10), 1e-12)
	assert.InDelta(t, 1.2, EdgeCost(g, b, a, 1.0, 0, 45), 1e-12)
	assert.True(t, math.IsInf(EdgeCost(g, b, wall, 1.0, 0, 100), 1))
	assert.True(t, math.IsInf(EdgeCost(g, a, world.Coord{X: -1, Y: 0}, 1.0, 0, 100), 1))
}

func TestTryMoveRejections(t *testing.T) {
	g := world.MustParseRows(
		"CB",
		"CC",
	)
	m := NewMover(g)
	c := courierAt(0, 0)

	assert.False(t, m.TryMove(c, 1, 0, 1.0, 0, now), "building")
	assert.False(t, m.TryMove(c, -1, 0, 1.0, 0, now), "out of bounds")
	assert.False(t, m.TryMove(c, 0, -1, 1.0, 0, now), "out of bounds")
	assert.Equal(t, world.Coord{X: 0, Y: 0}, c.Position)
	assert.Equal(t, 100.0, c.Resistance)
	assert.Equal(t, 3, c.MoveAttempts)
	assert.Equal(t, 3, m.Rejected)

	require.True(t, m.TryMove(c, 0, 1, 1.0, 0.1, now))
	assert.Equal(t, world.Coord{X: 0, Y: 1}, c.Position)
	assert.InDelta(t, 99.4, c.Resistance, 1e-12)
	assert.Zero(t, c.MoveAttempts)
}

func TestZeroResistanceBlocksAndRecoveryUnblocks(t *testing.T) {
	g := world.Filled(4, 1, world.TileStreet)
	m := NewMover(g)
	c := courierAt(0, 0)
	c.Recover(now)

	c.Resistance = 0.4
	require.True(t, m.TryMove(c, 1, 0, 1.0, 0, now))
	assert.Zero(t, c.Resistance)
	assert.True(t, c.Blocked)

	for _, w := range []float64{1.0, 0.5} {
		assert.False(t, m.TryMove(c, 1, 0, w, 0, now))
	}
	assert.Equal(t, world.Coord{X: 1, Y: 0}, c.Position)

	// Unblocked but still at zero stamina: the zero speed refuses the move.
	c.Blocked = false
	assert.False(t, m.TryMove(c, 1, 0, 1.0, 0, now))
	c.Blocked = true

	c.Recover(now.Add(5 * time.Second))
	assert.Equal(t, 25.0, c.Resistance)
	assert.True(t, c.Blocked)

	c.Recover(now.Add(6 * time.Second))
	assert.Equal(t, 30.0, c.Resistance)
	assert.False(t, c.Blocked)
	assert.True(t, m.TryMove(c, 1, 0, 1.0, 0, now.Add(6*time.Second)))
}

func TestResistanceState(t *testing.T) {
	assert.Equal(t, "exhausted", ResistanceState(0))
	assert.Equal(t, "tired", ResistanceState(30))
	assert.Equal(t, "fatigued", ResistanceState(49))
	assert.Equal(t, "fatigued", ResistanceState(50))
	assert.Equal(t, "normal", ResistanceState(50.5))
}
