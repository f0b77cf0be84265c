package decision

import (
	"math"

	"github.com/talgya/courier-sim/internal/world"
)

// LookaheadDepth is the expectimax horizon: the courier's own move, then a
// chance ply over the neighbours it could drift to.
const LookaheadDepth = 2

func (ctl *Controller) stepLookahead(t Tick) {
	ctl.chooseValuedTarget()
	if !ctl.hasTarget {
		ctl.randomMove(t)
		return
	}

	best, ok := ctl.bestMove()
	if !ok {
		ctl.randomMove(t)
		return
	}
	ctl.move(best, t)
}

// chooseValuedTarget heads for the most urgent carried drop-off, or else the
// open order maximizing priority×10 − distance among those that fit.
func (ctl *Controller) chooseValuedTarget() {
	c := ctl.courier
	if o, ok := c.MostUrgent(); ok {
		ctl.target, ctl.hasTarget = o.Dropoff, true
		return
	}

	ctl.hasTarget = false
	bestValue := math.Inf(-1)
	for _, o := range ctl.inv.Available() {
		if o.Weight > c.RemainingCapacity() {
			continue
		}
		v := float64(o.Priority*10 - world.Manhattan(c.Position, o.Pickup))
		if v > bestValue {
			bestValue = v
			ctl.target, ctl.hasTarget = o.Pickup, true
		}
	}
}

// bestMove returns the direction with the highest expectimax value. The
// first direction wins ties.
func (ctl *Controller) bestMove() (world.Coord, bool) {
	pos := ctl.courier.Position
	var best world.Coord
	bestValue := math.Inf(-1)
	found := false
	for _, d := range world.Directions {
		next := pos.Add(d.X, d.Y)
		if !ctl.mover.CanEnter(next) {
			continue
		}
		v := ctl.expectimax(next, LookaheadDepth-1, true)
		if v > bestValue {
			best, bestValue, found = d, v, true
		}
	}
	return best, found
}

// expectimax values cell at with depth plies left. Chance plies average the
// passable neighbours equally; max plies take the best one. Leaves score the
// negative Manhattan distance to the target, ignoring terrain and weather.
func (ctl *Controller) expectimax(at world.Coord, depth int, chance bool) float64 {
	leaf := -float64(world.Manhattan(at, ctl.target))
	if depth == 0 {
		return leaf
	}

	sum, n := 0.0, 0
	best := math.Inf(-1)
	for _, next := range at.Neighbors() {
		if !ctl.mover.CanEnter(next) {
			continue
		}
		v := ctl.expectimax(next, depth-1, !chance)
		sum += v
		best = math.Max(best, v)
		n++
	}
	if n == 0 {
		return leaf
	}
	if chance {
		return sum / float64(n)
	}
	return best
}
