package decision

import (
	"time"

	"github.com/talgya/courier-sim/internal/world"
)

// Reactive tier tuning.
const (
	GreedyChance       = 0.7
	MinRetargetSeconds = 3
	MaxRetargetSeconds = 6
)

func (ctl *Controller) stepReactive(t Tick) {
	if !ctl.hasTarget || !t.Now.Before(ctl.retargetAt) {
		ctl.chooseRandomTarget()
		secs := MinRetargetSeconds + ctl.rng.Intn(MaxRetargetSeconds-MinRetargetSeconds+1)
		ctl.retargetAt = t.Now.Add(time.Duration(secs) * time.Second)
	}

	if !ctl.hasTarget {
		ctl.randomMove(t)
		return
	}
	if ctl.rng.Float64() < GreedyChance {
		ctl.greedyMove(t)
		return
	}
	ctl.randomMove(t)
}

// chooseRandomTarget heads for the most urgent carried drop-off, or else a
// random open pickup.
func (ctl *Controller) chooseRandomTarget() {
	if o, ok := ctl.courier.MostUrgent(); ok {
		ctl.target, ctl.hasTarget = o.Dropoff, true
		return
	}
	avail := ctl.inv.Available()
	if len(avail) == 0 {
		ctl.hasTarget = false
		return
	}
	ctl.target, ctl.hasTarget = avail[ctl.rng.Intn(len(avail))].Pickup, true
}

// greedyMove steps along the axis with the larger gap, then the other axis,
// then sideways, skipping recently visited cells. Falls back to a random move
// when every candidate fails. Standing on the target means no move.
func (ctl *Controller) greedyMove(t Tick) bool {
	pos := ctl.courier.Position
	dx, dy := ctl.target.X-pos.X, ctl.target.Y-pos.Y
	if dx == 0 && dy == 0 {
		return false
	}

	var tries []world.Coord
	if abs(dx) > abs(dy) {
		tries = append(tries, world.Coord{X: sign(dx)})
		if dy != 0 {
			tries = append(tries, world.Coord{Y: sign(dy)})
		}
		tries = append(tries, world.Coord{Y: 1}, world.Coord{Y: -1})
	} else {
		tries = append(tries, world.Coord{Y: sign(dy)})
		if dx != 0 {
			tries = append(tries, world.Coord{X: sign(dx)})
		}
		tries = append(tries, world.Coord{X: 1}, world.Coord{X: -1})
	}

	for _, d := range tries {
		dest := pos.Add(d.X, d.Y)
		if !ctl.mover.CanEnter(dest) || ctl.history.IsRecent(dest) {
			continue
		}
		if ctl.move(d, t) {
			return true
		}
	}
	return ctl.randomMove(t)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
