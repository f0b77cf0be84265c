// Package decision drives computer-controlled couriers. A Controller holds one
// of three tiers chosen at construction: reactive random walk, depth-2
// expectimax lookahead, or A* strategic planning. All tiers share loop
// detection with a timed escape mode and hand pickups and deliveries to an
// Inventory.
package decision

import (
	"log/slog"
	"time"

	"github.com/talgya/courier-sim/internal/agents"
	"github.com/talgya/courier-sim/internal/entropy"
	"github.com/talgya/courier-sim/internal/movement"
	"github.com/talgya/courier-sim/internal/orders"
	"github.com/talgya/courier-sim/internal/world"
)

// DefaultMovesPerSecond is the decision cadence.
const DefaultMovesPerSecond = 8

// Tick is what the engine passes to every decision step.
type Tick struct {
	Now          time.Time
	WeatherMult  float64
	StaminaExtra float64
}

// Inventory is the pickup/delivery collaborator. It owns the board of open
// orders and all reputation and score bookkeeping.
type Inventory interface {
	Available() []orders.Order
	TryPickup(c *agents.Courier, o orders.Order, now time.Time) bool
	TryDeliver(c *agents.Courier, now time.Time) (orders.Order, bool)
}

// Controller decides moves for one courier.
type Controller struct {
	courier  *agents.Courier
	mover    *movement.Mover
	inv      Inventory
	rng      entropy.Rand
	interval time.Duration

	lastMove time.Time
	history  History

	// Reactive and lookahead target.
	target     world.Coord
	hasTarget  bool
	retargetAt time.Time

	// Strategic plan.
	plan        []world.Coord
	lastReplan  time.Time
	lastWeather float64
}

// New creates a controller for c using c.Tier. movesPerSecond <= 0 uses
// DefaultMovesPerSecond.
func New(c *agents.Courier, mover *movement.Mover, inv Inventory, rng entropy.Rand, movesPerSecond float64) *Controller {
	if movesPerSecond <= 0 {
		movesPerSecond = DefaultMovesPerSecond
	}
	return &Controller{
		courier:  c,
		mover:    mover,
		inv:      inv,
		rng:      rng,
		interval: time.Duration(float64(time.Second) / movesPerSecond),
	}
}

// Step runs one decision if the cadence allows it. Returns false when the
// courier is blocked or it is not yet time to move.
func (ctl *Controller) Step(t Tick) bool {
	c := ctl.courier
	if c.Blocked {
		return false
	}
	if !ctl.lastMove.IsZero() && t.Now.Sub(ctl.lastMove) < ctl.interval {
		return false
	}
	ctl.lastMove = t.Now

	entered, left := ctl.history.Observe(c.Position, t.Now)
	if entered {
		slog.Debug("loop detected, escaping", "courier", c.Name, "cell", c.Position)
		ctl.hasTarget = false
		ctl.plan = nil
	}
	if left {
		slog.Debug("escape mode over", "courier", c.Name)
	}

	switch {
	case ctl.history.Escaping():
		ctl.randomMove(t)
	case c.Tier == agents.TierLookahead:
		ctl.stepLookahead(t)
	case c.Tier == agents.TierStrategic:
		ctl.stepStrategic(t)
	default:
		ctl.stepReactive(t)
	}

	ctl.handleOrders(t.Now)
	return true
}

// handleOrders attempts every pickup on the current cell, then one delivery.
func (ctl *Controller) handleOrders(now time.Time) {
	c := ctl.courier
	for _, o := range ctl.inv.Available() {
		if o.Pickup != c.Position {
			continue
		}
		if !ctl.inv.TryPickup(c, o, now) {
			continue
		}
		if ctl.hasTarget && ctl.target == o.Pickup {
			ctl.target = o.Dropoff
		}
	}

	if _, ok := ctl.inv.TryDeliver(c, now); ok {
		ctl.hasTarget = false
		ctl.plan = nil
		ctl.history.Clear()
	}
}

// randomMove tries the four directions in shuffled order, preferring cells
// not visited in the last few steps. No valid direction means no move.
func (ctl *Controller) randomMove(t Tick) bool {
	dirs := world.Directions
	ctl.rng.Shuffle(len(dirs), func(i, j int) { dirs[i], dirs[j] = dirs[j], dirs[i] })

	pos := ctl.courier.Position
	var fallback *world.Coord
	for i := range dirs {
		dest := pos.Add(dirs[i].X, dirs[i].Y)
		if !ctl.mover.CanEnter(dest) {
			continue
		}
		if !ctl.history.IsRecent(dest) {
			return ctl.move(dirs[i], t)
		}
		if fallback == nil {
			fallback = &dirs[i]
		}
	}
	if fallback != nil {
		return ctl.move(*fallback, t)
	}
	return false
}

func (ctl *Controller) move(d world.Coord, t Tick) bool {
	return ctl.mover.TryMove(ctl.courier, d.X, d.Y, t.WeatherMult, t.StaminaExtra, t.Now)
}

// Courier returns the controlled courier.
func (ctl *Controller) Courier() *agents.Courier { return ctl.courier }

// Target returns the current reactive/lookahead target, if any.
func (ctl *Controller) Target() (world.Coord, bool) { return ctl.target, ctl.hasTarget }

// Plan returns a copy of the remaining strategic route.
func (ctl *Controller) Plan() []world.Coord { return append([]world.Coord(nil), ctl.plan...) }

// Escaping reports whether the courier is in escape mode.
func (ctl *Controller) Escaping() bool { return ctl.history.Escaping() }
