package decision

import (
	"log/slog"
	"math"
	"time"

	"github.com/talgya/courier-sim/internal/movement"
	"github.com/talgya/courier-sim/internal/pathfind"
)

// Strategic tier tuning.
const (
	ReplanInterval     = 10 * time.Second
	WeatherReplanDelta = 0.1
)

func (ctl *Controller) stepStrategic(t Tick) {
	if ctl.needsReplan(t) {
		ctl.replan(t)
	}
	if len(ctl.plan) == 0 {
		if ctl.hasTarget && ctl.courier.Position == ctl.target {
			return
		}
		ctl.randomMove(t)
		return
	}

	next := ctl.plan[0]
	if ctl.mover.StepTo(ctl.courier, next, t.WeatherMult, t.StaminaExtra, t.Now) {
		ctl.plan = ctl.plan[1:]
		return
	}
	ctl.plan = nil
}

func (ctl *Controller) needsReplan(t Tick) bool {
	return len(ctl.plan) == 0 ||
		t.Now.Sub(ctl.lastReplan) > ReplanInterval ||
		math.Abs(t.WeatherMult-ctl.lastWeather) > WeatherReplanDelta
}

// replan targets the drop-off of the carried order the ledger will accept
// first, or else the open order with the best score that fits. No reachable
// target clears the plan.
func (ctl *Controller) replan(t Tick) {
	c := ctl.courier
	costs := movement.Costs{WeatherMult: t.WeatherMult, StaminaExtra: t.StaminaExtra, Resistance: c.Resistance}
	g := ctl.mover.Grid()

	ctl.lastReplan = t.Now
	ctl.lastWeather = t.WeatherMult
	ctl.plan = nil
	ctl.hasTarget = false

	if o, ok := c.TopDeliverable(); ok {
		if path := pathfind.Path(g, c.Position, o.Dropoff, costs); path != nil {
			ctl.plan, ctl.target, ctl.hasTarget = path, o.Dropoff, true
		}
		slog.Debug("replanned delivery", "courier", c.Name, "order", o.ID, "steps", len(ctl.plan), "reachable", ctl.hasTarget)
		return
	}

	bestScore := math.Inf(-1)
	var bestID string
	for _, o := range ctl.inv.Available() {
		if o.Weight > c.RemainingCapacity() {
			continue
		}
		path := pathfind.Path(g, c.Position, o.Pickup, costs)
		if path == nil {
			continue
		}
		s := Score(o.Payout, o.Priority, len(path), t.WeatherMult, c.Resistance)
		if s > bestScore {
			bestScore, bestID = s, o.ID
			ctl.plan, ctl.target, ctl.hasTarget = path, o.Pickup, true
		}
	}
	if ctl.hasTarget {
		slog.Debug("replanned pickup", "courier", c.Name, "order", bestID, "steps", len(ctl.plan), "score", bestScore)
	}
}

// Score values an open order reached by a route of pathLen steps.
func Score(payout float64, priority, pathLen int, weatherMult, resistance float64) float64 {
	s := payout / float64(pathLen+1)
	if priority >= 1 {
		s *= 1.5
	}
	if weatherMult < 0.85 {
		s *= 0.8
	}
	if resistance > 70 {
		s *= 1.1
	}
	if resistance < 30 && pathLen > 10 {
		s *= 0.5
	}
	return s
}
