// Package movement turns courier state, terrain and weather into a movement
// speed, a per-step stamina cost, and the edge cost used by route search.
package movement

import (
	"math"

	"github.com/talgya/courier-sim/internal/agents"
	"github.com/talgya/courier-sim/internal/world"
)

// Cost model constants.
const (
	WeightSlope     = 0.03
	WeightFloor     = 0.8
	ReputationBoost = 1.03
	BoostThreshold  = 90
	TiredThreshold  = 30.0
	TiredFactor     = 0.8

	BaseStepCost      = 0.5
	FreeWeight        = 3.0
	StepCostPerWeight = 0.2
)

// SurfaceWeight is the terrain factor used for both speed and edge cost.
func SurfaceWeight(t world.Tile) float64 {
	switch t {
	case world.TileStreet:
		return 1.0
	case world.TilePark:
		return 0.95
	default:
		return 0.0
	}
}

// WeightFactor slows a courier by 3% per unit carried, never below 0.8.
func WeightFactor(weight float64) float64 {
	return math.Max(WeightFloor, 1-WeightSlope*weight)
}

// StaminaFactor is 0 when exhausted, 0.8 when tired, 1 otherwise.
func StaminaFactor(resistance float64) float64 {
	switch {
	case resistance <= 0:
		return 0
	case resistance <= TiredThreshold:
		return TiredFactor
	default:
		return 1.0
	}
}

// SpeedMultiplier returns the courier's effective speed on tile t.
func SpeedMultiplier(c *agents.Courier, t world.Tile, weatherMult float64) float64 {
	rep := 1.0
	if c.Reputation >= BoostThreshold {
		rep = ReputationBoost
	}
	v := c.BaseSpeed * weatherMult * WeightFactor(c.InventoryWeight()) * rep *
		StaminaFactor(c.Resistance) * SurfaceWeight(t)
	return math.Max(0, v)
}

// StepResistanceCost is the stamina spent on one successful step.
func StepResistanceCost(c *agents.Courier, staminaExtra float64) float64 {
	return BaseStepCost + StepCostPerWeight*math.Max(0, c.InventoryWeight()-FreeWeight) + staminaExtra
}

// ResistancePenalty inflates route costs for tired couriers so the planner
// prefers shorter routes.
func ResistancePenalty(resistance float64) float64 {
	switch {
	case resistance < 30:
		return 1.5
	case resistance < 50:
		return 1.2
	default:
		return 1.0
	}
}

// Costs is the weather and stamina context a route is priced under.
type Costs struct {
	WeatherMult  float64
	StaminaExtra float64
	Resistance   float64
}

// Edge returns the cost of stepping onto a tile of type to. Buildings are
// +Inf and must be excluded from search rather than merely penalized.
func (c Costs) Edge(to world.Tile) float64 {
	sw := SurfaceWeight(to)
	if sw <= 0 {
		return math.Inf(1)
	}
	return (1 / sw) * (2.0 - c.WeatherMult) * (1.0 + c.StaminaExtra) * ResistancePenalty(c.Resistance)
}

// EdgeCost prices the step from → to on g. Out-of-bounds and Building
// destinations are +Inf.
func EdgeCost(g *world.Grid, from, to world.Coord, weatherMult, staminaExtra, resistance float64) float64 {
	if !g.InBounds(to) || world.Manhattan(from, to) != 1 {
		return math.Inf(1)
	}
	return Costs{WeatherMult: weatherMult, StaminaExtra: staminaExtra, Resistance: resistance}.Edge(g.Tile(to))
}

// ResistanceState labels a stamina band for display.
func ResistanceState(resistance float64) string {
	switch {
	case resistance <= 0:
		return "exhausted"
	case resistance <= TiredThreshold:
		return "tired"
	case resistance <= 50:
		return "fatigued"
	default:
		return "normal"
	}
}
