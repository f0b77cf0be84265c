// Package agents provides the courier record, stamina recovery, and the
// inventory/reputation ledger that pickups and deliveries go through.
package agents

import (
	"time"

	"github.com/talgya/courier-sim/internal/orders"
	"github.com/talgya/courier-sim/internal/world"
)

// CourierID is a unique identifier for a courier.
type CourierID uint32

// Tier determines how a courier makes decisions.
type Tier uint8

const (
	TierReactive  Tier = 0 // Random walk with a loose target
	TierLookahead Tier = 1 // Depth-2 expectimax toward the best-valued order
	TierStrategic Tier = 2 // A* planning with periodic and weather-triggered replans
)

// String returns the tier's config name.
func (t Tier) String() string {
	switch t {
	case TierReactive:
		return "reactive"
	case TierLookahead:
		return "lookahead"
	case TierStrategic:
		return "strategic"
	default:
		return "unknown"
	}
}

// ParseTier accepts the config names and the difficulty labels older config
// files use (easy, medium, hard and their Spanish forms).
func ParseTier(s string) (Tier, bool) {
	switch s {
	case "reactive", "easy", "facil":
		return TierReactive, true
	case "lookahead", "medium", "media":
		return TierLookahead, true
	case "strategic", "hard", "dificil":
		return TierStrategic, true
	default:
		return TierReactive, false
	}
}

// Courier defaults.
const (
	DefaultMaxResistance = 100.0
	DefaultCapacity      = 10.0
	DefaultBaseSpeed     = 3.0
	DefaultReputation    = 70
)

// Courier is one delivery agent. It is owned by the simulation and mutated
// only from the tick loop.
type Courier struct {
	ID   CourierID `json:"id"`
	Name string    `json:"name"`
	Tier Tier      `json:"tier"`

	Position world.Coord `json:"position"`

	// Stamina
	Resistance    float64   `json:"resistance"` // 0–MaxResistance
	MaxResistance float64   `json:"max_resistance"`
	Blocked       bool      `json:"blocked"`
	lastRecover   time.Time // Zero until the first Recover call

	// Carrying
	Inventory []orders.Order `json:"inventory"` // Pickup order
	Capacity  float64        `json:"capacity"`
	BaseSpeed float64        `json:"base_speed"`

	// Standing
	Reputation    int     `json:"reputation"` // 0–100
	Score         float64 `json:"score"`
	Deliveries    int     `json:"deliveries"`
	EarlyCount    int     `json:"early"`
	LateCount     int     `json:"late"`
	Cancellations int     `json:"cancellations"`
	onTimeStreak  int

	// MoveAttempts counts rejected moves since the last successful one.
	MoveAttempts int `json:"move_attempts"`
	Moves        int `json:"moves"`
}

// NewCourier creates a rested courier with default capacity and reputation.
func NewCourier(id CourierID, name string, tier Tier, pos world.Coord) *Courier {
	return &Courier{
		ID:            id,
		Name:          name,
		Tier:          tier,
		Position:      pos,
		Resistance:    DefaultMaxResistance,
		MaxResistance: DefaultMaxResistance,
		Capacity:      DefaultCapacity,
		BaseSpeed:     DefaultBaseSpeed,
		Reputation:    DefaultReputation,
	}
}

// InventoryWeight returns the total weight carried.
func (c *Courier) InventoryWeight() float64 {
	w := 0.0
	for _, o := range c.Inventory {
		w += o.Weight
	}
	return w
}

// RemainingCapacity returns how much more weight fits.
func (c *Courier) RemainingCapacity() float64 {
	return c.Capacity - c.InventoryWeight()
}

// Carrying reports whether the inventory is non-empty.
func (c *Courier) Carrying() bool {
	return len(c.Inventory) > 0
}

// TopDeliverable returns the carried order the Ledger would let c deliver
// first: among orders of the highest carried priority, the one with the
// highest Rank (priority×100 + payout). The first one wins ties.
func (c *Courier) TopDeliverable() (orders.Order, bool) {
	urgent, ok := c.MostUrgent()
	if !ok {
		return orders.Order{}, false
	}
	best := urgent
	for _, o := range c.Inventory {
		if o.Priority == urgent.Priority && o.Rank() > best.Rank() {
			best = o
		}
	}
	return best, true
}

// MostUrgent returns the first carried order of the highest priority.
func (c *Courier) MostUrgent() (orders.Order, bool) {
	if len(c.Inventory) == 0 {
		return orders.Order{}, false
	}
	best := c.Inventory[0]
	for _, o := range c.Inventory[1:] {
		if o.Priority > best.Priority {
			best = o
		}
	}
	return best, true
}
