// Inventory and reputation bookkeeping for pickups, deliveries and
// cancellations.
package agents

import (
	"log/slog"
	"time"

	"github.com/talgya/courier-sim/internal/orders"
)

// Delivery timing bands, measured from pickup.
const (
	EarlyWindow    = 16 * time.Second
	OnTimeWindow   = 20 * time.Second
	SlightlyLate   = 50 * time.Second
	Late           = 140 * time.Second
	StreakLength   = 3
	StreakBonus    = 2
	CancelPenalty  = 4
	BonusThreshold = 90 // Reputation at or above this earns the payout bonus
	BonusRate      = 0.05
)

// Receipt describes one completed delivery.
type Receipt struct {
	Order            orders.Order  `json:"order"`
	Elapsed          time.Duration `json:"elapsed"`
	ReputationChange int           `json:"reputation_change"`
	Bonus            float64       `json:"bonus"`
	StreakBonus      bool          `json:"streak_bonus"`
}

// Ledger moves orders between the board and courier inventories and applies
// the reputation and scoring rules.
type Ledger struct {
	board *orders.Board

	// OnPickup and OnDeliver, when set, are called after the state change.
	OnPickup  func(c *Courier, o orders.Order)
	OnDeliver func(c *Courier, r Receipt)
}

// NewLedger creates a ledger over the given board.
func NewLedger(board *orders.Board) *Ledger {
	return &Ledger{board: board}
}

// Available returns the orders open for pickup.
func (l *Ledger) Available() []orders.Order {
	return l.board.Orders()
}

// TryPickup claims o for c when c stands on its pickup cell, the order is
// still on the board, and it fits the remaining capacity.
func (l *Ledger) TryPickup(c *Courier, o orders.Order, now time.Time) bool {
	if c.Position != o.Pickup {
		return false
	}
	if c.InventoryWeight()+o.Weight > c.Capacity {
		return false
	}
	if !l.board.Remove(o.ID) {
		return false
	}

	o.PickedUpAt = now
	c.Inventory = append(c.Inventory, o)

	slog.Debug("order picked up", "courier", c.Name, "order", o.ID, "weight", o.Weight)
	if l.OnPickup != nil {
		l.OnPickup(c, o)
	}
	return true
}

// TryDeliver completes the first carried order of the highest carried
// priority whose drop-off is c's cell. Lower-priority orders wait.
func (l *Ledger) TryDeliver(c *Courier, now time.Time) (orders.Order, bool) {
	if len(c.Inventory) == 0 {
		return orders.Order{}, false
	}

	top := c.Inventory[0].Priority
	for _, o := range c.Inventory[1:] {
		top = max(top, o.Priority)
	}

	for i, o := range c.Inventory {
		if o.Priority != top || o.Dropoff != c.Position {
			continue
		}
		c.Inventory = append(c.Inventory[:i], c.Inventory[i+1:]...)
		r := l.settle(c, o, now)

		slog.Info("order delivered",
			"courier", c.Name,
			"order", o.ID,
			"elapsed", r.Elapsed.Round(time.Second),
			"reputation", c.Reputation,
			"score", c.Score,
		)
		if l.OnDeliver != nil {
			l.OnDeliver(c, r)
		}
		return o, true
	}
	return orders.Order{}, false
}

// CancelLast drops the most recently picked-up order with a reputation
// penalty. The order is not returned to the board.
func (l *Ledger) CancelLast(c *Courier) (orders.Order, bool) {
	if len(c.Inventory) == 0 {
		return orders.Order{}, false
	}
	o := c.Inventory[len(c.Inventory)-1]
	c.Inventory = c.Inventory[:len(c.Inventory)-1]
	c.Reputation = clampReputation(c.Reputation - CancelPenalty)
	c.Cancellations++

	slog.Info("order cancelled", "courier", c.Name, "order", o.ID, "reputation", c.Reputation)
	return o, true
}

func (l *Ledger) settle(c *Courier, o orders.Order, now time.Time) Receipt {
	elapsed := now.Sub(o.PickedUpAt)
	if o.PickedUpAt.IsZero() {
		elapsed = 0
	}
	r := Receipt{Order: o, Elapsed: elapsed}

	onTime := elapsed <= OnTimeWindow
	switch {
	case elapsed <= EarlyWindow:
		r.ReputationChange = 5
		c.EarlyCount++
	case onTime:
		r.ReputationChange = 3
	case elapsed <= SlightlyLate:
		r.ReputationChange = -2
	case elapsed <= Late:
		r.ReputationChange = -5
	default:
		r.ReputationChange = -10
	}
	if !onTime {
		c.LateCount++
	}
	c.Reputation = clampReputation(c.Reputation + r.ReputationChange)

	c.Score += o.Payout
	if c.Reputation >= BonusThreshold {
		r.Bonus = float64(int(o.Payout * BonusRate))
		c.Score += r.Bonus
	}
	c.Deliveries++

	if onTime {
		c.onTimeStreak++
		if c.onTimeStreak >= StreakLength {
			c.Reputation = clampReputation(c.Reputation + StreakBonus)
			c.onTimeStreak = 0
			r.StreakBonus = true
		}
	} else {
		c.onTimeStreak = 0
	}
	return r
}

func clampReputation(r int) int {
	return min(100, max(0, r))
}
