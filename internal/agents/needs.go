// Stamina: couriers spend resistance on every step and win it back over time.
package agents

import (
	"math"
	"time"
)

// Recovery constants.
const (
	RecoveryPerSecond = 5.0
	UnblockThreshold  = 30.0
)

// Recover adds RecoveryPerSecond for every whole second elapsed since the
// last recovery, capped at MaxResistance, and clears Blocked once resistance
// reaches UnblockThreshold. The first call only starts the clock.
func (c *Courier) Recover(now time.Time) {
	if c.lastRecover.IsZero() {
		c.lastRecover = now
		return
	}
	secs := math.Floor(now.Sub(c.lastRecover).Seconds())
	if secs < 1 {
		return
	}

	c.Resistance = math.Min(c.MaxResistance, c.Resistance+RecoveryPerSecond*secs)
	c.lastRecover = c.lastRecover.Add(time.Duration(secs) * time.Second)

	if c.Blocked && c.Resistance >= UnblockThreshold {
		c.Blocked = false
	}
}

// Exhaust marks the courier blocked and restarts the recovery clock so the
// first point comes a full second later.
func (c *Courier) Exhaust(now time.Time) {
	c.Resistance = 0
	c.Blocked = true
	c.lastRecover = now
}
