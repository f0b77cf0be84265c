// Read-only views of the simulation for the API and the CLI. The engine
// goroutine publishes a fresh Snapshot after every tick.
package engine

import (
	"time"

	"github.com/talgya/courier-sim/internal/agents"
	"github.com/talgya/courier-sim/internal/movement"
	"github.com/talgya/courier-sim/internal/orders"
	"github.com/talgya/courier-sim/internal/weather"
	"github.com/talgya/courier-sim/internal/world"
)

const (
	snapshotEvents = 50
	subscriberBuf  = 8
)

// CourierView is one courier as seen from outside the tick loop.
type CourierView struct {
	ID         agents.CourierID `json:"id"`
	Name       string           `json:"name"`
	Tier       string           `json:"tier"`
	Position   world.Coord      `json:"position"`
	Resistance float64          `json:"resistance"`
	Stamina    string           `json:"stamina"`
	Blocked    bool             `json:"blocked"`
	Reputation int              `json:"reputation"`
	Score      float64          `json:"score"`
	Deliveries int              `json:"deliveries"`
	Carrying   []string         `json:"carrying"`
	Load       float64          `json:"load"`
	Target     *world.Coord     `json:"target,omitempty"`
	PlanSteps  int              `json:"plan_steps"`
	Escaping   bool             `json:"escaping"`
}

// Snapshot is an immutable copy of the run state at one tick.
type Snapshot struct {
	Tick     uint64           `json:"tick"`
	Elapsed  time.Duration    `json:"elapsed"`
	Clock    string           `json:"clock"`
	Weather  weather.Snapshot `json:"weather"`
	Origin   string           `json:"weather_origin"`
	Couriers []CourierView    `json:"couriers"`
	Open     []orders.Order   `json:"open_orders"`
	Stats    SimStats         `json:"stats"`
	Events   []Event          `json:"events"`
}

// Snapshot returns the most recently published snapshot.
func (s *Simulation) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Subscribe returns a channel receiving every published snapshot and a
// cancel function. A subscriber that falls behind misses snapshots.
func (s *Simulation) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Snapshot, subscriberBuf)
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

func (s *Simulation) publish(now time.Time) {
	snap := s.buildSnapshot(now)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *Simulation) buildSnapshot(now time.Time) Snapshot {
	snap := Snapshot{
		Tick:    s.LastTick,
		Elapsed: now.Sub(s.Epoch),
		Clock:   SimClock(now.Sub(s.Epoch)),
		Weather: s.Weather.Snapshot(now),
		Origin:  s.WeatherOrigin,
		Open:    s.Board.Orders(),
		Stats:   s.Stats,
	}

	for i, c := range s.Couriers {
		v := CourierView{
			ID:         c.ID,
			Name:       c.Name,
			Tier:       c.Tier.String(),
			Position:   c.Position,
			Resistance: c.Resistance,
			Stamina:    movement.ResistanceState(c.Resistance),
			Blocked:    c.Blocked,
			Reputation: c.Reputation,
			Score:      c.Score,
			Deliveries: c.Deliveries,
			Load:       c.InventoryWeight(),
		}
		for _, o := range c.Inventory {
			v.Carrying = append(v.Carrying, o.ID)
		}
		if i < len(s.Controllers) {
			ctl := s.Controllers[i]
			if t, ok := ctl.Target(); ok {
				v.Target = &t
			}
			v.PlanSteps = len(ctl.Plan())
			v.Escaping = ctl.Escaping()
		}
		snap.Couriers = append(snap.Couriers, v)
	}

	start := max(0, len(s.Events)-snapshotEvents)
	snap.Events = append([]Event(nil), s.Events[start:]...)
	return snap
}
