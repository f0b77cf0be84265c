// Simulation ties together the city, weather, orders and couriers and runs
// them each tick.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/courier-sim/internal/agents"
	"github.com/talgya/courier-sim/internal/decision"
	"github.com/talgya/courier-sim/internal/entropy"
	"github.com/talgya/courier-sim/internal/movement"
	"github.com/talgya/courier-sim/internal/orders"
	"github.com/talgya/courier-sim/internal/weather"
	"github.com/talgya/courier-sim/internal/world"
)

// maxEvents bounds the in-memory event log.
const maxEvents = 1000

// Setup is everything a Simulation is built from.
type Setup struct {
	Grid           *world.Grid
	Weather        *weather.Process
	WeatherOrigin  string // "remote", "local" or "default"
	Couriers       []*agents.Courier
	Jobs           []orders.Order
	Seed           int64
	MovesPerSecond float64
	InitialBoard   int // Orders released onto the board before the first tick
}

// Simulation holds the complete run state and wires systems together.
// All mutation happens on the engine goroutine; readers use Snapshot and
// Subscribe.
type Simulation struct {
	Grid          *world.Grid
	Weather       *weather.Process
	WeatherOrigin string
	Couriers      []*agents.Courier
	Controllers   []*decision.Controller
	Queue         *orders.Queue
	Board         *orders.Board
	Ledger        *agents.Ledger
	Mover         *movement.Mover
	Events        []Event // Recent events, trimmed to maxEvents
	LastTick      uint64
	Epoch         time.Time
	now           time.Time
	Stats         SimStats

	// OnEvent, when set, receives every event as it is recorded.
	OnEvent func(Event)

	index    map[agents.CourierID]*agents.Courier
	commands chan func(*Simulation)

	mu       sync.RWMutex
	snapshot Snapshot
	subs     map[int]chan Snapshot
	nextSub  int
}

// Event is a notable occurrence in the run.
type Event struct {
	Tick        uint64  `json:"tick" db:"tick"`
	Elapsed     float64 `json:"elapsed" db:"elapsed"` // Simulated seconds since start
	Description string  `json:"description" db:"description"`
	Category    string  `json:"category" db:"category"` // "weather", "pickup", "delivery", "cancel", "system"
	CourierID   uint32  `json:"courier_id,omitempty" db:"courier_id"`
}

// SimStats tracks aggregate run statistics.
type SimStats struct {
	Delivered      int     `json:"delivered"`
	Cancelled      int     `json:"cancelled"`
	OpenOrders     int     `json:"open_orders"`
	QueuedOrders   int     `json:"queued_orders"`
	CarriedOrders  int     `json:"carried_orders"`
	TotalScore     float64 `json:"total_score"`
	AvgReputation  float64 `json:"avg_reputation"`
	AvgResistance  float64 `json:"avg_resistance"`
	BlockedNow     int     `json:"blocked_now"`
	RejectedMoves  int     `json:"rejected_moves"`
	WeatherChanges int     `json:"weather_changes"`
}

// NewSimulation creates a Simulation and releases the initial board.
func NewSimulation(s Setup, epoch time.Time) *Simulation {
	queue := orders.NewQueue(s.Jobs)
	board := orders.NewBoard()
	board.Release(queue, s.InitialBoard)

	sim := &Simulation{
		Grid:          s.Grid,
		Weather:       s.Weather,
		WeatherOrigin: s.WeatherOrigin,
		Couriers:      s.Couriers,
		Queue:         queue,
		Board:         board,
		Ledger:        agents.NewLedger(board),
		Mover:         movement.NewMover(s.Grid),
		Epoch:         epoch,
		now:           epoch,
		commands:      make(chan func(*Simulation), 64),
		index:         make(map[agents.CourierID]*agents.Courier, len(s.Couriers)),
		subs:          make(map[int]chan Snapshot),
	}

	for i, c := range s.Couriers {
		sim.index[c.ID] = c
		rng := entropy.Derive(s.Seed, int64(10+i))
		sim.Controllers = append(sim.Controllers, decision.New(c, sim.Mover, sim.Ledger, rng, s.MovesPerSecond))
	}

	sim.Ledger.OnPickup = func(c *agents.Courier, o orders.Order) {
		sim.record(Event{
			Description: fmt.Sprintf("%s picked up %s (weight %.0f, priority %d)", c.Name, o.ID, o.Weight, o.Priority),
			Category:    "pickup",
			CourierID:   uint32(c.ID),
		})
	}
	sim.Ledger.OnDeliver = func(c *agents.Courier, r agents.Receipt) {
		sim.record(Event{
			Description: fmt.Sprintf("%s delivered %s after %s for $%.0f (reputation %+d)",
				c.Name, r.Order.ID, r.Elapsed.Round(time.Second), r.Order.Payout+r.Bonus, r.ReputationChange),
			Category:  "delivery",
			CourierID: uint32(c.ID),
		})
	}

	sim.updateStats()
	sim.publish(epoch)
	return sim
}

// Attach wires the simulation's tick layers into e.
func (s *Simulation) Attach(e *Engine) {
	e.OnTick = s.TickStep
	e.OnSecond = s.TickSecond
	e.OnMinute = s.TickMinute
}

// TickStep runs every tick: weather, order release, recovery, decisions.
func (s *Simulation) TickStep(tick uint64, now time.Time) {
	s.LastTick = tick
	s.now = now
	s.drainCommands()

	if s.Weather.Advance(now) {
		cur := s.Weather.Current()
		s.Stats.WeatherChanges++
		s.record(Event{
			Description: fmt.Sprintf("weather turns %s (intensity %.2f)", weather.Name(cur.Condition), cur.Intensity),
			Category:    "weather",
		})
	}
	mult := s.Weather.Multiplier(now)
	extra := s.Weather.StaminaExtra(now)

	if n := s.Board.ReleaseDue(s.Queue, now.Sub(s.Epoch)); n > 0 {
		slog.Debug("orders released", "count", n, "open", s.Board.Len())
	}

	t := decision.Tick{Now: now, WeatherMult: mult, StaminaExtra: extra}
	for i, c := range s.Couriers {
		c.Recover(now)
		s.Controllers[i].Step(t)
	}

	s.publish(now)
}

// TickSecond runs every simulated second: statistics.
func (s *Simulation) TickSecond(tick uint64, now time.Time) {
	s.updateStats()
}

// TickMinute runs every simulated minute: status report and event trimming.
func (s *Simulation) TickMinute(tick uint64, now time.Time) {
	snap := s.Weather.Snapshot(now)
	slog.Info("status report",
		"tick", tick,
		"time", SimClock(now.Sub(s.Epoch)),
		"weather", snap.Name,
		"multiplier", fmt.Sprintf("%.3f", snap.Multiplier),
		"delivered", s.Stats.Delivered,
		"open", s.Stats.OpenOrders,
		"queued", s.Stats.QueuedOrders,
		"carried", s.Stats.CarriedOrders,
		"total_score", fmt.Sprintf("%.0f", s.Stats.TotalScore),
		"avg_reputation", fmt.Sprintf("%.1f", s.Stats.AvgReputation),
	)

	if len(s.Events) > maxEvents {
		s.Events = s.Events[len(s.Events)-maxEvents:]
	}
}

// Finished reports whether every order has been delivered or cancelled.
func (s *Simulation) Finished() bool {
	if s.Queue.Len() > 0 || s.Board.Len() > 0 {
		return false
	}
	for _, c := range s.Couriers {
		if c.Carrying() {
			return false
		}
	}
	return true
}

// CancelLast drops the named courier's most recent pickup. Must run on the
// engine goroutine; other goroutines go through Enqueue.
func (s *Simulation) CancelLast(id agents.CourierID) (orders.Order, error) {
	c, ok := s.index[id]
	if !ok {
		return orders.Order{}, fmt.Errorf("courier %d not found", id)
	}
	o, ok := s.Ledger.CancelLast(c)
	if !ok {
		return orders.Order{}, fmt.Errorf("courier %d carries nothing", id)
	}
	s.record(Event{
		Description: fmt.Sprintf("%s cancelled %s", c.Name, o.ID),
		Category:    "cancel",
		CourierID:   uint32(c.ID),
	})
	return o, nil
}

// Enqueue schedules fn to run on the engine goroutine at the start of the next
// tick. Returns false when the command buffer is full.
func (s *Simulation) Enqueue(fn func(*Simulation)) bool {
	select {
	case s.commands <- fn:
		return true
	default:
		return false
	}
}

func (s *Simulation) drainCommands() {
	for {
		select {
		case fn := <-s.commands:
			fn(s)
		default:
			return
		}
	}
}

// Elapsed is the simulated time since the run started.
func (s *Simulation) Elapsed() time.Duration {
	return s.now.Sub(s.Epoch)
}

func (s *Simulation) record(e Event) {
	e.Tick = s.LastTick
	e.Elapsed = s.Elapsed().Seconds()
	s.Events = append(s.Events, e)
	if s.OnEvent != nil {
		s.OnEvent(e)
	}
}

func (s *Simulation) updateStats() {
	st := SimStats{
		OpenOrders:     s.Board.Len(),
		QueuedOrders:   s.Queue.Len(),
		RejectedMoves:  s.Mover.Rejected,
		WeatherChanges: s.Stats.WeatherChanges,
	}
	for _, c := range s.Couriers {
		st.Delivered += c.Deliveries
		st.Cancelled += c.Cancellations
		st.CarriedOrders += len(c.Inventory)
		st.TotalScore += c.Score
		st.AvgReputation += float64(c.Reputation)
		st.AvgResistance += c.Resistance
		if c.Blocked {
			st.BlockedNow++
		}
	}
	if n := len(s.Couriers); n > 0 {
		st.AvgReputation /= float64(n)
		st.AvgResistance /= float64(n)
	}
	s.Stats = st
}
