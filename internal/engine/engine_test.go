package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/courier-sim/internal/agents"
	"github.com/talgya/courier-sim/internal/entropy"
	"github.com/talgya/courier-sim/internal/orders"
	"github.com/talgya/courier-sim/internal/weather"
	"github.com/talgya/courier-sim/internal/world"
)

var epoch = time.Unix(1_700_000_000, 0)

func TestEngineTickLayers(t *testing.T) {
	e := NewEngine(50*time.Millisecond, epoch)
	var ticks, seconds, minutes int
	var last time.Time
	e.OnTick = func(_ uint64, now time.Time) { ticks++; last = now }
	e.OnSecond = func(uint64, time.Time) { seconds++ }
	e.OnMinute = func(uint64, time.Time) { minutes++ }
	e.Done = func(tick uint64, _ time.Time) bool { return tick >= 1200 }

	e.Run(context.Background())

	assert.Equal(t, 1200, ticks)
	assert.Equal(t, 60, seconds)
	assert.Equal(t, 1, minutes)
	assert.Equal(t, epoch.Add(time.Minute), last)
	assert.Equal(t, "1:00", SimClock(e.Elapsed()))
}

func TestEngineStopsOnCancel(t *testing.T) {
	e := NewEngine(time.Second, epoch)
	ctx, cancel := context.WithCancel(context.Background())
	e.OnTick = func(tick uint64, _ time.Time) {
		if tick == 5 {
			cancel()
		}
	}
	e.Run(ctx)
	assert.Equal(t, uint64(5), e.Tick)
}

func TestEngineSpeed(t *testing.T) {
	e := NewEngine(time.Second, epoch)
	assert.Equal(t, 1.0, e.Speed())
	e.SetSpeed(4)
	assert.Equal(t, 4.0, e.Speed())
}

func newTestSim(t *testing.T, tier agents.Tier, jobs ...orders.Order) *Simulation {
	t.Helper()
	g := world.Filled(8, 8, world.TileStreet)
	cfg := weather.DefaultConfig()
	return NewSimulation(Setup{
		Grid:           g,
		Weather:        weather.NewProcess(cfg, entropy.New(1), epoch),
		WeatherOrigin:  "default",
		Couriers:       []*agents.Courier{agents.NewCourier(1, "strategic-1", tier, world.Coord{})},
		Jobs:           jobs,
		Seed:           1,
		MovesPerSecond: 8,
		InitialBoard:   1,
	}, epoch)
}

func TestSimulationDeliversOrders(t *testing.T) {
	sim := newTestSim(t, agents.TierStrategic,
		orders.Order{ID: "a", Pickup: world.Coord{X: 7, Y: 0}, Dropoff: world.Coord{X: 7, Y: 7}, Weight: 1, Payout: 100},
		orders.Order{ID: "b", Pickup: world.Coord{X: 0, Y: 7}, Dropoff: world.Coord{X: 3, Y: 3}, Weight: 1, Payout: 100, ReleaseAfter: 5 * time.Second},
	)
	require.Equal(t, 1, sim.Board.Len())
	require.Equal(t, 1, sim.Queue.Len())

	var persisted []Event
	sim.OnEvent = func(e Event) { persisted = append(persisted, e) }

	e := NewEngine(50*time.Millisecond, epoch)
	sim.Attach(e)
	e.Done = func(tick uint64, _ time.Time) bool { return sim.Finished() || tick > 20*60*3 }
	e.Run(context.Background())

	require.True(t, sim.Finished())
	sim.updateStats()
	assert.Equal(t, 2, sim.Stats.Delivered)
	assert.Equal(t, 200.0, sim.Stats.TotalScore)

	var categories []string
	for _, ev := range persisted {
		categories = append(categories, ev.Category)
	}
	assert.Contains(t, categories, "pickup")
	assert.Contains(t, categories, "delivery")
	assert.Equal(t, len(sim.Events), len(persisted))

	snap := sim.Snapshot()
	assert.Equal(t, sim.LastTick, snap.Tick)
	require.Len(t, snap.Couriers, 1)
	assert.Equal(t, "strategic", snap.Couriers[0].Tier)
	assert.Equal(t, 2, snap.Couriers[0].Deliveries)
	assert.Empty(t, snap.Open)
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	sim := newTestSim(t, agents.TierReactive)
	ch, cancel := sim.Subscribe()

	sim.TickStep(1, epoch.Add(50*time.Millisecond))
	select {
	case snap := <-ch:
		assert.Equal(t, uint64(1), snap.Tick)
	default:
		t.Fatal("no snapshot published")
	}

	cancel()
	_, open := <-ch
	assert.False(t, open)
	cancel()
}

func TestCancelCommand(t *testing.T) {
	sim := newTestSim(t, agents.TierReactive)
	sim.Couriers[0].Inventory = []orders.Order{{ID: "x", Weight: 1}}

	var result error
	require.True(t, sim.Enqueue(func(s *Simulation) {
		_, result = s.CancelLast(1)
	}))
	sim.TickStep(1, epoch.Add(50*time.Millisecond))

	assert.NoError(t, result)
	assert.False(t, sim.Couriers[0].Carrying())
	assert.Equal(t, 1, sim.Couriers[0].Cancellations)
	assert.Equal(t, "cancel", sim.Events[len(sim.Events)-1].Category)

	_, err := sim.CancelLast(9)
	assert.Error(t, err)
	_, err = sim.CancelLast(1)
	assert.Error(t, err)
}
