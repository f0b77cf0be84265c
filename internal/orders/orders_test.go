package orders

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/courier-sim/internal/world"
)

func TestLoadJobs(t *testing.T) {
	body := `{"data": [
		{"id": "PED-1", "pickup": [1, 2], "dropoff": [3, 4], "weight": 2, "priority": 1, "payout": 250, "release_time": 30},
		{"pickup": [0, 0], "dropoff": [5, 5]}
	]}`
	list, err := LoadJobs(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, Order{
		ID:           "PED-1",
		Pickup:       world.Coord{X: 1, Y: 2},
		Dropoff:      world.Coord{X: 3, Y: 4},
		Weight:       2,
		Priority:     1,
		Payout:       250,
		ReleaseAfter: 30 * time.Second,
	}, list[0])

	assert.Equal(t, "job-002", list[1].ID)
	assert.Equal(t, 1.0, list[1].Weight)
	assert.Equal(t, 0, list[1].Priority)
	assert.Equal(t, 100.0, list[1].Payout)

	_, err = LoadJobs(strings.NewReader(`{"jobs": []}`))
	assert.ErrorIs(t, err, ErrNoJobs)
	_, err = LoadJobs(strings.NewReader(`[`))
	assert.Error(t, err)
}

func TestQueuePriorityThenFIFO(t *testing.T) {
	q := NewQueue([]Order{
		{ID: "a", Priority: 0},
		{ID: "b", Priority: 2},
		{ID: "c", Priority: 0},
		{ID: "d", Priority: 2},
	})
	q.Push(Order{ID: "e", Priority: 1})
	assert.Equal(t, 5, q.Len())

	head, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, "b", head.ID)

	var ids []string
	for q.Len() > 0 {
		o, ok := q.Next()
		require.True(t, ok)
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []string{"b", "d", "e", "a", "c"}, ids)

	_, ok = q.Next()
	assert.False(t, ok)
}

func TestBoard(t *testing.T) {
	b := NewBoard()
	q := NewQueue([]Order{{ID: "low"}, {ID: "high", Priority: 1}, {ID: "mid"}})

	assert.Equal(t, 2, b.Release(q, 2))
	assert.Equal(t, []string{"high", "low"}, ids(b.Orders()))
	assert.Equal(t, 1, q.Len())

	assert.True(t, b.Remove("low"))
	assert.False(t, b.Remove("low"))
	assert.Equal(t, 1, b.Len())

	// Orders is a copy.
	list := b.Orders()
	list[0].ID = "mutated"
	assert.Equal(t, "high", b.Orders()[0].ID)
}

func TestReleaseDue(t *testing.T) {
	b := NewBoard()
	q := NewQueue([]Order{
		{ID: "now"},
		{ID: "later", Priority: 2, ReleaseAfter: time.Minute},
		{ID: "soon", ReleaseAfter: 10 * time.Second},
	})

	assert.Equal(t, 1, b.ReleaseDue(q, 0))
	assert.Equal(t, []string{"now"}, ids(b.Orders()))
	assert.Equal(t, 1, b.ReleaseDue(q, 15*time.Second))
	assert.Equal(t, 0, b.ReleaseDue(q, 30*time.Second))
	assert.Equal(t, 1, b.ReleaseDue(q, time.Minute))
	assert.Equal(t, []string{"now", "soon", "later"}, ids(b.Orders()))
	assert.Zero(t, q.Len())
}

func TestGenerateAvoidsBuildings(t *testing.T) {
	g := world.Generate(world.SmallTestConfig())
	cfg := DefaultGenConfig()
	cfg.Count = 5
	cfg.Separation = 1

	a := Generate(g, cfg, rand.New(rand.NewSource(3)))
	b := Generate(g, cfg, rand.New(rand.NewSource(3)))
	assert.Equal(t, a, b)
	require.NotEmpty(t, a)

	for _, o := range a {
		assert.True(t, g.Passable(o.Pickup), o.ID)
		assert.True(t, g.Passable(o.Dropoff), o.ID)
		assert.NotEqual(t, o.Pickup, o.Dropoff)
		assert.GreaterOrEqual(t, o.Weight, 1.0)
		assert.LessOrEqual(t, o.Priority, cfg.MaxPriority)
		assert.GreaterOrEqual(t, o.Payout, float64(cfg.MinPayout))
	}
}

func TestRelocate(t *testing.T) {
	g := world.MustParseRows(
		"CCCB",
		"CBBB",
		"CCCC",
	)
	list := []Order{
		{ID: "on-building", Pickup: world.Coord{X: 2, Y: 1}, Dropoff: world.Coord{X: 0, Y: 2}},
		{ID: "off-grid", Pickup: world.Coord{X: 9, Y: 9}, Dropoff: world.Coord{X: 0, Y: 2}},
	}
	Relocate(g, list, 0)

	seen := map[world.Coord]bool{}
	for _, o := range list {
		for _, c := range []world.Coord{o.Pickup, o.Dropoff} {
			assert.True(t, g.Passable(c), "%s -> %s", o.ID, c)
			assert.False(t, seen[c], "%s reused %s", o.ID, c)
			seen[c] = true
		}
	}
	assert.Equal(t, world.Coord{X: 0, Y: 2}, list[0].Dropoff)
}

func ids(list []Order) []string {
	out := make([]string, len(list))
	for i, o := range list {
		out[i] = o.ID
	}
	return out
}
