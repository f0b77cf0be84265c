// Package orders defines delivery orders, the priority queue that releases
// them, and the board of orders currently open for pickup.
package orders

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/talgya/courier-sim/internal/world"
)

// ErrNoJobs is returned when a job description carries no data envelope.
var ErrNoJobs = errors.New("job description has no data")

// Order is a delivery job. Orders are values: the board and couriers hold
// copies, and ownership moves by removing from one and adding to the other.
type Order struct {
	ID       string      `json:"id"`
	Pickup   world.Coord `json:"pickup"`
	Dropoff  world.Coord `json:"dropoff"`
	Weight   float64     `json:"weight"`
	Priority int         `json:"priority"` // Higher is more urgent
	Payout   float64     `json:"payout"`

	// ReleaseAfter is the offset from session start at which the order may be
	// moved from the queue to the board.
	ReleaseAfter time.Duration `json:"release_after"`

	PickedUpAt time.Time `json:"picked_up_at"`
}

// Rank orders carried work: priority dominates, payout breaks ties.
func (o Order) Rank() float64 {
	return float64(o.Priority)*100 + o.Payout
}

// job is the external wire form: coordinates as [x, y] pairs and release
// time in seconds.
type job struct {
	ID          string   `json:"id"`
	Pickup      [2]int   `json:"pickup"`
	Dropoff     [2]int   `json:"dropoff"`
	Weight      *float64 `json:"weight"`
	Priority    *int     `json:"priority"`
	Payout      *float64 `json:"payout"`
	ReleaseTime float64  `json:"release_time"`
}

// LoadJobs reads {"data": [{"id": ..., "pickup": [x, y], "dropoff": [x, y],
// "weight": 1, "priority": 0, "payout": 100, "release_time": 0}, ...]}.
// Missing weight, priority and payout default to 1, 0 and 100.
func LoadJobs(r io.Reader) ([]Order, error) {
	var env struct {
		Data *[]job `json:"data"`
	}
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode jobs: %w", err)
	}
	if env.Data == nil {
		return nil, ErrNoJobs
	}

	out := make([]Order, 0, len(*env.Data))
	for i, j := range *env.Data {
		o := Order{
			ID:           j.ID,
			Pickup:       world.Coord{X: j.Pickup[0], Y: j.Pickup[1]},
			Dropoff:      world.Coord{X: j.Dropoff[0], Y: j.Dropoff[1]},
			Weight:       1,
			Payout:       100,
			ReleaseAfter: time.Duration(j.ReleaseTime * float64(time.Second)),
		}
		if o.ID == "" {
			o.ID = fmt.Sprintf("job-%03d", i+1)
		}
		if j.Weight != nil {
			o.Weight = *j.Weight
		}
		if j.Priority != nil {
			o.Priority = *j.Priority
		}
		if j.Payout != nil {
			o.Payout = *j.Payout
		}
		out = append(out, o)
	}
	return out, nil
}

// LoadJobsFile reads a job description from disk.
func LoadJobsFile(path string) ([]Order, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open jobs: %w", err)
	}
	defer f.Close()
	return LoadJobs(f)
}

// GenConfig controls random job generation.
type GenConfig struct {
	Count       int
	Separation  int
	MaxWeight   int
	MaxPriority int
	MinPayout   int
	MaxPayout   int
	Spread      time.Duration // Release times are spread evenly over this window
}

// DefaultGenConfig mirrors the job mix of the reference city feed.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Count:       12,
		Separation:  2,
		MaxWeight:   4,
		MaxPriority: 2,
		MinPayout:   80,
		MaxPayout:   300,
		Spread:      2 * time.Minute,
	}
}

// Generate creates jobs with separated pickup and drop-off cells on g.
// It stops early when the grid has no room left.
func Generate(g *world.Grid, cfg GenConfig, rng *rand.Rand) []Order {
	occupied := make(map[world.Coord]bool)
	var out []Order
	for i := 0; i < cfg.Count; i++ {
		pickup, ok := world.PlaceSeparated(g, occupied, cfg.Separation, rng)
		if !ok {
			break
		}
		dropoff, ok := world.PlaceSeparated(g, occupied, cfg.Separation, rng)
		if !ok {
			break
		}

		o := Order{
			ID:       fmt.Sprintf("job-%03d", i+1),
			Pickup:   pickup,
			Dropoff:  dropoff,
			Weight:   float64(1 + rng.Intn(max(1, cfg.MaxWeight))),
			Priority: rng.Intn(cfg.MaxPriority + 1),
			Payout:   float64(cfg.MinPayout + rng.Intn(max(1, cfg.MaxPayout-cfg.MinPayout+1))),
		}
		if cfg.Count > 1 {
			o.ReleaseAfter = cfg.Spread * time.Duration(i) / time.Duration(cfg.Count)
		}
		out = append(out, o)
	}
	return out
}

// Relocate moves pickup and drop-off points that sit on Buildings, outside
// the grid, or on an already claimed cell to the nearest free one.
func Relocate(g *world.Grid, list []Order, separation int) {
	occupied := make(map[world.Coord]bool)
	for i := range list {
		list[i].Pickup = relocatePoint(g, list[i].Pickup, occupied, separation)
		list[i].Dropoff = relocatePoint(g, list[i].Dropoff, occupied, separation)
	}
}

func relocatePoint(g *world.Grid, c world.Coord, occupied map[world.Coord]bool, separation int) world.Coord {
	if !g.InBounds(c) {
		c = world.Coord{
			X: min(max(c.X, 0), g.Width()-1),
			Y: min(max(c.Y, 0), g.Height()-1),
		}
	}
	return world.Relocate(g, c, occupied, separation)
}
