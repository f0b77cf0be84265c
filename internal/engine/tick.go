// Package engine provides the tick-based simulation loop. Every tick advances
// simulated time by a fixed interval and passes that instant explicitly to
// each system, so a run can be paced against the wall clock or fast-forwarded.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Engine drives the simulation forward.
type Engine struct {
	Tick     uint64        // Current tick counter (monotonic, never resets)
	Interval time.Duration // Simulated time per tick
	Epoch    time.Time     // Simulated instant of tick 0
	Realtime bool          // Sleep between ticks; false fast-forwards

	// Ticks per simulated second and minute, derived from Interval.
	ticksPerSecond uint64
	ticksPerMinute uint64

	mu    sync.Mutex
	speed float64 // 1.0 = real-time, 0 = paused; only used when Realtime

	// Callbacks for each tick layer, populated during setup.
	OnTick   func(tick uint64, now time.Time) // Every tick
	OnSecond func(tick uint64, now time.Time) // Every simulated second
	OnMinute func(tick uint64, now time.Time) // Every simulated minute

	// Done, when set, is checked after every tick; returning true ends Run.
	Done func(tick uint64, now time.Time) bool
}

// NewEngine creates an engine stepping interval of simulated time per tick.
func NewEngine(interval time.Duration, epoch time.Time) *Engine {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	perSecond := uint64(time.Second / interval)
	if perSecond == 0 {
		perSecond = 1
	}
	return &Engine{
		Interval:       interval,
		Epoch:          epoch,
		ticksPerSecond: perSecond,
		ticksPerMinute: perSecond * 60,
		speed:          1.0,
	}
}

// Now returns the simulated instant of the current tick.
func (e *Engine) Now() time.Time {
	return e.Epoch.Add(time.Duration(e.Tick) * e.Interval)
}

// Elapsed returns simulated time since the epoch.
func (e *Engine) Elapsed() time.Duration {
	return time.Duration(e.Tick) * e.Interval
}

// SetSpeed changes the real-time multiplier. Safe to call from other
// goroutines.
func (e *Engine) SetSpeed(speed float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speed = speed
}

// Speed returns the real-time multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// Run advances the simulation until ctx is cancelled or Done reports true.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("simulation engine started", "tick", e.Tick, "interval", e.Interval, "realtime", e.Realtime)

	for ctx.Err() == nil {
		speed := e.Speed()
		if e.Realtime && speed <= 0 {
			// Paused: sleep briefly and check again.
			if !sleep(ctx, 100*time.Millisecond) {
				break
			}
			continue
		}

		start := time.Now()
		now := e.step()
		if e.Done != nil && e.Done(e.Tick, now) {
			break
		}

		if e.Realtime {
			// Sleep for the remainder of the tick interval, adjusted for speed.
			target := time.Duration(float64(e.Interval) / speed)
			if elapsed := time.Since(start); elapsed < target {
				if !sleep(ctx, target-elapsed) {
					break
				}
			}
		}
	}

	slog.Info("simulation engine stopped", "tick", e.Tick, "sim_time", SimClock(e.Elapsed()))
}

// step advances the simulation by one tick and returns the new instant.
func (e *Engine) step() time.Time {
	e.Tick++
	now := e.Now()

	// Every tick: weather, cadence-gated courier decisions.
	if e.OnTick != nil {
		e.OnTick(e.Tick, now)
	}

	// Every simulated second: statistics.
	if e.Tick%e.ticksPerSecond == 0 && e.OnSecond != nil {
		e.OnSecond(e.Tick, now)
	}

	// Every simulated minute: status report, event trimming.
	if e.Tick%e.ticksPerMinute == 0 && e.OnMinute != nil {
		e.OnMinute(e.Tick, now)
	}
	return now
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// SimClock formats simulated elapsed time as m:ss.
func SimClock(elapsed time.Duration) string {
	secs := int64(elapsed / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
