package weather

import (
	"log/slog"
	"time"

	"github.com/talgya/courier-sim/internal/entropy"
)

// Timing constants for the weather chain.
const (
	TransitionDuration = 3 * time.Second
	MinDwellSeconds    = 45
	MaxDwellSeconds    = 90
	MinIntensity       = 0.2
	MaxIntensity       = 1.0
)

// Config describes a weather session: the available conditions, the
// transition matrix, the effect tables and the initial state.
type Config struct {
	Conditions []Condition
	Matrix     TransitionMatrix
	Tables     Tables
	Initial    State
}

// DefaultConfig returns the built-in nine-condition configuration starting
// at clear with intensity 0.5.
func DefaultConfig() Config {
	return Config{
		Conditions: append([]Condition(nil), AllConditions...),
		Matrix:     DefaultMatrix(),
		Tables:     DefaultTables(),
		Initial:    State{Condition: Clear, Intensity: 0.5},
	}
}

// Process is the live weather state of one session. It is mutated only by
// Advance and, for the transition flag, by Multiplier.
type Process struct {
	cfg Config
	rng entropy.Rand

	current  State
	previous State

	deadline        time.Time
	transitioning   bool
	transitionStart time.Time
	duration        time.Duration
}

// NewProcess creates a weather process whose first change is scheduled
// 45–90 seconds after now.
func NewProcess(cfg Config, rng entropy.Rand, now time.Time) *Process {
	if len(cfg.Conditions) == 0 {
		cfg.Conditions = append([]Condition(nil), AllConditions...)
	}
	if cfg.Tables.Multipliers == nil {
		cfg.Tables = DefaultTables()
	}
	if cfg.Initial.Condition == "" {
		cfg.Initial.Condition = Clear
	}

	p := &Process{
		cfg:      cfg,
		rng:      rng,
		current:  cfg.Initial,
		previous: cfg.Initial,
		duration: TransitionDuration,
	}
	p.deadline = now.Add(p.dwell())
	return p
}

// Advance performs a state change when now has reached the deadline.
// Calling it again before the next deadline is a no-op. Returns true if the
// state changed.
func (p *Process) Advance(now time.Time) bool {
	if now.Before(p.deadline) {
		return false
	}

	next := p.cfg.Matrix.Sample(p.current.Condition, p.rng, p.cfg.Conditions)
	if _, ok := p.cfg.Matrix[p.current.Condition]; !ok {
		slog.Warn("weather condition missing from transition matrix, picking uniformly",
			"condition", p.current.Condition)
	}
	intensity := MinIntensity + p.rng.Float64()*(MaxIntensity-MinIntensity)

	p.previous = p.current
	p.current = State{Condition: next, Intensity: intensity}
	p.transitioning = true
	p.transitionStart = now
	p.deadline = now.Add(p.dwell())

	slog.Info("weather changed",
		"from", p.previous.Condition,
		"to", p.current.Condition,
		"intensity", intensity,
		"next_change_in", p.deadline.Sub(now),
	)
	return true
}

// Multiplier returns the speed multiplier at now. While a transition is in
// progress it blends linearly from the previous condition's base multiplier
// to the new intensity-adjusted one, and ends the transition once the blend
// completes.
func (p *Process) Multiplier(now time.Time) float64 {
	target := p.cfg.Tables.SteadyMultiplier(p.current)
	if !p.transitioning {
		return target
	}

	progress := p.progress(now)
	from := p.cfg.Tables.Base(p.previous.Condition)
	value := from + (target-from)*progress

	if progress >= 1.0 {
		p.transitioning = false
	}
	return value
}

// StaminaExtra returns the extra per-step stamina drain at now, blended the
// same way as Multiplier. It never ends the transition itself.
func (p *Process) StaminaExtra(now time.Time) float64 {
	target := p.cfg.Tables.SteadyStaminaExtra(p.current)
	if !p.transitioning {
		return target
	}

	progress := p.progress(now)
	from := p.cfg.Tables.Extra(p.previous.Condition)
	return from + (target-from)*progress
}

func (p *Process) progress(now time.Time) float64 {
	elapsed := now.Sub(p.transitionStart)
	progress := elapsed.Seconds() / p.duration.Seconds()
	if progress < 0 {
		return 0
	}
	if progress > 1 {
		return 1
	}
	return progress
}

func (p *Process) dwell() time.Duration {
	secs := MinDwellSeconds + p.rng.Intn(MaxDwellSeconds-MinDwellSeconds+1)
	return time.Duration(secs) * time.Second
}

// Current returns the active state.
func (p *Process) Current() State { return p.current }

// Previous returns the state before the most recent change.
func (p *Process) Previous() State { return p.previous }

// Transitioning reports whether a blend is still in progress.
func (p *Process) Transitioning() bool { return p.transitioning }

// Deadline returns the time of the next scheduled change.
func (p *Process) Deadline() time.Time { return p.deadline }

// Config returns the session configuration.
func (p *Process) Config() Config { return p.cfg }

// Snapshot is a read-only view of the weather for display and logging.
type Snapshot struct {
	Condition     Condition     `json:"condition"`
	Name          string        `json:"name"`
	Intensity     float64       `json:"intensity"`
	Multiplier    float64       `json:"multiplier"`
	StaminaExtra  float64       `json:"stamina_extra"`
	Transitioning bool          `json:"transitioning"`
	UntilChange   time.Duration `json:"until_change"`
	Severity      string        `json:"severity"`
}

// Snapshot captures the weather at now. Like Multiplier it may end a
// finished transition.
func (p *Process) Snapshot(now time.Time) Snapshot {
	mult := p.Multiplier(now)
	extra := p.StaminaExtra(now)
	until := p.deadline.Sub(now)
	if until < 0 {
		until = 0
	}
	return Snapshot{
		Condition:     p.current.Condition,
		Name:          Name(p.current.Condition),
		Intensity:     p.current.Intensity,
		Multiplier:    mult,
		StaminaExtra:  extra,
		Transitioning: p.transitioning,
		UntilChange:   until,
		Severity:      Severity(mult, extra),
	}
}
