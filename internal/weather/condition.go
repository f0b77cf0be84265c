// Package weather models the city's weather as a Markov chain over nine
// conditions with randomized dwell times and a short linear blend between
// consecutive states. It yields a speed multiplier and an extra stamina drain
// for any instant.
package weather

// Condition is one discrete weather state.
type Condition string

const (
	Clear     Condition = "clear"
	Clouds    Condition = "clouds"
	RainLight Condition = "rain_light"
	Rain      Condition = "rain"
	Storm     Condition = "storm"
	Fog       Condition = "fog"
	Wind      Condition = "wind"
	Heat      Condition = "heat"
	Cold      Condition = "cold"
)

// AllConditions lists the built-in conditions in canonical order.
var AllConditions = []Condition{Clear, Clouds, RainLight, Rain, Storm, Fog, Wind, Heat, Cold}

// State is a condition together with its intensity in [0, 1].
type State struct {
	Condition Condition `json:"condition"`
	Intensity float64   `json:"intensity"`
}

// Tables holds the per-condition effect lookups.
type Tables struct {
	Multipliers  map[Condition]float64 `json:"multipliers" yaml:"multipliers"`
	StaminaExtra map[Condition]float64 `json:"stamina_extra" yaml:"stamina_extra"`
}

// DefaultTables returns the built-in multiplier and stamina tables.
func DefaultTables() Tables {
	return Tables{
		Multipliers: map[Condition]float64{
			Clear:     1.00,
			Clouds:    0.98,
			RainLight: 0.90,
			Rain:      0.85,
			Storm:     0.75,
			Fog:       0.88,
			Wind:      0.92,
			Heat:      0.90,
			Cold:      0.92,
		},
		StaminaExtra: map[Condition]float64{
			Clear:     0.0,
			Clouds:    0.0,
			RainLight: 0.05,
			Rain:      0.1,
			Storm:     0.3,
			Fog:       0.0,
			Wind:      0.1,
			Heat:      0.2,
			Cold:      0.05,
		},
	}
}

// Merge returns a copy of t with any entries of override replacing its own.
func (t Tables) Merge(override Tables) Tables {
	out := Tables{
		Multipliers:  make(map[Condition]float64, len(t.Multipliers)),
		StaminaExtra: make(map[Condition]float64, len(t.StaminaExtra)),
	}
	for c, v := range t.Multipliers {
		out.Multipliers[c] = v
	}
	for c, v := range t.StaminaExtra {
		out.StaminaExtra[c] = v
	}
	for c, v := range override.Multipliers {
		out.Multipliers[c] = v
	}
	for c, v := range override.StaminaExtra {
		out.StaminaExtra[c] = v
	}
	return out
}

// Base returns the unscaled speed multiplier for a condition (1.0 if unknown).
func (t Tables) Base(c Condition) float64 {
	if v, ok := t.Multipliers[c]; ok {
		return v
	}
	return 1.0
}

// Extra returns the unscaled stamina drain for a condition (0 if unknown).
func (t Tables) Extra(c Condition) float64 {
	return t.StaminaExtra[c]
}

// SteadyMultiplier is the intensity-adjusted multiplier of a settled state:
// base × (1 − 0.5 × intensity × (1 − base)).
func (t Tables) SteadyMultiplier(s State) float64 {
	base := t.Base(s.Condition)
	return base * (1.0 - 0.5*s.Intensity*(1.0-base))
}

// SteadyStaminaExtra is the intensity-adjusted stamina drain: extra × (1 + intensity).
func (t Tables) SteadyStaminaExtra(s State) float64 {
	return t.Extra(s.Condition) * (1.0 + s.Intensity)
}

// Name returns a human-readable label for a condition.
func Name(c Condition) string {
	switch c {
	case Clear:
		return "Clear"
	case Clouds:
		return "Cloudy"
	case RainLight:
		return "Drizzle"
	case Rain:
		return "Rain"
	case Storm:
		return "Storm"
	case Fog:
		return "Fog"
	case Wind:
		return "Wind"
	case Heat:
		return "Heat"
	case Cold:
		return "Cold"
	default:
		return string(c)
	}
}

// Severity classifies combined conditions for display.
func Severity(multiplier, staminaExtra float64) string {
	switch {
	case multiplier >= 0.95 && staminaExtra <= 0.05:
		return "ideal"
	case multiplier >= 0.85:
		return "good"
	case multiplier >= 0.75:
		return "hard"
	default:
		return "extreme"
	}
}
