package weather

import "github.com/talgya/courier-sim/internal/entropy"

// Transition is one row of the transition matrix: reachable conditions and a
// probability vector of the same length summing to 1.
type Transition struct {
	Next  []Condition `json:"next"`
	Probs []float64   `json:"probs"`
}

// TransitionMatrix maps a condition to its outgoing transition row.
// Built once per session and never mutated afterwards.
type TransitionMatrix map[Condition]Transition

// DefaultMatrix returns the built-in transition matrix.
func DefaultMatrix() TransitionMatrix {
	return TransitionMatrix{
		Clear:     {Next: []Condition{Clear, Clouds, Wind}, Probs: []float64{0.5, 0.3, 0.2}},
		Clouds:    {Next: []Condition{Clear, Clouds, RainLight}, Probs: []float64{0.3, 0.4, 0.3}},
		RainLight: {Next: []Condition{Clouds, RainLight, Rain}, Probs: []float64{0.4, 0.4, 0.2}},
		Rain:      {Next: []Condition{Clouds, Rain, Storm}, Probs: []float64{0.4, 0.4, 0.2}},
		Storm:     {Next: []Condition{Rain, Clouds, Storm}, Probs: []float64{0.5, 0.3, 0.2}},
		Fog:       {Next: []Condition{Fog, Clouds, Clear}, Probs: []float64{0.5, 0.3, 0.2}},
		Wind:      {Next: []Condition{Wind, Clouds, Clear}, Probs: []float64{0.5, 0.3, 0.2}},
		Heat:      {Next: []Condition{Heat, Clear, Clouds}, Probs: []float64{0.5, 0.3, 0.2}},
		Cold:      {Next: []Condition{Cold, Clear, Clouds}, Probs: []float64{0.5, 0.3, 0.2}},
	}
}

// NewMatrix converts raw weighted rows ({"clear": {"clouds": 0.3, ...}}) into a
// normalized matrix. Only conditions in available are kept, and destinations
// are ordered as in available so sampling is reproducible. Rows whose weights
// sum to zero are dropped; sampling from such a condition falls back to a
// uniform choice.
func NewMatrix(raw map[Condition]map[Condition]float64, available []Condition) TransitionMatrix {
	known := make(map[Condition]bool, len(available))
	for _, c := range available {
		known[c] = true
	}

	m := make(TransitionMatrix, len(raw))
	for from, row := range raw {
		if !known[from] {
			continue
		}

		var next []Condition
		var probs []float64
		sum := 0.0
		for _, to := range available {
			p, ok := row[to]
			if !ok || p < 0 {
				continue
			}
			next = append(next, to)
			probs = append(probs, p)
			sum += p
		}
		if sum <= 0 {
			continue
		}
		for i := range probs {
			probs[i] /= sum
		}
		m[from] = Transition{Next: next, Probs: probs}
	}
	return m
}

// Sample draws the successor of from. When from has no usable row it picks
// uniformly among available.
func (m TransitionMatrix) Sample(from Condition, rng entropy.Rand, available []Condition) Condition {
	row, ok := m[from]
	if !ok || len(row.Next) == 0 {
		if len(available) == 0 {
			return from
		}
		return available[rng.Intn(len(available))]
	}

	r := rng.Float64()
	cumulative := 0.0
	for i, p := range row.Probs {
		cumulative += p
		if r < cumulative {
			return row.Next[i]
		}
	}
	// Floating-point slack: the last entry absorbs the remainder.
	return row.Next[len(row.Next)-1]
}

// Sum returns the total outgoing probability of a row.
func (t Transition) Sum() float64 {
	sum := 0.0
	for _, p := range t.Probs {
		sum += p
	}
	return sum
}
