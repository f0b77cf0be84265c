package decision

import (
	"time"

	"github.com/talgya/courier-sim/internal/world"
)

// Loop detection constants.
const (
	HistorySize    = 10
	LoopWindow     = 6
	LoopRepeats    = 3
	RecentCells    = 4
	EscapeDuration = 2 * time.Second
)

// History is the ring of recently occupied cells plus the escape-mode timer.
type History struct {
	cells       []world.Coord
	escaping    bool
	escapeSince time.Time
}

// Record appends pos, dropping the oldest cell beyond HistorySize.
func (h *History) Record(pos world.Coord) {
	h.cells = append(h.cells, pos)
	if len(h.cells) > HistorySize {
		h.cells = h.cells[len(h.cells)-HistorySize:]
	}
}

// Observe records pos and updates escape mode. Escape starts when pos fills
// at least LoopRepeats of the last LoopWindow cells, and ends, clearing the
// history, once EscapeDuration has passed. Returns whether escape mode was
// entered or left by this call.
func (h *History) Observe(pos world.Coord, now time.Time) (entered, left bool) {
	h.Record(pos)

	if !h.escaping && len(h.cells) >= LoopWindow && h.count(pos, LoopWindow) >= LoopRepeats {
		h.escaping = true
		h.escapeSince = now
		entered = true
	}
	if h.escaping && now.Sub(h.escapeSince) >= EscapeDuration {
		h.escaping = false
		h.Clear()
		left = true
	}
	return entered, left
}

func (h *History) count(pos world.Coord, window int) int {
	n := 0
	for _, c := range h.Last(window) {
		if c == pos {
			n++
		}
	}
	return n
}

// Last returns up to n of the most recent cells, oldest first.
func (h *History) Last(n int) []world.Coord {
	if n > len(h.cells) {
		n = len(h.cells)
	}
	return h.cells[len(h.cells)-n:]
}

// IsRecent reports whether c is among the last RecentCells cells.
func (h *History) IsRecent(c world.Coord) bool {
	for _, r := range h.Last(RecentCells) {
		if r == c {
			return true
		}
	}
	return false
}

// Clear forgets every recorded cell.
func (h *History) Clear() { h.cells = h.cells[:0] }

// Escaping reports whether escape mode is active.
func (h *History) Escaping() bool { return h.escaping }

// Len returns the number of recorded cells.
func (h *History) Len() int { return len(h.cells) }
