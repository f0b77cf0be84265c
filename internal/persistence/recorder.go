package persistence

import (
	"log/slog"

	"github.com/talgya/courier-sim/internal/engine"
)

// flushAt is the number of buffered events that triggers a write.
const flushAt = 100

// Recorder buffers a run's events and writes them in batches. It is meant to
// be hooked into Simulation.OnEvent and used only from the engine goroutine.
type Recorder struct {
	db      *DB
	runID   string
	pending []engine.Event
	Written int
}

// NewRecorder returns a Recorder writing under runID.
func NewRecorder(db *DB, runID string) *Recorder {
	return &Recorder{db: db, runID: runID}
}

// RunID returns the run the recorder writes to.
func (r *Recorder) RunID() string { return r.runID }

// Record buffers e, flushing once enough events have accumulated.
func (r *Recorder) Record(e engine.Event) {
	r.pending = append(r.pending, e)
	if len(r.pending) >= flushAt {
		if err := r.Flush(); err != nil {
			slog.Error("event flush failed", "run", r.runID, "error", err)
		}
	}
}

// Flush writes all buffered events. Events stay buffered when the write fails.
func (r *Recorder) Flush() error {
	if len(r.pending) == 0 {
		return nil
	}
	if err := r.db.SaveEvents(r.runID, r.pending); err != nil {
		return err
	}
	r.Written += len(r.pending)
	r.pending = r.pending[:0]
	return nil
}
