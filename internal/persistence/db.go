// Package persistence provides the SQLite run store: one row per run, the
// final standing of every courier, and the run's event log.
package persistence

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/courier-sim/internal/agents"
	"github.com/talgya/courier-sim/internal/engine"
)

// DB wraps a SQLite connection for run storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		tiers TEXT NOT NULL,
		weather_origin TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP,
		ticks INTEGER NOT NULL DEFAULT 0,
		sim_seconds REAL NOT NULL DEFAULT 0,
		delivered INTEGER NOT NULL DEFAULT 0,
		total_score REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS courier_results (
		run_id TEXT NOT NULL REFERENCES runs(id),
		courier_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		tier TEXT NOT NULL,
		score REAL NOT NULL,
		reputation INTEGER NOT NULL,
		deliveries INTEGER NOT NULL,
		early INTEGER NOT NULL,
		late INTEGER NOT NULL,
		cancellations INTEGER NOT NULL,
		moves INTEGER NOT NULL,
		PRIMARY KEY (run_id, courier_id)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		elapsed REAL NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		courier_id INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, tick);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Run is one stored simulation run.
type Run struct {
	ID            string     `json:"id" db:"id"`
	Seed          int64      `json:"seed" db:"seed"`
	Tiers         string     `json:"tiers" db:"tiers"`
	WeatherOrigin string     `json:"weather_origin" db:"weather_origin"`
	StartedAt     time.Time  `json:"started_at" db:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	Ticks         uint64     `json:"ticks" db:"ticks"`
	SimSeconds    float64    `json:"sim_seconds" db:"sim_seconds"`
	Delivered     int        `json:"delivered" db:"delivered"`
	TotalScore    float64    `json:"total_score" db:"total_score"`
}

// CourierResult is a courier's final standing in a run.
type CourierResult struct {
	RunID         string  `json:"run_id" db:"run_id"`
	CourierID     uint32  `json:"courier_id" db:"courier_id"`
	Name          string  `json:"name" db:"name"`
	Tier          string  `json:"tier" db:"tier"`
	Score         float64 `json:"score" db:"score"`
	Reputation    int     `json:"reputation" db:"reputation"`
	Deliveries    int     `json:"deliveries" db:"deliveries"`
	Early         int     `json:"early" db:"early"`
	Late          int     `json:"late" db:"late"`
	Cancellations int     `json:"cancellations" db:"cancellations"`
	Moves         int     `json:"moves" db:"moves"`
}

// StartRun records a new run and returns its ID.
func (db *DB) StartRun(seed int64, tiers []agents.Tier, weatherOrigin string, started time.Time) (string, error) {
	names := make([]string, len(tiers))
	for i, t := range tiers {
		names[i] = t.String()
	}

	id := uuid.NewString()
	_, err := db.conn.Exec(
		"INSERT INTO runs (id, seed, tiers, weather_origin, started_at) VALUES (?, ?, ?, ?, ?)",
		id, seed, strings.Join(names, ","), weatherOrigin, started.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// FinishRun stores the final state of sim under runID.
func (db *DB) FinishRun(runID string, sim *engine.Simulation, ended time.Time) error {
	slog.Info("saving run results", "run", runID, "couriers", len(sim.Couriers))

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO courier_results
		(run_id, courier_id, name, tier, score, reputation, deliveries, early, late, cancellations, moves)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	delivered, total := 0, 0.0
	for _, c := range sim.Couriers {
		_, err := stmt.Exec(
			runID, c.ID, c.Name, c.Tier.String(), c.Score, c.Reputation,
			c.Deliveries, c.EarlyCount, c.LateCount, c.Cancellations, c.Moves,
		)
		if err != nil {
			return fmt.Errorf("insert courier %d: %w", c.ID, err)
		}
		delivered += c.Deliveries
		total += c.Score
	}

	_, err = tx.Exec(`UPDATE runs SET ended_at = ?, ticks = ?, sim_seconds = ?, delivered = ?, total_score = ?
		WHERE id = ?`,
		ended.UTC(), sim.LastTick, sim.Elapsed().Seconds(), delivered, total, runID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("run results saved", "run", runID)
	return nil
}

// SaveEvents appends events to the run's log.
func (db *DB) SaveEvents(runID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (run_id, tick, elapsed, description, category, courier_id) VALUES (?, ?, ?, ?, ?, ?)",
			runID, e.Tick, e.Elapsed, e.Description, e.Category, e.CourierID,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}

// RecentEvents returns the most recent N events of a run, newest first.
func (db *DB) RecentEvents(runID string, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		`SELECT tick, elapsed, description, category, courier_id FROM events
		 WHERE run_id = ? ORDER BY id DESC LIMIT ?`,
		runID, limit,
	)
	return events, err
}

// Runs returns the most recent runs, newest first.
func (db *DB) Runs(limit int) ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs,
		"SELECT * FROM runs ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	return runs, err
}

// CourierResults returns the stored standings of a run, best score first.
func (db *DB) CourierResults(runID string) ([]CourierResult, error) {
	var results []CourierResult
	err := db.conn.Select(&results,
		"SELECT * FROM courier_results WHERE run_id = ? ORDER BY score DESC, courier_id",
		runID,
	)
	return results, err
}
