package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/courier-sim/internal/config"
	"github.com/talgya/courier-sim/internal/persistence"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).execute(context.Background(), args)
	return out.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestPathCommand(t *testing.T) {
	city := writeFile(t, "city.json", `{"data": {"tiles": [
		["C","C","C","C","C"],
		["C","C","C","C","C"],
		["C","C","C","C","C"],
		["C","C","C","C","C"],
		["C","C","C","C","C"]
	]}}`)

	out, err := execute(t, "path", "--city", city, "--from", "0,0", "--to", "4,4")
	require.NoError(t, err)
	assert.Contains(t, out, "8 steps, cost 8.000")
	assert.Contains(t, out, "S")
	assert.Contains(t, out, "G")
}

func TestPathCommandUnreachable(t *testing.T) {
	city := writeFile(t, "city.json", `{"data": {"tiles": [
		["C","B","C"],
		["C","B","C"],
		["C","B","C"]
	]}}`)

	out, err := execute(t, "path", "--city", city, "--from", "0,0", "--to", "2,2")
	require.NoError(t, err)
	assert.Contains(t, out, "no route")
}

func TestPathCommandBadCoord(t *testing.T) {
	_, err := execute(t, "path", "--from", "0;0", "--to", "1,1")
	assert.Error(t, err)
}

func TestWeatherCommand(t *testing.T) {
	out, err := execute(t, "weather", "--span", "5m", "--seed", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "conditions")
	assert.Contains(t, out, "changes in 5:00")
}

func TestRunCommandStoresRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	out, err := execute(t, "run", "--seed", "7", "--duration", "30s", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Run finished")
	assert.Contains(t, out, "RANK")
	assert.Contains(t, out, "seed 7")

	db, err := persistence.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	runs, err := db.Runs(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(7), runs[0].Seed)
	assert.Equal(t, "reactive,lookahead,strategic", runs[0].Tiers)

	results, err := db.CourierResults(runs[0].ID)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	last, err := db.GetMeta("last_run")
	require.NoError(t, err)
	assert.Equal(t, runs[0].ID, last)
}

func TestRunCommandRejectsBadConfig(t *testing.T) {
	cfg := writeFile(t, "sim.yaml", "couriers:\n  tiers: [nope]\n")

	_, err := execute(t, "run", "-c", cfg)
	assert.ErrorIs(t, err, config.ErrInvalid)
}
