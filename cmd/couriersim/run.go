package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/courier-sim/internal/agents"
	"github.com/talgya/courier-sim/internal/api"
	"github.com/talgya/courier-sim/internal/config"
	"github.com/talgya/courier-sim/internal/engine"
	"github.com/talgya/courier-sim/internal/entropy"
	"github.com/talgya/courier-sim/internal/orders"
	"github.com/talgya/courier-sim/internal/persistence"
	"github.com/talgya/courier-sim/internal/weather"
	"github.com/talgya/courier-sim/internal/world"
)

type runOptions struct {
	configPath string
	seed       int64
	duration   time.Duration
	realtime   bool
	dbPath     string
	apiPort    int
}

func (a *app) newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation",
		Long: `Run a simulation from a YAML configuration (or the built-in defaults).

Flags override the file, which overrides the defaults. The run stops when
every order is delivered, when the duration elapses, or on interrupt.

Examples:
  couriersim run -c sim.yaml
  couriersim run --seed 42 --duration 5m --db data/runs.db
  couriersim run --realtime --api-port 8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("seed") {
				cfg.Seed = opts.seed
			}
			if flags.Changed("duration") {
				cfg.Duration = opts.duration
			}
			if flags.Changed("realtime") {
				cfg.Realtime = opts.realtime
			}
			if flags.Changed("db") {
				cfg.Storage.Path = opts.dbPath
			}
			if flags.Changed("api-port") {
				cfg.API.Port = opts.apiPort
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return a.runSim(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to YAML configuration")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Random seed (0 draws a fresh one)")
	cmd.Flags().DurationVar(&opts.duration, "duration", 0, "Simulated run length (0 runs until every order is done)")
	cmd.Flags().BoolVar(&opts.realtime, "realtime", false, "Pace ticks against the wall clock")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "SQLite run store")
	cmd.Flags().IntVar(&opts.apiPort, "api-port", 0, "Serve the HTTP API on this port")

	return cmd
}

func (a *app) runSim(ctx context.Context, cfg config.Config) error {
	seed := entropy.ResolveSeed(ctx, cfg.Seed, entropy.NewClient(cfg.Entropy.RandomOrgKey))
	slog.Info("courier simulation starting", "seed", seed)

	grid, err := loadCity(cfg.City, seed)
	if err != nil {
		return err
	}
	counts := world.TileCounts(grid)
	slog.Info("city ready",
		"width", grid.Width(), "height", grid.Height(),
		"streets", counts[world.TileStreet], "parks", counts[world.TilePark], "buildings", counts[world.TileBuilding],
	)

	jobs, err := loadJobs(grid, cfg.Jobs, seed)
	if err != nil {
		return err
	}

	wcfg, origin := weather.NewSource(cfg.Weather.URL, cfg.Weather.LocalPath).Load(ctx)
	slog.Info("weather ready", "origin", origin, "conditions", len(wcfg.Conditions), "initial", wcfg.Initial.Condition)

	tiers := cfg.Tiers()
	couriers, err := agents.NewSpawner(seed).Spawn(grid, tiers, cfg.Couriers.Separation)
	if err != nil {
		return err
	}

	epoch := time.Now().UTC().Truncate(time.Second)
	sim := engine.NewSimulation(engine.Setup{
		Grid:           grid,
		Weather:        weather.NewProcess(wcfg, entropy.Derive(seed, 1), epoch),
		WeatherOrigin:  origin,
		Couriers:       couriers,
		Jobs:           jobs,
		Seed:           seed,
		MovesPerSecond: cfg.Couriers.MovesPerSecond,
		InitialBoard:   cfg.Jobs.Board,
	}, epoch)

	eng := engine.NewEngine(cfg.TickRate, epoch)
	eng.Realtime = cfg.Realtime
	sim.Attach(eng)
	eng.Done = func(_ uint64, now time.Time) bool {
		return sim.Finished() || cfg.Duration > 0 && now.Sub(epoch) >= cfg.Duration
	}

	// ── Run store ────────────────────────────────────────────────────
	var (
		db  *persistence.DB
		rec *persistence.Recorder
	)
	if cfg.Storage.Path != "" {
		if dir := filepath.Dir(cfg.Storage.Path); dir != "." {
			os.MkdirAll(dir, 0755)
		}
		db, err = persistence.Open(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		runID, err := db.StartRun(seed, tiers, origin, time.Now())
		if err != nil {
			return err
		}
		slog.Info("run store opened", "path", cfg.Storage.Path, "run", runID)

		rec = persistence.NewRecorder(db, runID)
		sim.OnEvent = rec.Record
		minute := eng.OnMinute
		eng.OnMinute = func(tick uint64, now time.Time) {
			minute(tick, now)
			if err := rec.Flush(); err != nil {
				slog.Error("event flush failed", "error", err)
			}
		}
	}

	// ── HTTP API ─────────────────────────────────────────────────────
	if cfg.API.Port > 0 {
		srv := &api.Server{
			Sim:      sim,
			Eng:      eng,
			DB:       db,
			Port:     cfg.API.Port,
			AdminKey: cfg.API.AdminKey,
		}
		if rec != nil {
			srv.RunID = rec.RunID()
		}
		srv.Start(ctx)
	}

	eng.Run(ctx)
	sim.TickSecond(eng.Tick, eng.Now())

	if rec != nil {
		if err := rec.Flush(); err != nil {
			slog.Error("event flush failed", "error", err)
		}
		if err := db.FinishRun(rec.RunID(), sim, time.Now()); err != nil {
			slog.Error("saving run failed", "error", err)
		}
		db.SaveMeta("last_run", rec.RunID())
		db.SaveMeta("last_seed", strconv.FormatInt(seed, 10))
	}

	printSummary(a.stdout, sim, eng, seed)
	return nil
}

func loadCity(cfg config.CityConfig, seed int64) (*world.Grid, error) {
	if cfg.Path != "" {
		g, err := world.LoadCityFile(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("load city: %w", err)
		}
		return g, nil
	}

	gen := world.DefaultGenConfig()
	gen.Width, gen.Height = cfg.Width, cfg.Height
	if cfg.BlockSize > 0 {
		gen.BlockSize = cfg.BlockSize
	}
	gen.Seed = seed
	return world.Generate(gen), nil
}

func loadJobs(g *world.Grid, cfg config.JobsConfig, seed int64) ([]orders.Order, error) {
	if cfg.Path != "" {
		jobs, err := orders.LoadJobsFile(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("load jobs: %w", err)
		}
		orders.Relocate(g, jobs, cfg.Separation)
		return jobs, nil
	}

	gen := orders.DefaultGenConfig()
	gen.Count = cfg.Count
	gen.Separation = cfg.Separation
	gen.Spread = cfg.Spread
	return orders.Generate(g, gen, entropy.Derive(seed, 2)), nil
}

func printSummary(w io.Writer, sim *engine.Simulation, eng *engine.Engine, seed int64) {
	st := sim.Stats
	fmt.Fprintf(w, "\nRun finished after %s simulated (%s ticks, seed %d)\n",
		engine.SimClock(eng.Elapsed()), humanize.Comma(int64(eng.Tick)), seed)
	fmt.Fprintf(w, "Delivered %d, cancelled %d, still open %d, still queued %d, weather changes %d\n\n",
		st.Delivered, st.Cancelled, st.OpenOrders, st.QueuedOrders, st.WeatherChanges)

	ranked := append([]*agents.Courier(nil), sim.Couriers...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tCOURIER\tTIER\tSCORE\tREP\tDELIVERED\tEARLY\tLATE\tCANCELLED\tMOVES")
	for i, c := range ranked {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			humanize.Ordinal(i+1), c.Name, c.Tier, humanize.Commaf(c.Score), c.Reputation,
			c.Deliveries, c.EarlyCount, c.LateCount, c.Cancellations, humanize.Comma(int64(c.Moves)))
	}
	tw.Flush()
}
