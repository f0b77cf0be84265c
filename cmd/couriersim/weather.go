package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/courier-sim/internal/config"
	"github.com/talgya/courier-sim/internal/engine"
	"github.com/talgya/courier-sim/internal/entropy"
	"github.com/talgya/courier-sim/internal/weather"
)

type weatherOptions struct {
	configPath string
	seed       int64
	span       time.Duration
	step       time.Duration
}

func (a *app) newWeatherCmd() *cobra.Command {
	opts := &weatherOptions{}

	cmd := &cobra.Command{
		Use:   "weather",
		Short: "Sample the weather process",
		Long: `Load the weather description the way a run would (remote, local file,
built-in) and print every condition change over a simulated span.

Examples:
  couriersim weather --span 30m
  couriersim weather -c sim.yaml --seed 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.step <= 0 {
				return fmt.Errorf("%w: step must be positive", config.ErrInvalid)
			}

			wcfg, origin := weather.NewSource(cfg.Weather.URL, cfg.Weather.LocalPath).Load(cmd.Context())
			a.sampleWeather(wcfg, origin, opts)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to YAML configuration (weather sources)")
	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "Weather random seed")
	cmd.Flags().DurationVar(&opts.span, "span", 10*time.Minute, "Simulated time to sample")
	cmd.Flags().DurationVar(&opts.step, "step", time.Second, "Sampling step")

	return cmd
}

func (a *app) sampleWeather(cfg weather.Config, origin string, opts *weatherOptions) {
	epoch := time.Unix(0, 0).UTC()
	p := weather.NewProcess(cfg, entropy.Derive(opts.seed, 1), epoch)

	fmt.Fprintf(a.stdout, "weather from %s source, %d conditions\n", origin, len(cfg.Conditions))
	line := func(now time.Time) {
		s := p.Snapshot(now)
		fmt.Fprintf(a.stdout, "%6s  %-12s intensity %.2f  speed x%.3f  stamina +%.2f  %s\n",
			engine.SimClock(now.Sub(epoch)), s.Name, s.Intensity, s.Multiplier, s.StaminaExtra, s.Severity)
	}

	line(epoch)
	changes := 0
	for t := opts.step; t <= opts.span; t += opts.step {
		now := epoch.Add(t)
		if p.Advance(now) {
			changes++
			line(now)
		}
	}
	fmt.Fprintf(a.stdout, "%d changes in %s\n", changes, engine.SimClock(opts.span))
}
