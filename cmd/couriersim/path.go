package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/talgya/courier-sim/internal/config"
	"github.com/talgya/courier-sim/internal/movement"
	"github.com/talgya/courier-sim/internal/pathfind"
	"github.com/talgya/courier-sim/internal/world"
)

type pathOptions struct {
	configPath   string
	cityPath     string
	seed         int64
	from, to     string
	weatherMult  float64
	staminaExtra float64
	resistance   float64
}

func (a *app) newPathCmd() *cobra.Command {
	opts := &pathOptions{}

	cmd := &cobra.Command{
		Use:   "path",
		Short: "Print the cheapest route between two cells",
		Long: `Print the A* route between two cells of a city, with its cost under the
given weather and stamina, and draw it over the map.

Examples:
  couriersim path --city data/city.json --from 0,0 --to 4,4
  couriersim path --seed 7 --from 1,1 --to 20,20 --weather-mult 0.65`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.printPath(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to YAML configuration (city settings)")
	cmd.Flags().StringVar(&opts.cityPath, "city", "", "City JSON file (overrides the configuration)")
	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "Seed for a generated city")
	cmd.Flags().StringVar(&opts.from, "from", "0,0", "Start cell as x,y")
	cmd.Flags().StringVar(&opts.to, "to", "", "Goal cell as x,y")
	cmd.Flags().Float64Var(&opts.weatherMult, "weather-mult", 1, "Weather speed multiplier")
	cmd.Flags().Float64Var(&opts.staminaExtra, "stamina-extra", 0, "Weather stamina drain")
	cmd.Flags().Float64Var(&opts.resistance, "resistance", 100, "Courier resistance")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func (a *app) printPath(opts *pathOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.cityPath != "" {
		cfg.City.Path = opts.cityPath
	}
	g, err := loadCity(cfg.City, opts.seed)
	if err != nil {
		return err
	}

	from, err := parseCoord(opts.from)
	if err != nil {
		return err
	}
	to, err := parseCoord(opts.to)
	if err != nil {
		return err
	}

	costs := movement.Costs{
		WeatherMult:  opts.weatherMult,
		StaminaExtra: opts.staminaExtra,
		Resistance:   opts.resistance,
	}
	res := pathfind.Search(g, from, to, costs)
	if !res.Found() {
		fmt.Fprintf(a.stdout, "no route from %v to %v (%d cells expanded)\n", from, to, res.Expanded)
		return nil
	}

	fmt.Fprintf(a.stdout, "route %v -> %v: %d steps, cost %.3f, %d cells expanded\n",
		from, to, len(res.Path), res.Cost, res.Expanded)
	fmt.Fprint(a.stdout, renderRoute(g, from, res.Path))
	return nil
}

// renderRoute draws g with the route marked: S start, G goal, * on the way.
func renderRoute(g *world.Grid, start world.Coord, path []world.Coord) string {
	marks := map[world.Coord]byte{start: 'S'}
	for i, c := range path {
		if i == len(path)-1 {
			marks[c] = 'G'
		} else {
			marks[c] = '*'
		}
	}

	var b strings.Builder
	for y, row := range g.Rows() {
		for x, code := range row {
			if m, ok := marks[world.Coord{X: x, Y: y}]; ok {
				b.WriteByte(m)
				continue
			}
			switch code {
			case "C":
				b.WriteByte('.')
			case "P":
				b.WriteByte(',')
			default:
				b.WriteByte('#')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func parseCoord(s string) (world.Coord, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return world.Coord{}, fmt.Errorf("coordinate %q: want x,y", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return world.Coord{}, fmt.Errorf("coordinate %q: %w", s, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return world.Coord{}, fmt.Errorf("coordinate %q: %w", s, err)
	}
	return world.Coord{X: x, Y: y}, nil
}
