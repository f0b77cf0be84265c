// Package config loads the simulation configuration from YAML, fills in
// defaults, and applies environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/courier-sim/internal/agents"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the full simulation configuration.
type Config struct {
	Seed     int64         `yaml:"seed"`
	Duration time.Duration `yaml:"duration"`  // Simulated run length; 0 runs until stopped
	TickRate time.Duration `yaml:"tick_rate"` // Simulated time per engine tick
	Realtime bool          `yaml:"realtime"`  // Pace ticks against the wall clock

	City     CityConfig     `yaml:"city"`
	Weather  WeatherConfig  `yaml:"weather"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Couriers CouriersConfig `yaml:"couriers"`
	Storage  StorageConfig  `yaml:"storage"`
	API      APIConfig      `yaml:"api"`
	Entropy  EntropyConfig  `yaml:"entropy"`
}

// CityConfig selects a city file or a generated city.
type CityConfig struct {
	Path      string `yaml:"path"` // JSON city description; empty generates one
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	BlockSize int    `yaml:"block_size"`
}

// WeatherConfig names the weather description sources.
type WeatherConfig struct {
	URL       string `yaml:"url"`
	LocalPath string `yaml:"local_path"`
}

// JobsConfig selects a job file or generated jobs.
type JobsConfig struct {
	Path       string        `yaml:"path"` // JSON job description; empty generates jobs
	Count      int           `yaml:"count"`
	Separation int           `yaml:"separation"`
	Spread     time.Duration `yaml:"spread"`
	Board      int           `yaml:"board"` // Orders released onto the board at start
}

// CouriersConfig describes the computer-controlled fleet.
type CouriersConfig struct {
	Tiers          []string `yaml:"tiers"`
	MovesPerSecond float64  `yaml:"moves_per_second"`
	Separation     int      `yaml:"separation"`
}

// StorageConfig locates the run store.
type StorageConfig struct {
	Path string `yaml:"path"` // SQLite file; empty disables persistence
}

// APIConfig controls the HTTP server.
type APIConfig struct {
	Port     int    `yaml:"port"` // 0 disables the server
	AdminKey string `yaml:"-"`    // Environment only
}

// EntropyConfig selects the seed source when Seed is 0.
type EntropyConfig struct {
	RandomOrgKey string `yaml:"-"` // Environment only
}

// Default returns the built-in configuration: a generated 30×30 city, one
// courier of each tier, three simulated minutes.
func Default() Config {
	return Config{
		Duration: 3 * time.Minute,
		TickRate: 50 * time.Millisecond,
		City: CityConfig{
			Width:     30,
			Height:    30,
			BlockSize: 4,
		},
		Weather: WeatherConfig{
			LocalPath: "data/weather.json",
		},
		Jobs: JobsConfig{
			Count:      12,
			Separation: 2,
			Spread:     2 * time.Minute,
			Board:      3,
		},
		Couriers: CouriersConfig{
			Tiers:          []string{"reactive", "lookahead", "strategic"},
			MovesPerSecond: 8,
			Separation:     2,
		},
	}
}

// Load reads a YAML file over the defaults and applies the environment.
// An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if cfg, err = Parse(f); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, cfg.Validate()
}

// Parse decodes YAML from r over the defaults. Unknown keys are rejected.
func Parse(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("COURIER_ADMIN_KEY"); v != "" {
		c.API.AdminKey = v
	}
	if v := getenv("COURIER_WEATHER_URL"); v != "" {
		c.Weather.URL = v
	}
	if v := getenv("COURIER_DB"); v != "" {
		c.Storage.Path = v
	}
	if v := getenv("COURIER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.API.Port = port
		}
	}
	if v := getenv("RANDOM_ORG_API_KEY"); v != "" {
		c.Entropy.RandomOrgKey = v
	}
}

// Validate checks ranges and tier names.
func (c Config) Validate() error {
	switch {
	case c.TickRate <= 0:
		return fmt.Errorf("%w: tick_rate must be positive", ErrInvalid)
	case c.Duration < 0:
		return fmt.Errorf("%w: duration must not be negative", ErrInvalid)
	case c.City.Path == "" && (c.City.Width < 3 || c.City.Height < 3):
		return fmt.Errorf("%w: generated city must be at least 3x3", ErrInvalid)
	case c.Couriers.MovesPerSecond <= 0:
		return fmt.Errorf("%w: moves_per_second must be positive", ErrInvalid)
	case len(c.Couriers.Tiers) == 0:
		return fmt.Errorf("%w: at least one courier tier is required", ErrInvalid)
	case c.API.Port < 0 || c.API.Port > 65535:
		return fmt.Errorf("%w: api port %d out of range", ErrInvalid, c.API.Port)
	}
	for _, name := range c.Couriers.Tiers {
		if _, ok := agents.ParseTier(name); !ok {
			return fmt.Errorf("%w: unknown courier tier %q", ErrInvalid, name)
		}
	}
	return nil
}

// Tiers returns the parsed courier tiers. Call after Validate.
func (c Config) Tiers() []agents.Tier {
	out := make([]agents.Tier, 0, len(c.Couriers.Tiers))
	for _, name := range c.Couriers.Tiers {
		t, _ := agents.ParseTier(name)
		out = append(out, t)
	}
	return out
}
