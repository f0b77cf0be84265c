// Weather configuration sources. A session's weather description comes from a
// remote endpoint when one is configured, then a local file, and finally the
// built-in tables. A malformed or unreachable description is never fatal.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"
)

// ErrMalformed is returned when a weather description lacks its data envelope.
var ErrMalformed = errors.New("malformed weather description")

// Description is the external weather format:
//
//	{"data": {"conditions": [...], "initial": {"condition": "clear", "intensity": 0.0},
//	          "transition": {"clear": {"clouds": 0.3, ...}, ...}}}
//
// "multipliers" and "stamina_extra" may optionally override the effect tables.
type Description struct {
	Data *struct {
		Conditions   []Condition                         `json:"conditions"`
		Initial      *State                              `json:"initial"`
		Transition   map[Condition]map[Condition]float64 `json:"transition"`
		Multipliers  map[Condition]float64               `json:"multipliers"`
		StaminaExtra map[Condition]float64               `json:"stamina_extra"`
	} `json:"data"`
}

// ParseDescription converts a raw description into a Config. Rows are
// normalized; unknown conditions are dropped.
func ParseDescription(body []byte) (Config, error) {
	var desc Description
	if err := json.Unmarshal(body, &desc); err != nil {
		return Config{}, fmt.Errorf("parse weather: %w", err)
	}
	if desc.Data == nil {
		return Config{}, ErrMalformed
	}
	d := desc.Data

	cfg := Config{
		Conditions: d.Conditions,
		Tables: DefaultTables().Merge(Tables{
			Multipliers:  d.Multipliers,
			StaminaExtra: d.StaminaExtra,
		}),
		Initial: State{Condition: Clear, Intensity: 0.0},
	}
	if len(cfg.Conditions) == 0 {
		cfg.Conditions = append([]Condition(nil), AllConditions...)
	}
	if d.Initial != nil {
		if d.Initial.Condition != "" {
			cfg.Initial.Condition = d.Initial.Condition
		}
		cfg.Initial.Intensity = clamp01(d.Initial.Intensity)
	}
	cfg.Matrix = NewMatrix(d.Transition, cfg.Conditions)
	return cfg, nil
}

// Source loads a weather Config, remembering the last good remote payload.
type Source struct {
	URL       string // Remote endpoint; empty disables the remote fetch
	LocalPath string // Local JSON file; empty disables the file fallback

	client *http.Client

	mu          sync.Mutex
	cached      []byte
	cachedAt    time.Time
	cacheTTL    time.Duration
	lastFailAt  time.Time
	failBackoff time.Duration
}

// NewSource creates a weather source.
func NewSource(url, localPath string) *Source {
	return &Source{
		URL:       url,
		LocalPath: localPath,
		client:    &http.Client{Timeout: 5 * time.Second},
		cacheTTL:  5 * time.Minute,
	}
}

// Load returns the best available configuration and a label naming where it
// came from ("remote", "local" or "default").
func (s *Source) Load(ctx context.Context) (Config, string) {
	if s != nil && s.URL != "" {
		body, err := s.fetch(ctx)
		if err == nil {
			cfg, perr := ParseDescription(body)
			if perr == nil {
				return cfg, "remote"
			}
			err = perr
		}
		slog.Warn("remote weather unavailable, trying local file", "url", s.URL, "error", err)
	}

	if s != nil && s.LocalPath != "" {
		body, err := os.ReadFile(s.LocalPath)
		if err == nil {
			cfg, perr := ParseDescription(body)
			if perr == nil {
				return cfg, "local"
			}
			err = perr
		}
		slog.Warn("local weather unavailable, using built-in defaults", "path", s.LocalPath, "error", err)
	}

	return DefaultConfig(), "default"
}

// fetch retrieves the remote description, using the cache if fresh and
// backing off (up to 10 minutes) after repeated failures.
func (s *Source) fetch(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && time.Since(s.cachedAt) < s.cacheTTL {
		return s.cached, nil
	}

	if s.failBackoff > 0 && time.Since(s.lastFailAt) < s.failBackoff {
		if s.cached != nil {
			return s.cached, nil
		}
		return nil, fmt.Errorf("weather backoff (%s remaining)", s.failBackoff-time.Since(s.lastFailAt))
	}

	body, err := s.fetchRemote(ctx)
	if err != nil {
		s.lastFailAt = time.Now()
		if s.failBackoff == 0 {
			s.failBackoff = time.Minute
		} else if s.failBackoff < 10*time.Minute {
			s.failBackoff *= 2
		}
		if s.cached != nil {
			return s.cached, nil
		}
		return nil, err
	}

	s.cached = body
	s.cachedAt = time.Now()
	s.failBackoff = 0
	return body, nil
}

func (s *Source) fetchRemote(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build weather request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read weather response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather endpoint error %d: %s", resp.StatusCode, string(body))
	}

	slog.Debug("weather description fetched", "url", s.URL, "bytes", len(body))
	return body, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
