// Package api provides the HTTP API for observing a run.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/courier-sim/internal/agents"
	"github.com/talgya/courier-sim/internal/engine"
	"github.com/talgya/courier-sim/internal/orders"
	"github.com/talgya/courier-sim/internal/persistence"
)

const (
	maxStreams     = 4
	commandTimeout = 2 * time.Second
	writeTimeout   = 5 * time.Second
)

// Server serves the run state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB // Optional; /runs answers 503 without it.
	RunID    string
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// Active websocket stream count (atomic).
	streams int32

	upgrader websocket.Upgrader
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	// The stream and the run history touch the socket layer and the disk.
	streamLimiter := NewRateLimiter(30, time.Minute)
	runsLimiter := NewRateLimiter(120, time.Minute)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/weather", s.handleWeather)
	mux.HandleFunc("/api/v1/couriers", s.handleCouriers)
	mux.HandleFunc("/api/v1/orders", s.handleOrders)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/runs", RateLimitMiddleware(runsLimiter, s.handleRuns))
	mux.HandleFunc("GET /api/v1/runs/{id}", RateLimitMiddleware(runsLimiter, s.handleRunDetail))

	mux.HandleFunc("/api/v1/stream", RateLimitMiddleware(streamLimiter, s.handleStream))

	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/cancel", s.adminOnly(s.handleCancel))

	return corsMiddleware(mux)
}

// Start serves the API until ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", srv.Addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// COURIER_CORS_ORIGINS is a comma-separated list of extra origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("COURIER_CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no COURIER_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Snapshot()
	status := map[string]any{
		"name":     "courier-sim",
		"run_id":   s.RunID,
		"tick":     snap.Tick,
		"clock":    snap.Clock,
		"elapsed":  snap.Elapsed.Seconds(),
		"speed":    s.speed(),
		"couriers": len(snap.Couriers),
		"weather": map[string]any{
			"name":       snap.Weather.Name,
			"severity":   snap.Weather.Severity,
			"multiplier": snap.Weather.Multiplier,
		},
		"stats": snap.Stats,
	}
	writeJSON(w, status)
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Snapshot()
	writeJSON(w, map[string]any{
		"origin":  snap.Origin,
		"current": snap.Weather,
	})
}

func (s *Server) handleCouriers(w http.ResponseWriter, r *http.Request) {
	couriers := s.Sim.Snapshot().Couriers

	if tier := r.URL.Query().Get("tier"); tier != "" {
		t, ok := agents.ParseTier(tier)
		if !ok {
			http.Error(w, fmt.Sprintf("unknown tier %q", tier), http.StatusBadRequest)
			return
		}
		var filtered []engine.CourierView
		for _, c := range couriers {
			if c.Tier == t.String() {
				filtered = append(filtered, c)
			}
		}
		couriers = filtered
	}
	if couriers == nil {
		couriers = []engine.CourierView{}
	}
	writeJSON(w, couriers)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Snapshot()
	open := snap.Open
	if open == nil {
		open = []orders.Order{}
	}
	writeJSON(w, map[string]any{
		"open":    open,
		"queued":  snap.Stats.QueuedOrders,
		"carried": snap.Stats.CarriedOrders,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	events := s.Sim.Snapshot().Events

	// Optional category filter.
	if category := r.URL.Query().Get("category"); category != "" {
		var filtered []engine.Event
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	out := events[start:]
	if out == nil {
		out = []engine.Event{}
	}
	writeJSON(w, out)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	runs, err := s.DB.Runs(limit)
	if err != nil {
		slog.Error("run query failed", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []persistence.Run{}
	}
	writeJSON(w, runs)
}

func (s *Server) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	id := r.PathValue("id")

	results, err := s.DB.CourierResults(id)
	if err != nil {
		slog.Error("courier result query failed", "run", id, "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	events, err := s.DB.RecentEvents(id, 100)
	if err != nil {
		slog.Error("event query failed", "run", id, "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if len(results) == 0 && len(events) == 0 {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]any{
		"id":       id,
		"couriers": results,
		"events":   events,
	})
}

func (s *Server) speed() float64 {
	if s.Eng == nil {
		return 0
	}
	return s.Eng.Speed()
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		if s.Eng == nil {
			http.Error(w, "engine not available", http.StatusServiceUnavailable)
			return
		}
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.speed()})
}

// handleCancel drops a courier's most recent pickup. The cancellation runs on
// the engine goroutine; the handler waits for its result.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		CourierID uint32 `json:"courier_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	type result struct {
		order orders.Order
		err   error
	}
	done := make(chan result, 1)
	ok := s.Sim.Enqueue(func(sim *engine.Simulation) {
		o, err := sim.CancelLast(agents.CourierID(req.CourierID))
		done <- result{o, err}
	})
	if !ok {
		http.Error(w, "command queue full", http.StatusServiceUnavailable)
		return
	}

	select {
	case res := <-done:
		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{
			"courier_id": req.CourierID,
			"cancelled":  res.order,
		})
	case <-time.After(commandTimeout):
		http.Error(w, "simulation not running", http.StatusServiceUnavailable)
	case <-r.Context().Done():
	}
}

// handleStream upgrades to a websocket and pushes every published snapshot.
// Slow clients miss frames rather than stall the tick loop.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	current := atomic.AddInt32(&s.streams, 1)
	if current > maxStreams {
		atomic.AddInt32(&s.streams, -1)
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.streams, -1)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch, cancel := s.Sim.Subscribe()
	defer cancel()

	// The client never sends anything useful; reading surfaces the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	slog.Info("stream client connected", "remote", r.RemoteAddr)
	if err := writeFrame(conn, s.Sim.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return
			}
			if err := writeFrame(conn, snap); err != nil {
				slog.Info("stream client dropped", "remote", r.RemoteAddr, "error", err)
				return
			}
		case <-closed:
			slog.Info("stream client disconnected", "remote", r.RemoteAddr)
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, snap engine.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
