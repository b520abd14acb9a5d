// Package api serves the colony over HTTP.
// GET endpoints are public observation. POST endpoints and snapshot
// downloads require the admin bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/mini-colony/internal/agents"
	"github.com/talgya/mini-colony/internal/commands"
	"github.com/talgya/mini-colony/internal/engine"
	"github.com/talgya/mini-colony/internal/jobs"
	"github.com/talgya/mini-colony/internal/pathpool"
	"github.com/talgya/mini-colony/internal/persistence"
	"github.com/talgya/mini-colony/internal/world"
)

// maxCommandBody caps POST /api/v1/commands payloads.
const maxCommandBody = 1 << 20

// Server serves the colony state over HTTP.
type Server struct {
	Sim         *engine.Simulation
	Eng         *engine.Engine
	DB          *persistence.DB // Optional; nil disables POST /snapshot
	Hub         *Hub
	Metrics     prometheus.Gatherer // Optional; nil hides /metrics
	Limiter     *RateLimiter        // Optional; applied to command submission
	Addr        string
	AdminKey    string // Bearer token for admin endpoints. Empty = admin disabled.
	CORSOrigins []string
	Log         *slog.Logger

	srv *http.Server
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/grid", s.handleGrid)
	mux.HandleFunc("GET /api/v1/grid/{index}", s.handleTile)
	mux.HandleFunc("GET /api/v1/agents", s.handleAgents)
	mux.HandleFunc("GET /api/v1/agents/{id}", s.handleAgent)
	mux.HandleFunc("GET /api/v1/jobs", s.handleJobs)
	mux.HandleFunc("GET /api/v1/pool", s.handlePool)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	if s.Hub != nil {
		mux.Handle("GET /api/v1/stream", s.Hub)
	}
	if s.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.Metrics, promhttp.HandlerOpts{}))
	}

	submit := s.adminOnly(s.handleCommands)
	if s.Limiter != nil {
		submit = s.Limiter.Middleware(submit)
	}
	mux.HandleFunc("POST /api/v1/commands", submit)
	mux.HandleFunc("GET /api/v1/speed", s.handleSpeed)
	mux.HandleFunc("POST /api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("POST /api/v1/snapshot", s.adminOnly(s.handleSnapshot))
	mux.HandleFunc("GET /api/v1/snapshot", s.requireAdmin(s.handleSnapshotExport))

	return corsMiddleware(s.CORSOrigins, mux)
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger().Info("HTTP API starting", "addr", s.Addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger().Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the server and disconnects stream subscribers.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.Hub != nil {
		s.Hub.Close()
	}
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// corsMiddleware adds CORS headers for allowed frontend origins. Localhost
// dev servers are always allowed.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowed := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); allowed[origin] {
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
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && token == s.AdminKey
}

// requireAdmin rejects requests without the admin token.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no COLONY_API_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	guarded := s.requireAdmin(next)
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			guarded(w, r)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Sim.Status()
	resp := map[string]any{
		"name":   "mini-colony",
		"status": st,
	}
	if s.Eng != nil {
		resp["speed"] = s.Eng.Speed()
	}
	if s.Hub != nil {
		resp["stream_clients"] = s.Hub.Clients()
	}
	writeJSON(w, resp)
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	var resp struct {
		Width  int          `json:"width"`
		Height int          `json:"height"`
		Tiles  []world.Tile `json:"tiles"`
	}
	s.Sim.View(func(sim *engine.Simulation) {
		resp.Width = sim.Grid.Width
		resp.Height = sim.Grid.Height
		resp.Tiles = sim.Grid.Snapshot()
	})
	writeJSON(w, resp)
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "invalid index", http.StatusBadRequest)
		return
	}
	var (
		tile  world.Tile
		found bool
	)
	s.Sim.View(func(sim *engine.Simulation) {
		if t := sim.Grid.At(idx); t != nil {
			tile, found = *t, true
		}
	})
	if !found {
		http.Error(w, "tile not found", http.StatusNotFound)
		return
	}
	writeJSON(w, tile)
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	var list []agents.Agent
	s.Sim.View(func(sim *engine.Simulation) {
		list = sim.Agents.Snapshot()
	})

	if state := r.URL.Query().Get("state"); state != "" {
		want, err := agents.ParseState(state)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filtered := list[:0]
		for _, a := range list {
			if a.State == want {
				filtered = append(filtered, a)
			}
		}
		list = filtered
	}
	writeJSON(w, list)
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid agent id", http.StatusBadRequest)
		return
	}
	var (
		agent     agents.Agent
		waypoints int
		found     bool
	)
	s.Sim.View(func(sim *engine.Simulation) {
		if a := sim.Agents.Find(agents.AgentID(id)); a != nil {
			agent, waypoints, found = *a, a.Waypoints(), true
		}
	})
	if !found {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"agent":     agent,
		"waypoints": waypoints,
	})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	var list []jobs.Job
	s.Sim.View(func(sim *engine.Simulation) {
		list = sim.Jobs.All()
	})
	writeJSON(w, list)
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	var st pathpool.Stats
	s.Sim.View(func(sim *engine.Simulation) {
		st = sim.Pool.Stats()
	})
	writeJSON(w, st)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	events := s.Sim.RecentEvents(limit)

	if category := r.URL.Query().Get("category"); category != "" {
		filtered := events[:0]
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}
	writeJSON(w, events)
}

// handleCommands validates a command or batch and queues it for the next
// tick. The tick applies it; the response only acknowledges receipt.
func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCommandBody))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	cmds, err := commands.DecodeBatch(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.Sim.Submit(cmds...)
	s.logger().Debug("commands queued", "count", len(cmds))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"accepted": len(cmds),
		"tick":     s.Sim.CurrentTick(),
	})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "engine not available", http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodPost {
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
		s.logger().Info("speed changed", "speed", req.Speed)
	}
	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	if err := s.DB.SaveWorldState(s.Sim); err != nil {
		s.logger().Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"tick":    s.Sim.CurrentTick(),
		"message": "snapshot saved",
	})
}

// handleSnapshotExport streams the current state as a zstd snapshot.
func (s *Server) handleSnapshotExport(w http.ResponseWriter, r *http.Request) {
	st := s.Sim.Export()
	w.Header().Set("Content-Type", "application/zstd")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=colony-%d.snap.zst", st.Tick))
	if err := persistence.WriteSnapshot(w, st); err != nil {
		s.logger().Error("snapshot export failed", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
