package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/talgya/mini-colony/internal/api"
	"github.com/talgya/mini-colony/internal/buildings"
	"github.com/talgya/mini-colony/internal/config"
	"github.com/talgya/mini-colony/internal/engine"
	"github.com/talgya/mini-colony/internal/metrics"
	"github.com/talgya/mini-colony/internal/persistence"
	"github.com/talgya/mini-colony/internal/world"
)

func run(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("mini-colony starting")

	db, err := openDB(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	sim, resumed, err := loadOrGenerate(cfg, db)
	if err != nil {
		return err
	}
	if !resumed {
		if err := db.SaveWorldState(sim); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	collector := metrics.New()
	sim.Observer = collector

	eng := engine.NewEngine(cfg.Simulation.TickRate)
	eng.Tick = sim.CurrentTick()

	save := func(reason string) {
		if err := db.SaveWorldState(sim); err != nil {
			slog.Error("save failed", "reason", reason, "error", err)
			return
		}
		slog.Debug("world saved", "reason", reason, "tick", sim.CurrentTick())
	}

	var minutes int
	eng.OnTick = sim.Step
	eng.OnMinute = func(tick uint64) {
		sim.Report(tick)
		minutes++
		if n := cfg.Database.AutosaveMinutes; n > 0 && minutes%n == 0 {
			save("autosave")
		}
	}

	var srv *api.Server
	if cfg.API.Addr != "" {
		if cfg.API.AdminKey == "" {
			slog.Warn("COLONY_API_ADMIN_KEY not set; command submission and admin endpoints are disabled")
		}
		hub := api.NewHub(slog.Default(), cfg.API.StreamClients)
		sim.Sink = hub
		srv = &api.Server{
			Sim:         sim,
			Eng:         eng,
			DB:          db,
			Hub:         hub,
			Metrics:     collector.Registry(),
			Limiter:     api.NewRateLimiter(cfg.API.RateLimit, cfg.API.Burst),
			Addr:        cfg.API.Addr,
			AdminKey:    cfg.API.AdminKey,
			CORSOrigins: cfg.API.CORSOrigins,
			Log:         slog.Default(),
		}
		srv.Start()
	}

	st := sim.Status()
	slog.Info("colony ready",
		"agents", st.Agents,
		"structures", st.Buildings,
		"tick", st.Tick,
		"sim_time", st.SimTime,
		"resumed", resumed,
	)

	eng.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP shutdown failed", "error", err)
		}
		cancel()
	}

	slog.Info("final save...")
	if err := db.SaveWorldState(sim); err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	slog.Info("simulation stopped, world state saved", "tick", sim.CurrentTick())
	return nil
}

func openDB(path string) (*persistence.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := persistence.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	slog.Info("database opened", "path", path)
	return db, nil
}

// loadOrGenerate restores the saved colony or generates a fresh one.
func loadOrGenerate(cfg *config.Config, db *persistence.DB) (*engine.Simulation, bool, error) {
	cat, err := buildings.Load(cfg.Simulation.Catalog)
	if err != nil {
		return nil, false, fmt.Errorf("load building catalog: %w", err)
	}

	if db.HasWorldState() {
		st, err := db.LoadWorldState()
		if err != nil {
			return nil, false, fmt.Errorf("load world state: %w", err)
		}
		sim, err := restoreSimulation(cfg, cat, st)
		if err != nil {
			return nil, false, err
		}
		slog.Info("world state restored",
			"agents", len(st.Agents),
			"jobs", len(st.Jobs),
			"tick", st.Tick,
			"sim_time", engine.SimTime(st.Tick, cfg.Simulation.TickRate),
		)
		return sim, true, nil
	}

	slog.Info("no saved state found, generating new colony...")
	grid := world.Generate(cfg.World)
	for o, n := range world.OverlayCounts(grid) {
		slog.Info("overlay", "type", world.OverlayName(o), "count", n)
	}
	sim := engine.NewSimulation(grid, cat, cfg.Params())
	spawned := sim.SpawnColonists(cfg.Simulation.Colonists)
	slog.Info("colonists landed", "count", spawned, "seed", sim.Seed())
	return sim, false, nil
}

// restoreSimulation builds a simulation sized to st and loads it.
func restoreSimulation(cfg *config.Config, cat *buildings.Catalog, st engine.State) (*engine.Simulation, error) {
	p := cfg.Params()
	p.Seed = st.Seed
	sim := engine.NewSimulation(world.NewGrid(st.Width, st.Height), cat, p)
	if err := sim.Restore(st); err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	return sim, nil
}
