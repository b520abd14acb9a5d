// Simulation ties together all colony systems and runs them each tick.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/mini-colony/internal/agents"
	"github.com/talgya/mini-colony/internal/buildings"
	"github.com/talgya/mini-colony/internal/commands"
	"github.com/talgya/mini-colony/internal/construction"
	"github.com/talgya/mini-colony/internal/economy"
	"github.com/talgya/mini-colony/internal/effects"
	"github.com/talgya/mini-colony/internal/entropy"
	"github.com/talgya/mini-colony/internal/jobs"
	"github.com/talgya/mini-colony/internal/pathfind"
	"github.com/talgya/mini-colony/internal/pathpool"
	"github.com/talgya/mini-colony/internal/world"
)

// maxEvents bounds the in-memory event log.
const maxEvents = 1000

// Params configures a Simulation.
type Params struct {
	TickRate      int
	SweepInterval uint64 // Ticks between consistency sweeps; 0 disables
	PoolCapacity  int
	Seed          uint64
	StartStock    economy.Stockpile
	Agents        agents.Tuning
	Construction  construction.Tuning
}

// Event is a notable occurrence in the colony.
type Event struct {
	Tick        uint64 `json:"tick" db:"tick"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"` // "construction", "mining", "rehabilitation", "maintenance"
}

// TickReport summarises one tick for observers.
type TickReport struct {
	Tick         uint64
	Duration     time.Duration
	Commands     int
	Effects      int
	Repaired     int
	Jobs         int
	States       map[agents.State]int
	Stock        economy.Stockpile
	Pool         pathpool.Stats
	Agents       agents.Stats
	Construction construction.Stats
}

// Observer receives a report after every tick, outside the simulation lock.
type Observer interface {
	ObserveTick(r TickReport)
}

// Simulation holds the complete colony state and wires systems together.
// Step is the single writer; readers go through View.
type Simulation struct {
	mu sync.RWMutex

	Grid         *world.Grid
	Catalog      *buildings.Catalog
	Jobs         *jobs.Board
	Stock        *economy.Stockpile
	Pool         *pathpool.Pool
	Construction *construction.System
	Agents       *agents.System
	Spawner      *agents.Spawner

	Commands *commands.Queue // Written by other goroutines
	Effects  *effects.Queue
	Sink     effects.Sink
	Observer Observer

	Events   []Event
	LastTick uint64

	params Params
	rng    *entropy.Source
}

// NewSimulation assembles the subsystems over a grid.
func NewSimulation(g *world.Grid, cat *buildings.Catalog, p Params) *Simulation {
	if p.TickRate <= 0 {
		p.TickRate = 10
	}
	board := jobs.NewBoard()
	stock := p.StartStock
	fx := &effects.Queue{}
	pool := pathpool.New(p.PoolCapacity)
	rng := entropy.New(p.Seed)

	con := construction.New(g, cat, board, &stock, fx, p.Construction)
	ag := agents.New(agents.Env{
		Grid:    g,
		Catalog: cat,
		Jobs:    board,
		Stock:   &stock,
		Effects: fx,
		Builder: con,
		Paths:   pathfind.New(cat.IsSolid),
		Pool:    pool,
		Rand:    rng,
	}, p.Agents)

	return &Simulation{
		Grid:         g,
		Catalog:      cat,
		Jobs:         board,
		Stock:        &stock,
		Pool:         pool,
		Construction: con,
		Agents:       ag,
		Spawner:      agents.NewSpawner(rng),
		Commands:     &commands.Queue{},
		Effects:      fx,
		params:       p,
		rng:          rng,
	}
}

// Dt returns the simulated seconds covered by one tick.
func (s *Simulation) Dt() float64 {
	return 1 / float64(s.params.TickRate)
}

// TickRate returns the configured ticks per simulated second.
func (s *Simulation) TickRate() int {
	return s.params.TickRate
}

// Seed returns the seed of the simulation's random source.
func (s *Simulation) Seed() uint64 {
	return s.rng.Seed()
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastTick
}

// View runs fn with the simulation read-locked. fn must not retain
// references into the state after returning.
func (s *Simulation) View(fn func(s *Simulation)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s)
}

// Update runs fn with the simulation write-locked, between ticks.
func (s *Simulation) Update(fn func(s *Simulation)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// Submit queues commands for the next tick. Safe for concurrent use.
func (s *Simulation) Submit(cmds ...commands.Command) {
	s.Commands.Submit(cmds...)
}

// Step runs one tick: commands, construction, sweep, agents, then hands the
// tick's effects to the sink once all mutations are done.
func (s *Simulation) Step(tick uint64) {
	start := time.Now()
	dt := s.Dt()

	s.mu.Lock()
	s.LastTick = tick

	cmds := s.Commands.Drain()
	s.Construction.ProcessCommands(cmds)
	s.Agents.ProcessCommands(cmds)
	s.Construction.AdvanceRehabilitation(dt)

	repaired := 0
	if s.params.SweepInterval > 0 && tick%s.params.SweepInterval == 0 {
		repaired = s.Construction.Sweep()
	}

	s.Agents.Tick(tick, dt)

	batch := s.Effects.Drain()
	s.recordEvents(tick, batch, repaired)

	report := TickReport{
		Tick:         tick,
		Commands:     len(cmds),
		Effects:      len(batch),
		Repaired:     repaired,
		Jobs:         s.Jobs.Len(),
		States:       s.Agents.CountByState(),
		Stock:        *s.Stock,
		Pool:         s.Pool.Stats(),
		Agents:       s.Agents.Stats(),
		Construction: s.Construction.Stats(),
	}
	s.mu.Unlock()

	if s.Sink != nil && len(batch) > 0 {
		s.Sink.Publish(tick, batch)
	}
	report.Duration = time.Since(start)
	if s.Observer != nil {
		s.Observer.ObserveTick(report)
	}
}

// recordEvents turns the notable parts of an effect batch into log events.
func (s *Simulation) recordEvents(tick uint64, batch []effects.Effect, repaired int) {
	for _, e := range batch {
		var ev Event
		switch {
		case e.Kind == effects.KindAudio && e.Cue == effects.CueBuildComplete:
			ev = Event{Description: "construction finished", Category: "construction"}
		case e.Kind == effects.KindAudio && e.Cue == effects.CueBulldoze:
			ev = Event{Description: "structure bulldozed", Category: "construction"}
		case e.Kind == effects.KindAudio && e.Cue == effects.CueRehabilitate:
			ev = Event{Description: "land rehabilitated", Category: "rehabilitation"}
		case e.Kind == effects.KindFX && e.FX == effects.FXOreDepleted:
			ev = Event{Description: fmt.Sprintf("ore vein at cell %d exhausted", e.Index), Category: "mining"}
		default:
			continue
		}
		ev.Tick = tick
		s.Events = append(s.Events, ev)
	}
	if repaired > 0 {
		s.Events = append(s.Events, Event{
			Tick:        tick,
			Description: fmt.Sprintf("consistency sweep repaired %d tiles", repaired),
			Category:    "maintenance",
		})
	}
	if len(s.Events) > maxEvents {
		s.Events = s.Events[len(s.Events)-maxEvents:]
	}
}

// RecentEvents returns up to limit of the newest events, newest last.
func (s *Simulation) RecentEvents(limit int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if limit > 0 && len(s.Events) > limit {
		start = len(s.Events) - limit
	}
	return append([]Event(nil), s.Events[start:]...)
}

// Status is a point-in-time summary of the colony.
type Status struct {
	Tick      uint64               `json:"tick"`
	SimTime   string               `json:"sim_time"`
	Agents    int                  `json:"agents"`
	States    map[agents.State]int `json:"states"`
	Jobs      int                  `json:"jobs"`
	Stock     economy.Stockpile    `json:"stock"`
	Buildings int                  `json:"buildings"`
	Pending   int                  `json:"under_construction"`
	Powered   int                  `json:"powered"`
}

// Status summarises the colony under the read lock.
func (s *Simulation) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Tick:    s.LastTick,
		SimTime: SimTime(s.LastTick, s.params.TickRate),
		Agents:  len(s.Agents.Agents),
		States:  s.Agents.CountByState(),
		Jobs:    s.Jobs.Len(),
		Stock:   *s.Stock,
	}
	for i := range s.Grid.Tiles {
		t := &s.Grid.Tiles[i]
		if t.Building == world.BuildingNone || t.IsFollower() {
			continue
		}
		st.Buildings++
		if t.UnderConstruction {
			st.Pending++
		}
		if t.Powered {
			st.Powered++
		}
	}
	return st
}

// Report logs the periodic colony summary.
func (s *Simulation) Report(tick uint64) {
	st := s.Status()
	pool := s.poolStats()
	slog.Info("colony report",
		"tick", tick,
		"time", st.SimTime,
		"agents", st.Agents,
		"idle", st.States[agents.StateIdle],
		"moving", st.States[agents.StateMoving],
		"working", st.States[agents.StateWorking],
		"sleeping", st.States[agents.StateSleeping],
		"eating", st.States[agents.StateEating],
		"structures", st.Buildings,
		"under_construction", st.Pending,
		"jobs", st.Jobs,
		"minerals", humanize.Comma(int64(st.Stock.Minerals)),
		"credits", humanize.Comma(int64(st.Stock.Credits)),
		"crystals", humanize.Comma(int64(st.Stock.Crystals)),
		"routes_created", humanize.Comma(int64(pool.Created)),
		"routes_reused", humanize.Comma(int64(pool.Reused)),
	)
}

func (s *Simulation) poolStats() pathpool.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Pool.Stats()
}
