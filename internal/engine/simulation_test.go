package engine

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/mini-colony/internal/agents"
	"github.com/talgya/mini-colony/internal/buildings"
	"github.com/talgya/mini-colony/internal/commands"
	"github.com/talgya/mini-colony/internal/construction"
	"github.com/talgya/mini-colony/internal/effects"
	"github.com/talgya/mini-colony/internal/jobs"
	"github.com/talgya/mini-colony/internal/world"
)

func newTestSim(t *testing.T) *Simulation {
	t.Helper()
	at := agents.DefaultTuning()
	at.WanderChance = 0
	sim := NewSimulation(world.NewGrid(16, 16), buildings.Default(), Params{
		TickRate:      10,
		SweepInterval: 50,
		PoolCapacity:  8,
		Seed:          5,
		Agents:        at,
		Construction:  construction.DefaultTuning(),
	})
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	sim.Construction.Log = quiet
	sim.Agents.Log = quiet
	return sim
}

type recordingSink struct {
	mu      sync.Mutex
	batches [][]effects.Effect
	ticks   []uint64
}

func (r *recordingSink) Publish(tick uint64, batch []effects.Effect) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks = append(r.ticks, tick)
	r.batches = append(r.batches, batch)
}

type countingObserver struct{ reports []TickReport }

func (c *countingObserver) ObserveTick(r TickReport) { c.reports = append(c.reports, r) }

func TestEffectsPublishedOncePerTick(t *testing.T) {
	sim := newTestSim(t)
	sink := &recordingSink{}
	sim.Sink = sink

	sim.Submit(
		commands.Command{Type: commands.TypePlaceBuilding, Index: 0, Building: "road", Instant: true},
		commands.Command{Type: commands.TypePlaceBuilding, Index: 5, Building: "road", Instant: true},
	)
	sim.Step(1)
	sim.Step(2)

	require.Len(t, sink.batches, 1, "empty ticks publish nothing")
	assert.Equal(t, uint64(1), sink.ticks[0])
	assert.Len(t, sink.batches[0], 4)
	assert.Zero(t, sim.Effects.Len())
	assert.Zero(t, sim.Commands.Len())
}

func TestConstructionRunsBeforeAgents(t *testing.T) {
	sim := newTestSim(t)
	a := sim.Spawner.SpawnAt(2, 2)
	a.Needs.Energy = 10
	sim.Agents.Add(a)

	quarters := sim.Grid.Index(10, 2)
	sim.Submit(commands.Command{Type: commands.TypePlaceBuilding, Index: quarters, Building: "quarters", Instant: true})

	// The agent thinks on this tick and already sees the new quarters.
	tick := uint64(10 - a.ID%10)
	sim.Step(tick)
	assert.Equal(t, agents.StateMoving, a.State)
	assert.Equal(t, agents.IntentRest, a.Intent.Kind)
	assert.Equal(t, quarters, a.Target)
}

func TestSweepRunsOnCadence(t *testing.T) {
	sim := newTestSim(t)
	anchor := sim.Grid.Index(4, 4)
	require.True(t, sim.Construction.Place(anchor, "quarters", true))
	sim.Effects.Drain()

	sim.Grid.Tiles[sim.Grid.Index(5, 5)].Building = "road"
	sim.Step(49)
	assert.Len(t, construction.Violations(sim.Grid), 1)

	sim.Step(50)
	assert.Empty(t, construction.Violations(sim.Grid))
	events := sim.RecentEvents(10)
	require.NotEmpty(t, events)
	assert.Equal(t, "maintenance", events[len(events)-1].Category)
}

func TestObserverReceivesReports(t *testing.T) {
	sim := newTestSim(t)
	obs := &countingObserver{}
	sim.Observer = obs
	sim.SpawnColonists(3)

	for tick := uint64(1); tick <= 5; tick++ {
		sim.Step(tick)
	}
	require.Len(t, obs.reports, 5)
	last := obs.reports[4]
	assert.Equal(t, uint64(5), last.Tick)
	assert.Equal(t, 3, last.States[agents.StateIdle])
	assert.Equal(t, uint64(5), sim.CurrentTick())
}

func TestExportRestore(t *testing.T) {
	sim := newTestSim(t)
	sim.SpawnColonists(2)
	sim.Stock.Credits = 77
	site := sim.Grid.Index(12, 12)
	sim.Construction.Place(site, "quarters", false)

	mover := sim.Agents.Agents[0]
	sim.Submit(commands.Command{Type: commands.TypeMoveAgent, AgentID: uint64(mover.ID), Index: sim.Grid.Index(0, 15)})
	sim.Step(1)
	require.Equal(t, agents.StateMoving, mover.State)

	st := sim.Export()
	assert.Equal(t, uint64(1), st.Tick)
	assert.Len(t, st.Agents, 2)
	assert.Len(t, st.Jobs, 1)

	fresh := newTestSim(t)
	require.NoError(t, fresh.Restore(st))
	assert.Equal(t, 77, fresh.Stock.Credits)
	assert.Equal(t, uint64(1), fresh.CurrentTick())
	assert.True(t, fresh.Grid.At(site).UnderConstruction)
	require.NotNil(t, fresh.Jobs.Find(jobs.TypeBuild, site))

	restored := fresh.Agents.Find(mover.ID)
	require.NotNil(t, restored)
	assert.Equal(t, agents.StateIdle, restored.State)
	assert.Nil(t, restored.Route)
	assert.Equal(t, -1, restored.Target)
	assert.Equal(t, st.NextAgentID, fresh.Spawner.NextID())
}

func TestRestoreRejectsMismatchedGrid(t *testing.T) {
	sim := newTestSim(t)
	st := sim.Export()
	st.Width = 3
	assert.Error(t, sim.Restore(st))

	st = sim.Export()
	st.Version = 99
	assert.Error(t, sim.Restore(st))
}

func TestReadersDuringSteps(t *testing.T) {
	sim := newTestSim(t)
	sim.SpawnColonists(10)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				_ = sim.Status()
				sim.View(func(s *Simulation) { _ = s.Agents.Snapshot() })
				sim.Submit(commands.Command{Type: commands.TypeBulldoze, Index: 3})
			}
		}()
	}
	for tick := uint64(1); tick <= 200; tick++ {
		sim.Step(tick)
	}
	close(stop)
	wg.Wait()
	assert.Equal(t, 10, sim.Status().Agents)
}
