package persistence

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/mini-colony/internal/agents"
	"github.com/talgya/mini-colony/internal/buildings"
	"github.com/talgya/mini-colony/internal/commands"
	"github.com/talgya/mini-colony/internal/construction"
	"github.com/talgya/mini-colony/internal/engine"
	"github.com/talgya/mini-colony/internal/jobs"
	"github.com/talgya/mini-colony/internal/world"
)

func testSim(t *testing.T) *engine.Simulation {
	t.Helper()
	sim := engine.NewSimulation(world.NewGrid(12, 12), buildings.Default(), engine.Params{
		TickRate:      10,
		SweepInterval: 50,
		PoolCapacity:  4,
		Seed:          11,
		Agents:        agents.DefaultTuning(),
		Construction:  construction.DefaultTuning(),
	})
	sim.SpawnColonists(3)
	sim.Stock.Credits = 120
	sim.Stock.Crystals = 4
	sim.Grid.Tiles[7].Overlay = world.OverlayOre
	sim.Submit(
		commands.Command{Type: commands.TypePlaceBuilding, Index: 0, Building: "quarters"},
		commands.Command{Type: commands.TypePlaceBuilding, Index: 30, Building: "road", Instant: true},
		commands.Command{Type: commands.TypeDesignateMine, Index: 7},
	)
	for tick := uint64(1); tick <= 20; tick++ {
		sim.Step(tick)
	}
	return sim
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "colony.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := openTestDB(t)
	assert.False(t, db.HasWorldState())

	sim := testSim(t)
	want := sim.Export()
	require.NoError(t, db.SaveWorldState(sim))
	assert.True(t, db.HasWorldState())

	got, err := db.LoadWorldState()
	require.NoError(t, err)
	assert.Equal(t, want.Tick, got.Tick)
	assert.Equal(t, want.Seed, got.Seed)
	assert.Equal(t, want.Stock, got.Stock)
	assert.Equal(t, want.NextAgentID, got.NextAgentID)
	assert.Equal(t, want.Tiles, got.Tiles)
	assert.ElementsMatch(t, want.Jobs, got.Jobs)
	require.Len(t, got.Agents, len(want.Agents))
	for i := range want.Agents {
		w, g := want.Agents[i], got.Agents[i]
		assert.Equal(t, w.ID, g.ID)
		assert.Equal(t, w.State, g.State)
		assert.Equal(t, w.Intent, g.Intent)
		assert.Equal(t, w.Needs, g.Needs)
	}

	fresh := engine.NewSimulation(world.NewGrid(12, 12), buildings.Default(), engine.Params{TickRate: 10, PoolCapacity: 4})
	require.NoError(t, fresh.Restore(got))
	assert.NotNil(t, fresh.Jobs.Find(jobs.TypeBuild, 0))
}

func TestSaveReplacesPreviousState(t *testing.T) {
	db := openTestDB(t)
	sim := testSim(t)
	require.NoError(t, db.SaveWorldState(sim))

	sim.Step(21)
	sim.Update(func(s *engine.Simulation) { s.Jobs.Restore(nil) })
	require.NoError(t, db.SaveWorldState(sim))

	got, err := db.LoadWorldState()
	require.NoError(t, err)
	assert.Equal(t, uint64(21), got.Tick)
	assert.Empty(t, got.Jobs)
}

func TestEventsAreNotDuplicated(t *testing.T) {
	db := openTestDB(t)
	events := []engine.Event{
		{Tick: 1, Description: "a", Category: "construction"},
		{Tick: 2, Description: "b", Category: "mining"},
	}
	require.NoError(t, db.SaveEvents(events))
	require.NoError(t, db.SaveEvents(append(events, engine.Event{Tick: 3, Description: "c", Category: "mining"})))

	got, err := db.RecentEvents(10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].Description)
}

func TestLoadWithoutStateFails(t *testing.T) {
	db := openTestDB(t)
	_, err := db.LoadWorldState()
	assert.Error(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	st := testSim(t).Export()

	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, st))

	hdr, got, err := ReadSnapshot(&buf)
	require.NoError(t, err)
	assert.Equal(t, st.Tick, hdr.Tick)
	assert.Equal(t, len(st.Agents), hdr.Agents)
	assert.Equal(t, st.Tiles, got.Tiles)
	assert.Equal(t, st.Jobs, got.Jobs)
	assert.Equal(t, st.Stock, got.Stock)
}

func TestSnapshotFile(t *testing.T) {
	st := testSim(t).Export()
	path := filepath.Join(t.TempDir(), "snaps", "colony.snap.zst")
	require.NoError(t, SaveSnapshotFile(path, st))

	hdr, got, err := LoadSnapshotFile(path)
	require.NoError(t, err)
	assert.Equal(t, st.Width, hdr.Width)
	assert.Equal(t, st.NextAgentID, got.NextAgentID)
}

func TestReadSnapshotRejectsGarbage(t *testing.T) {
	_, _, err := ReadSnapshot(bytes.NewReader([]byte("not zstd")))
	assert.Error(t, err)
}
