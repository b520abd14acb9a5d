package construction

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/mini-colony/internal/buildings"
	"github.com/talgya/mini-colony/internal/commands"
	"github.com/talgya/mini-colony/internal/economy"
	"github.com/talgya/mini-colony/internal/effects"
	"github.com/talgya/mini-colony/internal/jobs"
	"github.com/talgya/mini-colony/internal/world"
)

const testCatalog = `
buildings:
  - {type: lodge, name: Lodge, width: 2, depth: 2, build_time: 100, category: rest}
  - {type: shed, name: Shed, width: 1, depth: 1, build_time: 10, category: storage}
  - {type: generator, name: Generator, width: 1, depth: 1, build_time: 10, category: utility, source: true}
  - {type: conduit, name: Conduit, width: 1, depth: 1, build_time: 1, category: infrastructure}
`

func newTestSystem(t *testing.T) *System {
	t.Helper()
	cat, err := buildings.Parse([]byte(testCatalog))
	require.NoError(t, err)
	s := New(world.NewGrid(8, 8), cat, jobs.NewBoard(), &economy.Stockpile{}, &effects.Queue{}, DefaultTuning())
	s.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	return s
}

func headCount(g *world.Grid, head int) int {
	n := 0
	for i := range g.Tiles {
		if g.Tiles[i].Head == head {
			n++
		}
	}
	return n
}

func TestPlaceMultiTileStructure(t *testing.T) {
	s := newTestSystem(t)
	anchor := s.Grid.Index(2, 3)

	require.True(t, s.Place(anchor, "lodge", false))

	assert.Equal(t, 4, headCount(s.Grid, anchor))
	for _, idx := range s.Grid.Footprint(nil, anchor, 2, 2) {
		tile := s.Grid.At(idx)
		assert.Equal(t, world.BuildingType("lodge"), tile.Building)
		assert.True(t, tile.UnderConstruction)
		assert.Equal(t, 100.0, tile.ConstructionLeft)
		assert.True(t, tile.Explored)
	}
	assert.Empty(t, Violations(s.Grid))

	job := s.Jobs.Find(jobs.TypeBuild, anchor)
	require.NotNil(t, job)
	assert.Nil(t, job.Assignee)

	batch := s.Effects.Drain()
	require.Len(t, batch, 2)
	assert.Equal(t, effects.KindGridUpdate, batch[0].Kind)
	assert.Len(t, batch[0].Tiles, 4)
	assert.Equal(t, effects.CueBuildStart, batch[1].Cue)
}

func TestPlaceInstantAndClipped(t *testing.T) {
	s := newTestSystem(t)
	corner := s.Grid.Index(7, 7)
	s.Grid.Tiles[corner].Overlay = world.OverlayTree

	require.True(t, s.Place(corner, "lodge", true))
	tile := s.Grid.At(corner)
	assert.False(t, tile.UnderConstruction)
	assert.Zero(t, tile.ConstructionLeft)
	assert.Equal(t, world.OverlayNone, tile.Overlay)
	assert.Equal(t, 1, headCount(s.Grid, corner))
	assert.Equal(t, 0, s.Jobs.Len(), "instant placement creates no job")
}

func TestPlaceUnknownBuildingIsNoop(t *testing.T) {
	s := newTestSystem(t)
	assert.False(t, s.Place(5, "castle", false))
	assert.False(t, s.Place(-1, "shed", false))
	assert.Equal(t, world.BuildingNone, s.Grid.At(5).Building)
	assert.Equal(t, 0, s.Effects.Len())
}

func TestProgressFunnelsToAnchor(t *testing.T) {
	s := newTestSystem(t)
	anchor := s.Grid.Index(2, 3)
	s.Place(anchor, "lodge", false)
	cells := s.Grid.Footprint(nil, anchor, 2, 2)

	// Several workers on different footprint cells.
	for i := 0; i < 9; i++ {
		done := s.Progress(cells[i%len(cells)], 11)
		require.False(t, done)
		for _, idx := range cells {
			assert.True(t, s.Grid.At(idx).UnderConstruction)
		}
	}
	assert.InDelta(t, 1.0, s.Grid.At(anchor).ConstructionLeft, 1e-9)

	assert.True(t, s.Progress(cells[3], 11))
	for _, idx := range cells {
		tile := s.Grid.At(idx)
		assert.False(t, tile.UnderConstruction)
		assert.Zero(t, tile.ConstructionLeft)
	}
	assert.Nil(t, s.Jobs.Find(jobs.TypeBuild, anchor))
	assert.Empty(t, Violations(s.Grid))
}

func TestProgressSingleCall(t *testing.T) {
	s := newTestSystem(t)
	anchor := s.Grid.Index(0, 0)
	s.Place(anchor, "lodge", false)
	assert.True(t, s.Progress(anchor, 250))
	assert.Zero(t, s.Grid.At(anchor).ConstructionLeft)
}

func TestProgressIdempotentAfterFinish(t *testing.T) {
	s := newTestSystem(t)
	anchor := s.Grid.Index(4, 4)
	s.Place(anchor, "shed", false)
	require.True(t, s.Progress(anchor, 10))
	s.Effects.Drain()

	for i := 0; i < 5; i++ {
		assert.True(t, s.Progress(anchor, 10))
		assert.Zero(t, s.Grid.At(anchor).ConstructionLeft)
	}
	assert.Equal(t, uint64(1), s.Stats().Completed)
	assert.Equal(t, 0, s.Effects.Len(), "repeated progress must not re-complete")

	assert.True(t, s.Progress(9999, 1), "lookup miss counts as finished")
}

func TestProgressIgnoresNegativeWork(t *testing.T) {
	s := newTestSystem(t)
	anchor := s.Grid.Index(1, 1)
	s.Place(anchor, "shed", false)
	assert.False(t, s.Progress(anchor, -50))
	assert.Equal(t, 10.0, s.Grid.At(anchor).ConstructionLeft)
}

func TestBulldozeWholeFootprint(t *testing.T) {
	s := newTestSystem(t)
	anchor := s.Grid.Index(2, 3)
	s.Place(anchor, "lodge", false)
	s.Effects.Drain()

	follower := s.Grid.Index(3, 4)
	require.True(t, s.Bulldoze(follower))

	for _, idx := range s.Grid.Footprint(nil, anchor, 2, 2) {
		tile := s.Grid.At(idx)
		assert.Equal(t, world.BuildingNone, tile.Building)
		assert.Equal(t, world.NoHead, tile.Head)
		assert.False(t, tile.UnderConstruction)
	}
	assert.Equal(t, 0, headCount(s.Grid, anchor))
	assert.Nil(t, s.Jobs.Find(jobs.TypeBuild, anchor))

	batch := s.Effects.Drain()
	require.Len(t, batch, 2)
	assert.Len(t, batch[0].Tiles, 4)
	assert.Equal(t, effects.CueBulldoze, batch[1].Cue)
}

func TestBulldozeSquattersKeepsBuilding(t *testing.T) {
	s := newTestSystem(t)
	idx := s.Grid.Index(5, 5)
	s.Place(idx, "shed", true)
	s.Grid.Tiles[idx].Overlay = world.OverlaySquatters

	s.Bulldoze(idx)
	tile := s.Grid.At(idx)
	assert.Equal(t, world.OverlayNone, tile.Overlay)
	assert.Equal(t, world.BuildingType("shed"), tile.Building)
	assert.Equal(t, idx, tile.Head)
}

func TestBulldozeSingleCell(t *testing.T) {
	s := newTestSystem(t)
	idx := s.Grid.Index(6, 1)
	s.Grid.Tiles[idx].Overlay = world.OverlayTree
	s.Bulldoze(idx)
	assert.Equal(t, world.OverlayNone, s.Grid.At(idx).Overlay)

	ore := s.Grid.Index(6, 2)
	s.Grid.Tiles[ore].Overlay = world.OverlayOre
	s.Bulldoze(ore)
	assert.Equal(t, world.OverlayOre, s.Grid.At(ore).Overlay, "ore survives bulldozing")
}

func TestBulldozeLeavesNeighbourAlone(t *testing.T) {
	s := newTestSystem(t)
	lodge := s.Grid.Index(2, 2)
	s.Place(lodge, "lodge", true)
	shed := s.Grid.Index(4, 3)
	s.Place(shed, "shed", true)

	s.Bulldoze(s.Grid.Index(3, 3))
	assert.Equal(t, 0, headCount(s.Grid, lodge))
	assert.Equal(t, world.BuildingType("shed"), s.Grid.At(shed).Building)
	assert.Equal(t, shed, s.Grid.At(shed).Head)
}

func TestPlaceOnSameAnchorReplacesStructure(t *testing.T) {
	s := newTestSystem(t)
	anchor := s.Grid.Index(2, 2)
	s.Place(anchor, "lodge", false)
	s.Effects.Drain()

	require.True(t, s.Place(anchor, "shed", false))
	assert.Empty(t, Violations(s.Grid))
	assert.Equal(t, 1, headCount(s.Grid, anchor))
	for _, idx := range []int{s.Grid.Index(3, 2), s.Grid.Index(2, 3), s.Grid.Index(3, 3)} {
		tile := s.Grid.At(idx)
		assert.Equal(t, world.BuildingNone, tile.Building)
		assert.False(t, tile.UnderConstruction)
		assert.Equal(t, world.NoHead, tile.Head)
	}
	assert.Equal(t, 1, s.Jobs.Len())

	batch := s.Effects.Drain()
	require.Len(t, batch, 2)
	assert.Len(t, batch[0].Tiles, 4, "old footprint is broadcast with the new one")

	assert.True(t, s.Progress(anchor, 1000))
	assert.Empty(t, Violations(s.Grid))
	assert.Equal(t, 1, headCount(s.Grid, anchor))
	assert.Equal(t, 0, s.Jobs.Len())
}

func TestPlaceOverAnchorEvictsWholeStructure(t *testing.T) {
	s := newTestSystem(t)
	old := s.Grid.Index(2, 2)
	s.Place(old, "lodge", false)
	s.Effects.Drain()

	// The new footprint covers the old anchor but none of its followers.
	anchor := s.Grid.Index(1, 1)
	require.True(t, s.Place(anchor, "lodge", false))

	assert.Empty(t, Violations(s.Grid))
	assert.Equal(t, 4, headCount(s.Grid, anchor))
	assert.Equal(t, 0, headCount(s.Grid, old))
	for _, idx := range []int{s.Grid.Index(3, 2), s.Grid.Index(2, 3), s.Grid.Index(3, 3)} {
		assert.Equal(t, world.BuildingNone, s.Grid.At(idx).Building)
	}
	assert.Nil(t, s.Jobs.Find(jobs.TypeBuild, old))
	assert.NotNil(t, s.Jobs.Find(jobs.TypeBuild, anchor))
	assert.Equal(t, 1, s.Jobs.Len())

	batch := s.Effects.Drain()
	require.Len(t, batch, 2)
	assert.Len(t, batch[0].Tiles, 7)
	assert.Equal(t, 0, s.Sweep())
}

func TestPlaceOverFollowerEvictsWholeStructure(t *testing.T) {
	s := newTestSystem(t)
	lodge := s.Grid.Index(2, 2)
	s.Place(lodge, "lodge", false)

	shed := s.Grid.Index(3, 3)
	require.True(t, s.Place(shed, "shed", true))

	assert.Empty(t, Violations(s.Grid))
	assert.Equal(t, 0, headCount(s.Grid, lodge))
	assert.Equal(t, world.BuildingNone, s.Grid.At(lodge).Building)
	assert.Equal(t, world.BuildingType("shed"), s.Grid.At(shed).Building)
	assert.Equal(t, 0, s.Jobs.Len())
}

func TestSpeedUpDebitsAndCompletes(t *testing.T) {
	s := newTestSystem(t)
	s.Stock.Crystals = 3
	anchor := s.Grid.Index(1, 1)
	s.Place(anchor, "lodge", false)

	require.True(t, s.SpeedUp(s.Grid.Index(2, 2)))
	assert.Equal(t, 0, s.Stock.Crystals, "debit clamps at zero")
	for _, idx := range s.Grid.Footprint(nil, anchor, 2, 2) {
		assert.False(t, s.Grid.At(idx).UnderConstruction)
	}
	assert.Equal(t, 0, s.Jobs.Len())

	s.Stock.Crystals = 10
	assert.False(t, s.SpeedUp(anchor), "finished structures cannot be sped up")
	assert.Equal(t, 10, s.Stock.Crystals)
}

func TestRehabilitateGuards(t *testing.T) {
	s := newTestSystem(t)
	idx := s.Grid.Index(4, 4)
	s.Grid.Tiles[idx].Overlay = world.OverlayContamination

	assert.False(t, s.Rehabilitate(idx), "insufficient credits")
	assert.Equal(t, 0, s.Jobs.Len())

	s.Stock.Credits = 120
	require.True(t, s.Rehabilitate(idx))
	assert.Equal(t, 70, s.Stock.Credits)
	assert.Equal(t, s.Tuning.RehabInitial, s.Grid.At(idx).Rehab)
	assert.NotNil(t, s.Jobs.Find(jobs.TypeRehabilitate, idx))

	assert.False(t, s.Rehabilitate(idx), "duplicate job")
	assert.Equal(t, 70, s.Stock.Credits)
}

func TestAdvanceRehabilitation(t *testing.T) {
	s := newTestSystem(t)
	idx := s.Grid.Index(4, 4)
	s.Grid.Tiles[idx].Overlay = world.OverlayContamination
	s.Stock.Credits = 50
	require.True(t, s.Rehabilitate(idx))
	s.Effects.Drain()

	s.AdvanceRehabilitation(10)
	assert.InDelta(t, 25.0, s.Grid.At(idx).Rehab, 1e-9)
	assert.Equal(t, 0, s.Effects.Len())

	s.AdvanceRehabilitation(100)
	tile := s.Grid.At(idx)
	assert.Equal(t, world.OverlayNone, tile.Overlay)
	assert.Zero(t, tile.Rehab)
	assert.Nil(t, s.Jobs.Find(jobs.TypeRehabilitate, idx))
	assert.Equal(t, 2, s.Effects.Len())
}

func TestDesignateMine(t *testing.T) {
	s := newTestSystem(t)
	ore := s.Grid.Index(0, 7)
	assert.False(t, s.DesignateMine(ore))
	s.Grid.Tiles[ore].Overlay = world.OverlayOre
	assert.True(t, s.DesignateMine(ore))
	assert.False(t, s.DesignateMine(ore))
	assert.Equal(t, 1, s.Jobs.Len())
}

func TestProcessCommands(t *testing.T) {
	s := newTestSystem(t)
	s.ProcessCommands([]commands.Command{
		{Type: commands.TypePlaceBuilding, Index: 0, Building: "lodge"},
		{Type: commands.TypeSpeedUp, Index: 9},
		{Type: commands.TypeMoveAgent, Index: 3, AgentID: 1},
		{Type: commands.TypePlaceBuilding, Index: 20, Building: "castle"},
		{Type: "WARP", Index: 1},
	})
	assert.False(t, s.Grid.At(0).UnderConstruction)
	assert.Equal(t, uint64(1), s.Stats().Placed)
	assert.Equal(t, uint64(1), s.Stats().SpedUp)
	assert.Equal(t, uint64(2), s.Stats().Dropped)
}

func TestConnectivityRecomputedOnMutation(t *testing.T) {
	s := newTestSystem(t)
	gen := s.Grid.Index(0, 0)
	s.Place(gen, "generator", true)
	s.Place(s.Grid.Index(1, 0), "conduit", true)
	assert.True(t, s.Grid.At(1).Powered)

	s.Bulldoze(gen)
	assert.False(t, s.Grid.At(1).Powered)
}
