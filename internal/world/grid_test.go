package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexCoordRoundTrip(t *testing.T) {
	g := NewGrid(8, 6)
	for idx := 0; idx < g.Len(); idx++ {
		x, z := g.Coord(idx)
		require.True(t, g.InBounds(x, z))
		assert.Equal(t, idx, g.Index(x, z))
	}
	assert.Equal(t, NoHead, g.At(0).Head)
	assert.Nil(t, g.At(-1))
	assert.Nil(t, g.At(48))
}

func TestCellAtFloorsAndClamps(t *testing.T) {
	g := NewGrid(8, 8)
	assert.Equal(t, g.Index(5, 5), g.CellAt(5.9, 5.2))
	assert.Equal(t, g.Index(0, 0), g.CellAt(-0.5, -3))
	assert.Equal(t, g.Index(7, 7), g.CellAt(42, 8.0))
}

func TestFootprintClipsAtEdges(t *testing.T) {
	g := NewGrid(8, 8)
	cells := g.Footprint(nil, g.Index(2, 3), 2, 2)
	assert.Equal(t, []int{g.Index(2, 3), g.Index(3, 3), g.Index(2, 4), g.Index(3, 4)}, cells)

	edge := g.Footprint(nil, g.Index(7, 7), 2, 2)
	assert.Equal(t, []int{g.Index(7, 7)}, edge)
}

func TestNeighbors4(t *testing.T) {
	g := NewGrid(4, 4)
	assert.ElementsMatch(t, []int{1, 4}, g.Neighbors4(nil, 0))
	assert.Len(t, g.Neighbors4(nil, g.Index(1, 1)), 4)
}

func TestManhattan(t *testing.T) {
	g := NewGrid(10, 10)
	assert.Equal(t, 3, g.Manhattan(g.Index(5, 5), g.Index(5, 8)))
	assert.Equal(t, 7, g.Manhattan(g.Index(1, 2), g.Index(4, 6)))
}

func TestAdoptRejectsWrongSize(t *testing.T) {
	g := NewGrid(4, 4)
	assert.Error(t, g.Adopt(make([]Tile, 3)))

	snap := g.Snapshot()
	snap[5].Overlay = OverlayOre
	require.NoError(t, g.Adopt(snap))
	assert.Equal(t, OverlayOre, g.At(5).Overlay)
}

func TestTileAnchor(t *testing.T) {
	tile := Tile{Index: 9, Head: NoHead}
	assert.Equal(t, 9, tile.Anchor())
	assert.False(t, tile.IsFollower())

	tile.Head = 9
	assert.False(t, tile.IsFollower())
	tile.Head = 1
	assert.True(t, tile.IsFollower())
	assert.Equal(t, 1, tile.Anchor())

	tile.Building = "quarters"
	tile.UnderConstruction = true
	tile.ClearStructure()
	assert.Equal(t, BuildingNone, tile.Building)
	assert.Equal(t, NoHead, tile.Head)
	assert.False(t, tile.UnderConstruction)
}
