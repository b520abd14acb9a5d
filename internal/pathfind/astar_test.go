package pathfind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/mini-colony/internal/pathpool"
	"github.com/talgya/mini-colony/internal/world"
)

func wallSolid(bt world.BuildingType) bool { return bt == "wall" }

func adjacent(g *world.Grid, a, b int) bool {
	return g.Manhattan(a, b) == 1
}

func TestFindPathStraightLine(t *testing.T) {
	g := world.NewGrid(10, 10)
	f := New(wallSolid)
	r := &pathpool.Route{}

	start, target := g.Index(1, 1), g.Index(5, 1)
	require.NoError(t, f.FindPath(start, target, g, r))

	cells := r.Cells()
	require.Len(t, cells, 4)
	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, target, last)
	assert.NotContains(t, cells, start)
	assert.True(t, adjacent(g, start, cells[0]))
}

func TestFindPathRoutesAroundSolids(t *testing.T) {
	g := world.NewGrid(7, 7)
	// Vertical wall at x=3 with a gap at z=6.
	for z := 0; z < 6; z++ {
		g.Tiles[g.Index(3, z)].Building = "wall"
	}
	f := New(wallSolid)
	r := &pathpool.Route{}

	start, target := g.Index(0, 0), g.Index(6, 0)
	require.NoError(t, f.FindPath(start, target, g, r))

	prev := start
	for _, c := range r.Cells() {
		assert.True(t, adjacent(g, prev, c), "route must be contiguous")
		assert.NotEqual(t, world.BuildingType("wall"), g.At(c).Building)
		prev = c
	}
	assert.Equal(t, target, prev)
	assert.Equal(t, 18, r.Len())
}

func TestFindPathTargetOnSolidIsReachable(t *testing.T) {
	g := world.NewGrid(5, 5)
	target := g.Index(4, 4)
	g.Tiles[target].Building = "wall"
	f := New(wallSolid)
	r := &pathpool.Route{}
	require.NoError(t, f.FindPath(g.Index(0, 0), target, g, r))
	assert.Equal(t, 8, r.Len())
}

func TestFindPathNoPath(t *testing.T) {
	g := world.NewGrid(5, 5)
	for z := 0; z < 5; z++ {
		g.Tiles[g.Index(2, z)].Building = "wall"
	}
	f := New(wallSolid)
	r := &pathpool.Route{}
	r.Push(99)

	err := f.FindPath(g.Index(0, 0), g.Index(4, 4), g, r)
	assert.ErrorIs(t, err, ErrNoPath)
	assert.Equal(t, 0, r.Len())
}

func TestFindPathOutOfRange(t *testing.T) {
	g := world.NewGrid(3, 3)
	f := New(nil)
	err := f.FindPath(0, 50, g, &pathpool.Route{})
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestFindPathSameCell(t *testing.T) {
	g := world.NewGrid(3, 3)
	r := &pathpool.Route{}
	require.NoError(t, New(nil).FindPath(4, 4, g, r))
	assert.Equal(t, 0, r.Len())
}

func TestFindPathDeterministicAndReusable(t *testing.T) {
	g := world.NewGrid(12, 12)
	f := New(nil)
	a, b := &pathpool.Route{}, &pathpool.Route{}
	require.NoError(t, f.FindPath(0, g.Index(11, 11), g, a))
	// A different search in between must not leak state.
	require.NoError(t, f.FindPath(g.Index(5, 5), g.Index(6, 9), g, &pathpool.Route{}))
	require.NoError(t, f.FindPath(0, g.Index(11, 11), g, b))
	assert.Equal(t, a.Cells(), b.Cells())
	assert.Equal(t, 22, a.Len())
}

func TestFindPathExpansionLimit(t *testing.T) {
	g := world.NewGrid(20, 20)
	f := New(nil)
	f.MaxExpanded = 3
	err := f.FindPath(0, g.Index(19, 19), g, &pathpool.Route{})
	assert.ErrorIs(t, err, ErrNoPath)
}
