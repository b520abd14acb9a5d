// Package pathfind is the default route search: 4-neighbour A* over the
// colony grid.
package pathfind

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/talgya/mini-colony/internal/pathpool"
	"github.com/talgya/mini-colony/internal/world"
)

var (
	// ErrNoPath is returned when the target cannot be reached.
	ErrNoPath = errors.New("no path")
	// ErrOutOfRange is returned for start or target cells outside the grid.
	ErrOutOfRange = errors.New("cell out of range")
)

// Finder searches routes on a grid. Solid buildings block movement except
// on the start and target cells. A Finder keeps scratch buffers between
// searches and is not safe for concurrent use.
type Finder struct {
	// Solid reports whether a building type blocks movement. Nil means
	// every cell is walkable.
	Solid func(world.BuildingType) bool
	// MaxExpanded caps the number of expanded cells per search; 0 means
	// the whole grid.
	MaxExpanded int

	cost   []int
	parent []int
	stamp  []uint32
	closed []uint32
	gen    uint32
	open   openSet
	nbuf   [4]int
	seq    uint64
}

// New creates a Finder that treats the given building types as solid.
func New(solid func(world.BuildingType) bool) *Finder {
	return &Finder{Solid: solid}
}

// Passable reports whether idx can be entered.
func (f *Finder) Passable(g *world.Grid, idx int) bool {
	t := g.At(idx)
	if t == nil {
		return false
	}
	if f.Solid == nil || t.Building == world.BuildingNone {
		return true
	}
	return !f.Solid(t.Building)
}

// FindPath fills dst with the cells from the step after start up to and
// including target. dst is reset first. start == target yields an empty
// route.
func (f *Finder) FindPath(start, target int, g *world.Grid, dst *pathpool.Route) error {
	if !g.Valid(start) || !g.Valid(target) {
		return fmt.Errorf("find path %d -> %d: %w", start, target, ErrOutOfRange)
	}
	dst.Reset()
	if start == target {
		return nil
	}

	f.prepare(g.Len())
	f.open = f.open[:0]
	f.seq = 0

	f.visit(start, 0, -1)
	f.push(start, g.Manhattan(start, target), g.Manhattan(start, target))

	limit := f.MaxExpanded
	if limit <= 0 {
		limit = g.Len()
	}
	expanded := 0

	for f.open.Len() > 0 {
		cur := heap.Pop(&f.open).(node).idx
		if f.closed[cur] == f.gen {
			continue
		}
		f.closed[cur] = f.gen
		if cur == target {
			f.trace(target, start, dst)
			return nil
		}
		expanded++
		if expanded > limit {
			break
		}

		for _, n := range g.Neighbors4(f.nbuf[:0], cur) {
			if f.closed[n] == f.gen {
				continue
			}
			if n != target && !f.Passable(g, n) {
				continue
			}
			c := f.cost[cur] + 1
			if f.stamp[n] == f.gen && c >= f.cost[n] {
				continue
			}
			f.visit(n, c, cur)
			h := g.Manhattan(n, target)
			f.push(n, c+h, h)
		}
	}
	return fmt.Errorf("find path %d -> %d: %w", start, target, ErrNoPath)
}

func (f *Finder) prepare(n int) {
	if len(f.cost) != n {
		f.cost = make([]int, n)
		f.parent = make([]int, n)
		f.stamp = make([]uint32, n)
		f.closed = make([]uint32, n)
		f.gen = 0
	}
	f.gen++
	if f.gen == 0 {
		// Stamps wrapped; start over from clean buffers.
		clear(f.stamp)
		clear(f.closed)
		f.gen = 1
	}
}

func (f *Finder) visit(idx, cost, parent int) {
	f.cost[idx] = cost
	f.parent[idx] = parent
	f.stamp[idx] = f.gen
}

func (f *Finder) push(idx, score, h int) {
	f.seq++
	heap.Push(&f.open, node{idx: idx, f: score, h: h, seq: f.seq})
}

func (f *Finder) trace(target, start int, dst *pathpool.Route) {
	for c := target; c != start && c >= 0; c = f.parent[c] {
		dst.Push(c)
	}
	dst.Reverse()
}

type node struct {
	idx int
	f   int
	h   int
	seq uint64
}

// openSet orders nodes by estimated total cost, then by remaining distance,
// then by insertion order so equal-cost searches are deterministic.
type openSet []node

func (o openSet) Len() int { return len(o) }

func (o openSet) Less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	if o[i].h != o[j].h {
		return o[i].h < o[j].h
	}
	return o[i].seq < o[j].seq
}

func (o openSet) Swap(i, j int) { o[i], o[j] = o[j], o[i] }

func (o *openSet) Push(x any) { *o = append(*o, x.(node)) }

func (o *openSet) Pop() any {
	old := *o
	n := old[len(old)-1]
	*o = old[:len(old)-1]
	return n
}
