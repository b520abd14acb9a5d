// Package world provides the square colony grid, its tiles, and the
// structural helpers shared by construction, agents and pathfinding.
// Cells are addressed by a row-major index over a fixed width.
package world

import (
	"fmt"
	"math"
)

// BuildingType names a building definition in the catalog. The empty string
// means the tile carries no building.
type BuildingType string

// BuildingNone marks a tile without a building.
const BuildingNone BuildingType = ""

// Overlay is the foliage/overlay layer of a tile.
type Overlay uint8

const (
	OverlayNone          Overlay = iota
	OverlayTree                  // Cleared by placement and bulldozing
	OverlayOre                   // Depletable resource, mined by agents
	OverlaySquatters             // Transient illegal occupation, bulldozed away
	OverlayContamination         // Removed by rehabilitation
)

// NoHead marks a tile that is not part of any structure.
const NoHead = -1

// Tile is a single grid cell. Tiles are never destroyed, only overwritten.
type Tile struct {
	Index    int          `json:"index" db:"idx"`
	Building BuildingType `json:"building,omitempty" db:"building"`
	Overlay  Overlay      `json:"overlay" db:"overlay"`

	UnderConstruction bool    `json:"under_construction" db:"under_construction"`
	ConstructionLeft  float64 `json:"construction_left" db:"construction_left"` // Work units remaining, authoritative on the anchor

	// Head is the anchor cell of the structure this tile belongs to, NoHead
	// when it belongs to none. Anchors point at themselves.
	Head int `json:"head" db:"head"`

	Rehab    float64 `json:"rehab" db:"rehab"` // Rehabilitation progress, 0–100
	Explored bool    `json:"explored" db:"explored"`
	Powered  bool    `json:"powered" db:"powered"` // Derived by the connectivity pass
}

// Anchor returns the index holding authoritative structure state for t.
func (t *Tile) Anchor() int {
	if t.Head == NoHead {
		return t.Index
	}
	return t.Head
}

// IsFollower reports whether t mirrors another tile's structure state.
func (t *Tile) IsFollower() bool {
	return t.Head != NoHead && t.Head != t.Index
}

// ClearStructure resets building and construction state and drops the
// anchor back-reference. Overlay, rehabilitation and exploration survive.
func (t *Tile) ClearStructure() {
	t.Building = BuildingNone
	t.UnderConstruction = false
	t.ConstructionLeft = 0
	t.Head = NoHead
	t.Powered = false
}

// Completed reports whether t carries a finished building.
func (t *Tile) Completed() bool {
	return t.Building != BuildingNone && !t.UnderConstruction
}

// Grid holds every tile of the colony map.
type Grid struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Tiles  []Tile `json:"tiles"`
}

// NewGrid creates an empty grid of the given size.
func NewGrid(width, height int) *Grid {
	g := &Grid{
		Width:  width,
		Height: height,
		Tiles:  make([]Tile, width*height),
	}
	for i := range g.Tiles {
		g.Tiles[i] = Tile{Index: i, Head: NoHead}
	}
	return g
}

// Len returns the number of tiles.
func (g *Grid) Len() int {
	return len(g.Tiles)
}

// Valid reports whether idx addresses a tile.
func (g *Grid) Valid(idx int) bool {
	return idx >= 0 && idx < len(g.Tiles)
}

// InBounds reports whether (x, z) is on the grid.
func (g *Grid) InBounds(x, z int) bool {
	return x >= 0 && z >= 0 && x < g.Width && z < g.Height
}

// Index returns the row-major index of (x, z). The caller checks bounds.
func (g *Grid) Index(x, z int) int {
	return z*g.Width + x
}

// Coord returns the (x, z) coordinate of idx.
func (g *Grid) Coord(idx int) (x, z int) {
	return idx % g.Width, idx / g.Width
}

// At returns the tile at idx, or nil if out of range.
func (g *Grid) At(idx int) *Tile {
	if !g.Valid(idx) {
		return nil
	}
	return &g.Tiles[idx]
}

// CellAt returns the index of the cell containing the continuous position
// (x, z): coordinates are floored and clamped to the grid.
func (g *Grid) CellAt(x, z float64) int {
	cx := clamp(int(math.Floor(x)), 0, g.Width-1)
	cz := clamp(int(math.Floor(z)), 0, g.Height-1)
	return g.Index(cx, cz)
}

// Manhattan returns the grid distance between two cells.
func (g *Grid) Manhattan(a, b int) int {
	ax, az := g.Coord(a)
	bx, bz := g.Coord(b)
	return abs(ax-bx) + abs(az-bz)
}

// Footprint appends to dst the in-bounds cells of a width×depth rectangle
// anchored at its top-left corner.
func (g *Grid) Footprint(dst []int, anchor, width, depth int) []int {
	ax, az := g.Coord(anchor)
	for dz := 0; dz < depth; dz++ {
		for dx := 0; dx < width; dx++ {
			x, z := ax+dx, az+dz
			if g.InBounds(x, z) {
				dst = append(dst, g.Index(x, z))
			}
		}
	}
	return dst
}

// Neighbors4 appends the in-bounds orthogonal neighbours of idx to dst.
func (g *Grid) Neighbors4(dst []int, idx int) []int {
	x, z := g.Coord(idx)
	if x > 0 {
		dst = append(dst, idx-1)
	}
	if x < g.Width-1 {
		dst = append(dst, idx+1)
	}
	if z > 0 {
		dst = append(dst, idx-g.Width)
	}
	if z < g.Height-1 {
		dst = append(dst, idx+g.Width)
	}
	return dst
}

// Snapshot returns a copy of the tiles.
func (g *Grid) Snapshot() []Tile {
	out := make([]Tile, len(g.Tiles))
	copy(out, g.Tiles)
	return out
}

// Adopt replaces the tile contents with a snapshot of identical length.
func (g *Grid) Adopt(tiles []Tile) error {
	if len(tiles) != len(g.Tiles) {
		return fmt.Errorf("adopt: snapshot has %d tiles, grid has %d", len(tiles), len(g.Tiles))
	}
	copy(g.Tiles, tiles)
	return nil
}

// Collect returns copies of the tiles at the given indices, skipping
// invalid ones.
func (g *Grid) Collect(indices []int) []Tile {
	out := make([]Tile, 0, len(indices))
	for _, idx := range indices {
		if t := g.At(idx); t != nil {
			out = append(out, *t)
		}
	}
	return out
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d, tiles=%d)", g.Width, g.Height, g.Len())
}

// OverlayName returns the stable name of an overlay.
func OverlayName(o Overlay) string {
	switch o {
	case OverlayNone:
		return "none"
	case OverlayTree:
		return "tree"
	case OverlayOre:
		return "ore"
	case OverlaySquatters:
		return "squatters"
	case OverlayContamination:
		return "contamination"
	default:
		return "unknown"
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
