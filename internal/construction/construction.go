// Package construction owns building placement, demolition and the progress
// of multi-tile structures.
//
// A structure's authoritative state lives on its anchor tile (the top-left
// cell of its footprint). Follower tiles mirror the anchor and are written
// only by Place, Complete, Bulldoze and Sweep; every other code path goes
// through the anchor. Sweep repairs followers that drifted anyway.
package construction

import (
	"log/slog"

	"github.com/talgya/mini-colony/internal/buildings"
	"github.com/talgya/mini-colony/internal/economy"
	"github.com/talgya/mini-colony/internal/effects"
	"github.com/talgya/mini-colony/internal/jobs"
	"github.com/talgya/mini-colony/internal/world"
)

// Tuning holds construction economy parameters.
type Tuning struct {
	SpeedUpCost   int     `mapstructure:"speed_up_cost" validate:"gte=0"`
	RehabCost     int     `mapstructure:"rehab_cost" validate:"gte=0"`
	RehabInitial  float64 `mapstructure:"rehab_initial" validate:"gte=0,lte=100"`
	RehabRate     float64 `mapstructure:"rehab_rate" validate:"gte=0"` // Progress points per simulated second
	BuildPriority int     `mapstructure:"build_priority"`
}

// DefaultTuning returns the stock construction parameters.
func DefaultTuning() Tuning {
	return Tuning{
		SpeedUpCost:  5,
		RehabCost:    50,
		RehabInitial: 5,
		RehabRate:    2,
	}
}

// Stats counts construction activity since startup.
type Stats struct {
	Placed        uint64 `json:"placed"`
	Completed     uint64 `json:"completed"`
	Bulldozed     uint64 `json:"bulldozed"`
	SpedUp        uint64 `json:"sped_up"`
	Rehabilitated uint64 `json:"rehabilitated"`
	Dropped       uint64 `json:"dropped"` // Commands that matched no handler or failed a guard
	SweepRepairs  uint64 `json:"sweep_repairs"`
}

// System applies structural mutations to the shared grid.
type System struct {
	Grid    *world.Grid
	Catalog *buildings.Catalog
	Jobs    *jobs.Board
	Stock   *economy.Stockpile
	Effects *effects.Queue
	Network world.Connectivity
	Tuning  Tuning
	Log     *slog.Logger

	buf   []int
	stats Stats
}

// New creates a construction system over shared simulation state. The
// utility network derived from the catalog is used as connectivity pass.
func New(g *world.Grid, cat *buildings.Catalog, board *jobs.Board, stock *economy.Stockpile, fx *effects.Queue, t Tuning) *System {
	return &System{
		Grid:    g,
		Catalog: cat,
		Jobs:    board,
		Stock:   stock,
		Effects: fx,
		Network: world.UtilityNetwork(cat.IsSource),
		Tuning:  t,
		Log:     slog.Default(),
	}
}

// Stats returns a copy of the activity counters.
func (s *System) Stats() Stats {
	return s.stats
}

// Place writes a new structure of type bt anchored at anchor. Any structure
// already occupying a footprint cell is removed across its whole footprint
// first. Every in-bounds footprint cell then takes the building, the pending
// construction state and a back-reference to the anchor. Unknown building
// types and out-of-range anchors are ignored.
func (s *System) Place(anchor int, bt world.BuildingType, instant bool) bool {
	def, ok := s.Catalog.Lookup(bt)
	if !ok || !s.Grid.Valid(anchor) {
		s.Log.Debug("placement ignored", "anchor", anchor, "building", bt, "known", ok)
		return false
	}

	cells := s.Grid.Footprint(s.buf[:0], anchor, def.Width, def.Depth)
	s.buf = cells
	evicted := s.evict(cells)

	left := def.BuildTime
	if instant {
		left = 0
	}
	for _, idx := range cells {
		t := &s.Grid.Tiles[idx]
		t.Building = bt
		t.UnderConstruction = !instant
		t.ConstructionLeft = left
		t.Head = anchor
		t.Explored = true
		if t.Overlay == world.OverlayTree {
			t.Overlay = world.OverlayNone
		}
	}

	// Sites being overwritten lose their pending work orders.
	s.Jobs.RemoveTargeting(jobs.TypeBuild, cells)
	if !instant {
		s.Jobs.Add(jobs.TypeBuild, anchor, s.Tuning.BuildPriority)
	}

	touched := cells
	for _, idx := range evicted {
		if !contains(cells, idx) {
			touched = append(touched, idx)
		}
	}

	s.recompute()
	s.Effects.GridUpdate(s.Grid.Collect(touched))
	s.Effects.Audio(effects.CueBuildStart)
	s.stats.Placed++
	return true
}

// evict clears every structure that owns one of cells, including footprint
// cells outside cells, and drops their build jobs. It returns the cleared
// cells.
func (s *System) evict(cells []int) []int {
	var heads []int
	for _, idx := range cells {
		t := &s.Grid.Tiles[idx]
		if t.Head == world.NoHead {
			continue
		}
		if h := t.Anchor(); !contains(heads, h) {
			heads = append(heads, h)
		}
	}
	if len(heads) == 0 {
		return nil
	}

	// Resolve every footprint before clearing so overlapping structures
	// cannot hide each other's members.
	var cleared []int
	for _, h := range heads {
		for _, idx := range s.members(h) {
			if !contains(cleared, idx) {
				cleared = append(cleared, idx)
			}
		}
	}
	for _, idx := range cells {
		if s.Grid.Tiles[idx].Head != world.NoHead && !contains(cleared, idx) {
			cleared = append(cleared, idx)
		}
	}
	for _, idx := range cleared {
		s.Grid.Tiles[idx].ClearStructure()
	}
	s.Jobs.RemoveTargeting(jobs.TypeBuild, cleared)
	s.Log.Debug("placement evicted structures", "anchors", heads, "tiles", len(cleared))
	return cleared
}

// Progress applies amount of work to the structure containing index. Work
// is always credited to the anchor, so any number of workers on any
// footprint cell share one counter. It reports true once the structure is
// finished, including on every call after completion.
func (s *System) Progress(index int, amount float64) bool {
	t := s.Grid.At(index)
	if t == nil {
		return true
	}
	headIdx := t.Anchor()
	head := s.Grid.At(headIdx)
	if head == nil || !head.UnderConstruction {
		return true
	}
	if amount < 0 {
		amount = 0
	}

	head.ConstructionLeft -= amount
	if head.ConstructionLeft <= 0 {
		head.ConstructionLeft = 0
		s.Complete(headIdx)
		return true
	}
	return false
}

// Complete finishes the structure anchored at headIdx: every footprint cell
// still referencing the anchor leaves the construction state in the same
// pass.
func (s *System) Complete(headIdx int) {
	head := s.Grid.At(headIdx)
	if head == nil {
		return
	}

	touched := s.members(headIdx)
	for _, idx := range touched {
		t := &s.Grid.Tiles[idx]
		t.UnderConstruction = false
		t.ConstructionLeft = 0
	}
	s.Jobs.RemoveTargeting(jobs.TypeBuild, []int{headIdx})

	s.recompute()
	s.Effects.GridUpdate(s.Grid.Collect(touched))
	s.Effects.Audio(effects.CueBuildComplete)
	s.stats.Completed++
	s.Log.Debug("construction complete", "anchor", headIdx, "building", head.Building, "tiles", len(touched))
}

// Bulldoze clears the tile at index. Squatters are evicted without touching
// the building underneath; a structure is removed across its whole
// footprint; anything else resets the single cell.
func (s *System) Bulldoze(index int) bool {
	t := s.Grid.At(index)
	if t == nil {
		return false
	}

	var touched []int
	switch {
	case t.Overlay == world.OverlaySquatters:
		t.Overlay = world.OverlayNone
		touched = []int{index}

	case t.Head != world.NoHead:
		headIdx := t.Anchor()
		touched = s.members(headIdx)
		if !contains(touched, index) {
			touched = append(touched, index)
		}
		for _, idx := range touched {
			s.Grid.Tiles[idx].ClearStructure()
		}

	default:
		t.ClearStructure()
		if t.Overlay == world.OverlayTree {
			t.Overlay = world.OverlayNone
		}
		touched = []int{index}
	}

	s.Jobs.RemoveTargeting(jobs.TypeBuild, touched)
	s.recompute()
	s.Effects.GridUpdate(s.Grid.Collect(touched))
	s.Effects.Audio(effects.CueBulldoze)
	s.stats.Bulldozed++
	return true
}

// SpeedUp completes the structure containing index immediately. The crystal
// cost is debited without a balance check and clamps at zero.
func (s *System) SpeedUp(index int) bool {
	t := s.Grid.At(index)
	if t == nil {
		return false
	}
	headIdx := t.Anchor()
	head := s.Grid.At(headIdx)
	if head == nil || !head.UnderConstruction {
		return false
	}
	s.Stock.Debit(economy.Crystals, s.Tuning.SpeedUpCost)
	s.Complete(headIdx)
	s.stats.SpedUp++
	return true
}

// Rehabilitate queues a rehabilitation job on index if the colony can pay
// for it and none is queued there yet.
func (s *System) Rehabilitate(index int) bool {
	t := s.Grid.At(index)
	if t == nil {
		return false
	}
	if s.Jobs.Find(jobs.TypeRehabilitate, index) != nil {
		return false
	}
	if !s.Stock.Spend(economy.Credits, s.Tuning.RehabCost) {
		return false
	}
	s.Jobs.Add(jobs.TypeRehabilitate, index, 0)
	t.Rehab = s.Tuning.RehabInitial
	s.Effects.GridUpdate([]world.Tile{*t})
	return true
}

// DesignateMine queues a mining job on an ore tile.
func (s *System) DesignateMine(index int) bool {
	t := s.Grid.At(index)
	if t == nil || t.Overlay != world.OverlayOre {
		return false
	}
	if s.Jobs.Find(jobs.TypeMine, index) != nil {
		return false
	}
	s.Jobs.Add(jobs.TypeMine, index, 0)
	return true
}

// AdvanceRehabilitation moves every queued rehabilitation forward by dt
// seconds. Finished tiles lose their contamination and their job.
func (s *System) AdvanceRehabilitation(dt float64) {
	var done []int
	for _, j := range s.Jobs.All() {
		if j.Type != jobs.TypeRehabilitate {
			continue
		}
		t := s.Grid.At(j.Target)
		if t == nil {
			s.Jobs.Remove(j.ID)
			continue
		}
		t.Rehab += s.Tuning.RehabRate * dt
		if t.Rehab < 100 {
			continue
		}
		t.Rehab = 0
		if t.Overlay == world.OverlayContamination {
			t.Overlay = world.OverlayNone
		}
		s.Jobs.Remove(j.ID)
		done = append(done, j.Target)
		s.stats.Rehabilitated++
	}
	if len(done) > 0 {
		s.Effects.GridUpdate(s.Grid.Collect(done))
		s.Effects.Audio(effects.CueRehabilitate)
	}
}

// members returns the footprint cells of the structure anchored at headIdx
// that still reference it. When the building is no longer in the catalog
// only the anchor itself is considered.
func (s *System) members(headIdx int) []int {
	head := s.Grid.At(headIdx)
	if head == nil {
		return nil
	}
	var cells []int
	if def, ok := s.Catalog.Lookup(head.Building); ok {
		cells = s.Grid.Footprint(nil, headIdx, def.Width, def.Depth)
	} else {
		cells = []int{headIdx}
	}
	out := cells[:0]
	for _, idx := range cells {
		t := &s.Grid.Tiles[idx]
		if idx == headIdx || t.Head == headIdx {
			out = append(out, idx)
		}
	}
	return out
}

func (s *System) recompute() {
	if s.Network == nil {
		return
	}
	if err := s.Grid.Adopt(s.Network(s.Grid)); err != nil {
		s.Log.Error("connectivity pass returned a bad snapshot", "error", err)
	}
}

func contains(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
