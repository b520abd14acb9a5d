package construction

import (
	"github.com/talgya/mini-colony/internal/world"
)

// Sweep re-synchronises follower tiles with their anchors. Followers whose
// anchor is gone, empty or re-anchored elsewhere are reset to empty ground;
// the rest copy building type and construction flag from the anchor. It
// returns the number of repaired tiles.
func (s *System) Sweep() int {
	var repaired []int
	for i := range s.Grid.Tiles {
		t := &s.Grid.Tiles[i]
		if !t.IsFollower() {
			continue
		}
		head := s.Grid.At(t.Head)
		if head == nil || head.Building == world.BuildingNone || head.Head != head.Index {
			t.ClearStructure()
			repaired = append(repaired, i)
			continue
		}
		if t.Building != head.Building || t.UnderConstruction != head.UnderConstruction {
			t.Building = head.Building
			t.UnderConstruction = head.UnderConstruction
			if !head.UnderConstruction {
				t.ConstructionLeft = 0
			}
			repaired = append(repaired, i)
		}
	}

	if len(repaired) == 0 {
		return 0
	}
	s.recompute()
	s.Effects.GridUpdate(s.Grid.Collect(repaired))
	s.stats.SweepRepairs += uint64(len(repaired))
	s.Log.Info("consistency sweep repaired tiles", "count", len(repaired))
	return len(repaired)
}

// Violations returns the follower tiles that currently disagree with their
// anchor or point at an anchor that no longer exists or now follows another
// anchor.
func Violations(g *world.Grid) []int {
	var out []int
	for i := range g.Tiles {
		t := &g.Tiles[i]
		if !t.IsFollower() {
			continue
		}
		head := g.At(t.Head)
		if head == nil || head.Building == world.BuildingNone || head.Head != head.Index ||
			t.Building != head.Building || t.UnderConstruction != head.UnderConstruction {
			out = append(out, i)
		}
	}
	return out
}
