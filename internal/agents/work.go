package agents

import (
	"math"

	"github.com/talgya/mini-colony/internal/economy"
	"github.com/talgya/mini-colony/internal/effects"
	"github.com/talgya/mini-colony/internal/jobs"
	"github.com/talgya/mini-colony/internal/world"
)

// work performs one tick of the agent's job.
func (s *System) work(a *Agent, dt float64) {
	j := s.Jobs.Get(a.Intent.JobID)
	if j == nil {
		s.teardown(a)
		return
	}

	switch j.Type {
	case jobs.TypeBuild:
		amount := s.Tuning.BuildWorkRate * dt * (1 + a.Skills.Construction)
		if s.Builder.Progress(j.Target, amount) {
			s.Jobs.Remove(j.ID)
			s.stats.BuildsFinished++
			s.teardown(a)
		}
	case jobs.TypeMine:
		s.mine(a, j)
	default:
		s.Jobs.Remove(j.ID)
		s.teardown(a)
	}
}

// mine yields minerals at once. The balance is not capped.
func (s *System) mine(a *Agent, j *jobs.Job) {
	yield := int(math.Round(float64(s.Tuning.MineYield) * (1 + a.Skills.Mining)))
	s.Stock.Add(economy.Minerals, yield)
	s.Effects.FX(effects.FXMine, j.Target)
	s.Effects.Audio(effects.CueMine)
	a.Skills.Mining += s.Tuning.MiningSkillStep
	s.Jobs.Remove(j.ID)
	s.stats.MinesCompleted++
	s.stats.MineralsMined += uint64(yield)

	if s.Rand.Float64() < s.Tuning.OreDepletionChance {
		if t := s.Grid.At(j.Target); t != nil && t.Overlay == world.OverlayOre {
			t.Overlay = world.OverlayNone
			s.Effects.GridUpdate([]world.Tile{*t})
			s.Effects.FX(effects.FXOreDepleted, j.Target)
			s.stats.OreDepleted++
		}
	}
	s.teardown(a)
}
