package agents

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/mini-colony/internal/buildings"
	"github.com/talgya/mini-colony/internal/commands"
	"github.com/talgya/mini-colony/internal/economy"
	"github.com/talgya/mini-colony/internal/effects"
	"github.com/talgya/mini-colony/internal/jobs"
	"github.com/talgya/mini-colony/internal/pathpool"
	"github.com/talgya/mini-colony/internal/world"
)

// Pathfinder fills dst with the cells after start up to and including
// target, or returns an error when no route exists.
type Pathfinder interface {
	FindPath(start, target int, g *world.Grid, dst *pathpool.Route) error
}

// PathfinderFunc adapts a function to Pathfinder.
type PathfinderFunc func(start, target int, g *world.Grid, dst *pathpool.Route) error

// FindPath calls f.
func (f PathfinderFunc) FindPath(start, target int, g *world.Grid, dst *pathpool.Route) error {
	return f(start, target, g, dst)
}

// Builder credits construction work. It reports true once the structure
// containing index is finished.
type Builder interface {
	Progress(index int, amount float64) bool
}

// Rand is the randomness the behavior loop needs.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

var errEmptyRoute = errors.New("pathfinder returned an empty route")

// Env bundles the shared simulation state the agent system works on.
type Env struct {
	Grid    *world.Grid
	Catalog *buildings.Catalog
	Jobs    *jobs.Board
	Stock   *economy.Stockpile
	Effects *effects.Queue
	Builder Builder
	Paths   Pathfinder
	Pool    *pathpool.Pool
	Rand    Rand
}

// Stats counts agent activity since startup.
type Stats struct {
	Thinks         uint64 `json:"thinks"`
	PathRequests   uint64 `json:"path_requests"`
	PathFailures   uint64 `json:"path_failures"`
	PathPanics     uint64 `json:"path_panics"`
	BuildsFinished uint64 `json:"builds_finished"`
	MinesCompleted uint64 `json:"mines_completed"`
	MineralsMined  uint64 `json:"minerals_mined"`
	OreDepleted    uint64 `json:"ore_depleted"`
	ManualMoves    uint64 `json:"manual_moves"`
	ManualDropped  uint64 `json:"manual_dropped"`
}

// System runs the per-tick behavior loop over every agent.
type System struct {
	Env
	Agents []*Agent
	Tuning Tuning
	Log    *slog.Logger

	stats Stats
}

// New creates an agent system.
func New(env Env, t Tuning) *System {
	return &System{
		Env:    env,
		Tuning: t,
		Log:    slog.Default(),
	}
}

// Add registers agents with the system.
func (s *System) Add(agents ...*Agent) {
	s.Agents = append(s.Agents, agents...)
}

// Find returns the agent with the given id.
func (s *System) Find(id AgentID) *Agent {
	for _, a := range s.Agents {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// Stats returns a copy of the activity counters.
func (s *System) Stats() Stats {
	return s.stats
}

// CountByState tallies agents per state.
func (s *System) CountByState() map[State]int {
	out := make(map[State]int, len(stateNames))
	for _, a := range s.Agents {
		out[a.State]++
	}
	return out
}

// Snapshot returns copies of every agent without their routes.
func (s *System) Snapshot() []Agent {
	out := make([]Agent, len(s.Agents))
	for i, a := range s.Agents {
		out[i] = *a
		out[i].Route = nil
	}
	return out
}

// Tick advances every agent by dt simulated seconds.
func (s *System) Tick(tick uint64, dt float64) {
	interval := s.Tuning.ThinkIntervalTicks
	if interval == 0 {
		interval = 1
	}
	for _, a := range s.Agents {
		a.Needs.decay(a.State, &s.Tuning, dt)

		if (tick+uint64(a.ID))%interval == 0 && !a.State.Persistent() {
			s.think(a)
		}

		switch a.State {
		case StateMoving:
			s.move(a, dt)
		case StateSleeping, StateEating, StateWorking:
			s.activity(a, dt)
		}

		a.RenderX, a.RenderZ = a.X, a.Z
	}
}

// ProcessCommands applies the agent-directed commands of a drained batch.
// Manual moves never interrupt sleeping, eating or working.
func (s *System) ProcessCommands(cmds []commands.Command) {
	for _, c := range cmds {
		if c.Type != commands.TypeMoveAgent {
			continue
		}
		a := s.Find(AgentID(c.AgentID))
		if a == nil || a.State.Persistent() || !s.Grid.Valid(c.Index) {
			s.stats.ManualDropped++
			continue
		}
		s.stats.ManualMoves++
		s.goTo(a, c.Index, Intent{Kind: IntentManual, Target: c.Index})
	}
}

// think picks the agent's next intent. First match wins.
func (s *System) think(a *Agent) {
	s.stats.Thinks++

	if a.Intent.Kind == IntentManual && a.State == StateMoving {
		return
	}

	cell := s.cellOf(a)
	if a.Needs.Energy < s.Tuning.CriticalNeed {
		if dest, ok := s.nearest(cell, buildings.CategoryRest); ok {
			s.goTo(a, dest, Intent{Kind: IntentRest})
			return
		}
	}
	if a.Needs.Hunger < s.Tuning.CriticalNeed {
		if dest, ok := s.nearest(cell, buildings.CategoryFood); ok {
			s.goTo(a, dest, Intent{Kind: IntentEat})
			return
		}
	}
	if j := s.Jobs.FirstClaimable(jobs.TypeBuild, uint64(a.ID)); j != nil {
		s.takeJob(a, j, IntentBuild)
		return
	}
	if j := s.Jobs.FirstClaimable(jobs.TypeMine, uint64(a.ID)); j != nil {
		s.takeJob(a, j, IntentMine)
		return
	}
	if a.State == StateIdle && s.Rand.Float64() < s.Tuning.WanderChance {
		s.wander(a, cell)
	}
}

func (s *System) takeJob(a *Agent, j *jobs.Job, kind IntentKind) {
	s.Jobs.Claim(j, uint64(a.ID))
	if !s.goTo(a, j.Target, Intent{Kind: kind, JobID: j.ID}) {
		s.Jobs.Unclaim(j, uint64(a.ID))
	}
}

func (s *System) wander(a *Agent, cell int) {
	r := s.Tuning.WanderRadius
	if r <= 0 {
		return
	}
	x, z := s.Grid.Coord(cell)
	tx := clampInt(x+s.Rand.Intn(2*r+1)-r, 0, s.Grid.Width-1)
	tz := clampInt(z+s.Rand.Intn(2*r+1)-r, 0, s.Grid.Height-1)
	s.goTo(a, s.Grid.Index(tx, tz), Intent{Kind: IntentWander})
}

// nearest returns the completed tile of the given category closest to cell
// by Manhattan distance. Ties go to the first tile in scan order.
func (s *System) nearest(cell int, cat buildings.Category) (int, bool) {
	best, bestDist := -1, math.MaxInt
	for i := range s.Grid.Tiles {
		t := &s.Grid.Tiles[i]
		if !t.Completed() || !s.Catalog.Is(t.Building, cat) {
			continue
		}
		if d := s.Grid.Manhattan(cell, i); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}

// goTo commits the agent to reach target for the given intent. It reports
// false when the target cannot be reached; the agent is then Idle.
func (s *System) goTo(a *Agent, target int, in Intent) bool {
	if a.State == StateMoving && a.Intent == in && a.Target == target {
		return true
	}

	cur := s.cellOf(a)
	if cur == target {
		s.releaseRoute(a)
		s.setIntent(a, in, target)
		s.enterActivity(a)
		return true
	}

	route := s.Pool.Acquire()
	if err := s.findPath(cur, target, route); err != nil {
		s.Pool.Release(route)
		s.stats.PathFailures++
		s.Log.Debug("path request failed", "agent", a.ID, "from", cur, "to", target, "intent", in, "error", err)
		s.teardown(a)
		return false
	}

	s.releaseRoute(a)
	a.Route = route
	s.setIntent(a, in, target)
	a.State = StateMoving
	return true
}

// findPath calls the pathfinder, turning a panic into an error.
func (s *System) findPath(start, target int, dst *pathpool.Route) (err error) {
	defer func() {
		if p := recover(); p != nil {
			s.stats.PathPanics++
			err = fmt.Errorf("pathfinder panic: %v", p)
		}
	}()
	s.stats.PathRequests++
	if err := s.Paths.FindPath(start, target, s.Grid, dst); err != nil {
		return err
	}
	if dst.Len() == 0 {
		return errEmptyRoute
	}
	return nil
}

// setIntent records a new intent, dropping the claim on a job the agent
// no longer pursues.
func (s *System) setIntent(a *Agent, in Intent, target int) {
	if a.Intent.HasJob() && a.Intent.JobID != in.JobID {
		s.unclaim(a)
	}
	a.Intent = in
	a.Target = target
}

func (s *System) unclaim(a *Agent) {
	if j := s.Jobs.Get(a.Intent.JobID); j != nil {
		s.Jobs.Unclaim(j, uint64(a.ID))
	}
}

// move walks the agent toward its next waypoint.
func (s *System) move(a *Agent, dt float64) {
	next, ok := a.Route.Peek()
	if !ok {
		s.arrive(a)
		return
	}

	wx, wz := s.Grid.Coord(next)
	dx, dz := float64(wx)-a.X, float64(wz)-a.Z
	step := s.Tuning.Speed * dt
	d2 := dx*dx + dz*dz
	if d2 <= step*step {
		a.X, a.Z = float64(wx), float64(wz)
		a.Route.Pop()
		if a.Route.Len() == 0 {
			s.arrive(a)
		}
		return
	}

	d := math.Sqrt(d2)
	a.X += dx / d * step
	a.Z += dz / d * step
}

func (s *System) arrive(a *Agent) {
	s.releaseRoute(a)
	a.X = math.Round(a.X)
	a.Z = math.Round(a.Z)
	s.enterActivity(a)
}

// enterActivity moves the agent into the state its intent implies.
func (s *System) enterActivity(a *Agent) {
	switch a.Intent.Kind {
	case IntentRest:
		a.State = StateSleeping
	case IntentEat:
		a.State = StateEating
	case IntentBuild, IntentMine:
		a.State = StateWorking
	default:
		s.teardown(a)
	}
}

func (s *System) activity(a *Agent, dt float64) {
	switch a.State {
	case StateSleeping:
		a.Needs.Energy = clampNeed(a.Needs.Energy + s.Tuning.SleepRestore*dt)
		if a.Needs.Energy >= s.Tuning.SatisfiedNeed {
			s.teardown(a)
		}
	case StateEating:
		a.Needs.Hunger = clampNeed(a.Needs.Hunger + s.Tuning.EatRestore*dt)
		if a.Needs.Hunger >= s.Tuning.SatisfiedNeed {
			s.teardown(a)
		}
	case StateWorking:
		s.work(a, dt)
	}
}

// teardown returns the agent to Idle. It is the only way back to Idle.
func (s *System) teardown(a *Agent) {
	if a.Intent.HasJob() {
		s.unclaim(a)
	}
	s.releaseRoute(a)
	a.Intent = Intent{}
	a.Target = -1
	a.State = StateIdle
}

func (s *System) releaseRoute(a *Agent) {
	if a.Route != nil {
		s.Pool.Release(a.Route)
		a.Route = nil
	}
}

// cellOf returns the cell under the agent's floored, clamped position.
func (s *System) cellOf(a *Agent) int {
	return s.Grid.CellAt(a.X, a.Z)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Restore replaces every agent with copies of list, e.g. after loading from
// disk. Routes are not persisted, so agents that were moving come back Idle
// and give up their job claims.
func (s *System) Restore(list []Agent) {
	for _, a := range s.Agents {
		s.releaseRoute(a)
	}
	s.Agents = make([]*Agent, 0, len(list))
	for i := range list {
		a := list[i]
		a.Route = nil
		a.Needs.clamp()
		if a.State == StateMoving || (a.State.Persistent() && a.Intent.Kind == IntentNone) {
			s.teardown(&a)
		}
		s.Agents = append(s.Agents, &a)
	}
}
