package engine

import (
	"fmt"

	"github.com/talgya/mini-colony/internal/agents"
	"github.com/talgya/mini-colony/internal/economy"
	"github.com/talgya/mini-colony/internal/jobs"
	"github.com/talgya/mini-colony/internal/world"
)

// StateVersion is bumped whenever State changes shape.
const StateVersion = 1

// State is the persistable part of a simulation. Routes are derived and
// never saved.
type State struct {
	Version     int               `json:"version"`
	Tick        uint64            `json:"tick"`
	Seed        uint64            `json:"seed"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Tiles       []world.Tile      `json:"tiles"`
	Agents      []agents.Agent    `json:"agents"`
	Jobs        []jobs.Job        `json:"jobs"`
	Stock       economy.Stockpile `json:"stock"`
	NextAgentID agents.AgentID    `json:"next_agent_id"`
}

// Export copies the simulation state under the read lock.
func (s *Simulation) Export() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Version:     StateVersion,
		Tick:        s.LastTick,
		Seed:        s.rng.Seed(),
		Width:       s.Grid.Width,
		Height:      s.Grid.Height,
		Tiles:       s.Grid.Snapshot(),
		Agents:      s.Agents.Snapshot(),
		Jobs:        s.Jobs.All(),
		Stock:       *s.Stock,
		NextAgentID: s.Spawner.NextID(),
	}
}

// Restore replaces the simulation state with st. The grid dimensions must
// match.
func (s *Simulation) Restore(st State) error {
	if st.Version != StateVersion {
		return fmt.Errorf("restore: unsupported state version %d", st.Version)
	}
	if st.Width != s.Grid.Width || st.Height != s.Grid.Height {
		return fmt.Errorf("restore: grid is %dx%d, state is %dx%d", s.Grid.Width, s.Grid.Height, st.Width, st.Height)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Grid.Adopt(st.Tiles); err != nil {
		return fmt.Errorf("restore tiles: %w", err)
	}
	s.Jobs.Restore(st.Jobs)
	s.Agents.Restore(st.Agents)
	*s.Stock = st.Stock
	s.LastTick = st.Tick

	next := st.NextAgentID
	for _, a := range st.Agents {
		if a.ID >= next {
			next = a.ID + 1
		}
	}
	s.Spawner.SetNextID(next)
	s.Effects.Drain()
	return nil
}

// SpawnColonists adds count new agents near the grid centre and returns how
// many were placed.
func (s *Simulation) SpawnColonists(count int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	spawned := s.Spawner.SpawnColonists(s.Grid, count)
	s.Agents.Add(spawned...)
	return len(spawned)
}
