// Package agents provides the colonist data model and the per-tick behavior
// loop: need decay, throttled decisions, movement along routes and work.
package agents

import (
	"fmt"

	"github.com/talgya/mini-colony/internal/pathpool"
)

// AgentID is a unique identifier for an agent.
type AgentID uint64

// State is an agent's behavior state.
type State uint8

const (
	StateIdle State = iota
	StateMoving
	StateSleeping
	StateEating
	StateWorking
)

var stateNames = [...]string{"idle", "moving", "sleeping", "eating", "working"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(b []byte) error {
	v, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseState returns the state with the given name.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return StateIdle, fmt.Errorf("unknown agent state %q", name)
}

// Persistent reports whether s only ends by its own completion condition.
func (s State) Persistent() bool {
	return s == StateSleeping || s == StateEating || s == StateWorking
}

// Needs are bounded to [0, 100]; higher is better.
type Needs struct {
	Energy float64 `json:"energy"`
	Hunger float64 `json:"hunger"`
	Mood   float64 `json:"mood"`
}

// Skills scale work throughput. 0 is untrained.
type Skills struct {
	Construction float64 `json:"construction"`
	Mining       float64 `json:"mining"`
}

// Agent is a colonist.
type Agent struct {
	ID   AgentID `json:"id"`
	Name string  `json:"name"`

	// Logical position in cell units. Cell (x, z) spans [x, x+1).
	X float64 `json:"x"`
	Z float64 `json:"z"`
	// Render position, equal to the logical one at the end of every tick.
	RenderX float64 `json:"render_x"`
	RenderZ float64 `json:"render_z"`

	State  State  `json:"state"`
	Intent Intent `json:"intent"`
	Target int    `json:"target"` // -1 when none

	// Route is owned exclusively by this agent until released to the pool.
	Route *pathpool.Route `json:"-"`

	Needs  Needs  `json:"needs"`
	Skills Skills `json:"skills"`
}

// Waypoints returns the number of route cells left to walk.
func (a *Agent) Waypoints() int {
	return a.Route.Len()
}
