// Agent spawning: creates the founding colonists with names, needs and
// starting skills.
package agents

import (
	"github.com/talgya/mini-colony/internal/world"
)

// Spawner creates agents for the simulation.
type Spawner struct {
	rng    Rand
	nextID AgentID
}

// NewSpawner creates an agent spawner drawing from the simulation's random
// source.
func NewSpawner(r Rand) *Spawner {
	return &Spawner{
		rng:    r,
		nextID: 1,
	}
}

// SetNextID sets the next agent ID to be issued (used when restoring from DB).
func (s *Spawner) SetNextID(id AgentID) {
	s.nextID = id
}

// NextID returns the ID the next spawned agent will get.
func (s *Spawner) NextID() AgentID {
	return s.nextID
}

// SpawnColonists places up to count agents on free cells around the grid
// centre. Fewer are returned when the map runs out of free cells.
func (s *Spawner) SpawnColonists(g *world.Grid, count int) []*Agent {
	cells := world.FreeCellsNear(g, g.Width/2, g.Height/2, count)
	agents := make([]*Agent, 0, len(cells))
	for _, cell := range cells {
		x, z := g.Coord(cell)
		agents = append(agents, s.SpawnAt(float64(x), float64(z)))
	}
	return agents
}

// SpawnAt creates one idle agent at the given position.
func (s *Spawner) SpawnAt(x, z float64) *Agent {
	id := s.nextID
	s.nextID++

	// Needs: mostly met at world start so the first minutes are calm.
	needs := Needs{
		Energy: 60 + s.rng.Float64()*40,
		Hunger: 60 + s.rng.Float64()*40,
		Mood:   70 + s.rng.Float64()*30,
	}

	// Skills: a little prior experience, at most a fifth above untrained.
	skills := Skills{
		Construction: s.rng.Float64() * 0.2,
		Mining:       s.rng.Float64() * 0.2,
	}

	return &Agent{
		ID:      id,
		Name:    s.generateName(),
		X:       x,
		Z:       z,
		RenderX: x,
		RenderZ: z,
		State:   StateIdle,
		Target:  -1,
		Needs:   needs,
		Skills:  skills,
	}
}

func (s *Spawner) generateName() string {
	firsts := maleNames
	if s.rng.Float64() < 0.5 {
		firsts = femaleNames
	}
	first := firsts[s.rng.Intn(len(firsts))]
	last := lastNames[s.rng.Intn(len(lastNames))]
	return first + " " + last
}

// Name pools for procedural generation.
var maleNames = []string{
	"Aldric", "Bram", "Cedric", "Doran", "Erik", "Finn", "Gareth",
	"Halvard", "Ivan", "Jasper", "Kael", "Leif", "Magnus", "Nils",
	"Oswin", "Per", "Quinn", "Rowan", "Stellan", "Theron", "Ulric",
	"Varen", "Wren", "Yorick", "Zander", "Arlen", "Beric", "Cade",
	"Dorian", "Edric", "Falk", "Gunnar", "Hugo", "Ivar", "Jorik",
}

var femaleNames = []string{
	"Astrid", "Brenna", "Calla", "Daria", "Elara", "Freya", "Greta",
	"Helene", "Iris", "Juno", "Kira", "Lena", "Mira", "Nessa",
	"Olwen", "Petra", "Runa", "Senna", "Thea", "Una", "Vera",
	"Willa", "Yara", "Zara", "Ava", "Birgit", "Cora", "Dagny",
	"Eira", "Fern", "Gwen", "Hilde", "Inga", "Johanna", "Katla",
}

var lastNames = []string{
	"Voss", "Thornwood", "Blackwood", "Ashford", "Ironhand", "Dunmore",
	"Greenvale", "Stormcrow", "Frostborn", "Hearthstone", "Millward",
	"Copperfield", "Ravenmoor", "Silverdale", "Wolfsbane", "Stoneheart",
	"Deepwell", "Brightwater", "Oakenshield", "Redforge", "Windholm",
	"Marshwood", "Goldhaven", "Nightingale", "Riverstone", "Steelworth",
	"Embercroft", "Holloway", "Dawnridge", "Farrow", "Wyatt", "Thatcher",
	"Briar", "Caldwell", "Frost", "Harper", "Mercer", "Ward", "Cross",
}
