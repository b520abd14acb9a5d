package construction

import (
	"github.com/talgya/mini-colony/internal/commands"
)

// ProcessCommands applies every structural command of a drained batch in
// order. Commands owned by other subsystems are skipped; unknown or
// unresolvable commands are dropped.
func (s *System) ProcessCommands(cmds []commands.Command) {
	for _, c := range cmds {
		var ok bool
		switch c.Type {
		case commands.TypePlaceBuilding:
			ok = s.Place(c.Index, c.Building, c.Instant)
		case commands.TypeBulldoze:
			ok = s.Bulldoze(c.Index)
		case commands.TypeSpeedUp:
			ok = s.SpeedUp(c.Index)
		case commands.TypeRehabilitate:
			ok = s.Rehabilitate(c.Index)
		case commands.TypeDesignateMine:
			ok = s.DesignateMine(c.Index)
		case commands.TypeMoveAgent:
			continue
		default:
			s.Log.Debug("unknown command dropped", "type", c.Type, "index", c.Index)
		}
		if !ok {
			s.stats.Dropped++
		}
	}
}
