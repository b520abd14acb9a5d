package agents

// Need bounds.
const (
	NeedMin = 0.0
	NeedMax = 100.0
)

// decay lowers needs for dt simulated seconds. Energy is spared while
// sleeping and hunger while eating.
func (n *Needs) decay(state State, t *Tuning, dt float64) {
	if state != StateSleeping {
		n.Energy -= t.EnergyDecay * dt
	}
	if state != StateEating {
		n.Hunger -= t.HungerDecay * dt
	}
	n.Mood -= t.MoodDecay * dt
	n.clamp()
}

func (n *Needs) clamp() {
	n.Energy = clampNeed(n.Energy)
	n.Hunger = clampNeed(n.Hunger)
	n.Mood = clampNeed(n.Mood)
}

// Lowest returns the smallest of the three needs.
func (n *Needs) Lowest() float64 {
	return min(n.Energy, n.Hunger, n.Mood)
}

func clampNeed(v float64) float64 {
	if v < NeedMin {
		return NeedMin
	}
	if v > NeedMax {
		return NeedMax
	}
	return v
}
