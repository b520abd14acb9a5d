package agents

// Tuning holds behavior parameters. Rates are per simulated second.
type Tuning struct {
	ThinkIntervalTicks uint64  `mapstructure:"think_interval_ticks" validate:"gte=1"`
	Speed              float64 `mapstructure:"speed" validate:"gt=0"` // Cells per second

	EnergyDecay float64 `mapstructure:"energy_decay" validate:"gte=0"`
	HungerDecay float64 `mapstructure:"hunger_decay" validate:"gte=0"`
	MoodDecay   float64 `mapstructure:"mood_decay" validate:"gte=0"`

	CriticalNeed  float64 `mapstructure:"critical_need" validate:"gte=0,lte=100"`
	SatisfiedNeed float64 `mapstructure:"satisfied_need" validate:"gte=0,lte=100,gtfield=CriticalNeed"`
	SleepRestore  float64 `mapstructure:"sleep_restore" validate:"gt=0"`
	EatRestore    float64 `mapstructure:"eat_restore" validate:"gt=0"`

	WanderChance float64 `mapstructure:"wander_chance" validate:"gte=0,lte=1"`
	WanderRadius int     `mapstructure:"wander_radius" validate:"gte=0"`

	BuildWorkRate      float64 `mapstructure:"build_work_rate" validate:"gt=0"` // Work units per second at skill 0
	MineYield          int     `mapstructure:"mine_yield" validate:"gte=0"`
	MiningSkillStep    float64 `mapstructure:"mining_skill_step" validate:"gte=0"`
	OreDepletionChance float64 `mapstructure:"ore_depletion_chance" validate:"gte=0,lte=1"`
}

// DefaultTuning returns the stock behavior parameters for a 10 Hz tick.
func DefaultTuning() Tuning {
	return Tuning{
		ThinkIntervalTicks: 10,
		Speed:              2,
		EnergyDecay:        0.5,
		HungerDecay:        0.4,
		MoodDecay:          0.1,
		CriticalNeed:       30,
		SatisfiedNeed:      90,
		SleepRestore:       8,
		EatRestore:         12,
		WanderChance:       0.1,
		WanderRadius:       5,
		BuildWorkRate:      10,
		MineYield:          15,
		MiningSkillStep:    0.01,
		OreDepletionChance: 0.1,
	}
}
