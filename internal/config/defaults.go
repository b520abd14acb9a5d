package config

import "github.com/spf13/viper"

// SetDefaults registers every key with viper. Keys viper has never seen are
// invisible to AutomaticEnv, so each field needs a default here.
func SetDefaults(v *viper.Viper, d Config) {
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.autosave_minutes", d.Database.AutosaveMinutes)

	v.SetDefault("api.addr", d.API.Addr)
	v.SetDefault("api.admin_key", d.API.AdminKey)
	v.SetDefault("api.rate_limit", d.API.RateLimit)
	v.SetDefault("api.burst", d.API.Burst)
	v.SetDefault("api.stream_clients", d.API.StreamClients)
	v.SetDefault("api.cors_origins", d.API.CORSOrigins)

	v.SetDefault("world.width", d.World.Width)
	v.SetDefault("world.height", d.World.Height)
	v.SetDefault("world.seed", d.World.Seed)
	v.SetDefault("world.tree_level", d.World.TreeLevel)
	v.SetDefault("world.ore_level", d.World.OreLevel)
	v.SetDefault("world.contamination_level", d.World.ContaminationLevel)
	v.SetDefault("world.clear_radius", d.World.ClearRadius)

	v.SetDefault("simulation.tick_rate", d.Simulation.TickRate)
	v.SetDefault("simulation.sweep_interval", d.Simulation.SweepInterval)
	v.SetDefault("simulation.seed", d.Simulation.Seed)
	v.SetDefault("simulation.colonists", d.Simulation.Colonists)
	v.SetDefault("simulation.catalog", d.Simulation.Catalog)
	v.SetDefault("simulation.start_stock.minerals", d.Simulation.StartStock.Minerals)
	v.SetDefault("simulation.start_stock.credits", d.Simulation.StartStock.Credits)
	v.SetDefault("simulation.start_stock.crystals", d.Simulation.StartStock.Crystals)

	v.SetDefault("pool.capacity", d.Pool.Capacity)

	a := d.Agents
	v.SetDefault("agents.think_interval_ticks", a.ThinkIntervalTicks)
	v.SetDefault("agents.speed", a.Speed)
	v.SetDefault("agents.energy_decay", a.EnergyDecay)
	v.SetDefault("agents.hunger_decay", a.HungerDecay)
	v.SetDefault("agents.mood_decay", a.MoodDecay)
	v.SetDefault("agents.critical_need", a.CriticalNeed)
	v.SetDefault("agents.satisfied_need", a.SatisfiedNeed)
	v.SetDefault("agents.sleep_restore", a.SleepRestore)
	v.SetDefault("agents.eat_restore", a.EatRestore)
	v.SetDefault("agents.wander_chance", a.WanderChance)
	v.SetDefault("agents.wander_radius", a.WanderRadius)
	v.SetDefault("agents.build_work_rate", a.BuildWorkRate)
	v.SetDefault("agents.mine_yield", a.MineYield)
	v.SetDefault("agents.mining_skill_step", a.MiningSkillStep)
	v.SetDefault("agents.ore_depletion_chance", a.OreDepletionChance)

	c := d.Construction
	v.SetDefault("construction.speed_up_cost", c.SpeedUpCost)
	v.SetDefault("construction.rehab_cost", c.RehabCost)
	v.SetDefault("construction.rehab_initial", c.RehabInitial)
	v.SetDefault("construction.rehab_rate", c.RehabRate)
	v.SetDefault("construction.build_priority", c.BuildPriority)
}
