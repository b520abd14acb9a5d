// Package config loads process configuration from defaults, an optional
// config.yaml, a .env file and COLONY_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/talgya/mini-colony/internal/agents"
	"github.com/talgya/mini-colony/internal/construction"
	"github.com/talgya/mini-colony/internal/economy"
	"github.com/talgya/mini-colony/internal/engine"
	"github.com/talgya/mini-colony/internal/world"
)

// EnvPrefix prefixes every environment override, e.g. COLONY_API_ADDR.
const EnvPrefix = "COLONY"

// Config is the root configuration.
type Config struct {
	Log          LoggingConfig       `mapstructure:"log"`
	Database     DatabaseConfig      `mapstructure:"database"`
	API          APIConfig           `mapstructure:"api"`
	World        world.GenConfig     `mapstructure:"world"`
	Simulation   SimulationConfig    `mapstructure:"simulation"`
	Pool         PoolConfig          `mapstructure:"pool"`
	Agents       agents.Tuning       `mapstructure:"agents"`
	Construction construction.Tuning `mapstructure:"construction"`
}

// DatabaseConfig locates the sqlite world database.
type DatabaseConfig struct {
	Path            string `mapstructure:"path" validate:"required"`
	AutosaveMinutes int    `mapstructure:"autosave_minutes" validate:"gte=0"` // Simulated minutes between saves; 0 disables
}

// APIConfig configures the HTTP surface.
type APIConfig struct {
	Addr          string   `mapstructure:"addr"` // Empty disables the server
	AdminKey      string   `mapstructure:"admin_key"`
	RateLimit     float64  `mapstructure:"rate_limit" validate:"gt=0"` // Requests per second per client on write endpoints
	Burst         int      `mapstructure:"burst" validate:"gte=1"`
	StreamClients int      `mapstructure:"stream_clients" validate:"gte=0"` // 0 = unlimited
	CORSOrigins   []string `mapstructure:"cors_origins"`
}

// SimulationConfig holds orchestrator parameters.
type SimulationConfig struct {
	TickRate      int               `mapstructure:"tick_rate" validate:"gte=1,lte=1000"`
	SweepInterval uint64            `mapstructure:"sweep_interval"` // 0 disables the consistency sweep
	Seed          uint64            `mapstructure:"seed"`           // 0 = random
	Colonists     int               `mapstructure:"colonists" validate:"gte=0"`
	Catalog       string            `mapstructure:"catalog"` // Building table override; empty uses the embedded default
	StartStock    economy.Stockpile `mapstructure:"start_stock"`
}

// PoolConfig sizes the path buffer pool.
type PoolConfig struct {
	Capacity int `mapstructure:"capacity" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{
			Path:            "colony.db",
			AutosaveMinutes: 5,
		},
		API: APIConfig{
			Addr:          ":8080",
			RateLimit:     5,
			Burst:         10,
			StreamClients: 16,
		},
		World: world.DefaultGenConfig(),
		Simulation: SimulationConfig{
			TickRate:      10,
			SweepInterval: 50,
			Colonists:     8,
			StartStock:    economy.Stockpile{Credits: 200, Crystals: 20},
		},
		Pool:         PoolConfig{Capacity: 256},
		Agents:       agents.DefaultTuning(),
		Construction: construction.DefaultTuning(),
	}
}

// Load reads configuration with priority env > file > defaults. An empty
// path searches for config.yaml in the working directory and ./configs; a
// missing file is not an error unless the path was given explicitly.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Params converts the configuration into simulation parameters.
func (c *Config) Params() engine.Params {
	return engine.Params{
		TickRate:      c.Simulation.TickRate,
		SweepInterval: c.Simulation.SweepInterval,
		PoolCapacity:  c.Pool.Capacity,
		Seed:          c.Simulation.Seed,
		StartStock:    c.Simulation.StartStock,
		Agents:        c.Agents,
		Construction:  c.Construction,
	}
}
