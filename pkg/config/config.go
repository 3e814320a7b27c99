// Package config provides the unified configuration for chairlift.
// A single Config structure covers every component, organized into
// logical sections:
//   - Simulation: world-clock speed and generator population sizes
//   - Buffer: the local durable buffer location
//   - Snowflake: account, key-pair credentials, and ingest targets
//   - Pipeline: streamer batching and polling behavior
//   - Observability: logging and metrics
//
// Configuration is loaded from a YAML file with ${VAR} environment
// substitution; Validate reports missing or inconsistent settings.
package config

import (
	"fmt"
	"time"
)

// Simulation speeds. Each maps to a world-clock multiplier.
const (
	SpeedTurtle  = "TURTLE"  // 1 day == 12 min
	SpeedLlama   = "LLAMA"   // 1 day == 3 min
	SpeedCheetah = "CHEETAH" // 1 day == 90 sec
)

// Config is the top-level configuration for all chairlift components.
type Config struct {
	Simulation    SimulationConfig    `yaml:"simulation" json:"simulation"`
	Buffer        BufferConfig        `yaml:"buffer" json:"buffer"`
	Snowflake     SnowflakeConfig     `yaml:"snowflake" json:"snowflake"`
	Pipeline      PipelineConfig      `yaml:"pipeline" json:"pipeline"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// SimulationConfig controls the synthetic data generator.
type SimulationConfig struct {
	// Speed selects the world-clock multiplier (TURTLE, LLAMA, CHEETAH)
	Speed string `yaml:"speed" json:"speed"`
	// TickInterval is the real-time pause between generator ticks
	TickInterval time.Duration `yaml:"tick_interval" json:"tick_interval"`
	// TicketsPerTick is the number of resort tickets purchased each tick
	TicketsPerTick int `yaml:"tickets_per_tick" json:"tickets_per_tick"`
	// TicketsPerSeasonPass is the ticket:season-pass purchase ratio
	TicketsPerSeasonPass int `yaml:"tickets_per_season_pass" json:"tickets_per_season_pass"`
	// Seed overrides the calendar-date seed when non-zero
	Seed int64 `yaml:"seed" json:"seed"`
}

// BufferConfig locates the durable local buffer.
type BufferConfig struct {
	// Dir is the pebble database directory
	Dir string `yaml:"dir" json:"dir"`
}

// SnowflakeConfig carries account credentials and ingest targets.
// PrivateKey accepts a PEM block or the raw base64 body (the surrounding
// BEGIN/END lines are added when absent), so the key can live in an
// environment variable referenced as ${SNOWFLAKE_PRIVATE_KEY}.
type SnowflakeConfig struct {
	Account    string `yaml:"account" json:"account"`
	User       string `yaml:"user" json:"user"`
	PrivateKey string `yaml:"private_key" json:"private_key"`
	// URL overrides the derived https://<account>.snowflakecomputing.com host
	URL       string `yaml:"url" json:"url"`
	Database  string `yaml:"database" json:"database"`
	Schema    string `yaml:"schema" json:"schema"`
	Warehouse string `yaml:"warehouse" json:"warehouse"`
	Role      string `yaml:"role" json:"role"`

	// Pipes maps each stream to its Snowpipe Streaming pipe
	Pipes PipesConfig `yaml:"pipes" json:"pipes"`
	// ChannelPrefix namespaces the ingest channels opened by this host
	ChannelPrefix string `yaml:"channel_prefix" json:"channel_prefix"`
	// TargetLag is the dynamic-table staleness target used by setup
	TargetLag string `yaml:"target_lag" json:"target_lag"`
}

// PipesConfig names the Snowpipe Streaming pipe per stream.
type PipesConfig struct {
	LiftRides     string `yaml:"lift_rides" json:"lift_rides"`
	ResortTickets string `yaml:"resort_tickets" json:"resort_tickets"`
	SeasonPasses  string `yaml:"season_passes" json:"season_passes"`
}

// PipelineConfig controls the streamer loops.
type PipelineConfig struct {
	// BatchSize is the maximum rows per NDJSON append
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// PollInterval is the idle wait when the buffer has no new rows
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
	// CommitPollInterval is the wait between committed-offset checks
	CommitPollInterval time.Duration `yaml:"commit_poll_interval" json:"commit_poll_interval"`
	// MaxBackoff caps the exponential backoff applied after errors
	MaxBackoff time.Duration `yaml:"max_backoff" json:"max_backoff"`
	// GzipThreshold compresses NDJSON payloads larger than this many bytes
	GzipThreshold int `yaml:"gzip_threshold" json:"gzip_threshold"`
}

// ObservabilityConfig controls logging and metrics.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level" json:"log_level"`
	Development bool   `yaml:"development" json:"development"`
	// MetricsAddr exposes prometheus metrics when set (e.g. ":9090")
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
}

// Default returns a Config with production-ready defaults. Credentials
// must still be supplied by the YAML file or environment.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Speed:                SpeedCheetah,
			TickInterval:         250 * time.Millisecond,
			TicketsPerTick:       5,
			TicketsPerSeasonPass: 20,
		},
		Buffer: BufferConfig{
			Dir: "data/buffer",
		},
		Snowflake: SnowflakeConfig{
			Database: "SKI_RESORT",
			Schema:   "INGEST",
			Pipes: PipesConfig{
				LiftRides:     "LIFT_RIDE_PIPE",
				ResortTickets: "RESORT_TICKET_PIPE",
				SeasonPasses:  "SEASON_PASS_PIPE",
			},
			ChannelPrefix: "chairlift",
			TargetLag:     "1 minute",
		},
		Pipeline: PipelineConfig{
			BatchSize:          100,
			PollInterval:       time.Second,
			CommitPollInterval: 500 * time.Millisecond,
			MaxBackoff:         30 * time.Second,
			GzipThreshold:      8 * 1024,
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
		},
	}
}

// SpeedMultiplier returns the world-clock multiplier for the configured
// simulation speed. Unknown speeds fall back to CHEETAH, matching the
// generator's historical behavior.
func (s SimulationConfig) SpeedMultiplier() float64 {
	switch s.Speed {
	case SpeedTurtle:
		return 120
	case SpeedLlama:
		return 480
	default:
		return 960
	}
}

// Validate checks the configuration for missing or inconsistent values.
// Snowflake credentials are only required by components that talk to the
// service, so they are validated separately via ValidateSnowflake.
func (c *Config) Validate() error {
	switch c.Simulation.Speed {
	case SpeedTurtle, SpeedLlama, SpeedCheetah:
	default:
		return fmt.Errorf("invalid simulation speed %q", c.Simulation.Speed)
	}
	if c.Simulation.TicketsPerTick <= 0 {
		return fmt.Errorf("simulation.tickets_per_tick must be positive, got %d", c.Simulation.TicketsPerTick)
	}
	if c.Simulation.TicketsPerSeasonPass <= 0 {
		return fmt.Errorf("simulation.tickets_per_season_pass must be positive, got %d", c.Simulation.TicketsPerSeasonPass)
	}
	if c.Buffer.Dir == "" {
		return fmt.Errorf("buffer.dir must be set")
	}
	if c.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("pipeline.batch_size must be positive, got %d", c.Pipeline.BatchSize)
	}
	if c.Pipeline.PollInterval <= 0 {
		return fmt.Errorf("pipeline.poll_interval must be positive")
	}
	return nil
}

// ValidateSnowflake checks the fields required to reach the service.
func (c *Config) ValidateSnowflake() error {
	sf := c.Snowflake
	if sf.Account == "" {
		return fmt.Errorf("snowflake.account must be set")
	}
	if sf.User == "" {
		return fmt.Errorf("snowflake.user must be set")
	}
	if sf.PrivateKey == "" {
		return fmt.Errorf("snowflake.private_key must be set")
	}
	if sf.Database == "" || sf.Schema == "" {
		return fmt.Errorf("snowflake.database and snowflake.schema must be set")
	}
	for name, pipe := range map[string]string{
		"lift_rides":     sf.Pipes.LiftRides,
		"resort_tickets": sf.Pipes.ResortTickets,
		"season_passes":  sf.Pipes.SeasonPasses,
	} {
		if pipe == "" {
			return fmt.Errorf("snowflake.pipes.%s must be set", name)
		}
	}
	return nil
}
