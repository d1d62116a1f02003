package clock

import (
	"fmt"
	"os"

	"github.com/BYTE-6D65/webtime/pkg/timestamp"
)

// Config holds the tunable parameters of a Source.
// Values can be set via:
//  1. Code (programmatic configuration)
//  2. Environment variables (WEBTIME_*)
//
// Precedence: Code > Env Vars > Defaults
type Config struct {
	// Synchronized makes Instants measure from the Unix epoch instead of the
	// context's time origin, so Instants of different contexts compare.
	Synchronized bool `env:"WEBTIME_SYNCHRONIZED" default:"false"`

	// Strategy names the timestamp conversion: portable, intrinsic or default.
	Strategy string `env:"WEBTIME_STRATEGY" default:"default"`

	// Metrics records the default Source's readings on the process wide
	// telemetry.Default metrics.
	Metrics bool `env:"WEBTIME_METRICS" default:"false"`
}

// DefaultConfig returns a configuration matching the browser behaviour:
// per-context time origin, build default conversion.
func DefaultConfig() Config {
	return Config{
		Synchronized: false,
		Strategy:     "default",
	}
}

// LoadFromEnv loads configuration from environment variables.
// Returns a Config with defaults, overridden by any valid WEBTIME_* env vars found.
func LoadFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("WEBTIME_SYNCHRONIZED"); v != "" {
		cfg.Synchronized = v == "true" || v == "1"
	}
	if v := os.Getenv("WEBTIME_METRICS"); v != "" {
		cfg.Metrics = v == "true" || v == "1"
	}
	if v := os.Getenv("WEBTIME_STRATEGY"); v != "" {
		if _, err := timestamp.ParseStrategy(v); err == nil {
			cfg.Strategy = v
		}
	}

	return cfg, cfg.Validate()
}

// Validate checks that configuration values are sensible.
func (c *Config) Validate() error {
	if _, err := timestamp.ParseStrategy(c.Strategy); err != nil {
		return fmt.Errorf("invalid strategy: %w", err)
	}
	return nil
}

// String returns a human-readable summary of the configuration.
func (c *Config) String() string {
	s, err := timestamp.ParseStrategy(c.Strategy)
	strategy := s.String()
	if err != nil {
		strategy = "invalid (" + c.Strategy + ")"
	}
	return fmt.Sprintf(`webtime Configuration:
  Synchronized: %t
  Strategy:     %s
  Metrics:      %t
`, c.Synchronized, strategy, c.Metrics)
}
