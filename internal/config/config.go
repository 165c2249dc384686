// Package config loads and validates the redrive configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Strategy names accepted in the config file.
const (
	StrategyFibonacci   = "fibonacci"
	StrategyProgressive = "progressive"
)

// Tier is one (max_age, period) band of the progressive strategy. Records
// younger than MaxAge are selected every Period by this tier's trigger.
type Tier struct {
	MaxAge Duration `yaml:"max_age"`
	Period Duration `yaml:"period"`
}

// Processor configures the downstream processing call.
type Processor struct {
	// Kind selects the processor implementation: "http", "command" or "noop".
	Kind string `yaml:"kind"`
	// URL is the endpoint for the http processor.
	URL string `yaml:"url"`
	// Command is the argv for the command processor.
	Command []string `yaml:"command"`
	// Kinds lists the record kinds routed to this processor.
	Kinds []string `yaml:"kinds"`
}

// Config holds the full daemon configuration.
type Config struct {
	// Strategy is "fibonacci" or "progressive".
	Strategy string `yaml:"strategy"`

	// MaxAge is the selection window for the fibonacci strategy. Older
	// records are no longer selected (soft-terminal abandonment).
	MaxAge Duration `yaml:"max_age"`

	// MaxRecords caps how many candidates one tick selects.
	MaxRecords int `yaml:"max_records"`

	// FibUnit scales the Fibonacci sequence into retry intervals.
	FibUnit Duration `yaml:"fib_unit"`

	// TickInterval is the fibonacci trigger period.
	TickInterval Duration `yaml:"tick_interval"`

	// Tiers configures the progressive strategy, ordered ascending by MaxAge.
	Tiers []Tier `yaml:"tiers"`

	// ClaimLease is how long a record may stay PROCESSING before a later
	// tick may reclaim it.
	ClaimLease Duration `yaml:"claim_lease"`

	// CallDeadline bounds each downstream processing attempt.
	CallDeadline Duration `yaml:"call_deadline"`

	// Workers is the bounded parallelism within one tick. 1 means sequential.
	Workers int `yaml:"workers"`

	DBPath    string    `yaml:"db_path"`
	Addr      string    `yaml:"addr"`
	LogLevel  string    `yaml:"log_level"`
	LogFormat string    `yaml:"log_format"`
	Processor Processor `yaml:"processor"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Strategy:     StrategyFibonacci,
		MaxAge:       Duration(30 * 24 * time.Hour),
		MaxRecords:   100,
		FibUnit:      Duration(time.Minute),
		TickInterval: Duration(time.Minute),
		ClaimLease:   Duration(15 * time.Minute),
		CallDeadline: Duration(30 * time.Second),
		Workers:      1,
		Addr:         ":8080",
		LogLevel:     "info",
		LogFormat:    "text",
		Processor:    Processor{Kind: "noop", Kinds: []string{"default"}},
	}
}

// DefaultTiers is the tier table used when the progressive strategy is
// selected without explicit tiers.
func DefaultTiers() []Tier {
	day := 24 * time.Hour
	return []Tier{
		{MaxAge: Duration(1 * day), Period: Duration(5 * time.Minute)},
		{MaxAge: Duration(7 * day), Period: Duration(time.Hour)},
		{MaxAge: Duration(14 * day), Period: Duration(12 * time.Hour)},
		{MaxAge: Duration(30 * day), Period: Duration(24 * time.Hour)},
		{MaxAge: Duration(180 * day), Period: Duration(96 * time.Hour)},
		{MaxAge: Duration(360 * day), Period: Duration(192 * time.Hour)},
	}
}

// Load reads a YAML config file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Strategy == StrategyProgressive && len(cfg.Tiers) == 0 {
		cfg.Tiers = DefaultTiers()
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	switch c.Strategy {
	case StrategyFibonacci, StrategyProgressive:
	default:
		return fmt.Errorf("unknown strategy %q", c.Strategy)
	}

	if c.MaxRecords < 1 {
		return fmt.Errorf("max_records must be >= 1, got %d", c.MaxRecords)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	if c.ClaimLease <= 0 {
		return fmt.Errorf("claim_lease must be positive")
	}
	if c.CallDeadline <= 0 {
		return fmt.Errorf("call_deadline must be positive")
	}

	switch c.Strategy {
	case StrategyFibonacci:
		if c.FibUnit <= 0 {
			return fmt.Errorf("fib_unit must be positive")
		}
		if c.TickInterval <= 0 {
			return fmt.Errorf("tick_interval must be positive")
		}
		if c.MaxAge <= 0 {
			return fmt.Errorf("max_age must be positive")
		}
	case StrategyProgressive:
		if len(c.Tiers) == 0 {
			return fmt.Errorf("progressive strategy requires at least one tier")
		}
		var prev Duration
		for i, tier := range c.Tiers {
			if tier.MaxAge <= 0 || tier.Period <= 0 {
				return fmt.Errorf("tier %d: max_age and period must be positive", i)
			}
			if tier.MaxAge <= prev {
				return fmt.Errorf("tier %d: max_age %s not greater than previous tier's %s",
					i, tier.MaxAge, prev)
			}
			prev = tier.MaxAge
		}
	}

	switch c.Processor.Kind {
	case "noop":
	case "http":
		if c.Processor.URL == "" {
			return fmt.Errorf("http processor requires a url")
		}
	case "command":
		if len(c.Processor.Command) == 0 {
			return fmt.Errorf("command processor requires a command")
		}
	default:
		return fmt.Errorf("unknown processor kind %q", c.Processor.Kind)
	}
	if len(c.Processor.Kinds) == 0 {
		return fmt.Errorf("processor requires at least one record kind")
	}

	return nil
}
