package admission

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// PolicyConfig is the yaml shape for overriding one route class. Zero fields
// keep the built-in default, so a file only needs to name what it changes.
type PolicyConfig struct {
	MaxRequests   int    `yaml:"max_requests"`
	Window        string `yaml:"window"`         // Go duration string, e.g. "15m"
	BlockDuration string `yaml:"block_duration"` // Go duration string, e.g. "30m"
}

// Config holds the rate limiter configuration file contents.
type Config struct {
	Policies map[Class]PolicyConfig `yaml:"policies"`
}

// LoadConfig reads and parses a yaml config file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// ValidateAndPrepare checks the raw config and applies it on top of the
// default policy table, returning the effective policies.
func (c *Config) ValidateAndPrepare() (map[Class]Policy, error) {
	policies := DefaultPolicies()
	if c == nil || len(c.Policies) == 0 {
		log.Debug().Msg("no policy overrides configured, using defaults")
		return policies, nil
	}

	for class, override := range c.Policies {
		base, ok := policies[class]
		if !ok {
			return nil, fmt.Errorf("unknown route class in config: %q", class)
		}

		if override.MaxRequests < 0 {
			return nil, fmt.Errorf("policy for class '%s' has invalid max_requests: %d, must be positive", class, override.MaxRequests)
		}
		if override.MaxRequests > 0 {
			base.MaxRequests = override.MaxRequests
		}

		if override.Window != "" {
			d, err := time.ParseDuration(override.Window)
			if err != nil {
				return nil, fmt.Errorf("policy for class '%s' has invalid window: %w", class, err)
			}
			if d <= 0 {
				return nil, fmt.Errorf("policy for class '%s' has non-positive window: %s", class, d)
			}
			base.Window = d
		}

		if override.BlockDuration != "" {
			d, err := time.ParseDuration(override.BlockDuration)
			if err != nil {
				return nil, fmt.Errorf("policy for class '%s' has invalid block_duration: %w", class, err)
			}
			if d <= 0 {
				return nil, fmt.Errorf("policy for class '%s' has non-positive block_duration: %s", class, d)
			}
			base.BlockDuration = d
		}

		policies[class] = base
		log.Info().Str("class", string(class)).Int("max_requests", base.MaxRequests).Dur("window", base.Window).Dur("block_duration", base.BlockDuration).Msg("policy override applied")
	}
	return policies, nil
}
