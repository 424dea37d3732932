// Package config loads the application configuration from a YAML or JSON
// file with K_ prefixed environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/evfleet/core/factory"
	"github.com/kilianp07/evfleet/core/metrics"
)

type Config struct {
	Simulation SimulationConfig     `json:"simulation"`
	Storage    factory.ModuleConfig `json:"storage"`
	Metrics    metrics.Config       `json:"metrics"`
	RunLog     RunLogConfig         `json:"runlog"`
	HTTP       HTTPConfig           `json:"http"`
	Sentry     SentryConfig         `json:"sentry"`
}

// Load reads path and applies environment overrides such as
// K_SIMULATION__END_YEAR=2050.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given: CSV
// datasets under ./data and a JSONL run log.
func Default() *Config {
	cfg := &Config{Storage: factory.ModuleConfig{Type: "csv"}}
	_ = cfg.Finalize()
	return cfg
}

// Finalize applies defaults and validates every section.
func (c *Config) Finalize() error {
	c.Simulation.SetDefaults()
	c.RunLog.SetDefaults()
	c.HTTP.SetDefaults()
	if c.Storage.Type == "" {
		c.Storage.Type = "csv"
	}
	if err := c.Simulation.Validate(); err != nil {
		return err
	}
	return c.RunLog.Validate()
}
