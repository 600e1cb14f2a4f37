// Package config holds the simulation configuration of y86sim and its
// JSON and YAML file formats.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"go.yaml.in/yaml/v3"

	"github.com/sarchlab/y86sim/timing/cache"
	"github.com/sarchlab/y86sim/timing/pipeline"
)

// DataCacheConfig controls the optional data-cache profiler.
type DataCacheConfig struct {
	// Enabled attaches the profiler to the memory stage.
	Enabled bool `json:"enabled" yaml:"enabled"`

	cache.Config `yaml:",inline"`
}

// Config holds simulation parameters.
type Config struct {
	// MaxCycles bounds a run. 0 means no limit. Default: 10000.
	MaxCycles uint64 `json:"max_cycles" yaml:"max_cycles"`

	// EntryPC is the address of the first instruction. Default: 0.
	EntryPC int32 `json:"entry_pc" yaml:"entry_pc"`

	// LogLevel is a logrus level name. Default: "warning".
	LogLevel string `json:"log_level" yaml:"log_level"`

	// TraceDir is the directory trace files are written to. Empty
	// disables tracing.
	TraceDir string `json:"trace_dir" yaml:"trace_dir"`

	// DataCache configures the data-cache profiler.
	DataCache DataCacheConfig `json:"data_cache" yaml:"data_cache"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		MaxCycles: pipeline.DefaultMaxCycles,
		LogLevel:  logrus.WarnLevel.String(),
		DataCache: DataCacheConfig{
			Config: cache.DefaultConfig(),
		},
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads a Config from a JSON file, or from a YAML file when the
// extension is .yaml or .yml. Fields missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return config, nil
}

// Save writes the Config to path, as YAML when the extension is .yaml or
// .yml and as indented JSON otherwise.
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.EntryPC < 0 {
		return fmt.Errorf("entry_pc must be >= 0")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.DataCache.Enabled {
		if err := c.DataCache.Validate(); err != nil {
			return fmt.Errorf("data_cache: %w", err)
		}
	}
	return nil
}

// Level returns the parsed log level, falling back to warning.
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.WarnLevel
	}
	return level
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
