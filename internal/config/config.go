// Package config provides configuration loading for lintrun.
// Configuration can be supplied via a YAML file (.lintrun.yaml), a TOML file
// (any path ending in .toml) or programmatically for use in tests. Command
// line flags override whatever the file sets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = ".lintrun.yaml"

// Config is the top-level configuration structure for lintrun.
type Config struct {
	// Plugins lists analyzer plugin paths. Relative paths are resolved
	// against the directory of the config file.
	Plugins []string `yaml:"plugins" toml:"plugins"`

	// Format is the output format: text or sarif.
	Format string `yaml:"format" toml:"format"`

	// Jobs is the number of files analyzed in parallel; 0 or 1 is sequential.
	Jobs int `yaml:"jobs" toml:"jobs"`

	// Timeout bounds each analyzer invocation, e.g. "30s". Zero disables it.
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`

	// Exclude lists glob patterns of files to skip.
	// Example YAML:
	//   exclude:
	//     - "*_test.go"
	//     - "internal/gen/*"
	Exclude []string `yaml:"exclude" toml:"exclude"`

	// Analyzers allows selectively disabling analyzers by name.
	// Example YAML:
	//   analyzers:
	//     logmsg: false
	Analyzers map[string]bool `yaml:"analyzers" toml:"analyzers"`
}

// DefaultConfig returns a configuration with text output, sequential
// execution and every analyzer enabled.
func DefaultConfig() *Config {
	return &Config{
		Format:    "text",
		Analyzers: map[string]bool{},
	}
}

// IsAnalyzerEnabled reports whether the named analyzer should run.
// Unknown names default to enabled so that newly added analyzers are active
// even if the user has not updated their config file.
func (c *Config) IsAnalyzerEnabled(name string) bool {
	if c == nil || c.Analyzers == nil {
		return true
	}
	enabled, ok := c.Analyzers[name]
	if !ok {
		return true
	}
	return enabled
}

// fileConfig mirrors Config with pointer fields so Load can tell which keys
// were actually present.
type fileConfig struct {
	Plugins   []string        `yaml:"plugins" toml:"plugins"`
	Format    *string         `yaml:"format" toml:"format"`
	Jobs      *int            `yaml:"jobs" toml:"jobs"`
	Timeout   *time.Duration  `yaml:"timeout" toml:"timeout"`
	Exclude   []string        `yaml:"exclude" toml:"exclude"`
	Analyzers map[string]bool `yaml:"analyzers" toml:"analyzers"`
}

// Load reads a config file from path and merges it on top of the default
// configuration. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("lintrun: reading config %q: %w", path, err)
	}

	var file fileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), &file); err != nil {
			return nil, fmt.Errorf("lintrun: parsing config %q: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("lintrun: parsing config %q: %w", path, err)
	}

	base := filepath.Dir(path)
	for _, p := range file.Plugins {
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		cfg.Plugins = append(cfg.Plugins, p)
	}
	if file.Format != nil {
		cfg.Format = *file.Format
	}
	if file.Jobs != nil {
		cfg.Jobs = *file.Jobs
	}
	if file.Timeout != nil {
		cfg.Timeout = *file.Timeout
	}
	cfg.Exclude = append(cfg.Exclude, file.Exclude...)
	for k, v := range file.Analyzers {
		cfg.Analyzers[k] = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("lintrun: config %q: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", c.Jobs)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	for _, pattern := range c.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("bad exclude pattern %q: %w", pattern, err)
		}
	}
	return nil
}
