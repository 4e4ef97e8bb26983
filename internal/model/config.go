package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/msageha/installwatch/internal/faults"
)

// Config is the top-level installwatch configuration.
type Config struct {
	Items        []Item           `yaml:"items" json:"items"`
	PlistSources []PlistSource    `yaml:"plist_sources,omitempty" json:"plist_sources,omitempty"`
	CacheDirs    []string         `yaml:"cache_dirs,omitempty" json:"cache_dirs,omitempty"`
	Watcher      WatcherConfig    `yaml:"watcher" json:"watcher"`
	Validation   ValidationConfig `yaml:"validation" json:"validation"`
	Command      CommandConfig    `yaml:"command" json:"command"`
	Logging      LoggingConfig    `yaml:"logging" json:"logging"`
}

type WatcherConfig struct {
	PollIntervalSec float64  `yaml:"poll_interval_sec" json:"poll_interval_sec"`
	DebounceMs      int      `yaml:"debounce_ms" json:"debounce_ms"`
	ExcludePatterns []string `yaml:"exclude_patterns,omitempty" json:"exclude_patterns,omitempty"`
}

type ValidationConfig struct {
	Workers    int `yaml:"workers" json:"workers"`
	TimeoutSec int `yaml:"timeout_sec" json:"timeout_sec"`
}

type CommandConfig struct {
	File            string  `yaml:"file,omitempty" json:"file,omitempty"`
	PollIntervalSec float64 `yaml:"poll_interval_sec" json:"poll_interval_sec"`
}

type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file,omitempty" json:"file,omitempty"`
}

// DefaultConfig returns a configuration with every tunable at its default.
func DefaultConfig() Config {
	return Config{
		Watcher: WatcherConfig{
			PollIntervalSec: 2,
			DebounceMs:      100,
		},
		Validation: ValidationConfig{
			Workers:    4,
			TimeoutSec: 30,
		},
		Command: CommandConfig{
			PollIntervalSec: 1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads and decodes a configuration file. YAML is assumed unless
// the file carries a .json extension. Defaults are applied before validation.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	content, err := os.ReadFile(path)
	if err != nil {
		return cfg, faults.Wrap(faults.KindConfiguration, fmt.Errorf("read config %s: %w", path, err))
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(content, &cfg)
	} else {
		err = yaml.Unmarshal(content, &cfg)
	}
	if err != nil {
		return cfg, faults.Wrap(faults.KindConfiguration, fmt.Errorf("decode config %s: %w", path, err))
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks structural invariants: at least one item, unique non-empty
// item IDs, and every item carrying at least one candidate path.
func (c *Config) Validate() error {
	if len(c.Items) == 0 {
		return faults.New(faults.KindConfiguration, "no items configured")
	}

	seen := make(map[string]bool, len(c.Items))
	for i, it := range c.Items {
		if it.ID == "" {
			return faults.New(faults.KindConfiguration, "item %d: empty id", i)
		}
		if seen[it.ID] {
			return faults.New(faults.KindConfiguration, "duplicate item id %q", it.ID)
		}
		seen[it.ID] = true
		if len(it.Paths) == 0 {
			return faults.New(faults.KindConfiguration, "item %q: no paths", it.ID)
		}
	}

	if c.Validation.Workers <= 0 {
		c.Validation.Workers = 4
	}
	if c.Watcher.PollIntervalSec <= 0 {
		c.Watcher.PollIntervalSec = 2
	}
	if c.Watcher.DebounceMs <= 0 {
		c.Watcher.DebounceMs = 100
	}
	return nil
}

// ItemByIndex returns the item at the given GUI position, following the
// configured order. Used by the command channel to resolve index-addressed
// status assertions.
func (c *Config) ItemByIndex(index int) (Item, bool) {
	if index < 0 || index >= len(c.Items) {
		return Item{}, false
	}
	return c.Items[index], true
}
