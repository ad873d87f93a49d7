package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds service settings loaded from callscope.yml.
type Config struct {
	Listen         string        `yaml:"listen,omitempty"`
	MaxDepth       int           `yaml:"maxDepth,omitempty"`
	IncludeHeaders bool          `yaml:"includeHeaders,omitempty"`
	Fanout         int           `yaml:"fanout,omitempty"`
	MaxProcesses   int64         `yaml:"maxProcesses,omitempty"`
	RequestTimeout time.Duration `yaml:"requestTimeout,omitempty"`
	KillGrace      time.Duration `yaml:"killGrace,omitempty"`
	Excludes       []string      `yaml:"excludes,omitempty"`
	DisableIndex   bool          `yaml:"disableIndex,omitempty"`
	SearchLimit    int           `yaml:"searchLimit,omitempty"`
	ContextLines   int           `yaml:"contextLines,omitempty"`
	Tools          Tools         `yaml:"tools,omitempty"`
	Log            Log           `yaml:"log,omitempty"`
}

// Tools names the external binaries. Bare names are looked up on PATH.
type Tools struct {
	Cscope string `yaml:"cscope,omitempty"`
	Grep   string `yaml:"grep,omitempty"`
	Ag     string `yaml:"ag,omitempty"`
}

// Log selects the slog handler.
type Log struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // text or json
}

// Default returns the settings used for every key the file leaves unset.
func Default() *Config {
	return &Config{
		Listen:         "127.0.0.1:8000",
		MaxDepth:       10,
		Fanout:         1,
		MaxProcesses:   4,
		RequestTimeout: 2 * time.Minute,
		KillGrace:      100 * time.Millisecond,
		SearchLimit:    50,
		ContextLines:   10,
		Tools: Tools{
			Cscope: "cscope",
			Grep:   "grep",
			Ag:     "ag",
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load attempts to read callscope.yml or callscope.yaml from the given
// directory. Returns the defaults (not an error) if no config file exists.
func Load(dir string) (*Config, error) {
	for _, name := range []string{"callscope.yml", "callscope.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		cfg := Default()
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return cfg, nil
	}
	return Default(), nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	switch {
	// The servers read a zero request default as unset.
	case c.MaxDepth < 1:
		return fmt.Errorf("maxDepth must be at least 1: %d", c.MaxDepth)
	case c.SearchLimit < 1:
		return fmt.Errorf("searchLimit must be at least 1: %d", c.SearchLimit)
	case c.Fanout < 1:
		return fmt.Errorf("fanout must be at least 1: %d", c.Fanout)
	case c.MaxProcesses < 1:
		return fmt.Errorf("maxProcesses must be at least 1: %d", c.MaxProcesses)
	case c.RequestTimeout < 0:
		return fmt.Errorf("requestTimeout must not be negative: %s", c.RequestTimeout)
	case c.KillGrace < 0:
		return fmt.Errorf("killGrace must not be negative: %s", c.KillGrace)
	case c.ContextLines < 1:
		return fmt.Errorf("contextLines must be at least 1: %d", c.ContextLines)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json: %q", c.Log.Format)
	}
	return nil
}
