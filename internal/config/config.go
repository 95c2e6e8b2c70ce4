package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all cadence configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Observation and inference tuning
	Engine EngineConfig `yaml:"engine"`

	// Feature gate cache
	Gating GatingConfig `yaml:"gating"`

	// Calendar defaults used when starting a cycle without explicit values
	Cycle CycleConfig `yaml:"cycle"`

	// Durable store
	Store StoreConfig `yaml:"store"`

	// Persona and guidance
	UX UXConfig `yaml:"ux"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig tunes the observation engine.
type EngineConfig struct {
	HistoryCapacity            int     `yaml:"history_capacity"`             // cycle-state ring buffer (default: 90)
	AnalysisWindow             int     `yaml:"analysis_window"`              // rolling window for pattern analysis (default: 30)
	InferenceWindow            int     `yaml:"inference_window"`             // recent observations scored (default: 7)
	InferenceHardCap           int     `yaml:"inference_hard_cap"`           // upper bound on scored observations (default: 50)
	ConfidenceThreshold        float64 `yaml:"confidence_threshold"`         // observation wins above this (default: 0.4)
	PatternBoost               float64 `yaml:"pattern_boost"`                // added for established patterns (default: 0.2)
	PatternBoostMinOccurrences int     `yaml:"pattern_boost_min_occurrences"` // occurrences must exceed this (default: 5)
	NotesMaxLength             int     `yaml:"notes_max_length"`             // runes kept from notes (default: 500)
}

// GatingConfig tunes the feature gate evaluation cache.
type GatingConfig struct {
	CacheCapacity    int `yaml:"cache_capacity"`    // fingerprints retained (default: 32)
	ConfidenceBucket int `yaml:"confidence_bucket"` // maturity confidence bucket width (default: 10)
}

// CycleConfig holds calendar defaults.
type CycleConfig struct {
	DefaultLength  int `yaml:"default_length"`  // days (default: 28)
	PeriodDuration int `yaml:"period_duration"` // days (default: 5)
}

// StoreConfig selects the durable store backend.
type StoreConfig struct {
	Backend string `yaml:"backend"` // json, sqlite, memory
	Path    string `yaml:"path"`    // relative paths resolve against the workspace
	Driver  string `yaml:"driver"`  // sqlite (pure Go) or sqlite3 (cgo)
}

// ValidBackends lists the supported store backends.
var ValidBackends = []string{"json", "sqlite", "memory"}

// ValidDrivers lists the supported SQL drivers.
var ValidDrivers = []string{"sqlite", "sqlite3"}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "cadence",
		Version: "1.0.0",

		Engine: EngineConfig{
			HistoryCapacity:            90,
			AnalysisWindow:             30,
			InferenceWindow:            7,
			InferenceHardCap:           50,
			ConfidenceThreshold:        0.4,
			PatternBoost:               0.2,
			PatternBoostMinOccurrences: 5,
			NotesMaxLength:             500,
		},

		Gating: GatingConfig{
			CacheCapacity:    32,
			ConfidenceBucket: 10,
		},

		Cycle: CycleConfig{
			DefaultLength:  28,
			PeriodDuration: 5,
		},

		Store: StoreConfig{
			Backend: "json",
			Path:    "state.json",
			Driver:  "sqlite",
		},

		UX: *DefaultUXConfig(),

		Logging: LoggingConfig{
			Level:     "info",
			Format:    "json",
			DebugMode: false,
		},
	}
}

// DefaultPath returns the config path inside a workspace.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, ".cadence", "config.yaml")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Defaults when the file doesn't exist
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if backend := os.Getenv("CADENCE_STORE_BACKEND"); backend != "" {
		c.Store.Backend = strings.ToLower(backend)
	}
	if path := os.Getenv("CADENCE_DB"); path != "" {
		c.Store.Path = path
		if c.Store.Backend == "json" || c.Store.Backend == "" {
			c.Store.Backend = "sqlite"
		}
	}
	if persona := os.Getenv("CADENCE_PERSONA"); persona != "" {
		c.UX.Persona = persona
	}
	if level := os.Getenv("CADENCE_LOG_LEVEL"); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}
	if debug := os.Getenv("CADENCE_DEBUG"); debug != "" {
		if on, err := strconv.ParseBool(debug); err == nil {
			c.Logging.DebugMode = on
		}
	}
}

// StorePath resolves the store path against the workspace's .cadence directory.
func (c *Config) StorePath(workspace string) string {
	if filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(workspace, ".cadence", c.Store.Path)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	e := c.Engine
	if e.HistoryCapacity <= 0 || e.AnalysisWindow <= 0 || e.InferenceWindow <= 0 {
		return fmt.Errorf("%w: engine windows must be positive", ErrInvalid)
	}
	if e.InferenceHardCap < e.InferenceWindow {
		return fmt.Errorf("%w: inference_hard_cap (%d) below inference_window (%d)", ErrInvalid, e.InferenceHardCap, e.InferenceWindow)
	}
	if e.ConfidenceThreshold < 0 || e.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: confidence_threshold must be within [0,1]", ErrInvalid)
	}
	if e.PatternBoost < 0 || e.PatternBoost > 1 {
		return fmt.Errorf("%w: pattern_boost must be within [0,1]", ErrInvalid)
	}
	if e.NotesMaxLength <= 0 {
		return fmt.Errorf("%w: notes_max_length must be positive", ErrInvalid)
	}

	if c.Gating.CacheCapacity <= 0 {
		return fmt.Errorf("%w: gating cache_capacity must be positive", ErrInvalid)
	}
	if c.Gating.ConfidenceBucket <= 0 {
		return fmt.Errorf("%w: gating confidence_bucket must be positive", ErrInvalid)
	}

	if c.Cycle.DefaultLength < 15 || c.Cycle.DefaultLength > 60 {
		return fmt.Errorf("%w: cycle default_length %d outside [15,60]", ErrInvalid, c.Cycle.DefaultLength)
	}
	if c.Cycle.PeriodDuration <= 0 || c.Cycle.PeriodDuration >= c.Cycle.DefaultLength {
		return fmt.Errorf("%w: cycle period_duration %d invalid", ErrInvalid, c.Cycle.PeriodDuration)
	}

	if !contains(ValidBackends, c.Store.Backend) {
		return fmt.Errorf("%w: store backend %q (valid: %v)", ErrInvalid, c.Store.Backend, ValidBackends)
	}
	if c.Store.Backend == "sqlite" && !contains(ValidDrivers, c.Store.Driver) {
		return fmt.Errorf("%w: store driver %q (valid: %v)", ErrInvalid, c.Store.Driver, ValidDrivers)
	}

	if !c.UX.Guidance.Level.Valid() {
		return fmt.Errorf("%w: guidance level %q", ErrInvalid, c.UX.Guidance.Level)
	}

	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
