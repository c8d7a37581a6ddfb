package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for insights-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values.
type Config struct {
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version string `yaml:"-"` // Set at load time, not from config

	// Analysis caps and defaults
	Analysis AnalysisConfig `yaml:"analysis"`
}

// AnalysisConfig holds the caps that bound every analysis call.
type AnalysisConfig struct {
	// MaxRows caps how many rows of a single source are analyzed.
	MaxRows int `yaml:"max_rows" env:"ANALYSIS_MAX_ROWS" env-default:"1000"`

	// SampleSize caps how many non-missing values type classification samples.
	SampleSize int `yaml:"sample_size" env:"ANALYSIS_SAMPLE_SIZE" env-default:"100"`

	// MaxMetrics caps how many measures a worksheet analysis returns.
	MaxMetrics int `yaml:"max_metrics" env:"ANALYSIS_MAX_METRICS" env-default:"6"`

	// MaxItems caps breakdown size and dimension value samples.
	MaxItems int `yaml:"max_items" env:"ANALYSIS_MAX_ITEMS" env-default:"7"`

	// TopValueLimit caps the categorical frequency table size.
	TopValueLimit int `yaml:"top_value_limit" env:"ANALYSIS_TOP_VALUE_LIMIT" env-default:"10"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. A missing config.yaml is not an error; env vars and defaults
// apply. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.Analysis.validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis configuration: %w", err)
	}

	return cfg, nil
}

// validate rejects caps that would make every analysis trivially empty.
func (c *AnalysisConfig) validate() error {
	if c.MaxRows <= 0 {
		return fmt.Errorf("max_rows must be positive, got %d", c.MaxRows)
	}
	if c.SampleSize <= 0 {
		return fmt.Errorf("sample_size must be positive, got %d", c.SampleSize)
	}
	if c.MaxMetrics <= 0 {
		return fmt.Errorf("max_metrics must be positive, got %d", c.MaxMetrics)
	}
	if c.MaxItems <= 0 {
		return fmt.Errorf("max_items must be positive, got %d", c.MaxItems)
	}
	if c.TopValueLimit <= 0 {
		return fmt.Errorf("top_value_limit must be positive, got %d", c.TopValueLimit)
	}
	return nil
}

// Default returns the analysis caps used when no explicit config is loaded.
func Default() AnalysisConfig {
	return AnalysisConfig{
		MaxRows:       1000,
		SampleSize:    100,
		MaxMetrics:    6,
		MaxItems:      7,
		TopValueLimit: 10,
	}
}
