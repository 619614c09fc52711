// Package config loads the pipeline configuration: the diocese site map,
// search-term strip rules, browser timings, and data file locations.
// Secrets and deployment overrides stay in environment variables read by
// the commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNoDioceses indicates the configuration lists no diocese sites.
	ErrNoDioceses = errors.New("no dioceses configured")
	// ErrDuplicateDiocese indicates the same diocese name appears twice.
	ErrDuplicateDiocese = errors.New("duplicate diocese")
)

const defaultPageLoadTimeout = 15 * time.Second

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the root of config/config.yaml.
type Config struct {
	Pipeline PipelineConfig  `yaml:"pipeline"`
	Repair   RepairConfig    `yaml:"repair"`
	Browser  BrowserConfig   `yaml:"browser"`
	Dioceses []DioceseConfig `yaml:"dioceses" validate:"required,min=1,dive"`
}

// PipelineConfig names the shared data files produced by the collector
// and consumed by the enrichment and publishing stages.
type PipelineConfig struct {
	DataFile    string `yaml:"data_file" validate:"required"`
	MissingFile string `yaml:"missing_file" validate:"required"`
}

// RepairConfig controls the recovery crawler's batch directories and the
// suffixes stripped from parish names before they are typed into a
// diocese search form.
type RepairConfig struct {
	InputDir      string   `yaml:"input_dir" validate:"required"`
	OutputDir     string   `yaml:"output_dir" validate:"required"`
	StripSuffixes []string `yaml:"strip_suffixes"`
}

// BrowserConfig holds the global navigation timing defaults. Individual
// dioceses may override the page-load timeout.
type BrowserConfig struct {
	PageLoadTimeoutSec int `yaml:"page_load_timeout_sec" validate:"min=0"`
}

// DioceseConfig describes one diocese site: the search entry URL and any
// extra terms stripped from parish names on that site only.
type DioceseConfig struct {
	Name           string   `yaml:"name" validate:"required"`
	URL            string   `yaml:"url" validate:"required,url"`
	Strip          []string `yaml:"strip"`
	PageTimeoutSec int      `yaml:"page_timeout_sec" validate:"min=0"`
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if len(c.Dioceses) == 0 {
		return ErrNoDioceses
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	seen := make(map[string]bool, len(c.Dioceses))
	for _, d := range c.Dioceses {
		if seen[d.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateDiocese, d.Name)
		}
		seen[d.Name] = true
	}
	return nil
}

// Diocese returns the configuration for the named diocese.
func (c *Config) Diocese(name string) (DioceseConfig, bool) {
	for _, d := range c.Dioceses {
		if d.Name == name {
			return d, true
		}
	}
	return DioceseConfig{}, false
}

// StripTerms returns the terms removed from a parish name before it is
// used as a search keyword on the named diocese's site: the global
// suffixes plus any diocese-specific extras.
func (c *Config) StripTerms(diocese string) []string {
	terms := make([]string, 0, len(c.Repair.StripSuffixes)+2)
	terms = append(terms, c.Repair.StripSuffixes...)
	if d, ok := c.Diocese(diocese); ok {
		terms = append(terms, d.Strip...)
	}
	return terms
}

// PageLoadTimeout returns the global navigation timeout.
func (b BrowserConfig) PageLoadTimeout() time.Duration {
	if b.PageLoadTimeoutSec <= 0 {
		return defaultPageLoadTimeout
	}
	return time.Duration(b.PageLoadTimeoutSec) * time.Second
}

// PageLoadTimeout returns the diocese's navigation timeout, falling back
// to the supplied global default when no override is set.
func (d DioceseConfig) PageLoadTimeout(fallback time.Duration) time.Duration {
	if d.PageTimeoutSec <= 0 {
		return fallback
	}
	return time.Duration(d.PageTimeoutSec) * time.Second
}
