package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quizpractice/pkge2e/internal/hooks"
	"github.com/quizpractice/pkge2e/pkg/browser"
	"github.com/quizpractice/pkge2e/pkg/dbsession"
	"github.com/quizpractice/pkge2e/pkg/pricepackage"
	"github.com/quizpractice/pkge2e/pkg/scenario"
)

const redacted = "[REDACTED]"

// Config represents the main pkge2e configuration
type Config struct {
	// Database holds the connection used to reseed packages
	Database dbsession.Config `json:"database" mapstructure:"database"`

	// Browser
	Browser browser.Config `json:"browser" mapstructure:"browser"`

	// Target is the application instance under test
	Target pricepackage.Target `json:"target" mapstructure:"target"`

	// Runner
	Runner RunnerConfig `json:"runner" mapstructure:"runner"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Metrics
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Schedule
	Schedule ScheduleConfig `json:"schedule" mapstructure:"schedule"`

	// Hooks run shell commands when a suite run finishes
	Hooks []hooks.Hook `json:"hooks" mapstructure:"hooks"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// RunnerConfig holds scenario execution settings
type RunnerConfig struct {
	Timeout       time.Duration `json:"timeout" mapstructure:"timeout"`               // per scenario
	ExpectTimeout time.Duration `json:"expect_timeout" mapstructure:"expect_timeout"` // per expectation
	PollInterval  time.Duration `json:"poll_interval" mapstructure:"poll_interval"`
	ArtifactsDir  string        `json:"artifacts_dir" mapstructure:"artifacts_dir"`
	ReportFile    string        `json:"report_file" mapstructure:"report_file"`
	// FixturesFile replaces the bundled expected tables when set
	FixturesFile string `json:"fixtures_file" mapstructure:"fixtures_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// ScheduleConfig holds the recurring run settings
type ScheduleConfig struct {
	Expr string `json:"expr" mapstructure:"expr"` // 5-field cron expression
	TZ   string `json:"tz" mapstructure:"tz"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Database: dbsession.DefaultConfig(),
		Browser:  browser.DefaultConfig(),
		Target:   pricepackage.DefaultTarget(),
		Runner: RunnerConfig{
			Timeout:       scenario.DefaultTimeout,
			ExpectTimeout: scenario.DefaultExpectTimeout,
			PollInterval:  scenario.DefaultPollInterval,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Pretty:    true,
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9464",
		},
		Schedule: ScheduleConfig{
			Expr: "0 2 * * *",
		},
		Hooks: []hooks.Hook{},
	}
}

// String returns a JSON representation of the config with secrets masked
func (c *Config) String() string {
	masked := *c
	if masked.Database.Password != "" {
		masked.Database.Password = redacted
	}
	if masked.Target.AdminPassword != "" {
		masked.Target.AdminPassword = redacted
	}
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if errs := NewValidator().ValidateConfig(c); len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
