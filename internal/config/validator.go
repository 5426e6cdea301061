package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/quizpractice/pkge2e/internal/hooks"
	"github.com/quizpractice/pkge2e/pkg/browser"
	"github.com/quizpractice/pkge2e/pkg/dbsession"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateDriver validates the database driver name
func (v *Validator) ValidateDriver(driver string) error {
	switch driver {
	case dbsession.DriverSQLServer, dbsession.DriverSQLite:
		return nil
	}
	return fmt.Errorf("invalid database driver: %s (must be one of: %s, %s)", driver, dbsession.DriverSQLServer, dbsession.DriverSQLite)
}

// ValidateDatabase validates the connection parameters for the configured driver
func (v *Validator) ValidateDatabase(cfg dbsession.Config) []error {
	var errs []error
	if err := v.ValidateDriver(cfg.Driver); err != nil {
		return append(errs, err)
	}

	if cfg.Driver == dbsession.DriverSQLite {
		if cfg.Path == "" {
			errs = append(errs, fmt.Errorf("database.path is required for driver %s", cfg.Driver))
		}
	} else {
		if cfg.Host == "" {
			errs = append(errs, fmt.Errorf("database.host is required for driver %s", cfg.Driver))
		}
		if err := v.ValidatePort(cfg.Port); err != nil {
			errs = append(errs, fmt.Errorf("database.port: %w", err))
		}
		if cfg.Database == "" {
			errs = append(errs, fmt.Errorf("database.database is required for driver %s", cfg.Driver))
		}
	}

	if cfg.IdleTimeout < 0 {
		errs = append(errs, fmt.Errorf("database.idle_timeout must be >= 0"))
	}
	return errs
}

// ValidatePort validates a TCP port. Zero selects the driver default.
func (v *Validator) ValidatePort(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("port out of range: %d", port)
	}
	return nil
}

// ValidateEngine validates the browser engine name
func (v *Validator) ValidateEngine(engine string) error {
	switch engine {
	case browser.EngineRod, browser.EnginePlaywright:
		return nil
	}
	return fmt.Errorf("invalid browser engine: %s (must be one of: %s, %s)", engine, browser.EngineRod, browser.EnginePlaywright)
}

// ValidateBaseURL validates an absolute http(s) URL
func (v *Validator) ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid base URL %q: host is required", raw)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateListenAddr validates a host:port listen address
func (v *Validator) ValidateListenAddr(addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	return nil
}

// ValidateCronExpr validates a 5-field cron expression
func (v *Validator) ValidateCronExpr(expr string) error {
	if expr == "" {
		return fmt.Errorf("cron expression is required")
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// ValidateTimezone validates an IANA timezone name. Empty means local time.
func (v *Validator) ValidateTimezone(tz string) error {
	if tz == "" {
		return nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}
	return nil
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	errors = append(errors, v.ValidateDatabase(cfg.Database)...)

	if err := v.ValidateEngine(cfg.Browser.Engine); err != nil {
		errors = append(errors, err)
	} else if err := cfg.Browser.Validate(); err != nil {
		errors = append(errors, err)
	}

	if err := v.ValidateBaseURL(cfg.Target.BaseURL); err != nil {
		errors = append(errors, err)
	}
	if err := cfg.Target.Validate(); err != nil {
		errors = append(errors, fmt.Errorf("target: %w", err))
	}

	if cfg.Runner.Timeout < 0 {
		errors = append(errors, fmt.Errorf("runner.timeout must be >= 0"))
	}
	if cfg.Runner.ExpectTimeout < 0 {
		errors = append(errors, fmt.Errorf("runner.expect_timeout must be >= 0"))
	}
	if cfg.Runner.PollInterval < 0 {
		errors = append(errors, fmt.Errorf("runner.poll_interval must be >= 0"))
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}
	if cfg.Logging.MaxSize < 0 {
		errors = append(errors, fmt.Errorf("logging.max_size must be >= 0"))
	}
	if cfg.Logging.MaxAge < 0 {
		errors = append(errors, fmt.Errorf("logging.max_age must be >= 0"))
	}

	if cfg.Metrics.Enabled {
		if err := v.ValidateListenAddr(cfg.Metrics.Addr); err != nil {
			errors = append(errors, fmt.Errorf("metrics.addr: %w", err))
		}
	}

	if cfg.Schedule.Expr != "" {
		if err := v.ValidateCronExpr(cfg.Schedule.Expr); err != nil {
			errors = append(errors, fmt.Errorf("schedule.expr: %w", err))
		}
	}
	if err := v.ValidateTimezone(cfg.Schedule.TZ); err != nil {
		errors = append(errors, fmt.Errorf("schedule.tz: %w", err))
	}

	if err := hooks.Validate(cfg.Hooks); err != nil {
		errors = append(errors, fmt.Errorf("hooks: %w", err))
	}

	return errors
}
