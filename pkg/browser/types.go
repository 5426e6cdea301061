package browser

import (
	"fmt"
	"time"
)

// Engines
const (
	EngineRod        = "rod"
	EnginePlaywright = "playwright"
)

// Config represents the browser configuration used by a test run
type Config struct {
	Engine     string        `json:"engine" mapstructure:"engine"`
	Headless   bool          `json:"headless" mapstructure:"headless"`
	NoSandbox  bool          `json:"no_sandbox" mapstructure:"no_sandbox"`
	ChromePath string        `json:"chrome_path" mapstructure:"chrome_path"`
	SlowMo     time.Duration `json:"slow_mo" mapstructure:"slow_mo"`
	Timeout    time.Duration `json:"timeout" mapstructure:"timeout"` // per action
}

// DefaultConfig returns a headless rod configuration
func DefaultConfig() Config {
	return Config{
		Engine:   EngineRod,
		Headless: true,
		Timeout:  30 * time.Second,
	}
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.Timeout
}

// Validate checks the engine name and durations
func (c Config) Validate() error {
	switch c.Engine {
	case "", EngineRod, EnginePlaywright:
	default:
		return &BrowserError{
			Code:    ErrCodeConfiguration,
			Message: fmt.Sprintf("unknown browser engine %q", c.Engine),
			Details: map[string]interface{}{"engine": c.Engine},
		}
	}
	if c.Timeout < 0 || c.SlowMo < 0 {
		return &BrowserError{
			Code:    ErrCodeValidation,
			Message: "timeout and slowMo must not be negative",
		}
	}
	return nil
}

// Role is an ARIA role used to locate elements
type Role string

// Roles used by the price-package scenarios
const (
	RoleButton  Role = "button"
	RoleLink    Role = "link"
	RoleRow     Role = "row"
	RoleHeading Role = "heading"
	RoleTextbox Role = "textbox"
)

// BrowserError represents a browser-related error
type BrowserError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *BrowserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BrowserError) Unwrap() error {
	return e.Err
}

// Error codes
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNavigation      = "NAVIGATION_ERROR"
	ErrCodeTimeout         = "TIMEOUT_ERROR"
	ErrCodeElementNotFound = "ELEMENT_NOT_FOUND"
	ErrCodeInteraction     = "INTERACTION_ERROR"
	ErrCodeBrowserCrash    = "BROWSER_CRASH"
	ErrCodeConfiguration   = "CONFIGURATION_ERROR"
)
