// Package hooks runs user shell commands when a suite run finishes.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quizpractice/pkge2e/internal/tracing"
	"github.com/quizpractice/pkge2e/pkg/scenario"
)

// Run lifecycle events
const (
	EventRunPassed = "run:passed"
	EventRunFailed = "run:failed"
	// EventRunFinished fires after every run, before the outcome event
	EventRunFinished = "run:finished"
)

// Environment variables exported to hook scripts
const (
	envEvent      = "PKGE2E_HOOK_EVENT"
	envDataPrefix = "PKGE2E_HOOK_DATA_"
)

// DefaultTimeout bounds a hook with no timeout of its own
const DefaultTimeout = time.Minute

// Hook is a shell command bound to an event
type Hook struct {
	ID      string        `json:"id" mapstructure:"id"`
	Event   string        `json:"event" mapstructure:"event"`
	Script  string        `json:"script" mapstructure:"script"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// Manager dispatches events to the hooks registered for them
type Manager struct {
	logger  zerolog.Logger
	byEvent map[string][]Hook
}

// NewManager validates hooks and indexes them by event
func NewManager(hooks []Hook, logger zerolog.Logger) (*Manager, error) {
	m := &Manager{
		logger:  logger.With().Str("component", "hooks").Logger(),
		byEvent: make(map[string][]Hook),
	}

	for i, hook := range hooks {
		event := strings.TrimSpace(hook.Event)
		switch event {
		case EventRunPassed, EventRunFailed, EventRunFinished:
		case "":
			return nil, fmt.Errorf("hook %d: event is required", i)
		default:
			return nil, fmt.Errorf("hook %d: unknown event %q", i, event)
		}
		if strings.TrimSpace(hook.Script) == "" {
			return nil, fmt.Errorf("hook %d: script is required for event %q", i, event)
		}
		if hook.Timeout < 0 {
			return nil, fmt.Errorf("hook %d: timeout must be >= 0", i)
		}
		hook.Event = event
		m.byEvent[event] = append(m.byEvent[event], hook)
	}

	return m, nil
}

// Validate checks hooks without building a manager
func Validate(hooks []Hook) error {
	_, err := NewManager(hooks, zerolog.Nop())
	return err
}

// Len returns the number of registered hooks
func (m *Manager) Len() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, hooks := range m.byEvent {
		n += len(hooks)
	}
	return n
}

// Trigger runs every hook for event in registration order. All hooks run
// even when an earlier one fails.
func (m *Manager) Trigger(ctx context.Context, event string, data map[string]interface{}) error {
	if m == nil {
		return nil
	}
	hooks := m.byEvent[event]
	if len(hooks) == 0 {
		return nil
	}

	var errs []error
	for _, hook := range hooks {
		if err := m.execute(ctx, event, hook, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ReportRun fires run:finished and then run:passed or run:failed for report.
// reportFile is exported to the scripts when set.
func (m *Manager) ReportRun(ctx context.Context, report *scenario.Report, reportFile string) error {
	if m == nil || report == nil {
		return nil
	}

	passed, failed, skipped := report.Counts()
	data := map[string]interface{}{
		"run_id":   report.RunID,
		"suite":    report.Suite,
		"passed":   passed,
		"failed":   failed,
		"skipped":  skipped,
		"duration": report.Duration.Round(time.Millisecond),
	}
	if reportFile != "" {
		data["report"] = reportFile
	}

	ctx = tracing.WithRunID(ctx, report.RunID)
	outcome := EventRunPassed
	if report.Failed() {
		outcome = EventRunFailed
	}
	return errors.Join(
		m.Trigger(ctx, EventRunFinished, data),
		m.Trigger(ctx, outcome, data),
	)
}

func (m *Manager) execute(ctx context.Context, event string, hook Hook, data map[string]interface{}) error {
	id := hook.ID
	if id == "" {
		id = event
	}

	timeout := hook.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", hook.Script)
	cmd.Env = environment(event, data)

	start := time.Now()
	output, err := cmd.CombinedOutput()
	text := strings.TrimSpace(string(output))

	logger := tracing.Logger(ctx, m.logger)
	if err != nil {
		if text != "" {
			err = fmt.Errorf("hook %s failed: %w: %s", id, err, text)
		} else {
			err = fmt.Errorf("hook %s failed: %w", id, err)
		}
		logger.Warn().Err(err).Str("event", event).Msg("Hook failed")
		return err
	}

	evt := logger.Debug().Str("event", event).Str("hook_id", id).Dur("duration", time.Since(start))
	if text != "" {
		evt = evt.Str("output", text)
	}
	evt.Msg("Hook executed")
	return nil
}

func environment(event string, data map[string]interface{}) []string {
	env := append([]string{}, os.Environ()...)
	env = append(env, envEvent+"="+event)

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		env = append(env, envDataPrefix+envKey(key)+"="+fmt.Sprint(data[key]))
	}
	return env
}

// envKey upper-cases key and replaces anything outside [A-Z0-9] with '_'
func envKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "UNKNOWN"
	}
	return strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, strings.ToUpper(key))
}
