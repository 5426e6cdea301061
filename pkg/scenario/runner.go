// Package scenario runs named browser scenarios against a shared fixture.
//
// Scenarios of a suite run one after another, never concurrently: every
// scenario starts from the state the BeforeEach hook restores, and the hook
// and the scenario body share one backing store. In a serial suite the first
// failure skips the scenarios after it.
package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/quizpractice/pkge2e/internal/metrics"
	"github.com/quizpractice/pkge2e/internal/tracing"
	"github.com/quizpractice/pkge2e/pkg/browser"
)

// ErrParallelNotSupported is returned for a suite whose BeforeEach hook mutates
// shared state but which is not marked Serial
var ErrParallelNotSupported = errors.New("scenario: suite with a BeforeEach hook must be serial")

// Result statuses
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// DefaultTimeout bounds one scenario including its hook
const DefaultTimeout = 60 * time.Second

// Hook runs before every scenario of a suite
type Hook func(ctx context.Context) error

// Scenario is one named check
type Scenario struct {
	ID      string
	Name    string
	Timeout time.Duration
	Run     func(ctx context.Context, env *Env) error
}

// Suite groups scenarios sharing a setup hook
type Suite struct {
	Name       string
	Serial     bool
	BeforeEach Hook
	Scenarios  []Scenario
}

// Find returns the scenario with the given ID
func (s Suite) Find(id string) (Scenario, bool) {
	for _, sc := range s.Scenarios {
		if sc.ID == id {
			return sc, true
		}
	}
	return Scenario{}, false
}

// Filter returns a copy of the suite holding only the given scenario IDs, in suite order
func (s Suite) Filter(ids ...string) (Suite, error) {
	if len(ids) == 0 {
		return s, nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.Find(id); !ok {
			return Suite{}, fmt.Errorf("unknown scenario %q", id)
		}
		want[id] = true
	}

	out := s
	out.Scenarios = nil
	for _, sc := range s.Scenarios {
		if want[sc.ID] {
			out.Scenarios = append(out.Scenarios, sc)
		}
	}
	return out, nil
}

// PageOpener opens a fresh page per scenario. browser.Browser implements it.
type PageOpener interface {
	NewPage(ctx context.Context) (browser.Page, error)
}

// Result is the outcome of one scenario
type Result struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Status     string        `json:"status"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
	Screenshot string        `json:"screenshot,omitempty"`

	err error
}

// Err returns the failure cause
func (r Result) Err() error {
	return r.err
}

// Report is the outcome of one suite run
type Report struct {
	RunID     string        `json:"runId"`
	Suite     string        `json:"suite"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Results   []Result      `json:"results"`
}

// Counts returns the number of passed, failed and skipped scenarios
func (r *Report) Counts() (passed, failed, skipped int) {
	for _, res := range r.Results {
		switch res.Status {
		case StatusPassed:
			passed++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	return passed, failed, skipped
}

// Failed reports whether any scenario failed
func (r *Report) Failed() bool {
	_, failed, _ := r.Counts()
	return failed > 0
}

// WriteJSON writes the report as indented JSON
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Option configures a Runner
type Option func(*Runner)

// WithTimeout sets the per-scenario timeout for scenarios that do not set one
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithExpectTimeout sets how long expectations keep polling
func WithExpectTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.expectTimeout = d
	}
}

// WithPollInterval sets how often expectations re-check the page
func WithPollInterval(d time.Duration) Option {
	return func(r *Runner) {
		r.interval = d
	}
}

// WithArtifactsDir enables failure screenshots under dir
func WithArtifactsDir(dir string) Option {
	return func(r *Runner) {
		r.artifactsDir = dir
	}
}

// WithMetrics records scenario outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// Runner executes suites
type Runner struct {
	pages         PageOpener
	fixtures      Fixtures
	logger        zerolog.Logger
	metrics       *metrics.Metrics
	timeout       time.Duration
	expectTimeout time.Duration
	interval      time.Duration
	artifactsDir  string
}

// NewRunner creates a runner opening pages from pages
func NewRunner(pages PageOpener, fixtures Fixtures, logger zerolog.Logger, opts ...Option) *Runner {
	r := &Runner{
		pages:    pages,
		fixtures: fixtures,
		logger:   logger.With().Str("component", "scenario").Logger(),
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes every scenario of the suite in order. Scenario failures are
// reported in the Report; the error is reserved for suites that cannot run.
func (r *Runner) Run(ctx context.Context, suite Suite) (*Report, error) {
	if suite.BeforeEach != nil && !suite.Serial {
		return nil, ErrParallelNotSupported
	}

	report := &Report{
		RunID:     tracing.NewRunID(),
		Suite:     suite.Name,
		StartedAt: time.Now(),
		Results:   make([]Result, 0, len(suite.Scenarios)),
	}
	ctx = tracing.WithRunID(ctx, report.RunID)
	logger := tracing.Logger(ctx, r.logger).With().Str("suite", suite.Name).Logger()
	logger.Info().Int("scenarios", len(suite.Scenarios)).Msg("Suite started")

	stop := false
	for _, sc := range suite.Scenarios {
		if stop || ctx.Err() != nil {
			report.Results = append(report.Results, Result{ID: sc.ID, Name: sc.Name, Status: StatusSkipped})
			r.metrics.RecordScenario(sc.ID, metrics.StatusSkipped, 0)
			continue
		}

		res := r.runScenario(ctx, suite, sc, logger)
		report.Results = append(report.Results, res)

		if res.Status == StatusFailed && suite.Serial {
			stop = true
		}
	}

	report.Duration = time.Since(report.StartedAt)
	passed, failed, skipped := report.Counts()
	logger.Info().
		Int("passed", passed).
		Int("failed", failed).
		Int("skipped", skipped).
		Dur("duration", report.Duration).
		Msg("Suite finished")

	return report, nil
}

func (r *Runner) runScenario(ctx context.Context, suite Suite, sc Scenario, logger zerolog.Logger) Result {
	ctx = tracing.WithScenario(ctx, sc.ID)
	logger = logger.With().Str("scenario", sc.ID).Logger()

	timeout := sc.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	res := Result{ID: sc.ID, Name: sc.Name}
	err := r.execute(ctx, suite, sc, logger, &res)
	res.Duration = time.Since(start)

	if err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		res.err = err
		r.metrics.RecordScenario(sc.ID, metrics.StatusFailure, res.Duration)
		logger.Error().Err(err).Dur("duration", res.Duration).Msg("Scenario failed")
		return res
	}

	res.Status = StatusPassed
	r.metrics.RecordScenario(sc.ID, metrics.StatusSuccess, res.Duration)
	logger.Info().Dur("duration", res.Duration).Msg("Scenario passed")
	return res
}

func (r *Runner) execute(ctx context.Context, suite Suite, sc Scenario, logger zerolog.Logger, res *Result) error {
	if sc.Run == nil {
		return fmt.Errorf("scenario %s has no body", sc.ID)
	}

	if suite.BeforeEach != nil {
		if err := suite.BeforeEach(ctx); err != nil {
			return fmt.Errorf("before each: %w", err)
		}
	}

	page, err := r.pages.NewPage(ctx)
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close page")
		}
	}()

	env := &Env{
		Page:          page,
		Fixtures:      r.fixtures,
		Logger:        logger,
		metrics:       r.metrics,
		interval:      r.interval,
		expectTimeout: r.expectTimeout,
	}

	if err := sc.Run(ctx, env); err != nil {
		res.Screenshot = r.captureFailure(page, sc, logger)
		return err
	}
	return nil
}

// captureFailure saves a screenshot of the failed page and returns its path
func (r *Runner) captureFailure(page browser.Page, sc Scenario, logger zerolog.Logger) string {
	if r.artifactsDir == "" {
		return ""
	}

	// the scenario context may already be expired
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	data, err := page.Screenshot(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to capture screenshot")
		return ""
	}

	if err := os.MkdirAll(r.artifactsDir, 0755); err != nil {
		logger.Warn().Err(err).Msg("Failed to create artifacts directory")
		return ""
	}

	id, err := gonanoid.New(10)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to generate artifact name")
		return ""
	}

	path := filepath.Join(r.artifactsDir, fmt.Sprintf("%s-%s.png", sc.ID, id))
	if err := os.WriteFile(path, data, 0644); err != nil {
		logger.Warn().Err(err).Msg("Failed to write screenshot")
		return ""
	}

	logger.Info().Str("path", path).Msg("Failure screenshot saved")
	return path
}
