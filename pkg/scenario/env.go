package scenario

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/quizpractice/pkge2e/internal/metrics"
	"github.com/quizpractice/pkge2e/pkg/browser"
	"github.com/quizpractice/pkge2e/pkg/tablescrape"
)

// Expectation defaults
const (
	DefaultPollInterval  = 250 * time.Millisecond
	DefaultExpectTimeout = 5 * time.Second
)

// Env is what a scenario body works with
type Env struct {
	Page     browser.Page
	Fixtures Fixtures
	Logger   zerolog.Logger

	metrics       *metrics.Metrics
	interval      time.Duration
	expectTimeout time.Duration
}

// eventually bounds Eventually by the expectation timeout
func (e *Env) eventually(ctx context.Context, check func(ctx context.Context) error) error {
	timeout := e.expectTimeout
	if timeout <= 0 {
		timeout = DefaultExpectTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return Eventually(ctx, e.interval, check)
}

// Eventually calls check until it returns nil or ctx ends, returning the last
// check error in the latter case.
func Eventually(ctx context.Context, interval time.Duration, check func(ctx context.Context) error) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last error
	for {
		err := check(ctx)
		if err == nil {
			return nil
		}
		// a check cut short by the deadline is less useful than the one before it
		if ctx.Err() != nil {
			if last == nil {
				last = err
			}
			return errors.Join(last, ctx.Err())
		}
		last = err

		select {
		case <-ctx.Done():
			return errors.Join(last, ctx.Err())
		case <-ticker.C:
		}
	}
}

// ExtractTable reads the wanted columns of the table matching selector
func (e *Env) ExtractTable(ctx context.Context, selector string, headers []string) (tablescrape.Rows, error) {
	rows, err := tablescrape.Extract(ctx, e.Page.Table(selector), headers)
	e.metrics.RecordExtraction(len(rows), err)
	return rows, err
}

// ExpectTable waits until the table matching selector shows the named fixture
func (e *Env) ExpectTable(ctx context.Context, selector string, headers []string, fixture string) error {
	expected, err := e.Fixtures.Get(fixture)
	if err != nil {
		return err
	}

	return e.eventually(ctx, func(ctx context.Context) error {
		actual, err := e.ExtractTable(ctx, selector, headers)
		if err != nil {
			return err
		}
		return CompareRows(expected, actual)
	})
}

// ExpectValue waits until the input behind loc holds want
func (e *Env) ExpectValue(ctx context.Context, subject string, loc browser.Locator, want string) error {
	return e.eventually(ctx, func(ctx context.Context) error {
		got, err := loc.InputValue(ctx)
		if err != nil {
			return &ExpectationError{Subject: subject, Expected: want, Err: err}
		}
		if got != want {
			return &ExpectationError{Subject: subject, Expected: want, Actual: got}
		}
		return nil
	})
}

// ExpectText waits until the text of loc equals want, whitespace normalized
func (e *Env) ExpectText(ctx context.Context, subject string, loc browser.Locator, want string) error {
	want = browser.NormalizeSpace(want)
	return e.eventually(ctx, func(ctx context.Context) error {
		got, err := loc.TextContent(ctx)
		if err != nil {
			return &ExpectationError{Subject: subject, Expected: want, Err: err}
		}
		if got = browser.NormalizeSpace(got); got != want {
			return &ExpectationError{Subject: subject, Expected: want, Actual: got}
		}
		return nil
	})
}

// ExpectTitle waits until the page title equals want
func (e *Env) ExpectTitle(ctx context.Context, want string) error {
	return e.eventually(ctx, func(ctx context.Context) error {
		got, err := e.Page.Title(ctx)
		if err != nil {
			return &ExpectationError{Subject: "page title", Expected: want, Err: err}
		}
		if got != want {
			return &ExpectationError{Subject: "page title", Expected: want, Actual: got}
		}
		return nil
	})
}
