package scenario

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/quizpractice/pkge2e/pkg/tablescrape"
)

// MismatchError reports extracted rows that differ from the expected fixture
type MismatchError struct {
	Expected tablescrape.Rows
	Actual   tablescrape.Rows
	Diff     string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("table mismatch: expected %d rows, got %d\n%s", len(e.Expected), len(e.Actual), e.Diff)
}

// CompareRows returns nil when both snapshots hold the same cells in the same
// order, and a *MismatchError carrying a unified diff otherwise.
func CompareRows(expected, actual tablescrape.Rows) error {
	if rowsEqual(expected, actual) {
		return nil
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected.String()),
		B:        difflib.SplitLines(actual.String()),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
	})
	if err != nil {
		diff = fmt.Sprintf("expected:\n%s\nactual:\n%s", expected, actual)
	}
	if diff == "" {
		// cells differ only in ways the line rendering hides
		diff = fmt.Sprintf("expected: %q\nactual:   %q\n", [][]string(expected), [][]string(actual))
	}

	return &MismatchError{Expected: expected, Actual: actual, Diff: diff}
}

func rowsEqual(a, b tablescrape.Rows) bool {
	return slices.EqualFunc(a, b, func(x, y []string) bool {
		return slices.Equal(x, y)
	})
}

// ExpectationError reports a single value that did not reach its expected state
type ExpectationError struct {
	Subject  string
	Expected string
	Actual   string
	Err      error
}

func (e *ExpectationError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "expectation failed: %s\n", e.Subject)
	fmt.Fprintf(&buf, "  Expected: %q\n", e.Expected)
	if e.Err != nil {
		fmt.Fprintf(&buf, "  Error: %v", e.Err)
	} else {
		fmt.Fprintf(&buf, "  Actual: %q", e.Actual)
	}
	return buf.String()
}

func (e *ExpectationError) Unwrap() error {
	return e.Err
}
