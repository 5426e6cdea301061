// Package tracing carries run and scenario identifiers through a context so
// that every component logging during a scenario can be correlated with it.
package tracing

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	runIDKey    contextKey = "run_id"
	scenarioKey contextKey = "scenario"
)

// TraceContext holds the identifiers found in a context
type TraceContext struct {
	RunID    string
	Scenario string
}

// NewRunID generates a new run ID
func NewRunID() string {
	return uuid.NewString()
}

// WithRunID adds a run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithScenario adds the ID of the executing scenario to the context
func WithScenario(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, scenarioKey, id)
}

// RunID retrieves the run ID from context
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// Scenario retrieves the scenario ID from context
func Scenario(ctx context.Context) string {
	id, _ := ctx.Value(scenarioKey).(string)
	return id
}

// FromContext extracts the full trace context
func FromContext(ctx context.Context) TraceContext {
	return TraceContext{
		RunID:    RunID(ctx),
		Scenario: Scenario(ctx),
	}
}
