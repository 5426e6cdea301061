package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunID(t *testing.T) {
	id := NewRunID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, NewRunID())
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, TraceContext{}, FromContext(ctx))

	ctx = WithRunID(ctx, "run-1")
	ctx = WithScenario(ctx, "TC3")

	assert.Equal(t, "run-1", RunID(ctx))
	assert.Equal(t, "TC3", Scenario(ctx))
	assert.Equal(t, TraceContext{RunID: "run-1", Scenario: "TC3"}, FromContext(ctx))
}

func TestLogger(t *testing.T) {
	t.Run("adds identifiers", func(t *testing.T) {
		buf := &bytes.Buffer{}
		base := zerolog.New(buf)

		ctx := WithScenario(WithRunID(context.Background(), "run-1"), "TC3")
		logger := Logger(ctx, base)
		logger.Info().Msg("Reseeded")

		assert.Contains(t, buf.String(), `"run":"run-1"`)
		assert.Contains(t, buf.String(), `"scenario":"TC3"`)
	})

	t.Run("empty context keeps the logger", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := Logger(context.Background(), zerolog.New(buf))
		logger.Info().Msg("plain")

		assert.NotContains(t, buf.String(), `"run"`)
	})
}
