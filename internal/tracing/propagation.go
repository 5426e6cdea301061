package tracing

import (
	"context"

	"github.com/rs/zerolog"
)

// Logger adds the identifiers carried by ctx to logger. Fields the logger
// already has are not repeated, so callers may pass a logger built from ctx.
func Logger(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	tc := FromContext(ctx)
	if tc.RunID == "" && tc.Scenario == "" {
		return logger
	}

	lc := logger.With()
	if tc.RunID != "" {
		lc = lc.Str("run", tc.RunID)
	}
	if tc.Scenario != "" {
		lc = lc.Str("scenario", tc.Scenario)
	}
	return lc.Logger()
}
