package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/quizpractice/pkge2e/internal/config"
	"github.com/quizpractice/pkge2e/internal/hooks"
	"github.com/quizpractice/pkge2e/internal/logger"
	"github.com/quizpractice/pkge2e/internal/metrics"
	"github.com/quizpractice/pkge2e/pkg/dbsession"
	"github.com/quizpractice/pkge2e/pkg/fixture"
	"github.com/quizpractice/pkge2e/pkg/scenario"
)

// env is the per-command runtime built from the loaded configuration
type env struct {
	cfg     *config.Config
	log     *logger.Logger
	logger  zerolog.Logger
	metrics *metrics.Metrics
	hooks   *hooks.Manager
	factory *dbsession.Factory
	server  *http.Server
}

// newEnv loads and validates the configuration, then builds the logger
func newEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
		Output:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	hookManager, err := hooks.NewManager(cfg.Hooks, log.Zerolog())
	if err != nil {
		log.Close()
		return nil, err
	}

	return &env{
		cfg:     cfg,
		log:     log,
		logger:  log.Zerolog(),
		metrics: metrics.NewMetrics(),
		hooks:   hookManager,
	}, nil
}

// sessions returns the memoizing session factory, created on first use
func (e *env) sessions() *dbsession.Factory {
	if e.factory == nil {
		e.factory = dbsession.NewFactory(e.cfg.Database, e.logger, dbsession.WithMetrics(e.metrics))
	}
	return e.factory
}

func (e *env) reseeder() *fixture.Reseeder {
	return fixture.NewReseeder(e.sessions(), e.logger, fixture.WithMetrics(e.metrics))
}

// notify runs the configured hooks for a finished run. Hook failures are
// logged and never change the run outcome.
func (e *env) notify(ctx context.Context, report *scenario.Report, reportFile string) {
	if err := e.hooks.ReportRun(ctx, report, reportFile); err != nil {
		e.logger.Warn().Err(err).Str("run", report.RunID).Msg("Run hooks failed")
	}
}

// serveMetrics exposes /metrics when enabled in the configuration
func (e *env) serveMetrics() {
	if !e.cfg.Metrics.Enabled {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", e.metrics.Handler())
	e.server = &http.Server{
		Addr:              e.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		e.logger.Info().Str("addr", e.cfg.Metrics.Addr).Msg("Serving metrics")
		if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
}

// Close releases the session, the metrics server and the log file
func (e *env) Close() {
	if e.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.server.Shutdown(ctx); err != nil {
			e.logger.Warn().Err(err).Msg("Failed to stop metrics server")
		}
	}
	if e.factory != nil {
		if err := e.factory.Close(); err != nil {
			e.logger.Warn().Err(err).Msg("Failed to close database session")
		}
	}
	e.log.Close()
}
