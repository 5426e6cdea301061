// Package fixture restores the price-package test data to its canonical state.
//
// Reset runs the embedded reseed batch inside a single transaction: either all
// three canonical records are overwritten and the extra records of the
// canonical subject deleted, or nothing changes. The session is closed on
// every exit path.
package fixture

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quizpractice/pkge2e/internal/metrics"
	"github.com/quizpractice/pkge2e/internal/tracing"
	"github.com/quizpractice/pkge2e/pkg/dbsession"
)

//go:embed reseed.sql
var reseedScript string

// Script returns the canonical reseed batch
func Script() string {
	return reseedScript
}

// Reseed stages
const (
	StageBegin    = "begin"
	StageExec     = "exec"
	StageCommit   = "commit"
	StageRollback = "rollback"
	StageClose    = "close"
)

// ReseedError reports the stage at which a reseed failed
type ReseedError struct {
	Stage string
	Err   error
}

func (e *ReseedError) Error() string {
	return fmt.Sprintf("reseed %s: %v", e.Stage, e.Err)
}

func (e *ReseedError) Unwrap() error {
	return e.Err
}

// SessionProvider hands out the shared session. *dbsession.Factory implements it.
type SessionProvider interface {
	Acquire(ctx context.Context) (*dbsession.Session, error)
}

// Option configures a Reseeder
type Option func(*Reseeder)

// WithScript replaces the canonical batch
func WithScript(script string) Option {
	return func(r *Reseeder) {
		r.script = script
	}
}

// WithMetrics records reseed outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reseeder) {
		r.metrics = m
	}
}

// Reseeder resets the backing store before each scenario
type Reseeder struct {
	sessions SessionProvider
	script   string
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// NewReseeder creates a reseeder using the canonical batch
func NewReseeder(sessions SessionProvider, logger zerolog.Logger, opts ...Option) *Reseeder {
	r := &Reseeder{
		sessions: sessions,
		script:   reseedScript,
		logger:   logger.With().Str("component", "fixture").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reset acquires a session, runs the batch in one transaction and closes the
// session. A failed statement rolls back every earlier statement of the batch.
func (r *Reseeder) Reset(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		r.metrics.RecordReseed(err, time.Since(start))
	}()
	logger := tracing.Logger(ctx, r.logger)

	sess, err := r.sessions.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("reseed: %w", err)
	}

	defer func() {
		cerr := sess.Close()
		if cerr == nil {
			return
		}
		if err == nil {
			err = &ReseedError{Stage: StageClose, Err: cerr}
			return
		}
		// the primary error wins; the close failure is only logged
		logger.Warn().Err(cerr).Msg("Failed to close session after failed reseed")
	}()

	tx, err := sess.BeginTx(ctx, nil)
	if err != nil {
		return &ReseedError{Stage: StageBegin, Err: err}
	}

	if _, execErr := tx.ExecContext(ctx, r.script); execErr != nil {
		// a canceled context already rolled the transaction back
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			execErr = errors.Join(execErr, &ReseedError{Stage: StageRollback, Err: rbErr})
		}
		logger.Error().Err(execErr).Msg("Reseed rolled back")
		return &ReseedError{Stage: StageExec, Err: execErr}
	}

	if err := tx.Commit(); err != nil {
		return &ReseedError{Stage: StageCommit, Err: err}
	}

	logger.Debug().Uint64("session", sess.ID()).Dur("duration", time.Since(start)).Msg("Fixtures reseeded")
	return nil
}
