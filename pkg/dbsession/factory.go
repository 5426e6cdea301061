// Package dbsession owns the single reusable connection to the backing store
// of the application under test.
//
// A Factory memoizes at most one Session. Acquire returns the memoized Session
// while it is open; Session.Close releases the pool and clears the memo so the
// next Acquire establishes a fresh Session.
package dbsession

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/rs/zerolog"

	"github.com/quizpractice/pkge2e/internal/metrics"
)

var sqlOpen = sql.Open

// Option configures a Factory
type Option func(*Factory)

// WithMetrics records session lifecycle metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Factory) {
		f.metrics = m
	}
}

// WithDriverName opens connections through the database/sql driver registered
// under name, such as an instrumented wrapper. The DSN is still built for
// Config.Driver.
func WithDriverName(name string) Option {
	return func(f *Factory) {
		f.driverName = name
	}
}

// Factory lazily establishes and memoizes a single Session
type Factory struct {
	cfg     Config
	logger  zerolog.Logger
	metrics *metrics.Metrics
	// driverName overrides cfg.Driver for sql.Open
	driverName string

	mu         sync.Mutex
	current    *Session
	generation uint64
}

// NewFactory creates a new session factory
func NewFactory(cfg Config, logger zerolog.Logger, opts ...Option) *Factory {
	f := &Factory{
		cfg:        cfg,
		logger:     logger.With().Str("component", "dbsession").Logger(),
		driverName: cfg.Driver,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Acquire returns the memoized session, establishing a new one if there is none
// or the memoized one has been closed.
func (f *Factory) Acquire(ctx context.Context) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.current != nil && !f.current.closed.Load() {
		return f.current, nil
	}

	dsn, err := f.cfg.DSN()
	if err != nil {
		f.metrics.RecordSessionError()
		return nil, &ConnectionError{Op: "configure", Driver: f.cfg.Driver, Err: err}
	}

	db, err := sqlOpen(f.driverName, dsn)
	if err != nil {
		f.metrics.RecordSessionError()
		return nil, &ConnectionError{Op: "open", Driver: f.cfg.Driver, Err: err}
	}

	db.SetMaxOpenConns(MaxOpenConns)
	db.SetMaxIdleConns(MaxOpenConns)
	db.SetConnMaxIdleTime(f.cfg.idleTimeout())

	// sql.Open is lazy; ping so an unreachable store fails here and not mid-reseed
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		f.metrics.RecordSessionError()
		f.logger.Error().Err(err).Str("driver", f.cfg.Driver).Msg("Failed to establish session")
		return nil, &ConnectionError{Op: "ping", Driver: f.cfg.Driver, Err: err}
	}

	f.generation++
	s := &Session{
		db:      db,
		factory: f,
		id:      f.generation,
	}
	f.current = s

	f.metrics.RecordSessionOpened()
	f.logger.Debug().Uint64("session", s.id).Str("driver", f.cfg.Driver).Msg("Session established")

	return s, nil
}

// Current returns the memoized session without establishing one
func (f *Factory) Current() *Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Close closes the memoized session, if any
func (f *Factory) Close() error {
	s := f.Current()
	if s == nil {
		return nil
	}
	return s.Close()
}

// release clears the memo only when it still refers to s, so closing a stale
// session never drops a newer one.
func (f *Factory) release(s *Session) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.current == s {
		f.current = nil
	}
}

// Session is an exclusive handle to one pooled connection
type Session struct {
	db      *sql.DB
	factory *Factory
	id      uint64

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// ID returns the session generation number, unique per factory
func (s *Session) ID() uint64 {
	return s.id
}

// DB returns the underlying pool
func (s *Session) DB() *sql.DB {
	return s.db
}

// Closed reports whether Close has been called
func (s *Session) Closed() bool {
	return s.closed.Load()
}

// BeginTx starts a transaction on the session's connection
func (s *Session) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	return s.db.BeginTx(ctx, opts)
}

// ExecContext executes a statement outside of a transaction
func (s *Session) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	return s.db.ExecContext(ctx, query, args...)
}

// QueryContext runs a query returning rows
func (s *Session) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	return s.db.QueryContext(ctx, query, args...)
}

// QueryRowContext runs a query returning at most one row. On a closed
// session the row reports the pool's closed error from Scan.
func (s *Session) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, query, args...)
}

// Close releases the pool and clears the factory's memo. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.db.Close()
		s.factory.release(s)
		s.factory.metrics.RecordSessionClosed()
		s.factory.logger.Debug().Uint64("session", s.id).Msg("Session closed")
	})
	return s.closeErr
}
