// Package pgstore is a PostgreSQL GraphStore.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dd0wney/cluso-bim/pkg/logging"
	"github.com/dd0wney/cluso-bim/pkg/storage"
)

// Postgres error codes the store maps to storage sentinels
const (
	codeForeignKeyViolation = "23503"
)

// Store persists the building graph in two tables: bim_vertices and
// bim_edges. Store order is the seq column.
type Store struct {
	pool   *pgxpool.Pool
	logger logging.Logger
	host   string
}

// Config configures the connection pool
type Config struct {
	DatabaseURL     string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	Logger          logging.Logger
}

// New connects to PostgreSQL, verifies the connection and creates the schema
func New(ctx context.Context, cfg Config) (*Store, error) {
	config, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pooling configuration
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute
	if cfg.MaxConns > 0 {
		config.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		config.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		config.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, storage.UnavailableError("connect", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, storage.UnavailableError("connect", err)
	}

	s := &Store{
		pool:   pool,
		logger: logging.OrDefault(cfg.Logger).With(logging.Component("pgstore")),
		host:   config.ConnConfig.Host,
	}

	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	s.logger.Info("connected to postgres", logging.String("host", s.host), logging.String("database", config.ConnConfig.Database))
	return s, nil
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return storage.UnavailableError("ping", err)
	}
	return nil
}

// Describe names the backend
func (s *Store) Describe() string {
	return "postgres (" + s.host + ")"
}

// Close closes the database connection pool
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// wrap converts a driver error into the storage error taxonomy. Query
// errors reported by the server are plain failures; anything else means the
// server could not be reached.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return storage.NewError(op).Store().Cause(err).Err()
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return storage.NewError(op).Store().Context(pgErr.Code).Cause(err).Err()
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.NewError(op).Store().Cause(err).Err()
	}
	return storage.UnavailableError(op, err)
}

var _ storage.GraphStore = (*Store)(nil)
