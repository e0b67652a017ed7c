package repository

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// DBTX is the query surface shared by the pool, a transaction and a savepoint
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories groups every repository bound to one query surface
type Repositories struct {
	Teams        *TeamRepository
	Users        *UserRepository
	FantasyGames *FantasyGameRepository
	Players      *PlayerRepository
	ScoreFacts   *ScoreFactRepository
	RunTotals    *RunTotalRepository
	Scorecards   *ScorecardRepository
}

func newRepositories(q DBTX) *Repositories {
	repos := &Repositories{
		Teams:        &TeamRepository{db: q},
		Users:        &UserRepository{db: q},
		FantasyGames: &FantasyGameRepository{db: q},
		Players:      &PlayerRepository{db: q},
		ScoreFacts:   &ScoreFactRepository{db: q},
		RunTotals:    &RunTotalRepository{db: q},
	}
	repos.Scorecards = &ScorecardRepository{db: q, games: repos.FantasyGames, loc: time.UTC}
	return repos
}

// Database holds the database connection pool and provides access to repositories
type Database struct {
	Pool *pgxpool.Pool

	*Repositories
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the postgres:// connection URL for the config
func (c Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// NewDatabase creates a new database connection pool and initializes repositories
func NewDatabase(ctx context.Context, cfg Config) (*Database, error) {
	db, err := Connect(ctx, cfg.DSN())
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("Successfully connected to database")

	return db, nil
}

// Connect opens a pool against a connection URL
func Connect(ctx context.Context, dsn string) (*Database, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{
		Pool:         pool,
		Repositories: newRepositories(pool),
	}, nil
}

// Close closes the database connection pool
func (db *Database) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		log.Info().Msg("Database connection pool closed")
	}
}

// Health checks if the database is healthy
func (db *Database) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	return nil
}

// SetLocation sets the timezone scorecards use for the pool window. It
// must match the one the pipeline reconciles in.
func (db *Database) SetLocation(loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	db.Scorecards.loc = loc
}

// PoolStats is a snapshot of the connection pool
type PoolStats struct {
	Total    int32 `json:"total_conns"`
	Acquired int32 `json:"acquired_conns"`
	Idle     int32 `json:"idle_conns"`
	Max      int32 `json:"max_conns"`
}

// PoolStats returns database pool statistics
func (db *Database) PoolStats() PoolStats {
	stat := db.Pool.Stat()
	return PoolStats{
		Total:    stat.TotalConns(),
		Acquired: stat.AcquiredConns(),
		Idle:     stat.IdleConns(),
		Max:      stat.MaxConns(),
	}
}

// Tx is a unit of work. Repositories on a Tx read and write inside it.
type Tx struct {
	tx pgx.Tx

	*Repositories
}

// InTx runs fn in a transaction, committing when fn returns nil.
// Any error or panic rolls the whole unit back.
func (db *Database) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	pgxTx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = pgxTx.Rollback(context.WithoutCancel(ctx))
	}()

	if err := fn(&Tx{tx: pgxTx, Repositories: newRepositories(pgxTx)}); err != nil {
		return err
	}

	if err := pgxTx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Savepoint runs fn inside a savepoint of the current transaction. On error
// only the work done by fn is rolled back; the outer transaction stays usable.
func (t *Tx) Savepoint(ctx context.Context, fn func(sp *Tx) error) error {
	nested, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}
	defer func() {
		_ = nested.Rollback(context.WithoutCancel(ctx))
	}()

	if err := fn(&Tx{tx: nested, Repositories: newRepositories(nested)}); err != nil {
		return err
	}

	if err := nested.Commit(ctx); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}

	return nil
}
