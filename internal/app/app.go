// Package app wires configuration into the database, upstream client,
// pipeline, job lock and scheduler shared by every command.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"runpool/ingestion/internal/client"
	"runpool/ingestion/internal/config"
	"runpool/ingestion/internal/lock"
	"runpool/ingestion/internal/repository"
	"runpool/ingestion/internal/scheduler"
	"runpool/ingestion/internal/scoring"
	"runpool/ingestion/internal/server"
)

// App holds the long-lived dependencies of a process
type App struct {
	Config    *config.Config
	DB        *repository.Database
	Redis     *redis.Client
	Client    *client.Client
	Pipeline  *scoring.Pipeline
	Locker    lock.Locker
	Scheduler *scheduler.Scheduler
}

// New connects to Postgres (and Redis for the redis lock backend) and
// builds the pipeline and scheduler on top
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("failed to load scheduler timezone: %w", err)
	}

	if cfg.MigrateOnStart {
		if err := repository.MigrateUp(cfg.DatabaseDSN()); err != nil {
			return nil, err
		}
	}

	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     cfg.DatabasePort,
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		return nil, err
	}

	db.SetLocation(loc)
	a := &App{Config: cfg, DB: db}

	var status scheduler.StatusStore
	if cfg.LockBackend == config.LockBackendRedis {
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		status = scheduler.NewRedisStatus(a.Redis)
		log.Info().Str("addr", cfg.RedisAddr()).Msg("Redis connected")
	}

	var rdb redis.UniversalClient
	if a.Redis != nil {
		rdb = a.Redis
	}
	a.Locker, err = lock.New(cfg, rdb)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Client = client.NewClient(
		cfg.StatsAPIBaseURL,
		cfg.StatsAPISportID,
		cfg.StatsAPITimeout,
		client.WithRateLimit(cfg.APIRateLimit, cfg.APIBurstLimit),
		client.WithRetry(cfg.StatsAPIMaxRetries, cfg.StatsAPIRetryDelay),
	)

	a.Pipeline = scoring.NewPipeline(db, a.Client, loc)

	a.Scheduler, err = scheduler.NewScheduler(cfg, a.Pipeline, a.Locker, status)
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// ServerDeps returns the collaborators for the admin HTTP server
func (a *App) ServerDeps() server.Deps {
	return server.Deps{
		Pipeline:   a.Pipeline,
		Cycles:     a.Scheduler,
		Scorecards: a.DB.Scorecards,
		Health:     a.DB,
		AdminToken: a.Config.AdminToken,
	}
}

// Close releases the connections
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close redis client")
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
