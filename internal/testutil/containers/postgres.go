// Package containers starts throwaway Postgres and Redis instances for
// integration tests.
package containers

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresImage = "postgres:16.3-alpine"
	dbName        = "runpool_test"
	dbUser        = "runpool"
	dbPassword    = "secret"
)

// Postgres is a running Postgres container
type Postgres struct {
	container *postgres.PostgresContainer
	dsn       string
}

// NewPostgres starts a Postgres container and waits until it accepts connections
func NewPostgres(ctx context.Context) (*Postgres, error) {
	container, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, fmt.Errorf("error starting postgres container: %w", err)
	}

	// the container is not configured for TLS
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("error getting connection string: %w", err)
	}

	return &Postgres{container: container, dsn: dsn}, nil
}

// DSN returns the postgres:// connection URL
func (p *Postgres) DSN() string {
	return p.dsn
}

// Shutdown terminates the container
func (p *Postgres) Shutdown(ctx context.Context) error {
	return p.container.Terminate(ctx)
}
