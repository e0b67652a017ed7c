package containers

import (
	"context"
	"fmt"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

const redisImage = "redis:7.2-alpine"

// Redis is a running Redis container
type Redis struct {
	container *tcredis.RedisContainer
	addr      string
}

// NewRedis starts a Redis container
func NewRedis(ctx context.Context) (*Redis, error) {
	container, err := tcredis.Run(ctx, redisImage)
	if err != nil {
		return nil, fmt.Errorf("error starting redis container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("error getting redis host: %w", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("error getting redis port: %w", err)
	}

	return &Redis{container: container, addr: fmt.Sprintf("%s:%s", host, port.Port())}, nil
}

// Addr returns host:port for a go-redis client
func (r *Redis) Addr() string {
	return r.addr
}

// Shutdown terminates the container
func (r *Redis) Shutdown(ctx context.Context) error {
	return r.container.Terminate(ctx)
}
