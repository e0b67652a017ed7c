// Package lock provides the try-acquire job lock that keeps daily cycles
// from overlapping, in-process or across replicas.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"runpool/ingestion/internal/config"
)

// Locker acquires a lock without waiting. When ok is false the lock is held
// elsewhere and release is nil. When ok is true release must be called once
// the guarded work is done; calling it more than once is harmless.
type Locker interface {
	TryLock(ctx context.Context) (release func(), ok bool, err error)
}

// Local is a process-wide Locker
type Local struct {
	mu sync.Mutex
}

// NewLocal creates a Local lock
func NewLocal() *Local {
	return &Local{}
}

// TryLock implements Locker
func (l *Local) TryLock(ctx context.Context) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, true, nil
}

// New returns the Locker selected by LOCK_BACKEND. rdb may be nil for the
// local backend.
func New(cfg *config.Config, rdb redis.UniversalClient) (Locker, error) {
	switch cfg.LockBackend {
	case config.LockBackendLocal:
		return NewLocal(), nil
	case config.LockBackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis lock backend requires a redis client")
		}
		return NewRedis(rdb, cfg.LockKey, cfg.LockTTL), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.LockBackend)
	}
}

// ErrProcessLocal means the configured lock cannot exclude a worker
// running in another process
var ErrProcessLocal = errors.New("local lock backend only excludes callers in this process")

// RequireShared fails unless LOCK_BACKEND excludes across processes.
// One-shot commands call it before running a cycle next to a live worker.
func RequireShared(cfg *config.Config) error {
	if cfg.LockBackend != config.LockBackendRedis {
		return fmt.Errorf("%w (LOCK_BACKEND=%s)", ErrProcessLocal, cfg.LockBackend)
	}
	return nil
}

const releaseTimeout = 5 * time.Second
