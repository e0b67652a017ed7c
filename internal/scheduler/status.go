package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"runpool/ingestion/internal/scoring"
)

// LastCycleKey is where RedisStatus keeps the last cycle summary
const LastCycleKey = "runpool:last-cycle"

const lastCycleTTL = 7 * 24 * time.Hour

// StatusStore keeps the summary of the most recent cycle for /admin/status
type StatusStore interface {
	Save(ctx context.Context, result scoring.CycleResult) error
	Last(ctx context.Context) (*scoring.CycleResult, error)
}

// MemoryStatus is a StatusStore local to this process
type MemoryStatus struct {
	mu   sync.RWMutex
	last *scoring.CycleResult
}

// NewMemoryStatus creates an empty MemoryStatus
func NewMemoryStatus() *MemoryStatus {
	return &MemoryStatus{}
}

// Save implements StatusStore
func (m *MemoryStatus) Save(ctx context.Context, result scoring.CycleResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = &result
	return nil
}

// Last implements StatusStore
func (m *MemoryStatus) Last(ctx context.Context) (*scoring.CycleResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return nil, nil
	}
	result := *m.last
	return &result, nil
}

// RedisStatus shares the last cycle summary between replicas
type RedisStatus struct {
	client redis.UniversalClient
}

// NewRedisStatus creates a RedisStatus
func NewRedisStatus(client redis.UniversalClient) *RedisStatus {
	return &RedisStatus{client: client}
}

// Save implements StatusStore
func (r *RedisStatus) Save(ctx context.Context, result scoring.CycleResult) error {
	b, err := sonic.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal cycle summary: %w", err)
	}
	return r.client.Set(ctx, LastCycleKey, b, lastCycleTTL).Err()
}

// Last implements StatusStore
func (r *RedisStatus) Last(ctx context.Context) (*scoring.CycleResult, error) {
	b, err := r.client.Get(ctx, LastCycleKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out scoring.CycleResult
	if err := sonic.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("unmarshal cycle summary: %w", err)
	}
	return &out, nil
}
