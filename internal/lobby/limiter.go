package lobby

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// Limiter enforces the per-requester room creation cooldown.
type Limiter interface {
	// Reserve claims the cooldown window for key. When it is already held,
	// ok is false and retryAfter is the remaining wait.
	Reserve(ctx context.Context, key string) (ok bool, retryAfter time.Duration, err error)
	Name() string
}

// MemoryLimiter keeps cooldowns in process.
type MemoryLimiter struct {
	clock  clockwork.Clock
	window time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

func NewMemoryLimiter(clock clockwork.Clock, window time.Duration) *MemoryLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryLimiter{clock: clock, window: window, last: make(map[string]time.Time)}
}

func (m *MemoryLimiter) Name() string { return "memory" }

func (m *MemoryLimiter) Reserve(_ context.Context, key string) (bool, time.Duration, error) {
	if m.window <= 0 {
		return true, 0, nil
	}
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if at, ok := m.last[key]; ok {
		if wait := at.Add(m.window).Sub(now); wait > 0 {
			return false, wait, nil
		}
	}
	m.last[key] = now
	if len(m.last) > 1024 {
		m.sweep(now)
	}
	return true, 0, nil
}

func (m *MemoryLimiter) sweep(now time.Time) {
	for k, at := range m.last {
		if now.Sub(at) >= m.window {
			delete(m.last, k)
		}
	}
}

// RedisLimiter shares cooldowns between instances via SET NX PX.
type RedisLimiter struct {
	rdb    *redis.Client
	window time.Duration
	prefix string
}

// OpenRedis connects to REDIS_URL (redis:// or rediss://) and pings it.
func OpenRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("REDIS_URL is empty")
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func NewRedisLimiter(rdb *redis.Client, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, window: window, prefix: "duel:cooldown:create:"}
}

func (r *RedisLimiter) Name() string { return "redis" }

func (r *RedisLimiter) Reserve(ctx context.Context, key string) (bool, time.Duration, error) {
	if r.window <= 0 {
		return true, 0, nil
	}
	k := r.prefix + key
	ok, err := r.rdb.SetNX(ctx, k, 1, r.window).Result()
	if err != nil {
		return false, 0, fmt.Errorf("cooldown setnx: %w", err)
	}
	if ok {
		return true, 0, nil
	}
	ttl, err := r.rdb.PTTL(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("cooldown pttl: %w", err)
	}
	if ttl <= 0 {
		// key without expiry or just expired; report a full window
		ttl = r.window
	}
	return false, ttl, nil
}
